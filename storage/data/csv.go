// Copyright 2026 bookrec Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package data

import (
	"context"
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bookrec/bookrec/base/log"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	BooksFile    = "books.csv"
	CommentsFile = "comments.csv"
)

var (
	requiredItemColumns        = []string{"product_id", "title", "authors", "avg_rating", "n_review"}
	requiredInteractionColumns = []string{"product_id", "rating"}
)

// CSV reads the catalog and the interaction log from CSV files. Files are read on
// every call, so edits show up in the next request.
type CSV struct {
	booksPath    string
	commentsPath string
}

// NewCSV reads the catalog from booksPath and the interaction log from commentsPath.
func NewCSV(booksPath, commentsPath string) *CSV {
	return &CSV{booksPath: booksPath, commentsPath: commentsPath}
}

// Init checks that the directories of both files exist.
func (c *CSV) Init() error {
	return c.Ping()
}

func (c *CSV) Ping() error {
	for _, dir := range lo.Uniq([]string{filepath.Dir(c.booksPath), filepath.Dir(c.commentsPath)}) {
		info, err := os.Stat(dir)
		if err != nil {
			return errors.Trace(err)
		}
		if !info.IsDir() {
			return errors.NotValidf("data directory %s", dir)
		}
	}
	return nil
}

func (c *CSV) Close() error {
	return nil
}

func (c *CSV) Purge() error {
	return ErrReadOnly
}

func (c *CSV) BatchInsertItems(_ context.Context, _ []Item) error {
	return ErrReadOnly
}

func (c *CSV) BatchInsertInteractions(_ context.Context, _ []Interaction) error {
	return ErrReadOnly
}

// GetItems returns items in file order. Rows without an integer product id are
// skipped, and unparsable ratings or review counts are kept as nil.
func (c *CSV) GetItems(ctx context.Context) ([]Item, error) {
	var items []Item
	err := c.scan(ctx, c.booksPath, requiredItemColumns, false, func(line int, row map[string]string) {
		productId, err := strconv.ParseInt(row["product_id"], 10, 64)
		if err != nil {
			log.Logger().Warn("skip book without valid product id",
				zap.String("file", c.booksPath), zap.Int("line", line), zap.Error(err))
			return
		}
		items = append(items, Item{
			ProductId:  productId,
			Title:      row["title"],
			Authors:    row["authors"],
			Category:   row["category"],
			Tags:       row["tags"],
			AvgRating:  parseFloat(row["avg_rating"]),
			NumReviews: parseCount(row["n_review"]),
			CoverLink:  row["cover_link"],
		})
	})
	if err != nil {
		return nil, err
	}
	return DedupItems(items), nil
}

// GetInteractions returns interactions in file order. The user column may be named
// customer_id or user_id.
func (c *CSV) GetInteractions(ctx context.Context) ([]Interaction, error) {
	var interactions []Interaction
	err := c.scan(ctx, c.commentsPath, requiredInteractionColumns, true, func(line int, row map[string]string) {
		userColumn := lo.Ternary(row["customer_id"] != "", "customer_id", "user_id")
		userId, err := strconv.ParseInt(row[userColumn], 10, 64)
		if err != nil {
			log.Logger().Warn("skip comment without valid user id",
				zap.String("file", c.commentsPath), zap.Int("line", line), zap.Error(err))
			return
		}
		productId, err := strconv.ParseInt(row["product_id"], 10, 64)
		if err != nil {
			log.Logger().Warn("skip comment without valid product id",
				zap.String("file", c.commentsPath), zap.Int("line", line), zap.Error(err))
			return
		}
		rating := parseFloat(row["rating"])
		if rating == nil {
			log.Logger().Warn("skip comment without valid rating",
				zap.String("file", c.commentsPath), zap.Int("line", line))
			return
		}
		interactions = append(interactions, Interaction{UserId: userId, ProductId: productId, Rating: *rating})
	})
	if err != nil {
		return nil, err
	}
	return interactions, nil
}

func (c *CSV) scan(ctx context.Context, path string, required []string, requireUser bool, handle func(line int, row map[string]string)) error {
	name := filepath.Base(path)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NewNotFound(err, name)
		}
		return errors.Trace(err)
	}
	defer f.Close()
	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err == io.EOF {
		return errors.WithType(errors.Errorf("%s has no header", name), ErrMissingField)
	} else if err != nil {
		return errors.Trace(err)
	}
	header = lo.Map(header, func(column string, i int) string {
		column = strings.ToLower(strings.TrimSpace(column))
		if i == 0 {
			column = strings.TrimPrefix(column, "\ufeff")
		}
		return column
	})
	if missing, _ := lo.Difference(required, header); len(missing) > 0 {
		return errors.WithType(errors.Errorf("%s is missing columns %v", name, missing), ErrMissingField)
	}
	if requireUser && !lo.Contains(header, "customer_id") && !lo.Contains(header, "user_id") {
		return errors.WithType(errors.Errorf("%s is missing column customer_id", name), ErrMissingField)
	}
	for line := 2; ; line++ {
		if err = ctx.Err(); err != nil {
			return errors.Trace(err)
		}
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return errors.Annotatef(err, "failed to read %s", name)
		}
		row := make(map[string]string, len(header))
		for i, column := range header {
			if i < len(record) {
				row[column] = strings.TrimSpace(record[i])
			}
		}
		handle(line, row)
	}
}

func parseFloat(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// parseCount accepts whole numbers only, written as "17" or "17.0".
func parseCount(s string) *int64 {
	v := parseFloat(s)
	if v == nil || *v != math.Trunc(*v) {
		return nil
	}
	n := int64(*v)
	return &n
}
