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
	"database/sql"

	"github.com/bookrec/bookrec/storage"
	_ "github.com/go-sql-driver/mysql"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SQLDriver int

const (
	MySQL SQLDriver = iota
	Postgres
	SQLite
)

// SQLItem is the row of the items table. Seq records the position of the first
// insertion, which overwrites keep.
type SQLItem struct {
	Item `gorm:"embedded"`
	Seq  int64 `gorm:"column:seq;index"`
}

// SQLInteraction is the row of the interactions table. Id records insertion order.
type SQLInteraction struct {
	Id          int64 `gorm:"column:id;primaryKey;autoIncrement"`
	Interaction `gorm:"embedded"`
}

// SQLDatabase stores the catalog and the interaction log in MySQL, Postgres or SQLite.
type SQLDatabase struct {
	storage.TablePrefix
	gormDB *gorm.DB
	client *sql.DB
	driver SQLDriver
}

// Init tables and indices.
func (d *SQLDatabase) Init() error {
	db := d.gormDB
	if d.driver == MySQL {
		db = db.Set("gorm:table_options", "ENGINE=InnoDB")
	}
	if err := db.Table(d.ItemsTable()).AutoMigrate(&SQLItem{}); err != nil {
		return errors.Trace(err)
	}
	if err := db.Table(d.InteractionsTable()).AutoMigrate(&SQLInteraction{}); err != nil {
		return errors.Trace(err)
	}
	return nil
}

func (d *SQLDatabase) Ping() error {
	return errors.Trace(d.client.Ping())
}

func (d *SQLDatabase) Close() error {
	return d.client.Close()
}

// Purge deletes all rows.
func (d *SQLDatabase) Purge() error {
	for _, table := range []string{d.ItemsTable(), d.InteractionsTable()} {
		if d.gormDB.Migrator().HasTable(table) {
			if err := d.gormDB.Exec("DELETE FROM " + table).Error; err != nil {
				return errors.Trace(err)
			}
		}
	}
	return nil
}

// BatchInsertItems inserts items at the end of the catalog. Existing items are
// overwritten in place.
func (d *SQLDatabase) BatchInsertItems(ctx context.Context, items []Item) error {
	items = DedupItems(items)
	if len(items) == 0 {
		return nil
	}
	err := d.gormDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last sql.NullInt64
		if err := tx.Table(d.ItemsTable()).Select("MAX(seq)").Row().Scan(&last); err != nil {
			return err
		}
		rows := lo.Map(items, func(item Item, i int) SQLItem {
			return SQLItem{Item: item, Seq: last.Int64 + int64(i) + 1}
		})
		return tx.Table(d.ItemsTable()).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns(itemColumns),
		}).Create(&rows).Error
	})
	return errors.Trace(err)
}

func (d *SQLDatabase) BatchInsertInteractions(ctx context.Context, interactions []Interaction) error {
	if len(interactions) == 0 {
		return nil
	}
	rows := lo.Map(interactions, func(interaction Interaction, _ int) SQLInteraction {
		return SQLInteraction{Interaction: interaction}
	})
	err := d.gormDB.WithContext(ctx).Table(d.InteractionsTable()).Create(&rows).Error
	return errors.Trace(err)
}

// GetItems returns items in order of first insertion.
func (d *SQLDatabase) GetItems(ctx context.Context) ([]Item, error) {
	var rows []SQLItem
	err := d.gormDB.WithContext(ctx).Table(d.ItemsTable()).Order("seq, product_id").Find(&rows).Error
	if err != nil {
		return nil, errors.Trace(err)
	}
	return lo.Map(rows, func(row SQLItem, _ int) Item {
		return row.Item
	}), nil
}

func (d *SQLDatabase) GetInteractions(ctx context.Context) ([]Interaction, error) {
	var rows []SQLInteraction
	err := d.gormDB.WithContext(ctx).Table(d.InteractionsTable()).Order("id").Find(&rows).Error
	if err != nil {
		return nil, errors.Trace(err)
	}
	return lo.Map(rows, func(row SQLInteraction, _ int) Interaction {
		return row.Interaction
	}), nil
}
