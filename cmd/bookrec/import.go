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

package main

import (
	"context"

	"github.com/bookrec/bookrec/base/log"
	"github.com/bookrec/bookrec/storage/data"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const importBatchSize = 1000

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import books and comments from CSV files into the data store.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		itemsPath, _ := cmd.Flags().GetString("items")
		interactionsPath, _ := cmd.Flags().GetString("interactions")
		purge, _ := cmd.Flags().GetBool("purge")
		target, err := data.Open(cfg.Database.DataStore, cfg.Database.TablePrefix)
		if err != nil {
			log.Logger().Fatal("failed to connect data store",
				zap.String("data_store", log.RedactDBURL(cfg.Database.DataStore)), zap.Error(err))
		}
		defer func() {
			if err := target.Close(); err != nil {
				log.Logger().Error("failed to close data store", zap.Error(err))
			}
		}()
		if err = target.Init(); err != nil {
			log.Logger().Fatal("failed to init data store", zap.Error(err))
		}
		if purge {
			if err = target.Purge(); err != nil {
				log.Logger().Fatal("failed to purge data store", zap.Error(err))
			}
		}
		if err = importData(cmd.Context(), data.NewCSV(itemsPath, interactionsPath), target, importBatchSize, true); err != nil {
			log.Logger().Fatal("failed to import", zap.Error(err))
		}
	},
}

func init() {
	importCmd.Flags().String("items", "data/books.csv", "path of the books CSV file")
	importCmd.Flags().String("interactions", "data/comments.csv", "path of the comments CSV file")
	importCmd.Flags().Bool("purge", false, "remove existing data before importing")
}

// importData copies the catalog and the interaction log from source to target in batches.
func importData(ctx context.Context, source, target data.Database, batchSize int, showProgress bool) error {
	items, err := source.GetItems(ctx)
	if err != nil {
		return errors.Annotate(err, "failed to read items")
	}
	bar := newProgressBar(len(items), "import items", showProgress)
	for _, chunk := range lo.Chunk(items, batchSize) {
		if err = target.BatchInsertItems(ctx, chunk); err != nil {
			return errors.Annotate(err, "failed to insert items")
		}
		_ = bar.Add(len(chunk))
	}
	interactions, err := source.GetInteractions(ctx)
	if err != nil {
		return errors.Annotate(err, "failed to read interactions")
	}
	bar = newProgressBar(len(interactions), "import interactions", showProgress)
	for _, chunk := range lo.Chunk(interactions, batchSize) {
		if err = target.BatchInsertInteractions(ctx, chunk); err != nil {
			return errors.Annotate(err, "failed to insert interactions")
		}
		_ = bar.Add(len(chunk))
	}
	log.Logger().Info("import data",
		zap.Int("n_items", len(items)),
		zap.Int("n_interactions", len(interactions)))
	return nil
}

func newProgressBar(total int, description string, visible bool) *progressbar.ProgressBar {
	if !visible {
		return progressbar.DefaultSilent(int64(total), description)
	}
	return progressbar.Default(int64(total), description)
}
