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
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/bookrec/bookrec/base/log"
	"github.com/bookrec/bookrec/cmd/version"
	"github.com/bookrec/bookrec/config"
	"github.com/bookrec/bookrec/logics"
	"github.com/bookrec/bookrec/server"
	"github.com/bookrec/bookrec/storage/data"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "bookrec",
	Short: "Book recommender system.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		log.SetLogger(cmd.Flags(), debug)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recommendations over HTTP.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		s, err := server.NewServer(cfg)
		if err != nil {
			log.Logger().Fatal("failed to create server", zap.Error(err))
		}
		// shutdown on signals
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go func() {
			<-ctx.Done()
			log.Logger().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.Shutdown(shutdownCtx); err != nil {
				log.Logger().Error("failed to shutdown server", zap.Error(err))
			}
		}()
		s.Serve()
	},
}

var trendingCmd = &cobra.Command{
	Use:   "trending",
	Short: "Print trending books.",
	Run: func(cmd *cobra.Command, args []string) {
		log.CloseLogger()
		cfg := loadConfig(cmd)
		top, _ := cmd.Flags().GetInt("top")
		if !cmd.Flags().Changed("top") {
			top = cfg.Server.DefaultTop
		}
		recommender, dataClient := openRecommender(cfg)
		defer closeRecommender(recommender, dataClient)
		books, err := recommender.Trending(cmd.Context(), top)
		if err != nil {
			log.Logger().Fatal("failed to score trending books", zap.Error(err))
		}
		renderTable(os.Stdout, []string{"Product ID", "Title", "Authors", "Avg Rating", "Reviews", "Score"},
			lo.Map(books, func(book logics.TrendingBook, _ int) []string {
				return append(itemRow(book.Item), formatFloat(book.Score))
			}))
	},
}

var cfCmd = &cobra.Command{
	Use:   "cf",
	Short: "Print collaborative filtering recommendations for a user.",
	Run: func(cmd *cobra.Command, args []string) {
		log.CloseLogger()
		cfg := loadConfig(cmd)
		userId, _ := cmd.Flags().GetInt64("user-id")
		n := getN(cmd, cfg)
		recommender, dataClient := openRecommender(cfg)
		defer closeRecommender(recommender, dataClient)
		books, err := recommender.Collaborative(cmd.Context(), userId, n)
		if err != nil {
			log.Logger().Fatal("failed to recommend", zap.Error(err))
		}
		renderTable(os.Stdout, []string{"Product ID", "Title", "Authors", "Avg Rating", "Reviews", "Predicted Rating"},
			lo.Map(books, func(book logics.RatedBook, _ int) []string {
				return append(itemRow(book.Item), formatFloat(book.PredictedRating))
			}))
	},
}

var cbfCmd = &cobra.Command{
	Use:   "cbf",
	Short: "Print books similar to a book.",
	Run: func(cmd *cobra.Command, args []string) {
		log.CloseLogger()
		cfg := loadConfig(cmd)
		productId, _ := cmd.Flags().GetInt64("product-id")
		n := getN(cmd, cfg)
		recommender, dataClient := openRecommender(cfg)
		defer closeRecommender(recommender, dataClient)
		books, err := recommender.ContentBased(cmd.Context(), productId, n)
		if err != nil {
			log.Logger().Fatal("failed to recommend", zap.Error(err))
		}
		renderTable(os.Stdout, []string{"Product ID", "Title", "Authors", "Avg Rating", "Reviews", "Similarity"},
			lo.Map(books, func(book logics.SimilarBook, _ int) []string {
				return append(itemRow(book.Item), formatFloat(book.Similarity))
			}))
	},
}

var hybridCmd = &cobra.Command{
	Use:   "hybrid",
	Short: "Print hybrid recommendations for a user and a book.",
	Run: func(cmd *cobra.Command, args []string) {
		log.CloseLogger()
		cfg := loadConfig(cmd)
		userId, _ := cmd.Flags().GetInt64("user-id")
		productId, _ := cmd.Flags().GetInt64("product-id")
		n := getN(cmd, cfg)
		cfWeight, _ := cmd.Flags().GetFloat64("cf-weight")
		if !cmd.Flags().Changed("cf-weight") {
			cfWeight = cfg.Recommend.Hybrid.CFWeight
		}
		cbfWeight, _ := cmd.Flags().GetFloat64("cbf-weight")
		if !cmd.Flags().Changed("cbf-weight") {
			cbfWeight = cfg.Recommend.Hybrid.CBFWeight
		}
		recommender, dataClient := openRecommender(cfg)
		defer closeRecommender(recommender, dataClient)
		books, err := recommender.Hybrid(cmd.Context(), userId, productId, n, cfWeight, cbfWeight)
		if err != nil {
			log.Logger().Fatal("failed to recommend", zap.Error(err))
		}
		renderTable(os.Stdout, []string{"Product ID", "Title", "Authors", "Avg Rating", "Reviews", "Normalized Rating", "Similarity", "Score"},
			lo.Map(books, func(book logics.HybridBook, _ int) []string {
				return append(itemRow(book.Item),
					formatFloat(book.NormalizedRating), formatFloat(book.Similarity), formatFloat(book.Score))
			}))
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build info.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(version.BuildInfo())
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "path of configuration file")
	rootCmd.PersistentFlags().Bool("debug", false, "use debug log mode")
	log.AddFlags(rootCmd.PersistentFlags())

	trendingCmd.Flags().Int("top", 10, "number of returned books")
	for _, cmd := range []*cobra.Command{cfCmd, cbfCmd, hybridCmd} {
		cmd.Flags().IntP("n", "n", 5, "number of returned books")
	}
	cfCmd.Flags().Int64("user-id", 0, "identifier of the user")
	cbfCmd.Flags().Int64("product-id", 0, "identifier of the reference book")
	hybridCmd.Flags().Int64("user-id", 0, "identifier of the user")
	hybridCmd.Flags().Int64("product-id", 0, "identifier of the reference book")
	hybridCmd.Flags().Float64("cf-weight", 0.5, "weight of collaborative filtering")
	hybridCmd.Flags().Float64("cbf-weight", 0.5, "weight of content based filtering")
	lo.Must0(cfCmd.MarkFlagRequired("user-id"))
	lo.Must0(cbfCmd.MarkFlagRequired("product-id"))
	lo.Must0(hybridCmd.MarkFlagRequired("user-id"))
	lo.Must0(hybridCmd.MarkFlagRequired("product-id"))

	rootCmd.AddCommand(serveCmd, trendingCmd, cfCmd, cbfCmd, hybridCmd, importCmd, versionCmd)
}

func loadConfig(cmd *cobra.Command) *config.Config {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		log.Logger().Fatal("failed to load config", zap.String("path", path), zap.Error(err))
	}
	return cfg
}

func getN(cmd *cobra.Command, cfg *config.Config) int {
	n, _ := cmd.Flags().GetInt("n")
	if !cmd.Flags().Changed("n") {
		n = cfg.Server.DefaultN
	}
	return n
}

func openRecommender(cfg *config.Config) (*logics.Recommender, data.Database) {
	recommender, dataClient, err := server.OpenRecommender(cfg)
	if err != nil {
		log.Logger().Fatal("failed to create recommender", zap.Error(err))
	}
	return recommender, dataClient
}

func closeRecommender(recommender *logics.Recommender, dataClient data.Database) {
	recommender.Close()
	if err := dataClient.Close(); err != nil {
		log.Logger().Error("failed to close database", zap.Error(err))
	}
}

func itemRow(item data.Item) []string {
	rating, reviews := "-", "-"
	if item.AvgRating != nil {
		rating = formatFloat(*item.AvgRating)
	}
	if item.NumReviews != nil {
		reviews = strconv.FormatInt(*item.NumReviews, 10)
	}
	return []string{strconv.FormatInt(item.ProductId, 10), item.Title, item.Authors, rating, reviews}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func renderTable(w io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.Header(lo.ToAnySlice(header)...)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			log.Logger().Fatal("failed to append row", zap.Error(err))
		}
	}
	if err := table.Render(); err != nil {
		log.Logger().Fatal("failed to render table", zap.Error(err))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Logger().Fatal("failed to execute command", zap.Error(err))
	}
}
