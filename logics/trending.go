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

package logics

import (
	"context"
	"math"
	"reflect"

	"github.com/bookrec/bookrec/base/log"
	"github.com/bookrec/bookrec/common/floats"
	"github.com/bookrec/bookrec/common/heap"
	"github.com/bookrec/bookrec/config"
	"github.com/bookrec/bookrec/storage/data"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// TrendingBook is an item with its trending score.
type TrendingBook struct {
	data.Item
	Score float64
}

// Trending ranks items by popularity. The default score is
//
//	rating * ln(1 + reviews)
//
// so review volume is dampened and a few very popular items do not dominate.
type Trending struct {
	scoreFunc  *vm.Program
	filterFunc *vm.Program
}

func trendingEnv(rating, reviews float64) map[string]any {
	return map[string]any{
		"rating":  rating,
		"reviews": reviews,
	}
}

var lnFunction = expr.Function("ln", func(params ...any) (any, error) {
	switch x := params[0].(type) {
	case float64:
		return math.Log(x), nil
	case int:
		return math.Log(float64(x)), nil
	default:
		return nil, errors.Errorf("ln expects a number, got %T", params[0])
	}
}, new(func(float64) float64), new(func(int) float64))

func NewTrending(cfg config.TrendingConfig) (*Trending, error) {
	// Compile score expression
	scoreFunc, err := expr.Compile(cfg.Score, expr.Env(trendingEnv(0, 0)), lnFunction)
	if err != nil {
		return nil, errors.Annotate(err, "failed to compile trending score")
	}
	switch scoreFunc.Node().Type().Kind() {
	case reflect.Float64, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
	default:
		return nil, errors.NotValidf("trending score %q must return a number", cfg.Score)
	}
	// Compile filter expression
	var filterFunc *vm.Program
	if cfg.Filter != "" {
		filterFunc, err = expr.Compile(cfg.Filter, expr.Env(trendingEnv(0, 0)), lnFunction)
		if err != nil {
			return nil, errors.Annotate(err, "failed to compile trending filter")
		}
		if filterFunc.Node().Type().Kind() != reflect.Bool {
			return nil, errors.NotValidf("trending filter %q must return bool", cfg.Filter)
		}
	}
	return &Trending{scoreFunc: scoreFunc, filterFunc: filterFunc}, nil
}

// Score ranks items and returns the top n. Items without a finite rating or a
// non-negative review count are skipped, and so are items whose score cannot be
// evaluated. Ties keep catalog order.
func (t *Trending) Score(ctx context.Context, items []data.Item, n int) ([]TrendingBook, error) {
	if err := validateN(n); err != nil {
		return nil, err
	}
	filter := heap.NewTopKFilter[int, float64](n)
	eligible := 0
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, errors.Trace(err)
		}
		if item.AvgRating == nil || !floats.IsFinite(*item.AvgRating) || item.NumReviews == nil || *item.NumReviews < 0 {
			log.Logger().Debug("skip item without valid rating or reviews", zap.Int64("product_id", item.ProductId))
			continue
		}
		env := trendingEnv(*item.AvgRating, float64(*item.NumReviews))
		// Evaluate filter function
		if t.filterFunc != nil {
			result, err := expr.Run(t.filterFunc, env)
			if err != nil {
				log.Logger().Error("evaluate trending filter", zap.Int64("product_id", item.ProductId), zap.Error(err))
				continue
			}
			if !result.(bool) {
				continue
			}
		}
		// Evaluate score function
		result, err := expr.Run(t.scoreFunc, env)
		if err != nil {
			log.Logger().Error("evaluate trending score", zap.Int64("product_id", item.ProductId), zap.Error(err))
			continue
		}
		score, ok := toFloat64(result)
		if !ok || !floats.IsFinite(score) {
			log.Logger().Warn("skip item with invalid trending score",
				zap.Int64("product_id", item.ProductId), zap.Any("score", result))
			continue
		}
		eligible++
		filter.Push(i, score)
	}
	if eligible == 0 {
		return nil, errors.WithType(errors.Errorf("no scoreable item among %d items", len(items)), ErrEmptyDataset)
	}
	elems := filter.PopAll()
	books := make([]TrendingBook, len(elems))
	for i, elem := range elems {
		books[i] = TrendingBook{Item: items[elem.Value], Score: elem.Weight}
	}
	return books, nil
}

func toFloat64(v any) (float64, bool) {
	switch typed := v.(type) {
	case float64:
		return typed, true
	case int:
		return float64(typed), true
	case int8:
		return float64(typed), true
	case int16:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	default:
		return 0, false
	}
}
