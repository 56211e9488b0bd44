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

	"github.com/bookrec/bookrec/config"
	"github.com/bookrec/bookrec/model/cf"
	"github.com/bookrec/bookrec/storage/data"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"golang.org/x/sync/errgroup"
)

// baselineShrinkage damps item means of the baseline predictor.
const baselineShrinkage = 5

// RatedBook is an item with the rating predicted for a user.
type RatedBook struct {
	data.Item
	PredictedRating float64
}

// Recommender serves the four strategies. The catalog and the interaction log
// are read from the database on every call, so each call sees fresh data and
// nothing is shared between calls except the predictor and the vector space cache.
type Recommender struct {
	config     config.RecommendConfig
	dataClient data.Database
	predictor  cf.Predictor
	trending   *Trending
	content    *Content
	cache      *VectorSpaceCache
}

// NewRecommender creates a recommender. If predictor is nil, a baseline of item
// means is fitted on every call instead.
func NewRecommender(cfg config.RecommendConfig, dataClient data.Database, predictor cf.Predictor) (*Recommender, error) {
	trending, err := NewTrending(cfg.Trending)
	if err != nil {
		return nil, errors.Trace(err)
	}
	cache := NewVectorSpaceCache(cfg.Content.CacheTTL)
	return &Recommender{
		config:     cfg,
		dataClient: dataClient,
		predictor:  predictor,
		trending:   trending,
		content:    NewContent(cache, cfg.Content.MinTokenLength, cfg.NumJobs),
		cache:      cache,
	}, nil
}

// Close releases the vector space cache.
func (r *Recommender) Close() {
	r.cache.Stop()
}

func (r *Recommender) collaborative(interactions []data.Interaction) *Collaborative {
	predictor := r.predictor
	if predictor == nil {
		predictor = cf.NewBaseline(interactions, baselineShrinkage)
	}
	return NewCollaborative(predictor, r.config.NumJobs, r.config.Collaborative.RequireKnownUser)
}

func (r *Recommender) loadItems(ctx context.Context) ([]data.Item, error) {
	items, err := r.dataClient.GetItems(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "failed to load items")
	}
	return data.DedupItems(items), nil
}

func (r *Recommender) loadAll(ctx context.Context) ([]data.Item, []data.Interaction, error) {
	var (
		items        []data.Item
		interactions []data.Interaction
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		items, err = r.loadItems(ctx)
		return
	})
	g.Go(func() (err error) {
		interactions, err = r.dataClient.GetInteractions(ctx)
		return errors.Annotate(err, "failed to load interactions")
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return items, interactions, nil
}

// Trending returns the top n items by trending score.
func (r *Recommender) Trending(ctx context.Context, n int) ([]TrendingBook, error) {
	if err := validateN(n); err != nil {
		return nil, err
	}
	items, err := r.loadItems(ctx)
	if err != nil {
		return nil, err
	}
	return r.trending.Score(ctx, items, n)
}

// Collaborative returns the top n unrated items for a user by predicted rating.
// Predictions for items missing from the catalog are dropped.
func (r *Recommender) Collaborative(ctx context.Context, userId int64, n int) ([]RatedBook, error) {
	if err := validateN(n); err != nil {
		return nil, err
	}
	items, interactions, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[int64]int, len(items))
	for i, item := range items {
		index[item.ProductId] = i
	}
	predictions, err := r.collaborative(interactions).Recommend(ctx, userId, interactions, n, mapset.NewThreadUnsafeSetFromMapKeys(index))
	if err != nil {
		return nil, err
	}
	books := make([]RatedBook, len(predictions))
	for i, prediction := range predictions {
		books[i] = RatedBook{Item: items[index[prediction.ProductId]], PredictedRating: prediction.Rating}
	}
	return books, nil
}

// ContentBased returns the n items most similar to an item.
func (r *Recommender) ContentBased(ctx context.Context, productId int64, n int) ([]SimilarBook, error) {
	if err := validateN(n); err != nil {
		return nil, err
	}
	items, err := r.loadItems(ctx)
	if err != nil {
		return nil, err
	}
	return r.content.Recommend(ctx, productId, items, n)
}

// Hybrid returns the top n items by fused score.
func (r *Recommender) Hybrid(ctx context.Context, userId, productId int64, n int, cfWeight, cbfWeight float64) ([]HybridBook, error) {
	if err := validateN(n); err != nil {
		return nil, err
	}
	items, interactions, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	hybrid := NewHybrid(r.collaborative(interactions), r.content, r.config.Hybrid.Candidates)
	return hybrid.Recommend(ctx, userId, productId, interactions, items, n, cfWeight, cbfWeight)
}
