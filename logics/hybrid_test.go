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
	"testing"

	"github.com/bookrec/bookrec/model/cf"
	"github.com/bookrec/bookrec/storage/data"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hybridInteractions lets user 1 rate item 1 and other users rate items 2 to 5,
// plus an item missing from the catalog.
func hybridInteractions() []data.Interaction {
	return []data.Interaction{
		{UserId: 1, ProductId: 1, Rating: 5},
		{UserId: 2, ProductId: 2, Rating: 4},
		{UserId: 2, ProductId: 99, Rating: 4},
		{UserId: 3, ProductId: 3, Rating: 3},
		{UserId: 3, ProductId: 4, Rating: 2},
		{UserId: 4, ProductId: 5, Rating: 1},
	}
}

func newHybrid(predictor cf.Predictor, candidates int) *Hybrid {
	return NewHybrid(NewCollaborative(predictor, 2, false), NewContent(nil, 2, 2), candidates)
}

func hybridIds(books []HybridBook) []int64 {
	return productIds(books, func(b HybridBook) int64 { return b.ProductId })
}

func TestMinMaxNormalize(t *testing.T) {
	normalized := MinMaxNormalize([]float64{1, 5, 4.2})
	assert.InDeltaSlice(t, []float64{0, 1, 0.8}, normalized, 1e-12)
	assert.Equal(t, []float64{0, 0, 0}, MinMaxNormalize([]float64{3, 3, 3}))
	assert.Equal(t, []float64{0}, MinMaxNormalize([]float64{4}))
	assert.Empty(t, MinMaxNormalize(nil))
}

func TestHybrid(t *testing.T) {
	hybrid := newHybrid(itemPredictor, 0)
	books, err := hybrid.Recommend(context.Background(), 1, 1, hybridInteractions(), testCatalog(), 10, 0.5, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 2, 4, 3}, hybridIds(books))
	for _, book := range books {
		assert.InDelta(t, 0.5*book.NormalizedRating+0.5*book.Similarity, book.Score, 1e-12)
		assert.GreaterOrEqual(t, book.NormalizedRating, 0.0)
		assert.LessOrEqual(t, book.NormalizedRating, 1.0)
	}
	assert.Equal(t, 1.0, books[0].NormalizedRating)
	assert.InDelta(t, 1/math.Sqrt(3), books[0].Similarity, 1e-12)
	assert.Zero(t, books[1].NormalizedRating)
	assert.Equal(t, "E", books[0].Title)

	// truncate
	books, err = hybrid.Recommend(context.Background(), 1, 1, hybridInteractions(), testCatalog(), 2, 0.5, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 2}, hybridIds(books))
	books, err = hybrid.Recommend(context.Background(), 1, 1, hybridInteractions(), testCatalog(), 0, 0.5, 0.5)
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestHybridWeights(t *testing.T) {
	hybrid := newHybrid(itemPredictor, 0)
	// pure collaborative
	books, err := hybrid.Recommend(context.Background(), 1, 1, hybridInteractions(), testCatalog(), 10, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 4, 3, 2}, hybridIds(books))
	// pure content based
	books, err = hybrid.Recommend(context.Background(), 1, 1, hybridInteractions(), testCatalog(), 10, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 5, 3, 4}, hybridIds(books))
	// invalid weights
	_, err = hybrid.Recommend(context.Background(), 1, 1, hybridInteractions(), testCatalog(), 10, math.NaN(), 1)
	assert.True(t, errors.Is(err, errors.NotValid))
	_, err = hybrid.Recommend(context.Background(), 1, 1, hybridInteractions(), testCatalog(), 10, 0.5, math.Inf(1))
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestHybridFusedScore(t *testing.T) {
	// normalized rating 0.8 and similarity 0.4 give 0.6 with equal weights
	ratings := map[int64]float64{2: 1, 3: 5, 5: 4.2}
	predictor := cf.PredictorFunc(func(_, itemId int64) float64 {
		return ratings[itemId]
	})
	interactions := []data.Interaction{
		{UserId: 2, ProductId: 2},
		{UserId: 2, ProductId: 3},
		{UserId: 2, ProductId: 5},
	}
	books, err := newHybrid(predictor, 0).Recommend(context.Background(), 1, 1, interactions, testCatalog(), 10, 0.5, 0.5)
	require.NoError(t, err)
	book := books[0]
	for _, b := range books {
		if b.ProductId == 5 {
			book = b
		}
	}
	require.Equal(t, int64(5), book.ProductId)
	assert.InDelta(t, 0.8, book.NormalizedRating, 1e-12)
	assert.InDelta(t, 0.5*0.8+0.5*book.Similarity, book.Score, 1e-12)
}

func TestHybridConstantPredictor(t *testing.T) {
	constant := cf.PredictorFunc(func(_, _ int64) float64 {
		return 4
	})
	books, err := newHybrid(constant, 0).Recommend(context.Background(), 1, 1, hybridInteractions(), testCatalog(), 10, 0.5, 0.5)
	require.NoError(t, err)
	// ranking falls back to similarity, ties keep catalog order
	assert.Equal(t, []int64{2, 5, 3, 4}, hybridIds(books))
	for _, book := range books {
		assert.Zero(t, book.NormalizedRating)
		assert.InDelta(t, 0.5*book.Similarity, book.Score, 1e-12)
	}
}

func TestHybridTiesKeepCatalogOrder(t *testing.T) {
	catalog := []data.Item{
		{ProductId: 1, Tags: "fantasy"},
		{ProductId: 2, Tags: "cooking"},
		{ProductId: 3, Tags: "travel"},
	}
	// item 3 is discovered before item 2
	interactions := []data.Interaction{
		{UserId: 1, ProductId: 1, Rating: 5},
		{UserId: 2, ProductId: 3, Rating: 4},
		{UserId: 2, ProductId: 2, Rating: 4},
	}
	constant := cf.PredictorFunc(func(_, _ int64) float64 {
		return 3
	})
	predictions, err := NewCollaborative(constant, 1, false).Recommend(context.Background(), 1, interactions, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2}, productIds(predictions, func(p Prediction) int64 { return p.ProductId }))
	similar, err := NewContent(nil, 2, 1).Recommend(context.Background(), 1, catalog, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, productIds(similar, func(b SimilarBook) int64 { return b.ProductId }))

	books, err := newHybrid(constant, 0).Recommend(context.Background(), 1, 1, interactions, catalog, 10, 0.5, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, hybridIds(books))
	books, err = newHybrid(constant, 0).Recommend(context.Background(), 1, 1, interactions, catalog, 10, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, hybridIds(books))
}

func TestHybridOneSided(t *testing.T) {
	// only item 3 has a prediction
	interactions := []data.Interaction{
		{UserId: 1, ProductId: 1, Rating: 5},
		{UserId: 2, ProductId: 3, Rating: 4},
	}
	books, err := newHybrid(itemPredictor, 0).Recommend(context.Background(), 1, 1, interactions, testCatalog(), 10, 0.5, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 5, 3, 4}, hybridIds(books))
	for _, book := range books {
		assert.Zero(t, book.NormalizedRating)
	}

	// no interactions at all
	books, err = newHybrid(itemPredictor, 0).Recommend(context.Background(), 1, 1, nil, testCatalog(), 10, 0.5, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 5, 3, 4}, hybridIds(books))
}

func TestHybridEmpty(t *testing.T) {
	catalog := []data.Item{{ProductId: 1, Tags: "alone"}}
	books, err := newHybrid(itemPredictor, 0).Recommend(context.Background(), 1, 1, nil, catalog, 10, 0.5, 0.5)
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestHybridItemNotFound(t *testing.T) {
	_, err := newHybrid(itemPredictor, 0).Recommend(context.Background(), 1, 100, hybridInteractions(), testCatalog(), 10, 0.5, 0.5)
	assert.True(t, errors.Is(err, ErrItemNotFound))
}

func TestHybridCandidates(t *testing.T) {
	// the best fused item is outside the top 1 of both sides
	ratings := map[int64]float64{2: 1, 3: 5, 5: 4.9}
	predictor := cf.PredictorFunc(func(_, itemId int64) float64 {
		return ratings[itemId]
	})
	interactions := []data.Interaction{
		{UserId: 2, ProductId: 2},
		{UserId: 2, ProductId: 3},
		{UserId: 2, ProductId: 5},
	}
	books, err := newHybrid(predictor, 0).Recommend(context.Background(), 1, 1, interactions, testCatalog(), 1, 0.5, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, hybridIds(books))
	books, err = newHybrid(predictor, 10).Recommend(context.Background(), 1, 1, interactions, testCatalog(), 1, 0.5, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, hybridIds(books))
}
