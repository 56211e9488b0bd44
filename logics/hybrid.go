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
	"cmp"
	"context"
	"slices"

	"github.com/bookrec/bookrec/common/floats"
	"github.com/bookrec/bookrec/common/heap"
	"github.com/bookrec/bookrec/storage/data"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// HybridBook is an item with its fused score and the two components it came from.
type HybridBook struct {
	data.Item
	NormalizedRating float64
	Similarity       float64
	Score            float64
}

// Hybrid fuses collaborative and content based recommendations:
//
//	score = cfWeight * normalized_rating + cbfWeight * similarity
//
// Predicted ratings are min-max normalized into [0, 1]. If all of them are equal,
// every normalized rating is 0 and the ranking falls back to similarity. An item
// missing from one side gets 0 for that component. Weights are not required to
// sum to 1; the usual range is [0, 1].
//
// Each side is truncated to the working set size before fusion, so an item just
// outside the top of one side can be lost even if it would rank high after fusion.
// Raise candidates to reduce this effect.
type Hybrid struct {
	collaborative *Collaborative
	content       *Content
	candidates    int
}

// NewHybrid creates a hybrid recommender. candidates is the working set size of
// each side, where 0 (or anything below n) means n.
func NewHybrid(collaborative *Collaborative, content *Content, candidates int) *Hybrid {
	return &Hybrid{
		collaborative: collaborative,
		content:       content,
		candidates:    candidates,
	}
}

// Recommend returns the top n fused recommendations. Ties keep catalog order, so
// with degenerate normalization the ranking is the content based one.
func (h *Hybrid) Recommend(ctx context.Context, userId, productId int64, interactions []data.Interaction, catalog []data.Item,
	n int, cfWeight, cbfWeight float64) ([]HybridBook, error) {
	if err := validateN(n); err != nil {
		return nil, err
	}
	if !floats.IsFinite(cfWeight) || !floats.IsFinite(cbfWeight) {
		return nil, errors.NotValidf("weights (%v, %v)", cfWeight, cbfWeight)
	}
	index := make(map[int64]int, len(catalog))
	for i, item := range catalog {
		if _, exist := index[item.ProductId]; !exist {
			index[item.ProductId] = i
		}
	}
	if _, exist := index[productId]; !exist {
		return nil, itemNotFound(productId)
	}
	size := max(n, h.candidates)

	// collaborative side
	predictions, err := h.collaborative.Recommend(ctx, userId, interactions, size, mapset.NewThreadUnsafeSetFromMapKeys(index))
	if err != nil {
		return nil, errors.Trace(err)
	}
	normalized := MinMaxNormalize(lo.Map(predictions, func(p Prediction, _ int) float64 {
		return p.Rating
	}))
	// content side
	similar, err := h.content.Recommend(ctx, productId, catalog, size)
	if err != nil {
		return nil, errors.Trace(err)
	}

	// full outer join
	var joined []HybridBook
	position := make(map[int64]int, len(predictions)+len(similar))
	for i, prediction := range predictions {
		position[prediction.ProductId] = len(joined)
		joined = append(joined, HybridBook{
			Item:             catalog[index[prediction.ProductId]],
			NormalizedRating: normalized[i],
		})
	}
	for _, book := range similar {
		if i, exist := position[book.ProductId]; exist {
			joined[i].Similarity = book.Similarity
			continue
		}
		position[book.ProductId] = len(joined)
		joined = append(joined, HybridBook{Item: book.Item, Similarity: book.Similarity})
	}

	// fuse and rank
	slices.SortStableFunc(joined, func(a, b HybridBook) int {
		return cmp.Compare(index[a.ProductId], index[b.ProductId])
	})
	filter := heap.NewTopKFilter[int, float64](n)
	for i := range joined {
		joined[i].Score = cfWeight*joined[i].NormalizedRating + cbfWeight*joined[i].Similarity
		filter.Push(i, joined[i].Score)
	}
	positions := filter.PopAllValues()
	books := make([]HybridBook, len(positions))
	for i, position := range positions {
		books[i] = joined[position]
	}
	return books, nil
}

// MinMaxNormalize maps values onto [0, 1]. If all values are equal, they all map to 0.
func MinMaxNormalize(values []float64) []float64 {
	normalized := make([]float64, len(values))
	if len(values) == 0 {
		return normalized
	}
	minimum, maximum := lo.Min(values), lo.Max(values)
	if maximum == minimum {
		return normalized
	}
	for i, v := range values {
		normalized[i] = (v - minimum) / (maximum - minimum)
	}
	return normalized
}
