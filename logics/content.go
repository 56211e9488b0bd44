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

	"github.com/bookrec/bookrec/common/heap"
	"github.com/bookrec/bookrec/common/parallel"
	"github.com/bookrec/bookrec/storage/data"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// SimilarBook is an item with its similarity to a reference item.
type SimilarBook struct {
	data.Item
	Similarity float64
}

// Content ranks items by TF-IDF cosine similarity of their tags.
type Content struct {
	cache          *VectorSpaceCache
	minTokenLength int
	numJobs        int
}

// NewContent creates a content based recommender. cache may be nil.
func NewContent(cache *VectorSpaceCache, minTokenLength, numJobs int) *Content {
	return &Content{
		cache:          cache,
		minTokenLength: minTokenLength,
		numJobs:        numJobs,
	}
}

// VectorSpace returns the vector space of a catalog, row i being catalog[i].
func (c *Content) VectorSpace(ctx context.Context, catalog []data.Item) (*VectorSpace, error) {
	build := func(ctx context.Context) (*VectorSpace, error) {
		documents := lo.Map(catalog, func(item data.Item, _ int) string {
			return item.Tags
		})
		return NewVectorSpace(ctx, documents, c.minTokenLength, c.numJobs)
	}
	vs, err := c.cache.Get(ctx, Fingerprint(catalog, c.minTokenLength), build)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Trace(ctx.Err())
		}
		return nil, computationFailed(err, "failed to build vector space")
	}
	return vs, nil
}

// Recommend returns the n items most similar to productId. The reference item is
// never returned. Ties keep catalog order.
func (c *Content) Recommend(ctx context.Context, productId int64, catalog []data.Item, n int) ([]SimilarBook, error) {
	if err := validateN(n); err != nil {
		return nil, err
	}
	_, reference, found := lo.FindIndexOf(catalog, func(item data.Item) bool {
		return item.ProductId == productId
	})
	if !found {
		return nil, itemNotFound(productId)
	}
	CandidatesSize.WithLabelValues("content").Observe(float64(len(catalog) - 1))
	if n == 0 {
		return []SimilarBook{}, nil
	}
	vs, err := c.VectorSpace(ctx, catalog)
	if err != nil {
		return nil, err
	}
	similarities := make([]float64, len(catalog))
	err = parallel.Parallel(ctx, len(catalog), c.numJobs, func(_, jobId int) error {
		similarities[jobId] = vs.Cosine(reference, jobId)
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Trace(ctx.Err())
		}
		return nil, computationFailed(err, "failed to compute similarities")
	}
	filter := heap.NewTopKFilter[int, float64](n)
	for i, item := range catalog {
		if item.ProductId != productId {
			filter.Push(i, similarities[i])
		}
	}
	elems := filter.PopAll()
	books := make([]SimilarBook, len(elems))
	for i, elem := range elems {
		books[i] = SimilarBook{Item: catalog[elem.Value], Similarity: elem.Weight}
	}
	return books, nil
}
