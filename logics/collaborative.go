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

	"github.com/bookrec/bookrec/common/floats"
	"github.com/bookrec/bookrec/common/heap"
	"github.com/bookrec/bookrec/common/parallel"
	"github.com/bookrec/bookrec/model/cf"
	"github.com/bookrec/bookrec/storage/data"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
)

// Prediction is the estimated rating of an item for a user.
type Prediction struct {
	ProductId int64
	Rating    float64
}

// Collaborative ranks the items a user has not rated by predicted rating.
type Collaborative struct {
	predictor        cf.Predictor
	numJobs          int
	requireKnownUser bool
}

func NewCollaborative(predictor cf.Predictor, numJobs int, requireKnownUser bool) *Collaborative {
	return &Collaborative{
		predictor:        predictor,
		numJobs:          numJobs,
		requireKnownUser: requireKnownUser,
	}
}

// Recommend returns the top n predictions for a user. Candidates are the distinct
// items in interactions, in order of first appearance, minus the items the user
// has rated. If catalog is not nil, candidates outside it are dropped before
// ranking. Ties keep candidate order.
func (c *Collaborative) Recommend(ctx context.Context, userId int64, interactions []data.Interaction, n int, catalog mapset.Set[int64]) ([]Prediction, error) {
	if err := validateN(n); err != nil {
		return nil, err
	}
	// collect rated items
	rated := mapset.NewThreadUnsafeSet[int64]()
	for _, interaction := range interactions {
		if interaction.UserId == userId {
			rated.Add(interaction.ProductId)
		}
	}
	if c.requireKnownUser && rated.Cardinality() == 0 {
		return nil, unknownUser(userId)
	}
	// collect candidates
	seen := mapset.NewThreadUnsafeSet[int64]()
	var candidates []int64
	for _, interaction := range interactions {
		if !seen.Add(interaction.ProductId) {
			continue
		}
		if rated.Contains(interaction.ProductId) {
			continue
		}
		if catalog != nil && !catalog.Contains(interaction.ProductId) {
			continue
		}
		candidates = append(candidates, interaction.ProductId)
	}
	CandidatesSize.WithLabelValues("collaborative").Observe(float64(len(candidates)))
	if n == 0 || len(candidates) == 0 {
		return []Prediction{}, nil
	}
	// predict ratings
	ratings := make([]float64, len(candidates))
	err := parallel.Parallel(ctx, len(candidates), c.numJobs, func(_, jobId int) error {
		rating := c.predictor.Predict(userId, candidates[jobId])
		if !floats.IsFinite(rating) {
			return errors.Errorf("predicted rating of item %d is %v", candidates[jobId], rating)
		}
		ratings[jobId] = rating
		return nil
	})
	PredictionsTotal.Add(float64(len(candidates)))
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Trace(ctx.Err())
		}
		return nil, computationFailed(err, "failed to predict ratings")
	}
	// rank candidates
	filter := heap.NewTopKFilter[int64, float64](n)
	for i, productId := range candidates {
		filter.Push(productId, ratings[i])
	}
	elems := filter.PopAll()
	predictions := make([]Prediction, len(elems))
	for i, elem := range elems {
		predictions[i] = Prediction{ProductId: elem.Value, Rating: elem.Weight}
	}
	return predictions, nil
}
