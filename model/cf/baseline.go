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

package cf

import (
	"github.com/bookrec/bookrec/storage/data"
)

// Baseline predicts the mean rating of an item, damped towards the global mean:
//
//	r_ui = (sum_i + shrinkage * mu) / (count_i + shrinkage)
//
// It is used when no latent factor model is configured.
type Baseline struct {
	globalMean float64
	itemMean   map[int64]float64
}

// NewBaseline fits item means from interactions.
func NewBaseline(interactions []data.Interaction, shrinkage float64) *Baseline {
	b := &Baseline{itemMean: make(map[int64]float64)}
	if len(interactions) == 0 {
		return b
	}
	sum := make(map[int64]float64)
	count := make(map[int64]float64)
	for _, interaction := range interactions {
		b.globalMean += interaction.Rating
		sum[interaction.ProductId] += interaction.Rating
		count[interaction.ProductId]++
	}
	b.globalMean /= float64(len(interactions))
	for itemId := range sum {
		b.itemMean[itemId] = (sum[itemId] + shrinkage*b.globalMean) / (count[itemId] + shrinkage)
	}
	return b
}

func (b *Baseline) Predict(_, itemId int64) float64 {
	if mean, exist := b.itemMean[itemId]; exist {
		return mean
	}
	return b.globalMean
}
