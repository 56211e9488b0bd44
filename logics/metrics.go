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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VectorSpaceCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bookrec",
		Subsystem: "logics",
		Name:      "vector_space_cache_hits_total",
	})
	VectorSpaceCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bookrec",
		Subsystem: "logics",
		Name:      "vector_space_cache_misses_total",
	})
	PredictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bookrec",
		Subsystem: "logics",
		Name:      "predictions_total",
		Help:      "Number of latent factor predictions.",
	})
	CandidatesSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bookrec",
		Subsystem: "logics",
		Name:      "candidates_size",
		Help:      "Number of candidates scored per request.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
	}, []string{"strategy"})
)
