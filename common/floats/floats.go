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

package floats

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Dot two vectors.
func Dot[T constraints.Float](a, b []T) (ret T) {
	if len(a) != len(b) {
		panic("floats: slice lengths do not match")
	}
	for i := range a {
		ret += a[i] * b[i]
	}
	return
}

// Norm returns the Euclidean length of a vector.
func Norm[T constraints.Float](a []T) T {
	return T(math.Sqrt(float64(Dot(a, a))))
}

// MulConst multiplies a vector by a constant in place.
func MulConst[T constraints.Float](a []T, c T) {
	for i := range a {
		a[i] *= c
	}
}

// IsFinite checks that a value is neither NaN nor infinite.
func IsFinite[T constraints.Float](v T) bool {
	return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
}
