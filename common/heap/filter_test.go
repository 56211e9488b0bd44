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

package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopKFilter(t *testing.T) {
	a := NewTopKFilter[int64, float64](3)
	a.Push(10, 2)
	a.Push(20, 8)
	a.Push(30, 1)
	assert.Equal(t, []int64{20, 10, 30}, a.PopAllValues())
	// more items than k
	a = NewTopKFilter[int64, float64](3)
	a.Push(10, 2)
	a.Push(20, 8)
	a.Push(30, 1)
	a.Push(40, 2)
	a.Push(50, 5)
	a.Push(12, 10)
	a.Push(67, 7)
	a.Push(32, 9)
	elems := a.PopAll()
	assert.Equal(t, []int64{12, 32, 20}, []int64{elems[0].Value, elems[1].Value, elems[2].Value})
	assert.Equal(t, []float64{10, 9, 8}, []float64{elems[0].Weight, elems[1].Weight, elems[2].Weight})
}

func TestTopKFilterStable(t *testing.T) {
	a := NewTopKFilter[string, int](4)
	for _, s := range []string{"a", "b", "c", "d", "e", "f"} {
		a.Push(s, 1)
	}
	a.Push("g", 2)
	assert.Equal(t, []string{"g", "a", "b", "c"}, a.PopAllValues())
	// unbounded by input size
	a = NewTopKFilter[string, int](10)
	a.Push("x", 3)
	a.Push("y", 3)
	assert.Equal(t, []string{"x", "y"}, a.PopAllValues())
	// zero k keeps nothing
	a = NewTopKFilter[string, int](0)
	a.Push("x", 3)
	assert.Empty(t, a.PopAllValues())
}
