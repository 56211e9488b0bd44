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
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/bookrec/bookrec/common/floats"
	"github.com/bookrec/bookrec/common/parallel"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]+`)

// Tokenize lowercases text and splits it into word tokens of at least minLength runes.
func Tokenize(text string, minLength int) []string {
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	return lo.Filter(tokens, func(token string, _ int) bool {
		return utf8.RuneCountInString(token) >= minLength
	})
}

// SparseVector is a vector stored as sorted indices and their values.
type SparseVector struct {
	Indices []int32
	Values  []float64
}

// Dot product of two sparse vectors.
func (v SparseVector) Dot(u SparseVector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v.Indices) && j < len(u.Indices) {
		switch {
		case v.Indices[i] == u.Indices[j]:
			sum += v.Values[i] * u.Values[j]
			i++
			j++
		case v.Indices[i] < u.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// VectorSpace is the TF-IDF model of a corpus. Term weights are
//
//	w(t, d) = tf(t, d) * (ln((1 + N) / (1 + df(t))) + 1)
//
// and every document vector is scaled to unit length, so cosine similarity is a
// plain dot product. Documents without tokens map to the zero vector.
type VectorSpace struct {
	vocabulary map[string]int32
	idf        []float64
	vectors    []SparseVector
}

// NewVectorSpace fits a vector space over documents. Row i of the space is document i.
func NewVectorSpace(ctx context.Context, documents []string, minTokenLength, nJobs int) (*VectorSpace, error) {
	// count terms per document
	counts := make([]map[string]int, len(documents))
	if err := parallel.ForEach(ctx, documents, nJobs, func(i int, document string) error {
		counts[i] = lo.CountValues(Tokenize(document, minTokenLength))
		return nil
	}); err != nil {
		return nil, errors.Trace(err)
	}
	// build vocabulary in lexical order
	df := make(map[string]int)
	for _, count := range counts {
		for term := range count {
			df[term]++
		}
	}
	terms := lo.Keys(df)
	slices.Sort(terms)
	vs := &VectorSpace{
		vocabulary: make(map[string]int32, len(terms)),
		idf:        make([]float64, len(terms)),
		vectors:    make([]SparseVector, len(documents)),
	}
	n := float64(len(documents))
	for i, term := range terms {
		vs.vocabulary[term] = int32(i)
		vs.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	// weight and normalize
	if err := parallel.Parallel(ctx, len(documents), nJobs, func(_, jobId int) error {
		vs.vectors[jobId] = vs.transform(counts[jobId])
		return nil
	}); err != nil {
		return nil, errors.Trace(err)
	}
	return vs, nil
}

func (vs *VectorSpace) transform(count map[string]int) SparseVector {
	type entry struct {
		index int32
		tf    int
	}
	var entries []entry
	for term, tf := range count {
		if index, exist := vs.vocabulary[term]; exist {
			entries = append(entries, entry{index: index, tf: tf})
		}
	}
	slices.SortFunc(entries, func(a, b entry) int {
		return int(a.index - b.index)
	})
	v := SparseVector{
		Indices: make([]int32, len(entries)),
		Values:  make([]float64, len(entries)),
	}
	for i, e := range entries {
		v.Indices[i] = e.index
		v.Values[i] = float64(e.tf) * vs.idf[e.index]
	}
	if norm := floats.Norm(v.Values); norm > 0 {
		floats.MulConst(v.Values, 1/norm)
	}
	return v
}

// Len returns the number of documents.
func (vs *VectorSpace) Len() int {
	return len(vs.vectors)
}

// VocabularySize returns the number of distinct terms.
func (vs *VectorSpace) VocabularySize() int {
	return len(vs.idf)
}

// Vector returns the unit vector of document i.
func (vs *VectorSpace) Vector(i int) SparseVector {
	return vs.vectors[i]
}

// Cosine similarity between documents i and j, clamped to [0, 1].
func (vs *VectorSpace) Cosine(i, j int) float64 {
	return math.Max(0, math.Min(1, vs.vectors[i].Dot(vs.vectors[j])))
}
