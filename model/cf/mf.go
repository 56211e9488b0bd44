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
	"bytes"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bookrec/bookrec/base/encoding"
	"github.com/bookrec/bookrec/common/floats"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

const modelName = "bookrec/mf"

// MatrixFactorization is a biased matrix factorization model:
//
//	r_ui = mu + b_u + b_i + p_u^T q_i
//
// Terms of unknown users or items are treated as zero, so an unknown user is
// scored by mu + b_i. Predictions are clipped to [MinRating, MaxRating] if Clip
// is set.
type MatrixFactorization struct {
	GlobalMean float64
	MinRating  float64
	MaxRating  float64
	Clip       bool

	nFactors   int
	userIndex  map[int64]int
	userBias   []float64
	userFactor [][]float64
	itemIndex  map[int64]int
	itemBias   []float64
	itemFactor [][]float64
}

// NewMatrixFactorization creates an empty model with nFactors latent factors.
func NewMatrixFactorization(nFactors int, globalMean, minRating, maxRating float64) *MatrixFactorization {
	return &MatrixFactorization{
		GlobalMean: globalMean,
		MinRating:  minRating,
		MaxRating:  maxRating,
		Clip:       true,
		nFactors:   nFactors,
		userIndex:  make(map[int64]int),
		itemIndex:  make(map[int64]int),
	}
}

func (mf *MatrixFactorization) NumFactors() int {
	return mf.nFactors
}

func (mf *MatrixFactorization) NumUsers() int {
	return len(mf.userBias)
}

func (mf *MatrixFactorization) NumItems() int {
	return len(mf.itemBias)
}

// SetUser adds or replaces the bias and factors of a user.
func (mf *MatrixFactorization) SetUser(userId int64, bias float64, factor []float64) error {
	if len(factor) != mf.nFactors {
		return errors.NotValidf("user %d has %d factors, expect %d", userId, len(factor), mf.nFactors)
	}
	if index, exist := mf.userIndex[userId]; exist {
		mf.userBias[index], mf.userFactor[index] = bias, factor
		return nil
	}
	mf.userIndex[userId] = len(mf.userBias)
	mf.userBias = append(mf.userBias, bias)
	mf.userFactor = append(mf.userFactor, factor)
	return nil
}

// SetItem adds or replaces the bias and factors of an item.
func (mf *MatrixFactorization) SetItem(itemId int64, bias float64, factor []float64) error {
	if len(factor) != mf.nFactors {
		return errors.NotValidf("item %d has %d factors, expect %d", itemId, len(factor), mf.nFactors)
	}
	if index, exist := mf.itemIndex[itemId]; exist {
		mf.itemBias[index], mf.itemFactor[index] = bias, factor
		return nil
	}
	mf.itemIndex[itemId] = len(mf.itemBias)
	mf.itemBias = append(mf.itemBias, bias)
	mf.itemFactor = append(mf.itemFactor, factor)
	return nil
}

func (mf *MatrixFactorization) IsUserPredictable(userId int64) bool {
	_, exist := mf.userIndex[userId]
	return exist
}

func (mf *MatrixFactorization) IsItemPredictable(itemId int64) bool {
	_, exist := mf.itemIndex[itemId]
	return exist
}

// Predict the rating given by a user to an item.
func (mf *MatrixFactorization) Predict(userId, itemId int64) float64 {
	userIndex, userExist := mf.userIndex[userId]
	itemIndex, itemExist := mf.itemIndex[itemId]
	ret := mf.GlobalMean
	if userExist {
		ret += mf.userBias[userIndex]
	}
	if itemExist {
		ret += mf.itemBias[itemIndex]
	}
	if userExist && itemExist {
		ret += floats.Dot(mf.userFactor[userIndex], mf.itemFactor[itemIndex])
	}
	if mf.Clip {
		ret = math.Max(mf.MinRating, math.Min(mf.MaxRating, ret))
	}
	return ret
}

type mfParams struct {
	NumFactors int
	GlobalMean float64
	MinRating  float64
	MaxRating  float64
}

// Marshal model into byte stream.
func (mf *MatrixFactorization) Marshal(w io.Writer) error {
	if err := encoding.WriteString(w, modelName); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, mfParams{
		NumFactors: mf.nFactors,
		GlobalMean: mf.GlobalMean,
		MinRating:  mf.MinRating,
		MaxRating:  mf.MaxRating,
	}); err != nil {
		return errors.Trace(err)
	}
	if err := writeFactors(w, mf.userIndex, mf.userBias, mf.userFactor); err != nil {
		return errors.Trace(err)
	}
	return writeFactors(w, mf.itemIndex, mf.itemBias, mf.itemFactor)
}

// Unmarshal model from byte stream.
func (mf *MatrixFactorization) Unmarshal(r io.Reader) error {
	name, err := encoding.ReadString(r)
	if err != nil {
		return errors.Trace(err)
	}
	if name != modelName {
		return errors.NotValidf("model %q", name)
	}
	var params mfParams
	if err = encoding.ReadGob(r, &params); err != nil {
		return errors.Trace(err)
	}
	*mf = *NewMatrixFactorization(params.NumFactors, params.GlobalMean, params.MinRating, params.MaxRating)
	if err = readFactors(r, params.NumFactors, mf.SetUser); err != nil {
		return errors.Annotate(err, "failed to read user factors")
	}
	if err = readFactors(r, params.NumFactors, mf.SetItem); err != nil {
		return errors.Annotate(err, "failed to read item factors")
	}
	return nil
}

func writeFactors(w io.Writer, index map[int64]int, bias []float64, factor [][]float64) error {
	ids := make([]int64, len(index))
	for id, i := range index {
		ids[i] = id
	}
	if err := encoding.WriteVector(w, ids); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteVector(w, bias); err != nil {
		return errors.Trace(err)
	}
	return encoding.WriteMatrix(w, factor)
}

func readFactors(r io.Reader, nFactors int, set func(int64, float64, []float64) error) error {
	ids, err := encoding.ReadVector[int64](r)
	if err != nil {
		return errors.Trace(err)
	}
	bias, err := encoding.ReadVector[float64](r)
	if err != nil {
		return errors.Trace(err)
	}
	if len(ids) != len(bias) {
		return errors.NotValidf("%d ids with %d biases", len(ids), len(bias))
	}
	factor := make([][]float64, len(ids))
	for i := range factor {
		factor[i] = make([]float64, nFactors)
	}
	if err = encoding.ReadMatrix(r, factor); err != nil {
		return errors.Trace(err)
	}
	for i, id := range ids {
		if err = set(id, bias[i], factor[i]); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

type jsonFactor struct {
	Bias    float64   `json:"bias"`
	Factors []float64 `json:"factors"`
}

type jsonModel struct {
	GlobalMean float64              `json:"global_mean"`
	MinRating  float64              `json:"min_rating"`
	MaxRating  float64              `json:"max_rating"`
	Users      map[int64]jsonFactor `json:"users"`
	Items      map[int64]jsonFactor `json:"items"`
}

// UnmarshalJSON reads a model exported as JSON. The rating range defaults to
// [1, 5] if absent.
func (mf *MatrixFactorization) UnmarshalJSON(data []byte) error {
	var m jsonModel
	if err := json.Unmarshal(data, &m); err != nil {
		return errors.Trace(err)
	}
	nFactors := 0
	if len(m.Users) > 0 {
		nFactors = len(lo.Values(m.Users)[0].Factors)
	} else if len(m.Items) > 0 {
		nFactors = len(lo.Values(m.Items)[0].Factors)
	}
	maxRating := lo.Ternary(m.MaxRating == 0 && m.MinRating == 0, 5.0, m.MaxRating)
	minRating := lo.Ternary(m.MaxRating == 0 && m.MinRating == 0, 1.0, m.MinRating)
	*mf = *NewMatrixFactorization(nFactors, m.GlobalMean, minRating, maxRating)
	// insert in id order so the in-memory layout does not depend on map iteration
	for _, id := range sortedKeys(m.Users) {
		if err := mf.SetUser(id, m.Users[id].Bias, m.Users[id].Factors); err != nil {
			return errors.Trace(err)
		}
	}
	for _, id := range sortedKeys(m.Items) {
		if err := mf.SetItem(id, m.Items[id].Bias, m.Items[id].Factors); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func sortedKeys(m map[int64]jsonFactor) []int64 {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}

// Load a model from a binary dump or, if the file ends with .json, a JSON export.
func Load(path string) (*MatrixFactorization, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	mf := new(MatrixFactorization)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, mf)
	} else {
		err = mf.Unmarshal(bytes.NewReader(data))
	}
	if err != nil {
		return nil, errors.Annotatef(err, "failed to load model %s", path)
	}
	return mf, nil
}

// Save a model as a binary dump.
func Save(path string, mf *MatrixFactorization) error {
	buf := bytes.NewBuffer(nil)
	if err := mf.Marshal(buf); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(os.WriteFile(path, buf.Bytes(), 0644))
}
