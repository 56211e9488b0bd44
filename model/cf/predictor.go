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

// Predictor estimates the rating a user would give an item. Implementations must
// be safe for concurrent use and free of side effects.
type Predictor interface {
	Predict(userId, itemId int64) float64
}

// PredictorFunc adapts a plain function to Predictor.
type PredictorFunc func(userId, itemId int64) float64

func (f PredictorFunc) Predict(userId, itemId int64) float64 {
	return f(userId, itemId)
}
