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
	"github.com/bookrec/bookrec/storage/data"
	"github.com/juju/errors"
)

// Error kinds returned by the scorers. Test them with errors.Is.
const (
	ErrEmptyDataset = errors.ConstError("empty dataset")
	ErrItemNotFound = errors.ConstError("item not found")
	ErrComputation  = errors.ConstError("computation failed")
	ErrUnknownUser  = errors.ConstError("unknown user")
)

// ErrMissingField is raised by data sources whose catalog lacks a required column.
const ErrMissingField = data.ErrMissingField

func itemNotFound(productId int64) error {
	return errors.WithType(errors.NotFoundf("item %d", productId), ErrItemNotFound)
}

func unknownUser(userId int64) error {
	return errors.WithType(errors.NotFoundf("user %d", userId), ErrUnknownUser)
}

func computationFailed(err error, message string) error {
	return errors.WithType(errors.Annotate(err, message), ErrComputation)
}

func validateN(n int) error {
	if n < 0 {
		return errors.NotValidf("n = %d", n)
	}
	return nil
}
