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

package data

import (
	"context"

	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type baseTestSuite struct {
	suite.Suite
	Database
}

func (suite *baseTestSuite) SetupTest() {
	err := suite.Database.Init()
	suite.NoError(err)
	err = suite.Database.Purge()
	suite.NoError(err)
}

func (suite *baseTestSuite) TestItems() {
	ctx := context.Background()
	// insert out of order with a duplicate
	err := suite.Database.BatchInsertItems(ctx, []Item{
		{ProductId: 3, Title: "Nhà Giả Kim", Authors: "Paulo Coelho", Tags: "tiểu thuyết triết lý", AvgRating: lo.ToPtr(4.5), NumReviews: lo.ToPtr[int64](120), CoverLink: "https://salt.tikicdn.com/3.jpg"},
		{ProductId: 1, Title: "Đắc Nhân Tâm", Authors: "Dale Carnegie", Category: "Kỹ năng sống", Tags: "kỹ năng giao tiếp"},
		{ProductId: 3, Title: "duplicate"},
	})
	suite.NoError(err)
	err = suite.Database.BatchInsertItems(ctx, []Item{
		{ProductId: 2, Title: "Tuổi Trẻ Đáng Giá Bao Nhiêu", AvgRating: lo.ToPtr(4.0), NumReviews: lo.ToPtr[int64](0)},
	})
	suite.NoError(err)
	items, err := suite.Database.GetItems(ctx)
	suite.NoError(err)
	suite.Equal([]int64{3, 1, 2}, lo.Map(items, func(item Item, _ int) int64 { return item.ProductId }))
	suite.Equal("Nhà Giả Kim", items[0].Title)
	suite.Equal("tiểu thuyết triết lý", items[0].Tags)
	suite.Equal(4.5, *items[0].AvgRating)
	suite.Equal(int64(120), *items[0].NumReviews)
	suite.Nil(items[1].AvgRating)
	suite.Nil(items[1].NumReviews)
	suite.Equal("Kỹ năng sống", items[1].Category)
	suite.Equal(int64(0), *items[2].NumReviews)
	// overwrite keeps the position
	err = suite.Database.BatchInsertItems(ctx, []Item{{ProductId: 1, Title: "How to Win Friends"}, {ProductId: 4, Title: "new"}})
	suite.NoError(err)
	items, err = suite.Database.GetItems(ctx)
	suite.NoError(err)
	suite.Equal([]int64{3, 1, 2, 4}, lo.Map(items, func(item Item, _ int) int64 { return item.ProductId }))
	suite.Equal("How to Win Friends", items[1].Title)
	suite.Empty(items[1].Category)
	// empty batch
	suite.NoError(suite.Database.BatchInsertItems(ctx, nil))
}

func (suite *baseTestSuite) TestInteractions() {
	ctx := context.Background()
	err := suite.Database.BatchInsertInteractions(ctx, []Interaction{
		{UserId: 10, ProductId: 3, Rating: 5},
		{UserId: 11, ProductId: 1, Rating: 4},
	})
	suite.NoError(err)
	err = suite.Database.BatchInsertInteractions(ctx, []Interaction{
		{UserId: 10, ProductId: 2, Rating: 3.5},
	})
	suite.NoError(err)
	interactions, err := suite.Database.GetInteractions(ctx)
	suite.NoError(err)
	suite.Equal([]Interaction{
		{UserId: 10, ProductId: 3, Rating: 5},
		{UserId: 11, ProductId: 1, Rating: 4},
		{UserId: 10, ProductId: 2, Rating: 3.5},
	}, interactions)
	suite.NoError(suite.Database.BatchInsertInteractions(ctx, nil))
}

func (suite *baseTestSuite) TestPurge() {
	ctx := context.Background()
	err := suite.Database.BatchInsertItems(ctx, []Item{{ProductId: 1, Title: "a"}})
	suite.NoError(err)
	err = suite.Database.BatchInsertInteractions(ctx, []Interaction{{UserId: 1, ProductId: 1, Rating: 1}})
	suite.NoError(err)
	suite.NoError(suite.Database.Purge())
	items, err := suite.Database.GetItems(ctx)
	suite.NoError(err)
	suite.Empty(items)
	interactions, err := suite.Database.GetInteractions(ctx)
	suite.NoError(err)
	suite.Empty(interactions)
}
