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
	"os"
	"path/filepath"
	"testing"

	"github.com/bookrec/bookrec/storage"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func writeFile(t *testing.T, dir, name, content string) {
	err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644)
	assert.NoError(t, err)
}

func TestCSV(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, dir, BooksFile, "\ufeffproduct_id,title,authors,category,tags,avg_rating,n_review,cover_link\n"+
		"3,Nhà Giả Kim,Paulo Coelho,Tiểu thuyết,tiểu thuyết triết lý,4.5,120,https://salt.tikicdn.com/3.jpg\n"+
		"1,Đắc Nhân Tâm,Dale Carnegie,Kỹ năng,,unknown,17.0,\n"+
		"abc,Broken,Nobody,,,4,1,\n"+
		"3,Duplicate,Nobody,,,1,1,\n"+
		"2,\"Sapiens, Lược Sử Loài Người\",Yuval Noah Harari,Lịch sử,lịch sử nhân loại,4.8,nan,\n")
	writeFile(t, dir, CommentsFile, "customer_id,product_id,rating,content\n"+
		"10,3,5,hay\n"+
		"11,1,4,\n"+
		"x,1,4,\n"+
		"10,2,oops,\n"+
		"12,2,3.5,\n")
	database, err := Open(storage.CSVPrefix+dir, "")
	assert.NoError(t, err)
	assert.NoError(t, database.Init())
	defer database.Close()

	items, err := database.GetItems(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 2}, lo.Map(items, func(item Item, _ int) int64 { return item.ProductId }))
	assert.Equal(t, "Nhà Giả Kim", items[0].Title)
	assert.Equal(t, 4.5, *items[0].AvgRating)
	assert.Equal(t, int64(120), *items[0].NumReviews)
	assert.Nil(t, items[1].AvgRating)
	assert.Equal(t, int64(17), *items[1].NumReviews)
	assert.Equal(t, "", items[1].Tags)
	assert.Equal(t, "Sapiens, Lược Sử Loài Người", items[2].Title)
	assert.Nil(t, items[2].NumReviews)

	interactions, err := database.GetInteractions(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []Interaction{
		{UserId: 10, ProductId: 3, Rating: 5},
		{UserId: 11, ProductId: 1, Rating: 4},
		{UserId: 12, ProductId: 2, Rating: 3.5},
	}, interactions)

	// read only
	assert.True(t, errors.Is(database.BatchInsertItems(ctx, items), errors.NotSupported))
	assert.True(t, errors.Is(database.BatchInsertInteractions(ctx, interactions), errors.NotSupported))
	assert.True(t, errors.Is(database.Purge(), errors.NotSupported))
}

func TestCSVUserIdColumn(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, CommentsFile, "user_id,product_id,rating\n7,1,2\n")
	database, err := Open(storage.CSVPrefix+dir, "")
	assert.NoError(t, err)
	interactions, err := database.GetInteractions(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []Interaction{{UserId: 7, ProductId: 1, Rating: 2}}, interactions)
}

func TestCSVMissingField(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, dir, BooksFile, "product_id,title,avg_rating,n_review\n1,a,4,1\n")
	writeFile(t, dir, CommentsFile, "product_id,rating\n1,2\n")
	database, err := Open(storage.CSVPrefix+dir, "")
	assert.NoError(t, err)
	_, err = database.GetItems(ctx)
	assert.ErrorIs(t, err, ErrMissingField)
	assert.ErrorContains(t, err, "authors")
	_, err = database.GetInteractions(ctx)
	assert.ErrorIs(t, err, ErrMissingField)
	// empty file
	writeFile(t, dir, BooksFile, "")
	_, err = database.GetItems(ctx)
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestCSVMissingFile(t *testing.T) {
	database, err := Open(storage.CSVPrefix+t.TempDir(), "")
	assert.NoError(t, err)
	_, err = database.GetItems(context.Background())
	assert.True(t, errors.Is(err, errors.NotFound))
	// missing directory
	database, err = Open(storage.CSVPrefix+filepath.Join(t.TempDir(), "nowhere"), "")
	assert.NoError(t, err)
	assert.Error(t, database.Init())
}

func TestNewCSV(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "items.csv", "product_id,title,authors,avg_rating,n_review\n1,A,B,4,1\n")
	writeFile(t, dir, "ratings.csv", "customer_id,product_id,rating\n2,1,5\n")
	database := NewCSV(filepath.Join(dir, "items.csv"), filepath.Join(dir, "ratings.csv"))
	assert.NoError(t, database.Init())
	items, err := database.GetItems(context.Background())
	assert.NoError(t, err)
	assert.Len(t, items, 1)
	interactions, err := database.GetInteractions(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []Interaction{{UserId: 2, ProductId: 1, Rating: 5}}, interactions)
}

func TestParseCount(t *testing.T) {
	assert.Equal(t, int64(3), *parseCount("3"))
	assert.Equal(t, int64(3), *parseCount("3.0"))
	assert.Equal(t, int64(0), *parseCount("0"))
	assert.Nil(t, parseCount("3.5"))
	assert.Nil(t, parseCount("NaN"))
	assert.Nil(t, parseCount(""))
	assert.Nil(t, parseCount("many"))
}
