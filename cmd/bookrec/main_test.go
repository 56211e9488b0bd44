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

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bookrec/bookrec/storage"
	"github.com/bookrec/bookrec/storage/data"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportData(t *testing.T) {
	dir := t.TempDir()
	booksPath := filepath.Join(dir, "books.csv")
	commentsPath := filepath.Join(dir, "comments.csv")
	require.NoError(t, os.WriteFile(booksPath, []byte("product_id,title,authors,tags,avg_rating,n_review\n"+
		"2,B,Y,novel,4.5,3\n"+
		"1,A,X,poem,,\n"+
		"3,C,Z,novel,3,1\n"), 0644))
	require.NoError(t, os.WriteFile(commentsPath, []byte("customer_id,product_id,rating\n"+
		"10,2,5\n"+
		"11,1,3\n"+
		"10,3,4\n"), 0644))

	target, err := data.Open(storage.SQLitePrefix+filepath.Join(dir, "bookrec.db"), "")
	require.NoError(t, err)
	defer target.Close()
	require.NoError(t, target.Init())
	require.NoError(t, importData(context.Background(), data.NewCSV(booksPath, commentsPath), target, 2, false))

	items, err := target.GetItems(context.Background())
	require.NoError(t, err)
	// file order survives the import
	assert.Equal(t, []int64{2, 1, 3}, lo.Map(items, func(item data.Item, _ int) int64 { return item.ProductId }))
	assert.Nil(t, items[1].AvgRating)
	assert.Equal(t, 4.5, *items[0].AvgRating)
	assert.Equal(t, "novel", items[0].Tags)
	interactions, err := target.GetInteractions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []data.Interaction{
		{UserId: 10, ProductId: 2, Rating: 5},
		{UserId: 11, ProductId: 1, Rating: 3},
		{UserId: 10, ProductId: 3, Rating: 4},
	}, interactions)

	// missing source
	err = importData(context.Background(), data.NewCSV(filepath.Join(dir, "missing.csv"), commentsPath), target, 2, false)
	assert.Error(t, err)
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	rows := [][]string{
		itemRow(data.Item{ProductId: 1, Title: "Sapiens", Authors: "Harari", AvgRating: lo.ToPtr(4.8), NumReviews: lo.ToPtr[int64](12)}),
		itemRow(data.Item{ProductId: 2, Title: "Unknown"}),
	}
	renderTable(&buf, []string{"Product ID", "Title", "Authors", "Avg Rating", "Reviews"}, rows)
	assert.Contains(t, buf.String(), "Sapiens")
	assert.Contains(t, buf.String(), "4.8000")
	assert.Contains(t, buf.String(), "12")
	assert.Equal(t, []string{"2", "Unknown", "", "-", "-"}, rows[1])
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "9.5916", formatFloat(9.59158))
	assert.Equal(t, "0.0000", formatFloat(0))
}
