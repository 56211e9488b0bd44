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

package storage

import (
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestAppendURLParams(t *testing.T) {
	url, err := AppendURLParams("sqlite:///tmp/bookrec.db", []lo.Tuple2[string, string]{
		{A: "_pragma", B: "busy_timeout(10000)"},
		{A: "_pragma", B: "journal_mode(wal)"},
	})
	assert.NoError(t, err)
	assert.Equal(t, "sqlite:///tmp/bookrec.db?_pragma=busy_timeout%2810000%29&_pragma=journal_mode%28wal%29", url)
}

func TestAppendMySQLParams(t *testing.T) {
	dsn, err := AppendMySQLParams("root:password@tcp(localhost:3306)/bookrec?charset=utf8", map[string]string{
		"charset":  "utf8mb4",
		"sql_mode": "'STRICT_TRANS_TABLES'",
	})
	assert.NoError(t, err)
	cfg, err := mysql.ParseDSN(dsn)
	assert.NoError(t, err)
	assert.Equal(t, "utf8", cfg.Params["charset"])
	assert.Equal(t, "'STRICT_TRANS_TABLES'", cfg.Params["sql_mode"])
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("csv://data"))
	assert.True(t, IsSupported("mongodb+srv://cluster0.example.net/bookrec"))
	assert.True(t, IsSupported("rediss://localhost:6379/0"))
	assert.False(t, IsSupported("clickhouse://localhost:8123"))
	assert.False(t, IsSupported("books.csv"))
}

func TestTablePrefix(t *testing.T) {
	tp := TablePrefix("bookrec_")
	assert.Equal(t, "bookrec_items", tp.ItemsTable())
	assert.Equal(t, "bookrec_interactions", tp.InteractionsTable())
	assert.Equal(t, "bookrec_items/1", tp.Key("items/1"))
}
