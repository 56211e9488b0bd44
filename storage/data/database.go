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
	"database/sql"
	"path/filepath"
	"strings"

	"github.com/bookrec/bookrec/storage"
	"github.com/juju/errors"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

var (
	ErrNoDatabase = errors.NotAssignedf("database")
	ErrReadOnly   = errors.NotSupportedf("writing to a read-only data store")
)

// ErrMissingField is the kind of errors raised when a catalog lacks a required column.
const ErrMissingField = errors.ConstError("missing field")

// Item stores the metadata of a book. AvgRating and NumReviews are nil when the
// source value is missing or not numeric.
type Item struct {
	ProductId  int64    `gorm:"column:product_id;primaryKey;autoIncrement:false" json:"product_id" bson:"_id"`
	Title      string   `gorm:"column:title" json:"title" bson:"title"`
	Authors    string   `gorm:"column:authors" json:"authors" bson:"authors"`
	Category   string   `gorm:"column:category" json:"category" bson:"category"`
	Tags       string   `gorm:"column:tags" json:"tags" bson:"tags"`
	AvgRating  *float64 `gorm:"column:avg_rating" json:"avg_rating" bson:"avg_rating"`
	NumReviews *int64   `gorm:"column:n_review" json:"n_review" bson:"n_review"`
	CoverLink  string   `gorm:"column:cover_link" json:"cover_link" bson:"cover_link"`
}

// itemColumns are the columns of Item other than the product id.
var itemColumns = []string{"title", "authors", "category", "tags", "avg_rating", "n_review", "cover_link"}

// Interaction is a rating given by a user to an item.
type Interaction struct {
	UserId    int64   `gorm:"column:user_id;index" json:"user_id" bson:"user_id"`
	ProductId int64   `gorm:"column:product_id" json:"product_id" bson:"product_id"`
	Rating    float64 `gorm:"column:rating" json:"rating" bson:"rating"`
}

// Database is the source of the catalog and the interaction log.
type Database interface {
	Init() error
	Ping() error
	Close() error
	Purge() error
	BatchInsertItems(ctx context.Context, items []Item) error
	BatchInsertInteractions(ctx context.Context, interactions []Interaction) error
	// GetItems returns the whole catalog in catalog order: file order for CSV and
	// order of first insertion for writable stores.
	GetItems(ctx context.Context) ([]Item, error)
	// GetInteractions returns the whole interaction log in insertion order.
	GetInteractions(ctx context.Context) ([]Interaction, error)
}

// DedupItems keeps the first occurrence of every product id.
func DedupItems(items []Item) []Item {
	return lo.UniqBy(items, func(item Item) int64 {
		return item.ProductId
	})
}

// Open a connection to a database.
func Open(path, tablePrefix string) (Database, error) {
	var err error
	if strings.HasPrefix(path, storage.MySQLPrefix) {
		name := path[len(storage.MySQLPrefix):]
		if name, err = storage.AppendMySQLParams(name, map[string]string{
			"sql_mode":  "'ONLY_FULL_GROUP_BY,STRICT_TRANS_TABLES,ERROR_FOR_DIVISION_BY_ZERO,NO_ENGINE_SUBSTITUTION'",
			"parseTime": "true",
		}); err != nil {
			return nil, errors.Trace(err)
		}
		database := new(SQLDatabase)
		database.driver = MySQL
		database.TablePrefix = storage.TablePrefix(tablePrefix)
		if database.client, err = sql.Open("mysql", name); err != nil {
			return nil, errors.Trace(err)
		}
		database.gormDB, err = gorm.Open(mysql.New(mysql.Config{Conn: database.client}), storage.NewGORMConfig(tablePrefix))
		if err != nil {
			return nil, errors.Trace(err)
		}
		return database, nil
	} else if strings.HasPrefix(path, storage.PostgresPrefix) || strings.HasPrefix(path, storage.PostgreSQLPrefix) {
		database := new(SQLDatabase)
		database.driver = Postgres
		database.TablePrefix = storage.TablePrefix(tablePrefix)
		if database.client, err = sql.Open("postgres", path); err != nil {
			return nil, errors.Trace(err)
		}
		database.gormDB, err = gorm.Open(postgres.New(postgres.Config{Conn: database.client}), storage.NewGORMConfig(tablePrefix))
		if err != nil {
			return nil, errors.Trace(err)
		}
		return database, nil
	} else if strings.HasPrefix(path, storage.SQLitePrefix) {
		if path, err = storage.AppendURLParams(path, []lo.Tuple2[string, string]{
			{A: "_pragma", B: "busy_timeout(10000)"},
			{A: "_pragma", B: "journal_mode(wal)"},
		}); err != nil {
			return nil, errors.Trace(err)
		}
		name := path[len(storage.SQLitePrefix):]
		database := new(SQLDatabase)
		database.driver = SQLite
		database.TablePrefix = storage.TablePrefix(tablePrefix)
		if database.client, err = sql.Open("sqlite", name); err != nil {
			return nil, errors.Trace(err)
		}
		database.gormDB, err = gorm.Open(sqlite.Dialector{Conn: database.client}, storage.NewGORMConfig(tablePrefix))
		if err != nil {
			return nil, errors.Trace(err)
		}
		return database, nil
	} else if strings.HasPrefix(path, storage.MongoPrefix) || strings.HasPrefix(path, storage.MongoSrvPrefix) {
		database := new(MongoDB)
		opts := options.Client()
		opts.ApplyURI(path)
		if database.client, err = mongo.Connect(context.Background(), opts); err != nil {
			return nil, errors.Trace(err)
		}
		// parse DSN and extract database name
		cs, err := connstring.ParseAndValidate(path)
		if err != nil {
			return nil, errors.Trace(err)
		}
		database.dbName = cs.Database
		database.TablePrefix = storage.TablePrefix(tablePrefix)
		return database, nil
	} else if strings.HasPrefix(path, storage.RedisPrefix) || strings.HasPrefix(path, storage.RedissPrefix) {
		opt, err := redis.ParseURL(path)
		if err != nil {
			return nil, errors.Trace(err)
		}
		database := new(Redis)
		database.client = redis.NewClient(opt)
		database.TablePrefix = storage.TablePrefix(tablePrefix)
		return database, nil
	} else if strings.HasPrefix(path, storage.CSVPrefix) {
		dir := path[len(storage.CSVPrefix):]
		return NewCSV(filepath.Join(dir, BooksFile), filepath.Join(dir, CommentsFile)), nil
	}
	return nil, errors.Errorf("Unknown database: %s", path)
}
