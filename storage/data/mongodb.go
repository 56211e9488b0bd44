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

	"github.com/bookrec/bookrec/storage"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// collectionSequences holds one counter document per collection.
const collectionSequences = "sequences"

// MongoDB is the data storage based on MongoDB.
type MongoDB struct {
	storage.TablePrefix
	client *mongo.Client
	dbName string
}

// Init collections and indices in MongoDB.
func (db *MongoDB) Init() error {
	ctx := context.Background()
	d := db.client.Database(db.dbName)
	collections, err := d.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return errors.Trace(err)
	}
	for _, name := range []string{db.ItemsTable(), db.InteractionsTable()} {
		if !lo.Contains(collections, name) {
			if err = d.CreateCollection(ctx, name); err != nil {
				return errors.Trace(err)
			}
		}
	}
	_, err = d.Collection(db.InteractionsTable()).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.M{"user_id": 1},
	})
	return errors.Trace(err)
}

func (db *MongoDB) Ping() error {
	return errors.Trace(db.client.Ping(context.Background(), nil))
}

func (db *MongoDB) Close() error {
	return db.client.Disconnect(context.Background())
}

func (db *MongoDB) Purge() error {
	ctx := context.Background()
	d := db.client.Database(db.dbName)
	for _, name := range []string{db.ItemsTable(), db.InteractionsTable(), db.Key(collectionSequences)} {
		if _, err := d.Collection(name).DeleteMany(ctx, bson.M{}); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// BatchInsertItems upserts items keyed by product id. New items get positions
// after the existing ones from a counter in the sequences collection.
func (db *MongoDB) BatchInsertItems(ctx context.Context, items []Item) error {
	items = DedupItems(items)
	if len(items) == 0 {
		return nil
	}
	d := db.client.Database(db.dbName)
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := d.Collection(db.Key(collectionSequences)).FindOneAndUpdate(ctx,
		bson.M{"_id": db.ItemsTable()},
		bson.M{"$inc": bson.M{"seq": int64(len(items))}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return errors.Trace(err)
	}
	first := counter.Seq - int64(len(items)) + 1
	var models []mongo.WriteModel
	for i, item := range items {
		models = append(models, mongo.NewUpdateOneModel().
			SetUpsert(true).
			SetFilter(bson.M{"_id": item.ProductId}).
			SetUpdate(bson.M{
				"$set": bson.M{
					"title":      item.Title,
					"authors":    item.Authors,
					"category":   item.Category,
					"tags":       item.Tags,
					"avg_rating": item.AvgRating,
					"n_review":   item.NumReviews,
					"cover_link": item.CoverLink,
				},
				"$setOnInsert": bson.M{"seq": first + int64(i)},
			}))
	}
	_, err = d.Collection(db.ItemsTable()).BulkWrite(ctx, models)
	return errors.Trace(err)
}

func (db *MongoDB) BatchInsertInteractions(ctx context.Context, interactions []Interaction) error {
	if len(interactions) == 0 {
		return nil
	}
	c := db.client.Database(db.dbName).Collection(db.InteractionsTable())
	docs := lo.Map(interactions, func(interaction Interaction, _ int) any {
		return interaction
	})
	_, err := c.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	return errors.Trace(err)
}

// GetItems returns items in order of first insertion.
func (db *MongoDB) GetItems(ctx context.Context) ([]Item, error) {
	c := db.client.Database(db.dbName).Collection(db.ItemsTable())
	r, err := c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errors.Trace(err)
	}
	var items []Item
	if err = r.All(ctx, &items); err != nil {
		return nil, errors.Trace(err)
	}
	return items, nil
}

// GetInteractions returns interactions ordered by object id, which follows insertion order.
func (db *MongoDB) GetInteractions(ctx context.Context) ([]Interaction, error) {
	c := db.client.Database(db.dbName).Collection(db.InteractionsTable())
	r, err := c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errors.Trace(err)
	}
	var interactions []Interaction
	if err = r.All(ctx, &interactions); err != nil {
		return nil, errors.Trace(err)
	}
	return interactions, nil
}
