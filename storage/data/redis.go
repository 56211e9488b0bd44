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
	"encoding/json"
	"strconv"

	"github.com/bookrec/bookrec/storage"
	"github.com/juju/errors"
	"github.com/redis/go-redis/v9"
)

const (
	keyItems        = "items"        // hash of product id to item
	keyItemIndex    = "items/index"  // sorted set of product ids scored by first insertion
	keyItemSeq      = "items/seq"    // counter of item insertions
	keyInteractions = "interactions" // list of interactions
)

// Redis stores the catalog in a hash and the interaction log in a list.
type Redis struct {
	storage.TablePrefix
	client *redis.Client
}

// Init does nothing.
func (r *Redis) Init() error {
	return nil
}

func (r *Redis) Ping() error {
	return errors.Trace(r.client.Ping(context.Background()).Err())
}

// Close Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) Purge() error {
	return errors.Trace(r.client.Del(context.Background(),
		r.Key(keyItems), r.Key(keyItemIndex), r.Key(keyItemSeq), r.Key(keyInteractions)).Err())
}

// BatchInsertItems writes items. Overwritten items keep their position in the index.
func (r *Redis) BatchInsertItems(ctx context.Context, items []Item) error {
	items = DedupItems(items)
	if len(items) == 0 {
		return nil
	}
	last, err := r.client.IncrBy(ctx, r.Key(keyItemSeq), int64(len(items))).Result()
	if err != nil {
		return errors.Trace(err)
	}
	first := last - int64(len(items)) + 1
	values := make([]any, 0, len(items)*2)
	members := make([]redis.Z, 0, len(items))
	for i, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return errors.Trace(err)
		}
		id := strconv.FormatInt(item.ProductId, 10)
		values = append(values, id, data)
		members = append(members, redis.Z{Score: float64(first + int64(i)), Member: id})
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.Key(keyItems), values...)
		pipe.ZAddNX(ctx, r.Key(keyItemIndex), members...)
		return nil
	})
	return errors.Trace(err)
}

func (r *Redis) BatchInsertInteractions(ctx context.Context, interactions []Interaction) error {
	if len(interactions) == 0 {
		return nil
	}
	values := make([]any, len(interactions))
	for i, interaction := range interactions {
		data, err := json.Marshal(interaction)
		if err != nil {
			return errors.Trace(err)
		}
		values[i] = data
	}
	return errors.Trace(r.client.RPush(ctx, r.Key(keyInteractions), values...).Err())
}

// GetItems returns items in order of first insertion.
func (r *Redis) GetItems(ctx context.Context) ([]Item, error) {
	ids, err := r.client.ZRange(ctx, r.Key(keyItemIndex), 0, -1).Result()
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	values, err := r.client.HMGet(ctx, r.Key(keyItems), ids...).Result()
	if err != nil {
		return nil, errors.Trace(err)
	}
	items := make([]Item, 0, len(values))
	for i, value := range values {
		s, ok := value.(string)
		if !ok {
			return nil, errors.NotFoundf("item %s", ids[i])
		}
		var item Item
		if err = json.Unmarshal([]byte(s), &item); err != nil {
			return nil, errors.Trace(err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Redis) GetInteractions(ctx context.Context) ([]Interaction, error) {
	values, err := r.client.LRange(ctx, r.Key(keyInteractions), 0, -1).Result()
	if err != nil {
		return nil, errors.Trace(err)
	}
	interactions := make([]Interaction, len(values))
	for i, value := range values {
		if err = json.Unmarshal([]byte(value), &interactions[i]); err != nil {
			return nil, errors.Trace(err)
		}
	}
	return interactions, nil
}
