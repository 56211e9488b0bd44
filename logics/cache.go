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
	"context"
	"encoding/binary"
	"strconv"
	"time"

	"github.com/bookrec/bookrec/base/log"
	"github.com/bookrec/bookrec/storage/data"
	"github.com/cespare/xxhash/v2"
	"github.com/jellydator/ttlcache/v3"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const vectorSpaceCacheCapacity = 16

// Fingerprint hashes the product ids and tag text of a catalog together with the
// tokenizer setting. Equal fingerprints produce equal vector spaces.
func Fingerprint(items []data.Item, minTokenLength int) uint64 {
	digest := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(minTokenLength))
	_, _ = digest.Write(buf[:])
	for _, item := range items {
		binary.LittleEndian.PutUint64(buf[:], uint64(item.ProductId))
		_, _ = digest.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(len(item.Tags)))
		_, _ = digest.Write(buf[:])
		_, _ = digest.WriteString(item.Tags)
	}
	return digest.Sum64()
}

// VectorSpaceCache keeps vector spaces keyed by catalog fingerprint. Concurrent
// builds of the same catalog are coalesced. A nil cache builds on every call.
type VectorSpaceCache struct {
	cache *ttlcache.Cache[uint64, *VectorSpace]
	group singleflight.Group
}

// NewVectorSpaceCache creates a cache. It returns nil if ttl is not positive.
func NewVectorSpaceCache(ttl time.Duration) *VectorSpaceCache {
	if ttl <= 0 {
		return nil
	}
	c := &VectorSpaceCache{
		cache: ttlcache.New(
			ttlcache.WithTTL[uint64, *VectorSpace](ttl),
			ttlcache.WithCapacity[uint64, *VectorSpace](vectorSpaceCacheCapacity),
		),
	}
	go c.cache.Start()
	return c
}

// Get returns the vector space of a fingerprint, calling build on a miss.
func (c *VectorSpaceCache) Get(ctx context.Context, fingerprint uint64, build func(context.Context) (*VectorSpace, error)) (*VectorSpace, error) {
	if c == nil {
		return build(ctx)
	}
	if item := c.cache.Get(fingerprint); item != nil {
		VectorSpaceCacheHits.Inc()
		return item.Value(), nil
	}
	VectorSpaceCacheMisses.Inc()
	v, err, shared := c.group.Do(strconv.FormatUint(fingerprint, 16), func() (any, error) {
		start := time.Now()
		vs, err := build(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.cache.Set(fingerprint, vs, ttlcache.DefaultTTL)
		log.Logger().Debug("build vector space",
			zap.Uint64("fingerprint", fingerprint),
			zap.Int("n_documents", vs.Len()),
			zap.Int("n_terms", vs.VocabularySize()),
			zap.Duration("elapsed", time.Since(start)))
		return vs, nil
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	if shared {
		log.Logger().Debug("share vector space build", zap.Uint64("fingerprint", fingerprint))
	}
	return v.(*VectorSpace), nil
}

// Len returns the number of cached vector spaces.
func (c *VectorSpaceCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}

// Stop the expiration loop.
func (c *VectorSpaceCache) Stop() {
	if c != nil {
		c.cache.Stop()
	}
}
