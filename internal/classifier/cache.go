// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package classifier

import (
	"time"

	"flowplane/internal/flow"
	"flowplane/pkg/sketch"
)

// cacheEntry is one slot of the prediction cache (§4.5 data model): the
// classifier score and suggested path memoized for a flow key, along with
// the confidence the record carried at write time.
type cacheEntry struct {
	key       flow.Key
	score     float64
	path      flow.Path
	confByte  byte
	timestamp time.Time
	occupied  bool
}

// PredictionCache is the direct-mapped memoization layer in front of the
// classifier (§4.5): config.PredictionCacheSlots slots indexed by
// hash(key) & (slots-1), each valid for config.PredictionCacheTTL. It is the
// same direct-mapped-with-eviction shape as flowtable's fast cache, reused
// here for the same reason: a single slot per key, overwritten on conflict,
// no chaining.
type PredictionCache struct {
	slots []cacheEntry
	mask  uint32
	ttl   time.Duration

	hits   uint64
	misses uint64
}

// NewPredictionCache allocates a PredictionCache with the given slot count
// (must be a power of two — config.Engine.Validate guarantees this) and
// freshness window.
func NewPredictionCache(slots int, ttl time.Duration) *PredictionCache {
	return &PredictionCache{
		slots: make([]cacheEntry, slots),
		mask:  uint32(slots - 1),
		ttl:   ttl,
	}
}

func (c *PredictionCache) slotOf(key flow.Key) uint32 {
	return sketch.Mix32(uint32(key)) & c.mask
}

// Get returns the cached entry for key if present and still fresh as of now.
func (c *PredictionCache) Get(key flow.Key, now time.Time) (score float64, path flow.Path, confByte byte, ok bool) {
	e := &c.slots[c.slotOf(key)]
	if !e.occupied || e.key != key || now.Sub(e.timestamp) >= c.ttl {
		c.misses++
		return 0, 0, 0, false
	}
	c.hits++
	return e.score, e.path, e.confByte, true
}

// Put memoizes a score/path/confidence for key at time now, evicting
// whatever previously occupied the slot.
func (c *PredictionCache) Put(key flow.Key, score float64, path flow.Path, confByte byte, now time.Time) {
	e := &c.slots[c.slotOf(key)]
	e.key = key
	e.score = score
	e.path = path
	e.confByte = confByte
	e.timestamp = now
	e.occupied = true
}

// HitRate returns the cumulative cache hit rate.
func (c *PredictionCache) HitRate() float64 {
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total)
}

// Stats returns the raw cumulative hit/miss counts.
func (c *PredictionCache) Stats() (hits, misses uint64) {
	return c.hits, c.misses
}
