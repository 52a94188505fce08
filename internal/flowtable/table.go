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

// Package flowtable holds the flow pool, its chained hash index, and the
// direct-mapped fast cache in front of it (§3, §4.2). The pool exclusively
// owns every flow.Record; the hash index and fast cache are non-owning
// back-references (pool slot indices) that never outlive the pool because
// the pool itself never shrinks.
//
// This mirrors the "try a fast path, only allocate on miss" shape of
// internal/ratelimiter/core.Store.GetOrCreate in the lineage this package
// descends from, but drops that type's sync.Map/atomics: the engine this
// table serves is single-threaded and cooperative (§5), so a plain slice and
// plain ints are enough.
package flowtable

import (
	"time"

	"flowplane/internal/config"
	"flowplane/internal/flow"
	"flowplane/pkg/sketch"
)

const emptySlot = -1

// Table is the flow pool + hash index + fast cache triple described in §3.
type Table struct {
	cfg config.Engine

	pool      []flow.Record
	poolIndex int

	bucketHead []int32 // len = cfg.HashBuckets; pool index or emptySlot
	next       []int32 // len = cap(pool); pool index or emptySlot
	bucketMask uint32

	fastCache []int32 // len = cfg.FastCacheSlots; pool index or emptySlot
	cacheMask uint32

	// Statistics, exposed via accessors for the stats package.
	fastCacheHits   uint64
	fastCacheMisses uint64
	hashCollisions  uint64
}

// New allocates a Table sized per cfg. cfg is expected to have already been
// through Engine.Validate.
func New(cfg config.Engine) *Table {
	poolSize := cfg.PoolSize()
	t := &Table{
		cfg:        cfg,
		pool:       make([]flow.Record, poolSize),
		bucketHead: make([]int32, cfg.HashBuckets),
		next:       make([]int32, poolSize),
		bucketMask: uint32(cfg.HashBuckets - 1),
		fastCache:  make([]int32, cfg.FastCacheSlots),
		cacheMask:  uint32(cfg.FastCacheSlots - 1),
	}
	for i := range t.bucketHead {
		t.bucketHead[i] = emptySlot
	}
	for i := range t.next {
		t.next[i] = emptySlot
	}
	for i := range t.fastCache {
		t.fastCache[i] = emptySlot
	}
	return t
}

func bucketOf(key flow.Key, mask uint32) uint32 {
	return sketch.Mix32(uint32(key)) & mask
}

func cacheSlotOf(key flow.Key, mask uint32) uint32 {
	return sketch.Mix32(uint32(key)) & mask
}

// Lookup implements §4.2's Lookup(key): a direct-mapped fast-cache probe
// first, falling back to the hash-bucket chain, populating the fast cache
// (evicting any prior occupant) on a chain hit. It returns nil on a miss.
//
// Per the idempotent-lookup law (§8), a fast-cache hit only advances the
// record's CacheHits counter — never Hits, which the pipeline updates
// separately once per packet regardless of how the record was located.
func (t *Table) Lookup(key flow.Key) *flow.Record {
	cslot := cacheSlotOf(key, t.cacheMask)
	if idx := t.fastCache[cslot]; idx != emptySlot {
		rec := &t.pool[idx]
		if rec.Live() && rec.Key == key {
			rec.CacheHits++
			t.fastCacheHits++
			return rec
		}
	}

	b := bucketOf(key, t.bucketMask)
	for idx := t.bucketHead[b]; idx != emptySlot; idx = t.next[idx] {
		rec := &t.pool[idx]
		if rec.Live() && rec.Key == key {
			t.fastCache[cslot] = idx
			t.fastCacheMisses++
			return rec
		}
	}
	t.fastCacheMisses++
	return nil
}

// link inserts pool slot idx at the head of its key's bucket chain,
// recording a collision if the bucket was already occupied.
func (t *Table) link(key flow.Key, idx int) {
	b := bucketOf(key, t.bucketMask)
	if t.bucketHead[b] != emptySlot {
		t.hashCollisions++
	}
	t.next[idx] = t.bucketHead[b]
	t.bucketHead[b] = int32(idx)
}

// alloc bump-allocates the next pool slot, or returns (0, false) if the
// pool is exhausted (§4.2, §7: resource exhaustion is silent — the caller
// is expected to fall back to the new-flow path rather than report an error).
func (t *Table) alloc() (int, bool) {
	if t.poolIndex >= len(t.pool) {
		return 0, false
	}
	idx := t.poolIndex
	t.poolIndex++
	return idx, true
}

// CreateNew bump-allocates a record and initializes it as a brand-new flow
// (§4.6). It returns nil if the pool is exhausted.
func (t *Table) CreateNew(key flow.Key, now time.Time) *flow.Record {
	idx, ok := t.alloc()
	if !ok {
		return nil
	}
	rec := &t.pool[idx]
	*rec = flow.Record{}
	rec.InitNew(key, now)
	t.link(key, idx)
	return rec
}

// CreateKnown bump-allocates a record and initializes it as a pre-populated
// known flow loaded before the packet stream (§4.6). It returns nil if the
// pool is exhausted.
func (t *Table) CreateKnown(key flow.Key, now time.Time) *flow.Record {
	idx, ok := t.alloc()
	if !ok {
		return nil
	}
	rec := &t.pool[idx]
	*rec = flow.Record{}
	rec.InitKnown(key, now)
	t.link(key, idx)
	return rec
}

// Len returns pool_index: the number of pool slots handed out so far.
func (t *Table) Len() int { return t.poolIndex }

// Cap returns pool_size: the total number of slots the pool can ever hand out.
func (t *Table) Cap() int { return len(t.pool) }

// At returns a pointer to the pool slot at i, for i in [0, Len()). Used by
// the aging and lifecycle sweeps and by statistics collection, all of which
// iterate a bounded prefix of the pool rather than walking the hash index.
func (t *Table) At(i int) *flow.Record { return &t.pool[i] }

// MemoryUtilisation is pool_index / pool_size, as consulted by the aging
// manager (§4.10).
func (t *Table) MemoryUtilisation() float64 {
	if len(t.pool) == 0 {
		return 0
	}
	return float64(t.poolIndex) / float64(len(t.pool))
}

// FastCacheStats returns the cumulative fast-cache hit/miss counts.
func (t *Table) FastCacheStats() (hits, misses uint64) {
	return t.fastCacheHits, t.fastCacheMisses
}

// HashCollisions returns the cumulative count of Create calls that linked
// into an already-occupied hash bucket.
func (t *Table) HashCollisions() uint64 { return t.hashCollisions }
