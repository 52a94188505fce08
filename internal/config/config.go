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

// Package config holds the sized constants the engine is built around.
// Every magic number named in the design is a field here with the
// documented default, so behavior is reproducible out of the box but every
// dimension remains tunable.
package config

import "time"

// Engine configures every sized structure the packet pipeline owns.
type Engine struct {
	// Flow pool capacity, split by reservation area. Their sum is the total
	// number of FlowRecord slots the bump allocator can ever hand out.
	LargeFlowAreaSize int
	BurstyFlowAreaSize int
	MicroFlowAreaSize  int

	// HashBuckets is the number of chained hash-index buckets; must be a
	// power of two (lookup uses a bitmask, not a modulo).
	HashBuckets int

	// FastCacheSlots is the number of direct-mapped fast-cache slots; must
	// be a power of two.
	FastCacheSlots int

	// Sketch dimensions: Rows independent counter rows, each Width wide.
	SketchRows  int
	SketchWidth int

	// PredictionCacheSlots is the number of direct-mapped prediction-cache
	// slots; must be a power of two.
	PredictionCacheSlots int
	// PredictionCacheTTL is the freshness window for a cached prediction.
	PredictionCacheTTL time.Duration

	// ValidationInterval is the number of processed packets between
	// classifier learning-rate adaptations.
	ValidationInterval uint64

	// AgingInterval is the number of processed packets between aging-cycle
	// attempts; AgingMinWallGap additionally gates a cycle to at most once
	// per that wall-clock duration.
	AgingInterval   uint64
	AgingMinWallGap time.Duration

	// LifecycleInterval is the number of processed packets between
	// lifecycle promotion/demotion sweeps.
	LifecycleInterval uint64
	// LifecycleSweepLimit bounds how many of the earliest pool slots a
	// lifecycle sweep inspects. The distilled spec hardcodes this at 1000;
	// this field resolves the spec's Open Question by making the bound a
	// configurable maximum instead of a literal.
	LifecycleSweepLimit int

	// BurstRingSize is the number of trailing per-second arrival counts the
	// burst detector keeps for its running mean.
	BurstRingSize int
}

// Default returns the Engine configuration matching every constant named in
// the specification.
func Default() Engine {
	return Engine{
		LargeFlowAreaSize:    50000,
		BurstyFlowAreaSize:   500,
		MicroFlowAreaSize:    1000,
		HashBuckets:          65536,
		FastCacheSlots:       8192,
		SketchRows:           3,
		SketchWidth:          4096,
		PredictionCacheSlots: 1024,
		PredictionCacheTTL:   30 * time.Second,
		ValidationInterval:   50000,
		AgingInterval:        25000,
		AgingMinWallGap:      30 * time.Second,
		LifecycleInterval:    100000,
		LifecycleSweepLimit:  1000,
		BurstRingSize:        100,
	}
}

// PoolSize is the total number of flow-pool slots.
func (e Engine) PoolSize() int {
	return e.LargeFlowAreaSize + e.BurstyFlowAreaSize + e.MicroFlowAreaSize
}

// Validate repairs out-of-range fields instead of rejecting the
// configuration outright, following this codebase's construct-then-clamp
// idiom for tunables: negative pool areas and sweep limit become 0, a
// non-positive SketchRows becomes 1, and zero or negative intervals, TTL,
// wall gap and ring size are reset to their defaults. Power-of-two fields
// are rounded up.
func (e *Engine) Validate() {
	if e.LargeFlowAreaSize < 0 {
		e.LargeFlowAreaSize = 0
	}
	if e.BurstyFlowAreaSize < 0 {
		e.BurstyFlowAreaSize = 0
	}
	if e.MicroFlowAreaSize < 0 {
		e.MicroFlowAreaSize = 0
	}
	e.HashBuckets = nextPow2(max(1, e.HashBuckets))
	e.FastCacheSlots = nextPow2(max(1, e.FastCacheSlots))
	if e.SketchRows <= 0 {
		e.SketchRows = 1
	}
	e.SketchWidth = nextPow2(max(1, e.SketchWidth))
	e.PredictionCacheSlots = nextPow2(max(1, e.PredictionCacheSlots))
	if e.PredictionCacheTTL <= 0 {
		e.PredictionCacheTTL = 30 * time.Second
	}
	if e.ValidationInterval == 0 {
		e.ValidationInterval = 50000
	}
	if e.AgingInterval == 0 {
		e.AgingInterval = 25000
	}
	if e.AgingMinWallGap <= 0 {
		e.AgingMinWallGap = 30 * time.Second
	}
	if e.LifecycleInterval == 0 {
		e.LifecycleInterval = 100000
	}
	if e.LifecycleSweepLimit < 0 {
		e.LifecycleSweepLimit = 0
	}
	if e.BurstRingSize <= 0 {
		e.BurstRingSize = 100
	}
}

func nextPow2(x int) int {
	if x <= 1 {
		return 1
	}
	x--
	x |= x >> 1
	x |= x >> 2
	x |= x >> 4
	x |= x >> 8
	x |= x >> 16
	x |= x >> 32
	return x + 1
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
