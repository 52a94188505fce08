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

// Package flow defines the data model shared by every component of the
// engine: the flow key, the per-flow record, and the small value types
// (flow type, path, aging strategy) that travel alongside it. Keeping this
// in its own package lets the table, pattern tracker, classifier, aging
// manager, and path selector all operate on the same record without an
// import cycle.
package flow

import "time"

// Key identifies a flow. The simulation's sole identifying attribute is a
// 32-bit unsigned integer; nothing in the engine depends on it being
// anything more specific than an opaque, hashable value.
type Key uint32

// Type is the flow-type lifecycle state (§3, §4.7).
type Type int

const (
	Normal Type = iota
	Large
	Bursty
	Micro
	Dying
	Promoted
	Suspected
)

func (t Type) String() string {
	switch t {
	case Normal:
		return "Normal"
	case Large:
		return "Large"
	case Bursty:
		return "Bursty"
	case Micro:
		return "Micro"
	case Dying:
		return "Dying"
	case Promoted:
		return "Promoted"
	case Suspected:
		return "Suspected"
	default:
		return "Unknown"
	}
}

// Path is a processing path of increasing relative cost (§4.8).
// Order matters: the statistics report and the path-selection bucket rules
// both depend on this exact ordering.
type Path int

const (
	UltraFast Path = iota
	Fast
	Accelerated
	Slow
	DeepAnalysis
	numPaths
)

// NumPaths is the number of distinct processing paths.
const NumPaths = int(numPaths)

func (p Path) String() string {
	switch p {
	case UltraFast:
		return "UltraFast"
	case Fast:
		return "Fast"
	case Accelerated:
		return "Accelerated"
	case Slow:
		return "Slow"
	case DeepAnalysis:
		return "DeepAnalysis"
	default:
		return "Unknown"
	}
}

// AgingStrategy is the per-flow decay rule a flow is assigned (§4.6, §4.10).
type AgingStrategy int

const (
	Linear AgingStrategy = iota
	Exponential
	Adaptive
	Aggressive
)

func (s AgingStrategy) String() string {
	switch s {
	case Linear:
		return "Linear"
	case Exponential:
		return "Exponential"
	case Adaptive:
		return "Adaptive"
	case Aggressive:
		return "Aggressive"
	default:
		return "Unknown"
	}
}

// Pattern is the per-flow ring buffer of recent path decisions plus its
// derived scores (§4.4).
type Pattern struct {
	history               [8]Path
	cursor                int
	filled                bool
	count                 int // number of valid entries before filled (< 8)
	PathConsistency       float64
	BurstScore            float64
	ConsecutiveFastPaths  int
}

// Aging carries the per-flow aging bookkeeping (§3, §4.10).
type Aging struct {
	CreatedAt  time.Time
	LastAccess time.Time
	Strategy   AgingStrategy
	Multiplier float64
}

// Record is one flow-table entry. Every field's invariants are documented in
// the specification §3; callers outside internal/flowtable must treat Key
// and CreatedAt-derived fields as immutable.
type Record struct {
	Key Key

	Confidence int // [0, 100]

	Hits         uint64 // total observations since creation
	PacketCount  uint64 // synonym of Hits in this simulation

	FirstSeen time.Time
	LastSeen  time.Time

	FlowType     Type
	PreviousType Type

	Pattern Pattern
	Aging   Aging

	CacheHits uint64

	PromotionScore int // [0, 1000]

	// live set when not zero-valued; used by the table to distinguish an
	// occupied slot from an unused one at the tail of the pool.
	live bool
}

// Live reports whether this slot currently holds an admitted flow.
func (r *Record) Live() bool { return r.live }

// MarkLive is used only by the owning table on admission.
func (r *Record) MarkLive() { r.live = true }

// IdleSeconds returns the number of seconds since the record was last
// observed, relative to now.
func (r *Record) IdleSeconds(now time.Time) float64 {
	return now.Sub(r.Aging.LastAccess).Seconds()
}

// AgeSeconds returns the number of seconds since the record was created.
func (r *Record) AgeSeconds(now time.Time) float64 {
	return now.Sub(r.Aging.CreatedAt).Seconds()
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// AddConfidence adjusts confidence by delta, clamped to [0, 100].
func (r *Record) AddConfidence(delta int) {
	r.Confidence = clampInt(r.Confidence+delta, 0, 100)
}

// SetConfidence assigns confidence, clamped to [0, 100].
func (r *Record) SetConfidence(v int) {
	r.Confidence = clampInt(v, 0, 100)
}

// AddPromotionScore adjusts the promotion score by delta, clamped to
// [0, 1000].
func (r *Record) AddPromotionScore(delta int) {
	r.PromotionScore = clampInt(r.PromotionScore+delta, 0, 1000)
}

// ScaleConfidence multiplies confidence by factor, clamped to [0, 100] and
// rounded toward zero, mirroring the exponential/adaptive aging rules which
// operate on confidence as a float internally but store it as an integer.
func (r *Record) ScaleConfidence(factor float64) {
	v := float64(r.Confidence) * factor
	if v < 0 {
		v = 0
	}
	r.Confidence = clampInt(int(v), 0, 100)
}

// TransitionTo moves the flow to a new type, preserving the prior type in
// PreviousType (used by demotion rollback in §4.7).
func (r *Record) TransitionTo(t Type) {
	if t == r.FlowType {
		return
	}
	r.PreviousType = r.FlowType
	r.FlowType = t
}
