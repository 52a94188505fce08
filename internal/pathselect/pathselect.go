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

// Package pathselect implements the path-selection decision tree (§4.8):
// given a flow key, its record (if any), and the classifier, choose one of
// the five processing paths and execute a cost stand-in that preserves the
// specification's strict relative-cost ordering.
package pathselect

import (
	"time"

	"flowplane/internal/classifier"
	"flowplane/internal/flow"
)

// Selector owns the prediction cache and consults the classifier to choose
// a path per packet.
type Selector struct {
	model *classifier.Model
	cache *classifier.PredictionCache
}

// New returns a Selector wired to model and cache.
func New(model *classifier.Model, cache *classifier.PredictionCache) *Selector {
	return &Selector{model: model, cache: cache}
}

// Decision is the outcome of one path-selection call: the chosen path and,
// when a classifier score actually produced it (steps 1 and 4; not the
// no-flow or first-packet rules), that score.
type Decision struct {
	Path     flow.Path
	Score    float64
	HasScore bool
}

// resolveAdaptive implements the Adaptive branch's internal re-consultation
// (§4.8): rather than a distinct execution path, "Adaptive" immediately
// resolves to Fast's or Accelerated's cost using the very same score that
// produced the branch, just against a different threshold.
func resolveAdaptive(score float64) flow.Path {
	if score > 0.75 {
		return flow.Fast
	}
	return flow.Accelerated
}

// bucketPath implements the prediction-cache bucketed choice of §4.8 step 1.
func bucketPath(score float64) flow.Path {
	switch {
	case score > 0.8:
		return flow.UltraFast
	case score > 0.6:
		return flow.Fast
	case score > 0.4:
		return flow.Accelerated
	default:
		return resolveAdaptive(score)
	}
}

// Select runs the four-step decision order of §4.8. rec is nil when the
// flow table has no record for key (either never seen, or admission was
// refused under pool exhaustion). sketchCount is the sketch's current
// estimate for key, consulted only on the no-flow path.
func (s *Selector) Select(key flow.Key, rec *flow.Record, sketchCount uint32, now time.Time) Decision {
	// Step 1: prediction-cache bucketed choice. The cached suggested_path
	// from write time is not reused as-is; per §4.8 step 1 the cached score
	// is re-bucketed with its own, coarser thresholds.
	if rec != nil && rec.Hits > 2 {
		if score, _, _, ok := s.cache.Get(key, now); ok {
			return Decision{Path: bucketPath(score), Score: score, HasScore: true}
		}
	}

	// Step 2: no flow at all.
	if rec == nil {
		if sketchCount > 8 {
			return Decision{Path: flow.Accelerated}
		}
		return Decision{Path: flow.Slow}
	}

	// Step 3: first packet after creation.
	if rec.Hits == 1 {
		return Decision{Path: flow.Accelerated}
	}

	// Step 4: live prediction decision tree.
	score := s.model.Predict(rec, now)
	path := s.liveDecision(rec, score)

	if rec.Hits > 2 {
		s.cache.Put(key, score, path, byte(rec.Confidence), now)
	}
	return Decision{Path: path, Score: score, HasScore: true}
}

// liveDecision implements §4.8 step 4. "Adaptive" is not itself one of the
// five cost-ordered execution paths (§4.8's relative-cost contract only
// names UltraFast/Fast/Accelerated/Slow/DeepAnalysis); it is an internal
// branch label that resolveAdaptive immediately turns into a concrete path.
func (s *Selector) liveDecision(rec *flow.Record, score float64) flow.Path {
	switch {
	case rec.Confidence >= 85 && score > 0.7:
		return flow.UltraFast
	case rec.Confidence >= 60 && score > 0.5:
		return flow.Fast
	case score > 0.6 || rec.Pattern.ConsecutiveFastPaths >= 3:
		return resolveAdaptive(score)
	default:
		return flow.Accelerated
	}
}

// ExecutionCost returns the monotone cost stand-in for path, preserving
// the contract UltraFast < Fast < Accelerated < Slow ≈ DeepAnalysis (§4.8).
// Trial division stops at the first divisor, so its loop count alone can be
// 0 (k < 4) or 1 (even k); Accelerated therefore starts at 2 work units and
// Slow at 12 (one above Accelerated's maximum of 2+9), which keeps the
// ordering strict for every key.
func ExecutionCost(path flow.Path, k uint32) uint64 {
	switch path {
	case flow.UltraFast:
		return costNoop()
	case flow.Fast:
		return costMultiply(k)
	case flow.Accelerated:
		return 2 + costTrialDivision(k, 10)
	case flow.Slow, flow.DeepAnalysis:
		return 12 + costTrialDivisionFull(k)
	default:
		return costNoop()
	}
}

func costNoop() uint64 { return 0 }

// costMultiply is a single multiply: one unit of work, below the 2-unit
// floor ExecutionCost gives the trial-division tiers. The specification
// measures cost in work units, not in the numeric magnitude of the result.
func costMultiply(k uint32) uint64 {
	_ = uint64(k) * uint64(k)
	return 1
}

// costTrialDivision performs trial division up to min(sqrt(k), limit).
func costTrialDivision(k uint32, limit uint32) uint64 {
	bound := isqrt(k)
	if bound > limit {
		bound = limit
	}
	return trialDivide(k, bound)
}

// costTrialDivisionFull performs trial division up to sqrt(k), uncapped.
func costTrialDivisionFull(k uint32) uint64 {
	return trialDivide(k, isqrt(k))
}

func trialDivide(k, bound uint32) uint64 {
	var work uint64
	for d := uint32(2); d <= bound; d++ {
		work++
		if k%d == 0 {
			break
		}
	}
	return work
}

func isqrt(k uint32) uint32 {
	if k < 2 {
		return k
	}
	var x uint32 = k
	var y uint32 = (x + 1) / 2
	for y < x {
		x = y
		y = (x + k/x) / 2
	}
	return x
}
