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

// Package engine orchestrates every other package into the per-packet
// pipeline described in §2: sketch update, lookup-or-create, path
// selection, pattern and type-transition bookkeeping, and the periodic
// aging/classifier-adaptation/lifecycle maintenance cycles. It is the
// single-threaded, cooperative conductor described in §5 — there is no
// concurrency here to generalize from the teacher lineage's goroutine-
// driven Worker; this type plays that role synchronously instead.
package engine

import (
	"time"

	"flowplane/internal/aging"
	"flowplane/internal/burst"
	"flowplane/internal/classifier"
	"flowplane/internal/clock"
	"flowplane/internal/config"
	"flowplane/internal/flow"
	"flowplane/internal/flowtable"
	"flowplane/internal/input"
	"flowplane/internal/pathselect"
	"flowplane/internal/stats"
	"flowplane/pkg/sketch"
)

// Pipeline holds every component the engine needs and the single counter
// that drives the periodic maintenance schedules.
type Pipeline struct {
	cfg   config.Engine
	clock clock.Clock

	Table    *flowtable.Table
	Sketch   *sketch.CountMin
	Model    *classifier.Model
	Cache    *classifier.PredictionCache
	Selector *pathselect.Selector
	Burst    *burst.Detector
	Aging    *aging.Manager
	Stats    *stats.Collector

	totalProcessed uint64
}

// New builds a Pipeline from cfg, wiring every component together. cfg is
// validated (clamped) before use.
func New(cfg config.Engine, clk clock.Clock) *Pipeline {
	cfg.Validate()
	model := classifier.New()
	cache := classifier.NewPredictionCache(cfg.PredictionCacheSlots, cfg.PredictionCacheTTL)
	return &Pipeline{
		cfg:      cfg,
		clock:    clk,
		Table:    flowtable.New(cfg),
		Sketch:   sketch.New(cfg.SketchRows, cfg.SketchWidth),
		Model:    model,
		Cache:    cache,
		Selector: pathselect.New(model, cache),
		Burst:    burst.New(cfg.BurstRingSize),
		Aging:    aging.New(cfg),
		Stats:    stats.New(),
	}
}

// LoadKnown admits a pre-populated known flow (§4.6) before the packet
// stream begins. Admission is refused silently if the flow pool is already
// full (§7), exactly as for any other record creation.
func (p *Pipeline) LoadKnown(key flow.Key) {
	p.Table.CreateKnown(key, p.clock.Now())
}

// LoadKnownStream drains s, admitting each key as a pre-populated known flow
// before the packet stream begins. The pipeline only ever depends on the
// input.Stream interface here, never on how s is backed (file, in-memory
// slice, or any other source satisfying it).
func (p *Pipeline) LoadKnownStream(s input.Stream) {
	for {
		key, ok := s.Next()
		if !ok {
			return
		}
		p.LoadKnown(key)
	}
}

// ProcessStream drains s, running each key through Process in order and
// invoking afterEach (if non-nil) after every packet, e.g. to sync
// telemetry. Like LoadKnownStream, this is the pipeline's only dependency
// on the packet source's shape.
func (p *Pipeline) ProcessStream(s input.Stream, afterEach func()) {
	for {
		key, ok := s.Next()
		if !ok {
			return
		}
		p.Process(key)
		if afterEach != nil {
			afterEach()
		}
	}
}

// scoreFn is the classifier-score callback threaded into the aging manager
// for its Adaptive decay rule and lifecycle promotion/demotion checks.
func (p *Pipeline) scoreFn(now time.Time) func(*flow.Record) float64 {
	return func(rec *flow.Record) float64 {
		return p.Model.Predict(rec, now)
	}
}

// Process runs one packet through the full pipeline (§2's data flow).
func (p *Pipeline) Process(key flow.Key) {
	now := p.clock.Now()
	p.totalProcessed++

	sketchCount := p.Sketch.Update(uint32(key))
	p.Burst.Observe(now.Unix())

	rec := p.Table.Lookup(key)
	if rec == nil {
		rec = p.Table.CreateNew(key, now)
	} else {
		rec.Hits++
		rec.PacketCount++
		rec.LastSeen = now
		rec.Aging.LastAccess = now
	}

	decision := p.Selector.Select(key, rec, sketchCount, now)

	// Incur the path's relative execution cost (§4.8) as real loop work,
	// rather than just labeling the decision; this is what makes the
	// report's elapsed-time and throughput figures reflect how packets
	// actually distributed across paths.
	p.Stats.RecordWork(pathselect.ExecutionCost(decision.Path, uint32(key)))

	if rec != nil {
		rec.Pattern.Record(decision.Path)
		rec.ApplyTypeTransitions()
		if p.Burst.Active() {
			rec.ApplyBurstPromotion(true, decision.Score)
		}
		if rec.Hits >= 5 && decision.HasScore {
			predictedFast := decision.Score > 0.6
			actualFast := decision.Path <= flow.Fast
			p.Model.RecordValidationSample(predictedFast, actualFast)
		}
	}

	p.Stats.RecordPath(decision.Path)

	if p.cfg.ValidationInterval != 0 && p.totalProcessed%p.cfg.ValidationInterval == 0 {
		p.Model.Adapt()
	}
	p.Aging.MaybeRunAgingCycle(p.Table, p.totalProcessed, now, p.scoreFn(now))
	p.Aging.MaybeRunLifecycleSweep(p.Table, p.totalProcessed, now, p.scoreFn(now))
}

// TotalProcessed returns the number of packets processed so far.
func (p *Pipeline) TotalProcessed() uint64 { return p.totalProcessed }
