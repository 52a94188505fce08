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

// Package aging implements the periodic confidence-decay cycle and the
// promotion/demotion lifecycle sweep (§4.10, §4.7). Both are cooperative,
// synchronous passes invoked by the pipeline on its own packet-count
// schedule — there is no background goroutine, matching the single-threaded
// model in §5. This plays the role internal/ratelimiter/core's periodic
// commit/eviction cycles played in the teacher lineage, generalized from a
// hysteresis-gated worker loop to a synchronous sweep the pipeline drives
// itself.
package aging

import (
	"time"

	"flowplane/internal/config"
	"flowplane/internal/flow"
	"flowplane/internal/flowtable"
)

// Manager owns the aging and lifecycle cycle schedules and their cumulative
// statistics.
type Manager struct {
	cfg config.Engine

	lastAgingAt time.Time
	agingArmed  bool

	memoryUtilisation float64
	agingPressure     float64

	promotions int
	demotions  int
	ageOuts    int
}

// New returns a Manager configured per cfg.
func New(cfg config.Engine) *Manager {
	return &Manager{cfg: cfg}
}

// MaybeRunAgingCycle runs an aging cycle if totalProcessed has crossed a
// multiple of cfg.AgingInterval and at least cfg.AgingMinWallGap has
// elapsed since the last cycle (§4.10).
func (m *Manager) MaybeRunAgingCycle(tbl *flowtable.Table, totalProcessed uint64, now time.Time, mlScore func(*flow.Record) float64) {
	if m.cfg.AgingInterval == 0 || totalProcessed%m.cfg.AgingInterval != 0 {
		return
	}
	if !m.lastAgingAt.IsZero() && now.Sub(m.lastAgingAt) < m.cfg.AgingMinWallGap {
		return
	}
	m.lastAgingAt = now
	m.runAgingCycle(tbl, totalProcessed, now, mlScore)
}

func (m *Manager) runAgingCycle(tbl *flowtable.Table, totalProcessed uint64, now time.Time, mlScore func(*flow.Record) float64) {
	m.memoryUtilisation = tbl.MemoryUtilisation()
	switch {
	case m.memoryUtilisation > 0.85:
		m.agingPressure = 0.9
	case m.memoryUtilisation > 0.70:
		m.agingPressure = 0.6
	default:
		m.agingPressure = 0.3
	}

	poolIndex := tbl.Len()
	if poolIndex == 0 {
		return
	}
	touch := int(0.1 * float64(poolIndex))
	for i := 0; i < touch; i++ {
		idx := int((totalProcessed + uint64(i)) % uint64(poolIndex))
		rec := tbl.At(idx)
		if !rec.Live() {
			continue
		}
		m.decay(rec, now, mlScore)
	}
}

// decay applies a record's own strategy (§4.10 table) and the confidence<10
// Dying transition.
func (m *Manager) decay(rec *flow.Record, now time.Time, mlScore func(*flow.Record) float64) {
	idle := rec.IdleSeconds(now)
	switch rec.Aging.Strategy {
	case flow.Linear:
		if idle > 180 {
			rec.AddConfidence(-3)
		}
	case flow.Exponential:
		if idle > 60 {
			factor := 1 - idle/600
			if factor < 0.1 {
				factor = 0.1
			}
			rec.ScaleConfidence(factor)
		}
	case flow.Adaptive:
		ml := mlScore(rec)
		factor := 1 - (idle/1200)*(1-0.8*ml)
		rec.ScaleConfidence(factor)
	case flow.Aggressive:
		if idle > 90 {
			rec.AddConfidence(-8)
			if rec.Confidence < 15 && rec.FlowType != flow.Dying {
				rec.TransitionTo(flow.Dying)
				m.ageOuts++
			}
		}
	}
	if rec.Confidence < 10 && rec.FlowType != flow.Dying {
		rec.TransitionTo(flow.Dying)
		m.ageOuts++
	}
}

// MaybeRunLifecycleSweep runs the promotion/demotion sweep if totalProcessed
// has crossed a multiple of cfg.LifecycleInterval (§4.7). mlScore supplies
// the classifier's live score for each inspected record.
func (m *Manager) MaybeRunLifecycleSweep(tbl *flowtable.Table, totalProcessed uint64, now time.Time, mlScore func(*flow.Record) float64) {
	if m.cfg.LifecycleInterval == 0 || totalProcessed%m.cfg.LifecycleInterval != 0 {
		return
	}
	limit := tbl.Len()
	if m.cfg.LifecycleSweepLimit < limit {
		limit = m.cfg.LifecycleSweepLimit
	}
	for i := 0; i < limit; i++ {
		rec := tbl.At(i)
		if !rec.Live() {
			continue
		}
		ml := mlScore(rec)
		idle := rec.IdleSeconds(now)

		switch rec.FlowType {
		case flow.Normal:
			if ml > 0.75 && rec.PromotionScore > 700 && rec.Hits > 8 {
				rec.TransitionTo(flow.Promoted)
				m.promotions++
			}
		case flow.Promoted:
			if ml < 0.4 || idle > 300 || rec.PromotionScore < 200 {
				rec.AddConfidence(-15)
				if rec.Confidence < 10 {
					rec.SetConfidence(10)
				}
				rec.TransitionTo(rec.PreviousType)
				m.demotions++
			}
		case flow.Dying:
			if idle > 900 {
				rec.SetConfidence(0)
			}
		}
	}
}

// MemoryUtilisation, AgingPressure, Promotions, Demotions, and AgeOuts
// report the manager's cumulative state for the end-of-run report (§6).
func (m *Manager) MemoryUtilisation() float64 { return m.memoryUtilisation }
func (m *Manager) AgingPressure() float64     { return m.agingPressure }
func (m *Manager) Promotions() int            { return m.promotions }
func (m *Manager) Demotions() int             { return m.demotions }
func (m *Manager) AgeOuts() int               { return m.ageOuts }
