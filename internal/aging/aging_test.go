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

package aging

import (
	"testing"
	"time"

	"flowplane/internal/config"
	"flowplane/internal/flow"
	"flowplane/internal/flowtable"
)

func smallConfig(poolSize int) config.Engine {
	cfg := config.Default()
	cfg.LargeFlowAreaSize = poolSize
	cfg.BurstyFlowAreaSize = 0
	cfg.MicroFlowAreaSize = 0
	cfg.HashBuckets = 64
	cfg.FastCacheSlots = 16
	cfg.AgingInterval = 1
	cfg.AgingMinWallGap = 0
	cfg.LifecycleInterval = 1
	cfg.LifecycleSweepLimit = 1000
	cfg.Validate()
	cfg.AgingMinWallGap = 0 // Validate would otherwise restore the 30s default
	return cfg
}

func zeroML(*flow.Record) float64 { return 0 }

// fillPool admits n filler flows after the record under test. An aging cycle
// touches floor(0.1*pool_index) records starting at totalProcessed mod
// pool_index, so a lone record is never touched; with the record at slot 0
// and 9 fillers, a cycle at totalProcessed=10 touches exactly that record.
func fillPool(tbl *flowtable.Table, n int, now time.Time) {
	for i := 0; i < n; i++ {
		tbl.CreateNew(flow.Key(1000+i), now)
	}
}

func TestExponentialDecayAfterIdle600Seconds(t *testing.T) {
	cfg := smallConfig(20)
	tbl := flowtable.New(cfg)
	mgr := New(cfg)
	t0 := time.Now()
	rec := tbl.CreateNew(flow.Key(1), t0)
	rec.Aging.Strategy = flow.Exponential
	rec.SetConfidence(100)
	rec.Aging.LastAccess = t0
	fillPool(tbl, 9, t0)

	later := t0.Add(600 * time.Second)
	mgr.MaybeRunAgingCycle(tbl, 10, later, zeroML)

	if rec.Confidence > 10 {
		t.Fatalf("expected exponential decay to drop confidence to <= floor*100 after 600s idle, got %d", rec.Confidence)
	}
}

func TestAggressiveDecayTransitionsToDying(t *testing.T) {
	cfg := smallConfig(20)
	tbl := flowtable.New(cfg)
	mgr := New(cfg)
	t0 := time.Now()
	rec := tbl.CreateNew(flow.Key(1), t0)
	rec.Aging.Strategy = flow.Aggressive
	rec.SetConfidence(20)
	rec.Aging.LastAccess = t0
	fillPool(tbl, 9, t0)

	later := t0.Add(200 * time.Second)
	mgr.MaybeRunAgingCycle(tbl, 10, later, zeroML)

	if rec.FlowType != flow.Dying {
		t.Fatalf("expected aggressive decay below 15 to transition to Dying, got %v (confidence=%d)", rec.FlowType, rec.Confidence)
	}
}

func TestLinearDecayRequiresIdleOver180(t *testing.T) {
	cfg := smallConfig(20)
	tbl := flowtable.New(cfg)
	mgr := New(cfg)
	t0 := time.Now()
	rec := tbl.CreateNew(flow.Key(1), t0)
	rec.Aging.Strategy = flow.Linear
	rec.SetConfidence(50)
	rec.Aging.LastAccess = t0
	fillPool(tbl, 9, t0)

	mgr.MaybeRunAgingCycle(tbl, 10, t0.Add(100*time.Second), zeroML)
	if rec.Confidence != 50 {
		t.Fatalf("expected no decay below 180s idle, got %d", rec.Confidence)
	}
}

func TestAgingCycleGatedByWallClock(t *testing.T) {
	cfg := smallConfig(20)
	cfg.AgingMinWallGap = 30 * time.Second
	tbl := flowtable.New(cfg)
	mgr := New(cfg)
	t0 := time.Now()
	rec := tbl.CreateNew(flow.Key(1), t0)
	rec.Aging.Strategy = flow.Linear
	rec.SetConfidence(50)
	rec.Aging.LastAccess = t0
	fillPool(tbl, 9, t0)

	mgr.MaybeRunAgingCycle(tbl, 10, t0.Add(200*time.Second), zeroML)
	if rec.Confidence == 50 {
		t.Fatalf("expected first cycle to run and decay confidence")
	}
	decayed := rec.Confidence
	rec.Aging.LastAccess = t0 // reset idle so a second cycle would decay again if it ran
	mgr.MaybeRunAgingCycle(tbl, 20, t0.Add(210*time.Second), zeroML)
	if rec.Confidence != decayed {
		t.Fatalf("expected second cycle within wall gap to be suppressed")
	}
}

func TestLifecyclePromotesEligibleNormalFlow(t *testing.T) {
	cfg := smallConfig(20)
	tbl := flowtable.New(cfg)
	mgr := New(cfg)
	t0 := time.Now()
	rec := tbl.CreateNew(flow.Key(1), t0)
	rec.FlowType = flow.Normal
	rec.PromotionScore = 900
	rec.Hits = 20

	mgr.MaybeRunLifecycleSweep(tbl, 1, t0, func(*flow.Record) float64 { return 0.9 })
	if rec.FlowType != flow.Promoted {
		t.Fatalf("expected promotion, got %v", rec.FlowType)
	}
	if mgr.Promotions() != 1 {
		t.Fatalf("expected promotions counter to advance, got %d", mgr.Promotions())
	}
}

func TestLifecycleDemotesOnLowScoreOrIdle(t *testing.T) {
	cfg := smallConfig(20)
	tbl := flowtable.New(cfg)
	mgr := New(cfg)
	t0 := time.Now()
	rec := tbl.CreateNew(flow.Key(1), t0)
	rec.PreviousType = flow.Bursty
	rec.FlowType = flow.Promoted
	rec.SetConfidence(50)
	rec.PromotionScore = 900
	rec.Aging.LastAccess = t0

	mgr.MaybeRunLifecycleSweep(tbl, 1, t0, func(*flow.Record) float64 { return 0.2 })
	if rec.FlowType != flow.Bursty {
		t.Fatalf("expected demotion back to previous_type Bursty, got %v", rec.FlowType)
	}
	if rec.Confidence != 35 {
		t.Fatalf("expected confidence reduced by 15 to 35, got %d", rec.Confidence)
	}
	if mgr.Demotions() != 1 {
		t.Fatalf("expected demotions counter to advance, got %d", mgr.Demotions())
	}
}

func TestLifecycleDemotionFloorsConfidenceAt10(t *testing.T) {
	cfg := smallConfig(20)
	tbl := flowtable.New(cfg)
	mgr := New(cfg)
	t0 := time.Now()
	rec := tbl.CreateNew(flow.Key(1), t0)
	rec.PreviousType = flow.Normal
	rec.FlowType = flow.Promoted
	rec.SetConfidence(5)
	rec.PromotionScore = 900

	mgr.MaybeRunLifecycleSweep(tbl, 1, t0, func(*flow.Record) float64 { return 0.2 })
	if rec.Confidence != 10 {
		t.Fatalf("expected demotion to floor confidence at 10, got %d", rec.Confidence)
	}
}

func TestLifecycleZeroesLongIdleDyingFlow(t *testing.T) {
	cfg := smallConfig(20)
	tbl := flowtable.New(cfg)
	mgr := New(cfg)
	t0 := time.Now()
	rec := tbl.CreateNew(flow.Key(1), t0)
	rec.FlowType = flow.Dying
	rec.SetConfidence(30)
	rec.Aging.LastAccess = t0

	mgr.MaybeRunLifecycleSweep(tbl, 1, t0.Add(1000*time.Second), func(*flow.Record) float64 { return 0 })
	if rec.Confidence != 0 {
		t.Fatalf("expected confidence zeroed for Dying flow idle > 900s, got %d", rec.Confidence)
	}
}

func TestLifecycleSweepRespectsConfiguredLimit(t *testing.T) {
	cfg := smallConfig(20)
	cfg.LifecycleSweepLimit = 5
	tbl := flowtable.New(cfg)
	mgr := New(cfg)
	t0 := time.Now()
	for k := flow.Key(0); k < 20; k++ {
		rec := tbl.CreateNew(k, t0)
		rec.FlowType = flow.Normal
		rec.PromotionScore = 900
		rec.Hits = 20
	}
	mgr.MaybeRunLifecycleSweep(tbl, 1, t0, func(*flow.Record) float64 { return 0.9 })
	if mgr.Promotions() != 5 {
		t.Fatalf("expected sweep to touch only the configured limit of 5, got %d promotions", mgr.Promotions())
	}
}
