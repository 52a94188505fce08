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
	"testing"
	"time"

	"flowplane/internal/flow"
)

func TestPredictStaysInUnitRange(t *testing.T) {
	m := New()
	var r flow.Record
	r.InitKnown(7, time.Now())
	p := m.Predict(&r, time.Now())
	if p < 0 || p > 1 {
		t.Fatalf("expected prediction in [0,1], got %f", p)
	}
}

func TestPredictHigherConfidenceYieldsHigherScore(t *testing.T) {
	m := New()
	now := time.Now()
	var low, high flow.Record
	low.InitNew(1, now)
	high.InitKnown(2, now)
	pLow := m.Predict(&low, now)
	pHigh := m.Predict(&high, now)
	if pHigh <= pLow {
		t.Fatalf("expected known (higher confidence/consistency) flow to score higher: low=%f high=%f", pLow, pHigh)
	}
}

func TestAdaptIncreasesLearningRateOnLowAccuracy(t *testing.T) {
	m := New()
	start := m.LearningRate()
	for i := 0; i < 10; i++ {
		m.RecordValidationSample(true, false) // always wrong => accuracy 0
	}
	m.Adapt()
	if m.LearningRate() <= start {
		t.Fatalf("expected learning rate to increase on low accuracy: start=%f after=%f", start, m.LearningRate())
	}
}

func TestAdaptDecreasesLearningRateOnHighAccuracy(t *testing.T) {
	m := New()
	start := m.LearningRate()
	for i := 0; i < 10; i++ {
		m.RecordValidationSample(true, true) // always correct => accuracy 1
	}
	m.Adapt()
	if m.LearningRate() >= start {
		t.Fatalf("expected learning rate to decrease on high accuracy: start=%f after=%f", start, m.LearningRate())
	}
}

func TestAdaptClampsLearningRate(t *testing.T) {
	m := New()
	for cycle := 0; cycle < 200; cycle++ {
		for i := 0; i < 10; i++ {
			m.RecordValidationSample(true, true)
		}
		m.Adapt()
	}
	if m.LearningRate() < minLearningRate {
		t.Fatalf("learning rate fell below floor: %f", m.LearningRate())
	}

	m2 := New()
	for cycle := 0; cycle < 200; cycle++ {
		for i := 0; i < 10; i++ {
			m2.RecordValidationSample(true, false)
		}
		m2.Adapt()
	}
	if m2.LearningRate() > maxLearningRate {
		t.Fatalf("learning rate exceeded ceiling: %f", m2.LearningRate())
	}
}

func TestAdaptNoopWithoutSamples(t *testing.T) {
	m := New()
	start := m.LearningRate()
	m.Adapt()
	if m.LearningRate() != start {
		t.Fatalf("expected no-op adapt with zero samples, got %f -> %f", start, m.LearningRate())
	}
}

func TestSnapshotReflectsLastAdaptation(t *testing.T) {
	m := New()
	m.RecordValidationSample(true, true)
	m.RecordValidationSample(true, false)
	m.Adapt()
	snap := m.Snapshot()
	if snap.SampleCount != 2 {
		t.Fatalf("expected sample count 2, got %d", snap.SampleCount)
	}
	if snap.Accuracy != 0.5 {
		t.Fatalf("expected accuracy 0.5, got %f", snap.Accuracy)
	}
	if snap.TotalPredictions != 0 {
		t.Fatalf("expected no predictions recorded yet, got %d", snap.TotalPredictions)
	}
}

func TestPredictionCacheFreshnessWindow(t *testing.T) {
	c := NewPredictionCache(1024, 30*time.Second)
	now := time.Now()
	c.Put(flow.Key(5), 0.9, flow.UltraFast, 85, now)

	if _, _, _, ok := c.Get(flow.Key(5), now.Add(10*time.Second)); !ok {
		t.Fatalf("expected fresh hit within TTL")
	}
	if _, _, _, ok := c.Get(flow.Key(5), now.Add(31*time.Second)); ok {
		t.Fatalf("expected stale entry to miss past TTL")
	}
}

func TestPredictionCacheMissForUnknownKey(t *testing.T) {
	c := NewPredictionCache(1024, 30*time.Second)
	if _, _, _, ok := c.Get(flow.Key(123), time.Now()); ok {
		t.Fatalf("expected miss for never-written key")
	}
}

func TestPredictionCacheHitRateAccounting(t *testing.T) {
	c := NewPredictionCache(16, 30*time.Second)
	now := time.Now()
	c.Put(flow.Key(1), 0.5, flow.Fast, 50, now)
	c.Get(flow.Key(1), now)
	c.Get(flow.Key(2), now)
	if rate := c.HitRate(); rate != 0.5 {
		t.Fatalf("expected hit rate 0.5, got %f", rate)
	}
}
