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

// Package classifier implements the on-line linear classifier (§4.5): fixed
// feature extraction, min/max normalization, a weighted sum through a
// sigmoid, and periodic learning-rate adaptation driven by validation
// against the pipeline's own routing decisions.
//
// The projection shape — pull a small fixed feature set out of a record and
// turn it into a decision — is the same idea plugin/tfd/classifier.go's
// rule-based Classify function uses; here it's generalized from if/else
// rules to a weighted linear combination because the specification calls
// for a genuine (if tiny) on-line model rather than a static decision table.
package classifier

import (
	"math"
	"time"

	"flowplane/internal/flow"
)

const numFeatures = 8

// featureMin/featureMax are the specification's fixed per-feature
// normalization bounds (§4.5): "most zero..100; hits max 1000; packet_count
// max 10000".
var featureMin = [numFeatures]float64{0, 0, 0, 0, 0, 0, 0, 0}
var featureMax = [numFeatures]float64{100, 1000, 10000, 100, 100, 100, 100, 100}

// initialWeights and initialBias are the specification's fixed starting
// point for the linear model.
var initialWeights = [numFeatures]float64{0.35, 0.20, 0.15, 0.10, 0.08, 0.05, 0.04, 0.03}

const initialBias = 0.2
const initialLearningRate = 0.002

const minLearningRate = 5e-4
const maxLearningRate = 1e-2

// Model is the on-line linear classifier. Per §4.5, adaptation only ever
// touches the learning rate; the weights themselves are never mutated by
// this implementation (the specification explicitly scopes weight updates
// as a possible future extension, not part of the contract).
type Model struct {
	weights [numFeatures]float64
	bias    float64
	lr      float64

	// Validation window accumulators (§4.5), reset on every Adapt call.
	windowSamples int
	windowCorrect int

	// Cumulative, never reset — feed the end-of-run report (§6).
	totalPredictions uint64
	lastAccuracy     float64
	lastSampleCount  int
}

// New returns a Model at the specification's initial weights, bias, and
// learning rate.
func New() *Model {
	m := &Model{
		weights: initialWeights,
		bias:    initialBias,
		lr:      initialLearningRate,
	}
	return m
}

// LearningRate returns the model's current learning rate.
func (m *Model) LearningRate() float64 { return m.lr }

// features extracts the 8 raw (unnormalized) features for rec at time now
// (§4.5).
func features(rec *flow.Record, now time.Time) [numFeatures]float64 {
	age := rec.AgeSeconds(now)
	cacheRatio := 0.0
	if rec.Hits > 0 {
		cacheRatio = 100 * float64(rec.CacheHits) / float64(rec.Hits)
	}
	return [numFeatures]float64{
		float64(rec.Confidence),
		float64(rec.Hits),
		float64(rec.PacketCount),
		100 / (age + 1),
		100 * rec.Pattern.PathConsistency,
		100 * rec.Pattern.BurstScore,
		cacheRatio,
		10 * float64(rec.FlowType),
	}
}

func normalize(raw, min, max float64) float64 {
	if max <= min {
		return 0
	}
	v := (raw - min) / (max - min)
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func sigmoid(x float64) float64 {
	// math.Exp(-x) cannot overflow to NaN for any finite x (it saturates to
	// +Inf/0), so no extra guarding is needed; this is the "classifier
	// pathologies" absorption point required by §7.
	return 1 / (1 + math.Exp(-x))
}

// Predict computes the classifier's score for rec at time now: a sigmoid of
// the bias plus the weighted sum of normalized features (§4.5).
func (m *Model) Predict(rec *flow.Record, now time.Time) float64 {
	raw := features(rec, now)
	sum := m.bias
	for i := 0; i < numFeatures; i++ {
		n := normalize(raw[i], featureMin[i], featureMax[i])
		sum += m.weights[i] * n
	}
	m.totalPredictions++
	return sigmoid(sum)
}

// RecordValidationSample records one validation observation (§4.5): for
// packets with hits >= 5, the caller compares the classifier's own
// prediction against the path the pipeline actually took. This measurement
// is circular by specification — "correct" means the classifier agreed with
// a decision that itself may have been influenced by the classifier's score
// — and is preserved exactly as specified rather than corrected, per the
// design note in §9. It is reported as a known caveat alongside the
// accuracy figure (see internal/stats).
func (m *Model) RecordValidationSample(predictedFast, actualFast bool) {
	m.windowSamples++
	if predictedFast == actualFast {
		m.windowCorrect++
	}
}

// Adapt runs the periodic learning-rate adaptation (§4.5): every
// config.Engine.ValidationInterval processed packets, compute the window's
// accuracy, nudge the learning rate, clamp it, and reset the window.
func (m *Model) Adapt() {
	if m.windowSamples == 0 {
		return
	}
	accuracy := float64(m.windowCorrect) / float64(m.windowSamples)
	switch {
	case accuracy > 0.85:
		m.lr *= 0.98
	case accuracy < 0.70:
		m.lr *= 1.05
	}
	if m.lr < minLearningRate {
		m.lr = minLearningRate
	}
	if m.lr > maxLearningRate {
		m.lr = maxLearningRate
	}
	m.lastAccuracy = accuracy
	m.lastSampleCount = m.windowSamples
	m.windowSamples = 0
	m.windowCorrect = 0
}

// ValidationSnapshot summarizes the classifier's state for the end-of-run
// report (§6).
type ValidationSnapshot struct {
	Accuracy         float64
	SampleCount      int
	LearningRate     float64
	TotalPredictions uint64
}

// Snapshot returns the current validation/learning-rate state.
func (m *Model) Snapshot() ValidationSnapshot {
	return ValidationSnapshot{
		Accuracy:         m.lastAccuracy,
		SampleCount:      m.lastSampleCount,
		LearningRate:     m.lr,
		TotalPredictions: m.totalPredictions,
	}
}
