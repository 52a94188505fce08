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

// Package stats accumulates the cumulative counters the pipeline cannot
// recompute after the fact (per-path packet counts, their total, and
// execution-cost work units) and produces the
// end-of-run textual report (§6) by walking the live flow pool once at
// report time for everything else. This mirrors the columnar, print-at-the-
// end style of persister.PrintFinalMetrics in the teacher lineage, rather
// than threading incremental aggregation through every packet.
package stats

import (
	"fmt"
	"io"
	"time"

	"flowplane/internal/aging"
	"flowplane/internal/burst"
	"flowplane/internal/classifier"
	"flowplane/internal/flow"
	"flowplane/internal/flowtable"
)

// Collector tracks the per-packet counters that must be accumulated as
// packets are processed rather than recomputed from final state.
type Collector struct {
	pathCounts [flow.NumPaths]uint64
	total      uint64
	workUnits  uint64
}

// New returns an empty Collector.
func New() *Collector {
	return &Collector{}
}

// RecordPath increments the packet count for path.
func (c *Collector) RecordPath(path flow.Path) {
	c.pathCounts[path]++
	c.total++
}

// RecordWork adds units to the cumulative execution-cost total (§4.8's
// work-unit stand-in, actually incurred per packet by internal/engine).
func (c *Collector) RecordWork(units uint64) {
	c.workUnits += units
}

// PathCounts returns the cumulative per-path packet counts, for telemetry
// export.
func (c *Collector) PathCounts() [flow.NumPaths]uint64 {
	return c.pathCounts
}

// WorkUnits returns the cumulative execution-cost total across every packet
// processed so far.
func (c *Collector) WorkUnits() uint64 {
	return c.workUnits
}

type typeAggregate struct {
	count          int
	confidenceSum  int
	mlScoreSum     float64
	promotionSum   int
}

type patternAggregate struct {
	flowsWithPattern int
	consistencySum   float64
	highConsistency  int
	burstScoreSum    float64
}

// Report writes the full end-of-run report to w (§6). now is the wall-clock
// time the report is generated at; elapsed is the total processing
// duration; knownCount/packetCount/keyRange echo the run's configuration.
func (c *Collector) Report(
	w io.Writer,
	tbl *flowtable.Table,
	model *classifier.Model,
	cache *classifier.PredictionCache,
	am *aging.Manager,
	bd *burst.Detector,
	now time.Time,
	elapsed time.Duration,
	knownCount, packetCount, keyRange int,
) {
	fmt.Fprintf(w, "=== Flow Classification Engine :: Run Report ===\n")
	fmt.Fprintf(w, "known_count=%d  packet_count=%d  key_range=%d\n", knownCount, packetCount, keyRange)

	secs := elapsed.Seconds()
	var pps, mpps float64
	if secs > 0 {
		pps = float64(c.total) / secs
		mpps = pps / 1e6
	}
	fmt.Fprintf(w, "elapsed=%.3fs  throughput=%.0f pkt/s (%.3f Mpps)\n", secs, pps, mpps)

	fmt.Fprintf(w, "\n-- Path distribution --\n")
	for p := 0; p < flow.NumPaths; p++ {
		pct := 0.0
		if c.total > 0 {
			pct = 100 * float64(c.pathCounts[p]) / float64(c.total)
		}
		fmt.Fprintf(w, "  %-12s %10d  (%6.2f%%)\n", flow.Path(p).String(), c.pathCounts[p], pct)
	}

	meanWork := 0.0
	if c.total > 0 {
		meanWork = float64(c.workUnits) / float64(c.total)
	}
	fmt.Fprintf(w, "\ntotal_work_units=%d  mean_work_per_packet=%.3f\n", c.workUnits, meanWork)

	fastHits, fastMisses := tbl.FastCacheStats()
	fastTotal := fastHits + fastMisses
	fastRate := 0.0
	if fastTotal > 0 {
		fastRate = float64(fastHits) / float64(fastTotal)
	}
	fmt.Fprintf(w, "\nfast_cache_hit_rate=%.4f  hash_collisions=%d\n", fastRate, tbl.HashCollisions())

	snap := model.Snapshot()
	fmt.Fprintf(w, "\n-- Classifier --\n")
	fmt.Fprintf(w, "validation_accuracy=%.4f  samples=%d  learning_rate=%.6f  total_predictions=%d  prediction_cache_hit_rate=%.4f\n",
		snap.Accuracy, snap.SampleCount, snap.LearningRate, snap.TotalPredictions, cache.HitRate())
	fmt.Fprintf(w, "note: validation_accuracy scores the classifier against routing decisions its own score influenced, so it reads high\n")

	fmt.Fprintf(w, "\n-- Aging --\n")
	fmt.Fprintf(w, "memory_utilisation=%.4f  aging_pressure=%.2f  promotions=%d  demotions=%d  age_outs=%d  burst_rate=%.2f\n",
		am.MemoryUtilisation(), am.AgingPressure(), am.Promotions(), am.Demotions(), am.AgeOuts(), bd.CurrentRate())

	typeAgg := map[flow.Type]*typeAggregate{}
	pat := patternAggregate{}
	n := tbl.Len()
	for i := 0; i < n; i++ {
		rec := tbl.At(i)
		if !rec.Live() {
			continue
		}
		agg, ok := typeAgg[rec.FlowType]
		if !ok {
			agg = &typeAggregate{}
			typeAgg[rec.FlowType] = agg
		}
		agg.count++
		agg.confidenceSum += rec.Confidence
		agg.mlScoreSum += model.Predict(rec, now)
		agg.promotionSum += rec.PromotionScore

		if rec.Pattern.Count() > 0 {
			pat.flowsWithPattern++
			pat.consistencySum += rec.Pattern.PathConsistency
			pat.burstScoreSum += rec.Pattern.BurstScore
			if rec.Pattern.PathConsistency > 0.8 {
				pat.highConsistency++
			}
		}
	}

	fmt.Fprintf(w, "\n-- Per-flow-type --\n")
	for t := flow.Normal; t <= flow.Suspected; t++ {
		agg, ok := typeAgg[t]
		if !ok || agg.count == 0 {
			continue
		}
		fmt.Fprintf(w, "  %-10s count=%6d  mean_confidence=%6.2f  mean_ml_score=%.4f  mean_promotion_score=%7.2f\n",
			t.String(), agg.count,
			float64(agg.confidenceSum)/float64(agg.count),
			agg.mlScoreSum/float64(agg.count),
			float64(agg.promotionSum)/float64(agg.count))
	}

	fmt.Fprintf(w, "\n-- Pattern analysis --\n")
	meanConsistency, meanBurst := 0.0, 0.0
	if pat.flowsWithPattern > 0 {
		meanConsistency = pat.consistencySum / float64(pat.flowsWithPattern)
		meanBurst = pat.burstScoreSum / float64(pat.flowsWithPattern)
	}
	fmt.Fprintf(w, "flows_with_patterns=%d  mean_consistency=%.4f  high_consistency_count=%d  mean_burst_score=%.4f\n",
		pat.flowsWithPattern, meanConsistency, pat.highConsistency, meanBurst)
}
