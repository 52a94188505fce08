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

package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"flowplane/internal/aging"
	"flowplane/internal/burst"
	"flowplane/internal/classifier"
	"flowplane/internal/config"
	"flowplane/internal/flow"
	"flowplane/internal/flowtable"
)

func TestReportIncludesAllRequiredFields(t *testing.T) {
	cfg := config.Default()
	cfg.LargeFlowAreaSize = 10
	cfg.BurstyFlowAreaSize = 0
	cfg.MicroFlowAreaSize = 0
	cfg.HashBuckets = 16
	cfg.FastCacheSlots = 8
	cfg.Validate()

	tbl := flowtable.New(cfg)
	now := time.Now()
	tbl.CreateNew(flow.Key(1), now)
	tbl.CreateNew(flow.Key(2), now)
	tbl.Lookup(flow.Key(1))

	model := classifier.New()
	cache := classifier.NewPredictionCache(cfg.PredictionCacheSlots, cfg.PredictionCacheTTL)
	am := aging.New(cfg)
	bd := burst.New(cfg.BurstRingSize)

	c := New()
	c.RecordPath(flow.Accelerated)
	c.RecordPath(flow.Accelerated)
	c.RecordPath(flow.UltraFast)

	var buf bytes.Buffer
	c.Report(&buf, tbl, model, cache, am, bd, now, 2*time.Second, 2, 3, 20000)
	out := buf.String()

	for _, want := range []string{
		"known_count=2", "packet_count=3", "key_range=20000",
		"throughput=",
		"total_work_units=",
		"mean_work_per_packet=",
		"fast_cache_hit_rate=",
		"hash_collisions=",
		"validation_accuracy=",
		"learning_rate=",
		"total_predictions=",
		"prediction_cache_hit_rate=",
		"memory_utilisation=",
		"aging_pressure=",
		"promotions=",
		"demotions=",
		"age_outs=",
		"burst_rate=",
		"flows_with_patterns=",
		"mean_consistency=",
		"mean_burst_score=",
		"UltraFast",
		"Accelerated",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected report to contain %q, got:\n%s", want, out)
		}
	}
}

func TestPathCountsSumMatchesTotal(t *testing.T) {
	c := New()
	c.RecordPath(flow.Fast)
	c.RecordPath(flow.Slow)
	c.RecordPath(flow.Slow)
	counts := c.PathCounts()
	var total uint64
	for _, v := range counts {
		total += v
	}
	if total != 3 {
		t.Fatalf("expected total 3, got %d", total)
	}
	if counts[flow.Slow] != 2 {
		t.Fatalf("expected 2 Slow, got %d", counts[flow.Slow])
	}
}

func TestRecordWorkAccumulates(t *testing.T) {
	c := New()
	c.RecordWork(3)
	c.RecordWork(7)
	if got := c.WorkUnits(); got != 10 {
		t.Fatalf("expected cumulative work units 10, got %d", got)
	}
}
