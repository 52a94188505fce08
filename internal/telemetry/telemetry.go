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

// Package telemetry provides opt-in Prometheus gauges over the engine's
// running state. It is designed to be safe to call from the packet loop:
// Sync is a no-op when disabled. This mirrors
// internal/ratelimiter/telemetry/churn's Config{Enabled bool}/global
// collectors/optional-HTTP-endpoint shape in the teacher lineage, adapted
// from request-churn KPIs to this engine's path/classifier/aging state.
package telemetry

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"flowplane/internal/aging"
	"flowplane/internal/burst"
	"flowplane/internal/classifier"
	"flowplane/internal/flow"
	"flowplane/internal/flowtable"
)

// Config controls the behavior of the telemetry module.
type Config struct {
	Enabled bool
	// MetricsAddr, when non-empty, starts a dedicated HTTP server serving
	// /metrics. Leave empty if Prometheus is already exposed elsewhere.
	MetricsAddr string
}

var modEnabled atomic.Bool

var (
	pathGauges = func() [flow.NumPaths]prometheus.Gauge {
		var g [flow.NumPaths]prometheus.Gauge
		for p := 0; p < flow.NumPaths; p++ {
			g[p] = prometheus.NewGauge(prometheus.GaugeOpts{
				Name:        "flowplane_path_packets_total",
				Help:        "Cumulative packets routed to each processing path.",
				ConstLabels: prometheus.Labels{"path": flow.Path(p).String()},
			})
		}
		return g
	}()

	fastCacheHitRate = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flowplane_fast_cache_hit_rate",
		Help: "Fraction of flow-table lookups resolved directly by the fast cache.",
	})
	hashCollisions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flowplane_hash_collisions_total",
		Help: "Cumulative count of hash-bucket insertions that collided.",
	})
	classifierAccuracy = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flowplane_classifier_validation_accuracy",
		Help: "Most recent validation-window accuracy of the on-line classifier.",
	})
	classifierLearningRate = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flowplane_classifier_learning_rate",
		Help: "Current learning rate of the on-line classifier.",
	})
	predictionCacheHitRate = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flowplane_prediction_cache_hit_rate",
		Help: "Cumulative hit rate of the classifier's prediction cache.",
	})
	memoryUtilisation = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flowplane_memory_utilisation",
		Help: "Flow pool occupancy as a fraction of capacity.",
	})
	agingPressure = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flowplane_aging_pressure",
		Help: "Current aging pressure level set by the last aging cycle.",
	})
	promotions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flowplane_promotions_total",
		Help: "Cumulative number of lifecycle promotions.",
	})
	demotions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flowplane_demotions_total",
		Help: "Cumulative number of lifecycle demotions.",
	})
	ageOuts = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flowplane_age_outs_total",
		Help: "Cumulative number of flows transitioned to Dying.",
	})
	burstRate = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flowplane_burst_rate",
		Help: "Current running mean per-second arrival rate.",
	})
)

func init() {
	collectors := []prometheus.Collector{
		fastCacheHitRate, hashCollisions, classifierAccuracy, classifierLearningRate,
		predictionCacheHitRate, memoryUtilisation, agingPressure, promotions, demotions,
		ageOuts, burstRate,
	}
	for _, g := range pathGauges {
		collectors = append(collectors, g)
	}
	prometheus.MustRegister(collectors...)
}

// Enable configures the module. Safe to call multiple times.
func Enable(cfg Config) {
	modEnabled.Store(cfg.Enabled)
	if cfg.Enabled && cfg.MetricsAddr != "" {
		startMetricsEndpoint(cfg.MetricsAddr)
	}
}

// Enabled reports whether telemetry is active.
func Enabled() bool { return modEnabled.Load() }

func startMetricsEndpoint(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = server.ListenAndServe()
	}()
}

// Sync pushes current engine state into the registered gauges. No-op when
// disabled, so it is safe to call unconditionally from the packet loop.
func Sync(pathCounts [flow.NumPaths]uint64, tbl *flowtable.Table, model *classifier.Model, cache *classifier.PredictionCache, am *aging.Manager, bd *burst.Detector) {
	if !modEnabled.Load() {
		return
	}
	for p := 0; p < flow.NumPaths; p++ {
		pathGauges[p].Set(float64(pathCounts[p]))
	}

	hits, misses := tbl.FastCacheStats()
	if total := hits + misses; total > 0 {
		fastCacheHitRate.Set(float64(hits) / float64(total))
	}
	hashCollisions.Set(float64(tbl.HashCollisions()))

	snap := model.Snapshot()
	classifierAccuracy.Set(snap.Accuracy)
	classifierLearningRate.Set(snap.LearningRate)
	predictionCacheHitRate.Set(cache.HitRate())

	memoryUtilisation.Set(am.MemoryUtilisation())
	agingPressure.Set(am.AgingPressure())
	promotions.Set(float64(am.Promotions()))
	demotions.Set(float64(am.Demotions()))
	ageOuts.Set(float64(am.AgeOuts()))
	burstRate.Set(bd.CurrentRate())
}
