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

// Command flowplane replays a packet-key dataset through the adaptive flow
// classification engine and prints an end-of-run report (§6).
//
// Usage:
//
//	flowplane [flags] [dataset.txt]
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"flowplane/internal/clock"
	"flowplane/internal/config"
	"flowplane/internal/engine"
	"flowplane/internal/input"
	"flowplane/internal/telemetry"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("flowplane", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	metricsEnabled := fs.Bool("metrics", false, "expose Prometheus metrics while running")
	metricsAddr := fs.String("metrics-addr", ":9090", "listen address for the /metrics endpoint")
	reportPath := fs.String("report", "", "path to write the end-of-run report to (default: stdout)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: flowplane [flags] [dataset.txt]\n\n")
		fmt.Fprintf(os.Stderr, "Replays a packet-key dataset through the flow classification engine\n")
		fmt.Fprintf(os.Stderr, "and prints an end-of-run report. With no argument, reads dataset.txt.\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 1
	}

	rest := fs.Args()
	if len(rest) > 1 {
		fmt.Fprintf(os.Stderr, "flowplane: too many arguments\n")
		fs.Usage()
		return 1
	}

	path := "dataset.txt"
	if len(rest) == 1 {
		path = rest[0]
	}

	ds, err := input.Load(path)
	if err != nil {
		log.Printf("flowplane: %v", err)
		return 1
	}

	telemetry.Enable(telemetry.Config{Enabled: *metricsEnabled, MetricsAddr: *metricsAddr})

	cfg := config.Default()
	p := engine.New(cfg, clock.Real{})

	p.LoadKnownStream(ds.KnownStream())

	start := time.Now()
	p.ProcessStream(ds.PacketStream(), func() {
		if *metricsEnabled {
			telemetry.Sync(p.Stats.PathCounts(), p.Table, p.Model, p.Cache, p.Aging, p.Burst)
		}
	})
	elapsed := time.Since(start)

	out := os.Stdout
	if *reportPath != "" {
		f, err := os.Create(*reportPath)
		if err != nil {
			log.Printf("flowplane: %v", err)
			return 1
		}
		defer f.Close()
		out = f
	}

	p.Stats.Report(out, p.Table, p.Model, p.Cache, p.Aging, p.Burst,
		time.Now(), elapsed, len(ds.KnownKeys), len(ds.Packets), ds.KeyRange)

	return 0
}
