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

// Package clock abstracts the monotonic wall clock the engine consults so
// that aging and burst-detection tests can advance simulated time without
// sleeping.
package clock

import "time"

// Clock returns the current time. Real is the default; tests substitute Sim.
type Clock interface {
	Now() time.Time
}

// Real delegates to time.Now.
type Real struct{}

// Now implements Clock.
func (Real) Now() time.Time { return time.Now() }

// Sim is a manually-advanced clock for deterministic tests.
type Sim struct {
	t time.Time
}

// NewSim returns a simulated clock starting at t0.
func NewSim(t0 time.Time) *Sim { return &Sim{t: t0} }

// Now implements Clock.
func (s *Sim) Now() time.Time { return s.t }

// Advance moves the simulated clock forward by d.
func (s *Sim) Advance(d time.Duration) { s.t = s.t.Add(d) }

// Set pins the simulated clock to t.
func (s *Sim) Set(t time.Time) { s.t = t }
