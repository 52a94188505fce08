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

package burst

import "testing"

func TestNoBurstAtSteadyOnePerSecond(t *testing.T) {
	d := New(100)
	for sec := int64(0); sec < 50; sec++ {
		d.Observe(sec)
		if d.Active() {
			t.Fatalf("unexpected burst at steady 1 pkt/s, second %d", sec)
		}
	}
}

func TestBurstDeclaredAboveRateAndFloor(t *testing.T) {
	d := New(100)
	// Establish a low baseline rate across several seconds.
	for sec := int64(0); sec < 10; sec++ {
		d.Observe(sec)
	}
	// A single wall-second with 200 packets should exceed both 2x the
	// established rate and the absolute floor of 100.
	sec := int64(10)
	for i := 0; i < 200; i++ {
		d.Observe(sec)
	}
	if !d.Active() {
		t.Fatalf("expected burst to be active after 200 packets in one second")
	}
}

func TestBurstRequiresAbsoluteFloorEvenWithHighRate(t *testing.T) {
	d := New(100)
	// Establish a baseline rate of 40/s, then send a second whose count
	// clears 2x that rate but stays under 100: only the absolute floor can
	// keep the burst from being declared.
	for sec := int64(0); sec < 5; sec++ {
		for i := 0; i < 40; i++ {
			d.Observe(sec)
		}
	}
	sec := int64(5)
	for i := 0; i < 90; i++ { // > 2x a rate of 40, and < 100 floor
		d.Observe(sec)
	}
	if d.Active() {
		t.Fatalf("expected no burst below the absolute floor of 100")
	}
}

func TestCurrentRateReflectsRingMean(t *testing.T) {
	d := New(4)
	for sec := int64(0); sec < 4; sec++ {
		for i := 0; i < 10; i++ {
			d.Observe(sec)
		}
	}
	d.Observe(4) // rolls the 4th second's count of 10 into the ring
	if rate := d.CurrentRate(); rate != 10 {
		t.Fatalf("expected ring mean of 10, got %f", rate)
	}
}
