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

// Package sketch provides the 32-bit key mixer and Count-Min Sketch the
// engine uses to approximate per-key arrival frequency ahead of any flow
// record existing.
package sketch

// Mix32 is the deterministic 32-bit finalizer every hash-derived index in
// the engine is built from (flow-pool bucket, fast-cache slot, sketch row
// offsets, prediction-cache slot). It is Murmur3's 32-bit finalizer; no
// general-purpose hash library in the example pack implements this exact
// bit-mixing sequence, and the spec requires it verbatim.
func Mix32(k uint32) uint32 {
	k ^= k >> 16
	k *= 0x85ebca6b
	k ^= k >> 13
	k *= 0xc2b2ae35
	k ^= k >> 16
	return k
}
