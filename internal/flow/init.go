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

package flow

import "time"

// InitNew populates r as a brand-new flow admitted from the packet stream
// (§4.6). The caller has already zeroed and bump-allocated the slot.
func (r *Record) InitNew(key Key, now time.Time) {
	r.Key = key
	r.Confidence = 35
	r.Hits = 1
	r.PacketCount = 1
	r.FirstSeen = now
	r.LastSeen = now
	r.FlowType = Normal
	r.PreviousType = Normal
	r.Pattern = Pattern{PathConsistency: 1.0, BurstScore: 0.0}
	r.Aging = Aging{CreatedAt: now, LastAccess: now, Strategy: Exponential, Multiplier: 1.0}
	r.CacheHits = 0
	r.PromotionScore = 100
	r.live = true
}

// InitKnown populates r as a pre-populated, already-known flow loaded before
// the packet stream begins (§4.6).
func (r *Record) InitKnown(key Key, now time.Time) {
	r.Key = key
	r.Confidence = 75
	r.Hits = 12
	r.PacketCount = 15
	r.FirstSeen = now
	r.LastSeen = now
	r.FlowType = Large
	r.PreviousType = Large
	r.Pattern = Pattern{PathConsistency: 0.85, BurstScore: 0.15, ConsecutiveFastPaths: 5}
	r.Aging = Aging{CreatedAt: now, LastAccess: now, Strategy: Adaptive, Multiplier: 1.0}
	r.CacheHits = 0
	r.PromotionScore = 800
	r.live = true
}
