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

// ApplyTypeTransitions runs the four first-match-wins flow-type rules
// (§4.7) after a packet's counters and pattern have been updated. Only the
// first matching rule applies per call.
func (r *Record) ApplyTypeTransitions() {
	switch {
	case r.PacketCount > 800 && r.FlowType != Large:
		r.TransitionTo(Large)
		r.Aging.Strategy = Adaptive
	case r.Pattern.BurstScore > 0.6 && r.Hits > 10 && r.FlowType != Bursty && r.FlowType != Promoted:
		r.TransitionTo(Bursty)
		r.Aging.Strategy = Linear
	case r.PacketCount < 10 && r.Hits < 5:
		r.TransitionTo(Micro)
		r.Aging.Strategy = Aggressive
	case r.Pattern.Filled() && r.Pattern.PathConsistency < 0.3 && r.Hits > 8 && r.FlowType != Suspected:
		r.TransitionTo(Suspected)
	}
}

// ApplyBurstPromotion implements the promotion rule gated by burst
// detection (§4.7, §4.9): during a current burst, a sufficiently confident
// and consistent flow is promoted, with two tiers of reward.
func (r *Record) ApplyBurstPromotion(burstActive bool, mlScore float64) {
	if !burstActive {
		return
	}
	switch {
	case mlScore >= 0.75 && r.Pattern.ConsecutiveFastPaths >= 3:
		r.SetConfidence(85)
		r.TransitionTo(Promoted)
	case mlScore >= 0.55 && r.Pattern.ConsecutiveFastPaths >= 2:
		r.SetConfidence(60)
		r.TransitionTo(Bursty)
	}
}
