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

package sketch

// seeds are fixed 32-bit mixing constants, one per sketch row. They are
// XORed into the key before hashing so the three rows address independent
// counter sequences for the same key.
var seeds = [3]uint32{0x9e3779b9, 0x85ebca6b, 0xc2b2ae35}

// CountMin is a fixed-width, fixed-depth Count-Min Sketch: Rows independent
// counter rows of Width counters each. It never shrinks or clears during a
// run — counts are monotone non-decreasing for the process lifetime.
type CountMin struct {
	rows    int
	width   int
	mask    uint32
	seeds   []uint32
	counts  []uint32 // rows*width flattened, row-major
}

// New builds a CountMin sketch with the given row/width dimensions. width
// must be a power of two; the caller is expected to have run it through
// config.Engine.Validate beforehand.
func New(rows, width int) *CountMin {
	if rows <= 0 {
		rows = 1
	}
	if width <= 0 {
		width = 1
	}
	s := make([]uint32, rows)
	for i := 0; i < rows; i++ {
		if i < len(seeds) {
			s[i] = seeds[i]
		} else {
			// Derive additional seeds deterministically if ever asked for
			// more rows than the fixed constants above.
			s[i] = Mix32(uint32(i)*0x2545F491 + 0x9e3779b9)
		}
	}
	return &CountMin{
		rows:   rows,
		width:  width,
		mask:   uint32(width - 1),
		seeds:  s,
		counts: make([]uint32, rows*width),
	}
}

// Update increments one counter per row at hash(key XOR seed_i) mod width,
// and returns the post-update minimum across rows — the caller's best
// current estimate of the key's frequency.
func (c *CountMin) Update(key uint32) uint32 {
	min := ^uint32(0)
	for r := 0; r < c.rows; r++ {
		idx := r*c.width + int(Mix32(key^c.seeds[r])&c.mask)
		c.counts[idx]++
		if c.counts[idx] < min {
			min = c.counts[idx]
		}
	}
	return min
}

// Query returns the minimum of the three row counters for key without
// mutating the sketch.
func (c *CountMin) Query(key uint32) uint32 {
	min := ^uint32(0)
	for r := 0; r < c.rows; r++ {
		idx := r*c.width + int(Mix32(key^c.seeds[r])&c.mask)
		if c.counts[idx] < min {
			min = c.counts[idx]
		}
	}
	return min
}
