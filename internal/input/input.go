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

// Package input reads the packet-key stream the pipeline consumes (§6): a
// finite, ordered sequence of 32-bit keys, preceded by a prelude of
// pre-populated known flows. The reference source format is a text file;
// Slice offers an equivalent in-memory source for tests.
package input

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"flowplane/internal/flow"
)

// FormatError reports a malformed input file, naming the offending file and
// record index (§7).
type FormatError struct {
	Path string
	Line int
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// Dataset is a fully-loaded input: the pre-populated known-flow prelude and
// the packet-key stream that follows it, plus the header's declared key
// range.
type Dataset struct {
	KnownKeys  []flow.Key
	Packets    []flow.Key
	KeyRange   int
}

// Stream iterates a sequence of flow keys.
type Stream interface {
	// Next returns the next key and true, or (0, false) at end of stream.
	Next() (flow.Key, bool)
}

// KnownStream returns a Stream over the dataset's pre-populated known-flow
// prelude, in file order.
func (ds *Dataset) KnownStream() Stream {
	return NewSlice(ds.KnownKeys)
}

// PacketStream returns a Stream over the dataset's packet-key sequence, in
// file order. This is the Stream the engine actually consumes (§6); the
// underlying slice is never exposed to callers that only need to replay it.
func (ds *Dataset) PacketStream() Stream {
	return NewSlice(ds.Packets)
}

// Slice is an in-memory Stream, for tests and synthetic runs.
type Slice struct {
	keys []flow.Key
	pos  int
}

// NewSlice wraps keys as a Stream.
func NewSlice(keys []flow.Key) *Slice {
	return &Slice{keys: keys}
}

// Next implements Stream.
func (s *Slice) Next() (flow.Key, bool) {
	if s.pos >= len(s.keys) {
		return 0, false
	}
	k := s.keys[s.pos]
	s.pos++
	return k, true
}

// Load reads the reference text format from path (§6): a header line
// `KNOWN_COUNT NUM_PACKETS IP_RANGE`, KNOWN_COUNT known-key lines, then
// NUM_PACKETS packet-key lines. It fails fatally on any malformed or short
// input, per §7's input-format error policy.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FormatError{Path: path, Line: 0, Err: err}
	}
	defer f.Close()
	return load(path, f)
}

func load(path string, r io.Reader) (*Dataset, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	line := 0
	nextLine := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		line++
		return sc.Text(), true
	}

	header, ok := nextLine()
	if !ok {
		return nil, &FormatError{Path: path, Line: line, Err: fmt.Errorf("missing header line")}
	}
	fields := strings.Fields(header)
	if len(fields) != 3 {
		return nil, &FormatError{Path: path, Line: line, Err: fmt.Errorf("expected 3 fields KNOWN_COUNT NUM_PACKETS IP_RANGE, got %d", len(fields))}
	}
	knownCount, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, &FormatError{Path: path, Line: line, Err: fmt.Errorf("invalid KNOWN_COUNT: %w", err)}
	}
	numPackets, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, &FormatError{Path: path, Line: line, Err: fmt.Errorf("invalid NUM_PACKETS: %w", err)}
	}
	keyRange, err := strconv.Atoi(fields[2])
	if err != nil {
		return nil, &FormatError{Path: path, Line: line, Err: fmt.Errorf("invalid IP_RANGE: %w", err)}
	}
	if knownCount < 0 || numPackets < 0 {
		return nil, &FormatError{Path: path, Line: line, Err: fmt.Errorf("negative counts in header")}
	}

	ds := &Dataset{KeyRange: keyRange}
	ds.KnownKeys = make([]flow.Key, 0, knownCount)
	for i := 0; i < knownCount; i++ {
		s, ok := nextLine()
		if !ok {
			return nil, &FormatError{Path: path, Line: line, Err: fmt.Errorf("short known-key section: expected %d, got %d", knownCount, i)}
		}
		k, err := parseKey(s)
		if err != nil {
			return nil, &FormatError{Path: path, Line: line, Err: err}
		}
		ds.KnownKeys = append(ds.KnownKeys, k)
	}

	ds.Packets = make([]flow.Key, 0, numPackets)
	for i := 0; i < numPackets; i++ {
		s, ok := nextLine()
		if !ok {
			return nil, &FormatError{Path: path, Line: line, Err: fmt.Errorf("short packet section: expected %d, got %d", numPackets, i)}
		}
		k, err := parseKey(s)
		if err != nil {
			return nil, &FormatError{Path: path, Line: line, Err: err}
		}
		ds.Packets = append(ds.Packets, k)
	}

	if err := sc.Err(); err != nil {
		return nil, &FormatError{Path: path, Line: line, Err: err}
	}
	return ds, nil
}

func parseKey(s string) (flow.Key, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid key %q: %w", s, err)
	}
	return flow.Key(v), nil
}
