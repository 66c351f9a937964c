// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatapi

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
)

// dataPrefix marks a line that carries an event frame. Lines without it
// (blank separators, comments) are skipped.
const dataPrefix = "data: "

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader decodes the backend's newline-delimited event stream into
// typed events. Chunk boundaries need not align with line boundaries: the
// underlying bufio.Reader carries the trailing incomplete line across reads,
// and a partial line left at EOF is discarded, never emitted.
type StreamReader struct {
	reader *bufio.Reader
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	accumulator strings.Builder
	done        bool
}

// NewStreamReader creates a stream reader over an arbitrary byte source.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{reader: bufio.NewReader(r)}
}

// Next returns the next decoded event. It returns io.EOF once the source is
// exhausted or a terminal event (error or end) has been delivered. Malformed
// frames and unknown discriminants are skipped, not surfaced.
func (s *StreamReader) Next() (Event, error) {
	if s.done {
		return Event{}, io.EOF
	}

	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			// A trailing partial line is discarded by design: without its
			// newline the frame may be incomplete, so it is never emitted.
			s.done = true
			if err == io.EOF {
				return Event{}, io.EOF
			}
			return Event{}, err
		}

		ev, ok := s.decodeLine(strings.TrimRight(line, "\r\n"))
		if !ok {
			continue
		}

		if ev.Type == EventError || ev.Type == EventEnd {
			s.done = true
		}
		return ev, nil
	}
}

// decodeLine parses one complete line into an event. It reports false for
// blank separators, non-data lines, malformed payloads, and unknown types.
func (s *StreamReader) decodeLine(line string) (Event, bool) {
	if line == "" || !strings.HasPrefix(line, dataPrefix) {
		return Event{}, false
	}

	var frame eventFrame
	if err := json.Unmarshal([]byte(line[len(dataPrefix):]), &frame); err != nil {
		// One bad frame must not abort the whole stream.
		slog.Warn("skipping malformed stream frame", "line", line, "error", err)
		return Event{}, false
	}

	switch EventType(frame.Type) {
	case EventContent:
		s.accumulator.WriteString(frame.Content)
		return Event{Type: EventContent, Content: frame.Content}, true
	case EventError:
		return Event{Type: EventError, Error: frame.Error}, true
	case EventEnd:
		return Event{Type: EventEnd}, true
	default:
		slog.Debug("skipping stream frame with unknown type", "type", frame.Type)
		return Event{}, false
	}
}

// Process reads the stream to completion and calls the callback for each
// event, in arrival order. It returns nil on graceful exhaustion (end event
// or EOF) and stops early when the context is cancelled.
func (s *StreamReader) Process(ctx context.Context, callback func(Event)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ev, err := s.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		callback(ev)
		if ev.Type == EventError || ev.Type == EventEnd {
			return nil
		}
	}
}

// Accumulated returns all content deltas decoded so far, concatenated.
func (s *StreamReader) Accumulated() string {
	return s.accumulator.String()
}

// =============================================================================
// STREAM ACCUMULATOR
// =============================================================================

// StreamAccumulator collects events into the final bot reply. It records the
// first terminal condition it sees: an error event, or graceful completion.
type StreamAccumulator struct {
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	content strings.Builder
	done    bool
	errMsg  string
}

// NewStreamAccumulator creates an empty accumulator.
func NewStreamAccumulator() *StreamAccumulator {
	return &StreamAccumulator{}
}

// Add processes one event.
func (a *StreamAccumulator) Add(ev Event) {
	if a.done {
		return
	}
	switch ev.Type {
	case EventContent:
		a.content.WriteString(ev.Content)
	case EventError:
		a.errMsg = ev.Error
		a.done = true
	case EventEnd:
		a.done = true
	}
}

// Content returns the accumulated bot reply.
func (a *StreamAccumulator) Content() string {
	return a.content.String()
}

// IsDone reports whether a terminal event has been seen.
func (a *StreamAccumulator) IsDone() bool {
	return a.done
}

// ErrorMessage returns the backend error message, or "" if none occurred.
func (a *StreamAccumulator) ErrorMessage() string {
	return a.errMsg
}
