// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatapi

import (
	"context"
	"io"
	"strings"
	"testing"
)

// chunkedReader delivers its chunks one per Read call, so line boundaries
// never align with read boundaries unless the chunks say so.
type chunkedReader struct {
	chunks []string
	index  int
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if r.index >= len(r.chunks) {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[r.index])
	r.index++
	return n, nil
}

func collectEvents(t *testing.T, reader *StreamReader) []Event {
	t.Helper()
	var events []Event
	for {
		ev, err := reader.Next()
		if err == io.EOF {
			return events
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		events = append(events, ev)
	}
}

// =============================================================================
// DECODING TESTS
// =============================================================================

func TestStreamReaderBasic(t *testing.T) {
	input := "data: {\"type\":\"content\",\"content\":\"Hello\"}\n" +
		"data: {\"type\":\"content\",\"content\":\" world\"}\n" +
		"data: {\"type\":\"end\"}\n"

	reader := NewStreamReader(strings.NewReader(input))
	events := collectEvents(t, reader)

	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events))
	}
	if events[0].Type != EventContent || events[0].Content != "Hello" {
		t.Errorf("Unexpected first event: %+v", events[0])
	}
	if events[1].Content != " world" {
		t.Errorf("Unexpected second event: %+v", events[1])
	}
	if events[2].Type != EventEnd {
		t.Errorf("Expected end event, got %+v", events[2])
	}
	if reader.Accumulated() != "Hello world" {
		t.Errorf("Accumulated = %q, want %q", reader.Accumulated(), "Hello world")
	}
}

func TestStreamReaderChunkBoundaries(t *testing.T) {
	// A frame split mid-JSON across three network reads must decode as one
	// event once its newline arrives.
	reader := NewStreamReader(&chunkedReader{chunks: []string{
		"data: {\"type\":\"con",
		"tent\",\"content\":\"Hel",
		"lo\"}\ndata: {\"type\":\"end\"}\n",
	}})

	events := collectEvents(t, reader)
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].Content != "Hello" {
		t.Errorf("Reassembled content = %q, want %q", events[0].Content, "Hello")
	}
	if events[1].Type != EventEnd {
		t.Errorf("Expected end event, got %+v", events[1])
	}
}

func TestStreamReaderSkipsMalformedFrames(t *testing.T) {
	input := "data: {\"type\":\"content\",\"content\":\"A\"}\n" +
		"data: {not json at all\n" +
		"data: {\"type\":\"content\",\"content\":\"B\"}\n" +
		"data: {\"type\":\"end\"}\n"

	reader := NewStreamReader(strings.NewReader(input))
	events := collectEvents(t, reader)

	if len(events) != 3 {
		t.Fatalf("Expected 3 events (malformed frame skipped), got %d", len(events))
	}
	if reader.Accumulated() != "AB" {
		t.Errorf("Accumulated = %q, want %q", reader.Accumulated(), "AB")
	}
}

func TestStreamReaderSkipsUnknownTypes(t *testing.T) {
	input := "data: {\"type\":\"function_call\",\"name\":\"calculator\"}\n" +
		"data: {\"type\":\"function_result\",\"result\":\"4\"}\n" +
		"data: {\"type\":\"content\",\"content\":\"2+2=4\"}\n" +
		"data: {\"type\":\"end\"}\n"

	reader := NewStreamReader(strings.NewReader(input))
	events := collectEvents(t, reader)

	if len(events) != 2 {
		t.Fatalf("Expected 2 events (auxiliary frames skipped), got %d", len(events))
	}
	if events[0].Content != "2+2=4" {
		t.Errorf("Content = %q", events[0].Content)
	}
}

func TestStreamReaderSkipsBlankAndNonDataLines(t *testing.T) {
	input := "\n" +
		": keepalive comment\n" +
		"data: {\"type\":\"content\",\"content\":\"X\"}\n" +
		"\n" +
		"data: {\"type\":\"end\"}\n"

	reader := NewStreamReader(strings.NewReader(input))
	events := collectEvents(t, reader)

	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
}

func TestStreamReaderDiscardsTrailingPartialLine(t *testing.T) {
	// A truncated final frame (no newline) must not be emitted.
	input := "data: {\"type\":\"content\",\"content\":\"ok\"}\n" +
		"data: {\"type\":\"content\",\"content\":\"trunc"

	reader := NewStreamReader(strings.NewReader(input))
	events := collectEvents(t, reader)

	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if reader.Accumulated() != "ok" {
		t.Errorf("Accumulated = %q, want %q", reader.Accumulated(), "ok")
	}
}

func TestStreamReaderStopsAfterError(t *testing.T) {
	// Frames after an error event are never delivered.
	input := "data: {\"type\":\"content\",\"content\":\"partial\"}\n" +
		"data: {\"type\":\"error\",\"error\":\"model overloaded\"}\n" +
		"data: {\"type\":\"content\",\"content\":\"ghost\"}\n"

	reader := NewStreamReader(strings.NewReader(input))
	events := collectEvents(t, reader)

	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	last := events[len(events)-1]
	if last.Type != EventError || last.Error != "model overloaded" {
		t.Errorf("Unexpected terminal event: %+v", last)
	}
}

func TestStreamReaderCRLF(t *testing.T) {
	input := "data: {\"type\":\"content\",\"content\":\"win\"}\r\n" +
		"data: {\"type\":\"end\"}\r\n"

	reader := NewStreamReader(strings.NewReader(input))
	events := collectEvents(t, reader)

	if len(events) != 2 || events[0].Content != "win" {
		t.Fatalf("CRLF stream mis-decoded: %+v", events)
	}
}

func TestStreamReaderTurkishContent(t *testing.T) {
	input := "data: {\"type\":\"content\",\"content\":\"Merhaba, İstanbul'a hoş geldiniz\"}\n" +
		"data: {\"type\":\"end\"}\n"

	reader := NewStreamReader(strings.NewReader(input))
	events := collectEvents(t, reader)

	if events[0].Content != "Merhaba, İstanbul'a hoş geldiniz" {
		t.Errorf("Unicode content mangled: %q", events[0].Content)
	}
}

// =============================================================================
// PROCESS TESTS
// =============================================================================

func TestProcessDeliversInOrder(t *testing.T) {
	input := "data: {\"type\":\"content\",\"content\":\"1\"}\n" +
		"data: {\"type\":\"content\",\"content\":\"2\"}\n" +
		"data: {\"type\":\"content\",\"content\":\"3\"}\n" +
		"data: {\"type\":\"end\"}\n"

	var got []string
	reader := NewStreamReader(strings.NewReader(input))
	err := reader.Process(context.Background(), func(ev Event) {
		if ev.Type == EventContent {
			got = append(got, ev.Content)
		}
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if strings.Join(got, "") != "123" {
		t.Errorf("Deltas out of order: %v", got)
	}
}

func TestProcessRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := NewStreamReader(strings.NewReader("data: {\"type\":\"end\"}\n"))
	err := reader.Process(ctx, func(Event) {})
	if err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

// =============================================================================
// ACCUMULATOR TESTS
// =============================================================================

func TestAccumulatorCollectsContent(t *testing.T) {
	acc := NewStreamAccumulator()
	acc.Add(Event{Type: EventContent, Content: "He"})
	acc.Add(Event{Type: EventContent, Content: "llo"})
	acc.Add(Event{Type: EventEnd})

	if acc.Content() != "Hello" {
		t.Errorf("Content = %q, want %q", acc.Content(), "Hello")
	}
	if !acc.IsDone() {
		t.Error("Expected accumulator to be done")
	}
	if acc.ErrorMessage() != "" {
		t.Errorf("Unexpected error message: %q", acc.ErrorMessage())
	}
}

func TestAccumulatorRecordsError(t *testing.T) {
	acc := NewStreamAccumulator()
	acc.Add(Event{Type: EventContent, Content: "partial"})
	acc.Add(Event{Type: EventError, Error: "backend failure"})
	acc.Add(Event{Type: EventContent, Content: "ignored"})

	if acc.ErrorMessage() != "backend failure" {
		t.Errorf("ErrorMessage = %q", acc.ErrorMessage())
	}
	if acc.Content() != "partial" {
		t.Errorf("Content after error = %q, want %q", acc.Content(), "partial")
	}
}
