package log

import (
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"
)

func writeCapture(t *testing.T, events []Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.lglog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create capture: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()
	return path
}

func readAll(t *testing.T, path string, filter Filter) []Event {
	t.Helper()
	reader, err := NewFilteredReader(path, filter)
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer reader.Close()

	var out []Event
	for {
		ev, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		out = append(out, ev)
	}
}

func TestReaderIteratesInOrder(t *testing.T) {
	path := writeCapture(t, []Event{
		{Timestamp: time.Now(), ConnectionID: "conn-1"},
		{Timestamp: time.Now(), ConnectionID: "conn-2"},
		{Timestamp: time.Now(), ConnectionID: "conn-3"},
	})

	got := readAll(t, path, Filter{})
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	if got[0].ConnectionID != "conn-1" || got[2].ConnectionID != "conn-3" {
		t.Errorf("order = %q..%q", got[0].ConnectionID, got[2].ConnectionID)
	}
}

func TestReaderEmptyFile(t *testing.T) {
	path := writeCapture(t, nil)
	if got := readAll(t, path, Filter{}); len(got) != 0 {
		t.Errorf("got %d events from empty capture", len(got))
	}
}

func TestReaderFilters(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	out := DirectionOut
	state := CategoryState
	path := writeCapture(t, []Event{
		{Timestamp: base, ConnectionID: "a", Direction: DirectionOut, Category: CategoryMessage, DeviceName: "LGC1",
			Message: &MessageEvent{Type: "register", ID: "register_0"}},
		{Timestamp: base.Add(time.Second), ConnectionID: "a", Direction: DirectionIn, Category: CategoryMessage, DeviceName: "LGC1",
			Message: &MessageEvent{Type: "registered", ID: "register_0"}},
		{Timestamp: base.Add(2 * time.Second), ConnectionID: "b", Direction: DirectionIn, Category: CategoryState, DeviceName: "Bedroom",
			StateChange: &StateChangeEvent{Entity: StateEntityConnection, NewState: "READY"}},
	})

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"connection", Filter{ConnectionID: "a"}, 2},
		{"direction", Filter{Direction: &out}, 1},
		{"category", Filter{Category: &state}, 1},
		{"device", Filter{DeviceName: "Bedroom"}, 1},
		{"message type", Filter{MessageType: "registered"}, 1},
		{"time window", Filter{TimeStart: ptr(base.Add(time.Second)), TimeEnd: ptr(base.Add(2 * time.Second))}, 1},
		{"combined", Filter{ConnectionID: "a", Direction: &out}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := readAll(t, path, tt.filter); len(got) != tt.want {
				t.Errorf("got %d events, want %d", len(got), tt.want)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }
