package audit_test

import (
	"context"
	"testing"
	"time"

	"crewcal/internal/audit"
)

func openLog(t *testing.T) *audit.Log {
	t.Helper()
	log, err := audit.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open audit: %v", err)
	}
	t.Cleanup(func() { log.Close() })
	log.Now = func() time.Time { return time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC) }
	return log
}

func TestAppendAndTail(t *testing.T) {
	log := openLog(t)
	ctx := context.Background()

	if err := log.Append(ctx, "event.added", "event", "ev-1", 1, map[string]any{"name": "Launch"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := log.Append(ctx, "task.progress", "task", "tk-1", 42, nil); err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, err := log.Tail(ctx, 10)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// Newest first.
	if entries[0].Action != "task.progress" || entries[0].ActorID != 42 {
		t.Fatalf("unexpected head entry: %+v", entries[0])
	}
	if entries[1].EntityID != "ev-1" || entries[1].TS != "2026-02-15T10:00:00Z" {
		t.Fatalf("unexpected tail entry: %+v", entries[1])
	}
	if entries[0].Payload != "{}" {
		t.Fatalf("nil payload must serialize as {}: %q", entries[0].Payload)
	}
}

func TestTailLimit(t *testing.T) {
	log := openLog(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := log.Append(ctx, "task.progress", "task", "", 1, nil); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := log.Tail(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("limit ignored: %d", len(entries))
	}
}

func TestNilLogIsNoOp(t *testing.T) {
	var log *audit.Log
	if err := log.Append(context.Background(), "x", "y", "", 0, nil); err != nil {
		t.Fatalf("nil append: %v", err)
	}
	entries, err := log.Tail(context.Background(), 5)
	if err != nil || entries != nil {
		t.Fatalf("nil tail: %v %v", entries, err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
}
