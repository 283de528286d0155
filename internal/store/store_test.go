package store_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"crewcal/internal/domain"
	"crewcal/internal/store"
)

func TestOpenCreatesEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	s, err := store.Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	events, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("fresh store must be empty, got %d", len(events))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	event, err := domain.NewEvent("Launch", "2026-03-01", "2026-03-02", "Organizadora", "ICMC", "")
	if err != nil {
		t.Fatal(err)
	}
	task, err := domain.NewTask("Divulgar", "marketing", "2026-02-15", "posts", []string{"Canva"}, []int64{42})
	if err != nil {
		t.Fatal(err)
	}
	event.Tasks = []domain.Task{task}
	event.RemindedFor.Add("2026-03-01")
	if err := s.Save([]domain.Event{event}); err != nil {
		t.Fatalf("save: %v", err)
	}

	events, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(events) != 1 || events[0].ID != event.ID {
		t.Fatalf("round trip mismatch: %+v", events)
	}
	got := events[0].Tasks[0]
	if got.ID != task.ID || got.Title != "Divulgar" || got.AssigneeIDs[0] != 42 {
		t.Fatalf("task mismatch: %+v", got)
	}
	if !events[0].RemindedFor.Has("2026-03-01") {
		t.Fatalf("reminder keys lost")
	}
}

func TestLoadAssignsMissingIDs(t *testing.T) {
	dir := t.TempDir()
	legacy := `[
	  {
	    "name": "Launch",
	    "start_date": "2026-03-01",
	    "end_date": "2026-03-02",
	    "tasks": [
	      {"title": "Divulgar", "area": "marketing", "due_date": "2026-02-15", "assignee_ids": [42]}
	    ]
	  }
	]`
	if err := os.WriteFile(filepath.Join(dir, "events.json"), []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := store.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	events, err := s.Load()
	if err != nil {
		t.Fatalf("load legacy: %v", err)
	}
	if events[0].ID == "" || events[0].Tasks[0].ID == "" {
		t.Fatalf("legacy entities must get ids assigned: %+v", events[0])
	}
}

func TestLoadRejectsCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "events.json"), []byte(`[{"name":""}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	s := &store.Store{Path: filepath.Join(dir, "events.json")}
	if _, err := s.Load(); err == nil || !strings.Contains(err.Error(), "decode") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestSeedIfEmpty(t *testing.T) {
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	seeded, err := s.SeedIfEmpty()
	if err != nil || !seeded {
		t.Fatalf("first seed: seeded=%v err=%v", seeded, err)
	}
	events, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 4 {
		t.Fatalf("expected the 2026 calendar, got %d events", len(events))
	}

	seeded, err = s.SeedIfEmpty()
	if err != nil || seeded {
		t.Fatalf("second seed must be a no-op: seeded=%v err=%v", seeded, err)
	}
}
