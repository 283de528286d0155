package reminder_test

import (
	"testing"

	"crewcal/internal/domain"
	"crewcal/internal/reminder"
	"crewcal/internal/store"
)

func date(t *testing.T, s string) domain.Date {
	t.Helper()
	d, err := domain.ParseDate(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func fixture(t *testing.T) []domain.Event {
	t.Helper()
	event, err := domain.NewEvent("Launch", "2026-03-01", "2026-03-02", "", "", "")
	if err != nil {
		t.Fatal(err)
	}
	task, err := domain.NewTask("Divulgar", "marketing", "2026-03-01", "", nil, []int64{42})
	if err != nil {
		t.Fatal(err)
	}
	event.Tasks = []domain.Task{task}
	return []domain.Event{event}
}

func TestTarget(t *testing.T) {
	got := reminder.Target(date(t, "2026-02-15"))
	if got.String() != "2026-03-01" {
		t.Fatalf("target: %s", got)
	}
}

func TestScanMarksKeysInPlace(t *testing.T) {
	events := fixture(t)
	target := date(t, "2026-03-01")

	due := reminder.Scan(events, target)
	if len(due) != 2 {
		t.Fatalf("expected event + task reminder, got %d", len(due))
	}
	if due[0].Kind != reminder.KindEvent || due[0].Key != "2026-03-01" {
		t.Fatalf("event reminder: %+v", due[0])
	}
	if due[1].Kind != reminder.KindTask || due[1].Key != "task::Divulgar::2026-03-01" {
		t.Fatalf("task reminder: %+v", due[1])
	}
	if !events[0].RemindedFor.Has(due[0].Key) || !events[0].RemindedFor.Has(due[1].Key) {
		t.Fatalf("keys not recorded on the event: %+v", events[0].RemindedFor)
	}

	// Second scan over the mutated slice is silent.
	if again := reminder.Scan(events, target); len(again) != 0 {
		t.Fatalf("recorded keys must not fire again: %+v", again)
	}
}

func TestScanSkipsDoneAndOffTargetTasks(t *testing.T) {
	events := fixture(t)
	events[0].Tasks[0].Done = true
	due := reminder.Scan(events, date(t, "2026-03-01"))
	if len(due) != 1 || due[0].Kind != reminder.KindEvent {
		t.Fatalf("done task must be skipped: %+v", due)
	}

	events = fixture(t)
	if due := reminder.Scan(events, date(t, "2026-03-05")); len(due) != 0 {
		t.Fatalf("off-target dates must not remind: %+v", due)
	}
}

func TestScanTaskKeyCollision(t *testing.T) {
	events := fixture(t)
	dup, err := domain.NewTask("Divulgar", "rh", "2026-03-01", "", nil, []int64{7})
	if err != nil {
		t.Fatal(err)
	}
	events[0].Tasks = append(events[0].Tasks, dup)

	// Same title + due date share one key, so only the first task fires.
	due := reminder.Scan(events, date(t, "2026-03-01"))
	taskCount := 0
	for _, r := range due {
		if r.Kind == reminder.KindTask {
			taskCount++
		}
	}
	if taskCount != 1 {
		t.Fatalf("colliding tasks must share reminder state, got %d", taskCount)
	}
}

func TestScanSeedCalendar(t *testing.T) {
	events := store.DefaultCalendar()
	// 2026-02-13 is the Workshop marketing task's due date.
	due := reminder.Scan(events, date(t, "2026-02-13"))
	if len(due) != 1 || due[0].Kind != reminder.KindTask {
		t.Fatalf("expected the workshop marketing reminder: %+v", due)
	}
	if due[0].EventName != "Workshop Mulheres na IA" {
		t.Fatalf("unexpected event: %s", due[0].EventName)
	}
}
