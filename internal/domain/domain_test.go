package domain_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"crewcal/internal/domain"
)

func TestParseArea(t *testing.T) {
	for _, s := range []string{"marketing", " Marketing ", "DIRETORIA", "rh", "financeiro", "Ensino"} {
		if _, err := domain.ParseArea(s); err != nil {
			t.Fatalf("%q should parse: %v", s, err)
		}
	}
	_, err := domain.ParseArea("juridico")
	var vErr domain.ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "area" {
		t.Fatalf("expected area validation error, got %v", err)
	}
}

func TestParseDate(t *testing.T) {
	d, err := domain.ParseDate(" 2026-03-01 ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.String() != "2026-03-01" {
		t.Fatalf("unexpected date %s", d)
	}
	if got := d.AddDays(14).String(); got != "2026-03-15" {
		t.Fatalf("AddDays: %s", got)
	}
	for _, s := range []string{"01/03/2026", "2026-13-01", "soon", ""} {
		if _, err := domain.ParseDate(s); err == nil {
			t.Fatalf("%q should be rejected", s)
		}
	}
}

func TestNewTaskDefaults(t *testing.T) {
	task, err := domain.NewTask("  Divulgar  ", "Marketing", "2026-03-01", " posts ", []string{" Canva ", ""}, []int64{42, 42, 7})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if task.ID == "" {
		t.Fatalf("task must carry an id")
	}
	if task.Title != "Divulgar" || task.Area != domain.AreaMarketing {
		t.Fatalf("unexpected task: %+v", task)
	}
	if !reflect.DeepEqual(task.AssigneeIDs, []int64{42, 7}) {
		t.Fatalf("duplicates must collapse keeping order: %v", task.AssigneeIDs)
	}
	if !reflect.DeepEqual(task.Tools, []string{"Canva"}) {
		t.Fatalf("tools not normalized: %v", task.Tools)
	}
	if task.Progress != 0 || task.Done || task.State() != domain.StateOpen {
		t.Fatalf("new task must be open at 0%%: %+v", task)
	}
}

func TestNewTaskRejectsNonPositiveAssignee(t *testing.T) {
	_, err := domain.NewTask("x", "marketing", "2026-03-01", "", nil, []int64{0})
	var vErr domain.ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "assignee_ids" {
		t.Fatalf("expected assignee validation error, got %v", err)
	}
}

func TestTaskUnmarshalNormalizes(t *testing.T) {
	raw := `{
		"title": "Divulgar",
		"area": "MARKETING",
		"due_date": "2026-03-01",
		"assignee_ids": [42, 42],
		"progress": 250
	}`
	var task domain.Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if task.Progress != 100 {
		t.Fatalf("progress must clamp to 100, got %d", task.Progress)
	}
	if !reflect.DeepEqual(task.AssigneeIDs, []int64{42}) {
		t.Fatalf("assignees: %v", task.AssigneeIDs)
	}
	if task.Area != domain.AreaMarketing {
		t.Fatalf("area: %v", task.Area)
	}
	if task.ReviewerID != nil || task.DeliveryLink != "" {
		t.Fatalf("optional fields must default: %+v", task)
	}
}

func TestTaskUnmarshalRejects(t *testing.T) {
	cases := []struct{ name, raw string }{
		{"unknown area", `{"title":"x","area":"juridico","due_date":"2026-03-01"}`},
		{"empty title", `{"title":" ","area":"marketing","due_date":"2026-03-01"}`},
		{"missing due", `{"title":"x","area":"marketing"}`},
		{"negative assignee", `{"title":"x","area":"marketing","due_date":"2026-03-01","assignee_ids":[-1]}`},
	}
	for _, tc := range cases {
		var task domain.Task
		if err := json.Unmarshal([]byte(tc.raw), &task); err == nil {
			t.Fatalf("%s: must be rejected", tc.name)
		}
	}
}

func TestTaskState(t *testing.T) {
	task := domain.Task{Progress: 60}
	if task.State() != domain.StateOpen {
		t.Fatalf("open: %s", task.State())
	}
	task.Done = true
	if task.State() != domain.StateSubmitted {
		t.Fatalf("submitted: %s", task.State())
	}
	task.Reviewed = true
	if task.State() != domain.StateApproved {
		t.Fatalf("approved: %s", task.State())
	}
}

func TestEventRoundTrip(t *testing.T) {
	event, err := domain.NewEvent("Launch", "2026-03-01", "2026-03-02", "Organizadora", "ICMC", "")
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	event.RemindedFor.Add("2026-03-01")
	event.RemindedFor.Add("task::Divulgar::2026-02-15")

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded domain.Event
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Name != event.Name || !decoded.StartDate.Equal(event.StartDate) {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
	if !decoded.RemindedFor.Has("2026-03-01") || !decoded.RemindedFor.Has("task::Divulgar::2026-02-15") {
		t.Fatalf("reminder keys lost: %+v", decoded.RemindedFor)
	}
}

func TestEventUnmarshalDefaultsKeySet(t *testing.T) {
	raw := `{"name":"Launch","start_date":"2026-03-01","end_date":"2026-03-02"}`
	var event domain.Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if event.RemindedFor == nil {
		t.Fatalf("key set must default to empty")
	}
	event.RemindedFor.Add("k")
	if !event.RemindedFor.Has("k") {
		t.Fatalf("add on defaulted set failed")
	}
}

func TestKeySetMarshalsSorted(t *testing.T) {
	set := domain.KeySet{}
	set.Add("b")
	set.Add("a")
	data, err := json.Marshal(set)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `["a","b"]` {
		t.Fatalf("keys must serialize sorted: %s", data)
	}
}
