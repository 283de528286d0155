package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Area is the organizational area a task belongs to.
type Area string

const (
	AreaMarketing  Area = "marketing"
	AreaDiretoria  Area = "diretoria"
	AreaRH         Area = "rh"
	AreaFinanceiro Area = "financeiro"
	AreaEnsino     Area = "ensino"
)

// Areas lists every valid area in display order.
var Areas = []Area{AreaMarketing, AreaDiretoria, AreaRH, AreaFinanceiro, AreaEnsino}

// ParseArea normalizes and validates an area name.
func ParseArea(s string) (Area, error) {
	normalized := Area(strings.ToLower(strings.TrimSpace(s)))
	for _, a := range Areas {
		if a == normalized {
			return a, nil
		}
	}
	return "", ValidationError{Field: "area", Reason: fmt.Sprintf("unknown area %q; valid: marketing, diretoria, rh, financeiro, ensino", s)}
}

// ValidationError reports a rejected field value. No state is mutated when
// one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

const dateLayout = "2006-01-02"

// Date is a calendar date serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

// ParseDate parses an ISO-8601 calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ValidationError{Field: "date", Reason: fmt.Sprintf("%q is not a YYYY-MM-DD date", s)}
	}
	return Date{t}, nil
}

// DateOf truncates an instant to its calendar date in that instant's location.
func DateOf(t time.Time) Date {
	return Date{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string { return d.Format(dateLayout) }

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date { return Date{d.AddDate(0, 0, n)} }

func (d Date) Equal(other Date) bool { return d.Time.Equal(other.Time) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ValidationError{Field: "date", Reason: "must be a string"}
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// KeySet is a set of reminder keys. Keys are permanent: once recorded they
// are never pruned, even long after the underlying date has passed.
// Serialized as a sorted array of strings.
type KeySet map[string]struct{}

func (s KeySet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

func (s *KeySet) Add(key string) {
	if *s == nil {
		*s = KeySet{}
	}
	(*s)[key] = struct{}{}
}

func (s KeySet) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return json.Marshal(keys)
}

func (s *KeySet) UnmarshalJSON(data []byte) error {
	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	set := make(KeySet, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	*s = set
	return nil
}

// Task is a unit of work belonging to an event. Progress drives the review
// lifecycle: below 100 the task is open, at 100 with done set it is submitted,
// and reviewed marks approval.
type Task struct {
	ID           string   `json:"id,omitempty"`
	Title        string   `json:"title"`
	Area         Area     `json:"area"`
	DueDate      Date     `json:"due_date"`
	Details      string   `json:"details"`
	Tools        []string `json:"tools"`
	AssigneeIDs  []int64  `json:"assignee_ids"`
	Progress     int      `json:"progress"`
	Done         bool     `json:"done"`
	DeliveryLink string   `json:"delivery_link"`
	ReviewerID   *int64   `json:"reviewer_id"`
	Reviewed     bool     `json:"reviewed"`
}

// State is the derived lifecycle state of a task.
type State string

const (
	StateOpen      State = "open"
	StateSubmitted State = "submitted"
	StateApproved  State = "approved"
)

func (t Task) State() State {
	switch {
	case t.Done && t.Reviewed:
		return StateApproved
	case t.Done:
		return StateSubmitted
	default:
		return StateOpen
	}
}

// HasAssignee reports whether id is in the task's assignee set.
func (t Task) HasAssignee(id int64) bool {
	for _, a := range t.AssigneeIDs {
		if a == id {
			return true
		}
	}
	return false
}

// NewTask validates inputs and constructs an open task at progress 0.
func NewTask(title, area, due, details string, tools []string, assignees []int64) (Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Task{}, ValidationError{Field: "title", Reason: "must not be empty"}
	}
	a, err := ParseArea(area)
	if err != nil {
		return Task{}, err
	}
	dueDate, err := ParseDate(due)
	if err != nil {
		return Task{}, ValidationError{Field: "due_date", Reason: fmt.Sprintf("%q is not a YYYY-MM-DD date", due)}
	}
	ids, err := NormalizeAssignees(assignees)
	if err != nil {
		return Task{}, err
	}
	return Task{
		ID:          uuid.New().String(),
		Title:       title,
		Area:        a,
		DueDate:     dueDate,
		Details:     strings.TrimSpace(details),
		Tools:       NormalizeTools(tools),
		AssigneeIDs: ids,
	}, nil
}

type taskDoc struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Area         string   `json:"area"`
	DueDate      Date     `json:"due_date"`
	Details      string   `json:"details"`
	Tools        []string `json:"tools"`
	AssigneeIDs  []int64  `json:"assignee_ids"`
	Progress     int      `json:"progress"`
	Done         bool     `json:"done"`
	DeliveryLink string   `json:"delivery_link"`
	ReviewerID   *int64   `json:"reviewer_id"`
	Reviewed     bool     `json:"reviewed"`
}

// UnmarshalJSON normalizes persisted tasks: progress is clamped into [0,100],
// optional fields default, duplicate assignees collapse keeping first
// occurrence, unknown areas are rejected.
func (t *Task) UnmarshalJSON(data []byte) error {
	var doc taskDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if strings.TrimSpace(doc.Title) == "" {
		return ValidationError{Field: "title", Reason: "must not be empty"}
	}
	area, err := ParseArea(doc.Area)
	if err != nil {
		return err
	}
	if doc.DueDate.IsZero() {
		return ValidationError{Field: "due_date", Reason: "missing"}
	}
	ids, err := NormalizeAssignees(doc.AssigneeIDs)
	if err != nil {
		return err
	}
	*t = Task{
		ID:           doc.ID,
		Title:        doc.Title,
		Area:         area,
		DueDate:      doc.DueDate,
		Details:      doc.Details,
		Tools:        NormalizeTools(doc.Tools),
		AssigneeIDs:  ids,
		Progress:     Clamp(doc.Progress),
		Done:         doc.Done,
		DeliveryLink: doc.DeliveryLink,
		ReviewerID:   doc.ReviewerID,
		Reviewed:     doc.Reviewed,
	}
	return nil
}

// Event is a scheduled activity with a date range and tasks. Start/end
// ordering is deliberately not validated; the data this store is compatible
// with never enforced it.
type Event struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	StartDate   Date   `json:"start_date"`
	EndDate     Date   `json:"end_date"`
	Acting      string `json:"acting"`
	Partners    string `json:"partners"`
	Notes       string `json:"notes"`
	Tasks       []Task `json:"tasks"`
	RemindedFor KeySet `json:"reminded_for_dates"`
}

// NewEvent validates inputs and constructs an event with no tasks.
func NewEvent(name, start, end, acting, partners, notes string) (Event, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Event{}, ValidationError{Field: "name", Reason: "must not be empty"}
	}
	startDate, err := ParseDate(start)
	if err != nil {
		return Event{}, ValidationError{Field: "start_date", Reason: fmt.Sprintf("%q is not a YYYY-MM-DD date", start)}
	}
	endDate, err := ParseDate(end)
	if err != nil {
		return Event{}, ValidationError{Field: "end_date", Reason: fmt.Sprintf("%q is not a YYYY-MM-DD date", end)}
	}
	return Event{
		ID:          uuid.New().String(),
		Name:        name,
		StartDate:   startDate,
		EndDate:     endDate,
		Acting:      strings.TrimSpace(acting),
		Partners:    strings.TrimSpace(partners),
		Notes:       strings.TrimSpace(notes),
		RemindedFor: KeySet{},
	}, nil
}

type eventDoc struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	StartDate   Date   `json:"start_date"`
	EndDate     Date   `json:"end_date"`
	Acting      string `json:"acting"`
	Partners    string `json:"partners"`
	Notes       string `json:"notes"`
	Tasks       []Task `json:"tasks"`
	RemindedFor KeySet `json:"reminded_for_dates"`
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var doc eventDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if strings.TrimSpace(doc.Name) == "" {
		return ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if doc.StartDate.IsZero() {
		return ValidationError{Field: "start_date", Reason: "missing"}
	}
	if doc.EndDate.IsZero() {
		return ValidationError{Field: "end_date", Reason: "missing"}
	}
	if doc.RemindedFor == nil {
		doc.RemindedFor = KeySet{}
	}
	*e = Event(doc)
	return nil
}

// NormalizeAssignees rejects non-positive identities and removes duplicates
// preserving first-occurrence order.
func NormalizeAssignees(ids []int64) ([]int64, error) {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, ValidationError{Field: "assignee_ids", Reason: fmt.Sprintf("identity %d is not a positive integer", id)}
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// NormalizeTools trims entries and drops empty ones.
func NormalizeTools(tools []string) []string {
	out := make([]string, 0, len(tools))
	for _, tool := range tools {
		if trimmed := strings.TrimSpace(tool); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Clamp forces a progress value into [0,100].
func Clamp(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
