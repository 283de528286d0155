// Package engine implements the task/event lifecycle commands. Every
// mutating operation runs the same sequence under one lock: load the full
// document, validate, authorize, mutate in memory, save the full document,
// append an audit entry. Validation and authorization always precede any
// mutation; a failed operation leaves no partial state.
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"crewcal/internal/audit"
	"crewcal/internal/domain"
	"crewcal/internal/engine/auth"
	"crewcal/internal/reminder"
	"crewcal/internal/store"
)

// NotFoundError reports an out-of-bounds event or task index. It is checked
// before any authorization on the target entity.
type NotFoundError struct {
	Kind  string
	Index int
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s index %d out of range", e.Kind, e.Index)
}

// Engine coordinates the document store, the authorization policy and the
// audit log. The mutex serializes every load-mutate-save sequence so that
// concurrent command handlers and scheduler ticks cannot lose updates.
type Engine struct {
	Store  *store.Store
	Audit  *audit.Log
	Policy auth.Policy
	Loc    *time.Location
	Now    func() time.Time
	Logger *log.Logger

	mu sync.Mutex
}

// New builds an engine. audit may be nil to disable the trail.
func New(st *store.Store, aud *audit.Log, policy auth.Policy, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		Store:  st,
		Audit:  aud,
		Policy: policy,
		Loc:    loc,
		Now:    time.Now,
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Today is the current calendar date in the configured time zone.
func (e *Engine) Today() domain.Date {
	return domain.DateOf(e.now().In(e.Loc))
}

func (e *Engine) logger() *log.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return log.Default()
}

func (e *Engine) appendAudit(ctx context.Context, action, entityKind, entityID string, actorID int64, payload map[string]any) {
	if err := e.Audit.Append(ctx, action, entityKind, entityID, actorID, payload); err != nil {
		e.logger().Printf("audit append failed: %v", err)
	}
}

// eventAt resolves a 1-based event index.
func eventAt(events []domain.Event, index int) (*domain.Event, error) {
	if index < 1 || index > len(events) {
		return nil, NotFoundError{Kind: "event", Index: index}
	}
	return &events[index-1], nil
}

// taskAt resolves a 1-based task index within an event.
func taskAt(event *domain.Event, index int) (*domain.Task, error) {
	if index < 1 || index > len(event.Tasks) {
		return nil, NotFoundError{Kind: "task", Index: index}
	}
	return &event.Tasks[index-1], nil
}

// ListEvents returns the full collection in stored order.
func (e *Engine) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return e.Store.Load()
}

// EventDetail returns one event by 1-based index.
func (e *Engine) EventDetail(ctx context.Context, index int) (domain.Event, error) {
	events, err := e.Store.Load()
	if err != nil {
		return domain.Event{}, err
	}
	event, err := eventAt(events, index)
	if err != nil {
		return domain.Event{}, err
	}
	return *event, nil
}

// PendingTask is a non-done task together with its positional references.
type PendingTask struct {
	EventIndex int         `json:"event_index"`
	EventName  string      `json:"event_name"`
	TaskIndex  int         `json:"task_index"`
	Task       domain.Task `json:"task"`
}

// PendingByArea lists non-done tasks for one area across all events.
func (e *Engine) PendingByArea(ctx context.Context, area string) ([]PendingTask, error) {
	target, err := domain.ParseArea(area)
	if err != nil {
		return nil, err
	}
	events, err := e.Store.Load()
	if err != nil {
		return nil, err
	}
	var pending []PendingTask
	for i, event := range events {
		for j, task := range event.Tasks {
			if task.Area == target && !task.Done {
				pending = append(pending, PendingTask{
					EventIndex: i + 1,
					EventName:  event.Name,
					TaskIndex:  j + 1,
					Task:       task,
				})
			}
		}
	}
	return pending, nil
}

// AddEventOptions are the parameters for creating an event.
type AddEventOptions struct {
	Name     string
	Start    string
	End      string
	Acting   string
	Partners string
	Notes    string
}

// AddEvent appends a new event. Manager only. Start/end ordering is not
// validated.
func (e *Engine) AddEvent(ctx context.Context, actor auth.Actor, opts AddEventOptions) (domain.Event, error) {
	if err := e.Policy.RequireManager(actor, "add events"); err != nil {
		return domain.Event{}, err
	}
	event, err := domain.NewEvent(opts.Name, opts.Start, opts.End, opts.Acting, opts.Partners, opts.Notes)
	if err != nil {
		return domain.Event{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	events, err := e.Store.Load()
	if err != nil {
		return domain.Event{}, err
	}
	events = append(events, event)
	if err := e.Store.Save(events); err != nil {
		return domain.Event{}, err
	}
	e.appendAudit(ctx, "event.added", "event", event.ID, actor.ID, map[string]any{"name": event.Name})
	return event, nil
}

// AddTaskOptions are the parameters for creating a task under an event.
type AddTaskOptions struct {
	EventIndex  int
	Title       string
	Area        string
	Due         string
	AssigneeIDs []int64
	Tools       []string
	Details     string
}

// AddTask appends a task to an event. Manager only; at least one assignee is
// required.
func (e *Engine) AddTask(ctx context.Context, actor auth.Actor, opts AddTaskOptions) (domain.Task, error) {
	if err := e.Policy.RequireManager(actor, "add tasks"); err != nil {
		return domain.Task{}, err
	}
	task, err := domain.NewTask(opts.Title, opts.Area, opts.Due, opts.Details, opts.Tools, opts.AssigneeIDs)
	if err != nil {
		return domain.Task{}, err
	}
	if len(task.AssigneeIDs) == 0 {
		return domain.Task{}, domain.ValidationError{Field: "assignee_ids", Reason: "at least one assignee is required"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	events, err := e.Store.Load()
	if err != nil {
		return domain.Task{}, err
	}
	event, err := eventAt(events, opts.EventIndex)
	if err != nil {
		return domain.Task{}, err
	}
	event.Tasks = append(event.Tasks, task)
	if err := e.Store.Save(events); err != nil {
		return domain.Task{}, err
	}
	e.appendAudit(ctx, "task.added", "task", task.ID, actor.ID, map[string]any{
		"event": event.Name,
		"title": task.Title,
		"area":  string(task.Area),
	})
	return task, nil
}

// SetProgress updates a task's progress. Percent below 100 performs a hard
// reset back to open: done, reviewed, delivery link and reviewer are all
// cleared, silently discarding a prior submission or approval. That reset is
// deliberate; a task touched again is no longer delivered or approved.
func (e *Engine) SetProgress(ctx context.Context, actor auth.Actor, eventIndex, taskIndex, percent int) (domain.Task, error) {
	if percent < 0 || percent > 100 {
		return domain.Task{}, domain.ValidationError{Field: "percent", Reason: "must be between 0 and 100"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	events, err := e.Store.Load()
	if err != nil {
		return domain.Task{}, err
	}
	event, err := eventAt(events, eventIndex)
	if err != nil {
		return domain.Task{}, err
	}
	task, err := taskAt(event, taskIndex)
	if err != nil {
		return domain.Task{}, err
	}
	if !e.Policy.CanMutateTask(actor, *task) {
		return domain.Task{}, auth.AuthorizationError{Reason: "only assignees or managers may update progress"}
	}

	task.Progress = domain.Clamp(percent)
	if task.Progress < 100 {
		task.Done = false
		task.Reviewed = false
		task.DeliveryLink = ""
		task.ReviewerID = nil
	}
	if err := e.Store.Save(events); err != nil {
		return domain.Task{}, err
	}
	e.appendAudit(ctx, "task.progress", "task", task.ID, actor.ID, map[string]any{
		"title":    task.Title,
		"progress": task.Progress,
	})
	return *task, nil
}

// Complete submits a task for review: progress 100, done, not yet reviewed.
// The acting user must be allowed to mutate the task and the nominated
// reviewer must hold a manager role; the reviewer then gains exclusive
// review rights.
func (e *Engine) Complete(ctx context.Context, actor auth.Actor, eventIndex, taskIndex int, deliveryLink string, reviewer auth.Actor) (domain.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	events, err := e.Store.Load()
	if err != nil {
		return domain.Task{}, err
	}
	event, err := eventAt(events, eventIndex)
	if err != nil {
		return domain.Task{}, err
	}
	task, err := taskAt(event, taskIndex)
	if err != nil {
		return domain.Task{}, err
	}
	if !e.Policy.CanMutateTask(actor, *task) {
		return domain.Task{}, auth.AuthorizationError{Reason: "only assignees or managers may complete a task"}
	}
	if !e.Policy.IsManager(reviewer) {
		return domain.Task{}, auth.AuthorizationError{Reason: "the nominated reviewer must hold a manager role"}
	}

	task.Progress = 100
	task.Done = true
	task.Reviewed = false
	task.DeliveryLink = deliveryLink
	reviewerID := reviewer.ID
	task.ReviewerID = &reviewerID
	if err := e.Store.Save(events); err != nil {
		return domain.Task{}, err
	}
	e.appendAudit(ctx, "task.completed", "task", task.ID, actor.ID, map[string]any{
		"title":    task.Title,
		"reviewer": reviewer.ID,
	})
	return *task, nil
}

// Review approves or rejects a submitted task. Manager only; once a reviewer
// was nominated at completion, only that reviewer may decide, regardless of
// other managers' roles. Rejection reopens the task at 90% but keeps the
// reviewer and delivery link, unlike a progress reset.
func (e *Engine) Review(ctx context.Context, actor auth.Actor, eventIndex, taskIndex int, approve bool, comment string) (domain.Task, error) {
	if err := e.Policy.RequireManager(actor, "review tasks"); err != nil {
		return domain.Task{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	events, err := e.Store.Load()
	if err != nil {
		return domain.Task{}, err
	}
	event, err := eventAt(events, eventIndex)
	if err != nil {
		return domain.Task{}, err
	}
	task, err := taskAt(event, taskIndex)
	if err != nil {
		return domain.Task{}, err
	}
	if !task.Done {
		return domain.Task{}, domain.ValidationError{Field: "task", Reason: "not submitted for review"}
	}
	if task.ReviewerID != nil && *task.ReviewerID != actor.ID {
		return domain.Task{}, auth.AuthorizationError{Reason: "a reviewer is already assigned to this task"}
	}

	if approve {
		task.Reviewed = true
	} else {
		task.Done = false
		task.Progress = 90
		task.Reviewed = false
	}
	if err := e.Store.Save(events); err != nil {
		return domain.Task{}, err
	}
	e.appendAudit(ctx, "task.reviewed", "task", task.ID, actor.ID, map[string]any{
		"title":    task.Title,
		"approved": approve,
		"comment":  comment,
	})
	return *task, nil
}

// Remind performs one scheduler tick: compute the 14-day target, deliver
// every unfired reminder, then save once iff anything fired. Delivery happens
// before the save so a save failure surfaces instead of silently dropping or
// hiding the recorded keys; the affected reminders may repeat on a later
// tick.
func (e *Engine) Remind(ctx context.Context, notifier reminder.Notifier) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	events, err := e.Store.Load()
	if err != nil {
		return 0, err
	}
	target := reminder.Target(e.Today())
	due := reminder.Scan(events, target)
	if len(due) == 0 {
		return 0, nil
	}
	for _, r := range due {
		if err := notifier.Send(ctx, r); err != nil {
			return 0, fmt.Errorf("send reminder %s: %w", r.Key, err)
		}
	}
	if err := e.Store.Save(events); err != nil {
		return len(due), fmt.Errorf("reminders delivered but keys not saved: %w", err)
	}
	for _, r := range due {
		e.appendAudit(ctx, "reminder.sent", string(r.Kind), r.Key, 0, map[string]any{
			"event": r.EventName,
			"task":  r.TaskTitle,
			"date":  r.Date.String(),
		})
	}
	return len(due), nil
}
