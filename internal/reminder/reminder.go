// Package reminder computes which events and tasks cross the lookahead
// threshold on a given date and delivers a notification exactly once per
// (entity, date) pair.
package reminder

import (
	"context"
	"fmt"

	"crewcal/internal/domain"
)

// LookaheadDays is how far before a start or due date the reminder fires.
const LookaheadDays = 14

// Kind distinguishes event-level from task-level reminders.
type Kind string

const (
	KindEvent Kind = "event"
	KindTask  Kind = "task"
)

// Reminder is one due notification.
type Reminder struct {
	Kind        Kind
	EventName   string
	TaskTitle   string
	Area        domain.Area
	AssigneeIDs []int64
	Date        domain.Date
	Key         string
}

// Notifier is the channel-send primitive supplied by the chat platform.
type Notifier interface {
	Send(ctx context.Context, r Reminder) error
}

// EventKey is the reminder key for an event starting on the target date.
func EventKey(target domain.Date) string {
	return target.String()
}

// TaskKey is the reminder key for a task due on the given date. It is derived
// from title and due date, not a stable task identity: two tasks in the same
// event sharing both collide and share reminder state. Known limitation,
// kept for document compatibility.
func TaskKey(title string, due domain.Date) string {
	return fmt.Sprintf("task::%s::%s", title, due.String())
}

// Target returns the threshold date for a tick happening today.
func Target(today domain.Date) domain.Date {
	return today.AddDays(LookaheadDays)
}

// Scan walks the events, collects reminders due for target and records their
// keys on the events in place. Already-recorded keys never fire again. The
// caller persists the mutated events iff at least one reminder was collected.
func Scan(events []domain.Event, target domain.Date) []Reminder {
	var due []Reminder
	for i := range events {
		event := &events[i]
		key := EventKey(target)
		if event.StartDate.Equal(target) && !event.RemindedFor.Has(key) {
			due = append(due, Reminder{
				Kind:      KindEvent,
				EventName: event.Name,
				Date:      target,
				Key:       key,
			})
			event.RemindedFor.Add(key)
		}
		for _, task := range event.Tasks {
			if task.Done || !task.DueDate.Equal(target) {
				continue
			}
			taskKey := TaskKey(task.Title, task.DueDate)
			if event.RemindedFor.Has(taskKey) {
				continue
			}
			due = append(due, Reminder{
				Kind:        KindTask,
				EventName:   event.Name,
				TaskTitle:   task.Title,
				Area:        task.Area,
				AssigneeIDs: task.AssigneeIDs,
				Date:        target,
				Key:         taskKey,
			})
			event.RemindedFor.Add(taskKey)
		}
	}
	return due
}
