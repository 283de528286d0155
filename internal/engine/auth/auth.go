// Package auth decides whether an actor may mutate a task or event.
// Role names come from the chat platform; the policy only intersects them
// with the configured manager set.
package auth

import (
	"fmt"
	"strings"

	"crewcal/internal/domain"
)

// Actor is an identity resolved by the chat platform: a numeric user id and
// the role names attached to it.
type Actor struct {
	ID    int64
	Roles []string
}

// AuthorizationError indicates a denied mutation. Nothing is changed when
// one is returned.
type AuthorizationError struct {
	Reason string
}

func (e AuthorizationError) Error() string {
	return fmt.Sprintf("not authorized: %s", e.Reason)
}

// Policy holds the configured manager role names, lowercased.
type Policy struct {
	managerRoles map[string]struct{}
}

// NewPolicy builds a policy from role names; matching is case-insensitive.
func NewPolicy(roles []string) Policy {
	set := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		if trimmed := strings.ToLower(strings.TrimSpace(r)); trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	return Policy{managerRoles: set}
}

// IsManager reports whether the actor holds at least one manager role.
func (p Policy) IsManager(a Actor) bool {
	for _, r := range a.Roles {
		if _, ok := p.managerRoles[strings.ToLower(strings.TrimSpace(r))]; ok {
			return true
		}
	}
	return false
}

// CanMutateTask reports whether the actor may update a task: managers always
// may, everyone else must be in the task's assignee set.
func (p Policy) CanMutateTask(a Actor, t domain.Task) bool {
	return p.IsManager(a) || t.HasAssignee(a.ID)
}

// RequireManager returns an AuthorizationError unless the actor is a manager.
func (p Policy) RequireManager(a Actor, action string) error {
	if !p.IsManager(a) {
		return AuthorizationError{Reason: fmt.Sprintf("only managers may %s", action)}
	}
	return nil
}
