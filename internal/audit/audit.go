// Package audit keeps an append-only trail of every mutating operation.
// The JSON document store remains the source of truth; the trail exists so
// coordinators can answer "who changed what, when".
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"crewcal/internal/db"
	"crewcal/internal/migrate"
)

// Log appends and reads audit entries. A nil *Log disables auditing.
type Log struct {
	DB  *sql.DB
	Now func() time.Time
}

// Entry is one recorded action.
type Entry struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Action     string `json:"action"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    int64  `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// Open opens the workspace audit database and applies migrations.
func Open(workspace string) (*Log, error) {
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &Log{DB: conn, Now: time.Now}, nil
}

func (l *Log) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Append records one action. Payload may be nil.
func (l *Log) Append(ctx context.Context, action, entityKind, entityID string, actorID int64, payload map[string]any) error {
	if l == nil {
		return nil
	}
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	ts := l.now().UTC().Format(time.RFC3339)
	_, err = l.DB.ExecContext(ctx,
		`INSERT INTO audit_log(ts,action,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?)`,
		ts, action, entityKind, nullable(entityID), actorID, string(data))
	return err
}

// Tail returns the most recent n entries, newest first.
func (l *Log) Tail(ctx context.Context, n int) ([]Entry, error) {
	if l == nil {
		return nil, nil
	}
	if n <= 0 {
		n = 20
	}
	rows, err := l.DB.QueryContext(ctx,
		`SELECT id,ts,action,entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM audit_log ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TS, &e.Action, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (l *Log) Close() error {
	if l == nil || l.DB == nil {
		return nil
	}
	return l.DB.Close()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
