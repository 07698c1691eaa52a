package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventKind distinguishes state changes from alerts.
type EventKind string

const (
	// EventStateChange records a flip of the committed mouth state.
	EventStateChange EventKind = "state_change"
	// EventAlert records a fired alert.
	EventAlert EventKind = "alert"
)

// Valid reports whether k is a known kind.
func (k EventKind) Valid() bool {
	return k == EventStateChange || k == EventAlert
}

// Event is one entry in the mouth event history.
type Event struct {
	ID         string    `json:"id"`
	Kind       EventKind `json:"kind"`
	Open       bool      `json:"open"`
	Ratio      float64   `json:"ratio"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventFilter narrows List. Zero fields do not filter.
type EventFilter struct {
	Kind  EventKind
	Since time.Time
	Limit int
}

// DefaultEventLimit caps List when no limit is given.
const DefaultEventLimit = 100

// EventRepository stores the mouth event history.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Create inserts e, assigning an ID when it has none.
func (r *EventRepository) Create(e *Event) error {
	if !e.Kind.Valid() {
		return fmt.Errorf("invalid event kind %q", e.Kind)
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	e.OccurredAt = e.OccurredAt.UTC()

	_, err := r.db.Exec(
		`INSERT INTO events (id, kind, open, ratio, occurred_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, string(e.Kind), e.Open, e.Ratio, e.OccurredAt,
	)
	return err
}

// List returns matching events, newest first.
func (r *EventRepository) List(f EventFilter) ([]*Event, error) {
	where, args := f.where()

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	args = append(args, limit)

	rows, err := r.db.Query(
		`SELECT id, kind, open, ratio, occurred_at FROM events`+where+
			` ORDER BY occurred_at DESC, id LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		var kind string
		if err := rows.Scan(&e.ID, &kind, &e.Open, &e.Ratio, &e.OccurredAt); err != nil {
			return nil, err
		}
		e.Kind = EventKind(kind)
		events = append(events, e)
	}

	return events, rows.Err()
}

// Count returns the number of matching events. Limit is ignored.
func (r *EventRepository) Count(f EventFilter) (int, error) {
	where, args := f.where()

	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM events`+where, args...).Scan(&n)
	return n, err
}

// DeleteBefore removes events older than t and returns how many were removed.
func (r *EventRepository) DeleteBefore(t time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM events WHERE occurred_at < ?`, t.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (f EventFilter) where() (string, []any) {
	var conds []string
	var args []any

	if f.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if !f.Since.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, f.Since.UTC())
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
