// Package activity records learning events and fans them out to live
// instructor feeds.
package activity

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// Event types emitted by the progression service.
const (
	QuizPassed      = "quiz_passed"
	QuizFailed      = "quiz_failed"
	ModuleUnlocked  = "module_unlocked"
	CourseCompleted = "course_completed"
)

// Event is one learner action worth showing to an instructor.
type Event struct {
	LearnerID string    `json:"learner_id"`
	Type      string    `json:"type"`
	ModuleID  string    `json:"module_id,omitempty"`
	Score     int       `json:"score,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (e Event) validate() error {
	if e.Type == "" {
		return fmt.Errorf("event type is required")
	}
	if e.LearnerID == "" {
		return fmt.Errorf("learner id is required")
	}
	return nil
}

// Logger persists events and reads them back by time window.
type Logger interface {
	LogEvent(ctx context.Context, event Event) error
	Since(ctx context.Context, t time.Time) ([]Event, error)
}

// NopLogger ignores all events.
type NopLogger struct{}

func (NopLogger) LogEvent(context.Context, Event) error { return nil }

func (NopLogger) Since(context.Context, time.Time) ([]Event, error) { return nil, nil }

// MemoryRetention is how long MemoryLogger keeps events. The dashboard only
// looks back one week.
const MemoryRetention = 7 * 24 * time.Hour

// MemoryLogger stores events in memory. Events older than MemoryRetention,
// measured from the newest event seen, are dropped as new ones arrive.
type MemoryLogger struct {
	mu     sync.Mutex
	events []Event
	latest time.Time
	now    func() time.Time
}

func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{
		events: []Event{},
		now:    time.Now,
	}
}

func (l *MemoryLogger) LogEvent(_ context.Context, event Event) error {
	if err := event.validate(); err != nil {
		return err
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = l.now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if event.CreatedAt.After(l.latest) {
		l.latest = event.CreatedAt
	}
	cutoff := l.latest.Add(-MemoryRetention)
	l.prune(cutoff)
	if !event.CreatedAt.Before(cutoff) {
		l.events = append(l.events, event)
	}
	return nil
}

func (l *MemoryLogger) prune(cutoff time.Time) {
	kept := l.events[:0]
	for _, e := range l.events {
		if !e.CreatedAt.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	clear(l.events[len(kept):])
	l.events = kept
}

// Since returns events created at or after t, oldest first.
func (l *MemoryLogger) Since(_ context.Context, t time.Time) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := []Event{}
	for _, e := range l.events {
		if !e.CreatedAt.Before(t) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Events returns every logged event.
func (l *MemoryLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

// PostgresLogger inserts events into the activity_events table.
type PostgresLogger struct {
	pool *pgxpool.Pool
}

func NewPostgresLogger(pool *pgxpool.Pool) *PostgresLogger {
	return &PostgresLogger{pool: pool}
}

func (l *PostgresLogger) LogEvent(ctx context.Context, event Event) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("event logger pool is nil")
	}
	if err := event.validate(); err != nil {
		return err
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := l.pool.Exec(ctx,
		`INSERT INTO activity_events (learner_id, event_type, module_id, score, created_at)
		 VALUES ($1::uuid, $2, $3, $4, $5)`,
		event.LearnerID,
		event.Type,
		nullIfEmpty(event.ModuleID),
		nullIfZero(event.Score),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	slog.Debug("event logged",
		"type", event.Type,
		"learner_id", event.LearnerID,
		"module_id", event.ModuleID,
	)
	return nil
}

func (l *PostgresLogger) Since(ctx context.Context, t time.Time) ([]Event, error) {
	if l == nil || l.pool == nil {
		return nil, fmt.Errorf("event logger pool is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := l.pool.Query(ctx,
		`SELECT learner_id::text, event_type, module_id, score, created_at
		 FROM activity_events
		 WHERE created_at >= $1
		 ORDER BY created_at ASC`,
		t,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var e Event
		var moduleID *string
		var score *int
		if err := rows.Scan(&e.LearnerID, &e.Type, &moduleID, &score, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if moduleID != nil {
			e.ModuleID = *moduleID
		}
		if score != nil {
			e.Score = *score
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

func nullIfZero(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
