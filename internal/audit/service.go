// Package audit keeps a durable record of guardrail decisions. Refused
// answers are withheld from callers but preserved here for review.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	KindOutputRefused = "output_refused"
	KindQueryRejected = "query_rejected"
)

type Event struct {
	ID        uuid.UUID `json:"id"`
	ProjectID string    `json:"project_id"`
	Kind      string    `json:"kind"`
	Reason    string    `json:"reason"`
	Flags     []string  `json:"flags"`
	Query     string    `json:"query,omitempty"`
	// Answer is the generated text that was withheld, if any.
	Answer    string    `json:"answer,omitempty"`
	Prompt    string    `json:"prompt,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Query struct {
	ProjectID string
	Kind      string
	Since     *time.Time
	Limit     int
	Offset    int
}

type Recorder interface {
	Record(ctx context.Context, e Event) error
	List(ctx context.Context, q Query) ([]Event, error)
}

func prepare(e *Event) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.Flags == nil {
		e.Flags = []string{}
	}
}

type PostgresRecorder struct {
	db *pgxpool.Pool
}

func NewPostgresRecorder(db *pgxpool.Pool) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

func (s *PostgresRecorder) Record(ctx context.Context, e Event) error {
	prepare(&e)
	flags, _ := json.Marshal(e.Flags)

	_, err := s.db.Exec(ctx,
		`INSERT INTO security_events (id, project_id, kind, reason, flags, query, answer, prompt, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.ProjectID, e.Kind, e.Reason, flags, e.Query, e.Answer, e.Prompt, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert security event: %w", err)
	}
	return nil
}

func (s *PostgresRecorder) List(ctx context.Context, q Query) ([]Event, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}

	query := `SELECT id, project_id, kind, reason, flags, query, answer, prompt, created_at
			  FROM security_events WHERE project_id = $1`
	args := []any{q.ProjectID}
	argIdx := 2

	if q.Kind != "" {
		query += fmt.Sprintf(" AND kind = $%d", argIdx)
		args = append(args, q.Kind)
		argIdx++
	}
	if q.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *q.Since)
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query security events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var e Event
		var flags []byte
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.Kind, &e.Reason, &flags, &e.Query, &e.Answer, &e.Prompt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan security event: %w", err)
		}
		if err := json.Unmarshal(flags, &e.Flags); err != nil {
			return nil, fmt.Errorf("decode flags: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// MemoryRecorder keeps events in process. Used when no database is
// configured and in tests.
type MemoryRecorder struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (m *MemoryRecorder) Record(_ context.Context, e Event) error {
	prepare(&e)
	e.Flags = slices.Clone(e.Flags)
	m.mu.Lock()
	m.events = append(m.events, e)
	m.mu.Unlock()
	return nil
}

func (m *MemoryRecorder) List(_ context.Context, q Query) ([]Event, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []Event{}
	skipped := 0
	for i := len(m.events) - 1; i >= 0 && len(out) < q.Limit; i-- {
		e := m.events[i]
		if e.ProjectID != q.ProjectID ||
			(q.Kind != "" && e.Kind != q.Kind) ||
			(q.Since != nil && e.CreatedAt.Before(*q.Since)) {
			continue
		}
		if skipped < q.Offset {
			skipped++
			continue
		}
		e.Flags = slices.Clone(e.Flags)
		out = append(out, e)
	}
	return out, nil
}
