package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PostgresLogger appends entries to the appointment_actions table.
type PostgresLogger struct {
	db *sql.DB
}

// NewPostgresLogger creates a logger over an open database handle.
func NewPostgresLogger(db *sql.DB) *PostgresLogger {
	if db == nil {
		panic("audit: database handle required")
	}
	return &PostgresLogger{db: db}
}

func (p *PostgresLogger) LogAction(ctx context.Context, entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	query := `
		INSERT INTO appointment_actions (
			id, user_request, action, appointment_datetime, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := p.db.ExecContext(ctx, query,
		uuid.NewString(),
		entry.UserRequest,
		string(entry.Action),
		entry.AppointmentDateTime,
		string(entry.Status),
		entry.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("audit: insert appointment action: %w", err)
	}
	return nil
}

// Recent returns the newest entries first.
func (p *PostgresLogger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT user_request, action, appointment_datetime, status, created_at
		FROM appointment_actions
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query recent actions: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var action, status string
		if err := rows.Scan(&e.UserRequest, &action, &e.AppointmentDateTime, &status, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("audit: scan action: %w", err)
		}
		e.Action, e.Status = Action(action), Status(status)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate actions: %w", err)
	}
	return out, nil
}
