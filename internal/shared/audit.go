package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the subset of pgxpool.Pool used by AuditLogger.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AccountEvent represents a record stored in account_events.
type AccountEvent struct {
	AccountID string
	Kind      string
	Email     string
	Meta      map[string]any
	At        time.Time
}

// AuditLogger writes records into account_events.
type AuditLogger struct {
	db Execer
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(db Execer) *AuditLogger {
	return &AuditLogger{db: db}
}

// Record persists the event.
func (l *AuditLogger) Record(ctx context.Context, event AccountEvent) error {
	if l == nil || l.db == nil {
		return errors.New("audit logger not initialised")
	}
	if event.AccountID == "" || event.Kind == "" {
		return errors.New("account event requires account_id/kind")
	}
	meta := event.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	var at any
	if !event.At.IsZero() {
		at = event.At.UTC()
	}
	_, err = l.db.Exec(ctx, `INSERT INTO account_events (account_id, kind, email, meta, occurred_at) VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))`, event.AccountID, event.Kind, event.Email, metaJSON, at)
	return err
}
