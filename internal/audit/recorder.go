// Package audit keeps an append-only trail of session and access events.
// Rows land in Postgres when a database is configured and fall back to
// the structured log otherwise; a failed write never fails the request
// that caused it.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"finadmin.org/internal/ids"
	"finadmin.org/internal/obs"
)

// Event kinds recorded by the gateway.
const (
	EventLogin         = "session.login"
	EventLoginFailed   = "session.login_failed"
	EventLogout        = "session.logout"
	EventRefreshDenied = "session.refresh_denied"
	EventAccessDenied  = "access.denied"
)

// Recorder appends audit events.
type Recorder struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

// NewRecorder builds a Recorder. db may be nil; events then go to the log
// only.
func NewRecorder(db *sql.DB, log *slog.Logger) *Recorder {
	if log == nil {
		log = obs.Discard()
	}
	return &Recorder{db: db, log: log, now: time.Now}
}

// Record appends one event. actorID identifies the session user when
// known ("" otherwise); metadata is free-form and must be JSON-safe.
func (r *Recorder) Record(ctx context.Context, kind, actorID string, metadata map[string]any) {
	if kind == "" {
		return
	}
	occurredAt := r.now().UTC()
	requestID := obs.RequestIDFromContext(ctx)

	r.log.InfoContext(ctx, "audit",
		"event", kind,
		"actor_id", actorID,
		"occurred_at", occurredAt.Format(time.RFC3339Nano),
		"fields", metadata,
	)

	if r.db == nil {
		return
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		r.log.WarnContext(ctx, "audit metadata marshal failed", "event", kind, "err", err)
		raw = []byte("{}")
	}
	_, err = r.db.ExecContext(ctx, `
		insert into session_audit(id, occurred_at, request_id, actor_id, kind, metadata)
		values ($1, $2, $3, $4, $5, $6)
	`, ids.NewRequestID(), occurredAt, requestID, actorID, kind, raw)
	if err != nil {
		r.log.WarnContext(ctx, "audit write failed", "event", kind, "err", err)
	}
}
