package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"finadmin.org/internal/obs"
)

func TestRecordWritesRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("insert into session_audit").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "req-123", "7", EventLogin, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	r := NewRecorder(db, nil)
	r.now = func() time.Time { return time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC) }

	ctx := obs.WithRequestID(context.Background(), "req-123")
	r.Record(ctx, EventLogin, "7", map[string]any{"role": "admin"})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordSurvivesWriteFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("insert into session_audit").
		WillReturnError(context.DeadlineExceeded)

	r := NewRecorder(db, nil)
	// Must not panic or propagate.
	r.Record(context.Background(), EventLogout, "7", nil)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordWithoutDatabaseLogsOnly(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	r := NewRecorder(nil, log)
	r.Record(context.Background(), EventAccessDenied, "7", map[string]any{"path": "/v1/admin/users"})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line not valid JSON: %v", err)
	}
	if entry["event"] != EventAccessDenied || entry["actor_id"] != "7" {
		t.Fatalf("unexpected log entry: %v", entry)
	}
}

func TestRecordIgnoresEmptyKind(t *testing.T) {
	r := NewRecorder(nil, nil)
	r.Record(context.Background(), "", "7", nil)
}
