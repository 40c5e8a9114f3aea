// File path: internal/sqlite/tx.go
package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

func withTx(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func newID() string {
	return uuid.NewString()
}

// now is replaced in tests that need deterministic timestamps.
var now = func() time.Time {
	return time.Now().UTC()
}

func jsonText(v interface{}) (types.JSONText, error) {
	if v == nil {
		return types.JSONText("{}"), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	return types.JSONText(data), nil
}

func insertEvent(ctx context.Context, tx *sqlx.Tx, leadID, eventType string, data interface{}) (LeadEvent, error) {
	payload, err := jsonText(data)
	if err != nil {
		return LeadEvent{}, err
	}
	event := LeadEvent{
		ID:        newID(),
		LeadID:    leadID,
		EventType: eventType,
		EventData: payload,
		CreatedAt: now(),
	}
	const query = `INSERT INTO lead_events(id, lead_id, event_type, event_data, created_at)
                VALUES(:id, :lead_id, :event_type, :event_data, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, event); err != nil {
		return LeadEvent{}, fmt.Errorf("insert lead event %s: %w", eventType, err)
	}
	return event, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
