// File path: internal/sqlite/leads.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/plainlyai/enablr/internal/common"
)

const (
	EventLeadCreated           = "lead_created"
	EventStatusChange          = "status_change"
	EventNoteAdded             = "note_added"
	EventPromotedFromDiscovery = "promoted_from_discovery"
)

const insertLeadQuery = `INSERT INTO leads(
                id, email, first_name, last_name, company_name, phone, team_size,
                service_interest, main_challenge, source, lead_score, status,
                readiness_score, readiness_answers, chatbot_conversation_id,
                chatbot_summary, created_at, updated_at)
        VALUES(
                :id, :email, :first_name, :last_name, :company_name, :phone, :team_size,
                :service_interest, :main_challenge, :source, :lead_score, :status,
                :readiness_score, :readiness_answers, :chatbot_conversation_id,
                :chatbot_summary, :created_at, :updated_at)
        ON CONFLICT(email) DO NOTHING`

// UpsertResult reports the outcome of UpsertLead.
type UpsertResult struct {
	LeadID  string
	Created bool
}

// UpsertLead inserts lead when its email is new, recording a lead_created
// event with createdEvent as payload. When the email already exists the
// contact fields that are non-empty in lead overwrite the stored ones, the
// score is replaced and no event is written. Both paths run in one
// transaction so concurrent submissions for one email yield a single row.
func (s *Store) UpsertLead(ctx context.Context, lead Lead, createdEvent interface{}) (UpsertResult, error) {
	if s == nil || s.db == nil {
		return UpsertResult{}, errNotInitialised
	}
	ts := now()
	if lead.ID == "" {
		lead.ID = newID()
	}
	if lead.Status == "" {
		lead.Status = "new"
	}
	lead.CreatedAt, lead.UpdatedAt = ts, ts

	var result UpsertResult
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, insertLeadQuery, lead)
		if err != nil {
			return fmt.Errorf("insert lead: %w", err)
		}
		inserted, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert lead rows: %w", err)
		}
		if inserted == 1 {
			result = UpsertResult{LeadID: lead.ID, Created: true}
			_, err := insertEvent(ctx, tx, lead.ID, EventLeadCreated, createdEvent)
			return err
		}

		const update = `UPDATE leads SET
                        first_name = COALESCE(NULLIF(?, ''), first_name),
                        last_name = COALESCE(NULLIF(?, ''), last_name),
                        company_name = COALESCE(NULLIF(?, ''), company_name),
                        phone = COALESCE(NULLIF(?, ''), phone),
                        team_size = COALESCE(NULLIF(?, ''), team_size),
                        service_interest = COALESCE(NULLIF(?, ''), service_interest),
                        main_challenge = COALESCE(NULLIF(?, ''), main_challenge),
                        lead_score = ?,
                        updated_at = ?
                WHERE email = ?`
		if _, err := tx.ExecContext(ctx, update,
			lead.FirstName, lead.LastName, lead.CompanyName, lead.Phone, lead.TeamSize,
			lead.ServiceInterest, lead.MainChallenge, lead.LeadScore, ts, lead.Email,
		); err != nil {
			return fmt.Errorf("update lead: %w", err)
		}
		var id string
		if err := tx.GetContext(ctx, &id, `SELECT id FROM leads WHERE email = ?`, lead.Email); err != nil {
			return fmt.Errorf("load lead id: %w", err)
		}
		result = UpsertResult{LeadID: id, Created: false}
		return nil
	})
	if err != nil {
		return UpsertResult{}, err
	}
	return result, nil
}

// GetLead loads a lead by id.
func (s *Store) GetLead(ctx context.Context, id string) (*Lead, error) {
	if s == nil || s.db == nil {
		return nil, errNotInitialised
	}
	var lead Lead
	if err := s.db.GetContext(ctx, &lead, `SELECT * FROM leads WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &common.NotFoundError{Resource: "lead", ID: id}
		}
		return nil, fmt.Errorf("select lead: %w", err)
	}
	return &lead, nil
}

// LeadByEmail loads a lead by its unique email.
func (s *Store) LeadByEmail(ctx context.Context, email string) (*Lead, error) {
	if s == nil || s.db == nil {
		return nil, errNotInitialised
	}
	var lead Lead
	if err := s.db.GetContext(ctx, &lead, `SELECT * FROM leads WHERE email = ?`, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &common.NotFoundError{Resource: "lead", ID: email}
		}
		return nil, fmt.Errorf("select lead by email: %w", err)
	}
	return &lead, nil
}

// LeadFilter narrows ListLeads. Zero values match everything.
type LeadFilter struct {
	Status string
	Source string
	Limit  int
}

// ListLeads returns the newest leads first.
func (s *Store) ListLeads(ctx context.Context, filter LeadFilter) ([]Lead, error) {
	if s == nil || s.db == nil {
		return nil, errNotInitialised
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	builder := sq.Select("*").From("leads").OrderBy("created_at DESC").Limit(uint64(limit))
	if status := strings.TrimSpace(filter.Status); status != "" {
		builder = builder.Where(sq.Eq{"status": status})
	}
	if source := strings.TrimSpace(filter.Source); source != "" {
		builder = builder.Where(sq.Eq{"source": source})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lead query: %w", err)
	}
	leads := []Lead{}
	if err := s.db.SelectContext(ctx, &leads, query, args...); err != nil {
		return nil, fmt.Errorf("select leads: %w", err)
	}
	return leads, nil
}

// LeadEvents returns a lead's events, oldest first.
func (s *Store) LeadEvents(ctx context.Context, leadID string) ([]LeadEvent, error) {
	if s == nil || s.db == nil {
		return nil, errNotInitialised
	}
	events := []LeadEvent{}
	if err := s.db.SelectContext(ctx, &events, `SELECT * FROM lead_events WHERE lead_id = ? ORDER BY created_at, rowid`, leadID); err != nil {
		return nil, fmt.Errorf("select lead events: %w", err)
	}
	return events, nil
}

// LeadNotes returns a lead's notes, newest first.
func (s *Store) LeadNotes(ctx context.Context, leadID string) ([]LeadNote, error) {
	if s == nil || s.db == nil {
		return nil, errNotInitialised
	}
	notes := []LeadNote{}
	if err := s.db.SelectContext(ctx, &notes, `SELECT * FROM lead_notes WHERE lead_id = ? ORDER BY created_at DESC, rowid DESC`, leadID); err != nil {
		return nil, fmt.Errorf("select lead notes: %w", err)
	}
	return notes, nil
}

// UpdateLeadStatus changes a lead's status and records a status_change
// event. It returns the previous status. Setting the current status again is
// a no-op without an event.
func (s *Store) UpdateLeadStatus(ctx context.Context, leadID, status string) (string, error) {
	if s == nil || s.db == nil {
		return "", errNotInitialised
	}
	var previous string
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &previous, `SELECT status FROM leads WHERE id = ?`, leadID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &common.NotFoundError{Resource: "lead", ID: leadID}
			}
			return fmt.Errorf("select lead status: %w", err)
		}
		if previous == status {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `UPDATE leads SET status = ?, updated_at = ? WHERE id = ?`, status, now(), leadID); err != nil {
			return fmt.Errorf("update lead status: %w", err)
		}
		_, err := insertEvent(ctx, tx, leadID, EventStatusChange, map[string]string{"from": previous, "to": status})
		return err
	})
	if err != nil {
		return "", err
	}
	return previous, nil
}

// AddLeadNote stores note against a lead and records a note_added event
// carrying preview.
func (s *Store) AddLeadNote(ctx context.Context, leadID, note, preview string) (LeadNote, error) {
	if s == nil || s.db == nil {
		return LeadNote{}, errNotInitialised
	}
	row := LeadNote{ID: newID(), LeadID: leadID, Note: note, CreatedAt: now()}
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var exists int
		if err := tx.GetContext(ctx, &exists, `SELECT COUNT(1) FROM leads WHERE id = ?`, leadID); err != nil {
			return fmt.Errorf("check lead: %w", err)
		}
		if exists == 0 {
			return &common.NotFoundError{Resource: "lead", ID: leadID}
		}
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO lead_notes(id, lead_id, note, created_at) VALUES(:id, :lead_id, :note, :created_at)`, row); err != nil {
			return fmt.Errorf("insert lead note: %w", err)
		}
		_, err := insertEvent(ctx, tx, leadID, EventNoteAdded, map[string]string{"preview": preview})
		return err
	})
	if err != nil {
		return LeadNote{}, err
	}
	return row, nil
}

// LeadSourceCount is one row of the lead-source breakdown.
type LeadSourceCount struct {
	Source string `db:"source" json:"source"`
	Count  int    `db:"count" json:"count"`
}
