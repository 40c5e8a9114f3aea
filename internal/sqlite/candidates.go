// File path: internal/sqlite/candidates.go
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
	CandidateStatusNew      = "new"
	CandidateStatusPromoted = "promoted"
)

var candidateColumns = []string{
	"id", "business_name", "website", "location", "industry", "contact_email",
	"email_is_guessed", "fit_score", "fit_notes", "source", "status", "created_at",
}

// InsertCandidates persists candidates with a single multi-row insert. IDs,
// status and timestamps are filled in place when empty.
func (s *Store) InsertCandidates(ctx context.Context, candidates []LeadCandidate) error {
	if s == nil || s.db == nil {
		return errNotInitialised
	}
	if len(candidates) == 0 {
		return nil
	}
	ts := now()
	builder := sq.Insert("lead_candidates").Columns(candidateColumns...)
	for i := range candidates {
		c := &candidates[i]
		if c.ID == "" {
			c.ID = newID()
		}
		if c.Status == "" {
			c.Status = CandidateStatusNew
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = ts
		}
		builder = builder.Values(
			c.ID, c.BusinessName, c.Website, c.Location, c.Industry, c.ContactEmail,
			c.EmailIsGuessed, c.FitScore, c.FitNotes, c.Source, c.Status, c.CreatedAt,
		)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build candidate insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert candidates: %w", err)
	}
	return nil
}

// ListCandidates returns candidates newest first, optionally by status.
func (s *Store) ListCandidates(ctx context.Context, status string, limit int) ([]LeadCandidate, error) {
	if s == nil || s.db == nil {
		return nil, errNotInitialised
	}
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	builder := sq.Select("*").From("lead_candidates").OrderBy("created_at DESC", "rowid").Limit(uint64(limit))
	if status = strings.TrimSpace(status); status != "" {
		builder = builder.Where(sq.Eq{"status": status})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build candidate query: %w", err)
	}
	out := []LeadCandidate{}
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("select candidates: %w", err)
	}
	return out, nil
}

// GetCandidate loads one candidate.
func (s *Store) GetCandidate(ctx context.Context, id string) (*LeadCandidate, error) {
	if s == nil || s.db == nil {
		return nil, errNotInitialised
	}
	var c LeadCandidate
	if err := s.db.GetContext(ctx, &c, `SELECT * FROM lead_candidates WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &common.NotFoundError{Resource: "lead candidate", ID: id}
		}
		return nil, fmt.Errorf("select candidate: %w", err)
	}
	return &c, nil
}

// PromotionBuilder derives the new lead and the promoted_from_discovery event
// payload from a candidate.
type PromotionBuilder func(LeadCandidate) (Lead, interface{})

// PromoteCandidate turns a candidate into a lead inside one transaction: the
// lead is inserted, the candidate marked promoted and the event recorded.
// A candidate that is already promoted, or whose lead email is taken,
// yields a ConflictError and no writes.
func (s *Store) PromoteCandidate(ctx context.Context, candidateID string, build PromotionBuilder) (*Lead, error) {
	if s == nil || s.db == nil {
		return nil, errNotInitialised
	}
	var lead Lead
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var candidate LeadCandidate
		if err := tx.GetContext(ctx, &candidate, `SELECT * FROM lead_candidates WHERE id = ?`, candidateID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &common.NotFoundError{Resource: "lead candidate", ID: candidateID}
			}
			return fmt.Errorf("select candidate: %w", err)
		}
		if candidate.Status == CandidateStatusPromoted {
			return &common.ConflictError{Message: "lead candidate already promoted"}
		}

		var eventData interface{}
		lead, eventData = build(candidate)
		ts := now()
		lead.ID = newID()
		if lead.Status == "" {
			lead.Status = "new"
		}
		lead.CreatedAt, lead.UpdatedAt = ts, ts
		res, err := tx.NamedExecContext(ctx, insertLeadQuery, lead)
		if err != nil {
			return fmt.Errorf("insert promoted lead: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("insert promoted lead rows: %w", err)
		} else if n == 0 {
			return &common.ConflictError{Message: fmt.Sprintf("a lead with email %s already exists", lead.Email)}
		}

		res, err = tx.ExecContext(ctx, `UPDATE lead_candidates SET status = ? WHERE id = ? AND status <> ?`,
			CandidateStatusPromoted, candidateID, CandidateStatusPromoted)
		if err != nil {
			return fmt.Errorf("mark candidate promoted: %w", err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return &common.ConflictError{Message: "lead candidate already promoted"}
		}
		_, err = insertEvent(ctx, tx, lead.ID, EventPromotedFromDiscovery, eventData)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &lead, nil
}
