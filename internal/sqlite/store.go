// File path: internal/sqlite/store.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Store wraps a pooled sqlx.DB connection to the funnel database.
type Store struct {
	db *sqlx.DB
}

// Open constructs a Store from SQLITE_* configuration, with path taking
// precedence when non-empty.
func Open(path string) (*Store, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		cfg.Path = trimmed
	}
	return OpenWithConfig(cfg)
}

// OpenWithConfig constructs a Store using the provided configuration. The
// schema is migrated before the store is returned.
func OpenWithConfig(cfg Config) (*Store, error) {
	cfg.ApplyDefaults()
	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve sqlite path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}
	busy := int(cfg.BusyTimeout / time.Millisecond)
	if busy <= 0 {
		busy = 5000
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_txlock=immediate&_time_format=sqlite", abs, busy)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.BusyTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying sqlx.DB for advanced callers.
func (s *Store) DB() *sqlx.DB {
	if s == nil {
		return nil
	}
	return s.db
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errNotInitialised
	}
	return s.db.PingContext(ctx)
}

var errNotInitialised = errors.New("sqlite store not initialised")

func (s *Store) migrate(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errNotInitialised
	}
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute schema statement %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS leads (
                id TEXT PRIMARY KEY,
                email TEXT NOT NULL,
                first_name TEXT NOT NULL DEFAULT '',
                last_name TEXT NOT NULL DEFAULT '',
                company_name TEXT NOT NULL DEFAULT '',
                phone TEXT NOT NULL DEFAULT '',
                team_size TEXT NOT NULL DEFAULT '',
                service_interest TEXT NOT NULL DEFAULT '',
                main_challenge TEXT NOT NULL DEFAULT '',
                source TEXT NOT NULL,
                lead_score INTEGER NOT NULL DEFAULT 0,
                status TEXT NOT NULL DEFAULT 'new',
                readiness_score INTEGER,
                readiness_answers TEXT,
                chatbot_conversation_id TEXT NOT NULL DEFAULT '',
                chatbot_summary TEXT NOT NULL DEFAULT '',
                created_at DATETIME NOT NULL,
                updated_at DATETIME NOT NULL,
                UNIQUE(email)
        );`,
	`CREATE TABLE IF NOT EXISTS lead_events (
                id TEXT PRIMARY KEY,
                lead_id TEXT NOT NULL,
                event_type TEXT NOT NULL,
                event_data TEXT NOT NULL DEFAULT '{}',
                created_at DATETIME NOT NULL,
                FOREIGN KEY(lead_id) REFERENCES leads(id)
        );`,
	`CREATE TABLE IF NOT EXISTS lead_notes (
                id TEXT PRIMARY KEY,
                lead_id TEXT NOT NULL,
                note TEXT NOT NULL,
                created_at DATETIME NOT NULL,
                FOREIGN KEY(lead_id) REFERENCES leads(id)
        );`,
	`CREATE TABLE IF NOT EXISTS lead_candidates (
                id TEXT PRIMARY KEY,
                business_name TEXT NOT NULL,
                website TEXT NOT NULL DEFAULT '',
                location TEXT NOT NULL DEFAULT '',
                industry TEXT NOT NULL DEFAULT '',
                contact_email TEXT NOT NULL DEFAULT '',
                email_is_guessed INTEGER NOT NULL DEFAULT 0,
                fit_score INTEGER NOT NULL,
                fit_notes TEXT NOT NULL DEFAULT '',
                source TEXT NOT NULL,
                status TEXT NOT NULL DEFAULT 'new',
                created_at DATETIME NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS content_pages (
                id TEXT PRIMARY KEY,
                title TEXT NOT NULL,
                url TEXT NOT NULL,
                primary_topic TEXT NOT NULL DEFAULT '',
                location_focus TEXT NOT NULL DEFAULT 'none',
                status TEXT NOT NULL DEFAULT 'draft',
                notes TEXT NOT NULL DEFAULT '',
                review_notes TEXT NOT NULL DEFAULT '',
                last_reviewed DATETIME,
                next_review_date DATETIME,
                page_views INTEGER NOT NULL DEFAULT 0,
                cta_clicks INTEGER NOT NULL DEFAULT 0,
                ai_summary TEXT NOT NULL DEFAULT '',
                ai_generated_at DATETIME,
                suggested_keywords TEXT NOT NULL DEFAULT '[]',
                suggested_local_phrases TEXT NOT NULL DEFAULT '[]',
                has_birmingham_mention INTEGER NOT NULL DEFAULT 0,
                has_west_midlands_mention INTEGER NOT NULL DEFAULT 0,
                suggested_review_date DATETIME,
                ai_analysis TEXT,
                created_at DATETIME NOT NULL,
                updated_at DATETIME NOT NULL,
                UNIQUE(url)
        );`,
	`CREATE TABLE IF NOT EXISTS chatbot_messages (
                id TEXT PRIMARY KEY,
                conversation_id TEXT NOT NULL,
                role TEXT NOT NULL,
                content TEXT NOT NULL,
                created_at DATETIME NOT NULL
        );`,
	`CREATE INDEX IF NOT EXISTS idx_leads_created ON leads(created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);`,
	`CREATE INDEX IF NOT EXISTS idx_lead_events_lead ON lead_events(lead_id, created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_lead_notes_lead ON lead_notes(lead_id, created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_lead_candidates_status ON lead_candidates(status, created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_content_pages_reviewed ON content_pages(last_reviewed);`,
	`CREATE INDEX IF NOT EXISTS idx_chatbot_messages_conversation ON chatbot_messages(conversation_id, created_at);`,
}
