package archive

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store is the durable record store for archived issues, backed by SQLite.
// Writes are expected to come from a single goroutine at a time; reads are
// safe to interleave (WAL mode).
type Store struct {
	db *sqlx.DB
}

// Open opens (or creates) the archive database at path and applies pending
// migrations. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return nil, err
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get retrieves an issue by ID. Returns (nil, nil) when not found.
func (s *Store) Get(id string) (*Issue, error) {
	var issue Issue
	err := s.db.Get(&issue, "SELECT * FROM issues WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

// GetBySource retrieves an issue by its source-system identifier. This is the
// secondary lookup key sync change-detection runs on.
func (s *Store) GetBySource(source, sourceID string) (*Issue, error) {
	var issue Issue
	err := s.db.Get(&issue, "SELECT * FROM issues WHERE source = ? AND source_id = ?", source, sourceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

// Insert stores a new issue. The ID is derived when empty. CreatedAt and
// UpdatedAt are set by the store.
func (s *Store) Insert(issue *Issue) error {
	if issue.ID == "" {
		var sourceID string
		if issue.SourceID != nil {
			sourceID = *issue.SourceID
		}
		issue.ID = DeriveID(issue.Source, sourceID, issue.SentAt, issue.Subject)
	}

	now := time.Now().UTC()
	issue.CreatedAt = now
	issue.UpdatedAt = now

	_, err := s.db.NamedExec(`
		INSERT INTO issues (id, name, subject, preview_text, sent_at, source, source_id, content_path, hidden, created_at, updated_at)
		VALUES (:id, :name, :subject, :preview_text, :sent_at, :source, :source_id, :content_path, :hidden, :created_at, :updated_at)
	`, issue)
	if err != nil {
		return fmt.Errorf("insert issue %s: %w", issue.ID, err)
	}
	return nil
}

// Update overwrites the mutable fields of an existing issue and bumps
// UpdatedAt. The ID is never reassigned.
func (s *Store) Update(issue *Issue) error {
	issue.UpdatedAt = time.Now().UTC()

	res, err := s.db.NamedExec(`
		UPDATE issues SET
			name = :name,
			subject = :subject,
			preview_text = :preview_text,
			sent_at = :sent_at,
			content_path = :content_path,
			hidden = :hidden,
			updated_at = :updated_at
		WHERE id = :id
	`, issue)
	if err != nil {
		return fmt.Errorf("update issue %s: %w", issue.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("update issue %s: not found", issue.ID)
	}
	return nil
}

// ListOptions filters and paginates List.
type ListOptions struct {
	IncludeHidden bool
	Source        string // empty = all sources
	Limit         int    // 0 = no limit
	Offset        int
	OrderAsc      bool // default newest first
}

// List retrieves issues ordered by sent_at. Hidden issues are excluded
// unless IncludeHidden is set.
func (s *Store) List(opts ListOptions) ([]Issue, error) {
	query := "SELECT * FROM issues WHERE 1=1"
	var args []interface{}

	if !opts.IncludeHidden {
		query += " AND hidden = 0"
	}
	if opts.Source != "" {
		query += " AND source = ?"
		args = append(args, opts.Source)
	}

	if opts.OrderAsc {
		query += " ORDER BY sent_at ASC"
	} else {
		query += " ORDER BY sent_at DESC"
	}

	if opts.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, opts.Offset)
	}

	var issues []Issue
	if err := s.db.Select(&issues, query, args...); err != nil {
		return nil, err
	}
	return issues, nil
}

// Count returns the number of archived issues.
func (s *Store) Count(includeHidden bool) (int, error) {
	query := "SELECT COUNT(*) FROM issues"
	if !includeHidden {
		query += " WHERE hidden = 0"
	}
	var count int
	err := s.db.Get(&count, query)
	return count, err
}

// SetHidden toggles an issue's visibility. Hidden issues stay in storage but
// are excluded from listings and search.
func (s *Store) SetHidden(id string, hidden bool) error {
	res, err := s.db.Exec("UPDATE issues SET hidden = ?, updated_at = ? WHERE id = ?",
		hidden, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("issue %s: not found", id)
	}
	return nil
}

// Delete removes an issue.
func (s *Store) Delete(id string) error {
	_, err := s.db.Exec("DELETE FROM issues WHERE id = ?", id)
	return err
}

// GetSetting reads an operational setting. Returns "" when unset.
func (s *Store) GetSetting(key string) (string, error) {
	var value sql.NullString
	err := s.db.Get(&value, "SELECT value FROM settings WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value.String, nil
}

// SetSetting upserts an operational setting (e.g. last_sync).
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	return err
}
