package docstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/gamma-omg/servicelog-mcp/records"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Keys of the JSON arrays kept in the records table.
const (
	KeyJobs            = "jobs"
	KeyAttachments     = "attachments"
	KeyDocuments       = "documents"
	KeyCustomTemplates = "custom-templates"
)

// Source ties a file under the document root to the document it produced.
type Source struct {
	Path  string
	DocID string
	Crc   uint32
}

type SQLiteStore struct {
	db *sql.DB
}

// Open opens (or creates) the database at dsn and applies pending migrations.
// ":memory:" gives a private in-memory database.
func Open(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}

	p, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// LoadState reads all records. Missing keys yield empty, non-nil slices.
func (s *SQLiteStore) LoadState(ctx context.Context) (records.State, error) {
	state := records.State{
		Jobs:        []records.Job{},
		Documents:   []records.Document{},
		Attachments: []records.Attachment{},
	}

	if err := s.get(ctx, KeyJobs, &state.Jobs); err != nil {
		return records.State{}, err
	}
	if err := s.get(ctx, KeyDocuments, &state.Documents); err != nil {
		return records.State{}, err
	}
	if err := s.get(ctx, KeyAttachments, &state.Attachments); err != nil {
		return records.State{}, err
	}

	return state, nil
}

// SaveState replaces all records in a single transaction.
func (s *SQLiteStore) SaveState(ctx context.Context, state records.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	values := map[string]any{
		KeyJobs:        nonNil(state.Jobs),
		KeyDocuments:   nonNil(state.Documents),
		KeyAttachments: nonNil(state.Attachments),
	}
	for key, v := range values {
		if err := set(ctx, tx, key, v); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit records: %w", err)
	}

	return nil
}

func (s *SQLiteStore) LoadTemplates(ctx context.Context) ([]records.JobTemplate, error) {
	templates := []records.JobTemplate{}
	if err := s.get(ctx, KeyCustomTemplates, &templates); err != nil {
		return nil, err
	}

	return templates, nil
}

func (s *SQLiteStore) SaveTemplates(ctx context.Context, templates []records.JobTemplate) error {
	return set(ctx, s.db, KeyCustomTemplates, nonNil(templates))
}

func (s *SQLiteStore) Sources(ctx context.Context) ([]Source, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, doc_id, crc FROM sources ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var res []Source
	for rows.Next() {
		var src Source
		if err := rows.Scan(&src.Path, &src.DocID, &src.Crc); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		res = append(res, src)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate source rows: %w", err)
	}

	return res, nil
}

func (s *SQLiteStore) PutSource(ctx context.Context, src Source) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sources (path, doc_id, crc) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET doc_id = excluded.doc_id, crc = excluded.crc
	`, src.Path, src.DocID, src.Crc)
	if err != nil {
		return fmt.Errorf("failed to store source %s: %w", src.Path, err)
	}

	return nil
}

func (s *SQLiteStore) DeleteSource(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sources WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("failed to delete source %s: %w", path, err)
	}

	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) get(ctx context.Context, key string, dst any) error {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM records WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(value), dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}

	return nil
}

func set(ctx context.Context, db execer, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO records (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, string(raw))
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}

	return s
}
