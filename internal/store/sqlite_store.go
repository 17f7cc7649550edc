package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go driver

	"github.com/streamhook/streamhook/internal/config"
	shErrors "github.com/streamhook/streamhook/pkg/streamhook/v1/errors"
	shlog "github.com/streamhook/streamhook/pkg/streamhook/v1/log"
)

const sqliteBusyTimeout = 5 * time.Second

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS document_revisions (
	revision       INTEGER PRIMARY KEY AUTOINCREMENT,
	saved_at       TEXT    NOT NULL,
	global_actions INTEGER NOT NULL,
	apps           INTEGER NOT NULL,
	content        TEXT    NOT NULL
)`

// Revision summarizes one saved version of the document.
type Revision struct {
	Number        int64     `json:"revision" yaml:"revision"`
	SavedAt       time.Time `json:"saved_at" yaml:"saved_at"`
	GlobalActions int       `json:"global_actions" yaml:"global_actions"`
	Apps          int       `json:"apps" yaml:"apps"`
}

// SQLiteStore keeps every saved version of the document in a SQLite
// database. Load returns the newest revision.
type SQLiteStore struct {
	db   *sql.DB
	path string
	log  shlog.Logger
	now  func() time.Time
}

// OpenSQLiteStore opens (creating if needed) the database at path.
func OpenSQLiteStore(ctx context.Context, path string, log shlog.Logger) (*SQLiteStore, error) {
	if log == nil {
		return nil, shErrors.NewConfigError("sqlite store requires a non-nil logger", nil)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		path, sqliteBusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, shErrors.NewConfigError(fmt.Sprintf("open sqlite database '%s'", path), err)
	}
	// One writer; revisions are appended in order.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, shErrors.NewConfigError(fmt.Sprintf("open sqlite database '%s'", path), err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, shErrors.NewConfigError(fmt.Sprintf("create schema in '%s'", path), err)
	}

	return &SQLiteStore{
		db:   db,
		path: path,
		log:  log.With("component", "SQLiteStore", "path", path),
		now:  time.Now,
	}, nil
}

// Load returns the newest revision.
func (s *SQLiteStore) Load(ctx context.Context) (*config.Document, error) {
	var content string
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM document_revisions ORDER BY revision DESC LIMIT 1`).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
	}
	if err != nil {
		return nil, shErrors.NewConfigError(fmt.Sprintf("read latest revision from '%s'", s.path), err)
	}
	return config.Load([]byte(content), s.path)
}

// Save appends doc as a new revision. Invalid documents are refused.
func (s *SQLiteStore) Save(ctx context.Context, doc *config.Document) error {
	content, err := encode(doc, s.path)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO document_revisions (saved_at, global_actions, apps, content) VALUES (?, ?, ?, ?)`,
		s.now().UTC().Format(time.RFC3339Nano), len(doc.GlobalEventActions), len(doc.Apps), string(content))
	if err != nil {
		return shErrors.NewConfigError(fmt.Sprintf("insert revision into '%s'", s.path), err)
	}
	if rev, err := res.LastInsertId(); err == nil {
		s.log.Infof("Saved configuration revision %d (%d global action(s), %d app(s))", rev, len(doc.GlobalEventActions), len(doc.Apps))
	}
	return nil
}

// History lists revisions newest first. A non-positive limit lists all.
func (s *SQLiteStore) History(ctx context.Context, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT revision, saved_at, global_actions, apps FROM document_revisions ORDER BY revision DESC LIMIT ?`, limit)
	if err != nil {
		return nil, shErrors.NewConfigError(fmt.Sprintf("list revisions in '%s'", s.path), err)
	}
	defer rows.Close()

	revisions := []Revision{}
	for rows.Next() {
		var (
			r       Revision
			savedAt string
		)
		if err := rows.Scan(&r.Number, &savedAt, &r.GlobalActions, &r.Apps); err != nil {
			return nil, shErrors.NewConfigError("scan revision", err)
		}
		if r.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt); err != nil {
			return nil, shErrors.NewConfigError(fmt.Sprintf("revision %d has a malformed timestamp", r.Number), err)
		}
		revisions = append(revisions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, shErrors.NewConfigError("iterate revisions", err)
	}
	return revisions, nil
}

// Restore saves revision number again as the newest revision.
func (s *SQLiteStore) Restore(ctx context.Context, number int64) error {
	var content string
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM document_revisions WHERE revision = ?`, number).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: revision %d in %s", ErrNotFound, number, s.path)
	}
	if err != nil {
		return shErrors.NewConfigError(fmt.Sprintf("read revision %d from '%s'", number, s.path), err)
	}

	doc, err := config.Load([]byte(content), s.path)
	if err != nil {
		return err
	}
	s.log.Infof("Restoring revision %d", number)
	return s.Save(ctx, doc)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
