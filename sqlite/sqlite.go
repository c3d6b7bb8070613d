// Package sqlite implements the blob storage contract on a SQLite database.
//
// Unlike the in-memory and filesystem backends, this store has native
// transactional capability: BeginTx opens a real database transaction, store
// operations issued while it is open execute inside it, and Rollback
// genuinely undoes them.
//
// The store assumes exclusive ownership of the database file; one process,
// one Store.
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/blobstore-go/blobstore"
)

const busyTimeoutMS = 5000

const schema = `
CREATE TABLE IF NOT EXISTS blobs (
	full_path     TEXT PRIMARY KEY,
	folder_path   TEXT NOT NULL,
	name          TEXT NOT NULL,
	data          BLOB NOT NULL,
	content_hash  TEXT NOT NULL,
	last_modified INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS blobs_folder_path ON blobs (folder_path);
`

// Store is a SQLite-backed blobstore.Store.
type Store struct {
	db *sql.DB

	// mu serializes operations and guards active. Holding it for the whole
	// operation makes append read-modify-write atomic.
	mu     sync.Mutex
	active *sql.Tx
}

var _ blobstore.Store = (*Store)(nil)

// Open opens or creates the database at path and bootstraps the schema.
// Use ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		fmt.Sprintf("PRAGMA busy_timeout = %d;", busyTimeoutMS),
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("configure database: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// q returns the open transaction when there is one, otherwise the database.
// Callers hold mu.
func (s *Store) q() querier {
	if s.active != nil {
		return s.active
	}
	return s.db
}

// List selects candidate rows by folder in SQL and applies the option
// predicates in Go.
func (s *Store) List(ctx context.Context, opts blobstore.ListOptions) ([]blobstore.Blob, error) {
	folder, err := blobstore.NormalizeFolder(opts.FolderPath)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.q()

	var rows *sql.Rows
	switch {
	case opts.Recurse && folder == "/":
		rows, err = q.QueryContext(ctx, `SELECT full_path FROM blobs`)
	case opts.Recurse:
		// substr avoids LIKE-escaping the folder path.
		prefix := folder + "/"
		rows, err = q.QueryContext(ctx,
			`SELECT full_path FROM blobs WHERE folder_path = ? OR substr(folder_path, 1, ?) = ?`,
			folder, len(prefix), prefix)
	default:
		rows, err = q.QueryContext(ctx, `SELECT full_path FROM blobs WHERE folder_path = ?`, folder)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return blobstore.SelectBlobs(opts, paths)
}

// Write stores or appends content under path.
func (s *Store) Write(ctx context.Context, path string, content []byte, appendMode bool) error {
	full, err := blobstore.NormalizePath(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.q()

	if appendMode {
		var prev []byte
		err := q.QueryRowContext(ctx, `SELECT data FROM blobs WHERE full_path = ?`, full).Scan(&prev)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// Append to a missing blob degrades to a plain write.
		case err != nil:
			return err
		default:
			return upsertBlob(ctx, q, full, append(prev, content...))
		}
	}
	return upsertBlob(ctx, q, full, content)
}

// OpenWrite returns a deferred-commit handle; the commit lands as one Write.
func (s *Store) OpenWrite(ctx context.Context, path string, appendMode bool) (blobstore.WriteHandle, error) {
	full, err := blobstore.NormalizePath(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return blobstore.NewDeferredWriter(ctx, s, full, appendMode), nil
}

// OpenRead returns a reader over the row's content as of the call.
func (s *Store) OpenRead(ctx context.Context, path string) (io.ReadCloser, bool, error) {
	full, err := blobstore.NormalizePath(path)
	if err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var data []byte
	err = s.q().QueryRowContext(ctx, `SELECT data FROM blobs WHERE full_path = ?`, full).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return io.NopCloser(bytes.NewReader(data)), true, nil
}

// Delete removes each row independently; missing rows are a no-op.
func (s *Store) Delete(ctx context.Context, paths ...string) error {
	fulls, err := blobstore.NormalizePaths(paths)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.q()

	for _, full := range fulls {
		if _, err := q.ExecContext(ctx, `DELETE FROM blobs WHERE full_path = ?`, full); err != nil {
			return err
		}
	}
	return nil
}

// Exists reports row existence per path in input order.
func (s *Store) Exists(ctx context.Context, paths ...string) ([]bool, error) {
	fulls, err := blobstore.NormalizePaths(paths)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.q()

	out := make([]bool, len(fulls))
	for i, full := range fulls {
		var one int
		err := q.QueryRowContext(ctx, `SELECT 1 FROM blobs WHERE full_path = ? LIMIT 1`, full).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[i] = true
	}
	return out, nil
}

// Metadata resolves metadata per path in input order, nil for missing rows.
func (s *Store) Metadata(ctx context.Context, paths ...string) ([]*blobstore.Blob, error) {
	fulls, err := blobstore.NormalizePaths(paths)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.q()

	out := make([]*blobstore.Blob, len(fulls))
	for i, full := range fulls {
		var (
			size     int64
			hash     string
			modified int64
		)
		err := q.QueryRowContext(ctx,
			`SELECT length(data), content_hash, last_modified FROM blobs WHERE full_path = ?`,
			full).Scan(&size, &hash, &modified)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		folder, name := blobstore.SplitPath(full)
		out[i] = &blobstore.Blob{
			FullPath:     full,
			FolderPath:   folder,
			Name:         name,
			Size:         size,
			ContentHash:  hash,
			LastModified: time.Unix(0, modified).UTC(),
		}
	}
	return out, nil
}

// BeginTx opens a real database transaction. While it is open, all store
// operations execute inside it; only one transaction may be open at a time.
func (s *Store) BeginTx(ctx context.Context) (blobstore.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		return nil, blobstore.ErrTxActive
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	s.active = tx
	return &sqlTx{store: s, tx: tx}, nil
}

func upsertBlob(ctx context.Context, q querier, full string, content []byte) error {
	if content == nil {
		content = []byte{}
	}
	folder, name := blobstore.SplitPath(full)
	_, err := q.ExecContext(ctx, `
		INSERT INTO blobs (full_path, folder_path, name, data, content_hash, last_modified)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(full_path) DO UPDATE SET
			data          = excluded.data,
			content_hash  = excluded.content_hash,
			last_modified = excluded.last_modified`,
		full, folder, name, content, blobstore.HashContent(content), time.Now().UTC().UnixNano())
	return err
}

// sqlTx is the real transaction handle. Commit and Rollback finish it
// exactly once; Close rolls back when the handle was left open. All three
// are no-ops after the first finish.
type sqlTx struct {
	store *Store
	tx    *sql.Tx

	mu   sync.Mutex
	done bool
}

var _ blobstore.Tx = (*sqlTx)(nil)

func (t *sqlTx) Commit() error   { return t.finish(true) }
func (t *sqlTx) Rollback() error { return t.finish(false) }
func (t *sqlTx) Close() error    { return t.finish(false) }

func (t *sqlTx) finish(commit bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return nil
	}
	t.done = true

	t.store.mu.Lock()
	t.store.active = nil
	t.store.mu.Unlock()

	if commit {
		return t.tx.Commit()
	}
	return t.tx.Rollback()
}
