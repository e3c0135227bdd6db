// Package revocation implements a persistent store of revoked capability
// ids that backs the optional inspectCapabilityChain hook of spec.md §4.4
// step 8 / §9: a capability carried in an otherwise-valid chain still fails
// verification once it (or any of its ancestors) has been revoked here.
//
// The store itself is out of scope for the core engine (spec.md §1 puts
// revocation policy behind an injected hook), but the HTTP API and the
// cmd/zcapverify service need a concrete, persistent one to be exercised
// against.
package revocation

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store persists revoked capability ids in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite-backed revocation store at
// path. Pragmas and pool limits mirror the teacher's own log store: WAL
// mode, a bounded busy timeout, and a small connection pool since SQLite
// serializes writers regardless of pool size.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create revocation store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+
		"?_pragma=journal_mode(WAL)"+
		"&_pragma=busy_timeout(5000)"+
		"&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open revocation store: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize revocation schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Revoke marks capabilityID as revoked. Idempotent.
func (s *Store) Revoke(ctx context.Context, capabilityID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO revocations (capability_id, revoked_at) VALUES (?, ?)
		 ON CONFLICT(capability_id) DO NOTHING`,
		capabilityID, time.Now().UTC().Format(time.RFC3339))
	return err
}

// IsRevoked reports whether capabilityID has been revoked.
func (s *Store) IsRevoked(ctx context.Context, capabilityID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM revocations WHERE capability_id = ?`, capabilityID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// List returns every revoked capability id, oldest revocation first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT capability_id FROM revocations ORDER BY revoked_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
