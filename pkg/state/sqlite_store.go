package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const (
	snapshotTableSchema = `CREATE TABLE IF NOT EXISTS snapshots (
	key TEXT PRIMARY KEY,
	payload TEXT NOT NULL,
	snapshot_id TEXT,
	etag TEXT,
	updated_at TEXT,
	extra TEXT
);`

	snapshotUpsert = `INSERT INTO snapshots (key, payload, snapshot_id, etag, updated_at, extra)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
	payload = excluded.payload,
	snapshot_id = excluded.snapshot_id,
	etag = excluded.etag,
	updated_at = excluded.updated_at,
	extra = excluded.extra;`

	snapshotSelect = `SELECT payload, snapshot_id, etag, updated_at, extra FROM snapshots WHERE key = ?;`
)

// SQLiteStore persists JSON-encoded snapshots in a single SQLite table.
type SQLiteStore[T any] struct {
	mu   sync.Mutex
	conn *sqlite.Conn
}

// OpenSQLiteStore opens (or creates) the database at path and ensures the
// snapshots table exists.
func OpenSQLiteStore[T any](path string) (*SQLiteStore[T], error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate, sqlite.OpenReadWrite)
	if err != nil {
		return nil, fmt.Errorf("state: open %q: %w", path, err)
	}
	if err := sqlitex.Execute(conn, snapshotTableSchema, &sqlitex.ExecOptions{}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("state: create table: %w", err)
	}
	return &SQLiteStore[T]{conn: conn}, nil
}

// Close releases the underlying connection.
func (s *SQLiteStore[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

func (s *SQLiteStore[T]) Load(_ context.Context, ref Ref) (T, Meta, bool, error) {
	var zero T
	key, err := ref.Identifier()
	if err != nil {
		return zero, Meta{}, false, err
	}

	var (
		payload, extra, updated string
		meta                    Meta
		found                   bool
	)
	s.mu.Lock()
	err = sqlitex.Execute(s.conn, snapshotSelect, &sqlitex.ExecOptions{
		Args: []any{key},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			found = true
			payload = stmt.ColumnText(0)
			meta.SnapshotID = stmt.ColumnText(1)
			meta.ETag = stmt.ColumnText(2)
			updated = stmt.ColumnText(3)
			extra = stmt.ColumnText(4)
			return nil
		},
	})
	s.mu.Unlock()
	if err != nil {
		return zero, Meta{}, false, fmt.Errorf("state: select %q: %w", key, err)
	}
	if !found {
		return zero, Meta{}, false, nil
	}

	var snapshot T
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		return zero, Meta{}, false, fmt.Errorf("state: decode %q: %w", key, err)
	}
	if updated != "" {
		if meta.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return zero, Meta{}, false, fmt.Errorf("state: decode %q updated_at: %w", key, err)
		}
	}
	if extra != "" {
		if err := json.Unmarshal([]byte(extra), &meta.Extra); err != nil {
			return zero, Meta{}, false, fmt.Errorf("state: decode %q extra: %w", key, err)
		}
	}
	return snapshot, meta, true, nil
}

func (s *SQLiteStore[T]) Save(_ context.Context, ref Ref, snapshot T, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return Meta{}, fmt.Errorf("state: encode %q: %w", key, err)
	}
	var extra []byte
	if meta.Extra != nil {
		if extra, err = json.Marshal(meta.Extra); err != nil {
			return Meta{}, fmt.Errorf("state: encode %q extra: %w", key, err)
		}
	}
	var updated string
	if !meta.UpdatedAt.IsZero() {
		updated = meta.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}

	s.mu.Lock()
	err = sqlitex.Execute(s.conn, snapshotUpsert, &sqlitex.ExecOptions{
		Args: []any{key, string(payload), meta.SnapshotID, meta.ETag, updated, string(extra)},
	})
	s.mu.Unlock()
	if err != nil {
		return Meta{}, fmt.Errorf("state: upsert %q: %w", key, err)
	}
	return cloneMeta(meta), nil
}
