package storage

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteDB implements DB using a single-table SQLite database.
// The driver is pure Go, so the backend works without cgo.
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLite creates (or opens) a SQLite database at the given path.
// Use ":memory:" for an ephemeral database.
func NewSQLite(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database at %s: %w", path, err)
	}

	// WAL keeps readers from blocking the single writer; the busy timeout
	// covers writer handoff between connections.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA synchronous=NORMAL;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite pragma: %w", err)
		}
	}

	s := &SQLiteDB{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteDB) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			k BLOB PRIMARY KEY,
			v BLOB NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("sqlite migrate: %w", err)
	}
	return nil
}

// Get retrieves a value by key. Returns ErrKeyNotFound if the key does not exist.
func (s *SQLiteDB) Get(key []byte) ([]byte, error) {
	var val []byte
	err := s.db.QueryRow("SELECT v FROM kv WHERE k = ?", key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite get: %w", err)
	}
	return val, nil
}

// Put stores a key-value pair.
func (s *SQLiteDB) Put(key, value []byte) error {
	_, err := s.db.Exec(
		"INSERT INTO kv (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("sqlite put: %w", err)
	}
	return nil
}

// Delete removes a key.
func (s *SQLiteDB) Delete(key []byte) error {
	_, err := s.db.Exec("DELETE FROM kv WHERE k = ?", key)
	if err != nil {
		return fmt.Errorf("sqlite delete: %w", err)
	}
	return nil
}

// Has checks if a key exists.
func (s *SQLiteDB) Has(key []byte) (bool, error) {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM kv WHERE k = ?", key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite has: %w", err)
	}
	return true, nil
}

// ForEach iterates over all keys with the given prefix in key order.
func (s *SQLiteDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	var rows *sql.Rows
	var err error

	upper := prefixUpperBound(prefix)
	switch {
	case len(prefix) == 0:
		rows, err = s.db.Query("SELECT k, v FROM kv ORDER BY k")
	case upper == nil:
		// Prefix is all 0xff bytes; no finite upper bound exists.
		rows, err = s.db.Query("SELECT k, v FROM kv WHERE k >= ? ORDER BY k", prefix)
	default:
		rows, err = s.db.Query("SELECT k, v FROM kv WHERE k >= ? AND k < ? ORDER BY k", prefix, upper)
	}
	if err != nil {
		return fmt.Errorf("sqlite foreach: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v []byte
		if err := rows.Scan(&k, &v); err != nil {
			return fmt.Errorf("sqlite foreach scan: %w", err)
		}
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return rows.Err()
}

// NewBatch returns a batch that applies all buffered operations in a
// single SQL transaction on Commit.
func (s *SQLiteDB) NewBatch() Batch {
	return &sqliteBatch{db: s.db}
}

// Close closes the database.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// prefixUpperBound returns the smallest byte string greater than every
// string with the given prefix, or nil when no such bound exists.
func prefixUpperBound(prefix []byte) []byte {
	for i := len(prefix) - 1; i >= 0; i-- {
		if prefix[i] != 0xff {
			upper := make([]byte, i+1)
			copy(upper, prefix[:i+1])
			upper[i]++
			return upper
		}
	}
	return nil
}

type sqliteBatch struct {
	db  *sql.DB
	ops []batchOp
}

func (sb *sqliteBatch) Put(key, value []byte) error {
	sb.ops = append(sb.ops, batchOp{key: copyBytes(key), value: copyBytes(value)})
	return nil
}

func (sb *sqliteBatch) Delete(key []byte) error {
	sb.ops = append(sb.ops, batchOp{key: copyBytes(key)})
	return nil
}

func (sb *sqliteBatch) Commit() error {
	tx, err := sb.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite batch begin: %w", err)
	}
	for _, op := range sb.ops {
		if op.value == nil {
			_, err = tx.Exec("DELETE FROM kv WHERE k = ?", op.key)
		} else {
			_, err = tx.Exec(
				"INSERT INTO kv (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v",
				op.key, op.value,
			)
		}
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite batch exec: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite batch commit: %w", err)
	}
	sb.ops = nil
	return nil
}
