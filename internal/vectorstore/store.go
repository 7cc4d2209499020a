// Package vectorstore persists embedded document chunks into the on-disk
// vector index consumed by the API server. The bootstrap only writes and
// counts; similarity search belongs to the serving side.
package vectorstore

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DBFileName is the SQLite file created inside the index directory.
const DBFileName = "vectors.db"

// Record represents one embedded chunk in the store.
type Record struct {
	ID        string
	Source    string
	TextChunk string
	Embedding []float32
	CreatedAt time.Time
}

// Store wraps a SQLite database holding the vector index.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	text_chunk TEXT NOT NULL,
	embedding BLOB NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);
`

// Open opens (or creates) the vector store inside indexDir and ensures the
// schema exists. Pass ":memory:" as indexDir for an in-memory store (used
// by tests).
func Open(indexDir string) (*Store, error) {
	var dsn string
	if indexDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(indexDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
		dsn = filepath.Join(indexDir, DBFileName)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert adds records in a single transaction.
func (s *Store) Insert(records []Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning insert transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO chunks (id, source, text_chunk, embedding, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		blob := encodeFloat32s(r.Embedding)
		createdAt := r.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := stmt.Exec(r.ID, r.Source, r.TextChunk, blob, createdAt.Format(time.RFC3339)); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting record %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// Count returns the number of stored chunks.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// Sources returns the distinct document sources present in the store.
func (s *Store) Sources() ([]string, error) {
	rows, err := s.db.Query("SELECT DISTINCT source FROM chunks ORDER BY source")
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// encodeFloat32s packs a float32 slice into a little-endian byte blob.
func encodeFloat32s(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeFloat32s unpacks a little-endian byte blob into a float32 slice.
func decodeFloat32s(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
