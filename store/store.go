// Package store persists committed ledger state in a local SQLite
// database so a node restart resumes from its last committed height
// instead of replaying the chain.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"github.com/blockberries/founders/types"
)

// Store is a SQLite-backed height-indexed record of serialized state.
// One row per committed height; Save replaces on conflict so a re-run
// of the same height after a crash is harmless.
type Store struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens or creates the store at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, enc: enc, dec: dec}, nil
}

func initPragmas(db *sql.DB) error {
	// WAL keeps Save cheap; NORMAL is enough durability because the
	// chain itself can replay anything a crash loses.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS committed_state (
		height INTEGER PRIMARY KEY,
		app_hash BLOB NOT NULL,
		state BLOB NOT NULL,
		saved_at TEXT NOT NULL
	);`)
	return err
}

// Save records the serialized state at a height, compressed. The
// INSERT OR REPLACE makes re-saving a height idempotent.
func (s *Store) Save(height uint64, appHash types.AppHash, state []byte) error {
	blob := s.enc.EncodeAll(state, nil)
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO committed_state (height, app_hash, state, saved_at) VALUES (?, ?, ?, ?)`,
		int64(height), appHash[:], blob, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save state at height %d: %w", height, err)
	}
	return nil
}

// Latest returns the highest saved record, or ok=false on an empty
// store.
func (s *Store) Latest() (uint64, types.AppHash, []byte, bool, error) {
	var (
		height  int64
		hashRaw []byte
		blob    []byte
	)
	row := s.db.QueryRow(`SELECT height, app_hash, state FROM committed_state ORDER BY height DESC LIMIT 1`)
	if err := row.Scan(&height, &hashRaw, &blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, types.AppHash{}, nil, false, nil
		}
		return 0, types.AppHash{}, nil, false, fmt.Errorf("load latest state: %w", err)
	}
	var appHash types.AppHash
	if len(hashRaw) != len(appHash) {
		return 0, types.AppHash{}, nil, false, fmt.Errorf("corrupt app hash: %d bytes", len(hashRaw))
	}
	copy(appHash[:], hashRaw)

	state, err := s.dec.DecodeAll(blob, nil)
	if err != nil {
		return 0, types.AppHash{}, nil, false, fmt.Errorf("decompress state at height %d: %w", height, err)
	}
	return uint64(height), appHash, state, true, nil
}

// Prune discards records below the given height.
func (s *Store) Prune(below uint64) error {
	if _, err := s.db.Exec(`DELETE FROM committed_state WHERE height < ?`, int64(below)); err != nil {
		return fmt.Errorf("prune below height %d: %w", below, err)
	}
	return nil
}

// Close releases the database and compressor resources.
func (s *Store) Close() error {
	s.enc.Close()
	s.dec.Close()
	return s.db.Close()
}
