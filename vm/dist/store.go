package dist

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// ErrChunkNotFound indicates the requested chunk is not in the store.
var ErrChunkNotFound = errors.New("chunk not found")

// ChunkStore is the SQLite-backed cache of received and published chunks.
// Chunks are immutable once written; the hash is the primary key.
type ChunkStore struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenChunkStore opens (or creates) a chunk store at path. Use ":memory:"
// for a throwaway store.
func OpenChunkStore(path string) (*ChunkStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening chunk store: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS chunks (
		hash TEXT PRIMARY KEY,
		type INTEGER NOT NULL,
		data BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating chunks table: %w", err)
	}
	return &ChunkStore{db: db}, nil
}

// Close closes the underlying database.
func (s *ChunkStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put stores a chunk, replacing any previous chunk with the same hash.
func (s *ChunkStore) Put(c *Chunk) error {
	data, err := MarshalChunk(c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO chunks (hash, type, data) VALUES (?, ?, ?)",
		hex.EncodeToString(c.Hash[:]), int(c.Type), data,
	)
	if err != nil {
		return fmt.Errorf("saving chunk: %w", err)
	}
	return nil
}

// Get loads the chunk with the given hash.
func (s *ChunkStore) Get(h [32]byte) (*Chunk, error) {
	var data []byte
	err := s.db.QueryRow(
		"SELECT data FROM chunks WHERE hash = ?", hex.EncodeToString(h[:]),
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChunkNotFound
		}
		return nil, fmt.Errorf("querying chunk: %w", err)
	}
	return UnmarshalChunk(data)
}

// Has reports whether the store holds a chunk with the given hash.
func (s *ChunkStore) Has(h [32]byte) (bool, error) {
	var one int
	err := s.db.QueryRow(
		"SELECT 1 FROM chunks WHERE hash = ?", hex.EncodeToString(h[:]),
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying chunk: %w", err)
	}
	return true, nil
}

// AllHashes returns the hashes of every stored chunk.
func (s *ChunkStore) AllHashes() ([][32]byte, error) {
	rows, err := s.db.Query("SELECT hash FROM chunks")
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	defer rows.Close()

	var out [][32]byte
	for rows.Next() {
		var hs string
		if err := rows.Scan(&hs); err != nil {
			return nil, err
		}
		raw, err := hex.DecodeString(hs)
		if err != nil || len(raw) != 32 {
			return nil, fmt.Errorf("corrupt chunk hash: %q", hs)
		}
		var h [32]byte
		copy(h[:], raw)
		out = append(out, h)
	}
	return out, rows.Err()
}

// BuildSyncRequest compares a peer's advertised hashes against the store
// and asks for what is missing.
func (s *ChunkStore) BuildSyncRequest(advertised [][32]byte) (*SyncRequest, error) {
	have, err := s.AllHashes()
	if err != nil {
		return nil, err
	}
	req := &SyncRequest{Have: have}
	for _, h := range advertised {
		ok, err := s.Has(h)
		if err != nil {
			return nil, err
		}
		if !ok {
			req.Want = append(req.Want, h)
		}
	}
	return req, nil
}
