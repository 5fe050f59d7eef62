package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/verte-zerg/tabhero/internal/model"
)

var (
	bucketKV          = []byte("kv")
	bucketAcceptances = []byte("acceptances")
)

// BoltStore keeps the same data as Store in a bbolt file.
type BoltStore struct {
	db *bolt.DB
}

type acceptanceJSON struct {
	SessionID   string    `json:"session_id"`
	AcceptedAt  time.Time `json:"accepted_at"`
	DocumentURI string    `json:"document_uri"`
	Chars       int       `json:"chars"`
	Lines       int       `json:"lines"`
	Score       int       `json:"score"`
	Method      string    `json:"method"`
}

// OpenBolt opens (or creates) a bbolt database at path.
func OpenBolt(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketKV, bucketAcceptances} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on bucket setup failure.
			_ = cerr
		}
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Get returns the value stored under key.
func (s *BoltStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		// Copy bytes out of the transaction; bbolt slices are only valid within tx.
		if v := tx.Bucket(bucketKV).Get([]byte(key)); v != nil {
			value = make([]byte, len(v))
			copy(value, v)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, value != nil, nil
}

// Set overwrites the value stored under key.
func (s *BoltStore) Set(_ context.Context, key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketKV).Put([]byte(key), value)
	})
}

// RecordAcceptance appends one scored completion to the history.
func (s *BoltStore) RecordAcceptance(_ context.Context, a model.Acceptance) error {
	data, err := json.Marshal(acceptanceJSON{
		SessionID:   a.SessionID,
		AcceptedAt:  a.AcceptedAt,
		DocumentURI: a.DocumentURI,
		Chars:       a.Chars,
		Lines:       a.Lines,
		Score:       a.Score,
		Method:      string(a.Method),
	})
	if err != nil {
		return fmt.Errorf("marshal acceptance: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAcceptances)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(sequenceKey(seq), data)
	})
}

// ListAcceptances returns the most recent limit acceptances, oldest first.
// A limit of zero or less returns the whole history.
func (s *BoltStore) ListAcceptances(_ context.Context, limit int) ([]model.Acceptance, error) {
	var result []model.Acceptance
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketAcceptances).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(result) >= limit {
				break
			}
			var aj acceptanceJSON
			if err := json.Unmarshal(v, &aj); err != nil {
				return fmt.Errorf("unmarshal acceptance: %w", err)
			}
			result = append(result, model.Acceptance{
				SessionID:   aj.SessionID,
				AcceptedAt:  aj.AcceptedAt,
				DocumentURI: aj.DocumentURI,
				Chars:       aj.Chars,
				Lines:       aj.Lines,
				Score:       aj.Score,
				Method:      model.ScoreMethod(aj.Method),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result, nil
}

// sequenceKey encodes seq big-endian so cursor order matches insertion order.
func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
