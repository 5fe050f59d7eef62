package store

import (
	"context"
	"sync"

	"github.com/verte-zerg/tabhero/internal/model"
)

// Memory is a Backend that keeps everything in process memory. It backs
// one-shot commands and tests.
type Memory struct {
	mu          sync.Mutex
	kv          map[string][]byte
	acceptances []model.Acceptance
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{kv: map[string][]byte{}}
}

// Get returns the value stored under key.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.kv[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Set overwrites the value stored under key.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.kv[key] = v
	return nil
}

// RecordAcceptance appends one scored completion to the history.
func (m *Memory) RecordAcceptance(_ context.Context, a model.Acceptance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acceptances = append(m.acceptances, a)
	return nil
}

// ListAcceptances returns the most recent limit acceptances, oldest first.
func (m *Memory) ListAcceptances(_ context.Context, limit int) ([]model.Acceptance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	start := 0
	if limit > 0 && len(m.acceptances) > limit {
		start = len(m.acceptances) - limit
	}
	out := make([]model.Acceptance, len(m.acceptances)-start)
	copy(out, m.acceptances[start:])
	return out, nil
}

// Close implements Backend.
func (m *Memory) Close() error {
	return nil
}
