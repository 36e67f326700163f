// Package store persists serialised snapshots between a teardown and the
// rebuild that follows it. Snapshots are opaque blobs keyed by slot.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned by Load when the slot holds nothing.
var ErrNotFound = errors.New("store: slot not found")

// Store is a blob store keyed by slot.
type Store interface {
	Save(ctx context.Context, slot string, blob []byte) error
	Load(ctx context.Context, slot string) ([]byte, error)
	// Clear removes the slot. Clearing an empty slot is not an error.
	Clear(ctx context.Context, slot string) error
}

// Lister is implemented by stores that can enumerate their slots.
type Lister interface {
	Slots(ctx context.Context) ([]string, error)
}

// Memory keeps blobs in process memory.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

func (m *Memory) Save(_ context.Context, slot string, blob []byte) error {
	m.mu.Lock()
	m.blobs[slot] = append([]byte(nil), blob...)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Load(_ context.Context, slot string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[slot]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *Memory) Clear(_ context.Context, slot string) error {
	m.mu.Lock()
	delete(m.blobs, slot)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Slots(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.blobs))
	for s := range m.blobs {
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}
