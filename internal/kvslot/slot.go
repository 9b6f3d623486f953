// Package kvslot provides the durable key-value slot the embedded store
// persists its snapshots into: one fixed key, overwritten wholesale on
// every write, surviving process restarts.
package kvslot

import (
	"context"
	"sync"
)

// Slot is a single durable value. Read reports ok=false when nothing has
// been written yet; that is not an error. Write replaces the previous
// value unconditionally.
type Slot interface {
	Read(ctx context.Context) (data []byte, ok bool, err error)
	Write(ctx context.Context, data []byte) error
}

// Memory is an in-process Slot for tests and throwaway runs.
type Memory struct {
	mu   sync.Mutex
	data []byte
	set  bool
}

// NewMemory returns an empty in-memory slot.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Read(_ context.Context) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return nil, false, nil
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, true, nil
}

func (m *Memory) Write(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make([]byte, len(data))
	copy(m.data, data)
	m.set = true
	return nil
}
