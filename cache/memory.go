package cache

import "sync"

// Memory is an in-memory Store.
//
// It is useful in tests and in short-lived processes that want hit/miss
// semantics without persistence. Contents are copied on Put and on Get, so
// callers may reuse or mutate their buffers freely.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ Store = (*Memory)(nil)

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Get retrieves a copy of the content stored under the entry name.
func (m *Memory) Get(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.data[name]
	if !ok {
		return nil, false
	}
	buf := make([]byte, len(content))
	copy(buf, content)
	return buf, true
}

// Put stores a copy of content under the entry name.
func (m *Memory) Put(name string, content []byte) error {
	buf := make([]byte, len(content))
	copy(buf, content)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[name] = buf
	return nil
}

// Len reports the number of stored entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
