package services

import "sync"

// Memory is an in-process key-value store. A positive Quota bounds the total number of value bytes held,
// mimicking the capacity limit of browser storage.
type Memory struct {
	Quota int

	mu     sync.Mutex
	values map[string][]byte
}

// NewMemory creates an empty store with the given quota in bytes; zero means unlimited.
func NewMemory(quota int) *Memory {
	return &Memory{
		Quota:  quota,
		values: make(map[string][]byte),
	}
}

// Get returns a copy of the value stored under key, or ErrNotFound.
func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value under key. It fails with ErrQuotaExceeded, leaving the previous value in
// place, when the write would exceed the quota.
func (m *Memory) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.values == nil {
		m.values = make(map[string][]byte)
	}

	if m.Quota > 0 {
		used := 0
		for k, v := range m.values {
			if k != key {
				used += len(v)
			}
		}
		if used+len(value) > m.Quota {
			return ErrQuotaExceeded
		}
	}

	m.values[key] = append([]byte(nil), value...)
	return nil
}

// Close is a no-op so Memory satisfies the same shape as the persistent engines.
func (m *Memory) Close() error {
	return nil
}
