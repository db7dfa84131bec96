package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is the in-process Store: RWMutex-guarded map with TTL expiry, LRU
// eviction above maxEntries, and a background sweep for expired keys.
type Memory struct {
	mu         sync.RWMutex
	entries    map[string]*memoryEntry
	maxEntries int

	stopCh   chan struct{}
	stopOnce sync.Once
}

type memoryEntry struct {
	value    []byte
	expires  time.Time
	accessed time.Time
}

const sweepInterval = 5 * time.Minute

// NewMemory creates a memory store holding at most maxEntries live values.
func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	m := &Memory{
		entries:    make(map[string]*memoryEntry),
		maxEntries: maxEntries,
		stopCh:     make(chan struct{}),
	}
	go m.sweep()
	return m
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	entry, exists := m.entries[key]
	m.mu.RUnlock()
	if !exists || time.Now().After(entry.expires) {
		return nil, false, nil
	}

	m.mu.Lock()
	entry.accessed = time.Now()
	m.mu.Unlock()
	return entry.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxEntries {
		m.evictLRU()
	}
	now := time.Now()
	m.entries[key] = &memoryEntry{
		value:    append([]byte(nil), value...),
		expires:  now.Add(ttl),
		accessed: now,
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *Memory) Close() error {
	m.stopOnce.Do(func() { close(m.stopCh) })
	return nil
}

// evictLRU removes the least recently accessed entry. Caller holds the lock.
func (m *Memory) evictLRU() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range m.entries {
		if oldestKey == "" || entry.accessed.Before(oldest) {
			oldestKey = key
			oldest = entry.accessed
		}
	}
	if oldestKey != "" {
		delete(m.entries, oldestKey)
	}
}

func (m *Memory) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			m.mu.Lock()
			for key, entry := range m.entries {
				if now.After(entry.expires) {
					delete(m.entries, key)
				}
			}
			m.mu.Unlock()
		case <-m.stopCh:
			return
		}
	}
}
