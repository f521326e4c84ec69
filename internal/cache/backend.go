package cache

import (
	"context"
	"sync"
	"time"
)

// Backend stores opaque values per namespace and generation.
//
// Invalidate bumps the namespace generation. Values written under an older
// generation must never be returned once the bump is visible.
type Backend interface {
	Generation(ctx context.Context, namespace string) (uint64, error)
	Get(ctx context.Context, namespace string, gen uint64, key string) ([]byte, bool, error)
	Set(ctx context.Context, namespace string, gen uint64, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, namespace string) error
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

type memoryNamespace struct {
	gen   uint64
	items map[string]memoryItem
}

// MemoryBackend is a process-local Backend with lazy expiry.
type MemoryBackend struct {
	mu         sync.Mutex
	namespaces map[string]*memoryNamespace
	now        func() time.Time
}

// NewMemoryBackend creates an empty in-process backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		namespaces: make(map[string]*memoryNamespace),
		now:        time.Now,
	}
}

func (m *MemoryBackend) namespace(name string) *memoryNamespace {
	ns, ok := m.namespaces[name]
	if !ok {
		ns = &memoryNamespace{items: make(map[string]memoryItem)}
		m.namespaces[name] = ns
	}
	return ns
}

func (m *MemoryBackend) Generation(_ context.Context, namespace string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.namespace(namespace).gen, nil
}

// Get returns a live entry. Expired entries are removed on access.
func (m *MemoryBackend) Get(_ context.Context, namespace string, gen uint64, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ns := m.namespace(namespace)
	if ns.gen != gen {
		return nil, false, nil
	}
	item, ok := ns.items[key]
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(item.expiresAt) {
		delete(ns.items, key)
		return nil, false, nil
	}
	return item.value, true, nil
}

// Set stores value unless the namespace has moved past gen.
func (m *MemoryBackend) Set(_ context.Context, namespace string, gen uint64, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ns := m.namespace(namespace)
	if ns.gen != gen {
		return nil
	}
	ns.items[key] = memoryItem{
		value:     append([]byte(nil), value...),
		expiresAt: m.now().Add(ttl),
	}
	return nil
}

// Invalidate drops every entry in the namespace and advances its generation.
func (m *MemoryBackend) Invalidate(_ context.Context, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ns := m.namespace(namespace)
	ns.gen++
	ns.items = make(map[string]memoryItem)
	return nil
}

// Len reports the number of stored entries in a namespace, expired or not.
func (m *MemoryBackend) Len(namespace string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.namespace(namespace).items)
}
