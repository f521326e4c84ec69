package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	RegistrationsCreated uint64
	RegistrationsUpdated uint64
	RegistrationsRevoked uint64

	AccessGranted            uint64
	AccessDenied             uint64
	AccessCheckCount         uint64
	AccessCheckTotalDuration time.Duration

	CacheHits          map[string]uint64
	CacheMisses        map[string]uint64
	CacheInvalidations map[string]uint64
	CacheErrors        map[string]uint64

	RateLimitRejected  uint64
	AccessLogPublished uint64
	AccessLogDropped   uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	registrationsCreated uint64
	registrationsUpdated uint64
	registrationsRevoked uint64

	accessGranted      uint64
	accessDenied       uint64
	accessCheckCount   uint64
	accessCheckTotalNs int64

	rateLimitRejected  uint64
	accessLogPublished uint64
	accessLogDropped   uint64

	mu                 sync.Mutex
	cacheHits          map[string]uint64
	cacheMisses        map[string]uint64
	cacheInvalidations map[string]uint64
	cacheErrors        map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		cacheHits:          make(map[string]uint64),
		cacheMisses:        make(map[string]uint64),
		cacheInvalidations: make(map[string]uint64),
		cacheErrors:        make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		RegistrationsCreated:     atomic.LoadUint64(&m.registrationsCreated),
		RegistrationsUpdated:     atomic.LoadUint64(&m.registrationsUpdated),
		RegistrationsRevoked:     atomic.LoadUint64(&m.registrationsRevoked),
		AccessGranted:            atomic.LoadUint64(&m.accessGranted),
		AccessDenied:             atomic.LoadUint64(&m.accessDenied),
		AccessCheckCount:         atomic.LoadUint64(&m.accessCheckCount),
		AccessCheckTotalDuration: time.Duration(atomic.LoadInt64(&m.accessCheckTotalNs)),
		CacheHits:                copyCounts(m.cacheHits),
		CacheMisses:              copyCounts(m.cacheMisses),
		CacheInvalidations:       copyCounts(m.cacheInvalidations),
		CacheErrors:              copyCounts(m.cacheErrors),
		RateLimitRejected:        atomic.LoadUint64(&m.rateLimitRejected),
		AccessLogPublished:       atomic.LoadUint64(&m.accessLogPublished),
		AccessLogDropped:         atomic.LoadUint64(&m.accessLogDropped),
	}
}

func (m *InMemoryRecorder) IncRegistrationCreated() {
	atomic.AddUint64(&m.registrationsCreated, 1)
}

func (m *InMemoryRecorder) IncRegistrationUpdated() {
	atomic.AddUint64(&m.registrationsUpdated, 1)
}

func (m *InMemoryRecorder) IncRegistrationRevoked() {
	atomic.AddUint64(&m.registrationsRevoked, 1)
}

// IncAccessDecision counts a decision regardless of entry point.
func (m *InMemoryRecorder) IncAccessDecision(_ string, granted bool) {
	if granted {
		atomic.AddUint64(&m.accessGranted, 1)
		return
	}
	atomic.AddUint64(&m.accessDenied, 1)
}

func (m *InMemoryRecorder) ObserveAccessCheckDuration(_ string, duration time.Duration) {
	atomic.AddUint64(&m.accessCheckCount, 1)
	atomic.AddInt64(&m.accessCheckTotalNs, duration.Nanoseconds())
}

func (m *InMemoryRecorder) IncCacheHit(namespace string) {
	m.inc(m.cacheHits, namespace)
}

func (m *InMemoryRecorder) IncCacheMiss(namespace string) {
	m.inc(m.cacheMisses, namespace)
}

func (m *InMemoryRecorder) IncCacheInvalidation(namespace string) {
	m.inc(m.cacheInvalidations, namespace)
}

func (m *InMemoryRecorder) IncCacheError(namespace string) {
	m.inc(m.cacheErrors, namespace)
}

func (m *InMemoryRecorder) IncRateLimitRejected() {
	atomic.AddUint64(&m.rateLimitRejected, 1)
}

func (m *InMemoryRecorder) IncAccessLogPublished(status string) {
	if status == "success" {
		atomic.AddUint64(&m.accessLogPublished, 1)
		return
	}
	atomic.AddUint64(&m.accessLogDropped, 1)
}

func (m *InMemoryRecorder) inc(counts map[string]uint64, key string) {
	m.mu.Lock()
	counts[key]++
	m.mu.Unlock()
}

func copyCounts(in map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
