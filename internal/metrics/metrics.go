// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Access check entry points.
const (
	EntryPointOwner = "owner"
	EntryPointDoor  = "door"
)

// Recorder captures metric events for the application.
type Recorder interface {
	// Registration lifecycle
	IncRegistrationCreated()
	IncRegistrationUpdated()
	IncRegistrationRevoked()

	// Access decisions
	IncAccessDecision(entryPoint string, granted bool)
	ObserveAccessCheckDuration(entryPoint string, duration time.Duration)

	// Result cache, labelled by namespace
	IncCacheHit(namespace string)
	IncCacheMiss(namespace string)
	IncCacheInvalidation(namespace string)
	IncCacheError(namespace string)

	// Edge
	IncRateLimitRejected()
	IncAccessLogPublished(status string) // status: "success" or "dropped"
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
