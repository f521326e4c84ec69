package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncRegistrationCreated() {}
func (n *NoopRecorder) IncRegistrationUpdated() {}
func (n *NoopRecorder) IncRegistrationRevoked() {}
func (n *NoopRecorder) IncAccessDecision(string, bool) {}
func (n *NoopRecorder) ObserveAccessCheckDuration(string, time.Duration) {}
func (n *NoopRecorder) IncCacheHit(string) {}
func (n *NoopRecorder) IncCacheMiss(string) {}
func (n *NoopRecorder) IncCacheInvalidation(string) {}
func (n *NoopRecorder) IncCacheError(string) {}
func (n *NoopRecorder) IncRateLimitRejected() {}
func (n *NoopRecorder) IncAccessLogPublished(string) {}
