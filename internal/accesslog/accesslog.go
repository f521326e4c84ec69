// Package accesslog records access decisions to a Redis stream for auditing.
// PIN codes are never part of an event.
package accesslog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pinguard/pinguard/internal/metrics"
)

const (
	// StreamKey is the Redis stream for access decisions.
	StreamKey = "pinguard:access-log"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishTimeout is the max time to wait for a Redis publish.
	PublishTimeout = 200 * time.Millisecond
)

// Event is one access decision.
type Event struct {
	DoorID     string `json:"door"`
	OwnerID    string `json:"owner,omitempty"`
	EntryPoint string `json:"ep"`
	Granted    bool   `json:"granted"`
	At         int64  `json:"at"` // evaluated instant, Unix milliseconds
	RecordedAt int64  `json:"t"`  // wall clock, Unix milliseconds
}

// NewEvent builds an event stamped with the current wall clock.
func NewEvent(entryPoint, doorID, ownerID string, granted bool, at time.Time) Event {
	return Event{
		DoorID:     doorID,
		OwnerID:    ownerID,
		EntryPoint: entryPoint,
		Granted:    granted,
		At:         at.UnixMilli(),
		RecordedAt: time.Now().UnixMilli(),
	}
}

// Sink accepts access decisions without blocking the caller.
type Sink interface {
	Record(ev Event)
}

// Noop discards events.
type Noop struct{}

func (Noop) Record(Event) {}

// Publisher appends events to a Redis stream.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
	wg      sync.WaitGroup
}

// NewPublisher creates a stream publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "accesslog.publisher"),
		metrics: recorder,
	}
}

// Publish adds an event to the stream synchronously.
func (p *Publisher) Publish(ctx context.Context, ev Event) (string, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	id, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"payload": string(data),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return id, nil
}

// Record publishes in the background. Failures are logged and counted as dropped.
func (p *Publisher) Record(ev Event) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		streamID, err := p.Publish(ctx, ev)
		if err != nil {
			p.logger.Warn("failed to publish access event",
				"door_id", ev.DoorID,
				"error", err,
			)
			p.metrics.IncAccessLogPublished("dropped")
			return
		}

		p.logger.Debug("access event published",
			"door_id", ev.DoorID,
			"stream_id", streamID,
		)
		p.metrics.IncAccessLogPublished("success")
	}()
}

// Flush waits for in-flight publishes or until ctx is done.
func (p *Publisher) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recorder keeps events in memory. Used by tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Record(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
