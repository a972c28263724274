// Package relay moves committed activity events from the outbox to Kafka.
package relay

import (
	"context"
	"errors"
	"log/slog"
	"time"

	activitymetrics "dealflow/internal/activity/metrics"
	"dealflow/internal/activity/models"
	"dealflow/pkg/platform/circuit"
)

// Outbox hands out pending records. publish runs while the batch is claimed.
type Outbox interface {
	ProcessBatch(ctx context.Context, limit int, publish func(context.Context, []models.OutboxRecord) error) (int, error)
}

type Publisher interface {
	Publish(ctx context.Context, batch []models.OutboxRecord) error
}

type Relay struct {
	outbox    Outbox
	publisher Publisher
	breaker   *circuit.Breaker
	metrics   *activitymetrics.Metrics
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) { r.logger = logger }
}

func WithMetrics(m *activitymetrics.Metrics) Option {
	return func(r *Relay) { r.metrics = m }
}

func WithPollInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(r *Relay) { r.breaker = b }
}

func New(outbox Outbox, publisher Publisher, opts ...Option) *Relay {
	r := &Relay{
		outbox:    outbox,
		publisher: publisher,
		interval:  time.Second,
		batchSize: 100,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.breaker == nil {
		r.breaker = circuit.New("outbox-relay")
	}
	return r
}

// Run polls until ctx is cancelled. Publish failures are logged and retried
// on the next tick; records stay in the outbox until they are delivered.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		if _, err := r.Drain(ctx); err != nil && r.logger != nil && !errors.Is(err, context.Canceled) {
			r.logger.WarnContext(ctx, "outbox relay failed", "error", err, "breaker", r.breaker.State().String())
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Drain relays batches until the outbox is empty or a batch fails.
// While the breaker is open it sends single-record probes.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	total := 0
	for {
		limit := r.batchSize
		if r.breaker.IsOpen() {
			limit = 1
		}
		n, err := r.outbox.ProcessBatch(ctx, limit, r.publish)
		total += n
		if err != nil {
			return total, err
		}
		if n < limit || ctx.Err() != nil {
			return total, nil
		}
	}
}

func (r *Relay) publish(ctx context.Context, batch []models.OutboxRecord) error {
	if err := r.publisher.Publish(ctx, batch); err != nil {
		r.metrics.IncPublishFailed()
		if _, change := r.breaker.RecordFailure(); change.Opened {
			r.metrics.SetBreakerOpen(true)
			if r.logger != nil {
				r.logger.ErrorContext(ctx, "outbox relay circuit opened", "error", err)
			}
		}
		return err
	}
	if _, change := r.breaker.RecordSuccess(); change.Closed {
		r.metrics.SetBreakerOpen(false)
		if r.logger != nil {
			r.logger.InfoContext(ctx, "outbox relay circuit closed")
		}
	}
	r.metrics.AddPublished(len(batch))
	return nil
}
