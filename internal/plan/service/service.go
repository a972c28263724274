// Package service enforces subscription plan allowances. The workflow engine
// reserves an upload before storing a document and releases the reservation
// when the upload fails.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	planmetrics "dealflow/internal/plan/metrics"
	"dealflow/internal/plan/models"
	id "dealflow/pkg/domain"
	dErrors "dealflow/pkg/domain-errors"
	"dealflow/pkg/platform/circuit"
	"dealflow/pkg/requestcontext"
)

// Counter stores per-period usage counters.
type Counter interface {
	Increment(ctx context.Context, key string, expiresAt time.Time) (int64, error)
	Decrement(ctx context.Context, key string) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
}

type Service struct {
	primary  Counter
	fallback Counter
	breaker  *circuit.Breaker
	tier     models.Tier
	limits   models.Limits
	logger   *slog.Logger
	metrics  *planmetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *planmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTier applies a tier from the built-in plan table.
func WithTier(tier models.Tier) Option {
	return func(s *Service) {
		s.tier = tier
		s.limits = models.DefaultTiers[tier]
	}
}

// WithFallback serves counters from fallback while breaker is open.
func WithFallback(fallback Counter, breaker *circuit.Breaker) Option {
	return func(s *Service) {
		s.fallback = fallback
		s.breaker = breaker
	}
}

func New(primary Counter, opts ...Option) (*Service, error) {
	if primary == nil {
		return nil, fmt.Errorf("usage counter is required")
	}
	s := &Service{
		primary: primary,
		tier:    models.TierStandard,
		limits:  models.DefaultTiers[models.TierStandard],
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fallback != nil && s.breaker == nil {
		s.breaker = circuit.New("plan-counter")
	}
	return s, nil
}

// ReserveUpload counts one upload against the caller's monthly allowance.
// A reservation beyond the allowance is undone and refused.
func (s *Service) ReserveUpload(ctx context.Context, userID id.UserID) error {
	if userID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	period := models.PeriodOf(requestcontext.Now(ctx))
	key := models.UsageKey(userID, period)

	used, err := s.run(ctx, func(c Counter) (int64, error) {
		return c.Increment(ctx, key, period.End)
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "plan usage is unavailable")
	}
	if s.limits.Unlimited() || used <= int64(s.limits.MonthlyUploads) {
		s.metrics.IncrementReservation("granted")
		return nil
	}

	if _, err := s.run(ctx, func(c Counter) (int64, error) { return c.Decrement(ctx, key) }); err != nil {
		s.logger.ErrorContext(ctx, "failed to undo refused reservation", "key", key, "error", err)
	}
	s.metrics.IncrementReservation("exceeded")
	s.logAudit(ctx, "plan_upload_limit_exceeded",
		"user_id", userID.String(),
		"tier", string(s.tier),
		"monthly_limit", s.limits.MonthlyUploads,
	)
	return dErrors.New(dErrors.CodePlanLimitExceeded,
		fmt.Sprintf("the %s plan allows %d uploads per month", s.tier, s.limits.MonthlyUploads))
}

// ReleaseUpload gives back a reservation whose upload did not commit.
func (s *Service) ReleaseUpload(ctx context.Context, userID id.UserID) error {
	if userID.IsNil() {
		return nil
	}
	key := models.UsageKey(userID, models.PeriodOf(requestcontext.Now(ctx)))
	if _, err := s.run(ctx, func(c Counter) (int64, error) { return c.Decrement(ctx, key) }); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "plan usage is unavailable")
	}
	s.metrics.IncrementRelease()
	return nil
}

// Usage reports the caller's consumption in the current month.
func (s *Service) Usage(ctx context.Context, userID id.UserID) (*models.Usage, error) {
	period := models.PeriodOf(requestcontext.Now(ctx))
	key := models.UsageKey(userID, period)
	used, err := s.run(ctx, func(c Counter) (int64, error) { return c.Get(ctx, key) })
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "plan usage is unavailable")
	}
	return &models.Usage{
		UserID:  userID,
		Tier:    s.tier,
		Used:    int(used),
		Limit:   s.limits.MonthlyUploads,
		ResetAt: period.End,
	}, nil
}

// run calls the primary counter and falls back to the in-memory counter while
// the breaker is open. An open breaker still tries the primary first so it can close.
func (s *Service) run(ctx context.Context, op func(Counter) (int64, error)) (int64, error) {
	n, err := op(s.primary)
	if s.fallback == nil {
		if err != nil {
			s.metrics.IncrementCounterError()
		}
		return n, err
	}
	if err == nil {
		if _, change := s.breaker.RecordSuccess(); change.Closed {
			s.metrics.SetFallbackActive(false)
			s.logger.InfoContext(ctx, "plan counter recovered, leaving fallback", "breaker", s.breaker.Name())
		}
		return n, nil
	}

	s.metrics.IncrementCounterError()
	useFallback, change := s.breaker.RecordFailure()
	if change.Opened {
		s.metrics.SetFallbackActive(true)
		s.logger.WarnContext(ctx, "plan counter unavailable, using in-memory fallback",
			"breaker", s.breaker.Name(),
			"error", err,
		)
	}
	if !useFallback {
		return 0, err
	}
	return op(s.fallback)
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
