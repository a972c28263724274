package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	activitymetrics "dealflow/internal/activity/metrics"
	"dealflow/internal/activity/models"
	"dealflow/internal/activity/store"
	workflow "dealflow/internal/workflow/models"
	id "dealflow/pkg/domain"
	"dealflow/pkg/platform/circuit"
)

type fakePublisher struct {
	mu      sync.Mutex
	fail    bool
	batches [][]models.OutboxRecord
}

func (p *fakePublisher) Publish(_ context.Context, batch []models.OutboxRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.batches = append(p.batches, batch)
	return nil
}

func (p *fakePublisher) setFail(fail bool) {
	p.mu.Lock()
	p.fail = fail
	p.mu.Unlock()
}

type RelaySuite struct {
	suite.Suite
	outbox    *store.InMemory
	publisher *fakePublisher
	metrics   *activitymetrics.Metrics
	breaker   *circuit.Breaker
	relay     *Relay
	ctx       context.Context
}

func TestRelaySuite(t *testing.T) {
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupTest() {
	s.ctx = context.Background()
	s.outbox = store.NewInMemory()
	s.publisher = &fakePublisher{}
	s.metrics = activitymetrics.New(prometheus.NewRegistry())
	s.breaker = circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1))
	s.relay = New(s.outbox, s.publisher,
		WithBatchSize(2),
		WithBreaker(s.breaker),
		WithMetrics(s.metrics),
	)
}

func (s *RelaySuite) appendEntries(n int) {
	txID := id.NewTransactionID()
	for i := range n {
		err := s.outbox.Append(s.ctx, &workflow.ActivityEntry{
			ID:            id.NewActivityID(),
			TransactionID: txID,
			Type:          workflow.ActivityConditionCreated,
			CreatedAt:     time.Unix(int64(i), 0),
		})
		s.Require().NoError(err)
	}
}

func (s *RelaySuite) TestDrainPublishesEverythingInBatches() {
	s.appendEntries(5)

	n, err := s.relay.Drain(s.ctx)
	s.Require().NoError(err)
	s.Equal(5, n)
	s.Zero(s.outbox.Pending())
	s.Len(s.publisher.batches, 3)
	s.Equal(float64(5), testutil.ToFloat64(s.metrics.Published))
}

func (s *RelaySuite) TestFailureKeepsRecordsAndOpensBreaker() {
	s.appendEntries(3)
	s.publisher.setFail(true)

	for range 2 {
		_, err := s.relay.Drain(s.ctx)
		s.Error(err)
	}
	s.True(s.breaker.IsOpen())
	s.Equal(3, s.outbox.Pending())
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.BreakerState))

	s.Run("open breaker probes with one record then recovers", func() {
		s.publisher.setFail(false)
		n, err := s.relay.Drain(s.ctx)
		s.Require().NoError(err)
		s.Equal(3, n)
		s.False(s.breaker.IsOpen())
		s.Require().NotEmpty(s.publisher.batches)
		s.Len(s.publisher.batches[0], 1)
		s.Equal(float64(0), testutil.ToFloat64(s.metrics.BreakerState))
	})
}

func (s *RelaySuite) TestRunStopsOnCancel() {
	s.appendEntries(1)
	ctx, cancel := context.WithCancel(s.ctx)
	relay := New(s.outbox, s.publisher, WithPollInterval(5*time.Millisecond))

	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()
	s.Eventually(func() bool { return s.outbox.Pending() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	s.NoError(<-done)
}
