package service_test

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	workflowmetrics "dealflow/internal/workflow/metrics"
	"dealflow/internal/workflow/models"
	"dealflow/internal/workflow/service"
	"dealflow/internal/workflow/store"
	id "dealflow/pkg/domain"
	"dealflow/pkg/testutil"
)

// completingStore completes the first condition of every overdue page right
// after it is listed, as an agent working in parallel with the sweep would.
type completingStore struct {
	*store.InMemoryStore
	completed []id.ConditionID
}

func (c *completingStore) ListOverdueConditions(ctx context.Context, now time.Time, after *models.OverdueCursor, limit int) ([]*models.Condition, error) {
	page, err := c.InMemoryStore.ListOverdueConditions(ctx, now, after, limit)
	if err != nil || len(page) == 0 {
		return page, err
	}
	current, err := c.FindCondition(ctx, page[0].ID)
	if err != nil {
		return nil, err
	}
	current.ApplyCompletion(now)
	if err := c.UpdateCondition(ctx, current); err != nil {
		return nil, err
	}
	c.completed = append(c.completed, current.ID)
	return page, nil
}

func (s *WorkflowServiceSuite) TestSweepOverdueCoversEveryCondition() {
	const purchases = 210
	txIDs := make([]id.TransactionID, 0, purchases)
	for i := range purchases {
		ctx := testutil.ActorContext(s.owner, s.now.Add(time.Duration(i)*time.Minute))
		t, err := s.service.CreateTransaction(ctx, service.CreateTransactionInput{
			ClientID: id.NewClientID(),
			Type:     models.TransactionTypePurchase,
		})
		s.Require().NoError(err)
		txIDs = append(txIDs, t.ID)
	}

	sweepAt := s.now.Add(30 * 24 * time.Hour)
	overdue := 0
	for _, txID := range txIDs {
		all, err := s.service.ListConditions(s.ctx, txID, models.ConditionFilterAll)
		s.Require().NoError(err)
		for _, c := range all {
			if c.IsOverdue(sweepAt) {
				overdue++
			}
		}
	}
	s.Require().Greater(overdue, 200, "more overdue conditions than one sweep page holds")

	flagged, err := s.service.SweepOverdue(context.Background(), sweepAt)
	s.Require().NoError(err)
	s.Equal(overdue, flagged)

	flagged, err = s.service.SweepOverdue(context.Background(), sweepAt)
	s.Require().NoError(err)
	s.Zero(flagged, "every condition was flagged by the first sweep")

	notices := 0
	for _, txID := range txIDs {
		notices += s.activityTypes(txID)[models.ActivityConditionOverdue]
	}
	s.Equal(overdue, notices)
}

func (s *WorkflowServiceSuite) TestSweepOverdueSkipsConditionsCompletedAfterListing() {
	racing := &completingStore{InMemoryStore: s.store}
	s.service = service.New(racing, s.store, s.activity, s.catalog,
		service.WithLogger(slog.New(slog.DiscardHandler)),
		service.WithMetrics(workflowmetrics.New(prometheus.NewRegistry())),
	)

	first := s.createPurchase(nil)
	second := s.createPurchase(nil)

	flagged, err := s.service.SweepOverdue(context.Background(), s.now.Add(72*time.Hour))
	s.Require().NoError(err)
	s.Require().Len(racing.completed, 1)
	s.Equal(1, flagged)

	types := s.activityTypes(first.ID)[models.ActivityConditionOverdue] + s.activityTypes(second.ID)[models.ActivityConditionOverdue]
	s.Equal(1, types, "the condition completed after listing gets no notice")

	completed, err := s.store.FindCondition(s.ctx, racing.completed[0])
	s.Require().NoError(err)
	s.False(completed.IsOpen())
}
