package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	activitymodels "dealflow/internal/activity/models"
	"dealflow/internal/workflow/models"
	id "dealflow/pkg/domain"
)

type InMemorySuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	txID  id.TransactionID
	now   time.Time
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemorySuite))
}

func (s *InMemorySuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.txID = id.NewTransactionID()
	s.now = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
}

func (s *InMemorySuite) entry(t models.ActivityType, at time.Time, kv ...string) *models.ActivityEntry {
	meta := map[string]string{}
	for i := 0; i+1 < len(kv); i += 2 {
		meta[kv[i]] = kv[i+1]
	}
	return &models.ActivityEntry{
		ID:            id.NewActivityID(),
		TransactionID: s.txID,
		UserID:        id.NewUserID(),
		Type:          t,
		Metadata:      meta,
		CreatedAt:     at,
	}
}

func (s *InMemorySuite) TestListNewestFirst() {
	s.Require().NoError(s.store.Append(s.ctx, s.entry(models.ActivityTransactionCreated, s.now)))
	s.Require().NoError(s.store.Append(s.ctx, s.entry(models.ActivityStepAdvanced, s.now.Add(time.Hour))))
	s.Require().NoError(s.store.Append(s.ctx, s.entry(models.ActivityDocumentUploaded, s.now.Add(2*time.Hour))))

	entries, err := s.store.ListByTransaction(s.ctx, s.txID, 2)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(models.ActivityDocumentUploaded, entries[0].Type)
	s.Equal(models.ActivityStepAdvanced, entries[1].Type)
}

func (s *InMemorySuite) TestHasEntryMatchesMetadata() {
	s.Require().NoError(s.store.Append(s.ctx, s.entry(models.ActivityConditionOverdue, s.now, "condition_id", "c-1")))

	found, err := s.store.HasEntry(s.ctx, s.txID, models.ActivityConditionOverdue, "condition_id", "c-1")
	s.Require().NoError(err)
	s.True(found)

	found, err = s.store.HasEntry(s.ctx, s.txID, models.ActivityConditionOverdue, "condition_id", "c-2")
	s.Require().NoError(err)
	s.False(found)

	found, err = s.store.HasEntry(s.ctx, s.txID, models.ActivityConditionCreated, "condition_id", "c-1")
	s.Require().NoError(err)
	s.False(found)
}

func (s *InMemorySuite) TestAppendFillsOutbox() {
	entry := s.entry(models.ActivityStepAdvanced, s.now, "to_step", "offer-accepted")
	s.Require().NoError(s.store.Append(s.ctx, entry))
	s.Equal(1, s.store.Pending())

	var published []activitymodels.OutboxRecord
	n, err := s.store.ProcessBatch(s.ctx, 10, func(_ context.Context, batch []activitymodels.OutboxRecord) error {
		published = batch
		return nil
	})
	s.Require().NoError(err)
	s.Equal(1, n)
	s.Zero(s.store.Pending())

	s.Require().Len(published, 1)
	s.Equal(s.txID.String(), published[0].AggregateID)
	var evt activitymodels.Event
	s.Require().NoError(json.Unmarshal(published[0].Payload, &evt))
	s.Equal("step_advanced", evt.Type)
	s.Equal("offer-accepted", evt.Metadata["to_step"])
}

func (s *InMemorySuite) TestFailedPublishKeepsRecords() {
	s.Require().NoError(s.store.Append(s.ctx, s.entry(models.ActivityStepAdvanced, s.now)))

	n, err := s.store.ProcessBatch(s.ctx, 10, func(context.Context, []activitymodels.OutboxRecord) error {
		return errors.New("broker down")
	})
	s.Error(err)
	s.Zero(n)
	s.Equal(1, s.store.Pending())
}

func (s *InMemorySuite) TestSnapshotRollsBackEntriesAndOutbox() {
	restore := s.store.Snapshot()
	s.Require().NoError(s.store.Append(s.ctx, s.entry(models.ActivityStepAdvanced, s.now)))
	restore()

	entries, err := s.store.ListByTransaction(s.ctx, s.txID, 10)
	s.Require().NoError(err)
	s.Empty(entries)
	s.Zero(s.store.Pending())
}
