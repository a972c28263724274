//go:build integration

package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"dealflow/internal/workflow/models"
	"dealflow/pkg/platform/sentinel"
	"dealflow/pkg/platform/tx"
	"dealflow/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *PostgresStore
	ctx      context.Context
	fx       fixture
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = NewPostgres(s.postgres.DB)
	s.ctx = context.Background()
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(s.ctx, "outbox", "activity_log", "transaction_documents",
		"conditions", "transaction_steps", "property_profiles", "transactions")
	s.Require().NoError(err)

	s.fx = newFixture()
	s.Require().NoError(s.store.CreateTransaction(s.ctx, s.fx.tx))
	s.Require().NoError(s.store.CreateSteps(s.ctx, s.fx.steps))
}

func (s *PostgresStoreSuite) TestTransactionRoundTrip() {
	closing := fixtureNow.Add(30 * 24 * time.Hour)
	s.fx.tx.KeyDates.ClosingDate = &closing
	s.fx.tx.UpdatedAt = fixtureNow.Add(time.Minute)
	s.Require().NoError(s.store.UpdateTransaction(s.ctx, s.fx.tx))

	found, err := s.store.FindTransaction(s.ctx, s.fx.tx.ID)
	s.Require().NoError(err)
	s.Equal(s.fx.tx.OwnerID, found.OwnerID)
	s.Require().NotNil(found.CurrentStepID)
	s.Equal(s.fx.steps[0].ID, *found.CurrentStepID)
	s.Require().NotNil(found.KeyDates.ClosingDate)
	s.True(closing.Equal(*found.KeyDates.ClosingDate))
	s.Nil(found.CompletedAt)
}

func (s *PostgresStoreSuite) TestLockRequiresUnitOfWork() {
	_, err := s.store.LockTransaction(s.ctx, s.fx.tx.ID)
	s.ErrorIs(err, sentinel.ErrInvalidState)
}

// TestLockSerializesWriters checks that a second locker waits for the first commit.
func (s *PostgresStoreSuite) TestLockSerializesWriters() {
	const workers = 8
	var (
		wg       sync.WaitGroup
		inside   atomic.Int32
		overlaps atomic.Int32
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sqlTx, err := s.postgres.DB.BeginTx(s.ctx, nil)
			if err != nil {
				return
			}
			defer func() { _ = sqlTx.Rollback() }()
			txCtx := tx.WithTx(s.ctx, sqlTx)
			if _, err := s.store.LockTransaction(txCtx, s.fx.tx.ID); err != nil {
				return
			}
			if inside.Add(1) > 1 {
				overlaps.Add(1)
			}
			time.Sleep(10 * time.Millisecond)
			inside.Add(-1)
			_ = sqlTx.Commit()
		}()
	}
	wg.Wait()
	s.Zero(overlaps.Load())
}

func (s *PostgresStoreSuite) TestProfileUpsert() {
	profile := models.NewDefaultProfile(s.fx.tx.ID, fixtureNow)
	s.Require().NoError(s.store.SaveProfile(s.ctx, profile))

	profile.ApplyInput(models.ProfileInput{PropertyType: models.PropertyTypeHouse, PropertyContext: models.PropertyContextRural, IsFinanced: true}, fixtureNow)
	s.Require().NoError(s.store.SaveProfile(s.ctx, profile))

	found, err := s.store.FindProfile(s.ctx, s.fx.tx.ID)
	s.Require().NoError(err)
	s.Equal(models.PropertyTypeHouse, found.PropertyType)
	s.True(found.HasWell)
	s.True(found.HasSeptic)
	s.True(found.IsFinanced)
}

func (s *PostgresStoreSuite) TestConditions() {
	due := fixtureNow.Add(-time.Hour)
	c := s.fx.condition("mortgage-approval", models.LevelRequired, &due)

	inserted, err := s.store.InsertConditionIfAbsent(s.ctx, c)
	s.Require().NoError(err)
	s.True(inserted)
	inserted, err = s.store.InsertConditionIfAbsent(s.ctx, s.fx.condition("mortgage-approval", models.LevelRequired, nil))
	s.Require().NoError(err)
	s.False(inserted)

	overdue, err := s.store.ListOverdueConditions(s.ctx, fixtureNow, nil, 10)
	s.Require().NoError(err)
	s.Len(overdue, 1)

	c.ApplyResolution(models.ResolutionWaived, "client waived financing", s.fx.tx.OwnerID, fixtureNow)
	s.Require().NoError(s.store.UpdateCondition(s.ctx, c))

	found, err := s.store.FindCondition(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(models.ConditionStatusCompleted, found.Status)
	s.Require().NotNil(found.Resolution)
	s.Equal(models.ResolutionWaived, found.Resolution.Type)
	s.Equal("client waived financing", found.Resolution.Note)
	s.Equal("mortgage-approval", found.Labels["en"])

	overdue, err = s.store.ListOverdueConditions(s.ctx, fixtureNow, nil, 10)
	s.Require().NoError(err)
	s.Empty(overdue)
}

// TestConcurrentVersionInsert verifies the partial unique index lets exactly one
// writer claim a version number.
func (s *PostgresStoreSuite) TestConcurrentVersionInsert() {
	v1 := s.fx.document(nil, "survey", nil)
	s.Require().NoError(s.store.CreateDocument(s.ctx, v1))

	const writers = 10
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
	)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.CreateDocument(s.ctx, s.fx.document(nil, "survey", v1))
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load())
	s.Equal(int32(writers-1), conflicts.Load())

	chain, err := s.store.ListChain(s.ctx, v1.ChainKey())
	s.Require().NoError(err)
	s.NoError(models.CheckVersionChain(chain))
}

func (s *PostgresStoreSuite) TestDocumentValidation() {
	c := s.fx.condition("deposit-proof", models.LevelBlocking, nil)
	_, err := s.store.InsertConditionIfAbsent(s.ctx, c)
	s.Require().NoError(err)

	doc := s.fx.document(&c.ID, "deposit", nil)
	s.Require().NoError(s.store.CreateDocument(s.ctx, doc))
	doc.ApplyValidation(s.fx.tx.OwnerID, fixtureNow)
	s.Require().NoError(s.store.UpdateDocument(s.ctx, doc))

	head, err := s.store.LatestInChain(s.ctx, doc.ChainKey())
	s.Require().NoError(err)
	s.Equal(models.DocumentStatusValidated, head.Status)
	s.Require().NotNil(head.ValidatedBy)
	s.Equal(s.fx.tx.OwnerID, *head.ValidatedBy)
	s.Require().NotNil(head.ConditionID)
	s.Equal(c.ID, *head.ConditionID)
}
