package service_test

import (
	"context"

	"dealflow/internal/workflow/models"
	"dealflow/internal/workflow/service"
	id "dealflow/pkg/domain"
	dErrors "dealflow/pkg/domain-errors"
)

// conditionalPeriod walks a financed rural house to the conditional period,
// where both blocking and required conditions are open.
func (s *WorkflowServiceSuite) conditionalPeriod() *models.Transaction {
	t := s.createPurchase(&models.ProfileInput{
		PropertyType:    models.PropertyTypeHouse,
		PropertyContext: models.PropertyContextRural,
		IsFinanced:      true,
	})
	s.advance(t.ID)
	s.advance(t.ID)
	s.Require().Equal("conditional-period", s.current(t.ID).Slug)
	return t
}

func (s *WorkflowServiceSuite) TestResolveCondition() {
	s.Run("skipped with risk completes a required condition", func() {
		t := s.conditionalPeriod()
		inspection := s.condition(t.ID, "building-inspection")

		resolved, err := s.service.ResolveCondition(s.ctx, t.ID, service.ResolveInput{
			ConditionID:    inspection.ID,
			ResolutionType: models.ResolutionSkippedWithRisk,
			Note:           "Client waived inspection",
		})
		s.Require().NoError(err)
		s.Equal(models.ConditionStatusCompleted, resolved.Status)
		s.Require().NotNil(resolved.Resolution)
		s.Equal(models.ResolutionSkippedWithRisk, resolved.Resolution.Type)
		s.Equal("Client waived inspection", resolved.Resolution.Note)
		s.Equal(s.owner, resolved.Resolution.ResolvedBy)
		s.Require().NotNil(resolved.CompletedAt)
		s.Equal(1, s.activityTypes(t.ID)[models.ActivityConditionResolved])
	})

	s.Run("blocking conditions are never resolvable", func() {
		t := s.conditionalPeriod()
		mortgage := s.condition(t.ID, "mortgage-approval")

		_, err := s.service.ResolveCondition(s.ctx, t.ID, service.ResolveInput{
			ConditionID:    mortgage.ID,
			ResolutionType: models.ResolutionSkippedWithRisk,
			Note:           "Client waived inspection",
		})
		s.requireCode(err, dErrors.CodeBlockingNotResolvable)

		_, err = s.service.ResolveCondition(s.ctx, t.ID, service.ResolveInput{
			ConditionID:    mortgage.ID,
			ResolutionType: models.ResolutionCompleted,
		})
		s.requireCode(err, dErrors.CodeBlockingNotResolvable)
		s.True(s.condition(t.ID, "mortgage-approval").IsOpen())
	})

	s.Run("waivers need a note", func() {
		t := s.conditionalPeriod()
		well := s.condition(t.ID, "well-water-test")

		_, err := s.service.ResolveCondition(s.ctx, t.ID, service.ResolveInput{
			ConditionID:    well.ID,
			ResolutionType: models.ResolutionWaived,
			Note:           "  ",
		})
		s.requireCode(err, dErrors.CodeNoteRequired)

		_, err = s.service.ResolveCondition(s.ctx, t.ID, service.ResolveInput{
			ConditionID:    well.ID,
			ResolutionType: models.ResolutionCompleted,
		})
		s.NoError(err)
	})

	s.Run("completed conditions cannot be resolved twice", func() {
		t := s.conditionalPeriod()
		septic := s.condition(t.ID, "septic-inspection")
		in := service.ResolveInput{ConditionID: septic.ID, ResolutionType: models.ResolutionNotApplicable, Note: "Connected to municipal sewer"}

		_, err := s.service.ResolveCondition(s.ctx, t.ID, in)
		s.Require().NoError(err)
		_, err = s.service.ResolveCondition(s.ctx, t.ID, in)
		s.requireCode(err, dErrors.CodeConflict)
	})

	s.Run("rejects unknown resolution types", func() {
		t := s.conditionalPeriod()
		_, err := s.service.ResolveCondition(s.ctx, t.ID, service.ResolveInput{
			ConditionID:    s.condition(t.ID, "well-water-test").ID,
			ResolutionType: "ignored",
			Note:           "n/a",
		})
		s.requireCode(err, dErrors.CodeValidation)
	})

	s.Run("conditions of other transactions are not found", func() {
		t := s.conditionalPeriod()
		other := s.createPurchase(nil)

		_, err := s.service.ResolveCondition(s.ctx, other.ID, service.ResolveInput{
			ConditionID:    s.condition(t.ID, "well-water-test").ID,
			ResolutionType: models.ResolutionCompleted,
		})
		s.requireCode(err, dErrors.CodeNotFound)
	})
}

func (s *WorkflowServiceSuite) TestConditionOutOfScope() {
	t := s.createPurchase(nil)
	future := s.steps(t.ID)[3]
	c := &models.Condition{
		ID:            id.NewConditionID(),
		TransactionID: t.ID,
		StepID:        future.ID,
		TemplateKey:   "survey-certificate",
		Title:         "Certificate of location",
		Level:         models.LevelRequired,
		Status:        models.ConditionStatusPending,
		SourceType:    models.SourceLegal,
		CreatedAt:     s.now,
		UpdatedAt:     s.now,
	}
	inserted, err := s.store.InsertConditionIfAbsent(context.Background(), c)
	s.Require().NoError(err)
	s.Require().True(inserted)

	_, err = s.service.ResolveCondition(s.ctx, t.ID, service.ResolveInput{ConditionID: c.ID, ResolutionType: models.ResolutionCompleted})
	s.requireCode(err, dErrors.CodeConditionOutOfScope)

	_, err = s.service.CompleteCondition(s.ctx, t.ID, c.ID)
	s.requireCode(err, dErrors.CodeConditionOutOfScope)

	_, err = s.service.UploadDocument(s.ctx, service.UploadInput{TransactionID: t.ID, ConditionID: &c.ID, Category: "survey", File: pdf("survey.pdf")})
	s.requireCode(err, dErrors.CodeConditionOutOfScope)

	all, err := s.service.ListConditions(s.ctx, t.ID, models.ConditionFilterAll)
	s.Require().NoError(err)
	for _, listed := range all {
		s.NotEqual(c.ID, listed.ID, "future step conditions stay hidden")
	}
}

func (s *WorkflowServiceSuite) TestCompleteCondition() {
	s.Run("evidence-backed conditions need a validated document", func() {
		t := s.createPurchase(nil)
		_, err := s.service.CompleteCondition(s.ctx, t.ID, s.condition(t.ID, "identity-verification").ID)
		s.requireCode(err, dErrors.CodeEvidenceRequired)
	})

	s.Run("blocking conditions without evidence complete directly", func() {
		t := s.createPurchase(nil)
		for range 4 {
			s.advance(t.ID)
		}
		s.Equal("pre-closing", s.current(t.ID).Slug)
		notary := s.condition(t.ID, "notary-appointment")
		s.Equal(models.LevelBlocking, notary.Level)

		completed, err := s.service.CompleteCondition(s.ctx, t.ID, notary.ID)
		s.Require().NoError(err)
		s.Equal(models.ConditionStatusCompleted, completed.Status)
		s.Nil(completed.Resolution)

		_, err = s.service.CompleteCondition(s.ctx, t.ID, notary.ID)
		s.requireCode(err, dErrors.CodeConflict)
	})
}

func (s *WorkflowServiceSuite) TestResolveBatch() {
	t := s.conditionalPeriod()
	inspection := s.condition(t.ID, "building-inspection")
	mortgage := s.condition(t.ID, "mortgage-approval")
	well := s.condition(t.ID, "well-water-test")

	outcomes, err := s.service.ResolveBatch(s.ctx, t.ID, []service.ResolveInput{
		{ConditionID: inspection.ID, ResolutionType: models.ResolutionSkippedWithRisk, Note: "Client waived inspection"},
		{ConditionID: mortgage.ID, ResolutionType: models.ResolutionWaived, Note: "Cash buyer now"},
		{ConditionID: well.ID, ResolutionType: models.ResolutionWaived},
		{ConditionID: id.NewConditionID(), ResolutionType: models.ResolutionCompleted},
	})
	s.Require().NoError(err)
	s.Require().Len(outcomes, 4)

	s.Empty(outcomes[0].Error)
	s.Require().NotNil(outcomes[0].Condition)
	s.Equal(models.ConditionStatusCompleted, outcomes[0].Condition.Status)
	s.Equal(string(dErrors.CodeBlockingNotResolvable), outcomes[1].Error)
	s.NotEmpty(outcomes[1].Message)
	s.Equal(string(dErrors.CodeNoteRequired), outcomes[2].Error)
	s.Equal(string(dErrors.CodeNotFound), outcomes[3].Error)

	s.False(s.condition(t.ID, "building-inspection").IsOpen(), "earlier successes stay committed")

	s.Run("empty batch", func() {
		_, err := s.service.ResolveBatch(s.ctx, t.ID, nil)
		s.requireCode(err, dErrors.CodeValidation)
	})
}
