package service_test

import (
	"errors"
	"sync"
	"time"

	"dealflow/internal/workflow/models"
	"dealflow/internal/workflow/service"
	id "dealflow/pkg/domain"
	dErrors "dealflow/pkg/domain-errors"
	"dealflow/pkg/testutil"
)

func (s *WorkflowServiceSuite) TestCanAdvance() {
	s.Run("open blocking condition refuses step 1", func() {
		t := s.createPurchase(nil)
		identity := s.condition(t.ID, "identity-verification")

		check, err := s.service.CanAdvance(s.ctx, t.ID)
		s.Require().NoError(err)
		s.False(check.Allowed)
		s.Require().Len(check.BlockingReasons, 1)
		s.Equal(identity.ID, check.BlockingReasons[0].ID)
		s.Empty(check.RequiredOpen)
	})

	s.Run("required conditions are advisory by default", func() {
		t := s.createPurchase(nil)
		s.advance(t.ID)

		check, err := s.service.CanAdvance(s.ctx, t.ID)
		s.Require().NoError(err)
		s.True(check.Allowed)
		s.Require().Len(check.RequiredOpen, 1)
		s.Equal(models.LevelRequired, check.RequiredOpen[0].Level)
	})
}

func (s *WorkflowServiceSuite) TestAdvance() {
	s.Run("validated evidence unblocks the step and generates the next conditions", func() {
		t := s.createPurchase(nil)
		identity := s.condition(t.ID, "identity-verification")
		step1 := s.current(t.ID)

		doc := s.uploadFor(t.ID, identity)
		s.Equal(models.DocumentStatusUploaded, doc.Status)
		s.Equal(models.ConditionStatusInProgress, s.condition(t.ID, "identity-verification").Status)

		_, err := s.service.ValidateDocument(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Equal(models.ConditionStatusCompleted, s.condition(t.ID, "identity-verification").Status)

		result, err := s.service.Advance(s.ctx, t.ID, step1.ID)
		s.Require().NoError(err)
		s.False(result.Terminal)
		s.Equal(models.StepStatusCompleted, result.ClosedStep.Status)
		s.Require().NotNil(result.ActivatedStep)
		s.Equal("offer-accepted", result.ActivatedStep.Slug)
		s.Equal(models.StepStatusActive, result.ActivatedStep.Status)
		s.Require().Len(result.CreatedConditions, 1)
		s.Equal("deposit-proof", result.CreatedConditions[0].TemplateKey)

		steps := s.steps(t.ID)
		s.Equal(models.StepStatusCompleted, steps[0].Status)
		s.Equal(models.StepStatusActive, steps[1].Status)
		s.Equal(1, s.activityTypes(t.ID)[models.ActivityStepAdvanced])
	})

	s.Run("blocked advance returns the gate", func() {
		t := s.createPurchase(nil)

		_, err := s.service.Advance(s.ctx, t.ID, *t.CurrentStepID)
		s.requireCode(err, dErrors.CodeAdvanceBlocked)

		var blocked *service.BlockedError
		s.Require().True(errors.As(err, &blocked))
		s.Len(blocked.Check.BlockingReasons, 1)
		s.Equal(models.StepStatusActive, s.current(t.ID).Status)
	})

	s.Run("due dates count from the moment the step is entered", func() {
		t := s.createPurchase(nil)
		s.clearBlocking(t.ID)
		later := testutil.ActorContext(s.owner, s.now.Add(5*24*time.Hour))

		result, err := s.service.Advance(later, t.ID, *t.CurrentStepID)
		s.Require().NoError(err)
		s.Require().Len(result.CreatedConditions, 1)
		s.Require().NotNil(result.CreatedConditions[0].DueDate)
		s.True(s.now.Add(8 * 24 * time.Hour).Equal(*result.CreatedConditions[0].DueDate))
	})

	s.Run("stale expected step is a conflict", func() {
		t := s.createPurchase(nil)
		s.clearBlocking(t.ID)

		_, err := s.service.Advance(s.ctx, t.ID, id.NewStepID())
		s.requireCode(err, dErrors.CodeAdvanceConflict)
	})

	s.Run("profile-dependent conditions follow the profile", func() {
		t := s.createPurchase(&models.ProfileInput{
			PropertyType:    models.PropertyTypeCondo,
			PropertyContext: models.PropertyContextUrban,
			IsFinanced:      true,
		})
		s.advance(t.ID)
		result := s.advance(t.ID)
		s.Equal("conditional-period", result.ActivatedStep.Slug)

		keys := map[string]models.ConditionLevel{}
		for _, c := range result.CreatedConditions {
			keys[c.TemplateKey] = c.Level
		}
		s.Equal(models.LevelBlocking, keys["mortgage-approval"])
		s.Equal(models.LevelBlocking, keys["condo-docs-review"])
		s.Contains(keys, "building-inspection")
		s.Contains(keys, "syndicate-minutes")
		s.NotContains(keys, "well-water-test")
		s.NotContains(keys, "zoning-verification")
	})
}

func (s *WorkflowServiceSuite) TestConcurrentAdvance() {
	t := s.createPurchase(nil)
	s.advance(t.ID)
	step2 := s.current(t.ID)

	const callers = 2
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.service.Advance(s.ctx, t.ID, step2.ID)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.Equal(dErrors.CodeAdvanceConflict, dErrors.CodeOf(err))
	}
	s.Equal(1, succeeded)

	steps := s.steps(t.ID)
	s.Equal(models.StepStatusCompleted, steps[1].Status)
	s.Equal(models.StepStatusActive, steps[2].Status)
	s.Equal(models.StepStatusPending, steps[3].Status)
	s.Equal(2, s.activityTypes(t.ID)[models.ActivityStepAdvanced])
}

func (s *WorkflowServiceSuite) TestRequiredGate() {
	s.service = s.newService(service.WithRequiredGate(true))
	t := s.createPurchase(nil)
	s.advance(t.ID)
	step2 := s.current(t.ID)

	_, err := s.service.Advance(s.ctx, t.ID, step2.ID)
	s.requireCode(err, dErrors.CodeAdvanceBlocked)
	var blocked *service.BlockedError
	s.Require().True(errors.As(err, &blocked))
	s.Empty(blocked.Check.BlockingReasons)
	s.Len(blocked.Check.RequiredOpen, 1)

	deposit := s.condition(t.ID, "deposit-proof")
	_, err = s.service.ResolveCondition(s.ctx, t.ID, service.ResolveInput{
		ConditionID:    deposit.ID,
		ResolutionType: models.ResolutionWaived,
		Note:           "Deposit held in trust by the listing brokerage",
	})
	s.Require().NoError(err)

	_, err = s.service.Advance(s.ctx, t.ID, step2.ID)
	s.NoError(err)
}

func (s *WorkflowServiceSuite) TestSkipStep() {
	s.Run("requires a reason", func() {
		t := s.createPurchase(nil)
		_, err := s.service.SkipStep(s.ctx, t.ID, *t.CurrentStepID, "   ")
		s.requireCode(err, dErrors.CodeNoteRequired)
	})

	s.Run("open conditions carry forward and keep gating", func() {
		t := s.createPurchase(nil)
		identity := s.condition(t.ID, "identity-verification")

		result, err := s.service.SkipStep(s.ctx, t.ID, *t.CurrentStepID, "Identity verified at a previous deal")
		s.Require().NoError(err)
		s.Equal(models.StepStatusSkipped, result.ClosedStep.Status)
		s.Equal(1, s.activityTypes(t.ID)[models.ActivityStepSkipped])

		check, err := s.service.CanAdvance(s.ctx, t.ID)
		s.Require().NoError(err)
		s.False(check.Allowed)
		s.Require().Len(check.BlockingReasons, 1)
		s.Equal(identity.ID, check.BlockingReasons[0].ID)

		active := s.openConditions(t.ID)
		s.Len(active, 2, "carried identity check plus deposit proof")
	})

	s.Run("the final step cannot be skipped", func() {
		t := s.createPurchase(nil)
		for range 6 {
			s.advance(t.ID)
		}
		last := s.current(t.ID)
		s.Equal("post-closing", last.Slug)

		_, err := s.service.SkipStep(s.ctx, t.ID, last.ID, "nothing left to do")
		s.requireCode(err, dErrors.CodeValidation)
	})
}

func (s *WorkflowServiceSuite) TestWorkflowCompletion() {
	t := s.createPurchase(&models.ProfileInput{PropertyType: models.PropertyTypeHouse, PropertyContext: models.PropertyContextRural, IsFinanced: true})

	var last *models.AdvanceResult
	for range 7 {
		last = s.advance(t.ID)
	}
	s.True(last.Terminal)
	s.Nil(last.ActivatedStep)
	s.Nil(last.Transaction.CurrentStepID)
	s.NotNil(last.Transaction.CompletedAt)

	for _, st := range s.steps(t.ID) {
		s.Equal(models.StepStatusCompleted, st.Status, st.Slug)
	}

	_, err := s.service.Advance(s.ctx, t.ID, last.ClosedStep.ID)
	s.requireCode(err, dErrors.CodeAdvanceConflict)

	_, err = s.service.SaveProfile(s.ctx, t.ID, models.ProfileInput{PropertyType: models.PropertyTypeHouse})
	s.requireCode(err, dErrors.CodeProfileLocked)
}
