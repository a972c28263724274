package service

import (
	"context"
	"strings"
	"time"

	"dealflow/internal/workflow/models"
	id "dealflow/pkg/domain"
	dErrors "dealflow/pkg/domain-errors"
	"dealflow/pkg/requestcontext"
)

// BlockedError is returned when open conditions refuse an advance. It carries
// the gate so clients can render the blocking list without another request.
type BlockedError struct {
	Check *models.AdvanceCheck
	err   error
}

func newBlockedError(check *models.AdvanceCheck) *BlockedError {
	msg := "open blocking conditions prevent advancing"
	if len(check.BlockingReasons) == 0 {
		msg = "open required conditions must be resolved before advancing"
	}
	return &BlockedError{Check: check, err: dErrors.New(dErrors.CodeAdvanceBlocked, msg)}
}

func (e *BlockedError) Error() string { return e.err.Error() }

func (e *BlockedError) Unwrap() error { return e.err }

// Details is rendered into the error response.
func (e *BlockedError) Details() any {
	return map[string]any{
		"blockingReasons": e.Check.BlockingReasons,
		"requiredOpen":    e.Check.RequiredOpen,
	}
}

// CanAdvance is the lock-free gate preview. Its result is advisory: Advance
// re-evaluates under the transaction lock.
func (s *Service) CanAdvance(ctx context.Context, txID id.TransactionID) (*models.AdvanceCheck, error) {
	ctx, span := s.startSpan(ctx, "workflow.CanAdvance", txID)
	var err error
	defer func() { endSpan(span, err) }()

	t, err := s.loadOwned(ctx, txID)
	if err != nil {
		return nil, err
	}
	steps, conditions, err := s.loadStepsAndConditions(ctx, txID)
	if err != nil {
		return nil, err
	}
	return s.gate(t, steps, conditions), nil
}

func (s *Service) gate(t *models.Transaction, steps []*models.TransactionStep, conditions []*models.Condition) *models.AdvanceCheck {
	scoped := inScope(conditions, stepOrders(steps), currentOrder(t, steps))
	return models.EvaluateGate(t, scoped, s.enforceRequired)
}

// Advance completes the active step and activates the next one, or completes
// the workflow when the active step is the last. expectedStepID must match the
// active step; a mismatch means another request moved the transaction first.
func (s *Service) Advance(ctx context.Context, txID id.TransactionID, expectedStepID id.StepID) (*models.AdvanceResult, error) {
	start := time.Now()
	defer s.metrics.ObserveMutation("advance", start)
	ctx, span := s.startSpan(ctx, "workflow.Advance", txID)
	var err error
	defer func() { endSpan(span, err) }()

	var result *models.AdvanceResult
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		t, steps, current, err := s.lockForMove(txCtx, txID, expectedStepID)
		if err != nil {
			return err
		}
		conditions, err := s.store.ListConditions(txCtx, txID)
		if err != nil {
			return wrapStoreErr(err, "conditions")
		}
		if check := s.gate(t, steps, conditions); !check.Allowed {
			return newBlockedError(check)
		}
		result, err = s.moveForward(txCtx, t, steps, current, models.StepStatusCompleted, "")
		return err
	})
	if err != nil {
		s.metrics.IncrementAdvanceRefused(string(dErrors.CodeOf(err)))
		return nil, err
	}

	outcome := "completed"
	if result.Terminal {
		outcome = "terminal"
	}
	s.metrics.IncrementStepTransition(outcome)
	return result, nil
}

// SkipStep closes the active step as skipped without consulting the gate. Open
// conditions of the skipped step stay open and carry forward. The last step
// cannot be skipped.
func (s *Service) SkipStep(ctx context.Context, txID id.TransactionID, expectedStepID id.StepID, reason string) (*models.AdvanceResult, error) {
	start := time.Now()
	defer s.metrics.ObserveMutation("skip", start)
	ctx, span := s.startSpan(ctx, "workflow.SkipStep", txID)
	var err error
	defer func() { endSpan(span, err) }()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		err = dErrors.New(dErrors.CodeNoteRequired, "a reason is required to skip a step")
		return nil, err
	}

	var result *models.AdvanceResult
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		t, steps, current, err := s.lockForMove(txCtx, txID, expectedStepID)
		if err != nil {
			return err
		}
		if models.NextStep(steps, current) == nil {
			return dErrors.New(dErrors.CodeValidation, "the final step cannot be skipped")
		}
		result, err = s.moveForward(txCtx, t, steps, current, models.StepStatusSkipped, reason)
		return err
	})
	if err != nil {
		s.metrics.IncrementAdvanceRefused(string(dErrors.CodeOf(err)))
		return nil, err
	}

	s.metrics.IncrementStepTransition("skipped")
	return result, nil
}

// lockForMove locks the transaction and checks the caller's view is current.
func (s *Service) lockForMove(ctx context.Context, txID id.TransactionID, expectedStepID id.StepID) (*models.Transaction, []*models.TransactionStep, *models.TransactionStep, error) {
	t, err := s.lockOwned(ctx, txID)
	if err != nil {
		return nil, nil, nil, err
	}
	if t.IsComplete() {
		return nil, nil, nil, dErrors.New(dErrors.CodeAdvanceConflict, "workflow is already complete")
	}
	if !t.IsCurrentStep(expectedStepID) {
		return nil, nil, nil, dErrors.New(dErrors.CodeAdvanceConflict, "transaction is no longer at the expected step")
	}
	steps, err := s.store.ListSteps(ctx, txID)
	if err != nil {
		return nil, nil, nil, wrapStoreErr(err, "steps")
	}
	current := models.FindStep(steps, expectedStepID)
	if current == nil {
		return nil, nil, nil, dErrors.New(dErrors.CodeInvariantViolation, "current step is missing")
	}
	return t, steps, current, nil
}

// moveForward closes current as `to`, activates the next step in the same unit
// of work and generates its conditions. Without a next step the workflow completes.
func (s *Service) moveForward(ctx context.Context, t *models.Transaction, steps []*models.TransactionStep, current *models.TransactionStep, to models.StepStatus, reason string) (*models.AdvanceResult, error) {
	now := requestcontext.Now(ctx)
	if err := current.CanClose(to); err != nil {
		return nil, err
	}
	current.ApplyClose(to, now)
	if err := s.store.UpdateStep(ctx, current); err != nil {
		return nil, wrapStoreErr(err, "step")
	}

	result := &models.AdvanceResult{Transaction: t, ClosedStep: current, CreatedConditions: []*models.Condition{}}
	next := models.NextStep(steps, current)
	if next == nil {
		t.ApplyCompletion(now)
		result.Terminal = true
	} else {
		if err := next.CanActivate(); err != nil {
			return nil, err
		}
		next.ApplyActivation(now)
		if err := s.store.UpdateStep(ctx, next); err != nil {
			return nil, wrapStoreErr(err, "step")
		}
		t.ApplyCurrentStep(next.ID, now)
		result.ActivatedStep = next
	}
	if err := models.CheckStepOrdering(steps); err != nil {
		return nil, err
	}
	if err := s.store.UpdateTransaction(ctx, t); err != nil {
		return nil, wrapStoreErr(err, "transaction")
	}

	kv := []string{"from_step_id", current.ID.String(), "from_step", current.Slug}
	if next != nil {
		kv = append(kv, "to_step_id", next.ID.String(), "to_step", next.Slug)
	} else {
		kv = append(kv, "terminal", "true")
	}
	entryType := models.ActivityStepAdvanced
	if to == models.StepStatusSkipped {
		entryType = models.ActivityStepSkipped
		kv = append(kv, "reason", reason)
	}
	if err := s.appendActivity(ctx, t.ID, entryType, now, kv...); err != nil {
		return nil, err
	}

	if next != nil {
		profile, err := s.store.FindProfile(ctx, t.ID)
		if err != nil {
			return nil, wrapStoreErr(err, "profile")
		}
		created, err := s.generateConditions(ctx, t, next, profile, now)
		if err != nil {
			return nil, err
		}
		if created != nil {
			result.CreatedConditions = created
		}
	}
	return result, nil
}
