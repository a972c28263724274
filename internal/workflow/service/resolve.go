package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"dealflow/internal/workflow/models"
	id "dealflow/pkg/domain"
	dErrors "dealflow/pkg/domain-errors"
	"dealflow/pkg/requestcontext"
)

// ResolveInput is one manual resolution.
type ResolveInput struct {
	ConditionID    id.ConditionID
	ResolutionType models.ResolutionType
	Note           string
}

// ResolveCondition applies a manual resolution to a non-blocking condition.
// Checks run in a fixed order: scope, blocking level, note, then state.
func (s *Service) ResolveCondition(ctx context.Context, txID id.TransactionID, in ResolveInput) (*models.Condition, error) {
	start := time.Now()
	defer s.metrics.ObserveMutation("resolve_condition", start)
	ctx, span := s.startSpan(ctx, "workflow.ResolveCondition", txID,
		attribute.String("dealflow.resolution.type", string(in.ResolutionType)))
	var err error
	defer func() { endSpan(span, err) }()

	var resolved *models.Condition
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)
		t, err := s.lockOwned(txCtx, txID)
		if err != nil {
			return err
		}
		c, err := s.scopedCondition(txCtx, t, in.ConditionID)
		if err != nil {
			return err
		}
		if err := c.CanResolve(in.ResolutionType, in.Note); err != nil {
			return err
		}
		c.ApplyResolution(in.ResolutionType, in.Note, requestcontext.UserID(txCtx), now)
		if err := s.store.UpdateCondition(txCtx, c); err != nil {
			return wrapStoreErr(err, "condition")
		}
		if err := s.appendActivity(txCtx, txID, models.ActivityConditionResolved, now,
			"condition_id", c.ID.String(),
			"template_key", c.TemplateKey,
			"resolution_type", string(in.ResolutionType),
			"note", c.Resolution.Note,
		); err != nil {
			return err
		}
		resolved = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementConditionResolved(string(in.ResolutionType))
	return resolved, nil
}

// ResolveBatch resolves conditions one by one. Each resolution commits on its
// own; a failure does not roll back earlier items and does not stop later ones.
// Callers re-check CanAdvance afterwards.
func (s *Service) ResolveBatch(ctx context.Context, txID id.TransactionID, items []ResolveInput) ([]models.ResolveOutcome, error) {
	if len(items) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "resolutions must not be empty")
	}
	// Ownership and existence failures apply to the whole batch.
	if _, err := s.loadOwned(ctx, txID); err != nil {
		return nil, err
	}

	outcomes := make([]models.ResolveOutcome, 0, len(items))
	for _, item := range items {
		c, err := s.ResolveCondition(ctx, txID, item)
		outcome := models.ResolveOutcome{ConditionID: item.ConditionID, Condition: c}
		if err != nil {
			outcome.Error = string(dErrors.CodeOf(err))
			if de, ok := dErrors.As(err); ok && dErrors.CodeOf(err) != dErrors.CodeInternal {
				outcome.Message = de.Message
			}
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}
