package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"dealflow/internal/workflow/models"
	id "dealflow/pkg/domain"
	dErrors "dealflow/pkg/domain-errors"
	"dealflow/pkg/requestcontext"
)

// generateConditions upserts the conditions the catalog derives for step and
// records condition_created for each newly inserted row. Re-running it for the
// same step and profile inserts nothing.
func (s *Service) generateConditions(ctx context.Context, t *models.Transaction, step *models.TransactionStep, profile *models.PropertyProfile, now time.Time) ([]*models.Condition, error) {
	enteredAt := now
	if step.EnteredAt != nil {
		enteredAt = *step.EnteredAt
	}

	var created []*models.Condition
	for _, tpl := range s.catalog.Generate(profile, t.Type, step.Slug) {
		c := &models.Condition{
			ID:               id.ConditionID(uuid.New()),
			TransactionID:    t.ID,
			StepID:           step.ID,
			TemplateKey:      tpl.Key,
			Title:            tpl.Title(),
			Labels:           tpl.Labels,
			Level:            tpl.Level,
			Status:           models.ConditionStatusPending,
			SourceType:       tpl.SourceType,
			EvidenceRequired: tpl.EvidenceRequired,
			DocumentCategory: tpl.Category,
			DueDate:          tpl.DueDate(enteredAt),
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		inserted, err := s.store.InsertConditionIfAbsent(ctx, c)
		if err != nil {
			return nil, wrapStoreErr(err, "condition")
		}
		if !inserted {
			continue
		}
		if err := s.appendActivity(ctx, t.ID, models.ActivityConditionCreated, now,
			"condition_id", c.ID.String(),
			"template_key", c.TemplateKey,
			"level", string(c.Level),
			"step_id", step.ID.String(),
		); err != nil {
			return nil, err
		}
		created = append(created, c)
	}
	s.metrics.AddConditionsCreated(len(created))
	return created, nil
}

// ListConditions lists conditions in scope. The active filter returns open
// conditions of the current step and open conditions carried forward from
// earlier steps.
func (s *Service) ListConditions(ctx context.Context, txID id.TransactionID, filter models.ConditionFilter) ([]*models.Condition, error) {
	ctx, span := s.startSpan(ctx, "workflow.ListConditions", txID)
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

	scoped := inScope(conditions, stepOrders(steps), currentOrder(t, steps))
	out := make([]*models.Condition, 0, len(scoped))
	for _, c := range scoped {
		switch filter {
		case models.ConditionFilterActive:
			if c.IsOpen() {
				out = append(out, c)
			}
		case models.ConditionFilterCompleted:
			if !c.IsOpen() {
				out = append(out, c)
			}
		default:
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Service) loadStepsAndConditions(ctx context.Context, txID id.TransactionID) ([]*models.TransactionStep, []*models.Condition, error) {
	steps, err := s.store.ListSteps(ctx, txID)
	if err != nil {
		return nil, nil, wrapStoreErr(err, "steps")
	}
	conditions, err := s.store.ListConditions(ctx, txID)
	if err != nil {
		return nil, nil, wrapStoreErr(err, "conditions")
	}
	return steps, conditions, nil
}

// scopedCondition loads a condition under the transaction lock and checks it
// belongs to the transaction and to a step at or before the current one.
func (s *Service) scopedCondition(ctx context.Context, t *models.Transaction, conditionID id.ConditionID) (*models.Condition, error) {
	c, err := s.store.FindCondition(ctx, conditionID)
	if err != nil {
		return nil, wrapStoreErr(err, "condition")
	}
	if c.TransactionID != t.ID {
		return nil, dErrors.New(dErrors.CodeNotFound, "condition not found")
	}
	steps, err := s.store.ListSteps(ctx, t.ID)
	if err != nil {
		return nil, wrapStoreErr(err, "steps")
	}
	order, ok := stepOrders(steps)[c.StepID]
	if !ok || order > currentOrder(t, steps) {
		return nil, dErrors.New(dErrors.CodeConditionOutOfScope, "condition belongs to a step the transaction has not reached")
	}
	return c, nil
}

// CompleteCondition satisfies a condition that needs no evidence. Blocking
// conditions close this way too, without a resolution record.
func (s *Service) CompleteCondition(ctx context.Context, txID id.TransactionID, conditionID id.ConditionID) (*models.Condition, error) {
	start := time.Now()
	defer s.metrics.ObserveMutation("complete_condition", start)
	ctx, span := s.startSpan(ctx, "workflow.CompleteCondition", txID)
	var err error
	defer func() { endSpan(span, err) }()

	var completed *models.Condition
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)
		t, err := s.lockOwned(txCtx, txID)
		if err != nil {
			return err
		}
		c, err := s.scopedCondition(txCtx, t, conditionID)
		if err != nil {
			return err
		}
		if err := c.CanCompleteDirectly(); err != nil {
			return err
		}
		c.ApplyCompletion(now)
		if err := s.store.UpdateCondition(txCtx, c); err != nil {
			return wrapStoreErr(err, "condition")
		}
		if err := s.appendActivity(txCtx, txID, models.ActivityConditionCompleted, now,
			"condition_id", c.ID.String(),
			"template_key", c.TemplateKey,
			"via", "manual",
		); err != nil {
			return err
		}
		completed = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return completed, nil
}
