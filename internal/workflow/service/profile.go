package service

import (
	"context"
	"strconv"
	"time"

	"dealflow/internal/workflow/models"
	id "dealflow/pkg/domain"
	dErrors "dealflow/pkg/domain-errors"
	"dealflow/pkg/requestcontext"
)

func validateProfileInput(in models.ProfileInput) error {
	if !in.PropertyType.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "propertyType must be one of: house, condo, land")
	}
	if !in.PropertyContext.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "propertyContext must be one of: urban, suburban, rural")
	}
	return nil
}

// GetProfile returns the property profile.
func (s *Service) GetProfile(ctx context.Context, txID id.TransactionID) (*models.PropertyProfile, error) {
	if _, err := s.loadOwned(ctx, txID); err != nil {
		return nil, err
	}
	profile, err := s.store.FindProfile(ctx, txID)
	if err != nil {
		return nil, wrapStoreErr(err, "profile")
	}
	return profile, nil
}

// SaveProfile upserts the property profile while the transaction is still on
// its first step, then generates any profile-dependent conditions for the
// current step.
func (s *Service) SaveProfile(ctx context.Context, txID id.TransactionID, in models.ProfileInput) (*models.PropertyProfile, error) {
	start := time.Now()
	defer s.metrics.ObserveMutation("save_profile", start)
	ctx, span := s.startSpan(ctx, "workflow.SaveProfile", txID)
	var err error
	defer func() { endSpan(span, err) }()

	if err = validateProfileInput(in); err != nil {
		return nil, err
	}

	var saved *models.PropertyProfile
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)
		t, err := s.lockOwned(txCtx, txID)
		if err != nil {
			return err
		}
		steps, err := s.store.ListSteps(txCtx, txID)
		if err != nil {
			return wrapStoreErr(err, "steps")
		}
		order := currentOrder(t, steps)
		if models.ProfileLocked(order, t.IsComplete()) {
			return dErrors.New(dErrors.CodeProfileLocked, "property profile is locked once the transaction leaves its first step")
		}

		profile, err := s.store.FindProfile(txCtx, txID)
		if err != nil {
			return wrapStoreErr(err, "profile")
		}
		profile.ApplyInput(in, now)
		if err := s.store.SaveProfile(txCtx, profile); err != nil {
			return wrapStoreErr(err, "profile")
		}
		if err := s.appendActivity(txCtx, txID, models.ActivityProfileSaved, now,
			"property_type", string(profile.PropertyType),
			"property_context", string(profile.PropertyContext),
			"is_financed", strconv.FormatBool(profile.IsFinanced),
		); err != nil {
			return err
		}

		current := models.FindStep(steps, *t.CurrentStepID)
		if current == nil {
			return dErrors.New(dErrors.CodeInvariantViolation, "current step is missing")
		}
		if _, err := s.generateConditions(txCtx, t, current, profile, now); err != nil {
			return err
		}
		saved = profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}
