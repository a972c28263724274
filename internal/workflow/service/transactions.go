package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"dealflow/internal/workflow/catalog"
	"dealflow/internal/workflow/models"
	id "dealflow/pkg/domain"
	dErrors "dealflow/pkg/domain-errors"
	"dealflow/pkg/requestcontext"
)

// CreateTransactionInput describes a new transaction. TemplateID defaults to
// the first template for the transaction type.
type CreateTransactionInput struct {
	ClientID   id.ClientID
	Type       models.TransactionType
	TemplateID string
	KeyDates   models.KeyDates
	Profile    *models.ProfileInput
}

// ListTemplates returns the workflow template catalog.
func (s *Service) ListTemplates() []*catalog.Template {
	return s.catalog.Templates()
}

// CreateTransaction instantiates the template's steps with step 1 active,
// stores the profile and generates step 1 conditions in one unit of work.
func (s *Service) CreateTransaction(ctx context.Context, in CreateTransactionInput) (*models.Transaction, error) {
	start := time.Now()
	defer s.metrics.ObserveMutation("create_transaction", start)
	ctx, span := s.startSpan(ctx, "workflow.CreateTransaction", id.TransactionID{},
		attribute.String("dealflow.transaction.type", string(in.Type)))
	var err error
	defer func() { endSpan(span, err) }()

	actor := requestcontext.UserID(ctx)
	if actor.IsNil() {
		err = dErrors.New(dErrors.CodeUnauthorized, "authentication required")
		return nil, err
	}
	var template *catalog.Template
	if template, err = s.resolveTemplate(in); err != nil {
		return nil, err
	}
	if in.Profile != nil {
		if err = validateProfileInput(*in.Profile); err != nil {
			return nil, err
		}
	}

	var created *models.Transaction
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)
		t, err := models.NewTransaction(id.TransactionID(uuid.New()), actor, in.ClientID, in.Type, template.ID, in.KeyDates, now)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
				return dErrors.New(dErrors.CodeValidation, err.Error())
			}
			return err
		}

		steps := instantiateSteps(t.ID, template, now)
		t.ApplyCurrentStep(steps[0].ID, now)

		profile := models.NewDefaultProfile(t.ID, now)
		if in.Profile != nil {
			profile.ApplyInput(*in.Profile, now)
		}

		if err := s.store.CreateTransaction(txCtx, t); err != nil {
			return wrapStoreErr(err, "transaction")
		}
		if err := s.store.SaveProfile(txCtx, profile); err != nil {
			return wrapStoreErr(err, "profile")
		}
		if err := s.store.CreateSteps(txCtx, steps); err != nil {
			return wrapStoreErr(err, "steps")
		}
		if err := s.appendActivity(txCtx, t.ID, models.ActivityTransactionCreated, now,
			"template_id", template.ID,
			"type", string(t.Type),
			"client_id", t.ClientID.String(),
		); err != nil {
			return err
		}
		if _, err := s.generateConditions(txCtx, t, steps[0], profile, now); err != nil {
			return err
		}
		created = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementTransactionCreated()
	return created, nil
}

func (s *Service) resolveTemplate(in CreateTransactionInput) (*catalog.Template, error) {
	if !in.Type.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "type must be one of: purchase, sale")
	}
	if in.TemplateID == "" {
		t, ok := s.catalog.DefaultTemplate(in.Type)
		if !ok {
			return nil, dErrors.New(dErrors.CodeValidation, "no workflow template for type "+string(in.Type))
		}
		return t, nil
	}
	t, ok := s.catalog.Template(in.TemplateID)
	if !ok {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown template "+in.TemplateID)
	}
	if t.TransactionType != in.Type {
		return nil, dErrors.New(dErrors.CodeValidation, "template "+t.ID+" is for "+string(t.TransactionType)+" transactions")
	}
	return t, nil
}

func instantiateSteps(txID id.TransactionID, template *catalog.Template, now time.Time) []*models.TransactionStep {
	steps := make([]*models.TransactionStep, len(template.Steps))
	for i, def := range template.Steps {
		steps[i] = &models.TransactionStep{
			ID:            id.StepID(uuid.New()),
			TransactionID: txID,
			StepOrder:     def.Order,
			Slug:          def.Slug,
			Name:          def.Name,
			Status:        models.StepStatusPending,
		}
	}
	steps[0].ApplyActivation(now)
	return steps
}

// GetTransaction returns the transaction if the caller owns it.
func (s *Service) GetTransaction(ctx context.Context, txID id.TransactionID) (*models.Transaction, error) {
	return s.loadOwned(ctx, txID)
}

// ListSteps returns the transaction's steps ordered by step order.
func (s *Service) ListSteps(ctx context.Context, txID id.TransactionID) ([]*models.TransactionStep, error) {
	if _, err := s.loadOwned(ctx, txID); err != nil {
		return nil, err
	}
	steps, err := s.store.ListSteps(ctx, txID)
	if err != nil {
		return nil, wrapStoreErr(err, "steps")
	}
	return steps, nil
}

// GetOverview loads the transaction detail read model. The independent reads
// run concurrently.
func (s *Service) GetOverview(ctx context.Context, txID id.TransactionID) (*models.Overview, error) {
	ctx, span := s.startSpan(ctx, "workflow.GetOverview", txID)
	var err error
	defer func() { endSpan(span, err) }()

	t, err := s.loadOwned(ctx, txID)
	if err != nil {
		return nil, err
	}

	var (
		profile    *models.PropertyProfile
		steps      []*models.TransactionStep
		conditions []*models.Condition
		documents  []*models.TransactionDocument
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = s.store.FindProfile(gctx, txID)
		return wrapStoreErr(err, "profile")
	})
	g.Go(func() error {
		var err error
		steps, err = s.store.ListSteps(gctx, txID)
		return wrapStoreErr(err, "steps")
	})
	g.Go(func() error {
		var err error
		conditions, err = s.store.ListConditions(gctx, txID)
		return wrapStoreErr(err, "conditions")
	})
	g.Go(func() error {
		var err error
		documents, err = s.documents.ListDocuments(gctx, txID)
		return wrapStoreErr(err, "documents")
	})
	if err = g.Wait(); err != nil {
		return nil, err
	}

	counts := map[string]int{
		string(models.LevelBlocking):    0,
		string(models.LevelRequired):    0,
		string(models.LevelRecommended): 0,
	}
	scoped := inScope(conditions, stepOrders(steps), currentOrder(t, steps))
	for _, c := range scoped {
		if c.IsOpen() {
			counts[string(c.Level)]++
		}
	}
	return &models.Overview{
		Transaction:   t,
		Profile:       profile,
		Steps:         steps,
		OpenCounts:    counts,
		DocumentCount: len(documents),
	}, nil
}
