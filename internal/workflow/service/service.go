// Package service implements the transaction workflow engine: step tracking,
// condition generation and resolution, advance gating and document evidence.
//
// Every read-then-write operation runs inside StoreTx.RunInTx and starts by
// locking the transaction row, so concurrent requests for one transaction are
// serialized while different transactions never contend.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"dealflow/internal/workflow/catalog"
	workflowmetrics "dealflow/internal/workflow/metrics"
	"dealflow/internal/workflow/models"
	id "dealflow/pkg/domain"
	dErrors "dealflow/pkg/domain-errors"
	"dealflow/pkg/platform/sentinel"
	"dealflow/pkg/requestcontext"
)

// Store persists the transaction aggregate: transaction, profile, steps and conditions.
type Store interface {
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	FindTransaction(ctx context.Context, txID id.TransactionID) (*models.Transaction, error)
	// LockTransaction reads the transaction and holds its row lock until the unit of work ends.
	LockTransaction(ctx context.Context, txID id.TransactionID) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, tx *models.Transaction) error

	FindProfile(ctx context.Context, txID id.TransactionID) (*models.PropertyProfile, error)
	SaveProfile(ctx context.Context, profile *models.PropertyProfile) error

	CreateSteps(ctx context.Context, steps []*models.TransactionStep) error
	// ListSteps returns steps ordered by StepOrder.
	ListSteps(ctx context.Context, txID id.TransactionID) ([]*models.TransactionStep, error)
	UpdateStep(ctx context.Context, step *models.TransactionStep) error

	// InsertConditionIfAbsent stores c unless a condition with the same
	// (transaction, step, template key) exists. It reports whether c was inserted.
	InsertConditionIfAbsent(ctx context.Context, c *models.Condition) (bool, error)
	FindCondition(ctx context.Context, conditionID id.ConditionID) (*models.Condition, error)
	ListConditions(ctx context.Context, txID id.TransactionID) ([]*models.Condition, error)
	UpdateCondition(ctx context.Context, c *models.Condition) error
	ListOverdueConditions(ctx context.Context, now time.Time, after *models.OverdueCursor, limit int) ([]*models.Condition, error)
}

// DocumentStore persists document versions. All versions share one table.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *models.TransactionDocument) error
	FindDocument(ctx context.Context, docID id.DocumentID) (*models.TransactionDocument, error)
	UpdateDocument(ctx context.Context, doc *models.TransactionDocument) error
	// LatestInChain returns the highest version of a chain or sentinel.ErrNotFound.
	LatestInChain(ctx context.Context, key models.ChainKey) (*models.TransactionDocument, error)
	// ListChain returns a chain ordered by version.
	ListChain(ctx context.Context, key models.ChainKey) ([]*models.TransactionDocument, error)
	ListDocuments(ctx context.Context, txID id.TransactionID) ([]*models.TransactionDocument, error)
}

// ActivityLog is the append-only audit trail. Append participates in the
// caller's unit of work; a failed append aborts the mutation.
type ActivityLog interface {
	Append(ctx context.Context, entry *models.ActivityEntry) error
	ListByTransaction(ctx context.Context, txID id.TransactionID, limit int) ([]*models.ActivityEntry, error)
	HasEntry(ctx context.Context, txID id.TransactionID, entryType models.ActivityType, metadataKey, metadataValue string) (bool, error)
}

// PlanLimiter is the subscription pre-check consulted before an upload.
type PlanLimiter interface {
	ReserveUpload(ctx context.Context, userID id.UserID) error
	ReleaseUpload(ctx context.Context, userID id.UserID) error
}

// Service orchestrates the workflow engine.
type Service struct {
	store           Store
	documents       DocumentStore
	activity        ActivityLog
	catalog         *catalog.Catalog
	tx              StoreTx
	plan            PlanLimiter
	policy          models.DocumentPolicy
	enforceRequired bool
	logger          *slog.Logger
	metrics         *workflowmetrics.Metrics
	tracer          trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *workflowmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithStoreTx sets the unit-of-work boundary. Without it the service uses the
// in-memory boundary, which is only correct for the in-memory stores.
func WithStoreTx(tx StoreTx) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

func WithPlanLimiter(plan PlanLimiter) Option {
	return func(s *Service) {
		s.plan = plan
	}
}

func WithDocumentPolicy(policy models.DocumentPolicy) Option {
	return func(s *Service) {
		s.policy = policy
	}
}

// WithRequiredGate makes open required conditions refuse advancement like blocking ones.
func WithRequiredGate(enforce bool) Option {
	return func(s *Service) {
		s.enforceRequired = enforce
	}
}

// New constructs a Service.
func New(store Store, documents DocumentStore, activity ActivityLog, cat *catalog.Catalog, opts ...Option) *Service {
	s := &Service{
		store:     store,
		documents: documents,
		activity:  activity,
		catalog:   cat,
		policy:    models.DefaultDocumentPolicy(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = NewInMemoryStoreTx(store, documents, activity)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("dealflow/workflow")
	}
	return s
}

// startSpan opens a span for an operation scoped to one transaction.
func (s *Service) startSpan(ctx context.Context, name string, txID id.TransactionID, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if !txID.IsNil() {
		attrs = append(attrs, attribute.String("dealflow.transaction.id", txID.String()))
	}
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	span.End()
}

// loadOwned reads a transaction without locking and checks the caller owns it.
func (s *Service) loadOwned(ctx context.Context, txID id.TransactionID) (*models.Transaction, error) {
	t, err := s.store.FindTransaction(ctx, txID)
	if err != nil {
		return nil, wrapStoreErr(err, "transaction")
	}
	if err := requireOwner(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// lockOwned locks the transaction row for the current unit of work and checks ownership.
func (s *Service) lockOwned(ctx context.Context, txID id.TransactionID) (*models.Transaction, error) {
	t, err := s.store.LockTransaction(ctx, txID)
	if err != nil {
		return nil, wrapStoreErr(err, "transaction")
	}
	if err := requireOwner(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func requireOwner(ctx context.Context, t *models.Transaction) error {
	actor := requestcontext.UserID(ctx)
	if actor.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if t.OwnerID != actor {
		return dErrors.New(dErrors.CodeForbidden, "transaction belongs to another user")
	}
	return nil
}

// wrapStoreErr translates store sentinels. Domain errors pass through untouched.
func wrapStoreErr(err error, entity string) error {
	if err == nil {
		return nil
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, entity+" not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, entity+" was modified concurrently")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "storage operation timed out")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "storage unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to access "+entity)
	}
}

// stepOrders indexes step order by step id.
func stepOrders(steps []*models.TransactionStep) map[id.StepID]int {
	out := make(map[id.StepID]int, len(steps))
	for _, st := range steps {
		out[st.ID] = st.StepOrder
	}
	return out
}

// currentOrder is the order of the active step, or one past the last step once
// the workflow completed so that every condition stays in scope.
func currentOrder(t *models.Transaction, steps []*models.TransactionStep) int {
	if t.CurrentStepID == nil {
		return len(steps) + 1
	}
	for _, st := range steps {
		if st.ID == *t.CurrentStepID {
			return st.StepOrder
		}
	}
	return 0
}

// inScope keeps conditions whose step order is at or before the current order.
func inScope(conditions []*models.Condition, orders map[id.StepID]int, current int) []*models.Condition {
	out := make([]*models.Condition, 0, len(conditions))
	for _, c := range conditions {
		if order, ok := orders[c.StepID]; ok && order <= current {
			out = append(out, c)
		}
	}
	return out
}
