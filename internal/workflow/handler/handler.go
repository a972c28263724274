package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"dealflow/internal/platform/metrics"
	"dealflow/internal/platform/middleware"
	"dealflow/internal/workflow/catalog"
	"dealflow/internal/workflow/models"
	"dealflow/internal/workflow/service"
	id "dealflow/pkg/domain"
	dErrors "dealflow/pkg/domain-errors"
	"dealflow/pkg/platform/httputil"
	"dealflow/pkg/platform/middleware/metadata"
	"dealflow/pkg/platform/middleware/requesttime"
	"dealflow/pkg/requestcontext"
)

// Service is the workflow engine as seen by the HTTP layer.
type Service interface {
	ListTemplates() []*catalog.Template
	CreateTransaction(ctx context.Context, in service.CreateTransactionInput) (*models.Transaction, error)
	GetOverview(ctx context.Context, txID id.TransactionID) (*models.Overview, error)
	ListSteps(ctx context.Context, txID id.TransactionID) ([]*models.TransactionStep, error)
	GetProfile(ctx context.Context, txID id.TransactionID) (*models.PropertyProfile, error)
	SaveProfile(ctx context.Context, txID id.TransactionID, in models.ProfileInput) (*models.PropertyProfile, error)
	ListConditions(ctx context.Context, txID id.TransactionID, filter models.ConditionFilter) ([]*models.Condition, error)
	ResolveCondition(ctx context.Context, txID id.TransactionID, in service.ResolveInput) (*models.Condition, error)
	ResolveBatch(ctx context.Context, txID id.TransactionID, items []service.ResolveInput) ([]models.ResolveOutcome, error)
	CompleteCondition(ctx context.Context, txID id.TransactionID, conditionID id.ConditionID) (*models.Condition, error)
	CanAdvance(ctx context.Context, txID id.TransactionID) (*models.AdvanceCheck, error)
	Advance(ctx context.Context, txID id.TransactionID, expectedStepID id.StepID) (*models.AdvanceResult, error)
	SkipStep(ctx context.Context, txID id.TransactionID, expectedStepID id.StepID, reason string) (*models.AdvanceResult, error)
	ListDocuments(ctx context.Context, txID id.TransactionID) ([]*models.TransactionDocument, error)
	ListActivity(ctx context.Context, txID id.TransactionID, limit int) ([]*models.ActivityEntry, error)
	UploadDocument(ctx context.Context, in service.UploadInput) (*models.TransactionDocument, error)
	ReplaceDocument(ctx context.Context, docID id.DocumentID, file models.FileMetadata) (*models.TransactionDocument, error)
	DocumentVersions(ctx context.Context, docID id.DocumentID) ([]*models.TransactionDocument, error)
	ValidateDocument(ctx context.Context, docID id.DocumentID) (*models.TransactionDocument, error)
	RejectDocument(ctx context.Context, docID id.DocumentID, reason string) (*models.TransactionDocument, error)
}

// Handler exposes the workflow engine over REST.
type Handler struct {
	logger       *slog.Logger
	workflow     Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
	timeout      time.Duration
}

func New(workflow Service, logger *slog.Logger, metrics *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		workflow:     workflow,
		metrics:      metrics,
		jwtValidator: jwtValidator,
		timeout:      30 * time.Second,
	}
}

// Register mounts the workflow routes behind the authenticated middleware chain.
func (h *Handler) Register(r chi.Router) {
	workflowRouter := chi.NewRouter()
	workflowRouter.Use(middleware.Recovery(h.logger))
	workflowRouter.Use(middleware.RequestID)
	workflowRouter.Use(metadata.ClientMetadata)
	workflowRouter.Use(requesttime.Middleware)
	workflowRouter.Use(middleware.Logger(h.logger))
	workflowRouter.Use(middleware.Timeout(h.timeout))
	workflowRouter.Use(middleware.ContentTypeJSON)
	workflowRouter.Use(middleware.LatencyMiddleware(h.metrics))
	workflowRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	workflowRouter.Get("/templates", h.handleListTemplates)

	workflowRouter.Post("/transactions", h.handleCreateTransaction)
	workflowRouter.Route("/transactions/{id}", func(tr chi.Router) {
		tr.Get("/", h.handleGetOverview)
		tr.Get("/steps", h.handleListSteps)
		tr.Get("/profile", h.handleGetProfile)
		tr.Put("/profile", h.handleSaveProfile)
		tr.Get("/conditions", h.handleListConditions)
		tr.Post("/conditions/resolve", h.handleResolveBatch)
		tr.Post("/conditions/{cid}/resolve", h.handleResolveCondition)
		tr.Post("/conditions/{cid}/complete", h.handleCompleteCondition)
		tr.Get("/advance-check", h.handleAdvanceCheck)
		tr.Post("/advance", h.handleAdvance)
		tr.Post("/skip", h.handleSkip)
		tr.Get("/documents", h.handleListDocuments)
		tr.Get("/activity", h.handleListActivity)
	})

	workflowRouter.Post("/documents", h.handleUploadDocument)
	workflowRouter.Route("/documents/{id}", func(dr chi.Router) {
		dr.Patch("/", h.handleReplaceDocument)
		dr.Get("/versions", h.handleDocumentVersions)
		dr.Patch("/validate", h.handleValidateDocument)
		dr.Patch("/reject", h.handleRejectDocument)
	})

	r.Mount("/", workflowRouter)
}

func (h *Handler) handleListTemplates(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, templateListResponse{Templates: h.workflow.ListTemplates()})
}

func (h *Handler) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateTransactionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.fail(ctx, w, "invalid create transaction request", err)
		return
	}
	tx, err := h.workflow.CreateTransaction(ctx, in)
	if err != nil {
		h.fail(ctx, w, "failed to create transaction", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, tx)
}

func (h *Handler) handleGetOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txID, ok := h.transactionID(w, r)
	if !ok {
		return
	}
	overview, err := h.workflow.GetOverview(ctx, txID)
	if err != nil {
		h.fail(ctx, w, "failed to load transaction overview", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, overview)
}

func (h *Handler) handleListSteps(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txID, ok := h.transactionID(w, r)
	if !ok {
		return
	}
	steps, err := h.workflow.ListSteps(ctx, txID)
	if err != nil {
		h.fail(ctx, w, "failed to list steps", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stepListResponse{Steps: steps})
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txID, ok := h.transactionID(w, r)
	if !ok {
		return
	}
	profile, err := h.workflow.GetProfile(ctx, txID)
	if err != nil {
		h.fail(ctx, w, "failed to load profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	txID, ok := h.transactionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ProfileRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	profile, err := h.workflow.SaveProfile(ctx, txID, req.toInput())
	if err != nil {
		h.fail(ctx, w, "failed to save profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleListConditions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txID, ok := h.transactionID(w, r)
	if !ok {
		return
	}
	filter, err := models.ParseConditionFilter(r.URL.Query().Get("status"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	conditions, err := h.workflow.ListConditions(ctx, txID, filter)
	if err != nil {
		h.fail(ctx, w, "failed to list conditions", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, conditionListResponse{Conditions: conditions})
}

func (h *Handler) handleResolveCondition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	txID, ok := h.transactionID(w, r)
	if !ok {
		return
	}
	conditionID, ok := h.conditionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ResolveRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	condition, err := h.workflow.ResolveCondition(ctx, txID, req.toInput(conditionID))
	if err != nil {
		h.fail(ctx, w, "failed to resolve condition", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, condition)
}

func (h *Handler) handleResolveBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	txID, ok := h.transactionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[BatchResolveRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	items, err := req.toInputs()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	outcomes, err := h.workflow.ResolveBatch(ctx, txID, items)
	if err != nil {
		h.fail(ctx, w, "failed to resolve conditions", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, batchResolveResponse{Results: outcomes})
}

func (h *Handler) handleCompleteCondition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txID, ok := h.transactionID(w, r)
	if !ok {
		return
	}
	conditionID, ok := h.conditionID(w, r)
	if !ok {
		return
	}
	condition, err := h.workflow.CompleteCondition(ctx, txID, conditionID)
	if err != nil {
		h.fail(ctx, w, "failed to complete condition", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, condition)
}

func (h *Handler) handleAdvanceCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txID, ok := h.transactionID(w, r)
	if !ok {
		return
	}
	check, err := h.workflow.CanAdvance(ctx, txID)
	if err != nil {
		h.fail(ctx, w, "failed to evaluate advance", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, check)
}

func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	txID, ok := h.transactionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AdvanceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	stepID, err := id.ParseStepID(req.ExpectedStepID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.workflow.Advance(ctx, txID, stepID)
	if err != nil {
		h.fail(ctx, w, "failed to advance transaction", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleSkip(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	txID, ok := h.transactionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SkipRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	stepID, err := id.ParseStepID(req.ExpectedStepID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.workflow.SkipStep(ctx, txID, stepID, req.Reason)
	if err != nil {
		h.fail(ctx, w, "failed to skip step", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txID, ok := h.transactionID(w, r)
	if !ok {
		return
	}
	docs, err := h.workflow.ListDocuments(ctx, txID)
	if err != nil {
		h.fail(ctx, w, "failed to list documents", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, documentListResponse{Documents: docs})
}

func (h *Handler) handleListActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txID, ok := h.transactionID(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	entries, err := h.workflow.ListActivity(ctx, txID, limit)
	if err != nil {
		h.fail(ctx, w, "failed to list activity", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, activityListResponse{Activity: entries})
}

func (h *Handler) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[UploadDocumentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	in, err := req.toInput()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	doc, err := h.workflow.UploadDocument(ctx, in)
	if err != nil {
		h.fail(ctx, w, "failed to upload document", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, doc)
}

func (h *Handler) handleReplaceDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	docID, ok := h.documentID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[FileRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	doc, err := h.workflow.ReplaceDocument(ctx, docID, req.toFile())
	if err != nil {
		h.fail(ctx, w, "failed to replace document", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, doc)
}

func (h *Handler) handleDocumentVersions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID, ok := h.documentID(w, r)
	if !ok {
		return
	}
	versions, err := h.workflow.DocumentVersions(ctx, docID)
	if err != nil {
		h.fail(ctx, w, "failed to list document versions", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, documentListResponse{Documents: versions})
}

func (h *Handler) handleValidateDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID, ok := h.documentID(w, r)
	if !ok {
		return
	}
	doc, err := h.workflow.ValidateDocument(ctx, docID)
	if err != nil {
		h.fail(ctx, w, "failed to validate document", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) handleRejectDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	docID, ok := h.documentID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RejectRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	doc, err := h.workflow.RejectDocument(ctx, docID, req.Reason)
	if err != nil {
		h.fail(ctx, w, "failed to reject document", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) transactionID(w http.ResponseWriter, r *http.Request) (id.TransactionID, bool) {
	txID, err := id.ParseTransactionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.TransactionID{}, false
	}
	return txID, true
}

func (h *Handler) conditionID(w http.ResponseWriter, r *http.Request) (id.ConditionID, bool) {
	conditionID, err := id.ParseConditionID(chi.URLParam(r, "cid"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ConditionID{}, false
	}
	return conditionID, true
}

func (h *Handler) documentID(w http.ResponseWriter, r *http.Request) (id.DocumentID, bool) {
	docID, err := id.ParseDocumentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.DocumentID{}, false
	}
	return docID, true
}

// fail logs at warn for client errors and at error for server errors, then
// writes the envelope.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"error_code", string(dErrors.CodeOf(err)),
		"error", err.Error(),
	}
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}
