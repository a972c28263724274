package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"dealflow/internal/plan/models"
	"dealflow/internal/platform/metrics"
	"dealflow/internal/platform/middleware"
	id "dealflow/pkg/domain"
	"dealflow/pkg/platform/httputil"
	"dealflow/pkg/platform/middleware/requesttime"
	"dealflow/pkg/requestcontext"
)

// Service reports plan consumption.
type Service interface {
	Usage(ctx context.Context, userID id.UserID) (*models.Usage, error)
}

// Handler serves the caller's own plan usage.
type Handler struct {
	logger       *slog.Logger
	plan         Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

func New(plan Service, logger *slog.Logger, metrics *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{logger: logger, plan: plan, metrics: metrics, jwtValidator: jwtValidator}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/plan", func(pr chi.Router) {
		pr.Use(middleware.Recovery(h.logger))
		pr.Use(middleware.RequestID)
		pr.Use(requesttime.Middleware)
		pr.Use(middleware.Logger(h.logger))
		pr.Use(middleware.Timeout(10 * time.Second))
		pr.Use(middleware.ContentTypeJSON)
		pr.Use(middleware.LatencyMiddleware(h.metrics))
		pr.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		pr.Get("/usage", h.handleUsage)
	})
}

func (h *Handler) handleUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	usage, err := h.plan.Usage(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.logger.WarnContext(ctx, "failed to read plan usage",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, usage)
}
