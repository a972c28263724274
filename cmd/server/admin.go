package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	planmodels "dealflow/internal/plan/models"
	"dealflow/internal/platform/middleware"
	id "dealflow/pkg/domain"
	"dealflow/pkg/platform/httputil"
	"dealflow/pkg/platform/middleware/admin"
	"dealflow/pkg/platform/middleware/metadata"
	"dealflow/pkg/platform/middleware/requesttime"
	"dealflow/pkg/requestcontext"
)

type overdueSweeper interface {
	SweepOverdue(ctx context.Context, now time.Time) (int, error)
}

type usageReader interface {
	Usage(ctx context.Context, userID id.UserID) (*planmodels.Usage, error)
}

// adminHandler exposes operator routes behind the admin token.
type adminHandler struct {
	sweeper overdueSweeper
	usage   usageReader
	logger  *slog.Logger
	token   string
}

func newAdminHandler(sweeper overdueSweeper, usage usageReader, logger *slog.Logger, token string) *adminHandler {
	return &adminHandler{sweeper: sweeper, usage: usage, logger: logger, token: token}
}

func (h *adminHandler) Register(r chi.Router) {
	if h.token == "" {
		return
	}
	r.Route("/admin", func(ar chi.Router) {
		ar.Use(middleware.Recovery(h.logger))
		ar.Use(middleware.RequestID)
		ar.Use(metadata.ClientMetadata)
		ar.Use(requesttime.Middleware)
		ar.Use(middleware.Logger(h.logger))
		ar.Use(admin.RequireAdminToken(h.token, h.logger))
		ar.Post("/sweep-overdue", h.handleSweep)
		ar.Get("/users/{userId}/usage", h.handleUsage)
	})
}

type sweepResponse struct {
	Flagged int `json:"flagged"`
}

func (h *adminHandler) handleSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	flagged, err := h.sweeper.SweepOverdue(ctx, requestcontext.Now(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "manual overdue sweep failed",
			"request_id", requestcontext.RequestID(ctx),
			"flagged", flagged,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "manual overdue sweep",
		"request_id", requestcontext.RequestID(ctx),
		"flagged", flagged,
		"event", "overdue_sweep_triggered",
		"log_type", "audit",
	)
	httputil.WriteJSON(w, http.StatusOK, sweepResponse{Flagged: flagged})
}

func (h *adminHandler) handleUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "userId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	usage, err := h.usage.Usage(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, usage)
}
