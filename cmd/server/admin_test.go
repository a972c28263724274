package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	planmodels "dealflow/internal/plan/models"
	id "dealflow/pkg/domain"
	dErrors "dealflow/pkg/domain-errors"
	"dealflow/pkg/testutil"
)

type stubSweeper struct {
	flagged int
	err     error
	calls   int
}

func (s *stubSweeper) SweepOverdue(context.Context, time.Time) (int, error) {
	s.calls++
	return s.flagged, s.err
}

type stubUsage struct{}

func (stubUsage) Usage(_ context.Context, userID id.UserID) (*planmodels.Usage, error) {
	return &planmodels.Usage{UserID: userID, Tier: planmodels.TierStandard, Used: 3, Limit: 500}, nil
}

func TestAdminHandler(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	newRouter := func(sweeper overdueSweeper, token string) chi.Router {
		r := chi.NewRouter()
		newAdminHandler(sweeper, stubUsage{}, logger, token).Register(r)
		return r
	}

	t.Run("sweep with the admin token", func(t *testing.T) {
		sweeper := &stubSweeper{flagged: 2}
		req := testutil.NewRequest(t, http.MethodPost, "/admin/sweep-overdue")
		req.Header.Set("X-Admin-Token", "ops")
		rr := testutil.DoRequest(newRouter(sweeper, "ops"), req)

		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "flagged", float64(2))
		assert.Equal(t, 1, sweeper.calls)
	})

	t.Run("sweep failure maps to the error envelope", func(t *testing.T) {
		sweeper := &stubSweeper{err: dErrors.Wrap(errors.New("conn reset"), dErrors.CodeUnavailable, "database unavailable")}
		req := testutil.NewRequest(t, http.MethodPost, "/admin/sweep-overdue")
		req.Header.Set("X-Admin-Token", "ops")
		rr := testutil.DoRequest(newRouter(sweeper, "ops"), req)

		testutil.AssertStatusAndError(t, rr, http.StatusServiceUnavailable, "unavailable")
	})

	t.Run("usage for a user", func(t *testing.T) {
		userID := id.NewUserID()
		req := testutil.NewRequest(t, http.MethodGet, "/admin/users/"+userID.String()+"/usage")
		req.Header.Set("X-Admin-Token", "ops")
		rr := testutil.DoRequest(newRouter(&stubSweeper{}, "ops"), req)

		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "used", float64(3))
	})

	t.Run("routes are absent without a configured token", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodPost, "/admin/sweep-overdue")
		rr := testutil.DoRequest(newRouter(&stubSweeper{}, ""), req)
		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})
}
