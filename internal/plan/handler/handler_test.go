package handler

import (
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "dealflow/internal/jwt_token"
	planservice "dealflow/internal/plan/service"
	"dealflow/internal/plan/models"
	"dealflow/internal/plan/store"
	id "dealflow/pkg/domain"
	"dealflow/pkg/requestcontext"
	"dealflow/pkg/testutil"
)

func TestHandleUsage(t *testing.T) {
	counter := store.NewInMemory()
	plan, err := planservice.New(counter, planservice.WithTier(models.TierFree), planservice.WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, err)

	jwt := jwttoken.NewJWTService("plan-handler-key", "dealflow-test")
	userID := id.NewUserID()
	token, err := jwt.GenerateAccessToken(userID, time.Hour)
	require.NoError(t, err)

	reserveCtx := testutil.ActorContext(userID, time.Now().UTC())
	require.NoError(t, plan.ReserveUpload(reserveCtx, requestcontext.UserID(reserveCtx)))

	router := chi.NewRouter()
	New(plan, slog.New(slog.DiscardHandler), nil, jwttoken.NewJWTServiceAdapter(jwt)).Register(router)

	t.Run("reports the caller's usage", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/plan/usage")
		rr := testutil.DoRequest(router, testutil.WithBearer(req, token))

		testutil.AssertStatusOK(t, rr)
		usage := testutil.UnmarshalResponse[models.Usage](t, rr)
		assert.Equal(t, userID, usage.UserID)
		assert.Equal(t, models.TierFree, usage.Tier)
		assert.Equal(t, 1, usage.Used)
		assert.Equal(t, 25, usage.Limit)
	})

	t.Run("requires a bearer token", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/plan/usage"))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})
}
