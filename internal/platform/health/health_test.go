package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReady(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("all checks up", func(t *testing.T) {
		h := New(logger).Add("postgres", func(context.Context) error { return nil }).Add("redis", nil)
		rec := httptest.NewRecorder()
		h.Ready(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var body readiness
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, map[string]string{"postgres": "up"}, body.Checks)
	})

	t.Run("failing check degrades readiness", func(t *testing.T) {
		h := New(logger).Add("postgres", func(context.Context) error { return errors.New("dial tcp: refused") })
		rec := httptest.NewRecorder()
		h.Ready(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var body readiness
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "degraded", body.Status)
		assert.Equal(t, "down", body.Checks["postgres"])
	})
}
