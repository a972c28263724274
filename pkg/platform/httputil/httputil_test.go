package httputil

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dErrors "dealflow/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("bad request includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid input"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "bad_request" {
			t.Fatalf("expected error code bad_request, got %q", body["error"])
		}
		if body["error_description"] != "invalid input" {
			t.Fatalf("expected error_description to be returned for bad request")
		}
	})
}

type blockedErr struct {
	error
	reasons []string
}

func (e blockedErr) Unwrap() error { return e.error }

func (e blockedErr) Details() any { return map[string]any{"blockingReasons": e.reasons} }

func TestWriteError_DomainCodes(t *testing.T) {
	cases := map[dErrors.Code]int{
		dErrors.CodeProfileLocked:         http.StatusConflict,
		dErrors.CodeAdvanceConflict:       http.StatusConflict,
		dErrors.CodeBlockingNotResolvable: http.StatusUnprocessableEntity,
		dErrors.CodeNoteRequired:          http.StatusUnprocessableEntity,
		dErrors.CodeDocumentInvalidState:  http.StatusConflict,
		dErrors.CodeFileTooLarge:          http.StatusRequestEntityTooLarge,
		dErrors.CodeFileBadFormat:         http.StatusUnsupportedMediaType,
		dErrors.CodePlanLimitExceeded:     http.StatusPaymentRequired,
	}
	for code, status := range cases {
		t.Run(string(code), func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, dErrors.New(code, "described"))
			if w.Code != status {
				t.Fatalf("expected status %d, got %d", status, w.Code)
			}
			var body map[string]any
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if body["error"] != string(code) {
				t.Fatalf("expected error code %s, got %v", code, body["error"])
			}
		})
	}
}

func TestWriteError_Details(t *testing.T) {
	w := httptest.NewRecorder()
	err := blockedErr{error: dErrors.New(dErrors.CodeAdvanceBlocked, "blocking conditions remain"), reasons: []string{"c1"}}
	WriteError(w, err)

	var body struct {
		Error   string              `json:"error"`
		Details map[string][]string `json:"details"`
	}
	if decodeErr := json.NewDecoder(w.Body).Decode(&body); decodeErr != nil {
		t.Fatalf("decode response: %v", decodeErr)
	}
	if body.Error != string(dErrors.CodeAdvanceBlocked) {
		t.Fatalf("unexpected error code %q", body.Error)
	}
	if len(body.Details["blockingReasons"]) != 1 {
		t.Fatalf("expected blocking reasons in details, got %+v", body.Details)
	}
}

type resolveBody struct {
	ResolutionType string `json:"resolutionType" validate:"required,oneof=completed waived not_applicable skipped_with_risk"`
	Note           string `json:"note" validate:"max=2000"`
}

func (r *resolveBody) Normalize() { r.Note = strings.TrimSpace(r.Note) }

func (r *resolveBody) Validate() error { return ValidateStruct(r) }

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("valid body is normalized", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"resolutionType":"waived","note":"  client declined  "}`))
		w := httptest.NewRecorder()
		req, ok := DecodeAndPrepare[resolveBody](w, r, logger, r.Context(), "req-1")
		if !ok {
			t.Fatalf("expected decode to succeed, got status %d", w.Code)
		}
		if req.Note != "client declined" {
			t.Fatalf("expected trimmed note, got %q", req.Note)
		}
	})

	t.Run("validation failure names the json field", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"resolutionType":"ignored"}`))
		w := httptest.NewRecorder()
		_, ok := DecodeAndPrepare[resolveBody](w, r, logger, r.Context(), "req-2")
		if ok {
			t.Fatal("expected validation failure")
		}
		var body map[string]string
		_ = json.NewDecoder(w.Body).Decode(&body)
		if body["error"] != "validation_error" || !strings.HasPrefix(body["error_description"], "resolutionType") {
			t.Fatalf("unexpected body %+v", body)
		}
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"resolutionType":"waived","extra":1}`))
		w := httptest.NewRecorder()
		_, ok := DecodeAndPrepare[resolveBody](w, r, logger, r.Context(), "req-3")
		if ok || w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})
}
