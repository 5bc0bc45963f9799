package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/logger"
	"github.com/fjod/go_cart/shop-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRespondServiceError_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", domain.Invalid("price must be positive"), http.StatusBadRequest, "validation_error"},
		{"state", fmt.Errorf("%w: shipped -> pending", domain.ErrInvalidTransition), http.StatusBadRequest, "invalid_state"},
		{"insufficient stock", domain.ErrInsufficientStock, http.StatusBadRequest, "invalid_state"},
		{"unauthorized", domain.ErrInvalidCredentials, http.StatusUnauthorized, "unauthorized"},
		{"declined", domain.ErrDeclinedByGateway, http.StatusPaymentRequired, "payment_declined"},
		{"not found", domain.NotFound("order", "o1"), http.StatusNotFound, "not_found"},
		{"store not found", fmt.Errorf("orders o1: %w", store.ErrNotFound), http.StatusNotFound, "not_found"},
		{"conflict", domain.ErrEmailTaken, http.StatusConflict, "conflict"},
		{"store duplicate", store.ErrDuplicate, http.StatusConflict, "conflict"},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/orders/o1", nil)

			respondServiceError(rec, req, zap.NewNop(), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			resp := decodeResponse(t, rec)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, tt.err.Error(), resp.Message)
		})
	}
}

func TestRespondServiceError_UnknownErrorIsLoggedNotLeaked(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	req = req.WithContext(logger.WithRequestID(req.Context(), "req-42"))

	respondServiceError(rec, req, zap.New(core), errors.New("connection reset by peer"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "internal server error", resp.Message)
	assert.Equal(t, "internal_error", resp.Error.Code)
	assert.Equal(t, "req-42", resp.Metadata.RequestID)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "req-42", entry.ContextMap()["request_id"])
	assert.Equal(t, "/api/orders", entry.ContextMap()["path"])
}

func TestRespondJSON_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	respondJSON(rec, req, http.StatusCreated, "created", map[string]string{"id": "p1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "created", resp.Message)
	assert.JSONEq(t, `{"id":"p1"}`, string(resp.Data))
	assert.Nil(t, resp.Pagination)
	assert.Nil(t, resp.Error)
	assert.False(t, resp.Metadata.Timestamp.IsZero())
}

func TestEnvelope_AlwaysCarriesData(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	respondError(rec, req, http.StatusNotFound, "not_found", "order not found")

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	require.Contains(t, raw, "data")
	assert.Equal(t, "null", string(raw["data"]))
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		limit  int64
		status int
		code   string
	}{
		{"malformed", `{"name":`, 1 << 20, http.StatusBadRequest, "invalid_request"},
		{"empty", ``, 1 << 20, http.StatusBadRequest, "invalid_request"},
		{"too large", `{"name":"` + strings.Repeat("x", 64) + `"}`, 16, http.StatusRequestEntityTooLarge, "payload_too_large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.Body = http.MaxBytesReader(rec, req.Body, tt.limit)

			var v struct {
				Name string `json:"name"`
			}
			ok := decodeJSON(rec, req, &v)

			assert.False(t, ok)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeResponse(t, rec).Error.Code)
		})
	}
}

func TestPageRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&limit=25", nil)
	page, err := pageRequest(req)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, 25, page.Limit)

	_, err = pageRequest(httptest.NewRequest(http.MethodGet, "/?page=abc", nil))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = pageRequest(httptest.NewRequest(http.MethodGet, "/?limit=-5", nil))
	assert.ErrorIs(t, err, domain.ErrValidation)
}
