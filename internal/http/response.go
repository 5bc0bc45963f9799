package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/logger"
	"github.com/fjod/go_cart/shop-api/internal/service"
	"github.com/fjod/go_cart/shop-api/internal/store"
	"go.uber.org/zap"
)

type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"requestId,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// Envelope wraps every response body.
type Envelope struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message,omitempty"`
	Data       any                 `json:"data"`
	Pagination *service.Pagination `json:"pagination,omitempty"`
	Error      *ErrorBody          `json:"error,omitempty"`
	Metadata   Metadata            `json:"metadata"`
}

func metadata(r *http.Request) Metadata {
	return Metadata{Timestamp: time.Now().UTC(), RequestID: logger.RequestID(r.Context())}
}

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Error("failed to encode response", zap.Error(err))
	}
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	writeJSON(w, status, Envelope{
		Success:  true,
		Message:  message,
		Data:     data,
		Metadata: metadata(r),
	})
}

func respondPage(w http.ResponseWriter, r *http.Request, data any, p service.Pagination) {
	writeJSON(w, http.StatusOK, Envelope{
		Success:    true,
		Data:       data,
		Pagination: &p,
		Metadata:   metadata(r),
	})
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, Envelope{
		Success:  false,
		Message:  message,
		Error:    &ErrorBody{Code: code},
		Metadata: metadata(r),
	})
}

// respondServiceError converts a service error to its HTTP status. Unknown
// errors are logged and reported without detail.
func respondServiceError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var status int
	var code string

	switch {
	case errors.Is(err, domain.ErrValidation):
		status, code = http.StatusBadRequest, "validation_error"
	case errors.Is(err, domain.ErrState):
		status, code = http.StatusBadRequest, "invalid_state"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrPaymentDeclined):
		status, code = http.StatusPaymentRequired, "payment_declined"
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, store.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrConflict), errors.Is(err, store.ErrDuplicate):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "timeout"
	default:
		logger.WithContext(r.Context(), log).Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondError(w, r, status, code, err.Error())
}

// decodeJSON reads the request body into v, answering 400 itself on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		respondError(w, r, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
	case errors.Is(err, io.EOF):
		respondError(w, r, http.StatusBadRequest, "invalid_request", "request body is required")
	default:
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
	}
	return false
}
