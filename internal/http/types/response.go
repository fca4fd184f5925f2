// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package types

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/teamtrait/identity-service/internal/storage"
	"github.com/teamtrait/identity-service/internal/types"
)

// ErrorResponse is the stable JSON error envelope. Message is short and
// human readable; internal detail never crosses this boundary.
type ErrorResponse struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes exposed to clients. TOKEN_EXPIRED tells a client silent
// refresh is worthwhile; UNAUTHENTICATED means re-login.
const (
	CodeTokenExpired    = "TOKEN_EXPIRED"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeQuotaExceeded   = "QUOTA_EXCEEDED"
	CodeMissingField    = "MISSING_ATTRIBUTE"
	CodeValidation      = "VALIDATION_ERROR"
	CodeExpired         = "EXPIRED"
	CodeRateLimited     = "RATE_LIMITED"
	CodeInternal        = "INTERNAL"
)

// MapError translates the error taxonomy into an HTTP envelope. Unclassified
// errors become a generic 500; the caller logs them with full detail.
func MapError(err error) ErrorResponse {
	switch {
	case errors.Is(err, types.ErrTokenExpired):
		return ErrorResponse{http.StatusUnauthorized, CodeTokenExpired, "token expired"}
	case errors.Is(err, types.ErrUnauthenticated):
		return ErrorResponse{http.StatusUnauthorized, CodeUnauthenticated, "authentication required"}
	case errors.Is(err, types.ErrForbidden):
		return ErrorResponse{http.StatusForbidden, CodeForbidden, "insufficient permissions"}
	case errors.Is(err, types.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return ErrorResponse{http.StatusNotFound, CodeNotFound, "resource not found"}
	case errors.Is(err, types.ErrQuotaExceeded), errors.Is(err, storage.ErrSeatsExhausted):
		return ErrorResponse{http.StatusConflict, CodeQuotaExceeded, "seat quota exceeded"}
	case errors.Is(err, types.ErrConflict), errors.Is(err, storage.ErrDuplicateKey):
		return ErrorResponse{http.StatusConflict, CodeConflict, "resource already exists"}
	case errors.Is(err, types.ErrMissingAttribute):
		return ErrorResponse{http.StatusUnprocessableEntity, CodeMissingField, "required attribute missing"}
	case errors.Is(err, types.ErrValidation):
		return ErrorResponse{http.StatusBadRequest, CodeValidation, "invalid request"}
	case errors.Is(err, types.ErrExpired):
		return ErrorResponse{http.StatusGone, CodeExpired, "no longer valid"}
	case errors.Is(err, types.ErrRateLimited):
		return ErrorResponse{http.StatusTooManyRequests, CodeRateLimited, "too many requests"}
	}
	return ErrorResponse{http.StatusInternalServerError, CodeInternal, "internal server error"}
}

// WriteError writes the mapped envelope for err.
func WriteError(w http.ResponseWriter, err error) {
	resp := MapError(err)
	WriteJSON(w, resp.Status, resp)
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
