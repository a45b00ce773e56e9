package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// WHY HELPERS?
// Without helpers, every handler repeats the same boilerplate:
//   w.Header().Set("Content-Type", "application/json")
//   w.WriteHeader(statusCode)
//   json.NewEncoder(w).Encode(data)
//
// With helpers, handlers are cleaner and more consistent:
//   writeJSON(w, http.StatusOK, data)
//   writeError(w, err)
//
// CONSISTENT ERROR FORMAT:
// Every error response from our API has the same shape:
//   {"error": "bad_request", "message": "No code provided"}
//
// This makes it easy for the frontend to parse errors — it always knows
// what fields to expect, regardless of whether it's a 400, 404, or 500.
//
// Auth and storage failures never carry their cause to the client; the cause
// (provider error text, SQL error) is logged by the handler instead.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/devdash/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
// Having a struct ensures consistent JSON shape across all error responses.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// You MUST set headers and status code BEFORE writing the body.
// Once you call w.Write() (which Encode does internally), the headers are sent.
// Any header changes after that are silently ignored.
//
// That's why we do:
//  1. w.Header().Set(...)     ← set headers
//  2. w.WriteHeader(status)   ← send status + headers
//  3. json.Encode(data)       ← send body
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// If encoding fails, the headers are already sent — we can only log it.
			// This is rare (usually means the data has an unencodable type like a channel).
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// ERROR MAPPING:
// This is where domain errors (from the service layer) get translated to HTTP.
//
//	apperror.ErrBadRequest    → 400 bad_request (message is safe to show)
//	apperror.ErrNotFound      → 404 not_found
//	apperror.ErrAuthExchange  → 500 auth_failed  "Authentication failed"
//	apperror.ErrStorage       → 500 auth_failed  "Authentication failed"
//	anything else             → 500 internal_error
//
// WHY HERE AND NOT IN THE SERVICE?
// The service layer should not know about HTTP status codes.
//
// errors.Is() UNWRAPPING:
// errors.Is(err, target) walks the entire error chain to see if `target`
// appears anywhere:
//
//	service returns: fmt.Errorf("service/auth: exchanging code: %w", apperror.AuthExchangeFailed(...))
//	which wraps:     AppError{Err: ErrAuthExchange, Cause: ...}
//	errors.Is walks: outer error → AppError → ErrAuthExchange ✓ match!
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperror.ErrBadRequest):
		message := "Bad request"
		// errors.As() is like errors.Is() but extracts the error value.
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Message != "" {
			message = appErr.Message
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: message})

	case errors.Is(err, apperror.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "Not found"})

	case errors.Is(err, apperror.ErrAuthExchange), errors.Is(err, apperror.ErrStorage):
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "auth_failed",
			Message: "Authentication failed",
		})

	default:
		// NEVER expose internal error details to the client in production!
		// The raw error message might contain SQL queries, file paths, or tokens.
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}
}
