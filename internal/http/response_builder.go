// Package http provides the JSON API server and its handlers.
//
// This file implements the Builder Pattern for the API response envelope.
// Every endpoint answers with {"success": bool, "data": ..., "message": ...}.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// Envelope is the body shape shared by all JSON responses.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building enveloped responses.
type JSONResponseBuilder struct {
	statusCode int
	envelope   Envelope
	headers    map[string]string
}

// NewJSONResponse creates a successful response builder with a 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		envelope:   Envelope{Success: true},
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code. Codes of 400 and above mark the envelope unsuccessful.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	b.envelope.Success = code < http.StatusBadRequest
	return b
}

// Data sets the envelope payload.
func (b *JSONResponseBuilder) Data(data any) *JSONResponseBuilder {
	b.envelope.Data = data
	return b
}

// Message sets the human readable envelope message.
func (b *JSONResponseBuilder) Message(msg string) *JSONResponseBuilder {
	b.envelope.Message = msg
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.envelope); err != nil {
		slog.Error("Failed to encode response", "error", err, "status", b.statusCode)
	}
}

// OK wraps data in a 200 response.
func OK(data any) *JSONResponseBuilder {
	return NewJSONResponse().Data(data)
}

// Created wraps data in a 201 response.
func Created(data any) *JSONResponseBuilder {
	return NewJSONResponse().Status(http.StatusCreated).Data(data)
}

// ErrorResponse creates an unsuccessful response carrying message.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Message(message)
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnauthorizedError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message).Header("WWW-Authenticate", `Bearer realm="fintrack"`)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// StatusFromError maps a service error onto an HTTP status and client message.
// Internal failures never leak their cause to the client.
func StatusFromError(err error) (int, string) {
	var ve *core.ValidationError
	var ce *core.ConsistencyError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.Is(err, core.ErrInvalidAmount):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.As(err, &ce):
		return http.StatusInternalServerError, "Ledger update failed, no changes were applied"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// writeError logs err at a level matching its status and writes the error envelope.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := StatusFromError(err)
	logger := applog.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		applog.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err, "http", op, nil)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", "operation", op, "status", status, "error", err)
	}

	resp := ErrorResponse(status, msg)
	if status == http.StatusUnauthorized {
		resp = UnauthorizedError(msg)
	}
	resp.Write(w)
}
