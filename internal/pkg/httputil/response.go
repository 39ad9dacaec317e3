package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ignite/billingd/internal/domain"
	"github.com/ignite/billingd/internal/pkg/logger"
)

// ErrorResponse is the standard error envelope for all API errors.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Field  string `json:"field,omitempty"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// OK writes a 200 response with the given data.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Created writes a 201 response with the given data.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// NoContent writes a 204 response with no body.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes a JSON error envelope with the given status.
func Error(w http.ResponseWriter, status int, detail string) {
	JSON(w, status, ErrorResponse{Detail: detail})
}

// BadRequest writes a 400 error.
func BadRequest(w http.ResponseWriter, detail string) {
	Error(w, http.StatusBadRequest, detail)
}

// NotFound writes a 404 error.
func NotFound(w http.ResponseWriter, detail string) {
	Error(w, http.StatusNotFound, detail)
}

// DomainError maps the domain error taxonomy to HTTP statuses:
// validation/business-rule -> 400, not found -> 404, duplicate -> 409,
// anything else (storage faults included) -> 500 with a generic detail.
// The real error is logged server-side and never leaks to the client.
func DomainError(w http.ResponseWriter, log *logger.Logger, err error) {
	var (
		ve  *domain.ValidationError
		bre *domain.BusinessRuleError
		nfe *domain.NotFoundError
		de  *domain.DuplicateError
	)
	switch {
	case errors.As(err, &ve):
		JSON(w, http.StatusBadRequest, ErrorResponse{Detail: ve.Error(), Field: ve.Field})
	case errors.As(err, &bre):
		Error(w, http.StatusBadRequest, bre.Error())
	case errors.As(err, &nfe):
		Error(w, http.StatusNotFound, nfe.Error())
	case errors.As(err, &de):
		JSON(w, http.StatusConflict, ErrorResponse{Detail: de.Error(), Field: de.Field})
	default:
		log.Error("internal error", "error", err)
		Error(w, http.StatusInternalServerError, "internal server error")
	}
}

// Decode reads JSON from the request body into dst.
// Returns false and writes a 400 response if parsing fails.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		BadRequest(w, "invalid JSON: "+err.Error())
		return false
	}
	return true
}
