// Package response writes the JSON envelopes of the minigame API:
// {"data": ...} on success and {"error": {...}} on failure.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"neuroforge/src/core/domain"
)

// Success represents a successful response with data.
type Success struct {
	Data any `json:"data"`
}

// Error represents an error response.
type Error struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	// Code is a machine-readable error code (e.g., "NOT_FOUND", "VALIDATION_ERROR")
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Field is the request field that failed validation
	Field string `json:"field,omitempty"`

	// RequestID echoes X-Request-ID
	RequestID string `json:"request_id,omitempty"`
}

// Error codes shared by handlers and middleware.
const (
	CodeBadRequest    = "BAD_REQUEST"
	CodeValidation    = "VALIDATION_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeAlreadyExists = "ALREADY_EXISTS"
	CodeConflict      = "CONFLICT"
	CodeForbidden     = "FORBIDDEN"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeInternal      = "INTERNAL_ERROR"
)

// internalMessage hides the cause of unexpected failures from players.
const internalMessage = "An unexpected error occurred"

// domainStatus maps each domain sentinel onto its HTTP status and code.
var domainStatus = []struct {
	base   error
	status int
	code   string
}{
	{domain.ErrNotFound, http.StatusNotFound, CodeNotFound},
	{domain.ErrInvalidInput, http.StatusBadRequest, CodeValidation},
	{domain.ErrAlreadyExists, http.StatusConflict, CodeAlreadyExists},
	{domain.ErrConflict, http.StatusConflict, CodeConflict},
	{domain.ErrForbidden, http.StatusForbidden, CodeForbidden},
	{domain.ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
}

// OK sends a 200 response with data.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Success{Data: data})
}

// Created sends a 201 response with the created resource.
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Success{Data: data})
}

// NoContent sends a 204 response with no body.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Fail aborts the request with an error envelope.
func Fail(c *gin.Context, status int, detail ErrorDetail) {
	c.AbortWithStatusJSON(status, Error{Error: detail})
}

// BadRequest sends a 400 response for a payload that could not be bound.
func BadRequest(c *gin.Context, message, requestID string) {
	Fail(c, http.StatusBadRequest, ErrorDetail{Code: CodeBadRequest, Message: message, RequestID: requestID})
}

// ValidationError sends a 400 response naming the offending field.
func ValidationError(c *gin.Context, field, message, requestID string) {
	Fail(c, http.StatusBadRequest, ErrorDetail{Code: CodeValidation, Message: message, Field: field, RequestID: requestID})
}

// NotFound sends a 404 response.
func NotFound(c *gin.Context, message, requestID string) {
	Fail(c, http.StatusNotFound, ErrorDetail{Code: CodeNotFound, Message: message, RequestID: requestID})
}

// Unauthorized sends a 401 response.
func Unauthorized(c *gin.Context, message, requestID string) {
	Fail(c, http.StatusUnauthorized, ErrorDetail{Code: CodeUnauthorized, Message: message, RequestID: requestID})
}

// InternalError sends a 500 response without details.
func InternalError(c *gin.Context, requestID string) {
	Fail(c, http.StatusInternalServerError, ErrorDetail{Code: CodeInternal, Message: internalMessage, RequestID: requestID})
}

// FromDomainError writes the envelope for err. Validation errors carry their
// field; errors outside the domain become a bare 500.
func FromDomainError(c *gin.Context, err error, requestID string) {
	for _, m := range domainStatus {
		if !errors.Is(err, m.base) {
			continue
		}
		detail := ErrorDetail{Code: m.code, Message: err.Error(), RequestID: requestID}
		var domainErr *domain.DomainError
		if m.base == domain.ErrInvalidInput && errors.As(err, &domainErr) {
			detail.Message = domainErr.Message
			detail.Field = domainErr.Field
		}
		Fail(c, m.status, detail)
		return
	}
	InternalError(c, requestID)
}
