// Package models provides API request and response types.
package models

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ProblemDetails represents an RFC 7807 problem details response.
type ProblemDetails struct {
	// Type is a URI reference identifying the problem type.
	Type string `json:"type"`

	// Title is a short, human-readable summary of the problem type.
	Title string `json:"title"`

	// Status is the HTTP status code.
	Status int `json:"status"`

	// Detail is a human-readable explanation specific to this occurrence.
	Detail string `json:"detail,omitempty"`

	// Instance is a URI reference identifying the specific occurrence.
	Instance string `json:"instance,omitempty"`
}

// Error implements the error interface.
func (p *ProblemDetails) Error() string {
	return fmt.Sprintf("%s: %s", p.Title, p.Detail)
}

// Common error types.
const (
	ErrorTypeValidation  = "/errors/validation-error"
	ErrorTypeNotFound    = "/errors/not-found"
	ErrorTypeConflict    = "/errors/conflict"
	ErrorTypeInternal    = "/errors/internal-error"
	ErrorTypeBadRequest  = "/errors/bad-request"
	ErrorTypeRateLimited = "/errors/rate-limited"
)

// NewValidationError creates a validation error.
func NewValidationError(instance, detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:     ErrorTypeValidation,
		Title:    "Validation Error",
		Status:   http.StatusBadRequest,
		Detail:   detail,
		Instance: instance,
	}
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(instance, detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:     ErrorTypeNotFound,
		Title:    "Not Found",
		Status:   http.StatusNotFound,
		Detail:   detail,
		Instance: instance,
	}
}

// NewConflictError creates a conflict error.
func NewConflictError(instance, detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:     ErrorTypeConflict,
		Title:    "Conflict",
		Status:   http.StatusConflict,
		Detail:   detail,
		Instance: instance,
	}
}

// NewInternalError creates an internal server error.
func NewInternalError(instance, detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:     ErrorTypeInternal,
		Title:    "Internal Server Error",
		Status:   http.StatusInternalServerError,
		Detail:   detail,
		Instance: instance,
	}
}

// NewBadRequestError creates a bad request error.
func NewBadRequestError(instance, detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:     ErrorTypeBadRequest,
		Title:    "Bad Request",
		Status:   http.StatusBadRequest,
		Detail:   detail,
		Instance: instance,
	}
}

// NewRateLimitedError creates a rate limited error.
func NewRateLimitedError(instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:     ErrorTypeRateLimited,
		Title:    "Too Many Requests",
		Status:   http.StatusTooManyRequests,
		Detail:   "Rate limit exceeded. Please try again later.",
		Instance: instance,
	}
}

// RespondWithError writes a problem details response.
func RespondWithError(c *gin.Context, p *ProblemDetails) {
	c.Header("Content-Type", "application/problem+json")
	c.JSON(p.Status, p)
}
