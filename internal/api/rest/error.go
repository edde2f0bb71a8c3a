package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-vesting/internal/domain"
	"github.com/feral-file/ff-vesting/internal/logger"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Client errors (4xx)
	errCodeBadRequest       ErrorCode = "bad_request"
	errCodeValidationFailed ErrorCode = "validation_failed"
	errCodeOrderViolation   ErrorCode = "order_violation"
	errCodeWindowViolation  ErrorCode = "window_violation"

	// Server errors (5xx)
	errCodeInternalError   ErrorCode = "internal_error"
	errCodeTransferFailure ErrorCode = "transfer_failure"
)

// errorResponse represents a standardized error response
type errorResponse struct {
	Error errorDetail `json:"error"`
}

// errorDetail contains error information
type errorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// respondWithError sends a standardized error response
func respondWithError(c *gin.Context, statusCode int, code ErrorCode, message string, details ...string) {
	response := errorResponse{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	}

	if len(details) > 0 {
		response.Error.Details = details[0]
	}

	c.JSON(statusCode, response)
}

// respondValidationError sends a 400 Bad Request with validation error
func respondValidationError(c *gin.Context, details string) {
	respondWithError(c, http.StatusBadRequest, errCodeValidationFailed, "Validation failed", details)
}

// respondInternalError sends a 500 Internal Server Error response and logs the error
func respondInternalError(c *gin.Context, err error, message string, fields ...zap.Field) {
	logger.Error(err, fields...)
	respondWithError(c, http.StatusInternalServerError, errCodeInternalError, message)
}

// respondDomainError maps the ledger error taxonomy to HTTP status codes
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		respondWithError(c, http.StatusBadRequest, errCodeBadRequest, "Invalid argument", err.Error())
	case errors.Is(err, domain.ErrOrderViolation):
		respondWithError(c, http.StatusConflict, errCodeOrderViolation, "Schedule order violation", err.Error())
	case errors.Is(err, domain.ErrWindowViolation):
		respondWithError(c, http.StatusBadRequest, errCodeWindowViolation, "Release window violation", err.Error())
	case errors.Is(err, domain.ErrTransferFailure):
		respondWithError(c, http.StatusBadGateway, errCodeTransferFailure, "Token transfer failed", err.Error())
	default:
		respondInternalError(c, err, "Internal error")
	}
}
