package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"parsemill/internal/domain"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondAccepted sends a 202 success response.
func RespondAccepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, APIResponse{Success: true, Data: data})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	var allFailed *domain.AllStrategiesFailedError
	if errors.As(err, &allFailed) {
		return http.StatusUnprocessableEntity, "ALL_STRATEGIES_FAILED", allFailed.Error()
	}

	switch {
	case errors.Is(err, domain.ErrFileNotFound):
		return http.StatusNotFound, "FILE_NOT_FOUND", "file does not exist"
	case errors.Is(err, domain.ErrFileUnreadable):
		return http.StatusBadRequest, "FILE_UNREADABLE", "file is not readable"
	case errors.Is(err, domain.ErrNoStrategies):
		return http.StatusServiceUnavailable, "NO_STRATEGIES", "no parsing strategies are registered"
	case errors.Is(err, domain.ErrUnknownStrategy):
		return http.StatusBadRequest, "UNKNOWN_STRATEGY", "strategy is not registered"
	case errors.Is(err, domain.ErrInvalidCriteria):
		return http.StatusBadRequest, "INVALID_CRITERIA", "invalid selection criteria; allowed: speed, memory, quality, balanced"
	case errors.Is(err, domain.ErrInvalidPriority):
		return http.StatusBadRequest, "INVALID_PRIORITY", "invalid priority; allowed: low, normal, high, critical"
	case errors.Is(err, domain.ErrResourceDenied):
		return http.StatusTooManyRequests, "RESOURCE_DENIED", "server is under memory pressure; retry later"
	case errors.Is(err, domain.ErrArchiveDisabled):
		return http.StatusNotImplemented, "ARCHIVE_DISABLED", "run archive is disabled"
	case errors.Is(err, domain.ErrCacheClosed):
		return http.StatusServiceUnavailable, "CACHE_CLOSED", "result cache is shut down"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		requestID, _ := c.Get("request_id")
		log.Printf("[%s] internal error: %v", requestID, err)
	}
	RespondError(c, status, code, msg)
}
