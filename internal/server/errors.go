package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	creditdomain "github.com/songsmith/songsmith/internal/credit/domain"
	mergedomain "github.com/songsmith/songsmith/internal/merge/domain"
	songdomain "github.com/songsmith/songsmith/internal/song/domain"
	usagedomain "github.com/songsmith/songsmith/internal/usage/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

// ErrorHandlingMiddleware converts collected handler errors into JSON
// responses. Store failures map to 503 so clients can tell a transient
// outage apart from a payment-required denial.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case err == nil:
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case errors.Is(err, ErrNotFound),
		errors.Is(err, creditdomain.ErrTransactionMissing),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, creditdomain.ErrInvariantViolation):
		return http.StatusInternalServerError, errorPayload{
			Type:    "invariant_violation",
			Message: "internal server error",
		}
	default:
		// Store or upstream failure: retryable, never treated as allowed.
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, usagedomain.ErrInvalidIdentity),
		errors.Is(err, usagedomain.ErrInvalidCount),
		errors.Is(err, mergedomain.ErrAccountRequired),
		errors.Is(err, songdomain.ErrInvalidTitle),
		errors.Is(err, songdomain.ErrInvalidIdentity),
		errors.Is(err, creditdomain.ErrInvalidProvider),
		errors.Is(err, creditdomain.ErrInvalidProviderTx),
		errors.Is(err, creditdomain.ErrInvalidOwnerRef),
		errors.Is(err, creditdomain.ErrInvalidCredits),
		errors.Is(err, creditdomain.ErrInvalidPayload):
		return true
	default:
		return false
	}
}
