package api

import (
	"errors"   // Error matching
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library

	"wallet_ledger/internal/domain" // Ledger error kinds
)

// statusFor maps ledger errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrDeliveryNotFound), errors.Is(err, domain.ErrWalletNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTestFundingDisabled), errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error response. Server-side failures are logged and
// their details are not echoed to the client.
func respondError(c *gin.Context, op string, err error) {
	status := statusFor(err)
	if status < http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	fields := logrus.Fields{
		"op":         op,                       // Operation that failed
		"request_id": c.GetString("requestID"), // Correlation id
		"error":      err.Error(),              // Error message
	}
	if errors.Is(err, domain.ErrInternalConsistency) {
		fields["alert"] = "ledger_consistency" // Page whoever owns the ledger
	}
	logrus.WithFields(fields).Error("Request failed")
	c.JSON(status, gin.H{"error": "Internal server error"})
}

// respondBindError rejects a malformed request body or query
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
}
