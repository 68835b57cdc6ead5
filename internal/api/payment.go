package api

import (
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework

	"wallet_ledger/internal/directory"  // User lookups
	"wallet_ledger/internal/middleware" // Caller identity and role
	"wallet_ledger/internal/query"      // Cache invalidation
	"wallet_ledger/internal/settlement" // Delivery settlement
)

// DeliveryPaymentHandler settles a delivery between its two parties. Only the
// payer or an admin may settle.
func DeliveryPaymentHandler(payments *settlement.Orchestrator, users directory.UserReader, reads *query.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		callerID, ok := middleware.UserID(c) // Get userID from context
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req settlement.PaymentRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		if !middleware.IsAdmin(c, users) {
			req.ActorID = callerID // Non-admins pay only for themselves
		}
		res, err := payments.PayForDelivery(c.Request.Context(), req)
		if err != nil {
			respondError(c, "delivery_payment", err)
			return
		}
		reads.Invalidate(c.Request.Context(), res.PayerID, res.RecipientID) // Both balances moved
		c.JSON(http.StatusOK, res)
	}
}
