package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"github.com/gin-gonic/gin" // Gin web framework

	"wallet_ledger/internal/directory"  // User lookups
	"wallet_ledger/internal/domain"     // Importing domain models
	"wallet_ledger/internal/middleware" // Caller identity
	"wallet_ledger/internal/query"      // Cached ledger reads
	"wallet_ledger/internal/store"      // Wallet store
)

// MutationRequest is the payload for admin credits and debits
type MutationRequest struct {
	UserID      uint        `json:"userId" binding:"required"`      // Target user
	Amount      int64       `json:"amount" binding:"required"`      // Amount in minor units
	Description string      `json:"description" binding:"required"` // Ledger description
	Category    string      `json:"category"`                       // Defaults to General
	ReferenceID *string     `json:"referenceId"`                    // Optional idempotency key
	Metadata    domain.JSON `json:"metadata"`                       // Free-form context
}

// CreditHandler adds funds to a user's wallet
func CreditHandler(ledger *store.Store, reads *query.Service, users directory.UserReader) gin.HandlerFunc {
	return mutationHandler(domain.TypeCredit, ledger, reads, users)
}

// DebitHandler removes funds from a user's wallet
func DebitHandler(ledger *store.Store, reads *query.Service, users directory.UserReader) gin.HandlerFunc {
	return mutationHandler(domain.TypeDebit, ledger, reads, users)
}

func mutationHandler(kind domain.TransactionType, ledger *store.Store, reads *query.Service, users directory.UserReader) gin.HandlerFunc {
	apply := ledger.Credit // Pick the store operation once
	if kind == domain.TypeDebit {
		apply = ledger.Debit
	}
	return func(c *gin.Context) {
		var req MutationRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		// Wallets are only opened for users the directory knows
		if _, err := users.GetUser(c.Request.Context(), req.UserID); err != nil {
			respondError(c, string(kind), err)
			return
		}
		res, err := apply(c.Request.Context(), domain.MutationRequest{
			UserID:      req.UserID,      // Target user
			Amount:      req.Amount,      // Amount in minor units
			Description: req.Description, // Ledger description
			Category:    req.Category,    // Category label
			ReferenceID: req.ReferenceID, // Idempotency key
			Metadata:    req.Metadata,    // Free-form context
		})
		if err != nil {
			respondError(c, string(kind), err)
			return
		}
		reads.Invalidate(c.Request.Context(), req.UserID) // Drop cached views of this wallet
		c.JSON(http.StatusOK, res)
	}
}

// GetWalletHandler returns a wallet's statistics and recent history. Callers
// see their own wallet; admins may name another user by id or contact.
func GetWalletHandler(reads *query.Service, users directory.UserReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		callerID, ok := middleware.UserID(c) // Get userID from context
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		targetID := callerID // Default to the caller's own wallet
		if raw := c.Query("userId"); raw != "" {
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil || id == 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid userId"})
				return
			}
			targetID = uint(id)
		} else if contact := c.Query("userContact"); contact != "" {
			user, err := users.FindByContact(c.Request.Context(), contact)
			if err != nil {
				respondError(c, "get_wallet", err)
				return
			}
			targetID = user.ID
		}
		if targetID != callerID && !middleware.IsAdmin(c, users) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Cannot view another user's wallet"})
			return
		}
		filter, err := transactionFilter(c)
		if err != nil {
			respondBindError(c, err)
			return
		}
		overview, err := reads.GetWalletOverview(c.Request.Context(), targetID, filter)
		if err != nil {
			respondError(c, "get_wallet", err)
			return
		}
		c.JSON(http.StatusOK, overview)
	}
}

// transactionFilter reads the history filters from the query string
func transactionFilter(c *gin.Context) (domain.TransactionFilter, error) {
	filter := domain.TransactionFilter{
		Type:   domain.TransactionType(c.Query("type")),     // Optional type filter
		Status: domain.TransactionStatus(c.Query("status")), // Optional status filter
	}
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return filter, err
		}
		filter.Limit = v
	}
	if raw := c.Query("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return filter, err
		}
		filter.Offset = v
	}
	return filter, nil
}
