package api

import (
	"errors"   // Error matching
	"io"       // Empty body detection
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework

	"wallet_ledger/internal/domain"       // Ledger error kinds
	"wallet_ledger/internal/provisioning" // Bulk wallet provisioning
)

// TestFundRequest optionally narrows test funding to one user
type TestFundRequest struct {
	UserID uint  `json:"userId"` // Fund only this user when set
	Amount int64 `json:"amount"` // Defaults to the configured amount
}

// InitWalletsHandler opens a wallet for every user that lacks one
func InitWalletsHandler(prov *provisioning.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := prov.InitializeAllWallets(c.Request.Context())
		if err != nil {
			respondError(c, "init_wallets", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":    "Wallet initialization completed", // Human-readable outcome
			"totalUsers": report.TotalUsers,                 // Users visited
			"successful": report.Successful,                 // Wallets ensured
			"failed":     report.Failed,                     // Users that failed
			"results":    report.Results,                    // Per-user outcome
		})
	}
}

// TestFundHandler seeds balances for testing, for one user or for everyone
func TestFundHandler(prov *provisioning.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !prov.TestFundingEnabled() {
			respondError(c, "test_fund", domain.ErrTestFundingDisabled)
			return
		}
		var req TestFundRequest // The body is optional
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			respondBindError(c, err)
			return
		}
		if req.UserID != 0 {
			res, err := prov.FundForTesting(c.Request.Context(), req.UserID, req.Amount)
			if err != nil {
				respondError(c, "test_fund", err)
				return
			}
			// Same shape as a bulk run over a single user
			result := domain.ProvisioningResult{UserID: req.UserID, Wallet: res.Wallet.Summary()}
			c.JSON(http.StatusOK, gin.H{
				"message":     "Test funding completed",            // Human-readable outcome
				"totalUsers":  1,                                   // Users visited
				"successful":  1,                                   // Wallets funded
				"failed":      0,                                   // Users that failed
				"fundAmount":  res.Transaction.Amount,              // Amount credited
				"results":     []domain.ProvisioningResult{result}, // Per-user outcome
				"transaction": res.Transaction,                     // Bonus entry
			})
			return
		}
		report, err := prov.FundAllForTesting(c.Request.Context())
		if err != nil {
			respondError(c, "test_fund", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":    "Test funding completed", // Human-readable outcome
			"totalUsers": report.TotalUsers,        // Users visited
			"successful": report.Successful,        // Wallets funded
			"failed":     report.Failed,            // Users that failed
			"fundAmount": report.FundAmount,        // Amount credited to each
			"results":    report.Results,           // Per-user outcome
		})
	}
}
