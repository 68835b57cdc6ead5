package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"strings"  // String manipulation
	"time"     // Time durations

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library

	"wallet_ledger/internal/domain" // Importing domain models
	"wallet_ledger/internal/store"  // Wallet store
	"wallet_ledger/internal/utils"  // Utility functions
)

// UserAdminResponse represents the user data returned to admin
type UserAdminResponse struct {
	ID       uint                  `json:"id"`       // User ID
	Username string                `json:"username"` // Username
	Name     string                `json:"name"`     // Display name
	Email    string                `json:"email"`    // Contact email
	Role     string                `json:"role"`     // User role
	Wallet   *domain.WalletSummary `json:"wallet"`   // Associated wallet, null until opened
}

// UserPage is one page of the user listing
type UserPage struct {
	Users      []UserAdminResponse `json:"users"`       // List of users
	Page       int                 `json:"page"`        // Current page
	PageSize   int                 `json:"page_size"`   // Page size
	Total      int64               `json:"total"`       // Total number of users
	TotalPages int                 `json:"total_pages"` // Total pages
}

// ListUsersHandler returns all users with their wallet info
func ListUsersHandler(db *gorm.DB, rdb redis.UniversalClient, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page, pageSize := 1, 20 // Default paging
		if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
			page = v // Set page if valid
		}
		if v, err := strconv.Atoi(c.Query("page_size")); err == nil && v > 0 && v <= 100 {
			pageSize = v // Set page size
		}
		// Create a cache key based on pagination parameters
		cacheKey := "admin:users:page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(pageSize)

		var cached UserPage
		// If cached data found, return it
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"page": cached, "cached": true})
			return
		}

		resp := UserPage{Page: page, PageSize: pageSize}
		if err := db.WithContext(ctx).Model(&domain.User{}).Count(&resp.Total).Error; err != nil {
			respondError(c, "list_users", err)
			return
		}
		var users []domain.User // Slice to hold users
		// Preload Wallet relation, apply offset and limit for pagination
		if err := db.WithContext(ctx).Preload("Wallet").Order("id").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error; err != nil {
			respondError(c, "list_users", err)
			return
		}
		resp.TotalPages = (int(resp.Total) + pageSize - 1) / pageSize // Calculate total pages
		resp.Users = make([]UserAdminResponse, len(users))
		for i, u := range users {
			resp.Users[i] = UserAdminResponse{ID: u.ID, Username: u.Username, Name: u.Name, Email: u.Email, Role: u.Role}
			if u.Wallet.ID != 0 {
				resp.Users[i].Wallet = u.Wallet.Summary()
			}
		}
		// Cache the response for future requests
		if err := utils.SetCache(ctx, rdb, cacheKey, resp, ttl); err != nil {
			logrus.WithFields(logrus.Fields{"key": cacheKey, "error": err.Error()}).Warn("Cache write failed")
		}
		c.JSON(http.StatusOK, gin.H{"page": resp, "cached": false})
	}
}

// ListTransactionsHandler returns all transactions, with optional filtering by user, type, status, or date
func ListTransactionsHandler(ledger *store.Store, rdb redis.UniversalClient, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		// Build cache key from all query params
		var keyParts []string // Parts of the cache key
		for _, k := range []string{"user_id", "type", "status", "from", "to", "page", "page_size"} {
			keyParts = append(keyParts, k+"="+c.DefaultQuery(k, "")) // Append key-value pair
		}
		cacheKey := "admin:txs:" + strings.Join(keyParts, ":")

		var cached domain.TransactionPage
		// If cached data found, return it
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"page": cached, "cached": true})
			return
		}

		filter := domain.AdminTransactionFilter{
			Type:   domain.TransactionType(c.Query("type")),     // Filter by transaction type
			Status: domain.TransactionStatus(c.Query("status")), // Filter by status
		}
		var err error
		if filter.UserID, err = queryUint(c, "user_id"); err != nil {
			respondBindError(c, err)
			return
		}
		if filter.From, err = queryInt64(c, "from"); err != nil {
			respondBindError(c, err)
			return
		}
		if filter.To, err = queryInt64(c, "to"); err != nil {
			respondBindError(c, err)
			return
		}
		// Malformed paging falls back to the defaults
		filter.Page, _ = strconv.Atoi(c.Query("page"))
		filter.PageSize, _ = strconv.Atoi(c.Query("page_size"))

		page, err := ledger.ListAllTransactions(ctx, filter)
		if err != nil {
			respondError(c, "list_transactions", err)
			return
		}
		// Cache the response for future requests
		if err := utils.SetCache(ctx, rdb, cacheKey, page, ttl); err != nil {
			logrus.WithFields(logrus.Fields{"key": cacheKey, "error": err.Error()}).Warn("Cache write failed")
		}
		c.JSON(http.StatusOK, gin.H{"page": page, "cached": false})
	}
}

// ReconcileHandler compares a wallet's stored balance with its ledger
func ReconcileHandler(ledger *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
		if err != nil || userID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid userId"})
			return
		}
		rec, err := ledger.Reconcile(c.Request.Context(), uint(userID))
		if err != nil {
			respondError(c, "reconcile", err)
			return
		}
		if !rec.Consistent {
			logrus.WithFields(logrus.Fields{
				"user_id":   rec.UserID,   // Wallet owner
				"wallet_id": rec.WalletID, // Drifting wallet
				"drift":     rec.Drift,    // Balance minus ledger sum
				"alert":     "ledger_drift",
			}).Error("Wallet balance drifted from ledger")
		}
		c.JSON(http.StatusOK, rec)
	}
}

// queryUint parses an optional unsigned query parameter
func queryUint(c *gin.Context, key string) (uint, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	return uint(v), err
}

// queryInt64 parses an optional integer query parameter
func queryInt64(c *gin.Context, key string) (int64, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
