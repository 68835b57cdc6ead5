package api

import (
	"time" // Cache lifetimes

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library

	"wallet_ledger/internal/directory"    // User and delivery lookups
	"wallet_ledger/internal/middleware"   // Auth and logging
	"wallet_ledger/internal/provisioning" // Bulk provisioning
	"wallet_ledger/internal/query"        // Ledger reads
	"wallet_ledger/internal/settlement"   // Delivery settlement
	"wallet_ledger/internal/store"        // Wallet store
)

// Deps holds everything the HTTP layer calls into
type Deps struct {
	DB           *gorm.DB
	Ledger       *store.Store
	Reads        *query.Service
	Payments     *settlement.Orchestrator
	Provisioning *provisioning.Service
	Users        directory.UserReader
	Redis        redis.UniversalClient // nil disables caching
	JWTSecret    string
	CacheTTL     time.Duration
}

// NewRouter registers every route
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	// Public routes
	r.POST("/user", RegisterHandler(d.DB, d.Ledger))
	r.POST("/user/login", LoginHandler(d.DB, d.JWTSecret))

	// Authenticated routes
	auth := r.Group("/")
	auth.Use(middleware.JWTAuthMiddleware(d.JWTSecret))
	auth.GET("/wallet", GetWalletHandler(d.Reads, d.Users))
	auth.POST("/deliveries/payment", DeliveryPaymentHandler(d.Payments, d.Users, d.Reads))

	// Admin routes
	admin := auth.Group("/")
	admin.Use(middleware.AdminOnlyMiddleware(d.Users))
	admin.POST("/wallet/credit", CreditHandler(d.Ledger, d.Reads, d.Users))
	admin.POST("/wallet/debit", DebitHandler(d.Ledger, d.Reads, d.Users))
	admin.POST("/provisioning/init", InitWalletsHandler(d.Provisioning))
	admin.POST("/provisioning/test-fund", TestFundHandler(d.Provisioning))
	admin.GET("/admin/users", ListUsersHandler(d.DB, d.Redis, d.CacheTTL))
	admin.GET("/admin/transactions", ListTransactionsHandler(d.Ledger, d.Redis, d.CacheTTL))
	admin.GET("/admin/wallets/:userId/reconcile", ReconcileHandler(d.Ledger))

	return r
}
