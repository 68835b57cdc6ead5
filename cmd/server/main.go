package main

import (
	"context"   // context package is needed for Redis operations and shutdown
	"errors"    // Error matching on server close
	"net/http"  // HTTP server
	"os"        // Signal plumbing
	"os/signal" // Graceful shutdown
	"syscall"   // Termination signals
	"time"      // Shutdown timeout

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging

	"wallet_ledger/internal/api"          // HTTP handlers
	"wallet_ledger/internal/config"       // Configuration
	"wallet_ledger/internal/db"           // Database connection
	"wallet_ledger/internal/directory"    // User and delivery lookups
	"wallet_ledger/internal/events"       // Ledger event publishing
	"wallet_ledger/internal/fee"          // Platform fee
	"wallet_ledger/internal/provisioning" // Bulk provisioning
	"wallet_ledger/internal/query"        // Ledger reads
	"wallet_ledger/internal/settlement"   // Delivery settlement
	"wallet_ledger/internal/store"        // Wallet store
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	// Connect to the database
	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}
	if cfg.DBDriver == config.DriverSQLite {
		// SQLite is used for local runs, where a separate migrate step is a chore
		if err := db.Migrate(gdb); err != nil {
			logrus.Fatalf("failed to migrate: %v", err)
		}
	}
	sqlxDB, err := db.SQLX(gdb)
	if err != nil {
		logrus.Fatalf("failed to wrap DB: %v", err)
	}

	// Setup Redis client, optional
	var redisClient redis.UniversalClient
	if cfg.RedisAddr != "" {
		redisClient = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.RedisAddr}, // Redis server address
			Password: cfg.RedisPass,           // Redis password
			DB:       cfg.RedisDB,             // Redis database number
		})
		// Test Redis connection
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logrus.Fatalf("failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logrus.Warn("REDIS_ADDR not set, read cache disabled")
	}

	// Setup the event publisher
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.KafkaEnabled {
		kp, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			logrus.Fatalf("failed to connect to Kafka: %v", err)
		}
		publisher = kp
	}
	defer publisher.Close()

	fees, err := fee.NewCalculator(cfg.FeeRate, cfg.FeeMin, cfg.FeeMax)
	if err != nil {
		logrus.Fatalf("invalid fee configuration: %v", err)
	}

	ledger := store.New(gdb, store.Options{
		Currency:       cfg.DefaultCurrency,
		OverdraftLimit: cfg.OverdraftLimit,
		OpTimeout:      cfg.OpTimeout,
		MaxRetries:     cfg.MaxRetries,
		RetryBackoff:   cfg.RetryBackoff,
		Publisher:      publisher,
	})
	dir := directory.NewSQLDirectory(sqlxDB)
	reads := query.NewService(ledger, redisClient, cfg.CacheTTL, ledger.Currency())
	payments := settlement.NewOrchestrator(dir, dir, ledger, fees)
	prov := provisioning.NewService(dir, ledger, reads, provisioning.Config{
		Concurrency:        cfg.ProvisioningConcurrency,
		TestFundingEnabled: cfg.TestFundingEnabled,
		TestFundAmount:     cfg.TestFundAmount,
	})

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	r := api.NewRouter(api.Deps{
		DB:           gdb,
		Ledger:       ledger,
		Reads:        reads,
		Payments:     payments,
		Provisioning: prov,
		Users:        dir,
		Redis:        redisClient,
		JWTSecret:    cfg.JWTSecret,
		CacheTTL:     cfg.CacheTTL,
	})
	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logrus.WithFields(logrus.Fields{
			"port":      cfg.AppPort,            // Listen port
			"driver":    cfg.DBDriver,           // Database driver
			"fee_rate":  fees.Percentage(),      // Platform fee
			"test_fund": cfg.TestFundingEnabled, // Test funding switch
			"kafka":     cfg.KafkaEnabled,       // Event publishing switch
		}).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("server forced to shutdown: %v", err)
	}
}
