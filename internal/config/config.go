package config

import (
	"fmt"     // Error formatting
	"math"    // Uncapped fee default
	"strings" // String manipulation
	"time"    // Durations

	"github.com/joho/godotenv"      // For loading .env files
	"github.com/shopspring/decimal" // Fee rate validation
	"github.com/spf13/viper"        // Environment-backed configuration with defaults
)

// Supported database drivers
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds the application configuration
type Config struct {
	AppPort  string // Application port
	IsProd   bool   // Is production environment
	LogLevel string // Logrus level name

	DBDriver       string // mysql, postgres or sqlite
	DBUser         string // Database user
	DBPassword     string // Database password
	DBHost         string // Database host
	DBPort         string // Database port
	DBName         string // Database name
	DBPath         string // SQLite file path
	DBMaxOpenConns int    // Connection pool size
	DBMaxIdleConns int    // Idle connections kept in the pool

	JWTSecret string // JWT secret key

	RedisAddr string        // Redis server address, empty disables caching
	RedisPass string        // Redis password
	RedisDB   int           // Redis database number
	CacheTTL  time.Duration // Read cache lifetime

	DefaultCurrency string        // Currency assigned to new wallets
	FeeRate         string        // Platform fee rate as a decimal fraction
	FeeMin          int64         // Lower fee clamp in minor units
	FeeMax          int64         // Upper fee clamp in minor units, unset means uncapped, 0 waives the fee
	OverdraftLimit  int64         // How far below zero a debit may take a wallet
	OpTimeout       time.Duration // Upper bound for one ledger operation
	MaxRetries      int           // Retries on deadlocks and serialization failures
	RetryBackoff    time.Duration // Base delay between retries

	TestFundingEnabled      bool  // Allow the test-fund endpoint
	TestFundAmount          int64 // Amount credited by test funding
	ProvisioningConcurrency int   // Parallel wallet creations during bulk runs

	KafkaEnabled bool     // Publish ledger events to Kafka
	KafkaBrokers []string // Kafka bootstrap brokers
	KafkaTopic   string   // Topic for ledger events
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	isProd := v.GetBool("IS_PROD")
	if !v.IsSet("TEST_FUNDING_ENABLED") {
		v.Set("TEST_FUNDING_ENABLED", !isProd) // Off in production unless explicitly enabled
	}

	return &Config{
		AppPort:  v.GetString("APP_PORT"),
		IsProd:   isProd,
		LogLevel: v.GetString("LOG_LEVEL"),

		DBDriver:       strings.ToLower(v.GetString("DB_DRIVER")),
		DBUser:         v.GetString("DB_USER"),
		DBPassword:     v.GetString("DB_PASSWORD"),
		DBHost:         v.GetString("DB_HOST"),
		DBPort:         v.GetString("DB_PORT"),
		DBName:         v.GetString("DB_NAME"),
		DBPath:         v.GetString("DB_PATH"),
		DBMaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		DBMaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),

		JWTSecret: v.GetString("JWT_SECRET"),

		RedisAddr: v.GetString("REDIS_ADDR"),
		RedisPass: v.GetString("REDIS_PASS"),
		RedisDB:   v.GetInt("REDIS_DB"),
		CacheTTL:  v.GetDuration("CACHE_TTL"),

		DefaultCurrency: strings.ToUpper(v.GetString("DEFAULT_CURRENCY")),
		FeeRate:         v.GetString("FEE_RATE"),
		FeeMin:          v.GetInt64("FEE_MIN"),
		FeeMax:          v.GetInt64("FEE_MAX"),
		OverdraftLimit:  v.GetInt64("OVERDRAFT_LIMIT"),
		OpTimeout:       v.GetDuration("OP_TIMEOUT"),
		MaxRetries:      v.GetInt("MAX_RETRIES"),
		RetryBackoff:    v.GetDuration("RETRY_BACKOFF"),

		TestFundingEnabled:      v.GetBool("TEST_FUNDING_ENABLED"),
		TestFundAmount:          v.GetInt64("TEST_FUND_AMOUNT"),
		ProvisioningConcurrency: v.GetInt("PROVISIONING_CONCURRENCY"),

		KafkaEnabled: v.GetBool("KAFKA_ENABLED"),
		KafkaBrokers: splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:   v.GetString("KAFKA_TOPIC"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("IS_PROD", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_DRIVER", DriverMySQL)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_PATH", "wallet_ledger.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 50)
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL", 30*time.Second)
	v.SetDefault("DEFAULT_CURRENCY", "XOF")
	v.SetDefault("FEE_RATE", "0.175")
	v.SetDefault("FEE_MIN", 0)
	v.SetDefault("FEE_MAX", int64(math.MaxInt64)) // Uncapped unless set
	v.SetDefault("OVERDRAFT_LIMIT", 0)
	v.SetDefault("OP_TIMEOUT", 5*time.Second)
	v.SetDefault("MAX_RETRIES", 3)
	v.SetDefault("RETRY_BACKOFF", 20*time.Millisecond)
	v.SetDefault("TEST_FUND_AMOUNT", 100000)
	v.SetDefault("PROVISIONING_CONCURRENCY", 8)
	v.SetDefault("KAFKA_ENABLED", false)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_TOPIC", "wallet-ledger-events")
}

// Validate rejects settings the service cannot start with
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	rate, err := decimal.NewFromString(c.FeeRate)
	if err != nil {
		return fmt.Errorf("invalid FEE_RATE %q: %w", c.FeeRate, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("FEE_RATE %s outside [0,1]", c.FeeRate)
	}
	if c.FeeMin < 0 || c.FeeMax < c.FeeMin {
		return fmt.Errorf("FEE_MIN %d and FEE_MAX %d must satisfy 0 <= min <= max", c.FeeMin, c.FeeMax)
	}
	if c.OverdraftLimit < 0 {
		return fmt.Errorf("OVERDRAFT_LIMIT must not be negative")
	}
	if c.IsProd && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
