package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External APIs
	TInvest    TInvestConfig
	CBR        CBRConfig
	Yahoo      YahooConfig
	MLForecast MLForecastConfig

	// Domain
	Portfolio PortfolioConfig
	Universe  UniverseConfig
	Scheduler SchedulerConfig
	Collector CollectorConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	MetricsPort    string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// TInvestConfig holds T-Invest REST API configuration
type TInvestConfig struct {
	Token      string
	BaseURL    string
	SandboxURL string
	Sandbox    bool // consensus forecasts are read from the sandbox host
	RPS        int  // client-side requests per second
	ClassCode  string
}

// CBRConfig holds Central Bank of Russia FX feed configuration
type CBRConfig struct {
	URL string
}

// YahooConfig holds Yahoo Finance chart API configuration
type YahooConfig struct {
	BaseURL string
}

// MLForecastConfig holds the price forecasting service configuration
type MLForecastConfig struct {
	BaseURL string
	Enabled bool
}

// Fallback policies applied when the optimizer yields no weights
const (
	FallbackNone    = "none"
	FallbackInitial = "initial"
)

// PortfolioConfig holds request defaults and pipeline parameters
type PortfolioConfig struct {
	MaxShare       float64
	Amount         float64
	RiskLevel      float64
	IncludeCrypto  bool
	RiskFreeRate   float64
	HistoryDays    int
	FallbackPolicy string
}

// UniverseConfig points at the sector universe file
type UniverseConfig struct {
	Path string // empty = embedded default
}

// SchedulerConfig holds cron specs (with seconds)
type SchedulerConfig struct {
	SectorRefreshSpec   string
	PriceCollectionSpec string
	PlanCleanupSpec     string
	PlanRetentionDays   int
}

// CollectorConfig holds history collection settings
type CollectorConfig struct {
	Workers   int
	BatchSize int
}

// Load reads configuration from environment variables
// ⭐ SSOT: the only caller of os.Getenv()
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		// External APIs
		TInvest: TInvestConfig{
			Token:      getEnv("TINVEST_TOKEN", ""),
			BaseURL:    getEnv("TINVEST_BASE_URL", "https://invest-public-api.tinkoff.ru/rest"),
			SandboxURL: getEnv("TINVEST_SANDBOX_URL", "https://sandbox-invest-public-api.tinkoff.ru/rest"),
			Sandbox:    getEnvAsBool("TINVEST_SANDBOX", true),
			RPS:        getEnvAsInt("TINVEST_RPS", 2),
			ClassCode:  getEnv("TINVEST_CLASS_CODE", "TQBR"),
		},

		CBR: CBRConfig{
			URL: getEnv("CBR_URL", "https://www.cbr-xml-daily.ru/daily_json.js"),
		},

		Yahoo: YahooConfig{
			BaseURL: getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
		},

		MLForecast: MLForecastConfig{
			BaseURL: getEnv("ML_FORECAST_URL", "http://localhost:8500"),
			Enabled: getEnvAsBool("ML_FORECAST_ENABLED", true),
		},

		Portfolio: PortfolioConfig{
			MaxShare:       getEnvAsFloat("PORTFOLIO_MAX_SHARE", 0.3),
			Amount:         getEnvAsFloat("PORTFOLIO_AMOUNT", 100000),
			RiskLevel:      getEnvAsFloat("PORTFOLIO_RISK_LEVEL", 1.0),
			IncludeCrypto:  getEnvAsBool("PORTFOLIO_INCLUDE_CRYPTO", false),
			RiskFreeRate:   getEnvAsFloat("PORTFOLIO_RISK_FREE_RATE", 0.02),
			HistoryDays:    getEnvAsInt("PORTFOLIO_HISTORY_DAYS", 365),
			FallbackPolicy: getEnv("PORTFOLIO_FALLBACK_POLICY", FallbackNone),
		},

		Universe: UniverseConfig{
			Path: getEnv("UNIVERSE_PATH", ""),
		},

		Scheduler: SchedulerConfig{
			SectorRefreshSpec:   getEnv("SCHEDULE_SECTOR_REFRESH", "0 */10 * * * *"),
			PriceCollectionSpec: getEnv("SCHEDULE_PRICE_COLLECTION", "0 0 19 * * *"),
			PlanCleanupSpec:     getEnv("SCHEDULE_PLAN_CLEANUP", "0 30 3 * * *"),
			PlanRetentionDays:   getEnvAsInt("PLAN_RETENTION_DAYS", 90),
		},

		Collector: CollectorConfig{
			Workers:   getEnvAsInt("COLLECTOR_WORKERS", 5),
			BatchSize: getEnvAsInt("COLLECTOR_BATCH_SIZE", 1000),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Database URL is required
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Portfolio.FallbackPolicy != FallbackNone && c.Portfolio.FallbackPolicy != FallbackInitial {
		return fmt.Errorf("PORTFOLIO_FALLBACK_POLICY must be one of: %s, %s", FallbackNone, FallbackInitial)
	}

	if c.Portfolio.MaxShare <= 0 || c.Portfolio.MaxShare > 1 {
		return fmt.Errorf("PORTFOLIO_MAX_SHARE must be in (0, 1]")
	}

	if c.Collector.Workers < 1 {
		return fmt.Errorf("COLLECTOR_WORKERS must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
