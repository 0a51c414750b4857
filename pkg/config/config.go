package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External providers
	IEX      IEXConfig
	Yahoo    YahooConfig
	Universe UniverseConfig

	// Strategy / portfolio runtime
	StrategyFile string
	Portfolio    PortfolioConfig
	Scheduler    SchedulerConfig

	// Logging
	LogLevel  string
	LogFormat string
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

// IEXConfig holds IEX Cloud configuration.
// Sandbox selects both the base URL and the token that goes with it.
type IEXConfig struct {
	Sandbox        bool
	Token          string
	SandboxToken   string
	BaseURL        string
	SandboxBaseURL string
	Timeout        time.Duration
}

// ActiveBaseURL returns the base URL for the selected environment
func (c IEXConfig) ActiveBaseURL() string {
	if c.Sandbox {
		return c.SandboxBaseURL
	}
	return c.BaseURL
}

// ActiveToken returns the token for the selected environment
func (c IEXConfig) ActiveToken() string {
	if c.Sandbox {
		return c.SandboxToken
	}
	return c.Token
}

// YahooConfig holds the fundamentals provider configuration
type YahooConfig struct {
	BaseURL   string
	RateLimit int // requests per second
}

// UniverseConfig holds the index constituent source
type UniverseConfig struct {
	URL      string
	CacheTTL time.Duration // Redis TTL for the validated list, 0 = no cache
}

// PortfolioConfig holds runtime settings for portfolio operations
type PortfolioConfig struct {
	OperationTimeout time.Duration
	FetchWorkers     int
	InitialValue     decimal.Decimal
}

// SchedulerConfig holds cron expressions (with seconds field)
type SchedulerConfig struct {
	UpdateSpec    string
	RebalanceSpec string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		IEX: IEXConfig{
			Sandbox:        getEnvAsBool("IEX_SANDBOX", true),
			Token:          getEnv("IEX_TOKEN", ""),
			SandboxToken:   getEnv("IEX_SANDBOX_TOKEN", ""),
			BaseURL:        getEnv("IEX_BASE_URL", "https://cloud.iexapis.com/v1"),
			SandboxBaseURL: getEnv("IEX_SANDBOX_BASE_URL", "https://sandbox.iexapis.com/stable"),
			Timeout:        getEnvAsDuration("IEX_TIMEOUT", "30s"),
		},

		Yahoo: YahooConfig{
			BaseURL:   getEnv("YAHOO_BASE_URL", "https://query2.finance.yahoo.com"),
			RateLimit: getEnvAsInt("YAHOO_RATE_LIMIT", 5),
		},

		Universe: UniverseConfig{
			URL:      getEnv("UNIVERSE_URL", "https://www.slickcharts.com/sp500"),
			CacheTTL: getEnvAsDuration("UNIVERSE_CACHE_TTL", "5m"),
		},

		StrategyFile: getEnv("STRATEGY_FILE", ""),

		Portfolio: PortfolioConfig{
			OperationTimeout: getEnvAsDuration("PORTFOLIO_OP_TIMEOUT", "5m"),
			FetchWorkers:     getEnvAsInt("FETCH_WORKERS", runtime.NumCPU()),
			InitialValue:     getEnvAsDecimal("PORTFOLIO_INITIAL_VALUE", "100000"),
		},

		Scheduler: SchedulerConfig{
			UpdateSpec:    getEnv("SCHEDULE_UPDATE", "0 30 16 * * 1-5"),
			RebalanceSpec: getEnv("SCHEDULE_REBALANCE", "0 0 17 1 * *"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	// Tokens from the secrets file win over the environment
	secretsPath := getEnv("SECRETS_FILE", "secrets.json")
	if err := applySecretsFile(&cfg.IEX, secretsPath); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Portfolio.FetchWorkers < 1 {
		return fmt.Errorf("FETCH_WORKERS must be at least 1")
	}

	if !c.Portfolio.InitialValue.IsPositive() {
		return fmt.Errorf("PORTFOLIO_INITIAL_VALUE must be positive")
	}

	return nil
}

// secrets mirrors the keys accepted in the local secrets file
type secrets struct {
	IEXToken        string `json:"IEX_TOKEN"`
	IEXSandboxToken string `json:"IEX_SANDBOX_TOKEN"`
}

// applySecretsFile overlays provider tokens from a JSON file.
// A missing file is not an error; a malformed one is.
func applySecretsFile(iex *IEXConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read secrets file %s: %w", path, err)
	}

	var s secrets
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("parse secrets file %s: %w", path, err)
	}

	if s.IEXToken != "" {
		iex.Token = s.IEXToken
	}
	if s.IEXSandboxToken != "" {
		iex.SandboxToken = s.IEXSandboxToken
	}
	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

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

func getEnvAsDecimal(key string, defaultValue string) decimal.Decimal {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		value, _ = decimal.NewFromString(defaultValue)
	}

	return value
}
