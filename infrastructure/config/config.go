// Package config loads application configuration from environment
// variables, optionally layered over YAML or JSON files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment names
const (
	Development = "development"
	Staging     = "staging"
	Production  = "production"
)

// Cache providers
const (
	CacheProviderMemory = "memory"
	CacheProviderRedis  = "redis"
	CacheProviderNone   = "none"
)

// Store providers
const (
	StoreProviderMemory   = "memory"
	StoreProviderDynamoDB = "dynamodb"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address" json:"server_address"`
	Environment   string `yaml:"environment" json:"environment"`
	ConfigDir     string `yaml:"-" json:"-"`

	// AWS configuration
	AWSRegion string `yaml:"aws_region" json:"aws_region"`

	// Logging
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Feature flags
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing"`
	EnableCORS    bool `yaml:"enable_cors" json:"enable_cors"`

	OTLPEndpoint       string   `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" json:"cors_allowed_origins"`

	Store StoreConfig `yaml:"store" json:"store"`
	Cache CacheConfig `yaml:"cache" json:"cache"`
}

// StoreConfig selects and configures the backing store.
type StoreConfig struct {
	Provider         string `yaml:"provider" json:"provider"`
	TableName        string `yaml:"table_name" json:"table_name"`
	OrderNumberIndex string `yaml:"order_number_index" json:"order_number_index"`
	CustomerIndex    string `yaml:"customer_index" json:"customer_index"`
}

// CacheConfig selects and configures the repository cache.
type CacheConfig struct {
	Provider      string        `yaml:"provider" json:"provider"`
	TTL           time.Duration `yaml:"ttl" json:"ttl"`
	RelationsTTL  time.Duration `yaml:"relations_ttl" json:"relations_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval" json:"sweep_interval"`
	MaxItems      int           `yaml:"max_items" json:"max_items"`
	MaxMemory     int64         `yaml:"max_memory" json:"max_memory"`
	PopulateGuard bool          `yaml:"populate_guard" json:"populate_guard"`

	Redis   RedisConfig   `yaml:"redis" json:"redis"`
	Breaker BreakerConfig `yaml:"breaker" json:"breaker"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	Prefix   string `yaml:"prefix" json:"prefix"`
}

// BreakerConfig tunes the circuit breaker in front of an external cache.
type BreakerConfig struct {
	Enabled          bool          `yaml:"enabled" json:"enabled"`
	FailureThreshold float64       `yaml:"failure_threshold" json:"failure_threshold"`
	MinRequests      uint32        `yaml:"min_requests" json:"min_requests"`
	Timeout          time.Duration `yaml:"timeout" json:"timeout"`
}

// Defaults returns the configuration used before any source is applied.
func Defaults() *Config {
	return &Config{
		ServerAddress: ":8080",
		Environment:   Development,
		ConfigDir:     "config",
		AWSRegion:     "us-east-1",
		LogLevel:      "info",
		EnableCORS:    true,
		Store: StoreConfig{
			Provider:         StoreProviderMemory,
			TableName:        "filing-orders",
			OrderNumberIndex: "OrderNumberIndex",
			CustomerIndex:    "CustomerIndex",
		},
		Cache: CacheConfig{
			Provider:      CacheProviderMemory,
			TTL:           60 * time.Second,
			RelationsTTL:  30 * time.Second,
			SweepInterval: 60 * time.Second,
			PopulateGuard: true,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "filing",
			},
			Breaker: BreakerConfig{
				Enabled:          true,
				FailureThreshold: 0.5,
				MinRequests:      5,
				Timeout:          10 * time.Second,
			},
		},
	}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := Defaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables; unset variables keep the
// current value.
func (c *Config) applyEnv() {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.ConfigDir = getEnv("CONFIG_DIR", c.ConfigDir)
	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.EnableCORS = getEnvBool("ENABLE_CORS", c.EnableCORS)
	c.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTLPEndpoint)
	c.CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", c.CORSAllowedOrigins)

	c.Store.Provider = getEnv("STORE_PROVIDER", c.Store.Provider)
	c.Store.TableName = getEnv("TABLE_NAME", c.Store.TableName)
	c.Store.OrderNumberIndex = getEnv("ORDER_NUMBER_INDEX", c.Store.OrderNumberIndex)
	c.Store.CustomerIndex = getEnv("CUSTOMER_INDEX", c.Store.CustomerIndex)

	c.Cache.Provider = getEnv("CACHE_PROVIDER", c.Cache.Provider)
	c.Cache.TTL = getEnvDuration("CACHE_TTL", c.Cache.TTL)
	c.Cache.RelationsTTL = getEnvDuration("CACHE_RELATIONS_TTL", c.Cache.RelationsTTL)
	c.Cache.SweepInterval = getEnvDuration("CACHE_SWEEP_INTERVAL", c.Cache.SweepInterval)
	c.Cache.MaxItems = getEnvInt("CACHE_MAX_ITEMS", c.Cache.MaxItems)
	c.Cache.MaxMemory = int64(getEnvInt("CACHE_MAX_MEMORY", int(c.Cache.MaxMemory)))
	c.Cache.PopulateGuard = getEnvBool("CACHE_POPULATE_GUARD", c.Cache.PopulateGuard)

	c.Cache.Redis.Addr = getEnv("REDIS_ADDR", c.Cache.Redis.Addr)
	c.Cache.Redis.Password = getEnv("REDIS_PASSWORD", c.Cache.Redis.Password)
	c.Cache.Redis.DB = getEnvInt("REDIS_DB", c.Cache.Redis.DB)
	c.Cache.Redis.Prefix = getEnv("REDIS_PREFIX", c.Cache.Redis.Prefix)

	c.Cache.Breaker.Enabled = getEnvBool("CACHE_BREAKER_ENABLED", c.Cache.Breaker.Enabled)
	c.Cache.Breaker.FailureThreshold = getEnvFloat("CACHE_BREAKER_FAILURE_THRESHOLD", c.Cache.Breaker.FailureThreshold)
	c.Cache.Breaker.MinRequests = uint32(getEnvInt("CACHE_BREAKER_MIN_REQUESTS", int(c.Cache.Breaker.MinRequests)))
	c.Cache.Breaker.Timeout = getEnvDuration("CACHE_BREAKER_TIMEOUT", c.Cache.Breaker.Timeout)
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.Cache.Provider {
	case CacheProviderMemory, CacheProviderNone:
	case CacheProviderRedis:
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required when CACHE_PROVIDER=redis")
		}
	default:
		return fmt.Errorf("unknown cache provider %q", c.Cache.Provider)
	}

	switch c.Store.Provider {
	case StoreProviderMemory:
	case StoreProviderDynamoDB:
		if c.Store.TableName == "" {
			return fmt.Errorf("TABLE_NAME is required when STORE_PROVIDER=dynamodb")
		}
	default:
		return fmt.Errorf("unknown store provider %q", c.Store.Provider)
	}

	if c.Cache.TTL < 0 || c.Cache.RelationsTTL < 0 || c.Cache.SweepInterval < 0 {
		return fmt.Errorf("cache durations must not be negative")
	}
	if c.Cache.MaxItems < 0 || c.Cache.MaxMemory < 0 {
		return fmt.Errorf("cache bounds must not be negative")
	}
	if t := c.Cache.Breaker.FailureThreshold; t < 0 || t > 1 {
		return fmt.Errorf("CACHE_BREAKER_FAILURE_THRESHOLD must be between 0 and 1")
	}

	if c.IsProduction() && c.Store.Provider == StoreProviderMemory {
		return fmt.Errorf("STORE_PROVIDER=memory is not allowed in production")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or bare seconds ("90").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
