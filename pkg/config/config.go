package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bizflow/bizgate/pkg/observability"
	"github.com/bizflow/bizgate/pkg/storage/postgres"
	"github.com/bizflow/bizgate/pkg/subscription"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Auth          AuthConfig
	Subscription  SubscriptionConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// Addr returns the API listen address
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// HealthAddr returns the health and metrics listen address
func (s ServerConfig) HealthAddr() string {
	return s.Host + ":" + s.HealthPort
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL         string
	ReplicaURLs []string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
}

// Connection converts to the connection manager config
func (d DatabaseConfig) Connection() postgres.ConnectionConfig {
	return postgres.ConnectionConfig{
		PrimaryURL:  d.URL,
		ReplicaURLs: d.ReplicaURLs,
		MaxConns:    d.MaxConns,
		MinConns:    d.MinConns,
		Timeout:     d.Timeout,
		MaxLifetime: d.MaxLifetime,
	}
}

// RedisConfig holds Redis settings. An empty URL disables change
// notifications and the shared rate limiter.
type RedisConfig struct {
	URL        string
	Password   string
	DB         int
	MaxRetries int
	PoolSize   int
}

// Enabled reports whether a Redis URL is configured
func (r RedisConfig) Enabled() bool {
	return r.URL != ""
}

// Client converts to the Redis client config
func (r RedisConfig) Client() postgres.RedisConfig {
	return postgres.RedisConfig{
		URL:        r.URL,
		Password:   r.Password,
		DB:         r.DB,
		MaxRetries: r.MaxRetries,
		PoolSize:   r.PoolSize,
	}
}

// AuthConfig holds access token and super admin settings
type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTLeeway   time.Duration
	SuperAdmins []string
}

// SubscriptionConfig holds session cache, credit and notification settings
type SubscriptionConfig struct {
	CreditGrant        int
	SessionCacheSize   int
	SessionTTL         time.Duration
	SessionLoadTimeout time.Duration
	RefreshConcurrency int
	ChangeChannel      string

	DeductRateLimit  int
	DeductRateWindow time.Duration

	TenantCacheSize int
	TenantCacheTTL  time.Duration
}

// Sessions converts to the session cache config
func (s SubscriptionConfig) Sessions() subscription.SessionsConfig {
	return subscription.SessionsConfig{
		Size:               s.SessionCacheSize,
		TTL:                s.SessionTTL,
		RefreshConcurrency: s.RefreshConcurrency,
		LoadTimeout:        s.SessionLoadTimeout,
	}
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel  observability.LogLevel
	LogFormat observability.LogFormat

	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// OTel converts to the OpenTelemetry config
func (o ObservabilityConfig) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        o.OTelEnabled,
		Endpoint:       o.OTelEndpoint,
		ServiceName:    o.OTelServiceName,
		ServiceVersion: o.OTelServiceVersion,
		Insecure:       o.OTelInsecure,
	}
}

// NewLogger builds the process logger
func (o ObservabilityConfig) NewLogger() *observability.Logger {
	return observability.NewLoggerWithFormat(o.LogLevel, o.LogFormat, os.Stdout)
}

// LoadConfig loads and validates the API server configuration
func LoadConfig() (*Config, error) {
	cfg := load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadWorkerConfig loads configuration for the background commands, which
// need the database and Redis but no HTTP or token settings
func LoadWorkerConfig() (*Config, error) {
	cfg := load()
	if err := errors.Join(cfg.validateStores()...); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func load() *Config {
	return &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		Auth:          loadAuthConfig(),
		Subscription:  loadSubscriptionConfig(),
		Observability: loadObservabilityConfig(),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("BIZGATE_HOST", "0.0.0.0"),
		Port:            getEnv("BIZGATE_PORT", "8080"),
		ReadTimeout:     getEnvDuration("BIZGATE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("BIZGATE_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("BIZGATE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("BIZGATE_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("BIZGATE_HEALTH_PORT", "9090"),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:         getEnv("BIZGATE_DATABASE_URL", ""),
		ReplicaURLs: getEnvList("BIZGATE_DATABASE_REPLICA_URLS"),
		MaxConns:    getEnvInt("BIZGATE_DATABASE_MAX_CONNS", 20),
		MinConns:    getEnvInt("BIZGATE_DATABASE_MIN_CONNS", 2),
		Timeout:     getEnvDuration("BIZGATE_DATABASE_TIMEOUT", 5*time.Second),
		MaxLifetime: getEnvDuration("BIZGATE_DATABASE_MAX_LIFETIME", 30*time.Minute),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		URL:        getEnv("BIZGATE_REDIS_URL", ""),
		Password:   getEnv("BIZGATE_REDIS_PASSWORD", ""),
		DB:         getEnvInt("BIZGATE_REDIS_DB", 0),
		MaxRetries: getEnvInt("BIZGATE_REDIS_MAX_RETRIES", 3),
		PoolSize:   getEnvInt("BIZGATE_REDIS_POOL_SIZE", 10),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:   getEnv("BIZGATE_JWT_SECRET", ""),
		JWTIssuer:   getEnv("BIZGATE_JWT_ISSUER", ""),
		JWTLeeway:   getEnvDuration("BIZGATE_JWT_LEEWAY", 30*time.Second),
		SuperAdmins: getEnvList("BIZGATE_SUPER_ADMINS"),
	}
}

func loadSubscriptionConfig() SubscriptionConfig {
	return SubscriptionConfig{
		CreditGrant:        getEnvInt("BIZGATE_CREDIT_GRANT", subscription.DefaultCreditGrant),
		SessionCacheSize:   getEnvInt("BIZGATE_SESSION_CACHE_SIZE", 10000),
		SessionTTL:         getEnvDuration("BIZGATE_SESSION_TTL", 30*time.Minute),
		SessionLoadTimeout: getEnvDuration("BIZGATE_SESSION_LOAD_TIMEOUT", subscription.DefaultLoadTimeout),
		RefreshConcurrency: getEnvInt("BIZGATE_REFRESH_CONCURRENCY", 8),
		ChangeChannel:      getEnv("BIZGATE_CHANGE_CHANNEL", subscription.DefaultChannel),
		DeductRateLimit:    getEnvInt("BIZGATE_DEDUCT_RATE_LIMIT", 30),
		DeductRateWindow:   getEnvDuration("BIZGATE_DEDUCT_RATE_WINDOW", time.Minute),
		TenantCacheSize:    getEnvInt("BIZGATE_TENANT_CACHE_SIZE", 10000),
		TenantCacheTTL:     getEnvDuration("BIZGATE_TENANT_CACHE_TTL", 5*time.Minute),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(getEnv("BIZGATE_LOG_LEVEL", "info")),
		LogFormat:          parseLogFormat(getEnv("BIZGATE_LOG_FORMAT", "json")),
		MetricsEnabled:     getEnvBool("BIZGATE_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("BIZGATE_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("BIZGATE_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("BIZGATE_OTEL_SERVICE_NAME", "bizgate"),
		OTelServiceVersion: getEnv("BIZGATE_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("BIZGATE_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server port is required"))
	}
	if c.Server.HealthPort == "" {
		errs = append(errs, errors.New("health port is required"))
	}
	if c.Server.Port != "" && c.Server.Port == c.Server.HealthPort {
		errs = append(errs, errors.New("server port and health port must be different"))
	}

	errs = append(errs, c.validateStores()...)

	if len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT secret must be at least 32 bytes"))
	}

	s := c.Subscription
	if s.CreditGrant < 0 {
		errs = append(errs, errors.New("credit grant must not be negative"))
	}
	if s.SessionCacheSize <= 0 || s.SessionTTL <= 0 {
		errs = append(errs, errors.New("session cache size and TTL must be positive"))
	}
	if s.DeductRateLimit <= 0 || s.DeductRateWindow <= 0 {
		errs = append(errs, errors.New("deduct rate limit and window must be positive"))
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			errs = append(errs, errors.New("OpenTelemetry endpoint is required when OTel is enabled"))
		}
		if c.Observability.OTelServiceName == "" {
			errs = append(errs, errors.New("OpenTelemetry service name is required when OTel is enabled"))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) validateStores() []error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database URL is required"))
	}
	if c.Database.MinConns > c.Database.MaxConns {
		errs = append(errs, errors.New("database min conns exceeds max conns"))
	}
	if c.Subscription.ChangeChannel == "" {
		errs = append(errs, errors.New("change channel is required"))
	}
	return errs
}

func parseLogFormat(format string) observability.LogFormat {
	if strings.EqualFold(format, string(observability.FormatText)) {
		return observability.FormatText
	}
	return observability.FormatJSON
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty items
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
