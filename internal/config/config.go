package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/dejobratic/orderflow/internal/database"
	"github.com/dejobratic/orderflow/internal/telemetry"
)

// Store backends.
const (
	BackendSQL    = "sql"
	BackendMemory = "memory"
)

// Config captures runtime configuration for the orderflow CLI.
type Config struct {
	Store     StoreConfig
	Orders    OrdersConfig
	Telemetry TelemetryConfig
	Service   ServiceConfig
}

type StoreConfig struct {
	Backend     string
	Driver      string
	DSN         string
	AutoMigrate bool
}

type OrdersConfig struct {
	AuthCode        string
	CataloguePath   string
	DiagnosticsPath string
	MaxMessageLen   int
	MaxItems        int
	MaxQty          int
}

type TelemetryConfig struct {
	LogLevel      string
	OTelEndpoint  string
	EnableTracing bool
	EnableMetrics bool
	SampleRate    float64
}

type ServiceConfig struct {
	Name        string
	Version     string
	Environment string
}

const (
	defaultBackend        = BackendSQL
	defaultDriver         = database.DriverSQLite
	defaultDBPath         = "./orderflow.db"
	defaultAutoMigrate    = true
	defaultAuthCode       = "123456"
	defaultMaxMessageLen  = 256
	defaultMaxItems       = 20
	defaultMaxQty         = 99
	defaultServiceName    = "orderflow"
	defaultServiceVersion = "0.1.0"
	defaultEnvironment    = "development"
	defaultLogLevel       = "warn"
	defaultOTelSampleRate = 1.0
)

var authCodePattern = regexp.MustCompile(`^\d{6}$`)

// Load reads configuration from environment variables, applying defaults when needed.
func Load() (*Config, error) {
	ordersCfg, err := loadOrdersConfig()
	if err != nil {
		return nil, fmt.Errorf("loading orders config: %w", err)
	}

	telCfg, err := loadTelemetryConfig()
	if err != nil {
		return nil, fmt.Errorf("loading telemetry config: %w", err)
	}

	return &Config{
		Store:     loadStoreConfig(),
		Orders:    ordersCfg,
		Telemetry: telCfg,
		Service:   loadServiceConfig(),
	}, nil
}

// Validate checks the merged configuration after flags have been applied.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQL:
		if c.Store.Driver != database.DriverSQLite && c.Store.Driver != database.DriverPostgres {
			errs = append(errs, fmt.Errorf("unsupported database driver %q", c.Store.Driver))
		}
		if c.Store.DSN == "" {
			errs = append(errs, errors.New("database path or URL is required for the sql store"))
		}
		if c.Store.Driver == database.DriverSQLite && isInMemorySQLite(c.Store.DSN) {
			errs = append(errs, errors.New("in-memory sqlite database is not supported; use --store memory"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported store %q", c.Store.Backend))
	}

	if !authCodePattern.MatchString(c.Orders.AuthCode) {
		errs = append(errs, errors.New("required auth code must be six digits"))
	}
	if c.Orders.MaxMessageLen < 1 || c.Orders.MaxItems < 1 || c.Orders.MaxQty < 1 {
		errs = append(errs, errors.New("message limits must be positive"))
	}

	if _, err := telemetry.ParseLevel(c.Telemetry.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, telemetry.ErrInvalidSampleRate)
	}

	return errors.Join(errs...)
}

// Migrations run on their own connection, so an in-memory sqlite schema
// would never be visible to the store.
func isInMemorySQLite(dsn string) bool {
	return dsn == ":memory:" || strings.HasPrefix(dsn, "file::memory:") || strings.Contains(dsn, "mode=memory")
}

// TelemetrySettings maps the settings onto telemetry.Config.
func (c *Config) TelemetrySettings() telemetry.Config {
	return telemetry.Config{
		ServiceName:    c.Service.Name,
		ServiceVersion: c.Service.Version,
		Environment:    c.Service.Environment,
		OTLPEndpoint:   c.Telemetry.OTelEndpoint,
		EnableTracing:  c.Telemetry.EnableTracing,
		EnableMetrics:  c.Telemetry.EnableMetrics,
		SampleRate:     c.Telemetry.SampleRate,
	}
}

func loadStoreConfig() StoreConfig {
	driver := getEnvOrDefault("ORDERFLOW_DB_DRIVER", defaultDriver)

	dsn := os.Getenv("ORDERFLOW_DB_PATH")
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" && driver == database.DriverSQLite {
		dsn = defaultDBPath
	}

	return StoreConfig{
		Backend:     getEnvOrDefault("ORDERFLOW_STORE", defaultBackend),
		Driver:      driver,
		DSN:         dsn,
		AutoMigrate: getBoolEnv("AUTO_MIGRATE", defaultAutoMigrate),
	}
}

func loadOrdersConfig() (OrdersConfig, error) {
	maxMessageLen, err := getIntEnv("ORDERFLOW_MAX_MESSAGE_LEN", defaultMaxMessageLen)
	if err != nil {
		return OrdersConfig{}, err
	}
	maxItems, err := getIntEnv("ORDERFLOW_MAX_ITEMS", defaultMaxItems)
	if err != nil {
		return OrdersConfig{}, err
	}
	maxQty, err := getIntEnv("ORDERFLOW_MAX_QTY", defaultMaxQty)
	if err != nil {
		return OrdersConfig{}, err
	}

	return OrdersConfig{
		AuthCode:        getEnvOrDefault("ORDERFLOW_AUTH_CODE", defaultAuthCode),
		CataloguePath:   os.Getenv("ORDERFLOW_CATALOGUE"),
		DiagnosticsPath: os.Getenv("ORDERFLOW_DIAGNOSTICS_PATH"),
		MaxMessageLen:   maxMessageLen,
		MaxItems:        maxItems,
		MaxQty:          maxQty,
	}, nil
}

func loadTelemetryConfig() (TelemetryConfig, error) {
	logLevel := getEnvOrDefault("LOG_LEVEL", defaultLogLevel)
	otelEndpoint := getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	enableTracing := getBoolEnv("OTEL_ENABLE_TRACING", false)
	enableMetrics := getBoolEnv("OTEL_ENABLE_METRICS", false)

	sampleRate := defaultOTelSampleRate
	if value := os.Getenv("OTEL_SAMPLE_RATE"); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return TelemetryConfig{}, fmt.Errorf("invalid OTEL_SAMPLE_RATE: %w", err)
		}
		sampleRate = parsed
	}

	return TelemetryConfig{
		LogLevel:      logLevel,
		OTelEndpoint:  otelEndpoint,
		EnableTracing: enableTracing,
		EnableMetrics: enableMetrics,
		SampleRate:    sampleRate,
	}, nil
}

func loadServiceConfig() ServiceConfig {
	return ServiceConfig{
		Name:        defaultServiceName,
		Version:     getEnvOrDefault("SERVICE_VERSION", defaultServiceVersion),
		Environment: getEnvOrDefault("ENVIRONMENT", defaultEnvironment),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true"
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
