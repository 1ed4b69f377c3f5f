package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"signal-monitor/src/models"
	"signal-monitor/src/utils"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment overrides for values that should not live in the YAML file.
const (
	EnvDBConnectionString = "SIGNAL_DB_CONNECTION_STRING"
	EnvDBPath             = "SIGNAL_DB_PATH"
	EnvRedisAddr          = "SIGNAL_REDIS_ADDR"
	EnvRedisPassword      = "SIGNAL_REDIS_PASSWORD"
	EnvLogLevel           = "SIGNAL_LOG_LEVEL"
)

const dateLayout = "2006-01-02"

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config from a YAML file. A .env file next to the
// working directory is loaded first when present.
func NewConfig(configPath string) (*Config, error) {
	// Missing .env is the normal case.
	_ = godotenv.Load()

	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	return Parse(data)
}

// -----------------------------------------------------------------------------

// Parse builds a Config from YAML bytes, then applies defaults and
// environment overrides and validates the result.
func Parse(data []byte) (*Config, error) {
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.ApplyDefaults()
	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Default returns a validated configuration with every default applied.
func Default() *Config {
	c := &Config{MConfig: &models.MConfig{}}
	c.ApplyDefaults()
	return c
}

// -----------------------------------------------------------------------------

// ApplyDefaults fills zero values with the documented defaults.
func (c *Config) ApplyDefaults() {
	setString(&c.Name, "signal-monitor")
	setString(&c.LogLevel, "INFO")

	setString(&c.Control.Host, utils.DefaultControlHost)
	setInt(&c.Control.Port, utils.DefaultControlPort)
	setInt(&c.Control.WriteTimeoutSeconds, 5)
	setInt(&c.Control.MaxMessageBytes, 64*1024)

	setString(&c.Grpc.Host, "localhost")
	setInt(&c.Grpc.Port, utils.DefaultGrpcPort)

	setString(&c.Viewer.Host, "127.0.0.1")
	setInt(&c.Viewer.Port, utils.DefaultViewerPort)
	setInt(&c.Viewer.PollIntervalSeconds, 10)

	setString(&c.Engine.Instrument, utils.DefaultInstrument)
	setString(&c.Engine.Strategy, string(models.StrategyEMA))
	if c.Engine.InitialBalance == nil {
		seed := utils.DefaultInitialBalance
		c.Engine.InitialBalance = &seed
	}
	setInt(&c.Engine.TickIntervalSeconds, utils.DefaultTickSeconds)
	setInt(&c.Engine.WaitTimeoutSeconds, utils.DefaultWaitSeconds)
	setFloat(&c.Engine.TradeAmount, utils.DefaultTradeAmount)

	setInt(&c.Cache.LoadTimeoutSeconds, 60)

	setString(&c.DataSource.Name, "yahoo")
	setString(&c.DataSource.HistoryStart, utils.DefaultHistoryStart)
	setInt(&c.DataSource.EMASpan, utils.DefaultIndicatorSpan)
	setInt(&c.DataSource.MAWindow, utils.DefaultIndicatorSpan)

	setString(&c.Storage.DBType, "sqlite")
	setString(&c.Storage.DBPath, "trading.db")
	setString(&c.Storage.RedisAddr, "localhost:6379")
	setString(&c.Storage.RedisStream, "trades")

	setInt(&c.Network.RequestTimeout, 10)
	setFloat(&c.Network.RequestsPerSecond, 2)
}

// -----------------------------------------------------------------------------

// ApplyEnv overlays secrets and deployment-specific values from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDBConnectionString); v != "" {
		c.Storage.DBConnectionString = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Storage.RedisAddr = v
	}
	if v := os.Getenv(EnvRedisPassword); v != "" {
		c.Storage.RedisPassword = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Listeners
	if c.Control.Host == "" {
		return fmt.Errorf("control host cannot be empty")
	}
	if err := validatePort("control", c.Control.Port); err != nil {
		return err
	}
	if c.Control.MaxMessageBytes < 64 {
		return fmt.Errorf("control max_message_bytes must be at least 64")
	}
	if c.Grpc.Enabled {
		if err := validatePort("grpc", c.Grpc.Port); err != nil {
			return err
		}
	}
	if c.Viewer.Enabled {
		if err := validatePort("viewer", c.Viewer.Port); err != nil {
			return err
		}
		if c.Viewer.PollIntervalSeconds <= 0 {
			return fmt.Errorf("viewer poll interval must be greater than 0")
		}
	}

	// Engine
	if strings.TrimSpace(c.Engine.Instrument) == "" {
		return fmt.Errorf("engine instrument cannot be empty")
	}
	if _, err := models.ParseStrategy(c.Engine.Strategy); err != nil {
		return fmt.Errorf("engine strategy: %w", err)
	}
	if c.Engine.TickIntervalSeconds <= 0 {
		return fmt.Errorf("tick interval must be greater than 0")
	}
	if c.Engine.WaitTimeoutSeconds <= 0 {
		return fmt.Errorf("wait timeout must be greater than 0")
	}
	if c.Engine.TradeAmount <= 0 {
		return fmt.Errorf("trade amount must be greater than 0")
	}

	// Cache
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache max_entries cannot be negative")
	}

	// Data source
	if c.DataSource.EMASpan <= 0 || c.DataSource.MAWindow <= 0 {
		return fmt.Errorf("indicator span and window must be greater than 0")
	}
	start, end, err := c.HistoryRange(time.Now())
	if err != nil {
		return err
	}
	if !start.Before(end) {
		return fmt.Errorf("history_start must be before history_end")
	}

	// Storage
	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("database connection string cannot be empty for postgres (set %s)", EnvDBConnectionString)
		}
	case "redis":
		if c.Storage.RedisAddr == "" || c.Storage.RedisStream == "" {
			return fmt.Errorf("redis address and stream cannot be empty")
		}
	default:
		return fmt.Errorf("unsupported database type: %q", c.Storage.DBType)
	}

	// Network
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.Network.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be greater than 0")
	}

	return nil
}

// -----------------------------------------------------------------------------

// HistoryRange resolves the configured provider window. An empty end means
// the day of now.
func (c *Config) HistoryRange(now time.Time) (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, c.DataSource.HistoryStart)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("history_start: %w", err)
	}

	end := now.UTC().Truncate(24 * time.Hour)
	if c.DataSource.HistoryEnd != "" {
		end, err = time.Parse(dateLayout, c.DataSource.HistoryEnd)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("history_end: %w", err)
		}
	}
	return start, end, nil
}

// -----------------------------------------------------------------------------

// Seconds converts a config field into a duration.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// -----------------------------------------------------------------------------

func validatePort(name string, port int) error {
	if port <= 1024 || port > 65535 {
		return fmt.Errorf("invalid %s port number: %d (must be between 1025 and 65535)", name, port)
	}
	return nil
}

func setString(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if *dst == 0 {
		*dst = v
	}
}

func setFloat(dst *float64, v float64) {
	if *dst == 0 {
		*dst = v
	}
}
