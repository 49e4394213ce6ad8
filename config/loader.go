// =============================================================================
// PipeFlow configuration loader
// =============================================================================
// Unified configuration loading: YAML file + environment overrides.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("pipeflow.yaml").
//	    WithEnvPrefix("PIPEFLOW").
//	    Load()
//
// Precedence: defaults → YAML file → environment variables.
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full engine configuration.
type Config struct {
	// Engine holds orchestrator settings
	Engine EngineConfig `yaml:"engine" env:"ENGINE"`

	// Cache holds the analysis result cache settings
	Cache CacheConfig `yaml:"cache" env:"CACHE"`

	// Log holds logging settings
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry holds OTel settings
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// EngineConfig configures the workflow orchestrator.
type EngineConfig struct {
	// HistoryLimit bounds the in-memory execution history
	HistoryLimit int `yaml:"history_limit" env:"HISTORY_LIMIT"`
	// MaxParallel bounds concurrent executions in parallel batches
	MaxParallel int `yaml:"max_parallel" env:"MAX_PARALLEL"`
	// DefaultStepTimeout applies to steps without their own timeout (0 = none)
	DefaultStepTimeout time.Duration `yaml:"default_step_timeout" env:"DEFAULT_STEP_TIMEOUT"`
	// ComponentRPS rate-limits component invocations when > 0
	ComponentRPS float64 `yaml:"component_rps" env:"COMPONENT_RPS"`
	// ComponentBurst is the rate limiter burst size
	ComponentBurst int `yaml:"component_burst" env:"COMPONENT_BURST"`
}

// CacheConfig configures the Redis-backed analysis result cache.
type CacheConfig struct {
	// Enabled turns the result cache on
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// Addr is the Redis address
	Addr string `yaml:"addr" env:"ADDR"`
	// Password is the Redis password
	Password string `yaml:"password" env:"PASSWORD"`
	// DB is the Redis database number
	DB int `yaml:"db" env:"DB"`
	// TTL is the result expiry
	TTL time.Duration `yaml:"ttl" env:"TTL"`
	// PoolSize is the connection pool size
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// OutputPaths lists zap output paths
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
}

// TelemetryConfig configures the OTel SDK.
type TelemetryConfig struct {
	// Enabled turns telemetry on
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLPEndpoint is the OTLP gRPC endpoint
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// ServiceName names this service in traces
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// SampleRate is the trace sampling ratio
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// UnmarshalYAML decodes engine settings, accepting Go duration strings
// ("30s") for default_step_timeout. Absent fields keep their current
// values so defaults survive partial files.
func (e *EngineConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		HistoryLimit       *int     `yaml:"history_limit"`
		MaxParallel        *int     `yaml:"max_parallel"`
		DefaultStepTimeout *string  `yaml:"default_step_timeout"`
		ComponentRPS       *float64 `yaml:"component_rps"`
		ComponentBurst     *int     `yaml:"component_burst"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.HistoryLimit != nil {
		e.HistoryLimit = *raw.HistoryLimit
	}
	if raw.MaxParallel != nil {
		e.MaxParallel = *raw.MaxParallel
	}
	if raw.DefaultStepTimeout != nil {
		d, err := time.ParseDuration(*raw.DefaultStepTimeout)
		if err != nil {
			return fmt.Errorf("invalid engine.default_step_timeout: %w", err)
		}
		e.DefaultStepTimeout = d
	}
	if raw.ComponentRPS != nil {
		e.ComponentRPS = *raw.ComponentRPS
	}
	if raw.ComponentBurst != nil {
		e.ComponentBurst = *raw.ComponentBurst
	}
	return nil
}

// UnmarshalYAML decodes cache settings, accepting Go duration strings
// ("5m") for ttl.
func (c *CacheConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Enabled  *bool   `yaml:"enabled"`
		Addr     *string `yaml:"addr"`
		Password *string `yaml:"password"`
		DB       *int    `yaml:"db"`
		TTL      *string `yaml:"ttl"`
		PoolSize *int    `yaml:"pool_size"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Enabled != nil {
		c.Enabled = *raw.Enabled
	}
	if raw.Addr != nil {
		c.Addr = *raw.Addr
	}
	if raw.Password != nil {
		c.Password = *raw.Password
	}
	if raw.DB != nil {
		c.DB = *raw.DB
	}
	if raw.TTL != nil {
		d, err := time.ParseDuration(*raw.TTL)
		if err != nil {
			return fmt.Errorf("invalid cache.ttl: %w", err)
		}
		c.TTL = d
	}
	if raw.PoolSize != nil {
		c.PoolSize = *raw.PoolSize
	}
	return nil
}

// Loader loads configuration with builder-style options.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a configuration loader.
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "PIPEFLOW",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath sets the YAML config file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator adds a config validator.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load loads configuration. Precedence: defaults → YAML file →
// environment variables.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Duration(0)) {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// MustLoad loads configuration and panics on failure.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	var errs []string

	if c.Engine.HistoryLimit <= 0 {
		errs = append(errs, "engine.history_limit must be positive")
	}
	if c.Engine.MaxParallel <= 0 {
		errs = append(errs, "engine.max_parallel must be positive")
	}
	if c.Engine.ComponentRPS < 0 {
		errs = append(errs, "engine.component_rps must not be negative")
	}
	if c.Cache.Enabled && c.Cache.Addr == "" {
		errs = append(errs, "cache.addr required when cache is enabled")
	}
	if c.Telemetry.Enabled && c.Telemetry.OTLPEndpoint == "" {
		errs = append(errs, "telemetry.otlp_endpoint required when telemetry is enabled")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, "log.level must be one of debug, info, warn, error")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}
