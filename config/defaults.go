package config

import "time"

// DefaultConfig returns the engine defaults. Every field can be
// overridden by YAML or environment variables, see Loader.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			HistoryLimit:       100,
			MaxParallel:        8,
			DefaultStepTimeout: 0,
			ComponentRPS:       0,
			ComponentBurst:     1,
		},
		Cache: CacheConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			DB:       0,
			TTL:      5 * time.Minute,
			PoolSize: 10,
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "json",
			OutputPaths: []string{"stdout"},
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "pipeflow",
			SampleRate:   1.0,
		},
	}
}
