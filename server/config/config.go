package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	Server   ServerConfig   `json:"server"`
	Tracking TrackingConfig `json:"tracking"`
	Sync     SyncConfig     `json:"sync"`
	Logging  LoggingConfig  `json:"logging"`
}

type ServerConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	ReadTimeout    time.Duration `json:"read_timeout"`
	WriteTimeout   time.Duration `json:"write_timeout"`
	IdleTimeout    time.Duration `json:"idle_timeout"`
	Environment    string        `json:"environment"`
	AllowedOrigins []string      `json:"allowed_origins"`
	RateLimitRPS   int           `json:"rate_limit_rps"`
	RateLimitBurst int           `json:"rate_limit_burst"`
	MaxRequestSize int64         `json:"max_request_size"`
}

type TrackingConfig struct {
	// DataDir is where file-based tracking sources are resolved from.
	DataDir      string        `json:"data_dir"`
	FetchTimeout time.Duration `json:"fetch_timeout"`
	FetchRetries int           `json:"fetch_retries"`
	RetryDelay   time.Duration `json:"retry_delay"`
	DatasetTTL   time.Duration `json:"dataset_ttl"`
	CacheSize    int           `json:"cache_size"`
	LoadWorkers  int           `json:"load_workers"`
	LoadQueue    int           `json:"load_queue"`
	Preload      bool          `json:"preload"`
}

type SyncConfig struct {
	// DriftTolerance is how far (seconds) a secondary clip may drift from its
	// derived local time before a seek is commanded.
	DriftTolerance float64       `json:"drift_tolerance"`
	SessionTTL     time.Duration `json:"session_ttl"`
}

type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// LoadConfig reads an optional YAML config file (CONFIG_FILE, default
// ./config.yaml) and environment variables, env taking precedence. Every key
// has a usable default so the service starts bare.
func LoadConfig() *Config {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", "*")
	v.SetDefault("server.rate_limit_rps", 100)
	v.SetDefault("server.rate_limit_burst", 200)
	v.SetDefault("server.max_request_size", int64(1024*1024))

	v.SetDefault("tracking.data_dir", "./data")
	v.SetDefault("tracking.fetch_timeout", 30*time.Second)
	v.SetDefault("tracking.fetch_retries", 3)
	v.SetDefault("tracking.retry_delay", 1*time.Second)
	v.SetDefault("tracking.dataset_ttl", 30*time.Minute)
	v.SetDefault("tracking.cache_size", 32)
	v.SetDefault("tracking.load_workers", 2)
	v.SetDefault("tracking.load_queue", 16)
	v.SetDefault("tracking.preload", false)

	v.SetDefault("sync.drift_tolerance", 0.1)
	v.SetDefault("sync.session_ttl", 30*time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// A missing config file is fine, env defaults carry the service.
	_ = v.ReadInConfig()

	return &Config{
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			ReadTimeout:    v.GetDuration("server.read_timeout"),
			WriteTimeout:   v.GetDuration("server.write_timeout"),
			IdleTimeout:    v.GetDuration("server.idle_timeout"),
			Environment:    v.GetString("server.environment"),
			AllowedOrigins: splitList(v.GetString("server.allowed_origins")),
			RateLimitRPS:   v.GetInt("server.rate_limit_rps"),
			RateLimitBurst: v.GetInt("server.rate_limit_burst"),
			MaxRequestSize: v.GetInt64("server.max_request_size"),
		},
		Tracking: TrackingConfig{
			DataDir:      v.GetString("tracking.data_dir"),
			FetchTimeout: v.GetDuration("tracking.fetch_timeout"),
			FetchRetries: v.GetInt("tracking.fetch_retries"),
			RetryDelay:   v.GetDuration("tracking.retry_delay"),
			DatasetTTL:   v.GetDuration("tracking.dataset_ttl"),
			CacheSize:    v.GetInt("tracking.cache_size"),
			LoadWorkers:  v.GetInt("tracking.load_workers"),
			LoadQueue:    v.GetInt("tracking.load_queue"),
			Preload:      v.GetBool("tracking.preload"),
		},
		Sync: SyncConfig{
			DriftTolerance: v.GetFloat64("sync.drift_tolerance"),
			SessionTTL:     v.GetDuration("sync.session_ttl"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}
}

func (c *Config) ValidateConfig(logger *zap.Logger) error {
	var errors []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, "server port must be between 1 and 65535")
	}

	if c.Server.MaxRequestSize <= 0 {
		errors = append(errors, "max request size must be positive")
	}

	if c.Tracking.FetchRetries < 0 {
		errors = append(errors, "fetch retries must not be negative")
	}

	if c.Tracking.LoadWorkers < 1 {
		errors = append(errors, "at least one load worker is required")
	}

	if c.Sync.DriftTolerance < 0 {
		errors = append(errors, "drift tolerance must not be negative")
	}

	if c.Sync.SessionTTL <= 0 {
		logger.Warn("Session TTL not positive, idle sessions will never expire")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, ", "))
	}

	return nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
