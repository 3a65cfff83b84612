// Package config loads the service configuration from defaults, an optional config
// file, an optional secrets file and environment variables.
package config

import (
	"net"
	"strconv"
	"time"
)

// DefaultEnvPrefix prefixes every environment variable the loader reads.
const DefaultEnvPrefix = "APP"

// Config is the complete service configuration.
type Config struct {
	Service       ServiceConfig       `mapstructure:"service" yaml:"service"`
	HTTP          HTTPConfig          `mapstructure:"http" yaml:"http"`
	Database      DatabaseConfig      `mapstructure:"database" yaml:"database"`
	Observability ObservabilityConfig `mapstructure:"observability" yaml:"observability"`
}

// ServiceConfig identifies the running service.
type ServiceConfig struct {
	Name        string `mapstructure:"name" yaml:"name"`
	Environment string `mapstructure:"environment" yaml:"environment"`
}

// HTTPConfig configures the public HTTP server.
type HTTPConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	APIPrefix       string        `mapstructure:"api_prefix" yaml:"api_prefix"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	// RequestTimeout bounds API requests; 0 leaves store calls on the database operation timeout.
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	// MaxRequestSize caps request bodies in bytes; 0 disables the cap.
	MaxRequestSize int64 `mapstructure:"max_request_size" yaml:"max_request_size"`
	// RateLimitRPS is the per-client request rate; 0 disables rate limiting.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps" yaml:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst"`
	// Compression enables Brotli/gzip response encoding for bodies of at least
	// CompressionMinSize bytes.
	Compression        bool `mapstructure:"compression" yaml:"compression"`
	CompressionMinSize int  `mapstructure:"compression_min_size" yaml:"compression_min_size"`
	// TLSCertFile and TLSKeyFile enable HTTPS when both are set.
	TLSCertFile string `mapstructure:"tls_cert_file" yaml:"tls_cert_file"`
	TLSKeyFile  string `mapstructure:"tls_key_file" yaml:"tls_key_file"`
}

// Address returns host:port for net.Listen.
func (c HTTPConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// TLSEnabled reports whether a certificate pair is configured.
func (c HTTPConfig) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// DatabaseConfig configures the MongoDB connection.
type DatabaseConfig struct {
	URL              string        `mapstructure:"url" yaml:"url"`
	Name             string        `mapstructure:"name" yaml:"name"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout" yaml:"operation_timeout"`
}

// ObservabilityConfig configures logging, metrics and tracing.
type ObservabilityConfig struct {
	LogLevel          string  `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string  `mapstructure:"log_format" yaml:"log_format"`
	RequestLogging    bool    `mapstructure:"request_logging" yaml:"request_logging"`
	MetricsEnabled    bool    `mapstructure:"metrics_enabled" yaml:"metrics_enabled"`
	TracingEnabled    bool    `mapstructure:"tracing_enabled" yaml:"tracing_enabled"`
	TracingEndpoint   string  `mapstructure:"tracing_endpoint" yaml:"tracing_endpoint"`
	TracingSampleRate float64 `mapstructure:"tracing_sample_rate" yaml:"tracing_sample_rate"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
// Database URL and name have no defaults and must be provided.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        "postsvc",
			Environment: "development",
		},
		HTTP: HTTPConfig{
			Host:               "0.0.0.0",
			Port:               8080,
			APIPrefix:          "/api",
			ReadTimeout:        30 * time.Second,
			WriteTimeout:       30 * time.Second,
			IdleTimeout:        120 * time.Second,
			ShutdownTimeout:    30 * time.Second,
			MaxRequestSize:     1 << 20,
			RateLimitRPS:       0,
			RateLimitBurst:     0,
			Compression:        true,
			CompressionMinSize: 1024,
		},
		Database: DatabaseConfig{
			ConnectTimeout:   10 * time.Second,
			OperationTimeout: 10 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel:          "info",
			LogFormat:         "json",
			RequestLogging:    true,
			MetricsEnabled:    true,
			TracingEnabled:    false,
			TracingEndpoint:   "localhost:4317",
			TracingSampleRate: 1.0,
		},
	}
}
