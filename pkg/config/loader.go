package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// envBinding maps one config key to its environment variable suffixes, in priority order.
type envBinding struct {
	key      string
	suffixes []string
}

var envBindings = []envBinding{
	{"service.name", []string{"SERVICE_NAME"}},
	{"service.environment", []string{"SERVICE_ENVIRONMENT", "ENVIRONMENT"}},

	{"http.host", []string{"HTTP_HOST"}},
	{"http.port", []string{"HTTP_PORT"}},
	{"http.api_prefix", []string{"HTTP_API_PREFIX"}},
	{"http.read_timeout", []string{"HTTP_READ_TIMEOUT"}},
	{"http.write_timeout", []string{"HTTP_WRITE_TIMEOUT"}},
	{"http.idle_timeout", []string{"HTTP_IDLE_TIMEOUT"}},
	{"http.shutdown_timeout", []string{"HTTP_SHUTDOWN_TIMEOUT"}},
	{"http.request_timeout", []string{"HTTP_REQUEST_TIMEOUT"}},
	{"http.max_request_size", []string{"HTTP_MAX_REQUEST_SIZE"}},
	{"http.rate_limit_rps", []string{"HTTP_RATE_LIMIT_RPS"}},
	{"http.rate_limit_burst", []string{"HTTP_RATE_LIMIT_BURST"}},
	{"http.compression", []string{"HTTP_COMPRESSION"}},
	{"http.compression_min_size", []string{"HTTP_COMPRESSION_MIN_SIZE"}},
	{"http.tls_cert_file", []string{"HTTP_TLS_CERT_FILE"}},
	{"http.tls_key_file", []string{"HTTP_TLS_KEY_FILE"}},

	{"database.url", []string{"DB_URL", "DATABASE_URL"}},
	{"database.name", []string{"DB_NAME", "DATABASE_NAME"}},
	{"database.connect_timeout", []string{"DB_CONNECT_TIMEOUT"}},
	{"database.operation_timeout", []string{"DB_OPERATION_TIMEOUT"}},

	{"observability.log_level", []string{"LOG_LEVEL"}},
	{"observability.log_format", []string{"LOG_FORMAT"}},
	{"observability.request_logging", []string{"REQUEST_LOGGING"}},
	{"observability.metrics_enabled", []string{"METRICS_ENABLED"}},
	{"observability.tracing_enabled", []string{"TRACING_ENABLED"}},
	{"observability.tracing_endpoint", []string{"TRACING_ENDPOINT"}},
	{"observability.tracing_sample_rate", []string{"TRACING_SAMPLE_RATE"}},
}

// unprefixedEnv lists the variable names earlier deployments of the service used.
// They apply only when the prefixed variable for the same key is unset.
var unprefixedEnv = map[string]string{
	"MONGODB_URI": "database.url",
	"DB_NAME":     "database.name",
	"CERT_PEM":    "http.tls_cert_file",
	"KEY_PEM":     "http.tls_key_file",
}

// flagKeys maps command line flags to config keys.
var flagKeys = map[string]string{
	"port":         "http.port",
	"db-url":       "database.url",
	"db-name":      "database.name",
	"log-level":    "observability.log_level",
	"log-format":   "observability.log_format",
	"tls-cert":     "http.tls_cert_file",
	"tls-key":      "http.tls_key_file",
	"api-prefix":   "http.api_prefix",
	"service-name": "service.name",
}

// RegisterFlags defines the configuration override flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.Int("port", 0, "HTTP port")
	fs.String("db-url", "", "MongoDB connection URL")
	fs.String("db-name", "", "MongoDB database name")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("log-format", "", "log format (json, text)")
	fs.String("tls-cert", "", "TLS certificate file")
	fs.String("tls-key", "", "TLS private key file")
	fs.String("api-prefix", "", "path prefix of the posts API")
	fs.String("service-name", "", "service name")
}

// ViperLoader loads Config with precedence flags > env > secrets file > config file > defaults.
type ViperLoader struct {
	configFile string
	envPrefix  string
	flags      *pflag.FlagSet
	lookupEnv  func(string) (string, bool)
}

// NewViperLoader creates a loader. configFile may be empty; envPrefix defaults to APP.
func NewViperLoader(configFile, envPrefix string) *ViperLoader {
	if strings.TrimSpace(envPrefix) == "" {
		envPrefix = DefaultEnvPrefix
	}
	return &ViperLoader{
		configFile: configFile,
		envPrefix:  strings.ToUpper(strings.TrimSpace(envPrefix)),
		lookupEnv:  os.LookupEnv,
	}
}

// WithFlags makes changed flags from fs override every other source.
func (l *ViperLoader) WithFlags(fs *pflag.FlagSet) *ViperLoader {
	l.flags = fs
	return l
}

// ConfigFile returns the configured file path, or "".
func (l *ViperLoader) ConfigFile() string {
	return l.configFile
}

// Load builds and validates the configuration.
func (l *ViperLoader) Load() (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", l.configFile, err)
		}
	}

	secretsFile, err := l.discoverSecretsFile()
	if err != nil {
		return nil, err
	}
	if secretsFile != "" {
		if err := mergeSecrets(v, secretsFile); err != nil {
			return nil, err
		}
	}

	if err := l.applyEnv(v); err != nil {
		return nil, err
	}
	l.applyFlags(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (l *ViperLoader) prefixedEnv(suffix string) string {
	return l.envPrefix + "_" + suffix
}

// applyEnv sets every key whose environment variable is present. Values are set
// explicitly rather than through BindEnv so the unprefixed names can be consulted
// only as a fallback.
func (l *ViperLoader) applyEnv(v *viper.Viper) error {
	for _, b := range envBindings {
		for _, suffix := range b.suffixes {
			if value, ok := l.lookupEnv(l.prefixedEnv(suffix)); ok {
				v.Set(b.key, value)
				break
			}
		}
	}

	for name, key := range unprefixedEnv {
		if l.hasPrefixedEnv(key) {
			continue
		}
		if value, ok := l.lookupEnv(name); ok {
			v.Set(key, value)
		}
	}

	// IP_ADDRESS carries host and port together.
	if raw, ok := l.lookupEnv("IP_ADDRESS"); ok && !l.hasPrefixedEnv("http.host") && !l.hasPrefixedEnv("http.port") {
		host, port, err := splitAddress(raw)
		if err != nil {
			return fmt.Errorf("invalid IP_ADDRESS %q: %w", raw, err)
		}
		v.Set("http.host", host)
		v.Set("http.port", port)
	}
	return nil
}

func (l *ViperLoader) hasPrefixedEnv(key string) bool {
	for _, b := range envBindings {
		if b.key != key {
			continue
		}
		for _, suffix := range b.suffixes {
			if _, ok := l.lookupEnv(l.prefixedEnv(suffix)); ok {
				return true
			}
		}
	}
	return false
}

// applyFlags runs after applyEnv and uses Set so changed flags win over env values.
func (l *ViperLoader) applyFlags(v *viper.Viper) {
	if l.flags == nil {
		return
	}
	for name, key := range flagKeys {
		f := l.flags.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		v.Set(key, f.Value.String())
	}
}

func splitAddress(raw string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(strings.TrimSpace(raw))
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("port %q is not a number", portStr)
	}
	return host, port, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("service.name", cfg.Service.Name)
	v.SetDefault("service.environment", cfg.Service.Environment)

	v.SetDefault("http.host", cfg.HTTP.Host)
	v.SetDefault("http.port", cfg.HTTP.Port)
	v.SetDefault("http.api_prefix", cfg.HTTP.APIPrefix)
	v.SetDefault("http.read_timeout", cfg.HTTP.ReadTimeout)
	v.SetDefault("http.write_timeout", cfg.HTTP.WriteTimeout)
	v.SetDefault("http.idle_timeout", cfg.HTTP.IdleTimeout)
	v.SetDefault("http.shutdown_timeout", cfg.HTTP.ShutdownTimeout)
	v.SetDefault("http.request_timeout", cfg.HTTP.RequestTimeout)
	v.SetDefault("http.max_request_size", cfg.HTTP.MaxRequestSize)
	v.SetDefault("http.rate_limit_rps", cfg.HTTP.RateLimitRPS)
	v.SetDefault("http.rate_limit_burst", cfg.HTTP.RateLimitBurst)
	v.SetDefault("http.compression", cfg.HTTP.Compression)
	v.SetDefault("http.compression_min_size", cfg.HTTP.CompressionMinSize)
	v.SetDefault("http.tls_cert_file", cfg.HTTP.TLSCertFile)
	v.SetDefault("http.tls_key_file", cfg.HTTP.TLSKeyFile)

	v.SetDefault("database.url", cfg.Database.URL)
	v.SetDefault("database.name", cfg.Database.Name)
	v.SetDefault("database.connect_timeout", cfg.Database.ConnectTimeout)
	v.SetDefault("database.operation_timeout", cfg.Database.OperationTimeout)

	v.SetDefault("observability.log_level", cfg.Observability.LogLevel)
	v.SetDefault("observability.log_format", cfg.Observability.LogFormat)
	v.SetDefault("observability.request_logging", cfg.Observability.RequestLogging)
	v.SetDefault("observability.metrics_enabled", cfg.Observability.MetricsEnabled)
	v.SetDefault("observability.tracing_enabled", cfg.Observability.TracingEnabled)
	v.SetDefault("observability.tracing_endpoint", cfg.Observability.TracingEndpoint)
	v.SetDefault("observability.tracing_sample_rate", cfg.Observability.TracingSampleRate)
}
