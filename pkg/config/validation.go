package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/nimburion/postsvc/pkg/observability/logger"
)

const redactedValue = "xxxxx"

// Validate reports every invalid setting at once.
func Validate(c *Config) error {
	var errs []error

	if strings.TrimSpace(c.Service.Name) == "" {
		errs = append(errs, errors.New("service.name is required"))
	}

	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port %d is out of range", c.HTTP.Port))
	}
	if c.HTTP.APIPrefix != "" && !strings.HasPrefix(c.HTTP.APIPrefix, "/") {
		errs = append(errs, fmt.Errorf("http.api_prefix %q must start with /", c.HTTP.APIPrefix))
	}
	if (c.HTTP.TLSCertFile == "") != (c.HTTP.TLSKeyFile == "") {
		errs = append(errs, errors.New("http.tls_cert_file and http.tls_key_file must be set together"))
	}
	if c.HTTP.MaxRequestSize < 0 {
		errs = append(errs, errors.New("http.max_request_size must not be negative"))
	}
	if c.HTTP.CompressionMinSize < 0 {
		errs = append(errs, errors.New("http.compression_min_size must not be negative"))
	}
	if c.HTTP.RateLimitRPS < 0 || c.HTTP.RateLimitBurst < 0 {
		errs = append(errs, errors.New("http.rate_limit_rps and http.rate_limit_burst must not be negative"))
	}
	if c.HTTP.RequestTimeout < 0 {
		errs = append(errs, errors.New("http.request_timeout must not be negative"))
	}
	if c.HTTP.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("http.shutdown_timeout must not be negative"))
	}

	if strings.TrimSpace(c.Database.URL) == "" {
		errs = append(errs, errors.New("database.url is required"))
	}
	if strings.TrimSpace(c.Database.Name) == "" {
		errs = append(errs, errors.New("database.name is required"))
	}

	if _, err := logger.ParseLogLevel(c.Observability.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("observability.log_level: %w", err))
	}
	if _, err := logger.ParseLogFormat(c.Observability.LogFormat); err != nil {
		errs = append(errs, fmt.Errorf("observability.log_format: %w", err))
	}
	if r := c.Observability.TracingSampleRate; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("observability.tracing_sample_rate %v must be within [0, 1]", r))
	}

	return errors.Join(errs...)
}

// Redacted returns a copy safe to print: the password in the database URL is masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Database.URL = redactURL(c.Database.URL)
	return &out
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); !ok {
		return raw
	}
	u.User = url.UserPassword(u.User.Username(), redactedValue)
	return u.String()
}
