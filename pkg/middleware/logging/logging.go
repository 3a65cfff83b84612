// Package logging writes one structured log entry per HTTP request.
package logging

import (
	"strings"
	"time"

	"github.com/nimburion/postsvc/pkg/middleware/requestid"
	"github.com/nimburion/postsvc/pkg/observability/logger"
	"github.com/nimburion/postsvc/pkg/server/router"
)

// Log field names.
const (
	FieldRequestID  = "request_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldRoute      = "route"
	FieldStatus     = "status"
	FieldDurationMS = "duration_ms"
	FieldRemoteAddr = "remote_addr"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
)

// Config configures request logging.
type Config struct {
	Enabled bool
	// LogStart adds a debug entry when the request begins.
	LogStart bool
	// ExcludedPathPrefixes are not logged at all, e.g. health probes.
	ExcludedPathPrefixes []string
}

// DefaultConfig logs every request on completion.
func DefaultConfig() Config {
	return Config{Enabled: true}
}

// Logging creates middleware with DefaultConfig.
func Logging(log logger.Logger) router.MiddlewareFunc {
	return WithConfig(log, DefaultConfig())
}

// WithConfig creates request logging middleware. Completed requests log at info,
// 5xx answers at warn and handler errors at error.
func WithConfig(log logger.Logger, cfg Config) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			req := c.Request()
			if !cfg.Enabled || excluded(req.URL.Path, cfg.ExcludedPathPrefixes) {
				return next(c)
			}

			start := time.Now()
			if cfg.LogStart {
				log.Debug("request started",
					FieldRequestID, requestid.FromContext(req.Context()),
					FieldMethod, req.Method,
					FieldPath, req.URL.Path,
				)
			}

			err := next(c)

			status := c.Response().Status()
			fields := []any{
				FieldRequestID, requestid.FromContext(c.Request().Context()),
				FieldMethod, req.Method,
				FieldPath, req.URL.Path,
				FieldRoute, c.Route(),
				FieldStatus, status,
				FieldDurationMS, time.Since(start).Milliseconds(),
				FieldRemoteAddr, req.RemoteAddr,
				FieldUserAgent, req.UserAgent(),
			}

			switch {
			case err != nil:
				log.Error("request failed", append(fields, FieldError, err)...)
			case status >= 500:
				log.Warn("request completed", fields...)
			default:
				log.Info("request completed", fields...)
			}
			return err
		}
	}
}

func excluded(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
