package server

import (
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/nimburion/postsvc/pkg/health"
	"github.com/nimburion/postsvc/pkg/middleware/compression"
	"github.com/nimburion/postsvc/pkg/middleware/logging"
	"github.com/nimburion/postsvc/pkg/middleware/metrics"
	"github.com/nimburion/postsvc/pkg/middleware/ratelimit"
	"github.com/nimburion/postsvc/pkg/middleware/recovery"
	"github.com/nimburion/postsvc/pkg/middleware/requestid"
	"github.com/nimburion/postsvc/pkg/middleware/requestsize"
	"github.com/nimburion/postsvc/pkg/middleware/timeout"
	"github.com/nimburion/postsvc/pkg/middleware/tracing"
	"github.com/nimburion/postsvc/pkg/observability/logger"
	obsmetrics "github.com/nimburion/postsvc/pkg/observability/metrics"
	"github.com/nimburion/postsvc/pkg/server/router"
	ginrouter "github.com/nimburion/postsvc/pkg/server/router/gin"
	"github.com/nimburion/postsvc/pkg/version"
)

// Operational endpoints served outside the API prefix.
const (
	HealthPath     = "/health"
	LivenessPath   = "/health/live"
	MetricsPath    = "/metrics"
	VersionPath    = "/version"
	tracerName     = "postsvc-http"
	defaultAPIPath = "/api"
)

// RouteRegistrar mounts a group of API routes.
type RouteRegistrar interface {
	RegisterRoutes(r router.Router)
}

// PublicRouterOptions configures NewPublicRouter.
type PublicRouterOptions struct {
	// APIPrefix defaults to /api.
	APIPrefix string
	Logger    logger.Logger
	// Health is required and served on /health.
	Health *health.Registry
	// Metrics enables the metrics middleware and /metrics when set.
	Metrics        *obsmetrics.Registry
	Version        version.Info
	RequestLogging bool
	// MaxRequestSize caps API request bodies; 0 disables the cap.
	MaxRequestSize int64
	// RateLimitRPS enables a per-client limit on API routes when positive.
	RateLimitRPS   float64
	RateLimitBurst int
	// RequestTimeout puts a deadline on API requests when positive.
	RequestTimeout time.Duration
	// Compression enables Brotli/gzip responses; /metrics is never compressed.
	Compression        bool
	CompressionMinSize int
	Registrars         []RouteRegistrar
}

// NewPublicRouter builds the gin router with the middleware chain, the operational
// endpoints and every registrar mounted under the API prefix.
//
// Middleware order: request id, logging, recovery, metrics, tracing, compression.
// API routes add rate limiting, the body size cap and the request deadline.
func NewPublicRouter(opts PublicRouterOptions) (router.Router, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Health == nil {
		return nil, errors.New("health registry is required")
	}

	prefix := strings.TrimRight(strings.TrimSpace(opts.APIPrefix), "/")
	if opts.APIPrefix == "" {
		prefix = defaultAPIPath
	}

	operational := []string{HealthPath, MetricsPath}

	r := ginrouter.NewRouter()
	r.Use(requestid.RequestID())
	if opts.RequestLogging {
		r.Use(logging.WithConfig(opts.Logger, logging.Config{
			Enabled:              true,
			ExcludedPathPrefixes: operational,
		}))
	}
	r.Use(recovery.Recovery(opts.Logger))
	if opts.Metrics != nil {
		r.Use(metrics.Metrics())
	}
	r.Use(tracing.Tracing(tracing.Config{
		TracerName:           tracerName,
		ExcludedPathPrefixes: operational,
	}))
	if opts.Compression {
		cfg := compression.DefaultConfig()
		cfg.MinSize = opts.CompressionMinSize
		cfg.ExcludedPathPrefixes = []string{MetricsPath}
		r.Use(compression.Middleware(cfg))
	}

	r.GET(HealthPath, opts.Health.Handler())
	r.GET(LivenessPath, health.LiveHandler())
	if opts.Metrics != nil {
		r.GET(MetricsPath, handlerFrom(opts.Metrics.Handler()))
	}
	info := opts.Version
	r.GET(VersionPath, func(c router.Context) error {
		return c.JSON(http.StatusOK, info)
	})

	var apiMiddleware []router.MiddlewareFunc
	if opts.RateLimitRPS > 0 {
		burst := opts.RateLimitBurst
		if burst <= 0 {
			burst = int(math.Ceil(opts.RateLimitRPS))
		}
		apiMiddleware = append(apiMiddleware, ratelimit.RateLimit(ratelimit.NewTokenBucketLimiter(opts.RateLimitRPS, burst), ratelimit.Config{}))
	}
	apiMiddleware = append(apiMiddleware,
		requestsize.Middleware(opts.MaxRequestSize),
		timeout.Middleware(timeout.Config{Timeout: opts.RequestTimeout}),
	)

	api := r.Group(prefix, apiMiddleware...)
	for _, registrar := range opts.Registrars {
		if registrar != nil {
			registrar.RegisterRoutes(api)
		}
	}

	return r, nil
}

func handlerFrom(h http.Handler) router.HandlerFunc {
	return func(c router.Context) error {
		h.ServeHTTP(c.Response(), c.Request())
		return nil
	}
}
