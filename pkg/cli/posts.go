package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/nimburion/postsvc/pkg/config"
	"github.com/nimburion/postsvc/pkg/health"
	"github.com/nimburion/postsvc/pkg/observability/logger"
	"github.com/nimburion/postsvc/pkg/observability/metrics"
	"github.com/nimburion/postsvc/pkg/posts"
	"github.com/nimburion/postsvc/pkg/repository/document"
	"github.com/nimburion/postsvc/pkg/server"
	"github.com/nimburion/postsvc/pkg/store/mongodb"
	"github.com/nimburion/postsvc/pkg/version"
	"github.com/spf13/cobra"
)

const (
	serviceName        = "postsvc"
	mongoCheckName     = "mongodb"
	healthCheckTimeout = 5 * time.Second
)

// NewRootCommand returns the postsvc command line.
func NewRootCommand() *cobra.Command {
	return NewServiceCommand(ServiceCommandOptions{
		Name:              serviceName,
		Description:       "REST service for posts stored in MongoDB",
		RunServer:         RunServer,
		CheckDependencies: CheckDependencies,
	})
}

// RunServer connects to MongoDB and serves the posts API until ctx is cancelled or
// the process receives SIGINT or SIGTERM.
func RunServer(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	adapter, err := connect(cfg, log)
	if err != nil {
		return err
	}

	executor, err := document.NewMongoDBExecutor(adapter)
	if err != nil {
		_ = adapter.Close()
		return err
	}

	handler, err := BuildHandler(cfg, log, executor, health.NewAdapterChecker(mongoCheckName, adapter, healthCheckTimeout))
	if err != nil {
		_ = adapter.Close()
		return err
	}

	return server.RunWithSignals(ctx, &server.RunOptions{
		Config:  cfg,
		Handler: handler,
		Logger:  log,
		ShutdownHooks: []server.LifecycleHook{{
			Name: "mongodb",
			Fn: func(context.Context) error {
				return adapter.Close()
			},
		}},
	})
}

// BuildHandler assembles the posts service over executor and the public router
// serving it. checkers back the /health endpoint.
func BuildHandler(cfg *config.Config, log logger.Logger, executor document.Executor, checkers ...health.Checker) (http.Handler, error) {
	service, err := posts.NewService(executor, log)
	if err != nil {
		return nil, fmt.Errorf("create post service: %w", err)
	}
	handler, err := posts.NewHandler(service, log)
	if err != nil {
		return nil, fmt.Errorf("create post handler: %w", err)
	}

	registry := health.NewRegistry()
	for _, checker := range checkers {
		registry.Register(checker)
	}

	var metricsRegistry *metrics.Registry
	if cfg.Observability.MetricsEnabled {
		metricsRegistry = metrics.NewRegistry()
	}

	return server.NewPublicRouter(server.PublicRouterOptions{
		APIPrefix:          cfg.HTTP.APIPrefix,
		Logger:             log,
		Health:             registry,
		Metrics:            metricsRegistry,
		Version:            version.Current(cfg.Service.Name),
		RequestLogging:     cfg.Observability.RequestLogging,
		MaxRequestSize:     cfg.HTTP.MaxRequestSize,
		RateLimitRPS:       cfg.HTTP.RateLimitRPS,
		RateLimitBurst:     cfg.HTTP.RateLimitBurst,
		RequestTimeout:     cfg.HTTP.RequestTimeout,
		Compression:        cfg.HTTP.Compression,
		CompressionMinSize: cfg.HTTP.CompressionMinSize,
		Registrars:         []server.RouteRegistrar{handler},
	})
}

// CheckDependencies connects to MongoDB and pings it once.
func CheckDependencies(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	adapter, err := connect(cfg, log)
	if err != nil {
		return err
	}
	defer adapter.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	result := health.NewAdapterChecker(mongoCheckName, adapter, healthCheckTimeout).Check(checkCtx)
	if result.Status != health.StatusHealthy {
		return fmt.Errorf("%s is unhealthy: %s", result.Name, result.Error)
	}
	log.Info("dependency healthy", "dependency", result.Name, "duration_ms", result.DurationMS)
	return nil
}

func connect(cfg *config.Config, log logger.Logger) (*mongodb.Adapter, error) {
	adapter, err := mongodb.NewAdapter(mongodb.Config{
		URL:              cfg.Database.URL,
		Database:         cfg.Database.Name,
		ConnectTimeout:   cfg.Database.ConnectTimeout,
		OperationTimeout: cfg.Database.OperationTimeout,
		AppName:          cfg.Service.Name,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	return adapter, nil
}
