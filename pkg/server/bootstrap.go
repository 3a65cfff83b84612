package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nimburion/postsvc/pkg/config"
	"github.com/nimburion/postsvc/pkg/observability/logger"
	"github.com/nimburion/postsvc/pkg/observability/tracing"
	"github.com/nimburion/postsvc/pkg/version"
)

// LifecycleHook defines a named startup/shutdown action.
type LifecycleHook struct {
	Name string
	Fn   func(context.Context) error
}

// RunOptions defines inputs for Run.
type RunOptions struct {
	Config  *config.Config
	Handler http.Handler
	Logger  logger.Logger

	StartupHooks        []LifecycleHook
	ShutdownHooks       []LifecycleHook
	ShutdownHookTimeout time.Duration

	// OnReady, if set, receives the server once it listens.
	OnReady func(*Server)
}

// NewFromConfig builds a Server from the HTTP section of cfg, loading TLS material
// when a certificate pair is configured.
func NewFromConfig(cfg config.HTTPConfig, handler http.Handler, log logger.Logger) (*Server, error) {
	srvCfg := Config{
		Address:         cfg.Address(),
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		IdleTimeout:     cfg.IdleTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}
	if cfg.TLSEnabled() {
		tlsConfig, err := LoadTLSConfig(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			return nil, err
		}
		srvCfg.TLSConfig = tlsConfig
	}
	return NewServer(srvCfg, handler, log), nil
}

// Run initializes tracing, runs the startup hooks, serves until ctx is cancelled or
// the server fails, and runs the shutdown hooks.
func Run(ctx context.Context, opts *RunOptions) error {
	if opts == nil || opts.Config == nil {
		return errors.New("config is required")
	}
	if opts.Logger == nil {
		return errors.New("logger is required")
	}
	if opts.Handler == nil {
		return errors.New("handler is required")
	}

	info := version.Current(opts.Config.Service.Name)
	opts.Logger.Info("application version metadata", info.LogFields()...)

	tracerProvider, err := initTracerProvider(ctx, opts.Config, info)
	if err != nil {
		return fmt.Errorf("initialize tracing provider: %w", err)
	}
	defer shutdownTracerProvider(tracerProvider, opts.Logger)

	srv, err := NewFromConfig(opts.Config.HTTP, opts.Handler, opts.Logger)
	if err != nil {
		return err
	}

	if err := runStartupHooks(ctx, opts); err != nil {
		return err
	}
	defer func() {
		if shutdownErr := runShutdownHooks(opts); shutdownErr != nil {
			opts.Logger.Error("shutdown hooks completed with errors", "error", shutdownErr)
		}
	}()

	if opts.OnReady != nil {
		go func() {
			select {
			case <-srv.Ready():
				opts.OnReady(srv)
			case <-ctx.Done():
			}
		}()
	}

	return srv.Start(ctx)
}

// RunWithSignals runs until ctx is cancelled or the process receives SIGINT,
// SIGTERM or one of the given signals.
func RunWithSignals(ctx context.Context, opts *RunOptions, signals ...os.Signal) error {
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	ctx, stop := signal.NotifyContext(ctx, signals...)
	defer stop()
	return Run(ctx, opts)
}

func initTracerProvider(ctx context.Context, cfg *config.Config, info version.Info) (*tracing.TracerProvider, error) {
	return tracing.NewTracerProvider(ctx, tracing.TracerConfig{
		ServiceName:    info.Service,
		ServiceVersion: info.Version,
		Environment:    normalizeEnvironment(cfg.Service.Environment),
		Endpoint:       cfg.Observability.TracingEndpoint,
		SampleRate:     cfg.Observability.TracingSampleRate,
		Enabled:        cfg.Observability.TracingEnabled,
	})
}

func shutdownTracerProvider(provider *tracing.TracerProvider, log logger.Logger) {
	if provider == nil {
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := provider.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown tracing provider", "error", err)
	}
}

func normalizeEnvironment(env string) string {
	trimmed := strings.TrimSpace(env)
	if trimmed == "" {
		return version.Unknown
	}
	return trimmed
}

func hookName(name string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return "unnamed"
}

func runStartupHooks(ctx context.Context, opts *RunOptions) error {
	for _, hook := range opts.StartupHooks {
		if hook.Fn == nil {
			continue
		}
		name := hookName(hook.Name)
		opts.Logger.Info("startup hook start", "hook", name)
		if err := hook.Fn(ctx); err != nil {
			opts.Logger.Error("startup hook failed", "hook", name, "error", err)
			return fmt.Errorf("startup hook %q failed: %w", name, err)
		}
		opts.Logger.Info("startup hook complete", "hook", name)
	}
	return nil
}

func runShutdownHooks(opts *RunOptions) error {
	if len(opts.ShutdownHooks) == 0 {
		return nil
	}

	timeout := opts.ShutdownHookTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var errs []error
	for _, hook := range opts.ShutdownHooks {
		if hook.Fn == nil {
			continue
		}
		name := hookName(hook.Name)
		opts.Logger.Info("shutdown hook start", "hook", name)

		hookCtx, cancel := context.WithTimeout(context.Background(), timeout)
		err := hook.Fn(hookCtx)
		cancel()

		if err != nil {
			opts.Logger.Error("shutdown hook failed", "hook", name, "error", err)
			errs = append(errs, fmt.Errorf("shutdown hook %q failed: %w", name, err))
			continue
		}
		opts.Logger.Info("shutdown hook complete", "hook", name)
	}
	return errors.Join(errs...)
}
