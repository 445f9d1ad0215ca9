// Package app wires configuration, storage and the HTTP server together.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/coffee-desk/internal/domain/account"
	"github.com/xenking/coffee-desk/internal/domain/order"
	"github.com/xenking/coffee-desk/internal/handler"
	"github.com/xenking/coffee-desk/internal/session"
	"github.com/xenking/coffee-desk/pkg/health"
	"github.com/xenking/coffee-desk/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the API server.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("timezone", cfg.Timezone),
	)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	store, err := OpenStorage(ctx, lg, cfg.Storage, loc)
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer store.Close()

	healthSvc := newHealth(store)
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	api, err := newHandler(ctx, lg, cfg, loc, store, healthSvc, providers{
		meter:  m.MeterProvider(),
		tracer: m.TracerProvider(),
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           api,
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

type providers struct {
	meter  metric.MeterProvider
	tracer trace.TracerProvider
}

func newHealth(store *Storage) *health.Health {
	h := health.New()
	h.AddReadinessCheck("orders", 5*time.Second, health.PingCheck(store.Orders))
	h.AddReadinessCheck("accounts", 5*time.Second, health.PingCheck(store.Accounts))
	h.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	return h
}

// newHandler builds the API handler with probes and the middleware chain.
// Background cleanup goroutines stop when ctx is done.
func newHandler(
	ctx context.Context,
	lg *zap.Logger,
	cfg *Config,
	loc *time.Location,
	store *Storage,
	healthSvc *health.Health,
	p providers,
) (http.Handler, error) {
	orders := order.NewStore(store.Orders)
	loginLimiter := httpmiddleware.NewLimiter(cfg.Login.MaxAttempts, cfg.Login.Window)
	go loginLimiter.RunCleanup(ctx)
	sessions := session.NewManager(cfg.Session.IdleTTL)
	go sessions.RunCleanup(ctx)

	h, err := handler.New(
		handler.Config{Location: loc, MaxUploadBytes: cfg.MaxUploadBytes},
		handler.Deps{
			Accounts:     account.NewRegistry(store.Accounts),
			Sessions:     sessions,
			Orders:       orders,
			Placer:       order.NewService(orders, loc),
			LoginLimiter: loginLimiter,
		},
		p.meter.Meter("coffee-desk"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create handler")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)

	return otelhttp.NewHandler(
		httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:  cfg.CORS.Origins,
				AllowHeaders:  []string{"Content-Type", "Authorization"},
				ExposeHeaders: []string{httpmiddleware.HeaderRequestID, "Content-Disposition"},
				MaxAge:        86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.LogRequests(),
		),
		"coffee-api",
		otelhttp.WithTracerProvider(p.tracer),
		otelhttp.WithMeterProvider(p.meter),
	), nil
}
