package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/redis/go-redis/v9"

	"griefpulse/internal/charts"
	"griefpulse/internal/config"
	apierrors "griefpulse/internal/errors"
	"griefpulse/internal/infrastructure"
	"griefpulse/internal/loader"
	customMiddleware "griefpulse/internal/middleware"
	"griefpulse/internal/services"
	handlers "griefpulse/internal/transport/http"
	ws "griefpulse/internal/websocket"
)

// Application represents the main application container
type Application struct {
	Config           *config.Config
	Build            services.BuildInfo
	Router           *chi.Mux
	Server           *http.Server
	Logger           *slog.Logger
	OTelProviders    *infrastructure.OTelProviders
	Metrics          *infrastructure.Metrics
	WebSocketHub     *ws.Hub
	DashboardService *services.DashboardService
	HealthService    *services.HealthService
	ErrorHandler     *apierrors.ErrorHandler

	redis         *redis.Client
	stopRefresher context.CancelFunc
	refresherDone chan struct{}
}

// NewApplication creates the application from cfg
func NewApplication(cfg *config.Config, build services.BuildInfo) (*Application, error) {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if build.Version != "" {
		cfg.Telemetry.ServiceVersion = build.Version
	}
	otelProviders, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	metrics, err := infrastructure.NewMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Build:         build,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Security.Development),
	}

	if err := a.initializeServices(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	a.setupRouter()
	a.createServer()

	logger.Info("application initialized",
		slog.String("version", build.Version),
		slog.String("source", cfg.Source.Location),
		slog.Int("port", cfg.Server.Port))
	return a, nil
}

// initializeServices builds the loader chain, the dashboard service and the hub
func (a *Application) initializeServices(ctx context.Context) error {
	cfg := a.Config

	var cache loader.ByteCache = loader.NewMemoryCache()
	if cfg.Cache.RedisAddr != "" {
		client, err := loader.NewRedisClient(ctx, cfg.Cache.RedisAddr)
		if err != nil {
			return fmt.Errorf("redis cache: %w", err)
		}
		a.redis = client
		cache = loader.NewRedisCache(client)
	}

	resolver := loader.Resolver{
		HTTPClient: &http.Client{Timeout: cfg.Source.HTTPTimeout},
		Cache:      cache,
		CacheTTL:   cfg.Source.RefreshInterval,
	}
	if cfg.Sheets.Enabled() {
		client, err := loader.NewSheetsClient(ctx, loader.SheetsConfig{
			APIKey:          cfg.Sheets.APIKey,
			CredentialsFile: cfg.Sheets.CredentialsFile,
		})
		if err != nil {
			return fmt.Errorf("google sheets: %w", err)
		}
		resolver.Sheets = client
	}

	opts, err := services.OptionsFromConfig(cfg.Source)
	if err != nil {
		return err
	}
	ld := loader.New(loader.Options{Sheet: cfg.Source.Sheet, MaxBytes: cfg.Source.MaxUploadBytes}, a.Logger)
	a.DashboardService = services.NewDashboardService(opts, ld, resolver, charts.NewRenderer(0, 0), a.Metrics, a.Logger)

	a.WebSocketHub = ws.NewHub(a.Logger)
	a.HealthService = services.NewHealthService(a.Build, a.DashboardService, a.WebSocketHub, a.Logger)
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	cfg := a.Config
	r := chi.NewRouter()

	// Middleware that does not wrap the ResponseWriter, safe for /ws
	r.Use(customMiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	r.Get("/ws", ws.Handler(a.WebSocketHub, cfg.WebSocket, cfg.Security.AllowedOrigins, cfg.Security.Development, a.Logger))
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer → Security → CORS → RateLimit → Timeout
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.ErrorHandler))
		r.Use(customMiddleware.SecurityHeaders(cfg.Security.Development))
		if cfg.Security.EnableCORS {
			r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{AllowedOrigins: cfg.Security.AllowedOrigins}))
		}
		if cfg.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(cfg.Security.RateLimit.RPS, cfg.Security.RateLimit.Burst, a.ErrorHandler, a.Logger).Handler)
		}
		r.Use(customMiddleware.Timeout(cfg.Server.RequestTimeout))

		a.setupAPIRoutes(r)
		a.setupHTMLRoutes(r)
	})

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)
	a.Router = r
}

// setupAPIRoutes configures the JSON, chart and export endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/version", healthHandler.Version)

		dashboardHandler := handlers.NewDashboardHandler(a.DashboardService, a.Config.Source.MaxUploadBytes, a.Logger, a.ErrorHandler)
		r.Mount("/datasets", dashboardHandler.Routes())
	})
}

// setupHTMLRoutes configures the dashboard pages and the upload form target
func (a *Application) setupHTMLRoutes(r chi.Router) {
	limit := a.Config.Security.UploadRateLimit
	pageHandler := handlers.NewPageHandler(a.DashboardService, a.Config.Source.MaxUploadBytes, a.Logger)
	uploadHandler := handlers.NewDashboardHandler(a.DashboardService, a.Config.Source.MaxUploadBytes, a.Logger, a.ErrorHandler)

	r.Get("/", pageHandler.Dashboard)
	r.Get("/datasets/{id}", pageHandler.Dashboard)
	r.With(httprate.Limit(limit.Requests, limit.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			a.ErrorHandler.HandleError(w, r, apierrors.ErrRateLimitExceeded)
		}),
	)).Post("/datasets", uploadHandler.Upload)
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start launches the hub, the optional refresher and the HTTP server.
// cancel is called if the server stops unexpectedly.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.WebSocketHub.Start()

	if a.Config.Source.AutoRefresh && a.Config.Source.Location != "" {
		refreshCtx, stop := context.WithCancel(ctx)
		a.stopRefresher = stop
		a.refresherDone = make(chan struct{})
		refresher := services.NewRefresher(a.DashboardService, a.WebSocketHub, a.Config.Source.RefreshInterval, a.Logger)
		go func() {
			defer close(a.refresherDone)
			refresher.Run(refreshCtx)
		}()
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}

	if a.stopRefresher != nil {
		a.stopRefresher()
		<-a.refresherDone
	}
	a.WebSocketHub.Stop()

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "error shutting down OpenTelemetry", slog.String("error", err.Error()))
	}
	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, fmt.Errorf("log file: %w", err))
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return errors.Join(errs...)
}

// Run runs the application until SIGINT or SIGTERM
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.InfoContext(ctx, "received signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
	}
	return a.Stop(ctx)
}

