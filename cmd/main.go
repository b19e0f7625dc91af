package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/kartboard/internal/adapters/http/api"
	"github.com/okian/kartboard/internal/adapters/http/live"
	"github.com/okian/kartboard/internal/adapters/identity"
	"github.com/okian/kartboard/internal/adapters/repository"
	"github.com/okian/kartboard/internal/adapters/storage"
	app "github.com/okian/kartboard/internal/app"
	"github.com/okian/kartboard/internal/config"
	"github.com/okian/kartboard/internal/domain/model"
	"github.com/okian/kartboard/internal/seed"
	"github.com/okian/kartboard/pkg/logger"
	"github.com/okian/kartboard/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Initialize logging
	if err := logger.Init(logger.WithFormat(logger.Format(cfg.LogFormat))); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, loggerInstance); err != nil {
		loggerInstance.Error(ctx, "server failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	fixture, err := loadFixture(cfg)
	if err != nil {
		return err
	}

	store, err := repository.Open(ctx, cfg.StoreDriver, cfg.MongoURI, fixture,
		repository.WithDatabase(cfg.MongoDatabase),
		repository.WithConnectTimeout(cfg.FetchTimeout()),
		repository.WithOfflineStart(),
		repository.WithMongoLogger(log.Named("store")),
	)
	if err != nil {
		return err
	}

	hub := live.NewHub(live.WithLogger(log.Named("live")), live.WithCheckOrigin(originChecker(cfg.AllowedOrigins())))
	defer hub.Close()

	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithNotifier(hub),
		app.WithFetchTimeout(cfg.FetchTimeout()),
		app.WithRefreshInterval(cfg.RefreshInterval()),
		app.WithMaxPhotoBytes(cfg.PhotosMaxBytes),
	}
	if cfg.StoreDriver == config.StoreMongo && cfg.SeedFile != "" {
		// Served while the store is unreachable.
		opts = append(opts, app.WithSeed(fixture))
	}
	uploader, err := newUploader(ctx, cfg)
	if err != nil {
		return err
	}
	if uploader != nil {
		opts = append(opts, app.WithUploader(uploader))
	}

	// Create and start the service; a failed first refresh is not fatal.
	svc := app.New(store, opts...)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop(context.Background())

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	apiOpts := []api.Option{
		api.WithLive(hub),
		api.WithAllowedOrigins(cfg.AllowedOrigins()),
		api.WithLogger(log.Named("api")),
	}
	if cfg.JWTSecret != "" {
		apiOpts = append(apiOpts, api.WithAuthenticator(identity.NewVerifier(cfg.JWTSecret,
			identity.WithIssuer(cfg.JWTIssuer),
			identity.WithAudience(cfg.JWTAudience),
		)))
	} else {
		log.Warn(ctx, "jwt_secret not set; authenticated routes are disabled")
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewServer(svc, apiOpts...).Handler(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("store", store.Name()))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info(ctx, "shutting down server...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// loadFixture reads the configured seed file, if any.
func loadFixture(cfg *config.Config) (model.Snapshot, error) {
	if cfg.SeedFile == "" {
		return model.Snapshot{}, nil
	}
	return seed.Load(cfg.SeedFile)
}

// newUploader returns nil when photo uploads are disabled.
func newUploader(ctx context.Context, cfg *config.Config) (storage.Uploader, error) {
	if !cfg.PhotosEnabled {
		return nil, nil
	}
	u, err := storage.NewS3Uploader(ctx, storage.S3Config{
		Endpoint:        cfg.PhotosEndpoint,
		Region:          cfg.PhotosRegion,
		Bucket:          cfg.PhotosBucket,
		AccessKeyID:     cfg.PhotosAccessKeyID,
		SecretAccessKey: cfg.PhotosSecretAccessKey,
		PublicBaseURL:   cfg.PhotosPublicBaseURL,
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// originChecker accepts websocket upgrades from the CORS origins. Requests
// without an Origin header come from non-browser clients.
func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed["*"] || allowed[origin]
	}
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		// Calculate average GC pause time
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
