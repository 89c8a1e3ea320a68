// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/api"
	"github.com/starford/ansuz/internal/build"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/sitedb"
	"github.com/starford/ansuz/internal/siteservice"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/watch"
)

// ErrBuildHasProblems is returned by Build in strict mode when the build
// produced diagnostics or failed documents.
var ErrBuildHasProblems = errors.New("build reported problems")

// services holds the collaborators shared by every entrypoint.
type services struct {
	app    *application
	cfg    *Config
	logger *slog.Logger
	db     *sitedb.DB
	svc    *siteservice.Service
}

func setup(opts []Option) (*services, error) {
	app := &application{version: "dev"}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	out := app.logOutput
	if out == nil {
		out = os.Stdout
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("output_path", cfg.Output.Path),
		slog.String("media_manifest", cfg.Media.Manifest),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	vault, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init vault storage: %w", err)
	}

	// Ensure output directory exists.
	if err := os.MkdirAll(cfg.Output.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	output, err := storage.NewFS(cfg.Output.Path)
	if err != nil {
		return nil, fmt.Errorf("init output storage: %w", err)
	}

	builder, err := build.New(cfg.Build, logger)
	if err != nil {
		return nil, fmt.Errorf("init builder: %w", err)
	}

	db, err := sitedb.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	svc := siteservice.NewService(siteservice.Config{
		Builder:       builder,
		Vault:         vault,
		Output:        output,
		DB:            db,
		MediaManifest: cfg.Media.Manifest,
		Logger:        logger,
	})

	return &services{app: app, cfg: cfg, logger: logger, db: db, svc: svc}, nil
}

func (rt *services) close() {
	if err := rt.db.Close(); err != nil {
		rt.logger.Warn("database close failed", slog.String("error", err.Error()))
	}
}

// watchOptions keeps build artifacts that live inside the vault from
// triggering rebuilds.
func (rt *services) watchOptions() watch.Options {
	return watch.Options{
		Debounce:   rt.cfg.Watch.Debounce,
		Ignore:     []string{rt.cfg.Output.Path, rt.cfg.SQLite.Path},
		Extensions: []string{".md"},
	}
}

func summary(m *models.Manifest, changes []watch.Change) sse.BuildSummary {
	sum := sse.BuildSummary{
		BuildID:     m.BuildID,
		Documents:   len(m.Documents),
		Failed:      m.Failed(),
		Diagnostics: len(m.Diagnostics),
		Edges:       len(m.Graph),
	}
	for _, d := range m.Diagnostics {
		if sum.ByKind == nil {
			sum.ByKind = make(map[string]int)
		}
		sum.ByKind[string(d.Kind)]++
	}
	var edges strings.Builder
	for _, e := range m.Graph {
		fmt.Fprintf(&edges, "%s>%s:%s\n", e.Source, e.Target, e.Kind)
	}
	sum.GraphDigest = checksum.SumString(edges.String())
	for _, c := range changes {
		sum.Changed = append(sum.Changed, c.Path)
	}
	return sum
}

// Build compiles the vault once and writes the output tree and database.
func Build(ctx context.Context, opts ...Option) error {
	rt, err := setup(opts)
	if err != nil {
		return err
	}
	defer rt.close()

	m, err := rt.svc.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	for _, d := range m.Diagnostics {
		rt.logger.Warn("diagnostic",
			slog.String("kind", string(d.Kind)),
			slog.String("document", d.DocumentPath),
			slog.String("raw", d.Raw),
			slog.String("detail", d.Detail))
	}
	if rt.app.strict && (len(m.Diagnostics) > 0 || m.Failed() > 0) {
		return fmt.Errorf("%w: %d diagnostics, %d failed documents", ErrBuildHasProblems, len(m.Diagnostics), m.Failed())
	}
	return nil
}

// Watch compiles the vault, then recompiles it whenever it changes until ctx
// is cancelled or a shutdown signal arrives.
func Watch(ctx context.Context, opts ...Option) error {
	rt, err := setup(opts)
	if err != nil {
		return err
	}
	defer rt.close()

	if _, err := rt.svc.Rebuild(ctx); err != nil {
		rt.logger.Warn("initial build failed", slog.String("error", err.Error()))
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return watch.Watch(ctx, rt.cfg.Vault.Path, rt.watchOptions(), rt.logger, func(ctx context.Context, changes []watch.Change) error {
		_, err := rt.svc.Rebuild(ctx)
		return err
	})
}

// Serve compiles the vault and starts the preview server: the compiled site,
// the read-only API with server-sent build events, and a watcher that
// rebuilds on change.
func Serve(ctx context.Context, opts ...Option) error {
	rt, err := setup(opts)
	if err != nil {
		return err
	}
	defer rt.close()

	cfg := rt.cfg
	logger := rt.logger

	// Run initial build.
	if _, err := rt.svc.Rebuild(ctx); err != nil {
		logger.Warn("initial build failed", slog.String("error", err.Error()))
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	apiRouter := api.NewRouter(rt.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if rt.svc.Last() == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"building"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	// Compiled site.
	r.Handle("/*", api.NewSiteHandler(cfg.Output.Path))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start vault watcher; every rebuild is announced over SSE.
	g.Go(func() error {
		return watch.Watch(gCtx, cfg.Vault.Path, rt.watchOptions(), logger, func(ctx context.Context, changes []watch.Change) error {
			paths := make([]string, 0, len(changes))
			for _, c := range changes {
				paths = append(paths, c.Path)
			}
			seq := broker.Started(paths)
			m, err := rt.svc.Rebuild(ctx)
			if err != nil {
				broker.Failed(seq, err)
				return err
			}
			broker.Finished(seq, summary(m, changes))
			return nil
		})
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// MCP compiles the vault and serves the build results over MCP on stdio.
func MCP(ctx context.Context, opts ...Option) error {
	rt, err := setup(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	defer rt.close()

	if _, err := rt.svc.Rebuild(ctx); err != nil {
		rt.logger.Warn("initial build failed", slog.String("error", err.Error()))
	}

	srv := mcpserver.New(rt.svc, rt.app.version)
	rt.logger.Info("MCP server starting on stdio")
	return srv.ServeStdio()
}
