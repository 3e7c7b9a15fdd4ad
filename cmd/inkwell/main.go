// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"inkwell/internal/config"
	"inkwell/internal/handler"
	"inkwell/internal/logging"
	"inkwell/internal/middleware"
	"inkwell/internal/render"
	"inkwell/internal/service"
	"inkwell/internal/session"
	"inkwell/internal/store"
	"inkwell/internal/version"
	"inkwell/web"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Inkwell - a small blogging application\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  INKWELL_SESSION_SECRET    Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  INKWELL_DB_PATH           SQLite database path (default: ./data/inkwell.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  INKWELL_SERVER_PORT       Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  INKWELL_ENV               Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  INKWELL_DO_SEED           Seed demo posts into an empty database (default: false)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		info := version.Info{Version: appVersion, GitCommit: appGitCommit, BuildTime: appBuildTime}
		_, _ = fmt.Printf("inkwell %s\n", info)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Ensure data directory exists
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	// Initialize database
	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	// Run migrations
	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the event log table
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	eventLogHandler := logging.NewEventLogHandler(textHandler, db)
	logger = slog.New(eventLogHandler)
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	// Seed demo content if enabled
	ctx := context.Background()
	if err := store.SeedDemo(ctx, db, cfg.DoSeed); err != nil {
		return fmt.Errorf("seeding demo content: %w", err)
	}

	// Initialize session manager
	sessionManager := session.New(db, cfg.IsDevelopment())
	slog.Info("session manager initialized")

	// Initialize template renderer
	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("getting templates fs: %w", err)
	}

	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sessionManager,
		IsDev:          cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}
	slog.Info("template renderer initialized")

	eventService := service.NewEventService(db)
	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())

	// Handlers
	authHandler := handler.NewAuthHandler(db, renderer, sessionManager, loginProtection)
	blogHandler := handler.NewBlogHandler(db, renderer)
	postsHandler := handler.NewPostsHandler(db, renderer)
	healthHandler := handler.NewHealthHandler(db)

	// Router
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))                    // Gzip compression with level 5
	r.Use(chimw.GetHead)                        // Handle HEAD requests for uptime monitoring
	r.Use(middleware.Timeout(30 * time.Second)) // 30 second request timeout
	r.Use(middleware.StripTrailingSlash)        // Redirect /path/ to /path (301)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	r.Use(middleware.RequestPath)
	r.Use(sessionManager.LoadAndSave)

	csrfMiddleware := middleware.CSRF(middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment()))
	publicRateLimiter := middleware.NewGlobalRateLimiter(10.0, 20)

	// Public routes
	r.Group(func(r chi.Router) {
		r.Use(publicRateLimiter.Middleware())
		r.Use(csrfMiddleware)
		r.Use(middleware.LoadUser(sessionManager, db))

		r.Get(handler.RouteRoot, blogHandler.Index)
		r.Get(handler.RoutePost, blogHandler.Show)
		r.Post(handler.RoutePost, blogHandler.Comment)
		r.Get(handler.RouteBlogSlug, blogHandler.ShowBySlug)
		r.Get(handler.RouteAbout, blogHandler.About)
		r.Get(handler.RouteContact, blogHandler.Contact)

		r.Get(handler.RouteRegister, authHandler.RegisterForm)
		r.Post(handler.RouteRegister, authHandler.Register)

		r.Group(func(r chi.Router) {
			r.Use(loginProtection.Middleware())
			r.Get(handler.RouteLogin, authHandler.LoginForm)
			r.Post(handler.RouteLogin, authHandler.Login)
		})

		r.Get(handler.RouteLogout, authHandler.Logout)
		r.Post(handler.RouteLogout, authHandler.Logout)
	})

	// Admin-only post authoring routes
	r.Group(func(r chi.Router) {
		r.Use(csrfMiddleware)
		r.Use(middleware.LoadUser(sessionManager, db))
		r.Use(middleware.RequireAdminWithEventLog(eventService))

		r.Get(handler.RouteNewPost, postsHandler.NewForm)
		r.Post(handler.RouteNewPost, postsHandler.Create)
		r.Get(handler.RouteEditPost, postsHandler.EditForm)
		r.Post(handler.RouteEditPost, postsHandler.Update)
		r.Get(handler.RouteDeletePost, postsHandler.Delete)
	})

	r.Get(handler.RouteHealth, healthHandler.Health)

	// Static assets
	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		return fmt.Errorf("getting static fs: %w", err)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// HTTP server with sensible timeouts
	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
