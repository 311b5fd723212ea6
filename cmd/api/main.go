package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calebmartin/daybook/internal/auth"
	"github.com/calebmartin/daybook/internal/config"
	"github.com/calebmartin/daybook/internal/database"
	"github.com/calebmartin/daybook/internal/handlers"
	middlewareCustom "github.com/calebmartin/daybook/internal/middleware"
	"github.com/calebmartin/daybook/internal/models"
	"github.com/calebmartin/daybook/internal/repositories"
	"github.com/calebmartin/daybook/internal/routes"
	"github.com/calebmartin/daybook/internal/services"
	pkgauth "github.com/calebmartin/daybook/pkg/auth"
	pkghttp "github.com/calebmartin/daybook/pkg/http"
	pkglogger "github.com/calebmartin/daybook/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Apply schema migrations
	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Migrate(migrateCtx); err != nil {
		migrateCancel()
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	migrateCancel()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	auditRepo := repositories.NewAuditLogRepository(db)

	// Session codec. The edge verifier half of it is all the request
	// gate needs; issuance stays behind the authentication service.
	sessionManager := auth.NewSessionManager(cfg.Auth.SessionSecret, cfg.Auth.SessionExpiry)

	lockoutPolicy := auth.LockoutPolicy{
		MaxAttempts: cfg.Auth.MaxLoginAttempts,
		Duration:    cfg.Auth.LockoutDuration,
	}

	auditService := services.NewAuditService(auditRepo, pkglogger.NewAuditLogger(logger), logger)

	// Approval notifications via AWS SES, optional
	var notifier services.ApprovalNotifier
	if cfg.Email.Enabled {
		emailService, err := services.NewAWSSESEmailService(
			cfg.Email.AWSRegion,
			cfg.Email.FromAddress,
			cfg.Email.AppBaseURL,
			logger,
		)
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
		notifier = emailService
	}

	// Initialize services
	authService := services.NewAuthService(userRepo, sessionManager, lockoutPolicy, auditService, logger)
	userService := services.NewUserService(userRepo, auditService, logger)
	adminService := services.NewAdminService(userRepo, auditService, notifier, logger)

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}}
	cookieConfig := auth.CookieConfig{
		Domain:   cfg.Server.CookieDomain,
		Secure:   cfg.Server.Env == "production",
		SameSite: "strict",
	}
	authHandler := handlers.NewAuthHandler(authService, ipConfig, cookieConfig, cfg.Auth.SessionExpiry)
	userHandler := handlers.NewUserHandler(userService, ipConfig)
	adminHandler := handlers.NewAdminHandler(adminService, ipConfig)

	// Bootstrap first admin user if configured
	bootstrapCtx, bootstrapCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminUser(bootstrapCtx, userRepo, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	bootstrapCancel()

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Edge authorization runs before every handler using only the
	// signing key, never the database
	router.Use(auth.RequestGate(sessionManager.EdgeVerifier))

	routes.RegisterRoutes(router, authHandler, userHandler, adminHandler)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureAdminUser creates the first admin user if ADMIN_USERNAME and ADMIN_PASSWORD are set
func ensureAdminUser(ctx context.Context, userRepo *repositories.UserRepository, logger *slog.Logger) error {
	adminUsername := os.Getenv("ADMIN_USERNAME")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminUsername == "" || adminPassword == "" {
		logger.Info("no ADMIN_USERNAME or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	count, err := userRepo.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return fmt.Errorf("failed to check for existing admins: %w", err)
	}
	if count > 0 {
		logger.Info("admin user already exists")
		return nil
	}

	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.User{
		Username:     adminUsername,
		PasswordHash: hashedPassword,
		DisplayName:  "Admin",
		Role:         models.RoleAdmin,
		IsActive:     true,
	}

	if _, err := userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user created successfully")
	return nil
}
