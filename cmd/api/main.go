package main

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

	"github.com/BradenHooton/gamegate/internal/auth"
	"github.com/BradenHooton/gamegate/internal/background"
	"github.com/BradenHooton/gamegate/internal/config"
	"github.com/BradenHooton/gamegate/internal/handlers"
	"github.com/BradenHooton/gamegate/internal/mail"
	middlewareCustom "github.com/BradenHooton/gamegate/internal/middleware"
	"github.com/BradenHooton/gamegate/internal/routes"
	"github.com/BradenHooton/gamegate/internal/services"
	"github.com/BradenHooton/gamegate/internal/storage"
	pkghttp "github.com/BradenHooton/gamegate/pkg/http"
	pkglogger "github.com/BradenHooton/gamegate/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("store", cfg.Database.Driver),
		slog.String("email_provider", cfg.Email.Provider),
	)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := storage.Open(startupCtx, cfg, logger)
	if err != nil {
		startupCancel()
		logger.Error("failed to open store", slog.Any("error", err))
		os.Exit(1)
	}

	mailer, err := newMailer(startupCtx, &cfg.Email, logger)
	startupCancel()
	if err != nil {
		logger.Error("failed to initialize email", slog.Any("error", err))
		os.Exit(1)
	}

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTExpiry)
	timingDelay := auth.NewTimingDelay(cfg.Auth.TimingBaseDelay, cfg.Auth.TimingJitter)
	auditLogger := pkglogger.NewAuditLogger(logger)

	authService := services.NewAuthService(
		store.Accounts,
		mailer,
		tokenManager,
		authPolicy(cfg),
		timingDelay,
		logger,
		auditLogger,
	)
	resetService := services.NewPasswordResetService(
		store.Accounts,
		mailer,
		cfg.Auth.ResetTokenTTL,
		cfg.Email.FrontendURL,
		timingDelay,
		logger,
		auditLogger,
	)
	gameResultService := services.NewGameResultService(store.Games, logger)

	h := routes.Handlers{
		Auth:   handlers.NewAuthHandler(authService, resetService, logger),
		Games:  handlers.NewGameResultHandler(gameResultService, logger),
		System: handlers.NewSystemHandler(store, store.Driver),
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.RequestInfo(&pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}))
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	routes.RegisterRoutes(router, h, tokenManager, store.Accounts)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	cleanupManager := background.NewCleanupManager(store.Accounts, logger, cfg.Auth.CleanupInterval)
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	if err := store.Close(shutdownCtx); err != nil {
		logger.Error("store close error", slog.Any("error", err))
	}

	logger.Info("server stopped gracefully")
}

func authPolicy(cfg *config.Config) services.AuthPolicy {
	return services.AuthPolicy{
		LoginOTPTTL:          cfg.Auth.LoginOTPTTL,
		MaxLoginOTPAttempts:  cfg.Auth.MaxLoginOTPAttempts,
		RegistrationOTPTTL:   cfg.Auth.RegistrationOTPTTL,
		UnverifiedAccountTTL: cfg.Auth.UnverifiedAccountTTL,
		MaxLoginAttempts:     cfg.Auth.MaxLoginAttempts,
		LockoutDuration:      cfg.Auth.LockoutDuration,
		DashboardURL:         cfg.Email.ClientURL + "/dashboard",
	}
}

// newMailer builds the template dispatcher on the configured transport.
func newMailer(ctx context.Context, cfg *config.EmailConfig, logger *slog.Logger) (*mail.Dispatcher, error) {
	renderer, err := mail.NewRenderer()
	if err != nil {
		return nil, err
	}

	var transport mail.Transport
	switch cfg.Provider {
	case config.EmailProviderSES:
		ses, err := mail.NewSESTransport(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		transport = ses
	case config.EmailProviderSMTP:
		transport = mail.NewSMTPTransport(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	case config.EmailProviderLog:
		logger.Warn("email provider is log; messages are written to the log instead of sent")
		transport = mail.NewLogTransport(logger)
	default:
		return nil, fmt.Errorf("unsupported email provider %q", cfg.Provider)
	}

	return mail.NewDispatcher(renderer, transport, cfg.From, cfg.FromName, logger), nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
