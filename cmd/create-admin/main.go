// Command create-admin creates the first verified admin account for
// INIT_ADMIN_EMAIL and prints its temporary credentials.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/BradenHooton/gamegate/internal/auth"
	"github.com/BradenHooton/gamegate/internal/config"
	"github.com/BradenHooton/gamegate/internal/mail"
	"github.com/BradenHooton/gamegate/internal/services"
	"github.com/BradenHooton/gamegate/internal/storage"
	pkglogger "github.com/BradenHooton/gamegate/pkg/logger"
)

func main() {
	if err := run(os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "create-admin:", err)
		os.Exit(1)
	}
}

func run(out io.Writer) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	email := flag.String("email", cfg.Admin.InitialEmail, "admin email address")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close(context.Background())

	renderer, err := mail.NewRenderer()
	if err != nil {
		return err
	}
	// No mail is sent; credentials are printed instead.
	mailer := mail.NewDispatcher(renderer, mail.NewLogTransport(logger), cfg.Email.From, cfg.Email.FromName, logger)

	svc := services.NewAuthService(
		store.Accounts,
		mailer,
		auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTExpiry),
		services.DefaultAuthPolicy(),
		nil,
		logger,
		pkglogger.NewAuditLogger(logger),
	)

	result, err := svc.BootstrapAdmin(ctx, *email)
	if err != nil {
		return err
	}

	if !result.Created {
		fmt.Fprintln(out, "An admin account already exists; nothing to do.")
		return nil
	}

	fmt.Fprintln(out, "Admin account created.")
	fmt.Fprintf(out, "  email:    %s\n", result.Account.Email)
	fmt.Fprintf(out, "  username: %s\n", result.Account.Username)
	fmt.Fprintf(out, "  password: %s\n", result.TemporaryPassword)
	fmt.Fprintln(out, "Sign in and change this password immediately.")
	return nil
}
