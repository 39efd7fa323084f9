package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/gamegate/internal/auth"
	"github.com/BradenHooton/gamegate/internal/mail"
	"github.com/BradenHooton/gamegate/internal/models"
	pkgauth "github.com/BradenHooton/gamegate/pkg/auth"
	pkglogger "github.com/BradenHooton/gamegate/pkg/logger"
)

// PasswordResetService issues and redeems emailed reset links.
type PasswordResetService struct {
	repo        AccountRepository
	mailer      EmailDispatcher
	tokenTTL    time.Duration
	frontendURL string
	timingDelay *auth.TimingDelay
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

func NewPasswordResetService(
	repo AccountRepository,
	mailer EmailDispatcher,
	tokenTTL time.Duration,
	frontendURL string,
	timingDelay *auth.TimingDelay,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *PasswordResetService {
	return &PasswordResetService{
		repo:        repo,
		mailer:      mailer,
		tokenTTL:    tokenTTL,
		frontendURL: frontendURL,
		timingDelay: timingDelay,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// ForgotPassword emails a reset link when email belongs to a verified
// account. The caller always gets the same answer, so delivery problems are
// only logged.
func (s *PasswordResetService) ForgotPassword(ctx context.Context, email string) error {
	start := time.Now()
	defer s.timingDelay.WaitFrom(start)

	email = normalizeIdentifier(email)

	acct, err := s.repo.GetSecurityByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.auditLogger.LogPasswordEvent(ctx, pkglogger.AuditEvent{
				EventType:     pkglogger.EventPasswordResetReq,
				Identifier:    email,
				FailureReason: "unknown_account",
			})
			return nil
		}
		s.logger.Error("failed to look up account for reset", slog.Any("error", err))
		return fmt.Errorf("get account: %w", err)
	}
	if !acct.IsVerified {
		return nil
	}

	raw, digest, err := pkgauth.GenerateResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	if err := s.repo.SetResetToken(ctx, acct.ID, digest, s.now().Add(s.tokenTTL)); err != nil {
		s.logger.Error("failed to store reset token", slog.String("account_id", acct.ID), slog.Any("error", err))
		return fmt.Errorf("store reset token: %w", err)
	}

	s.auditLogger.LogPasswordEvent(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventPasswordResetReq,
		AccountID: acct.ID,
		Success:   true,
	})

	err = s.mailer.Send(ctx, acct.Email, subjectReset, mail.TemplateResetPassword, map[string]any{
		"name":       acct.FirstName,
		"action_url": s.frontendURL + "/reset-password/" + raw,
	})
	if err != nil {
		s.logger.Warn("reset email not delivered", slog.String("account_id", acct.ID), slog.Any("error", err))
	}
	return nil
}

// ResetPassword redeems a reset token. A token works once.
func (s *PasswordResetService) ResetPassword(ctx context.Context, token, newPassword, confirm string) error {
	if newPassword != confirm {
		return models.ErrPasswordMismatch
	}

	now := s.now()
	digest := pkgauth.DigestToken(token)

	acct, err := s.repo.GetSecurityByResetDigest(ctx, digest, now)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.auditLogger.LogPasswordEvent(ctx, pkglogger.AuditEvent{
				EventType:     pkglogger.EventPasswordReset,
				FailureReason: "invalid_token",
			})
			return models.ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("get account: %w", err)
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.repo.ConsumeResetToken(ctx, acct.ID, digest, hash, now.Add(-time.Second), now); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("consume reset token: %w", err)
	}

	s.logger.Info("password reset", slog.String("account_id", acct.ID))
	s.auditLogger.LogPasswordEvent(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventPasswordReset,
		AccountID: acct.ID,
		Success:   true,
	})
	return nil
}
