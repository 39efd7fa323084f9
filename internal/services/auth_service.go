package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/gamegate/internal/auth"
	"github.com/BradenHooton/gamegate/internal/mail"
	"github.com/BradenHooton/gamegate/internal/models"
	pkgauth "github.com/BradenHooton/gamegate/pkg/auth"
	pkglogger "github.com/BradenHooton/gamegate/pkg/logger"
)

// AccountRepository is the account store. Conditional updates return
// models.ErrNotFound when their guard does not match.
type AccountRepository interface {
	Create(ctx context.Context, acct *models.AccountSecurity) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	AdminExists(ctx context.Context) (bool, error)

	GetSecurityByID(ctx context.Context, id string) (*models.AccountSecurity, error)
	GetSecurityByEmail(ctx context.Context, email string) (*models.AccountSecurity, error)
	GetSecurityByIdentifier(ctx context.Context, identifier string) (*models.AccountSecurity, error)
	GetSecurityByResetDigest(ctx context.Context, digest string, now time.Time) (*models.AccountSecurity, error)

	MarkVerified(ctx context.Context, id, otpHash string) error
	SetLoginOTP(ctx context.Context, id, hash string, expiresAt time.Time) error
	IncrementLoginOTPAttempts(ctx context.Context, id string) (int, error)
	ConsumeLoginOTP(ctx context.Context, id, hash string, maxAttempts int, now time.Time) error
	IncrementLoginAttempts(ctx context.Context, id string, threshold int, lockUntil, now time.Time) (*models.LockoutState, error)
	CompleteLogin(ctx context.Context, id string, now time.Time) error
	SetResetToken(ctx context.Context, id, digest string, expiresAt time.Time) error
	ConsumeResetToken(ctx context.Context, id, digest, passwordHash string, changedAt, now time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error
}

// EmailDispatcher renders a named template and delivers it.
type EmailDispatcher interface {
	Send(ctx context.Context, to, subject, templateKey string, data map[string]any) error
}

// SessionIssuer signs session tokens for authenticated accounts.
type SessionIssuer interface {
	IssueSessionToken(account *models.Account) (string, time.Time, error)
}

// AuthPolicy holds the lifetimes and thresholds of the login flow.
type AuthPolicy struct {
	LoginOTPTTL          time.Duration
	MaxLoginOTPAttempts  int
	RegistrationOTPTTL   time.Duration
	UnverifiedAccountTTL time.Duration
	MaxLoginAttempts     int
	LockoutDuration      time.Duration
	DashboardURL         string
}

// DefaultAuthPolicy returns the production thresholds.
func DefaultAuthPolicy() AuthPolicy {
	return AuthPolicy{
		LoginOTPTTL:          5 * time.Minute,
		MaxLoginOTPAttempts:  5,
		RegistrationOTPTTL:   10 * time.Minute,
		UnverifiedAccountTTL: 5 * time.Minute,
		MaxLoginAttempts:     5,
		LockoutDuration:      time.Hour,
	}
}

// Email subjects
const (
	subjectVerifyEmail = "Verify your email"
	subjectLoginOTP    = "Login OTP"
	subjectWelcome     = "Welcome to Satta King!"
	subjectReset       = "Reset Password"
)

// AuthService runs registration and the three-step login.
type AuthService struct {
	repo        AccountRepository
	mailer      EmailDispatcher
	sessions    SessionIssuer
	policy      AuthPolicy
	timingDelay *auth.TimingDelay
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

// NewAuthService creates a new AuthService. timingDelay may be nil.
func NewAuthService(
	repo AccountRepository,
	mailer EmailDispatcher,
	sessions SessionIssuer,
	policy AuthPolicy,
	timingDelay *auth.TimingDelay,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	return &AuthService{
		repo:        repo,
		mailer:      mailer,
		sessions:    sessions,
		policy:      policy,
		timingDelay: timingDelay,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// RegisterInput is a validated registration request.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// LoginResult is returned by a successful password step.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Account   *models.Account
}

// BootstrapResult describes the outcome of BootstrapAdmin.
type BootstrapResult struct {
	Created           bool
	Account           *models.Account
	TemporaryPassword string
}

func normalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func deliveryError(err error) error {
	return fmt.Errorf("%w: %w", models.ErrDeliveryFailed, err)
}

// Register creates an unverified admin account and emails its verification
// code. The account is persisted even when the email cannot be delivered.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.Account, error) {
	email := normalizeIdentifier(in.Email)

	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		s.logger.Error("failed to check email", slog.Any("error", err))
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventRegister,
			Identifier:    email,
			FailureReason: "email_taken",
		})
		return nil, models.ErrConflict
	}

	username, err := generateUniqueHandle(ctx, s.repo, email)
	if err != nil {
		s.logger.Error("failed to allocate username", slog.Any("error", err))
		return nil, err
	}

	passwordHash, err := pkgauth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	otp, err := pkgauth.GenerateOTP()
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}

	now := s.now()
	otpExpiry := now.Add(s.policy.RegistrationOTPTTL)
	expireAt := now.Add(s.policy.UnverifiedAccountTTL)

	acct, err := s.repo.Create(ctx, &models.AccountSecurity{
		Account: models.Account{
			FirstName: strings.TrimSpace(in.FirstName),
			LastName:  strings.TrimSpace(in.LastName),
			Username:  username,
			Email:     email,
			Role:      models.RoleAdmin,
		},
		PasswordHash: passwordHash,
		OTPHash:      pkgauth.HashOTP(otp),
		OTPExpiry:    &otpExpiry,
		ExpireAt:     &expireAt,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create account", slog.Any("error", err))
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.logger.Info("account registered", slog.String("account_id", acct.ID))
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType:  pkglogger.EventRegister,
		AccountID:  acct.ID,
		Identifier: email,
		Success:    true,
	})

	err = s.mailer.Send(ctx, acct.Email, subjectVerifyEmail, mail.TemplateOTP, map[string]any{
		"title": subjectVerifyEmail,
		"otp":   otp,
	})
	if err != nil {
		return acct, deliveryError(err)
	}

	return acct, nil
}

// VerifyEmail confirms a registration code and makes the account permanent.
func (s *AuthService) VerifyEmail(ctx context.Context, email, otp string) error {
	email = normalizeIdentifier(email)

	acct, err := s.repo.GetSecurityByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFoundOrUnverified
		}
		return fmt.Errorf("get account: %w", err)
	}

	if acct.IsVerified {
		return models.ErrAlreadyVerified
	}

	now := s.now()
	if acct.OTPHash == "" || acct.OTPExpiry == nil || !acct.OTPExpiry.After(now) ||
		!pkgauth.VerifyOTP(otp, acct.OTPHash) {
		s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventVerifyEmail,
			AccountID:     acct.ID,
			FailureReason: "invalid_otp",
		})
		return models.ErrInvalidOrExpiredOTP
	}

	if err := s.repo.MarkVerified(ctx, acct.ID, acct.OTPHash); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrInvalidOrExpiredOTP
		}
		return fmt.Errorf("mark verified: %w", err)
	}

	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventVerifyEmail,
		AccountID: acct.ID,
		Success:   true,
	})

	err = s.mailer.Send(ctx, acct.Email, subjectWelcome, mail.TemplateWelcome, map[string]any{
		"name":          acct.FirstName,
		"dashboard_url": s.policy.DashboardURL,
	})
	if err != nil {
		return deliveryError(err)
	}
	return nil
}

// lookupVerified resolves an email or handle to a verified account.
func (s *AuthService) lookupVerified(ctx context.Context, identifier string) (*models.AccountSecurity, error) {
	acct, err := s.repo.GetSecurityByIdentifier(ctx, normalizeIdentifier(identifier))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFoundOrUnverified
		}
		s.logger.Error("failed to look up account", slog.Any("error", err))
		return nil, fmt.Errorf("get account: %w", err)
	}
	if !acct.IsVerified {
		return nil, models.ErrNotFoundOrUnverified
	}
	return acct, nil
}

// RequestLoginOTP issues a fresh login code. Any earlier code, attempt count
// and verification gate are discarded.
func (s *AuthService) RequestLoginOTP(ctx context.Context, identifier string) error {
	start := time.Now()

	acct, err := s.lookupVerified(ctx, identifier)
	if err != nil {
		if errors.Is(err, models.ErrNotFoundOrUnverified) {
			s.timingDelay.WaitFrom(start)
			s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
				EventType:     pkglogger.EventLoginOTPRequest,
				Identifier:    identifier,
				FailureReason: "unknown_account",
			})
		}
		return err
	}

	now := s.now()
	if acct.IsLocked(now) {
		s.timingDelay.WaitFrom(start)
		s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventLoginOTPRequest,
			AccountID:     acct.ID,
			FailureReason: "account_locked",
		})
		return models.ErrAccountLocked
	}

	otp, err := pkgauth.GenerateOTP()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}

	if err := s.repo.SetLoginOTP(ctx, acct.ID, pkgauth.HashOTP(otp), now.Add(s.policy.LoginOTPTTL)); err != nil {
		s.logger.Error("failed to store login otp", slog.String("account_id", acct.ID), slog.Any("error", err))
		return fmt.Errorf("store login otp: %w", err)
	}

	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLoginOTPRequest,
		AccountID: acct.ID,
		Success:   true,
	})

	err = s.mailer.Send(ctx, acct.Email, subjectLoginOTP, mail.TemplateOTP, map[string]any{
		"title": "Login Verification",
		"otp":   otp,
	})
	s.timingDelay.WaitFrom(start)
	if err != nil {
		return deliveryError(err)
	}
	return nil
}

// VerifyLoginOTP checks a login code and, on success, opens the single-use
// gate the password step consumes.
func (s *AuthService) VerifyLoginOTP(ctx context.Context, identifier, code string) error {
	acct, err := s.lookupVerified(ctx, identifier)
	if err != nil {
		return err
	}

	now := s.now()
	if acct.IsLocked(now) {
		s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventLoginOTPVerify,
			AccountID:     acct.ID,
			FailureReason: "account_locked",
		})
		return models.ErrAccountLocked
	}

	maxAttempts := s.policy.MaxLoginOTPAttempts
	if acct.LoginOTPAttempts >= maxAttempts {
		s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventLoginOTPVerify,
			AccountID:     acct.ID,
			FailureReason: "too_many_attempts",
		})
		return models.ErrTooManyOTPAttempts
	}

	if acct.LoginOTPHash == "" || acct.LoginOTPExpiry == nil || !acct.LoginOTPExpiry.After(now) ||
		!pkgauth.VerifyOTP(code, acct.LoginOTPHash) {
		attempts, err := s.repo.IncrementLoginOTPAttempts(ctx, acct.ID)
		if err != nil {
			s.logger.Error("failed to count otp attempt", slog.String("account_id", acct.ID), slog.Any("error", err))
			return fmt.Errorf("count otp attempt: %w", err)
		}
		s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventLoginOTPVerify,
			AccountID:     acct.ID,
			FailureReason: "invalid_otp",
			Metadata:      map[string]string{"attempts": fmt.Sprint(attempts)},
		})
		return models.ErrInvalidOrExpiredOTP
	}

	if err := s.repo.ConsumeLoginOTP(ctx, acct.ID, acct.LoginOTPHash, maxAttempts, now); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrInvalidOrExpiredOTP
		}
		return fmt.Errorf("consume login otp: %w", err)
	}

	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLoginOTPVerify,
		AccountID: acct.ID,
		Success:   true,
	})
	return nil
}

// LoginWithPassword is the final login step. It requires the gate opened by
// VerifyLoginOTP and consumes it on success.
func (s *AuthService) LoginWithPassword(ctx context.Context, identifier, password string) (*LoginResult, error) {
	start := time.Now()

	acct, err := s.lookupVerified(ctx, identifier)
	if err != nil {
		if errors.Is(err, models.ErrNotFoundOrUnverified) {
			s.timingDelay.WaitFrom(start)
			s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
				EventType:     pkglogger.EventLoginPassword,
				Identifier:    identifier,
				FailureReason: "invalid_credentials",
			})
			return nil, models.ErrInvalidCredentials
		}
		return nil, err
	}

	now := s.now()
	if acct.IsLocked(now) {
		s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventLoginPassword,
			AccountID:     acct.ID,
			FailureReason: "account_locked",
		})
		return nil, models.ErrAccountLocked
	}

	if !acct.LoginOTPVerified {
		s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventLoginPassword,
			AccountID:     acct.ID,
			FailureReason: "otp_required",
		})
		return nil, models.ErrOTPRequired
	}

	if err := pkgauth.ComparePassword(acct.PasswordHash, password); err != nil {
		state, err := s.repo.IncrementLoginAttempts(ctx, acct.ID,
			s.policy.MaxLoginAttempts, now.Add(s.policy.LockoutDuration), now)
		if err != nil {
			s.logger.Error("failed to count login attempt", slog.String("account_id", acct.ID), slog.Any("error", err))
			return nil, fmt.Errorf("count login attempt: %w", err)
		}

		s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventLoginPassword,
			AccountID:     acct.ID,
			FailureReason: "invalid_credentials",
			Metadata:      map[string]string{"attempts": fmt.Sprint(state.LoginAttempts)},
		})
		if state.LockUntil != nil {
			s.logger.Warn("account locked after failed logins", slog.String("account_id", acct.ID))
			s.auditLogger.LogAccountAction(ctx, pkglogger.AuditEvent{
				EventType: pkglogger.EventAccountLocked,
				AccountID: acct.ID,
				Metadata:  map[string]string{"lock_until": state.LockUntil.UTC().Format(time.RFC3339)},
			})
		}
		return nil, models.ErrInvalidCredentials
	}

	if err := s.repo.CompleteLogin(ctx, acct.ID, now); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrOTPRequired
		}
		return nil, fmt.Errorf("complete login: %w", err)
	}

	token, expiresAt, err := s.sessions.IssueSessionToken(&acct.Account)
	if err != nil {
		s.logger.Error("failed to issue session token", slog.String("account_id", acct.ID), slog.Any("error", err))
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	s.logger.Info("account logged in", slog.String("account_id", acct.ID))
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLoginPassword,
		AccountID: acct.ID,
		Success:   true,
	})

	account := acct.Account
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Account: &account}, nil
}

// GetCurrentAccount returns the public view of an account.
func (s *AuthService) GetCurrentAccount(ctx context.Context, accountID string) (*models.Account, error) {
	return s.repo.GetByID(ctx, accountID)
}

// ChangePassword replaces the password of a signed-in account. Sessions
// issued before the change stop validating.
func (s *AuthService) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword, confirm string) error {
	if newPassword != confirm {
		return models.ErrPasswordMismatch
	}

	acct, err := s.repo.GetSecurityByID(ctx, accountID)
	if err != nil {
		return err
	}

	if err := pkgauth.ComparePassword(acct.PasswordHash, oldPassword); err != nil {
		s.auditLogger.LogPasswordEvent(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventPasswordChange,
			AccountID:     acct.ID,
			FailureReason: "incorrect_password",
		})
		return models.ErrIncorrectPassword
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.repo.UpdatePassword(ctx, acct.ID, hash, s.now().Add(-time.Second)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.auditLogger.LogPasswordEvent(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventPasswordChange,
		AccountID: acct.ID,
		Success:   true,
	})
	return nil
}

// BootstrapAdmin creates the first verified admin with a random temporary
// password. It does nothing when a verified admin already exists.
func (s *AuthService) BootstrapAdmin(ctx context.Context, email string) (*BootstrapResult, error) {
	email = normalizeIdentifier(email)
	if email == "" {
		return nil, fmt.Errorf("%w: admin email is required", models.ErrBadRequest)
	}

	exists, err := s.repo.AdminExists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check admin: %w", err)
	}
	if exists {
		return &BootstrapResult{Created: false}, nil
	}

	password, err := pkgauth.RandomHex(12)
	if err != nil {
		return nil, fmt.Errorf("generate password: %w", err)
	}

	username, err := generateUniqueHandle(ctx, s.repo, email)
	if err != nil {
		return nil, err
	}

	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acct, err := s.repo.Create(ctx, &models.AccountSecurity{
		Account: models.Account{
			FirstName:  "Super",
			LastName:   "Admin",
			Username:   username,
			Email:      email,
			Role:       models.RoleAdmin,
			IsVerified: true,
		},
		PasswordHash: hash,
	})
	if err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}

	s.auditLogger.LogAccountAction(ctx, pkglogger.AuditEvent{
		EventType:  pkglogger.EventAdminBootstrap,
		AccountID:  acct.ID,
		Identifier: email,
	})

	return &BootstrapResult{Created: true, Account: acct, TemporaryPassword: password}, nil
}
