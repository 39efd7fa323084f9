package logger

import (
	"context"
	"log/slog"
	"time"
)

// Audit event types
const (
	EventRegister         = "register"
	EventVerifyEmail      = "verify_email"
	EventLoginOTPRequest  = "login_otp_request"
	EventLoginOTPVerify   = "login_otp_verify"
	EventLoginPassword    = "login_password"
	EventAccountLocked    = "account_locked"
	EventPasswordReset    = "password_reset"
	EventPasswordResetReq = "password_reset_request"
	EventPasswordChange   = "password_change"
	EventAdminBootstrap   = "admin_bootstrap"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	AccountID     string
	Identifier    string // masked before logging
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger provides audit logging functionality
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

// LogAuthAttempt logs a step of the login or registration flow. Client
// details are taken from ctx.
func (al *AuditLogger) LogAuthAttempt(ctx context.Context, event AuditEvent) {
	al.log(ctx, "auth", event)
}

// LogPasswordEvent logs password reset and change events
func (al *AuditLogger) LogPasswordEvent(ctx context.Context, event AuditEvent) {
	al.log(ctx, "password", event)
}

// LogAccountAction logs account lifecycle actions
func (al *AuditLogger) LogAccountAction(ctx context.Context, event AuditEvent) {
	event.Success = true
	al.log(ctx, "account", event)
}

func (al *AuditLogger) log(ctx context.Context, auditType string, event AuditEvent) {
	if al == nil || al.logger == nil {
		return
	}

	attrs := []slog.Attr{
		slog.String("audit_type", auditType),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.AccountID != "" {
		attrs = append(attrs, slog.String("account_id", event.AccountID))
	}
	if event.Identifier != "" {
		attrs = append(attrs, slog.String("identifier", SanitizedIdentifier(event.Identifier)))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}

	info := RequestInfoFrom(ctx)
	if info.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", info.IPAddress))
	}
	if info.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", info.UserAgent))
	}

	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}
