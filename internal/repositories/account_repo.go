package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/gamegate/internal/database"
	"github.com/BradenHooton/gamegate/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepository is the Postgres account store. Unverified accounts past
// their expire_at are filtered out of every read and removed by
// PurgeExpiredUnverified.
type AccountRepository struct {
	db *database.DB
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, first_name, last_name, username, email, role, is_verified, created_at, updated_at`

const accountSecurityColumns = accountColumns + `,
	password_hash, password_changed_at, expire_at, otp_hash, otp_expiry,
	login_otp_hash, login_otp_expiry, login_otp_attempts, login_otp_verified,
	login_attempts, lock_until, last_login, reset_password_token, reset_password_expire`

// visibleAccount hides unverified registrations whose window has elapsed.
const visibleAccount = `(is_verified OR expire_at IS NULL OR expire_at > NOW())`

// rowScanner interface for scanning account rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var a models.Account
	err := scanner.Scan(
		&a.ID, &a.FirstName, &a.LastName, &a.Username, &a.Email,
		&a.Role, &a.IsVerified, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &a, nil
}

func scanAccountSecurityRow(scanner rowScanner) (*models.AccountSecurity, error) {
	var a models.AccountSecurity
	var otpHash, loginOTPHash, resetToken *string

	err := scanner.Scan(
		&a.ID, &a.FirstName, &a.LastName, &a.Username, &a.Email,
		&a.Role, &a.IsVerified, &a.CreatedAt, &a.UpdatedAt,
		&a.PasswordHash, &a.PasswordChangedAt, &a.ExpireAt, &otpHash, &a.OTPExpiry,
		&loginOTPHash, &a.LoginOTPExpiry, &a.LoginOTPAttempts, &a.LoginOTPVerified,
		&a.LoginAttempts, &a.LockUntil, &a.LastLogin, &resetToken, &a.ResetPasswordExpire,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	a.OTPHash = deref(otpHash)
	a.LoginOTPHash = deref(loginOTPHash)
	a.ResetPasswordToken = deref(resetToken)
	return &a, nil
}

// Create inserts a new account. An expired unverified registration holding
// the same email or username is removed first so it cannot block the insert.
func (r *AccountRepository) Create(ctx context.Context, acct *models.AccountSecurity) (*models.Account, error) {
	if acct.ID == "" {
		acct.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now
	if acct.Role == "" {
		acct.Role = models.RoleAdmin
	}

	var created *models.Account
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			DELETE FROM accounts
			WHERE (email = $1 OR username = $2)
			  AND NOT is_verified AND expire_at IS NOT NULL AND expire_at <= NOW()
		`, acct.Email, acct.Username)
		if err != nil {
			return fmt.Errorf("failed to clear expired registration: %w", err)
		}

		query := `
			INSERT INTO accounts (id, first_name, last_name, username, email, password_hash,
				password_changed_at, role, is_verified, expire_at, otp_hash, otp_expiry,
				created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			RETURNING ` + accountColumns

		created, err = scanAccountRow(tx.QueryRow(ctx, query,
			acct.ID, acct.FirstName, acct.LastName, acct.Username, acct.Email, acct.PasswordHash,
			acct.PasswordChangedAt, acct.Role, acct.IsVerified, acct.ExpireAt,
			nullString(acct.OTPHash), acct.OTPExpiry, acct.CreatedAt, acct.UpdatedAt,
		))
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 AND ` + visibleAccount
	return scanAccountRow(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *AccountRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `email = $1`, email)
}

func (r *AccountRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `username = $1`, username)
}

func (r *AccountRepository) AdminExists(ctx context.Context) (bool, error) {
	return r.exists(ctx, `role = $1 AND is_verified`, models.RoleAdmin)
}

func (r *AccountRepository) exists(ctx context.Context, predicate string, arg any) (bool, error) {
	var found bool
	query := `SELECT EXISTS (SELECT 1 FROM accounts WHERE ` + predicate + ` AND ` + visibleAccount + `)`
	if err := r.db.Pool.QueryRow(ctx, query, arg).Scan(&found); err != nil {
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}
	return found, nil
}

func (r *AccountRepository) GetSecurityByID(ctx context.Context, id string) (*models.AccountSecurity, error) {
	query := `SELECT ` + accountSecurityColumns + ` FROM accounts WHERE id = $1 AND ` + visibleAccount
	return scanAccountSecurityRow(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *AccountRepository) GetSecurityByEmail(ctx context.Context, email string) (*models.AccountSecurity, error) {
	query := `SELECT ` + accountSecurityColumns + ` FROM accounts WHERE email = $1 AND ` + visibleAccount
	return scanAccountSecurityRow(r.db.Pool.QueryRow(ctx, query, email))
}

// GetSecurityByIdentifier matches either the email or the username.
func (r *AccountRepository) GetSecurityByIdentifier(ctx context.Context, identifier string) (*models.AccountSecurity, error) {
	query := `SELECT ` + accountSecurityColumns + ` FROM accounts
		WHERE (email = $1 OR username = $1) AND ` + visibleAccount + ` LIMIT 1`
	return scanAccountSecurityRow(r.db.Pool.QueryRow(ctx, query, identifier))
}

func (r *AccountRepository) GetSecurityByResetDigest(ctx context.Context, digest string, now time.Time) (*models.AccountSecurity, error) {
	query := `SELECT ` + accountSecurityColumns + ` FROM accounts
		WHERE reset_password_token = $1 AND reset_password_expire > $2`
	return scanAccountSecurityRow(r.db.Pool.QueryRow(ctx, query, digest, now))
}

// MarkVerified completes registration, provided the OTP that was checked is
// still the stored one.
func (r *AccountRepository) MarkVerified(ctx context.Context, id, otpHash string) error {
	return r.execOne(ctx, `
		UPDATE accounts
		SET is_verified = TRUE, otp_hash = NULL, otp_expiry = NULL, expire_at = NULL, updated_at = NOW()
		WHERE id = $1 AND NOT is_verified AND otp_hash = $2
	`, id, otpHash)
}

func (r *AccountRepository) SetLoginOTP(ctx context.Context, id, hash string, expiresAt time.Time) error {
	return r.execOne(ctx, `
		UPDATE accounts
		SET login_otp_hash = $2, login_otp_expiry = $3, login_otp_attempts = 0,
			login_otp_verified = FALSE, updated_at = NOW()
		WHERE id = $1
	`, id, hash, expiresAt)
}

func (r *AccountRepository) IncrementLoginOTPAttempts(ctx context.Context, id string) (int, error) {
	var attempts int
	err := r.db.Pool.QueryRow(ctx, `
		UPDATE accounts
		SET login_otp_attempts = login_otp_attempts + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING login_otp_attempts
	`, id).Scan(&attempts)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return attempts, nil
}

// ConsumeLoginOTP opens the password gate. It only matches while the checked
// hash is current, unexpired and under the attempt ceiling.
func (r *AccountRepository) ConsumeLoginOTP(ctx context.Context, id, hash string, maxAttempts int, now time.Time) error {
	return r.execOne(ctx, `
		UPDATE accounts
		SET login_otp_verified = TRUE, login_otp_hash = NULL, login_otp_expiry = NULL,
			login_otp_attempts = 0, updated_at = $4
		WHERE id = $1 AND login_otp_hash = $2 AND login_otp_attempts < $3 AND login_otp_expiry > $4
	`, id, hash, maxAttempts, now)
}

// IncrementLoginAttempts records a failed password in one statement. An
// expired lock is cleared and the count restarts at 1; otherwise reaching
// threshold with no lock in force sets lock_until.
func (r *AccountRepository) IncrementLoginAttempts(ctx context.Context, id string, threshold int, lockUntil, now time.Time) (*models.LockoutState, error) {
	var state models.LockoutState
	err := r.db.Pool.QueryRow(ctx, `
		UPDATE accounts
		SET login_attempts = CASE
				WHEN lock_until IS NOT NULL AND lock_until < $2 THEN 1
				ELSE login_attempts + 1
			END,
			lock_until = CASE
				WHEN lock_until IS NOT NULL AND lock_until < $2 THEN NULL
				WHEN lock_until IS NULL AND login_attempts + 1 >= $3 THEN $4
				ELSE lock_until
			END,
			updated_at = $2
		WHERE id = $1
		RETURNING login_attempts, lock_until
	`, id, now, threshold, lockUntil).Scan(&state.LoginAttempts, &state.LockUntil)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &state, nil
}

// CompleteLogin consumes the password gate and resets lockout state.
func (r *AccountRepository) CompleteLogin(ctx context.Context, id string, now time.Time) error {
	return r.execOne(ctx, `
		UPDATE accounts
		SET login_otp_verified = FALSE, login_attempts = 0, lock_until = NULL,
			expire_at = NULL, last_login = $2, updated_at = $2
		WHERE id = $1 AND login_otp_verified
	`, id, now)
}

func (r *AccountRepository) SetResetToken(ctx context.Context, id, digest string, expiresAt time.Time) error {
	return r.execOne(ctx, `
		UPDATE accounts
		SET reset_password_token = $2, reset_password_expire = $3, updated_at = NOW()
		WHERE id = $1
	`, id, digest, expiresAt)
}

// ConsumeResetToken swaps in the new password hash if digest is still the
// live reset token. A second use matches no row.
func (r *AccountRepository) ConsumeResetToken(ctx context.Context, id, digest, passwordHash string, changedAt, now time.Time) error {
	return r.execOne(ctx, `
		UPDATE accounts
		SET password_hash = $3, password_changed_at = $4,
			reset_password_token = NULL, reset_password_expire = NULL, updated_at = $5
		WHERE id = $1 AND reset_password_token = $2 AND reset_password_expire > $5
	`, id, digest, passwordHash, changedAt, now)
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	return r.execOne(ctx, `
		UPDATE accounts
		SET password_hash = $2, password_changed_at = $3, updated_at = NOW()
		WHERE id = $1
	`, id, passwordHash, changedAt)
}

// PurgeExpiredUnverified hard-deletes registrations that were never verified
// within their window.
func (r *AccountRepository) PurgeExpiredUnverified(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `
		DELETE FROM accounts WHERE NOT is_verified AND expire_at IS NOT NULL AND expire_at <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired accounts: %w", err)
	}
	return tag.RowsAffected(), nil
}

// execOne runs a single-row update and reports ErrNotFound when its
// predicate matched nothing.
func (r *AccountRepository) execOne(ctx context.Context, query string, args ...any) error {
	tag, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
