package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/BradenHooton/gamegate/internal/models"
	"github.com/google/uuid"
)

// AccountMemoryRepository keeps accounts in process memory. Every mutation
// holds the write lock, which gives the same atomicity the SQL and document
// stores get from single-statement updates.
type AccountMemoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]*models.AccountSecurity
	now      func() time.Time
}

// NewAccountMemoryRepository creates an empty store. A nil clock uses time.Now.
func NewAccountMemoryRepository(clock func() time.Time) *AccountMemoryRepository {
	if clock == nil {
		clock = time.Now
	}
	return &AccountMemoryRepository{
		accounts: make(map[string]*models.AccountSecurity),
		now:      clock,
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneAccount(a *models.AccountSecurity) *models.AccountSecurity {
	c := *a
	c.PasswordChangedAt = cloneTime(a.PasswordChangedAt)
	c.ExpireAt = cloneTime(a.ExpireAt)
	c.OTPExpiry = cloneTime(a.OTPExpiry)
	c.LoginOTPExpiry = cloneTime(a.LoginOTPExpiry)
	c.LockUntil = cloneTime(a.LockUntil)
	c.LastLogin = cloneTime(a.LastLogin)
	c.ResetPasswordExpire = cloneTime(a.ResetPasswordExpire)
	return &c
}

func (r *AccountMemoryRepository) visible(a *models.AccountSecurity) bool {
	return !a.IsExpired(r.now())
}

// find returns the live record matching pred. Callers hold the lock.
func (r *AccountMemoryRepository) find(pred func(*models.AccountSecurity) bool) *models.AccountSecurity {
	for _, a := range r.accounts {
		if r.visible(a) && pred(a) {
			return a
		}
	}
	return nil
}

func (r *AccountMemoryRepository) Create(_ context.Context, acct *models.AccountSecurity) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	for id, a := range r.accounts {
		if a.Email != acct.Email && a.Username != acct.Username {
			continue
		}
		if a.IsExpired(now) {
			delete(r.accounts, id)
			continue
		}
		return nil, models.ErrConflict
	}

	stored := cloneAccount(acct)
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.Role == "" {
		stored.Role = models.RoleAdmin
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.accounts[stored.ID] = stored

	acct.ID = stored.ID
	out := stored.Account
	return &out, nil
}

func (r *AccountMemoryRepository) GetByID(_ context.Context, id string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok || !r.visible(a) {
		return nil, models.ErrNotFound
	}
	out := a.Account
	return &out, nil
}

func (r *AccountMemoryRepository) EmailExists(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.find(func(a *models.AccountSecurity) bool { return a.Email == email }) != nil, nil
}

func (r *AccountMemoryRepository) UsernameExists(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.find(func(a *models.AccountSecurity) bool { return a.Username == username }) != nil, nil
}

func (r *AccountMemoryRepository) AdminExists(_ context.Context) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.find(func(a *models.AccountSecurity) bool {
		return a.Role == models.RoleAdmin && a.IsVerified
	}) != nil, nil
}

func (r *AccountMemoryRepository) getSecurity(pred func(*models.AccountSecurity) bool) (*models.AccountSecurity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a := r.find(pred)
	if a == nil {
		return nil, models.ErrNotFound
	}
	return cloneAccount(a), nil
}

func (r *AccountMemoryRepository) GetSecurityByID(_ context.Context, id string) (*models.AccountSecurity, error) {
	return r.getSecurity(func(a *models.AccountSecurity) bool { return a.ID == id })
}

func (r *AccountMemoryRepository) GetSecurityByEmail(_ context.Context, email string) (*models.AccountSecurity, error) {
	return r.getSecurity(func(a *models.AccountSecurity) bool { return a.Email == email })
}

func (r *AccountMemoryRepository) GetSecurityByIdentifier(_ context.Context, identifier string) (*models.AccountSecurity, error) {
	return r.getSecurity(func(a *models.AccountSecurity) bool {
		return a.Email == identifier || a.Username == identifier
	})
}

func (r *AccountMemoryRepository) GetSecurityByResetDigest(_ context.Context, digest string, now time.Time) (*models.AccountSecurity, error) {
	return r.getSecurity(func(a *models.AccountSecurity) bool {
		return a.ResetPasswordToken == digest && a.ResetPasswordExpire != nil && a.ResetPasswordExpire.After(now)
	})
}

// update applies fn to the record with id when match accepts it.
func (r *AccountMemoryRepository) update(id string, match func(*models.AccountSecurity) bool, fn func(*models.AccountSecurity)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok || (match != nil && !match(a)) {
		return models.ErrNotFound
	}
	fn(a)
	a.UpdatedAt = r.now().UTC()
	return nil
}

func (r *AccountMemoryRepository) MarkVerified(_ context.Context, id, otpHash string) error {
	return r.update(id,
		func(a *models.AccountSecurity) bool { return !a.IsVerified && a.OTPHash == otpHash },
		func(a *models.AccountSecurity) {
			a.IsVerified = true
			a.OTPHash = ""
			a.OTPExpiry = nil
			a.ExpireAt = nil
		})
}

func (r *AccountMemoryRepository) SetLoginOTP(_ context.Context, id, hash string, expiresAt time.Time) error {
	return r.update(id, nil, func(a *models.AccountSecurity) {
		a.LoginOTPHash = hash
		a.LoginOTPExpiry = &expiresAt
		a.LoginOTPAttempts = 0
		a.LoginOTPVerified = false
	})
}

func (r *AccountMemoryRepository) IncrementLoginOTPAttempts(_ context.Context, id string) (int, error) {
	var attempts int
	err := r.update(id, nil, func(a *models.AccountSecurity) {
		a.LoginOTPAttempts++
		attempts = a.LoginOTPAttempts
	})
	return attempts, err
}

func (r *AccountMemoryRepository) ConsumeLoginOTP(_ context.Context, id, hash string, maxAttempts int, now time.Time) error {
	return r.update(id,
		func(a *models.AccountSecurity) bool {
			return a.LoginOTPHash == hash && a.LoginOTPAttempts < maxAttempts &&
				a.LoginOTPExpiry != nil && a.LoginOTPExpiry.After(now)
		},
		func(a *models.AccountSecurity) {
			a.LoginOTPVerified = true
			a.LoginOTPHash = ""
			a.LoginOTPExpiry = nil
			a.LoginOTPAttempts = 0
		})
}

func (r *AccountMemoryRepository) IncrementLoginAttempts(_ context.Context, id string, threshold int, lockUntil, now time.Time) (*models.LockoutState, error) {
	var state models.LockoutState
	err := r.update(id, nil, func(a *models.AccountSecurity) {
		switch {
		case a.LockUntil != nil && a.LockUntil.Before(now):
			a.LoginAttempts = 1
			a.LockUntil = nil
		case a.LockUntil == nil && a.LoginAttempts+1 >= threshold:
			a.LoginAttempts++
			a.LockUntil = &lockUntil
		default:
			a.LoginAttempts++
		}
		state = models.LockoutState{LoginAttempts: a.LoginAttempts, LockUntil: cloneTime(a.LockUntil)}
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *AccountMemoryRepository) CompleteLogin(_ context.Context, id string, now time.Time) error {
	return r.update(id,
		func(a *models.AccountSecurity) bool { return a.LoginOTPVerified },
		func(a *models.AccountSecurity) {
			a.LoginOTPVerified = false
			a.LoginAttempts = 0
			a.LockUntil = nil
			a.ExpireAt = nil
			a.LastLogin = &now
		})
}

func (r *AccountMemoryRepository) SetResetToken(_ context.Context, id, digest string, expiresAt time.Time) error {
	return r.update(id, nil, func(a *models.AccountSecurity) {
		a.ResetPasswordToken = digest
		a.ResetPasswordExpire = &expiresAt
	})
}

func (r *AccountMemoryRepository) ConsumeResetToken(_ context.Context, id, digest, passwordHash string, changedAt, now time.Time) error {
	return r.update(id,
		func(a *models.AccountSecurity) bool {
			return a.ResetPasswordToken == digest && a.ResetPasswordExpire != nil && a.ResetPasswordExpire.After(now)
		},
		func(a *models.AccountSecurity) {
			a.PasswordHash = passwordHash
			a.PasswordChangedAt = &changedAt
			a.ResetPasswordToken = ""
			a.ResetPasswordExpire = nil
		})
}

func (r *AccountMemoryRepository) UpdatePassword(_ context.Context, id, passwordHash string, changedAt time.Time) error {
	return r.update(id, nil, func(a *models.AccountSecurity) {
		a.PasswordHash = passwordHash
		a.PasswordChangedAt = &changedAt
	})
}

func (r *AccountMemoryRepository) PurgeExpiredUnverified(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, a := range r.accounts {
		if a.IsExpired(now) {
			delete(r.accounts, id)
			n++
		}
	}
	return n, nil
}
