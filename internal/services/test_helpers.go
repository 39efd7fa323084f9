package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/gamegate/internal/models"
	"github.com/BradenHooton/gamegate/internal/repositories"
	pkgauth "github.com/BradenHooton/gamegate/pkg/auth"
	pkglogger "github.com/BradenHooton/gamegate/pkg/logger"
)

// MockAccountRepository implements the username check used by handle
// generation. Unset funcs report the name as free.
type MockAccountRepository struct {
	UsernameExistsFunc func(ctx context.Context, username string) (bool, error)
}

func (m *MockAccountRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	if m.UsernameExistsFunc != nil {
		return m.UsernameExistsFunc(ctx, username)
	}
	return false, nil
}

// SentEmail is one message captured by MockEmailDispatcher.
type SentEmail struct {
	To          string
	Subject     string
	TemplateKey string
	Data        map[string]any
}

// MockEmailDispatcher records every message. SendFunc, when set, decides the
// returned error; the message is recorded either way.
type MockEmailDispatcher struct {
	mu       sync.Mutex
	Sent     []SentEmail
	SendFunc func(ctx context.Context, to, subject, templateKey string, data map[string]any) error
}

func (m *MockEmailDispatcher) Send(ctx context.Context, to, subject, templateKey string, data map[string]any) error {
	m.mu.Lock()
	m.Sent = append(m.Sent, SentEmail{To: to, Subject: subject, TemplateKey: templateKey, Data: data})
	m.mu.Unlock()

	if m.SendFunc != nil {
		return m.SendFunc(ctx, to, subject, templateKey, data)
	}
	return nil
}

// Last returns the most recent message, or the zero value.
func (m *MockEmailDispatcher) Last() SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return SentEmail{}
	}
	return m.Sent[len(m.Sent)-1]
}

// LastString returns a string field of the most recent message's data.
func (m *MockEmailDispatcher) LastString(key string) string {
	v, _ := m.Last().Data[key].(string)
	return v
}

// MockSessionIssuer implements SessionIssuer for testing
type MockSessionIssuer struct {
	IssueSessionTokenFunc func(account *models.Account) (string, time.Time, error)
}

func (m *MockSessionIssuer) IssueSessionToken(account *models.Account) (string, time.Time, error) {
	if m.IssueSessionTokenFunc != nil {
		return m.IssueSessionTokenFunc(account)
	}
	return "session-token-" + account.ID, time.Now().Add(24 * time.Hour), nil
}

// MockGameResultRepository implements GameResultRepository for testing
type MockGameResultRepository struct {
	CreateFunc      func(ctx context.Context, result *models.GameResult) (*models.GameResult, error)
	ListGroupedFunc func(ctx context.Context) ([]models.GameResultGroup, error)
}

func (m *MockGameResultRepository) Create(ctx context.Context, result *models.GameResult) (*models.GameResult, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, result)
	}
	out := *result
	out.ID = "result_123"
	return &out, nil
}

func (m *MockGameResultRepository) ListGrouped(ctx context.Context) ([]models.GameResultGroup, error) {
	if m.ListGroupedFunc != nil {
		return m.ListGroupedFunc(ctx)
	}
	return []models.GameResultGroup{}, nil
}

// testClock is a manually advanced clock shared by a service and its store.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// authFixture wires the auth services to an in-memory store and a shared
// clock.
type authFixture struct {
	clock  *testClock
	repo   *repositories.AccountMemoryRepository
	mailer *MockEmailDispatcher
	auth   *AuthService
	reset  *PasswordResetService
}

func newAuthFixture() *authFixture {
	return newAuthFixtureWithPolicy(DefaultAuthPolicy())
}

func newAuthFixtureWithPolicy(policy AuthPolicy) *authFixture {
	clock := newTestClock()
	repo := repositories.NewAccountMemoryRepository(clock.Now)
	mailer := &MockEmailDispatcher{}
	logger := discardLogger()
	audit := pkglogger.NewAuditLogger(logger)

	if policy.DashboardURL == "" {
		policy.DashboardURL = "http://localhost:5173/dashboard"
	}

	authSvc := NewAuthService(repo, mailer, &MockSessionIssuer{}, policy, nil, logger, audit)
	authSvc.now = clock.Now

	resetSvc := NewPasswordResetService(repo, mailer, 10*time.Minute, "http://localhost:5173", nil, logger, audit)
	resetSvc.now = clock.Now

	return &authFixture{clock: clock, repo: repo, mailer: mailer, auth: authSvc, reset: resetSvc}
}

const testPassword = "Str0ng@Pass"

// seedVerifiedAccount stores a verified account with testPassword.
func (f *authFixture) seedVerifiedAccount(email, username string) *models.Account {
	hash, err := pkgauth.HashPassword(testPassword)
	if err != nil {
		panic(err)
	}
	acct, err := f.repo.Create(context.Background(), &models.AccountSecurity{
		Account: models.Account{
			FirstName:  "Asha",
			LastName:   "Rao",
			Username:   username,
			Email:      email,
			Role:       models.RoleAdmin,
			IsVerified: true,
		},
		PasswordHash: hash,
	})
	if err != nil {
		panic(err)
	}
	return acct
}

// passOTPStep requests and verifies a login code for identifier.
func (f *authFixture) passOTPStep(identifier string) error {
	ctx := context.Background()
	if err := f.auth.RequestLoginOTP(ctx, identifier); err != nil {
		return err
	}
	return f.auth.VerifyLoginOTP(ctx, identifier, f.mailer.LastString("otp"))
}

func (f *authFixture) security(id string) *models.AccountSecurity {
	acct, err := f.repo.GetSecurityByID(context.Background(), id)
	if err != nil {
		panic(err)
	}
	return acct
}
