//go:build integration

package mongo

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/BradenHooton/gamegate/internal/models"
	"github.com/BradenHooton/gamegate/internal/repositories"
)

var testMongo *TestMongo

func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	testMongo, err = SetupTestMongo(ctx)
	if err != nil {
		panic(err)
	}

	code := m.Run()

	_ = testMongo.Teardown(ctx)
	os.Exit(code)
}

func setup(t *testing.T) *repositories.AccountMongoRepository {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, testMongo.CleanupCollections(ctx))
	repo, err := repositories.NewAccountMongoRepository(ctx, testMongo.DB)
	require.NoError(t, err)
	return repo
}

func createVerified(t *testing.T, repo *repositories.AccountMongoRepository) *models.Account {
	t.Helper()
	acct, err := NewVerifiedAccount("asha@example.com", "asha_0001", "Str0ng@Pass")
	require.NoError(t, err)
	created, err := repo.Create(context.Background(), acct)
	require.NoError(t, err)
	return created
}

func TestAccountMongoRepository_ExpireAtHasTTLIndex(t *testing.T) {
	setup(t)
	ctx := context.Background()

	specs, err := testMongo.DB.Database.Collection("accounts").Indexes().ListSpecifications(ctx)
	require.NoError(t, err)

	var ttl *int32
	for _, spec := range specs {
		if _, err := spec.KeysDocument.LookupErr("expire_at"); err == nil {
			ttl = spec.ExpireAfterSeconds
		}
	}
	require.NotNil(t, ttl, "expire_at index must carry expireAfterSeconds")
	assert.Equal(t, int32(0), *ttl)
}

func TestAccountMongoRepository_DuplicateEmailConflicts(t *testing.T) {
	repo := setup(t)
	createVerified(t, repo)

	dup, err := NewVerifiedAccount("asha@example.com", "asha_0002", "Str0ng@Pass")
	require.NoError(t, err)
	_, err = repo.Create(context.Background(), dup)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestAccountMongoRepository_ConcurrentFailuresCountEveryAttempt(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()
	created := createVerified(t, repo)

	now := time.Now().UTC()
	lockUntil := now.Add(time.Hour)

	_, err := repo.IncrementLoginAttempts(ctx, created.ID, 5, lockUntil, now)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.IncrementLoginAttempts(ctx, created.ID, 5, lockUntil, now)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sec, err := repo.GetSecurityByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, sec.LoginAttempts)
	assert.Nil(t, sec.LockUntil)
}

func TestAccountMongoRepository_LockThenLazyExpiry(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()
	created := createVerified(t, repo)

	now := time.Now().UTC().Truncate(time.Millisecond)
	lockUntil := now.Add(time.Hour)

	var state *models.LockoutState
	var err error
	for i := 1; i <= 5; i++ {
		state, err = repo.IncrementLoginAttempts(ctx, created.ID, 5, lockUntil, now)
		require.NoError(t, err)
		assert.Equal(t, i, state.LoginAttempts)
		if i < 5 {
			assert.Nil(t, state.LockUntil)
		}
	}
	require.NotNil(t, state.LockUntil)
	assert.WithinDuration(t, lockUntil, *state.LockUntil, time.Second)

	// A failure while locked counts but keeps the original deadline.
	state, err = repo.IncrementLoginAttempts(ctx, created.ID, 5, lockUntil.Add(time.Hour), now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 6, state.LoginAttempts)
	require.NotNil(t, state.LockUntil)
	assert.WithinDuration(t, lockUntil, *state.LockUntil, time.Second)

	later := lockUntil.Add(time.Minute)
	state, err = repo.IncrementLoginAttempts(ctx, created.ID, 5, later.Add(time.Hour), later)
	require.NoError(t, err)
	assert.Equal(t, 1, state.LoginAttempts)
	assert.Nil(t, state.LockUntil)

	raw, err := testMongo.DB.Database.Collection("accounts").
		FindOne(ctx, bson.M{"_id": created.ID}).Raw()
	require.NoError(t, err)
	_, err = raw.LookupErr("lock_until")
	assert.Error(t, err, "lock_until must be removed, not nulled")
}

func TestAccountMongoRepository_LoginGateOpensOnce(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()
	created := createVerified(t, repo)

	now := time.Now().UTC()
	require.NoError(t, repo.SetLoginOTP(ctx, created.ID, "otp-hash", now.Add(5*time.Minute)))

	assert.ErrorIs(t, repo.ConsumeLoginOTP(ctx, created.ID, "wrong-hash", 5, now), models.ErrNotFound)

	var wg sync.WaitGroup
	var mu sync.Mutex
	opened := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.ConsumeLoginOTP(ctx, created.ID, "otp-hash", 5, now); err == nil {
				mu.Lock()
				opened++
				mu.Unlock()
			} else {
				assert.True(t, errors.Is(err, models.ErrNotFound))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, opened)

	require.NoError(t, repo.CompleteLogin(ctx, created.ID, now))
	assert.ErrorIs(t, repo.CompleteLogin(ctx, created.ID, now), models.ErrNotFound)

	sec, err := repo.GetSecurityByID(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, sec.LoginOTPVerified)
	assert.Empty(t, sec.LoginOTPHash)
	require.NotNil(t, sec.LastLogin)
}

func TestAccountMongoRepository_LoginOTPRejectedAfterMaxAttempts(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()
	created := createVerified(t, repo)

	now := time.Now().UTC()
	require.NoError(t, repo.SetLoginOTP(ctx, created.ID, "otp-hash", now.Add(5*time.Minute)))

	for i := 1; i <= 5; i++ {
		attempts, err := repo.IncrementLoginOTPAttempts(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, i, attempts)
	}
	assert.ErrorIs(t, repo.ConsumeLoginOTP(ctx, created.ID, "otp-hash", 5, now), models.ErrNotFound)
}

func TestAccountMongoRepository_ResetTokenSingleUse(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()
	created := createVerified(t, repo)

	now := time.Now().UTC()
	require.NoError(t, repo.SetResetToken(ctx, created.ID, "digest", now.Add(10*time.Minute)))

	found, err := repo.GetSecurityByResetDigest(ctx, "digest", now)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	var wg sync.WaitGroup
	var mu sync.Mutex
	consumed := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.ConsumeResetToken(ctx, created.ID, "digest", "new-hash", now, now); err == nil {
				mu.Lock()
				consumed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, consumed)

	_, err = repo.GetSecurityByResetDigest(ctx, "digest", now)
	assert.ErrorIs(t, err, models.ErrNotFound)

	sec, err := repo.GetSecurityByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", sec.PasswordHash)
}

func TestAccountMongoRepository_ExpiredRegistrationIsHiddenAndPurged(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()

	expireAt := time.Now().UTC().Add(-time.Minute)
	created, err := repo.Create(ctx, &models.AccountSecurity{
		Account:      models.Account{FirstName: "Late", Username: "late_0001", Email: "late@example.com", Role: models.RoleAdmin},
		PasswordHash: "x",
		ExpireAt:     &expireAt,
	})
	require.NoError(t, err)

	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	exists, err := repo.EmailExists(ctx, "late@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	// The TTL monitor may get there first, so only the end state is checked.
	_, err = repo.PurgeExpiredUnverified(ctx, time.Now().UTC())
	require.NoError(t, err)
	left, err := testMongo.DB.Database.Collection("accounts").CountDocuments(ctx, bson.M{"_id": created.ID})
	require.NoError(t, err)
	assert.Zero(t, left)
}

func TestGameResultMongoRepository_UniquePerGameAndDate(t *testing.T) {
	setup(t)
	ctx := context.Background()
	repo, err := repositories.NewGameResultMongoRepository(ctx, testMongo.DB)
	require.NoError(t, err)

	day := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }

	_, err = repo.Create(ctx, &models.GameResult{GameID: "gali", Date: "05-03-2026", PlayedOn: day(5), ResultNumber: "42"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &models.GameResult{GameID: "gali", Date: "01-03-2026", PlayedOn: day(1), ResultNumber: "17"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &models.GameResult{GameID: "desawar", Date: "02-03-2026", PlayedOn: day(2), ResultNumber: "08"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &models.GameResult{GameID: "gali", Date: "05-03-2026", PlayedOn: day(5), ResultNumber: "99"})
	assert.ErrorIs(t, err, models.ErrConflict)

	groups, err := repo.ListGrouped(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "desawar", groups[0].GameID)
	require.Len(t, groups[1].Results, 2)
	assert.Equal(t, "01-03-2026", groups[1].Results[0].Date)
	assert.Equal(t, "05-03-2026", groups[1].Results[1].Date)
}
