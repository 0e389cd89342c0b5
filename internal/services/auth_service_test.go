package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/magnetacademy/tma-server/internal/models"
	pkgauth "github.com/magnetacademy/tma-server/pkg/auth"
	pkglogger "github.com/magnetacademy/tma-server/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const correctPassword = "Correct1Password"

// mockUserRepo keeps admin users in memory and mutates them the way the
// store patches would.
type mockUserRepo struct {
	users     []*models.AdminUser
	findCalls int
	findErr   error
}

func (m *mockUserRepo) FindActiveByLogin(_ context.Context, login string) (*models.AdminUser, error) {
	m.findCalls++
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, u := range m.users {
		if (u.Username == login || u.Email == login) && u.IsActive {
			return u, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *mockUserRepo) Create(_ context.Context, user *models.AdminUser) error {
	m.users = append(m.users, user)
	return nil
}

func (m *mockUserRepo) Count(_ context.Context) (int, error) {
	return len(m.users), nil
}

func (m *mockUserRepo) byID(id string) *models.AdminUser {
	for _, u := range m.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (m *mockUserRepo) SetFailedAttempts(_ context.Context, id string, attempts int) error {
	if u := m.byID(id); u != nil {
		u.FailedAttempts = attempts
	}
	return nil
}

func (m *mockUserRepo) Lock(_ context.Context, id string, attempts int, until time.Time) error {
	if u := m.byID(id); u != nil {
		u.FailedAttempts = attempts
		u.LockedUntil = &until
	}
	return nil
}

func (m *mockUserRepo) ResetLoginState(_ context.Context, id string) error {
	if u := m.byID(id); u != nil {
		u.FailedAttempts = 0
		u.LockedUntil = nil
	}
	return nil
}

func (m *mockUserRepo) StampLastLogin(_ context.Context, id string, at time.Time) error {
	if u := m.byID(id); u != nil {
		u.LastLoginAt = &at
	}
	return nil
}

type mockAttemptRepo struct {
	records []*models.LoginAttempt
	err     error
}

func (m *mockAttemptRepo) Record(_ context.Context, attempt *models.LoginAttempt) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, attempt)
	return nil
}

func (m *mockAttemptRepo) last(t *testing.T) *models.LoginAttempt {
	t.Helper()
	require.NotEmpty(t, m.records)
	return m.records[len(m.records)-1]
}

type stubLimiter struct {
	ok    bool
	err   error
	calls int
}

func (s *stubLimiter) Consume(_ context.Context, _ string) (bool, error) {
	s.calls++
	return s.ok, s.err
}

type fixture struct {
	service  *AuthService
	users    *mockUserRepo
	attempts *mockAttemptRepo
	userLim  *stubLimiter
	origLim  *stubLimiter
}

func newFixture(t *testing.T, users ...*models.AdminUser) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &fixture{
		users:    &mockUserRepo{users: users},
		attempts: &mockAttemptRepo{},
		userLim:  &stubLimiter{ok: true},
		origLim:  &stubLimiter{ok: true},
	}
	f.service = NewAuthService(
		f.users, f.attempts, f.userLim, f.origLim,
		AuthConfig{LockoutThreshold: 5, LockoutDuration: 15 * time.Minute},
		logger, pkglogger.NewAuditLogger(logger), nil,
	)
	return f
}

func activeAdmin(t *testing.T) *models.AdminUser {
	t.Helper()
	hash, err := pkgauth.HashPassword(correctPassword)
	require.NoError(t, err)
	return &models.AdminUser{
		ID:           "user-1",
		Username:     "admin",
		Email:        "admin@tma.com",
		FullName:     "System Administrator",
		Role:         models.RoleSuperAdmin,
		PasswordHash: hash,
		IsActive:     true,
	}
}

func reqCtx() RequestContext {
	return RequestContext{NetworkOrigin: "203.0.113.7", ClientAgent: "Mozilla/5.0"}
}

func TestValidate_Success(t *testing.T) {
	f := newFixture(t, activeAdmin(t))

	user, err := f.service.Validate(context.Background(), "admin", correctPassword, reqCtx())
	require.NoError(t, err)
	require.NotNil(t, user)

	assert.Equal(t, "user-1", user.ID)
	assert.NotNil(t, user.LastLoginAt)

	record := f.attempts.last(t)
	assert.True(t, record.Success)
	assert.Empty(t, record.FailureReason)
	assert.Equal(t, "203.0.113.7", record.NetworkOrigin)
	assert.Len(t, f.attempts.records, 1, "exactly one audit record per login POST")
}

func TestValidate_LoginByEmail(t *testing.T) {
	f := newFixture(t, activeAdmin(t))

	user, err := f.service.Validate(context.Background(), "admin@tma.com", correctPassword, reqCtx())
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)
}

func TestValidate_UnknownUser(t *testing.T) {
	f := newFixture(t)

	user, err := f.service.Validate(context.Background(), "ghost", "Whatever1Pass", reqCtx())
	assert.Nil(t, user)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	record := f.attempts.last(t)
	assert.False(t, record.Success)
	assert.Equal(t, models.ReasonUserNotFound, record.FailureReason)
	assert.Equal(t, "ghost", record.Username, "attempts against nonexistent usernames are still audited")
}

func TestValidate_WrongPasswordIncrementsCounter(t *testing.T) {
	admin := activeAdmin(t)
	f := newFixture(t, admin)

	_, err := f.service.Validate(context.Background(), "admin", "Wrong1Password", reqCtx())
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	assert.Equal(t, 1, admin.FailedAttempts)
	assert.Nil(t, admin.LockedUntil)
	assert.Equal(t, models.ReasonInvalidPassword, f.attempts.last(t).FailureReason)
}

func TestValidate_FifthFailureLocksAccount(t *testing.T) {
	admin := activeAdmin(t)
	admin.FailedAttempts = 4
	f := newFixture(t, admin)

	_, err := f.service.Validate(context.Background(), "admin", "Wrong1Password", reqCtx())
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Equal(t, models.ReasonInvalidPassword, f.attempts.last(t).FailureReason)

	assert.Equal(t, 5, admin.FailedAttempts, "counter pinned at the threshold")
	require.NotNil(t, admin.LockedUntil)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), *admin.LockedUntil, 5*time.Second)

	// The very next attempt with the correct password is still rejected.
	_, err = f.service.Validate(context.Background(), "admin", correctPassword, reqCtx())
	assert.ErrorIs(t, err, models.ErrAccountLocked)
	assert.Equal(t, models.ReasonAccountLocked, f.attempts.last(t).FailureReason)
}

func TestValidate_LockedAccountRejectedBeforePasswordCheck(t *testing.T) {
	admin := activeAdmin(t)
	until := time.Now().Add(10 * time.Minute)
	admin.FailedAttempts = 5
	admin.LockedUntil = &until
	f := newFixture(t, admin)

	// Wrong and right passwords behave identically while locked.
	for _, password := range []string{"Wrong1Password", correctPassword} {
		_, err := f.service.Validate(context.Background(), "admin", password, reqCtx())
		assert.ErrorIs(t, err, models.ErrAccountLocked)
		assert.Equal(t, models.ReasonAccountLocked, f.attempts.last(t).FailureReason)
	}
	assert.Equal(t, 5, admin.FailedAttempts, "no counter movement during lock")
}

func TestValidate_ExpiredLockAllowsSuccessAndResets(t *testing.T) {
	admin := activeAdmin(t)
	until := time.Now().Add(-time.Minute)
	admin.FailedAttempts = 5
	admin.LockedUntil = &until
	f := newFixture(t, admin)

	user, err := f.service.Validate(context.Background(), "admin", correctPassword, reqCtx())
	require.NoError(t, err)
	require.NotNil(t, user)

	assert.Zero(t, admin.FailedAttempts)
	assert.Nil(t, admin.LockedUntil)
}

func TestValidate_SuccessResetsPreThresholdFailures(t *testing.T) {
	admin := activeAdmin(t)
	admin.FailedAttempts = 3
	f := newFixture(t, admin)

	_, err := f.service.Validate(context.Background(), "admin", correctPassword, reqCtx())
	require.NoError(t, err)
	assert.Zero(t, admin.FailedAttempts)
}

func TestValidate_RateLimited(t *testing.T) {
	f := newFixture(t, activeAdmin(t))
	f.userLim.ok = false

	user, err := f.service.Validate(context.Background(), "admin", correctPassword, reqCtx())
	assert.Nil(t, user)
	assert.ErrorIs(t, err, models.ErrRateLimitExceeded)

	assert.Zero(t, f.users.findCalls, "rate limiting happens before any credential check")
	assert.Equal(t, models.ReasonRateLimited, f.attempts.last(t).FailureReason)
}

func TestValidate_OriginLimiterAlsoGates(t *testing.T) {
	f := newFixture(t, activeAdmin(t))
	f.origLim.ok = false

	_, err := f.service.Validate(context.Background(), "admin", correctPassword, reqCtx())
	// Same outcome as the username limiter; callers cannot tell which tripped.
	assert.ErrorIs(t, err, models.ErrRateLimitExceeded)
	assert.Zero(t, f.users.findCalls)
}

func TestValidate_LimiterErrorFailsOpen(t *testing.T) {
	f := newFixture(t, activeAdmin(t))
	f.userLim.err = errors.New("counter store down")
	f.userLim.ok = false

	user, err := f.service.Validate(context.Background(), "admin", correctPassword, reqCtx())
	require.NoError(t, err)
	assert.NotNil(t, user, "a counter-store outage must not lock admins out")
}

func TestValidate_StoreErrorIsSystemError(t *testing.T) {
	f := newFixture(t)
	f.users.findErr = errors.New("store unreachable")

	user, err := f.service.Validate(context.Background(), "admin", correctPassword, reqCtx())
	assert.Nil(t, user)
	assert.ErrorIs(t, err, models.ErrInternalServer)
	assert.Equal(t, models.ReasonSystemError, f.attempts.last(t).FailureReason)
}

func TestValidate_AuditFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t, activeAdmin(t))
	f.attempts.err = errors.New("audit store down")

	user, err := f.service.Validate(context.Background(), "admin", correctPassword, reqCtx())
	require.NoError(t, err)
	assert.NotNil(t, user)
}

func TestValidate_EmptyInputRejectedWithoutSideEffects(t *testing.T) {
	f := newFixture(t, activeAdmin(t))

	_, err := f.service.Validate(context.Background(), "", "", reqCtx())
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Zero(t, f.userLim.calls)
	assert.Empty(t, f.attempts.records)
}

func TestBootstrap_CreatesSingleSuperAdminOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.Bootstrap(ctx))
	require.Len(t, f.users.users, 1)

	admin := f.users.users[0]
	assert.Equal(t, "admin", admin.Username)
	assert.Equal(t, models.RoleSuperAdmin, admin.Role)
	assert.True(t, admin.IsActive)
	assert.NotEmpty(t, admin.PasswordHash)

	// Second invocation is a no-op.
	require.NoError(t, f.service.Bootstrap(ctx))
	assert.Len(t, f.users.users, 1)
}

func TestBootstrap_UsesConfiguredPassword(t *testing.T) {
	f := newFixture(t)
	f.service.cfg.DefaultAdminPassword = "Configured1Pass"

	require.NoError(t, f.service.Bootstrap(context.Background()))
	require.Len(t, f.users.users, 1)

	assert.NoError(t, pkgauth.ComparePassword(f.users.users[0].PasswordHash, "Configured1Pass"))
}

func TestBootstrap_SkipsWhenAdminsExist(t *testing.T) {
	f := newFixture(t, activeAdmin(t))

	require.NoError(t, f.service.Bootstrap(context.Background()))
	assert.Len(t, f.users.users, 1)
}
