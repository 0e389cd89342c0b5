package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/magnetacademy/tma-server/internal/metrics"
	"github.com/magnetacademy/tma-server/internal/models"
	"github.com/magnetacademy/tma-server/internal/ratelimit"
	pkgauth "github.com/magnetacademy/tma-server/pkg/auth"
	pkglogger "github.com/magnetacademy/tma-server/pkg/logger"
)

// UserRepository defines the admin-user store operations the validator needs.
type UserRepository interface {
	FindActiveByLogin(ctx context.Context, login string) (*models.AdminUser, error)
	Create(ctx context.Context, user *models.AdminUser) error
	Count(ctx context.Context) (int, error)
	SetFailedAttempts(ctx context.Context, id string, attempts int) error
	Lock(ctx context.Context, id string, attempts int, until time.Time) error
	ResetLoginState(ctx context.Context, id string) error
	StampLastLogin(ctx context.Context, id string, at time.Time) error
}

// AttemptRepository appends audit records for login attempts.
type AttemptRepository interface {
	Record(ctx context.Context, attempt *models.LoginAttempt) error
}

// RequestContext carries the provenance of a login request.
type RequestContext struct {
	NetworkOrigin string
	ClientAgent   string
}

// AuthConfig holds the validator's policy knobs.
type AuthConfig struct {
	LockoutThreshold int
	LockoutDuration  time.Duration

	// AttemptTTL stamps audit records with an expiry hint for the store
	// side; the service itself never deletes them.
	AttemptTTL time.Duration

	DefaultAdminPassword string
}

// AuthService is the central policy engine for admin logins: it steps
// through rate limiting, lockout, password verification, counter
// bookkeeping, and audit logging in a fixed order, short-circuiting on
// the first failure.
type AuthService struct {
	users         UserRepository
	attempts      AttemptRepository
	userLimiter   ratelimit.Limiter
	originLimiter ratelimit.Limiter
	cfg           AuthConfig
	logger        *slog.Logger
	auditLogger   *pkglogger.AuditLogger
	metrics       *metrics.Metrics
	now           func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	users UserRepository,
	attempts AttemptRepository,
	userLimiter, originLimiter ratelimit.Limiter,
	cfg AuthConfig,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
	m *metrics.Metrics,
) *AuthService {
	if cfg.LockoutThreshold <= 0 {
		cfg.LockoutThreshold = 5
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = 15 * time.Minute
	}
	if cfg.AttemptTTL <= 0 {
		cfg.AttemptTTL = 90 * 24 * time.Hour
	}
	return &AuthService{
		users:         users,
		attempts:      attempts,
		userLimiter:   userLimiter,
		originLimiter: originLimiter,
		cfg:           cfg,
		logger:        logger,
		auditLogger:   auditLogger,
		metrics:       m,
		now:           time.Now,
	}
}

// Validate authenticates a login attempt. Every path through this
// function writes exactly one audit record before returning. The
// returned errors are sentinels; handlers map them to the generic
// message set so responses never reveal which step failed.
func (s *AuthService) Validate(ctx context.Context, username, password string, reqCtx RequestContext) (*models.AdminUser, error) {
	if username == "" || password == "" {
		return nil, models.ErrUnauthorized
	}

	// 1. Both limiters must admit the attempt before any credential
	// work. The caller never learns which limiter tripped.
	if !s.consume(ctx, s.userLimiter, username) || !s.consume(ctx, s.originLimiter, reqCtx.NetworkOrigin) {
		s.recordAttempt(ctx, username, reqCtx, false, models.ReasonRateLimited)
		s.count(metrics.OutcomeRateLimited)
		return nil, models.ErrRateLimitExceeded
	}

	// 2. Lookup. A disabled account and a missing one are the same
	// failure, which blocks username enumeration.
	user, err := s.users.FindActiveByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.recordAttempt(ctx, username, reqCtx, false, models.ReasonUserNotFound)
			s.count(metrics.OutcomeUserNotFound)
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to look up admin user", slog.Any("error", err))
		s.recordAttempt(ctx, username, reqCtx, false, models.ReasonSystemError)
		s.count(metrics.OutcomeSystemError)
		return nil, models.ErrInternalServer
	}

	// 3. Lock check runs strictly before password comparison; a correct
	// password cannot unlock early.
	if user.IsLockedOut() {
		s.recordAttempt(ctx, username, reqCtx, false, models.ReasonAccountLocked)
		s.count(metrics.OutcomeAccountLocked)
		return nil, models.ErrAccountLocked
	}

	// 4. Password check.
	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		s.registerFailure(ctx, user)
		s.recordAttempt(ctx, username, reqCtx, false, models.ReasonInvalidPassword)
		s.count(metrics.OutcomeInvalidPassword)
		return nil, models.ErrUnauthorized
	}

	// 5. Success: clear the failure counter and any expired lock, stamp
	// the login time, audit.
	if err := s.users.ResetLoginState(ctx, user.ID); err != nil {
		s.logger.Error("failed to reset login state", slog.String("user_id", user.ID), slog.Any("error", err))
	}
	user.FailedAttempts = 0
	user.LockedUntil = nil

	loginAt := s.now()
	if err := s.users.StampLastLogin(ctx, user.ID, loginAt); err != nil {
		s.logger.Error("failed to stamp last login", slog.String("user_id", user.ID), slog.Any("error", err))
	}
	user.LastLoginAt = &loginAt

	s.recordAttempt(ctx, username, reqCtx, true, "")
	s.count(metrics.OutcomeSuccess)
	s.logger.Info("admin logged in", slog.String("user_id", user.ID))

	return user, nil
}

// consume spends one attempt on a limiter. Limiter errors fail open: a
// counter-store outage must not lock every admin out, and the decision
// is logged so the outage is visible.
func (s *AuthService) consume(ctx context.Context, limiter ratelimit.Limiter, key string) bool {
	ok, err := limiter.Consume(ctx, key)
	if err != nil {
		s.logger.Error("rate limiter unavailable, failing open", slog.Any("error", err))
		return true
	}
	return ok
}

// registerFailure advances the lockout state machine after a failed
// password check. Reaching the threshold pins the counter there and
// sets the timed lock. Bookkeeping failures are logged and swallowed:
// the attempt is already rejected either way.
func (s *AuthService) registerFailure(ctx context.Context, user *models.AdminUser) {
	failures := user.FailedAttempts + 1

	if failures >= s.cfg.LockoutThreshold {
		until := s.now().Add(s.cfg.LockoutDuration)
		if err := s.users.Lock(ctx, user.ID, s.cfg.LockoutThreshold, until); err != nil {
			s.logger.Error("failed to lock account", slog.String("user_id", user.ID), slog.Any("error", err))
			return
		}
		s.auditLogger.LogAccountAction("account_locked", user.ID, "", map[string]string{
			"locked_until": until.UTC().Format(time.RFC3339),
		})
		return
	}

	if err := s.users.SetFailedAttempts(ctx, user.ID, failures); err != nil {
		s.logger.Error("failed to record failed attempt", slog.String("user_id", user.ID), slog.Any("error", err))
	}
}

// recordAttempt appends the audit record and emits the structured audit
// line. One record per processed login, regardless of outcome, including
// usernames that resolve to nothing. A failed write is logged and
// swallowed: audit loss must not crash the request path.
func (s *AuthService) recordAttempt(ctx context.Context, username string, reqCtx RequestContext, success bool, reason string) {
	now := s.now()
	attempt := &models.LoginAttempt{
		Username:      username,
		NetworkOrigin: reqCtx.NetworkOrigin,
		ClientAgent:   reqCtx.ClientAgent,
		Success:       success,
		Timestamp:     now,
		FailureReason: reason,
		ExpiresAt:     now.Add(s.cfg.AttemptTTL),
	}

	if err := s.attempts.Record(ctx, attempt); err != nil {
		s.logger.Error("failed to record login attempt", slog.Any("error", err))
	}

	eventType := "login_failed"
	if success {
		eventType = "login_success"
	}
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     eventType,
		Username:      username,
		IPAddress:     reqCtx.NetworkOrigin,
		UserAgent:     reqCtx.ClientAgent,
		Success:       success,
		FailureReason: reason,
	})
}

func (s *AuthService) count(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginAttempts.WithLabelValues(outcome).Inc()
	}
}

// Bootstrap creates the first super_admin when no admin users exist.
// The generated credentials are logged exactly once; a second invocation
// finds an existing user and does nothing.
func (s *AuthService) Bootstrap(ctx context.Context) error {
	count, err := s.users.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := s.cfg.DefaultAdminPassword
	generated := false
	if password == "" {
		password, err = pkgauth.GeneratePassword(16)
		if err != nil {
			return err
		}
		generated = true
	}

	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		return err
	}

	admin := &models.AdminUser{
		Username:     "admin",
		Email:        "admin@tma.com",
		FullName:     "System Administrator",
		Role:         models.RoleSuperAdmin,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return err
	}

	// The one place these credentials are ever written out. Operators
	// are expected to change the password after first login.
	attrs := []any{
		slog.String("username", admin.Username),
		slog.String("email", admin.Email),
	}
	if generated {
		attrs = append(attrs, slog.String("password", password))
	}
	s.logger.Warn("bootstrap admin user created; change the password after first login", attrs...)
	s.auditLogger.LogAccountAction("bootstrap_admin_created", admin.ID, "", nil)

	return nil
}
