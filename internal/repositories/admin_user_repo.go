package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/magnetacademy/tma-server/internal/contentstore"
	"github.com/magnetacademy/tma-server/internal/models"
)

const adminUserType = "adminUser"

// AdminUserRepository reads and writes adminUser documents in the
// content store.
type AdminUserRepository struct {
	store *contentstore.Client
}

// NewAdminUserRepository creates a new AdminUserRepository.
func NewAdminUserRepository(store *contentstore.Client) *AdminUserRepository {
	return &AdminUserRepository{store: store}
}

// FindActiveByLogin looks up an active admin by username-or-email match.
// A disabled account and a nonexistent one are indistinguishable here,
// which is what keeps the login flow enumeration-safe.
func (r *AdminUserRepository) FindActiveByLogin(ctx context.Context, login string) (*models.AdminUser, error) {
	query := `*[_type == "adminUser" && (username == $login || email == $login) && isActive == true][0]`

	var user *models.AdminUser
	if err := r.store.Fetch(ctx, query, map[string]interface{}{"login": login}, &user); err != nil {
		return nil, fmt.Errorf("failed to fetch admin user: %w", err)
	}
	if user == nil {
		return nil, models.ErrNotFound
	}
	return user, nil
}

// Count returns the number of adminUser documents, active or not.
func (r *AdminUserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.store.Fetch(ctx, `count(*[_type == "adminUser"])`, nil, &count); err != nil {
		return 0, fmt.Errorf("failed to count admin users: %w", err)
	}
	return count, nil
}

type adminUserDoc struct {
	Type string `json:"_type"`
	models.AdminUser
}

// Create appends a new admin user document.
func (r *AdminUserRepository) Create(ctx context.Context, user *models.AdminUser) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = models.RoleEditor
	}
	if !models.ValidRole(user.Role) {
		return fmt.Errorf("invalid role %q: %w", user.Role, models.ErrBadRequest)
	}

	doc := adminUserDoc{Type: adminUserType, AdminUser: *user}
	if err := r.store.Create(ctx, doc); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	return nil
}

// SetFailedAttempts writes the consecutive-failure counter.
func (r *AdminUserRepository) SetFailedAttempts(ctx context.Context, id string, attempts int) error {
	err := r.store.Patch(id).
		Set(map[string]interface{}{"loginAttempts": attempts}).
		Commit(ctx)
	if err != nil {
		return fmt.Errorf("failed to set failed attempts: %w", err)
	}
	return nil
}

// Lock pins the counter at the threshold and sets the lock expiry.
func (r *AdminUserRepository) Lock(ctx context.Context, id string, attempts int, until time.Time) error {
	err := r.store.Patch(id).
		Set(map[string]interface{}{
			"loginAttempts": attempts,
			"lockedUntil":   until.UTC().Format(time.RFC3339),
		}).
		Commit(ctx)
	if err != nil {
		return fmt.Errorf("failed to lock admin user: %w", err)
	}
	return nil
}

// ResetLoginState clears the failure counter and any lock. Called only
// from the success path, so a lock can never be cleared by a correct
// password while it is still active.
func (r *AdminUserRepository) ResetLoginState(ctx context.Context, id string) error {
	err := r.store.Patch(id).
		Unset("loginAttempts", "lockedUntil").
		Commit(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset login state: %w", err)
	}
	return nil
}

// StampLastLogin records the successful login time.
func (r *AdminUserRepository) StampLastLogin(ctx context.Context, id string, at time.Time) error {
	err := r.store.Patch(id).
		Set(map[string]interface{}{"lastLogin": at.UTC().Format(time.RFC3339)}).
		Commit(ctx)
	if err != nil {
		return fmt.Errorf("failed to stamp last login: %w", err)
	}
	return nil
}
