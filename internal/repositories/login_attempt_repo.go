package repositories

import (
	"context"
	"fmt"

	"github.com/magnetacademy/tma-server/internal/contentstore"
	"github.com/magnetacademy/tma-server/internal/models"
)

// LoginAttemptRepository appends loginAttempt audit documents. The log is
// append-only: there are no update or delete operations here on purpose.
type LoginAttemptRepository struct {
	store *contentstore.Client
}

// NewLoginAttemptRepository creates a new LoginAttemptRepository.
func NewLoginAttemptRepository(store *contentstore.Client) *LoginAttemptRepository {
	return &LoginAttemptRepository{store: store}
}

type loginAttemptDoc struct {
	Type string `json:"_type"`
	models.LoginAttempt
}

// Record appends one audit record.
func (r *LoginAttemptRepository) Record(ctx context.Context, attempt *models.LoginAttempt) error {
	doc := loginAttemptDoc{Type: "loginAttempt", LoginAttempt: *attempt}
	if err := r.store.Create(ctx, doc); err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}
	return nil
}
