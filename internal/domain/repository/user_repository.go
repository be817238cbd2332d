package repository

import (
	"context"

	"planhub/internal/domain/entity"

	"github.com/google/uuid"
)

// UserRepository defines the standard operations for user persistence.
type UserRepository interface {
	// FindByID retrieves a single user by their unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// FindByIDForUpdate retrieves a user and row-locks it until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// FindByEmail retrieves a single user by their normalized email address.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// Create persists a new user entity to the storage.
	Create(ctx context.Context, user *entity.User) error

	// Update modifies the profile and credential columns of an existing user.
	// ActivePlanID is left untouched.
	Update(ctx context.Context, user *entity.User) error

	// SetActivePlan points the user's cached active plan at planID.
	SetActivePlan(ctx context.Context, userID, planID uuid.UUID) error

	// ClearActivePlan nulls the cached active plan if it still equals planID.
	// It reports whether a row changed.
	ClearActivePlan(ctx context.Context, userID, planID uuid.UUID) (bool, error)
}
