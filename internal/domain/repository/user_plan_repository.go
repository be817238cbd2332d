package repository

import (
	"context"
	"time"

	"planhub/internal/domain/entity"

	"github.com/google/uuid"
)

// UserPlanRepository persists the append-only purchase history.
type UserPlanRepository interface {
	// Create inserts a new purchase row.
	Create(ctx context.Context, userPlan *entity.UserPlan) error

	// FindActiveByUser returns the user's active rows, newest first.
	FindActiveByUser(ctx context.Context, userID uuid.UUID) ([]*entity.UserPlan, error)

	// FindByUser returns the user's whole history, newest first.
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*entity.UserPlan, error)

	// DeactivateByUser marks every active row of the user inactive and returns how many changed.
	DeactivateByUser(ctx context.Context, userID uuid.UUID) (int64, error)

	// FindDueForUpdate locks and returns up to limit active rows whose end date is <= now.
	FindDueForUpdate(ctx context.Context, now time.Time, limit int) ([]*entity.UserPlan, error)

	// Deactivate marks the given rows inactive.
	Deactivate(ctx context.Context, ids []uuid.UUID) (int64, error)

	// CountByPlan returns how many purchases reference planID.
	CountByPlan(ctx context.Context, planID uuid.UUID) (int64, error)
}
