package usecase

import (
	"context"

	"planhub/internal/domain/entity"
)

// SubscriptionUsecase links users to plans through time-bounded purchases.
type SubscriptionUsecase interface {
	// Purchase makes planID the user's only active plan, starting now.
	Purchase(ctx context.Context, userID, planID string) (*entity.UserPlan, error)
	// ExpireDue deactivates every purchase whose window has ended and returns
	// how many rows changed. Running it again without time passing changes nothing.
	ExpireDue(ctx context.Context) (int, error)
	GetActivePlan(ctx context.Context, userID string) (*entity.UserPlan, error)
	// ListHistory returns every purchase of the user, newest first.
	ListHistory(ctx context.Context, userID string) ([]*entity.UserPlan, error)
}
