package usecase

import (
	"context"

	"planhub/internal/domain/entity"
)

// CreatePlanInput defines the data required to add a plan to the catalog.
type CreatePlanInput struct {
	Name        string
	Description string
	Price       int
	Validity    int
}

// UpdatePlanInput carries the fields to change. Nil fields keep their value.
type UpdatePlanInput struct {
	Name        *string
	Description *string
	Price       *int
	Validity    *int
}

// PlanUsecase manages the plan catalog. IDs are UUID strings; a malformed ID
// is reported as not found.
type PlanUsecase interface {
	CreatePlan(ctx context.Context, input *CreatePlanInput) (*entity.Plan, error)
	GetPlan(ctx context.Context, id string) (*entity.Plan, error)
	ListPlans(ctx context.Context) ([]*entity.Plan, error)
	UpdatePlan(ctx context.Context, id string, input *UpdatePlanInput) (*entity.Plan, error)
	// DeletePlan fails with a conflict while any purchase references the plan.
	DeletePlan(ctx context.Context, id string) error
}
