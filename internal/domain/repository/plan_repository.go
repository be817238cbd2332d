// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the use cases and the infrastructure layer.
package repository

import (
	"context"

	"planhub/internal/domain/entity"

	"github.com/google/uuid"
)

// PlanRepository defines the persistence operations of the plan catalog.
type PlanRepository interface {
	// Create persists a new plan. The ID must already be set.
	Create(ctx context.Context, plan *entity.Plan) error

	// FindByID retrieves a plan, returning domain ErrPlanNotFound when absent.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Plan, error)

	// List returns every plan ordered by price, then name.
	List(ctx context.Context) ([]*entity.Plan, error)

	// Update overwrites all mutable columns of an existing plan.
	Update(ctx context.Context, plan *entity.Plan) error

	// Delete removes a plan, returning domain ErrPlanNotFound when absent.
	Delete(ctx context.Context, id uuid.UUID) error
}
