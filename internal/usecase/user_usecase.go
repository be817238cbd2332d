// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"planhub/internal/domain/entity"
)

// --- Input DTOs ---

// CreateUserInput defines the data required to register a new user.
type CreateUserInput struct {
	Email         string
	Password      string
	FirstName     string
	LastName      string
	MobileNumber  string
	PostalAddress string
}

// UpdateUserInput carries the fields to change. Nil fields keep their value;
// a non-nil Password replaces the stored hash.
type UpdateUserInput struct {
	Email         *string
	Password      *string
	FirstName     *string
	LastName      *string
	MobileNumber  *string
	PostalAddress *string
}

// UserUsecase defines the interface for user-related business operations.
// This is the contract that the delivery layer (e.g., API handlers) will depend on.
type UserUsecase interface {
	CreateUser(ctx context.Context, input *CreateUserInput) (*entity.User, error)
	// Authenticate verifies credentials only; it issues no token or session.
	Authenticate(ctx context.Context, email, password string) (*entity.User, error)
	GetUser(ctx context.Context, id string) (*entity.User, error)
	UpdateUser(ctx context.Context, id string, input *UpdateUserInput) (*entity.User, error)
}
