package impl

import (
	"context"
	"log/slog"
	"sync"

	deliverycontext "planhub/internal/delivery/context"
	"planhub/internal/domain/entity"
	domainerrors "planhub/internal/domain/errors"
	"planhub/internal/domain/repository"
	"planhub/internal/domain/service"
	"planhub/internal/errors"
	"planhub/internal/infra/validation"
	"planhub/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// userService implements the UserUsecase interface.
type userService struct {
	txManager repository.TransactionManager
	userRepo  repository.UserRepository
	hasher    service.PasswordHasher
	validator *validation.Validator
	logger    *slog.Logger

	// dummyHash is compared against when the email is unknown, so both
	// failure paths spend one hash comparison.
	dummyHash func() string
}

// dummyPassword only seeds dummyHash; no stored user can have its hash.
const dummyPassword = "planhub-unknown-user"

// UserServiceParams holds dependencies for UserService, injected by Fx.
type UserServiceParams struct {
	fx.In

	TxManager repository.TransactionManager
	UserRepo  repository.UserRepository
	Hasher    service.PasswordHasher
	Validator *validation.Validator
	Logger    *slog.Logger
}

// userFields are the tag-validated profile columns of a user.
type userFields struct {
	Email         string `json:"email" validate:"required,email,max=254"`
	FirstName     string `json:"first_name" validate:"required,max=128"`
	LastName      string `json:"last_name" validate:"required,max=128"`
	MobileNumber  string `json:"mobile_number" validate:"required,max=128"`
	PostalAddress string `json:"postal_address" validate:"required"`
}

// NewUserService is the constructor for userService. It receives all dependencies as interfaces.
func NewUserService(params UserServiceParams) usecase.UserUsecase {
	srv := &userService{
		txManager: params.TxManager,
		userRepo:  params.UserRepo,
		hasher:    params.Hasher,
		validator: params.Validator,
		logger:    params.Logger,
	}
	srv.dummyHash = sync.OnceValue(func() string {
		hash, err := srv.hasher.Hash(dummyPassword)
		if err != nil {
			srv.logger.Warn("Failed to prepare dummy password hash", slog.Any("error", err))

			return ""
		}

		return hash
	})

	return srv
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *userService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.LoggerFrom(ctx, srv.logger)
}

func (srv *userService) validate(user *entity.User) error {
	return srv.validator.Struct(userFields{
		Email:         user.Email,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		MobileNumber:  user.MobileNumber,
		PostalAddress: user.PostalAddress,
	})
}

// CreateUser registers a user. The email is checked before the insert and
// again by the unique index, which catches a concurrent registration.
func (srv *userService) CreateUser(ctx context.Context, input *usecase.CreateUserInput) (*entity.User, error) {
	user := &entity.User{
		ID:            uuid.New(),
		Email:         normalizeEmail(input.Email),
		FirstName:     input.FirstName,
		LastName:      input.LastName,
		MobileNumber:  input.MobileNumber,
		PostalAddress: input.PostalAddress,
	}
	if err := srv.validate(user); err != nil {
		return nil, err
	}

	// Hash outside the transaction; bcrypt is deliberately slow.
	hashedPassword, err := srv.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}
	user.HashedPassword = hashedPassword

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()

		if err := srv.ensureEmailAvailable(ctx, userRepo, user.Email, uuid.Nil); err != nil {
			return err
		}

		return userRepo.Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("User created", slog.String("user_id", user.ID.String()))

	return user, nil
}

// ensureEmailAvailable fails with a conflict when email belongs to a user other than self.
func (srv *userService) ensureEmailAvailable(ctx context.Context, userRepo repository.UserRepository, email string, self uuid.UUID) error {
	existing, err := userRepo.FindByEmail(ctx, email)
	if domainerrors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to check email")
	}
	if existing.ID != self {
		return domainerrors.ErrUserAlreadyExists
	}

	return nil
}

// Authenticate answers unknown emails and wrong passwords with the same error
// and the same cost: an unknown email is still checked against a hash
// produced with the configured cost.
func (srv *userService) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	user, err := srv.userRepo.FindByEmail(ctx, normalizeEmail(email))
	if domainerrors.IsNotFound(err) {
		srv.hasher.Check(password, srv.dummyHash())

		return nil, domainerrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !srv.hasher.Check(password, user.HashedPassword) {
		srv.log(ctx).Debug("Password mismatch", slog.String("user_id", user.ID.String()))

		return nil, domainerrors.ErrInvalidCredentials
	}

	return user, nil
}

func (srv *userService) GetUser(ctx context.Context, id string) (*entity.User, error) {
	userID, err := parseID(id, domainerrors.ErrUserNotFound)
	if err != nil {
		return nil, err
	}

	return srv.userRepo.FindByID(ctx, userID)
}

// UpdateUser applies the supplied fields to a locked user row. The cached
// active plan is never touched here.
func (srv *userService) UpdateUser(ctx context.Context, id string, input *usecase.UpdateUserInput) (*entity.User, error) {
	userID, err := parseID(id, domainerrors.ErrUserNotFound)
	if err != nil {
		return nil, err
	}

	var hashedPassword string
	if input.Password != nil {
		if hashedPassword, err = srv.hasher.Hash(*input.Password); err != nil {
			return nil, err
		}
	}

	var updated *entity.User
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()

		user, err := userRepo.FindByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		if input.Email != nil {
			email := normalizeEmail(*input.Email)
			if email != user.Email {
				if err := srv.ensureEmailAvailable(ctx, userRepo, email, user.ID); err != nil {
					return err
				}
				user.Email = email
			}
		}
		if input.FirstName != nil {
			user.FirstName = *input.FirstName
		}
		if input.LastName != nil {
			user.LastName = *input.LastName
		}
		if input.MobileNumber != nil {
			user.MobileNumber = *input.MobileNumber
		}
		if input.PostalAddress != nil {
			user.PostalAddress = *input.PostalAddress
		}
		if err := srv.validate(user); err != nil {
			return err
		}
		if hashedPassword != "" {
			user.HashedPassword = hashedPassword
		}

		if err := userRepo.Update(ctx, user); err != nil {
			return err
		}
		updated = user

		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}
