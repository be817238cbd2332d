package sqlstore

import (
	"context"

	"planhub/internal/domain/entity"
	domainerrors "planhub/internal/domain/errors"
	"planhub/internal/domain/repository"
	"planhub/internal/infra/persistence/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// userRepository implements the domain.UserRepository interface using GORM.
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository is the constructor for userRepository.
func NewUserRepository(db *gorm.DB) repository.UserRepository {
	return &userRepository{
		db: db,
	}
}

func (repo *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return repo.findOne(repo.db.WithContext(ctx).Where("id = ?", id), "failed to find user by id")
}

// FindByIDForUpdate issues SELECT ... FOR UPDATE. SQLite has no row locks and
// its dialect drops the clause.
func (repo *userRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return repo.findOne(repo.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("id = ?", id), "failed to lock user")
}

func (repo *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return repo.findOne(repo.db.WithContext(ctx).Where("email = ?", email), "failed to find user by email")
}

func (repo *userRepository) findOne(query *gorm.DB, details string) (*entity.User, error) {
	var userM model.UserModel

	if err := query.First(&userM).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, domainerrors.ErrUserNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, details)
	}

	return toUserDomain(&userM), nil
}

func (repo *userRepository) Create(ctx context.Context, user *entity.User) error {
	if err := repo.db.WithContext(ctx).Create(fromUserDomain(user)).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return domainerrors.ErrUserAlreadyExists
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create user")
	}

	return nil
}

func (repo *userRepository) Update(ctx context.Context, user *entity.User) error {
	if err := repo.db.WithContext(ctx).
		Model(&model.UserModel{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"email":           user.Email,
			"hashed_password": user.HashedPassword,
			"first_name":      user.FirstName,
			"last_name":       user.LastName,
			"mobile_number":   user.MobileNumber,
			"postal_address":  user.PostalAddress,
		}).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return domainerrors.ErrUserAlreadyExists
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to update user")
	}

	return nil
}

func (repo *userRepository) SetActivePlan(ctx context.Context, userID, planID uuid.UUID) error {
	if err := repo.db.WithContext(ctx).
		Model(&model.UserModel{}).
		Where("id = ?", userID).
		Update("active_plan_id", planID).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to set active plan")
	}

	return nil
}

func (repo *userRepository) ClearActivePlan(ctx context.Context, userID, planID uuid.UUID) (bool, error) {
	result := repo.db.WithContext(ctx).
		Model(&model.UserModel{}).
		Where("id = ? AND active_plan_id = ?", userID, planID).
		Update("active_plan_id", nil)

	if result.Error != nil {
		return false, domainerrors.NewDatabaseExecuteError(result.Error, "failed to clear active plan")
	}

	return result.RowsAffected > 0, nil
}

// --- Mapper Functions ---

func toUserDomain(data *model.UserModel) *entity.User {
	if data == nil {
		return nil
	}

	return &entity.User{
		ID:             data.ID,
		Email:          data.Email,
		HashedPassword: data.HashedPassword,
		FirstName:      data.FirstName,
		LastName:       data.LastName,
		MobileNumber:   data.MobileNumber,
		PostalAddress:  data.PostalAddress,
		ActivePlanID:   data.ActivePlanID,
	}
}

func fromUserDomain(data *entity.User) *model.UserModel {
	if data == nil {
		return nil
	}

	return &model.UserModel{
		ID:             data.ID,
		Email:          data.Email,
		HashedPassword: data.HashedPassword,
		FirstName:      data.FirstName,
		LastName:       data.LastName,
		MobileNumber:   data.MobileNumber,
		PostalAddress:  data.PostalAddress,
		ActivePlanID:   data.ActivePlanID,
	}
}
