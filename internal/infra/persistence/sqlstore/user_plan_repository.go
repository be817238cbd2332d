package sqlstore

import (
	"context"
	"time"

	"planhub/internal/domain/entity"
	domainerrors "planhub/internal/domain/errors"
	"planhub/internal/domain/repository"
	"planhub/internal/infra/persistence/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// userPlanRepository implements the repository.UserPlanRepository interface.
type userPlanRepository struct {
	db *gorm.DB
}

// NewUserPlanRepository is the constructor for userPlanRepository.
func NewUserPlanRepository(db *gorm.DB) repository.UserPlanRepository {
	return &userPlanRepository{
		db: db,
	}
}

func (repo *userPlanRepository) Create(ctx context.Context, userPlan *entity.UserPlan) error {
	if err := repo.db.WithContext(ctx).Create(fromUserPlanDomain(userPlan)).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to create user plan")
	}

	return nil
}

func (repo *userPlanRepository) FindActiveByUser(ctx context.Context, userID uuid.UUID) ([]*entity.UserPlan, error) {
	return repo.find(repo.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Order("start_date DESC"), "failed to find active user plans")
}

func (repo *userPlanRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*entity.UserPlan, error) {
	return repo.find(repo.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("start_date DESC").
		Order("end_date DESC"), "failed to find user plans")
}

// FindDueForUpdate skips rows locked by a concurrent sweep so that two workers
// never wait on each other.
func (repo *userPlanRepository) FindDueForUpdate(ctx context.Context, now time.Time, limit int) ([]*entity.UserPlan, error) {
	return repo.find(repo.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate, Options: clause.LockingOptionsSkipLocked}).
		Where("active = ? AND end_date <= ?", true, now).
		Order("end_date ASC").
		Order("id ASC").
		Limit(limit), "failed to find due user plans")
}

func (repo *userPlanRepository) find(query *gorm.DB, details string) ([]*entity.UserPlan, error) {
	var userPlanModels []*model.UserPlanModel

	if err := query.Find(&userPlanModels).Error; err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, details)
	}

	userPlans := make([]*entity.UserPlan, 0, len(userPlanModels))
	for _, userPlanM := range userPlanModels {
		userPlans = append(userPlans, toUserPlanDomain(userPlanM))
	}

	return userPlans, nil
}

func (repo *userPlanRepository) DeactivateByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := repo.db.WithContext(ctx).
		Model(&model.UserPlanModel{}).
		Where("user_id = ? AND active = ?", userID, true).
		Update("active", false)

	if result.Error != nil {
		return 0, domainerrors.NewDatabaseExecuteError(result.Error, "failed to deactivate user plans")
	}

	return result.RowsAffected, nil
}

func (repo *userPlanRepository) Deactivate(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result := repo.db.WithContext(ctx).
		Model(&model.UserPlanModel{}).
		Where("id IN ? AND active = ?", ids, true).
		Update("active", false)

	if result.Error != nil {
		return 0, domainerrors.NewDatabaseExecuteError(result.Error, "failed to deactivate user plans")
	}

	return result.RowsAffected, nil
}

func (repo *userPlanRepository) CountByPlan(ctx context.Context, planID uuid.UUID) (int64, error) {
	var count int64

	if err := repo.db.WithContext(ctx).
		Model(&model.UserPlanModel{}).
		Where("plan_id = ?", planID).
		Count(&count).Error; err != nil {
		return 0, domainerrors.NewDatabaseExecuteError(err, "failed to count user plans")
	}

	return count, nil
}

// --- Mapper Functions ---

func toUserPlanDomain(data *model.UserPlanModel) *entity.UserPlan {
	if data == nil {
		return nil
	}

	return &entity.UserPlan{
		ID:        data.ID,
		UserID:    data.UserID,
		PlanID:    data.PlanID,
		StartDate: data.StartDate.UTC(),
		EndDate:   data.EndDate.UTC(),
		Active:    data.Active,
	}
}

func fromUserPlanDomain(data *entity.UserPlan) *model.UserPlanModel {
	if data == nil {
		return nil
	}

	return &model.UserPlanModel{
		ID:        data.ID,
		UserID:    data.UserID,
		PlanID:    data.PlanID,
		StartDate: data.StartDate.UTC(),
		EndDate:   data.EndDate.UTC(),
		Active:    data.Active,
	}
}
