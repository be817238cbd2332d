package sqlstore

import (
	"context"

	"planhub/internal/domain/entity"
	domainerrors "planhub/internal/domain/errors"
	"planhub/internal/domain/repository"
	"planhub/internal/infra/persistence/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// planRepository implements the repository.PlanRepository interface.
type planRepository struct {
	db *gorm.DB
}

// NewPlanRepository is the constructor for planRepository.
func NewPlanRepository(db *gorm.DB) repository.PlanRepository {
	return &planRepository{
		db: db,
	}
}

func (repo *planRepository) Create(ctx context.Context, plan *entity.Plan) error {
	if err := repo.db.WithContext(ctx).Create(fromPlanDomain(plan)).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to create plan")
	}

	return nil
}

func (repo *planRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Plan, error) {
	var planM model.PlanModel

	if err := repo.db.WithContext(ctx).
		Where("id = ?", id).
		First(&planM).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, domainerrors.ErrPlanNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to find plan by id")
	}

	return toPlanDomain(&planM), nil
}

func (repo *planRepository) List(ctx context.Context) ([]*entity.Plan, error) {
	var planModels []*model.PlanModel

	if err := repo.db.WithContext(ctx).
		Order("price ASC").
		Order("name ASC").
		Find(&planModels).Error; err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to list plans")
	}

	plans := make([]*entity.Plan, 0, len(planModels))
	for _, planM := range planModels {
		plans = append(plans, toPlanDomain(planM))
	}

	return plans, nil
}

// Update does not report a missing row: MySQL counts unchanged rows as
// unaffected, so callers load the plan first.
func (repo *planRepository) Update(ctx context.Context, plan *entity.Plan) error {
	if err := repo.db.WithContext(ctx).
		Model(&model.PlanModel{}).
		Where("id = ?", plan.ID).
		Updates(map[string]any{
			"name":        plan.Name,
			"description": plan.Description,
			"price":       plan.Price,
			"validity":    plan.Validity,
		}).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to update plan")
	}

	return nil
}

func (repo *planRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.PlanModel{})

	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete plan")
	}

	if result.RowsAffected == 0 {
		return domainerrors.ErrPlanNotFound
	}

	return nil
}

// --- Mapper Functions ---

func toPlanDomain(data *model.PlanModel) *entity.Plan {
	if data == nil {
		return nil
	}

	return &entity.Plan{
		ID:          data.ID,
		Name:        data.Name,
		Description: data.Description,
		Price:       data.Price,
		Validity:    data.Validity,
	}
}

func fromPlanDomain(data *entity.Plan) *model.PlanModel {
	if data == nil {
		return nil
	}

	return &model.PlanModel{
		ID:          data.ID,
		Name:        data.Name,
		Description: data.Description,
		Price:       data.Price,
		Validity:    data.Validity,
	}
}
