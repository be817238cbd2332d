package impl

import (
	"context"
	"log/slog"

	deliverycontext "planhub/internal/delivery/context"
	"planhub/internal/domain/entity"
	domainerrors "planhub/internal/domain/errors"
	"planhub/internal/domain/repository"
	"planhub/internal/infra/validation"
	"planhub/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

type planService struct {
	txManager repository.TransactionManager
	planRepo  repository.PlanRepository
	validator *validation.Validator
	logger    *slog.Logger
}

// PlanServiceParams holds dependencies for PlanService, injected by Fx.
type PlanServiceParams struct {
	fx.In

	TxManager repository.TransactionManager
	PlanRepo  repository.PlanRepository
	Validator *validation.Validator
	Logger    *slog.Logger
}

// planFields are the tag-validated columns of a plan.
type planFields struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"required"`
}

// NewPlanService creates a new plan service instance
func NewPlanService(params PlanServiceParams) usecase.PlanUsecase {
	return &planService{
		txManager: params.TxManager,
		planRepo:  params.PlanRepo,
		validator: params.Validator,
		logger:    params.Logger,
	}
}

func (srv *planService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.LoggerFrom(ctx, srv.logger)
}

func (srv *planService) validate(plan *entity.Plan) error {
	if err := srv.validator.Struct(planFields{Name: plan.Name, Description: plan.Description}); err != nil {
		return err
	}
	if plan.Price < 0 || plan.Price > entity.MaxPrice {
		return domainerrors.ErrInvalidPrice
	}
	if plan.Validity <= 0 || plan.Validity > entity.MaxValidityDays {
		return domainerrors.ErrInvalidValidity
	}

	return nil
}

func (srv *planService) CreatePlan(ctx context.Context, input *usecase.CreatePlanInput) (*entity.Plan, error) {
	plan := &entity.Plan{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Validity:    input.Validity,
	}
	if err := srv.validate(plan); err != nil {
		return nil, err
	}

	if err := srv.planRepo.Create(ctx, plan); err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Plan created", slog.String("plan_id", plan.ID.String()), slog.String("name", plan.Name))

	return plan, nil
}

func (srv *planService) GetPlan(ctx context.Context, id string) (*entity.Plan, error) {
	planID, err := parseID(id, domainerrors.ErrPlanNotFound)
	if err != nil {
		return nil, err
	}

	return srv.planRepo.FindByID(ctx, planID)
}

func (srv *planService) ListPlans(ctx context.Context) ([]*entity.Plan, error) {
	return srv.planRepo.List(ctx)
}

// UpdatePlan merges the supplied fields under a transaction and re-validates
// the result before writing it.
func (srv *planService) UpdatePlan(ctx context.Context, id string, input *usecase.UpdatePlanInput) (*entity.Plan, error) {
	planID, err := parseID(id, domainerrors.ErrPlanNotFound)
	if err != nil {
		return nil, err
	}

	var updated *entity.Plan
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		planRepo := repoFactory.PlanRepo()

		plan, err := planRepo.FindByID(ctx, planID)
		if err != nil {
			return err
		}

		if input.Name != nil {
			plan.Name = *input.Name
		}
		if input.Description != nil {
			plan.Description = *input.Description
		}
		if input.Price != nil {
			plan.Price = *input.Price
		}
		if input.Validity != nil {
			plan.Validity = *input.Validity
		}
		if err := srv.validate(plan); err != nil {
			return err
		}

		if err := planRepo.Update(ctx, plan); err != nil {
			return err
		}
		updated = plan

		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// DeletePlan refuses while any purchase references the plan. The check and
// the delete share one transaction.
func (srv *planService) DeletePlan(ctx context.Context, id string) error {
	planID, err := parseID(id, domainerrors.ErrPlanNotFound)
	if err != nil {
		return err
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		if _, err := repoFactory.PlanRepo().FindByID(ctx, planID); err != nil {
			return err
		}

		references, err := repoFactory.UserPlanRepo().CountByPlan(ctx, planID)
		if err != nil {
			return err
		}
		if references > 0 {
			return domainerrors.ErrPlanInUse
		}

		return repoFactory.PlanRepo().Delete(ctx, planID)
	})
	if err != nil {
		return err
	}

	srv.log(ctx).Info("Plan deleted", slog.String("plan_id", planID.String()))

	return nil
}
