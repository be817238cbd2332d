package impl

import (
	"context"
	"log/slog"
	"time"

	"planhub/config"
	deliverycontext "planhub/internal/delivery/context"
	"planhub/internal/domain/entity"
	domainerrors "planhub/internal/domain/errors"
	"planhub/internal/domain/repository"
	"planhub/internal/domain/service"
	"planhub/internal/errors"
	"planhub/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

const defaultExpiryBatchSize = 500

type subscriptionService struct {
	txManager    repository.TransactionManager
	userRepo     repository.UserRepository
	userPlanRepo repository.UserPlanRepository
	publisher    service.EventPublisher
	recorder     service.SubscriptionRecorder
	clock        service.Clock
	batchSize    int
	logger       *slog.Logger
}

// SubscriptionServiceParams holds dependencies for SubscriptionService, injected by Fx.
type SubscriptionServiceParams struct {
	fx.In

	TxManager    repository.TransactionManager
	UserRepo     repository.UserRepository
	UserPlanRepo repository.UserPlanRepository
	Publisher    service.EventPublisher
	Recorder     service.SubscriptionRecorder `optional:"true"`
	Clock        service.Clock                `optional:"true"`
	Config       *config.Config
	Logger       *slog.Logger
}

// NewSubscriptionService creates a new subscription service instance
func NewSubscriptionService(params SubscriptionServiceParams) usecase.SubscriptionUsecase {
	srv := &subscriptionService{
		txManager:    params.TxManager,
		userRepo:     params.UserRepo,
		userPlanRepo: params.UserPlanRepo,
		publisher:    params.Publisher,
		recorder:     params.Recorder,
		clock:        params.Clock,
		batchSize:    defaultExpiryBatchSize,
		logger:       params.Logger,
	}
	if srv.recorder == nil {
		srv.recorder = noopRecorder{}
	}
	if srv.clock == nil {
		srv.clock = service.SystemClock()
	}
	if sub := params.Config.Subscription; sub != nil && sub.ExpiryBatchSize > 0 {
		srv.batchSize = sub.ExpiryBatchSize
	}

	return srv
}

func (srv *subscriptionService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.LoggerFrom(ctx, srv.logger)
}

// now is second-precision UTC, the resolution every store keeps.
func (srv *subscriptionService) now() time.Time {
	return srv.clock().UTC().Truncate(time.Second)
}

// Purchase serializes on the user row: the lock is held while prior rows are
// deactivated and the new one is inserted.
func (srv *subscriptionService) Purchase(ctx context.Context, userID, planID string) (*entity.UserPlan, error) {
	uid, err := parseID(userID, domainerrors.ErrUserNotFound)
	if err != nil {
		return nil, err
	}
	pid, err := parseID(planID, domainerrors.ErrPlanNotFound)
	if err != nil {
		return nil, err
	}

	var purchased *entity.UserPlan
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()
		userPlanRepo := repoFactory.UserPlanRepo()

		user, err := userRepo.FindByIDForUpdate(ctx, uid)
		if err != nil {
			return err
		}
		plan, err := repoFactory.PlanRepo().FindByID(ctx, pid)
		if err != nil {
			return err
		}

		start, end := plan.WindowFrom(srv.now())
		superseded, err := userPlanRepo.DeactivateByUser(ctx, user.ID)
		if err != nil {
			return err
		}

		userPlan := &entity.UserPlan{
			ID:        uuid.New(),
			UserID:    user.ID,
			PlanID:    plan.ID,
			StartDate: start,
			EndDate:   end,
			Active:    true,
		}
		if err := userPlanRepo.Create(ctx, userPlan); err != nil {
			return err
		}
		if err := userRepo.SetActivePlan(ctx, user.ID, plan.ID); err != nil {
			return err
		}

		if superseded > 0 {
			srv.log(ctx).Debug("Superseded active plans",
				slog.String("user_id", user.ID.String()),
				slog.Int64("count", superseded))
		}
		purchased = userPlan

		return nil
	})
	if err != nil {
		return nil, err
	}

	srv.recorder.PurchaseCompleted()
	srv.log(ctx).Info("Plan purchased",
		slog.String("user_id", purchased.UserID.String()),
		slog.String("plan_id", purchased.PlanID.String()),
		slog.String("user_plan_id", purchased.ID.String()))
	srv.publish(ctx, service.EventPlanPurchased, purchased)

	return purchased, nil
}

// ExpireDue sweeps in batches until a batch comes back short. Each batch
// commits on its own, so a cancelled sweep keeps the batches already done.
func (srv *subscriptionService) ExpireDue(ctx context.Context) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, errors.Wrap(err, "expiry sweep interrupted")
		}

		expired, err := srv.expireBatch(ctx, srv.now())
		if err != nil {
			return total, err
		}
		total += len(expired)

		if len(expired) > 0 {
			srv.recorder.PlansExpired(len(expired))
			for _, userPlan := range expired {
				srv.publish(ctx, service.EventPlanExpired, userPlan)
			}
		}

		if len(expired) < srv.batchSize {
			break
		}
	}

	if total > 0 {
		srv.log(ctx).Info("Expired plans", slog.Int("count", total))
	}

	return total, nil
}

func (srv *subscriptionService) expireBatch(ctx context.Context, now time.Time) ([]*entity.UserPlan, error) {
	var expired []*entity.UserPlan
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()
		userPlanRepo := repoFactory.UserPlanRepo()

		locked, err := userPlanRepo.FindDueForUpdate(ctx, now, srv.batchSize)
		if err != nil {
			return err
		}

		due := make([]*entity.UserPlan, 0, len(locked))
		ids := make([]uuid.UUID, 0, len(locked))
		for _, userPlan := range locked {
			if !userPlan.IsDue(now) {
				continue
			}
			due = append(due, userPlan)
			ids = append(ids, userPlan.ID)
		}
		if len(due) == 0 {
			return nil
		}
		if _, err := userPlanRepo.Deactivate(ctx, ids); err != nil {
			return err
		}

		checked := make(map[uuid.UUID]bool, len(due))
		for _, userPlan := range due {
			userPlan.Active = false
			if checked[userPlan.UserID] {
				continue
			}
			checked[userPlan.UserID] = true

			remaining, err := userPlanRepo.FindActiveByUser(ctx, userPlan.UserID)
			if err != nil {
				return err
			}
			if hasCurrent(remaining, now) {
				continue
			}
			if _, err := userRepo.ClearActivePlan(ctx, userPlan.UserID, userPlan.PlanID); err != nil {
				return err
			}
		}
		expired = due

		return nil
	})
	if err != nil {
		return nil, err
	}

	return expired, nil
}

func hasCurrent(userPlans []*entity.UserPlan, now time.Time) bool {
	for _, userPlan := range userPlans {
		if userPlan.IsCurrent(now) {
			return true
		}
	}

	return false
}

func (srv *subscriptionService) GetActivePlan(ctx context.Context, userID string) (*entity.UserPlan, error) {
	uid, err := parseID(userID, domainerrors.ErrUserNotFound)
	if err != nil {
		return nil, err
	}
	if _, err := srv.userRepo.FindByID(ctx, uid); err != nil {
		return nil, err
	}

	active, err := srv.userPlanRepo.FindActiveByUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	now := srv.now()
	for _, userPlan := range active {
		if userPlan.IsCurrent(now) {
			return userPlan, nil
		}
	}

	return nil, domainerrors.ErrUserPlanNotFound
}

func (srv *subscriptionService) ListHistory(ctx context.Context, userID string) ([]*entity.UserPlan, error) {
	uid, err := parseID(userID, domainerrors.ErrUserNotFound)
	if err != nil {
		return nil, err
	}
	if _, err := srv.userRepo.FindByID(ctx, uid); err != nil {
		return nil, err
	}

	return srv.userPlanRepo.FindByUser(ctx, uid)
}

// publish is best effort: the state change has already committed.
func (srv *subscriptionService) publish(ctx context.Context, eventType string, userPlan *entity.UserPlan) {
	event := &service.SubscriptionEvent{
		Type:       eventType,
		RequestID:  deliverycontext.RequestIDFrom(ctx),
		UserPlanID: userPlan.ID.String(),
		UserID:     userPlan.UserID.String(),
		PlanID:     userPlan.PlanID.String(),
		StartDate:  userPlan.StartDate,
		EndDate:    userPlan.EndDate,
		OccurredAt: srv.now(),
	}

	if err := srv.publisher.PublishSubscriptionEvent(ctx, event); err != nil {
		srv.recorder.EventPublishFailed(eventType)
		srv.log(ctx).Warn("Failed to publish subscription event",
			slog.String("type", eventType),
			slog.String("user_plan_id", event.UserPlanID),
			slog.Any("error", err))
	}
}

type noopRecorder struct{}

func (noopRecorder) PurchaseCompleted()        {}
func (noopRecorder) PlansExpired(int)          {}
func (noopRecorder) EventPublishFailed(string) {}
