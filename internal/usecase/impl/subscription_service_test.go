package impl

import (
	"context"
	"testing"
	"time"

	"planhub/internal/domain/entity"
	domainerrors "planhub/internal/domain/errors"
	"planhub/internal/domain/repository"
	"planhub/internal/domain/service"
	"planhub/internal/errors"
	mockSvc "planhub/internal/mocks/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type countingRecorder struct {
	purchases int
	expired   int
	failures  map[string]int
}

func (r *countingRecorder) PurchaseCompleted() { r.purchases++ }
func (r *countingRecorder) PlansExpired(n int) { r.expired += n }
func (r *countingRecorder) EventPublishFailed(eventType string) {
	if r.failures == nil {
		r.failures = map[string]int{}
	}
	r.failures[eventType]++
}

// failingTxManager breaks SetActivePlan inside transactions while fail is set,
// which aborts a purchase after its rows were written.
type failingTxManager struct {
	repository.TransactionManager
	fail *bool
}

func (m failingTxManager) Execute(ctx context.Context, fn func(repository.RepositoryFactory) error) error {
	return m.TransactionManager.Execute(ctx, func(factory repository.RepositoryFactory) error {
		if *m.fail {
			return fn(failingFactory{factory})
		}

		return fn(factory)
	})
}

type failingFactory struct {
	repository.RepositoryFactory
}

func (f failingFactory) UserRepo() repository.UserRepository {
	return failingUserRepo{f.RepositoryFactory.UserRepo()}
}

type failingUserRepo struct {
	repository.UserRepository
}

func (failingUserRepo) SetActivePlan(context.Context, uuid.UUID, uuid.UUID) error {
	return domainerrors.NewDatabaseExecuteError(errors.New("connection reset"), "failed to set active plan")
}

func TestSubscriptionService_Purchase(t *testing.T) {
	recorder := &countingRecorder{}
	f := newFixture(t, withRecorder(recorder))
	ctx := context.Background()

	plan := f.createPlan(t, "basic", 1000, 30)
	user := f.createUser(t, "ada@example.com")

	userPlan, err := f.subs.Purchase(ctx, user.ID.String(), plan.ID.String())
	require.NoError(t, err)
	assert.Equal(t, user.ID, userPlan.UserID)
	assert.Equal(t, plan.ID, userPlan.PlanID)
	assert.Equal(t, day0, userPlan.StartDate)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), userPlan.EndDate)
	assert.True(t, userPlan.Active)

	stored, err := f.users.GetUser(ctx, user.ID.String())
	require.NoError(t, err)
	assert.True(t, stored.HasActivePlan(plan.ID))

	active, err := f.subs.GetActivePlan(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, userPlan, active)

	require.Len(t, f.events, 1)
	assert.Equal(t, service.EventPlanPurchased, f.events[0].Type)
	assert.Equal(t, userPlan.ID.String(), f.events[0].UserPlanID)
	assert.Equal(t, user.ID.String(), f.events[0].UserID)
	assert.Equal(t, plan.ID.String(), f.events[0].PlanID)
	assert.Equal(t, 1, recorder.purchases)
}

func TestSubscriptionService_PurchaseSupersedes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	basic := f.createPlan(t, "basic", 1000, 30)
	gold := f.createPlan(t, "gold", 3000, 90)
	user := f.createUser(t, "ada@example.com")

	first, err := f.subs.Purchase(ctx, user.ID.String(), basic.ID.String())
	require.NoError(t, err)

	f.now = day0.Add(time.Hour)
	second, err := f.subs.Purchase(ctx, user.ID.String(), gold.ID.String())
	require.NoError(t, err)

	active, err := f.upRepo.FindActiveByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)

	history, err := f.subs.ListHistory(ctx, user.ID.String())
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)
	assert.False(t, history[1].Active)

	stored, err := f.users.GetUser(ctx, user.ID.String())
	require.NoError(t, err)
	assert.True(t, stored.HasActivePlan(gold.ID))
}

func TestSubscriptionService_PurchaseNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	plan := f.createPlan(t, "basic", 1000, 30)
	user := f.createUser(t, "ada@example.com")

	tests := []struct {
		name    string
		userID  string
		planID  string
		wantErr error
	}{
		{name: "unknown user", userID: uuid.NewString(), planID: plan.ID.String(), wantErr: domainerrors.ErrUserNotFound},
		{name: "malformed user", userID: "7", planID: plan.ID.String(), wantErr: domainerrors.ErrUserNotFound},
		{name: "unknown plan", userID: user.ID.String(), planID: uuid.NewString(), wantErr: domainerrors.ErrPlanNotFound},
		{name: "malformed plan", userID: user.ID.String(), planID: "gold", wantErr: domainerrors.ErrPlanNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userPlan, err := f.subs.Purchase(ctx, tt.userID, tt.planID)
			assert.Nil(t, userPlan)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, domainerrors.IsNotFound(err))
		})
	}

	history, err := f.subs.ListHistory(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Empty(t, f.events)
}

func TestSubscriptionService_PurchaseRollsBack(t *testing.T) {
	fail := false
	f := newFixture(t, withTxManager(func(tm repository.TransactionManager) repository.TransactionManager {
		return failingTxManager{TransactionManager: tm, fail: &fail}
	}))
	ctx := context.Background()

	basic := f.createPlan(t, "basic", 1000, 30)
	gold := f.createPlan(t, "gold", 3000, 90)
	user := f.createUser(t, "ada@example.com")

	first, err := f.subs.Purchase(ctx, user.ID.String(), basic.ID.String())
	require.NoError(t, err)

	fail = true
	_, err = f.subs.Purchase(ctx, user.ID.String(), gold.ID.String())
	require.Error(t, err)
	assert.Equal(t, domainerrors.KindInternal, domainerrors.KindOf(err))

	history, err := f.subs.ListHistory(ctx, user.ID.String())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, first.ID, history[0].ID)
	assert.True(t, history[0].Active)

	stored, err := f.users.GetUser(ctx, user.ID.String())
	require.NoError(t, err)
	assert.True(t, stored.HasActivePlan(basic.ID))
	assert.Len(t, f.events, 1)
}

func TestSubscriptionService_PublishFailureIsBestEffort(t *testing.T) {
	publisher := mockSvc.NewMockEventPublisher(t)
	publisher.EXPECT().
		PublishSubscriptionEvent(mock.Anything, mock.MatchedBy(func(event *service.SubscriptionEvent) bool {
			return event.Type == service.EventPlanPurchased
		})).
		Return(errors.New("topic not found")).
		Once()

	recorder := &countingRecorder{}
	f := newFixture(t, withPublisher(publisher), withRecorder(recorder))
	plan := f.createPlan(t, "basic", 1000, 30)
	user := f.createUser(t, "ada@example.com")

	userPlan, err := f.subs.Purchase(context.Background(), user.ID.String(), plan.ID.String())
	require.NoError(t, err)
	assert.True(t, userPlan.Active)
	assert.Equal(t, 1, recorder.purchases)
	assert.Equal(t, 1, recorder.failures[service.EventPlanPurchased])
}

func TestSubscriptionService_ExpireDue(t *testing.T) {
	recorder := &countingRecorder{}
	f := newFixture(t, withRecorder(recorder))
	ctx := context.Background()

	plan := f.createPlan(t, "basic", 1000, 30)
	user := f.createUser(t, "ada@example.com")
	userPlan, err := f.subs.Purchase(ctx, user.ID.String(), plan.ID.String())
	require.NoError(t, err)

	f.now = userPlan.EndDate.Add(-time.Second)
	expired, err := f.subs.ExpireDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, expired)

	f.now = userPlan.EndDate
	expired, err = f.subs.ExpireDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	stored, err := f.users.GetUser(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Nil(t, stored.ActivePlanID)

	_, err = f.subs.GetActivePlan(ctx, user.ID.String())
	assert.ErrorIs(t, err, domainerrors.ErrUserPlanNotFound)

	history, err := f.subs.ListHistory(ctx, user.ID.String())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].Active)

	// a second sweep finds nothing left to do
	expired, err = f.subs.ExpireDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, expired)

	assert.Equal(t, 1, recorder.expired)
	require.Len(t, f.events, 2)
	assert.Equal(t, service.EventPlanExpired, f.events[1].Type)
	assert.Equal(t, userPlan.ID.String(), f.events[1].UserPlanID)
}

func TestSubscriptionService_ExpireDueInBatches(t *testing.T) {
	f := newFixture(t, withBatchSize(2))
	ctx := context.Background()

	plan := f.createPlan(t, "weekly", 100, 7)
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com", "e@example.com"} {
		user := f.createUser(t, email)
		_, err := f.subs.Purchase(ctx, user.ID.String(), plan.ID.String())
		require.NoError(t, err)
	}

	f.now = day0.AddDate(0, 0, 8)
	expired, err := f.subs.ExpireDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, expired)

	expired, err = f.subs.ExpireDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, expired)
}

func TestSubscriptionService_ExpireDueKeepsOtherActivePlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	basic := f.createPlan(t, "basic", 1000, 30)
	gold := f.createPlan(t, "gold", 3000, 30)

	// Rows are inserted directly: a purchase would have superseded them.
	stillCurrent := f.createUser(t, "ada@example.com")
	ended := &entity.UserPlan{ID: uuid.New(), UserID: stillCurrent.ID, PlanID: basic.ID, StartDate: day0.AddDate(0, 0, -60), EndDate: day0.AddDate(0, 0, -30), Active: true}
	current := &entity.UserPlan{ID: uuid.New(), UserID: stillCurrent.ID, PlanID: basic.ID, StartDate: day0, EndDate: day0.AddDate(0, 0, 30), Active: true}
	require.NoError(t, f.upRepo.Create(ctx, ended))
	require.NoError(t, f.upRepo.Create(ctx, current))
	require.NoError(t, f.userRepo.SetActivePlan(ctx, stillCurrent.ID, basic.ID))

	otherCached := f.createUser(t, "grace@example.com")
	stale := &entity.UserPlan{ID: uuid.New(), UserID: otherCached.ID, PlanID: basic.ID, StartDate: day0.AddDate(0, 0, -30), EndDate: day0, Active: true}
	require.NoError(t, f.upRepo.Create(ctx, stale))
	require.NoError(t, f.userRepo.SetActivePlan(ctx, otherCached.ID, gold.ID))

	expired, err := f.subs.ExpireDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, expired)

	got, err := f.users.GetUser(ctx, stillCurrent.ID.String())
	require.NoError(t, err)
	assert.True(t, got.HasActivePlan(basic.ID))

	active, err := f.subs.GetActivePlan(ctx, stillCurrent.ID.String())
	require.NoError(t, err)
	assert.Equal(t, current.ID, active.ID)

	got, err = f.users.GetUser(ctx, otherCached.ID.String())
	require.NoError(t, err)
	assert.True(t, got.HasActivePlan(gold.ID))
}

func TestSubscriptionService_ExpireDueCancelled(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	expired, err := f.subs.ExpireDue(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, expired)
}

func TestSubscriptionService_Queries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.subs.GetActivePlan(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domainerrors.ErrUserNotFound)
	_, err = f.subs.ListHistory(ctx, "nope")
	assert.ErrorIs(t, err, domainerrors.ErrUserNotFound)

	user := f.createUser(t, "ada@example.com")
	_, err = f.subs.GetActivePlan(ctx, user.ID.String())
	assert.ErrorIs(t, err, domainerrors.ErrUserPlanNotFound)

	plan := f.createPlan(t, "basic", 1000, 30)
	userPlan, err := f.subs.Purchase(ctx, user.ID.String(), plan.ID.String())
	require.NoError(t, err)

	// ended but not yet swept
	f.now = userPlan.EndDate.Add(time.Minute)
	_, err = f.subs.GetActivePlan(ctx, user.ID.String())
	assert.ErrorIs(t, err, domainerrors.ErrUserPlanNotFound)
}
