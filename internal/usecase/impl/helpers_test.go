package impl

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"planhub/config"
	"planhub/internal/domain/entity"
	"planhub/internal/domain/repository"
	"planhub/internal/domain/service"
	"planhub/internal/infra/auth"
	"planhub/internal/infra/persistence/sqlstore"
	"planhub/internal/infra/persistence/storetest"
	"planhub/internal/infra/validation"
	mockSvc "planhub/internal/mocks/service"
	"planhub/internal/usecase"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig(batchSize int) *config.Config {
	return &config.Config{
		Env:          config.EnvConfig{Environment: config.EnvPytest},
		Auth:         &config.AuthConfig{BcryptCost: bcrypt.MinCost},
		Subscription: &config.SubscriptionConfig{ExpiryInterval: time.Minute, ExpiryBatchSize: batchSize},
	}
}

// fixture wires the real services to a throwaway SQLite store. The clock
// reads now, so tests move time by assigning to it.
type fixture struct {
	db        *gorm.DB
	txManager repository.TransactionManager
	planRepo  repository.PlanRepository
	userRepo  repository.UserRepository
	upRepo    repository.UserPlanRepository
	publisher *mockSvc.MockEventPublisher
	events    []*service.SubscriptionEvent
	plans     usecase.PlanUsecase
	users     usecase.UserUsecase
	subs      usecase.SubscriptionUsecase
	now       time.Time
}

type fixtureOption func(*SubscriptionServiceParams)

func withBatchSize(n int) fixtureOption {
	return func(params *SubscriptionServiceParams) {
		params.Config = newTestConfig(n)
	}
}

func withTxManager(wrap func(repository.TransactionManager) repository.TransactionManager) fixtureOption {
	return func(params *SubscriptionServiceParams) {
		params.TxManager = wrap(params.TxManager)
	}
}

func withPublisher(publisher service.EventPublisher) fixtureOption {
	return func(params *SubscriptionServiceParams) {
		params.Publisher = publisher
	}
}

func withRecorder(recorder service.SubscriptionRecorder) fixtureOption {
	return func(params *SubscriptionServiceParams) {
		params.Recorder = recorder
	}
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	db := storetest.NewDB(t)
	logger := newDiscardLogger()
	f := &fixture{
		db:        db,
		txManager: sqlstore.NewTransactionManager(db),
		planRepo:  sqlstore.NewPlanRepository(db),
		userRepo:  sqlstore.NewUserRepository(db),
		upRepo:    sqlstore.NewUserPlanRepository(db),
		publisher: mockSvc.NewMockEventPublisher(t),
		now:       day0,
	}
	f.publisher.EXPECT().PublishSubscriptionEvent(mock.Anything, mock.Anything).
		Run(func(_ context.Context, event *service.SubscriptionEvent) {
			f.events = append(f.events, event)
		}).
		Return(nil).
		Maybe()

	validator := validation.New()
	f.plans = NewPlanService(PlanServiceParams{
		TxManager: f.txManager,
		PlanRepo:  f.planRepo,
		Validator: validator,
		Logger:    logger,
	})
	f.users = NewUserService(UserServiceParams{
		TxManager: f.txManager,
		UserRepo:  f.userRepo,
		Hasher:    auth.NewBcryptHasherWithCost(bcrypt.MinCost),
		Validator: validator,
		Logger:    logger,
	})

	params := SubscriptionServiceParams{
		TxManager:    f.txManager,
		UserRepo:     f.userRepo,
		UserPlanRepo: f.upRepo,
		Publisher:    f.publisher,
		Clock:        service.Clock(func() time.Time { return f.now }),
		Config:       newTestConfig(500),
		Logger:       logger,
	}
	for _, opt := range opts {
		opt(&params)
	}
	f.subs = NewSubscriptionService(params)

	return f
}

func (f *fixture) createPlan(t *testing.T, name string, price, validity int) *entity.Plan {
	t.Helper()

	plan, err := f.plans.CreatePlan(context.Background(), &usecase.CreatePlanInput{
		Name:        name,
		Description: name + " tier",
		Price:       price,
		Validity:    validity,
	})
	require.NoError(t, err)

	return plan
}

func (f *fixture) createUser(t *testing.T, email string) *entity.User {
	t.Helper()

	user, err := f.users.CreateUser(context.Background(), validUserInput(email))
	require.NoError(t, err)

	return user
}

func validUserInput(email string) *usecase.CreateUserInput {
	return &usecase.CreateUserInput{
		Email:         email,
		Password:      "correct horse battery staple",
		FirstName:     "Ada",
		LastName:      "Lovelace",
		MobileNumber:  "+44 20 0000 0000",
		PostalAddress: "12 St James's Square, London",
	}
}

func ptr[T any](v T) *T {
	return &v
}
