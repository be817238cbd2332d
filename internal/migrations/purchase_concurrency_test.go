package migrations

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"planhub/config"
	"planhub/internal/domain/entity"
	"planhub/internal/infra/persistence/sqlstore"
	"planhub/internal/infra/pubsub"
	"planhub/internal/usecase/impl"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Concurrent purchases for one user serialize on the user row lock, leaving
// exactly one active purchase that matches the cached active plan.
func TestPurchase_ConcurrentForOneUserPostgres(t *testing.T) {
	db := openMigratedStore(t)
	ctx := context.Background()

	planRepo := sqlstore.NewPlanRepository(db)
	userRepo := sqlstore.NewUserRepository(db)
	userPlanRepo := sqlstore.NewUserPlanRepository(db)

	const purchases = 8
	plans := make([]*entity.Plan, purchases)
	for i := range plans {
		plans[i] = &entity.Plan{ID: uuid.New(), Name: fmt.Sprintf("tier-%d", i), Description: "tier", Price: 100 * i, Validity: 30}
		require.NoError(t, planRepo.Create(ctx, plans[i]))
	}
	user := &entity.User{
		ID:             uuid.New(),
		Email:          "ada@example.com",
		HashedPassword: "$2a$04$hash",
		FirstName:      "Ada",
		LastName:       "Lovelace",
		MobileNumber:   "+44 20 0000 0000",
		PostalAddress:  "12 St James's Square, London",
	}
	require.NoError(t, userRepo.Create(ctx, user))

	subs := impl.NewSubscriptionService(impl.SubscriptionServiceParams{
		TxManager:    sqlstore.NewTransactionManager(db),
		UserRepo:     userRepo,
		UserPlanRepo: userPlanRepo,
		Publisher:    pubsub.NewNoopPublisher(discardLogger()),
		Config:       &config.Config{Subscription: &config.SubscriptionConfig{ExpiryBatchSize: 100}},
		Logger:       discardLogger(),
	})

	var wg sync.WaitGroup
	errs := make(chan error, purchases)
	for _, plan := range plans {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := subs.Purchase(ctx, user.ID.String(), plan.ID.String())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	history, err := userPlanRepo.FindByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, history, purchases)

	active, err := userPlanRepo.FindActiveByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)

	stored, err := userRepo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ActivePlanID)
	assert.Equal(t, active[0].PlanID, *stored.ActivePlanID)
}
