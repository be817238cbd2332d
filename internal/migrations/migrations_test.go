package migrations

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"planhub/config"
	"planhub/internal/domain/entity"
	domainerrors "planhub/internal/domain/errors"
	"planhub/internal/domain/repository"
	"planhub/internal/infra/persistence/sqlstore"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startPostgres returns the DSN of a throwaway postgres container.
func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("container test skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("planhub"),
		postgres.WithUsername("planhub"),
		postgres.WithPassword("planhub"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	return dsn
}

// openMigratedStore starts postgres, applies every migration and opens the
// repositories' GORM handle on it.
func openMigratedStore(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := startPostgres(t)
	require.NoError(t, newRunner(t, dsn).Up())

	dialector, err := sqlstore.Dialector(dsn)
	require.NoError(t, err)
	db, err := gorm.Open(dialector, sqlstore.NewGormConfig(discardLogger(), false))
	require.NoError(t, err)

	return db
}

func newRunner(t *testing.T, dsn string) *Runner {
	t.Helper()

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)

	runner, err := NewRunner(db, config.DriverPostgres, migrationsDir(t), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = runner.Close() })

	return runner
}

func migrationsDir(t *testing.T) string {
	t.Helper()

	dir, err := filepath.Abs("../../migrations")
	require.NoError(t, err)

	return dir
}

func TestRunner_UpDownPostgres(t *testing.T) {
	dsn := startPostgres(t)
	runner := newRunner(t, dsn)

	_, _, ok, err := runner.Version()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, runner.Up())
	version, dirty, ok, err := runner.Version()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, dirty)
	assert.Equal(t, uint(3), version)

	// a second run has nothing to apply
	require.NoError(t, runner.Up())

	require.NoError(t, runner.Down(1))
	version, _, _, err = runner.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)

	require.NoError(t, runner.Down(2))
	_, _, ok, err = runner.Version()
	require.NoError(t, err)
	assert.False(t, ok)
}

// The migrated schema must accept what the repositories write.
func TestRunner_SchemaServesRepositories(t *testing.T) {
	db := openMigratedStore(t)

	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	plan := &entity.Plan{ID: uuid.New(), Name: "basic", Description: "basic tier", Price: 1000, Validity: 30}
	user := &entity.User{
		ID:             uuid.New(),
		Email:          "ada@example.com",
		HashedPassword: "$2a$04$hash",
		FirstName:      "Ada",
		LastName:       "Lovelace",
		MobileNumber:   "+44 20 0000 0000",
		PostalAddress:  "12 St James's Square, London",
	}
	userPlan := &entity.UserPlan{ID: uuid.New(), UserID: user.ID, PlanID: plan.ID, StartDate: start, EndDate: start.AddDate(0, 0, 30), Active: true}

	require.NoError(t, sqlstore.NewPlanRepository(db).Create(ctx, plan))
	require.NoError(t, sqlstore.NewUserRepository(db).Create(ctx, user))
	require.NoError(t, sqlstore.NewUserPlanRepository(db).Create(ctx, userPlan))

	err := sqlstore.NewTransactionManager(db).Execute(ctx, func(repos repository.RepositoryFactory) error {
		due, err := repos.UserPlanRepo().FindDueForUpdate(ctx, userPlan.EndDate, 10)
		if err != nil {
			return err
		}
		require.Len(t, due, 1)
		assert.Equal(t, userPlan, due[0])

		return nil
	})
	require.NoError(t, err)

	duplicate := *user
	duplicate.ID = uuid.New()
	assert.ErrorIs(t, sqlstore.NewUserRepository(db).Create(ctx, &duplicate), domainerrors.ErrUserAlreadyExists)
}

func TestNewRunner_UnknownDriver(t *testing.T) {
	_, err := NewRunner(nil, "sqlite", migrationsDir(t), discardLogger())
	assert.Error(t, err)
}
