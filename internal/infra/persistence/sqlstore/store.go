// Package sqlstore implements the persistence layer on GORM. The same
// repositories serve MySQL and PostgreSQL; the dialect follows the scheme of
// the configured connection URI.
package sqlstore

import (
	"context"
	"database/sql"
	"log/slog"
	"net/url"
	"time"

	"planhub/config"
	"planhub/internal/errors"

	"go.uber.org/fx"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"
)

const (
	pingTimeout                 = 10 * time.Second
	dbPoolMonitorInterval       = 5 * time.Second
	dbPoolWarnDurationThreshold = 50 * time.Millisecond
)

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// New opens the active store and ties the pool to the fx lifecycle.
func New(params Params) (*gorm.DB, error) {
	db, err := Open(params.Config, params.Logger)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get sql.DB")
	}

	monitorCtx, cancelMonitor := context.WithCancel(context.Background())

	params.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			ctx, cancel := context.WithTimeout(startCtx, pingTimeout)
			defer cancel()

			if err := sqlDB.PingContext(ctx); err != nil {
				return errors.Wrap(err, "failed to ping database")
			}

			go monitorDBPool(monitorCtx, params.Logger, sqlDB, dbPoolMonitorInterval)

			return nil
		},
		OnStop: func(_ context.Context) error {
			cancelMonitor()

			return sqlDB.Close()
		},
	})

	return db, nil
}

// Open connects to cfg.ActiveDatabase() without pinging it. Replicas are only
// registered outside the PYTEST environment.
func Open(cfg *config.Config, logger *slog.Logger) (*gorm.DB, error) {
	conn := cfg.ActiveDatabase()

	dialector, err := Dialector(conn.URI)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, NewGormConfig(logger, cfg.Env.Debug))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	if cfg.Env.Environment != config.EnvPytest && len(cfg.Database.Replicas) > 0 {
		if err := registerReplicas(db, cfg.Database.Replicas); err != nil {
			return nil, err
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get sql.DB")
	}
	if cfg.Database.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	}

	return db, nil
}

// NewGormConfig is the session configuration shared by every dialect.
func NewGormConfig(logger *slog.Logger, debug bool) *gorm.Config {
	return &gorm.Config{
		// Multi-step writes run through TransactionManager.Execute.
		SkipDefaultTransaction: true,
		// Dialect errors such as duplicate keys surface as gorm.Err* values.
		TranslateError: true,
		Logger:         newGormSlogLogger(logger, debug),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Dialector picks the GORM driver for uri.
func Dialector(uri string) (gorm.Dialector, error) {
	driver, err := config.Driver(uri)
	if err != nil {
		return nil, err
	}

	switch driver {
	case config.DriverMySQL:
		dsn, err := config.MySQLDSN(uri)
		if err != nil {
			return nil, err
		}

		return mysql.Open(dsn), nil
	default:
		dsn, err := postgresDSN(uri)
		if err != nil {
			return nil, err
		}

		return postgres.Open(dsn), nil
	}
}

// postgresDSN drops driver suffixes like "+asyncpg" that pgx does not know.
func postgresDSN(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", errors.Wrap(err, "parse database uri")
	}
	u.Scheme = "postgres"

	return u.String(), nil
}

func registerReplicas(db *gorm.DB, replicas []string) error {
	dialectors := make([]gorm.Dialector, 0, len(replicas))
	for _, replica := range replicas {
		dialector, err := Dialector(replica)
		if err != nil {
			return errors.Wrap(err, "invalid replica")
		}
		dialectors = append(dialectors, dialector)
	}

	// Reads outside a transaction go to a random replica; writes, locks and
	// transactions stay on the primary.
	if err := db.Use(dbresolver.Register(dbresolver.Config{
		Replicas: dialectors,
		Policy:   dbresolver.RandomPolicy{},
	})); err != nil {
		return errors.Wrap(err, "failed to register read replicas")
	}

	return nil
}

func monitorDBPool(ctx context.Context, logger *slog.Logger, sqlDB *sql.DB, interval time.Duration) {
	if logger == nil || sqlDB == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prev := sqlDB.Stats()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := sqlDB.Stats()
			waitDelta := cur.WaitCount - prev.WaitCount
			waitDurationDelta := cur.WaitDuration - prev.WaitDuration

			if waitDelta > 0 {
				attrs := []slog.Attr{
					slog.Int64("waitCountDelta", waitDelta),
					slog.Duration("waitDurationDelta", waitDurationDelta),
					slog.Duration("avgWait", waitDurationDelta/time.Duration(waitDelta)),
					slog.Int("maxOpenConns", cur.MaxOpenConnections),
					slog.Int("openConns", cur.OpenConnections),
					slog.Int("inUseConns", cur.InUse),
					slog.Int("idleConns", cur.Idle),
				}
				if waitDurationDelta >= dbPoolWarnDurationThreshold {
					logger.LogAttrs(ctx, slog.LevelWarn, "Database pool wait detected", attrs...)
				} else {
					logger.LogAttrs(ctx, slog.LevelDebug, "Database pool wait observed", attrs...)
				}
			}

			prev = cur
		}
	}
}
