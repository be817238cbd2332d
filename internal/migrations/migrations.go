// Package migrations applies the versioned SQL under migrations/<driver>.
package migrations

import (
	"database/sql"
	"log/slog"
	"path/filepath"

	"planhub/config"
	"planhub/internal/errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	pgxv5 "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Runner wraps a migrate instance bound to one database.
type Runner struct {
	m      *migrate.Migrate
	logger *slog.Logger
}

// NewRunner reads migrations from dir/<driver>, where driver is
// config.DriverMySQL or config.DriverPostgres.
func NewRunner(db *sql.DB, driver, dir string, logger *slog.Logger) (*Runner, error) {
	var (
		instance database.Driver
		name     string
		err      error
	)
	switch driver {
	case config.DriverMySQL:
		name = "mysql"
		instance, err = mysql.WithInstance(db, &mysql.Config{})
	case config.DriverPostgres:
		name = "pgx_v5"
		instance, err = pgxv5.WithInstance(db, &pgxv5.Config{})
	default:
		return nil, errors.Errorf("unsupported migration driver %q", driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to open migration driver")
	}

	source, err := filepath.Abs(filepath.Join(dir, driver))
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve migrations path")
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+filepath.ToSlash(source), name, instance)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load migrations")
	}

	return &Runner{m: m, logger: logger}, nil
}

// Up applies every pending migration. Being up to date is not an error.
func (r *Runner) Up() error {
	if err := r.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "migrate up")
	}
	r.logVersion()

	return nil
}

// Down rolls back the last steps migrations.
func (r *Runner) Down(steps int) error {
	if steps <= 0 {
		return errors.Errorf("down needs a positive step count, got %d", steps)
	}
	if err := r.m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "migrate down")
	}
	r.logVersion()

	return nil
}

// Version returns the applied version. ok is false on an empty database.
func (r *Runner) Version() (version uint, dirty bool, ok bool, err error) {
	version, dirty, err = r.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, false, nil
	}
	if err != nil {
		return 0, false, false, errors.Wrap(err, "read migration version")
	}

	return version, dirty, true, nil
}

// Close releases the source and the database handle.
func (r *Runner) Close() error {
	sourceErr, dbErr := r.m.Close()

	return errors.Join(sourceErr, dbErr)
}

func (r *Runner) logVersion() {
	version, dirty, ok, err := r.Version()
	if err != nil || !ok {
		return
	}
	r.logger.Info("Schema version", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
}
