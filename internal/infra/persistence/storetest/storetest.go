// Package storetest provides a throwaway SQLite store with the production
// schema for repository and use case tests.
package storetest

import (
	"log/slog"
	"path/filepath"
	"testing"

	"planhub/internal/infra/persistence/model"
	"planhub/internal/infra/persistence/sqlstore"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDB opens a fresh database file under t.TempDir. The pool is limited to
// one connection, so callers must not query outside an open transaction
// while it is running.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "planhub.db")
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), sqlstore.NewGormConfig(slog.New(slog.DiscardHandler), false))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.All()...))

	return db
}
