package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wayfarer-app/backend/internal/database"
)

// MustOpenTestDB opens an in-memory SQLite database for tests with the schema
// migrated. Each call gets its own named in-memory database so parallel tests
// in one process never observe each other's rows. The connection is closed via
// t.Cleanup.
func MustOpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:test-%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := database.Open(database.Config{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)

	require.NoError(t, database.AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
