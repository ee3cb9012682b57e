// Package dbtest opens migrated in-memory SQLite databases for tests.
package dbtest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/tripcrew-backend/pkg/config"
	"github.com/angelmondragon/tripcrew-backend/pkg/db"
	"github.com/angelmondragon/tripcrew-backend/pkg/migrate"
)

var quietGoose sync.Once

// NewClient returns a db.Client over a fresh, fully migrated in-memory
// database. Every call gets its own database.
func NewClient(t testing.TB) *db.Client {
	t.Helper()
	quietGoose.Do(func() { goose.SetLogger(goose.NopLogger()) })

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migrate.UpEmbedded(context.Background(), sqlDB, "sqlite3"))
	return db.NewFromGorm(conn, config.DBDriverSQLite)
}
