package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)

	var ups, downs int
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	assert.Positive(t, ups)
	assert.Equal(t, ups, downs, "every migration needs a down file")
}

func TestInitMigration_EnablesVectorExtension(t *testing.T) {
	data, err := fs.ReadFile(migrationsFS, "migrations/000001_init.up.sql")
	require.NoError(t, err)

	sql := string(data)
	assert.Contains(t, sql, "CREATE EXTENSION IF NOT EXISTS vector")
	assert.Contains(t, sql, "vector(768)")
	assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS audit_logs")
}

func TestAutoMigrate(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, AutoMigrate(db))

	for _, table := range []string{"organizations", "users", "cases", "documents", "messages", "audit_logs"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.False(t, db.Migrator().HasColumn("audit_logs", "deleted_at"))
}

func TestReprocessAttemptsTracked(t *testing.T) {
	data, err := fs.ReadFile(migrationsFS, "migrations/000002_document_reprocess_attempts.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(data), "reprocess_attempts INTEGER NOT NULL DEFAULT 0")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	assert.True(t, db.Migrator().HasColumn("documents", "reprocess_attempts"))
	assert.True(t, db.Migrator().HasColumn("documents", "reprocessed_at"))
}
