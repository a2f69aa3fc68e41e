package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trendjack/core/internal/config"
	"github.com/trendjack/core/internal/models"
	"gorm.io/gorm/logger"
)

func TestOpenSQLiteAndMigrate(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "data", "trendjack.db")
	db, err := Open(config.DriverSQLite, dsn, logger.Silent)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, table := range []string{"transcripts", "transcript_topics", "runs", "posts"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	run := models.RunModel{
		Status: models.RunPending,
		URLs:   models.StringArray{"https://example.com/a"},
		Topics: []models.TopicSelection{{Topic: "Pricing"}},
	}
	require.NoError(t, db.Create(&run).Error)
	assert.Len(t, run.ID, 36)

	var loaded models.RunModel
	require.NoError(t, db.First(&loaded, "id = ?", run.ID).Error)
	assert.Equal(t, []string{"https://example.com/a"}, []string(loaded.URLs))
	require.Len(t, loaded.Topics, 1)
	assert.Equal(t, "Pricing", loaded.Topics[0].Topic)
	assert.Nil(t, loaded.Trend)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("postgres", "", logger.Silent)
	require.Error(t, err)
}

func TestResolveLogLevel(t *testing.T) {
	cfg := &config.AppConfig{Env: "production"}
	assert.Equal(t, logger.Warn, resolveLogLevel(cfg))
	cfg.Database.LogLevel = "silent"
	assert.Equal(t, logger.Silent, resolveLogLevel(cfg))
}
