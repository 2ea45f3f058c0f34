package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults without config file", func(t *testing.T) {
		t.Setenv("ENV", "unit")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "unit", cfg.Env)
		assert.Equal(t, DriverMongo, cfg.Database.Driver)
		assert.Equal(t, ReplaceDeleteFirst, cfg.UpcomingEvent.ReplaceStrategy)
		assert.Equal(t, BrokerNone, cfg.Notifications.Broker)
		assert.Equal(t, int64(5<<20), cfg.Assets.MaxBytes)
		assert.Equal(t, 30*time.Second, cfg.Assets.UploadTimeout())
		assert.Equal(t, 10*time.Second, cfg.Submission.PersistTimeout())
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("ENV", "unit")
		t.Setenv("DATABASE_DRIVER", "postgres")
		t.Setenv("DB_PASSWORD", "secret")
		t.Setenv("CLOUDINARY_CLOUD_NAME", "demo")
		t.Setenv("UPCOMING_EVENT_REPLACE_STRATEGY", "insert_first")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, DriverPostgres, cfg.Database.Driver)
		assert.Equal(t, "secret", cfg.Database.Postgres.Password)
		assert.Equal(t, "demo", cfg.Assets.CloudName)
		assert.Equal(t, ReplaceInsertFirst, cfg.UpcomingEvent.ReplaceStrategy)
	})

	t.Run("rejects unknown driver", func(t *testing.T) {
		t.Setenv("ENV", "unit")
		t.Setenv("DATABASE_DRIVER", "sqlite")

		_, err := Load()
		assert.Error(t, err)
	})
}
