package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("RESERVATION_MAX_TX_RETRIES", "")

	cfg := Load()
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 3, cfg.Reservation.MaxTxRetries)
	assert.Equal(t, 365, cfg.Reservation.AnalyticsMaxRangeDays)
	assert.Equal(t, "/api/v1", cfg.GetAPIBasePath())
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Contains(t, cfg.Database.DSN, "dbname=stablehub_db")
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("RESERVATION_MAX_TX_RETRIES", "7")
	t.Setenv("RESERVATION_RETRY_BACKOFF", "5ms")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("JWT_EXPIRES_IN", "60")
	t.Setenv("KAFKA_ENABLED", "not-a-bool")

	cfg := Load()
	assert.True(t, cfg.UsesMemoryStore())
	assert.Equal(t, 7, cfg.Reservation.MaxTxRetries)
	assert.Equal(t, 5*time.Millisecond, cfg.Reservation.RetryBackoff)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, time.Minute, cfg.JWT.JWTExpiresIn)
	assert.False(t, cfg.Kafka.Enabled, "unparsable values fall back to the default")
}
