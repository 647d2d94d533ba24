package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"SIGNUP_ADDR", "LOG_LEVEL", "LOG_FORMAT", "BCRYPT_COST", "REGISTRATION_TTL",
		"REGISTRATION_PURGE_INTERVAL", "DATABASE_URL", "REDIS_URL", "REDIS_POOL_SIZE",
		"KAFKA_BROKERS", "KAFKA_AUDIT_TOPIC",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, bcrypt.DefaultCost, cfg.BcryptCost)
	assert.Equal(t, 24*time.Hour, cfg.RegistrationTTL)
	assert.Equal(t, 10, cfg.Redis.PoolSize)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "signup.audit", cfg.Kafka.AuditTopic)
	assert.Equal(t, BackendMemory, cfg.Backend())
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SIGNUP_ADDR", ":9090")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("REGISTRATION_TTL", "30m")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, 30*time.Minute, cfg.RegistrationTTL)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non numeric cost", "BCRYPT_COST", "high"},
		{"cost below bcrypt minimum", "BCRYPT_COST", "3"},
		{"cost above bcrypt maximum", "BCRYPT_COST", "32"},
		{"unparseable ttl", "REGISTRATION_TTL", "a day"},
		{"negative ttl", "REGISTRATION_TTL", "-1h"},
		{"non numeric pool size", "REDIS_POOL_SIZE", "ten"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestBackendSelection(t *testing.T) {
	assert.Equal(t, BackendPostgres, Server{DatabaseURL: "postgres://x", Redis: RedisConfig{URL: "redis://y"}}.Backend())
	assert.Equal(t, BackendRedis, Server{Redis: RedisConfig{URL: "redis://y"}}.Backend())
	assert.Equal(t, BackendMemory, Server{}.Backend())
}
