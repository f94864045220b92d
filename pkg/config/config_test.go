package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, 5, cfg.Schedule.UpcomingLimit)
	assert.Equal(t, time.Minute, cfg.Schedule.CacheTTL)
	assert.Equal(t, "admin", cfg.Bootstrap.Username)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("LESSONS_CACHE_TTL", "not-a-duration")
	t.Setenv("SCHEDULE_TIMEZONE", "Asia/Jakarta")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, time.Minute, cfg.Schedule.CacheTTL)
	assert.Equal(t, "Asia/Jakarta", cfg.Schedule.TimeZone)
}

func TestProductionRequiresSecret(t *testing.T) {
	t.Setenv("ENV", EnvProduction)

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "a-real-secret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvProduction, cfg.Env)
}

func TestValidateRejectsNonPositiveLimits(t *testing.T) {
	cfg := &Config{Env: EnvDevelopment, Schedule: ScheduleConfig{UpcomingLimit: 0}, Audit: AuditConfig{ListLimit: 10}}
	assert.Error(t, cfg.Validate())

	cfg.Schedule.UpcomingLimit = 3
	cfg.Audit.ListLimit = 0
	assert.Error(t, cfg.Validate())
}

func TestScheduleLocation(t *testing.T) {
	assert.Equal(t, time.UTC, ScheduleConfig{}.Location())
	assert.Equal(t, time.UTC, ScheduleConfig{TimeZone: "Nowhere/Invalid"}.Location())
}
