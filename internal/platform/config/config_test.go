package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, time.Hour, cfg.UnlinkCooldown)
	assert.Empty(t, cfg.Admins)
	assert.Empty(t, cfg.AllowedEmailDomains)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("IDLINK_ADDR", ":9999")
	t.Setenv("IDLINK_ADMINS", "123, 456 ,789,123")
	t.Setenv("IDLINK_UNLINK_COOLDOWN", "0")
	t.Setenv("IDLINK_ALLOWED_EMAIL_DOMAINS", "example.edu")

	cfg := FromEnv()

	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, []string{"123", "456", "789"}, cfg.Admins)
	assert.Equal(t, time.Duration(0), cfg.UnlinkCooldown)
	assert.Equal(t, []string{"example.edu"}, cfg.AllowedEmailDomains)
}

func TestFromEnvRejectsNegativeCooldown(t *testing.T) {
	t.Setenv("IDLINK_UNLINK_COOLDOWN", "-5")
	cfg := FromEnv()
	assert.Equal(t, time.Hour, cfg.UnlinkCooldown)
}
