package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "relaygrid", cfg.AppName)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.True(t, cfg.AuthorizationEnforced)
	assert.Empty(t, cfg.BlockedCategories)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTHORIZATION_ENFORCED", "false")
	t.Setenv("BLOCKED_CATEGORIES", "pharmaceutical, weapons ,")
	t.Setenv("DEFAULT_ORG", "4001")
	t.Setenv("HTTP_ADDR", ":9090")

	cfg := Load()

	assert.False(t, cfg.AuthorizationEnforced)
	assert.Equal(t, []string{"pharmaceutical", "weapons"}, cfg.BlockedCategories)
	assert.EqualValues(t, 4001, cfg.DefaultOrgID)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
}

func TestGetenvBool(t *testing.T) {
	t.Setenv("FLAG", "yes")
	assert.True(t, getenvBool("FLAG", false))

	t.Setenv("FLAG", "off")
	assert.False(t, getenvBool("FLAG", true))

	t.Setenv("FLAG", "maybe")
	assert.True(t, getenvBool("FLAG", true))
}
