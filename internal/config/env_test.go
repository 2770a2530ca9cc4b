package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv_Defaults(t *testing.T) {
	e, err := LoadEnv(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, Env{Config: "config.toml", LogLevel: "info"}, e)
}

func TestLoadEnv_Overrides(t *testing.T) {
	e, err := LoadEnv(map[string]string{
		"HOMEBUS_CONFIG":    "/etc/homebus.yaml",
		"HOMEBUS_LOG_LEVEL": "debug",
		"HOMEBUS_DEBUG":     "true",
		"HOMEBUS_PLATFORM":  "sim",
		"HOMEBUS_SLOW_PULL": "5ms",
		"DEBUG":             "false",
	})
	require.NoError(t, err)
	assert.Equal(t, Env{
		Config:   "/etc/homebus.yaml",
		LogLevel: "debug",
		Debug:    true,
		Platform: "sim",
		SlowPull: 5 * time.Millisecond,
	}, e)

	doc := &Document{Name: "x", Platform: "esp32"}
	e.Apply(doc)
	assert.True(t, doc.Debug)
	assert.Equal(t, "sim", doc.Platform)
}

func TestLoadEnv_BadBool(t *testing.T) {
	_, err := LoadEnv(map[string]string{"HOMEBUS_DEBUG": "maybe"})
	assert.Error(t, err)
}

func TestEnvApply_KeepsDocument(t *testing.T) {
	doc := &Document{Name: "x", Debug: true, Platform: "esp32"}
	Env{}.Apply(doc)
	assert.True(t, doc.Debug)
	assert.Equal(t, "esp32", doc.Platform)
}
