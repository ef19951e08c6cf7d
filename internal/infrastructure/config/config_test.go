package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("WEBHOOK_GENERATE_URL", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 60*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 0, cfg.Upstream.MaxRetries)
	assert.Equal(t, DefaultChatWebhookURL, cfg.Webhook.ChatURL)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.False(t, cfg.HasGatewayCredential())
	assert.False(t, cfg.HasWebhook())
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "or-123456789")
	t.Setenv("WEBHOOK_GENERATE_URL", "https://hooks.example.com/generate")
	t.Setenv("UPSTREAM_TIMEOUT", "15s")
	t.Setenv("UPSTREAM_MAX_RETRIES", "2")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.HasGatewayCredential())
	assert.True(t, cfg.HasWebhook())
	assert.Equal(t, 15*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 2, cfg.Upstream.MaxRetries)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"LOG_LEVEL":            "verbose",
		"STORE_DRIVER":         "mysql",
		"WEBHOOK_GENERATE_URL": "not a url",
		"UPSTREAM_MAX_RETRIES": "50",
	}
	for env, value := range tests {
		t.Run(env, func(t *testing.T) {
			t.Setenv(env, value)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "", MaskAPIKey(""))
	assert.Equal(t, "****", MaskAPIKey("short"))
	assert.Equal(t, "sk-a...wxyz", MaskAPIKey("sk-abcdefghijklmnopqrstuvwxyz"))
}
