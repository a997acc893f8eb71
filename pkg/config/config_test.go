package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope", "config.json"))
	require.NoError(t, err)

	assert.Len(t, cfg.OneBot.Backends, 2)
	assert.Equal(t, 5, cfg.OneBot.ReconnectInterval)
	assert.Equal(t, 10, cfg.OneBot.APITimeoutSeconds)
	assert.Equal(t, 3, cfg.OneBot.SendRetryAttempts)
	assert.Equal(t, 2, cfg.OneBot.SendRetryDelaySeconds)
	assert.ElementsMatch(t, []string{"heartbeat", "lifecycle"}, []string(cfg.OneBot.IgnoreMetaEvents))
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"telegram": {"token": "123:abc", "chat_id": 42},
		"onebot": {
			"backends": [{"name": "lagrange", "ws_url": "ws://10.0.0.1:8080", "access_token": "secret"}],
			"reconnect_interval": 7,
			"bot_names": {"100": "主号"},
			"faces": {"14": "改名的微笑"}
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, int64(42), cfg.Telegram.ChatID)
	require.Len(t, cfg.OneBot.Backends, 1)
	assert.Equal(t, "lagrange", cfg.OneBot.Backends[0].Name)
	assert.Equal(t, "secret", cfg.OneBot.Backends[0].AccessToken)
	assert.Equal(t, 7, cfg.OneBot.ReconnectInterval)
	assert.Equal(t, "主号", cfg.OneBot.BotNames["100"])
	assert.Equal(t, "改名的微笑", cfg.OneBot.Faces["14"])

	// Fields the file does not mention keep their defaults.
	assert.Equal(t, 10, cfg.OneBot.APITimeoutSeconds)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"telegram": {"token": "from-file"}}`), 0600))

	t.Setenv("QTBRIDGE_TELEGRAM_TOKEN", "from-env")
	t.Setenv("QTBRIDGE_ONEBOT_DEBUG", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.True(t, cfg.OneBot.Debug)
}

func TestFlexibleStringSlice_AcceptsNumbers(t *testing.T) {
	var f FlexibleStringSlice
	require.NoError(t, json.Unmarshal([]byte(`["heartbeat", 42]`), &f))
	assert.Equal(t, FlexibleStringSlice{"heartbeat", "42"}, f)
}

func TestBackendLookup(t *testing.T) {
	cfg := DefaultConfig()

	b, ok := cfg.Backend("backend1")
	require.True(t, ok)
	assert.Equal(t, "ws://127.0.0.1:3000", b.WSUrl)

	_, ok = cfg.Backend("nosuch")
	assert.False(t, ok)

	assert.Equal(t, []string{"backend1", "backend2"}, cfg.BackendNames())
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	cfg := DefaultConfig()
	cfg.Telegram.Token = "tok"

	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "tok", loaded.Telegram.Token)
}
