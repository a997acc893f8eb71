package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// FlexibleStringSlice is a []string that also accepts JSON numbers,
// so ignore lists can contain both "heartbeat" and bare numeric ids.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	OneBot   OneBotConfig   `json:"onebot"`
}

type TelegramConfig struct {
	Token  string `json:"token" env:"QTBRIDGE_TELEGRAM_TOKEN"`
	ChatID int64  `json:"chat_id" env:"QTBRIDGE_TELEGRAM_CHAT_ID"`
}

// BackendConfig describes one OneBot-compatible WebSocket server the
// bridge talks to. Name is the symbolic identifier used in operator
// commands, e.g. "/send backend1 user_123 hello".
type BackendConfig struct {
	Name        string `json:"name"`
	WSUrl       string `json:"ws_url"`
	AccessToken string `json:"access_token"`
}

type OneBotConfig struct {
	Backends []BackendConfig `json:"backends"`

	// ReconnectInterval is the fixed delay in seconds between inbound
	// reconnection attempts. Reconnects never give up.
	ReconnectInterval int `json:"reconnect_interval" env:"QTBRIDGE_ONEBOT_RECONNECT_INTERVAL"`

	// APITimeoutSeconds bounds how long an outbound action waits for
	// its response frame.
	APITimeoutSeconds int `json:"api_timeout_seconds" env:"QTBRIDGE_ONEBOT_API_TIMEOUT_SECONDS"`

	// Retry policy for the primary send path. Other actions are
	// deliberately single-shot.
	SendRetryAttempts     int `json:"send_retry_attempts" env:"QTBRIDGE_ONEBOT_SEND_RETRY_ATTEMPTS"`
	SendRetryDelaySeconds int `json:"send_retry_delay_seconds" env:"QTBRIDGE_ONEBOT_SEND_RETRY_DELAY_SECONDS"`

	// IgnoreMetaEvents lists meta_event_type values that are dropped
	// without formatting.
	IgnoreMetaEvents FlexibleStringSlice `json:"ignore_meta_events" env:"QTBRIDGE_ONEBOT_IGNORE_META_EVENTS"`

	// BotNames maps a backend's numeric self_id (as a string key) to a
	// human display name shown in forwarded messages.
	BotNames map[string]string `json:"bot_names"`

	// Faces overrides or extends the built-in face-id to label table.
	Faces map[string]string `json:"faces"`

	Debug bool `json:"debug" env:"QTBRIDGE_ONEBOT_DEBUG"`
}

func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			Token:  "",
			ChatID: 0,
		},
		OneBot: OneBotConfig{
			Backends: []BackendConfig{
				{Name: "backend1", WSUrl: "ws://127.0.0.1:3000"},
				{Name: "backend2", WSUrl: "ws://127.0.0.1:3001"},
			},
			ReconnectInterval:     5,
			APITimeoutSeconds:     10,
			SendRetryAttempts:     3,
			SendRetryDelaySeconds: 2,
			IgnoreMetaEvents:      FlexibleStringSlice{"heartbeat", "lifecycle"},
			BotNames:              map[string]string{},
			Faces:                 map[string]string{},
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Backend looks up a backend by its symbolic name.
func (c *Config) Backend(name string) (BackendConfig, bool) {
	for _, b := range c.OneBot.Backends {
		if b.Name == name {
			return b, true
		}
	}
	return BackendConfig{}, false
}

// BackendNames returns the configured backend names in order.
func (c *Config) BackendNames() []string {
	names := make([]string, 0, len(c.OneBot.Backends))
	for _, b := range c.OneBot.Backends {
		names = append(names, b.Name)
	}
	return names
}
