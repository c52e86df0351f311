package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// FlexibleStringSlice is a []string that also accepts JSON numbers,
// so allow_from can contain both "123" and 123.
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
	Agent    AgentConfig    `json:"agent"`
	Channels ChannelsConfig `json:"channels"`
	Provider ProviderConfig `json:"provider"`
	Tools    ToolsConfig    `json:"tools"`
	Gateway  GatewayConfig  `json:"gateway"`
	Digest   DigestConfig   `json:"digest"`
	LogFile  string         `json:"log_file" env:"MAJORDOMO_LOG_FILE"`
}

type AgentConfig struct {
	Model         string `json:"model" env:"MAJORDOMO_AGENT_MODEL"`
	MaxIterations int    `json:"max_iterations" env:"MAJORDOMO_AGENT_MAX_ITERATIONS"`
	Language      string `json:"language" env:"MAJORDOMO_AGENT_LANGUAGE"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	WhatsApp WhatsAppConfig `json:"whatsapp"`
	Discord  DiscordConfig  `json:"discord"`
}

type TelegramConfig struct {
	Enabled   bool                `json:"enabled" env:"MAJORDOMO_CHANNELS_TELEGRAM_ENABLED"`
	Token     string              `json:"token" env:"MAJORDOMO_CHANNELS_TELEGRAM_TOKEN"`
	AllowFrom FlexibleStringSlice `json:"allow_from" env:"MAJORDOMO_CHANNELS_TELEGRAM_ALLOW_FROM"`
}

// WhatsAppConfig configures the Twilio webhook listener. Twilio delivers
// inbound messages as form-encoded POSTs and reads the reply from the
// TwiML response body, so the only credential needed here is none at all;
// the listen address is where Twilio's webhook points.
type WhatsAppConfig struct {
	Enabled   bool                `json:"enabled" env:"MAJORDOMO_CHANNELS_WHATSAPP_ENABLED"`
	Host      string              `json:"host" env:"MAJORDOMO_CHANNELS_WHATSAPP_HOST"`
	Port      int                 `json:"port" env:"MAJORDOMO_CHANNELS_WHATSAPP_PORT"`
	AllowFrom FlexibleStringSlice `json:"allow_from" env:"MAJORDOMO_CHANNELS_WHATSAPP_ALLOW_FROM"`
}

type DiscordConfig struct {
	Enabled   bool                `json:"enabled" env:"MAJORDOMO_CHANNELS_DISCORD_ENABLED"`
	Token     string              `json:"token" env:"MAJORDOMO_CHANNELS_DISCORD_TOKEN"`
	AllowFrom FlexibleStringSlice `json:"allow_from" env:"MAJORDOMO_CHANNELS_DISCORD_ALLOW_FROM"`
}

type ProviderConfig struct {
	Name    string `json:"name" env:"MAJORDOMO_PROVIDER_NAME"`
	APIKey  string `json:"api_key" env:"MAJORDOMO_PROVIDER_API_KEY"`
	APIBase string `json:"api_base" env:"MAJORDOMO_PROVIDER_API_BASE"`
	Proxy   string `json:"proxy,omitempty" env:"MAJORDOMO_PROVIDER_PROXY"`
}

type WeatherToolConfig struct {
	APIKey string `json:"api_key" env:"MAJORDOMO_TOOLS_WEATHER_API_KEY"`
}

type NewsToolConfig struct {
	APIKey string `json:"api_key" env:"MAJORDOMO_TOOLS_NEWS_API_KEY"`
}

type WebToolsConfig struct {
	Enabled    bool `json:"enabled" env:"MAJORDOMO_TOOLS_WEB_ENABLED"`
	MaxResults int  `json:"max_results" env:"MAJORDOMO_TOOLS_WEB_MAX_RESULTS"`
	MaxChars   int  `json:"max_chars" env:"MAJORDOMO_TOOLS_WEB_MAX_CHARS"`
}

type ToolsConfig struct {
	Weather WeatherToolConfig `json:"weather"`
	News    NewsToolConfig    `json:"news"`
	Web     WebToolsConfig    `json:"web"`
}

type GatewayConfig struct {
	Host string `json:"host" env:"MAJORDOMO_GATEWAY_HOST"`
	Port int    `json:"port" env:"MAJORDOMO_GATEWAY_PORT"`
}

// DigestConfig drives the optional scheduled digest: a cron expression,
// a prompt to run through the pipeline, and where to deliver the result.
type DigestConfig struct {
	Enabled  bool   `json:"enabled" env:"MAJORDOMO_DIGEST_ENABLED"`
	Schedule string `json:"schedule" env:"MAJORDOMO_DIGEST_SCHEDULE"`
	Prompt   string `json:"prompt" env:"MAJORDOMO_DIGEST_PROMPT"`
	Channel  string `json:"channel" env:"MAJORDOMO_DIGEST_CHANNEL"`
	ChatID   string `json:"chat_id" env:"MAJORDOMO_DIGEST_CHAT_ID"`
}

func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Model:         "gemini-2.0-flash",
			MaxIterations: 3,
			Language:      "Spanish",
		},
		Channels: ChannelsConfig{
			Telegram: TelegramConfig{
				Enabled:   true,
				AllowFrom: FlexibleStringSlice{},
			},
			WhatsApp: WhatsAppConfig{
				Enabled:   false,
				Host:      "0.0.0.0",
				Port:      5001,
				AllowFrom: FlexibleStringSlice{},
			},
			Discord: DiscordConfig{
				Enabled:   false,
				AllowFrom: FlexibleStringSlice{},
			},
		},
		Provider: ProviderConfig{
			Name: "gemini",
		},
		Tools: ToolsConfig{
			Web: WebToolsConfig{
				Enabled:    false,
				MaxResults: 3,
				MaxChars:   1000,
			},
		},
		Gateway: GatewayConfig{
			Host: "0.0.0.0",
			Port: 5080,
		},
		Digest: DigestConfig{
			Enabled:  false,
			Schedule: "0 8 * * *",
			Prompt:   "Prepara un resumen de las noticias más importantes de hoy.",
		},
		LogFile: "majordomo.log",
	}
}

// LoadConfig reads the JSON file at path (missing file is fine) and then
// overlays MAJORDOMO_* environment variables.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
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

// Validate checks startup-fatal conditions: the provider credential and the
// credential of every enabled channel. Tool API keys are deliberately not
// checked here; a missing tool key degrades that tool to an unavailability
// message instead of failing startup.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Provider.APIKey) == "" {
		return fmt.Errorf("provider.api_key is required (set MAJORDOMO_PROVIDER_API_KEY)")
	}
	if c.Channels.Telegram.Enabled && strings.TrimSpace(c.Channels.Telegram.Token) == "" {
		return fmt.Errorf("channels.telegram.token is required (set MAJORDOMO_CHANNELS_TELEGRAM_TOKEN)")
	}
	if c.Channels.Discord.Enabled && strings.TrimSpace(c.Channels.Discord.Token) == "" {
		return fmt.Errorf("channels.discord.token is required (set MAJORDOMO_CHANNELS_DISCORD_TOKEN)")
	}
	if !c.Channels.Telegram.Enabled && !c.Channels.WhatsApp.Enabled && !c.Channels.Discord.Enabled {
		return fmt.Errorf("no channels enabled")
	}
	if c.Digest.Enabled {
		if strings.TrimSpace(c.Digest.Channel) == "" || strings.TrimSpace(c.Digest.ChatID) == "" {
			return fmt.Errorf("digest.channel and digest.chat_id are required when the digest is enabled")
		}
	}
	return nil
}

func (c *Config) MaxIterations() int {
	if c.Agent.MaxIterations <= 0 {
		return 3
	}
	return c.Agent.MaxIterations
}
