// Package config loads application configuration from environment variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisAddr   string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	AppSecret   string `env:"APP_SECRET"`

	SMTPAddr  string `env:"SMTP_ADDR" envDefault:"localhost:1025"`
	EmailFrom string `env:"EMAIL_FROM" envDefault:"no-reply@trilog.local"`

	OpenAI OpenAIConfig `envPrefix:"OPENAI_"`
	Coach  CoachConfig  `envPrefix:"COACH_"`
	Strava StravaConfig `envPrefix:"STRAVA_"`
}

// OpenAIConfig holds the LLM provider settings.
type OpenAIConfig struct {
	APIKey      string  `env:"API_KEY"`
	Model       string  `env:"MODEL" envDefault:"gpt-4o-mini"`
	BaseURL     string  `env:"BASE_URL"`
	MaxTokens   int     `env:"MAX_TOKENS" envDefault:"800"`
	Temperature float64 `env:"TEMPERATURE" envDefault:"0.7"`
}

// CoachConfig bounds the prompt and sets the weekly targets the
// adherence report is scored against. The targets are configuration,
// not constants: they change as the plan evolves.
type CoachConfig struct {
	MaxInputChars   int `env:"MAX_INPUT_CHARS" envDefault:"500"`
	MaxHistoryTurns int `env:"MAX_HISTORY_TURNS" envDefault:"10"`
	TargetStrength  int `env:"TARGET_STRENGTH" envDefault:"1"`
	TargetRun       int `env:"TARGET_RUN" envDefault:"1"`
	TargetBike      int `env:"TARGET_BIKE" envDefault:"2"`
	TargetSwim      int `env:"TARGET_SWIM" envDefault:"1"`
	RecentWeeks     int `env:"RECENT_WEEKS" envDefault:"3"`
}

// StravaConfig holds the optional Strava import credentials.
type StravaConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
}

// HasOpenAI reports whether the coach can reach the LLM provider.
func (c *Config) HasOpenAI() bool {
	return c.OpenAI.APIKey != ""
}

// HasStrava reports whether the Strava import is configured.
func (c *Config) HasStrava() bool {
	return c.Strava.ClientID != "" && c.Strava.ClientSecret != ""
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	return cfg, nil
}
