package llm

import (
	"fmt"
	"time"
)

// Config holds the settings of an OpenAI-compatible chat completion endpoint.
//
// Environment Variables (read by internal/config):
// - LLM_API_KEY: API key for the provider (required when the llm provider is selected)
// - LLM_API_URL: API endpoint URL (default: https://openrouter.ai/api/v1)
// - LLM_MODEL: Model name (default: google/gemini-2.5-flash)
// - LLM_MAX_TOKENS: Maximum tokens for responses (default: 4096)
// - LLM_TEMPERATURE: Sampling temperature (default: 0.2)
// - LLM_TIMEOUT: Request timeout in seconds (default: 60)
// - LLM_SITE_URL, LLM_APP_NAME: optional OpenRouter attribution headers
type Config struct {
	APIKey      string  `json:"api_key" toml:"api_key"`
	APIURL      string  `json:"api_url" toml:"api_url"`
	Model       string  `json:"model" toml:"model"`
	MaxTokens   int     `json:"max_tokens" toml:"max_tokens"`
	Temperature float64 `json:"temperature" toml:"temperature"`
	Timeout     int     `json:"timeout" toml:"timeout"`
	SiteURL     string  `json:"site_url" toml:"site_url"`
	AppName     string  `json:"app_name" toml:"app_name"`
}

const (
	DefaultAPIURL      = "https://openrouter.ai/api/v1"
	DefaultModel       = "google/gemini-2.5-flash"
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.2
	DefaultTimeout     = 60
)

// DefaultConfig returns a config with every field but the API key filled in.
func DefaultConfig() Config {
	return Config{
		APIURL:      DefaultAPIURL,
		Model:       DefaultModel,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
		Timeout:     DefaultTimeout,
		AppName:     "vidsub",
	}
}

func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	if c.APIURL == "" {
		return fmt.Errorf("API URL is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.MaxTokens < 1 {
		return fmt.Errorf("max tokens must be greater than 0")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.Timeout < 1 {
		return fmt.Errorf("timeout must be greater than 0")
	}
	return nil
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func (c *Config) headers() map[string]string {
	headers := map[string]string{
		"Authorization": "Bearer " + c.APIKey,
		"Content-Type":  "application/json",
	}
	if c.SiteURL != "" {
		headers["HTTP-Referer"] = c.SiteURL
	}
	if c.AppName != "" {
		headers["X-Title"] = c.AppName
	}
	return headers
}
