package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const defaultConfigRelPath = ".integbuilder/config.yaml"

// APIKeyEnvVar supplies the LLM credential. When it is unset and the config
// file carries no key either, generation runs in demo mode.
const APIKeyEnvVar = "INTEGBUILDER_LLM_API_KEY"

type LLMConfig struct {
	Provider    string  `yaml:"provider" validate:"oneof=anthropic openai"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url" validate:"omitempty,url"`
	Model       string  `yaml:"model" validate:"required"`
	MaxTokens   int     `yaml:"max_tokens" validate:"gt=0"`
	Temperature float64 `yaml:"temperature" validate:"gte=0,lte=2"`
}

type ServerConfig struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"gt=0,lte=65535"`
}

type WorkflowConfig struct {
	DefaultAuth     string `yaml:"default_auth" validate:"oneof=oauth2 api_key bearer_token"`
	DefaultLanguage string `yaml:"default_language" validate:"required"`
}

type StoreConfig struct {
	Path string `yaml:"path" validate:"required"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Server   ServerConfig   `yaml:"server"`
	Workflow WorkflowConfig `yaml:"workflow"`
	Store    StoreConfig    `yaml:"store"`
	Log      LogConfig      `yaml:"log"`
}

var validate = validator.New()

// Load loads YAML config, then applies env overrides.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}
	cfg.SetDefaults()

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		configPath = filepath.Join(home, defaultConfigRelPath)
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.SetDefaults()
	return cfg, nil
}

func (c *Config) SetDefaults() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = "anthropic"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "claude-sonnet-4-20250514"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 4000
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.3
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8501
	}
	if c.Workflow.DefaultAuth == "" {
		c.Workflow.DefaultAuth = "oauth2"
	}
	if c.Workflow.DefaultLanguage == "" {
		c.Workflow.DefaultLanguage = "Python"
	}
	if c.Store.Path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.Store.Path = filepath.Join(home, ".integbuilder", "integbuilder.db")
		} else {
			c.Store.Path = "integbuilder.db"
		}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks the loaded config against the struct tag rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DemoMode reports whether generation must fall back to the bundled demo
// code because no LLM credential is configured.
func (c *Config) DemoMode() bool {
	return c.LLM.APIKey == ""
}

func applyEnvOverrides(c *Config) {
	setString(&c.LLM.Provider, "INTEGBUILDER_LLM_PROVIDER")
	setString(&c.LLM.APIKey, APIKeyEnvVar)
	setString(&c.LLM.BaseURL, "INTEGBUILDER_LLM_BASE_URL")
	setString(&c.LLM.Model, "INTEGBUILDER_LLM_MODEL")
	setInt(&c.LLM.MaxTokens, "INTEGBUILDER_LLM_MAX_TOKENS")
	setFloat(&c.LLM.Temperature, "INTEGBUILDER_LLM_TEMPERATURE")
	setString(&c.Server.Host, "INTEGBUILDER_SERVER_HOST")
	setInt(&c.Server.Port, "INTEGBUILDER_SERVER_PORT")
	setString(&c.Store.Path, "INTEGBUILDER_STORE_PATH")
	setString(&c.Log.Level, "INTEGBUILDER_LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = n
		}
	}
}
