package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSetDefaults(t *testing.T) {
	c := &Config{}
	c.SetDefaults()
	if c.LLM.Provider != "anthropic" {
		t.Fatalf("expected anthropic provider, got %s", c.LLM.Provider)
	}
	if c.LLM.Model != "claude-sonnet-4-20250514" {
		t.Fatalf("unexpected model %s", c.LLM.Model)
	}
	if c.Server.Port != 8501 {
		t.Fatalf("expected port 8501, got %d", c.Server.Port)
	}
	if c.Workflow.DefaultAuth != "oauth2" {
		t.Fatalf("expected oauth2 default auth")
	}
	if c.Log.Level != "info" {
		t.Fatalf("expected info level")
	}
}

func TestLoadFromYAML(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.yaml")
	data := "llm:\n  provider: openai\n  model: gpt-4o\nserver:\n  port: 9000\n"
	if err := os.WriteFile(cfgPath, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Provider != "openai" {
		t.Fatalf("unexpected provider %s", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Fatalf("unexpected model %s", cfg.LLM.Model)
	}
	if cfg.Server.Port != 9000 {
		t.Fatalf("unexpected port %d", cfg.Server.Port)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("INTEGBUILDER_LLM_API_KEY", "sk-test")
	t.Setenv("INTEGBUILDER_SERVER_PORT", "7000")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Fatalf("api key override not applied")
	}
	if cfg.Server.Port != 7000 {
		t.Fatalf("port override not applied, got %d", cfg.Server.Port)
	}
	if cfg.DemoMode() {
		t.Fatalf("demo mode should be off with key configured")
	}
}

func TestValidate(t *testing.T) {
	c := &Config{}
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	c.LLM.Provider = "mystery"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected provider validation error")
	}
	c.LLM.Provider = "openai"
	c.Server.Port = 99999
	if err := c.Validate(); err == nil {
		t.Fatalf("expected port validation error")
	}
}

func TestDemoModeWithoutKey(t *testing.T) {
	c := &Config{}
	c.SetDefaults()
	if !c.DemoMode() {
		t.Fatalf("expected demo mode without api key")
	}
}
