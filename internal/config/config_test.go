package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/toxwatch/toxwatch/internal/evaluate"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if len(cfg.Rules) != 3 {
		t.Fatalf("expected 3 default rules, got %d", len(cfg.Rules))
	}
	if cfg.Rules[0].Attribute != "SEVERE_TOXICITY" {
		t.Errorf("expected SEVERE_TOXICITY first, got %q", cfg.Rules[0].Attribute)
	}
	if cfg.Rules[2].Mode != "below" {
		t.Errorf("expected SEXUALLY_EXPLICIT rule in below mode, got %q", cfg.Rules[2].Mode)
	}
	if cfg.Rate.CallsPerSecond != 1 {
		t.Errorf("expected rate 1, got %g", cfg.Rate.CallsPerSecond)
	}
	if cfg.Language.Accept != "en" {
		t.Errorf("expected language en, got %q", cfg.Language.Accept)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
rules:
  - attribute: TOXICITY
    threshold: 0.8
limits:
  max_processed: 100
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Limits.MaxProcessed != 100 {
		t.Errorf("expected max_processed 100, got %d", cfg.Limits.MaxProcessed)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Perspective.APIKeyEnv != "PERSPECTIVE_API_KEY" {
		t.Errorf("expected default api_key_env, got %q", cfg.Perspective.APIKeyEnv)
	}
	if cfg.Reply.Mode != "static" {
		t.Errorf("expected default reply mode static, got %q", cfg.Reply.Mode)
	}
}

func TestEvaluateRulesModeDefault(t *testing.T) {
	cfg := &Config{Rules: []Rule{
		{Attribute: "TOXICITY", Threshold: 0.5},
		{Attribute: "SEXUALLY_EXPLICIT", Threshold: 0.5, Mode: "below"},
	}}

	rules := cfg.EvaluateRules()
	if rules[0].Mode != evaluate.ModeAbove {
		t.Errorf("unset mode should default to above, got %q", rules[0].Mode)
	}
	if rules[1].Mode != evaluate.ModeBelow {
		t.Errorf("expected below, got %q", rules[1].Mode)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	base := func() *Config {
		cfg, _ := parse(DefaultConfigYAML)
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no rules", func(c *Config) { c.Rules = nil }},
		{"threshold out of range", func(c *Config) { c.Rules[0].Threshold = 1.5 }},
		{"unknown attribute", func(c *Config) { c.Rules[0].Attribute = "SNARK" }},
		{"bad mode", func(c *Config) { c.Rules[0].Mode = "sideways" }},
		{"zero rate", func(c *Config) { c.Rate.CallsPerSecond = 0 }},
		{"negative padding", func(c *Config) { c.Rate.PaddingMS = -1 }},
		{"negative limit", func(c *Config) { c.Limits.MaxProcessed = -1 }},
		{"no language", func(c *Config) { c.Language.Accept = ""; c.Language.IncludeAll = false }},
		{"dynamic reply", func(c *Config) { c.Reply.Mode = "dynamic" }},
		{"unknown reply mode", func(c *Config) { c.Reply.Mode = "witty" }},
	}
	for _, tc := range cases {
		cfg := base()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestValidateDynamicReplyMessage(t *testing.T) {
	cfg, _ := parse(DefaultConfigYAML)
	cfg.Reply.Mode = "dynamic"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "not implemented") {
		t.Errorf("expected 'not implemented' error, got %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if len(cfg.Rules) == 0 {
		t.Error("expected rules to be populated from file")
	}
}

func TestLoadKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".api_keys")
	content := `# credentials
PERSPECTIVE_API_KEY=abc123
TWITTER_BEARER_TOKEN = tok456

`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	keys, err := LoadKeys(path)
	if err != nil {
		t.Fatalf("LoadKeys: %v", err)
	}
	if keys["PERSPECTIVE_API_KEY"] != "abc123" {
		t.Errorf("got %q", keys["PERSPECTIVE_API_KEY"])
	}
	if keys["TWITTER_BEARER_TOKEN"] != "tok456" {
		t.Errorf("got %q", keys["TWITTER_BEARER_TOKEN"])
	}
}

func TestLoadKeysRejectsBadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".api_keys")
	if err := os.WriteFile(path, []byte("just a value\n"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := LoadKeys(path); err == nil {
		t.Error("expected error for line without '='")
	}
}

func TestCredentialPrefersKeysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".api_keys")
	if err := os.WriteFile(path, []byte("TEST_CRED=fromfile\n"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	t.Setenv("TEST_CRED", "fromenv")

	cfg := &Config{KeysFile: path}
	got, err := cfg.Credential("TEST_CRED")
	if err != nil {
		t.Fatalf("Credential: %v", err)
	}
	if got != "fromfile" {
		t.Errorf("expected keys file to win, got %q", got)
	}

	cfg.KeysFile = ""
	got, err = cfg.Credential("TEST_CRED")
	if err != nil {
		t.Fatalf("Credential: %v", err)
	}
	if got != "fromenv" {
		t.Errorf("expected env fallback, got %q", got)
	}
}

func TestEffectiveTrackingPath(t *testing.T) {
	cfg := &Config{}
	p := cfg.EffectiveTrackingPath()
	if !strings.HasPrefix(p, "toxic_items_") || !strings.HasSuffix(p, ".jsonl") {
		t.Errorf("unexpected default path %q", p)
	}

	cfg.Tracking.Path = "custom.jsonl"
	if cfg.EffectiveTrackingPath() != "custom.jsonl" {
		t.Errorf("configured path not honored")
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	if cfg.GetDataDir() == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
}
