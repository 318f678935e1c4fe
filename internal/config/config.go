package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/toxwatch/toxwatch/internal/evaluate"
	"github.com/toxwatch/toxwatch/internal/reply"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Perspective Perspective `yaml:"perspective"`
	Stream      Stream      `yaml:"stream"`
	KeysFile    string      `yaml:"keys_file"`
	Rules       []Rule      `yaml:"rules"`
	Limits      Limits      `yaml:"limits"`
	Language    Language    `yaml:"language"`
	Rate        Rate        `yaml:"rate"`
	Tracking    Tracking    `yaml:"tracking"`
	Reply       Reply       `yaml:"reply"`
	Feeds       Feeds       `yaml:"feeds"`
	Output      Output      `yaml:"output"`
}

type Perspective struct {
	APIKeyEnv string `yaml:"api_key_env"`
}

type Stream struct {
	BearerTokenEnv string `yaml:"bearer_token_env"`
}

type Rule struct {
	Attribute string  `yaml:"attribute"`
	Threshold float64 `yaml:"threshold"`
	Mode      string  `yaml:"mode"`
}

type Limits struct {
	MaxProcessed int `yaml:"max_processed"`
	MaxMatched   int `yaml:"max_matched"`
}

type Language struct {
	Accept     string `yaml:"accept"`
	IncludeAll bool   `yaml:"include_all"`
}

type Rate struct {
	CallsPerSecond float64 `yaml:"calls_per_second"`
	PaddingMS      int     `yaml:"padding_ms"`
}

type Tracking struct {
	Path   string `yaml:"path"`
	Append bool   `yaml:"append"`
}

type Reply struct {
	Mode string `yaml:"mode"`
	Text string `yaml:"text"`
}

type Feeds struct {
	URLs         []string `yaml:"urls"`
	FetchContent bool     `yaml:"fetch_content"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

// ConfigDir returns the XDG config directory for toxwatch.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "toxwatch")
}

// DataDir returns the XDG data directory for toxwatch.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "toxwatch")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/toxwatch/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'toxwatch init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Perspective: Perspective{APIKeyEnv: "PERSPECTIVE_API_KEY"},
		Stream:      Stream{BearerTokenEnv: "TWITTER_BEARER_TOKEN"},
		Language:    Language{Accept: "en"},
		Rate:        Rate{CallsPerSecond: 1, PaddingMS: 1},
		Reply: Reply{
			Mode: reply.ModeStatic,
			Text: "This message scored high on toxicity attributes. Consider rephrasing.",
		},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// EvaluateRules converts configured rules to evaluator rules, defaulting an
// unset mode to "above".
func (c *Config) EvaluateRules() []evaluate.Rule {
	rules := make([]evaluate.Rule, 0, len(c.Rules))
	for _, r := range c.Rules {
		mode := evaluate.Mode(r.Mode)
		if r.Mode == "" {
			mode = evaluate.ModeAbove
		}
		rules = append(rules, evaluate.Rule{
			Attribute: r.Attribute,
			Threshold: r.Threshold,
			Mode:      mode,
		})
	}
	return rules
}

// Validate runs every startup-time check that does not touch the filesystem
// or network. Any failure here aborts the run before the first item.
func (c *Config) Validate() error {
	if err := evaluate.ValidateRules(c.EvaluateRules()); err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	if c.Rate.CallsPerSecond <= 0 {
		return fmt.Errorf("rate: calls_per_second must be positive, got %g", c.Rate.CallsPerSecond)
	}
	if c.Rate.PaddingMS < 0 {
		return fmt.Errorf("rate: padding_ms must be non-negative, got %d", c.Rate.PaddingMS)
	}
	if c.Limits.MaxProcessed < 0 || c.Limits.MaxMatched < 0 {
		return fmt.Errorf("limits must be non-negative")
	}
	if !c.Language.IncludeAll && c.Language.Accept == "" {
		return fmt.Errorf("language: accept is required unless include_all is set")
	}
	// Exercises the same constructor the pipeline uses, so an unimplemented
	// reply mode fails here rather than mid-run.
	if _, err := reply.New(c.Reply.Mode, c.Reply.Text); err != nil {
		return fmt.Errorf("reply: %w", err)
	}
	return nil
}

// Padding returns the configured rate padding as a duration.
func (c *Config) Padding() time.Duration {
	return time.Duration(c.Rate.PaddingMS) * time.Millisecond
}

// EffectiveTrackingPath returns the configured tracking path or a timestamped
// default in the current directory.
func (c *Config) EffectiveTrackingPath() string {
	if c.Tracking.Path != "" {
		return c.Tracking.Path
	}
	return fmt.Sprintf("toxic_items_%s.jsonl", time.Now().Format("2006-01-02_150405"))
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
