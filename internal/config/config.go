// Package config loads the advisor server configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type ProviderConfig struct {
	Name      string `yaml:"name"`
	BaseURL   string `yaml:"base_url,omitempty"`
	Path      string `yaml:"path,omitempty"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
	Model     string `yaml:"model"`
}

type Config struct {
	Addr     string         `yaml:"addr,omitempty"`
	Provider ProviderConfig `yaml:"provider"`

	// GenerationTimeoutMS bounds a single model call. A hung upstream call
	// frees the conversation's turn worker when this expires.
	GenerationTimeoutMS int `yaml:"generation_timeout_ms,omitempty"`

	// PromptsDir plus PromptGlobs select operator guidance documents merged
	// into the system prompt.
	PromptsDir  string   `yaml:"prompts_dir,omitempty"`
	PromptGlobs []string `yaml:"prompt_globs,omitempty"`

	// TranscriptDir, when set, mirrors archived conversation snapshots to disk.
	TranscriptDir string `yaml:"transcript_dir,omitempty"`
}

func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Addr) == "" {
		c.Addr = ":8080"
	}
	if strings.TrimSpace(c.Provider.Name) == "" {
		c.Provider.Name = "openai"
	}
	if strings.TrimSpace(c.Provider.Model) == "" {
		c.Provider.Model = "gpt-4o-mini"
	}
	if strings.TrimSpace(c.Provider.APIKeyEnv) == "" {
		c.Provider.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.GenerationTimeoutMS <= 0 {
		c.GenerationTimeoutMS = 120_000
	}
	if len(c.PromptGlobs) == 0 {
		c.PromptGlobs = []string{"**/*.md"}
	}
}

// LoadFile reads and validates a YAML config file. Missing fields fall back
// to defaults.
func LoadFile(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(string(b)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}
