package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/inkforge/atlasforge/internal/logging"
	"gopkg.in/yaml.v3"
)

// Config holds all atlasforge configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	LLM LLMConfig `yaml:"llm"`

	// Mangle kernel configuration, backing the Fact Validator's rule engine.
	Mangle MangleConfig `yaml:"mangle"`

	Budget BudgetConfig `yaml:"budget"`
	Store  StoreConfig  `yaml:"store"`
	Geo    GeoConfig    `yaml:"geo"`

	Logging LoggingConfig `yaml:"logging"`

	Limits PipelineLimits `yaml:"limits" json:"limits"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "atlasforge",
		Version: "0.1.0",

		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o",
			BaseURL:  "https://api.openai.com/v1",
			Timeout:  "300s",
		},

		Mangle: MangleConfig{
			SchemaPath:   "",
			PolicyPath:   "",
			FactLimit:    1000000,
			QueryTimeout: "30s",
		},

		Budget: DefaultBudgetConfig(),
		Store:  DefaultStoreConfig(),
		Geo:    GeoConfig{},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "atlasforge.log",
		},

		Limits: PipelineLimits{
			MaxConcurrentLLMCalls: 1,
			MaxConcurrentNovels:   1,
			MaxFactsInValidator:   250000,
			MaxSolverLocations:    40,
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults (plus
// environment overrides) if the file doesn't exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	logging.BootDebug("Loading config from: %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Get(logging.CategoryBoot).Info("Config file not found, using defaults: %s", path)
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		logging.Get(logging.CategoryBoot).Error("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		logging.Get(logging.CategoryBoot).Error("Failed to parse config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	logging.Get(logging.CategoryBoot).Info("Config loaded: provider=%s model=%s", cfg.LLM.Provider, cfg.LLM.Model)

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "anthropic"
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openai"
	}
	if path := os.Getenv("ATLASFORGE_DB"); path != "" {
		c.Store.DatabasePath = path
	}
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 300 * time.Second
	}
	return d
}

// GetQueryTimeout returns the Mangle query timeout as a duration.
func (c *Config) GetQueryTimeout() time.Duration {
	d, err := time.ParseDuration(c.Mangle.QueryTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// ValidProviders lists all supported LLM providers.
var ValidProviders = []string{"openai", "anthropic"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key not configured (set ANTHROPIC_API_KEY or OPENAI_API_KEY)")
	}

	validProvider := false
	for _, p := range ValidProviders {
		if c.LLM.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}

	return nil
}
