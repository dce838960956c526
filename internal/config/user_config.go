package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// UserConfig holds all atlasforge configuration from .atlasforge/config.json.
// This is the single source of truth for per-workspace settings; Config
// (config.go) holds the compiled-in defaults it overrides.
//
// Supported providers:
//   - openai:    OpenAI-compatible chat/completions endpoint (also covers any
//     self-hosted OpenAI-protocol server, local or cloud)
//   - anthropic: Anthropic Messages endpoint
type UserConfig struct {
	// Provider selects which Gateway client variant to use: "openai" or "anthropic".
	Provider string `json:"provider,omitempty"`

	OpenAIAPIKey    string `json:"openai_api_key,omitempty"`
	AnthropicAPIKey string `json:"anthropic_api_key,omitempty"`

	// Model overrides the default model for the selected provider.
	Model string `json:"model,omitempty"`

	// BaseURL overrides the provider's default endpoint, for a local or
	// self-hosted gateway.
	BaseURL string `json:"base_url,omitempty"`

	// LocalMode flips the Budget Planner onto the local-conservative curve
	// (spec §4.1) and widens LLM timeouts for slower local inference.
	LocalMode bool `json:"local_mode,omitempty"`

	Budget  *BudgetConfig  `json:"budget,omitempty"`
	Store   *StoreConfig   `json:"store,omitempty"`
	Geo     *GeoConfig     `json:"geo,omitempty"`
	Limits  *PipelineLimits `json:"limits,omitempty"`
	Logging *LoggingConfig `json:"logging,omitempty"`
}

// BudgetConfig configures the Budget Planner's context-window interpolation
// (spec §4.1).
type BudgetConfig struct {
	// LocalContextWindow is the conservative floor used in local mode (default 8192).
	LocalContextWindow int `json:"local_context_window,omitempty"`
	// LocalCap bounds the interpolated window even if the model reports more (default 16384).
	LocalCap int `json:"local_cap,omitempty"`
	// CloudGenerousWindow is the upper interpolation point for cloud models (default 131072).
	CloudGenerousWindow int `json:"cloud_generous_window,omitempty"`
	// AnthropicFamilyDefault is used when the model's window can't be detected
	// and the provider is anthropic (default 200000).
	AnthropicFamilyDefault int `json:"anthropic_family_default,omitempty"`
}

// DefaultBudgetConfig returns the calibration points spec §4.1 names.
func DefaultBudgetConfig() BudgetConfig {
	return BudgetConfig{
		LocalContextWindow:     8192,
		LocalCap:               16384,
		CloudGenerousWindow:    131072,
		AnthropicFamilyDefault: 200000,
	}
}

// StoreConfig configures the SQLite-backed storage layer.
type StoreConfig struct {
	DatabasePath string `json:"database_path,omitempty"`
	BusyTimeout  string `json:"busy_timeout,omitempty"` // e.g. "5s"
}

// DefaultStoreConfig returns sensible defaults for a single-writer WAL-mode database.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		DatabasePath: "data/atlasforge.db",
		BusyTimeout:  "5s",
	}
}

// GeoConfig configures the Geo Gazetteer dataset selection (spec §6).
type GeoConfig struct {
	// HistoricalCNDatasetPath points at the historical-China gazetteer, if available.
	HistoricalCNDatasetPath string `json:"historical_cn_dataset_path,omitempty"`
	// ModernCNDatasetPath points at the modern-China gazetteer, if available.
	ModernCNDatasetPath string `json:"modern_cn_dataset_path,omitempty"`
	// GlobalDatasetPath points at the worldwide gazetteer, if available.
	GlobalDatasetPath string `json:"global_dataset_path,omitempty"`
}

// GetContextWindowConfig has been superseded by BudgetConfig; callers should
// use GetBudgetConfig directly.
func (c *UserConfig) GetBudgetConfig() BudgetConfig {
	if c.Budget != nil {
		return *c.Budget
	}
	return DefaultBudgetConfig()
}

func (c *UserConfig) GetStoreConfig() StoreConfig {
	if c.Store != nil {
		return *c.Store
	}
	return DefaultStoreConfig()
}

func (c *UserConfig) GetGeoConfig() GeoConfig {
	if c.Geo != nil {
		return *c.Geo
	}
	return GeoConfig{}
}

func (c *UserConfig) GetLimits() PipelineLimits {
	if c.Limits != nil {
		return *c.Limits
	}
	return PipelineLimits{
		MaxConcurrentLLMCalls: 1,
		MaxConcurrentNovels:   1,
		MaxFactsInValidator:   250000,
		MaxSolverLocations:    40,
	}
}

func (c *UserConfig) GetLogging() LoggingConfig {
	if c.Logging != nil {
		return *c.Logging
	}
	return LoggingConfig{Level: "info", Format: "text"}
}

// DefaultUserConfigPath returns the path to the per-workspace config file.
func DefaultUserConfigPath() string {
	root, err := FindWorkspaceRoot()
	if err != nil {
		return ".atlasforge/config.json"
	}
	return filepath.Join(root, ".atlasforge", "config.json")
}

// FindWorkspaceRoot walks up from the working directory looking for
// .atlasforge or go.mod. Falls back to the working directory.
func FindWorkspaceRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	originalDir := dir
	for {
		if _, err := os.Stat(filepath.Join(dir, ".atlasforge")); err == nil {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return originalDir, nil
}

// LoadUserConfig loads configuration from .atlasforge/config.json, returning
// an empty config (not an error) if the file doesn't exist.
func LoadUserConfig(path string) (*UserConfig, error) {
	cfg := &UserConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read user config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to path as indented JSON.
func (c *UserConfig) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write user config: %w", err)
	}

	return nil
}

// GetActiveProvider returns the provider and API key to use. Priority:
// explicit provider setting, then first available key, then OPENAI_API_KEY /
// ANTHROPIC_API_KEY from the environment.
func (c *UserConfig) GetActiveProvider() (provider, apiKey string) {
	if c.Provider == "anthropic" && c.AnthropicAPIKey != "" {
		return "anthropic", c.AnthropicAPIKey
	}
	if c.Provider == "openai" && c.OpenAIAPIKey != "" {
		return "openai", c.OpenAIAPIKey
	}

	if c.AnthropicAPIKey != "" {
		return "anthropic", c.AnthropicAPIKey
	}
	if c.OpenAIAPIKey != "" {
		return "openai", c.OpenAIAPIKey
	}

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return "anthropic", key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return "openai", key
	}

	return "", ""
}

// DefaultUserConfig returns an empty config ready for env-based key lookup.
func DefaultUserConfig() *UserConfig {
	return &UserConfig{}
}

// GlobalConfig loads the config from the workspace root's default path.
func GlobalConfig() (*UserConfig, error) {
	return LoadUserConfig(DefaultUserConfigPath())
}
