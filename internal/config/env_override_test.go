package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOverrides_LLM_NoKeysLeavesDefaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg := &Config{LLM: LLMConfig{Provider: "openai", APIKey: ""}}
	cfg.applyEnvOverrides()

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "", cfg.LLM.APIKey)
}

func TestEnvOverrides_Store_DBPath(t *testing.T) {
	t.Setenv("ATLASFORGE_DB", "/var/lib/atlasforge/novels.db")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "/var/lib/atlasforge/novels.db", cfg.Store.DatabasePath)
}

func TestEnvOverrides_Store_UnsetLeavesDefault(t *testing.T) {
	t.Setenv("ATLASFORGE_DB", "")

	cfg := DefaultConfig()
	want := cfg.Store.DatabasePath
	cfg.applyEnvOverrides()

	assert.Equal(t, want, cfg.Store.DatabasePath)
}
