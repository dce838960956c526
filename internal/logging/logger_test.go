package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func resetLoggingState() {
	CloseAll()
	CloseAudit()
	loggers = make(map[Category]*Logger)
	logsDir = ""
	workspace = ""
	config = loggingConfig{}
	auditLogger = nil
}

// TestAllCategoriesLog verifies every pipeline category creates a log file
// with content when debug_mode is true.
func TestAllCategoriesLog(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "logging_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configDir := filepath.Join(tempDir, ".atlasforge")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}

	configContent := `{
		"logging": {
			"level": "debug",
			"debug_mode": true,
			"categories": {
				"boot": true,
				"budget": true,
				"gateway": true,
				"prescan": true,
				"extract": true,
				"validate": true,
				"context": true,
				"orchestrator": true,
				"alias": true,
				"aggregate": true,
				"world": true,
				"hierarchy": true,
				"map": true,
				"store": true,
				"geo": true,
				"ingest": true
			}
		}
	}`

	configPath := filepath.Join(configDir, "config.json")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	resetLoggingState()
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}

	if !IsDebugMode() {
		t.Error("Expected debug mode to be enabled")
	}

	categories := []Category{
		CategoryBoot, CategoryBudget, CategoryGateway, CategoryPrescan,
		CategoryExtract, CategoryValidate, CategoryContext, CategoryOrchestrator,
		CategoryAlias, CategoryAggregate, CategoryWorld, CategoryHierarchy,
		CategoryMap, CategoryStore, CategoryGeo, CategoryIngest,
	}

	for _, cat := range categories {
		if !IsCategoryEnabled(cat) {
			t.Errorf("Category %s should be enabled", cat)
		}
		logger := Get(cat)
		logger.Info("test info message for %s", cat)
		logger.Debug("test debug message for %s", cat)
		logger.Warn("test warn message for %s", cat)
		logger.Error("test error message for %s", cat)
	}

	Budget("convenience budget log")
	Gateway("convenience gateway log")
	Prescan("convenience prescan log")
	Extract("convenience extract log")
	Validate("convenience validate log")
	Orchestrator("convenience orchestrator log")
	Alias("convenience alias log")
	Aggregate("convenience aggregate log")
	World("convenience world log")
	Hierarchy("convenience hierarchy log")
	Map("convenience map log")
	Store("convenience store log")
	Geo("convenience geo log")
	Ingest("convenience ingest log")

	CloseAll()
	CloseAudit()

	logsPath := filepath.Join(tempDir, ".atlasforge", "logs")
	entries, err := os.ReadDir(logsPath)
	if err != nil {
		t.Fatalf("Failed to read logs dir: %v", err)
	}

	for _, cat := range categories {
		found := false
		for _, entry := range entries {
			if strings.Contains(entry.Name(), string(cat)+".log") {
				found = true
				content, err := os.ReadFile(filepath.Join(logsPath, entry.Name()))
				if err != nil {
					t.Errorf("Failed to read log file for %s: %v", cat, err)
					continue
				}
				if len(content) == 0 {
					t.Errorf("Log file for %s is empty", cat)
				}
				break
			}
		}
		if !found {
			t.Errorf("No log file found for category: %s", cat)
		}
	}
}

// TestDebugModeDisabled verifies no logs are created when debug_mode is false.
func TestDebugModeDisabled(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "logging_test_disabled")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configDir := filepath.Join(tempDir, ".atlasforge")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}

	configContent := `{
		"logging": {
			"level": "debug",
			"debug_mode": false,
			"categories": {"boot": true, "extract": true}
		}
	}`

	configPath := filepath.Join(configDir, "config.json")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	resetLoggingState()
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}

	if IsDebugMode() {
		t.Error("Expected debug mode to be DISABLED (production mode)")
	}

	for _, cat := range []Category{CategoryBoot, CategoryExtract, CategoryGateway} {
		if IsCategoryEnabled(cat) {
			t.Errorf("Category %s should be DISABLED when debug_mode=false", cat)
		}
	}

	Get(CategoryBoot).Info("this should NOT be logged")
	Extract("this should NOT be logged")

	CloseAll()
	CloseAudit()

	logsPath := filepath.Join(tempDir, ".atlasforge", "logs")
	if _, err := os.Stat(logsPath); err == nil {
		entries, _ := os.ReadDir(logsPath)
		if len(entries) > 0 {
			t.Errorf("Expected NO log files in production mode, found %d", len(entries))
		}
	}
}

// TestCategoryToggle verifies per-category enable/disable.
func TestCategoryToggle(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "logging_test_category")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configDir := filepath.Join(tempDir, ".atlasforge")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}

	configContent := `{
		"logging": {
			"level": "debug",
			"debug_mode": true,
			"categories": {
				"boot": true,
				"extract": true,
				"alias": false,
				"geo": false
			}
		}
	}`

	configPath := filepath.Join(configDir, "config.json")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	resetLoggingState()
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}

	if !IsCategoryEnabled(CategoryBoot) {
		t.Error("boot should be enabled")
	}
	if !IsCategoryEnabled(CategoryExtract) {
		t.Error("extract should be enabled")
	}
	if IsCategoryEnabled(CategoryAlias) {
		t.Error("alias should be DISABLED")
	}
	if IsCategoryEnabled(CategoryGeo) {
		t.Error("geo should be DISABLED")
	}
	if !IsCategoryEnabled(CategoryAggregate) {
		t.Error("aggregate (not in config) should default to enabled")
	}

	Get(CategoryBoot).Info("this SHOULD be logged")
	Extract("this SHOULD be logged")
	Alias("this should NOT be logged")
	Geo("this should NOT be logged")

	CloseAll()
	CloseAudit()

	logsPath := filepath.Join(tempDir, ".atlasforge", "logs")
	entries, _ := os.ReadDir(logsPath)

	var hasBoot, hasExtract, hasAlias, hasGeo bool
	for _, e := range entries {
		name := e.Name()
		hasBoot = hasBoot || strings.Contains(name, "boot")
		hasExtract = hasExtract || strings.Contains(name, "extract")
		hasAlias = hasAlias || strings.Contains(name, "alias")
		hasGeo = hasGeo || strings.Contains(name, "geo")
	}

	if !hasBoot {
		t.Error("expected boot log file")
	}
	if !hasExtract {
		t.Error("expected extract log file")
	}
	if hasAlias {
		t.Error("should NOT have alias log file (disabled)")
	}
	if hasGeo {
		t.Error("should NOT have geo log file (disabled)")
	}
}

// TestTimerLogging exercises the timing helper.
func TestTimerLogging(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "logging_test_timer")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configDir := filepath.Join(tempDir, ".atlasforge")
	os.MkdirAll(configDir, 0755)
	configContent := `{"logging": {"level": "debug", "debug_mode": true}}`
	os.WriteFile(filepath.Join(configDir, "config.json"), []byte(configContent), 0644)

	resetLoggingState()
	Initialize(tempDir)

	timer := StartTimer(CategoryExtract, "TestOperation")
	time.Sleep(time.Millisecond)
	elapsed := timer.Stop()

	if elapsed <= 0 {
		t.Error("Timer should have recorded non-zero duration")
	}

	CloseAll()
	CloseAudit()
}
