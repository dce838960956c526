// Package logging provides config-driven categorized file-based logging for
// atlasforge. Logs are written to .atlasforge/logs/ with one file per
// category. Logging is controlled by debug_mode in .atlasforge/config.json -
// when false, no logs are written.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/pipeline stage.
type Category string

const (
	CategoryBoot         Category = "boot"
	CategoryBudget       Category = "budget"       // Budget Planner token/truncation decisions
	CategoryGateway      Category = "gateway"      // LLM Gateway calls
	CategoryPrescan      Category = "prescan"      // Entity Pre-Scanner
	CategoryExtract      Category = "extract"      // Fact Extractor
	CategoryValidate     Category = "validate"     // Fact Validator (Mangle rules, dictionary correction)
	CategoryContext      Category = "context"      // Context Summary Builder
	CategoryOrchestrator Category = "orchestrator" // Analysis Orchestrator task state machine
	CategoryAlias        Category = "alias"        // Alias Resolver union-find
	CategoryAggregate    Category = "aggregate"    // Entity Aggregator
	CategoryWorld        Category = "world"        // World Structure Agent
	CategoryHierarchy    Category = "hierarchy"    // Hierarchy Consolidator & Reviewer
	CategoryMap          Category = "map"          // Map Layout Engine
	CategoryStore        Category = "store"        // Storage layer
	CategoryGeo          Category = "geo"          // Geo gazetteer resolution
	CategoryIngest       Category = "ingest"       // Raw chapter ingestion and source watching
)

// loggingConfig mirrors the relevant parts of config.LoggingConfig
// to avoid circular imports.
type loggingConfig struct {
	DebugMode  bool            `json:"debug_mode"`
	Categories map[string]bool `json:"categories"`
	Level      string          `json:"level"`
	JSONFormat bool            `json:"json_format"`
}

type configFile struct {
	Logging loggingConfig `json:"logging"`
}

// StructuredLogEntry is a JSON log entry, one line per entry.
type StructuredLogEntry struct {
	Timestamp int64                  `json:"ts"`
	Category  string                 `json:"cat"`
	Level     string                 `json:"lvl"`
	Message   string                 `json:"msg"`
	RequestID string                 `json:"req,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Logger wraps a standard logger with category and file output.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	workspace string
	config    loggingConfig
	configMu  sync.RWMutex
	logLevel  int
)

const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Initialize sets up the logging directory and loads config. Call once at
// startup with the workspace root (the directory containing .atlasforge/).
func Initialize(ws string) error {
	if ws == "" {
		return fmt.Errorf("workspace path required")
	}

	workspace = ws
	logsDir = filepath.Join(workspace, ".atlasforge", "logs")

	if err := loadConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "[logging] warning: could not load config: %v\n", err)
		config.DebugMode = false
	}

	if !config.DebugMode {
		return nil
	}

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== atlasforge logging initialized ===")
	boot.Info("workspace: %s", workspace)
	boot.Info("log level: %s", config.Level)
	return nil
}

func loadConfig() error {
	configMu.Lock()
	defer configMu.Unlock()

	configPath := filepath.Join(workspace, ".atlasforge", "config.json")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			config.DebugMode = false
			return nil
		}
		return err
	}

	var cf configFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	config = cf.Logging

	switch config.Level {
	case "debug":
		logLevel = LevelDebug
	case "info":
		logLevel = LevelInfo
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}
	return nil
}

// ReloadConfig reloads the config from disk.
func ReloadConfig() error {
	return loadConfig()
}

// IsDebugMode reports whether debug logging is enabled.
func IsDebugMode() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return config.DebugMode
}

// IsCategoryEnabled reports whether a category should log.
func IsCategoryEnabled(category Category) bool {
	configMu.RLock()
	defer configMu.RUnlock()

	if !config.DebugMode {
		return false
	}
	if config.Categories == nil {
		return true
	}
	enabled, exists := config.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category. Returns a no-op
// logger if debug mode or the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}
	if logsDir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	date := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s_%s.log", date, category)
	logPath := filepath.Join(logsDir, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

func (l *Logger) logJSON(level, msg string) {
	entry := StructuredLogEntry{
		Timestamp: time.Now().UnixMilli(),
		Category:  string(l.category),
		Level:     level,
		Message:   msg,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		l.logger.Printf("[%s] %s", level, msg)
		return
	}
	l.logger.Printf("%s", data)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelDebug {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if config.JSONFormat {
		l.logJSON("debug", msg)
	} else {
		l.logger.Printf("[DEBUG] %s", msg)
	}
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelInfo {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if config.JSONFormat {
		l.logJSON("info", msg)
	} else {
		l.logger.Printf("[INFO] %s", msg)
	}
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelWarn {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if config.JSONFormat {
		l.logJSON("warn", msg)
	} else {
		l.logger.Printf("[WARN] %s", msg)
	}
}

func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if config.JSONFormat {
		l.logJSON("error", msg)
	} else {
		l.logger.Printf("[ERROR] %s", msg)
	}
}

// StructuredLog writes a fully structured entry with custom fields.
func (l *Logger) StructuredLog(level, msg string, fields map[string]interface{}) {
	if l.logger == nil {
		return
	}
	entry := StructuredLogEntry{
		Timestamp: time.Now().UnixMilli(),
		Category:  string(l.category),
		Level:     level,
		Message:   msg,
		Fields:    fields,
	}
	if config.JSONFormat {
		if data, err := json.Marshal(entry); err == nil {
			l.logger.Printf("%s", data)
			return
		}
	}
	l.logger.Printf("[%s] %s | fields=%v", level, msg, fields)
}

// CloseAll closes every open log file. Call at shutdown.
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// Convenience functions, one per category, in the style the rest of the
// pipeline calls into without first fetching a Logger.

func Budget(format string, args ...interface{})     { Get(CategoryBudget).Info(format, args...) }
func BudgetDebug(format string, args ...interface{}) { Get(CategoryBudget).Debug(format, args...) }
func BudgetWarn(format string, args ...interface{})  { Get(CategoryBudget).Warn(format, args...) }

func Gateway(format string, args ...interface{})      { Get(CategoryGateway).Info(format, args...) }
func GatewayDebug(format string, args ...interface{}) { Get(CategoryGateway).Debug(format, args...) }
func GatewayWarn(format string, args ...interface{})  { Get(CategoryGateway).Warn(format, args...) }
func GatewayError(format string, args ...interface{}) { Get(CategoryGateway).Error(format, args...) }

func Prescan(format string, args ...interface{})      { Get(CategoryPrescan).Info(format, args...) }
func PrescanDebug(format string, args ...interface{}) { Get(CategoryPrescan).Debug(format, args...) }
func PrescanWarn(format string, args ...interface{})  { Get(CategoryPrescan).Warn(format, args...) }

func Extract(format string, args ...interface{})     { Get(CategoryExtract).Info(format, args...) }
func ExtractDebug(format string, args ...interface{}) { Get(CategoryExtract).Debug(format, args...) }
func ExtractWarn(format string, args ...interface{})  { Get(CategoryExtract).Warn(format, args...) }
func ExtractError(format string, args ...interface{}) { Get(CategoryExtract).Error(format, args...) }

func Validate(format string, args ...interface{})     { Get(CategoryValidate).Info(format, args...) }
func ValidateDebug(format string, args ...interface{}) { Get(CategoryValidate).Debug(format, args...) }
func ValidateWarn(format string, args ...interface{})  { Get(CategoryValidate).Warn(format, args...) }

func ContextLog(format string, args ...interface{})      { Get(CategoryContext).Info(format, args...) }
func ContextLogDebug(format string, args ...interface{}) { Get(CategoryContext).Debug(format, args...) }

func Orchestrator(format string, args ...interface{})      { Get(CategoryOrchestrator).Info(format, args...) }
func OrchestratorDebug(format string, args ...interface{})  { Get(CategoryOrchestrator).Debug(format, args...) }
func OrchestratorWarn(format string, args ...interface{})   { Get(CategoryOrchestrator).Warn(format, args...) }
func OrchestratorError(format string, args ...interface{})  { Get(CategoryOrchestrator).Error(format, args...) }

func Alias(format string, args ...interface{})     { Get(CategoryAlias).Info(format, args...) }
func AliasDebug(format string, args ...interface{}) { Get(CategoryAlias).Debug(format, args...) }

func Aggregate(format string, args ...interface{})     { Get(CategoryAggregate).Info(format, args...) }
func AggregateDebug(format string, args ...interface{}) { Get(CategoryAggregate).Debug(format, args...) }

func World(format string, args ...interface{})     { Get(CategoryWorld).Info(format, args...) }
func WorldDebug(format string, args ...interface{}) { Get(CategoryWorld).Debug(format, args...) }
func WorldWarn(format string, args ...interface{})  { Get(CategoryWorld).Warn(format, args...) }

func Hierarchy(format string, args ...interface{})      { Get(CategoryHierarchy).Info(format, args...) }
func HierarchyDebug(format string, args ...interface{})  { Get(CategoryHierarchy).Debug(format, args...) }

func Map(format string, args ...interface{})      { Get(CategoryMap).Info(format, args...) }
func MapDebug(format string, args ...interface{})  { Get(CategoryMap).Debug(format, args...) }

func Store(format string, args ...interface{})      { Get(CategoryStore).Info(format, args...) }
func StoreDebug(format string, args ...interface{})  { Get(CategoryStore).Debug(format, args...) }
func StoreError(format string, args ...interface{})  { Get(CategoryStore).Error(format, args...) }

func Geo(format string, args ...interface{})      { Get(CategoryGeo).Info(format, args...) }
func GeoDebug(format string, args ...interface{})  { Get(CategoryGeo).Debug(format, args...) }

func Ingest(format string, args ...interface{})      { Get(CategoryIngest).Info(format, args...) }
func IngestDebug(format string, args ...interface{})  { Get(CategoryIngest).Debug(format, args...) }
func IngestWarn(format string, args ...interface{})   { Get(CategoryIngest).Warn(format, args...) }
func IngestError(format string, args ...interface{})  { Get(CategoryIngest).Error(format, args...) }

// Timer measures operation duration within one category.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning if duration exceeds threshold, otherwise debug.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
