// Package logging provides audit logging that outputs Mangle-queryable facts.
// Audit logs are structured events that can be parsed into Mangle predicates
// for declarative querying and analysis, matching the fact shapes internal/mangle
// loads as schema.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// AuditEventType defines the type of audit event (maps to a Mangle predicate).
type AuditEventType string

const (
	// LLM Gateway calls -> llm_call/6
	AuditLLMRequest  AuditEventType = "llm_request"
	AuditLLMResponse AuditEventType = "llm_response"
	AuditLLMError    AuditEventType = "llm_error"

	// Fact Extractor chapter runs -> chapter_extracted/5
	AuditChapterExtractStart    AuditEventType = "chapter_extract_start"
	AuditChapterExtractComplete AuditEventType = "chapter_extract_complete"
	AuditChapterExtractRetry    AuditEventType = "chapter_extract_retry"
	AuditChapterExtractFailed   AuditEventType = "chapter_extract_failed"

	// Fact Validator rejections/corrections -> fact_validated/5
	AuditValidateReject  AuditEventType = "validate_reject"
	AuditValidateCorrect AuditEventType = "validate_correct"

	// Alias Resolver merges -> alias_merge/4
	AuditAliasMerge AuditEventType = "alias_merge"

	// Entity Aggregator runs -> aggregate_run/4
	AuditAggregateStart    AuditEventType = "aggregate_start"
	AuditAggregateComplete AuditEventType = "aggregate_complete"

	// World Structure Agent rebuilds -> hierarchy_rebuild/5
	AuditHierarchyRebuild     AuditEventType = "hierarchy_rebuild"
	AuditHierarchyCycleBroken AuditEventType = "hierarchy_cycle_broken"

	// Hierarchy Consolidator & Reviewer -> hierarchy_review/5
	AuditHierarchyReview AuditEventType = "hierarchy_review"

	// Map Layout Engine solves -> map_solve/4
	AuditMapSolve AuditEventType = "map_solve"

	// Analysis Orchestrator task transitions -> task_event/5
	AuditTaskStart     AuditEventType = "task_start"
	AuditTaskPause     AuditEventType = "task_pause"
	AuditTaskResume    AuditEventType = "task_resume"
	AuditTaskComplete  AuditEventType = "task_complete"
	AuditTaskCancel    AuditEventType = "task_cancel"

	// Storage operations -> store_op/5
	AuditStoreWrite AuditEventType = "store_write"
	AuditStoreRead  AuditEventType = "store_read"
	AuditStoreError AuditEventType = "store_error"

	// Performance -> perf_metric/4
	AuditPerfMetric AuditEventType = "perf_metric"
	AuditPerfSlow   AuditEventType = "perf_slow"

	// Error events -> error_event/4
	AuditErrorGeneric  AuditEventType = "error_generic"
	AuditErrorCritical AuditEventType = "error_critical"
)

// AuditEvent represents a structured audit log entry, parseable to Mangle.
// Format: predicate(timestamp, category, ...args)
type AuditEvent struct {
	Timestamp  int64                  `json:"ts"`
	EventType  AuditEventType         `json:"event"`
	Category   string                 `json:"cat"`
	NovelID    string                 `json:"novel"`
	Chapter    int                    `json:"chapter,omitempty"`
	Target     string                 `json:"target"`
	Action     string                 `json:"action"`
	Success    bool                   `json:"success"`
	DurationMs int64                  `json:"dur_ms"`
	Error      string                 `json:"error"`
	Message    string                 `json:"msg"`
	Fields     map[string]interface{} `json:"fields"`
	MangleFact string                 `json:"mangle"`
}

var (
	auditFile   *os.File
	auditMu     sync.Mutex
	auditLogger *AuditLogger
)

// AuditLogger handles structured audit logging with Mangle fact generation.
type AuditLogger struct {
	novelID  string
	category Category
}

// InitAudit initializes the audit logging system.
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil
	}

	date := time.Now().Format("2006-01-02")
	auditPath := filepath.Join(logsDir, fmt.Sprintf("%s_audit.log", date))

	file, err := os.OpenFile(auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file

	header := fmt.Sprintf("# Audit log started at %s\n# Format: Mangle-queryable structured events\n", time.Now().Format(time.RFC3339))
	auditFile.WriteString(header)
	return nil
}

// CloseAudit closes the audit log file.
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// Audit returns the global audit logger.
func Audit() *AuditLogger {
	if auditLogger == nil {
		auditLogger = &AuditLogger{}
	}
	return auditLogger
}

// AuditWithNovel creates an audit logger scoped to a novel.
func AuditWithNovel(novelID string) *AuditLogger {
	return &AuditLogger{novelID: novelID}
}

// AuditWithContext creates a fully-scoped audit logger.
func AuditWithContext(novelID string, category Category) *AuditLogger {
	return &AuditLogger{novelID: novelID, category: category}
}

// Log writes an audit event.
func (a *AuditLogger) Log(event AuditEvent) {
	if !IsDebugMode() || auditFile == nil {
		return
	}

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.NovelID == "" && a.novelID != "" {
		event.NovelID = a.novelID
	}
	if event.Category == "" && a.category != "" {
		event.Category = string(a.category)
	}
	if event.Fields == nil {
		event.Fields = make(map[string]interface{})
	}

	event.MangleFact = generateMangleFact(event)

	auditMu.Lock()
	defer auditMu.Unlock()

	data, err := json.Marshal(event)
	if err == nil {
		auditFile.WriteString(string(data) + "\n")
	}
}

func generateMangleFact(e AuditEvent) string {
	switch e.EventType {
	case AuditLLMRequest, AuditLLMResponse, AuditLLMError:
		tokens := 0
		if t, ok := e.Fields["tokens"].(int); ok {
			tokens = t
		}
		return fmt.Sprintf("llm_call(%d, /%s, \"%s\", %v, %d, %d).",
			e.Timestamp, e.EventType, e.NovelID, e.Success, e.DurationMs, tokens)

	case AuditChapterExtractStart, AuditChapterExtractComplete, AuditChapterExtractRetry, AuditChapterExtractFailed:
		return fmt.Sprintf("chapter_extracted(%d, /%s, \"%s\", %d, %v).",
			e.Timestamp, e.EventType, e.NovelID, e.Chapter, e.Success)

	case AuditValidateReject, AuditValidateCorrect:
		return fmt.Sprintf("fact_validated(%d, /%s, \"%s\", \"%s\", %v).",
			e.Timestamp, e.EventType, e.NovelID, e.Target, e.Success)

	case AuditAliasMerge:
		return fmt.Sprintf("alias_merge(%d, \"%s\", \"%s\", \"%s\").",
			e.Timestamp, e.NovelID, e.Action, e.Target)

	case AuditAggregateStart, AuditAggregateComplete:
		return fmt.Sprintf("aggregate_run(%d, /%s, \"%s\", %v).",
			e.Timestamp, e.EventType, e.NovelID, e.Success)

	case AuditHierarchyRebuild, AuditHierarchyCycleBroken:
		return fmt.Sprintf("hierarchy_rebuild(%d, /%s, \"%s\", \"%s\", %v).",
			e.Timestamp, e.EventType, e.NovelID, e.Target, e.Success)

	case AuditHierarchyReview:
		return fmt.Sprintf("hierarchy_review(%d, \"%s\", \"%s\", %v, %d).",
			e.Timestamp, e.NovelID, e.Target, e.Success, e.DurationMs)

	case AuditMapSolve:
		return fmt.Sprintf("map_solve(%d, \"%s\", %v, %d).",
			e.Timestamp, e.NovelID, e.Success, e.DurationMs)

	case AuditTaskStart, AuditTaskPause, AuditTaskResume, AuditTaskComplete, AuditTaskCancel:
		return fmt.Sprintf("task_event(%d, /%s, \"%s\", %d, %v).",
			e.Timestamp, e.EventType, e.NovelID, e.Chapter, e.Success)

	case AuditStoreWrite, AuditStoreRead, AuditStoreError:
		return fmt.Sprintf("store_op(%d, /%s, \"%s\", \"%s\", %v).",
			e.Timestamp, e.EventType, e.NovelID, e.Target, e.Success)

	case AuditPerfMetric, AuditPerfSlow:
		return fmt.Sprintf("perf_metric(%d, \"%s\", \"%s\", %d).",
			e.Timestamp, e.Category, e.Action, e.DurationMs)

	case AuditErrorGeneric, AuditErrorCritical:
		return fmt.Sprintf("error_event(%d, /%s, \"%s\", \"%s\").",
			e.Timestamp, e.EventType, e.Category, escapeString(e.Error))

	default:
		return fmt.Sprintf("audit_event(%d, /%s, \"%s\", \"%s\", %v).",
			e.Timestamp, e.EventType, e.Category, escapeString(e.Message), e.Success)
	}
}

// escapeString escapes quotes and backslashes for Mangle string literals.
func escapeString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + len(s)/10)
	for _, c := range s {
		switch c {
		case '"':
			b.WriteString("\\\"")
		case '\\':
			b.WriteString("\\\\")
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case '\t':
			b.WriteString("\\t")
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

// LLMCall logs an LLM Gateway call.
func (a *AuditLogger) LLMCall(model string, tokens int, durationMs int64, success bool, errMsg string) {
	a.Log(AuditEvent{
		EventType:  AuditLLMResponse,
		Target:     model,
		Success:    success,
		DurationMs: durationMs,
		Error:      errMsg,
		Fields:     map[string]interface{}{"tokens": tokens},
		Message:    fmt.Sprintf("LLM call: %s -> %d tokens (%dms, success=%v)", model, tokens, durationMs, success),
	})
}

// ChapterExtractComplete logs the end of one chapter's extraction.
func (a *AuditLogger) ChapterExtractComplete(chapter int, durationMs int64, success bool, errMsg string) {
	a.Log(AuditEvent{
		EventType:  AuditChapterExtractComplete,
		Chapter:    chapter,
		Success:    success,
		DurationMs: durationMs,
		Error:      errMsg,
		Message:    fmt.Sprintf("Chapter %d extracted (success=%v, %dms)", chapter, success, durationMs),
	})
}

// ChapterExtractRetry logs a chapter being retried after a first failure.
func (a *AuditLogger) ChapterExtractRetry(chapter int, reason string) {
	a.Log(AuditEvent{
		EventType: AuditChapterExtractRetry,
		Chapter:   chapter,
		Success:   true,
		Fields:    map[string]interface{}{"reason": reason},
		Message:   fmt.Sprintf("Chapter %d retry: %s", chapter, reason),
	})
}

// ValidateReject logs the Fact Validator rejecting a candidate fact.
func (a *AuditLogger) ValidateReject(target, rule string) {
	a.Log(AuditEvent{
		EventType: AuditValidateReject,
		Target:    target,
		Success:   false,
		Fields:    map[string]interface{}{"rule": rule},
		Message:   fmt.Sprintf("Rejected %q by rule %s", target, rule),
	})
}

// ValidateCorrect logs the Fact Validator's dictionary-driven name correction.
func (a *AuditLogger) ValidateCorrect(from, to string) {
	a.Log(AuditEvent{
		EventType: AuditValidateCorrect,
		Target:    to,
		Action:    from,
		Success:   true,
		Message:   fmt.Sprintf("Corrected %q -> %q", from, to),
	})
}

// AliasMerge logs the Alias Resolver merging alias into canonical.
func (a *AuditLogger) AliasMerge(alias, canonical string) {
	a.Log(AuditEvent{
		EventType: AuditAliasMerge,
		Action:    alias,
		Target:    canonical,
		Success:   true,
		Message:   fmt.Sprintf("Merged alias %q -> %q", alias, canonical),
	})
}

// HierarchyCycleBroken logs the World Structure Agent breaking a detected cycle.
func (a *AuditLogger) HierarchyCycleBroken(child, parent string) {
	a.Log(AuditEvent{
		EventType: AuditHierarchyCycleBroken,
		Target:    child,
		Action:    parent,
		Success:   true,
		Message:   fmt.Sprintf("Broke cycle edge %s -> %s", child, parent),
	})
}

// TaskEvent logs an Analysis Orchestrator state transition.
func (a *AuditLogger) TaskEvent(eventType AuditEventType, chapter int, success bool) {
	a.Log(AuditEvent{
		EventType: eventType,
		Chapter:   chapter,
		Success:   success,
		Message:   fmt.Sprintf("Task %s at chapter %d (success=%v)", eventType, chapter, success),
	})
}

// StoreOp logs a storage layer operation.
func (a *AuditLogger) StoreOp(op AuditEventType, target string, success bool, errMsg string) {
	a.Log(AuditEvent{
		EventType: op,
		Target:    target,
		Success:   success,
		Error:     errMsg,
		Message:   fmt.Sprintf("Store %s: %s (success=%v)", op, target, success),
	})
}

// PerfMetric logs a performance metric, flagged slow past threshold.
func (a *AuditLogger) PerfMetric(operation string, durationMs, threshold int64) {
	eventType := AuditPerfMetric
	success := true
	if threshold > 0 && durationMs > threshold {
		eventType = AuditPerfSlow
		success = false
	}
	fields := map[string]interface{}{}
	if threshold > 0 {
		fields["threshold_ms"] = threshold
	}
	a.Log(AuditEvent{
		EventType:  eventType,
		Action:     operation,
		DurationMs: durationMs,
		Success:    success,
		Fields:     fields,
		Message:    fmt.Sprintf("Perf: %s took %dms (threshold=%dms)", operation, durationMs, threshold),
	})
}

// Error logs an error event.
func (a *AuditLogger) Error(category string, err error, critical bool) {
	eventType := AuditErrorGeneric
	if critical {
		eventType = AuditErrorCritical
	}
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	a.Log(AuditEvent{
		EventType: eventType,
		Category:  category,
		Success:   false,
		Error:     errMsg,
		Message:   fmt.Sprintf("Error in %s: %s (critical=%v)", category, errMsg, critical),
	})
}
