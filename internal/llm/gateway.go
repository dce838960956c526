package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/inkforge/atlasforge/internal/config"
	"github.com/inkforge/atlasforge/internal/logging"
	"github.com/inkforge/atlasforge/internal/model"
)

// Gateway is the unified call surface spec §4.2 names: one async call()
// contract regardless of which wire protocol backs it.
type Gateway interface {
	// Call sends messages to the provider and returns the completion. Errors
	// are always *model.Failure so callers can dispatch on Kind.
	Call(ctx context.Context, opts CallOptions) (*CallResult, error)

	// DetectContextWindow returns the current model's context window in
	// tokens. When it can't be determined, the OpenAI gateway returns its
	// 8192 fallback and the Anthropic gateway returns 0, which marks the
	// window as unknown so ComputeBudget applies its own default.
	DetectContextWindow(ctx context.Context) int

	// Provider identifies the wire protocol ("openai" or "anthropic").
	Provider() string

	// SetModel switches the active model, invalidating the cached context
	// window so the next DetectContextWindow re-queries (spec §4.1: "Budget
	// is recomputed whenever the model or mode changes").
	SetModel(model string)
}

// ClientConfig configures a concrete Gateway client.
type ClientConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewGateway builds the Gateway variant named by provider ("openai" or
// "anthropic"); spec §4.2 names exactly these two concrete wire formats.
func NewGateway(provider string, cfg ClientConfig) (Gateway, error) {
	switch provider {
	case "openai":
		return newOpenAIGateway(cfg), nil
	case "anthropic":
		return newAnthropicGateway(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

// rateLimiter enforces the minimum delay between consecutive Gateway calls
// (config.LLMTimeouts.RateLimitDelay), matching the teacher clients' own
// per-client request throttle.
type rateLimiter struct {
	mu          sync.Mutex
	lastRequest time.Time
}

func (r *rateLimiter) wait(delay time.Duration) {
	if delay <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	elapsed := time.Since(r.lastRequest)
	if elapsed < delay {
		time.Sleep(delay - elapsed)
	}
	r.lastRequest = time.Now()
}

// windowCache caches a detected context window until SetModel invalidates it.
type windowCache struct {
	mu     sync.Mutex
	tokens int
}

func (w *windowCache) get() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tokens
}

func (w *windowCache) set(tokens int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tokens = tokens
}

func (w *windowCache) invalidate() {
	w.set(0)
}

// classifyFailure maps a Gateway-level error into the spec §4.2/§7 typed
// failure taxonomy. statusCode/body carry a non-2xx HTTP response; ctxErr is
// the call's context.Err() (distinguishes a user cancellation from a
// deadline timeout); isParse marks a response-body decode failure.
func classifyFailure(novel string, chapter int, statusCode int, body string, err error, ctxErr error, isParse bool) *model.Failure {
	switch {
	case ctxErr == context.Canceled:
		return model.NewFailure(model.FailureCancelled, novel, chapter, ctxErr)
	case ctxErr != nil:
		return model.NewFailure(model.FailureTimeout, novel, chapter, ctxErr)
	case isParse:
		return model.NewFailure(model.FailureParseError, novel, chapter, err)
	case model.ClassifyContentPolicy(body):
		return model.NewFailure(model.FailureContentPolicy, novel, chapter, fmt.Errorf("content policy rejection: %s", body))
	case statusCode != 0:
		return model.NewFailure(model.FailureHTTPError, novel, chapter, fmt.Errorf("status %d: %s", statusCode, body))
	case err != nil:
		return model.NewFailure(model.FailureUnknown, novel, chapter, err)
	default:
		return model.NewFailure(model.FailureUnknown, novel, chapter, fmt.Errorf("unknown gateway failure"))
	}
}

// auditCall logs the LLM call (success or failure) through the Mangle-backed
// audit trail, keyed by novel.
func auditCall(opts CallOptions, provider, modelName string, usage Usage, elapsed time.Duration, err error) {
	novel := opts.NovelID
	if novel == "" {
		novel = "-"
	}
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	logging.AuditWithNovel(novel).LLMCall(provider+"/"+modelName, usage.TotalTokens, elapsed.Milliseconds(), err == nil, errMsg)
}

// timeoutsOrDefault returns the process-wide LLM timeout configuration.
func timeoutsOrDefault() config.LLMTimeouts {
	return config.GetLLMTimeouts()
}
