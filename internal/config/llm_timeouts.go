package config

import "time"

// LLMTimeouts centralizes timeout configuration for the LLM Gateway and the
// stages built on top of it.
//
// In Go, the SHORTEST timeout in the chain wins: if the HTTP client allows
// 10 minutes but the call is wrapped in a 90-second context, the call fails
// after 90 seconds. These are the canonical timeouts every gateway call and
// pipeline stage should derive from, rather than picking their own.
type LLMTimeouts struct {
	// HTTPClientTimeout bounds connection, TLS handshake, and full response
	// body read. Local models with large context windows can take minutes.
	HTTPClientTimeout time.Duration `json:"http_client_timeout"`

	// SemaphoreWaitTimeout bounds how long a chapter extraction waits for the
	// per-novel LLM call semaphore (spec §4.7: size 1).
	SemaphoreWaitTimeout time.Duration `json:"semaphore_wait_timeout"`

	// PerCallTimeout wraps a single LLM Gateway call's context.
	PerCallTimeout time.Duration `json:"per_call_timeout"`

	RetryBackoffBase time.Duration `json:"retry_backoff_base"`
	RetryBackoffMax  time.Duration `json:"retry_backoff_max"`
	MaxRetries       int           `json:"max_retries"`

	// RateLimitDelay is the minimum delay between consecutive gateway calls.
	RateLimitDelay time.Duration `json:"rate_limit_delay"`

	// ChapterExtractTimeout bounds one chapter's full extract+validate cycle.
	ChapterExtractTimeout time.Duration `json:"chapter_extract_timeout"`

	// HierarchyReviewTimeout bounds one subtree's LLM review pass (spec §4.11).
	HierarchyReviewTimeout time.Duration `json:"hierarchy_review_timeout"`
}

// DefaultLLMTimeouts returns sensible defaults for cloud-hosted models with
// large context windows.
func DefaultLLMTimeouts() LLMTimeouts {
	return LLMTimeouts{
		HTTPClientTimeout:      5 * time.Minute,
		SemaphoreWaitTimeout:   10 * time.Minute,
		PerCallTimeout:         5 * time.Minute,
		RetryBackoffBase:       1 * time.Second,
		RetryBackoffMax:        30 * time.Second,
		MaxRetries:             3,
		RateLimitDelay:         200 * time.Millisecond,
		ChapterExtractTimeout:  8 * time.Minute,
		HierarchyReviewTimeout: 5 * time.Minute,
	}
}

// LocalLLMTimeouts returns longer defaults suited to a locally hosted model
// with a small context window and slower token throughput.
func LocalLLMTimeouts() LLMTimeouts {
	return LLMTimeouts{
		HTTPClientTimeout:      10 * time.Minute,
		SemaphoreWaitTimeout:   20 * time.Minute,
		PerCallTimeout:         10 * time.Minute,
		RetryBackoffBase:       2 * time.Second,
		RetryBackoffMax:        60 * time.Second,
		MaxRetries:             2,
		RateLimitDelay:         0,
		ChapterExtractTimeout:  15 * time.Minute,
		HierarchyReviewTimeout: 10 * time.Minute,
	}
}

var globalLLMTimeouts = DefaultLLMTimeouts()

// GetLLMTimeouts returns the global LLM timeout configuration.
func GetLLMTimeouts() LLMTimeouts {
	return globalLLMTimeouts
}

// SetLLMTimeouts updates the global LLM timeout configuration. Call early in
// startup, after the local-vs-cloud mode is known.
func SetLLMTimeouts(t LLMTimeouts) {
	globalLLMTimeouts = t
}
