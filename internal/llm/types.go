// Package llm implements the Budget Planner (spec §4.1) and LLM Gateway
// (spec §4.2): the single place requests reach an OpenAI-style or
// Anthropic-style provider, with context-window detection, JSON-schema
// injection, and the typed failure taxonomy shared across the pipeline.
package llm

// Role is a chat message role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a Gateway call's prompt.
type Message struct {
	Role    Role
	Content string
}

// ResponseFormat selects whether the Gateway asks the provider for free text
// or schema-constrained JSON (spec §4.2).
type ResponseFormat string

const (
	ResponseFormatText       ResponseFormat = "text"
	ResponseFormatJSONSchema ResponseFormat = "json_schema"
)

// CallOptions is the Gateway's call contract.
type CallOptions struct {
	Messages []Message
	MaxTokens int

	ResponseFormat ResponseFormat
	// SchemaName and Schema are only used when ResponseFormat is
	// ResponseFormatJSONSchema. The Gateway injects Schema into the system
	// prompt for providers (like Anthropic) with no API-level schema
	// enforcement, and into the request body for providers that support it.
	SchemaName string
	Schema     map[string]any

	// NovelID/Chapter tag the call for audit logging; Chapter is 0 for
	// novel-scoped (non-chapter) calls.
	NovelID string
	Chapter int
}

// Usage reports provider-billed token counts, when the provider returns them.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CallResult is a successful Gateway call's output.
type CallResult struct {
	Content string
	Usage   Usage
}
