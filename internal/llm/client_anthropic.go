package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/inkforge/atlasforge/internal/logging"
	"github.com/inkforge/atlasforge/internal/model"
)

// anthropicGateway implements Gateway against the Anthropic Messages API
// (spec §4.2): x-api-key auth, no API-level JSON schema enforcement — the
// Gateway injects the schema into the system prompt instead.
type anthropicGateway struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	limiter    rateLimiter
	window     windowCache
}

func newAnthropicGateway(cfg ClientConfig) *anthropicGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = timeoutsOrDefault().HTTPClientTimeout
	}
	return &anthropicGateway{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (g *anthropicGateway) Provider() string { return "anthropic" }

func (g *anthropicGateway) SetModel(m string) {
	g.model = m
	g.window.invalidate()
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// injectSchema appends a JSON-schema instruction to the system prompt, since
// Anthropic has no API-level response_format (spec §4.2: "the Gateway is the
// single place where the JSON schema is injected into the system prompt for
// cloud providers").
func injectSchema(system string, schemaName string, schema map[string]any) string {
	if schema == nil {
		return system
	}
	encoded, err := json.Marshal(schema)
	if err != nil {
		return system
	}
	var b strings.Builder
	b.WriteString(system)
	if system != "" {
		b.WriteString("\n\n")
	}
	b.WriteString(fmt.Sprintf("Respond with JSON matching this schema (%s), and nothing else:\n%s", schemaName, string(encoded)))
	return b.String()
}

func (g *anthropicGateway) Call(ctx context.Context, opts CallOptions) (*CallResult, error) {
	timeouts := timeoutsOrDefault()
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeouts.PerCallTimeout)
		defer cancel()
	}

	if g.apiKey == "" {
		return nil, model.NewFailure(model.FailureUnknown, opts.NovelID, opts.Chapter, fmt.Errorf("API key not configured"))
	}

	var system string
	messages := make([]anthropicMessage, 0, len(opts.Messages))
	for _, m := range opts.Messages {
		if m.Role == RoleSystem {
			system = m.Content
			continue
		}
		messages = append(messages, anthropicMessage{Role: string(m.Role), Content: m.Content})
	}
	if opts.ResponseFormat == ResponseFormatJSONSchema {
		system = injectSchema(system, opts.SchemaName, opts.Schema)
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	reqBody := anthropicRequest{
		Model:       g.model,
		MaxTokens:   maxTokens,
		System:      system,
		Messages:    messages,
		Temperature: 0.1,
	}

	startTime := time.Now()
	var lastFailure *model.Failure

	for attempt := 0; attempt <= timeouts.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := timeouts.RetryBackoffBase * time.Duration(1<<uint(attempt-1))
			if backoff > timeouts.RetryBackoffMax {
				backoff = timeouts.RetryBackoffMax
			}
			time.Sleep(backoff)
		}

		g.limiter.wait(timeouts.RateLimitDelay)

		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, model.NewFailure(model.FailureUnknown, opts.NovelID, opts.Chapter, fmt.Errorf("marshal request: %w", err))
		}

		req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/messages", bytes.NewReader(jsonData))
		if err != nil {
			return nil, model.NewFailure(model.FailureUnknown, opts.NovelID, opts.Chapter, fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", g.apiKey)
		req.Header.Set("anthropic-version", "2023-06-01")

		resp, err := g.httpClient.Do(req)
		if err != nil {
			lastFailure = classifyFailure(opts.NovelID, opts.Chapter, 0, "", err, ctx.Err(), false)
			logging.GatewayWarn("anthropic call attempt %d failed: %v", attempt, err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastFailure = classifyFailure(opts.NovelID, opts.Chapter, 0, "", err, nil, false)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastFailure = classifyFailure(opts.NovelID, opts.Chapter, resp.StatusCode, string(body), nil, nil, false)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			failure := classifyFailure(opts.NovelID, opts.Chapter, resp.StatusCode, string(body), nil, nil, false)
			auditCall(opts, g.Provider(), g.model, Usage{}, time.Since(startTime), failure)
			return nil, failure
		}

		var anthropicResp anthropicResponse
		if err := json.Unmarshal(body, &anthropicResp); err != nil {
			lastFailure = classifyFailure(opts.NovelID, opts.Chapter, 0, "", err, nil, true)
			continue
		}
		if anthropicResp.Error != nil {
			failure := classifyFailure(opts.NovelID, opts.Chapter, 0, anthropicResp.Error.Message, nil, nil, false)
			auditCall(opts, g.Provider(), g.model, Usage{}, time.Since(startTime), failure)
			return nil, failure
		}
		if len(anthropicResp.Content) == 0 {
			lastFailure = classifyFailure(opts.NovelID, opts.Chapter, 0, "", fmt.Errorf("no completion returned"), nil, true)
			continue
		}

		var textBuilder strings.Builder
		for _, block := range anthropicResp.Content {
			if block.Type == "text" {
				textBuilder.WriteString(block.Text)
			}
		}

		usage := Usage{
			PromptTokens:     anthropicResp.Usage.InputTokens,
			CompletionTokens: anthropicResp.Usage.OutputTokens,
			TotalTokens:      anthropicResp.Usage.InputTokens + anthropicResp.Usage.OutputTokens,
		}
		result := &CallResult{
			Content: strings.TrimSpace(textBuilder.String()),
			Usage:   usage,
		}
		auditCall(opts, g.Provider(), g.model, usage, time.Since(startTime), nil)
		return result, nil
	}

	auditCall(opts, g.Provider(), g.model, Usage{}, time.Since(startTime), lastFailure)
	return nil, lastFailure
}

// DetectContextWindow always returns 0: Anthropic exposes no model
// introspection endpoint, so the caller falls through to the Budget
// Planner's anthropic-family default (spec §4.1).
func (g *anthropicGateway) DetectContextWindow(ctx context.Context) int {
	return 0
}
