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

// openAIGateway implements Gateway against an OpenAI-compatible
// /chat/completions endpoint (spec §4.2): Bearer auth, response_format for
// schema-constrained output. Any self-hosted server speaking the OpenAI
// protocol (local or cloud) uses this variant.
type openAIGateway struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	limiter    rateLimiter
	window     windowCache
}

func newOpenAIGateway(cfg ClientConfig) *openAIGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = timeoutsOrDefault().HTTPClientTimeout
	}
	return &openAIGateway{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (g *openAIGateway) Provider() string { return "openai" }

func (g *openAIGateway) SetModel(m string) {
	g.model = m
	g.window.invalidate()
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIJSONSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type openAIResponseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *openAIJSONSchema `json:"json_schema,omitempty"`
}

type openAIChatRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIChatMessage   `json:"messages"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	Temperature    float64               `json:"temperature,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (g *openAIGateway) Call(ctx context.Context, opts CallOptions) (*CallResult, error) {
	timeouts := timeoutsOrDefault()
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeouts.PerCallTimeout)
		defer cancel()
	}

	if g.apiKey == "" {
		return nil, model.NewFailure(model.FailureUnknown, opts.NovelID, opts.Chapter, fmt.Errorf("API key not configured"))
	}

	messages := make([]openAIChatMessage, 0, len(opts.Messages))
	for _, m := range opts.Messages {
		messages = append(messages, openAIChatMessage{Role: string(m.Role), Content: m.Content})
	}

	reqBody := openAIChatRequest{
		Model:       g.model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: 0.1,
	}
	if opts.ResponseFormat == ResponseFormatJSONSchema && opts.Schema != nil {
		reqBody.ResponseFormat = &openAIResponseFormat{
			Type: "json_schema",
			JSONSchema: &openAIJSONSchema{
				Name:   opts.SchemaName,
				Strict: true,
				Schema: opts.Schema,
			},
		}
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

		req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/chat/completions", bytes.NewReader(jsonData))
		if err != nil {
			return nil, model.NewFailure(model.FailureUnknown, opts.NovelID, opts.Chapter, fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+g.apiKey)

		resp, err := g.httpClient.Do(req)
		if err != nil {
			lastFailure = classifyFailure(opts.NovelID, opts.Chapter, 0, "", err, ctx.Err(), false)
			logging.GatewayWarn("openai call attempt %d failed: %v", attempt, err)
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

		var chatResp openAIChatResponse
		if err := json.Unmarshal(body, &chatResp); err != nil {
			lastFailure = classifyFailure(opts.NovelID, opts.Chapter, 0, "", err, nil, true)
			continue
		}
		if chatResp.Error != nil {
			failure := classifyFailure(opts.NovelID, opts.Chapter, 0, chatResp.Error.Message, nil, nil, false)
			auditCall(opts, g.Provider(), g.model, Usage{}, time.Since(startTime), failure)
			return nil, failure
		}
		if len(chatResp.Choices) == 0 {
			lastFailure = classifyFailure(opts.NovelID, opts.Chapter, 0, "", fmt.Errorf("no completion returned"), nil, true)
			continue
		}

		usage := Usage{
			PromptTokens:     chatResp.Usage.PromptTokens,
			CompletionTokens: chatResp.Usage.CompletionTokens,
			TotalTokens:      chatResp.Usage.TotalTokens,
		}
		result := &CallResult{
			Content: strings.TrimSpace(chatResp.Choices[0].Message.Content),
			Usage:   usage,
		}
		auditCall(opts, g.Provider(), g.model, usage, time.Since(startTime), nil)
		return result, nil
	}

	auditCall(opts, g.Provider(), g.model, Usage{}, time.Since(startTime), lastFailure)
	return nil, lastFailure
}

type openAIModelInfo struct {
	ContextLength int `json:"context_length"`
}

// DetectContextWindow queries the provider's model-introspection endpoint;
// falls back to 8192 on any failure (spec §4.2).
func (g *openAIGateway) DetectContextWindow(ctx context.Context) int {
	if w := g.window.get(); w > 0 {
		return w
	}

	req, err := http.NewRequestWithContext(ctx, "GET", g.baseURL+"/models/"+g.model, nil)
	if err != nil {
		g.window.set(8192)
		return 8192
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		logging.GatewayWarn("openai context window detection failed: %v", err)
		g.window.set(8192)
		return 8192
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		g.window.set(8192)
		return 8192
	}

	var info openAIModelInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil || info.ContextLength <= 0 {
		g.window.set(8192)
		return 8192
	}

	g.window.set(info.ContextLength)
	return info.ContextLength
}
