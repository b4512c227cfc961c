package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brightloom/orchestra/core"
	"github.com/brightloom/orchestra/providers"
)

const (
	// DefaultBaseURL is the default Anthropic API endpoint
	DefaultBaseURL = "https://api.anthropic.com/v1"
	// APIVersion is the required Anthropic API version header
	APIVersion = "2023-06-01"
)

// Client implements core.AIClient for Anthropic's native Messages API.
type Client struct {
	*providers.BaseClient
	apiKey  string
	baseURL string
}

// NewClient creates a new Anthropic client with configuration
func NewClient(apiKey, baseURL string, logger core.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	base := providers.NewBaseClient(30*time.Second, logger)
	base.DefaultMaxTokens = 1000

	return &Client{
		BaseClient: base,
		apiKey:     apiKey,
		baseURL:    baseURL,
	}
}

// Invoke sends a Messages API request and returns the assistant's text plus
// the input/output token counts Anthropic reports for it.
func (c *Client) Invoke(ctx context.Context, model string, messages []core.Message, system string, maxTokens int, temperature float32) (*core.InvocationResult, error) {
	if c.apiKey == "" {
		c.Logger.Error("anthropic request failed - API key not configured", map[string]interface{}{
			"provider": "anthropic",
		})
		return nil, core.NewFrameworkError("anthropic.Invoke", core.ErrorKindAuth, model, "anthropic API key not configured", core.ErrAuthFailed)
	}

	if maxTokens == 0 {
		maxTokens = c.DefaultMaxTokens
	}

	c.LogRequest("anthropic", model, fmt.Sprintf("%d messages", len(messages)))
	startTime := time.Now()

	wireMessages := make([]Message, len(messages))
	for i, m := range messages {
		wireMessages[i] = Message{Role: m.Role, Content: m.Content}
	}

	reqBody := AnthropicRequest{
		Model:       model,
		Messages:    wireMessages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		System:      system,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", APIVersion)

	resp, err := c.ExecuteWithRetry(ctx, req)
	if err != nil {
		c.LogError("anthropic", err)
		return nil, fmt.Errorf("%w: %v", core.ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := c.HandleError(resp.StatusCode, body, "anthropic")
		c.LogError("anthropic", apiErr)
		return nil, apiErr
	}

	var anthropicResp AnthropicResponse
	if err := json.Unmarshal(body, &anthropicResp); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrParseResponse, err)
	}

	var content string
	for _, item := range anthropicResp.Content {
		if item.Type == "text" {
			content += item.Text
		}
	}

	result := &core.InvocationResult{
		Content:      content,
		Model:        anthropicResp.Model,
		InputTokens:  anthropicResp.Usage.InputTokens,
		OutputTokens: anthropicResp.Usage.OutputTokens,
		StopReason:   anthropicResp.StopReason,
	}

	c.LogResponse("anthropic", result.Model, core.TokenUsage{
		PromptTokens:     result.InputTokens,
		CompletionTokens: result.OutputTokens,
		TotalTokens:      result.InputTokens + result.OutputTokens,
	}, time.Since(startTime))

	return result, nil
}
