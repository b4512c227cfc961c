package openai

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

// Client implements core.AIClient for OpenAI and OpenAI-compatible services
type Client struct {
	*providers.BaseClient
	apiKey                   string
	baseURL                  string
	providerAlias            string // For request-time alias resolution (e.g., "openai.deepseek")
	ReasoningTokenMultiplier int    // Token multiplier for reasoning models (0 = use default 5x)
}

// NewClient creates a new OpenAI client with configuration
func NewClient(apiKey, baseURL, providerAlias string, logger core.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	base := providers.NewBaseClient(180*time.Second, logger) // 3 minutes default for reasoning models
	// Use the "default" alias; Invoke resolves it through ModelAliases for the provider alias at request time
	base.DefaultModel = "default"

	return &Client{
		BaseClient:    base,
		apiKey:        apiKey,
		baseURL:       baseURL,
		providerAlias: providerAlias,
	}
}

// getProviderName returns the provider name for logging.
// Falls back to "openai" if providerAlias is not set.
func (c *Client) getProviderName() string {
	if c.providerAlias == "" {
		return "openai"
	}
	return c.providerAlias
}

// truncateForLog truncates a string for logging purposes
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// Invoke sends a chat completion request and returns the assistant's text
// plus the input/output token counts the provider reports for it. It
// transparently adjusts request shape for reasoning models (GPT-5, o1, o3,
// o4), which use max_completion_tokens and reject temperature.
func (c *Client) Invoke(ctx context.Context, model string, messages []core.Message, system string, maxTokens int, temperature float32) (*core.InvocationResult, error) {
	if c.apiKey == "" && c.providerAlias != "openai.ollama" {
		c.Logger.Error("openai request failed - API key not configured", map[string]interface{}{
			"provider": c.getProviderName(),
		})
		return nil, core.NewFrameworkError("openai.Invoke", core.ErrorKindAuth, model, "openai API key not configured", core.ErrAuthFailed)
	}

	if model == "" || model == "default" {
		model = c.DefaultModel
	}
	model = ResolveModel(c.providerAlias, model)
	if maxTokens == 0 {
		maxTokens = c.DefaultMaxTokens
	}

	c.LogRequest(c.getProviderName(), model, fmt.Sprintf("%d messages", len(messages)))
	startTime := time.Now()

	wireMessages := make([]map[string]string, 0, len(messages)+1)
	if system != "" {
		wireMessages = append(wireMessages, map[string]string{"role": "system", "content": system})
	}
	for _, m := range messages {
		wireMessages = append(wireMessages, map[string]string{"role": m.Role, "content": m.Content})
	}

	reqBody := buildRequestBody(model, wireMessages, maxTokens, temperature, false, c.ReasoningTokenMultiplier)

	if c.Logger != nil && IsReasoningModel(model) {
		multiplier := c.ReasoningTokenMultiplier
		if multiplier <= 0 {
			multiplier = DefaultReasoningTokenMultiplier
		}
		c.Logger.Debug("using reasoning model parameters", map[string]interface{}{
			"provider":                    c.getProviderName(),
			"model":                       model,
			"using_max_completion_tokens": true,
			"temperature_omitted":         true,
			"token_multiplier":            multiplier,
		})
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.ExecuteWithRetry(ctx, req)
	if err != nil {
		c.LogError(c.getProviderName(), err)
		return nil, fmt.Errorf("%w: %v", core.ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := c.HandleError(resp.StatusCode, body, c.getProviderName())
		c.LogError(c.getProviderName(), apiErr)
		return nil, apiErr
	}

	var openAIResp OpenAIResponse
	if err := json.Unmarshal(body, &openAIResp); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrParseResponse, err)
	}

	if len(openAIResp.Choices) == 0 {
		return nil, core.NewFrameworkError("openai.Invoke", core.ErrorKindServerError, model, "no choices in response", core.ErrServerError)
	}

	choice := openAIResp.Choices[0]
	// Extract content - for reasoning models, content may be in ReasoningContent
	content := choice.Message.Content
	if content == "" && choice.Message.ReasoningContent != "" {
		content = choice.Message.ReasoningContent
	}

	if c.Logger != nil && IsReasoningModel(model) {
		c.Logger.Debug("parsed reasoning model message", map[string]interface{}{
			"provider":        c.getProviderName(),
			"model":           model,
			"content_preview": truncateForLog(content, 200),
		})
	}

	result := &core.InvocationResult{
		Content:      content,
		Model:        openAIResp.Model,
		InputTokens:  openAIResp.Usage.PromptTokens,
		OutputTokens: openAIResp.Usage.CompletionTokens,
		StopReason:   choice.FinishReason,
	}

	c.LogResponse(c.getProviderName(), result.Model, core.TokenUsage{
		PromptTokens:     result.InputTokens,
		CompletionTokens: result.OutputTokens,
		TotalTokens:      openAIResp.Usage.TotalTokens,
	}, time.Since(startTime))

	return result, nil
}
