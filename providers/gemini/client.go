package gemini

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
	// DefaultBaseURL is the default Gemini API endpoint
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// Client implements core.AIClient for Google Gemini
type Client struct {
	*providers.BaseClient
	apiKey  string
	baseURL string
}

// NewClient creates a new Gemini client with configuration
func NewClient(apiKey, baseURL string, logger core.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	base := providers.NewBaseClient(30*time.Second, logger)
	base.DefaultModel = "gemini-1.5-flash"
	base.DefaultMaxTokens = 1000

	return &Client{
		BaseClient: base,
		apiKey:     apiKey,
		baseURL:    baseURL,
	}
}

// Invoke sends a GenerateContent request and returns the assistant's text
// plus the input/output token counts Gemini reports for it.
func (c *Client) Invoke(ctx context.Context, model string, messages []core.Message, system string, maxTokens int, temperature float32) (*core.InvocationResult, error) {
	if c.apiKey == "" {
		c.Logger.Error("gemini request failed - API key not configured", map[string]interface{}{
			"provider": "gemini",
		})
		return nil, core.NewFrameworkError("gemini.Invoke", core.ErrorKindAuth, model, "gemini API key not configured", core.ErrAuthFailed)
	}

	if model == "" {
		model = c.DefaultModel
	}
	if maxTokens == 0 {
		maxTokens = c.DefaultMaxTokens
	}

	c.LogRequest("gemini", model, fmt.Sprintf("%d messages", len(messages)))
	startTime := time.Now()

	contents := make([]Content, len(messages))
	for i, m := range messages {
		role := m.Role
		if role == "assistant" {
			role = "model"
		}
		contents[i] = Content{Role: role, Parts: []Part{{Text: m.Content}}}
	}

	reqBody := GeminiRequest{
		Contents: contents,
		GenerationConfig: &GenerationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxTokens,
		},
	}

	if system != "" {
		reqBody.SystemInstruction = &SystemInstruction{Parts: []Part{{Text: system}}}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.ExecuteWithRetry(ctx, req)
	if err != nil {
		c.LogError("gemini", err)
		return nil, fmt.Errorf("%w: %v", core.ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := c.HandleError(resp.StatusCode, body, "gemini")
		c.LogError("gemini", apiErr)
		return nil, apiErr
	}

	var geminiResp GeminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrParseResponse, err)
	}

	if len(geminiResp.Candidates) == 0 {
		return nil, core.NewFrameworkError("gemini.Invoke", core.ErrorKindServerError, model, "no candidates in gemini response", core.ErrServerError)
	}

	var content string
	candidate := geminiResp.Candidates[0]
	for _, part := range candidate.Content.Parts {
		content += part.Text
	}

	result := &core.InvocationResult{
		Content:      content,
		Model:        model,
		InputTokens:  geminiResp.UsageMetadata.PromptTokenCount,
		OutputTokens: geminiResp.UsageMetadata.CandidatesTokenCount,
		StopReason:   candidate.FinishReason,
	}

	c.LogResponse("gemini", result.Model, core.TokenUsage{
		PromptTokens:     result.InputTokens,
		CompletionTokens: result.OutputTokens,
		TotalTokens:      result.InputTokens + result.OutputTokens,
	}, time.Since(startTime))

	return result, nil
}
