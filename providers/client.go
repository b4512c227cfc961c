package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/brightloom/orchestra/core"
)

// OpenAIClient implements core.AIClient for OpenAI's chat completions API.
// It is the minimal, dependency-free adapter; providers/openai carries the
// fuller reasoning-model-aware client used when that package is imported.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     core.Logger
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(apiKey string, logger core.Logger) *OpenAIClient {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: "https://api.openai.com/v1",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Invoke sends a chat completion request and returns the assistant's reply
// along with the token usage OpenAI reports for it.
func (c *OpenAIClient) Invoke(ctx context.Context, model string, messages []core.Message, system string, maxTokens int, temperature float32) (*core.InvocationResult, error) {
	if c.apiKey == "" {
		return nil, core.NewFrameworkError("OpenAIClient.Invoke", core.ErrorKindAuth, model, "OpenAI API key not configured", core.ErrAuthFailed)
	}

	wireMessages := make([]map[string]string, 0, len(messages)+1)
	if system != "" {
		wireMessages = append(wireMessages, map[string]string{"role": "system", "content": system})
	}
	for _, m := range messages {
		wireMessages = append(wireMessages, map[string]string{"role": m.Role, "content": m.Content})
	}

	reqBody := map[string]interface{}{
		"model":       model,
		"messages":    wireMessages,
		"temperature": temperature,
		"max_tokens":  maxTokens,
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
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		kind := core.ClassifyHTTPStatus(resp.StatusCode)
		return nil, core.NewFrameworkError("OpenAIClient.Invoke", kind, model,
			fmt.Sprintf("openai API error (status %d): %s", resp.StatusCode, string(body)),
			core.SentinelForKind(kind))
	}

	var openAIResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
		Model string `json:"model"`
	}

	if err := json.Unmarshal(body, &openAIResp); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrParseResponse, err)
	}

	if len(openAIResp.Choices) == 0 {
		return nil, core.NewFrameworkError("OpenAIClient.Invoke", core.ErrorKindServerError, model, "no choices in openai response", core.ErrServerError)
	}

	return &core.InvocationResult{
		Content:      openAIResp.Choices[0].Message.Content,
		Model:        openAIResp.Model,
		InputTokens:  openAIResp.Usage.PromptTokens,
		OutputTokens: openAIResp.Usage.CompletionTokens,
		StopReason:   openAIResp.Choices[0].FinishReason,
	}, nil
}
