// Package mock provides a mock AI provider for testing
package mock

import (
	"context"
	"errors"
	"fmt"

	"github.com/brightloom/orchestra/core"
	"github.com/brightloom/orchestra/providers"
)

func init() {
	// Registered unconditionally; DetectEnvironment never reports the mock
	// as available, so it is not auto-detected in production
	if err := providers.Register(&Factory{}); err != nil {
		// Panic in init() is acceptable for registration errors (caught in tests/development)
		panic(fmt.Sprintf("failed to register mock AI provider: %v", err))
	}
}

// Factory creates mock AI clients for testing
type Factory struct{}

// Name returns the provider name
func (f *Factory) Name() string {
	return "mock"
}

// Description returns provider description
func (f *Factory) Description() string {
	return "Mock provider for testing"
}

// Priority returns provider priority
func (f *Factory) Priority() int {
	return 1 // Very low priority
}

// Create creates a new mock client
func (f *Factory) Create(config *providers.AIConfig) core.AIClient {
	return NewClient(config)
}

// DetectEnvironment checks if mock is enabled
func (f *Factory) DetectEnvironment() (priority int, available bool) {
	// Mock is never auto-detected
	return 0, false
}

// Client implements core.AIClient for testing
type Client struct {
	Config         *providers.AIConfig
	Responses      []string
	ResponseIndex  int
	Error          error
	CallCount      int
	LastModel      string
	LastMessages   []core.Message
	LastSystem     string
	LastMaxTokens  int
	LastTemperature float32
}

// NewClient creates a new mock client
func NewClient(config *providers.AIConfig) *Client {
	return &Client{
		Config:    config,
		Responses: []string{"Mock response"},
	}
}

// Invoke returns the next configured mock response, recording the call
// arguments so tests can assert on them.
func (c *Client) Invoke(ctx context.Context, model string, messages []core.Message, system string, maxTokens int, temperature float32) (*core.InvocationResult, error) {
	c.CallCount++
	c.LastModel = model
	c.LastMessages = messages
	c.LastSystem = system
	c.LastMaxTokens = maxTokens
	c.LastTemperature = temperature

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if c.Error != nil {
		return nil, c.Error
	}

	if c.ResponseIndex >= len(c.Responses) {
		return nil, errors.New("no more mock responses")
	}

	response := c.Responses[c.ResponseIndex]
	c.ResponseIndex++

	if model == "" {
		model = "mock-model"
		if c.Config != nil && c.Config.Model != "" {
			model = c.Config.Model
		}
	}

	promptLen := len(system)
	for _, m := range messages {
		promptLen += len(m.Content)
	}

	return &core.InvocationResult{
		Content:      response,
		Model:        model,
		InputTokens:  promptLen / 4,
		OutputTokens: len(response) / 4,
		StopReason:   "stop",
	}, nil
}

// SetResponses sets the responses to return
func (c *Client) SetResponses(responses ...string) {
	c.Responses = responses
	c.ResponseIndex = 0
}

// SetError sets an error to return
func (c *Client) SetError(err error) {
	c.Error = err
}

// Reset resets the mock client
func (c *Client) Reset() {
	c.ResponseIndex = 0
	c.CallCount = 0
	c.LastModel = ""
	c.LastMessages = nil
	c.LastSystem = ""
	c.Error = nil
}
