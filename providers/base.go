package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/brightloom/orchestra/core"
)

// BaseClient provides common functionality for all AI providers
type BaseClient struct {
	// HTTP client with timeout
	HTTPClient *http.Client

	// Logger for debugging
	Logger core.Logger

	// Retry configuration
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	RetryPolicy   RetryConfig

	// Default configuration
	DefaultModel        string
	DefaultTemperature  float32
	DefaultMaxTokens    int
	DefaultSystemPrompt string
}

// NewBaseClient creates a new base client with defaults
func NewBaseClient(timeout time.Duration, logger core.Logger) *BaseClient {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	return &BaseClient{
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		Logger:             logger,
		MaxRetries:         3,
		RetryDelay:         time.Second,
		MaxRetryDelay:      30 * time.Second,
		RetryPolicy:        DefaultRetryConfig(),
		DefaultTemperature: 0.7,
		DefaultMaxTokens:   1000,
	}
}

// ExecuteWithRetry performs an HTTP request with exponential backoff retry.
// Retryability is decided by RetryPolicy.ShouldRetry (core.ErrorKind
// classification by default, same taxonomy the Resilient Agent classifies
// provider errors into), and the delay between attempts is
// core.BackoffWithJitter — the same formula agent.ResilientAgent uses for
// its fallback-chain retries, so a request retried here and a call retried
// there wait on one shared policy instead of two independently-tuned ones.
func (b *BaseClient) ExecuteWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error
	shouldRetry := b.RetryPolicy.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = DefaultRetryConfig().ShouldRetry
	}

	for attempt := 0; attempt <= b.MaxRetries; attempt++ {
		// Clone request for retry
		reqClone := req.Clone(ctx)

		// Add context
		reqClone = reqClone.WithContext(ctx)

		// Execute request
		resp, err := b.HTTPClient.Do(reqClone)

		// Success - return if no error and status is not retryable
		if err == nil && resp.StatusCode < 400 {
			return resp, nil
		}

		// Return non-retryable errors (4xx other than rate limit) as-is;
		// HandleError classifies them for the caller.
		if !shouldRetry(resp, err) {
			return resp, nil
		}

		// Save error for potential return
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("server error: status %d", resp.StatusCode)
			resp.Body.Close()
		}

		// Check if we should retry
		if attempt < b.MaxRetries {
			delay := core.BackoffWithJitter(attempt, b.RetryDelay, b.MaxRetryDelay, 2.0, nil)

			b.Logger.Debug("Retrying request", map[string]interface{}{
				"attempt":     attempt + 1,
				"max_retries": b.MaxRetries,
				"delay":       delay,
				"error":       lastErr,
			})

			// Wait before retry
			select {
			case <-time.After(delay):
				// Continue to next attempt
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", b.MaxRetries, lastErr)
}

// LogError logs an error with provider context
func (b *BaseClient) LogError(provider string, err error) {
	b.Logger.Error("Provider error", map[string]interface{}{
		"provider": provider,
		"error":    err.Error(),
	})
}

// retryableKind reports whether a classified HTTP failure is worth
// retrying, mirroring agent.retryableKind's table so a status that retries
// in the provider layer also retries when the Resilient Agent itself
// classifies the wrapped error further up the stack.
func retryableKind(kind core.ErrorKind) bool {
	switch kind {
	case core.ErrorKindRateLimit, core.ErrorKindTimeout, core.ErrorKindConnection, core.ErrorKindServerError:
		return true
	default:
		return false
	}
}

// HandleError processes API errors consistently, classifying the response
// into the shared error taxonomy so callers can branch with errors.Is
// instead of matching status codes or messages.
func (b *BaseClient) HandleError(statusCode int, body []byte, provider string) error {
	kind := core.ClassifyHTTPStatus(statusCode)
	sentinel := core.SentinelForKind(kind)

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s API error: invalid or missing API key: %w", provider, sentinel)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s API error: rate limit exceeded: %w", provider, sentinel)
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		return fmt.Errorf("%s API error: invalid request - %s: %w", provider, string(body), sentinel)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return fmt.Errorf("%s API error: service temporarily unavailable (status %d): %w", provider, statusCode, sentinel)
	default:
		if sentinel != nil {
			return fmt.Errorf("%s API error (status %d): %s: %w", provider, statusCode, string(body), sentinel)
		}
		return fmt.Errorf("%s API error (status %d): %s", provider, statusCode, string(body))
	}
}

// LogRequest logs outgoing API requests
func (b *BaseClient) LogRequest(provider, model, prompt string) {
	b.Logger.Debug("AI request", map[string]interface{}{
		"provider":      provider,
		"model":         model,
		"prompt_length": len(prompt),
	})
}

// LogResponse logs API responses
func (b *BaseClient) LogResponse(provider, model string, tokens core.TokenUsage, duration time.Duration) {
	b.Logger.Debug("AI response", map[string]interface{}{
		"provider":          provider,
		"model":             model,
		"prompt_tokens":     tokens.PromptTokens,
		"completion_tokens": tokens.CompletionTokens,
		"total_tokens":      tokens.TotalTokens,
		"duration":          duration,
	})
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxRetries int
	RetryDelay time.Duration
	// Optional: custom retry predicate
	ShouldRetry func(resp *http.Response, err error) bool
}

// DefaultRetryConfig returns sensible retry defaults: network errors always
// retry, and HTTP responses retry when core.ClassifyHTTPStatus puts them in
// a retryable ErrorKind (rate_limit, server_error) — the same taxonomy
// agent.ResilientAgent classifies its own provider errors into, so a 429 or
// 5xx retries identically whether it's caught here or one layer up.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		RetryDelay: time.Second,
		ShouldRetry: func(resp *http.Response, err error) bool {
			if err != nil {
				return true
			}
			if resp == nil {
				return false
			}
			return retryableKind(core.ClassifyHTTPStatus(resp.StatusCode))
		},
	}
}
