package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/brightloom/orchestra/core"
)

// mockLogger implements core.Logger for testing
type mockLogger struct {
	logs []string
}

func (m *mockLogger) Debug(msg string, fields map[string]interface{}) {
	m.logs = append(m.logs, "DEBUG: "+msg)
}

func (m *mockLogger) Info(msg string, fields map[string]interface{}) {
	m.logs = append(m.logs, "INFO: "+msg)
}

func (m *mockLogger) Warn(msg string, fields map[string]interface{}) {
	m.logs = append(m.logs, "WARN: "+msg)
}

func (m *mockLogger) Error(msg string, fields map[string]interface{}) {
	m.logs = append(m.logs, "ERROR: "+msg)
}

func (m *mockLogger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	m.logs = append(m.logs, "DEBUG: "+msg)
}

func (m *mockLogger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	m.logs = append(m.logs, "INFO: "+msg)
}

func (m *mockLogger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	m.logs = append(m.logs, "WARN: "+msg)
}

func (m *mockLogger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	m.logs = append(m.logs, "ERROR: "+msg)
}

func TestNewClient(t *testing.T) {
	logger := &mockLogger{}

	tests := []struct {
		name        string
		apiKey      string
		baseURL     string
		wantAPIKey  string
		wantBaseURL string
	}{
		{
			name:        "with custom base URL",
			apiKey:      "test-key",
			baseURL:     "https://custom.api.com/v1",
			wantAPIKey:  "test-key",
			wantBaseURL: "https://custom.api.com/v1",
		},
		{
			name:        "with default base URL",
			apiKey:      "test-key",
			baseURL:     "",
			wantAPIKey:  "test-key",
			wantBaseURL: "https://api.openai.com/v1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(tt.apiKey, tt.baseURL, "", logger)

			if client.apiKey != tt.wantAPIKey {
				t.Errorf("apiKey = %q, want %q", client.apiKey, tt.wantAPIKey)
			}
			if client.baseURL != tt.wantBaseURL {
				t.Errorf("baseURL = %q, want %q", client.baseURL, tt.wantBaseURL)
			}
			// DefaultModel is "default" alias; resolved at request-time
			if client.DefaultModel != "default" {
				t.Errorf("DefaultModel = %q, want \"default\" (alias)", client.DefaultModel)
			}
		})
	}
}

func TestClient_getProviderName(t *testing.T) {
	tests := []struct {
		name          string
		providerAlias string
		want          string
	}{
		{"empty alias returns openai", "", "openai"},
		{"openai alias", "openai", "openai"},
		{"groq alias", "openai.groq", "openai.groq"},
		{"deepseek alias", "openai.deepseek", "openai.deepseek"},
		{"custom alias", "openai.custom", "openai.custom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient("test-key", "", tt.providerAlias, nil)
			got := client.getProviderName()
			if got != tt.want {
				t.Errorf("getProviderName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClient_Invoke(t *testing.T) {
	tests := []struct {
		name           string
		apiKey         string
		messages       []core.Message
		system         string
		model          string
		maxTokens      int
		temperature    float32
		serverResponse string
		serverStatus   int
		wantError      bool
		wantContent    string
		validateReq    func(*testing.T, map[string]interface{})
	}{
		{
			name:        "successful response",
			apiKey:      "test-key",
			messages:    []core.Message{{Role: "user", Content: "Hello, AI!"}},
			model:       "gpt-3.5-turbo",
			temperature: 0.7,
			maxTokens:   100,
			serverResponse: `{
				"id": "chatcmpl-123",
				"object": "chat.completion",
				"created": 1677652288,
				"model": "gpt-3.5-turbo",
				"choices": [{
					"index": 0,
					"message": {
						"role": "assistant",
						"content": "Hello! How can I help you today?"
					},
					"finish_reason": "stop"
				}],
				"usage": {
					"prompt_tokens": 10,
					"completion_tokens": 8,
					"total_tokens": 18
				}
			}`,
			serverStatus: http.StatusOK,
			wantError:    false,
			wantContent:  "Hello! How can I help you today?",
			validateReq: func(t *testing.T, req map[string]interface{}) {
				if req["model"] != "gpt-3.5-turbo" {
					t.Errorf("request model = %v, want gpt-3.5-turbo", req["model"])
				}
				if req["temperature"] != 0.7 {
					t.Errorf("request temperature = %v, want 0.7", req["temperature"])
				}
				if req["max_tokens"] != float64(100) {
					t.Errorf("request max_tokens = %v, want 100", req["max_tokens"])
				}
			},
		},
		{
			name:        "with system prompt",
			apiKey:      "test-key",
			messages:    []core.Message{{Role: "user", Content: "What is 2+2?"}},
			system:      "You are a helpful math tutor.",
			model:       "gpt-3.5-turbo",
			temperature: 0.5,
			maxTokens:   50,
			serverResponse: `{
				"choices": [{
					"message": {
						"content": "2+2 equals 4."
					}
				}]
			}`,
			serverStatus: http.StatusOK,
			wantError:    false,
			wantContent:  "2+2 equals 4.",
			validateReq: func(t *testing.T, req map[string]interface{}) {
				messages := req["messages"].([]interface{})
				if len(messages) != 2 {
					t.Fatalf("expected 2 messages, got %d", len(messages))
				}

				systemMsg := messages[0].(map[string]interface{})
				if systemMsg["role"] != "system" {
					t.Errorf("first message role = %v, want system", systemMsg["role"])
				}
				if systemMsg["content"] != "You are a helpful math tutor." {
					t.Errorf("system content = %v, want 'You are a helpful math tutor.'", systemMsg["content"])
				}

				userMsg := messages[1].(map[string]interface{})
				if userMsg["role"] != "user" {
					t.Errorf("second message role = %v, want user", userMsg["role"])
				}
				if userMsg["content"] != "What is 2+2?" {
					t.Errorf("user content = %v, want 'What is 2+2?'", userMsg["content"])
				}
			},
		},
		{
			name:      "missing API key",
			apiKey:    "",
			messages:  []core.Message{{Role: "user", Content: "Hello"}},
			model:     "gpt-3.5-turbo",
			wantError: true,
		},
		{
			name:     "API error response",
			apiKey:   "test-key",
			messages: []core.Message{{Role: "user", Content: "Hello"}},
			model:    "gpt-3.5-turbo",
			serverResponse: `{
				"error": {
					"message": "Invalid API key",
					"type": "invalid_request_error",
					"code": "invalid_api_key"
				}
			}`,
			serverStatus: http.StatusUnauthorized,
			wantError:    true,
		},
		{
			name:           "malformed response",
			apiKey:         "test-key",
			messages:       []core.Message{{Role: "user", Content: "Hello"}},
			model:          "gpt-3.5-turbo",
			serverResponse: `{invalid json}`,
			serverStatus:   http.StatusOK,
			wantError:      true,
		},
		{
			name:           "empty choices array",
			apiKey:         "test-key",
			messages:       []core.Message{{Role: "user", Content: "Hello"}},
			model:          "gpt-3.5-turbo",
			serverResponse: `{"choices": []}`,
			serverStatus:   http.StatusOK,
			wantError:      true,
		},
		{
			name:     "with usage information",
			apiKey:   "test-key",
			messages: []core.Message{{Role: "user", Content: "Hello"}},
			model:    "gpt-3.5-turbo",
			serverResponse: `{
				"model": "gpt-3.5-turbo",
				"choices": [{
					"message": {"content": "Hi there!"},
					"finish_reason": "stop"
				}],
				"usage": {
					"prompt_tokens": 5,
					"completion_tokens": 3,
					"total_tokens": 8
				}
			}`,
			serverStatus: http.StatusOK,
			wantError:    false,
			wantContent:  "Hi there!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var capturedRequest map[string]interface{}
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if auth := r.Header.Get("Authorization"); auth != "Bearer "+tt.apiKey && tt.apiKey != "" {
					t.Errorf("Authorization header = %q, want %q", auth, "Bearer "+tt.apiKey)
				}
				if ct := r.Header.Get("Content-Type"); ct != "application/json" {
					t.Errorf("Content-Type header = %q, want application/json", ct)
				}

				if r.Body != nil {
					body, _ := io.ReadAll(r.Body)
					json.Unmarshal(body, &capturedRequest)
				}

				w.WriteHeader(tt.serverStatus)
				w.Write([]byte(tt.serverResponse))
			}))
			defer server.Close()

			logger := &mockLogger{}
			client := NewClient(tt.apiKey, server.URL, "", logger)

			ctx := context.Background()
			resp, err := client.Invoke(ctx, tt.model, tt.messages, tt.system, tt.maxTokens, tt.temperature)

			if (err != nil) != tt.wantError {
				t.Errorf("Invoke() error = %v, wantError %v", err, tt.wantError)
			}

			if !tt.wantError && resp != nil {
				if resp.Content != tt.wantContent {
					t.Errorf("response content = %q, want %q", resp.Content, tt.wantContent)
				}
			}

			if tt.validateReq != nil && capturedRequest != nil {
				tt.validateReq(t, capturedRequest)
			}
		})
	}
}

func TestClient_InvokeWithDefaults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req map[string]interface{}
		json.Unmarshal(body, &req)

		if req["model"] != "gpt-3.5-turbo" {
			t.Errorf("model = %v, want gpt-3.5-turbo (default)", req["model"])
		}
		if req["max_tokens"] != float64(1000) {
			t.Errorf("max_tokens = %v, want 1000 (default)", req["max_tokens"])
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"choices": [{"message": {"content": "response"}}]}`))
	}))
	defer server.Close()

	logger := &mockLogger{}
	client := NewClient("test-key", server.URL, "", logger)
	client.DefaultModel = "gpt-3.5-turbo"
	client.DefaultMaxTokens = 1000

	_, err := client.Invoke(context.Background(), "", nil, "", 0, 0)
	if err != nil {
		t.Errorf("Invoke() with defaults failed: %v", err)
	}
}

func TestClient_InvokeContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"choices": [{"message": {"content": "too late"}}]}`))
	}))
	defer server.Close()

	logger := &mockLogger{}
	client := NewClient("test-key", server.URL, "", logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Invoke(ctx, "gpt-3.5-turbo", []core.Message{{Role: "user", Content: "test"}}, "", 0, 0)
	if err == nil {
		t.Error("expected error from cancelled context")
	}
	if !strings.Contains(err.Error(), "context canceled") {
		t.Errorf("expected context canceled error, got: %v", err)
	}
}

func TestTruncateForLog(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"shorter than max", "hello", 10, "hello"},
		{"equal to max", "hello", 5, "hello"},
		{"longer than max", "hello world", 5, "hello..."},
		{"empty string", "", 5, ""},
		{"max is zero", "hello", 0, "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateForLog(tt.input, tt.maxLen)
			if got != tt.want {
				t.Errorf("truncateForLog(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestClient_InvokeReasoningContent(t *testing.T) {
	// Content is extracted from reasoning_content when content is empty,
	// as returned by reasoning models like GPT-5, o1, o3, o4.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"model": "gpt-5-mini",
			"choices": [{
				"message": {
					"role": "assistant",
					"content": "",
					"reasoning_content": "This is the reasoning response from GPT-5"
				},
				"finish_reason": "stop"
			}],
			"usage": {
				"prompt_tokens": 10,
				"completion_tokens": 50,
				"total_tokens": 60
			}
		}`))
	}))
	defer server.Close()

	logger := &mockLogger{}
	client := NewClient("test-key", server.URL, "", logger)

	resp, err := client.Invoke(context.Background(), "gpt-5-mini", []core.Message{{Role: "user", Content: "test"}}, "", 1000, 0)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	if resp.Content != "This is the reasoning response from GPT-5" {
		t.Errorf("Content = %q, want reasoning_content value", resp.Content)
	}
}

func TestClient_InvokeReasoningModelParams(t *testing.T) {
	var capturedRequest map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &capturedRequest)

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"choices": [{"message": {"content": "reasoning response"}}]}`))
	}))
	defer server.Close()

	logger := &mockLogger{}
	client := NewClient("test-key", server.URL, "", logger)

	_, err := client.Invoke(context.Background(), "o3-mini", []core.Message{{Role: "user", Content: "test"}}, "", 1000, 0.7)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	if _, ok := capturedRequest["max_completion_tokens"]; !ok {
		t.Error("Reasoning model should use max_completion_tokens")
	}
	if _, ok := capturedRequest["max_tokens"]; ok {
		t.Error("Reasoning model should NOT have max_tokens")
	}
	if _, ok := capturedRequest["temperature"]; ok {
		t.Error("Reasoning model should NOT have temperature")
	}
	if capturedRequest["max_completion_tokens"] != float64(5000) {
		t.Errorf("max_completion_tokens = %v, want 5000 (1000 * 5 default multiplier)", capturedRequest["max_completion_tokens"])
	}
}

func TestClient_InvokeCustomReasoningMultiplier(t *testing.T) {
	var capturedRequest map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &capturedRequest)

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"choices": [{"message": {"content": "response"}}]}`))
	}))
	defer server.Close()

	logger := &mockLogger{}
	client := NewClient("test-key", server.URL, "", logger)
	client.ReasoningTokenMultiplier = 3

	_, err := client.Invoke(context.Background(), "gpt-5-mini", []core.Message{{Role: "user", Content: "test"}}, "", 1000, 0)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	if capturedRequest["max_completion_tokens"] != float64(3000) {
		t.Errorf("max_completion_tokens = %v, want 3000 (1000 * 3 custom multiplier)", capturedRequest["max_completion_tokens"])
	}
}

func TestClient_ResponseParsing(t *testing.T) {
	tests := []struct {
		name        string
		response    string
		wantError   bool
		wantContent string
		wantModel   string
		wantTokens  int
	}{
		{
			name: "complete response with all fields",
			response: `{
				"id": "chatcmpl-123",
				"model": "gpt-4",
				"choices": [{
					"message": {"content": "Complete response"},
					"finish_reason": "stop"
				}],
				"usage": {
					"prompt_tokens": 10,
					"completion_tokens": 5,
					"total_tokens": 15
				}
			}`,
			wantContent: "Complete response",
			wantModel:   "gpt-4",
			wantTokens:  15,
		},
		{
			name: "minimal valid response",
			response: `{
				"choices": [{
					"message": {"content": "Minimal"}
				}]
			}`,
			wantContent: "Minimal",
			wantModel:   "",
			wantTokens:  0,
		},
		{
			name: "error response from API",
			response: `{
				"error": {
					"message": "Invalid request",
					"type": "invalid_request_error"
				}
			}`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if strings.Contains(tt.response, "error") {
					w.WriteHeader(http.StatusBadRequest)
				} else {
					w.WriteHeader(http.StatusOK)
				}
				w.Write([]byte(tt.response))
			}))
			defer server.Close()

			logger := &mockLogger{}
			client := NewClient("test-key", server.URL, "", logger)

			resp, err := client.Invoke(context.Background(), "gpt-3.5-turbo", []core.Message{{Role: "user", Content: "test"}}, "", 0, 0)

			if (err != nil) != tt.wantError {
				t.Errorf("error = %v, wantError %v", err, tt.wantError)
			}

			if !tt.wantError && resp != nil {
				if resp.Content != tt.wantContent {
					t.Errorf("content = %q, want %q", resp.Content, tt.wantContent)
				}
				if resp.Model != tt.wantModel {
					t.Errorf("model = %q, want %q", resp.Model, tt.wantModel)
				}
				totalTokens := resp.InputTokens + resp.OutputTokens
				if totalTokens != tt.wantTokens {
					t.Errorf("tokens = %d, want %d", totalTokens, tt.wantTokens)
				}
			}
		})
	}
}
