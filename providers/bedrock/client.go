//go:build bedrock
// +build bedrock

package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/brightloom/orchestra/providers"
	"github.com/brightloom/orchestra/core"
)

// Client implements core.AIClient for AWS Bedrock
type Client struct {
	*providers.BaseClient
	bedrockClient *bedrockruntime.Client
	region        string
}

// NewClient creates a new AWS Bedrock client
func NewClient(cfg aws.Config, region string, logger core.Logger) *Client {
	// Create Bedrock Runtime client
	bedrockClient := bedrockruntime.NewFromConfig(cfg)
	
	// Create base client with defaults
	base := providers.NewBaseClient(30*time.Second, logger)
	base.DefaultModel = ModelClaude3Sonnet // Default to Claude Sonnet
	base.DefaultMaxTokens = 1000
	
	return &Client{
		BaseClient:    base,
		bedrockClient: bedrockClient,
		region:        region,
	}
}

// Invoke sends a Converse API request and returns the assistant's text plus
// the input/output token counts Bedrock reports for it.
func (c *Client) Invoke(ctx context.Context, model string, messages []core.Message, system string, maxTokens int, temperature float32) (*core.InvocationResult, error) {
	if model == "" {
		model = c.DefaultModel
	}
	if maxTokens == 0 {
		maxTokens = c.DefaultMaxTokens
	}

	c.LogRequest("bedrock", model, fmt.Sprintf("%d messages", len(messages)))
	startTime := time.Now()

	wireMessages := make([]types.Message, len(messages))
	for i, m := range messages {
		role := types.ConversationRoleUser
		if m.Role == "assistant" {
			role = types.ConversationRoleAssistant
		}
		wireMessages[i] = types.Message{
			Role: role,
			Content: []types.ContentBlock{
				&types.ContentBlockMemberText{Value: m.Content},
			},
		}
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(model),
		Messages: wireMessages,
	}

	if system != "" {
		input.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: system},
		}
	}

	inferenceConfig := &types.InferenceConfiguration{}
	configSet := false

	if maxTokens > 0 {
		inferenceConfig.MaxTokens = aws.Int32(int32(maxTokens))
		configSet = true
	}

	if temperature > 0 {
		inferenceConfig.Temperature = aws.Float32(temperature)
		configSet = true
	}

	if configSet {
		input.InferenceConfig = inferenceConfig
	}

	output, err := c.bedrockClient.Converse(ctx, input)
	if err != nil {
		c.LogError("bedrock", err)
		return nil, fmt.Errorf("%w: bedrock converse error: %v", core.ErrServerError, err)
	}

	if output.Output == nil {
		return nil, core.NewFrameworkError("bedrock.Invoke", core.ErrorKindServerError, model, "no output in bedrock response", core.ErrServerError)
	}

	var content string
	switch v := output.Output.(type) {
	case *types.ConverseOutputMemberMessage:
		for _, block := range v.Value.Content {
			if b, ok := block.(*types.ContentBlockMemberText); ok {
				content += b.Value
			}
		}
	default:
		return nil, core.NewFrameworkError("bedrock.Invoke", core.ErrorKindServerError, model, "unexpected output type from bedrock", core.ErrServerError)
	}

	result := &core.InvocationResult{
		Content:    content,
		Model:      model,
		StopReason: string(output.StopReason),
	}

	if output.Usage != nil {
		result.InputTokens = int(*output.Usage.InputTokens)
		result.OutputTokens = int(*output.Usage.OutputTokens)
	}

	c.LogResponse("bedrock", result.Model, core.TokenUsage{
		PromptTokens:     result.InputTokens,
		CompletionTokens: result.OutputTokens,
		TotalTokens:      result.InputTokens + result.OutputTokens,
	}, time.Since(startTime))

	return result, nil
}

// InvokeModel provides direct access to specific model APIs (for advanced use cases)
// This bypasses the Converse API and uses model-specific formats
func (c *Client) InvokeModel(ctx context.Context, modelID string, body []byte) ([]byte, error) {
	input := &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	}
	
	output, err := c.bedrockClient.InvokeModel(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("bedrock invoke model error: %w", err)
	}
	
	return output.Body, nil
}

// GetEmbeddings generates embeddings using Amazon Titan Embed model
func (c *Client) GetEmbeddings(ctx context.Context, text string) ([]float32, error) {
	// Build request for Titan Embed model
	request := map[string]interface{}{
		"inputText": text,
	}
	
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}
	
	// Invoke Titan Embed model
	responseBody, err := c.InvokeModel(ctx, ModelTitanEmbed, body)
	if err != nil {
		return nil, err
	}
	
	// Parse response
	var response struct {
		Embedding []float32 `json:"embedding"`
	}
	
	if err := json.Unmarshal(responseBody, &response); err != nil {
		return nil, fmt.Errorf("failed to parse embed response: %w", err)
	}
	
	return response.Embedding, nil
}

// CreateAWSConfig creates an AWS configuration for Bedrock
// This can use various authentication methods:
// 1. IAM role (when running on EC2/ECS/Lambda)
// 2. AWS credentials from environment variables
// 3. AWS profile from ~/.aws/credentials
// 4. Explicit credentials passed in
func CreateAWSConfig(ctx context.Context, region string, credentials ...aws.CredentialsProvider) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	
	// Add explicit credentials if provided
	if len(credentials) > 0 && credentials[0] != nil {
		opts = append(opts, config.WithCredentialsProvider(credentials[0]))
	}
	
	// Load the configuration
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	
	return cfg, nil
}