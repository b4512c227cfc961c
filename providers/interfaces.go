package providers

import (
	"github.com/brightloom/orchestra/core"
)

// AIClient re-exports core.AIClient for convenience within this package.
type AIClient = core.AIClient

// Ensure OpenAIClient implements AIClient
var _ AIClient = (*OpenAIClient)(nil)
