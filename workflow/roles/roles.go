// Package roles implements the Specialized Roles Orchestrator: a strict
// four-phase sequential pipeline (Architect -> Developer -> Tester ->
// Reviewer), each phase owning its own model, fallback chain, and quality
// bar, with bounded per-phase self-correction for Developer and Tester.
package roles

import "github.com/brightloom/orchestra/core"

// RoleType names one of the four fixed pipeline phases.
type RoleType string

const (
	RoleArchitect RoleType = "architect"
	RoleDeveloper RoleType = "developer"
	RoleTester    RoleType = "tester"
	RoleReviewer  RoleType = "reviewer"
)

// Definition is one phase's configuration: its system prompt, its model
// selection, and the quality bar its output must clear.
type Definition struct {
	Name            string
	Type            RoleType
	SystemPrompt    string
	PrimaryModel    string
	FallbackModels  []string
	Temperature     float32
	MaxTokens       int
	MinQualityScore int
	// ValidatorName selects which entry of the validation registry checks
	// this phase's artifact. Empty means the phase is not validated
	// (Architect in DefaultRoles). A phase whose MinQualityScore is 0
	// (Reviewer in DefaultRoles) is validated and scored but never
	// self-corrected.
	ValidatorName string
}

// ModelHierarchy is the fixed model-escalation ladder self-correction
// climbs one rung at a time: haiku -> sonnet -> opus -> gpt-4.
var ModelHierarchy = []string{
	"claude-3-haiku-20240307",
	"claude-3-5-sonnet-20241022",
	"claude-3-opus-20240229",
	"gpt-4",
}

// EscalateModel returns the next rung above current in ModelHierarchy, or
// ("", false) if current is already at the top (or not on the ladder at
// all, in which case there is nowhere defined to escalate to).
func EscalateModel(current string) (string, bool) {
	for i, m := range ModelHierarchy {
		if m == current && i+1 < len(ModelHierarchy) {
			return ModelHierarchy[i+1], true
		}
	}
	return "", false
}

// DefaultRoles returns the four standard role definitions, grounded on
// the quality-optimized model selection of the original role catalog:
// Opus-class reasoning for Architect and Reviewer, a cheaper/faster model
// for Developer and Tester where self-correction can recover quality.
func DefaultRoles() [4]Definition {
	return [4]Definition{
		{
			Name:         "Architect",
			Type:         RoleArchitect,
			SystemPrompt: "You are an expert software architect. Analyze the task, design a clear implementation plan, and call out risks and integration points.",
			PrimaryModel: "claude-3-opus-20240229",
			FallbackModels: []string{
				"claude-3-5-sonnet-20241022",
				"gpt-4",
			},
			Temperature: 0.3,
			MaxTokens:   4096,
		},
		{
			Name:            "Developer",
			Type:            RoleDeveloper,
			SystemPrompt:    "You are an expert software engineer. Implement the architect's plan precisely, writing complete, runnable code with explicit error handling.",
			PrimaryModel:    "claude-3-haiku-20240307",
			FallbackModels:  []string{"claude-3-5-sonnet-20241022"},
			Temperature:     0.5,
			MaxTokens:       4096,
			MinQualityScore: 80,
			ValidatorName:   "code",
		},
		{
			Name:            "Tester",
			Type:            RoleTester,
			SystemPrompt:    "You are a meticulous test engineer. Write tests covering the implementation's behavior, edge cases, and failure modes.",
			PrimaryModel:    "claude-3-haiku-20240307",
			FallbackModels:  []string{"claude-3-5-sonnet-20241022"},
			Temperature:     0.4,
			MaxTokens:       4096,
			MinQualityScore: 80,
			ValidatorName:   "tests",
		},
		{
			Name:         "Reviewer",
			Type:         RoleReviewer,
			SystemPrompt: "You are a senior reviewer. Assess the overall implementation and tests for correctness, quality, and completeness, and give a final quality judgment.",
			PrimaryModel: "claude-3-opus-20240229",
			FallbackModels: []string{
				"claude-3-5-sonnet-20241022",
				"gpt-4",
			},
			Temperature:     0.2,
			MaxTokens:       2048,
			ValidatorName:   "review",
		},
	}
}

// ModelClients maps a model id to the provider adapter that serves it.
type ModelClients map[string]core.AIClient
