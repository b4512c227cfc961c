// Package progressive implements the Progressive Tier Orchestrator: an
// ordered list of model tiers tried cheapest-first, escalating only when
// the cheaper tier's estimated quality falls short of the target.
package progressive

import (
	"github.com/brightloom/orchestra/core"
	"github.com/brightloom/orchestra/workflow"
)

// Tier is one rung of the escalation ladder.
type Tier struct {
	Name           string
	ModelID        string
	InputPerMillion  float64
	OutputPerMillion float64
	MaxQualityCap  int
	SuitableFor    []string
}

// DefaultTiers mirrors the four-rung ladder the Progressive workflow was
// modeled on: a cheap tier, a mid tier, a high tier, and a last-resort
// alternate-vendor tier.
func DefaultTiers() []Tier {
	return []Tier{
		{Name: "Tier1", ModelID: "claude-3-haiku-20240307", InputPerMillion: 0.25, OutputPerMillion: 1.25, MaxQualityCap: 80, SuitableFor: []string{"simple", "routine", "boilerplate"}},
		{Name: "Tier2", ModelID: "claude-3-5-sonnet-20241022", InputPerMillion: 3.00, OutputPerMillion: 15.00, MaxQualityCap: 92, SuitableFor: []string{"moderate", "standard", "development"}},
		{Name: "Tier3", ModelID: "claude-3-opus-20240229", InputPerMillion: 15.00, OutputPerMillion: 75.00, MaxQualityCap: 98, SuitableFor: []string{"complex", "critical", "architecture"}},
		{Name: "Tier4", ModelID: "gpt-4", InputPerMillion: 30.00, OutputPerMillion: 60.00, MaxQualityCap: 99, SuitableFor: []string{"maximum_quality", "fallback"}},
	}
}

// baselineTierIndex is "always use tier-2", the comparison point cost
// savings are reported against.
const baselineTierIndex = 1

// TierClients maps a tier's model id to the adapter that serves it.
type TierClients map[string]core.AIClient

// estimateQuality implements spec.md §4.9's heuristic exactly: start from
// the tier's cap minus 10, penalize short output, credit a passing
// validator, debit accumulated findings. report is nil when the output
// didn't look like code and no validator ran.
func estimateQuality(output string, report *workflow.ValidationReport, tier Tier) int {
	quality := tier.MaxQualityCap - 10

	switch {
	case len(output) < 100:
		quality -= 20
	case len(output) < 500:
		quality -= 10
	}

	if report != nil {
		if report.Status == "pass" {
			quality += 10
		} else if n := len(report.Findings); n > 0 {
			penalty := n * 5
			if penalty > 20 {
				penalty = 20
			}
			quality -= penalty
		}
	}

	if quality < 0 {
		quality = 0
	}
	if quality > 100 {
		quality = 100
	}
	return quality
}
