// Package router implements the Master Router: cheap keyword/structure
// heuristics that classify a task and dispatch it to one of the three
// workflow engines, unless the caller already named one.
package router

import (
	"regexp"
	"strings"

	"github.com/brightloom/orchestra/workflow"
)

// Complexity is the Router's coarse read on how demanding a task is.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// Classification is the Master Router's read on a task before dispatch.
type Classification struct {
	Complexity       Complexity
	ComponentCount   int
	RequiresArchitecture bool
	RequiresReview   bool
	QualityTarget    int
	SpeedPriority    bool
}

var (
	complexKeywords = []string{"architecture", "system", "production", "critical", "enterprise", "distributed"}
	archKeywords    = []string{"architecture", "design", "system design", "blueprint"}
	reviewKeywords  = []string{"review", "audit", "security review"}
	simpleKeywords  = []string{"simple", "basic", "quick", "small"}

	numberedListItem = regexp.MustCompile(`(?m)^\s*(?:[0-9]+[.):]|[-*])\s+`)
	nEndpoints       = regexp.MustCompile(`(?i)(\d+)\s+endpoints?`)
)

func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// countComponents estimates how many discrete pieces of work a task
// describes: numbered/bulleted list items, or an explicit "N endpoints"
// phrase, whichever is higher.
func countComponents(text string) int {
	count := len(numberedListItem.FindAllString(text, -1))
	if m := nEndpoints.FindStringSubmatch(text); len(m) == 2 {
		if n := atoi(m[1]); n > count {
			count = n
		}
	}
	return count
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// estimateQualityTarget maps keyword signals to a numeric target, in
// descending order of how demanding the signal is.
func estimateQualityTarget(text string) int {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "production") || strings.Contains(lower, "critical"):
		return 95
	case strings.Contains(lower, "robust") || strings.Contains(lower, "comprehensive"):
		return 90
	case containsAny(lower, complexKeywords):
		return 88
	case containsAny(lower, simpleKeywords):
		return 75
	default:
		return 80
	}
}

func classifyComplexity(text string, componentCount int) Complexity {
	switch {
	case containsAny(text, complexKeywords) || componentCount >= 4:
		return ComplexityComplex
	case containsAny(text, simpleKeywords) && componentCount <= 1:
		return ComplexitySimple
	default:
		return ComplexityModerate
	}
}

// Classify reads task.Text and task.Context for the signals spec.md §4.10
// names: complexity keywords, enumerated component counts, architecture/
// review requirements, and a numeric quality target.
func Classify(task workflow.Task) Classification {
	count := countComponents(task.Text)
	c := Classification{
		ComponentCount:       count,
		Complexity:           classifyComplexity(task.Text, count),
		RequiresArchitecture: containsAny(task.Text, archKeywords),
		RequiresReview:       containsAny(task.Text, reviewKeywords),
		QualityTarget:        estimateQualityTarget(task.Text),
	}
	if qt, ok := task.Context["quality_target"].(int); ok && qt > 0 {
		c.QualityTarget = qt
	}
	if sp, ok := task.Context["speed_priority"].(bool); ok {
		c.SpeedPriority = sp
	}
	return c
}
