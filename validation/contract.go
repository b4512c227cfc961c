// Package validation implements the Validator Contract (a pluggable
// validate(artifact, level, context) -> ValidationReport function), a
// registry of named validators, and the bounded Refinement Loop that
// drives a generator against a validator until a quality threshold is met
// or the iteration budget runs out.
package validation

import (
	"context"

	"github.com/brightloom/orchestra/workflow"
)

// Level is the advisory depth a caller requests from a validator. A
// validator may ignore it entirely; it exists so expensive validators
// (e.g. full static analysis) can skip work a "quick" pass doesn't need.
type Level string

const (
	LevelQuick    Level = "quick"
	LevelStandard Level = "standard"
	LevelThorough Level = "thorough"
)

// Validator is the contract every validator implementation satisfies. It
// must be pure with respect to (artifact, level, ctx): no hidden state,
// deterministic score/status/findings for the same inputs.
type Validator func(ctx context.Context, artifact string, level Level, taskCtx map[string]interface{}) (*workflow.ValidationReport, error)

// Registry maps validator names to implementations, so orchestrators can
// look one up by the artifact kind they're checking ("code", "tests",
// "review") without importing a concrete validator package.
type Registry struct {
	validators map[string]Validator
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{validators: make(map[string]Validator)}
}

// Register adds or replaces the validator for name.
func (r *Registry) Register(name string, v Validator) {
	r.validators = mapSet(r.validators, name, v)
}

func mapSet(m map[string]Validator, k string, v Validator) map[string]Validator {
	if m == nil {
		m = make(map[string]Validator)
	}
	m[k] = v
	return m
}

// Get looks up a validator by name.
func (r *Registry) Get(name string) (Validator, bool) {
	v, ok := r.validators[name]
	return v, ok
}

// RunAll runs every validator in names against the same artifact, in
// order, returning their reports. An orchestrator phase that wants both a
// structural check and a style check runs them this way rather than
// composing validators itself.
func (r *Registry) RunAll(ctx context.Context, names []string, artifact string, level Level, taskCtx map[string]interface{}) ([]*workflow.ValidationReport, error) {
	reports := make([]*workflow.ValidationReport, 0, len(names))
	for _, name := range names {
		v, ok := r.Get(name)
		if !ok {
			continue
		}
		report, err := v(ctx, artifact, level, taskCtx)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}
