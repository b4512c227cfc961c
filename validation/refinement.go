package validation

import (
	"context"

	"github.com/brightloom/orchestra/observability"
	"github.com/brightloom/orchestra/workflow"
)

// Generator produces an artifact from the current input. It is re-invoked
// on each refinement iteration with feedback folded into input.
type Generator func(ctx context.Context, input Input) (string, error)

// Input is what a Generator receives each iteration. Feedback and
// PreviousAttempt are empty on the first call; once a report fails to
// converge, the loop sets PreviousAttempt to the last artifact and
// Feedback to the findings of every earlier iteration, accumulated.
type Input struct {
	Task            string
	Context         map[string]interface{}
	Feedback        []workflow.Finding
	PreviousAttempt string
}

// IterationRecord is one (iteration, score) pair in the improvement
// history the loop accumulates, for callers that want to report on
// whether regeneration is actually helping.
type IterationRecord struct {
	Iteration int
	Score     int
	Status    string
}

// Outcome is the Refinement Loop's result: either converged (status
// "pass" with score >= threshold reached within max_iterations) or not,
// in which case Artifact/Report are the best-scoring attempt seen.
type Outcome struct {
	Converged bool
	Artifact  string
	Report    *workflow.ValidationReport
	History   []IterationRecord
	Iterations int
}

// Run drives generator against validator for up to maxIterations rounds,
// halting the moment a report has status "pass" and score >= threshold.
// On non-convergence it returns the highest-scoring artifact seen rather
// than the last one generated.
func Run(ctx context.Context, trace *observability.Trace, component string, generator Generator, validator Validator, initial Input, level Level, threshold int, maxIterations int) (*Outcome, error) {
	if maxIterations <= 0 {
		maxIterations = 1
	}

	input := initial
	var bestArtifact string
	var bestReport *workflow.ValidationReport
	var history []IterationRecord

	for i := 1; i <= maxIterations; i++ {
		artifact, err := generator(ctx, input)
		if err != nil {
			return nil, err
		}
		report, err := validator(ctx, artifact, level, input.Context)
		if err != nil {
			return nil, err
		}

		history = append(history, IterationRecord{Iteration: i, Score: report.Score, Status: report.Status})
		if trace != nil {
			trace.Emit(observability.EventValidation, component, observability.SeverityInfo, "refinement iteration recorded", map[string]interface{}{
				"iteration": i,
				"score":     report.Score,
				"status":    report.Status,
			})
		}

		if bestReport == nil || report.Score > bestReport.Score {
			bestArtifact, bestReport = artifact, report
		}

		if report.Status == "pass" && report.Score >= threshold {
			return &Outcome{
				Converged:  true,
				Artifact:   artifact,
				Report:     report,
				History:    history,
				Iterations: i,
			}, nil
		}

		input = Input{
			Task:            initial.Task,
			Context:         initial.Context,
			Feedback:        append(append([]workflow.Finding{}, input.Feedback...), report.Findings...),
			PreviousAttempt: artifact,
		}
	}

	return &Outcome{
		Converged:  false,
		Artifact:   bestArtifact,
		Report:     bestReport,
		History:    history,
		Iterations: maxIterations,
	}, nil
}
