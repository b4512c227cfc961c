package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddPhase_FoldsCostTokensTimeIntoRunningTotals(t *testing.T) {
	r := &WorkflowResult{}

	r.AddPhase(PhaseResult{PhaseName: "architect", Success: true, CostUSD: 0.01, TokensUsed: 100, TimeMS: 500, Iteration: 1})
	r.AddPhase(PhaseResult{PhaseName: "developer", Success: true, CostUSD: 0.02, TokensUsed: 200, TimeMS: 800, Iteration: 2})

	assert.InDelta(t, 0.03, r.TotalCostUSD, 1e-9)
	assert.Equal(t, 300, r.TotalTokens)
	assert.Equal(t, int64(1300), r.TotalTimeMS)
	assert.Equal(t, 3, r.TotalIterations)
	assert.Equal(t, []string{"architect", "developer"}, r.CompletedPhases)
	assert.Len(t, r.PhaseResults, 2)
}

func TestAddPhase_FailedPhaseStillCostsButIsNotCompleted(t *testing.T) {
	r := &WorkflowResult{}

	r.AddPhase(PhaseResult{PhaseName: "tester", Success: false, CostUSD: 0.05, TokensUsed: 50, TimeMS: 200})

	assert.InDelta(t, 0.05, r.TotalCostUSD, 1e-9)
	assert.Empty(t, r.CompletedPhases)
	assert.Len(t, r.PhaseResults, 1)
}

func TestCriticalOrHighCount_SumsBothSeverities(t *testing.T) {
	report := &ValidationReport{CriticalCount: 2, HighCount: 3}
	assert.Equal(t, 5, report.CriticalOrHighCount())
}

func TestCriticalOrHighCount_NilReportReturnsZero(t *testing.T) {
	var report *ValidationReport
	assert.Equal(t, 0, report.CriticalOrHighCount())
}
