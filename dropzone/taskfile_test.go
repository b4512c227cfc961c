package dropzone

import (
	"testing"

	"github.com/brightloom/orchestra/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaskFile_AppliesDefaults(t *testing.T) {
	tf, err := parseTaskFile([]byte(`{"task": "build a calculator"}`))
	require.NoError(t, err)
	assert.Equal(t, "build a calculator", tf.Task)
	assert.Equal(t, defaultWorkflow, tf.Workflow)
	assert.Equal(t, defaultPriority, tf.Priority)
	assert.Empty(t, tf.Context)
}

func TestParseTaskFile_HonorsExplicitFields(t *testing.T) {
	tf, err := parseTaskFile([]byte(`{
		"task": "build a REST API",
		"workflow": "parallel",
		"priority": "high",
		"context": {"language": "go"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "parallel", tf.Workflow)
	assert.Equal(t, "high", tf.Priority)
	assert.Equal(t, "go", tf.Context["language"])
}

func TestParseTaskFile_FoldsArbitraryTopLevelKeysIntoContext(t *testing.T) {
	tf, err := parseTaskFile([]byte(`{"task": "x", "quality_target": 95}`))
	require.NoError(t, err)
	assert.Equal(t, float64(95), tf.Context["quality_target"])
}

func TestParseTaskFile_RejectsInvalidJSON(t *testing.T) {
	_, err := parseTaskFile([]byte(`not json`))
	require.Error(t, err)
}

func TestParseTaskFile_RejectsMissingTaskField(t *testing.T) {
	_, err := parseTaskFile([]byte(`{"workflow": "auto"}`))
	require.Error(t, err)
}

func TestIsTaskFile_FiltersResultAndErrorFiles(t *testing.T) {
	assert.True(t, isTaskFile("task_042.json"))
	assert.False(t, isTaskFile("task_042_result.json"))
	assert.False(t, isTaskFile("task_042_error.json"))
	assert.False(t, isTaskFile("task_042.txt"))
}

func TestExtractOutput_PrefersLastSuccessfulPhase(t *testing.T) {
	phases := []workflow.PhaseResult{
		{PhaseName: "architect", Success: true, OutputText: "design doc"},
		{PhaseName: "developer", Success: true, OutputText: "final code"},
		{PhaseName: "tester", Success: false, OutputText: "partial test output"},
	}
	assert.Equal(t, "final code", extractOutput(phases))
}

func TestExtractOutput_FallsBackToAnyPhaseWhenNoneSucceeded(t *testing.T) {
	phases := []workflow.PhaseResult{
		{PhaseName: "architect", Success: false, OutputText: "partial design"},
	}
	assert.Equal(t, "partial design", extractOutput(phases))
}

func TestExtractOutput_NoPhasesReturnsPlaceholder(t *testing.T) {
	assert.Equal(t, "No output generated", extractOutput(nil))
}

func TestExtractValidation_ReturnsLastReportPresent(t *testing.T) {
	report := &workflow.ValidationReport{Status: "pass", Score: 95}
	phases := []workflow.PhaseResult{
		{PhaseName: "developer", ValidationReport: nil},
		{PhaseName: "tester", ValidationReport: report},
	}
	assert.Equal(t, report, extractValidation(phases))
}
