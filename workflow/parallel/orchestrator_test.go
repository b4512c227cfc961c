package parallel

import (
	"context"
	"testing"

	"github.com/brightloom/orchestra/core"
	"github.com/brightloom/orchestra/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	content string
	err     error
}

func (c *stubClient) Invoke(ctx context.Context, model string, messages []core.Message, system string, maxTokens int, temperature float32) (*core.InvocationResult, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &core.InvocationResult{Content: c.content, Model: model, InputTokens: 20, OutputTokens: 20}, nil
}

func TestOrchestrator_Execute_SplitsAndReachesConsensus(t *testing.T) {
	nodes := []NodeCapabilities{
		{NodeID: "n1", Model: "model-a", ReliabilityScore: 0.8},
		{NodeID: "n2", Model: "model-a", ReliabilityScore: 0.8},
	}
	clients := map[string]core.AIClient{
		"model-a": &stubClient{content: "done"},
	}

	o := New(Config{Nodes: nodes, Clients: clients})

	task := workflow.Task{ID: "t1", Text: "1. do the first thing\n2. do the second thing\n"}
	result, err := o.Execute(task)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Len(t, result.PhaseResults, 2)
	assert.Equal(t, "parallel", result.WorkflowUsed)
}

func TestOrchestrator_Execute_MissingClientFailsThatPackage(t *testing.T) {
	nodes := []NodeCapabilities{{NodeID: "n1", Model: "unconfigured-model"}}
	o := New(Config{Nodes: nodes, Clients: map[string]core.AIClient{}})

	task := workflow.Task{ID: "t2", Text: "do a single thing"}
	result, err := o.Execute(task)
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, result.PhaseResults, 1)
	assert.False(t, result.PhaseResults[0].Success)
}

func TestOrchestrator_Execute_UnstructuredTaskRunsAsSinglePackage(t *testing.T) {
	nodes := []NodeCapabilities{{NodeID: "n1", Model: "model-a"}}
	clients := map[string]core.AIClient{"model-a": &stubClient{content: "done"}}
	o := New(Config{Nodes: nodes, Clients: clients})

	task := workflow.Task{ID: "t3", Text: "a single task with no list structure"}
	result, err := o.Execute(task)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Len(t, result.PhaseResults, 1)
}

func TestRecommendations_FlagsWeakConsensusAndMinorityReports(t *testing.T) {
	c := ConsensusResult{
		Type: ConsensusWeak,
		MinorityReports: []MinorityReport{{GroupIndex: 1, Weight: 0.2, Result: "alt"}},
	}
	recs := recommendations(c)
	assert.Len(t, recs, 2)
}
