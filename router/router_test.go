package router

import (
	"testing"

	"github.com/brightloom/orchestra/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOrchestrator struct {
	name string
}

func (s *stubOrchestrator) Name() string { return s.name }
func (s *stubOrchestrator) Execute(task workflow.Task) (*workflow.WorkflowResult, error) {
	return &workflow.WorkflowResult{Task: task, WorkflowUsed: s.name, Success: true}, nil
}

func TestClassify_DetectsComplexKeywords(t *testing.T) {
	c := Classify(workflow.Task{Text: "design the production architecture for this system"})
	assert.Equal(t, ComplexityComplex, c.Complexity)
	assert.True(t, c.RequiresArchitecture)
	assert.Equal(t, 95, c.QualityTarget)
}

func TestClassify_CountsNumberedListComponents(t *testing.T) {
	c := Classify(workflow.Task{Text: "1. build auth\n2. build billing\n3. build search\n"})
	assert.Equal(t, 3, c.ComponentCount)
}

func TestClassify_CountsExplicitEndpointPhrase(t *testing.T) {
	c := Classify(workflow.Task{Text: "build a service with 5 endpoints"})
	assert.Equal(t, 5, c.ComponentCount)
}

func TestClassify_SimpleKeywordLowersQualityTarget(t *testing.T) {
	c := Classify(workflow.Task{Text: "write a simple hello world function"})
	assert.Equal(t, ComplexitySimple, c.Complexity)
	assert.Equal(t, 75, c.QualityTarget)
}

func TestSelect_ComplexRoutesToSpecializedRoles(t *testing.T) {
	name, _ := Select(workflow.Task{Text: "design a production-grade distributed system architecture"})
	assert.Equal(t, workflowSpecializedRoles, name)
}

func TestSelect_MultipleComponentsRouteToParallel(t *testing.T) {
	name, _ := Select(workflow.Task{Text: "1. build the API\n2. build the frontend\n"})
	assert.Equal(t, workflowParallel, name)
}

func TestSelect_SimpleLowTargetRoutesToProgressive(t *testing.T) {
	name, _ := Select(workflow.Task{Text: "write a simple hello world function"})
	assert.Equal(t, workflowProgressive, name)
}

func TestSelect_ExplicitWorkflowBypassesClassification(t *testing.T) {
	name, _ := Select(workflow.Task{Text: "write a simple hello world function", Workflow: "specialized_roles"})
	assert.Equal(t, "specialized_roles", name)
}

func TestRouter_Execute_DispatchesAndAnnotatesMetadata(t *testing.T) {
	r := New(nil, &stubOrchestrator{name: workflowParallel})
	task := workflow.Task{ID: "t1", Text: "1. build the API\n2. build the frontend\n"}

	result, err := r.Execute(task)
	require.NoError(t, err)
	assert.Equal(t, workflowParallel, result.Metadata["router_selected_workflow"])
	assert.True(t, result.Success)
}

func TestRouter_Execute_UnregisteredWorkflowErrors(t *testing.T) {
	r := New(nil, &stubOrchestrator{name: workflowProgressive})
	task := workflow.Task{ID: "t2", Text: "design a production system architecture"}

	_, err := r.Execute(task)
	require.Error(t, err)
}
