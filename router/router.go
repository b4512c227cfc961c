package router

import (
	"fmt"

	"github.com/brightloom/orchestra/core"
	"github.com/brightloom/orchestra/workflow"
)

const (
	workflowSpecializedRoles = "specialized_roles"
	workflowParallel         = "parallel"
	workflowProgressive      = "progressive"
	workflowAuto             = "auto"
)

// Router holds one Orchestrator per workflow name and dispatches tasks to
// the one spec.md §4.10's decision tree (or the caller) selects.
type Router struct {
	orchestrators map[string]workflow.Orchestrator
	logger        core.Logger
}

// New builds a Router over the given orchestrators, keyed by their Name().
func New(logger core.Logger, orchestrators ...workflow.Orchestrator) *Router {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	r := &Router{orchestrators: make(map[string]workflow.Orchestrator, len(orchestrators)), logger: logger}
	for _, o := range orchestrators {
		r.orchestrators[o.Name()] = o
	}
	return r
}

// Select applies spec.md §4.10's decision tree in order: an explicit
// non-"auto" task.Workflow bypasses classification entirely.
func Select(task workflow.Task) (string, Classification) {
	c := Classify(task)

	if task.Workflow != "" && task.Workflow != workflowAuto {
		return task.Workflow, c
	}

	switch {
	case c.QualityTarget >= 90 || c.RequiresArchitecture || c.RequiresReview || c.Complexity == ComplexityComplex:
		return workflowSpecializedRoles, c
	case c.ComponentCount >= 2:
		return workflowParallel, c
	case c.Complexity == ComplexitySimple && c.QualityTarget < 85:
		return workflowProgressive, c
	case c.SpeedPriority:
		return workflowProgressive, c
	default:
		return workflowProgressive, c
	}
}

// Execute classifies (or honors an explicit selection), dispatches to the
// chosen orchestrator, and records the routing decision in the result's
// metadata.
func (r *Router) Execute(task workflow.Task) (*workflow.WorkflowResult, error) {
	name, classification := Select(task)

	o, ok := r.orchestrators[name]
	if !ok {
		return nil, fmt.Errorf("router: no orchestrator registered for workflow %q", name)
	}

	r.logger.Info("router: dispatching task", map[string]interface{}{
		"task_id":  task.ID,
		"workflow": name,
		"complexity": string(classification.Complexity),
	})

	result, err := o.Execute(task)
	if err != nil {
		return result, err
	}

	if result.Metadata == nil {
		result.Metadata = map[string]interface{}{}
	}
	result.Metadata["router_selected_workflow"] = name
	result.Metadata["router_complexity"] = string(classification.Complexity)
	result.Metadata["router_component_count"] = classification.ComponentCount
	result.Metadata["router_quality_target"] = classification.QualityTarget

	return result, nil
}
