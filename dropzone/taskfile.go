// Package dropzone implements the Drop Zone: a directory watcher that turns
// JSON task files into Master Router executions with zero human
// intervention, the way agentic_dropzone.py's AgenticDropZone watches a
// tasks/ folder with watchdog.Observer.
package dropzone

import (
	"encoding/json"
	"fmt"
	"time"
)

// taskFile is the on-disk shape of a Drop Zone input file: a required
// "task" string plus optional workflow/context/priority and arbitrary
// passthrough keys that are folded into the workflow context.
type taskFile struct {
	Task     string
	Workflow string
	Context  map[string]interface{}
	Priority string
}

const (
	defaultWorkflow = "auto"
	defaultPriority = "normal"
)

// parseTaskFile decodes raw JSON into a taskFile, applying spec defaults
// (workflow=auto, priority=normal, context={}) and folding any top-level
// key other than task/workflow/context/priority into the context map, per
// §6's "arbitrary string keys passed through to the workflow context".
func parseTaskFile(raw []byte) (taskFile, error) {
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return taskFile{}, fmt.Errorf("invalid JSON: %w", err)
	}

	taskText, ok := generic["task"].(string)
	if !ok || taskText == "" {
		return taskFile{}, fmt.Errorf("missing required field: task")
	}

	tf := taskFile{
		Task:     taskText,
		Workflow: defaultWorkflow,
		Priority: defaultPriority,
		Context:  map[string]interface{}{},
	}

	if w, ok := generic["workflow"].(string); ok && w != "" {
		tf.Workflow = w
	}
	if p, ok := generic["priority"].(string); ok && p != "" {
		tf.Priority = p
	}
	if ctx, ok := generic["context"].(map[string]interface{}); ok {
		for k, v := range ctx {
			tf.Context[k] = v
		}
	}

	for k, v := range generic {
		switch k {
		case "task", "workflow", "context", "priority":
			continue
		default:
			tf.Context[k] = v
		}
	}

	return tf, nil
}

// resultFile is the §6 result-file shape written on success or failure.
type resultFile struct {
	TaskID          string                 `json:"task_id"`
	Status          string                 `json:"status"`
	Task            string                 `json:"task"`
	WorkflowUsed    string                 `json:"workflow_used"`
	QualityScore    *int                   `json:"quality_score,omitempty"`
	DurationSeconds float64                `json:"duration_seconds"`
	CostUSD         float64                `json:"cost_usd"`
	CompletedAt     time.Time              `json:"completed_at"`
	Output          string                 `json:"output"`
	Validation      interface{}            `json:"validation,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// errorFile is the §6 error-file shape written when a task file cannot be
// parsed, validated, or otherwise fails before a WorkflowResult exists.
type errorFile struct {
	TaskID   string    `json:"task_id"`
	Status   string    `json:"status"`
	Error    string    `json:"error"`
	Task     string    `json:"task"`
	FailedAt time.Time `json:"failed_at"`
}

