package dropzone

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/brightloom/orchestra/core"
	"github.com/brightloom/orchestra/metrics"
	"github.com/brightloom/orchestra/observability"
	"github.com/brightloom/orchestra/router"
	"github.com/brightloom/orchestra/workflow"
	"github.com/fsnotify/fsnotify"
)

// Config wires a Watcher to its three directories and the rest of the
// platform: the Master Router it dispatches to, and the optional
// observability/metrics sinks it records through.
type Config struct {
	TasksDir   string
	ResultsDir string
	ArchiveDir string

	Router *router.Router

	Logger       core.Logger
	Emitter      *observability.Emitter
	MetricsStore *metrics.Store

	// Now is overridable for deterministic tests; defaults to time.Now.
	Now func() time.Time
}

func (c *Config) withDefaults() {
	if c.Logger == nil {
		c.Logger = &core.NoOpLogger{}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Watcher is the Drop Zone: it watches TasksDir for new JSON task files,
// dispatches each to the Master Router, and writes a result or error file
// before archiving the input. One workflow per task id runs at a time;
// distinct task ids run concurrently, matching agentic_dropzone.py's
// per-file asyncio.create_task fan-out.
type Watcher struct {
	cfg Config

	fsw *fsnotify.Watcher

	taskLocks sync.Map // task id -> *sync.Mutex, serializes same-id reprocessing

	mu        sync.Mutex
	running   bool
	processed int
	failed    int
}

// New validates cfg, creates the three directories if they don't already
// exist, and builds an fsnotify watcher on TasksDir. It does not start
// watching; call Start for that.
func New(cfg Config) (*Watcher, error) {
	if cfg.TasksDir == "" || cfg.ResultsDir == "" || cfg.ArchiveDir == "" {
		return nil, fmt.Errorf("dropzone: TasksDir, ResultsDir, and ArchiveDir are required")
	}
	if cfg.Router == nil {
		return nil, fmt.Errorf("dropzone: Router is required")
	}
	cfg.withDefaults()

	for _, dir := range []string{cfg.TasksDir, cfg.ResultsDir, cfg.ArchiveDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("dropzone: create %s: %w", dir, err)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("dropzone: create watcher: %w", err)
	}
	if err := fsw.Add(cfg.TasksDir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("dropzone: watch %s: %w", cfg.TasksDir, err)
	}

	cfg.Logger.Info("dropzone: initialized", map[string]interface{}{
		"tasks_dir":   cfg.TasksDir,
		"results_dir": cfg.ResultsDir,
		"archive_dir": cfg.ArchiveDir,
	})

	return &Watcher{cfg: cfg, fsw: fsw}, nil
}

// isTaskFile reports whether name is a candidate input file: a .json file
// that isn't itself a result or error file, matching TaskFileHandler.
// on_created's filter.
func isTaskFile(name string) bool {
	if !strings.HasSuffix(name, ".json") {
		return false
	}
	lower := strings.ToLower(name)
	return !strings.Contains(lower, "result") && !strings.Contains(lower, "error")
}

// ProcessExisting processes every pre-existing task file in TasksDir once,
// in lexical order, matching process_existing_tasks' synchronous for-loop
// over a sorted directory glob. Intended to run once at startup, before
// Start's watch loop begins.
func (w *Watcher) ProcessExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.cfg.TasksDir)
	if err != nil {
		return fmt.Errorf("dropzone: list %s: %w", w.cfg.TasksDir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && isTaskFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	if len(names) == 0 {
		w.cfg.Logger.Info("dropzone: no existing tasks found", nil)
		return nil
	}
	w.cfg.Logger.Info("dropzone: found existing task files", map[string]interface{}{"count": len(names)})

	for _, name := range names {
		w.processFile(ctx, filepath.Join(w.cfg.TasksDir, name))
	}
	return nil
}

// Start processes pre-existing files once, then watches TasksDir for new
// creations until ctx is canceled. Each qualifying event is dispatched to
// its own goroutine so distinct task ids process concurrently; same-id
// events serialize through taskLocks.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.ProcessExisting(ctx); err != nil {
		return err
	}

	w.mu.Lock()
	w.running = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	w.cfg.Logger.Info("dropzone: watching for tasks", map[string]interface{}{"tasks_dir": w.cfg.TasksDir})

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isTaskFile(filepath.Base(ev.Name)) {
				continue
			}
			path := ev.Name
			wg.Add(1)
			go func() {
				defer wg.Done()
				w.processFile(ctx, path)
			}()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.cfg.Logger.Error("dropzone: watcher error", map[string]interface{}{"error": err.Error()})
		}
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Status reports the Watcher's running state and lifetime counters,
// matching AgenticDropZone.status().
type Status struct {
	Running        bool
	TasksDir       string
	ResultsDir     string
	TasksProcessed int
	TasksFailed    int
	SuccessRate    float64
}

func (w *Watcher) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	total := w.processed + w.failed
	rate := 0.0
	if total > 0 {
		rate = float64(w.processed) / float64(total) * 100
	}
	return Status{
		Running:        w.running,
		TasksDir:       w.cfg.TasksDir,
		ResultsDir:     w.cfg.ResultsDir,
		TasksProcessed: w.processed,
		TasksFailed:    w.failed,
		SuccessRate:    rate,
	}
}

// lockFor returns the mutex serializing processing for a given task id,
// creating one on first use. Distinct ids never contend on the same lock.
func (w *Watcher) lockFor(id string) *sync.Mutex {
	actual, _ := w.taskLocks.LoadOrStore(id, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// processFile runs the full five-step pipeline from spec.md §4.11 for one
// task file: parse/validate, dispatch, write a result or error file, and
// archive the input atomically. Every error is caught here; the watcher
// itself never dies from a single bad task file.
func (w *Watcher) processFile(ctx context.Context, path string) {
	taskID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	lock := w.lockFor(taskID)
	lock.Lock()
	defer lock.Unlock()

	started := w.cfg.Now()

	var trace *observability.Trace
	if w.cfg.Emitter != nil {
		trace = w.cfg.Emitter.StartTrace("dropzone", map[string]interface{}{"task_id": taskID})
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		// The file may have already been consumed by a duplicate event;
		// nothing to archive or report.
		w.cfg.Logger.Warn("dropzone: task file vanished before processing", map[string]interface{}{
			"task_id": taskID, "error": err.Error(),
		})
		if trace != nil {
			trace.End(false, nil, nil)
		}
		return
	}

	tf, parseErr := parseTaskFile(raw)
	if parseErr != nil {
		w.failTask(ctx, trace, taskID, path, "", parseErr.Error())
		return
	}

	task := workflow.Task{
		ID:        taskID,
		Text:      tf.Task,
		Context:   tf.Context,
		Workflow:  tf.Workflow,
		Priority:  tf.Priority,
		ArrivedAt: started,
	}
	task.Context["dropzone"] = map[string]interface{}{
		"enabled":      true,
		"tasks_dir":    w.cfg.TasksDir,
		"processed_at": started.Format(time.RFC3339),
	}

	result, execErr := w.cfg.Router.Execute(task)
	if execErr != nil {
		w.failTask(ctx, trace, taskID, path, tf.Task, execErr.Error())
		return
	}

	w.saveResult(taskID, tf.Task, result, started)

	if w.cfg.MetricsStore != nil {
		if err := w.cfg.MetricsStore.Append(metrics.FromWorkflowResult(taskID, result)); err != nil {
			w.cfg.Logger.Error("dropzone: metrics append failed", map[string]interface{}{"task_id": taskID, "error": err.Error()})
		}
	}

	w.archive(path, taskID)

	w.mu.Lock()
	w.processed++
	w.mu.Unlock()

	if trace != nil {
		trace.End(result.Success, result.OverallQualityScore, map[string]interface{}{
			"task_id": taskID,
			"cost_usd": result.TotalCostUSD,
		})
	}

	w.cfg.Logger.Info("dropzone: task completed", map[string]interface{}{
		"task_id":       taskID,
		"workflow_used": result.WorkflowUsed,
		"success":       result.Success,
		"cost_usd":      result.TotalCostUSD,
		"duration_s":    w.cfg.Now().Sub(started).Seconds(),
	})
}

// failTask writes an error file, archives the input, emits a
// workflow_failed event, and counts the failure — the catch-all path
// process_task_file's except block implements.
func (w *Watcher) failTask(ctx context.Context, trace *observability.Trace, taskID, path, taskText, errMsg string) {
	w.saveError(taskID, taskText, errMsg)
	w.archive(path, taskID)

	w.mu.Lock()
	w.failed++
	w.mu.Unlock()

	if w.cfg.Emitter != nil {
		if trace == nil {
			trace = w.cfg.Emitter.StartTrace("dropzone", map[string]interface{}{"task_id": taskID})
		}
		trace.Emit(observability.EventWorkflowFailed, "dropzone", observability.SeverityError, errMsg, map[string]interface{}{"task_id": taskID})
		trace.End(false, nil, map[string]interface{}{"error": errMsg})
	}

	w.cfg.Logger.Error("dropzone: task failed", map[string]interface{}{"task_id": taskID, "error": errMsg})
}

func (w *Watcher) saveResult(taskID, taskText string, result *workflow.WorkflowResult, started time.Time) {
	status := "failed"
	if result.Success {
		status = "success"
	}

	rf := resultFile{
		TaskID:          taskID,
		Status:          status,
		Task:            taskText,
		WorkflowUsed:    result.WorkflowUsed,
		QualityScore:    result.OverallQualityScore,
		DurationSeconds: float64(result.TotalTimeMS) / 1000.0,
		CostUSD:         result.TotalCostUSD,
		CompletedAt:     w.cfg.Now(),
		Output:          extractOutput(result.PhaseResults),
		Validation:      extractValidation(result.PhaseResults),
		Metadata:        result.Metadata,
	}

	w.writeJSON(filepath.Join(w.cfg.ResultsDir, taskID+"_result.json"), rf)
}

func (w *Watcher) saveError(taskID, taskText, errMsg string) {
	ef := errorFile{
		TaskID:   taskID,
		Status:   "failed",
		Error:    errMsg,
		Task:     taskText,
		FailedAt: w.cfg.Now(),
	}
	w.writeJSON(filepath.Join(w.cfg.ResultsDir, taskID+"_error.json"), ef)
}

func (w *Watcher) writeJSON(path string, v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		w.cfg.Logger.Error("dropzone: marshal result failed", map[string]interface{}{"path": path, "error": err.Error()})
		return
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		w.cfg.Logger.Error("dropzone: write result failed", map[string]interface{}{"path": path, "error": err.Error()})
	}
}

// archive moves the processed input file into ArchiveDir. os.Rename is
// atomic when both paths share a filesystem, which they do here since all
// three directories are created under the same dropzone root.
func (w *Watcher) archive(path, taskID string) {
	dest := filepath.Join(w.cfg.ArchiveDir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		w.cfg.Logger.Error("dropzone: archive failed", map[string]interface{}{"task_id": taskID, "error": err.Error()})
	}
}

// extractOutput pulls the final artifact text from the last successful
// phase, falling back to the last phase with any output at all, matching
// _extract_output's developer → architect → tester → reviewer fallback
// chain generalized to "most recent producing phase".
func extractOutput(phases []workflow.PhaseResult) string {
	for i := len(phases) - 1; i >= 0; i-- {
		if phases[i].Success && phases[i].OutputText != "" {
			return phases[i].OutputText
		}
	}
	for i := len(phases) - 1; i >= 0; i-- {
		if phases[i].OutputText != "" {
			return phases[i].OutputText
		}
	}
	return "No output generated"
}

// extractValidation returns the last phase's validation report, matching
// _extract_validation's "use whichever phase actually ran a validator".
func extractValidation(phases []workflow.PhaseResult) interface{} {
	for i := len(phases) - 1; i >= 0; i-- {
		if phases[i].ValidationReport != nil {
			return phases[i].ValidationReport
		}
	}
	return nil
}
