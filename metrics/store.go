// Package metrics implements the Workflow Metrics Store: an append-only
// line-delimited JSON record of every completed workflow, with analytics
// roll-ups computed on read rather than maintained incrementally.
package metrics

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/brightloom/orchestra/workflow"
)

// PhaseMetrics is one role or tier's contribution to a Record, keyed by
// phase name so the store doesn't hardcode the Specialized Roles'
// architect/developer/tester/reviewer names against Parallel or
// Progressive phase names.
type PhaseMetrics struct {
	CostUSD      float64 `json:"cost_usd"`
	TimeMS       int64   `json:"time_ms"`
	Tokens       int     `json:"tokens"`
	QualityScore *int    `json:"quality_score,omitempty"`
}

// Record is one completed workflow's persisted metrics row.
type Record struct {
	WorkflowID         string                  `json:"workflow_id"`
	Task               string                  `json:"task"`
	Timestamp          time.Time               `json:"timestamp"`
	WorkflowUsed       string                  `json:"workflow_used"`
	Success            bool                    `json:"success"`
	OverallQualityScore *int                   `json:"overall_quality_score,omitempty"`
	TotalTimeMS        int64                   `json:"total_time_ms"`
	TotalCostUSD       float64                 `json:"total_cost_usd"`
	TotalTokens        int                     `json:"total_tokens"`
	TotalIterations    int                     `json:"total_iterations"`
	PhasesSelfCorrected []string               `json:"phases_self_corrected,omitempty"`
	SelfCorrectionCostUSD float64              `json:"self_correction_cost_usd"`
	Phases             map[string]PhaseMetrics `json:"phases,omitempty"`
	Context            map[string]interface{}  `json:"context,omitempty"`
}

// FromWorkflowResult builds a Record from a completed WorkflowResult,
// estimating self-correction cost as 20% of total cost per iteration beyond
// one per completed phase — the same estimate the Python tracker used,
// since a WorkflowResult doesn't separately cost-account retried attempts.
func FromWorkflowResult(id string, r *workflow.WorkflowResult) Record {
	phases := make(map[string]PhaseMetrics, len(r.PhaseResults))
	var corrected []string
	for _, p := range r.PhaseResults {
		phases[p.PhaseName] = PhaseMetrics{
			CostUSD:      p.CostUSD,
			TimeMS:       p.TimeMS,
			Tokens:       p.TokensUsed,
			QualityScore: p.QualityScore,
		}
		if p.SelfCorrected {
			corrected = append(corrected, p.PhaseName)
		}
	}

	var selfCorrectionCost float64
	if extra := r.TotalIterations - len(r.CompletedPhases); extra > 0 {
		selfCorrectionCost = r.TotalCostUSD * 0.2 * float64(extra)
	}

	return Record{
		WorkflowID:            id,
		Task:                  r.Task.Text,
		Timestamp:             r.StartedAt,
		WorkflowUsed:          r.WorkflowUsed,
		Success:               r.Success,
		OverallQualityScore:   r.OverallQualityScore,
		TotalTimeMS:           r.TotalTimeMS,
		TotalCostUSD:          r.TotalCostUSD,
		TotalTokens:           r.TotalTokens,
		TotalIterations:       r.TotalIterations,
		PhasesSelfCorrected:   corrected,
		SelfCorrectionCostUSD: selfCorrectionCost,
		Phases:                phases,
		Context:               r.Context,
	}
}

// Store appends Records to a line-delimited JSON file and serves analytics
// computed over whatever is currently on disk. It keeps no in-memory
// cache and holds no open file handle (each call opens the file): spec.md
// requires no secondary
// indexing, and a re-read is cheap at the scale one process's workflow
// history reaches.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore opens (creating if necessary) the metrics file at path for
// appending.
func NewStore(path string) (*Store, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("metrics: open store %s: %w", path, err)
	}
	f.Close()
	return &Store{path: path}, nil
}

// Append records one completed workflow.
func (s *Store) Append(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("metrics: open for append: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("metrics: encode record: %w", err)
	}
	return nil
}

// All reads every record currently in the store, in append order.
func (s *Store) All() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAllLocked()
}

func (s *Store) readAllLocked() ([]Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("metrics: open for read: %w", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("metrics: decode record: %w", err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("metrics: scan store: %w", err)
	}
	return records, nil
}
