package parallel

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/brightloom/orchestra/agent"
	"github.com/brightloom/orchestra/core"
	"github.com/brightloom/orchestra/ledger"
	"github.com/brightloom/orchestra/observability"
	"github.com/brightloom/orchestra/workflow"
)

// Config wires one Orchestrator instance.
type Config struct {
	Nodes             []NodeCapabilities
	Clients           map[string]core.AIClient // model id -> adapter, keyed same as NodeCapabilities.Model
	Ledger            *ledger.Ledger
	Emitter           *observability.Emitter
	Logger            core.Logger
	SimilarityFn      Similarity
	SimilarityThreshold float64
	AgentMaxRetries   int
}

func (c Config) withDefaults() Config {
	if c.SimilarityThreshold <= 0 {
		c.SimilarityThreshold = 0.85
	}
	if c.AgentMaxRetries <= 0 {
		c.AgentMaxRetries = 2
	}
	if c.Logger == nil {
		c.Logger = &core.NoOpLogger{}
	}
	return c
}

// Orchestrator is the Parallel Cluster Orchestrator.
type Orchestrator struct {
	cfg     Config
	cluster *Cluster
}

// New builds an Orchestrator with its own Cluster over cfg.Nodes.
func New(cfg Config) *Orchestrator {
	cfg = cfg.withDefaults()
	return &Orchestrator{cfg: cfg, cluster: NewCluster(cfg.Nodes)}
}

// Name identifies this orchestrator to the Master Router.
func (o *Orchestrator) Name() string { return "parallel" }

// Execute splits task.Text into work packages, batches them by dependency,
// assigns nodes round-robin with ring backups, executes batch by batch,
// and builds a consensus result from the successful node outputs.
func (o *Orchestrator) Execute(task workflow.Task) (*workflow.WorkflowResult, error) {
	ctx := context.Background()
	var trace *observability.Trace
	if o.cfg.Emitter != nil {
		trace = o.cfg.Emitter.StartTrace("parallel", map[string]interface{}{"task_id": task.ID})
	}

	start := time.Now()
	result := &workflow.WorkflowResult{
		Task:         task,
		Context:      task.Context,
		WorkflowUsed: "parallel",
		StartedAt:    start,
	}

	packages := Split(task.ID, task.Text)
	hintCount := len(packages)
	packages = Assign(packages, o.cfg.Nodes, hintCount)

	batches, err := Batch(packages)
	if err != nil {
		result.Success = false
		result.Error = err.Error()
		result.CompletedAt = time.Now()
		if trace != nil {
			trace.End(false, nil, map[string]interface{}{"error": err.Error()})
		}
		return result, nil
	}

	nodeResults := o.cluster.Execute(ctx, batches, o.invoker(trace))

	for i, nr := range nodeResults {
		success := nr.Status == NodeResultSuccess
		q := qualityFromConfidence(nr.Confidence)
		result.AddPhase(workflow.PhaseResult{
			PhaseName:    fmt.Sprintf("package-%d", i+1),
			RoleID:       nr.NodeID,
			OutputText:   nr.Result,
			Success:      success,
			TimeMS:       nr.MetricsTimeMS,
			TokensUsed:   nr.MetricsTokens,
			CostUSD:      nr.MetricsCostUSD,
			QualityScore: &q,
		})
	}

	consensus := BuildConsensus(nodeResults, o.cluster.Snapshot(), o.cfg.SimilarityFn, o.cfg.SimilarityThreshold)

	result.Success = consensus.Achieved
	score := int(consensus.Level * 100)
	result.OverallQualityScore = &score
	result.CompletedAt = time.Now()
	result.Metadata = map[string]interface{}{
		"consensus_type":    consensus.Type,
		"consensus_level":   consensus.Level,
		"final_result":      consensus.FinalResult,
		"minority_reports":  len(consensus.MinorityReports),
		"recommendations":   recommendations(consensus),
	}

	if trace != nil {
		trace.End(result.Success, result.OverallQualityScore, map[string]interface{}{
			"consensus_type": string(consensus.Type),
		})
	}
	return result, nil
}

// invoker builds the function the Cluster calls for each (node, package)
// attempt: one ResilientAgent per node's model, invoked with the package's
// input as the prompt.
func (o *Orchestrator) invoker(trace *observability.Trace) Invoker {
	return func(ctx context.Context, node NodeCapabilities, pkg WorkPackage) NodeResult {
		start := time.Now()
		client, ok := o.cfg.Clients[node.Model]
		if !ok {
			return NodeResult{
				WorkPackageID: pkg.ID,
				NodeID:        node.NodeID,
				Status:        NodeResultFailure,
				Errors:        []string{fmt.Sprintf("no client configured for model %q", node.Model)},
				Timestamp:     start,
			}
		}

		a, err := agent.New(agent.Config{
			AgentID:    node.NodeID,
			Fallbacks:  []agent.FallbackSlot{{ModelID: node.Model, Client: client}},
			MaxRetries: o.cfg.AgentMaxRetries,
			Ledger:     o.cfg.Ledger,
			Logger:     o.cfg.Logger,
		})
		if err != nil {
			return NodeResult{WorkPackageID: pkg.ID, NodeID: node.NodeID, Status: NodeResultFailure, Errors: []string{err.Error()}, Timestamp: start}
		}

		res := a.Invoke(ctx, trace, []core.Message{{Role: "user", Content: pkg.Inputs}}, "", 0, 0)

		status := NodeResultSuccess
		var errs []string
		if !res.Success {
			status = NodeResultFailure
			if ctx.Err() != nil {
				status = NodeResultTimeout
			}
			if res.Err != nil {
				errs = append(errs, res.Err.Error())
			}
		}

		return NodeResult{
			WorkPackageID:  pkg.ID,
			NodeID:         node.NodeID,
			Status:         status,
			Result:         res.Content,
			Structured:     structuredResult(res.Content),
			Confidence:     confidenceFor(status),
			MetricsTimeMS:  time.Since(start).Milliseconds(),
			MetricsTokens:  res.InputTokens + res.OutputTokens,
			MetricsCostUSD: res.CostUSD,
			Timestamp:      time.Now(),
			Errors:         errs,
		}
	}
}

// structuredResult attempts to parse a node's raw text as a single JSON
// object, the same dict-vs-string distinction
// parallel_development_orchestrator.py's _is_code_result draws at runtime
// rather than requiring the caller to declare a result's shape up front.
// Anything that isn't a JSON object — plain prose, a JSON array, a bare
// number — is left for the string comparator instead.
func structuredResult(content string) map[string]interface{} {
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(content), &m); err != nil {
		return nil
	}
	return m
}

func confidenceFor(status NodeResultStatus) float64 {
	if status == NodeResultSuccess {
		return 0.9
	}
	return 0.0
}

func qualityFromConfidence(confidence float64) int {
	return int(confidence * 100)
}

// recommendations derives a short, rule-driven set of follow-up
// suggestions from the consensus outcome rather than generating prose
// with another model call.
func recommendations(c ConsensusResult) []string {
	var recs []string
	switch c.Type {
	case ConsensusNone:
		recs = append(recs, "no consensus reached; re-run with more nodes or review minority reports manually")
	case ConsensusWeak:
		recs = append(recs, "only weak consensus reached; consider a tie-breaking review before accepting the result")
	}
	if len(c.MinorityReports) > 0 {
		recs = append(recs, fmt.Sprintf("%d minority report(s) exceeded the reporting threshold and should be reviewed", len(c.MinorityReports)))
	}
	if len(c.Disagreements) > 0 {
		recs = append(recs, "top two result groups disagree; see disagreements for detail")
	}
	return recs
}
