// Package parallel implements the Parallel Cluster Orchestrator: it splits
// a task into independent work packages arranged in dependency batches,
// fans each batch out across a pool of nodes with backup retry chains,
// and builds a Byzantine-tolerant consensus result from the node outputs.
package parallel

import "time"

// WorkPackageStatus is a work package's position in its lifecycle.
type WorkPackageStatus string

const (
	WPPending   WorkPackageStatus = "pending"
	WPExecuting WorkPackageStatus = "executing"
	WPCompleted WorkPackageStatus = "completed"
	WPFailed    WorkPackageStatus = "failed"
)

// ComputeEstimate is the Task Splitter's guess at a work package's resource
// footprint, used only for logging/reporting — nodes are not scheduled by
// it in this implementation.
type ComputeEstimate struct {
	Tokens    int
	MemMB     int
	RuntimeS  float64
}

// WorkPackage is one unit of parallel work, produced by the Task Splitter
// and consumed by Execute.
type WorkPackage struct {
	ID                  string
	Name                string
	Type                string
	Dependencies        []string
	Inputs              string
	ExpectedOutputShape string
	Compute             ComputeEstimate
	AssignedNode        string
	BackupNodes         []string
	Priority            int
	TimeoutS            float64
	Status              WorkPackageStatus
	StartTS             *time.Time
	EndTS               *time.Time
	RetryCount          int
}

// NodeStatus is a cluster node's availability.
type NodeStatus string

const (
	NodeAvailable NodeStatus = "available"
	NodeBusy      NodeStatus = "busy"
	NodeOffline   NodeStatus = "offline"
)

// NodeCapabilities describes one cluster node: the model it runs, how much
// concurrent work it can take, and a reliability score the consensus
// builder weighs results by.
type NodeCapabilities struct {
	NodeID          string
	Model           string
	MaxParallel     int
	Specializations []string
	ReliabilityScore float64 // 0.0-1.0, EMA-updated after every result
	AvgResponseTimeMS float64
	Location        string
	Status          NodeStatus
}

// NodeResultStatus is the outcome of one node's attempt at one package.
type NodeResultStatus string

const (
	NodeResultSuccess NodeResultStatus = "success"
	NodeResultFailure NodeResultStatus = "failure"
	NodeResultTimeout NodeResultStatus = "timeout"
)

// NodeResult is what a node produces for one work package. Result always
// carries the raw text a node returned; Structured is additionally
// populated when that text parses as a JSON object, so the consensus
// builder can compare same-shape structured outputs key-by-key instead of
// falling back to a string comparator for every result type.
type NodeResult struct {
	WorkPackageID       string
	NodeID              string
	Status              NodeResultStatus
	Result              string
	Structured          map[string]interface{}
	Confidence          float64
	MetricsTimeMS       int64
	MetricsTokens       int
	MetricsCostUSD      float64
	ValidationSelfCheck bool
	Timestamp           time.Time
	Checksum            string
	Errors              []string
	Warnings            []string
}

// ConsensusType names the consensus level the Byzantine builder reached.
type ConsensusType string

const (
	ConsensusStrong ConsensusType = "strong" // > 0.67 agreement
	ConsensusWeak   ConsensusType = "weak"   // > 0.5 agreement
	ConsensusNone   ConsensusType = "none"
)

// ConsensusGroup is one cluster of pairwise-similar results.
type ConsensusGroup struct {
	Representative string
	Members        []string // node ids
	Weight         float64  // normalized sum of reliability*confidence
}

// Disagreement records two groups whose representative results diverge,
// surfaced so a human reviewer can see exactly what split the cluster.
type Disagreement struct {
	GroupAIndex int
	GroupBIndex int
	Detail      string
}

// MinorityReport flags a non-majority group whose weight still exceeded
// the reporting floor (0.1), so dissenting results aren't silently
// dropped just because they lost the vote.
type MinorityReport struct {
	GroupIndex int
	Weight     float64
	Result     string
}

// ConsensusResult is the Byzantine Consensus Builder's output.
type ConsensusResult struct {
	Achieved        bool
	Type            ConsensusType
	Level           float64 // winning group's normalized weight
	FinalResult     string
	Groups          []ConsensusGroup
	Disagreements   []Disagreement
	MinorityReports []MinorityReport
}
