package parallel

import (
	"context"
	"sync"
	"time"
)

// reliabilityAlpha is the EMA smoothing factor used to update a node's
// ReliabilityScore after every attempt: new = alpha*outcome + (1-alpha)*old.
const reliabilityAlpha = 0.1

// Invoker runs one work package on one node. Implementations typically
// wrap an agent.ResilientAgent configured for the node's model.
type Invoker func(ctx context.Context, node NodeCapabilities, pkg WorkPackage) NodeResult

// Cluster holds live node capabilities (mutated in place as results come
// in) and runs batches of work packages against them.
type Cluster struct {
	mu    sync.Mutex
	nodes map[string]*NodeCapabilities
}

// NewCluster builds a Cluster from the given node list, copying each into
// internally owned, independently mutable state.
func NewCluster(nodes []NodeCapabilities) *Cluster {
	c := &Cluster{nodes: make(map[string]*NodeCapabilities, len(nodes))}
	for _, n := range nodes {
		n := n
		c.nodes[n.NodeID] = &n
	}
	return c
}

// Snapshot returns a copy of the current node capabilities, reflecting any
// reliability updates applied so far.
func (c *Cluster) Snapshot() []NodeCapabilities {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]NodeCapabilities, 0, len(c.nodes))
	for _, n := range c.nodes {
		out = append(out, *n)
	}
	return out
}

// Execute runs batches in order — packages within a batch run concurrently,
// one goroutine each; a batch only starts once every package in the
// previous batch has finished. Each package first runs on its assigned
// node; on failure or timeout it's retried against each backup node in
// order before being recorded as failed.
func (c *Cluster) Execute(ctx context.Context, batches [][]WorkPackage, invoke Invoker) []NodeResult {
	var results []NodeResult
	for _, batch := range batches {
		var wg sync.WaitGroup
		batchResults := make([]NodeResult, len(batch))
		for i, pkg := range batch {
			wg.Add(1)
			go func(i int, pkg WorkPackage) {
				defer wg.Done()
				batchResults[i] = c.runPackage(ctx, pkg, invoke)
			}(i, pkg)
		}
		wg.Wait()
		results = append(results, batchResults...)
	}
	return results
}

func (c *Cluster) runPackage(ctx context.Context, pkg WorkPackage, invoke Invoker) NodeResult {
	candidates := append([]string{pkg.AssignedNode}, pkg.BackupNodes...)

	timeout := time.Duration(pkg.TimeoutS * float64(time.Second))
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	var last NodeResult
	for _, nodeID := range candidates {
		node := c.nodeOrZero(nodeID)
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		res := invoke(attemptCtx, node, pkg)
		cancel()

		c.updateReliability(nodeID, res.Status == NodeResultSuccess)
		last = res

		if res.Status == NodeResultSuccess {
			return res
		}
	}
	return last
}

func (c *Cluster) nodeOrZero(nodeID string) NodeCapabilities {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.nodes[nodeID]; ok {
		return *n
	}
	return NodeCapabilities{NodeID: nodeID}
}

func (c *Cluster) updateReliability(nodeID string, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.nodes[nodeID]
	if !ok {
		return
	}
	outcome := 0.0
	if success {
		outcome = 1.0
	}
	n.ReliabilityScore = reliabilityAlpha*outcome + (1-reliabilityAlpha)*n.ReliabilityScore
}
