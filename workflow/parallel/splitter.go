package parallel

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/brightloom/orchestra/core"
)

var numberedListItem = regexp.MustCompile(`(?m)^\s*(?:[0-9]+[.):]|[-*])\s+(.+)$`)

// Split decomposes task text into work packages. It first looks for an
// explicit numbered or bulleted list (the common shape a task author uses
// to enumerate subcomponents); if none is found, it falls back to
// splitting on the first of the separators "; ", ", and " and " and " that
// yields at least two non-empty parts, and if none does, returns the whole
// task as a single package.
//
// Synthesized dependencies mirror the spec's "every third package waits on
// the prior group" rule: packages are chunked into groups of three, and
// every package after the first group depends on all packages in the
// group immediately before it. This keeps later work honest about needing
// earlier work to exist without claiming any real semantic dependency
// analysis was done.
func Split(taskID, taskText string) []WorkPackage {
	items := splitItems(taskText)
	packages := make([]WorkPackage, len(items))
	for i, item := range items {
		packages[i] = WorkPackage{
			ID:       fmt.Sprintf("%s-wp%d", taskID, i+1),
			Name:     summarize(item),
			Type:     "implementation",
			Inputs:   item,
			Priority: i,
			Status:   WPPending,
			TimeoutS: 120,
			Compute:  ComputeEstimate{Tokens: estimateTokens(item), MemMB: 256, RuntimeS: 30},
		}
	}
	assignSyntheticDependencies(packages)
	return packages
}

func splitItems(text string) []string {
	if matches := numberedListItem.FindAllStringSubmatch(text, -1); len(matches) >= 2 {
		items := make([]string, 0, len(matches))
		for _, m := range matches {
			items = append(items, strings.TrimSpace(m[1]))
		}
		return items
	}

	for _, sep := range []string{"; ", ", and ", " and "} {
		if strings.Count(text, sep) >= 1 {
			parts := strings.Split(text, sep)
			if len(parts) >= 2 {
				out := make([]string, 0, len(parts))
				for _, p := range parts {
					if p = strings.TrimSpace(p); p != "" {
						out = append(out, p)
					}
				}
				if len(out) >= 2 {
					return out
				}
			}
		}
	}

	return []string{strings.TrimSpace(text)}
}

func summarize(item string) string {
	const maxLen = 48
	item = strings.TrimSpace(item)
	if len(item) <= maxLen {
		return item
	}
	return item[:maxLen] + "..."
}

func estimateTokens(item string) int {
	// rough token estimate: ~4 characters per token, plus fixed overhead
	// for the system prompt and response budget a real invocation pays.
	return len(item)/4 + 500
}

// assignSyntheticDependencies groups packages into threes and makes every
// package outside the first group depend on every package in the group
// immediately before it.
func assignSyntheticDependencies(packages []WorkPackage) {
	const groupSize = 3
	for i := range packages {
		groupIdx := i / groupSize
		if groupIdx == 0 {
			continue
		}
		prevGroupStart := (groupIdx - 1) * groupSize
		prevGroupEnd := groupIdx * groupSize
		if prevGroupEnd > len(packages) {
			prevGroupEnd = len(packages)
		}
		for j := prevGroupStart; j < prevGroupEnd; j++ {
			packages[i].Dependencies = append(packages[i].Dependencies, packages[j].ID)
		}
	}
}

// Batch arranges packages into dependency-respecting execution batches
// using Kahn-style topological layering: batch 0 holds every package with
// no unsatisfied dependency, batch 1 holds packages whose dependencies are
// all in batch 0, and so on. Returns an error wrapping
// core.ErrDeadlockDetected if the dependency graph has a cycle.
func Batch(packages []WorkPackage) ([][]WorkPackage, error) {
	if err := checkAcyclic(packages); err != nil {
		return nil, err
	}

	byID := make(map[string]WorkPackage, len(packages))
	remaining := make(map[string][]string, len(packages))
	for _, p := range packages {
		byID[p.ID] = p
		remaining[p.ID] = append([]string{}, p.Dependencies...)
	}

	var batches [][]WorkPackage
	satisfied := make(map[string]bool)

	for len(satisfied) < len(packages) {
		var layer []WorkPackage
		for id, deps := range remaining {
			if satisfied[id] {
				continue
			}
			ready := true
			for _, d := range deps {
				if !satisfied[d] {
					ready = false
					break
				}
			}
			if ready {
				layer = append(layer, byID[id])
			}
		}
		if len(layer) == 0 {
			// shouldn't happen since checkAcyclic already passed, but guard
			// against an inconsistent dependency referencing an unknown id
			return nil, fmt.Errorf("parallel: unsatisfiable dependency set: %w", core.ErrDeadlockDetected)
		}
		for _, p := range layer {
			satisfied[p.ID] = true
		}
		batches = append(batches, layer)
	}

	return batches, nil
}

// checkAcyclic runs a DFS cycle check over the dependency graph (package
// -> depends-on), distinct from the Kahn layering Batch performs, so a
// cyclic graph is rejected before any layering work begins.
func checkAcyclic(packages []WorkPackage) error {
	deps := make(map[string][]string, len(packages))
	for _, p := range packages {
		deps[p.ID] = p.Dependencies
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(packages))

	var visit func(id string) error
	visit = func(id string) error {
		color[id] = gray
		for _, dep := range deps[id] {
			switch color[dep] {
			case gray:
				return fmt.Errorf("parallel: dependency cycle through %s: %w", dep, core.ErrDeadlockDetected)
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		color[id] = black
		return nil
	}

	for id := range deps {
		if color[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// Assign spreads packages round-robin across nodes, capping effective
// parallelism at min(len(nodes), hintCount) and giving each package the
// next two nodes in ring order as backups.
func Assign(packages []WorkPackage, nodes []NodeCapabilities, hintCount int) []WorkPackage {
	if len(nodes) == 0 {
		return packages
	}
	parallelism := len(nodes)
	if hintCount > 0 && hintCount < parallelism {
		parallelism = hintCount
	}
	if parallelism <= 0 {
		parallelism = 1
	}

	out := make([]WorkPackage, len(packages))
	for i, p := range packages {
		nodeIdx := i % parallelism
		p.AssignedNode = nodes[nodeIdx].NodeID
		p.BackupNodes = ringBackups(nodes, nodeIdx, 2)
		out[i] = p
	}
	return out
}

func ringBackups(nodes []NodeCapabilities, from int, count int) []string {
	if len(nodes) <= 1 {
		return nil
	}
	backups := make([]string, 0, count)
	for i := 1; i <= count && i < len(nodes); i++ {
		idx := (from + i) % len(nodes)
		backups = append(backups, nodes[idx].NodeID)
	}
	return backups
}
