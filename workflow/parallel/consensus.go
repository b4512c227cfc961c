package parallel

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Similarity compares two plain-text node results, returning a 0.0-1.0
// score. It only governs the string-vs-string case: structured results
// (NodeResult.Structured populated on both sides) are compared by
// StructuredSimilarity instead, and identical literals always score 1.0
// regardless of which comparator is in play — BuildConsensus dispatches
// between the two, so callers only need to pick the string strategy that
// fits their result shape (prose, sequence, literal).
type Similarity func(a, b string) float64

// SequenceSimilarity is a character-aligned match ratio: twice the length
// of the longest common subsequence of runes, divided by the combined
// length of both strings — the same ratio difflib.SequenceMatcher.ratio()
// derives from its matching blocks, generalized here to rune sequences
// rather than requiring a specific diff library.
func SequenceSimilarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1.0
	}
	m := lcsLength(ra, rb)
	return 2 * float64(m) / float64(len(ra)+len(rb))
}

// lcsLength computes the length of the longest common subsequence of a and
// b with the standard O(len(a)*len(b)) dynamic program, keeping only the
// previous and current rows.
func lcsLength(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// ExactSimilarity is a strict comparator: 1.0 if the trimmed strings are
// byte-identical, 0.0 otherwise. Useful when any deviation is meaningful,
// e.g. a computed numeric answer that must match exactly to count as
// agreement.
func ExactSimilarity(a, b string) float64 {
	if strings.TrimSpace(a) == strings.TrimSpace(b) {
		return 1.0
	}
	return 0.0
}

// StructuredSimilarity is the comparator for structured (JSON-object)
// results: Jaccard over the two maps' key sets, combined with value
// equality on the intersection, so two results that share most keys but
// disagree on a value score lower than two that agree on every shared key.
// Grounded on parallel_development_orchestrator.py's _is_code_result, which
// treats a dict result as a distinct comparable shape from a bare string —
// the Python-side evidence that structured and textual results need their
// own comparator rather than being flattened to strings first.
func StructuredSimilarity(a, b map[string]interface{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}

	keys := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		keys[k] = struct{}{}
	}
	union := len(keys)
	for k := range b {
		if _, ok := keys[k]; !ok {
			union++
		}
	}
	if union == 0 {
		return 1.0
	}

	inter, equal := 0, 0
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			continue
		}
		inter++
		if reflect.DeepEqual(av, bv) {
			equal++
		}
	}

	keyJaccard := float64(inter) / float64(union)
	if inter == 0 {
		return keyJaccard
	}
	return keyJaccard * (float64(equal) / float64(inter))
}

// resultSimilarity dispatches a pair of node results to the comparator
// their shape calls for: identical literals always score 1.0 (spec.md
// §4.8's blanket rule), both-structured pairs go through
// StructuredSimilarity, a structured/plain mismatch never matches (they
// answered in different shapes), and the remaining plain-string pairs use
// the caller-supplied sim.
func resultSimilarity(seed, candidate NodeResult, sim Similarity) float64 {
	if strings.TrimSpace(seed.Result) == strings.TrimSpace(candidate.Result) {
		return 1.0
	}
	switch {
	case seed.Structured != nil && candidate.Structured != nil:
		return StructuredSimilarity(seed.Structured, candidate.Structured)
	case (seed.Structured != nil) != (candidate.Structured != nil):
		return 0.0
	default:
		return sim(seed.Result, candidate.Result)
	}
}

// BuildConsensus groups results by pairwise similarity (greedy-seeded: a
// result joins the first existing group whose seed meets or exceeds threshold, or
// starts a new group), weighs each group by the summed
// reliability*confidence of its members normalized to 1 across all
// results, and classifies the outcome as strong (>0.67), weak (>0.5), or
// none.
func BuildConsensus(results []NodeResult, nodes []NodeCapabilities, sim Similarity, threshold float64) ConsensusResult {
	if sim == nil {
		sim = SequenceSimilarity
	}
	if threshold <= 0 {
		threshold = 0.85
	}

	reliability := make(map[string]float64, len(nodes))
	for _, n := range nodes {
		reliability[n.NodeID] = n.ReliabilityScore
	}

	successful := make([]NodeResult, 0, len(results))
	for _, r := range results {
		if r.Status == NodeResultSuccess {
			successful = append(successful, r)
		}
	}
	if len(successful) == 0 {
		return ConsensusResult{Achieved: false, Type: ConsensusNone}
	}

	type seededGroup struct {
		seed    NodeResult
		members []NodeResult
	}
	var groups []seededGroup

	for _, r := range successful {
		placed := false
		for gi := range groups {
			if resultSimilarity(groups[gi].seed, r, sim) >= threshold {
				groups[gi].members = append(groups[gi].members, r)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, seededGroup{seed: r, members: []NodeResult{r}})
		}
	}

	rawWeights := make([]float64, len(groups))
	total := 0.0
	for gi, g := range groups {
		w := 0.0
		for _, m := range g.members {
			rel := reliability[m.NodeID]
			if rel == 0 {
				rel = 0.5 // unknown node: assume middling reliability
			}
			conf := m.Confidence
			if conf == 0 {
				conf = 1.0
			}
			w += rel * conf
		}
		rawWeights[gi] = w
		total += w
	}

	consensusGroups := make([]ConsensusGroup, len(groups))
	for gi, g := range groups {
		weight := 0.0
		if total > 0 {
			weight = rawWeights[gi] / total
		}
		consensusGroups[gi] = ConsensusGroup{
			Representative: bestRepresentative(g.members, reliability),
			Members:        memberNodeIDs(g.members),
			Weight:         weight,
		}
	}

	order := make([]int, len(consensusGroups))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return consensusGroups[order[i]].Weight > consensusGroups[order[j]].Weight
	})

	top := consensusGroups[order[0]]
	consensusType := ConsensusNone
	switch {
	case top.Weight > 0.67:
		consensusType = ConsensusStrong
	case top.Weight > 0.5:
		consensusType = ConsensusWeak
	}

	var disagreements []Disagreement
	if len(order) >= 2 {
		a, b := consensusGroups[order[0]], consensusGroups[order[1]]
		disagreements = append(disagreements, Disagreement{
			GroupAIndex: order[0],
			GroupBIndex: order[1],
			Detail:      fmt.Sprintf("top group (weight %.2f) diverges from runner-up (weight %.2f)", a.Weight, b.Weight),
		})
	}

	var minority []MinorityReport
	for _, idx := range order[1:] {
		if consensusGroups[idx].Weight > 0.1 {
			minority = append(minority, MinorityReport{
				GroupIndex: idx,
				Weight:     consensusGroups[idx].Weight,
				Result:     consensusGroups[idx].Representative,
			})
		}
	}

	return ConsensusResult{
		Achieved:        consensusType != ConsensusNone,
		Type:            consensusType,
		Level:           top.Weight,
		FinalResult:     top.Representative,
		Groups:          consensusGroups,
		Disagreements:   disagreements,
		MinorityReports: minority,
	}
}

// bestRepresentative picks the member with the highest reliability*confidence
// within a group to stand in as its synthesized result, rather than
// attempting any textual merge across near-duplicate outputs.
func bestRepresentative(members []NodeResult, reliability map[string]float64) string {
	best := members[0]
	bestScore := -1.0
	for _, m := range members {
		rel := reliability[m.NodeID]
		if rel == 0 {
			rel = 0.5
		}
		conf := m.Confidence
		if conf == 0 {
			conf = 1.0
		}
		score := rel * conf
		if score > bestScore {
			bestScore, best = score, m
		}
	}
	return best.Result
}

func memberNodeIDs(members []NodeResult) []string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.NodeID
	}
	return ids
}
