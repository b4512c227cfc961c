package metrics

// Analytics is the roll-up view over a set of Records, computed fresh on
// every read rather than maintained incrementally alongside the store.
type Analytics struct {
	TotalWorkflows      int     `json:"total_workflows"`
	SuccessfulWorkflows int     `json:"successful_workflows"`
	SuccessRate         float64 `json:"success_rate"`

	TotalCostUSD      float64 `json:"total_cost_usd"`
	AverageCostUSD    float64 `json:"average_cost_usd"`
	MinCostUSD        float64 `json:"min_cost_usd"`
	MaxCostUSD        float64 `json:"max_cost_usd"`
	SelfCorrectionCostUSD float64 `json:"self_correction_cost_usd"`

	TotalTimeMS       int64   `json:"total_time_ms"`
	AverageTimeMS     float64 `json:"average_time_ms"`
	TotalTokens       int     `json:"total_tokens"`
	AverageTokens     float64 `json:"average_tokens"`

	AverageQualityScore float64       `json:"average_quality_score"`
	QualityDistribution QualityBuckets `json:"quality_distribution"`

	WorkflowsWithSelfCorrection int     `json:"workflows_with_self_correction"`
	SelfCorrectionRate         float64 `json:"self_correction_rate"`
	AverageIterations          float64 `json:"average_iterations"`
	PhasesMostCorrected        map[string]int `json:"phases_most_corrected,omitempty"`

	PhaseBreakdown map[string]PhaseRollup `json:"phase_breakdown,omitempty"`
}

// QualityBuckets buckets overall quality scores the same way the Python
// tracker's report did: excellent/good/fair/poor.
type QualityBuckets struct {
	Excellent int `json:"excellent_90_100"`
	Good      int `json:"good_80_89"`
	Fair      int `json:"fair_70_79"`
	Poor      int `json:"poor_below_70"`
}

// PhaseRollup aggregates one phase name's metrics across every Record that
// reported it.
type PhaseRollup struct {
	TotalCostUSD        float64 `json:"total_cost_usd"`
	AverageCostUSD       float64 `json:"average_cost_usd"`
	TotalTimeMS          int64   `json:"total_time_ms"`
	AverageTimeMS        float64 `json:"average_time_ms"`
	TotalTokens          int     `json:"total_tokens"`
	AverageTokens        float64 `json:"average_tokens"`
	AverageQualityScore *float64 `json:"average_quality_score,omitempty"`
}

// Analyze computes roll-ups over records, optionally limited to the last n
// (n<=0 means all).
func Analyze(records []Record, lastN int) Analytics {
	if lastN > 0 && lastN < len(records) {
		records = records[len(records)-lastN:]
	}

	var a Analytics
	a.TotalWorkflows = len(records)
	if a.TotalWorkflows == 0 {
		return a
	}

	phaseCosts := make(map[string][]float64)
	phaseTimes := make(map[string][]int64)
	phaseTokens := make(map[string][]int)
	phaseScores := make(map[string][]int)
	phaseCorrections := make(map[string]int)

	var qualityScores []int
	var totalIterations int

	a.MinCostUSD = records[0].TotalCostUSD
	a.MaxCostUSD = records[0].TotalCostUSD

	for _, r := range records {
		if r.Success {
			a.SuccessfulWorkflows++
		}
		a.TotalCostUSD += r.TotalCostUSD
		a.SelfCorrectionCostUSD += r.SelfCorrectionCostUSD
		a.TotalTimeMS += r.TotalTimeMS
		a.TotalTokens += r.TotalTokens
		totalIterations += r.TotalIterations

		if r.TotalCostUSD < a.MinCostUSD {
			a.MinCostUSD = r.TotalCostUSD
		}
		if r.TotalCostUSD > a.MaxCostUSD {
			a.MaxCostUSD = r.TotalCostUSD
		}

		if r.OverallQualityScore != nil {
			qualityScores = append(qualityScores, *r.OverallQualityScore)
		}
		if len(r.PhasesSelfCorrected) > 0 {
			a.WorkflowsWithSelfCorrection++
			for _, p := range r.PhasesSelfCorrected {
				phaseCorrections[p]++
			}
		}

		for name, pm := range r.Phases {
			phaseCosts[name] = append(phaseCosts[name], pm.CostUSD)
			phaseTimes[name] = append(phaseTimes[name], pm.TimeMS)
			phaseTokens[name] = append(phaseTokens[name], pm.Tokens)
			if pm.QualityScore != nil {
				phaseScores[name] = append(phaseScores[name], *pm.QualityScore)
			}
		}
	}

	a.SuccessRate = float64(a.SuccessfulWorkflows) / float64(a.TotalWorkflows)
	a.AverageCostUSD = a.TotalCostUSD / float64(a.TotalWorkflows)
	a.AverageTimeMS = float64(a.TotalTimeMS) / float64(a.TotalWorkflows)
	a.AverageTokens = float64(a.TotalTokens) / float64(a.TotalWorkflows)
	a.AverageIterations = float64(totalIterations) / float64(a.TotalWorkflows)
	a.SelfCorrectionRate = float64(a.WorkflowsWithSelfCorrection) / float64(a.TotalWorkflows)

	if len(qualityScores) > 0 {
		sum := 0
		for _, s := range qualityScores {
			sum += s
			switch {
			case s >= 90:
				a.QualityDistribution.Excellent++
			case s >= 80:
				a.QualityDistribution.Good++
			case s >= 70:
				a.QualityDistribution.Fair++
			default:
				a.QualityDistribution.Poor++
			}
		}
		a.AverageQualityScore = float64(sum) / float64(len(qualityScores))
	}

	if len(phaseCorrections) > 0 {
		a.PhasesMostCorrected = phaseCorrections
	}

	a.PhaseBreakdown = make(map[string]PhaseRollup, len(phaseCosts))
	for name, costs := range phaseCosts {
		n := float64(len(costs))
		var totalCost float64
		for _, c := range costs {
			totalCost += c
		}
		var totalTime int64
		for _, t := range phaseTimes[name] {
			totalTime += t
		}
		var totalTok int
		for _, tk := range phaseTokens[name] {
			totalTok += tk
		}
		rollup := PhaseRollup{
			TotalCostUSD:  totalCost,
			AverageCostUSD: totalCost / n,
			TotalTimeMS:   totalTime,
			AverageTimeMS: float64(totalTime) / n,
			TotalTokens:   totalTok,
			AverageTokens: float64(totalTok) / n,
		}
		if scores := phaseScores[name]; len(scores) > 0 {
			sum := 0
			for _, s := range scores {
				sum += s
			}
			avg := float64(sum) / float64(len(scores))
			rollup.AverageQualityScore = &avg
		}
		a.PhaseBreakdown[name] = rollup
	}

	return a
}
