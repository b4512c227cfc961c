package progressive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brightloom/orchestra/agent"
	"github.com/brightloom/orchestra/core"
	"github.com/brightloom/orchestra/ledger"
	"github.com/brightloom/orchestra/observability"
	"github.com/brightloom/orchestra/validation"
	"github.com/brightloom/orchestra/workflow"
)

// codeIndicators mirrors the Python tracker's "does this look like code"
// heuristic: presence of any of these tokens plus a minimum length.
var codeIndicators = []string{"def ", "class ", "import", "function ", "const ", "var ", "let ", "export "}

func looksLikeCode(s string) bool {
	if len(s) <= 50 {
		return false
	}
	for _, tok := range codeIndicators {
		if strings.Contains(s, tok) {
			return true
		}
	}
	return false
}

// Config wires one Orchestrator instance.
type Config struct {
	Tiers               []Tier
	Clients             TierClients
	QualityTarget       int
	MaxEscalations      int
	Ledger              *ledger.Ledger
	Emitter             *observability.Emitter
	Logger              core.Logger
	Validators          *validation.Registry
	ValidatorName       string // registry key consulted when the output looks like code
	AgentMaxRetries     int
	SameTierRefinements int // rounds validation.Run gets to regenerate at the same tier with feedback before giving up to the next tier
}

func (c Config) withDefaults() Config {
	if len(c.Tiers) == 0 {
		c.Tiers = DefaultTiers()
	}
	if c.QualityTarget <= 0 {
		c.QualityTarget = 90
	}
	if c.MaxEscalations <= 0 {
		c.MaxEscalations = 3
	}
	if c.AgentMaxRetries <= 0 {
		c.AgentMaxRetries = 2
	}
	if c.ValidatorName == "" {
		c.ValidatorName = "heuristic"
	}
	if c.SameTierRefinements <= 0 {
		c.SameTierRefinements = 2
	}
	if c.Logger == nil {
		c.Logger = &core.NoOpLogger{}
	}
	return c
}

// Orchestrator is the Progressive Tier Orchestrator.
type Orchestrator struct {
	cfg Config
}

// New builds an Orchestrator from cfg.
func New(cfg Config) *Orchestrator {
	return &Orchestrator{cfg: cfg.withDefaults()}
}

// Name identifies this orchestrator to the Master Router.
func (o *Orchestrator) Name() string { return "progressive" }

type tierAttempt struct {
	tier     Tier
	output   string
	quality  int
	cost     float64
	tokens   int
	timeMS   int64
	success  bool
	errMsg   string
	report   *workflow.ValidationReport
}

// Execute tries tiers in order, escalating only while the previous tier's
// estimated quality falls short of cfg.QualityTarget, and returns the
// best-scoring attempt annotated with cost-savings-vs-baseline metadata.
func (o *Orchestrator) Execute(task workflow.Task) (*workflow.WorkflowResult, error) {
	ctx := context.Background()
	var trace *observability.Trace
	if o.cfg.Emitter != nil {
		trace = o.cfg.Emitter.StartTrace("progressive", map[string]interface{}{
			"task_id":        task.ID,
			"quality_target": o.cfg.QualityTarget,
		})
	}

	start := time.Now()
	result := &workflow.WorkflowResult{
		Task:         task,
		Context:      task.Context,
		WorkflowUsed: "progressive",
		StartedAt:    start,
	}

	var attempts []tierAttempt
	var best *tierAttempt

	maxTiers := o.cfg.MaxEscalations + 1
	for i, tier := range o.cfg.Tiers {
		if i >= maxTiers {
			break
		}
		if tier.MaxQualityCap < o.cfg.QualityTarget {
			continue
		}

		at := o.attemptTier(ctx, trace, task, tier)
		attempts = append(attempts, at)

		result.AddPhase(workflow.PhaseResult{
			PhaseName:    fmt.Sprintf("tier:%s", tier.Name),
			RoleID:       "Developer",
			OutputText:   at.output,
			Success:      at.success,
			TimeMS:       at.timeMS,
			TokensUsed:   at.tokens,
			CostUSD:      at.cost,
			ModelUsed:    tier.ModelID,
			QualityScore: intPtr(at.quality),
			Iteration:    i + 1,
			Error:        at.errMsg,
		})

		if best == nil || at.quality > best.quality {
			a := at
			best = &a
		}

		if at.quality >= o.cfg.QualityTarget {
			if trace != nil {
				trace.Emit(observability.EventQualityThresholdPassed, "progressive-orchestrator", observability.SeverityInfo,
					fmt.Sprintf("quality target met at %s", tier.Name), map[string]interface{}{"tier": tier.Name, "quality": at.quality})
			}
			break
		}

		if i == len(o.cfg.Tiers)-1 {
			break
		}

		next := o.cfg.Tiers[i+1]
		if trace != nil {
			trace.Emit(observability.EventModelFallback, "progressive-orchestrator", observability.SeverityWarn,
				fmt.Sprintf("escalating from %s to %s", tier.Name, next.Name),
				map[string]interface{}{"from_tier": tier.Name, "to_tier": next.Name, "reason": fmt.Sprintf("quality %d < target %d", at.quality, o.cfg.QualityTarget)})
		}
	}

	result.CompletedAt = time.Now()

	if best == nil {
		result.Success = false
		result.Error = "progressive: every tier failed"
		if trace != nil {
			trace.End(false, nil, nil)
		}
		return result, nil
	}

	result.Success = best.quality >= o.cfg.QualityTarget
	result.OverallQualityScore = intPtr(best.quality)

	baselineCost, savingsUSD, savingsPct := costSavings(attempts, o.cfg.Tiers)
	result.Metadata = map[string]interface{}{
		"tiers_tried":          len(attempts),
		"final_tier":           attempts[len(attempts)-1].tier.Name,
		"escalated":            len(attempts) > 1,
		"baseline_cost_usd":    baselineCost,
		"cost_savings_usd":     savingsUSD,
		"cost_savings_percent": savingsPct,
	}

	if trace != nil {
		trace.End(result.Success, result.OverallQualityScore, map[string]interface{}{
			"tiers_tried": len(attempts),
			"final_tier":  attempts[len(attempts)-1].tier.Name,
		})
	}
	return result, nil
}

// attemptTier runs the Refinement Loop (validation.Run) against a single
// tier's model: it generates, validates (consulting the registry validator
// only when the artifact looks like code), and — while the estimated
// quality falls short of the quality target — regenerates with the
// prior findings folded into the prompt, up to SameTierRefinements rounds,
// before handing the best-scoring attempt back to Execute's tier-escalation
// loop. The two loops operate on different axes: this one holds the model
// fixed and retries with feedback, Execute's escalates to a stronger model
// entirely once this one gives up.
func (o *Orchestrator) attemptTier(ctx context.Context, trace *observability.Trace, task workflow.Task, tier Tier) tierAttempt {
	start := time.Now()

	client, ok := o.cfg.Clients[tier.ModelID]
	if !ok {
		return tierAttempt{tier: tier, errMsg: fmt.Sprintf("no client configured for model %q", tier.ModelID), timeMS: time.Since(start).Milliseconds()}
	}

	a, err := agent.New(agent.Config{
		AgentID:             fmt.Sprintf("progressive-%s", tier.Name),
		Fallbacks:           []agent.FallbackSlot{{ModelID: tier.ModelID, Client: client}},
		MaxRetries:          o.cfg.AgentMaxRetries,
		Ledger:              o.cfg.Ledger,
		Logger:              o.cfg.Logger,
		DefaultTemperature:  0.3,
		DefaultMaxTokens:    4096,
		DefaultSystemPrompt: systemPrompt(task),
	})
	if err != nil {
		return tierAttempt{tier: tier, errMsg: err.Error(), timeMS: time.Since(start).Milliseconds()}
	}

	var cost float64
	var tokens int
	var genErr error

	generator := func(ctx context.Context, in validation.Input) (string, error) {
		prompt := task.Text
		if len(in.Feedback) > 0 {
			prompt = refinementPrompt(task.Text, in.PreviousAttempt, in.Feedback)
		}
		res := a.Invoke(ctx, trace, []core.Message{{Role: "user", Content: prompt}}, "", 0, 0)
		cost += res.CostUSD
		tokens += res.InputTokens + res.OutputTokens
		if !res.Success {
			if res.Err != nil {
				genErr = res.Err
			}
			return "", fmt.Errorf("progressive: tier %s generation failed", tier.Name)
		}
		return res.Content, nil
	}

	validator := func(ctx context.Context, artifact string, level validation.Level, taskCtx map[string]interface{}) (*workflow.ValidationReport, error) {
		var report *workflow.ValidationReport
		if o.cfg.Validators != nil && looksLikeCode(artifact) {
			if v, ok := o.cfg.Validators.Get(o.cfg.ValidatorName); ok {
				if r, err := v(ctx, artifact, level, taskCtx); err == nil {
					report = r
				}
			}
		}
		quality := estimateQuality(artifact, report, tier)
		status := "fail"
		if quality >= o.cfg.QualityTarget {
			status = "pass"
		}
		var findings []workflow.Finding
		if report != nil {
			findings = report.Findings
		}
		return &workflow.ValidationReport{Status: status, Score: quality, Findings: findings, Level: string(level)}, nil
	}

	outcome, err := validation.Run(ctx, trace, fmt.Sprintf("progressive-%s", tier.Name), generator, validator,
		validation.Input{Task: task.Text, Context: task.Context}, validation.LevelQuick, o.cfg.QualityTarget, o.cfg.SameTierRefinements)
	if err != nil {
		errMsg := err.Error()
		if genErr != nil {
			errMsg = genErr.Error()
		}
		return tierAttempt{tier: tier, errMsg: errMsg, cost: cost, tokens: tokens, timeMS: time.Since(start).Milliseconds()}
	}

	return tierAttempt{
		tier:    tier,
		output:  outcome.Artifact,
		quality: outcome.Report.Score,
		cost:    cost,
		tokens:  tokens,
		timeMS:  time.Since(start).Milliseconds(),
		success: true,
		report:  outcome.Report,
	}
}

// refinementPrompt folds validator findings from the previous attempt into
// the next generation round, the same feedback-in-prompt shape
// buildPrompt uses for the Specialized Roles Orchestrator's self-correction
// escalation, adapted here to a single flat task description rather than a
// role-specific one.
func refinementPrompt(task, previousAttempt string, feedback []workflow.Finding) string {
	var issues strings.Builder
	for _, f := range feedback {
		fmt.Fprintf(&issues, "- [%s] %s: %s\n", f.Severity, f.Issue, f.Recommendation)
	}
	return fmt.Sprintf(`Your task: %s

Your previous attempt:
%s

The previous attempt had these issues:
%s
Revise your attempt to address every issue above. Return only the implementation.`, task, previousAttempt, issues.String())
}

func systemPrompt(task workflow.Task) string {
	language, _ := task.Context["language"].(string)
	if language == "" {
		language = "the appropriate"
	}
	return fmt.Sprintf(`You are an expert %s developer.

Your task: %s

Requirements:
- Write clean, maintainable code
- Include error handling
- Add comments where the intent isn't obvious
- Return only the implementation`, language, task.Text)
}

// costSavings compares the actual spend across attempts against a
// baseline of having run every attempt at the configured baseline tier
// (spec.md: "always use tier-2").
func costSavings(attempts []tierAttempt, tiers []Tier) (baseline, savings, savingsPct float64) {
	if len(attempts) == 0 || baselineTierIndex >= len(tiers) {
		return 0, 0, 0
	}
	baselineTier := tiers[baselineTierIndex]

	var actual float64
	var totalTokens int
	for _, at := range attempts {
		actual += at.cost
		totalTokens += at.tokens
	}

	// Assume a 60/40 input/output token split, matching the source's
	// baseline estimate, since per-attempt input/output isn't tracked
	// separately here.
	baseline = (float64(totalTokens)*0.6*baselineTier.InputPerMillion +
		float64(totalTokens)*0.4*baselineTier.OutputPerMillion) / 1_000_000

	savings = baseline - actual
	if baseline > 0 {
		savingsPct = savings / baseline * 100
	}
	return baseline, savings, savingsPct
}

func intPtr(n int) *int { return &n }
