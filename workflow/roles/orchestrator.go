package roles

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

// maxPriorOutputChars bounds how much of a previous phase's output is
// folded into the next phase's prompt, so a verbose Architect plan
// doesn't blow the Developer phase's context budget.
const maxPriorOutputChars = 6000

// Config wires one Orchestrator instance.
type Config struct {
	Roles      [4]Definition
	Clients    ModelClients
	Validators *validation.Registry
	Ledger     *ledger.Ledger
	Emitter    *observability.Emitter
	Logger     core.Logger

	MaxSelfCorrectionIterations int
	QualityThreshold            int
	AllowFullWorkflowCorrection bool

	AgentMaxRetries int
}

func (c Config) withDefaults() Config {
	if c.MaxSelfCorrectionIterations <= 0 {
		c.MaxSelfCorrectionIterations = 2
	}
	if c.QualityThreshold <= 0 {
		c.QualityThreshold = 85
	}
	if c.AgentMaxRetries <= 0 {
		c.AgentMaxRetries = 2
	}
	if c.Logger == nil {
		c.Logger = &core.NoOpLogger{}
	}
	if c.Validators == nil {
		c.Validators = validation.NewRegistry()
	}
	return c
}

// Orchestrator runs the four-phase sequential pipeline.
type Orchestrator struct {
	cfg Config
}

// New builds an Orchestrator. Roles default to DefaultRoles() if cfg.Roles
// is the zero value.
func New(cfg Config) *Orchestrator {
	cfg = cfg.withDefaults()
	if cfg.Roles[0].Name == "" {
		cfg.Roles = DefaultRoles()
	}
	return &Orchestrator{cfg: cfg}
}

// Name identifies this orchestrator to the Master Router.
func (o *Orchestrator) Name() string { return "specialized_roles" }

// Execute runs Architect, Developer, Tester, Reviewer in order, stopping
// immediately (but still returning a fully accounted, non-error result)
// if any phase exhausts its fallback chain.
func (o *Orchestrator) Execute(task workflow.Task) (*workflow.WorkflowResult, error) {
	ctx := context.Background()
	var trace *observability.Trace
	if o.cfg.Emitter != nil {
		trace = o.cfg.Emitter.StartTrace("specialized_roles", map[string]interface{}{"task_id": task.ID})
	}

	result := &workflow.WorkflowResult{
		Task:         task,
		Context:      task.Context,
		WorkflowUsed: "specialized_roles",
		StartedAt:    time.Now(),
	}

	priorOutputs := make(map[RoleType]string)

	for _, role := range o.cfg.Roles {
		phase := o.runPhase(ctx, trace, task, role, priorOutputs)
		result.AddPhase(*phase)

		if !phase.Success {
			result.Success = false
			result.Error = phase.Error
			result.CompletedAt = time.Now()
			if trace != nil {
				trace.End(false, nil, map[string]interface{}{"failed_phase": phase.PhaseName})
			}
			return result, nil
		}
		priorOutputs[role.Type] = phase.OutputText

		if role.Type == RoleReviewer {
			result.OverallQualityScore = phase.QualityScore
		}
	}

	result.Success = true
	result.CompletedAt = time.Now()

	if result.OverallQualityScore != nil && *result.OverallQualityScore < o.cfg.QualityThreshold {
		o.handleBelowThreshold(trace, result)
	}

	if trace != nil {
		trace.End(true, result.OverallQualityScore, nil)
	}
	return result, nil
}

// handleBelowThreshold emits a warn-severity validation event when the
// Reviewer's score is below the workflow threshold. It does not re-run the
// four phases, whether or not AllowFullWorkflowCorrection is set.
func (o *Orchestrator) handleBelowThreshold(trace *observability.Trace, result *workflow.WorkflowResult) {
	if trace != nil {
		trace.Emit(observability.EventValidation, "reviewer", observability.SeverityWarn,
			"overall quality below workflow threshold", map[string]interface{}{
				"score":     *result.OverallQualityScore,
				"threshold": o.cfg.QualityThreshold,
			})
	}
	if !o.cfg.AllowFullWorkflowCorrection {
		return
	}
	// Setting AllowFullWorkflowCorrection performs no re-run and does not
	// change the event emitted above.
}

func (o *Orchestrator) runPhase(ctx context.Context, trace *observability.Trace, task workflow.Task, role Definition, priorOutputs map[RoleType]string) *workflow.PhaseResult {
	prompt := buildPrompt(role, task, priorOutputs, nil)

	a, err := o.buildAgent(role)
	if err != nil {
		return &workflow.PhaseResult{PhaseName: role.Name, RoleID: string(role.Type), Success: false, Error: err.Error()}
	}

	res := a.Invoke(ctx, trace, []core.Message{{Role: "user", Content: prompt}}, role.SystemPrompt, role.Temperature, role.MaxTokens)
	if !res.Success {
		errMsg := ""
		if res.Err != nil {
			errMsg = res.Err.Error()
		}
		return &workflow.PhaseResult{
			PhaseName: role.Name,
			RoleID:    string(role.Type),
			Success:   false,
			Error:     errMsg,
			ModelUsed: role.PrimaryModel,
			TimeMS:    res.LatencyMS,
		}
	}

	phase := &workflow.PhaseResult{
		PhaseName:  role.Name,
		RoleID:     string(role.Type),
		OutputText: res.Content,
		Success:    true,
		TimeMS:     res.LatencyMS,
		TokensUsed: res.InputTokens + res.OutputTokens,
		CostUSD:    res.CostUSD,
		ModelUsed:  res.ModelUsed,
	}

	if role.ValidatorName != "" {
		o.applySelfCorrection(ctx, trace, task, role, phase, priorOutputs)
	}

	return phase
}

// applySelfCorrection runs the phase's validator and, if the score misses
// the bar, climbs the model hierarchy up to MaxSelfCorrectionIterations
// times, retaining whichever attempt scored highest.
func (o *Orchestrator) applySelfCorrection(ctx context.Context, trace *observability.Trace, task workflow.Task, role Definition, phase *workflow.PhaseResult, priorOutputs map[RoleType]string) {
	validator, ok := o.cfg.Validators.Get(role.ValidatorName)
	if !ok {
		validator = validation.Heuristic
	}

	report, err := validator(ctx, phase.OutputText, validation.LevelStandard, task.Context)
	if err != nil {
		return
	}
	phase.ValidationReport = report
	score := report.Score
	phase.QualityScore = intPtr(score)

	if score >= role.MinQualityScore {
		return
	}

	bestArtifact, bestScore, bestReport := phase.OutputText, score, report
	currentModel := role.PrimaryModel
	currentTemp := role.Temperature

	for iter := 0; iter < o.cfg.MaxSelfCorrectionIterations; iter++ {
		nextModel, ok := EscalateModel(currentModel)
		if !ok {
			break
		}
		currentModel = nextModel
		currentTemp *= 0.8

		client, ok := o.cfg.Clients[currentModel]
		if !ok {
			continue
		}
		correctionAgent, err := agent.New(agent.Config{
			AgentID:                fmt.Sprintf("%s-self-correct", role.Type),
			Fallbacks:              []agent.FallbackSlot{{ModelID: currentModel, Client: client}},
			MaxRetries:             o.cfg.AgentMaxRetries,
			Ledger:                 o.cfg.Ledger,
			Logger:                 o.cfg.Logger,
			DefaultMaxTokens:       role.MaxTokens,
			DefaultSystemPrompt:    role.SystemPrompt,
		})
		if err != nil {
			continue
		}

		prompt := buildPrompt(role, task, priorOutputs, bestReport.Findings)
		res := correctionAgent.Invoke(ctx, trace, []core.Message{{Role: "user", Content: prompt}}, role.SystemPrompt, currentTemp, role.MaxTokens)

		phase.TimeMS += res.LatencyMS
		phase.TokensUsed += res.InputTokens + res.OutputTokens
		phase.CostUSD += res.CostUSD
		phase.Iteration++
		phase.SelfCorrected = true

		if !res.Success {
			continue
		}

		correctedReport, err := validator(ctx, res.Content, validation.LevelStandard, task.Context)
		if err != nil {
			continue
		}
		if correctedReport.Score > bestScore {
			bestArtifact, bestScore, bestReport = res.Content, correctedReport.Score, correctedReport
			phase.ModelUsed = currentModel
		}
		if correctedReport.Score >= role.MinQualityScore {
			break
		}
	}

	phase.OutputText = bestArtifact
	phase.ValidationReport = bestReport
	phase.QualityScore = intPtr(bestScore)
}

func (o *Orchestrator) buildAgent(role Definition) (*agent.ResilientAgent, error) {
	slots := make([]agent.FallbackSlot, 0, 1+len(role.FallbackModels))
	if client, ok := o.cfg.Clients[role.PrimaryModel]; ok {
		slots = append(slots, agent.FallbackSlot{ModelID: role.PrimaryModel, Client: client})
	}
	for _, m := range role.FallbackModels {
		if client, ok := o.cfg.Clients[m]; ok {
			slots = append(slots, agent.FallbackSlot{ModelID: m, Client: client})
		}
	}
	if len(slots) == 0 {
		return nil, fmt.Errorf("roles: no client configured for role %s's primary model %q or its fallbacks", role.Name, role.PrimaryModel)
	}
	return agent.New(agent.Config{
		AgentID:             string(role.Type),
		Fallbacks:           slots,
		MaxRetries:          o.cfg.AgentMaxRetries,
		Ledger:              o.cfg.Ledger,
		Logger:              o.cfg.Logger,
		DefaultMaxTokens:    role.MaxTokens,
		DefaultSystemPrompt: role.SystemPrompt,
	})
}

func buildPrompt(role Definition, task workflow.Task, priorOutputs map[RoleType]string, feedback []workflow.Finding) string {
	var b strings.Builder
	b.WriteString("Task:\n")
	b.WriteString(task.Text)
	b.WriteString("\n\n")

	if len(task.Context) > 0 {
		b.WriteString("Context:\n")
		for k, v := range task.Context {
			fmt.Fprintf(&b, "- %s: %v\n", k, v)
		}
		b.WriteString("\n")
	}

	for _, t := range []RoleType{RoleArchitect, RoleDeveloper, RoleTester} {
		if out, ok := priorOutputs[t]; ok && t != role.Type {
			fmt.Fprintf(&b, "Prior %s output:\n%s\n\n", t, truncate(out, maxPriorOutputChars))
		}
	}

	if len(feedback) > 0 {
		b.WriteString("The previous attempt had these issues; address every one of them explicitly:\n")
		for _, f := range feedback {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", f.Severity, f.Issue, f.Recommendation)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "... [truncated]"
}

func intPtr(v int) *int { return &v }
