package discussion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"colloquy/internal/domain"
	"colloquy/internal/extract"
)

// Coordinator is an agent with a leadership archetype. It summarizes the
// discussion, makes the final assessment, and synthesizes the final output.
// The project_manager archetype additionally runs the plan/track/adjust
// sub-protocol.
type Coordinator struct {
	*Agent

	archetype Archetype
	// template is the archetype base prompt awaiting the topic; empty when
	// an explicit base prompt override was supplied.
	template string

	plan     *domain.ProjectPlan
	progress *domain.ProgressReport
}

// NewCoordinator constructs a coordinator. The archetype must be non-blank;
// an unrecognized archetype uses the facilitator template rather than
// failing. An explicit basePrompt overrides the archetype derivation.
func NewCoordinator(name string, archetype Archetype, model, basePrompt string, generator domain.TextGenerator, knowledge domain.KnowledgeSource, logger *slog.Logger) (*Coordinator, error) {
	if archetype == "" {
		return nil, domain.NewDomainError("coordinator", domain.ErrInvalidInput, "coordinator archetype cannot be empty")
	}

	template := ""
	if basePrompt == "" {
		tmpl, ok := archetypePrompts[archetype]
		if !ok {
			tmpl = archetypePrompts[Facilitator]
		}
		template = tmpl
		// The stored profile prompt is the unformatted template; the
		// effective prompt is formatted per topic.
		basePrompt = tmpl
	}

	agent, err := NewAgent(domain.AgentProfile{
		Name:       name,
		Role:       fmt.Sprintf("Coordinator (%s)", archetype),
		BasePrompt: basePrompt,
		Model:      model,
	}, generator, knowledge, logger)
	if err != nil {
		return nil, err
	}

	c := &Coordinator{
		Agent:     agent,
		archetype: archetype,
		template:  template,
	}
	c.Agent.promptFor = c.formattedBasePrompt
	return c, nil
}

// Archetype returns the coordinator's archetype.
func (c *Coordinator) Archetype() Archetype { return c.archetype }

// Plan returns the stored project plan, or nil.
func (c *Coordinator) Plan() *domain.ProjectPlan { return c.plan }

// Progress returns the latest progress snapshot, or nil.
func (c *Coordinator) Progress() *domain.ProgressReport { return c.progress }

// formattedBasePrompt anchors the archetype template on a topic. An explicit
// override is used verbatim.
func (c *Coordinator) formattedBasePrompt(topic string) string {
	if c.template == "" {
		return c.profile.BasePrompt
	}
	return fmt.Sprintf(c.template, topic)
}

// lastTopic approximates the discussion topic from the coordinator's history
// for prompts issued after the rounds have finished.
func (c *Coordinator) lastTopic() string {
	if len(c.history) == 0 {
		return "No topic available"
	}
	return c.history[len(c.history)-1].Message
}

// SummarizeDiscussion produces a summary over the coordinator's full,
// unwindowed history. Gateway failure yields an in-band error string.
func (c *Coordinator) SummarizeDiscussion(ctx context.Context) string {
	prompt := fmt.Sprintf(summarizePromptTmpl,
		c.profile.Name, c.formattedBasePrompt(c.lastTopic()), c.history.Format())

	out, err := c.generator.Stream(ctx, prompt, c.profile.Model, nil)
	if err != nil {
		c.logger.Error("summarize failed", "coordinator", c.profile.Name, "error", err)
		return "I encountered an error while summarizing the discussion."
	}
	return out
}

// MakeDecision produces the final assessment over the coordinator's full
// history. Gateway failure yields an in-band error string.
func (c *Coordinator) MakeDecision(ctx context.Context) string {
	prompt := fmt.Sprintf(decidePromptTmpl,
		c.profile.Name, c.profile.Role, c.formattedBasePrompt(c.lastTopic()), c.history.Format())

	out, err := c.generator.Stream(ctx, prompt, c.profile.Model, nil)
	if err != nil {
		c.logger.Error("decision failed", "coordinator", c.profile.Name, "error", err)
		return "I encountered an error while making a final assessment."
	}
	return out
}

// StreamFinalOutput synthesizes the answer to the original request from the
// externally supplied transcript, filtered to its dialogue view.
func (c *Coordinator) StreamFinalOutput(ctx context.Context, originalTopic string, full domain.Transcript, onToken domain.TokenFunc) string {
	prompt := fmt.Sprintf(finalOutputPromptTmpl,
		c.profile.Name, c.profile.Role, c.formattedBasePrompt(originalTopic),
		originalTopic, full.Dialogue().Format())

	out, err := c.generator.Stream(ctx, prompt, c.profile.Model, onToken)
	if err != nil {
		c.logger.Error("final output failed", "coordinator", c.profile.Name, "error", err)
		return "I encountered an error while generating the final output."
	}
	return out
}

// BreakDownTask asks the model for a structured project plan and stores it.
// Only the project_manager archetype may plan; the plan is stored only when
// extraction and shape validation both succeed.
func (c *Coordinator) BreakDownTask(ctx context.Context, task string) (*domain.ProjectPlan, error) {
	if err := c.requireProjectManager("Coordinator.BreakDownTask"); err != nil {
		return nil, err
	}

	out, err := c.generator.Generate(ctx, fmt.Sprintf(breakDownPromptTmpl, task), c.profile.Model)
	if err != nil {
		return nil, domain.WrapOp("Coordinator.BreakDownTask", err)
	}

	obj, err := extract.Object(out)
	if err != nil {
		return nil, domain.WrapOp("Coordinator.BreakDownTask", err)
	}
	plan, err := domain.PlanFromMap(obj)
	if err != nil {
		return nil, domain.WrapOp("Coordinator.BreakDownTask", err)
	}

	c.plan = plan
	return plan, nil
}

// TrackProgress produces a deterministic progress snapshot from round counts
// and the stored plan. No generation call is involved; the qualitative slices
// start empty and are left for a future adjustment to populate.
func (c *Coordinator) TrackProgress(currentRound, totalRounds int) (*domain.ProgressReport, error) {
	if err := c.requireProjectManager("Coordinator.TrackProgress"); err != nil {
		return nil, err
	}
	if c.plan == nil {
		return nil, domain.NewDomainError("Coordinator.TrackProgress", domain.ErrNoPlan, "")
	}
	if totalRounds <= 0 {
		return nil, domain.NewDomainError("Coordinator.TrackProgress", domain.ErrInvalidInput, "total rounds must be positive")
	}

	remaining := make([]string, len(c.plan.Objectives))
	copy(remaining, c.plan.Objectives)

	report := &domain.ProgressReport{
		CompletionStatus: domain.CompletionStatus{
			OverallProgress:     float64(currentRound) / float64(totalRounds) * 100,
			CompletedObjectives: []string{},
			RemainingObjectives: remaining,
		},
		KeyPoints:           []domain.KeyPoint{},
		NextSteps:           []domain.NextStep{},
		RisksAndMitigations: []domain.RiskMitigation{},
	}
	c.progress = report
	return report, nil
}

// AdjustPlan asks the model for reason-carrying plan adjustments given a
// progress report. The stored plan is not modified; the adjustment is
// returned for the orchestrator to record.
func (c *Coordinator) AdjustPlan(ctx context.Context, report *domain.ProgressReport) (*domain.PlanAdjustment, error) {
	if err := c.requireProjectManager("Coordinator.AdjustPlan"); err != nil {
		return nil, err
	}
	if c.plan == nil {
		return nil, domain.NewDomainError("Coordinator.AdjustPlan", domain.ErrNoPlan, "")
	}

	planJSON, err := json.MarshalIndent(c.plan, "", "  ")
	if err != nil {
		return nil, domain.WrapOp("Coordinator.AdjustPlan", err)
	}
	reportJSON, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, domain.WrapOp("Coordinator.AdjustPlan", err)
	}

	out, err := c.generator.Generate(ctx,
		fmt.Sprintf(adjustPlanPromptTmpl, planJSON, reportJSON), c.profile.Model)
	if err != nil {
		return nil, domain.WrapOp("Coordinator.AdjustPlan", err)
	}

	obj, err := extract.Object(out)
	if err != nil {
		return nil, domain.WrapOp("Coordinator.AdjustPlan", err)
	}
	adj, err := domain.AdjustmentFromMap(obj)
	if err != nil {
		return nil, domain.WrapOp("Coordinator.AdjustPlan", err)
	}
	return adj, nil
}

func (c *Coordinator) requireProjectManager(op string) error {
	if c.archetype != ProjectManager {
		return domain.NewDomainError(op, domain.ErrNotProjectManager, string(c.archetype))
	}
	return nil
}
