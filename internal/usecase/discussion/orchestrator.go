package discussion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"colloquy/internal/domain"
	"colloquy/internal/infra/tracer"
)

// EventSink receives each transcript entry as it is produced. The CLI prints
// through it; a nil sink is skipped.
type EventSink func(domain.Entry)

// RunConfig parameterizes one discussion run.
type RunConfig struct {
	Topic        string
	Rounds       int
	ShowThinking bool
	// OnToken receives incremental tokens from streamed responses and the
	// final output. May be nil.
	OnToken domain.TokenFunc
}

// Result is the outcome of a completed run.
type Result struct {
	RunID       string
	Transcript  domain.Transcript
	Summary     string
	Decision    string
	FinalOutput string
	Plan        *domain.ProjectPlan
}

// Orchestrator drives the discussion state machine over a fixed roster:
// optional planning, N rounds of think and respond phases with per-round
// progress tracking, then the coordinator's concluding phases. Everything is
// strictly sequential on the calling goroutine.
type Orchestrator struct {
	roster *Roster
	logger *slog.Logger

	events EventSink
	sink   domain.TranscriptSink

	transcript domain.Transcript
	runID      string
}

// NewOrchestrator creates an orchestrator over a roster. events and sink are
// both optional.
func NewOrchestrator(roster *Roster, logger *slog.Logger, events EventSink, sink domain.TranscriptSink) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		roster: roster,
		logger: logger,
		events: events,
		sink:   sink,
	}
}

// Transcript returns a copy of the shared transcript.
func (o *Orchestrator) Transcript() domain.Transcript {
	out := make(domain.Transcript, len(o.transcript))
	copy(out, o.transcript)
	return out
}

// Run executes a full discussion. Per-call gateway failures degrade to
// in-band error text or informational system entries; only precondition
// violations and context cancellation abort the run.
func (o *Orchestrator) Run(ctx context.Context, cfg RunConfig) (*Result, error) {
	if o.roster == nil || len(o.roster.Agents) == 0 {
		return nil, domain.NewDomainError("Orchestrator.Run", domain.ErrEmptyRoster, "")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, domain.NewDomainError("Orchestrator.Run", domain.ErrEmptyTopic, "")
	}
	if cfg.Rounds <= 0 {
		return nil, domain.NewDomainError("Orchestrator.Run", domain.ErrInvalidInput, "rounds must be positive")
	}

	ctx, span := tracer.StartSpan(ctx, "discussion.run")
	defer span.End()
	span.SetAttributes(
		tracer.StringAttr("topic", cfg.Topic),
		tracer.IntAttr("rounds", cfg.Rounds),
		tracer.IntAttr("agents", len(o.roster.Agents)),
	)

	// Fresh run: clear shared and per-agent state.
	o.transcript = nil
	for _, a := range o.roster.Agents {
		a.ResetHistory()
	}

	if o.sink != nil {
		id, err := o.sink.BeginRun(ctx, cfg.Topic, cfg.Rounds)
		if err != nil {
			o.logger.Warn("transcript sink begin failed", "error", err)
		} else {
			o.runID = id
		}
	}

	result := &Result{}
	coord := o.roster.Coordinator

	o.planPhase(ctx, coord, cfg.Topic)

	for round := 1; round <= cfg.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		o.runRound(ctx, cfg, round)

		if round < cfg.Rounds {
			o.trackPhase(ctx, coord, round, cfg.Rounds)
		}
	}

	if coord != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		o.concludePhase(ctx, coord, cfg, result)
		result.Plan = coord.Plan()
	}

	if o.sink != nil && o.runID != "" {
		if err := o.sink.EndRun(ctx, o.runID); err != nil {
			o.logger.Warn("transcript sink end failed", "error", err)
		}
	}

	result.RunID = o.runID
	result.Transcript = o.Transcript()
	return result, nil
}

// planPhase runs task breakdown for an active project-manager coordinator.
// Failure is informational; the discussion proceeds unplanned.
func (o *Orchestrator) planPhase(ctx context.Context, coord *Coordinator, topic string) {
	if coord == nil || coord.Archetype() != ProjectManager {
		return
	}

	ctx, span := tracer.StartSpan(ctx, "discussion.plan")
	defer span.End()

	plan, err := coord.BreakDownTask(ctx, topic)
	if err != nil {
		tracer.RecordError(span, err)
		o.logger.Warn("project plan creation failed", "error", err)
		o.recordSystem(coord.Name()+" (Project Plan)",
			fmt.Sprintf("Project plan creation failed: %v", err))
		return
	}

	o.recordSystem(coord.Name()+" (Project Plan)",
		"Project Plan Created:\n"+mustJSON(plan))
}

// runRound executes the think and respond phases for one round.
func (o *Orchestrator) runRound(ctx context.Context, cfg RunConfig, round int) {
	ctx, span := tracer.StartSpan(ctx, "discussion.round")
	defer span.End()
	span.SetAttributes(tracer.IntAttr("round", round))

	rc := domain.RoundContext{
		RoundNumber:  round,
		TotalRounds:  cfg.Rounds,
		Participants: o.roster.Names(),
	}

	// Think phase. Every agent prepares privately before anyone speaks.
	for _, agent := range o.roster.Agents {
		thinking := agent.Think(ctx, cfg.Topic, rc)
		if cfg.ShowThinking {
			e := domain.NewEntry(agent.Name()+" (thinking)", thinking)
			e.IsThinking = true
			o.record(e)
		}
	}

	// Respond phase. Strictly sequential: each response reaches every other
	// agent's history before the next turn starts.
	for _, agent := range o.roster.Agents {
		response := agent.StreamRespond(ctx, cfg.Topic, rc, cfg.OnToken)

		e := domain.NewEntry(agent.Name(), response)
		e.Role = agent.Profile().Role
		o.record(e)

		for _, other := range o.roster.Agents {
			if other != agent {
				other.AddToHistory(agent.Name(), response)
			}
		}
	}
}

// trackPhase runs the project-manager progress snapshot and plan adjustment
// at the end of a non-final round. Failures never halt the run.
func (o *Orchestrator) trackPhase(ctx context.Context, coord *Coordinator, round, totalRounds int) {
	if coord == nil || coord.Archetype() != ProjectManager {
		return
	}

	report, err := coord.TrackProgress(round, totalRounds)
	if err != nil {
		o.logger.Warn("progress tracking failed", "round", round, "error", err)
		return
	}
	o.recordSystem(fmt.Sprintf("%s (Progress Report R%d)", coord.Name(), round),
		fmt.Sprintf("Progress Report (End of Round %d):\n%s", round, mustJSON(report)))

	adj, err := coord.AdjustPlan(ctx, report)
	if err != nil {
		o.logger.Warn("plan adjustment failed", "round", round, "error", err)
		o.recordSystem(fmt.Sprintf("%s (Plan Adjustments R%d)", coord.Name(), round),
			fmt.Sprintf("Plan adjustment failed: %v", err))
		return
	}
	o.recordSystem(fmt.Sprintf("%s (Plan Adjustments R%d)", coord.Name(), round),
		fmt.Sprintf("Plan Adjustments (End of Round %d):\n%s", round, mustJSON(adj)))
}

// concludePhase rebuilds the coordinator's view of the discussion, then runs
// summary, decision, and final output synthesis.
func (o *Orchestrator) concludePhase(ctx context.Context, coord *Coordinator, cfg RunConfig, result *Result) {
	ctx, span := tracer.StartSpan(ctx, "discussion.conclude")
	defer span.End()

	coord.ResetHistory()
	for _, e := range o.transcript.Responses() {
		coord.AddToHistory(e.Sender, e.Message)
	}

	result.Summary = coord.SummarizeDiscussion(ctx)
	se := domain.NewEntry(coord.Name()+" (Discussion Summary)", result.Summary)
	se.IsSummary = true
	o.record(se)

	result.Decision = coord.MakeDecision(ctx)
	de := domain.NewEntry(coord.Name()+" (Discussion Assessment)", result.Decision)
	de.IsDecision = true
	o.record(de)

	result.FinalOutput = coord.StreamFinalOutput(ctx, cfg.Topic, o.Transcript(), cfg.OnToken)
}

// record appends an entry to the shared transcript and fans it out to the
// event sink and the persistence sink.
func (o *Orchestrator) record(e domain.Entry) {
	o.transcript = append(o.transcript, e)
	if o.events != nil {
		o.events(e)
	}
	if o.sink != nil && o.runID != "" {
		if err := o.sink.Append(context.Background(), o.runID, e); err != nil {
			o.logger.Warn("transcript sink append failed", "error", err)
		}
	}
}

func (o *Orchestrator) recordSystem(sender, message string) {
	e := domain.NewEntry(sender, message)
	e.IsSystem = true
	o.record(e)
}

func mustJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
