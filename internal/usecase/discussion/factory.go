package discussion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"colloquy/internal/domain"
	"colloquy/internal/extract"
)

// Factory generates task forces and assembles rosters.
type Factory struct {
	generator domain.TextGenerator
	knowledge domain.KnowledgeSource
	logger    *slog.Logger
}

// NewFactory creates a task-force factory.
func NewFactory(generator domain.TextGenerator, knowledge domain.KnowledgeSource, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{generator: generator, knowledge: knowledge, logger: logger}
}

// Roster is the assembled set of discussion participants. Agents holds every
// participant in turn order, coordinator included; Coordinator points at the
// single coordinator when one exists.
type Roster struct {
	Agents      []*Agent
	Coordinator *Coordinator
}

// Names returns the participant names in turn order.
func (r *Roster) Names() []string {
	names := make([]string, len(r.Agents))
	for i, a := range r.Agents {
		names[i] = a.Name()
	}
	return names
}

// GenerateTaskForce asks the model for a team matching a scenario. Stage one
// derives a scenario-specific system prompt via a meta-prompt; its failure
// degrades to a fixed template. Stage two requests a JSON array of members;
// one invalid record fails the whole batch.
func (f *Factory) GenerateTaskForce(ctx context.Context, scenario, model string) ([]domain.RosterRecord, string, error) {
	if strings.TrimSpace(scenario) == "" {
		return nil, "", domain.NewDomainError("Factory.GenerateTaskForce", domain.ErrInvalidInput, "scenario cannot be empty")
	}

	scenarioPrompt := f.generateSystemPrompt(ctx, scenario, model)

	out, err := f.generator.Generate(ctx, fmt.Sprintf(taskForcePromptTmpl, scenario), model)
	if err != nil {
		return nil, "", domain.WrapOp("Factory.GenerateTaskForce", err)
	}

	raw, err := extract.Array(out)
	if err != nil {
		return nil, "", domain.WrapOp("Factory.GenerateTaskForce", err)
	}
	if len(raw) == 0 {
		return nil, "", domain.NewDomainError("Factory.GenerateTaskForce", domain.ErrBadShape, "empty agent list")
	}

	records := make([]domain.RosterRecord, 0, len(raw))
	for i, item := range raw {
		rec, err := recordFromValue(item, model)
		if err != nil {
			return nil, "", domain.WrapOp(fmt.Sprintf("Factory.GenerateTaskForce: agent %d", i), err)
		}
		records = append(records, rec)
	}

	// The coordinator seat gets an archetype scored from the scenario.
	for i := range records {
		if isCoordinatorRecord(records[i]) {
			if records[i].Archetype == "" {
				records[i].Archetype = string(DetermineArchetype(scenario))
			}
			break
		}
	}
	return records, scenarioPrompt, nil
}

// generateSystemPrompt is stage one of task-force generation. Failure is a
// soft path: the fixed template takes over.
func (f *Factory) generateSystemPrompt(ctx context.Context, scenario, model string) string {
	out, err := f.generator.Generate(ctx, fmt.Sprintf(metaPromptTmpl, scenario), model)
	if err != nil || strings.TrimSpace(out) == "" {
		f.logger.Warn("meta-prompt generation failed, using fixed template", "error", err)
		return fmt.Sprintf(fallbackSystemPromptTmpl, "specialized team member", scenario)
	}
	return strings.TrimSpace(out)
}

// recordFromValue validates one generated member object. Every field must be
// a non-empty string.
func recordFromValue(v any, model string) (domain.RosterRecord, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return domain.RosterRecord{}, fmt.Errorf("%w: member is not an object", domain.ErrBadShape)
	}

	var rec domain.RosterRecord
	for _, field := range []struct {
		key string
		dst *string
	}{
		{"name", &rec.Name},
		{"role", &rec.Role},
		{"prompt", &rec.Prompt},
	} {
		s, ok := obj[field.key].(string)
		if !ok || strings.TrimSpace(s) == "" {
			return domain.RosterRecord{}, fmt.Errorf("%w: missing required field %q", domain.ErrBadShape, field.key)
		}
		*field.dst = s
	}
	rec.Model = model
	return rec, nil
}

// coordinatorRoleWords mark a generated member as the coordinator when the
// record does not say so explicitly.
var coordinatorRoleWords = []string{"coordinator", "facilitator"}

// BuildRoster constructs agents and at most one coordinator from records.
// The first record flagged or role-matched as coordinator takes the seat;
// later matches become plain agents.
func (f *Factory) BuildRoster(records []domain.RosterRecord, defaultArchetype Archetype) (*Roster, error) {
	if len(records) == 0 {
		return nil, domain.NewDomainError("Factory.BuildRoster", domain.ErrEmptyRoster, "")
	}

	roster := &Roster{}
	for _, rec := range records {
		if roster.Coordinator == nil && isCoordinatorRecord(rec) {
			archetype := Archetype(rec.Archetype)
			if archetype == "" {
				archetype = defaultArchetype
			}
			coord, err := NewCoordinator(rec.Name, archetype, rec.Model, rec.Prompt, f.generator, f.knowledge, f.logger)
			if err != nil {
				return nil, err
			}
			roster.Coordinator = coord
			roster.Agents = append(roster.Agents, coord.Agent)
			continue
		}

		agent, err := NewAgent(domain.AgentProfile{
			Name:       rec.Name,
			Role:       rec.Role,
			BasePrompt: rec.Prompt,
			Model:      rec.Model,
		}, f.generator, f.knowledge, f.logger)
		if err != nil {
			return nil, err
		}
		roster.Agents = append(roster.Agents, agent)
	}
	return roster, nil
}

func isCoordinatorRecord(rec domain.RosterRecord) bool {
	if rec.IsCoordinator {
		return true
	}
	role := strings.ToLower(rec.Role)
	for _, w := range coordinatorRoleWords {
		if strings.Contains(role, w) {
			return true
		}
	}
	return false
}
