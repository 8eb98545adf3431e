// Package discussion implements the multi-agent discussion protocol: agents
// with private thinking and shared history, coordinator archetypes with a
// project-management sub-protocol, task-force generation, and the round-based
// orchestration loop that drives them.
package discussion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"colloquy/internal/domain"
)

const (
	// historyWindow is the read-time bound on history entries included in a
	// response prompt. The stored history itself is never capped.
	historyWindow = 5

	// summaryLimit bounds a knowledge summary before it enters prompt
	// context. Applied here, not in the lookup gateway.
	summaryLimit = 750
)

// Agent is one discussion participant. Its thinking is private scratch state
// overwritten each round; its history is the shared conversation as this
// agent has seen it.
type Agent struct {
	profile  domain.AgentProfile
	thinking string
	history  domain.Transcript

	generator domain.TextGenerator
	knowledge domain.KnowledgeSource
	lang      string
	logger    *slog.Logger

	// promptFor yields the effective base prompt for a topic. Plain agents
	// use the stored prompt verbatim; the coordinator installs archetype
	// formatting here.
	promptFor func(topic string) string
}

// NewAgent constructs an agent. The profile must be complete; there are no
// identity defaults.
func NewAgent(profile domain.AgentProfile, generator domain.TextGenerator, knowledge domain.KnowledgeSource, logger *slog.Logger) (*Agent, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &Agent{
		profile:   profile,
		generator: generator,
		knowledge: knowledge,
		lang:      "en",
		logger:    logger,
	}
	a.promptFor = func(string) string { return a.profile.BasePrompt }
	return a, nil
}

// Profile returns the agent's identity.
func (a *Agent) Profile() domain.AgentProfile { return a.profile }

// Name returns the agent's name.
func (a *Agent) Name() string { return a.profile.Name }

// Thinking returns the agent's current private thinking.
func (a *Agent) Thinking() string { return a.thinking }

// History returns a copy of the agent's conversation history.
func (a *Agent) History() domain.Transcript {
	out := make(domain.Transcript, len(a.history))
	copy(out, a.history)
	return out
}

// ResetHistory clears the agent's conversation history.
func (a *Agent) ResetHistory() {
	a.history = nil
	a.thinking = ""
}

// AddToHistory appends a timestamped entry to the agent's history.
func (a *Agent) AddToHistory(sender, message string) {
	a.history = append(a.history, domain.NewEntry(sender, message))
}

// Think produces the agent's private thinking for a round. The result always
// replaces the previous thinking; a generation failure stores and returns an
// in-band error string so the round can proceed.
func (a *Agent) Think(ctx context.Context, topic string, rc domain.RoundContext) string {
	prompt := fmt.Sprintf(thinkPromptTmpl,
		a.profile.Name, a.profile.Role, a.promptFor(topic),
		topic, serializeContext(rc), topic)

	out, err := a.generator.Generate(ctx, prompt, a.profile.Model)
	if err != nil {
		a.logger.Error("think failed", "agent", a.profile.Name, "error", err)
		a.thinking = fmt.Sprintf("I encountered an error while processing: %v", err)
		return a.thinking
	}
	a.thinking = out
	return a.thinking
}

// Respond generates the agent's public response for a round and appends it to
// the agent's own history. A lookup directive in the current thinking
// triggers at most one synchronous knowledge fetch first.
func (a *Agent) Respond(ctx context.Context, topic string, rc domain.RoundContext) string {
	return a.respond(ctx, topic, rc, nil)
}

// StreamRespond is Respond with incremental token delivery.
func (a *Agent) StreamRespond(ctx context.Context, topic string, rc domain.RoundContext, onToken domain.TokenFunc) string {
	return a.respond(ctx, topic, rc, onToken)
}

func (a *Agent) respond(ctx context.Context, topic string, rc domain.RoundContext, onToken domain.TokenFunc) string {
	rc = a.mergeLookup(ctx, rc)

	prompt := fmt.Sprintf(respondPromptTmpl,
		a.profile.Name, a.profile.Role, a.promptFor(topic),
		a.history.Tail(historyWindow).Format(),
		a.thinking,
		describeContext(rc),
		topic)

	out, err := a.generator.Stream(ctx, prompt, a.profile.Model, onToken)
	if err != nil {
		a.logger.Error("respond failed", "agent", a.profile.Name, "error", err)
		errMsg := fmt.Sprintf("I encountered an error while formulating my response: %v", err)
		a.AddToHistory(a.profile.Name, errMsg)
		return errMsg
	}
	a.AddToHistory(a.profile.Name, out)
	return out
}

// mergeLookup scans the current thinking for a lookup directive and, when one
// is present, fetches and truncates the summary into the round context. A
// failed or empty lookup contributes nothing.
func (a *Agent) mergeLookup(ctx context.Context, rc domain.RoundContext) domain.RoundContext {
	term := LookupTerm(a.thinking)
	if term == "" || a.knowledge == nil {
		return rc
	}

	a.logger.Info("knowledge lookup triggered", "agent", a.profile.Name, "term", term)
	summary, err := a.knowledge.Summary(ctx, term, a.lang)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			a.logger.Warn("knowledge lookup failed", "agent", a.profile.Name, "term", term, "error", err)
		}
		return rc
	}
	rc.KnowledgeSummary = truncateSummary(summary)
	return rc
}

// truncateSummary bounds a summary to summaryLimit runes, appending a
// truncation marker when cut.
func truncateSummary(s string) string {
	runes := []rune(s)
	if len(runes) <= summaryLimit {
		return s
	}
	return string(runes[:summaryLimit]) + "..."
}

// serializeContext renders a round context as compact JSON for the thinking
// prompt.
func serializeContext(rc domain.RoundContext) string {
	data, err := json.Marshal(rc)
	if err != nil {
		return "No additional context"
	}
	return string(data)
}

// describeContext renders a round context as labeled lines for the response
// prompt, with any retrieved summary called out explicitly.
func describeContext(rc domain.RoundContext) string {
	var lines []string
	if rc.KnowledgeSummary != "" {
		lines = append(lines, "Recently retrieved encyclopedia summary for context: "+rc.KnowledgeSummary)
	}
	lines = append(lines,
		fmt.Sprintf("Round Number: %d", rc.RoundNumber),
		fmt.Sprintf("Total Rounds: %d", rc.TotalRounds),
		"Participating Agents: "+strings.Join(rc.Participants, ", "),
	)
	return strings.Join(lines, "\n")
}
