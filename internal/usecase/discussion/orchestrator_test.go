package discussion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colloquy/internal/domain"
)

// discussionGen scripts a believable discussion: agent responses name the
// speaker and round, coordinator phases return fixed texts.
func discussionGen() *fakeGenerator {
	return newFakeGenerator(func(prompt string) (string, error) {
		speaker := "someone"
		for _, name := range []string{"Ana", "Ben", "Coord"} {
			if strings.Contains(prompt, "named "+name) || strings.Contains(prompt, "You are "+name) {
				speaker = name
				break
			}
		}
		round := ""
		for r := 1; r <= 9; r++ {
			if strings.Contains(prompt, fmt.Sprintf("Round Number: %d", r)) ||
				strings.Contains(prompt, fmt.Sprintf(`"round_number":%d`, r)) {
				round = fmt.Sprintf("%d", r)
				break
			}
		}

		switch {
		case strings.Contains(prompt, "thinking privately"):
			return fmt.Sprintf("%s thinking r%s", speaker, round), nil
		case strings.Contains(prompt, "collaborative agent system"):
			return fmt.Sprintf("%s response r%s", speaker, round), nil
		case strings.Contains(prompt, "comprehensive summary"):
			return "discussion summary", nil
		case strings.Contains(prompt, "final assessment"):
			return "final decision", nil
		case strings.Contains(prompt, "final output"):
			return "final output text", nil
		case strings.Contains(prompt, "break down the following task"):
			return validPlanJSON, nil
		case strings.Contains(prompt, "suggest adjustments"):
			return validAdjustmentJSON, nil
		}
		return "generic", nil
	})
}

func namedAgent(t *testing.T, name string, gen domain.TextGenerator) *Agent {
	t.Helper()
	a, err := NewAgent(domain.AgentProfile{
		Name:       name,
		Role:       name + " role",
		BasePrompt: "You contribute as " + name + ".",
		Model:      "llama3:latest",
	}, gen, nil, testLogger())
	require.NoError(t, err)
	return a
}

func testRoster(t *testing.T, gen domain.TextGenerator, archetype Archetype) *Roster {
	t.Helper()
	coord, err := NewCoordinator("Coord", archetype, "llama3:latest", "", gen, nil, testLogger())
	require.NoError(t, err)
	return &Roster{
		Agents:      []*Agent{namedAgent(t, "Ana", gen), namedAgent(t, "Ben", gen)},
		Coordinator: coord,
	}
}

func TestRunPreconditions(t *testing.T) {
	gen := discussionGen()
	o := NewOrchestrator(&Roster{}, testLogger(), nil, nil)
	_, err := o.Run(context.Background(), RunConfig{Topic: "t", Rounds: 1})
	assert.ErrorIs(t, err, domain.ErrEmptyRoster)

	o = NewOrchestrator(testRoster(t, gen, Facilitator), testLogger(), nil, nil)
	_, err = o.Run(context.Background(), RunConfig{Topic: "   ", Rounds: 1})
	assert.ErrorIs(t, err, domain.ErrEmptyTopic)

	_, err = o.Run(context.Background(), RunConfig{Topic: "t", Rounds: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRunRoundMajorOrder(t *testing.T) {
	gen := discussionGen()
	o := NewOrchestrator(testRoster(t, gen, Facilitator), testLogger(), nil, nil)

	result, err := o.Run(context.Background(), RunConfig{Topic: "grid design", Rounds: 2})
	require.NoError(t, err)

	responses := result.Transcript.Responses()
	require.Len(t, responses, 4)
	want := []string{"Ana response r1", "Ben response r1", "Ana response r2", "Ben response r2"}
	for i, w := range want {
		assert.Equal(t, w, responses[i].Message)
	}

	assert.Equal(t, "discussion summary", result.Summary)
	assert.Equal(t, "final decision", result.Decision)
	assert.Equal(t, "final output text", result.FinalOutput)
	assert.Nil(t, result.Plan)
}

func TestRunBroadcastsResponses(t *testing.T) {
	gen := discussionGen()
	roster := testRoster(t, gen, Facilitator)
	o := NewOrchestrator(roster, testLogger(), nil, nil)

	_, err := o.Run(context.Background(), RunConfig{Topic: "grid design", Rounds: 1})
	require.NoError(t, err)

	// Ana spoke first; her history holds her own entry then Ben's broadcast.
	ana := roster.Agents[0].History()
	require.Len(t, ana, 2)
	assert.Equal(t, "Ana", ana[0].Sender)
	assert.Equal(t, "Ben", ana[1].Sender)
	assert.Equal(t, "Ben response r1", ana[1].Message)

	// Ben saw Ana's response before taking his turn.
	ben := roster.Agents[1].History()
	require.Len(t, ben, 2)
	assert.Equal(t, "Ana", ben[0].Sender)
	assert.Equal(t, "Ben", ben[1].Sender)
}

func TestRunShowThinking(t *testing.T) {
	gen := discussionGen()
	o := NewOrchestrator(testRoster(t, gen, Facilitator), testLogger(), nil, nil)

	result, err := o.Run(context.Background(), RunConfig{Topic: "t", Rounds: 1, ShowThinking: true})
	require.NoError(t, err)

	var thinking []domain.Entry
	for _, e := range result.Transcript {
		if e.IsThinking {
			thinking = append(thinking, e)
		}
	}
	require.Len(t, thinking, 2)
	assert.Equal(t, "Ana (thinking)", thinking[0].Sender)
	assert.Equal(t, "Ana thinking r1", thinking[0].Message)
	assert.Equal(t, "Ben (thinking)", thinking[1].Sender)
}

func TestRunProjectManagerLifecycle(t *testing.T) {
	gen := discussionGen()
	o := NewOrchestrator(testRoster(t, gen, ProjectManager), testLogger(), nil, nil)

	result, err := o.Run(context.Background(), RunConfig{Topic: "ship the rollout", Rounds: 2})
	require.NoError(t, err)
	require.NotNil(t, result.Plan)
	assert.Equal(t, "Rollout", result.Plan.ProjectName)

	var system []domain.Entry
	for _, e := range result.Transcript {
		if e.IsSystem {
			system = append(system, e)
		}
	}
	// Plan creation, then one progress report and one adjustment after the
	// non-final round.
	require.Len(t, system, 3)
	assert.Contains(t, system[0].Message, "Project Plan Created")
	assert.Contains(t, system[1].Message, "Progress Report (End of Round 1)")
	assert.Contains(t, system[2].Message, "Plan Adjustments (End of Round 1)")
}

func TestRunPlanFailureIsInformational(t *testing.T) {
	gen := newFakeGenerator(func(prompt string) (string, error) {
		if strings.Contains(prompt, "break down the following task") {
			return "", errors.New("model unavailable")
		}
		return "text", nil
	})
	o := NewOrchestrator(testRoster(t, gen, ProjectManager), testLogger(), nil, nil)

	result, err := o.Run(context.Background(), RunConfig{Topic: "t", Rounds: 1})
	require.NoError(t, err, "plan failure must not halt the run")
	assert.Nil(t, result.Plan)

	found := false
	for _, e := range result.Transcript {
		if e.IsSystem && strings.Contains(e.Message, "Project plan creation failed") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRunGatewayFailureDegradesInBand(t *testing.T) {
	gen := newFakeGenerator(func(string) (string, error) {
		return "", errors.New("backend down")
	})
	o := NewOrchestrator(testRoster(t, gen, Facilitator), testLogger(), nil, nil)

	result, err := o.Run(context.Background(), RunConfig{Topic: "t", Rounds: 1})
	require.NoError(t, err, "per-call failures never abort the run")

	responses := result.Transcript.Responses()
	require.Len(t, responses, 2)
	for _, e := range responses {
		assert.Contains(t, e.Message, "backend down")
	}
	assert.Contains(t, result.Summary, "error")
}

func TestRunEventsAndFreshState(t *testing.T) {
	gen := discussionGen()
	roster := testRoster(t, gen, Facilitator)

	var events []domain.Entry
	o := NewOrchestrator(roster, testLogger(), func(e domain.Entry) {
		events = append(events, e)
	}, nil)

	first, err := o.Run(context.Background(), RunConfig{Topic: "t", Rounds: 1})
	require.NoError(t, err)
	assert.Len(t, events, len(first.Transcript), "every entry reaches the event sink")

	// A second run starts clean: same transcript size, no history carryover.
	second, err := o.Run(context.Background(), RunConfig{Topic: "t", Rounds: 1})
	require.NoError(t, err)
	assert.Len(t, second.Transcript, len(first.Transcript))
	assert.Len(t, roster.Agents[0].History(), 2)
}

// recordingSink captures transcript persistence calls.
type recordingSink struct {
	begun    int
	appended []domain.Entry
	ended    int
}

func (r *recordingSink) BeginRun(context.Context, string, int) (string, error) {
	r.begun++
	return "run-1", nil
}

func (r *recordingSink) Append(_ context.Context, _ string, e domain.Entry) error {
	r.appended = append(r.appended, e)
	return nil
}

func (r *recordingSink) EndRun(context.Context, string) error {
	r.ended++
	return nil
}

func TestRunPersistsThroughSink(t *testing.T) {
	gen := discussionGen()
	sink := &recordingSink{}
	o := NewOrchestrator(testRoster(t, gen, Facilitator), testLogger(), nil, sink)

	result, err := o.Run(context.Background(), RunConfig{Topic: "t", Rounds: 1})
	require.NoError(t, err)
	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, 1, sink.begun)
	assert.Equal(t, 1, sink.ended)
	assert.Len(t, sink.appended, len(result.Transcript))
}

func TestRunStreamsTokens(t *testing.T) {
	gen := discussionGen()
	o := NewOrchestrator(testRoster(t, gen, Facilitator), testLogger(), nil, nil)

	var tokens []string
	_, err := o.Run(context.Background(), RunConfig{
		Topic:  "t",
		Rounds: 1,
		OnToken: func(tok string) {
			tokens = append(tokens, tok)
		},
	})
	require.NoError(t, err)
	// Two streamed responses plus the streamed final output.
	assert.Equal(t, []string{"Ana response r1", "Ben response r1", "final output text"}, tokens)
}

func TestRunCancelledContext(t *testing.T) {
	gen := discussionGen()
	o := NewOrchestrator(testRoster(t, gen, Facilitator), testLogger(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := o.Run(ctx, RunConfig{Topic: "t", Rounds: 1})
	assert.ErrorIs(t, err, context.Canceled)
}
