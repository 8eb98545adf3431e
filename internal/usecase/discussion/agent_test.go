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

func TestNewAgentRejectsIncompleteProfile(t *testing.T) {
	gen := constGenerator("ok")
	_, err := NewAgent(domain.AgentProfile{
		Name:  "Ana",
		Role:  "Analyst",
		Model: "llama3:latest",
	}, gen, nil, testLogger())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestThinkStoresResult(t *testing.T) {
	gen := constGenerator("step one, step two")
	a := mustAgent(gen, nil)

	got := a.Think(context.Background(), "urban farming", domain.RoundContext{RoundNumber: 1, TotalRounds: 2})
	assert.Equal(t, "step one, step two", got)
	assert.Equal(t, "step one, step two", a.Thinking())

	// The prompt carries identity, topic, and the lookup instruction.
	prompt := gen.lastPrompt()
	assert.Contains(t, prompt, "Ana")
	assert.Contains(t, prompt, "urban farming")
	assert.Contains(t, prompt, "WIKI_LOOKUP")
}

func TestThinkFailureStoresErrorString(t *testing.T) {
	a := mustAgent(newFakeGenerator(func(string) (string, error) {
		return "", errors.New("connection refused")
	}), nil)
	a.thinking = "previous thinking"

	got := a.Think(context.Background(), "topic", domain.RoundContext{})
	assert.Contains(t, got, "connection refused")
	assert.Equal(t, got, a.Thinking(), "failed think must still overwrite thinking")
}

func TestRespondAppendsOwnHistory(t *testing.T) {
	gen := constGenerator("my contribution")
	a := mustAgent(gen, nil)

	got := a.Respond(context.Background(), "topic", domain.RoundContext{})
	assert.Equal(t, "my contribution", got)

	h := a.History()
	require.Len(t, h, 1)
	assert.Equal(t, "Ana", h[0].Sender)
	assert.Equal(t, "my contribution", h[0].Message)
}

func TestRespondFailureAppendsErrorEntry(t *testing.T) {
	a := mustAgent(newFakeGenerator(func(string) (string, error) {
		return "", errors.New("boom")
	}), nil)

	got := a.Respond(context.Background(), "topic", domain.RoundContext{})
	assert.Contains(t, got, "boom")

	h := a.History()
	require.Len(t, h, 1, "the error string occupies the turn slot")
	assert.Equal(t, got, h[0].Message)
}

func TestRespondHistoryWindow(t *testing.T) {
	gen := constGenerator("reply")
	a := mustAgent(gen, nil)
	for i := 1; i <= 8; i++ {
		a.AddToHistory("Ben", fmt.Sprintf("message %d", i))
	}

	a.Respond(context.Background(), "topic", domain.RoundContext{})

	prompt := gen.lastPrompt()
	assert.NotContains(t, prompt, "message 3")
	for i := 4; i <= 8; i++ {
		assert.Contains(t, prompt, fmt.Sprintf("message %d", i))
	}
	// Stored history is never capped.
	assert.Len(t, a.History(), 9)
}

func TestRespondTriggersLookup(t *testing.T) {
	gen := constGenerator("informed reply")
	know := &fakeKnowledge{summary: "Relativity is a theory of spacetime."}
	a := mustAgent(gen, know)
	a.thinking = `I need background first.
WIKI_LOOKUP: "Theory of Relativity"
Now I can proceed.`

	a.Respond(context.Background(), "physics", domain.RoundContext{})

	require.Equal(t, []string{"Theory of Relativity"}, know.queries)
	assert.Contains(t, gen.lastPrompt(), "Relativity is a theory of spacetime.")
}

func TestRespondLookupNotFoundIsSilent(t *testing.T) {
	gen := constGenerator("reply anyway")
	know := &fakeKnowledge{err: domain.ErrNotFound}
	a := mustAgent(gen, know)
	a.thinking = `WIKI_LOOKUP: "Obscure Topic"`

	got := a.Respond(context.Background(), "topic", domain.RoundContext{})
	assert.Equal(t, "reply anyway", got)
	assert.NotContains(t, gen.lastPrompt(), "encyclopedia summary")
}

func TestRespondWithoutDirectiveSkipsLookup(t *testing.T) {
	know := &fakeKnowledge{summary: "unused"}
	a := mustAgent(constGenerator("reply"), know)
	a.thinking = "no directive in here"

	a.Respond(context.Background(), "topic", domain.RoundContext{})
	assert.Empty(t, know.queries)
}

func TestRespondTruncatesLongSummary(t *testing.T) {
	long := strings.Repeat("x", 900)
	gen := constGenerator("reply")
	a := mustAgent(gen, &fakeKnowledge{summary: long})
	a.thinking = `WIKI_LOOKUP: "Big Article"`

	a.Respond(context.Background(), "topic", domain.RoundContext{})

	prompt := gen.lastPrompt()
	assert.Contains(t, prompt, strings.Repeat("x", 750)+"...")
	assert.NotContains(t, prompt, strings.Repeat("x", 751))
}

func TestStreamRespondDeliversTokens(t *testing.T) {
	a := mustAgent(constGenerator("streamed text"), nil)

	var tokens []string
	got := a.StreamRespond(context.Background(), "topic", domain.RoundContext{}, func(tok string) {
		tokens = append(tokens, tok)
	})
	assert.Equal(t, "streamed text", got)
	assert.Equal(t, []string{"streamed text"}, tokens)
}

func TestResetHistory(t *testing.T) {
	a := mustAgent(constGenerator("x"), nil)
	a.AddToHistory("Ben", "hello")
	a.thinking = "some thinking"

	a.ResetHistory()
	assert.Empty(t, a.History())
	assert.Empty(t, a.Thinking())
}

func TestTruncateSummaryRuneBoundary(t *testing.T) {
	// Multibyte runes must not be split.
	long := strings.Repeat("é", 800)
	got := truncateSummary(long)
	assert.Equal(t, strings.Repeat("é", 750)+"...", got)

	short := "fits"
	assert.Equal(t, short, truncateSummary(short))
}
