package discussion

import (
	"context"
	"log/slog"
	"sync"

	"colloquy/internal/domain"
)

// fakeGenerator scripts generation for tests. reply is called with every
// prompt; Stream feeds the whole reply to onToken in one chunk.
type fakeGenerator struct {
	mu      sync.Mutex
	reply   func(prompt string) (string, error)
	prompts []string
}

func newFakeGenerator(reply func(prompt string) (string, error)) *fakeGenerator {
	return &fakeGenerator{reply: reply}
}

// constGenerator always answers with the same text.
func constGenerator(text string) *fakeGenerator {
	return newFakeGenerator(func(string) (string, error) { return text, nil })
}

func (f *fakeGenerator) Generate(_ context.Context, prompt, _ string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.reply(prompt)
}

func (f *fakeGenerator) Stream(ctx context.Context, prompt, model string, onToken domain.TokenFunc) (string, error) {
	out, err := f.Generate(ctx, prompt, model)
	if err == nil && onToken != nil {
		onToken(out)
	}
	return out, err
}

func (f *fakeGenerator) ListModels(context.Context) ([]string, error) {
	return []string{"llama3:latest"}, nil
}

func (f *fakeGenerator) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

// fakeKnowledge scripts the lookup gateway and records queries.
type fakeKnowledge struct {
	summary string
	err     error
	queries []string
}

func (f *fakeKnowledge) Summary(_ context.Context, query, _ string) (string, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func mustAgent(gen domain.TextGenerator, know domain.KnowledgeSource) *Agent {
	a, err := NewAgent(domain.AgentProfile{
		Name:       "Ana",
		Role:       "Analyst",
		BasePrompt: "You are an analyst.",
		Model:      "llama3:latest",
	}, gen, know, testLogger())
	if err != nil {
		panic(err)
	}
	return a
}
