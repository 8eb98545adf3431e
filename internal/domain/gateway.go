package domain

import "context"

// TokenFunc receives incremental chunks during a streaming generation.
// It may be called many times in quick succession and must not block the
// stream indefinitely.
type TokenFunc func(token string)

// TextGenerator is the interface to a text-generation backend.
type TextGenerator interface {
	// Generate sends a prompt and returns the complete response.
	Generate(ctx context.Context, prompt, model string) (string, error)
	// Stream sends a prompt, invoking onToken for each received chunk,
	// and returns the concatenation of all chunks. onToken may be nil.
	Stream(ctx context.Context, prompt, model string, onToken TokenFunc) (string, error)
	// ListModels returns the identifiers of the available models.
	ListModels(ctx context.Context) ([]string, error)
}

// KnowledgeSource looks up short encyclopedic summaries for free-text queries.
// A query that yields no content returns ErrNotFound, not a transport error.
type KnowledgeSource interface {
	Summary(ctx context.Context, query, lang string) (string, error)
}

// TranscriptSink records the entries of a discussion run as they happen.
// Implementations must tolerate being called from a single goroutine in
// entry order; sink failures are logged by callers, never fatal.
type TranscriptSink interface {
	// BeginRun opens a new run for a topic and returns its identifier.
	BeginRun(ctx context.Context, topic string, rounds int) (string, error)
	// Append records one entry under a run.
	Append(ctx context.Context, runID string, e Entry) error
	// EndRun marks a run finished.
	EndRun(ctx context.Context, runID string) error
}
