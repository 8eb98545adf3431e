package transcript

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colloquy/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "transcript.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runID, err := s.BeginRun(ctx, "urban farming", 3)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	e1 := domain.NewEntry("Dr. Chen", "Vertical farms cut transport costs.")
	e1.Role = "Agronomist"
	e2 := domain.NewEntry("Sam", "Zoning is the real obstacle.")
	e2.Role = "Planner"
	e2.IsThinking = true
	require.NoError(t, s.Append(ctx, runID, e1))
	require.NoError(t, s.Append(ctx, runID, e2))
	require.NoError(t, s.EndRun(ctx, runID))

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "urban farming", runs[0].Topic)
	assert.Equal(t, 3, runs[0].Rounds)
	require.NotNil(t, runs[0].FinishedAt)

	entries, err := s.Entries(ctx, runID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Dr. Chen", entries[0].Sender)
	assert.False(t, entries[0].IsThinking)
	assert.True(t, entries[1].IsThinking)
}

func TestEntriesPreserveOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runID, err := s.BeginRun(ctx, "topic", 1)
	require.NoError(t, err)

	base := time.Now()
	senders := []string{"a", "b", "c", "d"}
	for i, sender := range senders {
		e := domain.NewEntry(sender, "msg")
		e.Timestamp = base.Add(time.Duration(i) * time.Millisecond)
		require.NoError(t, s.Append(ctx, runID, e))
	}

	entries, err := s.Entries(ctx, runID)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	for i, sender := range senders {
		assert.Equal(t, sender, entries[i].Sender)
	}
}

func TestEndRunUnknown(t *testing.T) {
	s := newTestStore(t)
	err := s.EndRun(context.Background(), "no-such-run")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListRunsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.BeginRun(ctx, "first", 1)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := s.BeginRun(ctx, "second", 1)
	require.NoError(t, err)

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, first, runs[1].ID)
}
