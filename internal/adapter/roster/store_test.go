package roster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colloquy/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), "facilitator")
	require.NoError(t, err)
	return s
}

func testFile() File {
	return File{
		Topic: "renewable energy strategy",
		Agents: []domain.RosterRecord{
			{Name: "Dr. Chen", Role: "Energy Economist", Prompt: "You are an energy economist.", Model: "llama3:latest"},
			{Name: "Sam Torres", Role: "Grid Engineer", Prompt: "You are a grid engineer.", Model: "llama3:latest"},
			{Name: "Coordinator", Role: "Discussion Coordinator", Prompt: "You guide the discussion.", Model: "llama3:latest", IsCoordinator: true, Archetype: "strategist"},
		},
	}
}

func TestSaveAndLoad(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("energy", testFile()))

	got, err := s.Load("energy")
	require.NoError(t, err)
	assert.Equal(t, "renewable energy strategy", got.Topic)
	require.Len(t, got.Agents, 3)
	assert.Equal(t, "Dr. Chen", got.Agents[0].Name)
	assert.True(t, got.Agents[2].IsCoordinator)
	assert.Equal(t, "strategist", got.Agents[2].Archetype)
	assert.False(t, got.SavedAt.IsZero())
}

func TestLoadAppliesDefaultArchetype(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("energy", testFile()))

	got, err := s.Load("energy")
	require.NoError(t, err)
	// Non-coordinator records were saved without an archetype.
	assert.Equal(t, "facilitator", got.Agents[0].Archetype)
	assert.Equal(t, "facilitator", got.Agents[1].Archetype)
}

func TestLoadMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Load("nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, "facilitator")
	require.NoError(t, err)

	// Missing required agent fields.
	bad := `{"topic":"x","agents":[{"name":"A"}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(bad), 0o644))

	_, err = s.Load("bad")
	assert.ErrorIs(t, err, domain.ErrBadShape)
}

func TestSaveEmptyRoster(t *testing.T) {
	s := newTestStore(t)
	err := s.Save("empty", File{Topic: "x"})
	assert.ErrorIs(t, err, domain.ErrEmptyRoster)
}

func TestList(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("alpha", testFile()))
	require.NoError(t, s.Save("beta", testFile()))

	names, err := s.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, names)
}
