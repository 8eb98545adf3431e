// Package roster persists generated task-force rosters as JSON files so a
// discussion can be rerun without regenerating its participants.
package roster

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kaptinlin/jsonschema"

	"colloquy/internal/domain"
)

// File is the on-disk roster document. Member records use the shared
// domain.RosterRecord shape.
type File struct {
	Topic   string                `json:"topic"`
	SavedAt time.Time             `json:"saved_at"`
	Agents  []domain.RosterRecord `json:"agents"`
}

const rosterSchema = `{
	"type": "object",
	"required": ["topic", "agents"],
	"properties": {
		"topic": {"type": "string", "minLength": 1},
		"saved_at": {"type": "string"},
		"agents": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["name", "role", "prompt", "model"],
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"role": {"type": "string", "minLength": 1},
					"prompt": {"type": "string", "minLength": 1},
					"model": {"type": "string", "minLength": 1},
					"is_coordinator": {"type": "boolean"},
					"archetype": {"type": "string"}
				}
			}
		}
	}
}`

// Store reads and writes roster files under a data directory.
type Store struct {
	dir              string
	defaultArchetype string
	schema           *jsonschema.Schema
}

// NewStore creates a roster store rooted at dir. Records loaded without an
// archetype get defaultArchetype applied.
func NewStore(dir, defaultArchetype string) (*Store, error) {
	schema, err := jsonschema.NewCompiler().Compile([]byte(rosterSchema))
	if err != nil {
		return nil, fmt.Errorf("compile roster schema: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create roster dir: %w", err)
	}
	return &Store{dir: dir, defaultArchetype: defaultArchetype, schema: schema}, nil
}

// Save writes the roster for a topic. The filename is derived from name,
// which must not contain path separators.
func (s *Store) Save(name string, f File) error {
	if len(f.Agents) == 0 {
		return domain.NewDomainError("roster.Save", domain.ErrEmptyRoster, "no agents to save")
	}
	if f.SavedAt.IsZero() {
		f.SavedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal roster: %w", err)
	}

	path := s.path(name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write roster: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename roster: %w", err)
	}
	return nil
}

// Load reads and validates a saved roster. Records without an archetype get
// the store's default so older files keep working.
func (s *Store) Load(name string) (File, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return File{}, domain.NewDomainError("roster.Load", domain.ErrNotFound, name)
		}
		return File{}, fmt.Errorf("read roster: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return File{}, fmt.Errorf("parse roster: %w", err)
	}
	if result := s.schema.Validate(doc); !result.IsValid() {
		return File{}, domain.NewDomainError("roster.Load", domain.ErrBadShape,
			fmt.Sprintf("roster file %s failed validation", name))
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("decode roster: %w", err)
	}
	for i := range f.Agents {
		if f.Agents[i].Archetype == "" {
			f.Agents[i].Archetype = s.defaultArchetype
		}
	}
	return f, nil
}

// List returns the names of all saved rosters.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read roster dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, e.Name()[:len(e.Name())-len(".json")])
	}
	return names, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name)+".json")
}
