package discussion

import "strings"

// Archetype selects a coordinator's leadership style. The set is closed;
// unknown values degrade to the generic facilitator prompt rather than fail.
type Archetype string

const (
	Facilitator    Archetype = "facilitator"
	Director       Archetype = "director"
	Strategist     Archetype = "strategist"
	Catalyst       Archetype = "catalyst"
	ProjectManager Archetype = "project_manager"
)

// Archetypes lists the known archetypes in fixed order. Scoring ties in
// DetermineArchetype resolve in this order.
var Archetypes = []Archetype{Facilitator, Director, Strategist, Catalyst, ProjectManager}

// Known reports whether a is one of the closed archetype set.
func (a Archetype) Known() bool {
	switch a {
	case Facilitator, Director, Strategist, Catalyst, ProjectManager:
		return true
	}
	return false
}

// Keyword sets suggesting each non-default archetype. Scores below the
// threshold fall back to the facilitator.
var (
	directorKeywords = []string{
		"efficient", "quick", "fast", "timeline", "deadline", "urgent", "immediate",
		"action", "execute", "implement", "deliver", "produce", "create", "build",
		"project", "task", "assignment", "deliverable", "output", "result",
	}
	strategistKeywords = []string{
		"analyze", "evaluate", "assess", "review", "examine", "investigate", "research",
		"strategy", "plan", "approach", "methodology", "framework", "model",
		"quality", "accuracy", "precision", "thorough", "comprehensive", "detailed",
		"evidence", "data", "facts", "statistics", "metrics", "measurements",
	}
	catalystKeywords = []string{
		"innovate", "create", "design", "develop", "invent", "discover", "explore",
		"creative", "original", "novel", "unique", "different", "new",
		"brainstorm", "ideate", "concept", "prototype", "experiment", "test",
		"art", "writing", "music", "story", "narrative",
	}
)

const archetypeScoreThreshold = 2

// DetermineArchetype picks the coordinator archetype best matching a scenario
// by counting case-insensitive keyword hits. A best score under the threshold
// means no strong signal and yields the facilitator.
func DetermineArchetype(scenario string) Archetype {
	lower := strings.ToLower(scenario)

	score := func(keywords []string) int {
		n := 0
		for _, w := range keywords {
			if strings.Contains(lower, w) {
				n++
			}
		}
		return n
	}

	best := Facilitator
	bestScore := 0
	for _, c := range []struct {
		archetype Archetype
		keywords  []string
	}{
		{Director, directorKeywords},
		{Strategist, strategistKeywords},
		{Catalyst, catalystKeywords},
	} {
		if s := score(c.keywords); s > bestScore {
			best = c.archetype
			bestScore = s
		}
	}

	if bestScore < archetypeScoreThreshold {
		return Facilitator
	}
	return best
}
