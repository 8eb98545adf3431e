package discussion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupTerm(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{"double quoted", `I should check this.
WIKI_LOOKUP: "Theory of Relativity"
Then I will respond.`, "Theory of Relativity"},
		{"single quoted", `WIKI_LOOKUP: 'Quantum entanglement'`, "Quantum entanglement"},
		{"bare term", "WIKI_LOOKUP: Photosynthesis", "Photosynthesis"},
		{"no directive", "Just thinking about the topic here.", ""},
		{"empty term", `WIKI_LOOKUP: ""`, ""},
		{"single character", `WIKI_LOOKUP: "x"`, ""},
		{"whitespace only", `WIKI_LOOKUP: "   "`, ""},
		{"first of several", `WIKI_LOOKUP: "First Term"
WIKI_LOOKUP: "Second Term"`, "First Term"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, LookupTerm(tc.text))
		})
	}
}
