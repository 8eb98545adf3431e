package discussion

import (
	"regexp"
	"strings"
)

// lookupKeyword is the in-band directive agents emit in private thinking to
// request an encyclopedic lookup before responding.
const lookupKeyword = "WIKI_LOOKUP:"

// The term may be double-quoted, single-quoted, or bare.
var lookupRe = regexp.MustCompile(`WIKI_LOOKUP:\s*(?:"(.*?)"|'(.*?)'|([^"']+))`)

// LookupTerm extracts the search term from the first lookup directive in
// text. It returns "" when there is no directive or the captured term is
// unusable: empty, a repeat of the keyword itself, or a single character.
func LookupTerm(text string) string {
	m := lookupRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}

	var term string
	for _, g := range m[1:] {
		if g != "" {
			term = g
			break
		}
	}
	term = strings.TrimSpace(term)

	if term == "" || strings.EqualFold(term, lookupKeyword) || len(term) <= 1 {
		return ""
	}
	return term
}
