// Package extract recovers JSON values from noisy generated text. Model
// output that is supposed to be a single JSON object or array routinely
// arrives wrapped in prose, markdown fencing, or with stray formatting;
// extraction is best-effort but deterministic, and failure is an ordinary
// value (domain.ErrNoJSON), never a panic.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"colloquy/internal/domain"
)

// fenceRe matches markdown code-fence markers with an optional json tag,
// anywhere in the text.
var fenceRe = regexp.MustCompile("```(?:json)?\\s*")

// spacesRe collapses runs of spaces during normalization retry.
var spacesRe = regexp.MustCompile(`  +`)

// Object extracts a single JSON object from text. The span from the first
// '{' to the last '}' is parsed; on failure a bounded normalization pass is
// applied and the parse retried once. If multiple top-level values are
// concatenated, the combined span is attempted as-is and may fail.
func Object(text string) (map[string]any, error) {
	raw, err := slice(text, '{', '}')
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := parseWithRetry(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Array extracts a single JSON array from text with the same contract as
// Object, delimited by the first '[' and the last ']'.
func Array(text string) ([]any, error) {
	raw, err := slice(text, '[', ']')
	if err != nil {
		return nil, err
	}
	var out []any
	if err := parseWithRetry(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// slice strips fence markers and returns the substring between the first
// open delimiter and the last close delimiter.
func slice(text string, opener, closer byte) (string, error) {
	cleaned := strings.TrimSpace(fenceRe.ReplaceAllString(text, ""))
	start := strings.IndexByte(cleaned, opener)
	end := strings.LastIndexByte(cleaned, closer)
	if start < 0 || end <= start {
		return "", domain.WrapOp("extract", domain.ErrNoJSON)
	}
	return cleaned[start : end+1], nil
}

// parseWithRetry attempts a direct parse, then one normalized retry.
func parseWithRetry(raw string, out any) error {
	if err := json.Unmarshal([]byte(raw), out); err == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(normalize(raw)), out); err != nil {
		return domain.WrapOp("extract", domain.ErrNoJSON)
	}
	return nil
}

// normalize applies the bounded cleanup pass: literal and escaped newlines
// and tabs collapse away, repeated spaces collapse to one.
func normalize(s string) string {
	r := strings.NewReplacer(
		"\n", "",
		`\n`, "",
		"\t", "",
		`\t`, "",
	)
	return spacesRe.ReplaceAllString(r.Replace(s), " ")
}
