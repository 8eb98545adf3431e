package domain

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Entry is a single conversation entry. The boolean flags classify meta
// entries: thinking and system entries never reach other agents' prompts,
// and summary/decision entries are the coordinator's own prior meta-output.
type Entry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Sender     string    `json:"sender"`
	Message    string    `json:"message"`
	Role       string    `json:"role,omitempty"`
	IsThinking bool      `json:"is_thinking,omitempty"`
	IsSystem   bool      `json:"is_system,omitempty"`
	IsSummary  bool      `json:"is_summary,omitempty"`
	IsDecision bool      `json:"is_decision,omitempty"`
}

// NewEntry creates a timestamped entry with a fresh ULID.
func NewEntry(sender, message string) Entry {
	now := time.Now()
	return Entry{
		ID:        NewULID(now),
		Timestamp: now,
		Sender:    sender,
		Message:   message,
	}
}

// NewULID returns a ULID string for the given time.
func NewULID(t time.Time) string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// Transcript is an ordered sequence of conversation entries.
type Transcript []Entry

// Responses returns the entries with none of the meta flags set. This is the
// view the coordinator's summarize/decide calls reason over.
func (t Transcript) Responses() Transcript {
	out := make(Transcript, 0, len(t))
	for _, e := range t {
		if !e.IsThinking && !e.IsSystem && !e.IsSummary && !e.IsDecision {
			out = append(out, e)
		}
	}
	return out
}

// Dialogue returns the entries that are neither private thinking nor system
// meta, i.e. everything a reader of the discussion would see. The final-output
// synthesis reasons over this view.
func (t Transcript) Dialogue() Transcript {
	out := make(Transcript, 0, len(t))
	for _, e := range t {
		if !e.IsThinking && !e.IsSystem {
			out = append(out, e)
		}
	}
	return out
}

// Format renders the transcript as "sender: message" lines for prompting.
func (t Transcript) Format() string {
	lines := make([]string, 0, len(t))
	for _, e := range t {
		lines = append(lines, fmt.Sprintf("%s: %s", e.Sender, e.Message))
	}
	return strings.Join(lines, "\n")
}

// Tail returns the last n entries, or the whole transcript if it is shorter.
func (t Transcript) Tail(n int) Transcript {
	if len(t) <= n {
		return t
	}
	return t[len(t)-n:]
}
