package domain

import (
	"fmt"
	"strings"
)

// AgentProfile is the fixed identity of a discussion participant.
// All four fields are required; Validate enforces this at construction time.
type AgentProfile struct {
	Name       string `json:"name"        yaml:"name"`
	Role       string `json:"role"        yaml:"role"`
	BasePrompt string `json:"base_prompt" yaml:"base_prompt"`
	Model      string `json:"model"       yaml:"model"`
}

// Validate reports whether the profile is complete. Every identity field must
// be non-blank; there are no defaults.
func (p AgentProfile) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return WrapOp("profile", fmt.Errorf("agent name cannot be empty: %w", ErrInvalidInput))
	case strings.TrimSpace(p.Role) == "":
		return WrapOp("profile", fmt.Errorf("agent role cannot be empty: %w", ErrInvalidInput))
	case strings.TrimSpace(p.BasePrompt) == "":
		return WrapOp("profile", fmt.Errorf("agent base prompt cannot be empty: %w", ErrInvalidInput))
	case strings.TrimSpace(p.Model) == "":
		return WrapOp("profile", fmt.Errorf("agent model cannot be empty: %w", ErrInvalidInput))
	}
	return nil
}

// Equal reports value equality on (Name, Role, BasePrompt, Model).
// Roster deduplication and removal rely on this contract.
func (p AgentProfile) Equal(other AgentProfile) bool {
	return p.Name == other.Name &&
		p.Role == other.Role &&
		p.BasePrompt == other.BasePrompt &&
		p.Model == other.Model
}

func (p AgentProfile) String() string {
	return fmt.Sprintf("%s (%s) - %s", p.Name, p.Role, p.Model)
}

// RosterRecord is the portable form of one roster member, shared by the
// task-force generator and the roster persistence layer.
type RosterRecord struct {
	Name          string `json:"name"`
	Role          string `json:"role"`
	Prompt        string `json:"prompt"`
	Model         string `json:"model"`
	IsCoordinator bool   `json:"is_coordinator"`
	Archetype     string `json:"archetype,omitempty"`
}

// RoundContext is the closed per-round context record passed into think and
// respond operations. KnowledgeSummary is filled only when a lookup directive
// produced content for the current response.
type RoundContext struct {
	RoundNumber      int      `json:"round_number"`
	TotalRounds      int      `json:"total_rounds"`
	Participants     []string `json:"participating_agents"`
	KnowledgeSummary string   `json:"knowledge_summary,omitempty"`
}
