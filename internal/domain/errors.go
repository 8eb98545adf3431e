package domain

import "fmt"

// Category sentinels. State-precondition and extraction failures are ordinary
// control-flow outcomes for the orchestrator, so they are error values matched
// with errors.Is, never panics.
var (
	ErrNotFound     = fmt.Errorf("not found")
	ErrInvalidInput = fmt.Errorf("invalid input")

	// Coordinator sub-protocol sentinels.
	ErrNotProjectManager = fmt.Errorf("only project manager coordinators can perform this operation")
	ErrNoPlan            = fmt.Errorf("no project plan available")

	// Structured-extraction sentinels.
	ErrNoJSON   = fmt.Errorf("no valid JSON value found")
	ErrBadShape = fmt.Errorf("missing required keys")

	// Orchestrator entry preconditions.
	ErrEmptyRoster = fmt.Errorf("agent roster is empty")
	ErrEmptyTopic  = fmt.Errorf("discussion topic is empty")
)

// DomainError wraps a sentinel error with operation context.
type DomainError struct {
	Op     string // operation name (e.g., "Coordinator.BreakDownTask")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
