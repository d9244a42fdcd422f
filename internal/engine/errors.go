package engine

import (
	"fmt"
	"strings"
)

// ValidationError blocks a forward transition: it names the exact
// fields of the current step that are missing or malformed. It is
// surfaced to the user at the failing step and is never fatal.
type ValidationError struct {
	StepID  string
	Missing []string // required visible fields with no answer
	Invalid []string // fields with a value outside their definition
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing required field(s): %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, fmt.Sprintf("invalid value(s) for: %s", strings.Join(e.Invalid, ", ")))
	}
	return fmt.Sprintf("step %s: %s", e.StepID, strings.Join(parts, "; "))
}

// ModuleError is a definition-level failure (missing field, broken
// predicate reference, absent results step). It is fatal to this
// module run only; it never touches another module's answers or the
// contract hub.
type ModuleError struct {
	ModuleID string
	Message  string
	Err      error
}

// Error implements the error interface.
func (e *ModuleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("module %s: %s: %v", e.ModuleID, e.Message, e.Err)
	}
	return fmt.Sprintf("module %s: %s", e.ModuleID, e.Message)
}

// Unwrap returns the underlying error.
func (e *ModuleError) Unwrap() error {
	return e.Err
}
