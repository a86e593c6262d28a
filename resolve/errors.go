package resolve

import (
	"errors"
	"fmt"
	"strings"
)

// ResolveError represents a failure detected during resolution or
// dependency read.
//
// Resolution errors are wiring bugs, not runtime conditions: the engine
// performs no retry and no partial recovery, and callers are expected to
// let them propagate.
//
// ResolveError includes structured fields for diagnostics.
type ResolveError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Dependent labels the resolving node.
	Dependent string

	// Requested names the requested type (mismatch and not-ready errors).
	Requested string

	// Advertised names the conflicting advertised type (mismatch errors).
	Advertised string

	// Missing names every unmatched requested type (not-found errors),
	// sorted for deterministic output.
	Missing []string
}

// ErrorCode categorizes resolution errors.
type ErrorCode string

const (
	// ErrCodeNotInTree indicates the dependent is not a member of the
	// host tree.
	ErrCodeNotInTree ErrorCode = "NOT_IN_TREE"

	// ErrCodeTypeMismatch indicates an ancestor advertises a strict
	// supertype or subtype of a requested type. The whole resolution
	// aborts; farther ancestors are not consulted.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// ErrCodeNotFound indicates one or more requested types had no
	// provider after the full ancestor walk and fallback pass.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeNotReady indicates a matched provider has not yet signaled
	// readiness. Raised on read, never on resolve.
	ErrCodeNotReady ErrorCode = "NOT_READY"
)

// Error implements the error interface.
func (e *ResolveError) Error() string {
	switch {
	case e.Advertised != "":
		return fmt.Sprintf("%s: %s (dependent=%s, requested=%s, advertised=%s)",
			e.Code, e.Message, e.Dependent, e.Requested, e.Advertised)
	case len(e.Missing) > 0:
		return fmt.Sprintf("%s: %s (dependent=%s, missing=[%s])",
			e.Code, e.Message, e.Dependent, strings.Join(e.Missing, ", "))
	case e.Requested != "":
		return fmt.Sprintf("%s: %s (dependent=%s, requested=%s)",
			e.Code, e.Message, e.Dependent, e.Requested)
	default:
		return fmt.Sprintf("%s: %s (dependent=%s)", e.Code, e.Message, e.Dependent)
	}
}

// IsNotInTree returns true if the error is a tree-membership error.
// Uses errors.As to handle wrapped errors.
func IsNotInTree(err error) bool {
	return hasCode(err, ErrCodeNotInTree)
}

// IsMismatch returns true if the error is a type relationship mismatch.
// Uses errors.As to handle wrapped errors.
func IsMismatch(err error) bool {
	return hasCode(err, ErrCodeTypeMismatch)
}

// IsNotFound returns true if the error reports unmatched requested types.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsNotReady returns true if the error is a premature dependency read.
// Uses errors.As to handle wrapped errors.
func IsNotReady(err error) bool {
	return hasCode(err, ErrCodeNotReady)
}

func hasCode(err error, code ErrorCode) bool {
	var re *ResolveError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}
