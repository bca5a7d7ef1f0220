// Package reject defines the rejection taxonomy shared by every simulation operation.
// A rejection is never fatal: the caller may retry once the missing precondition holds.
package reject

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation was refused.
type Kind string

const (
	// KindCapacity covers insufficient currency, storage, hardware resources or slots.
	KindCapacity Kind = "CAPACITY"
	// KindState covers operations that are invalid for the entity's current state.
	KindState Kind = "STATE"
)

// Codes reported by the simulation core.
const (
	CodeInsufficientCurrency = "INSUFFICIENT_CURRENCY"
	CodeInsufficientStorage  = "INSUFFICIENT_STORAGE"
	CodeInsufficientResource = "INSUFFICIENT_RESOURCE"
	CodeNoJobSlot            = "NO_JOB_SLOT"
	CodeRosterFull           = "ROSTER_FULL"
	CodeLevelTooLow          = "LEVEL_TOO_LOW"
	CodeMissingPrerequisite  = "MISSING_PREREQUISITE"
	CodeMissingSkill         = "MISSING_SKILL"
	CodeMaxLevel             = "MAX_LEVEL"
	CodeNotFound             = "NOT_FOUND"
	CodeAlreadyExists        = "ALREADY_EXISTS"
	CodeInvalidState         = "INVALID_STATE"
	CodeInvalidAmount        = "INVALID_AMOUNT"
	CodeNotEligible          = "NOT_ELIGIBLE"
)

// Error is a recoverable rejection with a machine code and a human-readable reason.
type Error struct {
	Kind   Kind
	Code   string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s rejected (%s): %s", e.Kind, e.Code, e.Reason)
}

// Capacity builds a capacity rejection.
func Capacity(code, format string, args ...any) *Error {
	return &Error{Kind: KindCapacity, Code: code, Reason: fmt.Sprintf(format, args...)}
}

// State builds a state rejection.
func State(code, format string, args ...any) *Error {
	return &Error{Kind: KindState, Code: code, Reason: fmt.Sprintf(format, args...)}
}

// As extracts the rejection from err, if any.
func As(err error) (*Error, bool) {
	var rej *Error
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

// IsCapacity reports whether err is a capacity rejection.
func IsCapacity(err error) bool {
	rej, ok := As(err)
	return ok && rej.Kind == KindCapacity
}

// IsState reports whether err is a state rejection.
func IsState(err error) bool {
	rej, ok := As(err)
	return ok && rej.Kind == KindState
}

// HasCode reports whether err is a rejection carrying code.
func HasCode(err error, code string) bool {
	rej, ok := As(err)
	return ok && rej.Code == code
}
