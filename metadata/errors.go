package metadata

import "errors"

// Kind is a stable category for programmatic error handling.
//
// Categories are intended to remain stable across versions; callers should
// branch on Kind/RuleID rather than matching error strings. Error() text is
// human-readable and may evolve.
type Kind string

const (
	// KindValidation covers pre-condition failures raised before any
	// cryptographic work: bad target or format strings, missing signer id or
	// timestamp, forbidden omit keys, wrong key material.
	KindValidation Kind = "Validation"

	// KindInsufficientTargets reports a target class with fewer matches than
	// the selector run needs.
	KindInsufficientTargets Kind = "InsufficientTargets"

	// KindSerialization wraps canonical JSON/CBOR/JUMBF encode failures.
	KindSerialization Kind = "Serialization"

	// KindSigning wraps failures reported by the signing oracle.
	KindSigning Kind = "Signing"

	// KindInternal marks conditions that indicate a bug in this module.
	KindInternal Kind = "Internal"
)

// Error is the module's structured error type. RuleID is a stable identifier
// (e.g. ENC-VAL-001, ENC-TGT-002) naming the violated rule.
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

func wrapError(kind Kind, ruleID, msg string, cause error) error {
	if cause == nil {
		return newError(kind, ruleID, msg)
	}
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Cause: cause}
}

// NewValidationError builds a KindValidation error for callers layered on
// top of this package, such as stream handlers with their own pre-conditions.
func NewValidationError(ruleID, msg string) error {
	return newError(KindValidation, ruleID, msg)
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}
