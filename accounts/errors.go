package accounts

import "errors"

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind/RuleID rather than matching error strings.
// Error() strings are human-readable and may evolve.
type Kind string

const (
	// KindDecode covers malformed, truncated, or otherwise untrustworthy
	// account bytes. Callers must treat it as "resource absent".
	KindDecode Kind = "Decode"
	// KindProgram means the account is owned by an unexpected program.
	KindProgram Kind = "Program"
	// KindSchema covers registry misuse: unknown tags or bad descriptors.
	KindSchema Kind = "Schema"
)

// Error is the decoder's structured error type.
//
// RuleID is a stable identifier (e.g. ACCT-DEC-010) naming the violated
// wire-format rule. Message is intended for humans; do not match on it.
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

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// IsNotThisProgram reports whether err means the account belongs to a
// program other than the asset-metadata program.
func IsNotThisProgram(err error) bool { return IsKind(err, KindProgram) }

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}
