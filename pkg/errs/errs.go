// Package errs defines the typed failure categories from spec.md §7 so
// callers across the chain controller, evaluators and housekeeping loop can
// branch on "what kind of thing went wrong" without string matching.
package errs

import (
	"errors"
	"fmt"
)

// Kind is one of the error categories named in spec.md §7.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindAuthorityMissing Kind = "authority_missing"
	KindPrecondition    Kind = "precondition"
	KindProtocol        Kind = "protocol"
	KindConsensus       Kind = "consensus"
	KindBlackSwan       Kind = "black_swan"
	KindFatal           Kind = "fatal"
)

// Error wraps an underlying error with a Kind so it survives errors.Is /
// errors.As chains the same way github.com/pkg/errors wrapping does.
type Error struct {
	Kind Kind
	Msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.err }

// New builds a Kind-tagged error.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap tags err with kind, preserving it as the cause.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, err: err}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(kind Kind, err error, format string, args ...interface{}) error {
	return Wrap(kind, err, fmt.Sprintf(format, args...))
}

// Is reports whether err (or any error it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if errors.As(err, &e) {
			if e.Kind == kind {
				return true
			}
			err = e.err
			continue
		}
		break
	}
	return false
}

// KindOf returns the Kind of err if it (or a wrapped cause) is a *Error, and
// ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
