// Package errs defines the typed errors shared by every keyward component.
//
// Each error carries a Kind so callers can branch on failure class without
// string matching. Kinds are matched through errors.Is: a *Error is "Is"
// any other *Error with the same Kind, so sentinel values like ErrNotFound
// work as match targets for wrapped errors.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindNotInitialized     Kind = "NOT_INITIALIZED"
	KindInvalidKey         Kind = "INVALID_KEY"
	KindInvalidKeyType     Kind = "INVALID_KEY_TYPE"
	KindAuthFailure        Kind = "AUTHENTICATION_FAILURE"
	KindNetwork            Kind = "NETWORK"
	KindNotFound           Kind = "NOT_FOUND"
	KindInvalidCode        Kind = "INVALID_CODE"
	KindExpiredPairingCode Kind = "EXPIRED_PAIRING_CODE"
	KindInvalidArgument    Kind = "INVALID_ARGUMENT"
	KindWrongPassword      Kind = "WRONG_PASSWORD"
	KindIO                 Kind = "IO"
	KindInternal           Kind = "INTERNAL"
)

// Error is a classified error with an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports kind equality, so errors.Is(err, ErrNotFound) matches any
// not-found error regardless of message or cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// New returns a fresh error of the given kind.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Newf is New with Sprintf formatting.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, message string, cause error) error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the kind from err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Sentinels for errors.Is checks.
var (
	ErrNotInitialized     = New(KindNotInitialized, "store not initialized")
	ErrInvalidKey         = New(KindInvalidKey, "invalid key")
	ErrInvalidKeyType     = New(KindInvalidKeyType, "invalid key type")
	ErrAuthFailure        = New(KindAuthFailure, "authentication failure")
	ErrNetwork            = New(KindNetwork, "network failure")
	ErrNotFound           = New(KindNotFound, "not found")
	ErrInvalidCode        = New(KindInvalidCode, "invalid code")
	ErrExpiredPairingCode = New(KindExpiredPairingCode, "pairing code expired")
	ErrInvalidArgument    = New(KindInvalidArgument, "invalid argument")
	ErrWrongPassword      = New(KindWrongPassword, "wrong password")
	ErrIO                 = New(KindIO, "i/o failure")
)
