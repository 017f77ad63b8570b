// Package pkgerrors defines the error taxonomy shared by every component of
// pax: each leaf package returns one of these kinds, wrapped with
// github.com/pkg/errors so a caller can still recover a stack trace, and
// Of(err) reads the kind back. The CLI uses it to give Permission errors
// their own exit code; the transaction wrapper rolls back on every error,
// whatever its kind, and no kind causes a retry.
package pkgerrors

import (
	"errors"
	"fmt"

	xerrors "github.com/pkg/errors"
)

// Kind classifies an error; Of recovers it from a wrapped error.
type Kind uint8

const (
	// Unknown is the zero value; Of(err) returns it for errors that were
	// never tagged by this package.
	Unknown Kind = iota
	Input
	NotFound
	Network
	Integrity
	Trust
	Conflict
	State
	Script
	IO
	// Permission marks an operation that requires elevated privileges the
	// current process lacks, so the CLI dispatcher can return a distinct
	// exit code prompting the caller to re-exec with elevation.
	Permission
)

func (k Kind) String() string {
	switch k {
	case Input:
		return "InputError"
	case NotFound:
		return "NotFound"
	case Network:
		return "NetworkError"
	case Integrity:
		return "IntegrityError"
	case Trust:
		return "TrustError"
	case Conflict:
		return "ConflictError"
	case State:
		return "StateError"
	case Script:
		return "ScriptError"
	case IO:
		return "IOError"
	case Permission:
		return "PermissionError"
	default:
		return "Unknown"
	}
}

// taggedError carries a Kind alongside the wrapped cause.
type taggedError struct {
	kind Kind
	pkg  string // offending package name, when applicable
	ver  string // offending package version, when applicable
	err  error
}

func (e *taggedError) Error() string {
	if e.pkg == "" {
		return e.err.Error()
	}
	if e.ver == "" {
		return fmt.Sprintf("%s: %s", e.pkg, e.err.Error())
	}
	return fmt.Sprintf("%s %s: %s", e.pkg, e.ver, e.err.Error())
}

func (e *taggedError) Cause() error { return e.err }
func (e *taggedError) Unwrap() error { return e.err }

// New builds a Kind-tagged error from a format string, matching the
// signature of fmt.Errorf so call sites read the same as any other error
// construction in the codebase.
func New(kind Kind, format string, args ...interface{}) error {
	return &taggedError{kind: kind, err: xerrors.Errorf(format, args...)}
}

// Wrap attaches a Kind to an existing error, preserving its message and
// stack (if github.com/pkg/errors already attached one).
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &taggedError{kind: kind, err: xerrors.Wrap(err, msg)}
}

// WithPackage attaches the offending package's name and version to an
// error, so user-facing messages can include them.
func WithPackage(err error, name, version string) error {
	if err == nil {
		return nil
	}
	if te, ok := err.(*taggedError); ok {
		te.pkg, te.ver = name, version
		return te
	}
	return &taggedError{kind: Unknown, pkg: name, ver: version, err: err}
}

// Of returns the Kind tagged onto err, or Unknown if err was never tagged
// by this package (including err == nil).
func Of(err error) Kind {
	if err == nil {
		return Unknown
	}
	var te *taggedError
	if errors.As(err, &te) {
		return te.kind
	}
	return Unknown
}

// Is reports whether err was tagged with the given kind.
func Is(err error, kind Kind) bool {
	return Of(err) == kind
}
