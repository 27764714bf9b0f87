// Package mcerr defines the typed error taxonomy shared by every pipeline
// stage, so callers can switch on a stable Kind instead of matching error
// strings.
package mcerr

import (
	"errors"
	"fmt"
)

// Kind identifies the class of failure behind an Error.
type Kind string

const (
	Network            Kind = "network"
	Integrity          Kind = "integrity"
	NotFoundVersion    Kind = "notFound.version"
	NotFoundClass      Kind = "notFound.class"
	NotFoundRegistry   Kind = "notFound.registry"
	NotFoundMapping    Kind = "notFound.mapping"
	ParseTinyV2        Kind = "parse.tinyV2"
	ParseProguard      Kind = "parse.proguard"
	SubprocessSpawn    Kind = "subprocess.spawn"
	SubprocessTimeout  Kind = "subprocess.timeout"
	SubprocessCanceled Kind = "subprocess.canceled"
	SubprocessNonzero  Kind = "subprocess.nonzero"
	DecompileFailed    Kind = "decompile.failed"
	RemapFailed        Kind = "remap.failed"
	RegistryExtraction Kind = "registry.extraction"
	IndexNotIndexed    Kind = "index.notIndexed"
	IndexClear         Kind = "index.clear"
	FSIO               Kind = "fs.io"
	JavaVersion        Kind = "java.version"
	ValidationPath     Kind = "validation.path"
)

// Error is the concrete value carried across every component boundary.
//
// It intentionally mirrors claircore's DigestError shape: a small struct
// with a message, an optional wrapped cause, and structured context for
// the pieces of the taxonomy (class name, version, exit code, ...) that
// benefit from being machine-readable rather than interpolated into the
// message string.
type Error struct {
	Kind    Kind
	Message string
	Context map[string]any
	Cause   error
}

// Error implements error.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

// Unwrap enables errors.Is/errors.As against the wrapped cause.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, mcerr.New(mcerr.Network, "")) style checks, but more
// commonly use KindOf below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New builds an *Error with the given kind and message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf builds an *Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error that carries cause as its Unwrap target.
func Wrap(kind Kind, cause error, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// With attaches structured context and returns the receiver for chaining.
func (e *Error) With(key string, val any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any, 4)
	}
	e.Context[key] = val
	return e
}

// KindOf extracts the Kind of err if it is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
