package llvm

import (
	"errors"
	"fmt"
)

// ErrorKind classifies backend failures.
type ErrorKind uint8

const (
	ErrInternal ErrorKind = iota
	// ErrUnknownType: a semantic type with no target representation.
	ErrUnknownType
	// ErrMissingLayout: a layout, field offset or element size is absent.
	ErrMissingLayout
	ErrArity
	ErrUnsupportedProjection
	ErrUnionType
	// ErrMissingSignature: a callee that must be resolved was not.
	ErrMissingSignature
	// ErrABIMismatch: a foreign function value could not be classified.
	ErrABIMismatch
	ErrSimdElement
)

var errorKindNames = [...]string{
	ErrInternal:              "internal",
	ErrUnknownType:           "unknown type",
	ErrMissingLayout:         "missing layout",
	ErrArity:                 "arity mismatch",
	ErrUnsupportedProjection: "unsupported projection",
	ErrUnionType:             "unsupported union type",
	ErrMissingSignature:      "missing signature",
	ErrABIMismatch:           "abi mismatch",
	ErrSimdElement:           "invalid simd element",
}

func (k ErrorKind) String() string {
	if int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", k)
}

// Error is a backend failure. Func is filled in once the error leaves the
// function emitter.
type Error struct {
	Kind ErrorKind
	Func string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg += ": " + e.Err.Error()
		}
	}
	if e.Func != "" {
		return fmt.Sprintf("llvm: %s: %s", e.Func, msg)
	}
	return "llvm: " + msg
}

func (e *Error) Unwrap() error { return e.Err }

// Detail is the message without the function prefix.
func (e *Error) Detail() string {
	if e.Err == nil {
		return e.Msg
	}
	var inner *Error
	if errors.As(e.Err, &inner) && e.Msg == "" {
		return inner.Detail()
	}
	if e.Msg == "" {
		return e.Err.Error()
	}
	return e.Msg + ": " + e.Err.Error()
}

func errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func wrapError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// inFunc attaches the function name to err. A wrapped backend error keeps
// its kind.
func inFunc(name string, err error) error {
	if err == nil {
		return nil
	}
	if be, ok := err.(*Error); ok {
		if be.Func == "" {
			cp := *be
			cp.Func = name
			return &cp
		}
		return be
	}
	kind := ErrInternal
	var inner *Error
	if errors.As(err, &inner) {
		kind = inner.Kind
	}
	return &Error{Kind: kind, Func: name, Err: err}
}
