package pyast

import (
	"errors"
	"fmt"

	"serpent/interpreter-go/pkg/runtime"
)

// ErrTreeTooDeep is returned when from-object conversion nests deeper than
// the configured limit. Self-referential object graphs end here.
var ErrTreeTooDeep = errors.New("pyast: tree too deep")

// MissingFieldError reports a required attribute absent from a node object.
type MissingFieldError struct {
	Field string
	Kind  string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("required field %q missing from %s", e.Field, e.Kind)
}

// UnsupportedConstantError reports a Constant value of an unrecognised
// class.
type UnsupportedConstantError struct {
	TypeName string
}

func (e *UnsupportedConstantError) Error() string {
	return fmt.Sprintf("got an invalid type in Constant: %s", e.TypeName)
}

// OutOfRangeError reports an integer that does not fit the target field.
type OutOfRangeError struct {
	Value  string
	Target string
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("integer %s out of range for %s", e.Value, e.Target)
}

// InvalidEnumOrdinalError reports an integer that names no variant.
type InvalidEnumOrdinalError struct {
	Enum  string
	Value string
}

func (e *InvalidEnumOrdinalError) Error() string {
	return fmt.Sprintf("invalid %s ordinal %s", e.Enum, e.Value)
}

// TypeMismatchError reports a value of the wrong class for a field.
type TypeMismatchError struct {
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("expected %s, but got %s", e.Expected, e.Got)
}

func mismatch(expected string, got runtime.Value) error {
	return &TypeMismatchError{Expected: expected, Got: runtime.TypeName(got)}
}

// ErrorKind is the user-facing exception class of a pipeline failure.
type ErrorKind int

const (
	ValueError ErrorKind = iota
	TypeError
	RecursionError
)

func (k ErrorKind) String() string {
	switch k {
	case TypeError:
		return "TypeError"
	case RecursionError:
		return "RecursionError"
	default:
		return "ValueError"
	}
}

func (k ErrorKind) class() *runtime.Class {
	switch k {
	case TypeError:
		return runtime.TypeErrorClass
	case RecursionError:
		return runtime.RecursionErrorClass
	default:
		return runtime.ValueErrorClass
	}
}

// Error is the single error shape the pipeline entry points return. The
// formatted message is what embedded code sees; Err keeps the structured
// cause for Go callers.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Exception converts the failure into a runtime exception value.
func (e *Error) Exception() *runtime.Exception {
	exc := runtime.NewException(e.Kind.class(), "%s", e.Msg)
	exc.Cause = e
	return exc
}

func valueError(err error) *Error {
	return &Error{Kind: ValueError, Msg: err.Error(), Err: err}
}

// structuralError classifies a from-object failure.
func structuralError(err error) *Error {
	kind := TypeError
	var (
		rng  *OutOfRangeError
		enum *InvalidEnumOrdinalError
	)
	switch {
	case errors.Is(err, ErrTreeTooDeep):
		kind = RecursionError
	case errors.As(err, &rng), errors.As(err, &enum):
		kind = ValueError
	}
	return &Error{Kind: kind, Msg: err.Error(), Err: err}
}
