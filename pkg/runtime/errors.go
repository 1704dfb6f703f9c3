package runtime

import (
	"context"
	"errors"
	"fmt"
)

// ErrAlreadyInUse is returned when a Dict is accessed while a conflicting
// borrow is held.
var ErrAlreadyInUse = errors.New("runtime: dict already in use")

// UnhashableError reports an attempt to use a mutable container as a hash
// key.
type UnhashableError struct {
	TypeName string
}

func (e *UnhashableError) Error() string {
	return fmt.Sprintf("unhashable type: '%s'", e.TypeName)
}

// Exception is a raised runtime exception. It is both a Value and an error
// so native code can return it directly.
type Exception struct {
	class   *Class
	Message string
	Args    []Value
	// Cause is the Go error the exception was raised from, if any.
	Cause error
}

func NewException(cls *Class, format string, args ...any) *Exception {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Exception{class: cls, Message: msg, Args: []Value{Str(msg)}}
}

// WrapException raises cls with err's text, keeping err as the cause.
func WrapException(cls *Class, err error) *Exception {
	exc := NewException(cls, "%s", err.Error())
	exc.Cause = err
	return exc
}

func (e *Exception) Class() *Class { return e.class }

func (e *Exception) Error() string {
	if e.Message == "" {
		return e.class.Name
	}
	return e.class.Name + ": " + e.Message
}

func (e *Exception) Unwrap() error { return e.Cause }

// AsException converts any error into an exception value.
func AsException(err error) *Exception {
	if err == nil {
		return nil
	}
	var exc *Exception
	if errors.As(err, &exc) {
		return exc
	}
	var unhashable *UnhashableError
	if errors.As(err, &unhashable) {
		return WrapException(TypeErrorClass, err)
	}
	// Borrow conflicts and anything unexpected surface as RuntimeError.
	return WrapException(RuntimeErrorClass, err)
}

func newException(_ context.Context, cls *Class, args []Value, _ []KeywordArg) (Value, error) {
	exc := &Exception{class: cls, Args: append([]Value(nil), args...)}
	switch len(args) {
	case 0:
	case 1:
		exc.Message = ToStr(args[0])
	default:
		exc.Message = Repr(Tuple(args))
	}
	return exc, nil
}

func init() {
	BaseExceptionClass.New = newException
}
