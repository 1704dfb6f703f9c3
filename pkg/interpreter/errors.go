package interpreter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"serpent/interpreter-go/pkg/runtime"
)

// TraceEntry is one frame of a traceback.
type TraceEntry struct {
	Filename string
	Name     string
	Line     int
}

// ExecError is an exception that escaped a frame, with the frames it
// unwound through. Trace is ordered innermost first.
type ExecError struct {
	Exception *runtime.Exception
	Trace     []TraceEntry
}

func (e *ExecError) Error() string {
	return e.Exception.Error()
}

func (e *ExecError) Unwrap() error { return e.Exception }

// Traceback renders the error the way the interactive shell prints it.
func (e *ExecError) Traceback() string {
	var b strings.Builder
	b.WriteString("Traceback (most recent call last):\n")
	for n := len(e.Trace) - 1; n >= 0; n-- {
		t := e.Trace[n]
		fmt.Fprintf(&b, "  File %q, line %d, in %s\n", t.Filename, t.Line, t.Name)
	}
	b.WriteString(e.Exception.Error())
	return b.String()
}

// unwind records fr in the trace of err, converting plain errors to
// exceptions first. Context cancellation passes through untouched.
func unwind(fr *frame, offset int, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var ee *ExecError
	if !errors.As(err, &ee) {
		ee = &ExecError{Exception: runtime.AsException(err)}
	}
	ee.Trace = append(ee.Trace, TraceEntry{
		Filename: fr.code.Filename,
		Name:     fr.code.Name,
		Line:     fr.code.LineFor(offset),
	})
	return ee
}

func typeError(format string, args ...any) *runtime.Exception {
	return runtime.NewException(runtime.TypeErrorClass, format, args...)
}

func valueError(format string, args ...any) *runtime.Exception {
	return runtime.NewException(runtime.ValueErrorClass, format, args...)
}

// isException reports whether err carries an exception of class cls or a
// subclass.
func isException(err error, cls *runtime.Class) bool {
	var exc *runtime.Exception
	return errors.As(err, &exc) && exc.Class().IsSubclass(cls)
}
