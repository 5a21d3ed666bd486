// Package errors mirrors the github.com/pkg/errors API used across the module, and adds the coded WinError values
// that are surfaced to callers of a window stage.
//
// Wrapping an error that already carries a stack trace taken on the same goroutine does not add a second trace:
// StackTrace returns nil for a wrapper whose frames are a suffix of its cause's frames, so a logged error normally
// prints a single root trace.
package errors

import (
	stderrors "errors" //nolint: depguard
	"fmt"
	"io"
	"runtime"

	"github.com/pkg/errors" //nolint: depguard
)

// New returns an error with the supplied message and the current stack.
func New(message string) error {
	return newStackErr(nil, message)
}

// Errorf formats the message and records the current stack.
func Errorf(format string, args ...interface{}) error {
	return newStackErr(nil, fmt.Sprintf(format, args...))
}

// Wrap annotates err with message and a stack trace. Wrap(nil, ...) is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return newStackErr(err, message)
}

// Wrapf annotates err with a formatted message and a stack trace. Wrapf(nil, ...) is nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return newStackErr(err, fmt.Sprintf(format, args...))
}

// WithStack annotates err with a stack trace only. WithStack(nil) is nil.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	return newStackErr(err, "")
}

// Cause walks the chain of causers and returns the innermost error.
func Cause(err error) error {
	for err != nil {
		c, ok := err.(causer)
		if !ok || c.Cause() == nil {
			break
		}
		err = c.Cause()
	}
	return err
}

func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target interface{}) bool { return stderrors.As(err, target) }

type stackErr struct {
	cause error
	stack errors.StackTrace
	msg   string
}

func newStackErr(cause error, msg string) error {
	// drop this function and the exported caller (Wrapf etc) from the trace
	stack := errors.New("").(stackTracer).StackTrace()[2:]
	return &stackErr{cause: cause, stack: stack, msg: msg}
}

func (e *stackErr) Error() string {
	switch {
	case e.cause == nil:
		return e.msg
	case e.msg == "":
		return e.cause.Error()
	default:
		return e.msg + ": " + e.cause.Error()
	}
}

func (e *stackErr) Cause() error { return e.cause }

func (e *stackErr) Unwrap() error { return e.cause }

// StackTrace returns the trace recorded for this wrapper, or nil if the cause already holds a trace taken from the
// same call chain.
func (e *stackErr) StackTrace() errors.StackTrace {
	var causeStack errors.StackTrace
	if se, ok := e.cause.(*stackErr); ok {
		// read the field directly, the method may legitimately return nil
		causeStack = se.stack
	} else if st, ok := e.cause.(stackTracer); ok {
		causeStack = st.StackTrace()
	}
	if len(causeStack) < len(e.stack) {
		return e.stack
	}
	for i := 1; i < len(e.stack); i++ {
		if causeStack[len(causeStack)-i] != e.stack[len(e.stack)-i] {
			return e.stack
		}
	}
	// the innermost frame differs by line number in the usual `return errors.WithStack(err)` idiom, so only the
	// function identity is compared
	if sameFunction(causeStack[len(causeStack)-len(e.stack)], e.stack[0]) {
		return nil
	}
	return e.stack
}

// nolint:errcheck
func (e *stackErr) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if !s.Flag('+') {
			io.WriteString(s, e.Error())
			return
		}
		if e.cause != nil {
			fmt.Fprintf(s, "%+v", e.cause)
		}
		if e.msg != "" {
			if e.cause != nil {
				io.WriteString(s, "\n")
			}
			io.WriteString(s, e.msg)
		}
		if stack := e.StackTrace(); stack != nil {
			fmt.Fprintf(s, "%+v", stack)
		}
	case 's':
		io.WriteString(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}

func sameFunction(f1 errors.Frame, f2 errors.Frame) bool {
	file1, name1 := frameInfo(f1)
	file2, name2 := frameInfo(f2)
	return file1 == file2 && name1 == name2
}

func frameInfo(f errors.Frame) (string, string) {
	pc := uintptr(f) - 1
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknown", "unknown"
	}
	file, _ := fn.FileLine(pc)
	return file, fn.Name()
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

type causer interface {
	Cause() error
}
