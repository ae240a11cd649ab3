// Package errors annotates errors with structured log attributes and the source location where they were created.
//
// It is a drop-in replacement for the standard library errors package so that callers only need one import.
package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
)

// ErrUnsupported is re-exported from the standard library.
var ErrUnsupported = stderrors.ErrUnsupported //nolint:errname // mirrors the standard library name.

type annotatedError struct {
	msg         string
	cause       error
	annotations []slog.Attr
	pc          uintptr
}

func (e *annotatedError) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return e.msg + ": " + e.cause.Error()
}

func (e *annotatedError) Unwrap() error {
	return e.cause
}

// callerPC returns the program counter of the function calling into this package.
func callerPC(skip int) uintptr {
	var pcs [1]uintptr
	runtime.Callers(skip+1, pcs[:])
	return pcs[0]
}

// NewSentinel creates an error meant to be compared with [Is]. It carries no source location.
func NewSentinel(msg string) error {
	return stderrors.New(msg) //nolint:err113 // this is the sentinel constructor.
}

// New creates an error annotated with the given attributes and the caller's source location.
func New(msg string, annotations ...slog.Attr) error {
	return &annotatedError{
		msg:         msg,
		cause:       nil,
		annotations: annotations,
		pc:          callerPC(2), //nolint:mnd // skip runtime.Callers and callerPC.
	}
}

// Wrap wraps err with msg and annotations. The source location of the caller is recorded.
func Wrap(err error, msg string, annotations ...slog.Attr) error {
	return &annotatedError{
		msg:         msg,
		cause:       err,
		annotations: annotations,
		pc:          callerPC(2), //nolint:mnd // skip runtime.Callers and callerPC.
	}
}

// DecoratePanic converts a recovered panic value into an error pointing to the line that panicked.
//
// It must be called from the deferred function that called recover.
func DecoratePanic(excp any) error {
	if excp == nil {
		return nil
	}
	const maxDepth = 32
	pcs := make([]uintptr, maxDepth)
	n := runtime.Callers(1, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	var (
		pc           uintptr
		afterGopanic bool
	)
	for {
		frame, more := frames.Next()
		if afterGopanic {
			pc = frame.PC + 1 // CallersFrames expects return addresses.
			break
		}
		if frame.Function == "runtime.gopanic" {
			afterGopanic = true
		}
		if !more {
			break
		}
	}
	var annotations []slog.Attr
	if err, ok := excp.(error); ok {
		annotations = append(annotations, slog.String("panic_type", fmt.Sprintf("%T", err)))
	}
	return &annotatedError{
		msg:         fmt.Sprintf("panic: %v", excp),
		cause:       nil,
		annotations: annotations,
		pc:          pc,
	}
}

// SlogError turns err into a structured log attribute containing the message, the source location of the innermost
// annotated error, and all annotations found in the error tree.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	var (
		annotations []any
		pc          uintptr
	)
	walk(err, func(ae *annotatedError) {
		for _, a := range ae.annotations {
			annotations = append(annotations, a)
		}
		if ae.pc != 0 {
			pc = ae.pc
		}
	})
	attrs := []any{slog.String("message", err.Error())}
	if pc != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
		if frame.File != "" {
			attrs = append(attrs, slog.String("source", frame.File+":"+strconv.Itoa(frame.Line)))
		}
	}
	if len(annotations) > 0 {
		attrs = append(attrs, slog.Group("annotations", annotations...))
	}
	return slog.Group("error", attrs...)
}

// walk visits every annotated error in the tree rooted at err, outermost first.
func walk(err error, visit func(*annotatedError)) {
	for err != nil {
		if ae, ok := err.(*annotatedError); ok { //nolint:errorlint // we walk the chain manually.
			visit(ae)
		}
		switch x := err.(type) { //nolint:errorlint // we walk the chain manually.
		case interface{ Unwrap() []error }:
			for _, e := range x.Unwrap() {
				walk(e, visit)
			}
			return
		case interface{ Unwrap() error }:
			err = x.Unwrap()
		default:
			return
		}
	}
}

// Is reports whether any error in err's tree matches target. See [stderrors.Is].
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target. See [stderrors.As].
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err. See [stderrors.Unwrap].
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}

// Join returns an error that wraps the given errors. See [stderrors.Join].
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}
