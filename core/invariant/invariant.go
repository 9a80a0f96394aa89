// Package invariant provides contract assertions for the evml engine.
//
// Assertions guard programming errors inside the engine (a scanner that stops
// advancing, a scope stack popped past its root). They are never used for
// script errors: those are returned as values through core/errors and
// runtime/parser.
//
// All functions panic on violation.
package invariant

import (
	"fmt"
	"reflect"
	"runtime"
)

// Precondition checks an input contract at function entry.
//
//	func (s *Store) ExitScope() error {
//	    invariant.Precondition(s.current != nil, "store has no current scope")
//	    ...
//	}
func Precondition(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("PRECONDITION", format, args...)
	}
}

// Postcondition checks an output contract before function return.
func Postcondition(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("POSTCONDITION", format, args...)
	}
}

// Invariant checks an internal invariant during function execution, typically
// loop progress in the parser:
//
//	prev := p.s.Offset()
//	p.parseArgument()
//	invariant.Invariant(p.s.Offset() > prev, "argument parser must consume input")
func Invariant(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("INVARIANT", format, args...)
	}
}

// NotNil panics if value is nil, including typed nils such as (*T)(nil).
func NotNil(value interface{}, name string) {
	if value == nil || isNilValue(value) {
		fail("PRECONDITION", "%s must not be nil", name)
	}
}

// Contains panics if the inner span [innerStart, innerEnd] is not inside the
// outer span. Spans are compared as (line, column) pairs.
func Contains(outerStart, outerEnd, innerStart, innerEnd [2]int, what string) {
	if before(innerStart, outerStart) || before(outerEnd, innerEnd) {
		fail("INVARIANT", "%s location %v-%v escapes parent %v-%v",
			what, innerStart, innerEnd, outerStart, outerEnd)
	}
}

// ExpectNoError panics if err is non-nil. For calls that cannot fail given
// already-validated inputs.
func ExpectNoError(err error, context string) {
	if err != nil {
		fail("INVARIANT", "%s: unexpected error: %v", context, err)
	}
}

func before(a, b [2]int) bool {
	return a[0] < b[0] || (a[0] == b[0] && a[1] < b[1])
}

func isNilValue(value interface{}) bool {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return false
	}
}

// fail panics with a formatted message and the caller's file:line.
func fail(kind, format string, args ...interface{}) {
	pc := make([]uintptr, 10)
	n := runtime.Callers(3, pc)
	frames := runtime.CallersFrames(pc[:n])

	msg := fmt.Sprintf("%s VIOLATION: "+format, append([]interface{}{kind}, args...)...)
	if frame, ok := frames.Next(); ok {
		msg += fmt.Sprintf("\n  at %s:%d", frame.File, frame.Line)
	}

	panic(msg)
}
