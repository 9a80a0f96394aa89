package invariant_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evmcrispr/evml/core/invariant"
)

func panicMessage(t *testing.T, fn func()) string {
	t.Helper()
	var msg string
	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r, "expected panic")
			msg = fmt.Sprintf("%v", r)
		}()
		fn()
	}()
	return msg
}

func TestPreconditionPass(t *testing.T) {
	assert.NotPanics(t, func() {
		invariant.Precondition(true, "this should pass")
		invariant.Postcondition(2+2 == 4, "math works")
		invariant.Invariant(len("evml") == 4, "length")
	})
}

func TestViolationsCarryKindAndLocation(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
		kind string
	}{
		{"precondition", func() { invariant.Precondition(false, "scope %q missing", "root") }, "PRECONDITION VIOLATION"},
		{"postcondition", func() { invariant.Postcondition(false, "result") }, "POSTCONDITION VIOLATION"},
		{"invariant", func() { invariant.Invariant(false, "scanner must advance") }, "INVARIANT VIOLATION"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := panicMessage(t, tt.fn)
			assert.Contains(t, msg, tt.kind)
			assert.Contains(t, msg, "at ")
		})
	}
}

func TestNotNil(t *testing.T) {
	var typed *struct{}
	msg := panicMessage(t, func() { invariant.NotNil(typed, "store") })
	assert.Contains(t, msg, "store must not be nil")

	assert.NotPanics(t, func() { invariant.NotNil(&struct{}{}, "value") })
}

func TestContains(t *testing.T) {
	assert.NotPanics(t, func() {
		invariant.Contains([2]int{1, 0}, [2]int{3, 1}, [2]int{2, 4}, [2]int{2, 9}, "argument")
	})
	msg := panicMessage(t, func() {
		invariant.Contains([2]int{1, 0}, [2]int{1, 5}, [2]int{1, 3}, [2]int{1, 8}, "argument")
	})
	assert.Contains(t, msg, "argument location")
}
