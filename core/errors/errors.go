// Package errors defines the evml runtime error taxonomy.
//
// Command, helper, call and expression failures carry the location of the node
// that raised them. Wrap attaches a location to an unpositioned error and
// leaves already-positioned errors untouched, so an error raised deep inside a
// sub-expression keeps its original position as it propagates.
package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/evmcrispr/evml/core/ast"
)

// Kind categorises a NodeError.
type Kind int

const (
	KindGeneric Kind = iota
	KindExpression
	KindCommand
	KindHelper
	KindCall
)

func (k Kind) String() string {
	switch k {
	case KindExpression:
		return "ExpressionError"
	case KindCommand:
		return "CommandError"
	case KindHelper:
		return "HelperError"
	case KindCall:
		return "CallError"
	default:
		return "Error"
	}
}

// Sentinel causes, matched with errors.Is.
var (
	ErrDivideByZero     = errors.New("divide by zero")
	ErrInvalidOperand   = errors.New("invalid operand")
	ErrAlreadyDefined   = errors.New("already defined")
	ErrUndefined        = errors.New("undefined")
	ErrModuleNotFound   = errors.New("module not found")
	ErrCommandNotFound  = errors.New("command not found")
	ErrHelperNotFound   = errors.New("helper not found")
	ErrCollision        = errors.New("name collision")
	ErrInvalidArguments = errors.New("invalid number of arguments")
	ErrInvalidOption    = errors.New("invalid option")
)

// NodeError is an error tied to a script node.
type NodeError struct {
	Kind    Kind
	Name    string // command or helper name, empty for expressions
	Loc     ast.Loc
	Message string
	Cause   error
}

// Error renders "CommandError(exec, 3:2): message".
func (e *NodeError) Error() string {
	label := e.Loc.Start.String()
	if e.Name != "" {
		label = e.Name + ", " + label
	}
	msg := e.Message
	switch {
	case msg == "" && e.Cause != nil:
		msg = e.Cause.Error()
	case e.Cause != nil && !strings.Contains(msg, e.Cause.Error()):
		msg = msg + ": " + e.Cause.Error()
	}
	return fmt.Sprintf("%s(%s): %s", e.Kind, label, msg)
}

// Unwrap allows errors.Is/As to reach the cause.
func (e *NodeError) Unwrap() error {
	return e.Cause
}

// NewCommandError creates a command error positioned at c.
func NewCommandError(c *ast.CommandExpression, cause error, format string, args ...interface{}) *NodeError {
	return &NodeError{Kind: KindCommand, Name: c.FullName(), Loc: c.Loc, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// NewHelperError creates a helper error positioned at h.
func NewHelperError(h *ast.HelperFunctionExpression, cause error, format string, args ...interface{}) *NodeError {
	return &NodeError{Kind: KindHelper, Name: "@" + h.Name, Loc: h.Loc, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// NewCallError creates a call error positioned at c.
func NewCallError(c *ast.CallExpression, cause error, format string, args ...interface{}) *NodeError {
	return &NodeError{Kind: KindCall, Name: c.Method, Loc: c.Loc, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// NewExpressionError creates an expression error positioned at n.
func NewExpressionError(n ast.Node, cause error, format string, args ...interface{}) *NodeError {
	return &NodeError{Kind: KindExpression, Loc: n.Location(), Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Wrap positions err at n unless err already carries a node position.
func Wrap(n ast.Node, err error) error {
	if err == nil {
		return nil
	}
	var ne *NodeError
	if errors.As(err, &ne) {
		return err
	}
	switch n := n.(type) {
	case *ast.CommandExpression:
		return &NodeError{Kind: KindCommand, Name: n.FullName(), Loc: n.Loc, Cause: err}
	case *ast.HelperFunctionExpression:
		return &NodeError{Kind: KindHelper, Name: "@" + n.Name, Loc: n.Loc, Cause: err}
	case *ast.CallExpression:
		return &NodeError{Kind: KindCall, Name: n.Method, Loc: n.Loc, Cause: err}
	default:
		return &NodeError{Kind: KindExpression, Loc: n.Location(), Cause: err}
	}
}

// Position returns the location carried by err, if any.
func Position(err error) (ast.Loc, bool) {
	var ne *NodeError
	if errors.As(err, &ne) {
		return ne.Loc, true
	}
	return ast.Loc{}, false
}

// Is and As re-export the standard helpers so callers importing this package
// under its own name do not need a second import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target interface{}) bool { return errors.As(err, target) }

// New re-exports errors.New.
func New(text string) error { return errors.New(text) }
