package compiler

import (
	"fmt"

	"github.com/mna/zed/lang/ast"
)

// ErrorKind classifies a compile-time failure.
type ErrorKind uint8

const (
	ErrUnsupportedNode ErrorKind = iota
	ErrReadOnlyGlobal
	ErrBytecodeOverflow
	ErrBreakOutsideLoop
	ErrContinueOutsideLoop
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnsupportedNode:
		return "UnsupportedNode"
	case ErrReadOnlyGlobal:
		return "ReadOnlyGlobal"
	case ErrBytecodeOverflow:
		return "BytecodeOverflow"
	case ErrBreakOutsideLoop:
		return "BreakOutsideLoop"
	case ErrContinueOutsideLoop:
		return "ContinueOutsideLoop"
	default:
		return "UnknownError"
	}
}

// Error is the typed error the compiler returns. The driver turns it into
// a `<filename>:<line>:<col>: <kind>: <msg>` diagnostic by resolving
// Offset against the cached source text.
type Error struct {
	Kind   ErrorKind
	Offset ast.Offset
	Msg    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func newError(kind ErrorKind, off ast.Offset, format string, args ...any) *Error {
	return &Error{Kind: kind, Offset: off, Msg: fmt.Sprintf(format, args...)}
}
