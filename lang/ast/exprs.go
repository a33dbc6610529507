package ast

import "github.com/mna/zed/lang/token"

// Literal nodes. Boolean and Nil carry no payload beyond their offset.

type Boolean struct {
	Base
	Value bool
}

type Nil struct{ Base }

type Float struct {
	Base
	Value float64
}

type Int struct {
	Base
	Value int64
}

type Uint struct {
	Base
	Value uint64
}

// StringSegment is one piece of a (possibly interpolated) string literal.
// Exactly one of Literal or Interp is meaningful, discriminated by
// IsInterp.
type StringSegment struct {
	IsInterp bool
	Literal  []byte // raw bytes, when !IsInterp

	Interp       []Node // nested expression(s), when IsInterp
	FormatSpec   string // optional, "" if absent
	HasFormat    bool
	InterpOffset Offset
}

type String struct {
	Base
	Segments []StringSegment
}

type Ident struct {
	Base
	Name string
}

type GlobalRef struct {
	Base
	Global Global
}

// Define declares a new local binding: `x := expr` in ZED's surface syntax.
type Define struct {
	Base
	Lvalue *Ident
	Rvalue Node
}

// Combo is the compound-assignment tag on an Assign node.
type Combo uint8

const (
	ComboSet Combo = iota // =
	ComboAdd              // +=
	ComboSub              // -=
	ComboMul              // *=
	ComboDiv              // /=
	ComboMod              // %=
	ComboCond             // ?=
)

func ComboFromToken(t token.Token) Combo {
	switch t {
	case token.PLUS_EQ:
		return ComboAdd
	case token.MINUS_EQ:
		return ComboSub
	case token.STAR_EQ:
		return ComboMul
	case token.SLASH_EQ:
		return ComboDiv
	case token.PERCENT_EQ:
		return ComboMod
	case token.COND_EQ:
		return ComboCond
	default:
		return ComboSet
	}
}

// Assign is an assignment whose lvalue is an Ident, a GlobalRef, or a
// Subscript.
type Assign struct {
	Base
	Lvalue Node
	Rvalue Node
	Combo  Combo
}

type Infix struct {
	Base
	Left, Right Node
	Op          token.Token
}

type Prefix struct {
	Base
	Operand Node
	Op      token.Token
}

type Conditional struct {
	Base
	Cond       Node
	Then, Else []Node
}

type Loop struct {
	Base
	Cond  Node
	Body  []Node
	IsDo  bool
}

type LoopBreak struct{ Base }
type LoopContinue struct{ Base }

type Func struct {
	Base
	Name   string // may be "" for an anonymous function literal
	Params []string
	Body   []Node
}

type FuncReturn struct {
	Base
	Inner Node // nil for a bare `return`
}

type Call struct {
	Base
	Callee Node
	Args   []Node
}

type List struct {
	Base
	Elems []Node
}

type MapEntry struct {
	Key, Value Node
}

type Map struct {
	Base
	Entries []MapEntry
}

type Range struct {
	Base
	From, To  Node
	Inclusive bool
}

type Subscript struct {
	Base
	Container Node
	Index     Node
}

// RecRange is a pattern-action rule: `from..to { action }` (or any subset
// of from/to omitted), identified by a parser-assigned numeric id.
type RecRange struct {
	Base
	From, To  Node // nil if absent
	Action    []Node
	ID        int
	Exclusive bool
}

// Redir directs the value of Expr to a file named by File, truncating it
// first unless Clobber is false (append).
type Redir struct {
	Base
	Expr    Node
	File    Node
	Clobber bool
}

// StmtEnd marks a statement terminator: the compiler discards the residual
// expression value by emitting a pop.
type StmtEnd struct{ Base }

var (
	_ Node = (*Boolean)(nil)
	_ Node = (*Nil)(nil)
	_ Node = (*Float)(nil)
	_ Node = (*Int)(nil)
	_ Node = (*Uint)(nil)
	_ Node = (*String)(nil)
	_ Node = (*Ident)(nil)
	_ Node = (*GlobalRef)(nil)
	_ Node = (*Define)(nil)
	_ Node = (*Assign)(nil)
	_ Node = (*Infix)(nil)
	_ Node = (*Prefix)(nil)
	_ Node = (*Conditional)(nil)
	_ Node = (*Loop)(nil)
	_ Node = (*LoopBreak)(nil)
	_ Node = (*LoopContinue)(nil)
	_ Node = (*Func)(nil)
	_ Node = (*FuncReturn)(nil)
	_ Node = (*Call)(nil)
	_ Node = (*List)(nil)
	_ Node = (*Map)(nil)
	_ Node = (*Range)(nil)
	_ Node = (*Subscript)(nil)
	_ Node = (*RecRange)(nil)
	_ Node = (*Redir)(nil)
	_ Node = (*StmtEnd)(nil)
)

// NewBoolean, NewNil, ... construct nodes with their offset already set;
// callers (parser, tests, the assembler) use these rather than poking the
// embedded Base field directly.
func NewBoolean(off Offset, v bool) *Boolean { return &Boolean{Base: Base{off}, Value: v} }
func NewNil(off Offset) *Nil                 { return &Nil{Base: Base{off}} }
func NewFloat(off Offset, v float64) *Float  { return &Float{Base: Base{off}, Value: v} }
func NewInt(off Offset, v int64) *Int        { return &Int{Base: Base{off}, Value: v} }
func NewUint(off Offset, v uint64) *Uint     { return &Uint{Base: Base{off}, Value: v} }
func NewIdent(off Offset, name string) *Ident {
	return &Ident{Base: Base{off}, Name: name}
}
func NewGlobalRef(off Offset, g Global) *GlobalRef {
	return &GlobalRef{Base: Base{off}, Global: g}
}
func NewStmtEnd(off Offset) *StmtEnd           { return &StmtEnd{Base: Base{off}} }
func NewLoopBreak(off Offset) *LoopBreak       { return &LoopBreak{Base: Base{off}} }
func NewLoopContinue(off Offset) *LoopContinue { return &LoopContinue{Base: Base{off}} }
