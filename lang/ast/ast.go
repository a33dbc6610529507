// Package ast declares the node shapes the compiler consumes. It does not
// itself produce nodes from source text (that's lang/scanner and
// lang/parser); it only fixes the data model the compiler, and anything
// that needs to build trees by hand (tests, a bytecode assembler), share.
package ast

// Offset is a 0-based byte position in the program text. It is always
// representable in 16 bits; the parser must refuse to produce a node whose
// offset would not fit.
type Offset = uint16

// Node is implemented by every AST variant the compiler accepts.
type Node interface {
	Off() Offset
}

// Base is embedded by every concrete node to provide Off without repeating
// the field and accessor everywhere. It is exported so callers outside this
// package (tests, a hand-written assembler) can construct nodes directly.
type Base struct {
	Offset Offset
}

func (b Base) Off() Offset { return b.Offset }

// Global identifies one of the predeclared globals. The order here is
// also the wire encoding used by the `global`/`gstore` opcodes.
type Global uint8

const (
	GlobalCols Global = iota
	GlobalFile
	GlobalFrnum
	GlobalIcs
	GlobalIrs
	GlobalOcs
	GlobalOrs
	GlobalRec
	GlobalRnum
)

var globalNames = [...]string{
	GlobalCols:  "@cols",
	GlobalFile:  "@file",
	GlobalFrnum: "@frnum",
	GlobalIcs:   "@ics",
	GlobalIrs:   "@irs",
	GlobalOcs:   "@ocs",
	GlobalOrs:   "@ors",
	GlobalRec:   "@rec",
	GlobalRnum:  "@rnum",
}

func (g Global) String() string { return globalNames[g] }

// ReadOnly reports whether the global may only be set by the driver, never
// by an assignment in program text.
func (g Global) ReadOnly() bool {
	return g == GlobalFile || g == GlobalFrnum || g == GlobalRnum
}

// LookupGlobal returns the Global tag for a name such as "@rec", and false
// if name does not name a predeclared global.
func LookupGlobal(name string) (Global, bool) {
	for g, n := range globalNames {
		if n == name {
			return Global(g), true
		}
	}
	return 0, false
}

// Program is the parser's top-level product: five ordered node lists, one
// per lifecycle event, in the fixed order the driver and compiler agree on.
type Program struct {
	Inits []Node // onInit
	Files []Node // onFile
	Recs  []Node // onRec
	Rules []Node // onRec's rule body (record-range rules, bare statements)
	Exits []Node // onExit
}

// Events enumerates the five lifecycle events in their fixed compiled
// order. Index values here are the same ones CompileProgram reports.
const (
	EventInit = iota
	EventFile
	EventRec
	EventRules
	EventExit
	NumEvents
)

// Lists returns the five node lists in fixed event order.
func (p *Program) Lists() [NumEvents][]Node {
	return [NumEvents][]Node{p.Inits, p.Files, p.Recs, p.Rules, p.Exits}
}
