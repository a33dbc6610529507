package machine

import "github.com/mna/zed/lang/ast"

// Globals holds the nine predeclared `@name` values the driver and the
// running program share. File/Frnum/Rnum are read-only from program
// text; the compiler already refuses any assignment to them
// (compiler.ErrReadOnlyGlobal), so the machine enforces nothing further
// here.
type Globals struct {
	Cols  []Value
	File  string
	Frnum uint64
	Ics   string
	Irs   string
	Ocs   string
	Ors   string
	Rec   string
	Rnum  uint64
}

// NewGlobals returns a Globals with the standard defaults: @irs "\n",
// @ics ",", @ors "\n", @ocs ",".
func NewGlobals() *Globals {
	return &Globals{Ics: ",", Irs: "\n", Ocs: ",", Ors: "\n"}
}

func (g *Globals) get(id ast.Global) Value {
	switch id {
	case ast.GlobalCols:
		l := make([]Value, len(g.Cols))
		copy(l, g.Cols)
		return &List{Elems: l}
	case ast.GlobalFile:
		return Str(g.File)
	case ast.GlobalFrnum:
		return Uint(g.Frnum)
	case ast.GlobalIcs:
		return Str(g.Ics)
	case ast.GlobalIrs:
		return Str(g.Irs)
	case ast.GlobalOcs:
		return Str(g.Ocs)
	case ast.GlobalOrs:
		return Str(g.Ors)
	case ast.GlobalRec:
		return Str(g.Rec)
	case ast.GlobalRnum:
		return Uint(g.Rnum)
	default:
		return Nil{}
	}
}

func (g *Globals) set(id ast.Global, v Value) {
	switch id {
	case ast.GlobalCols:
		if l, ok := v.(*List); ok {
			g.Cols = l.Elems
		}
	case ast.GlobalIcs:
		g.Ics = v.String()
	case ast.GlobalIrs:
		g.Irs = v.String()
	case ast.GlobalOcs:
		g.Ocs = v.String()
	case ast.GlobalOrs:
		g.Ors = v.String()
	case ast.GlobalRec:
		g.Rec = v.String()
	}
}
