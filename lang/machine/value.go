// Package machine executes the bytecode lang/compiler produces, the
// reference VM that makes the compiler's output runnable end to end. Its
// value protocol is much smaller than a general scripting VM's, since ZED
// has no metatables, no attributes and no custom equality.
package machine

import (
	"fmt"
	"strconv"
)

// Value is implemented by every runtime value the machine manipulates.
type Value interface {
	String() string
	Type() string
	Truth() bool
}

type Nil struct{}

func (Nil) String() string { return "nil" }
func (Nil) Type() string   { return "nil" }
func (Nil) Truth() bool    { return false }

type Bool bool

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (Bool) Type() string { return "bool" }
func (b Bool) Truth() bool { return bool(b) }

type Int int64

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }
func (Int) Type() string     { return "int" }
func (i Int) Truth() bool    { return i != 0 }

type Uint uint64

func (u Uint) String() string { return strconv.FormatUint(uint64(u), 10) }
func (Uint) Type() string     { return "uint" }
func (u Uint) Truth() bool    { return u != 0 }

type Float float64

func (f Float) String() string { return strconv.FormatFloat(float64(f), 'g', -1, 64) }
func (Float) Type() string     { return "float" }
func (f Float) Truth() bool    { return f != 0 }

type Str string

func (s Str) String() string { return string(s) }
func (Str) Type() string     { return "string" }
func (s Str) Truth() bool    { return s != "" }

type List struct {
	Elems []Value
}

func (l *List) String() string {
	return fmt.Sprintf("list(%d)", len(l.Elems))
}
func (*List) Type() string  { return "list" }
func (l *List) Truth() bool { return len(l.Elems) > 0 }

// Range is a lazily-representable [From, To) or [From, To] integer range.
type Range struct {
	From, To  int64
	Inclusive bool
}

func (r *Range) String() string {
	if r.Inclusive {
		return fmt.Sprintf("%d..=%d", r.From, r.To)
	}
	return fmt.Sprintf("%d..%d", r.From, r.To)
}
func (*Range) Type() string  { return "range" }
func (r *Range) Truth() bool { return r.From != r.To }

var (
	_ Value = Nil{}
	_ Value = Bool(false)
	_ Value = Int(0)
	_ Value = Uint(0)
	_ Value = Float(0)
	_ Value = Str("")
	_ Value = (*List)(nil)
	_ Value = (*Range)(nil)
)

func truth(v Value) bool {
	if v == nil {
		return false
	}
	return v.Truth()
}
