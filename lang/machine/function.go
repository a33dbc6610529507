package machine

import "fmt"

// Func is a ZED function value: its own self-contained bytecode body
// (compiled into a fresh emission context by the compiler's function
// literal lowering) plus its declared parameter names. ZED has no
// closures, so Func carries no environment; locals resolve by name
// against the calling frame's scope stack instead.
type Func struct {
	Name   string
	Params []string
	Body   []byte
	Hash   uint64
}

func (f *Func) String() string {
	if f.Name == "" {
		return fmt.Sprintf("func(%p)", f)
	}
	return fmt.Sprintf("func %s(%p)", f.Name, f)
}
func (*Func) Type() string  { return "func" }
func (f *Func) Truth() bool { return true }

var _ Value = (*Func)(nil)
