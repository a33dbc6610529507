package machine

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/mna/zed/lang/ast"
	"github.com/mna/zed/lang/compiler"
)

// Thread executes compiled event bytecode against a shared Globals. One
// Thread is created per driver run and reused across all five events; it
// carries no cancellation or step-budget machinery since ZED programs are
// not untrusted and the driver never needs to preempt one mid-record.
type Thread struct {
	Globals *Globals
	Stdout  io.Writer
	Stderr  io.Writer

	stack  []Value
	scopes []map[string]Value
	depth  int
	ranges rangeState
}

// NewThread returns a Thread writing to os.Stdout/os.Stderr by default.
func NewThread(g *Globals) *Thread {
	return &Thread{Globals: g, Stdout: os.Stdout, Stderr: os.Stderr}
}

// RuntimeError is a failure during execution of an event's bytecode,
// offset-qualified like the compiler's own Error: the offset embedded in
// the failing instruction.
type RuntimeError struct {
	Offset ast.Offset
	Msg    string
}

func (e *RuntimeError) Error() string { return e.Msg }

func (t *Thread) fail(off ast.Offset, format string, args ...any) error {
	return &RuntimeError{Offset: off, Msg: fmt.Sprintf(format, args...)}
}

func (t *Thread) push(v Value) { t.stack = append(t.stack, v) }

func (t *Thread) pop() Value {
	n := len(t.stack) - 1
	v := t.stack[n]
	t.stack = t.stack[:n]
	return v
}

func (t *Thread) pushScope() { t.scopes = append(t.scopes, map[string]Value{}) }

func (t *Thread) popScope() { t.scopes = t.scopes[:len(t.scopes)-1] }

func (t *Thread) lookup(name string) (Value, bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if v, ok := t.scopes[i][name]; ok {
			return v, true
		}
	}
	return nil, false
}

// define binds name in the innermost scope, shadowing any outer binding.
func (t *Thread) define(name string, v Value) {
	t.scopes[len(t.scopes)-1][name] = v
}

// assign rebinds name in whichever scope it is already bound in, or
// defines it in the innermost scope if it is not yet bound anywhere (an
// AWK-like implicit-declaration convenience, since ZED statements are not
// required to `:=` before first assignment to a loop-local accumulator).
func (t *Thread) assign(name string, v Value) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if _, ok := t.scopes[i][name]; ok {
			t.scopes[i][name] = v
			return
		}
	}
	t.define(name, v)
}

// Run executes one event's bytecode to completion. The value stack must
// be empty at both entry and exit: every statement ends with a pop
// (stmt_end) or is itself a full statement that leaves nothing behind.
func (t *Thread) Run(code []byte) error {
	t.pushScope()
	defer t.popScope()
	_, err := t.run(code, 0, len(code))
	return err
}

// run interprets code[pc:end], returning the pc it stopped at (end, on
// falling off the bytecode) and any error. It does not manage scopes
// itself beyond SCOPE_IN/SCOPE_OUT, which nest within whatever the caller
// already pushed.
func (t *Thread) run(code []byte, pc, end int) (int, error) {
	for pc < end {
		op := compiler.Opcode(code[pc])
		pc++
		switch op {
		case compiler.POP:
			t.pop()

		case compiler.BOOL_TRUE:
			pc += 2
			t.push(Bool(true))
		case compiler.BOOL_FALSE:
			pc += 2
			t.push(Bool(false))
		case compiler.NIL:
			pc += 2
			t.push(Nil{})

		case compiler.FLOAT:
			t.push(Float(math.Float64frombits(read64(code, pc))))
			pc += 8
		case compiler.INT:
			t.push(Int(int64(read64(code, pc))))
			pc += 8
		case compiler.UINT:
			t.push(Uint(read64(code, pc)))
			pc += 8

		case compiler.PLAIN:
			s, next := readCString(code, pc)
			pc = next
			t.push(Str(s))
		case compiler.FORMAT:
			off := ast.Offset(read16(code, pc))
			pc += 2
			spec, next := readCString(code, pc)
			pc = next
			v := t.pop()
			t.push(Str(applyFormat(spec, v, off)))
		case compiler.STRING:
			n := int(read16(code, pc))
			pc += 2
			var sb strings.Builder
			for i := 0; i < n; i++ {
				sb.WriteString(t.pop().String())
			}
			t.push(Str(sb.String()))

		case compiler.SCOPE_IN:
			pc++ // scope type, unused: every scope is a plain name map
			t.pushScope()
		case compiler.SCOPE_OUT:
			pc++
			t.popScope()

		case compiler.BUILTIN:
			id := compiler.Builtin(code[pc])
			pc++
			off := ast.Offset(read16(code, pc))
			pc += 2
			argc := int(code[pc])
			pc++
			// Args are emitted in reverse, so popping front-to-back recovers
			// their natural left-to-right order (see compileCall).
			args := make([]Value, argc)
			for i := 0; i < argc; i++ {
				args[i] = t.pop()
			}
			v, err := t.callBuiltin(id, args, off)
			if err != nil {
				return pc, err
			}
			t.push(v)

		case compiler.CALL:
			off := ast.Offset(read16(code, pc))
			pc += 2
			argc := int(code[pc])
			pc++
			// Callee is pushed last (on top); args precede it in reverse.
			callee := t.pop()
			args := make([]Value, argc)
			for i := 0; i < argc; i++ {
				args[i] = t.pop()
			}
			v, err := t.call(callee, args, off)
			if err != nil {
				return pc, err
			}
			t.push(v)

		case compiler.FUNC:
			pc += 2 // skip field: the reference interpreter re-decodes every time
			hash := read64(code, pc)
			pc += 8
			name, next := readCString(code, pc)
			pc = next
			paramc := int(read16(code, pc))
			pc += 2
			params := make([]string, paramc)
			for i := range params {
				params[i], pc = readCString(code, pc)
			}
			bodylen := int(read16(code, pc))
			pc += 2
			body := code[pc : pc+bodylen]
			pc += bodylen
			t.push(&Func{Name: name, Params: params, Body: body, Hash: hash})

		case compiler.FUNC_RETURN:
			return pc, errReturn{value: t.pop()}

		case compiler.DEFINE:
			pc += 2 // off
			name, next := readCString(code, pc)
			pc = next
			t.define(name, t.pop())
		case compiler.LOAD:
			pc += 2
			name, next := readCString(code, pc)
			pc = next
			v, ok := t.lookup(name)
			if !ok {
				v = Nil{}
			}
			t.push(v)
		case compiler.STORE:
			off := ast.Offset(read16(code, pc))
			pc += 2
			combo := compiler.Combo(code[pc])
			pc++
			name, next := readCString(code, pc)
			pc = next
			rhs := t.pop()
			cur, _ := t.lookup(name)
			v, err := t.applyCombo(combo, cur, rhs, off)
			if err != nil {
				return pc, err
			}
			t.assign(name, v)
		case compiler.SET:
			off := ast.Offset(read16(code, pc))
			pc += 2
			combo := compiler.Combo(code[pc])
			pc++
			container := t.pop()
			idx := t.pop()
			rhs := t.pop()
			if err := t.setIndexed(container, idx, combo, rhs, off); err != nil {
				return pc, err
			}

		case compiler.GLOBAL:
			id := ast.Global(code[pc])
			pc++
			t.push(t.Globals.get(id))
		case compiler.GSTORE:
			pc += 2 // off
			id := ast.Global(code[pc])
			pc++
			t.Globals.set(id, t.pop())

		case compiler.ADD, compiler.SUB, compiler.MUL, compiler.DIV, compiler.MOD,
			compiler.LT, compiler.LTE, compiler.GT, compiler.GTE, compiler.EQ, compiler.NEQ,
			compiler.CONCAT, compiler.REPEAT:
			off := ast.Offset(read16(code, pc))
			pc += 2
			right := t.pop()
			left := t.pop()
			v, err := t.binary(op, left, right, off)
			if err != nil {
				return pc, err
			}
			t.push(v)

		case compiler.NEG, compiler.NOT:
			off := ast.Offset(read16(code, pc))
			pc += 2
			v, err := t.unary(op, t.pop(), off)
			if err != nil {
				return pc, err
			}
			t.push(v)

		case compiler.LIST:
			n := int(read16(code, pc))
			pc += 2
			// Elements are emitted in reverse; pop front-to-back to recover
			// their natural order.
			elems := make([]Value, n)
			for i := 0; i < n; i++ {
				elems[i] = t.pop()
			}
			t.push(&List{Elems: elems})

		case compiler.MAP:
			pc += 2 // off
			n := int(read16(code, pc))
			pc += 2
			m := NewMap(n)
			pairs := make([][2]Value, n)
			for i := n - 1; i >= 0; i-- {
				v := t.pop()
				k := t.pop()
				pairs[i] = [2]Value{k, v}
			}
			for _, p := range pairs {
				m.Set(p[0], p[1])
			}
			t.push(m)

		case compiler.RANGE:
			off := ast.Offset(read16(code, pc))
			pc += 2
			inclusive := code[pc] != 0
			pc++
			to := t.pop()
			from := t.pop()
			fi, ok1 := toInt(from)
			ti, ok2 := toInt(to)
			if !ok1 || !ok2 {
				return pc, t.fail(off, "range bounds must be integers")
			}
			t.push(&Range{From: fi, To: ti, Inclusive: inclusive})

		case compiler.SUBSCRIPT:
			off := ast.Offset(read16(code, pc))
			pc += 2
			container := t.pop()
			idx := t.pop()
			v, err := t.index(container, idx, off)
			if err != nil {
				return pc, err
			}
			t.push(v)

		case compiler.JUMP:
			pc = int(read16(code, pc))
		case compiler.JUMP_TRUE:
			target := int(read16(code, pc))
			pc += 2
			if truth(t.pop()) {
				pc = target
			}
		case compiler.JUMP_FALSE:
			target := int(read16(code, pc))
			pc += 2
			if !truth(t.pop()) {
				pc = target
			}

		case compiler.REC_RANGE:
			var err error
			pc, err = t.runRecRange(code, pc)
			if err != nil {
				return pc, err
			}

		case compiler.REDIR:
			off := ast.Offset(read16(code, pc))
			pc += 2
			clobber := code[pc] != 0
			pc++
			file := t.pop()
			val := t.pop()
			if err := t.redirect(val.String(), file.String(), clobber, off); err != nil {
				return pc, err
			}

		case compiler.SPRINT:
			off := ast.Offset(read16(code, pc))
			pc += 2
			argc := int(code[pc])
			pc++
			args := make([]Value, argc)
			for i := 0; i < argc; i++ {
				args[i] = t.pop()
			}
			t.push(Str(joinPrint(args)))
			_ = off

		default:
			return pc, t.fail(0, "unsupported opcode %s", op)
		}
	}
	return pc, nil
}

// errReturn unwinds run() on a func_return; call recovers it.
type errReturn struct{ value Value }

func (e errReturn) Error() string { return "return outside of call" }
