package machine

import (
	"strconv"
	"strings"

	"github.com/mna/zed/lang/ast"
	"github.com/mna/zed/lang/compiler"
)

// call invokes a Func value with the given (already natural-order)
// arguments, binding them in a fresh scope pushed on top of the caller's
// scopes. ZED has no closures: names the callee does not bind resolve
// against the caller's scope stack.
func (t *Thread) call(callee Value, args []Value, off ast.Offset) (Value, error) {
	fn, ok := callee.(*Func)
	if !ok {
		return nil, t.fail(off, "cannot call a %s value", callee.Type())
	}
	if t.depth > 1<<12 {
		return nil, t.fail(off, "call stack exhausted")
	}
	t.depth++
	defer func() { t.depth-- }()

	t.pushScope()
	defer t.popScope()
	for i, p := range fn.Params {
		if i < len(args) {
			t.define(p, args[i])
		} else {
			t.define(p, Nil{})
		}
	}

	savedStack := t.stack
	t.stack = nil
	_, err := t.run(fn.Body, 0, len(fn.Body))
	result := Value(Nil{})
	if ret, ok := err.(errReturn); ok {
		result = ret.value
		err = nil
	}
	t.stack = savedStack
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (t *Thread) applyCombo(combo compiler.Combo, cur, rhs Value, off ast.Offset) (Value, error) {
	if combo == compiler.ComboSet {
		return rhs, nil
	}
	if combo == compiler.ComboCond {
		if cur == nil || cur.Type() == "nil" {
			return rhs, nil
		}
		return cur, nil
	}
	var op compiler.Opcode
	switch combo {
	case compiler.ComboAdd:
		op = compiler.ADD
	case compiler.ComboSub:
		op = compiler.SUB
	case compiler.ComboMul:
		op = compiler.MUL
	case compiler.ComboDiv:
		op = compiler.DIV
	case compiler.ComboMod:
		op = compiler.MOD
	}
	if cur == nil {
		cur = Nil{}
	}
	return t.binary(op, cur, rhs, off)
}

func (t *Thread) binary(op compiler.Opcode, left, right Value, off ast.Offset) (Value, error) {
	switch op {
	case compiler.CONCAT:
		return Str(left.String() + right.String()), nil
	case compiler.REPEAT:
		n, ok := toInt(right)
		if !ok || n < 0 {
			return nil, t.fail(off, "repeat count must be a non-negative integer")
		}
		return Str(strings.Repeat(left.String(), int(n))), nil
	case compiler.EQ:
		return Bool(valuesEqual(left, right)), nil
	case compiler.NEQ:
		return Bool(!valuesEqual(left, right)), nil
	}

	if lf, rf, ok := bothNumeric(left, right); ok {
		switch op {
		case compiler.ADD:
			return numResult(left, right, lf+rf), nil
		case compiler.SUB:
			return numResult(left, right, lf-rf), nil
		case compiler.MUL:
			return numResult(left, right, lf*rf), nil
		case compiler.DIV:
			if rf == 0 {
				return nil, t.fail(off, "division by zero")
			}
			return Float(lf / rf), nil
		case compiler.MOD:
			li, lok := toInt(left)
			ri, rok := toInt(right)
			if lok && rok {
				if ri == 0 {
					return nil, t.fail(off, "division by zero")
				}
				return Int(li % ri), nil
			}
			return nil, t.fail(off, "modulo requires integer operands")
		case compiler.LT:
			return Bool(lf < rf), nil
		case compiler.LTE:
			return Bool(lf <= rf), nil
		case compiler.GT:
			return Bool(lf > rf), nil
		case compiler.GTE:
			return Bool(lf >= rf), nil
		}
	}

	if op == compiler.ADD {
		return Str(left.String() + right.String()), nil
	}
	return nil, t.fail(off, "unsupported operand types %s, %s for %s", left.Type(), right.Type(), op)
}

func (t *Thread) unary(op compiler.Opcode, v Value, off ast.Offset) (Value, error) {
	switch op {
	case compiler.NOT:
		return Bool(!truth(v)), nil
	case compiler.NEG:
		switch n := v.(type) {
		case Int:
			return -n, nil
		case Uint:
			return -Int(n), nil
		case Float:
			return -n, nil
		}
		return nil, t.fail(off, "cannot negate a %s value", v.Type())
	}
	return nil, t.fail(off, "unsupported unary op")
}

func (t *Thread) index(container, idx Value, off ast.Offset) (Value, error) {
	switch c := container.(type) {
	case *List:
		i, ok := toInt(idx)
		if !ok || i < 0 || int(i) >= len(c.Elems) {
			return Nil{}, nil
		}
		return c.Elems[i], nil
	case *Map:
		v, ok := c.Get(idx)
		if !ok {
			return Nil{}, nil
		}
		return v, nil
	case Str:
		i, ok := toInt(idx)
		if !ok || i < 0 || int(i) >= len(c) {
			return Nil{}, nil
		}
		return Str(c[i]), nil
	default:
		return nil, t.fail(off, "cannot index a %s value", container.Type())
	}
}

func (t *Thread) setIndexed(container, idx Value, combo compiler.Combo, rhs Value, off ast.Offset) error {
	switch c := container.(type) {
	case *List:
		i, ok := toInt(idx)
		if !ok || i < 0 {
			return t.fail(off, "list index must be a non-negative integer")
		}
		for int(i) >= len(c.Elems) {
			c.Elems = append(c.Elems, Nil{})
		}
		cur := c.Elems[i]
		v, err := t.applyCombo(combo, cur, rhs, off)
		if err != nil {
			return err
		}
		c.Elems[i] = v
		return nil
	case *Map:
		cur, _ := c.Get(idx)
		v, err := t.applyCombo(combo, cur, rhs, off)
		if err != nil {
			return err
		}
		c.Set(idx, v)
		return nil
	default:
		return t.fail(off, "cannot index-assign a %s value", container.Type())
	}
}

func (t *Thread) redirect(content, filename string, clobber bool, off ast.Offset) error {
	return writeRedir(filename, content, clobber, func(err error) error {
		return t.fail(off, "redirecting to %q: %v", filename, err)
	})
}

func bothNumeric(l, r Value) (float64, float64, bool) {
	lf, lok := toFloat(l)
	rf, rok := toFloat(r)
	return lf, rf, lok && rok
}

func toFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case Int:
		return float64(n), true
	case Uint:
		return float64(n), true
	case Float:
		return float64(n), true
	case Str:
		f, err := strconv.ParseFloat(string(n), 64)
		return f, err == nil
	}
	return 0, false
}

func toInt(v Value) (int64, bool) {
	switch n := v.(type) {
	case Int:
		return int64(n), true
	case Uint:
		return int64(n), true
	case Float:
		return int64(n), true
	case Str:
		i, err := strconv.ParseInt(string(n), 0, 64)
		return i, err == nil
	}
	return 0, false
}

// numResult picks the result type: float if either operand is a float,
// else int.
func numResult(left, right Value, f float64) Value {
	_, lf := left.(Float)
	_, rf := right.(Float)
	if lf || rf {
		return Float(f)
	}
	return Int(int64(f))
}

func valuesEqual(l, r Value) bool {
	if lf, rf, ok := bothNumeric(l, r); ok {
		return lf == rf
	}
	return l.String() == r.String() && l.Type() == r.Type()
}

func joinPrint(args []Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return strings.Join(parts, "")
}
