package machine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mna/zed/lang/ast"
	"github.com/mna/zed/lang/compiler"
)

// callBuiltin dispatches a BUILTIN instruction by its compile-time
// resolved lang/compiler.Builtin id. print is the one builtin with a side
// effect: it writes straight to the thread's output buffer, which is how
// onInit/onExit text ends up on stdout without going through the
// per-record @ors bookkeeping in lang/driver.
func (t *Thread) callBuiltin(id compiler.Builtin, args []Value, off ast.Offset) (Value, error) {
	switch id {
	case compiler.BuiltinPrint:
		fmt.Fprint(t.Stdout, joinPrint(args))
		return Nil{}, nil

	case compiler.BuiltinLength:
		if len(args) != 1 {
			return nil, t.fail(off, "length expects 1 argument, got %d", len(args))
		}
		switch v := args[0].(type) {
		case Str:
			return Int(len(v)), nil
		case *List:
			return Int(len(v.Elems)), nil
		case *Map:
			return Int(v.Len()), nil
		default:
			return nil, t.fail(off, "length: unsupported type %s", v.Type())
		}

	case compiler.BuiltinSubstr:
		if len(args) != 2 && len(args) != 3 {
			return nil, t.fail(off, "substr expects 2 or 3 arguments, got %d", len(args))
		}
		s := args[0].String()
		start, _ := toInt(args[1])
		if start < 0 {
			start = 0
		}
		if int(start) > len(s) {
			start = int64(len(s))
		}
		end := int64(len(s))
		if len(args) == 3 {
			n, _ := toInt(args[2])
			if start+n < end {
				end = start + n
			}
			if end < start {
				end = start
			}
		}
		return Str(s[start:end]), nil

	case compiler.BuiltinSplit:
		if len(args) != 2 {
			return nil, t.fail(off, "split expects 2 arguments, got %d", len(args))
		}
		parts := strings.Split(args[0].String(), args[1].String())
		elems := make([]Value, len(parts))
		for i, p := range parts {
			elems[i] = Str(p)
		}
		return &List{Elems: elems}, nil

	case compiler.BuiltinSprintf:
		if len(args) < 1 {
			return nil, t.fail(off, "sprintf expects at least 1 argument")
		}
		return Str(applyFormat(args[0].String(), joinArgsAsValue(args[1:]), off)), nil

	case compiler.BuiltinToInt:
		if len(args) != 1 {
			return nil, t.fail(off, "int expects 1 argument, got %d", len(args))
		}
		n, ok := toInt(args[0])
		if !ok {
			return nil, t.fail(off, "cannot convert %s to int", args[0].Type())
		}
		return Int(n), nil

	case compiler.BuiltinToFloat:
		if len(args) != 1 {
			return nil, t.fail(off, "float expects 1 argument, got %d", len(args))
		}
		f, ok := toFloat(args[0])
		if !ok {
			return nil, t.fail(off, "cannot convert %s to float", args[0].Type())
		}
		return Float(f), nil

	case compiler.BuiltinToString:
		if len(args) != 1 {
			return nil, t.fail(off, "string expects 1 argument, got %d", len(args))
		}
		return Str(args[0].String()), nil

	default:
		return nil, t.fail(off, "unsupported builtin id %d", id)
	}
}

// joinArgsAsValue packs sprintf's variadic tail into a single value so
// applyFormat's single-value contract (shared with the FORMAT opcode,
// which always formats exactly one interpolation result) can serve both
// call sites; multiple arguments are concatenated in order.
func joinArgsAsValue(args []Value) Value {
	if len(args) == 1 {
		return args[0]
	}
	return Str(joinPrint(args))
}

// applyFormat renders v according to a minimal printf-style spec: %d, %f,
// %s, %x, %q, or "" (meaning the value's natural String()).
func applyFormat(spec string, v Value, off ast.Offset) string {
	if spec == "" {
		return v.String()
	}
	switch spec {
	case "%d":
		n, _ := toInt(v)
		return strconv.FormatInt(n, 10)
	case "%f":
		f, _ := toFloat(v)
		return strconv.FormatFloat(f, 'f', -1, 64)
	case "%x":
		n, _ := toInt(v)
		return strconv.FormatInt(n, 16)
	case "%q":
		return strconv.Quote(v.String())
	case "%s":
		return v.String()
	default:
		return fmt.Sprintf(spec, anyOf(v))
	}
}

func anyOf(v Value) any {
	switch n := v.(type) {
	case Int:
		return int64(n)
	case Uint:
		return uint64(n)
	case Float:
		return float64(n)
	case Bool:
		return bool(n)
	default:
		return v.String()
	}
}
