package compiler

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/mna/zed/lang/ast"
)

// funcHash computes the 64-bit digest embedded in a FUNC instruction, used
// by the VM to recognize and cache a previously-compiled closure across
// reinvocations. It must be stable across runs of the same source, so
// it's derived from a canonical textual rendering of the function node
// rather than from pointers or map iteration order.
func funcHash(fn *ast.Func) uint64 {
	var sb strings.Builder
	canonicalizeFunc(&sb, fn)
	return xxhash.Sum64String(sb.String())
}

func canonicalizeFunc(sb *strings.Builder, fn *ast.Func) {
	sb.WriteString("func(")
	sb.WriteString(fn.Name)
	sb.WriteByte(';')
	for i, p := range fn.Params {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(p)
	}
	sb.WriteString("){")
	canonicalizeNodes(sb, fn.Body)
	sb.WriteString("}")
}

// canonicalizeNodes renders a deterministic, structural text form of a node
// list. It need not round-trip to valid ZED source: it only has to be a
// stable function of the AST's shape and values.
func canonicalizeNodes(sb *strings.Builder, nodes []ast.Node) {
	for _, n := range nodes {
		canonicalizeNode(sb, n)
		sb.WriteByte(';')
	}
}

func canonicalizeNode(sb *strings.Builder, n ast.Node) {
	switch v := n.(type) {
	case *ast.Boolean:
		sb.WriteString(strconv.FormatBool(v.Value))
	case *ast.Nil:
		sb.WriteString("nil")
	case *ast.Float:
		sb.WriteString(strconv.FormatFloat(v.Value, 'g', -1, 64))
	case *ast.Int:
		sb.WriteString(strconv.FormatInt(v.Value, 10))
	case *ast.Uint:
		sb.WriteString(strconv.FormatUint(v.Value, 10))
	case *ast.String:
		sb.WriteByte('"')
		for _, seg := range v.Segments {
			if seg.IsInterp {
				sb.WriteString("${")
				canonicalizeNodes(sb, seg.Interp)
				sb.WriteString("}")
			} else {
				sb.Write(seg.Literal)
			}
		}
		sb.WriteByte('"')
	case *ast.Ident:
		sb.WriteString(v.Name)
	case *ast.GlobalRef:
		sb.WriteString(v.Global.String())
	case *ast.Define:
		canonicalizeNode(sb, v.Lvalue)
		sb.WriteString(":=")
		canonicalizeNode(sb, v.Rvalue)
	case *ast.Assign:
		canonicalizeNode(sb, v.Lvalue)
		sb.WriteString("=")
		canonicalizeNode(sb, v.Rvalue)
	case *ast.Infix:
		canonicalizeNode(sb, v.Left)
		sb.WriteString(v.Op.String())
		canonicalizeNode(sb, v.Right)
	case *ast.Prefix:
		sb.WriteString(v.Op.String())
		canonicalizeNode(sb, v.Operand)
	case *ast.Conditional:
		sb.WriteString("if(")
		canonicalizeNode(sb, v.Cond)
		sb.WriteString("){")
		canonicalizeNodes(sb, v.Then)
		sb.WriteString("}else{")
		canonicalizeNodes(sb, v.Else)
		sb.WriteString("}")
	case *ast.Loop:
		sb.WriteString("loop(")
		if v.Cond != nil {
			canonicalizeNode(sb, v.Cond)
		}
		sb.WriteString(strconv.FormatBool(v.IsDo))
		sb.WriteString("){")
		canonicalizeNodes(sb, v.Body)
		sb.WriteString("}")
	case *ast.LoopBreak:
		sb.WriteString("break")
	case *ast.LoopContinue:
		sb.WriteString("continue")
	case *ast.Func:
		canonicalizeFunc(sb, v)
	case *ast.FuncReturn:
		sb.WriteString("return(")
		if v.Inner != nil {
			canonicalizeNode(sb, v.Inner)
		}
		sb.WriteString(")")
	case *ast.Call:
		canonicalizeNode(sb, v.Callee)
		sb.WriteByte('(')
		for i, a := range v.Args {
			if i > 0 {
				sb.WriteByte(',')
			}
			canonicalizeNode(sb, a)
		}
		sb.WriteByte(')')
	case *ast.List:
		sb.WriteByte('[')
		for i, e := range v.Elems {
			if i > 0 {
				sb.WriteByte(',')
			}
			canonicalizeNode(sb, e)
		}
		sb.WriteByte(']')
	case *ast.Map:
		sb.WriteByte('{')
		for i, e := range v.Entries {
			if i > 0 {
				sb.WriteByte(',')
			}
			canonicalizeNode(sb, e.Key)
			sb.WriteByte(':')
			canonicalizeNode(sb, e.Value)
		}
		sb.WriteByte('}')
	case *ast.Range:
		canonicalizeNode(sb, v.From)
		sb.WriteString("..")
		canonicalizeNode(sb, v.To)
		sb.WriteString(strconv.FormatBool(v.Inclusive))
	case *ast.Subscript:
		canonicalizeNode(sb, v.Container)
		sb.WriteByte('[')
		canonicalizeNode(sb, v.Index)
		sb.WriteByte(']')
	case *ast.RecRange:
		sb.WriteString("rule(")
		if v.From != nil {
			canonicalizeNode(sb, v.From)
		}
		sb.WriteByte(',')
		if v.To != nil {
			canonicalizeNode(sb, v.To)
		}
		sb.WriteString("){")
		canonicalizeNodes(sb, v.Action)
		sb.WriteString("}")
	case *ast.Redir:
		canonicalizeNode(sb, v.Expr)
		sb.WriteString(">")
		canonicalizeNode(sb, v.File)
	case *ast.StmtEnd:
		sb.WriteString(";")
	}
}
