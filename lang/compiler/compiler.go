// Package compiler lowers a parsed ast.Program into the five
// independently-decodable bytecode strings consumed by the VM. It also
// implements the bit-exact .zbc precompiled bytecode file format.
package compiler

import (
	"math"

	"github.com/mna/zed/lang/ast"
	"github.com/mna/zed/lang/token"
)

// CompileProgram lowers prog's five event node lists to bytecode. Each
// event is compiled independently from a freshly pushed emission context,
// so no forward reference can cross an event boundary. Compilation stops
// at the first error.
func CompileProgram(prog *ast.Program) (*Program, error) {
	lists := prog.Lists()
	var events [5][]byte
	for i, list := range lists {
		c := &compiler{}
		c.pushFrame()
		c.compileNodes(list)
		if c.err != nil {
			return nil, c.err
		}
		events[i] = c.popFrame().buf
	}
	return FromEvents(events), nil
}

// frame is one emission context: an appendable byte buffer, plus the
// loop-start and jump-update-set stacks scoped to it. Function literals
// and rec_range actions each compile into their own fresh frame, popped
// into a self-contained byte string once done.
type frame struct {
	buf        []byte
	loopStarts []int   // byte index, within buf, of each enclosing loop's iteration point
	jumpSets   [][]int // per enclosing loop: pending break-patch operand indices
}

type compiler struct {
	frames []*frame
	err    *Error
}

func (c *compiler) cur() *frame { return c.frames[len(c.frames)-1] }

func (c *compiler) pushFrame() { c.frames = append(c.frames, &frame{}) }

func (c *compiler) popFrame() *frame {
	f := c.cur()
	c.frames = c.frames[:len(c.frames)-1]
	return f
}

func (c *compiler) fail(kind ErrorKind, off ast.Offset, format string, args ...any) {
	if c.err == nil {
		c.err = newError(kind, off, format, args...)
	}
}

func (c *compiler) u16check(n int, off ast.Offset, what string) (uint16, bool) {
	if n < 0 || n > math.MaxUint16 {
		c.fail(ErrBytecodeOverflow, off, "%s overflows 16 bits: %d", what, n)
		return 0, false
	}
	return uint16(n), true
}

func (c *compiler) u8check(n int, off ast.Offset, what string) (uint8, bool) {
	if n < 0 || n > math.MaxUint8 {
		c.fail(ErrBytecodeOverflow, off, "%s overflows 8 bits: %d", what, n)
		return 0, false
	}
	return uint8(n), true
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// -- low-level emission, all operating on the current frame's buffer --

func (c *compiler) emit(op Opcode) {
	f := c.cur()
	f.buf = append(f.buf, byte(op))
}

func (c *compiler) emitOff(op Opcode, off ast.Offset) {
	f := c.cur()
	f.buf = append(f.buf, byte(op))
	f.buf = put16(f.buf, off)
}

func (c *compiler) emit8(v uint8) {
	f := c.cur()
	f.buf = append(f.buf, v)
}

func (c *compiler) emit64(v uint64) {
	f := c.cur()
	f.buf = put64(f.buf, v)
}

func (c *compiler) emitCString(s string) {
	f := c.cur()
	f.buf = putCString(f.buf, s)
}

func (c *compiler) emit16(v uint16) {
	f := c.cur()
	f.buf = put16(f.buf, v)
}

// emitJump emits op with a placeholder 2-byte target and returns the
// operand's byte index, to be resolved later by patchAddr.
func (c *compiler) emitJump(op Opcode) int {
	f := c.cur()
	f.buf = append(f.buf, byte(op))
	idx := len(f.buf)
	f.buf = append(f.buf, 0, 0)
	return idx
}

// emitJumpTo emits op with an already-known target (a loop start).
func (c *compiler) emitJumpTo(op Opcode, target int) {
	f := c.cur()
	f.buf = append(f.buf, byte(op))
	f.buf = put16(f.buf, uint16(target))
}

func (c *compiler) patchAddr(operandIdx int, target int) {
	patch16(c.cur().buf, operandIdx, uint16(target))
}

func (c *compiler) addr() int { return len(c.cur().buf) }

// addPending registers a jump operand index in the topmost (innermost
// loop's) jump-update set, so it gets patched to the loop's exit address
// when that loop finishes compiling.
func (c *compiler) addPending(operandIdx int) {
	f := c.cur()
	top := len(f.jumpSets) - 1
	f.jumpSets[top] = append(f.jumpSets[top], operandIdx)
}

func (c *compiler) compileNodes(nodes []ast.Node) {
	for _, n := range nodes {
		c.compileNode(n)
		if c.err != nil {
			return
		}
	}
}

func (c *compiler) compileNode(n ast.Node) {
	if c.err != nil {
		return
	}
	switch v := n.(type) {
	case *ast.Boolean:
		if v.Value {
			c.emitOff(BOOL_TRUE, v.Offset)
		} else {
			c.emitOff(BOOL_FALSE, v.Offset)
		}
	case *ast.Nil:
		c.emitOff(NIL, v.Offset)
	case *ast.Float:
		c.emit(FLOAT)
		c.emit64(math.Float64bits(v.Value))
	case *ast.Int:
		c.emit(INT)
		c.emit64(uint64(v.Value))
	case *ast.Uint:
		c.emit(UINT)
		c.emit64(v.Value)
	case *ast.String:
		c.compileString(v)
	case *ast.Ident:
		c.emit(LOAD)
		c.emit16(v.Offset)
		c.emitCString(v.Name)
	case *ast.GlobalRef:
		// No offset: see DESIGN.md for the global/gstore operand shape decision.
		c.emit(GLOBAL)
		c.emit8(uint8(v.Global))
	case *ast.Define:
		c.compileNode(v.Rvalue)
		if c.err != nil {
			return
		}
		c.emit(DEFINE)
		c.emit16(v.Offset)
		c.emitCString(v.Lvalue.Name)
	case *ast.Assign:
		c.compileAssign(v)
	case *ast.Infix:
		c.compileInfix(v)
	case *ast.Prefix:
		c.compileNode(v.Operand)
		if c.err != nil {
			return
		}
		var op Opcode
		switch v.Op {
		case token.MINUS:
			op = NEG
		case token.NOT:
			op = NOT
		default:
			c.fail(ErrUnsupportedNode, v.Offset, "unsupported prefix operator %s", v.Op)
			return
		}
		c.emitOff(op, v.Offset)
	case *ast.List:
		for i := len(v.Elems) - 1; i >= 0; i-- {
			c.compileNode(v.Elems[i])
			if c.err != nil {
				return
			}
		}
		n, ok := c.u16check(len(v.Elems), v.Offset, "list length")
		if !ok {
			return
		}
		c.emit(LIST)
		c.emit16(n)
	case *ast.Map:
		for _, e := range v.Entries {
			c.compileNode(e.Key)
			if c.err != nil {
				return
			}
			c.compileNode(e.Value)
			if c.err != nil {
				return
			}
		}
		n, ok := c.u16check(len(v.Entries), v.Offset, "map length")
		if !ok {
			return
		}
		c.emit(MAP)
		c.emit16(v.Offset)
		c.emit16(n)
	case *ast.Range:
		c.compileNode(v.From)
		if c.err != nil {
			return
		}
		c.compileNode(v.To)
		if c.err != nil {
			return
		}
		c.emit(RANGE)
		c.emit16(v.Offset)
		c.emit8(boolByte(v.Inclusive))
	case *ast.Subscript:
		c.compileNode(v.Index)
		if c.err != nil {
			return
		}
		c.compileNode(v.Container)
		if c.err != nil {
			return
		}
		c.emitOff(SUBSCRIPT, v.Offset)
	case *ast.Conditional:
		c.compileConditional(v)
	case *ast.Loop:
		c.compileLoop(v)
	case *ast.LoopBreak:
		c.compileBreak(v)
	case *ast.LoopContinue:
		c.compileContinue(v)
	case *ast.Func:
		c.compileFunc(v)
	case *ast.FuncReturn:
		if v.Inner != nil {
			c.compileNode(v.Inner)
		} else {
			c.emitOff(NIL, v.Offset)
		}
		if c.err != nil {
			return
		}
		c.emit(FUNC_RETURN)
	case *ast.Call:
		c.compileCall(v)
	case *ast.RecRange:
		c.compileRecRange(v)
	case *ast.Redir:
		c.compileRedir(v)
	case *ast.StmtEnd:
		c.emit(POP)
	default:
		c.fail(ErrUnsupportedNode, n.Off(), "unsupported node type %T", n)
	}
}

func (c *compiler) compileString(v *ast.String) {
	// Segments are emitted in reverse order so the VM concatenates them in
	// natural order after it pops STRING's operand count.
	for i := len(v.Segments) - 1; i >= 0; i-- {
		seg := v.Segments[i]
		if seg.IsInterp {
			c.emit(SCOPE_IN)
			c.emit8(uint8(ScopeBlock))
			c.compileNodes(seg.Interp)
			if c.err != nil {
				return
			}
			c.emit(SCOPE_OUT)
			c.emit8(uint8(ScopeBlock))
			if seg.HasFormat {
				c.emit(FORMAT)
				c.emit16(seg.InterpOffset)
				c.emitCString(seg.FormatSpec)
			}
		} else {
			c.emit(PLAIN)
			f := c.cur()
			f.buf = append(f.buf, seg.Literal...)
			f.buf = append(f.buf, 0)
		}
	}
	n, ok := c.u16check(len(v.Segments), v.Offset, "string segment count")
	if !ok {
		return
	}
	c.emit(STRING)
	c.emit16(n)
}

func (c *compiler) compileAssign(v *ast.Assign) {
	c.compileNode(v.Rvalue)
	if c.err != nil {
		return
	}
	switch lv := v.Lvalue.(type) {
	case *ast.Ident:
		c.emit(STORE)
		c.emit16(v.Offset)
		c.emit8(uint8(v.Combo))
		c.emitCString(lv.Name)
	case *ast.GlobalRef:
		if lv.Global.ReadOnly() {
			c.fail(ErrReadOnlyGlobal, v.Offset, "cannot assign to read-only global %s", lv.Global)
			return
		}
		c.emit(GSTORE)
		c.emit16(v.Offset)
		c.emit8(uint8(lv.Global))
	case *ast.Subscript:
		c.compileNode(lv.Index)
		if c.err != nil {
			return
		}
		c.compileNode(lv.Container)
		if c.err != nil {
			return
		}
		c.emit(SET)
		c.emit16(v.Offset)
		c.emit8(uint8(v.Combo))
	default:
		c.fail(ErrUnsupportedNode, v.Offset, "invalid assignment target: %T", v.Lvalue)
	}
}

func binOp(t token.Token) (Opcode, bool) {
	switch t {
	case token.PLUS:
		return ADD, true
	case token.MINUS:
		return SUB, true
	case token.STAR:
		return MUL, true
	case token.SLASH:
		return DIV, true
	case token.PERCENT:
		return MOD, true
	case token.LT:
		return LT, true
	case token.LE:
		return LTE, true
	case token.GT:
		return GT, true
	case token.GE:
		return GTE, true
	case token.EQL:
		return EQ, true
	case token.NEQ:
		return NEQ, true
	case token.CONCAT:
		return CONCAT, true
	case token.REPEAT:
		return REPEAT, true
	default:
		return 0, false
	}
}

func (c *compiler) compileInfix(v *ast.Infix) {
	switch v.Op {
	case token.AND:
		c.compileNode(v.Left)
		if c.err != nil {
			return
		}
		pj := c.emitJump(JUMP_FALSE)
		c.compileNode(v.Right)
		if c.err != nil {
			return
		}
		c.patchAddr(pj, c.addr())
		return
	case token.OR:
		c.compileNode(v.Left)
		if c.err != nil {
			return
		}
		pj := c.emitJump(JUMP_TRUE)
		c.compileNode(v.Right)
		if c.err != nil {
			return
		}
		c.patchAddr(pj, c.addr())
		return
	}

	c.compileNode(v.Left)
	if c.err != nil {
		return
	}
	c.compileNode(v.Right)
	if c.err != nil {
		return
	}
	op, ok := binOp(v.Op)
	if !ok {
		c.fail(ErrUnsupportedNode, v.Offset, "unsupported infix operator %s", v.Op)
		return
	}
	c.emitOff(op, v.Offset)
}

func (c *compiler) compileConditional(v *ast.Conditional) {
	c.compileNode(v.Cond)
	if c.err != nil {
		return
	}
	p1 := c.emitJump(JUMP_FALSE)
	c.emit(SCOPE_IN)
	c.emit8(uint8(ScopeBlock))
	c.compileNodes(v.Then)
	if c.err != nil {
		return
	}
	c.emit(SCOPE_OUT)
	c.emit8(uint8(ScopeBlock))
	p2 := c.emitJump(JUMP)
	c.patchAddr(p1, c.addr())
	c.emit(SCOPE_IN)
	c.emit8(uint8(ScopeBlock))
	c.compileNodes(v.Else)
	if c.err != nil {
		return
	}
	c.emit(SCOPE_OUT)
	c.emit8(uint8(ScopeBlock))
	c.patchAddr(p2, c.addr())
}

func (c *compiler) compileLoop(v *ast.Loop) {
	f := c.cur()

	if !v.IsDo {
		loopStart := c.addr()
		f.loopStarts = append(f.loopStarts, loopStart)
		f.jumpSets = append(f.jumpSets, nil)

		c.compileNode(v.Cond)
		if c.err != nil {
			return
		}
		pexit := c.emitJump(JUMP_FALSE)
		c.addPending(pexit)

		c.emit(SCOPE_IN)
		c.emit8(uint8(ScopeLoop))
		c.compileNodes(v.Body)
		if c.err != nil {
			return
		}
		c.emit(SCOPE_OUT)
		c.emit8(uint8(ScopeLoop))
		c.emitJumpTo(JUMP, loopStart)

		c.finishLoop(v.Offset)
		return
	}

	// do-while
	loopStart := c.addr()
	f.loopStarts = append(f.loopStarts, loopStart)
	f.jumpSets = append(f.jumpSets, nil)

	c.emit(SCOPE_IN)
	c.emit8(uint8(ScopeLoop))
	c.compileNodes(v.Body)
	if c.err != nil {
		return
	}
	c.emit(SCOPE_OUT)
	c.emit8(uint8(ScopeLoop))

	c.compileNode(v.Cond)
	if c.err != nil {
		return
	}
	c.emitJumpTo(JUMP_TRUE, loopStart)

	c.finishLoop(v.Offset)
}

// finishLoop patches every pending break/exit jump to the current address,
// pops this loop's entries off the loopStarts/jumpSets stacks, and leaves
// the loop's value (nil) on the stack.
func (c *compiler) finishLoop(off ast.Offset) {
	f := c.cur()
	target := c.addr()
	top := len(f.jumpSets) - 1
	for _, idx := range f.jumpSets[top] {
		c.patchAddr(idx, target)
	}
	f.loopStarts = f.loopStarts[:len(f.loopStarts)-1]
	f.jumpSets = f.jumpSets[:top]
	c.emitOff(NIL, off)
}

func (c *compiler) compileBreak(v *ast.LoopBreak) {
	f := c.cur()
	if len(f.loopStarts) == 0 {
		c.fail(ErrBreakOutsideLoop, v.Offset, "break outside of loop")
		return
	}
	c.emit(SCOPE_OUT)
	c.emit8(uint8(ScopeLoop))
	p := c.emitJump(JUMP)
	c.addPending(p)
}

func (c *compiler) compileContinue(v *ast.LoopContinue) {
	f := c.cur()
	if len(f.loopStarts) == 0 {
		c.fail(ErrContinueOutsideLoop, v.Offset, "continue outside of loop")
		return
	}
	c.emit(SCOPE_OUT)
	c.emit8(uint8(ScopeLoop))
	target := f.loopStarts[len(f.loopStarts)-1]
	c.emitJumpTo(JUMP, target)
}

func (c *compiler) compileFunc(v *ast.Func) {
	c.pushFrame()
	c.compileNodes(v.Body)
	if c.err != nil {
		return
	}
	body := c.popFrame().buf

	f := c.cur()
	f.buf = append(f.buf, byte(FUNC))
	skipIdx := len(f.buf)
	f.buf = append(f.buf, 0, 0) // placeholder skip(2)
	f.buf = put64(f.buf, funcHash(v))
	f.buf = putCString(f.buf, v.Name)

	paramc, ok := c.u16check(len(v.Params), v.Offset, "parameter count")
	if !ok {
		return
	}
	f.buf = put16(f.buf, paramc)
	for _, p := range v.Params {
		f.buf = putCString(f.buf, p)
	}

	bodylen, ok := c.u16check(len(body), v.Offset, "function body length")
	if !ok {
		return
	}
	f.buf = put16(f.buf, bodylen)
	f.buf = append(f.buf, body...)

	skip := len(f.buf) - (skipIdx + 2)
	skipv, ok := c.u16check(skip, v.Offset, "function skip field")
	if !ok {
		return
	}
	patch16(f.buf, skipIdx, skipv)
}

func builtinCallee(n ast.Node) (Builtin, bool) {
	id, ok := n.(*ast.Ident)
	if !ok {
		return 0, false
	}
	return LookupBuiltin(id.Name)
}

func (c *compiler) compileCall(v *ast.Call) {
	if id, ok := builtinCallee(v.Callee); ok {
		for i := len(v.Args) - 1; i >= 0; i-- {
			c.compileNode(v.Args[i])
			if c.err != nil {
				return
			}
		}
		argc, ok := c.u8check(len(v.Args), v.Offset, "argument count")
		if !ok {
			return
		}
		c.emit(BUILTIN)
		c.emit8(uint8(id))
		c.emit16(v.Offset)
		c.emit8(argc)
		return
	}

	for i := len(v.Args) - 1; i >= 0; i-- {
		c.compileNode(v.Args[i])
		if c.err != nil {
			return
		}
	}
	c.compileNode(v.Callee)
	if c.err != nil {
		return
	}
	argc, ok := c.u8check(len(v.Args), v.Offset, "argument count")
	if !ok {
		return
	}
	c.emit(CALL)
	c.emit16(v.Offset)
	c.emit8(argc)
}

func (c *compiler) compileRecRange(v *ast.RecRange) {
	var actionBytes []byte
	if len(v.Action) > 0 {
		c.pushFrame()
		c.compileNodes(v.Action)
		if c.err != nil {
			return
		}
		actionBytes = c.popFrame().buf
	}

	// to, then from: reversed order, matching the runtime's pop sequence.
	if v.To != nil {
		c.compileNode(v.To)
		if c.err != nil {
			return
		}
	}
	if v.From != nil {
		c.compileNode(v.From)
		if c.err != nil {
			return
		}
	}

	id, ok := c.u8check(v.ID, v.Offset, "rec_range id")
	if !ok {
		return
	}
	actionlen, ok := c.u16check(len(actionBytes), v.Offset, "rec_range action length")
	if !ok {
		return
	}

	f := c.cur()
	f.buf = append(f.buf, byte(REC_RANGE))
	f.buf = append(f.buf, id)
	f.buf = append(f.buf, boolByte(v.Exclusive))
	f.buf = put16(f.buf, actionlen)
	f.buf = append(f.buf, actionBytes...)
	f.buf = append(f.buf, boolByte(v.From != nil))
	f.buf = append(f.buf, boolByte(v.To != nil))
}

func (c *compiler) compileRedir(v *ast.Redir) {
	handled := false
	if call, ok := v.Expr.(*ast.Call); ok {
		if callee, ok := call.Callee.(*ast.Ident); ok && callee.Name == "print" {
			for i := len(call.Args) - 1; i >= 0; i-- {
				c.compileNode(call.Args[i])
				if c.err != nil {
					return
				}
			}
			argc, ok := c.u8check(len(call.Args), call.Offset, "argument count")
			if !ok {
				return
			}
			c.emit(SPRINT)
			c.emit16(call.Offset)
			c.emit8(argc)
			handled = true
		}
	}
	if !handled {
		c.compileNode(v.Expr)
		if c.err != nil {
			return
		}
	}
	c.compileNode(v.File)
	if c.err != nil {
		return
	}
	c.emit(REDIR)
	c.emit16(v.Offset)
	c.emit8(boolByte(v.Clobber))
}
