package compiler

import (
	"bytes"
	"testing"

	"github.com/mna/zed/lang/ast"
	"github.com/mna/zed/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rulesProgram(nodes ...ast.Node) *ast.Program {
	return &ast.Program{Rules: nodes}
}

// scenario 1: `true;` -> bool_true off=0; pop
func TestCompileBooleanStatement(t *testing.T) {
	prog := rulesProgram(ast.NewBoolean(0, true), ast.NewStmtEnd(1))
	p, err := CompileProgram(prog)
	require.NoError(t, err)

	want := []byte{byte(BOOL_TRUE), 0, 0, byte(POP)}
	assert.Equal(t, want, p.Rules)
	assert.Empty(t, p.Init)
	assert.Empty(t, p.File)
	assert.Empty(t, p.Rec)
	assert.Empty(t, p.Exit)
}

// scenario 2: `1 + 2;` -> int 1; int 2; add off; pop
func TestCompileIntAdd(t *testing.T) {
	add := &ast.Infix{Base: ast.Base{Offset: 5}, Left: ast.NewInt(0, 1), Right: ast.NewInt(4, 2), Op: token.PLUS}
	prog := rulesProgram(add, ast.NewStmtEnd(6))
	p, err := CompileProgram(prog)
	require.NoError(t, err)

	var want []byte
	want = append(want, byte(INT))
	want = put64(want, uint64(1))
	want = append(want, byte(INT))
	want = put64(want, uint64(2))
	want = append(want, byte(ADD))
	want = put16(want, 5)
	want = append(want, byte(POP))
	assert.Equal(t, want, p.Rules)
}

// scenario 3: `if (x) { 1 } else { 2 };`
func TestCompileConditional(t *testing.T) {
	cond := &ast.Conditional{
		Base: ast.Base{Offset: 10},
		Cond: ast.NewIdent(0, "x"),
		Then: []ast.Node{ast.NewInt(1, 1)},
		Else: []ast.Node{ast.NewInt(2, 2)},
	}
	prog := rulesProgram(cond, ast.NewStmtEnd(3))
	p, err := CompileProgram(prog)
	require.NoError(t, err)

	// load "x"; jump_false P1; scope_in block; int 1; scope_out block;
	// jump P2; P1: scope_in block; int 2; scope_out block; P2: pop
	var want []byte
	want = append(want, byte(LOAD))
	want = put16(want, 0)
	want = append(want, "x\x00"...)
	jfIdx := len(want) + 1
	want = append(want, byte(JUMP_FALSE), 0, 0)
	want = append(want, byte(SCOPE_IN), byte(ScopeBlock))
	want = append(want, byte(INT))
	want = put64(want, uint64(1))
	want = append(want, byte(SCOPE_OUT), byte(ScopeBlock))
	jIdx := len(want) + 1
	want = append(want, byte(JUMP), 0, 0)
	patch16(want, jfIdx, uint16(len(want)))
	want = append(want, byte(SCOPE_IN), byte(ScopeBlock))
	want = append(want, byte(INT))
	want = put64(want, uint64(2))
	want = append(want, byte(SCOPE_OUT), byte(ScopeBlock))
	patch16(want, jIdx, uint16(len(want)))
	want = append(want, byte(POP))

	assert.Equal(t, want, p.Rules)
}

// scenario 4: `while (x) { break };`
func TestCompileWhileBreak(t *testing.T) {
	loop := &ast.Loop{
		Base: ast.Base{Offset: 20},
		Cond: ast.NewIdent(0, "x"),
		Body: []ast.Node{&ast.LoopBreak{Base: ast.Base{Offset: 1}}},
	}
	realProg := rulesProgram(loop, ast.NewStmtEnd(2))
	p, err := CompileProgram(realProg)
	require.NoError(t, err)

	// L: load "x"; jump_false PE; scope_in loop; scope_out loop; jump
	// PBREAK; scope_out loop; jump L; PE&PBREAK: nil; pop
	//
	// break emits its own scope_out before its jump, and the loop's own
	// scope_out follows the body. We assert on decoded structure instead
	// of building the expected bytes by hand.
	addr := 0
	readOp := func() Opcode { op := Opcode(p.Rules[addr]); addr++; return op }
	require.Equal(t, LOAD, readOp())
	addr += 2 // off
	for p.Rules[addr] != 0 {
		addr++
	}
	addr++ // nul terminator
	require.Equal(t, JUMP_FALSE, readOp())
	peAddr := addr
	peTarget := read16(p.Rules, addr)
	addr += 2
	require.Equal(t, SCOPE_IN, readOp())
	require.Equal(t, byte(ScopeLoop), p.Rules[addr])
	addr++
	require.Equal(t, SCOPE_OUT, readOp())
	require.Equal(t, byte(ScopeLoop), p.Rules[addr])
	addr++
	require.Equal(t, JUMP, readOp())
	breakTarget := read16(p.Rules, addr)
	addr += 2
	require.Equal(t, SCOPE_OUT, readOp())
	require.Equal(t, byte(ScopeLoop), p.Rules[addr])
	addr++
	require.Equal(t, JUMP, readOp())
	backTarget := read16(p.Rules, addr)
	addr += 2
	assert.EqualValues(t, 0, backTarget, "jumps back to the loop start")
	require.Equal(t, NIL, readOp())
	addr += 2
	require.Equal(t, POP, readOp())
	assert.Equal(t, len(p.Rules), addr)
	assert.Equal(t, int(peTarget), int(breakTarget), "both the loop-false exit and break patch to the same address")
}

// scenario 5: `a and b;`
func TestCompileShortCircuitAnd(t *testing.T) {
	and := &ast.Infix{Base: ast.Base{Offset: 99}, Left: ast.NewIdent(0, "a"), Right: ast.NewIdent(5, "b"), Op: token.AND}
	prog := rulesProgram(and, ast.NewStmtEnd(6))
	p, err := CompileProgram(prog)
	require.NoError(t, err)

	var want []byte
	want = append(want, byte(LOAD))
	want = put16(want, 0)
	want = append(want, "a\x00"...)
	pjIdx := len(want) + 1
	want = append(want, byte(JUMP_FALSE), 0, 0)
	want = append(want, byte(LOAD))
	want = put16(want, 5)
	want = append(want, "b\x00"...)
	patch16(want, pjIdx, uint16(len(want)))
	want = append(want, byte(POP))

	assert.Equal(t, want, p.Rules)
}

// scenario 6: `[1,2,3];`
func TestCompileList(t *testing.T) {
	list := &ast.List{
		Base:  ast.Base{Offset: 0},
		Elems: []ast.Node{ast.NewInt(0, 1), ast.NewInt(1, 2), ast.NewInt(2, 3)},
	}
	prog := rulesProgram(list, ast.NewStmtEnd(3))
	p, err := CompileProgram(prog)
	require.NoError(t, err)

	var want []byte
	want = append(want, byte(INT))
	want = put64(want, uint64(3))
	want = append(want, byte(INT))
	want = put64(want, uint64(2))
	want = append(want, byte(INT))
	want = put64(want, uint64(1))
	want = append(want, byte(LIST))
	want = put16(want, 3)
	want = append(want, byte(POP))

	assert.Equal(t, want, p.Rules)
}

func TestCompileBreakOutsideLoop(t *testing.T) {
	prog := rulesProgram(&ast.LoopBreak{Base: ast.Base{Offset: 3}})
	_, err := CompileProgram(prog)
	require.Error(t, err)
	cerr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrBreakOutsideLoop, cerr.Kind)
	assert.EqualValues(t, 3, cerr.Offset)
}

func TestCompileContinueOutsideLoop(t *testing.T) {
	prog := rulesProgram(&ast.LoopContinue{Base: ast.Base{Offset: 4}})
	_, err := CompileProgram(prog)
	require.Error(t, err)
	cerr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrContinueOutsideLoop, cerr.Kind)
}

func TestCompileReadOnlyGlobalAssignFails(t *testing.T) {
	assign := &ast.Assign{
		Base:   ast.Base{Offset: 7},
		Lvalue: ast.NewGlobalRef(0, ast.GlobalRnum),
		Rvalue: ast.NewInt(4, 5),
		Combo:  ast.ComboSet,
	}
	prog := rulesProgram(assign, ast.NewStmtEnd(8))
	_, err := CompileProgram(prog)
	require.Error(t, err)
	cerr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrReadOnlyGlobal, cerr.Kind)
	assert.EqualValues(t, 7, cerr.Offset)
}

func TestCompileWritableGlobalAssignSucceeds(t *testing.T) {
	assign := &ast.Assign{
		Base:   ast.Base{Offset: 0},
		Lvalue: ast.NewGlobalRef(0, ast.GlobalIcs),
		Rvalue: ast.NewInt(4, 5),
		Combo:  ast.ComboSet,
	}
	prog := rulesProgram(assign, ast.NewStmtEnd(8))
	p, err := CompileProgram(prog)
	require.NoError(t, err)

	var want []byte
	want = append(want, byte(INT))
	want = put64(want, uint64(5))
	want = append(want, byte(GSTORE))
	want = put16(want, 0)
	want = append(want, byte(ast.GlobalIcs))
	want = append(want, byte(POP))
	assert.Equal(t, want, p.Rules)
}

func TestCompileFunctionLiteralSkipField(t *testing.T) {
	fn := &ast.Func{
		Base:   ast.Base{Offset: 0},
		Name:   "f",
		Params: []string{"x"},
		Body:   []ast.Node{ast.NewIdent(1, "x"), ast.NewStmtEnd(2)},
	}
	prog := rulesProgram(fn, ast.NewStmtEnd(3))
	p, err := CompileProgram(prog)
	require.NoError(t, err)

	require.Equal(t, byte(FUNC), p.Rules[0])
	skip := read16(p.Rules, 1)
	// skip covers hash(8)+name(2="f\0")+paramc(2)+param("x\0"=2)+bodylen(2)+body
	bodyLoadLen := 1 + 2 + 2 // LOAD off name\0
	bodyPopLen := 1
	expectBodyLen := bodyLoadLen + bodyPopLen
	expectSkip := 8 + 2 /* "f\0" */ + 2 /* paramc */ + 2 /* "x\0" */ + 2 /* bodylen */ + expectBodyLen
	assert.EqualValues(t, expectSkip, skip)
	// FUNC is fully contained within len(p.Rules): opcode+skip field (3) + skip bytes + trailing POP
	assert.Equal(t, len(p.Rules), 3+int(skip)+1)
}

func TestZBCRoundTrip(t *testing.T) {
	prog := rulesProgram(ast.NewBoolean(0, true), ast.NewStmtEnd(1))
	p, err := CompileProgram(prog)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteZBC(&buf, p))

	got, err := ReadZBC(&buf)
	require.NoError(t, err)
	assert.Equal(t, p.Events(), got.Events())
}

func TestZBCRefusesShortFile(t *testing.T) {
	_, err := ReadZBC(bytes.NewReader([]byte{1, 0, 2}))
	require.Error(t, err)
}
