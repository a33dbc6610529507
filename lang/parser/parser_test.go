package parser_test

import (
	"testing"

	"github.com/mna/zed/lang/ast"
	"github.com/mna/zed/lang/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBareStatement(t *testing.T) {
	prog, err := parser.Parse([]byte("true;"))
	require.NoError(t, err)
	require.Len(t, prog.Rules, 2)
	b, ok := prog.Rules[0].(*ast.Boolean)
	require.True(t, ok)
	assert.True(t, b.Value)
	_, ok = prog.Rules[1].(*ast.StmtEnd)
	assert.True(t, ok)
}

func TestParseIntAddStatement(t *testing.T) {
	prog, err := parser.Parse([]byte("1 + 2;"))
	require.NoError(t, err)
	require.Len(t, prog.Rules, 2)
	inf, ok := prog.Rules[0].(*ast.Infix)
	require.True(t, ok)
	assert.Equal(t, int64(1), inf.Left.(*ast.Int).Value)
	assert.Equal(t, int64(2), inf.Right.(*ast.Int).Value)
}

func TestParseEventBlocks(t *testing.T) {
	src := `
onInit { print("start") }
onFile { @ocs = "," }
onRec { x := 1 }
onExit { print("done") }
`
	prog, err := parser.Parse([]byte(src))
	require.NoError(t, err)
	assert.NotEmpty(t, prog.Inits)
	assert.NotEmpty(t, prog.Files)
	assert.NotEmpty(t, prog.Recs)
	assert.NotEmpty(t, prog.Exits)
}

func TestParseRecRangeRule(t *testing.T) {
	prog, err := parser.Parse([]byte(`1..3 { print(@rec) }`))
	require.NoError(t, err)
	require.Len(t, prog.Rules, 1)
	rr, ok := prog.Rules[0].(*ast.RecRange)
	require.True(t, ok)
	assert.NotNil(t, rr.From)
	assert.NotNil(t, rr.To)
	assert.NotEmpty(t, rr.Action)
}

func TestParseBareBlockRule(t *testing.T) {
	prog, err := parser.Parse([]byte(`{ print("hi") }`))
	require.NoError(t, err)
	require.Len(t, prog.Rules, 1)
	rr, ok := prog.Rules[0].(*ast.RecRange)
	require.True(t, ok)
	assert.Nil(t, rr.From)
	assert.Nil(t, rr.To)
}

func TestParseNamedFuncIsDefineSugar(t *testing.T) {
	// A named func declaration is only recognized as such inside a block
	// (onInit/onFile/onRec/onExit, or nested in another block); at the
	// top rule level it parses instead as a bare func-literal expression
	// statement, so this exercises statement() via an event block.
	prog, err := parser.Parse([]byte(`onInit { func add(a, b) { return a + b } }`))
	require.NoError(t, err)
	require.Len(t, prog.Inits, 1)
	def, ok := prog.Inits[0].(*ast.Define)
	require.True(t, ok)
	assert.Equal(t, "add", def.Lvalue.Name)
	fn, ok := def.Rvalue.(*ast.Func)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, fn.Params)
}

func TestParseIfStatement(t *testing.T) {
	prog, err := parser.Parse([]byte(`onInit { if (x) { y := 1 } else { y := 2 } }`))
	require.NoError(t, err)
	require.Len(t, prog.Inits, 1)
	_, ok := prog.Inits[0].(*ast.Conditional)
	assert.True(t, ok)
}

func TestParseWhileAndDoWhile(t *testing.T) {
	prog, err := parser.Parse([]byte(`onInit { while (x) { break } do { continue } while (y); }`))
	require.NoError(t, err)
	require.Len(t, prog.Inits, 2)
	loop1 := prog.Inits[0].(*ast.Loop)
	assert.False(t, loop1.IsDo)
	loop2 := prog.Inits[1].(*ast.Loop)
	assert.True(t, loop2.IsDo)
}

func TestParseRedirTruncateVsAppend(t *testing.T) {
	prog, err := parser.Parse([]byte(`"a" -> "out.txt"; "b" >> "out.txt";`))
	require.NoError(t, err)
	require.Len(t, prog.Rules, 2)
	r1 := prog.Rules[0].(*ast.Redir)
	assert.True(t, r1.Clobber)
	r2 := prog.Rules[1].(*ast.Redir)
	assert.False(t, r2.Clobber)
}

func TestParseGlobalAssignment(t *testing.T) {
	prog, err := parser.Parse([]byte(`@ics = ",";`))
	require.NoError(t, err)
	require.Len(t, prog.Rules, 1)
	as, ok := prog.Rules[0].(*ast.Assign)
	require.True(t, ok)
	gr, ok := as.Lvalue.(*ast.GlobalRef)
	require.True(t, ok)
	assert.Equal(t, ast.GlobalIcs, gr.Global)
}

func TestParseListLiteral(t *testing.T) {
	prog, err := parser.Parse([]byte(`x := [1, 2, 3];`))
	require.NoError(t, err)
	def := prog.Rules[0].(*ast.Define)
	l, ok := def.Rvalue.(*ast.List)
	require.True(t, ok)
	assert.Len(t, l.Elems, 3)
}

func TestParseConcatVsRange(t *testing.T) {
	prog, err := parser.Parse([]byte(`x := "a" .. "b";`))
	require.NoError(t, err)
	def := prog.Rules[0].(*ast.Define)
	_, ok := def.Rvalue.(*ast.Infix)
	assert.True(t, ok)
}
