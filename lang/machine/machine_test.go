package machine_test

import (
	"bytes"
	"testing"

	"github.com/mna/zed/lang/compiler"
	"github.com/mna/zed/lang/machine"
	"github.com/mna/zed/lang/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runRules compiles src and executes its Rules event, returning stdout and
// the Globals the run left behind.
func runRules(t *testing.T, src string) (string, *machine.Globals) {
	t.Helper()
	prog, err := parser.Parse([]byte(src))
	require.NoError(t, err)
	bc, err := compiler.CompileProgram(prog)
	require.NoError(t, err)

	g := machine.NewGlobals()
	var out bytes.Buffer
	th := machine.NewThread(g)
	th.Stdout = &out
	require.NoError(t, th.Run(bc.Rules))
	return out.String(), g
}

func TestArithmeticAndComparison(t *testing.T) {
	out, _ := runRules(t, `print(1 + 2 * 3);`)
	assert.Equal(t, "7", out)

	out, _ = runRules(t, `print(10 / 4);`)
	assert.Equal(t, "2.5", out)

	out, _ = runRules(t, `print(1 < 2);`)
	assert.Equal(t, "true", out)
}

func TestStringConcatAndRepeat(t *testing.T) {
	out, _ := runRules(t, `print("a" .. "b");`)
	assert.Equal(t, "ab", out)

	out, _ = runRules(t, `print("ab" ** 3);`)
	assert.Equal(t, "ababab", out)
}

func TestBuiltinLengthAndSplit(t *testing.T) {
	out, _ := runRules(t, `print(length("hello"));`)
	assert.Equal(t, "5", out)

	out, _ = runRules(t, `x := split("a,b,c", ","); print(length(x));`)
	assert.Equal(t, "3", out)
}

func TestListLiteralPreservesOrder(t *testing.T) {
	out, _ := runRules(t, `x := [1, 2, 3]; print(x[0], x[1], x[2]);`)
	assert.Equal(t, "123", out)
}

func TestMultiArgPrintPreservesOrder(t *testing.T) {
	out, _ := runRules(t, `print("a", "b", "c");`)
	assert.Equal(t, "abc", out)
}

func TestSplitArgOrder(t *testing.T) {
	out, _ := runRules(t, `x := split("a,b,c", ","); print(x[0], x[1], x[2]);`)
	assert.Equal(t, "abc", out)
}

func TestUserFuncArgOrderNotCommutative(t *testing.T) {
	// Named func declarations are statement()-only sugar (valid inside
	// blocks); at the top rule level a function value must be bound with
	// `:=` like any other expression.
	out, _ := runRules(t, `sub := func(a, b) { return a - b }; print(sub(10, 3));`)
	assert.Equal(t, "7", out)
}

func TestListIndexAssignment(t *testing.T) {
	out, _ := runRules(t, `x := [1, 2, 3]; x[1] = 9; print(x[1]);`)
	assert.Equal(t, "9", out)
}

func TestListIndexCombo(t *testing.T) {
	out, _ := runRules(t, `x := [1, 2, 3]; x[0] += 10; print(x[0]);`)
	assert.Equal(t, "11", out)
}

func TestMapIndexAssignment(t *testing.T) {
	out, _ := runRules(t, `x := {"a": 1}; x["b"] = 2; print(x["a"] + x["b"]);`)
	assert.Equal(t, "3", out)
}

func TestMapDuplicateKeyLastWins(t *testing.T) {
	out, _ := runRules(t, `x := {"a": 1, "a": 2}; print(x["a"]);`)
	assert.Equal(t, "2", out)
}

func TestFuncCallAndReturn(t *testing.T) {
	out, _ := runRules(t, `add := func(a, b) { return a + b }; print(add(3, 4));`)
	assert.Equal(t, "7", out)
}

func TestIfElseBranching(t *testing.T) {
	// if/while/break/continue are statement()-only productions, valid
	// inside a block; a bare rule `{ ... }` gives them one to run in.
	out, _ := runRules(t, `{ if (1 > 2) { print("yes") } else { print("no") } }`)
	assert.Equal(t, "no", out)
}

func TestWhileLoopWithBreakAndContinue(t *testing.T) {
	out, _ := runRules(t, `{
i := 0;
sum := 0;
while (i < 10) {
	i += 1;
	if (i == 5) {
		continue;
	}
	if (i > 8) {
		break;
	}
	sum += i;
}
print(sum);
}`)
	assert.Equal(t, "31", out)
}

func TestGlobalAssignmentAndReadBack(t *testing.T) {
	out, _ := runRules(t, `@ocs = "|"; print(@ocs);`)
	assert.Equal(t, "|", out)
}

func TestCondAssignOnlySetsWhenNil(t *testing.T) {
	out, _ := runRules(t, `x := 1; x ?= 2; print(x);`)
	assert.Equal(t, "1", out)
}
