package scanner_test

import (
	"testing"

	"github.com/mna/zed/lang/ast"
	"github.com/mna/zed/lang/scanner"
	"github.com/mna/zed/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) []token.Token {
	t.Helper()
	var sc scanner.Scanner
	var errs []string
	sc.Init([]byte(src), func(off ast.Offset, msg string) {
		errs = append(errs, msg)
	})
	var toks []token.Token
	for {
		tok, _, _ := sc.Scan()
		toks = append(toks, tok)
		if tok == token.EOF {
			break
		}
	}
	require.Empty(t, errs)
	return toks
}

func TestScanPunctuation(t *testing.T) {
	cases := []struct {
		src  string
		want []token.Token
	}{
		{"->", []token.Token{token.ARROW, token.EOF}},
		{">>", []token.Token{token.GT_GT, token.EOF}},
		{">", []token.Token{token.GT, token.EOF}},
		{">=", []token.Token{token.GE, token.EOF}},
		{"..", []token.Token{token.CONCAT, token.EOF}},
		{"**", []token.Token{token.REPEAT, token.EOF}},
		{"?=", []token.Token{token.COND_EQ, token.EOF}},
		{"+=", []token.Token{token.PLUS_EQ, token.EOF}},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			assert.Equal(t, c.want, scanAll(t, c.src))
		})
	}
}

func TestScanKeywordsAndGlobals(t *testing.T) {
	toks := scanAll(t, "onInit onRec @rec while do func return")
	want := []token.Token{
		token.ON_INIT, token.ON_REC, token.IDENT, token.WHILE, token.DO,
		token.FUNC, token.RETURN, token.EOF,
	}
	assert.Equal(t, want, toks)
}

func TestScanGlobalIdentValue(t *testing.T) {
	var sc scanner.Scanner
	sc.Init([]byte("@rec"), func(ast.Offset, string) { t.Fatal("unexpected scan error") })
	tok, _, val := sc.Scan()
	require.Equal(t, token.IDENT, tok)
	assert.Equal(t, "@rec", val.Raw)
}

func TestScanIntAndFloat(t *testing.T) {
	var sc scanner.Scanner
	sc.Init([]byte("42 3.14 0x2a"), func(ast.Offset, string) { t.Fatal("unexpected scan error") })

	tok, _, val := sc.Scan()
	require.Equal(t, token.INT, tok)
	assert.EqualValues(t, 42, val.Int)

	tok, _, val = sc.Scan()
	require.Equal(t, token.FLOAT, tok)
	assert.InDelta(t, 3.14, val.Float, 0.0001)

	tok, _, val = sc.Scan()
	require.Equal(t, token.INT, tok)
	assert.EqualValues(t, 42, val.Int)
}

func TestScanStringEscapes(t *testing.T) {
	var sc scanner.Scanner
	sc.Init([]byte(`"a\nb\tc"`), func(ast.Offset, string) { t.Fatal("unexpected scan error") })
	tok, _, val := sc.Scan()
	require.Equal(t, token.STRING, tok)
	assert.Equal(t, "a\nb\tc", val.String)
}

func TestScanUnterminatedString(t *testing.T) {
	var sc scanner.Scanner
	var msgs []string
	sc.Init([]byte(`"abc`), func(off ast.Offset, msg string) { msgs = append(msgs, msg) })
	sc.Scan()
	assert.NotEmpty(t, msgs)
}

func TestScanCommentsSkipped(t *testing.T) {
	toks := scanAll(t, "1 # a comment\n+ 2")
	assert.Equal(t, []token.Token{token.INT, token.PLUS, token.INT, token.EOF}, toks)
}
