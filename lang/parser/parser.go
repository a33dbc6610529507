// Package parser builds an ast.Program from ZED source text. Its recursive-
// descent/Pratt structure, cut down to ZED's smaller grammar: no
// chunks-as-modules, no multi-value assignment, no metatables.
package parser

import (
	"fmt"

	"github.com/mna/zed/lang/ast"
	"github.com/mna/zed/lang/scanner"
	"github.com/mna/zed/lang/token"
)

// Error is one parse failure, offset-qualified like the compiler's.
type Error struct {
	Offset ast.Offset
	Msg    string
}

func (e *Error) Error() string { return e.Msg }

// Parser consumes a scanner.Scanner's token stream one token of lookahead
// at a time and builds ast.Node trees.
type Parser struct {
	sc   scanner.Scanner
	tok  token.Token
	off  ast.Offset
	val  scanner.Value
	errs []error

	nextRuleID int
}

// Parse tokenizes and parses src, returning the five-list Program or the
// first syntax error encountered.
func Parse(src []byte) (*ast.Program, error) {
	if len(src) > 0xFFFF {
		return nil, &Error{Offset: 0xFFFF, Msg: "program text exceeds 65535 bytes"}
	}
	p := &Parser{}
	p.sc.Init(src, func(off ast.Offset, msg string) {
		p.errs = append(p.errs, &Error{Offset: off, Msg: msg})
	})
	p.advance()

	prog := &ast.Program{}
	for p.tok != token.EOF && len(p.errs) == 0 {
		p.topLevelItem(prog)
	}
	if len(p.errs) > 0 {
		return nil, p.errs[0]
	}
	return prog, nil
}

func (p *Parser) advance() {
	p.tok, p.off, p.val = p.sc.Scan()
}

func (p *Parser) fail(format string, args ...any) {
	if len(p.errs) == 0 {
		p.errs = append(p.errs, &Error{Offset: p.off, Msg: fmt.Sprintf(format, args...)})
	}
}

func (p *Parser) expect(t token.Token) ast.Offset {
	off := p.off
	// A statement's closing `;` may be omitted before the `}` ending its block.
	if t == token.SEMI && p.tok == token.RBRACE {
		return off
	}
	if p.tok != t {
		p.fail("expected %s, got %s", t, p.tok)
		return off
	}
	p.advance()
	return off
}

func (p *Parser) accept(t token.Token) bool {
	if p.tok == t {
		p.advance()
		return true
	}
	return false
}

// topLevelItem parses one of: an event block (onInit/onFile/onRec/onExit),
// or a rule item (bare statement, or an optional pattern followed by a
// block), appending to the matching Program list.
func (p *Parser) topLevelItem(prog *ast.Program) {
	switch p.tok {
	case token.ON_INIT:
		p.advance()
		prog.Inits = append(prog.Inits, p.block()...)
	case token.ON_FILE:
		p.advance()
		prog.Files = append(prog.Files, p.block()...)
	case token.ON_REC:
		p.advance()
		prog.Recs = append(prog.Recs, p.block()...)
	case token.ON_EXIT:
		p.advance()
		prog.Exits = append(prog.Exits, p.block()...)
	default:
		prog.Rules = append(prog.Rules, p.ruleItem()...)
	}
}

// ruleItem parses a bare statement (whose nodes are appended to Rules
// as-is), or a `[from ['..' to]] { action }` pattern-action rule wrapped
// as a single ast.RecRange node.
func (p *Parser) ruleItem() []ast.Node {
	if p.tok == token.LBRACE {
		return []ast.Node{p.recRange(p.off, nil, nil)}
	}

	start := p.off
	// Parse above concatenation precedence so that a top-level `..` stops
	// here and can separate the from and to patterns of a range rule.
	from := p.expr(precConcat)
	if p.tok == token.CONCAT {
		p.advance()
		to := p.expr(precLowest)
		if p.tok == token.LBRACE {
			return []ast.Node{p.recRange(start, from, to)}
		}
		// `a..b;` outside of a pattern position is plain concatenation.
		infix := &ast.Infix{Base: ast.Base{Offset: start}, Left: from, Right: to, Op: token.CONCAT}
		return p.finishExprStatement(infix, start)
	}
	// Not a range: finish any remaining lower-precedence binary operators.
	for prec := precedenceOf(p.tok); prec > precLowest; prec = precedenceOf(p.tok) {
		op, opOff := p.tok, p.off
		p.advance()
		from = &ast.Infix{Base: ast.Base{Offset: opOff}, Left: from, Right: p.expr(prec), Op: op}
	}
	if p.tok == token.LBRACE {
		return []ast.Node{p.recRange(start, from, nil)}
	}
	return p.finishExprStatement(from, start)
}

func (p *Parser) recRange(off ast.Offset, from, to ast.Node) ast.Node {
	id := p.nextRuleID
	p.nextRuleID++
	action := p.block()
	return &ast.RecRange{Base: ast.Base{Offset: off}, From: from, To: to, Action: action, ID: id}
}

// block parses `{ stmt* }` and returns the flattened statement node list.
func (p *Parser) block() []ast.Node {
	p.expect(token.LBRACE)
	var nodes []ast.Node
	for p.tok != token.RBRACE && p.tok != token.EOF {
		nodes = append(nodes, p.statement()...)
	}
	p.expect(token.RBRACE)
	return nodes
}

func (p *Parser) statement() []ast.Node {
	switch p.tok {
	case token.IF:
		return []ast.Node{p.ifStatement()}
	case token.WHILE:
		return []ast.Node{p.whileStatement()}
	case token.DO:
		return []ast.Node{p.doWhileStatement()}
	case token.BREAK:
		off := p.off
		p.advance()
		p.expect(token.SEMI)
		return []ast.Node{ast.NewLoopBreak(off)}
	case token.CONTINUE:
		off := p.off
		p.advance()
		p.expect(token.SEMI)
		return []ast.Node{ast.NewLoopContinue(off)}
	case token.FUNC:
		return p.funcStatement()
	case token.RETURN:
		return []ast.Node{p.returnStatement()}
	default:
		start := p.off
		lhs := p.expr(precLowest)
		return p.finishExprStatement(lhs, start)
	}
}

func (p *Parser) ifStatement() ast.Node {
	off := p.off
	p.advance()
	p.expect(token.LPAREN)
	cond := p.expr(precLowest)
	p.expect(token.RPAREN)
	then := p.block()
	var els []ast.Node
	if p.accept(token.ELSE) {
		if p.tok == token.IF {
			els = []ast.Node{p.ifStatement()}
		} else {
			els = p.block()
		}
	}
	return &ast.Conditional{Base: ast.Base{Offset: off}, Cond: cond, Then: then, Else: els}
}

func (p *Parser) whileStatement() ast.Node {
	off := p.off
	p.advance()
	p.expect(token.LPAREN)
	cond := p.expr(precLowest)
	p.expect(token.RPAREN)
	body := p.block()
	return &ast.Loop{Base: ast.Base{Offset: off}, Cond: cond, Body: body}
}

func (p *Parser) doWhileStatement() ast.Node {
	off := p.off
	p.advance()
	body := p.block()
	p.expect(token.WHILE)
	p.expect(token.LPAREN)
	cond := p.expr(precLowest)
	p.expect(token.RPAREN)
	p.expect(token.SEMI)
	return &ast.Loop{Base: ast.Base{Offset: off}, Cond: cond, Body: body, IsDo: true}
}

// funcStatement parses a function declaration. A named declaration binds
// the function value to its name, equivalent to `name := func(...) {...}`;
// the compiler has no dedicated "declare function" opcode, so a named
// statement is just sugar for a define whose rvalue is the func literal.
func (p *Parser) funcStatement() []ast.Node {
	off := p.off
	p.advance()
	name := ""
	if p.tok == token.IDENT {
		name = p.val.Raw
		p.advance()
	}
	p.expect(token.LPAREN)
	var params []string
	for p.tok != token.RPAREN {
		if p.tok != token.IDENT {
			p.fail("expected parameter name, got %s", p.tok)
			break
		}
		params = append(params, p.val.Raw)
		p.advance()
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)
	body := p.block()
	fn := &ast.Func{Base: ast.Base{Offset: off}, Name: name, Params: params, Body: body}
	if name == "" {
		return []ast.Node{fn, ast.NewStmtEnd(off)}
	}
	return []ast.Node{&ast.Define{
		Base:   ast.Base{Offset: off},
		Lvalue: ast.NewIdent(off, name),
		Rvalue: fn,
	}}
}

func (p *Parser) returnStatement() ast.Node {
	off := p.off
	p.advance()
	var inner ast.Node
	if p.tok != token.SEMI {
		inner = p.expr(precLowest)
	}
	p.expect(token.SEMI)
	return &ast.FuncReturn{Base: ast.Base{Offset: off}, Inner: inner}
}

// finishExprStatement handles the productions that start with a plain
// expression: a `:=` definition, a plain or compound assignment, a
// redirection (`->` truncating, `>>` appending), or a bare expression
// statement terminated by `;` (lowered by the compiler as the expression
// followed by a stmt_end node, hence the two-node return here).
func (p *Parser) finishExprStatement(lhs ast.Node, start ast.Offset) []ast.Node {
	switch p.tok {
	case token.COLON:
		// `x := expr;` scans as COLON then ASSIGN; only a bare ident may be
		// the left-hand side.
		id, ok := lhs.(*ast.Ident)
		if !ok {
			p.fail("invalid define target")
			return []ast.Node{lhs}
		}
		p.advance()
		p.expect(token.ASSIGN)
		rhs := p.expr(precLowest)
		p.expect(token.SEMI)
		return []ast.Node{&ast.Define{Base: ast.Base{Offset: start}, Lvalue: id, Rvalue: rhs}}

	case token.ASSIGN, token.PLUS_EQ, token.MINUS_EQ, token.STAR_EQ, token.SLASH_EQ, token.PERCENT_EQ, token.COND_EQ:
		combo := ast.ComboFromToken(p.tok)
		p.advance()
		rhs := p.expr(precLowest)
		p.expect(token.SEMI)
		return []ast.Node{&ast.Assign{Base: ast.Base{Offset: start}, Lvalue: lhs, Rvalue: rhs, Combo: combo}}

	case token.ARROW, token.GT_GT:
		clobber := p.tok == token.ARROW
		p.advance()
		file := p.expr(precLowest)
		p.expect(token.SEMI)
		return []ast.Node{&ast.Redir{Base: ast.Base{Offset: start}, Expr: lhs, File: file, Clobber: clobber}}

	default:
		p.expect(token.SEMI)
		return []ast.Node{lhs, ast.NewStmtEnd(start)}
	}
}
