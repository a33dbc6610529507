package parser

import (
	"github.com/mna/zed/lang/ast"
	"github.com/mna/zed/lang/token"
)

// Precedence levels, lowest to highest, for the operator-precedence
// climbing parser below.
const (
	precLowest = iota
	precOr
	precAnd
	precCompare
	precConcat
	precAdditive
	precMultiplicative
	precRepeat
	precUnary
)

func precedenceOf(t token.Token) int {
	switch t {
	case token.OR:
		return precOr
	case token.AND:
		return precAnd
	case token.LT, token.LE, token.GT, token.GE, token.EQL, token.NEQ:
		return precCompare
	case token.CONCAT:
		return precConcat
	case token.PLUS, token.MINUS:
		return precAdditive
	case token.STAR, token.SLASH, token.PERCENT:
		return precMultiplicative
	case token.REPEAT:
		return precRepeat
	default:
		return precLowest
	}
}

// expr parses an expression via precedence climbing: primary / prefix /
// postfix first, then binary operators whose precedence exceeds minPrec.
func (p *Parser) expr(minPrec int) ast.Node {
	left := p.unary()
	for {
		prec := precedenceOf(p.tok)
		if prec <= minPrec {
			return left
		}
		op := p.tok
		off := p.off
		p.advance()
		right := p.expr(prec)
		left = &ast.Infix{Base: ast.Base{Offset: off}, Left: left, Right: right, Op: op}
	}
}

func (p *Parser) unary() ast.Node {
	switch p.tok {
	case token.MINUS, token.NOT:
		off := p.off
		op := p.tok
		p.advance()
		operand := p.expr(precUnary)
		return &ast.Prefix{Base: ast.Base{Offset: off}, Operand: operand, Op: op}
	default:
		return p.postfix(p.primary())
	}
}

// postfix attaches call and subscript trailers to n: `n(args)`, `n[idx]`.
func (p *Parser) postfix(n ast.Node) ast.Node {
	for {
		switch p.tok {
		case token.LPAREN:
			off := p.off
			p.advance()
			var args []ast.Node
			for p.tok != token.RPAREN {
				args = append(args, p.expr(precLowest))
				if !p.accept(token.COMMA) {
					break
				}
			}
			p.expect(token.RPAREN)
			n = &ast.Call{Base: ast.Base{Offset: off}, Callee: n, Args: args}
		case token.LBRACK:
			off := p.off
			p.advance()
			idx := p.expr(precLowest)
			p.expect(token.RBRACK)
			n = &ast.Subscript{Base: ast.Base{Offset: off}, Container: n, Index: idx}
		default:
			return n
		}
	}
}

func (p *Parser) primary() ast.Node {
	off := p.off
	switch p.tok {
	case token.TRUE:
		p.advance()
		return ast.NewBoolean(off, true)
	case token.FALSE:
		p.advance()
		return ast.NewBoolean(off, false)
	case token.NIL:
		p.advance()
		return ast.NewNil(off)
	case token.INT:
		v := p.val
		p.advance()
		if v.Uint != 0 && v.Int == 0 {
			return ast.NewUint(off, v.Uint)
		}
		return ast.NewInt(off, v.Int)
	case token.FLOAT:
		v := p.val.Float
		p.advance()
		return ast.NewFloat(off, v)
	case token.STRING:
		v := p.val.String
		p.advance()
		return &ast.String{Base: ast.Base{Offset: off}, Segments: []ast.StringSegment{{Literal: []byte(v)}}}
	case token.IDENT:
		name := p.val.Raw
		p.advance()
		if g, ok := ast.LookupGlobal(name); ok {
			return ast.NewGlobalRef(off, g)
		}
		return ast.NewIdent(off, name)
	case token.LPAREN:
		p.advance()
		inner := p.expr(precLowest)
		p.expect(token.RPAREN)
		return inner
	case token.LBRACK:
		return p.listOrRange(off)
	case token.LBRACE:
		return p.mapLiteral(off)
	case token.FUNC:
		return p.funcLiteral(off)
	default:
		p.fail("unexpected token %s in expression", p.tok)
		p.advance()
		return ast.NewNil(off)
	}
}

// listOrRange parses `[elem, elem, ...]` or `[from..to]` / `[from..=to]`.
func (p *Parser) listOrRange(off ast.Offset) ast.Node {
	p.advance() // '['
	if p.tok == token.RBRACK {
		p.advance()
		return &ast.List{Base: ast.Base{Offset: off}}
	}
	// Parse above concatenation precedence so that a `..` after the first
	// element stops here and marks a range.
	first := p.expr(precConcat)
	if p.tok == token.CONCAT {
		p.advance()
		inclusive := p.accept(token.ASSIGN)
		to := p.expr(precLowest)
		p.expect(token.RBRACK)
		return &ast.Range{Base: ast.Base{Offset: off}, From: first, To: to, Inclusive: inclusive}
	}
	// Not a range: finish any remaining lower-precedence binary operators.
	for prec := precedenceOf(p.tok); prec > precLowest; prec = precedenceOf(p.tok) {
		op, opOff := p.tok, p.off
		p.advance()
		first = &ast.Infix{Base: ast.Base{Offset: opOff}, Left: first, Right: p.expr(prec), Op: op}
	}
	elems := []ast.Node{first}
	for p.accept(token.COMMA) {
		if p.tok == token.RBRACK {
			break
		}
		elems = append(elems, p.expr(precLowest))
	}
	p.expect(token.RBRACK)
	return &ast.List{Base: ast.Base{Offset: off}, Elems: elems}
}

// mapLiteral parses `{ key: value, ... }`.
func (p *Parser) mapLiteral(off ast.Offset) ast.Node {
	p.advance() // '{'
	var entries []ast.MapEntry
	for p.tok != token.RBRACE {
		key := p.expr(precLowest)
		p.expect(token.COLON)
		val := p.expr(precLowest)
		entries = append(entries, ast.MapEntry{Key: key, Value: val})
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.RBRACE)
	return &ast.Map{Base: ast.Base{Offset: off}, Entries: entries}
}

// funcLiteral parses an anonymous (or named, in expression position)
// function value: `func (params) { body }`.
func (p *Parser) funcLiteral(off ast.Offset) ast.Node {
	p.advance() // 'func'
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
	return &ast.Func{Base: ast.Base{Offset: off}, Name: name, Params: params, Body: body}
}
