// Package parser implements a recursive descent parser for the C subset,
// with precedence climbing for expressions.
package parser

import (
	"fmt"

	"github.com/mwilner/tern-cc/pkg/cabs"
	"github.com/mwilner/tern-cc/pkg/lexer"
)

// Parser parses source code into a cabs AST
type Parser struct {
	l         *lexer.Lexer
	curToken  lexer.Token
	peekToken lexer.Token
	errors    []string
}

// New creates a new Parser for the given lexer
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	// Read two tokens to initialize curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
	if p.curToken.Type == lexer.TokenIllegal {
		p.errorAt(p.curToken)
	}
}

// Errors returns the list of parsing errors. The parser stops at the
// first error, so the list holds at most one entry.
func (p *Parser) Errors() []string {
	return p.errors
}

func (p *Parser) failed() bool {
	return len(p.errors) > 0
}

func (p *Parser) errorAt(tok lexer.Token) {
	if p.failed() {
		return
	}
	if tok.Literal != "" && tok.Type.String() != tok.Literal {
		p.errors = append(p.errors, fmt.Sprintf("line %d: unexpected %s %q",
			tok.Line, tok.Type, tok.Literal))
		return
	}
	p.errors = append(p.errors, fmt.Sprintf("line %d: unexpected %s", tok.Line, tok.Type))
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t lexer.TokenType) bool {
	return p.peekToken.Type == t
}

// expect verifies the current token without consuming it
func (p *Parser) expect(t lexer.TokenType) bool {
	if p.curTokenIs(t) {
		return true
	}
	p.errorAt(p.curToken)
	return false
}

// consume verifies and advances past the current token
func (p *Parser) consume(t lexer.TokenType) bool {
	if !p.expect(t) {
		return false
	}
	p.nextToken()
	return true
}

// ParseProgram parses a sequence of function declarations
func (p *Parser) ParseProgram() *cabs.Program {
	prog := &cabs.Program{}

	if p.curTokenIs(lexer.TokenEOF) {
		p.errorAt(p.curToken)
		return prog
	}

	for !p.curTokenIs(lexer.TokenEOF) && !p.failed() {
		fn := p.parseFuncDecl()
		if fn == nil {
			break
		}
		prog.Functions = append(prog.Functions, fn)
	}

	return prog
}

// parseFuncDecl parses: "int" id "(" params ")" ( block | ";" )
func (p *Parser) parseFuncDecl() *cabs.FuncDecl {
	if !p.consume(lexer.TokenInt) {
		return nil
	}
	if !p.expect(lexer.TokenIdent) {
		return nil
	}
	name := p.curToken.Literal
	p.nextToken()

	params, ok := p.parseParams()
	if !ok {
		return nil
	}

	fn := &cabs.FuncDecl{Name: name, Params: params}

	if p.curTokenIs(lexer.TokenSemicolon) {
		p.nextToken()
		return fn
	}

	fn.Body = p.parseBlock()
	if fn.Body == nil {
		return nil
	}
	return fn
}

// parseParams parses: "(" ( "void" | ε | "int" id ("," "int" id)* ) ")"
func (p *Parser) parseParams() ([]string, bool) {
	if !p.consume(lexer.TokenLParen) {
		return nil, false
	}

	var params []string
	switch {
	case p.curTokenIs(lexer.TokenVoid):
		p.nextToken()
	case p.curTokenIs(lexer.TokenInt):
		for {
			p.nextToken() // consume 'int'
			if !p.expect(lexer.TokenIdent) {
				return nil, false
			}
			params = append(params, p.curToken.Literal)
			p.nextToken()
			if !p.curTokenIs(lexer.TokenComma) {
				break
			}
			p.nextToken() // consume ','
			if !p.expect(lexer.TokenInt) {
				return nil, false
			}
		}
	}

	if !p.consume(lexer.TokenRParen) {
		return nil, false
	}
	return params, true
}

func (p *Parser) parseBlock() *cabs.Block {
	if !p.consume(lexer.TokenLBrace) {
		return nil
	}

	block := &cabs.Block{}
	for !p.curTokenIs(lexer.TokenRBrace) && !p.curTokenIs(lexer.TokenEOF) && !p.failed() {
		item := p.parseBlockItem()
		if item == nil {
			return nil
		}
		block.Items = append(block.Items, item)
	}

	if !p.consume(lexer.TokenRBrace) {
		return nil
	}
	return block
}

// parseBlockItem parses a declaration (leading "int") or a statement
func (p *Parser) parseBlockItem() cabs.BlockItem {
	if p.curTokenIs(lexer.TokenInt) {
		return p.parseDeclaration()
	}
	stmt := p.parseStatement()
	if stmt == nil {
		return nil
	}
	return stmt.(cabs.BlockItem)
}

// parseDeclaration parses a variable declaration or a function
// prototype after the leading "int". Function definitions do not nest.
func (p *Parser) parseDeclaration() cabs.BlockItem {
	p.nextToken() // consume 'int'
	if !p.expect(lexer.TokenIdent) {
		return nil
	}
	name := p.curToken.Literal
	p.nextToken()

	if p.curTokenIs(lexer.TokenLParen) {
		params, ok := p.parseParams()
		if !ok {
			return nil
		}
		if !p.consume(lexer.TokenSemicolon) {
			return nil
		}
		return &cabs.FuncDecl{Name: name, Params: params}
	}

	decl := &cabs.VarDecl{Name: name}
	if p.curTokenIs(lexer.TokenAssign) {
		p.nextToken()
		decl.Init = p.parseExpr(0)
		if decl.Init == nil {
			return nil
		}
	}
	if !p.consume(lexer.TokenSemicolon) {
		return nil
	}
	return decl
}

func (p *Parser) parseStatement() cabs.Stmt {
	switch p.curToken.Type {
	case lexer.TokenReturn:
		p.nextToken()
		expr := p.parseExpr(0)
		if expr == nil {
			return nil
		}
		if !p.consume(lexer.TokenSemicolon) {
			return nil
		}
		return &cabs.Return{Expr: expr}
	case lexer.TokenIf:
		return p.parseIf()
	case lexer.TokenWhile:
		return p.parseWhile()
	case lexer.TokenDo:
		return p.parseDoWhile()
	case lexer.TokenFor:
		return p.parseFor()
	case lexer.TokenBreak:
		p.nextToken()
		if !p.consume(lexer.TokenSemicolon) {
			return nil
		}
		return &cabs.Break{}
	case lexer.TokenContinue:
		p.nextToken()
		if !p.consume(lexer.TokenSemicolon) {
			return nil
		}
		return &cabs.Continue{}
	case lexer.TokenSwitch:
		return p.parseSwitch()
	case lexer.TokenLBrace:
		return p.parseBlock()
	case lexer.TokenSemicolon:
		p.nextToken()
		return &cabs.Null{}
	default:
		expr := p.parseExpr(0)
		if expr == nil {
			return nil
		}
		if !p.consume(lexer.TokenSemicolon) {
			return nil
		}
		return &cabs.ExprStmt{Expr: expr}
	}
}

func (p *Parser) parseIf() cabs.Stmt {
	p.nextToken() // consume 'if'
	if !p.consume(lexer.TokenLParen) {
		return nil
	}
	cond := p.parseExpr(0)
	if cond == nil {
		return nil
	}
	if !p.consume(lexer.TokenRParen) {
		return nil
	}
	then := p.parseStatement()
	if then == nil {
		return nil
	}
	stmt := &cabs.If{Cond: cond, Then: then}
	if p.curTokenIs(lexer.TokenElse) {
		p.nextToken()
		stmt.Else = p.parseStatement()
		if stmt.Else == nil {
			return nil
		}
	}
	return stmt
}

func (p *Parser) parseWhile() cabs.Stmt {
	p.nextToken() // consume 'while'
	if !p.consume(lexer.TokenLParen) {
		return nil
	}
	cond := p.parseExpr(0)
	if cond == nil {
		return nil
	}
	if !p.consume(lexer.TokenRParen) {
		return nil
	}
	body := p.parseStatement()
	if body == nil {
		return nil
	}
	return &cabs.While{Cond: cond, Body: body}
}

func (p *Parser) parseDoWhile() cabs.Stmt {
	p.nextToken() // consume 'do'
	body := p.parseStatement()
	if body == nil {
		return nil
	}
	if !p.consume(lexer.TokenWhile) {
		return nil
	}
	if !p.consume(lexer.TokenLParen) {
		return nil
	}
	cond := p.parseExpr(0)
	if cond == nil {
		return nil
	}
	if !p.consume(lexer.TokenRParen) {
		return nil
	}
	if !p.consume(lexer.TokenSemicolon) {
		return nil
	}
	return &cabs.DoWhile{Body: body, Cond: cond}
}

// parseFor parses a for loop. All three clauses are required; the init
// clause is either a variable declaration or an expression statement.
func (p *Parser) parseFor() cabs.Stmt {
	p.nextToken() // consume 'for'
	if !p.consume(lexer.TokenLParen) {
		return nil
	}

	var init cabs.BlockItem
	if p.curTokenIs(lexer.TokenInt) {
		init = p.parseDeclaration()
	} else {
		expr := p.parseExpr(0)
		if expr == nil {
			return nil
		}
		if !p.consume(lexer.TokenSemicolon) {
			return nil
		}
		init = &cabs.ExprStmt{Expr: expr}
	}
	if init == nil {
		return nil
	}

	cond := p.parseExpr(0)
	if cond == nil {
		return nil
	}
	if !p.consume(lexer.TokenSemicolon) {
		return nil
	}
	step := p.parseExpr(0)
	if step == nil {
		return nil
	}
	if !p.consume(lexer.TokenRParen) {
		return nil
	}
	body := p.parseStatement()
	if body == nil {
		return nil
	}
	return &cabs.For{Init: init, Cond: cond, Step: step, Body: body}
}

// parseSwitch parses: "switch" "(" expr ")" "{" case* default? "}"
func (p *Parser) parseSwitch() cabs.Stmt {
	p.nextToken() // consume 'switch'
	if !p.consume(lexer.TokenLParen) {
		return nil
	}
	scrutinee := p.parseExpr(0)
	if scrutinee == nil {
		return nil
	}
	if !p.consume(lexer.TokenRParen) {
		return nil
	}
	if !p.consume(lexer.TokenLBrace) {
		return nil
	}

	stmt := &cabs.Switch{Scrutinee: scrutinee}

	for p.curTokenIs(lexer.TokenCase) && !p.failed() {
		p.nextToken()
		value := p.parseExpr(0)
		if value == nil {
			return nil
		}
		if !p.consume(lexer.TokenColon) {
			return nil
		}
		body, ok := p.parseCaseBody()
		if !ok {
			return nil
		}
		stmt.Cases = append(stmt.Cases, cabs.SwitchCase{Value: value, Body: body})
	}

	if p.curTokenIs(lexer.TokenDefault) {
		p.nextToken()
		if !p.consume(lexer.TokenColon) {
			return nil
		}
		body, ok := p.parseCaseBody()
		if !ok {
			return nil
		}
		stmt.Default = body
		stmt.HasDefault = true
	}

	if !p.consume(lexer.TokenRBrace) {
		return nil
	}
	return stmt
}

// parseCaseBody collects statements until the next case label, default
// label, or the closing brace.
func (p *Parser) parseCaseBody() ([]cabs.Stmt, bool) {
	var body []cabs.Stmt
	for !p.curTokenIs(lexer.TokenCase) && !p.curTokenIs(lexer.TokenDefault) &&
		!p.curTokenIs(lexer.TokenRBrace) && !p.curTokenIs(lexer.TokenEOF) && !p.failed() {
		s := p.parseStatement()
		if s == nil {
			return nil, false
		}
		body = append(body, s)
	}
	return body, true
}
