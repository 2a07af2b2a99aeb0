package parser

import (
	"strconv"

	"github.com/mwilner/tern-cc/pkg/cabs"
	"github.com/mwilner/tern-cc/pkg/lexer"
)

// Operator precedence levels, higher binds tighter. Unary operators sit
// above every binary level; assignment and the conditional operator are
// right-associative.
const (
	precAssign         = 2
	precTernary        = 3
	precOr             = 4
	precAnd            = 5
	precBitOr          = 6
	precBitXor         = 7
	precBitAnd         = 8
	precEquality       = 9
	precRelational     = 10
	precShift          = 11
	precAdditive       = 12
	precMultiplicative = 13
	precUnary          = 14
)

func precedence(t lexer.TokenType) int {
	switch t {
	case lexer.TokenStar, lexer.TokenSlash, lexer.TokenPercent:
		return precMultiplicative
	case lexer.TokenPlus, lexer.TokenMinus:
		return precAdditive
	case lexer.TokenShl, lexer.TokenShr:
		return precShift
	case lexer.TokenLt, lexer.TokenLe, lexer.TokenGt, lexer.TokenGe:
		return precRelational
	case lexer.TokenEq, lexer.TokenNe:
		return precEquality
	case lexer.TokenAmpersand:
		return precBitAnd
	case lexer.TokenCaret:
		return precBitXor
	case lexer.TokenPipe:
		return precBitOr
	case lexer.TokenAnd:
		return precAnd
	case lexer.TokenOr:
		return precOr
	case lexer.TokenQuestion:
		return precTernary
	case lexer.TokenAssign, lexer.TokenPlusAssign, lexer.TokenMinusAssign,
		lexer.TokenStarAssign, lexer.TokenSlashAssign, lexer.TokenPercentAssign,
		lexer.TokenAndAssign, lexer.TokenOrAssign, lexer.TokenXorAssign,
		lexer.TokenShlAssign, lexer.TokenShrAssign:
		return precAssign
	default:
		return 0
	}
}

func isBinaryOp(t lexer.TokenType) bool {
	return precedence(t) > 0
}

var binaryOps = map[lexer.TokenType]cabs.BinaryOp{
	lexer.TokenPlus:      cabs.OpAdd,
	lexer.TokenMinus:     cabs.OpSub,
	lexer.TokenStar:      cabs.OpMul,
	lexer.TokenSlash:     cabs.OpDiv,
	lexer.TokenPercent:   cabs.OpMod,
	lexer.TokenAmpersand: cabs.OpBitAnd,
	lexer.TokenPipe:      cabs.OpBitOr,
	lexer.TokenCaret:     cabs.OpBitXor,
	lexer.TokenShl:       cabs.OpShl,
	lexer.TokenShr:       cabs.OpShr,
	lexer.TokenLt:        cabs.OpLt,
	lexer.TokenLe:        cabs.OpLe,
	lexer.TokenGt:        cabs.OpGt,
	lexer.TokenGe:        cabs.OpGe,
	lexer.TokenEq:        cabs.OpEq,
	lexer.TokenNe:        cabs.OpNe,
	lexer.TokenAnd:       cabs.OpAnd,
	lexer.TokenOr:        cabs.OpOr,
}

var compoundOps = map[lexer.TokenType]cabs.BinaryOp{
	lexer.TokenPlusAssign:    cabs.OpAdd,
	lexer.TokenMinusAssign:   cabs.OpSub,
	lexer.TokenStarAssign:    cabs.OpMul,
	lexer.TokenSlashAssign:   cabs.OpDiv,
	lexer.TokenPercentAssign: cabs.OpMod,
	lexer.TokenAndAssign:     cabs.OpBitAnd,
	lexer.TokenOrAssign:      cabs.OpBitOr,
	lexer.TokenXorAssign:     cabs.OpBitXor,
	lexer.TokenShlAssign:     cabs.OpShl,
	lexer.TokenShrAssign:     cabs.OpShr,
}

// parseExpr implements the precedence-climbing loop. Left-associative
// operators recurse with prec+1, right-associative ones with prec.
func (p *Parser) parseExpr(minPrec int) cabs.Expr {
	var left cabs.Expr

	switch p.curToken.Type {
	case lexer.TokenNot, lexer.TokenMinus, lexer.TokenTilde:
		op := unaryOpFor(p.curToken.Type)
		p.nextToken()
		operand := p.parseExpr(precUnary + 1)
		if operand == nil {
			return nil
		}
		left = &cabs.Unary{Op: op, Expr: operand}
	default:
		left = p.parsePrimary()
	}
	if left == nil {
		return nil
	}

	for isBinaryOp(p.curToken.Type) && precedence(p.curToken.Type) >= minPrec && !p.failed() {
		op := p.curToken.Type
		prec := precedence(op)
		p.nextToken()

		switch {
		case op == lexer.TokenAssign:
			right := p.parseExpr(prec)
			if right == nil {
				return nil
			}
			left = &cabs.Assign{Target: left, Value: right}
		case op == lexer.TokenQuestion:
			then := p.parseExpr(0)
			if then == nil {
				return nil
			}
			if !p.consume(lexer.TokenColon) {
				return nil
			}
			elseExpr := p.parseExpr(prec)
			if elseExpr == nil {
				return nil
			}
			left = &cabs.Conditional{Cond: left, Then: then, Else: elseExpr}
		default:
			if binop, ok := compoundOps[op]; ok {
				right := p.parseExpr(prec)
				if right == nil {
					return nil
				}
				left = &cabs.CompoundAssign{Op: binop, Target: left, Value: right}
				continue
			}
			right := p.parseExpr(prec + 1)
			if right == nil {
				return nil
			}
			left = &cabs.Binary{Op: binaryOps[op], Left: left, Right: right}
		}
	}

	return left
}

func unaryOpFor(t lexer.TokenType) cabs.UnaryOp {
	switch t {
	case lexer.TokenMinus:
		return cabs.OpNeg
	case lexer.TokenTilde:
		return cabs.OpBitNot
	default:
		return cabs.OpNot
	}
}

// parsePrimary parses an integer literal, an identifier or call, or a
// parenthesized expression.
func (p *Parser) parsePrimary() cabs.Expr {
	switch p.curToken.Type {
	case lexer.TokenNum:
		value, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
		if err != nil {
			p.errorAt(p.curToken)
			return nil
		}
		p.nextToken()
		return &cabs.Constant{Value: value}
	case lexer.TokenLParen:
		p.nextToken()
		expr := p.parseExpr(0)
		if expr == nil {
			return nil
		}
		if !p.consume(lexer.TokenRParen) {
			return nil
		}
		return expr
	case lexer.TokenIdent:
		name := p.curToken.Literal
		if p.peekTokenIs(lexer.TokenLParen) {
			p.nextToken() // move to '('
			p.nextToken() // consume '('
			return p.parseCallArgs(name)
		}
		p.nextToken()
		return &cabs.Variable{Name: name}
	default:
		p.errorAt(p.curToken)
		return nil
	}
}

func (p *Parser) parseCallArgs(name string) cabs.Expr {
	call := &cabs.Call{Name: name}
	if p.curTokenIs(lexer.TokenRParen) {
		p.nextToken()
		return call
	}
	for {
		arg := p.parseExpr(0)
		if arg == nil {
			return nil
		}
		call.Args = append(call.Args, arg)
		if !p.curTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
	}
	if !p.consume(lexer.TokenRParen) {
		return nil
	}
	return call
}
