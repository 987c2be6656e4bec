// Package parser implements a recursive descent parser over the
// lexer's token stream, producing a Program: an ordered list of
// Definitions, Executions, and import paths.
//
// Grounded on the teacher's internal/parser: a single mutable cursor
// over a flat token slice, returning the first error encountered at
// once (the spec's "single descriptive string"
// contract for parse errors). Operator precedence is parsed directly
// into plus/minus/equal/... Call nodes — folding the text-transform
// pass's operator rewrite into the parser itself, since a precedence
// climb already produces the grouped tree a separate rewrite pass
// would just re-walk.
package parser

import (
	"fmt"

	"github.com/saruga/primec/internal/ast"
	"github.com/saruga/primec/internal/lexer"
	"github.com/saruga/primec/internal/types"
)

// Parser holds the token cursor and the flat list of nested
// definitions hoisted out of enclosing bodies during the current parse.
type Parser struct {
	toks    []lexer.Token
	pos     int
	hoisted []*ast.Definition
}

var controlKeywords = map[string]bool{
	"if": true, "loop": true, "while": true, "for": true, "repeat": true,
}

// Parse tokenizes and parses source into a Program.
func Parse(source string) (*ast.Program, error) {
	toks, err := lexer.New(source).Tokenize()
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	return p.parseProgram()
}

func (p *Parser) peek() lexer.Token { return p.toks[p.pos] }

func (p *Parser) peekKind() lexer.TokenKind { return p.toks[p.pos].Kind }

func (p *Parser) peekAt(n int) lexer.Token {
	i := p.pos + n
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[i]
}

func (p *Parser) advance() lexer.Token {
	tok := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(k lexer.TokenKind) (lexer.Token, error) {
	if p.peekKind() != k {
		return lexer.Token{}, fmt.Errorf("expected %s, got %s %q at offset %d", k, p.peekKind(), p.peek().Text, p.peek().Start)
	}
	return p.advance(), nil
}

func (p *Parser) skipSeparators() {
	for p.peekKind() == lexer.TokComma || p.peekKind() == lexer.TokSemi {
		p.advance()
	}
}

func normalizePath(name string) string {
	if len(name) > 0 && name[0] == '/' {
		return name
	}
	return "/" + name
}

// parseProgram parses the full token stream into a Program.
func (p *Parser) parseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for p.peekKind() != lexer.TokEOF {
		if p.peekKind() == lexer.TokIdent && p.peek().Text == "import" {
			p.advance()
			pathTok, err := p.expect(lexer.TokIdent)
			if err != nil {
				return nil, err
			}
			path := pathTok.Text
			if p.peekKind() == lexer.TokStar {
				p.advance()
				path += "*"
			}
			prog.Imports = append(prog.Imports, path)
			continue
		}

		transforms, err := p.parseTransformsOpt()
		if err != nil {
			return nil, err
		}
		nameTok, err := p.expect(lexer.TokIdent)
		if err != nil {
			return nil, err
		}
		name := nameTok.Text
		templateArgs, err := p.parseTemplateArgsOpt()
		if err != nil {
			return nil, err
		}

		switch p.peekKind() {
		case lexer.TokLParen:
			args, argNames, err := p.parseParenList()
			if err != nil {
				return nil, err
			}
			if p.peekKind() == lexer.TokLBrace {
				body, err := p.parseBraceBody()
				if err != nil {
					return nil, err
				}
				def := p.buildDefinition(name, transforms, templateArgs, args, body)
				p.prefixHoisted(0, def.FullPath)
				prog.Definitions = append(prog.Definitions, def)
			} else {
				prog.Executions = append(prog.Executions, &ast.Execution{
					Path: normalizePath(name), Args: args, ArgNames: argNames, Transforms: transforms, Pos: nameTok.Start,
				})
			}
		case lexer.TokLBrace:
			body, err := p.parseBraceBody()
			if err != nil {
				return nil, err
			}
			def := p.buildDefinition(name, transforms, templateArgs, nil, body)
			p.prefixHoisted(0, def.FullPath)
			prog.Definitions = append(prog.Definitions, def)
		default:
			return nil, fmt.Errorf("expected '(' or '{' after top-level name %q", name)
		}

		prog.Definitions = append(prog.Definitions, p.hoisted...)
		p.hoisted = nil
	}
	return prog, nil
}

func (p *Parser) buildDefinition(name string, transforms []*ast.Transform, templateArgs []string, params []*ast.Expr, body []*ast.Expr) *ast.Definition {
	stmts, ret := splitReturn(body)
	return &ast.Definition{
		FullPath:     normalizePath(name),
		Params:       params,
		Statements:   stmts,
		Return:       ret,
		Transforms:   transforms,
		TemplateArgs: templateArgs,
	}
}

// prefixHoisted prepends parent to the paths of the definitions hoisted
// since index from, so a nested definition's path is its enclosing
// definition's path plus its own name.
func (p *Parser) prefixHoisted(from int, parent string) {
	for _, h := range p.hoisted[from:] {
		h.FullPath = parent + h.FullPath
	}
}

// splitReturn extracts a trailing `return(expr)` statement's argument as
// the Definition's Return, leaving the rest as Statements. Any other
// trailing statement, a bare `return()` included, stays in Statements.
func splitReturn(body []*ast.Expr) ([]*ast.Expr, *ast.Expr) {
	if len(body) == 0 {
		return nil, nil
	}
	last := body[len(body)-1]
	if last.Kind == ast.ExprCall && last.Callee == "return" && len(last.Args) == 1 {
		return body[:len(body)-1], last.Args[0]
	}
	return body, nil
}

// looksLikeLambdaCapture reports whether the `[...]` group starting at
// the cursor is followed immediately by `(`, the lambda-capture-list
// shape (`[x,y](params){body}`) rather than a transform group (which is
// always followed by the name of the thing it annotates).
func (p *Parser) looksLikeLambdaCapture() bool {
	depth := 0
	for i := p.pos; i < len(p.toks); i++ {
		switch p.toks[i].Kind {
		case lexer.TokLBracket:
			depth++
		case lexer.TokRBracket:
			depth--
			if depth == 0 {
				return p.peekAt(i - p.pos + 1).Kind == lexer.TokLParen
			}
		case lexer.TokEOF:
			return false
		}
	}
	return false
}

// parseTransformsOpt parses zero or more `[...]` transform groups.
func (p *Parser) parseTransformsOpt() ([]*ast.Transform, error) {
	var all []*ast.Transform
	for p.peekKind() == lexer.TokLBracket && !p.looksLikeLambdaCapture() {
		p.advance()
		group, err := p.parseTransformList(ast.PhaseSemantic)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokRBracket); err != nil {
			return nil, err
		}
		all = append(all, group...)
	}
	return all, nil
}

func (p *Parser) parseTransformList(defaultPhase ast.Phase) ([]*ast.Transform, error) {
	var list []*ast.Transform
	for {
		p.skipSeparators()
		if p.peekKind() == lexer.TokRBracket || p.peekKind() == lexer.TokRParen {
			break
		}
		nameTok, err := p.expect(lexer.TokIdent)
		if err != nil {
			return nil, err
		}
		name := nameTok.Text
		if name == "text" || name == "semantic" {
			phase := ast.PhaseSemantic
			if name == "text" {
				phase = ast.PhaseText
			}
			if _, err := p.expect(lexer.TokLParen); err != nil {
				return nil, err
			}
			inner, err := p.parseTransformList(phase)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.TokRParen); err != nil {
				return nil, err
			}
			list = append(list, inner...)
		} else {
			templateArgs, err := p.parseTemplateArgsOpt()
			if err != nil {
				return nil, err
			}
			var args []*ast.Expr
			if p.peekKind() == lexer.TokLParen {
				args, _, err = p.parseParenList()
				if err != nil {
					return nil, err
				}
			}
			list = append(list, &ast.Transform{Name: name, Arguments: args, TemplateArgs: templateArgs, Phase: defaultPhase})
		}
		p.skipSeparators()
		if p.peekKind() == lexer.TokRBracket || p.peekKind() == lexer.TokRParen {
			break
		}
	}
	return list, nil
}

func (p *Parser) parseTemplateArgsOpt() ([]string, error) {
	if p.peekKind() != lexer.TokLAngle {
		return nil, nil
	}
	p.advance()
	var args []string
	for {
		p.skipSeparators()
		if p.peekKind() == lexer.TokRAngle {
			break
		}
		tok := p.advance()
		args = append(args, tok.Text)
		p.skipSeparators()
		if p.peekKind() == lexer.TokRAngle {
			break
		}
	}
	if _, err := p.expect(lexer.TokRAngle); err != nil {
		return nil, err
	}
	return args, nil
}

// parseParenList parses a `( ... )` list shared by parameter lists,
// argument lists, and transform argument lists: each item is an
// optional `label:` prefix, optional `[transforms]`, then a full
// expression (a bare name is itself a valid expression, which is how a
// parameter declaration and a call argument share this one rule).
func (p *Parser) parseParenList() ([]*ast.Expr, []string, error) {
	if _, err := p.expect(lexer.TokLParen); err != nil {
		return nil, nil, err
	}
	var args []*ast.Expr
	var names []string
	for {
		p.skipSeparators()
		if p.peekKind() == lexer.TokRParen {
			break
		}
		label := ""
		if p.peekKind() == lexer.TokIdent && p.peekAt(1).Kind == lexer.TokColon {
			label = p.advance().Text
			p.advance()
		}
		transforms, err := p.parseTransformsOpt()
		if err != nil {
			return nil, nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, nil, err
		}
		if len(transforms) > 0 {
			e.Transforms = append(transforms, e.Transforms...)
		}
		args = append(args, e)
		names = append(names, label)
		p.skipSeparators()
		if p.peekKind() == lexer.TokRParen {
			break
		}
	}
	if _, err := p.expect(lexer.TokRParen); err != nil {
		return nil, nil, err
	}
	return args, names, nil
}

// isUpper reports whether name starts with an uppercase ASCII letter,
// the convention (matching the lowerer's struct/type handling) that
// distinguishes a brace-constructor call to a type (`Vec{x,y}`) from a
// binding declaration (`total{0i32}`).
func isUpper(name string) bool {
	return len(name) > 0 && name[0] >= 'A' && name[0] <= 'Z'
}

// parseBraceInit parses a `name{ ... }` form: a primitive type name
// gives a `convert` call over the body, an uppercase name gives a
// brace-constructor call, and any other name gives a binding. A body
// holding a single non-binding statement is the initializer itself;
// any other body is wrapped in a "block" envelope.
func (p *Parser) parseBraceInit(nameTok lexer.Token) (*ast.Expr, error) {
	name := nameTok.Text
	body, err := p.parseBraceBody()
	if err != nil {
		return nil, err
	}
	if types.Primitive(name) != nil {
		return &ast.Expr{Kind: ast.ExprCall, Callee: "convert", TemplateArgs: []string{name}, Args: body, Pos: nameTok.Start}, nil
	}
	// A single non-binding statement is the initializer value directly;
	// anything else (multiple statements, or a single binding) needs the
	// "block" envelope lowerExpr dispatches to lowerBlockStatements.
	var init *ast.Expr
	if len(body) == 1 && !body[0].IsBinding {
		init = body[0]
	} else {
		init = &ast.Expr{Kind: ast.ExprCall, Callee: "block", BodyArguments: body}
	}
	if isUpper(name) {
		return &ast.Expr{Kind: ast.ExprCall, Callee: name, Args: []*ast.Expr{init}, Pos: nameTok.Start}, nil
	}
	return &ast.Expr{Kind: ast.ExprCall, IsBinding: true, Name: name, Args: []*ast.Expr{init}, Pos: nameTok.Start}, nil
}

// parseBraceBody parses a `{ ... }` statement list. Nested definitions
// (`name(params) { body }` where name is not a control-flow keyword)
// are hoisted to p.hoisted rather than appearing in the returned list.
func (p *Parser) parseBraceBody() ([]*ast.Expr, error) {
	if _, err := p.expect(lexer.TokLBrace); err != nil {
		return nil, err
	}
	var stmts []*ast.Expr
	for p.peekKind() != lexer.TokRBrace {
		stmt, hoisted, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if !hoisted {
			stmts = append(stmts, stmt)
		}
		p.skipSeparators()
	}
	if _, err := p.expect(lexer.TokRBrace); err != nil {
		return nil, err
	}
	return stmts, nil
}

func (p *Parser) parseStatement() (*ast.Expr, bool, error) {
	transforms, err := p.parseTransformsOpt()
	if err != nil {
		return nil, false, err
	}

	if p.peekKind() == lexer.TokIdent {
		save := p.pos
		nameTok := p.advance()
		name := nameTok.Text

		if name == "if" {
			e, err := p.parseIf(transforms)
			if err != nil {
				return nil, false, err
			}
			e, err = p.parsePostfixFrom(e)
			return e, false, err
		}

		templateArgs, err := p.parseTemplateArgsOpt()
		if err != nil {
			return nil, false, err
		}

		if p.peekKind() == lexer.TokLParen {
			args, argNames, err := p.parseParenList()
			if err != nil {
				return nil, false, err
			}
			if p.peekKind() == lexer.TokLBrace {
				mark := len(p.hoisted)
				body, err := p.parseBraceBody()
				if err != nil {
					return nil, false, err
				}
				if !controlKeywords[name] {
					def := p.buildDefinition(name, transforms, templateArgs, args, body)
					p.prefixHoisted(mark, def.FullPath)
					p.hoisted = append(p.hoisted, def)
					return nil, true, nil
				}
				bodyEnv := &ast.Expr{Kind: ast.ExprCall, Callee: "body", BodyArguments: body}
				args = append(args, bodyEnv)
			}
			e := &ast.Expr{Kind: ast.ExprCall, Callee: name, Args: args, ArgNames: argNames, TemplateArgs: templateArgs, Transforms: transforms, Pos: nameTok.Start}
			e, err = p.parsePostfixFrom(e)
			return e, false, err
		}

		if p.peekKind() == lexer.TokLBrace {
			e, err := p.parseBraceInit(nameTok)
			if err != nil {
				return nil, false, err
			}
			e.Transforms = transforms
			return e, false, nil
		}

		p.pos = save
	}

	e, err := p.parseExpr()
	if err != nil {
		return nil, false, err
	}
	if len(transforms) > 0 {
		e.Transforms = append(transforms, e.Transforms...)
	}
	return e, false, nil
}

func (p *Parser) parseIf(transforms []*ast.Transform) (*ast.Expr, error) {
	condArgs, _, err := p.parseParenList()
	if err != nil {
		return nil, err
	}
	thenBody, err := p.parseBraceBody()
	if err != nil {
		return nil, err
	}
	thenEnv := &ast.Expr{Kind: ast.ExprCall, Callee: "then", BodyArguments: thenBody}
	elseEnv := &ast.Expr{Kind: ast.ExprCall, Callee: "else"}
	if p.peekKind() == lexer.TokIdent && p.peek().Text == "else" {
		p.advance()
		elseBody, err := p.parseBraceBody()
		if err != nil {
			return nil, err
		}
		elseEnv = &ast.Expr{Kind: ast.ExprCall, Callee: "else", BodyArguments: elseBody}
	}
	return &ast.Expr{Kind: ast.ExprCall, Callee: "if", Args: condArgs, BodyArguments: []*ast.Expr{thenEnv, elseEnv}, Transforms: transforms}, nil
}

// --- expression parsing: precedence climb, directly emitting the
// builtin Call nodes an operator-rewrite pass would otherwise produce.

func (p *Parser) parseExpr() (*ast.Expr, error) { return p.parseAssign() }

func (p *Parser) parseAssign() (*ast.Expr, error) {
	left, err := p.parseLogicalOr()
	if err != nil {
		return nil, err
	}
	if p.peekKind() == lexer.TokEquals {
		p.advance()
		right, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.ExprCall, Callee: "assign", Args: []*ast.Expr{left, right}}, nil
	}
	return left, nil
}

func (p *Parser) parseLogicalOr() (*ast.Expr, error) {
	left, err := p.parseLogicalAnd()
	if err != nil {
		return nil, err
	}
	for p.peekKind() == lexer.TokOrOr {
		p.advance()
		right, err := p.parseLogicalAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.Expr{Kind: ast.ExprCall, Callee: "or", Args: []*ast.Expr{left, right}}
	}
	return left, nil
}

func (p *Parser) parseLogicalAnd() (*ast.Expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.peekKind() == lexer.TokAndAnd {
		p.advance()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &ast.Expr{Kind: ast.ExprCall, Callee: "and", Args: []*ast.Expr{left, right}}
	}
	return left, nil
}

func (p *Parser) parseEquality() (*ast.Expr, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.peekKind() == lexer.TokEqEq || p.peekKind() == lexer.TokBangEq {
		op := "equal"
		if p.peekKind() == lexer.TokBangEq {
			op = "not_equal"
		}
		p.advance()
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = &ast.Expr{Kind: ast.ExprCall, Callee: op, Args: []*ast.Expr{left, right}}
	}
	return left, nil
}

func (p *Parser) parseRelational() (*ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		var op string
		switch p.peekKind() {
		case lexer.TokLAngle:
			op = "less_than"
		case lexer.TokRAngle:
			op = "greater_than"
		case lexer.TokLtEq:
			op = "less_equal"
		case lexer.TokGtEq:
			op = "greater_equal"
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &ast.Expr{Kind: ast.ExprCall, Callee: op, Args: []*ast.Expr{left, right}}
	}
}

func (p *Parser) parseAdditive() (*ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.peekKind() == lexer.TokPlus || p.peekKind() == lexer.TokMinus {
		op := "plus"
		if p.peekKind() == lexer.TokMinus {
			op = "minus"
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.Expr{Kind: ast.ExprCall, Callee: op, Args: []*ast.Expr{left, right}}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (*ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peekKind() == lexer.TokStar || p.peekKind() == lexer.TokSlash {
		op := "multiply"
		if p.peekKind() == lexer.TokSlash {
			op = "divide"
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.Expr{Kind: ast.ExprCall, Callee: op, Args: []*ast.Expr{left, right}}
	}
	return left, nil
}

func (p *Parser) parseUnary() (*ast.Expr, error) {
	switch p.peekKind() {
	case lexer.TokMinus:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		switch operand.Kind {
		case ast.ExprLiteral:
			operand.IntValue = -operand.IntValue
			return operand, nil
		case ast.ExprFloatLiteral:
			operand.FloatText = "-" + operand.FloatText
			return operand, nil
		}
		return &ast.Expr{Kind: ast.ExprCall, Callee: "negate", Args: []*ast.Expr{operand}}, nil
	case lexer.TokBang:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.ExprCall, Callee: "not", Args: []*ast.Expr{operand}}, nil
	case lexer.TokAmp:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.ExprCall, Callee: "location", Args: []*ast.Expr{operand}}, nil
	case lexer.TokStar:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.ExprCall, Callee: "dereference", Args: []*ast.Expr{operand}}, nil
	case lexer.TokPlusPlus:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.ExprCall, Callee: "increment", Args: []*ast.Expr{operand}}, nil
	case lexer.TokMinusMinus:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.ExprCall, Callee: "decrement", Args: []*ast.Expr{operand}}, nil
	}
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return p.parsePostfixFrom(e)
}

func (p *Parser) parsePostfixFrom(e *ast.Expr) (*ast.Expr, error) {
	for {
		switch p.peekKind() {
		case lexer.TokDot:
			p.advance()
			methodTok, err := p.expect(lexer.TokIdent)
			if err != nil {
				return nil, err
			}
			templateArgs, err := p.parseTemplateArgsOpt()
			if err != nil {
				return nil, err
			}
			args, argNames, err := p.parseParenList()
			if err != nil {
				return nil, err
			}
			fullArgs := append([]*ast.Expr{e}, args...)
			fullNames := append([]string{""}, argNames...)
			e = &ast.Expr{Kind: ast.ExprCall, Callee: methodTok.Text, Args: fullArgs, ArgNames: fullNames, TemplateArgs: templateArgs, IsMethodCall: true}
		case lexer.TokLBracket:
			p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.TokRBracket); err != nil {
				return nil, err
			}
			e = &ast.Expr{Kind: ast.ExprCall, Callee: "at", Args: []*ast.Expr{e, idx}}
		case lexer.TokPlusPlus:
			p.advance()
			e = &ast.Expr{Kind: ast.ExprCall, Callee: "increment", Args: []*ast.Expr{e}}
		case lexer.TokMinusMinus:
			p.advance()
			e = &ast.Expr{Kind: ast.ExprCall, Callee: "decrement", Args: []*ast.Expr{e}}
		default:
			return e, nil
		}
	}
}

func (p *Parser) parsePrimary() (*ast.Expr, error) {
	tok := p.peek()
	switch tok.Kind {
	case lexer.TokInt:
		p.advance()
		width, signed := int8(0), true
		switch tok.IntSuffix {
		case lexer.IntSuffixI32:
			width = 32
		case lexer.IntSuffixI64:
			width = 64
		case lexer.IntSuffixU64:
			width, signed = 64, false
		}
		return &ast.Expr{Kind: ast.ExprLiteral, IntValue: parseIntText(tok.Text), IntWidth: width, IntSigned: signed, Pos: tok.Start}, nil
	case lexer.TokFloat:
		p.advance()
		width := int8(0)
		switch tok.FloatSuffix {
		case lexer.FloatSuffixF32:
			width = 32
		case lexer.FloatSuffixF64:
			width = 64
		}
		return &ast.Expr{Kind: ast.ExprFloatLiteral, FloatText: tok.Text, FloatWidth: width, Pos: tok.Start}, nil
	case lexer.TokString:
		p.advance()
		suffix := ast.SuffixUTF8
		switch tok.StringSuffix {
		case lexer.StringSuffixASCII:
			suffix = ast.SuffixASCII
		case lexer.StringSuffixRawUTF8:
			suffix = ast.SuffixRawUTF8
		}
		return &ast.Expr{Kind: ast.ExprStringLiteral, StringValue: tok.Text, StringSuffix: suffix, HasExplicitSuffix: tok.HasSuffix, Pos: tok.Start}, nil
	case lexer.TokIdent:
		return p.parseIdentExpr()
	case lexer.TokLParen:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokRParen); err != nil {
			return nil, err
		}
		return e, nil
	case lexer.TokLBracket:
		return p.parseLambda()
	}
	return nil, fmt.Errorf("unexpected token %s %q at offset %d", tok.Kind, tok.Text, tok.Start)
}

func (p *Parser) parseIdentExpr() (*ast.Expr, error) {
	tok := p.advance()
	name := tok.Text

	if name == "true" || name == "false" {
		return &ast.Expr{Kind: ast.ExprBoolLiteral, BoolValue: name == "true", Pos: tok.Start}, nil
	}

	templateArgs, err := p.parseTemplateArgsOpt()
	if err != nil {
		return nil, err
	}

	if name == "if" {
		return p.parseIf(nil)
	}

	if p.peekKind() == lexer.TokLParen {
		args, argNames, err := p.parseParenList()
		if err != nil {
			return nil, err
		}
		if p.peekKind() == lexer.TokLBrace && controlKeywords[name] {
			body, err := p.parseBraceBody()
			if err != nil {
				return nil, err
			}
			args = append(args, &ast.Expr{Kind: ast.ExprCall, Callee: "body", BodyArguments: body})
		}
		return &ast.Expr{Kind: ast.ExprCall, Callee: name, Args: args, ArgNames: argNames, TemplateArgs: templateArgs, Pos: tok.Start}, nil
	}

	if p.peekKind() == lexer.TokLBrace {
		return p.parseBraceInit(tok)
	}

	return &ast.Expr{Kind: ast.ExprName, Name: name, TemplateArgs: templateArgs, Pos: tok.Start}, nil
}

func (p *Parser) parseLambda() (*ast.Expr, error) {
	if _, err := p.expect(lexer.TokLBracket); err != nil {
		return nil, err
	}
	var captures []string
	for p.peekKind() != lexer.TokRBracket {
		tok := p.advance()
		captures = append(captures, tok.Text)
		p.skipSeparators()
	}
	if _, err := p.expect(lexer.TokRBracket); err != nil {
		return nil, err
	}
	params, paramNames, err := p.parseParenList()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBraceBody()
	if err != nil {
		return nil, err
	}
	bodyEnv := &ast.Expr{Kind: ast.ExprCall, Callee: "body", BodyArguments: body}
	return &ast.Expr{
		Kind: ast.ExprCall, Callee: "lambda", IsLambda: true,
		Args: params, ArgNames: paramNames, LambdaCapture: captures,
		BodyArguments: []*ast.Expr{bodyEnv},
	}, nil
}

func parseIntText(text string) int64 {
	var v int64
	neg := false
	i := 0
	if len(text) > 1 && text[0] == '0' && (text[1] == 'x' || text[1] == 'X') {
		for _, c := range text[2:] {
			v *= 16
			switch {
			case c >= '0' && c <= '9':
				v += int64(c - '0')
			case c >= 'a' && c <= 'f':
				v += int64(c-'a') + 10
			case c >= 'A' && c <= 'F':
				v += int64(c-'A') + 10
			}
		}
		return v
	}
	if i < len(text) && text[i] == '-' {
		neg = true
		i++
	}
	for ; i < len(text); i++ {
		c := text[i]
		if c < '0' || c > '9' {
			break
		}
		v = v*10 + int64(c-'0')
	}
	if neg {
		v = -v
	}
	return v
}
