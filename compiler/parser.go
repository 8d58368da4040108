package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for Starling
// ---------------------------------------------------------------------------

// Parser parses Starling source code into an AST. Starling is line-oriented:
// statements end at a newline, and compound statements are closed by end
// keywords (endif, endwhile, enddef, endclass, endinterface, endtry).
type Parser struct {
	lexer      *Lexer
	curToken   Token
	peekToken  Token
	errors     []string
	scriptName string
	srcLines   []string
	depth      int // bracket nesting; newlines are ignored inside brackets
}

// NewParser creates a new parser for the given script name and input.
func NewParser(scriptName, input string) *Parser {
	p := &Parser{
		lexer:      NewLexer(input),
		scriptName: scriptName,
		srcLines:   strings.Split(input, "\n"),
	}
	// Read two tokens to fill curToken and peekToken
	p.advance()
	p.advance()
	return p
}

// Errors returns the parse errors collected so far.
func (p *Parser) Errors() []string {
	return p.errors
}

// advance moves to the next token. Inside brackets, newline tokens are
// skipped so that list, dict, and argument lists may span lines.
func (p *Parser) advance() {
	p.curToken = p.peekToken
	for {
		p.peekToken = p.lexer.NextToken()
		switch p.peekToken.Type {
		case TokenLParen, TokenLBracket, TokenLBrace:
			p.depth++
		case TokenRParen, TokenRBracket, TokenRBrace:
			if p.depth > 0 {
				p.depth--
			}
		case TokenNewline:
			if p.depth > 0 {
				continue
			}
		}
		break
	}
}

func (p *Parser) curIs(t TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekIs(t TokenType) bool { return p.peekToken.Type == t }

// expect consumes the current token if it matches, otherwise records an
// error and returns false.
func (p *Parser) expect(t TokenType) bool {
	if p.curIs(t) {
		p.advance()
		return true
	}
	p.errorf(p.curToken.Line, "expected %s, got %s", t, p.curToken.Type)
	return false
}

// errorf records a parse error with the script name and line.
func (p *Parser) errorf(line int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	p.errors = append(p.errors, fmt.Sprintf("%s line %d: %s", p.scriptName, line, msg))
}

// skipNewlines consumes any run of newline tokens.
func (p *Parser) skipNewlines() {
	for p.curIs(TokenNewline) {
		p.advance()
	}
}

// endOfStatement consumes the statement terminator (newline or EOF).
func (p *Parser) endOfStatement() {
	if p.curIs(TokenNewline) {
		p.advance()
		return
	}
	if p.curIs(TokenEOF) {
		return
	}
	p.errorf(p.curToken.Line, "trailing characters: %s", p.curToken.Literal)
	// Resynchronize at the next line
	for !p.curIs(TokenNewline) && !p.curIs(TokenEOF) {
		p.advance()
	}
}

// Parse parses the whole script.
func (p *Parser) Parse() *Script {
	script := &Script{Name: p.scriptName}
	for {
		p.skipNewlines()
		if p.curIs(TokenEOF) {
			break
		}
		stmt := p.parseTopLevel()
		if stmt != nil {
			script.Stmts = append(script.Stmts, stmt)
		}
	}
	return script
}

// ParseExpr parses a single expression, for interactive evaluation.
func (p *Parser) ParseExpr() Expr {
	p.skipNewlines()
	expr := p.parseExpr()
	if !p.curIs(TokenNewline) && !p.curIs(TokenEOF) {
		p.errorf(p.curToken.Line, "trailing characters: %s", p.curToken.Literal)
	}
	return expr
}

// parseTopLevel parses a top-level statement or declaration.
func (p *Parser) parseTopLevel() Stmt {
	switch p.curToken.Type {
	case TokenClass, TokenInterface:
		return p.parseClassDecl(false)
	case TokenAbstract:
		if p.peekIs(TokenClass) {
			p.advance()
			return p.parseClassDecl(true)
		}
		p.errorf(p.curToken.Line, "abstract must be followed by class")
		p.endOfStatement()
		return nil
	case TokenDef:
		return p.parseFuncDecl()
	default:
		return p.parseStmt()
	}
}

// ---------------------------------------------------------------------------
// Class and interface declarations
// ---------------------------------------------------------------------------

// parseClassDecl parses "class Name ... endclass" or
// "interface Name ... endinterface". The abstract keyword, if present, has
// already been consumed.
func (p *Parser) parseClassDecl(isAbstract bool) Stmt {
	decl := &ClassDecl{
		Abstract:    isAbstract,
		IsInterface: p.curIs(TokenInterface),
		Line:        p.curToken.Line,
	}
	p.advance() // class/interface

	if !p.curIs(TokenIdentifier) {
		p.errorf(p.curToken.Line, "missing name after %s", declKind(decl))
		p.skipToLineAfter(endKeyword(decl))
		return nil
	}
	decl.Name = p.curToken.Literal
	p.advance()

	// Header clauses: extends / implements
	for !p.curIs(TokenNewline) && !p.curIs(TokenEOF) {
		switch p.curToken.Type {
		case TokenExtends:
			if len(decl.Extends) > 0 && !decl.IsInterface {
				p.errorf(p.curToken.Line, "duplicate extends")
			}
			p.advance()
			for {
				if !p.curIs(TokenIdentifier) {
					p.errorf(p.curToken.Line, "missing name after extends")
					break
				}
				decl.Extends = append(decl.Extends, p.curToken.Literal)
				p.advance()
				if decl.IsInterface && p.curIs(TokenComma) {
					p.advance()
					continue
				}
				break
			}
		case TokenImplements:
			if decl.IsInterface {
				p.errorf(p.curToken.Line, "interface cannot use implements")
				p.skipToLineAfter(TokenEndinterface)
				return nil
			}
			if len(decl.Implements) > 0 {
				p.errorf(p.curToken.Line, "duplicate implements")
			}
			p.advance()
			for {
				if !p.curIs(TokenIdentifier) {
					p.errorf(p.curToken.Line, "missing name after implements")
					break
				}
				name := p.curToken.Literal
				for _, seen := range decl.Implements {
					if seen == name {
						p.errorf(p.curToken.Line, "duplicate interface after implements: %s", name)
					}
				}
				decl.Implements = append(decl.Implements, name)
				p.advance()
				if p.curIs(TokenComma) {
					p.advance()
					continue
				}
				break
			}
		default:
			p.errorf(p.curToken.Line, "trailing characters: %s", p.curToken.Literal)
			p.skipToLineAfter(endKeyword(decl))
			return nil
		}
	}
	p.endOfStatement()

	// Body
	for {
		p.skipNewlines()
		if p.curIs(TokenEOF) {
			p.errorf(decl.Line, "missing %s for %s", endKeyword(decl), decl.Name)
			return nil
		}
		if p.curIs(endKeyword(decl)) {
			decl.EndLine = p.curToken.Line
			p.advance()
			p.endOfStatement()
			break
		}
		if p.curIs(wrongEndKeyword(decl)) {
			p.errorf(p.curToken.Line, "invalid command %s, expected %s",
				p.curToken.Literal, endKeyword(decl))
			p.advance()
			p.endOfStatement()
			return nil
		}
		p.parseClassBodyLine(decl)
	}

	decl.Text = p.sliceSource(decl.Line, decl.EndLine)
	return decl
}

// parseClassBodyLine parses one member or method line inside a class or
// interface body, enforcing the modifier rules that are purely syntactic.
func (p *Parser) parseClassBodyLine(decl *ClassDecl) {
	line := p.curToken.Line

	hasPublic := false
	if p.curIs(TokenPublic) {
		if decl.IsInterface {
			p.errorf(line, "public variable not supported in an interface")
			p.skipLine()
			return
		}
		hasPublic = true
		p.advance()
		switch p.curToken.Type {
		case TokenVar, TokenStatic, TokenFinal, TokenConst:
			// ok
		case TokenDef:
			p.errorf(line, "public keyword not supported for a method")
			p.skipLine()
			return
		default:
			p.errorf(line, "public must be followed by var, static, final or const")
			p.skipLine()
			return
		}
	}

	abstractMethod := false
	if p.curIs(TokenAbstract) {
		if decl.IsInterface {
			p.errorf(line, "abstract cannot be used in an interface")
			p.skipLine()
			return
		}
		if !decl.Abstract {
			p.errorf(line, "abstract method in a concrete class")
			p.skipLine()
			return
		}
		p.advance()
		if !p.curIs(TokenDef) && !p.curIs(TokenStatic) {
			p.errorf(line, "abstract must be followed by def")
			p.skipLine()
			return
		}
		abstractMethod = true
	}

	hasStatic := false
	if p.curIs(TokenStatic) {
		if decl.IsInterface {
			p.errorf(line, "static member not supported in an interface")
			p.skipLine()
			return
		}
		hasStatic = true
		p.advance()
		switch p.curToken.Type {
		case TokenVar, TokenDef, TokenFinal, TokenConst:
			// ok
		default:
			p.errorf(line, "static must be followed by var, def, final or const")
			p.skipLine()
			return
		}
	}

	switch p.curToken.Type {
	case TokenVar, TokenFinal, TokenConst:
		m := p.parseMemberDecl(decl, hasPublic, hasStatic)
		if m != nil {
			decl.Members = append(decl.Members, m)
		}
	case TokenDef:
		if abstractMethod && hasStatic {
			p.errorf(line, "abstract cannot be used for a static method")
			p.skipLine()
			return
		}
		m := p.parseMethodDecl(decl, hasStatic, abstractMethod)
		if m != nil {
			decl.Methods = append(decl.Methods, m)
		}
	default:
		p.errorf(line, "not a valid command in a %s: %s", declKind(decl), p.curToken.Literal)
		p.skipLine()
	}
}

// parseMemberDecl parses "[modifiers] var|final|const name[: type][ = expr]".
func (p *Parser) parseMemberDecl(decl *ClassDecl, hasPublic, hasStatic bool) *MemberDecl {
	line := p.curToken.Line
	m := &MemberDecl{Public: hasPublic, Static: hasStatic, Line: line}

	switch p.curToken.Type {
	case TokenFinal:
		if decl.IsInterface {
			p.errorf(line, "final variable not supported in an interface")
			p.skipLine()
			return nil
		}
		m.Final = true
	case TokenConst:
		if decl.IsInterface {
			p.errorf(line, "const variable not supported in an interface")
			p.skipLine()
			return nil
		}
		m.Const = true
	}
	p.advance() // var/final/const

	if !p.curIs(TokenIdentifier) {
		p.errorf(line, "invalid %s variable declaration", storageKind(hasStatic))
		p.skipLine()
		return nil
	}
	m.Name = p.curToken.Literal
	p.advance()

	if strings.HasPrefix(m.Name, "_") {
		if decl.IsInterface {
			p.errorf(line, "protected variable not supported in an interface: %s", m.Name)
			p.skipLine()
			return nil
		}
		if hasPublic {
			p.errorf(line, "public variable name cannot start with underscore: %s", m.Name)
			p.skipLine()
			return nil
		}
	}

	if p.curIs(TokenColon) {
		p.advance()
		m.Type = p.parseTypeExpr()
	}

	if p.curIs(TokenAssign) {
		if decl.IsInterface {
			p.errorf(line, "cannot initialize a variable in an interface")
			p.skipLine()
			return nil
		}
		p.advance()
		m.Init = p.parseExpr()
	}

	if m.Type == nil && m.Init == nil {
		p.errorf(line, "type or initialization required for %s", m.Name)
		p.skipLine()
		return nil
	}

	p.endOfStatement()
	return m
}

// parseMethodDecl parses a method declaration. For interface and abstract
// methods the declaration is a single line with no body; otherwise the body
// runs to the matching enddef.
func (p *Parser) parseMethodDecl(decl *ClassDecl, hasStatic, isAbstract bool) *MethodDecl {
	line := p.curToken.Line
	p.advance() // def

	if !p.curIs(TokenIdentifier) {
		p.errorf(line, "missing method name after def")
		p.skipLine()
		return nil
	}
	m := &MethodDecl{
		Name:     p.curToken.Literal,
		Static:   hasStatic,
		Abstract: isAbstract,
		Line:     line,
	}
	p.advance()

	if strings.HasPrefix(m.Name, "__") {
		// double underscore prefix is reserved
		p.errorf(line, "cannot use reserved name: %s", m.Name)
		p.skipLine()
		return nil
	}
	if decl.IsInterface && strings.HasPrefix(m.Name, "_") {
		p.errorf(line, "protected method not supported in an interface: %s", m.Name)
		p.skipLine()
		return nil
	}

	if !p.parseParamList(m, true) {
		p.skipLine()
		return nil
	}

	if p.curIs(TokenColon) {
		p.advance()
		m.Return = p.parseTypeExpr()
	}
	p.endOfStatement()

	if decl.IsInterface || isAbstract {
		// Signature only, no body, no enddef.
		return m
	}

	m.Body = p.parseBlock(TokenEnddef)
	m.HasBody = true
	p.expect(TokenEnddef)
	p.endOfStatement()
	return m
}

// parseFuncDecl parses a script-level "def Name(...) ... enddef".
func (p *Parser) parseFuncDecl() Stmt {
	line := p.curToken.Line
	p.advance() // def

	if !p.curIs(TokenIdentifier) {
		p.errorf(line, "missing function name after def")
		p.skipLine()
		return nil
	}
	fn := &FuncDecl{Name: p.curToken.Literal, Line: line}
	p.advance()

	m := &MethodDecl{Line: line}
	if !p.parseParamList(m, false) {
		p.skipLine()
		return nil
	}
	fn.Params = m.Params
	fn.Variadic = m.Variadic

	if p.curIs(TokenColon) {
		p.advance()
		fn.Return = p.parseTypeExpr()
	}
	p.endOfStatement()

	fn.Body = p.parseBlock(TokenEnddef)
	p.expect(TokenEnddef)
	p.endOfStatement()
	return fn
}

// parseParamList parses "(p1, p2, ...)" into m. allowMember enables the
// constructor shorthand "this.name"; whether the shorthand is legal for this
// particular method is checked at registration.
func (p *Parser) parseParamList(m *MethodDecl, allowMember bool) bool {
	if !p.expect(TokenLParen) {
		return false
	}
	for !p.curIs(TokenRParen) {
		if p.curIs(TokenEOF) {
			p.errorf(m.Line, "missing ) in parameter list")
			return false
		}
		param := Param{Line: p.curToken.Line}

		if p.curIs(TokenEllipsis) {
			p.advance()
			if !p.curIs(TokenIdentifier) {
				p.errorf(param.Line, "missing name after ...")
				return false
			}
			param.Name = p.curToken.Literal
			p.advance()
			if p.curIs(TokenColon) {
				p.advance()
				param.Type = p.parseTypeExpr()
			}
			m.Variadic = true
			m.Params = append(m.Params, param)
			if !p.curIs(TokenRParen) {
				p.errorf(param.Line, "... argument must be last")
				return false
			}
			break
		}

		if allowMember && p.curIs(TokenThis) {
			p.advance()
			if !p.expect(TokenDot) {
				return false
			}
			if !p.curIs(TokenIdentifier) {
				p.errorf(param.Line, "missing member name after this.")
				return false
			}
			param.Name = p.curToken.Literal
			param.IsMember = true
			p.advance()
		} else if p.curIs(TokenIdentifier) {
			param.Name = p.curToken.Literal
			p.advance()
			if p.curIs(TokenColon) {
				p.advance()
				param.Type = p.parseTypeExpr()
			}
		} else {
			p.errorf(param.Line, "invalid parameter: %s", p.curToken.Literal)
			return false
		}

		if p.curIs(TokenAssign) {
			p.advance()
			param.Default = p.parseExpr()
		}

		m.Params = append(m.Params, param)
		if p.curIs(TokenComma) {
			p.advance()
		} else if !p.curIs(TokenRParen) {
			p.errorf(param.Line, "expected , or ) in parameter list")
			return false
		}
	}
	p.advance() // )
	return true
}

// parseTypeExpr parses a type annotation.
func (p *Parser) parseTypeExpr() *TypeExpr {
	line := p.curToken.Line
	switch p.curToken.Type {
	case TokenIdentifier:
		name := p.curToken.Literal
		p.advance()
		t := &TypeExpr{Name: name, Line: line}
		if (name == "list" || name == "dict") && p.curIs(TokenLt) {
			p.advance()
			t.Elem = p.parseTypeExpr()
			if !p.curIs(TokenGt) {
				p.errorf(line, "missing > in %s type", name)
				return t
			}
			p.advance()
		}
		if name == "func" && p.curIs(TokenLParen) {
			p.advance()
			for !p.curIs(TokenRParen) && !p.curIs(TokenEOF) {
				if p.curIs(TokenEllipsis) {
					t.Variadic = true
					p.advance()
					continue
				}
				t.Params = append(t.Params, p.parseTypeExpr())
				if p.curIs(TokenComma) {
					p.advance()
				}
			}
			p.expect(TokenRParen)
			if p.curIs(TokenColon) {
				p.advance()
				t.Return = p.parseTypeExpr()
			}
		}
		return t
	default:
		p.errorf(line, "expected a type, got %s", p.curToken.Type)
		p.advance()
		return &TypeExpr{Name: "any", Line: line}
	}
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// parseBlock parses statements until one of the terminator tokens.
func (p *Parser) parseBlock(terminators ...TokenType) []Stmt {
	var stmts []Stmt
	for {
		p.skipNewlines()
		if p.curIs(TokenEOF) {
			return stmts
		}
		for _, t := range terminators {
			if p.curIs(t) {
				return stmts
			}
		}
		stmt := p.parseStmt()
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
}

// parseStmt parses one statement.
func (p *Parser) parseStmt() Stmt {
	switch p.curToken.Type {
	case TokenVar, TokenFinal, TokenConst:
		return p.parseVarDecl()
	case TokenReturn:
		return p.parseReturn()
	case TokenIf:
		return p.parseIf()
	case TokenWhile:
		return p.parseWhile()
	case TokenTry:
		return p.parseTry()
	case TokenThrow:
		return p.parseThrow()
	case TokenEcho:
		return p.parseEcho()
	case TokenLockvar, TokenUnlockvar:
		return p.parseLock()
	case TokenDefcompile:
		return p.parseDefcompile()
	default:
		return p.parseExprOrAssign()
	}
}

func (p *Parser) parseVarDecl() Stmt {
	line := p.curToken.Line
	isConst := p.curIs(TokenConst) || p.curIs(TokenFinal)
	p.advance()

	if !p.curIs(TokenIdentifier) {
		p.errorf(line, "missing variable name")
		p.skipLine()
		return nil
	}
	s := &VarDeclStmt{Name: p.curToken.Literal, Const: isConst, Line: line}
	p.advance()

	if p.curIs(TokenColon) {
		p.advance()
		s.Type = p.parseTypeExpr()
	}
	if p.curIs(TokenAssign) {
		p.advance()
		s.Init = p.parseExpr()
	}
	if s.Type == nil && s.Init == nil {
		p.errorf(line, "type or initialization required for %s", s.Name)
		p.skipLine()
		return nil
	}
	p.endOfStatement()
	return s
}

func (p *Parser) parseReturn() Stmt {
	s := &ReturnStmt{Line: p.curToken.Line}
	p.advance()
	if !p.curIs(TokenNewline) && !p.curIs(TokenEOF) {
		s.Value = p.parseExpr()
	}
	p.endOfStatement()
	return s
}

func (p *Parser) parseIf() Stmt {
	s := &IfStmt{Line: p.curToken.Line}
	p.advance()
	s.Cond = p.parseExpr()
	p.endOfStatement()

	s.Then = p.parseBlock(TokenElseif, TokenElse, TokenEndif)
	for p.curIs(TokenElseif) {
		arm := ElseIf{Line: p.curToken.Line}
		p.advance()
		arm.Cond = p.parseExpr()
		p.endOfStatement()
		arm.Body = p.parseBlock(TokenElseif, TokenElse, TokenEndif)
		s.ElseIfs = append(s.ElseIfs, arm)
	}
	if p.curIs(TokenElse) {
		p.advance()
		p.endOfStatement()
		s.Else = p.parseBlock(TokenEndif)
	}
	p.expect(TokenEndif)
	p.endOfStatement()
	return s
}

func (p *Parser) parseWhile() Stmt {
	s := &WhileStmt{Line: p.curToken.Line}
	p.advance()
	s.Cond = p.parseExpr()
	p.endOfStatement()
	s.Body = p.parseBlock(TokenEndwhile)
	p.expect(TokenEndwhile)
	p.endOfStatement()
	return s
}

func (p *Parser) parseTry() Stmt {
	s := &TryStmt{Line: p.curToken.Line}
	p.advance()
	p.endOfStatement()

	s.Body = p.parseBlock(TokenCatch, TokenFinally, TokenEndtry)
	if p.curIs(TokenCatch) {
		s.HasCatch = true
		p.advance()
		if p.curIs(TokenIdentifier) {
			s.CatchVar = p.curToken.Literal
			p.advance()
		}
		p.endOfStatement()
		s.Catch = p.parseBlock(TokenFinally, TokenEndtry)
	}
	if p.curIs(TokenFinally) {
		p.advance()
		p.endOfStatement()
		s.Finally = p.parseBlock(TokenEndtry)
	}
	p.expect(TokenEndtry)
	p.endOfStatement()
	return s
}

func (p *Parser) parseThrow() Stmt {
	s := &ThrowStmt{Line: p.curToken.Line}
	p.advance()
	s.Value = p.parseExpr()
	p.endOfStatement()
	return s
}

func (p *Parser) parseEcho() Stmt {
	s := &EchoStmt{Line: p.curToken.Line}
	p.advance()
	s.Args = append(s.Args, p.parseExpr())
	// further arguments are space separated; a comma between them is allowed
	for !p.curIs(TokenNewline) && !p.curIs(TokenEOF) {
		if p.curIs(TokenComma) {
			p.advance()
		}
		s.Args = append(s.Args, p.parseExpr())
	}
	p.endOfStatement()
	return s
}

func (p *Parser) parseLock() Stmt {
	s := &LockStmt{Lock: p.curIs(TokenLockvar), Line: p.curToken.Line}
	p.advance()
	s.Target = p.parseExpr()
	p.endOfStatement()
	return s
}

func (p *Parser) parseDefcompile() Stmt {
	s := &DefcompileStmt{Line: p.curToken.Line}
	p.advance()
	if p.curIs(TokenIdentifier) {
		s.Class = p.curToken.Literal
		p.advance()
		if p.curIs(TokenDot) {
			p.advance()
			if !p.curIs(TokenIdentifier) {
				p.errorf(s.Line, "missing method name after %s.", s.Class)
				p.skipLine()
				return nil
			}
			s.Method = p.curToken.Literal
			p.advance()
		}
	}
	p.endOfStatement()
	return s
}

func (p *Parser) parseExprOrAssign() Stmt {
	line := p.curToken.Line
	expr := p.parseExpr()
	if expr == nil {
		p.skipLine()
		return nil
	}
	switch p.curToken.Type {
	case TokenAssign, TokenPlusEq, TokenMinusEq, TokenConcatEq:
		op := p.curToken.Type
		p.advance()
		value := p.parseExpr()
		p.endOfStatement()
		return &AssignStmt{Target: expr, Op: op, Value: value, Line: line}
	default:
		p.endOfStatement()
		return &ExprStmt{X: expr, Line: line}
	}
}

// ---------------------------------------------------------------------------
// Expressions (precedence climbing)
// ---------------------------------------------------------------------------

func (p *Parser) parseExpr() Expr {
	return p.parseOr()
}

func (p *Parser) parseOr() Expr {
	expr := p.parseAnd()
	for p.curIs(TokenOr) {
		line := p.curToken.Line
		p.advance()
		expr = &BinaryExpr{Op: TokenOr, L: expr, R: p.parseAnd(), Line: line}
	}
	return expr
}

func (p *Parser) parseAnd() Expr {
	expr := p.parseComparison()
	for p.curIs(TokenAnd) {
		line := p.curToken.Line
		p.advance()
		expr = &BinaryExpr{Op: TokenAnd, L: expr, R: p.parseComparison(), Line: line}
	}
	return expr
}

func (p *Parser) parseComparison() Expr {
	expr := p.parseConcat()
	switch p.curToken.Type {
	case TokenEq, TokenNe, TokenLt, TokenLe, TokenGt, TokenGe, TokenIs, TokenIsnot:
		op := p.curToken.Type
		line := p.curToken.Line
		p.advance()
		return &BinaryExpr{Op: op, L: expr, R: p.parseConcat(), Line: line}
	}
	return expr
}

func (p *Parser) parseConcat() Expr {
	expr := p.parseAdditive()
	for p.curIs(TokenConcat) {
		line := p.curToken.Line
		p.advance()
		expr = &BinaryExpr{Op: TokenConcat, L: expr, R: p.parseAdditive(), Line: line}
	}
	return expr
}

func (p *Parser) parseAdditive() Expr {
	expr := p.parseMultiplicative()
	for p.curIs(TokenPlus) || p.curIs(TokenMinus) {
		op := p.curToken.Type
		line := p.curToken.Line
		p.advance()
		expr = &BinaryExpr{Op: op, L: expr, R: p.parseMultiplicative(), Line: line}
	}
	return expr
}

func (p *Parser) parseMultiplicative() Expr {
	expr := p.parseUnary()
	for p.curIs(TokenStar) || p.curIs(TokenSlash) || p.curIs(TokenPercent) {
		op := p.curToken.Type
		line := p.curToken.Line
		p.advance()
		expr = &BinaryExpr{Op: op, L: expr, R: p.parseUnary(), Line: line}
	}
	return expr
}

func (p *Parser) parseUnary() Expr {
	if p.curIs(TokenBang) || p.curIs(TokenMinus) {
		op := p.curToken.Type
		line := p.curToken.Line
		p.advance()
		return &UnaryExpr{Op: op, X: p.parseUnary(), Line: line}
	}
	return p.parsePostfix()
}

// parsePostfix parses a primary expression followed by any chain of member
// accesses, index accesses, and calls.
func (p *Parser) parsePostfix() Expr {
	expr := p.parsePrimary()
	if expr == nil {
		return nil
	}
	for {
		switch p.curToken.Type {
		case TokenDot:
			line := p.curToken.Line
			p.advance()
			if !p.curIs(TokenIdentifier) && !isKeywordName(p.curToken.Type) {
				p.errorf(line, "missing name after .")
				return expr
			}
			expr = &MemberExpr{X: expr, Name: p.curToken.Literal, Line: line}
			p.advance()
		case TokenLBracket:
			line := p.curToken.Line
			p.advance()
			idx := p.parseExpr()
			p.expect(TokenRBracket)
			expr = &IndexExpr{X: expr, Index: idx, Line: line}
		case TokenLParen:
			line := p.curToken.Line
			p.advance()
			call := &CallExpr{Fn: expr, Line: line}
			for !p.curIs(TokenRParen) && !p.curIs(TokenEOF) {
				call.Args = append(call.Args, p.parseExpr())
				if p.curIs(TokenComma) {
					p.advance()
				} else {
					break
				}
			}
			p.expect(TokenRParen)
			expr = call
		default:
			return expr
		}
	}
}

func (p *Parser) parsePrimary() Expr {
	line := p.curToken.Line
	switch p.curToken.Type {
	case TokenNumber:
		lit := p.curToken.Literal
		p.advance()
		var n int64
		var err error
		if strings.HasPrefix(lit, "0x") || strings.HasPrefix(lit, "0X") {
			n, err = strconv.ParseInt(lit[2:], 16, 64)
		} else {
			n, err = strconv.ParseInt(lit, 10, 64)
		}
		if err != nil {
			p.errorf(line, "invalid number: %s", lit)
		}
		return &NumberLit{Value: n, Line: line}
	case TokenFloat:
		lit := p.curToken.Literal
		p.advance()
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			p.errorf(line, "invalid float: %s", lit)
		}
		return &FloatLit{Value: f, Line: line}
	case TokenString:
		s := p.curToken.Literal
		p.advance()
		return &StringLit{Value: s, Line: line}
	case TokenTrue:
		p.advance()
		return &BoolLit{Value: true, Line: line}
	case TokenFalse:
		p.advance()
		return &BoolLit{Value: false, Line: line}
	case TokenNull:
		p.advance()
		return &NullLit{Line: line}
	case TokenNone:
		p.advance()
		return &NoneLit{Line: line}
	case TokenThis:
		p.advance()
		return &ThisExpr{Line: line}
	case TokenSuper:
		p.advance()
		return &SuperExpr{Line: line}
	case TokenIdentifier:
		name := p.curToken.Literal
		p.advance()
		return &Ident{Name: name, Line: line}
	case TokenLParen:
		p.advance()
		expr := p.parseExpr()
		p.expect(TokenRParen)
		return expr
	case TokenLBracket:
		p.advance()
		lst := &ListLit{Line: line}
		for !p.curIs(TokenRBracket) && !p.curIs(TokenEOF) {
			lst.Elems = append(lst.Elems, p.parseExpr())
			if p.curIs(TokenComma) {
				p.advance()
			} else {
				break
			}
		}
		p.expect(TokenRBracket)
		return lst
	case TokenLBrace:
		p.advance()
		d := &DictLit{Line: line}
		for !p.curIs(TokenRBrace) && !p.curIs(TokenEOF) {
			var key string
			if p.curIs(TokenString) || p.curIs(TokenIdentifier) {
				key = p.curToken.Literal
				p.advance()
			} else {
				p.errorf(p.curToken.Line, "invalid dict key: %s", p.curToken.Literal)
				p.advance()
				continue
			}
			p.expect(TokenColon)
			d.Keys = append(d.Keys, key)
			d.Values = append(d.Values, p.parseExpr())
			if p.curIs(TokenComma) {
				p.advance()
			} else {
				break
			}
		}
		p.expect(TokenRBrace)
		return d
	default:
		p.errorf(line, "unexpected token: %s", p.curToken.Type)
		p.advance()
		return nil
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// skipLine discards tokens to the end of the current line.
func (p *Parser) skipLine() {
	for !p.curIs(TokenNewline) && !p.curIs(TokenEOF) {
		p.advance()
	}
	if p.curIs(TokenNewline) {
		p.advance()
	}
}

// skipToLineAfter discards tokens until just past the given token type.
func (p *Parser) skipToLineAfter(t TokenType) {
	for !p.curIs(t) && !p.curIs(TokenEOF) {
		p.advance()
	}
	if p.curIs(t) {
		p.advance()
	}
	p.skipLine()
}

// sliceSource returns the source text between two 1-based line numbers,
// inclusive.
func (p *Parser) sliceSource(startLine, endLine int) string {
	if startLine < 1 {
		startLine = 1
	}
	if endLine > len(p.srcLines) {
		endLine = len(p.srcLines)
	}
	if startLine > endLine {
		return ""
	}
	return strings.Join(p.srcLines[startLine-1:endLine], "\n")
}

func declKind(d *ClassDecl) string {
	if d.IsInterface {
		return "interface"
	}
	return "class"
}

func storageKind(static bool) string {
	if static {
		return "class"
	}
	return "object"
}

func endKeyword(d *ClassDecl) TokenType {
	if d.IsInterface {
		return TokenEndinterface
	}
	return TokenEndclass
}

func wrongEndKeyword(d *ClassDecl) TokenType {
	if d.IsInterface {
		return TokenEndclass
	}
	return TokenEndinterface
}

// isKeywordName reports whether a keyword token may be used as a member name
// after ".". Method and member names never collide with statement keywords
// in that position, so allow the common ones.
func isKeywordName(t TokenType) bool {
	switch t {
	case TokenIs, TokenIsnot:
		return false
	default:
		_, ok := tokenNames[t]
		return ok && t > TokenEllipsis
	}
}
