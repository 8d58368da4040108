package compiler

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for Starling source
// ---------------------------------------------------------------------------

// Lexer tokenizes Starling source code. Starling is line-oriented, so
// newlines are significant and produced as TokenNewline.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
	line    int  // current line (1-based)
	col     int  // current column (1-based)
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
		l.pos = l.readPos
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.pos = l.readPos
	l.readPos += size
	l.ch = r
	if r == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

// skipSpace skips spaces and tabs, but not newlines.
func (l *Lexer) skipSpace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
		l.readChar()
	}
}

// skipComment skips a "#" comment to the end of the line.
func (l *Lexer) skipComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() Token {
	l.skipSpace()

	if l.ch == '#' {
		l.skipComment()
	}

	tok := Token{Line: l.line, Col: l.col}

	switch l.ch {
	case 0:
		tok.Type = TokenEOF
	case '\n':
		tok.Type = TokenNewline
		tok.Literal = "\n"
		tok.Line = l.line - 1 // the newline terminates the previous line
		l.readChar()
		return tok
	case '+':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type, tok.Literal = TokenPlusEq, "+="
		} else {
			tok.Type, tok.Literal = TokenPlus, "+"
		}
	case '-':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type, tok.Literal = TokenMinusEq, "-="
		} else {
			tok.Type, tok.Literal = TokenMinus, "-"
		}
	case '*':
		tok.Type, tok.Literal = TokenStar, "*"
	case '/':
		tok.Type, tok.Literal = TokenSlash, "/"
	case '%':
		tok.Type, tok.Literal = TokenPercent, "%"
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type, tok.Literal = TokenEq, "=="
		} else {
			tok.Type, tok.Literal = TokenAssign, "="
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type, tok.Literal = TokenNe, "!="
		} else {
			tok.Type, tok.Literal = TokenBang, "!"
		}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type, tok.Literal = TokenLe, "<="
		} else {
			tok.Type, tok.Literal = TokenLt, "<"
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type, tok.Literal = TokenGe, ">="
		} else {
			tok.Type, tok.Literal = TokenGt, ">"
		}
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			tok.Type, tok.Literal = TokenAnd, "&&"
		} else {
			tok.Type, tok.Literal = TokenError, "&"
		}
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			tok.Type, tok.Literal = TokenOr, "||"
		} else {
			tok.Type, tok.Literal = TokenError, "|"
		}
	case '(':
		tok.Type, tok.Literal = TokenLParen, "("
	case ')':
		tok.Type, tok.Literal = TokenRParen, ")"
	case '[':
		tok.Type, tok.Literal = TokenLBracket, "["
	case ']':
		tok.Type, tok.Literal = TokenRBracket, "]"
	case '{':
		tok.Type, tok.Literal = TokenLBrace, "{"
	case '}':
		tok.Type, tok.Literal = TokenRBrace, "}"
	case ',':
		tok.Type, tok.Literal = TokenComma, ","
	case ':':
		tok.Type, tok.Literal = TokenColon, ":"
	case '.':
		if l.peekChar() == '.' {
			l.readChar()
			if l.peekChar() == '.' {
				l.readChar()
				tok.Type, tok.Literal = TokenEllipsis, "..."
			} else if l.peekChar() == '=' {
				l.readChar()
				tok.Type, tok.Literal = TokenConcatEq, "..="
			} else {
				tok.Type, tok.Literal = TokenConcat, ".."
			}
		} else {
			tok.Type, tok.Literal = TokenDot, "."
		}
	case '\'', '"':
		return l.readString(l.ch)
	default:
		if isIdentStart(l.ch) {
			return l.readIdentifier()
		}
		if unicode.IsDigit(l.ch) {
			return l.readNumber()
		}
		tok.Type = TokenError
		tok.Literal = string(l.ch)
	}

	l.readChar()
	return tok
}

// readIdentifier reads an identifier or keyword.
func (l *Lexer) readIdentifier() Token {
	tok := Token{Line: l.line, Col: l.col}
	start := l.pos
	for isIdentPart(l.ch) {
		l.readChar()
	}
	tok.Literal = l.input[start:l.pos]
	tok.Type = LookupIdent(tok.Literal)
	return tok
}

// readNumber reads an integer or float literal.
func (l *Lexer) readNumber() Token {
	tok := Token{Line: l.line, Col: l.col}
	start := l.pos

	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		l.readChar()
		l.readChar()
		for isHexDigit(l.ch) {
			l.readChar()
		}
		tok.Type = TokenNumber
		tok.Literal = l.input[start:l.pos]
		return tok
	}

	isFloat := false
	for unicode.IsDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && unicode.IsDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for unicode.IsDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if unicode.IsDigit(next) || next == '+' || next == '-' {
			isFloat = true
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for unicode.IsDigit(l.ch) {
				l.readChar()
			}
		}
	}

	if isFloat {
		tok.Type = TokenFloat
	} else {
		tok.Type = TokenNumber
	}
	tok.Literal = l.input[start:l.pos]
	return tok
}

// readString reads a string literal delimited by "quote". Double-quoted
// strings process backslash escapes; single-quoted strings are literal
// except for doubled quotes.
func (l *Lexer) readString(quote rune) Token {
	tok := Token{Type: TokenString, Line: l.line, Col: l.col}
	l.readChar() // consume opening quote

	var sb strings.Builder
	for {
		if l.ch == 0 || l.ch == '\n' {
			tok.Type = TokenError
			tok.Literal = "unterminated string"
			return tok
		}
		if l.ch == quote {
			if quote == '\'' && l.peekChar() == '\'' {
				// doubled single quote is a literal quote
				sb.WriteRune('\'')
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // consume closing quote
			break
		}
		if quote == '"' && l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			case '\\':
				sb.WriteRune('\\')
			case '"':
				sb.WriteRune('"')
			default:
				sb.WriteRune(l.ch)
			}
			l.readChar()
			continue
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}

	tok.Literal = sb.String()
	return tok
}

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isIdentPart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch) || unicode.IsDigit(ch)
}

func isHexDigit(ch rune) bool {
	return unicode.IsDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
