package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the Starling lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError
	TokenNewline

	// Literals
	TokenNumber     // 42, 0xFF
	TokenFloat      // 3.14, 1.5e10
	TokenString     // 'hello', "hello"
	TokenIdentifier // foo, Bar, _hidden

	// Operators
	TokenPlus     // +
	TokenMinus    // -
	TokenStar     // *
	TokenSlash    // /
	TokenPercent  // %
	TokenConcat   // ..
	TokenEq       // ==
	TokenNe       // !=
	TokenLt       // <
	TokenLe       // <=
	TokenGt       // >
	TokenGe       // >=
	TokenAnd      // &&
	TokenOr       // ||
	TokenBang     // !
	TokenAssign   // =
	TokenPlusEq   // +=
	TokenMinusEq  // -=
	TokenConcatEq // ..=

	// Delimiters
	TokenLParen   // (
	TokenRParen   // )
	TokenLBracket // [
	TokenRBracket // ]
	TokenLBrace   // {
	TokenRBrace   // }
	TokenComma    // ,
	TokenColon    // :
	TokenDot      // .
	TokenEllipsis // ...

	// Keywords
	TokenVar
	TokenFinal
	TokenConst
	TokenDef
	TokenEnddef
	TokenClass
	TokenEndclass
	TokenInterface
	TokenEndinterface
	TokenExtends
	TokenImplements
	TokenAbstract
	TokenStatic
	TokenPublic
	TokenReturn
	TokenIf
	TokenElse
	TokenElseif
	TokenEndif
	TokenWhile
	TokenEndwhile
	TokenTry
	TokenCatch
	TokenFinally
	TokenEndtry
	TokenThrow
	TokenThis
	TokenSuper
	TokenTrue
	TokenFalse
	TokenNull
	TokenNone
	TokenIs
	TokenIsnot
	TokenEcho
	TokenLockvar
	TokenUnlockvar
	TokenDefcompile
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenNewline:    "NEWLINE",
	TokenNumber:     "NUMBER",
	TokenFloat:      "FLOAT",
	TokenString:     "STRING",
	TokenIdentifier: "IDENTIFIER",
	TokenPlus:       "+",
	TokenMinus:      "-",
	TokenStar:       "*",
	TokenSlash:      "/",
	TokenPercent:    "%",
	TokenConcat:     "..",
	TokenEq:         "==",
	TokenNe:         "!=",
	TokenLt:         "<",
	TokenLe:         "<=",
	TokenGt:         ">",
	TokenGe:         ">=",
	TokenAnd:        "&&",
	TokenOr:         "||",
	TokenBang:       "!",
	TokenAssign:     "=",
	TokenPlusEq:     "+=",
	TokenMinusEq:    "-=",
	TokenConcatEq:   "..=",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenLBracket:   "[",
	TokenRBracket:   "]",
	TokenLBrace:     "{",
	TokenRBrace:     "}",
	TokenComma:      ",",
	TokenColon:      ":",
	TokenDot:        ".",
	TokenEllipsis:   "...",

	TokenVar:          "var",
	TokenFinal:        "final",
	TokenConst:        "const",
	TokenDef:          "def",
	TokenEnddef:       "enddef",
	TokenClass:        "class",
	TokenEndclass:     "endclass",
	TokenInterface:    "interface",
	TokenEndinterface: "endinterface",
	TokenExtends:      "extends",
	TokenImplements:   "implements",
	TokenAbstract:     "abstract",
	TokenStatic:       "static",
	TokenPublic:       "public",
	TokenReturn:       "return",
	TokenIf:           "if",
	TokenElse:         "else",
	TokenElseif:       "elseif",
	TokenEndif:        "endif",
	TokenWhile:        "while",
	TokenEndwhile:     "endwhile",
	TokenTry:          "try",
	TokenCatch:        "catch",
	TokenFinally:      "finally",
	TokenEndtry:       "endtry",
	TokenThrow:        "throw",
	TokenThis:         "this",
	TokenSuper:        "super",
	TokenTrue:         "true",
	TokenFalse:        "false",
	TokenNull:         "null",
	TokenNone:         "none",
	TokenIs:           "is",
	TokenIsnot:        "isnot",
	TokenEcho:         "echo",
	TokenLockvar:      "lockvar",
	TokenUnlockvar:    "unlockvar",
	TokenDefcompile:   "defcompile",
}

// keywords maps identifier spellings to keyword token types.
var keywords = map[string]TokenType{
	"var":          TokenVar,
	"final":        TokenFinal,
	"const":        TokenConst,
	"def":          TokenDef,
	"enddef":       TokenEnddef,
	"class":        TokenClass,
	"endclass":     TokenEndclass,
	"interface":    TokenInterface,
	"endinterface": TokenEndinterface,
	"extends":      TokenExtends,
	"implements":   TokenImplements,
	"abstract":     TokenAbstract,
	"static":       TokenStatic,
	"public":       TokenPublic,
	"return":       TokenReturn,
	"if":           TokenIf,
	"else":         TokenElse,
	"elseif":       TokenElseif,
	"endif":        TokenEndif,
	"while":        TokenWhile,
	"endwhile":     TokenEndwhile,
	"try":          TokenTry,
	"catch":        TokenCatch,
	"finally":      TokenFinally,
	"endtry":       TokenEndtry,
	"throw":        TokenThrow,
	"this":         TokenThis,
	"super":        TokenSuper,
	"true":         TokenTrue,
	"false":        TokenFalse,
	"null":         TokenNull,
	"none":         TokenNone,
	"is":           TokenIs,
	"isnot":        TokenIsnot,
	"echo":         TokenEcho,
	"lockvar":      TokenLockvar,
	"unlockvar":    TokenUnlockvar,
	"defcompile":   TokenDefcompile,
}

// String returns a human-readable name for the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is a single lexical token with its source position.
type Token struct {
	Type    TokenType
	Literal string
	Line    int // 1-based
	Col     int // 1-based
}

// String returns a debug representation of the token.
func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d:%d", t.Type, t.Literal, t.Line, t.Col)
}

// LookupIdent returns the keyword token type for an identifier, or
// TokenIdentifier if it is not a keyword.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return TokenIdentifier
}
