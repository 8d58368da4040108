package compiler

import "testing"

func TestLexer_TokenStream(t *testing.T) {
	input := "var x: number = 42\nx ..= 'hi'\n"
	want := []struct {
		typ TokenType
		lit string
	}{
		{TokenVar, "var"},
		{TokenIdentifier, "x"},
		{TokenColon, ":"},
		{TokenIdentifier, "number"},
		{TokenAssign, "="},
		{TokenNumber, "42"},
		{TokenNewline, "\n"},
		{TokenIdentifier, "x"},
		{TokenConcatEq, "..="},
		{TokenString, "hi"},
		{TokenNewline, "\n"},
		{TokenEOF, ""},
	}
	l := NewLexer(input)
	for i, w := range want {
		tok := l.NextToken()
		if tok.Type != w.typ {
			t.Fatalf("token %d: type = %v, want %v (literal %q)", i, tok.Type, w.typ, tok.Literal)
		}
		if tok.Literal != w.lit {
			t.Errorf("token %d: literal = %q, want %q", i, tok.Literal, w.lit)
		}
	}
}

func TestLexer_KeywordsVsIdentifiers(t *testing.T) {
	l := NewLexer("class classy endclass Endclass")
	types := []TokenType{TokenClass, TokenIdentifier, TokenEndclass, TokenIdentifier}
	for i, want := range types {
		tok := l.NextToken()
		if tok.Type != want {
			t.Errorf("token %d: type = %v, want %v", i, tok.Type, want)
		}
	}
}

func TestLexer_Operators(t *testing.T) {
	l := NewLexer("== != <= >= .. ... += -= && || is isnot")
	types := []TokenType{
		TokenEq, TokenNe, TokenLe, TokenGe, TokenConcat, TokenEllipsis,
		TokenPlusEq, TokenMinusEq, TokenAnd, TokenOr, TokenIs, TokenIsnot,
	}
	for i, want := range types {
		tok := l.NextToken()
		if tok.Type != want {
			t.Errorf("token %d: type = %v, want %v (literal %q)", i, tok.Type, want, tok.Literal)
		}
	}
}

func TestLexer_Strings(t *testing.T) {
	l := NewLexer(`'it''s' "tab\there"`)
	tok := l.NextToken()
	if tok.Type != TokenString || tok.Literal != "it's" {
		t.Errorf("single-quoted: %v %q", tok.Type, tok.Literal)
	}
	tok = l.NextToken()
	if tok.Type != TokenString || tok.Literal != "tab\there" {
		t.Errorf("double-quoted: %v %q", tok.Type, tok.Literal)
	}
}

func TestLexer_NumbersAndFloats(t *testing.T) {
	l := NewLexer("7 0x1F 3.14 1.5e2")
	want := []struct {
		typ TokenType
		lit string
	}{
		{TokenNumber, "7"},
		{TokenNumber, "0x1F"},
		{TokenFloat, "3.14"},
		{TokenFloat, "1.5e2"},
	}
	for i, w := range want {
		tok := l.NextToken()
		if tok.Type != w.typ || tok.Literal != w.lit {
			t.Errorf("token %d: got %v %q, want %v %q", i, tok.Type, tok.Literal, w.typ, w.lit)
		}
	}
}

func TestLexer_CommentsSkipped(t *testing.T) {
	l := NewLexer("x # trailing comment\ny")
	tok := l.NextToken()
	if tok.Type != TokenIdentifier || tok.Literal != "x" {
		t.Fatalf("got %v %q", tok.Type, tok.Literal)
	}
	if tok = l.NextToken(); tok.Type != TokenNewline {
		t.Fatalf("comment should end at the newline, got %v", tok.Type)
	}
	if tok = l.NextToken(); tok.Literal != "y" {
		t.Errorf("got %q, want y", tok.Literal)
	}
}

func TestLexer_LineTracking(t *testing.T) {
	l := NewLexer("a\nb\nc")
	for i, wantLine := range []int{1, 1, 2, 2, 3} {
		tok := l.NextToken()
		if tok.Line != wantLine {
			t.Errorf("token %d (%q): line = %d, want %d", i, tok.Literal, tok.Line, wantLine)
		}
	}
}
