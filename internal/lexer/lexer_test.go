package lexer

import "testing"

func expectKind(t *testing.T, input string, expected TokenKind) Token {
	t.Helper()
	l := New(input)
	tok := l.Next()
	if tok.Kind != expected {
		t.Fatalf("input %q: expected %v, got %v (%s)", input, expected, tok.Kind, tok.Text)
	}
	return tok
}

func TestPunctuationAndOperators(t *testing.T) {
	cases := []struct {
		input string
		kind  TokenKind
	}{
		{"[", TokLBracket}, {"]", TokRBracket}, {"(", TokLParen}, {")", TokRParen},
		{"{", TokLBrace}, {"}", TokRBrace}, {"<", TokLAngle}, {">", TokRAngle},
		{",", TokComma}, {";", TokSemi}, {".", TokDot}, {":", TokColon},
		{"&", TokAmp}, {"*", TokStar}, {"=", TokEquals},
		{"==", TokEqEq}, {"!=", TokBangEq}, {"<=", TokLtEq}, {">=", TokGtEq},
		{"&&", TokAndAnd}, {"||", TokOrOr}, {"!", TokBang},
		{"++", TokPlusPlus}, {"--", TokMinusMinus},
	}
	for _, c := range cases {
		expectKind(t, c.input, c.kind)
	}
}

func TestIdentifiersAndPaths(t *testing.T) {
	tok := expectKind(t, "main", TokIdent)
	if tok.Text != "main" {
		t.Fatalf("expected main, got %q", tok.Text)
	}
	tok = expectKind(t, "/lib/sub/greet", TokIdent)
	if tok.Text != "/lib/sub/greet" {
		t.Fatalf("expected /lib/sub/greet, got %q", tok.Text)
	}
}

func TestIntegerLiterals(t *testing.T) {
	cases := []struct {
		input  string
		text   string
		suffix IntSuffix
	}{
		{"42", "42", IntSuffixNone},
		{"1,000", "1000", IntSuffixNone},
		{"7i32", "7", IntSuffixI32},
		{"7i64", "7", IntSuffixI64},
		{"7u64", "7", IntSuffixU64},
		{"0xFF", "0xFF", IntSuffixNone},
	}
	for _, c := range cases {
		tok := expectKind(t, c.input, TokInt)
		if tok.Text != c.text || tok.IntSuffix != c.suffix {
			t.Errorf("input %q: got text=%q suffix=%v", c.input, tok.Text, tok.IntSuffix)
		}
	}
}

func TestFloatLiterals(t *testing.T) {
	cases := []struct {
		input  string
		suffix FloatSuffix
	}{
		{"1.5", FloatSuffixNone},
		{"1.5f32", FloatSuffixF32},
		{"1.5f64", FloatSuffixF64},
		{"1.5f", FloatSuffixF32},
		{"1e10", FloatSuffixNone},
		{"1.5e-3", FloatSuffixNone},
	}
	for _, c := range cases {
		tok := expectKind(t, c.input, TokFloat)
		if tok.FloatSuffix != c.suffix {
			t.Errorf("input %q: got suffix=%v", c.input, tok.FloatSuffix)
		}
	}
}

func TestStringLiterals(t *testing.T) {
	tok := expectKind(t, `"hello\nworld"utf8`, TokString)
	if tok.Text != "hello\nworld" || tok.StringSuffix != StringSuffixUTF8 || !tok.HasSuffix {
		t.Fatalf("unexpected token: %+v", tok)
	}

	tok = expectKind(t, `'raw\nstays'`, TokString)
	if tok.Text != `raw\nstays` || !tok.SingleQuoted {
		t.Fatalf("single-quoted escapes should be literal, got %+v", tok)
	}

	tok = expectKind(t, `"plain"`, TokString)
	if tok.HasSuffix {
		t.Fatalf("expected no suffix, got %v", tok.StringSuffix)
	}
}

func TestUnterminatedStringIsError(t *testing.T) {
	l := New(`"unterminated`)
	tok := l.Next()
	if tok.Kind != TokError {
		t.Fatalf("expected error, got %v", tok.Kind)
	}
}

func TestUnknownEscapeIsError(t *testing.T) {
	l := New(`"bad\qescape"`)
	tok := l.Next()
	if tok.Kind != TokError {
		t.Fatalf("expected error, got %v", tok.Kind)
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	l := New("// line comment\n/* block */ 42")
	tok := l.Next()
	if tok.Kind != TokInt || tok.Text != "42" {
		t.Fatalf("expected int 42 after comments, got %+v", tok)
	}
}

func TestTokenizeStopsAtEOF(t *testing.T) {
	toks, err := New("foo(1i32)").Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[len(toks)-1].Kind != TokEOF {
		t.Fatalf("expected trailing EOF token")
	}
}
