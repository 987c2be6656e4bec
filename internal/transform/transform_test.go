package transform

import (
	"testing"

	"github.com/saruga/primec/internal/ast"
)

func TestImplicitI32(t *testing.T) {
	lit := &ast.Expr{Kind: ast.ExprLiteral}
	p := &ast.Program{Definitions: []*ast.Definition{{Return: lit}}}
	Apply(p, Options{ImplicitI32: true})
	if lit.IntWidth != 32 || !lit.IntSigned {
		t.Fatalf("expected implicit i32 tagging, got width=%d signed=%v", lit.IntWidth, lit.IntSigned)
	}
}

func TestImplicitUTF8(t *testing.T) {
	str := &ast.Expr{Kind: ast.ExprStringLiteral}
	p := &ast.Program{Definitions: []*ast.Definition{{Return: str}}}
	Apply(p, Options{ImplicitUTF8: true})
	if str.StringSuffix != ast.SuffixUTF8 {
		t.Fatalf("expected implicit utf8 suffix")
	}
}

func TestExplicitSuffixUntouched(t *testing.T) {
	str := &ast.Expr{Kind: ast.ExprStringLiteral, StringSuffix: ast.SuffixASCII, HasExplicitSuffix: true}
	p := &ast.Program{Definitions: []*ast.Definition{{Return: str}}}
	Apply(p, Options{ImplicitUTF8: true})
	if str.StringSuffix != ast.SuffixASCII {
		t.Fatalf("expected explicit ascii suffix to be preserved")
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := Default()
	if !opts.ImplicitUTF8 || opts.ImplicitI32 {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
}
