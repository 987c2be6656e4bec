package validator

import (
	"testing"

	"github.com/saruga/primec/internal/ast"
	"github.com/saruga/primec/internal/effects"
)

func intLit(v int64, width int8, signed bool) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprLiteral, IntValue: v, IntWidth: width, IntSigned: signed}
}

func TestValidateSimpleReturn(t *testing.T) {
	def := &ast.Definition{FullPath: "/main", Return: intLit(1, 32, true)}
	p := &ast.Program{Definitions: []*ast.Definition{def}}
	if err := Validate(p, "/main", effects.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateUnknownEntry(t *testing.T) {
	p := &ast.Program{Definitions: []*ast.Definition{{FullPath: "/main"}}}
	if err := Validate(p, "/other", effects.New()); err == nil {
		t.Fatalf("expected unknown entry error")
	}
}

func TestValidateDuplicateDefinition(t *testing.T) {
	p := &ast.Program{Definitions: []*ast.Definition{
		{FullPath: "/main"}, {FullPath: "/main"},
	}}
	if err := Validate(p, "/main", effects.New()); err == nil {
		t.Fatalf("expected duplicate definition error")
	}
}

func TestValidateMixedSignedUnsignedRejected(t *testing.T) {
	cmp := &ast.Expr{
		Kind: ast.ExprCall, Callee: "greater_than",
		Args: []*ast.Expr{intLit(1, 64, true), intLit(2, 64, false)},
	}
	def := &ast.Definition{FullPath: "/main", Return: cmp}
	p := &ast.Program{Definitions: []*ast.Definition{def}}
	err := Validate(p, "/main", effects.New())
	if err == nil {
		t.Fatalf("expected mixed signed/unsigned error")
	}
}

func TestValidatePrintRequiresEffect(t *testing.T) {
	str := &ast.Expr{Kind: ast.ExprStringLiteral, StringValue: "hi"}
	printCall := &ast.Expr{Kind: ast.ExprCall, Callee: "print_line", Args: []*ast.Expr{str}}
	def := &ast.Definition{FullPath: "/main", Statements: []*ast.Expr{printCall}}
	p := &ast.Program{Definitions: []*ast.Definition{def}}

	if err := Validate(p, "/main", effects.New()); err == nil {
		t.Fatalf("expected missing io_out effect error")
	}
	if err := Validate(p, "/main", effects.New("io_out")); err != nil {
		t.Fatalf("unexpected error with io_out active: %v", err)
	}
}

func TestValidateNestedEffectsMustBeSubset(t *testing.T) {
	str := &ast.Expr{Kind: ast.ExprStringLiteral, StringValue: "hi"}
	printCall := &ast.Expr{
		Kind: ast.ExprCall, Callee: "print_line", Args: []*ast.Expr{str},
		Transforms: []*ast.Transform{{Name: "effects", TemplateArgs: []string{"io_err"}}},
	}
	def := &ast.Definition{
		FullPath:   "/main",
		Transforms: []*ast.Transform{{Name: "effects", TemplateArgs: []string{"io_out"}}},
		Statements: []*ast.Expr{printCall},
	}
	p := &ast.Program{Definitions: []*ast.Definition{def}}
	if err := Validate(p, "/main", effects.New()); err == nil {
		t.Fatalf("expected nested effect scope to fail (io_err not subset of io_out)")
	}
}

func TestValidateLocationRequiresLocalBinding(t *testing.T) {
	badLocation := &ast.Expr{
		Kind: ast.ExprCall, Callee: "location",
		Args: []*ast.Expr{{Kind: ast.ExprCall, Callee: "plus", Args: []*ast.Expr{intLit(1, 32, true), intLit(2, 32, true)}}},
	}
	def := &ast.Definition{FullPath: "/main", Return: badLocation}
	p := &ast.Program{Definitions: []*ast.Definition{def}}
	if err := Validate(p, "/main", effects.New()); err == nil {
		t.Fatalf("expected location() on a computed expression to fail")
	}
}

func TestValidateSoftwareNumericRejected(t *testing.T) {
	param := &ast.Expr{Kind: ast.ExprName, Name: "x", Transforms: []*ast.Transform{{Name: "type", TemplateArgs: []string{"decimal"}}}}
	def := &ast.Definition{FullPath: "/main", Params: []*ast.Expr{param}, Return: intLit(1, 32, true)}
	p := &ast.Program{Definitions: []*ast.Definition{def}}
	if err := Validate(p, "/main", effects.New()); err == nil {
		t.Fatalf("expected software numeric type rejection")
	}
}
