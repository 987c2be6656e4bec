package lower

import (
	"testing"

	"github.com/saruga/primec/internal/ast"
	"github.com/saruga/primec/internal/ir"
)

func lit(v int64, width int8, signed bool) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprLiteral, IntValue: v, IntWidth: width, IntSigned: signed}
}

func TestLowerLiteralReturn(t *testing.T) {
	def := &ast.Definition{FullPath: "/main", Return: lit(3, 32, true)}
	p := &ast.Program{Definitions: []*ast.Definition{def}}

	mod, err := Lower(p, "/main")
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if len(mod.Functions) != 1 {
		t.Fatalf("expected exactly one function (inline-everything), got %d", len(mod.Functions))
	}
	fn := mod.Functions[0]
	last := fn.Instructions[len(fn.Instructions)-1]
	if last.Op != ir.OpReturnI32 {
		t.Errorf("expected final op ReturnI32, got %v", last.Op)
	}
}

func TestLowerArithmetic(t *testing.T) {
	ret := &ast.Expr{Kind: ast.ExprCall, Callee: "plus", Args: []*ast.Expr{lit(1, 32, true), lit(2, 32, true)}}
	def := &ast.Definition{FullPath: "/main", Return: ret}
	p := &ast.Program{Definitions: []*ast.Definition{def}}

	mod, err := Lower(p, "/main")
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	found := false
	for _, ins := range mod.Functions[0].Instructions {
		if ins.Op == ir.OpAddI32 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an AddI32 instruction")
	}
}

func TestLowerInlinesNonEntryCalls(t *testing.T) {
	helper := &ast.Definition{FullPath: "/helper", Return: lit(5, 32, true)}
	call := &ast.Expr{Kind: ast.ExprCall, Callee: "helper", ResolvedPath: "/helper"}
	main := &ast.Definition{FullPath: "/main", Return: call}
	p := &ast.Program{Definitions: []*ast.Definition{main, helper}}

	mod, err := Lower(p, "/main")
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if len(mod.Functions) != 1 {
		t.Fatalf("expected only the entry function to survive lowering, got %d", len(mod.Functions))
	}
}

func TestLowerRecursionFails(t *testing.T) {
	call := &ast.Expr{Kind: ast.ExprCall, Callee: "main", ResolvedPath: "/main"}
	main := &ast.Definition{FullPath: "/main", Return: call}
	p := &ast.Program{Definitions: []*ast.Definition{main}}

	if _, err := Lower(p, "/main"); err == nil {
		t.Fatalf("expected recursive definition call error")
	}
}

func TestLowerStringLiteralInterning(t *testing.T) {
	str := &ast.Expr{Kind: ast.ExprStringLiteral, StringValue: "hello"}
	printCall := &ast.Expr{Kind: ast.ExprCall, Callee: "print_line", Args: []*ast.Expr{str}}
	main := &ast.Definition{FullPath: "/main", Statements: []*ast.Expr{printCall}}
	p := &ast.Program{Definitions: []*ast.Definition{main}}

	mod, err := Lower(p, "/main")
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if len(mod.StringTable) != 1 || mod.StringTable[0] != "hello" {
		t.Fatalf("expected string table to contain %q, got %v", "hello", mod.StringTable)
	}
}
