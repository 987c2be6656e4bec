package printer

import (
	"strings"
	"testing"

	"github.com/saruga/primec/internal/ast"
)

func TestPrintSimpleDefinition(t *testing.T) {
	prog := &ast.Program{
		Definitions: []*ast.Definition{
			{
				FullPath: "/main",
				Return: &ast.Expr{
					Kind: ast.ExprCall, Callee: "plus",
					Args: []*ast.Expr{
						{Kind: ast.ExprLiteral, IntValue: 1, IntWidth: 32, IntSigned: true},
						{Kind: ast.ExprLiteral, IntValue: 2, IntWidth: 32, IntSigned: true},
					},
				},
			},
		},
	}

	out := New().Print(prog)
	if !strings.Contains(out, "/main") {
		t.Fatalf("expected definition path in output, got %q", out)
	}
	if !strings.Contains(out, "return(plus(1, 2))") {
		t.Fatalf("expected return expression rendered, got %q", out)
	}
}

func TestPrintImports(t *testing.T) {
	prog := &ast.Program{Imports: []string{"/lib/math"}}
	out := New().Print(prog)
	if !strings.Contains(out, "import /lib/math") {
		t.Fatalf("expected import line, got %q", out)
	}
}

func TestPrintExecution(t *testing.T) {
	prog := &ast.Program{
		Executions: []*ast.Execution{
			{Path: "/main", Args: []*ast.Expr{{Kind: ast.ExprName, Name: "argv"}}, ArgNames: []string{"args"}},
		},
	}
	out := New().Print(prog)
	if !strings.Contains(out, "args: argv") {
		t.Fatalf("expected labeled argument rendered, got %q", out)
	}
}

func TestPrintBinding(t *testing.T) {
	prog := &ast.Program{
		Definitions: []*ast.Definition{
			{
				FullPath: "/main",
				Statements: []*ast.Expr{
					{
						Kind: ast.ExprCall, IsBinding: true, Name: "x",
						Args: []*ast.Expr{{Kind: ast.ExprLiteral, IntValue: 5, IntWidth: 32, IntSigned: true}},
					},
				},
			},
		},
	}
	out := New().Print(prog)
	if !strings.Contains(out, "x{5}") {
		t.Fatalf("expected binding rendered, got %q", out)
	}
}
