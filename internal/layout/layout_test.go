package layout

import (
	"testing"

	"github.com/saruga/primec/internal/ast"
)

func typeTransform(name string) *ast.Transform {
	return &ast.Transform{Name: "type", TemplateArgs: []string{name}}
}

func field(name, typeName string) *ast.Expr {
	return &ast.Expr{IsBinding: true, Name: name, Transforms: []*ast.Transform{typeTransform(typeName)}, Args: []*ast.Expr{{Kind: ast.ExprLiteral}}}
}

func TestSimpleStructLayout(t *testing.T) {
	def := &ast.Definition{
		FullPath:   "/lib/Pair",
		Transforms: []*ast.Transform{{Name: "struct"}},
		Statements: []*ast.Expr{field("a", "i32"), field("b", "i64")},
	}
	p := &ast.Program{Definitions: []*ast.Definition{def}}
	c := NewComputer(p)

	l, err := c.Compute("/lib/Pair")
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if l.Fields[0].Offset != 0 || l.Fields[0].Size != 4 {
		t.Errorf("field a: got offset=%d size=%d", l.Fields[0].Offset, l.Fields[0].Size)
	}
	if l.Fields[1].Offset != 8 {
		t.Errorf("field b: expected padded offset 8, got %d", l.Fields[1].Offset)
	}
	if l.Alignment != 8 {
		t.Errorf("expected struct alignment 8, got %d", l.Alignment)
	}
	if l.TotalSize%l.Alignment != 0 {
		t.Errorf("totalSize %d is not a multiple of alignment %d", l.TotalSize, l.Alignment)
	}
}

func TestNoPaddingRejectsImplicitPadding(t *testing.T) {
	def := &ast.Definition{
		FullPath:   "/lib/Packed",
		Transforms: []*ast.Transform{{Name: "struct"}, {Name: "no_padding"}},
		Statements: []*ast.Expr{field("a", "i32"), field("b", "i64")},
	}
	p := &ast.Program{Definitions: []*ast.Definition{def}}
	c := NewComputer(p)
	if _, err := c.Compute("/lib/Packed"); err == nil {
		t.Fatalf("expected no_padding violation error")
	}
}

func TestRecursiveStructRejected(t *testing.T) {
	selfRef := &ast.Expr{IsBinding: true, Name: "next", Transforms: []*ast.Transform{typeTransform("/lib/Node")}, Args: []*ast.Expr{{Kind: ast.ExprLiteral}}}
	def := &ast.Definition{
		FullPath:   "/lib/Node",
		Transforms: []*ast.Transform{{Name: "struct"}},
		Statements: []*ast.Expr{selfRef},
	}
	p := &ast.Program{Definitions: []*ast.Definition{def}}
	c := NewComputer(p)
	if _, err := c.Compute("/lib/Node"); err == nil {
		t.Fatalf("expected recursive struct layout error")
	}
}

func TestHandleGpuLaneMutuallyExclusive(t *testing.T) {
	def := &ast.Definition{
		FullPath:   "/lib/Bad",
		Transforms: []*ast.Transform{{Name: "struct"}, {Name: "handle"}, {Name: "gpu_lane"}},
		Statements: []*ast.Expr{field("a", "i32")},
	}
	p := &ast.Program{Definitions: []*ast.Definition{def}}
	c := NewComputer(p)
	if _, err := c.Compute("/lib/Bad"); err == nil {
		t.Fatalf("expected handle/gpu_lane exclusivity error")
	}
}

func TestStaticFieldsExcludedFromAlignment(t *testing.T) {
	stat := field("count", "i64")
	stat.Transforms = append(stat.Transforms, &ast.Transform{Name: "static"})
	def := &ast.Definition{
		FullPath:   "/lib/WithStatic",
		Transforms: []*ast.Transform{{Name: "struct"}},
		Statements: []*ast.Expr{field("a", "i32"), stat},
	}
	p := &ast.Program{Definitions: []*ast.Definition{def}}
	c := NewComputer(p)
	l, err := c.Compute("/lib/WithStatic")
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if l.Alignment != 4 {
		t.Errorf("expected static i64 field to not raise struct alignment, got %d", l.Alignment)
	}
}
