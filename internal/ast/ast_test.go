package ast

import "testing"

func TestIsBlockEnvelope(t *testing.T) {
	block := &Expr{Kind: ExprCall, Callee: "block", BodyArguments: []*Expr{{Kind: ExprLiteral, IntValue: 1}}}
	if !block.IsBlockEnvelope() {
		t.Fatalf("expected block to be recognized as an envelope")
	}

	call := &Expr{Kind: ExprCall, Callee: "plus", Args: []*Expr{{Kind: ExprLiteral}, {Kind: ExprLiteral}}}
	if call.IsBlockEnvelope() {
		t.Fatalf("a call with args is not a block envelope")
	}
}

func TestHasTransform(t *testing.T) {
	e := &Expr{Transforms: []*Transform{{Name: "mut"}, {Name: "public"}}}
	if !e.HasTransform("mut") || !e.HasTransform("public") {
		t.Fatalf("expected both transforms to be found")
	}
	if e.HasTransform("static") {
		t.Fatalf("did not expect static transform")
	}
}

func TestDefinitionIsStruct(t *testing.T) {
	cases := []struct {
		name string
		def  *Definition
		want bool
	}{
		{
			name: "explicit struct transform",
			def:  &Definition{Transforms: []*Transform{{Name: "struct"}}},
			want: true,
		},
		{
			name: "fields only, no params, no return",
			def: &Definition{
				Statements: []*Expr{{IsBinding: true, Name: "x"}},
			},
			want: true,
		},
		{
			name: "has params",
			def: &Definition{
				Params:     []*Expr{{Kind: ExprName, Name: "x"}},
				Statements: []*Expr{{IsBinding: true, Name: "x"}},
			},
			want: false,
		},
		{
			name: "has return expr",
			def: &Definition{
				Return: &Expr{Kind: ExprLiteral, IntValue: 1},
			},
			want: false,
		},
		{
			name: "has return transform",
			def: &Definition{
				Transforms: []*Transform{{Name: "return"}},
				Statements: []*Expr{{IsBinding: true, Name: "x"}},
			},
			want: false,
		},
		{
			name: "non-binding statement",
			def: &Definition{
				Statements: []*Expr{{Kind: ExprCall, Callee: "print_line"}},
			},
			want: false,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.def.IsStruct(); got != c.want {
				t.Errorf("IsStruct() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestProgramFindDefinition(t *testing.T) {
	p := &Program{Definitions: []*Definition{
		{FullPath: "/main"},
		{FullPath: "/lib/greet"},
	}}
	if d := p.FindDefinition("/lib/greet"); d == nil {
		t.Fatalf("expected to find /lib/greet")
	}
	if d := p.FindDefinition("/missing"); d != nil {
		t.Fatalf("expected nil for missing path")
	}
}
