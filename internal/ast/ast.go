// Package ast defines the uniform expression tree produced by the parser
// and consumed by every later stage: text transforms, the semantic
// validator, the IR lowerer, and both tree-walking backend emitters.
//
// A single Expr variant serves every syntactic role — types, values,
// statements, bindings, parameters, and calls — the way the source
// toolchain this module reimplements does it. The uniformity keeps the
// parser and the transform passes simple at the cost of looser static
// guarantees; see DESIGN.md for the tradeoff this was weighed against.
package ast

// ExprKind tags which variant of Expr is populated.
type ExprKind uint8

const (
	ExprLiteral ExprKind = iota
	ExprBoolLiteral
	ExprFloatLiteral
	ExprStringLiteral
	ExprName
	ExprCall
)

// StringSuffix is the declared encoding of a StringLiteral.
type StringSuffix uint8

const (
	SuffixUTF8 StringSuffix = iota
	SuffixASCII
	SuffixRawUTF8
)

// Phase distinguishes a Transform applied during text desugaring from
// one consulted only during semantic validation.
type Phase uint8

const (
	PhaseText Phase = iota
	PhaseSemantic
)

// Transform is a phased annotation attached to a signature, binding, or
// call: `[name<T1,T2>(arg1, arg2)]`.
type Transform struct {
	Name         string
	Arguments    []*Expr
	TemplateArgs []string
	Phase        Phase
}

// Expr is the uniform tagged tree node used for types, values,
// statements, bindings, parameters, and calls.
type Expr struct {
	Kind ExprKind
	Pos  int

	// Literal
	IntValue  int64
	IntWidth  int8 // 32 or 64
	IntSigned bool

	// BoolLiteral
	BoolValue bool

	// FloatLiteral
	FloatText  string // decimal/exponent text, preserved verbatim
	FloatWidth int8   // 32 or 64

	// StringLiteral
	StringValue       string
	StringSuffix      StringSuffix
	HasExplicitSuffix bool

	// Name
	Name          string
	NamePrefix    string // namespace prefix, if any
	ResolvedPath  string // filled in by the validator once resolved

	// Call
	Callee        string
	Args          []*Expr
	ArgNames      []string // parallel to Args; "" when unlabeled
	TemplateArgs  []string
	Transforms    []*Transform
	BodyArguments []*Expr // trailing block envelopes (then/else/body/...)
	LambdaCapture []string

	IsBinding    bool
	IsMethodCall bool
	IsLambda     bool
}

// IsBlockEnvelope reports whether e is a Call-shaped statement grouping
// (block/then/else/loop bodies): empty Args and TemplateArgs, non-empty
// BodyArguments.
func (e *Expr) IsBlockEnvelope() bool {
	return e != nil && e.Kind == ExprCall && len(e.Args) == 0 && len(e.TemplateArgs) == 0 && len(e.BodyArguments) > 0
}

// TransformNamed returns the first transform with the given name, or nil.
func (e *Expr) TransformNamed(name string) *Transform {
	for _, t := range e.Transforms {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// HasTransform reports whether e carries a transform with the given name.
func (e *Expr) HasTransform(name string) bool {
	return e.TransformNamed(name) != nil
}

// modifierTransformNames are visibility/mutability/placement/constraint
// transforms that never themselves declare a parameter, binding, or
// field's type.
var modifierTransformNames = map[string]bool{
	"public": true, "private": true, "package": true,
	"mut": true, "copy": true, "restrict": true,
	"stack": true, "buffer": true, "static": true,
	"return": true, "effects": true, "capabilities": true,
}

// DeclaredTypeTransform returns the transform that declares e's type:
// the first transform that isn't a visibility/mutability/placement
// modifier. A parameter, binding, or field written `[i32] x` or
// `[array<string>] v` carries that bracket group as its own transform
// — Name holds the type/constructor name ("i32", "array", "Pointer",
// ...) and TemplateArgs holds its element/target type names. Hand-built
// trees that instead construct a canonical `Transform{Name:"type",
// TemplateArgs:[...]}` directly are matched the same way, since "type"
// is not a modifier name.
func (e *Expr) DeclaredTypeTransform() *Transform {
	for _, t := range e.Transforms {
		if !modifierTransformNames[t.Name] {
			return t
		}
	}
	return nil
}

// Definition is a named callable or field-only record.
type Definition struct {
	FullPath     string // absolute, slash-rooted
	Namespace    string // enclosing namespace prefix
	Params       []*Expr
	Statements   []*Expr
	Return       *Expr // nil if no return expression
	Transforms   []*Transform
	TemplateArgs []string

	Pos int
}

var structTransformNames = map[string]bool{
	"struct": true, "pod": true, "handle": true, "gpu_lane": true,
	"no_padding": true, "platform_independent_padding": true,
}

// IsStruct reports whether d is a struct-family definition: it either
// carries a struct-family transform, or has no return statement, no
// parameters, no return transform, and only binding statements.
func (d *Definition) IsStruct() bool {
	for _, t := range d.Transforms {
		if structTransformNames[t.Name] {
			return true
		}
	}
	if d.Return != nil || len(d.Params) != 0 {
		return false
	}
	for _, t := range d.Transforms {
		if t.Name == "return" {
			return false
		}
	}
	for _, s := range d.Statements {
		if !s.IsBinding {
			return false
		}
	}
	return true
}

// HasTransformNamed reports whether d carries a transform with the
// given name.
func (d *Definition) HasTransformNamed(name string) bool {
	for _, t := range d.Transforms {
		if t.Name == name {
			return true
		}
	}
	return false
}

// Execution is a top-level or nested invocation referencing a Definition
// by path, with its own ordered/labeled arguments and Transforms.
type Execution struct {
	Path       string
	Args       []*Expr
	ArgNames   []string
	Transforms []*Transform

	Pos int
}

// Program is the ordered sequence of Definitions, Executions, and import
// paths produced by the parser. Immutable after parse + text transforms.
type Program struct {
	Definitions []*Definition
	Executions  []*Execution
	Imports     []string
}

// FindDefinition returns the definition with the given fully-qualified
// path, or nil.
func (p *Program) FindDefinition(path string) *Definition {
	for _, d := range p.Definitions {
		if d.FullPath == path {
			return d
		}
	}
	return nil
}
