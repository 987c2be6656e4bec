// Package validator implements semantic validation: name resolution,
// type and effect checking, struct layout constraints, pointer
// discipline, builtin arity/kind rules, and control-flow return
// coverage.
//
// Grounded on design note §9's explicit recommendation to replace a
// large mutable-state class with an explicit Context carrying the
// definition map and scoped stacks of bindings and effects. The
// definition table uses a swiss.Map for average O(1) lookup across
// namespaces with many sibling definitions, the way a hot symbol table
// benefits from open addressing over Go's built-in map bucket chains.
package validator

import (
	"fmt"

	"github.com/dolthub/swiss"

	"github.com/saruga/primec/internal/ast"
	"github.com/saruga/primec/internal/builtins"
	"github.com/saruga/primec/internal/effects"
	"github.com/saruga/primec/internal/layout"
	"github.com/saruga/primec/internal/types"
)

// BindingInfo is the validator-local record tracked per local binding;
// never stored on the Expr tree itself.
type BindingInfo struct {
	Type       *types.Type
	IsMutable  bool
	IsCopy     bool
	Visibility string
}

// Context threads the definition table and the scope stacks explicitly
// through validation, instead of a mutable class with many maps.
type Context struct {
	Defs   *swiss.Map[string, *ast.Definition]
	Scopes []map[string]BindingInfo
	Effect []effects.Set

	Entry          string
	DefaultEffects effects.Set

	layouts *layout.Computer
	program *ast.Program
}

// NewContext builds validation state for program, to be entered at entryPath.
func NewContext(program *ast.Program, entryPath string, defaultEffects effects.Set) *Context {
	defs := swiss.NewMap[string, *ast.Definition](uint32(len(program.Definitions)))
	for _, d := range program.Definitions {
		defs.Put(d.FullPath, d)
	}
	return &Context{
		Defs:           defs,
		Scopes:         []map[string]BindingInfo{{}},
		Effect:         []effects.Set{defaultEffects},
		Entry:          entryPath,
		DefaultEffects: defaultEffects,
		layouts:        layout.NewComputer(program),
		program:        program,
	}
}

func (c *Context) pushScope(active effects.Set) {
	c.Scopes = append(c.Scopes, map[string]BindingInfo{})
	c.Effect = append(c.Effect, active)
}

func (c *Context) popScope() {
	c.Scopes = c.Scopes[:len(c.Scopes)-1]
	c.Effect = c.Effect[:len(c.Effect)-1]
}

func (c *Context) lookupBinding(name string) (BindingInfo, bool) {
	for i := len(c.Scopes) - 1; i >= 0; i-- {
		if b, ok := c.Scopes[i][name]; ok {
			return b, true
		}
	}
	return BindingInfo{}, false
}

func (c *Context) activeEffects() effects.Set {
	return c.Effect[len(c.Effect)-1]
}

// Validate runs every rule over program starting at entryPath, with
// defaultEffects supplied by the driver's --default-effects flag.
func Validate(program *ast.Program, entryPath string, defaultEffects effects.Set) error {
	ctx := NewContext(program, entryPath, defaultEffects)

	seen := map[string]bool{}
	for _, d := range program.Definitions {
		if seen[d.FullPath] {
			return fmt.Errorf("duplicate definition: %s", d.FullPath)
		}
		seen[d.FullPath] = true
	}

	if program.FindDefinition(entryPath) == nil {
		return fmt.Errorf("unknown entry definition: %s", entryPath)
	}

	for _, d := range program.Definitions {
		if err := ctx.validateDefinition(d); err != nil {
			return fmt.Errorf("in %s: %w", d.FullPath, err)
		}
	}
	return nil
}

func (c *Context) validateDefinition(d *ast.Definition) error {
	if d.IsStruct() {
		_, err := c.layouts.Compute(d.FullPath)
		return err
	}

	declared := effects.New()
	for _, tr := range d.Transforms {
		if tr.Name == "effects" {
			for _, arg := range tr.TemplateArgs {
				if !effects.IsKnown(arg) {
					return fmt.Errorf("unknown effect: %s", arg)
				}
				declared[arg] = true
			}
		}
	}
	active := effects.Union(declared, c.DefaultEffects)
	c.pushScope(active)
	defer c.popScope()

	for _, p := range d.Params {
		if err := c.bindParam(p); err != nil {
			return err
		}
	}
	for _, stmt := range d.Statements {
		if err := c.validateStatement(stmt); err != nil {
			return err
		}
	}
	if d.Return != nil {
		if _, err := c.validateExpr(d.Return); err != nil {
			return err
		}
	} else if d.HasTransformNamed("return") && !coversAllPaths(d.Statements) {
		return fmt.Errorf("not every path returns a value")
	}
	return nil
}

// coversAllPaths implements the control-flow rule: every non-void path
// must end in return; an if covers iff both branches return, and any
// subsequent return also covers.
func coversAllPaths(stmts []*ast.Expr) bool {
	for _, s := range stmts {
		if s.Kind == ast.ExprCall && s.Callee == "return" {
			return true
		}
		if s.Kind == ast.ExprCall && s.Callee == "if" && len(s.BodyArguments) == 2 {
			if blockCovers(s.BodyArguments[0]) && blockCovers(s.BodyArguments[1]) {
				return true
			}
		}
	}
	return false
}

func blockCovers(body *ast.Expr) bool {
	if body.IsBlockEnvelope() {
		return coversAllPaths(body.BodyArguments)
	}
	return true
}

func (c *Context) bindParam(p *ast.Expr) error {
	t, err := c.resolveTypeTransform(p)
	if err != nil {
		return err
	}
	c.Scopes[len(c.Scopes)-1][p.Name] = BindingInfo{Type: t}
	return nil
}

// resolveTypeTransform resolves a declared bracket type annotation
// (e.g. `[i32]`, `[array<string>]`, `[Pointer<Node>]`) to a concrete
// Type, applying alias resolution and software-numeric rejection.
func (c *Context) resolveTypeTransform(e *ast.Expr) (*types.Type, error) {
	tt := e.DeclaredTypeTransform()
	if tt == nil {
		return nil, nil
	}
	return types.FromAnnotation(tt.Name, tt.TemplateArgs)
}

func (c *Context) resolveTypeName(name string) (*types.Type, error) {
	return types.FromAnnotation(name, nil)
}

func (c *Context) validateStatement(stmt *ast.Expr) error {
	if stmt.IsBinding {
		return c.validateBinding(stmt)
	}
	_, err := c.validateExpr(stmt)
	return err
}

func (c *Context) validateBinding(b *ast.Expr) error {
	if len(b.Args) != 1 {
		return fmt.Errorf("binding %q requires exactly one initializer", b.Name)
	}
	visibilityCount := 0
	for _, tr := range b.Transforms {
		switch tr.Name {
		case "public", "private", "package":
			visibilityCount++
		case "stack", "buffer":
			return fmt.Errorf("placement transform %q is not allowed on a binding", tr.Name)
		case "return", "effects", "capabilities":
			return fmt.Errorf("%q transform is not allowed on a binding", tr.Name)
		case "restrict":
			if declared, _ := c.resolveTypeTransform(b); declared != nil && len(tr.TemplateArgs) == 1 {
				if restrictT, err := c.resolveTypeName(tr.TemplateArgs[0]); err == nil && !restrictT.Equals(declared) {
					return fmt.Errorf("restrict<%s> does not match binding's base type", tr.TemplateArgs[0])
				}
			}
		}
	}
	if visibilityCount > 1 {
		return fmt.Errorf("binding %q has more than one visibility transform", b.Name)
	}

	initType, err := c.validateExpr(b.Args[0])
	if err != nil {
		return err
	}
	declaredType, err := c.resolveTypeTransform(b)
	if err != nil {
		return err
	}
	bindType := declaredType
	if bindType == nil {
		bindType = initType
	}
	c.Scopes[len(c.Scopes)-1][b.Name] = BindingInfo{
		Type:       bindType,
		IsMutable:  b.HasTransform("mut"),
		IsCopy:     b.HasTransform("copy"),
		Visibility: visibilityOf(b),
	}
	return nil
}

func visibilityOf(e *ast.Expr) string {
	for _, name := range []string{"public", "private", "package"} {
		if e.HasTransform(name) {
			return name
		}
	}
	return "private"
}

// validateExpr type-checks an expression and returns its resulting
// type (nil for void / unknown).
func (c *Context) validateExpr(e *ast.Expr) (*types.Type, error) {
	switch e.Kind {
	case ast.ExprLiteral:
		if e.IntWidth == 64 {
			if e.IntSigned {
				return types.Primitive("i64"), nil
			}
			return types.Primitive("u64"), nil
		}
		return types.Primitive("i32"), nil
	case ast.ExprBoolLiteral:
		return types.Primitive("bool"), nil
	case ast.ExprFloatLiteral:
		if e.FloatWidth == 64 {
			return types.Primitive("f64"), nil
		}
		return types.Primitive("f32"), nil
	case ast.ExprStringLiteral:
		return &types.Type{Kind: types.KindString}, nil
	case ast.ExprName:
		return c.validateName(e)
	case ast.ExprCall:
		return c.validateCall(e)
	}
	return nil, nil
}

func (c *Context) validateName(e *ast.Expr) (*types.Type, error) {
	if b, ok := c.lookupBinding(e.Name); ok {
		return b.Type, nil
	}
	if def := c.program.FindDefinition(e.Name); def != nil {
		e.ResolvedPath = def.FullPath
		return nil, nil
	}
	return nil, fmt.Errorf("unknown identifier: %s", e.Name)
}

func (c *Context) validateCall(e *ast.Expr) (*types.Type, error) {
	switch e.Callee {
	case "array", "vector", "map":
		return c.validateCollectionConstructor(e)
	}
	if b := builtins.Lookup(e.Callee); b != nil {
		return c.validateBuiltinCall(b, e)
	}
	return c.validateUserCall(e)
}

// validateCollectionConstructor validates `array<T>(...)`,
// `vector<T>(...)`, and `map<K,V>(...)`: each call argument becomes one
// element (or, for map, one alternating key/value entry) and must
// match the declared element/key/value type.
func (c *Context) validateCollectionConstructor(e *ast.Expr) (*types.Type, error) {
	t, err := types.FromAnnotation(e.Callee, e.TemplateArgs)
	if err != nil {
		return nil, err
	}
	if e.Callee == "map" {
		if len(e.Args)%2 != 0 {
			return nil, fmt.Errorf("map constructor requires an even number of key/value arguments")
		}
		for i, a := range e.Args {
			at, err := c.validateExpr(a)
			if err != nil {
				return nil, err
			}
			want := t.Elem
			if i%2 == 1 {
				want = t.Value
			}
			if at != nil && want != nil && !at.Equals(want) {
				return nil, fmt.Errorf("map constructor argument %d does not match declared type", i)
			}
		}
		return t, nil
	}
	for i, a := range e.Args {
		at, err := c.validateExpr(a)
		if err != nil {
			return nil, err
		}
		if at != nil && t.Elem != nil && !at.Equals(t.Elem) {
			return nil, fmt.Errorf("%s constructor argument %d does not match declared element type", e.Callee, i)
		}
	}
	return t, nil
}

func (c *Context) validateUserCall(e *ast.Expr) (*types.Type, error) {
	path := e.ResolvedPath
	if path == "" {
		path = e.Callee
	}
	def := c.program.FindDefinition(path)
	if def == nil {
		return nil, fmt.Errorf("unknown call: %s", e.Callee)
	}
	e.ResolvedPath = def.FullPath
	for _, a := range e.Args {
		if _, err := c.validateExpr(a); err != nil {
			return nil, err
		}
	}
	if def.Return == nil {
		return nil, nil
	}
	return nil, nil
}
