package validator

import (
	"fmt"

	"github.com/saruga/primec/internal/ast"
	"github.com/saruga/primec/internal/builtins"
	"github.com/saruga/primec/internal/effects"
	"github.com/saruga/primec/internal/types"
)

// validateBuiltinCall checks a builtin call's arity, effect
// requirement, statement/expression form, and kind rule, then returns
// its result type.
func (c *Context) validateBuiltinCall(b *builtins.Builtin, e *ast.Expr) (*types.Type, error) {
	if !b.CheckArity(len(e.Args)) {
		return nil, fmt.Errorf("%s: wrong number of arguments", b.Name)
	}

	if nested := e.TransformNamed("effects"); nested != nil {
		nestedSet := effects.New(nested.TemplateArgs...)
		for name := range nestedSet {
			if !effects.IsKnown(name) {
				return nil, fmt.Errorf("unknown effect: %s", name)
			}
		}
		if !effects.IsSubset(nestedSet, c.activeEffects()) {
			return nil, fmt.Errorf("%s: nested effect scope is not a subset of the enclosing effects", b.Name)
		}
	}
	if req, ok := b.RequiresEffect(); ok && !c.activeEffects().Has(req) {
		return nil, fmt.Errorf("%s requires effect %s", b.Name, req)
	}

	argTypes := make([]*types.Type, len(e.Args))
	for i, a := range e.Args {
		t, err := c.validateExpr(a)
		if err != nil {
			return nil, err
		}
		argTypes[i] = t
	}

	switch b.KindRule {
	case builtins.KindRuleNumericSameKind:
		return c.checkNumericSameKind(b.Name, argTypes)
	case builtins.KindRuleComparable:
		return c.checkComparable(argTypes)
	case builtins.KindRulePow:
		return c.checkPow(argTypes)
	case builtins.KindRuleBoolean:
		return types.Primitive("bool"), nil
	case builtins.KindRuleUnaryNumeric:
		if len(argTypes) > 0 {
			return argTypes[0], nil
		}
		return nil, nil
	case builtins.KindRuleIndexAccess:
		return c.checkIndexAccess(argTypes)
	case builtins.KindRuleCollectionOrString:
		return types.Primitive("i32"), nil
	case builtins.KindRuleAssignTarget:
		return c.checkAssignTarget(e)
	case builtins.KindRulePointer:
		return c.checkPointerBuiltin(e.Callee, e.Args, argTypes)
	default:
		return nil, nil
	}
}

func (c *Context) checkNumericSameKind(name string, args []*types.Type) (*types.Type, error) {
	if len(args) != 2 {
		return nil, nil
	}
	a, b := args[0], args[1]
	if a == nil || b == nil {
		return a, nil
	}
	if a.Kind == types.KindPointer || a.Kind == types.KindReference {
		if !b.IsInteger() {
			return nil, fmt.Errorf("%s: pointer arithmetic requires an integer offset", name)
		}
		return a, nil
	}
	if !a.IsNumeric() || !b.IsNumeric() {
		return nil, fmt.Errorf("%s: operands must be numeric", name)
	}
	if a.IsInteger() != b.IsInteger() {
		return nil, fmt.Errorf("%s: mixed int/float operands", name)
	}
	if a.IsInteger() && a.IsSigned() != b.IsSigned() {
		return nil, fmt.Errorf("mixed signed/unsigned")
	}
	if a.Width() >= b.Width() {
		return a, nil
	}
	return b, nil
}

func (c *Context) checkComparable(args []*types.Type) (*types.Type, error) {
	if len(args) == 2 && args[0] != nil && args[1] != nil {
		if args[0].Kind == types.KindString || args[1].Kind == types.KindString {
			if args[0].Kind != args[1].Kind {
				return nil, fmt.Errorf("cannot compare string with non-string value")
			}
		} else if args[0].IsInteger() && args[1].IsInteger() && args[0].IsSigned() != args[1].IsSigned() {
			return nil, fmt.Errorf("mixed signed/unsigned")
		}
	}
	return types.Primitive("bool"), nil
}

func (c *Context) checkPow(args []*types.Type) (*types.Type, error) {
	if len(args) != 2 || args[0] == nil || args[1] == nil {
		return types.Primitive("i32"), nil
	}
	if args[0].IsInteger() && args[1].IsInteger() {
		return args[0], nil
	}
	if args[0].IsFloat() && args[1].IsFloat() {
		return args[0], nil
	}
	return nil, fmt.Errorf("pow requires two integer or two float arguments")
}

func (c *Context) checkIndexAccess(args []*types.Type) (*types.Type, error) {
	if len(args) != 2 {
		return nil, nil
	}
	if args[1] != nil && !args[1].IsInteger() {
		return nil, fmt.Errorf("index must be an integer")
	}
	target := args[0]
	if target == nil {
		return types.Primitive("i32"), nil
	}
	if target.Kind == types.KindString {
		return types.Primitive("i32"), nil
	}
	if target.IsCollection() {
		return target.Elem, nil
	}
	return nil, fmt.Errorf("at/at_unsafe target must be an array, vector, map, or string")
}

func (c *Context) checkAssignTarget(e *ast.Expr) (*types.Type, error) {
	target := e.Args[0]
	switch target.Kind {
	case ast.ExprName:
		b, ok := c.lookupBinding(target.Name)
		if !ok {
			return nil, fmt.Errorf("assignment target is not a known binding: %s", target.Name)
		}
		if !b.IsMutable {
			return nil, fmt.Errorf("assignment target %q is not mutable", target.Name)
		}
		return b.Type, nil
	case ast.ExprCall:
		if target.Callee == "dereference" {
			return c.checkPointerBuiltin("dereference", target.Args, nil)
		}
	}
	return nil, fmt.Errorf("invalid assignment target")
}

func (c *Context) checkPointerBuiltin(callee string, args []*ast.Expr, _ []*types.Type) (*types.Type, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%s requires exactly one argument", callee)
	}
	switch callee {
	case "location":
		if args[0].Kind != ast.ExprName {
			return nil, fmt.Errorf("location() requires a local binding, not a computed expression")
		}
		b, ok := c.lookupBinding(args[0].Name)
		if !ok {
			return nil, fmt.Errorf("location() target is not a known local binding: %s", args[0].Name)
		}
		return &types.Type{Kind: types.KindPointer, Target: b.Type}, nil
	case "dereference":
		if args[0].Kind != ast.ExprName {
			return nil, nil
		}
		b, ok := c.lookupBinding(args[0].Name)
		if !ok {
			return nil, fmt.Errorf("dereference() target is not a known binding: %s", args[0].Name)
		}
		if b.Type == nil || (b.Type.Kind != types.KindPointer && b.Type.Kind != types.KindReference) {
			return nil, fmt.Errorf("dereference() requires a Pointer<T> or Reference<T>")
		}
		return b.Type.Target, nil
	}
	return nil, nil
}
