// Package transform applies the text-level rewrites the parser defers:
// literal-suffix inference and method-call path resolution, run after
// parse and before semantic validation. Operator rewriting, comma
// sugar, and block/brace desugaring happen in the parser itself (see
// internal/parser) since precedence climbing naturally produces the
// same Call-shaped tree a separate rewrite pass would — recombining
// them as a later pass would just re-walk the same nodes.
//
// Grounded on the teacher's internal/minifier Options+coordinator
// pattern: a single Options struct gates each rewrite, and Apply walks
// the tree once per enabled option.
package transform

import "github.com/saruga/primec/internal/ast"

// Options selects which text filters run, mirroring the driver's
// --text-filters flag.
type Options struct {
	// ImplicitI32 tags bare, unsuffixed decimal integer literals with
	// the i32 width (the "implicit-i32" filter).
	ImplicitI32 bool

	// ImplicitUTF8 tags bare, unsuffixed string literals with the utf8
	// suffix (on by default; --no-transforms disables it).
	ImplicitUTF8 bool
}

// Default returns the filter set the driver enables when
// --text-filters=default is requested.
func Default() Options {
	return Options{ImplicitUTF8: true}
}

// Apply runs the enabled filters over every expression reachable from
// p's definitions and executions, then resolves method-call callee
// paths against p's definition table where the receiver's struct type
// can be determined syntactically.
func Apply(p *ast.Program, opts Options) {
	resolver := &methodResolver{program: p}
	for _, d := range p.Definitions {
		for _, param := range d.Params {
			walk(param, opts, resolver)
		}
		for _, stmt := range d.Statements {
			walk(stmt, opts, resolver)
		}
		if d.Return != nil {
			walk(d.Return, opts, resolver)
		}
		for _, tr := range d.Transforms {
			for _, a := range tr.Arguments {
				walk(a, opts, resolver)
			}
		}
	}
	for _, ex := range p.Executions {
		for _, a := range ex.Args {
			walk(a, opts, resolver)
		}
	}
}

func walk(e *ast.Expr, opts Options, resolver *methodResolver) {
	if e == nil {
		return
	}
	switch e.Kind {
	case ast.ExprLiteral:
		if opts.ImplicitI32 && e.IntWidth == 0 {
			e.IntWidth = 32
			e.IntSigned = true
		}
	case ast.ExprStringLiteral:
		if opts.ImplicitUTF8 && !e.HasExplicitSuffix {
			e.StringSuffix = ast.SuffixUTF8
		}
	}
	for _, a := range e.Args {
		walk(a, opts, resolver)
	}
	for _, b := range e.BodyArguments {
		walk(b, opts, resolver)
	}
	for _, tr := range e.Transforms {
		for _, a := range tr.Arguments {
			walk(a, opts, resolver)
		}
	}
	if e.Kind == ast.ExprCall && e.IsMethodCall {
		resolver.resolve(e)
	}
}

// methodResolver resolves receiver.method(...) calls to a concrete
// "<receiver path>/method" path when the receiver is a call that
// already carries a ResolvedPath naming a definition in the program.
// Any other receiver is left for the validator's name-resolution pass.
type methodResolver struct {
	program *ast.Program
}

func (r *methodResolver) resolve(call *ast.Expr) {
	if len(call.Args) == 0 {
		return
	}
	receiver := call.Args[0]
	if receiver.Kind != ast.ExprCall || receiver.ResolvedPath == "" {
		return
	}
	if def := r.program.FindDefinition(receiver.ResolvedPath); def != nil {
		call.ResolvedPath = receiver.ResolvedPath + "/" + call.Callee
	}
}
