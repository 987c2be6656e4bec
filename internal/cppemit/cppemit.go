// Package cppemit walks a validated *ast.Program and renders C++23
// source, the way the teacher's internal/printer walks *ast.Module and
// renders WGSL: a strings.Builder-backed Emitter with an indent counter,
// here extended with binding-kind inference (auto / const T& / T&) and
// lambda-capture translation instead of WGSL pretty-printing.
//
// Unlike internal/native and internal/glsl, cppemit walks the Program
// directly rather than the lowered IR, so it keeps per-binding
// mutability and lambda-capture information the inliner's IR form
// discards.
package cppemit

import (
	"fmt"
	"strings"

	"github.com/saruga/primec/internal/ast"
)

// Options controls emission.
type Options struct {
	// NamePrefix is prepended to every definition/binding name to avoid
	// collisions with C++ keywords and the runtime support header.
	NamePrefix string
}

// Default returns the emitter's standard options: the "ps_" prefix
// spec.md's C++ backend section names.
func Default() Options {
	return Options{NamePrefix: "ps_"}
}

// Emitter renders a Program as C++23 source.
type Emitter struct {
	opts   Options
	buf    strings.Builder
	indent int
	// mutated tracks binding names assigned to via assign/increment/
	// decrement anywhere in the current definition, computed with a
	// pre-pass so binding-kind inference doesn't need backtracking.
	mutated map[string]bool
}

// New creates an Emitter.
func New(opts Options) *Emitter {
	return &Emitter{opts: opts}
}

// Emit renders the full program, including the fixed runtime-support
// preamble every emitted translation unit needs.
func (e *Emitter) Emit(prog *ast.Program) (string, error) {
	e.buf.Reset()
	e.writePreamble()
	for _, def := range prog.Definitions {
		if err := e.emitDefinition(def); err != nil {
			return "", err
		}
	}
	return e.buf.String(), nil
}

func (e *Emitter) writePreamble() {
	e.print("#include <cstdint>\n")
	e.print("#include <string>\n")
	e.print("#include <vector>\n")
	e.print("#include <iostream>\n")
	e.print("\n")
}

func (e *Emitter) print(s string) { e.buf.WriteString(s) }

func (e *Emitter) newline() {
	e.buf.WriteByte('\n')
	for i := 0; i < e.indent; i++ {
		e.buf.WriteString("    ")
	}
}

func (e *Emitter) name(n string) string {
	return e.opts.NamePrefix + strings.TrimPrefix(n, "/")
}

func (e *Emitter) emitDefinition(d *ast.Definition) error {
	if d.IsStruct() {
		return e.emitStruct(d)
	}
	e.mutated = collectMutated(d)

	e.print("auto ")
	e.print(e.name(d.FullPath))
	e.print("(")
	for i, p := range d.Params {
		if i > 0 {
			e.print(", ")
		}
		e.print(e.paramDecl(p))
	}
	e.print(")")
	e.print(" {")
	e.indent++
	for _, s := range d.Statements {
		e.newline()
		if err := e.emitStatement(s); err != nil {
			return err
		}
	}
	if d.Return != nil {
		e.newline()
		e.print("return ")
		if err := e.emitExpr(d.Return); err != nil {
			return err
		}
		e.print(";")
	}
	e.indent--
	e.newline()
	e.print("}")
	e.newline()
	e.newline()
	return nil
}

// paramDecl infers auto/const auto&/auto& for a parameter: a parameter
// never reassigned within the body is taken by const reference; one
// assigned to (via assign/increment/decrement) is taken by mutable
// reference, matching spec.md's pass-by-reference-unless-mutated rule.
func (e *Emitter) paramDecl(p *ast.Expr) string {
	if e.mutated[p.Name] {
		return "auto& " + e.name(p.Name)
	}
	return "const auto& " + e.name(p.Name)
}

func (e *Emitter) emitStruct(d *ast.Definition) error {
	e.print("struct ")
	e.print(e.name(d.FullPath))
	e.print(" {")
	e.indent++
	for _, field := range d.Statements {
		e.newline()
		e.print("decltype(auto) ")
		e.print(e.name(field.Name))
		e.print(" = ")
		if err := e.emitExpr(field.Args[0]); err != nil {
			return err
		}
		e.print(";")
	}
	e.indent--
	e.newline()
	e.print("};")
	e.newline()
	e.newline()
	return nil
}

// collectMutated walks a definition's body recording every binding name
// that is an assign/increment/decrement target, so paramDecl can decide
// reference mutability without a second emission pass.
func collectMutated(d *ast.Definition) map[string]bool {
	m := map[string]bool{}
	var walk func(e *ast.Expr)
	walk = func(e *ast.Expr) {
		if e == nil {
			return
		}
		if e.Kind == ast.ExprCall {
			switch e.Callee {
			case "assign", "increment", "decrement":
				if len(e.Args) > 0 && e.Args[0].Kind == ast.ExprName {
					m[e.Args[0].Name] = true
				}
			}
			for _, a := range e.Args {
				walk(a)
			}
			for _, b := range e.BodyArguments {
				walk(b)
			}
		}
	}
	for _, s := range d.Statements {
		walk(s)
	}
	if d.Return != nil {
		walk(d.Return)
	}
	return m
}

var binaryOps = map[string]string{
	"plus": "+", "minus": "-", "multiply": "*", "divide": "/",
	"equal": "==", "not_equal": "!=",
	"less_than": "<", "less_equal": "<=", "greater_than": ">", "greater_equal": ">=",
	"and": "&&", "or": "||",
}

func (e *Emitter) emitStatement(s *ast.Expr) error {
	if s.IsBinding {
		return e.emitBinding(s)
	}
	err := e.emitExpr(s)
	e.print(";")
	return err
}

func (e *Emitter) emitBinding(b *ast.Expr) error {
	e.print("auto ")
	e.print(e.name(b.Name))
	e.print(" = ")
	if err := e.emitExpr(b.Args[0]); err != nil {
		return err
	}
	e.print(";")
	return nil
}

func (e *Emitter) emitExpr(expr *ast.Expr) error {
	if expr == nil {
		return nil
	}
	switch expr.Kind {
	case ast.ExprLiteral:
		e.print(fmt.Sprintf("%d", expr.IntValue))
		return nil
	case ast.ExprBoolLiteral:
		if expr.BoolValue {
			e.print("true")
		} else {
			e.print("false")
		}
		return nil
	case ast.ExprFloatLiteral:
		e.print(expr.FloatText)
		if expr.FloatWidth == 32 {
			e.print("f")
		}
		return nil
	case ast.ExprStringLiteral:
		e.print("\"" + expr.StringValue + "\"")
		return nil
	case ast.ExprName:
		e.print(e.name(expr.Name))
		return nil
	case ast.ExprCall:
		return e.emitCall(expr)
	}
	return fmt.Errorf("cppemit: unknown expr kind %v", expr.Kind)
}

func (e *Emitter) emitCall(call *ast.Expr) error {
	if call.IsLambda {
		return e.emitLambda(call)
	}
	if op, ok := binaryOps[call.Callee]; ok && len(call.Args) == 2 {
		e.print("(")
		if err := e.emitExpr(call.Args[0]); err != nil {
			return err
		}
		e.print(" " + op + " ")
		if err := e.emitExpr(call.Args[1]); err != nil {
			return err
		}
		e.print(")")
		return nil
	}
	switch call.Callee {
	case "negate":
		e.print("(-")
		if err := e.emitExpr(call.Args[0]); err != nil {
			return err
		}
		e.print(")")
		return nil
	case "not":
		e.print("(!")
		if err := e.emitExpr(call.Args[0]); err != nil {
			return err
		}
		e.print(")")
		return nil
	case "assign":
		return e.emitBinary(call, " = ")
	case "at":
		return e.emitIndex(call)
	case "increment", "decrement":
		op := "++"
		if call.Callee == "decrement" {
			op = "--"
		}
		if err := e.emitExpr(call.Args[0]); err != nil {
			return err
		}
		e.print(op)
		return nil
	case "print", "print_line":
		return e.emitPrint(call, os_out)
	case "print_error", "print_line_error":
		return e.emitPrint(call, os_err)
	case "if":
		return e.emitIf(call)
	case "while":
		return e.emitWhile(call)
	case "loop", "repeat":
		return e.emitLoop(call)
	case "for":
		return e.emitFor(call)
	case "block":
		return e.emitBlockExpr(call)
	case "location":
		e.print("(&")
		if err := e.emitExpr(call.Args[0]); err != nil {
			return err
		}
		e.print(")")
		return nil
	case "dereference":
		e.print("(*")
		if err := e.emitExpr(call.Args[0]); err != nil {
			return err
		}
		e.print(")")
		return nil
	case "count":
		if err := e.emitExpr(call.Args[0]); err != nil {
			return err
		}
		e.print(".size()")
		return nil
	}
	e.print(e.name(call.Callee))
	e.print("(")
	for i, a := range call.Args {
		if i > 0 {
			e.print(", ")
		}
		if err := e.emitExpr(a); err != nil {
			return err
		}
	}
	e.print(")")
	return nil
}

const (
	os_out = "std::cout"
	os_err = "std::cerr"
)

func (e *Emitter) emitBinary(call *ast.Expr, op string) error {
	if err := e.emitExpr(call.Args[0]); err != nil {
		return err
	}
	e.print(op)
	return e.emitExpr(call.Args[1])
}

func (e *Emitter) emitIndex(call *ast.Expr) error {
	if err := e.emitExpr(call.Args[0]); err != nil {
		return err
	}
	e.print("[")
	if err := e.emitExpr(call.Args[1]); err != nil {
		return err
	}
	e.print("]")
	return nil
}

func (e *Emitter) emitPrint(call *ast.Expr, stream string) error {
	e.print(stream + " << ")
	if err := e.emitExpr(call.Args[0]); err != nil {
		return err
	}
	if strings.HasPrefix(call.Callee, "print_line") {
		e.print(" << \"\\n\"")
	}
	return nil
}

func (e *Emitter) emitLambda(call *ast.Expr) error {
	e.print("[")
	e.print(strings.Join(lambdaCaptureList(call.LambdaCapture, e.opts.NamePrefix), ", "))
	e.print("](")
	for i, p := range call.Args {
		if i > 0 {
			e.print(", ")
		}
		e.print("const auto& " + e.name(p.Name))
	}
	e.print(") {")
	e.indent++
	if len(call.BodyArguments) > 0 {
		if err := e.emitBlockStatements(call.BodyArguments[0]); err != nil {
			return err
		}
	}
	e.indent--
	e.newline()
	e.print("}")
	return nil
}

func lambdaCaptureList(names []string, prefix string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = "&" + prefix + n
	}
	return out
}

func (e *Emitter) emitIf(call *ast.Expr) error {
	e.print("if (")
	if err := e.emitExpr(call.Args[0]); err != nil {
		return err
	}
	e.print(") {")
	e.indent++
	if len(call.BodyArguments) > 0 {
		if err := e.emitBlockStatements(call.BodyArguments[0]); err != nil {
			return err
		}
	}
	e.indent--
	e.newline()
	e.print("}")
	if len(call.BodyArguments) > 1 && len(call.BodyArguments[1].BodyArguments) > 0 {
		e.print(" else {")
		e.indent++
		if err := e.emitBlockStatements(call.BodyArguments[1]); err != nil {
			return err
		}
		e.indent--
		e.newline()
		e.print("}")
	}
	return nil
}

func (e *Emitter) emitWhile(call *ast.Expr) error {
	e.print("while (")
	if err := e.emitExpr(call.Args[0]); err != nil {
		return err
	}
	e.print(") {")
	e.indent++
	if err := e.emitBlockStatements(call.Args[1]); err != nil {
		return err
	}
	e.indent--
	e.newline()
	e.print("}")
	return nil
}

func (e *Emitter) emitLoop(call *ast.Expr) error {
	e.print("for (int64_t ps_i = 0; ps_i < static_cast<int64_t>(")
	if err := e.emitExpr(call.Args[0]); err != nil {
		return err
	}
	e.print("); ps_i++) {")
	e.indent++
	if err := e.emitBlockStatements(call.Args[1]); err != nil {
		return err
	}
	e.indent--
	e.newline()
	e.print("}")
	return nil
}

func (e *Emitter) emitFor(call *ast.Expr) error {
	e.print("for (")
	if err := e.emitStatement(call.Args[0]); err != nil {
		return err
	}
	e.print(" ")
	if err := e.emitExpr(call.Args[1]); err != nil {
		return err
	}
	e.print("; ")
	if err := e.emitExpr(call.Args[2]); err != nil {
		return err
	}
	e.print(") {")
	e.indent++
	if err := e.emitBlockStatements(call.Args[3]); err != nil {
		return err
	}
	e.indent--
	e.newline()
	e.print("}")
	return nil
}

func (e *Emitter) emitBlockStatements(envelope *ast.Expr) error {
	if !envelope.IsBlockEnvelope() {
		e.newline()
		return e.emitStatement(envelope)
	}
	for _, s := range envelope.BodyArguments {
		e.newline()
		if err := e.emitStatement(s); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) emitBlockExpr(call *ast.Expr) error {
	e.print("[&]() {")
	e.indent++
	for i, s := range call.BodyArguments {
		e.newline()
		if i == len(call.BodyArguments)-1 && !s.IsBinding {
			e.print("return ")
			if err := e.emitExpr(s); err != nil {
				return err
			}
			e.print(";")
			continue
		}
		if err := e.emitStatement(s); err != nil {
			return err
		}
	}
	e.indent--
	e.newline()
	e.print("}()")
	return nil
}
