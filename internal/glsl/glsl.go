// Package glsl walks a validated *ast.Program and renders a GLSL 450
// compute shader, the way internal/cppemit walks the same tree for
// C++: a strings.Builder-backed Emitter with the teacher's
// Options-plus-coordinator shape. GLSL is a restricted target: only
// the gpu_queue/render_graph/gpu effect family may be active on the
// entry definition, since a shader has no host-side I/O or pathspace
// access, per spec.md's effect-subset rule for this backend.
package glsl

import (
	"fmt"
	"strings"

	"github.com/saruga/primec/internal/ast"
	"github.com/saruga/primec/internal/effects"
)

// gpuEffects is the only effect family the GLSL target permits on its
// entry definition.
var gpuEffects = effects.New("gpu_queue", "render_graph", "gpu")

// Options controls emission.
type Options struct {
	// Float64 emits GL_ARB_gpu_shader_fp64 and allows double-precision
	// operations; without it, f64 values are rejected.
	Float64 bool
}

// Emitter renders a Program's entry definition as a GLSL compute
// shader body.
type Emitter struct {
	opts Options
	buf  strings.Builder
}

// New creates an Emitter.
func New(opts Options) *Emitter {
	return &Emitter{opts: opts}
}

// Emit renders entryPath's definition from prog as a GLSL shader,
// enforcing the effect-subset restriction before emitting anything.
func (e *Emitter) Emit(prog *ast.Program, entryPath string) (string, error) {
	def := prog.FindDefinition(entryPath)
	if def == nil {
		return "", fmt.Errorf("glsl: entry definition not found: %s", entryPath)
	}
	if err := checkEffectSubset(def); err != nil {
		return "", err
	}

	e.buf.Reset()
	e.print("#version 450\n")
	if e.opts.Float64 {
		e.print("#extension GL_ARB_gpu_shader_fp64 : enable\n")
	}
	e.print("layout(local_size_x = 64) in;\n\n")
	e.print("void main() {\n")
	for _, s := range def.Statements {
		e.print("    ")
		if err := e.emitStatement(s); err != nil {
			return "", err
		}
		e.print("\n")
	}
	e.print("}\n")
	return e.buf.String(), nil
}

// checkEffectSubset walks def's transforms for effect annotations (the
// arguments of an `effects<...>` transform, or a transform named by an
// effect token) and rejects any effect outside the
// gpu_queue/render_graph/gpu family, since a GLSL shader body has no
// host I/O or pathspace access to back a print or pathspace call with.
func checkEffectSubset(def *ast.Definition) error {
	for _, t := range def.Transforms {
		names := []string{t.Name}
		if t.Name == "effects" {
			names = t.TemplateArgs
		}
		for _, name := range names {
			if !effects.IsKnown(name) {
				continue
			}
			if !gpuEffects.Has(name) {
				return fmt.Errorf("glsl: effect %q is not available to a shader entry point (only gpu_queue, render_graph, gpu)", name)
			}
		}
	}
	return nil
}

func (e *Emitter) print(s string) { e.buf.WriteString(s) }

var binaryOps = map[string]string{
	"plus": "+", "minus": "-", "multiply": "*", "divide": "/",
	"equal": "==", "not_equal": "!=",
	"less_than": "<", "less_equal": "<=", "greater_than": ">", "greater_equal": ">=",
	"and": "&&", "or": "||",
}

func (e *Emitter) emitStatement(s *ast.Expr) error {
	if s.IsBinding {
		e.print("float " + s.Name + " = ")
		if err := e.emitExpr(s.Args[0]); err != nil {
			return err
		}
		e.print(";")
		return nil
	}
	if err := e.emitExpr(s); err != nil {
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
	case ast.ExprFloatLiteral:
		e.print(expr.FloatText)
		if expr.FloatWidth == 32 {
			e.print("f")
		} else if !e.opts.Float64 {
			return fmt.Errorf("glsl: double-precision literal requires Float64 option (GL_ARB_gpu_shader_fp64)")
		}
	case ast.ExprBoolLiteral:
		if expr.BoolValue {
			e.print("true")
		} else {
			e.print("false")
		}
	case ast.ExprStringLiteral:
		return fmt.Errorf("glsl: string values have no GLSL representation")
	case ast.ExprName:
		e.print(expr.Name)
	case ast.ExprCall:
		return e.emitCall(expr)
	}
	return nil
}

func (e *Emitter) emitCall(call *ast.Expr) error {
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
	case "assign":
		if err := e.emitExpr(call.Args[0]); err != nil {
			return err
		}
		e.print(" = ")
		return e.emitExpr(call.Args[1])
	case "print", "print_line", "print_error", "print_line_error":
		return fmt.Errorf("glsl: %s has no host I/O to target from a shader", call.Callee)
	case "notify", "insert", "take":
		return fmt.Errorf("glsl: %s has no pathspace to target from a shader", call.Callee)
	}
	e.print(call.Callee)
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

// EmitSPIRV compiles GLSL source to SPIR-V by invoking an external
// tool (glslangValidator or glslc). Shelling out is, per spec.md's
// non-goals, the external driver's job, not this package's — this
// function exists only to report the fixed diagnosis when neither
// tool is on PATH, matching "external assembler/linker invocation" as
// a stated non-goal.
func EmitSPIRV(glslSource string, lookPath func(string) (string, error)) ([]byte, error) {
	for _, tool := range []string{"glslangValidator", "glslc"} {
		if _, err := lookPath(tool); err == nil {
			return nil, fmt.Errorf("glsl: invoking external tool %s is the driver's responsibility, not this package's", tool)
		}
	}
	return nil, fmt.Errorf("glsl: glslangValidator or glslc not found")
}
