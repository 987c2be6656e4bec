// Package printer renders a parsed Program back to source text, used by
// the driver's --dump-stage=parse/transform diagnostic output.
//
// Grounded on the teacher's internal/printer: a strings.Builder-backed
// Printer walking a tree with an explicit indent counter for readable
// output. The teacher's
// two-mode pretty/minified split and source-map emission are dropped —
// this printer exists purely for human-readable stage tracing, so there
// is only one rendering mode and no position tracking to feed a map.
package printer

import (
	"fmt"
	"strings"

	"github.com/saruga/primec/internal/ast"
)

// Printer renders a Program as indented primec source text.
type Printer struct {
	buf    strings.Builder
	indent int
}

// New creates a Printer.
func New() *Printer { return &Printer{} }

// Print renders the full program.
func (p *Printer) Print(prog *ast.Program) string {
	p.buf.Reset()
	for _, path := range prog.Imports {
		p.print("import ")
		p.print(path)
		p.newline()
	}
	for _, def := range prog.Definitions {
		p.printDefinition(def)
	}
	for _, exec := range prog.Executions {
		p.printExecution(exec)
	}
	return p.buf.String()
}

func (p *Printer) print(s string) { p.buf.WriteString(s) }

func (p *Printer) newline() {
	p.buf.WriteByte('\n')
	for i := 0; i < p.indent; i++ {
		p.buf.WriteString("  ")
	}
}

func (p *Printer) printTransforms(ts []*ast.Transform) {
	for _, t := range ts {
		p.print("[")
		p.print(t.Name)
		if len(t.TemplateArgs) > 0 {
			p.print("<" + strings.Join(t.TemplateArgs, ",") + ">")
		}
		if len(t.Arguments) > 0 {
			p.print("(")
			for i, a := range t.Arguments {
				if i > 0 {
					p.print(", ")
				}
				p.printExpr(a)
			}
			p.print(")")
		}
		p.print("] ")
	}
}

func (p *Printer) printDefinition(d *ast.Definition) {
	p.printTransforms(d.Transforms)
	p.print(d.FullPath)
	if len(d.TemplateArgs) > 0 {
		p.print("<" + strings.Join(d.TemplateArgs, ",") + ">")
	}
	if d.Params != nil || !d.IsStruct() {
		p.print("(")
		for i, param := range d.Params {
			if i > 0 {
				p.print(", ")
			}
			p.printExpr(param)
		}
		p.print(")")
	}
	p.print(" {")
	p.indent++
	for _, s := range d.Statements {
		p.newline()
		p.printExpr(s)
	}
	if d.Return != nil {
		p.newline()
		p.print("return(")
		p.printExpr(d.Return)
		p.print(")")
	}
	p.indent--
	p.newline()
	p.print("}")
	p.newline()
}

func (p *Printer) printExecution(e *ast.Execution) {
	p.printTransforms(e.Transforms)
	p.print(e.Path)
	p.print("(")
	for i, a := range e.Args {
		if i > 0 {
			p.print(", ")
		}
		if i < len(e.ArgNames) && e.ArgNames[i] != "" {
			p.print(e.ArgNames[i] + ": ")
		}
		p.printExpr(a)
	}
	p.print(")")
	p.newline()
}

func (p *Printer) printExpr(e *ast.Expr) {
	if e == nil {
		return
	}
	switch e.Kind {
	case ast.ExprLiteral:
		p.print(fmt.Sprintf("%d", e.IntValue))
	case ast.ExprBoolLiteral:
		if e.BoolValue {
			p.print("true")
		} else {
			p.print("false")
		}
	case ast.ExprFloatLiteral:
		p.print(e.FloatText)
	case ast.ExprStringLiteral:
		p.print("\"" + e.StringValue + "\"")
	case ast.ExprName:
		p.print(e.Name)
	case ast.ExprCall:
		p.printCall(e)
	}
}

func (p *Printer) printCall(e *ast.Expr) {
	if e.IsBinding {
		p.print(e.Name)
		p.print("{")
		for _, a := range e.Args {
			p.printExpr(a)
		}
		p.print("}")
		return
	}
	p.printTransforms(e.Transforms)
	p.print(e.Callee)
	if len(e.TemplateArgs) > 0 {
		p.print("<" + strings.Join(e.TemplateArgs, ",") + ">")
	}
	p.print("(")
	for i, a := range e.Args {
		if i > 0 {
			p.print(", ")
		}
		if a.IsBlockEnvelope() && a.Callee == "body" {
			p.print("{ ... }")
			continue
		}
		p.printExpr(a)
	}
	p.print(")")
	for _, be := range e.BodyArguments {
		p.print(" " + be.Callee + "{ ... }")
	}
}
