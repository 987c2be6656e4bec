package parser

import (
	"testing"

	"github.com/saruga/primec/internal/ast"
)

func TestParseMainReturnPlus(t *testing.T) {
	prog, err := Parse(`[return<i32>] main() { return(plus(1i32, 2i32)) }`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(prog.Definitions) != 1 {
		t.Fatalf("expected 1 definition, got %d", len(prog.Definitions))
	}
	def := prog.Definitions[0]
	if def.FullPath != "/main" {
		t.Fatalf("expected /main, got %s", def.FullPath)
	}
	if def.Return == nil || def.Return.Callee != "plus" {
		t.Fatalf("expected return(plus(...)), got %+v", def.Return)
	}
	if len(def.Transforms) != 1 || def.Transforms[0].Name != "return" {
		t.Fatalf("expected return transform, got %+v", def.Transforms)
	}
}

func TestParseInfixArithmetic(t *testing.T) {
	prog, err := Parse(`main() { x{1i32 + 2i32 * 3i32} }`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	def := prog.Definitions[0]
	if len(def.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(def.Statements))
	}
	binding := def.Statements[0]
	if !binding.IsBinding || binding.Name != "x" {
		t.Fatalf("expected binding x, got %+v", binding)
	}
	init := binding.Args[0]
	if init.Callee != "plus" {
		t.Fatalf("expected top-level plus (lower precedence), got %s", init.Callee)
	}
	rhs := init.Args[1]
	if rhs.Callee != "multiply" {
		t.Fatalf("expected nested multiply, got %s", rhs.Callee)
	}
}

func TestParseIfElse(t *testing.T) {
	prog, err := Parse(`main() {
		if (true) {
			x{1i32}
		} else {
			x{2i32}
		}
	}`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	stmt := prog.Definitions[0].Statements[0]
	if stmt.Callee != "if" {
		t.Fatalf("expected if call, got %s", stmt.Callee)
	}
	if len(stmt.BodyArguments) != 2 {
		t.Fatalf("expected then/else envelopes, got %d", len(stmt.BodyArguments))
	}
	if stmt.BodyArguments[0].Callee != "then" || stmt.BodyArguments[1].Callee != "else" {
		t.Fatalf("expected then/else callees, got %s/%s", stmt.BodyArguments[0].Callee, stmt.BodyArguments[1].Callee)
	}
	if len(stmt.BodyArguments[1].BodyArguments) != 1 {
		t.Fatalf("expected else body populated, got %d stmts", len(stmt.BodyArguments[1].BodyArguments))
	}
}

func TestParseIfNoElse(t *testing.T) {
	prog, err := Parse(`main() {
		if (true) {
			x{1i32}
		}
	}`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	stmt := prog.Definitions[0].Statements[0]
	elseEnv := stmt.BodyArguments[1]
	if elseEnv.Callee != "else" {
		t.Fatalf("expected else envelope present, got %s", elseEnv.Callee)
	}
	if len(elseEnv.BodyArguments) != 0 {
		t.Fatalf("expected empty else body for omitted else, got %d", len(elseEnv.BodyArguments))
	}
}

func TestParseWhileLoop(t *testing.T) {
	prog, err := Parse(`main() {
		while (less_than(i, 10i32)) {
			increment(i)
		}
	}`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	stmt := prog.Definitions[0].Statements[0]
	if stmt.Callee != "while" {
		t.Fatalf("expected while call, got %s", stmt.Callee)
	}
	if len(stmt.Args) != 2 {
		t.Fatalf("expected [cond, body] args, got %d", len(stmt.Args))
	}
	if stmt.Args[1].Callee != "body" {
		t.Fatalf("expected body envelope as second arg, got %s", stmt.Args[1].Callee)
	}
}

func TestParseForLoop(t *testing.T) {
	prog, err := Parse(`main() {
		for (i{0i32}, less_than(i, 10i32), increment(i)) {
			noop()
		}
	}`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	stmt := prog.Definitions[0].Statements[0]
	if stmt.Callee != "for" {
		t.Fatalf("expected for call, got %s", stmt.Callee)
	}
	if len(stmt.Args) != 4 {
		t.Fatalf("expected 4 args (init,cond,step,body), got %d", len(stmt.Args))
	}
	if stmt.Args[3].Callee != "body" {
		t.Fatalf("expected body envelope as 4th arg, got %s", stmt.Args[3].Callee)
	}
}

func TestParseMethodCallSugar(t *testing.T) {
	prog, err := Parse(`main() { x{v.length()} }`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	init := prog.Definitions[0].Statements[0].Args[0]
	if init.Callee != "length" || !init.IsMethodCall {
		t.Fatalf("expected method call length, got %+v", init)
	}
	if len(init.Args) != 1 || init.Args[0].Name != "v" {
		t.Fatalf("expected receiver v as first arg, got %+v", init.Args)
	}
}

func TestParseIndexSugar(t *testing.T) {
	prog, err := Parse(`main() { x{arr[0i32]} }`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	init := prog.Definitions[0].Statements[0].Args[0]
	if init.Callee != "at" {
		t.Fatalf("expected at(...), got %s", init.Callee)
	}
}

func TestParseNestedDefinitionHoisting(t *testing.T) {
	prog, err := Parse(`main() {
		helper(n) { return(plus(n, 1i32)) }
		x{helper(1i32)}
	}`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(prog.Definitions) != 2 {
		t.Fatalf("expected main + hoisted helper, got %d", len(prog.Definitions))
	}
	var found bool
	for _, d := range prog.Definitions {
		if d.FullPath == "/main/helper" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected hoisted definition /main/helper, got %+v", prog.Definitions)
	}
	main := prog.Definitions[0]
	if len(main.Statements) != 1 {
		t.Fatalf("expected nested def not left as a statement, got %d statements", len(main.Statements))
	}
}

func TestParseImport(t *testing.T) {
	prog, err := Parse(`import /lib/math
	main() { return(0i32) }`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(prog.Imports) != 1 || prog.Imports[0] != "/lib/math" {
		t.Fatalf("expected import /lib/math, got %v", prog.Imports)
	}
}

func TestParseEffectTransformOnExecution(t *testing.T) {
	prog, err := Parse(`[pathspace_io_out] print_line("hi")`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(prog.Executions) != 1 {
		t.Fatalf("expected 1 execution, got %d", len(prog.Executions))
	}
	exec := prog.Executions[0]
	if exec.Path != "/print_line" {
		t.Fatalf("expected /print_line, got %s", exec.Path)
	}
	if len(exec.Transforms) != 1 || exec.Transforms[0].Name != "pathspace_io_out" {
		t.Fatalf("expected pathspace_io_out transform, got %+v", exec.Transforms)
	}
	if len(exec.Args) != 1 || exec.Args[0].Kind != ast.ExprStringLiteral {
		t.Fatalf("expected string literal arg, got %+v", exec.Args)
	}
}

func TestParseLambda(t *testing.T) {
	prog, err := Parse(`main() { f{[x]() { return(x) }} }`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	binding := prog.Definitions[0].Statements[0]
	lambda := binding.Args[0]
	if !lambda.IsLambda {
		t.Fatalf("expected lambda, got %+v", lambda)
	}
	if len(lambda.LambdaCapture) != 1 || lambda.LambdaCapture[0] != "x" {
		t.Fatalf("expected capture [x], got %v", lambda.LambdaCapture)
	}
}

func TestParseUnknownTokenError(t *testing.T) {
	_, err := Parse(`main() { x{@} }`)
	if err == nil {
		t.Fatalf("expected parse error for unexpected token")
	}
}
