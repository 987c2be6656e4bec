package api

import "testing"

func TestCompileAndRunReturn(t *testing.T) {
	code, err := Run(`[return<i32>] main() { return(plus(1i32, 2i32)) }`, Options{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != 3 {
		t.Fatalf("expected 3, got %d", code)
	}
}

func TestCompileProducesModule(t *testing.T) {
	res, err := Compile(`[return<i32>] main() { return(0i32) }`, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Module == nil {
		t.Fatal("expected a non-nil module")
	}
	if res.Module.EntryIndex < 0 || res.Module.EntryIndex >= len(res.Module.Functions) {
		t.Fatalf("entry index %d out of range for %d functions", res.Module.EntryIndex, len(res.Module.Functions))
	}
}

func TestCompileDefaultEntry(t *testing.T) {
	res, err := Compile(`[return<i32>] main() { return(5i32) }`, Options{Entry: ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fn := res.Module.Functions[res.Module.EntryIndex]
	if fn.Name != "/main" {
		t.Fatalf("expected entry /main, got %s", fn.Name)
	}
}

func TestCompileRecursionRejected(t *testing.T) {
	_, err := Compile(`
		loopy(n) { return(loopy(n)) }
		[return<i32>] main() { return(loopy(1i32)) }
	`, Options{})
	if err == nil {
		t.Fatal("expected a lowering error for recursive definition call")
	}
}

func TestCompileInvalidSyntax(t *testing.T) {
	_, err := Compile(`main() { x{@} }`, Options{})
	if err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestResultSerializeRoundTrips(t *testing.T) {
	res, err := Compile(`[return<i32>] main() { return(7i32) }`, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data := res.Serialize()
	if len(data) == 0 {
		t.Fatal("expected non-empty serialized bytes")
	}
}

func TestCompileWithDefaultEffects(t *testing.T) {
	_, err := Compile(`[pathspace_io_out] main() { print_line("hi") }`, Options{
		DefaultEffects: []string{"io_out"},
	})
	if err != nil {
		t.Fatalf("unexpected error with matching default effects: %v", err)
	}
}
