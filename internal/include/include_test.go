package include

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestExpandSimple(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lib.prime", "[return<int>] helper() { return(1i32) }\n")
	main := writeFile(t, dir, "main.prime", `include<"lib.prime">
[return<int>] main() { return(helper()) }
`)
	r := New(dir)
	out, err := r.Expand(main)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if want := "helper"; !contains(out, want) {
		t.Errorf("expected expanded output to contain %q, got %q", want, out)
	}
}

func TestExpandDeduplicates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "common.prime", "[return<int>] common() { return(1i32) }\n")
	writeFile(t, dir, "a.prime", `include<"common.prime">
[return<int>] a() { return(common()) }
`)
	writeFile(t, dir, "b.prime", `include<"common.prime">
[return<int>] b() { return(common()) }
`)
	main := writeFile(t, dir, "main.prime", `include<"a.prime", "b.prime">
[return<int>] main() { return(a()) }
`)
	r := New(dir)
	out, err := r.Expand(main)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if n := countOccurrences(out, "common()"); n != 2 {
		t.Errorf("expected common() called twice (once from a, once from b), each definition appearing once; got %d occurrences of the call site text", n)
	}
	if n := countOccurrences(out, "return<int>] common"); n != 1 {
		t.Errorf("expected common's definition to be expanded exactly once, got %d", n)
	}
}

func TestUnterminatedDirective(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "main.prime", "include<\"x.prime\"\n")
	r := New(dir)
	if _, err := r.Expand(main); err == nil {
		t.Fatalf("expected unterminated directive error")
	}
}

func TestMissingInclude(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "main.prime", `include<"missing.prime">`)
	r := New(dir)
	if _, err := r.Expand(main); err == nil {
		t.Fatalf("expected failed-to-read error")
	}
}

func TestRequiresQuotedPath(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "main.prime", `include<version="1.2">`)
	r := New(dir)
	if _, err := r.Expand(main); err == nil {
		t.Fatalf("expected 'at least one quoted path' error")
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && (func() bool {
		for i := 0; i+len(needle) <= len(haystack); i++ {
			if haystack[i:i+len(needle)] == needle {
				return true
			}
		}
		return false
	})()
}

func countOccurrences(haystack, needle string) int {
	count := 0
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			count++
			i += len(needle) - 1
		}
	}
	return count
}
