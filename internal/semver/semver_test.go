package semver

import "testing"

func TestParse(t *testing.T) {
	v, err := Parse("1.2.3")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if v.Major != 1 || v.Minor != 2 || v.PatchOrZero() != 3 {
		t.Fatalf("got %+v", v)
	}
	if got, want := v.MajorMinor(), "1.2"; got != want {
		t.Errorf("MajorMinor() = %q, want %q", got, want)
	}
}

func TestParseNoPatch(t *testing.T) {
	v, err := Parse("1.2")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if v.PatchOrZero() != 0 {
		t.Errorf("expected implicit patch 0, got %d", v.PatchOrZero())
	}
	if got, want := v.String(), "1.2.0"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestLess(t *testing.T) {
	a, _ := Parse("1.2.0")
	b, _ := Parse("1.2.3")
	c, _ := Parse("1.3.0")
	if !a.Less(b) {
		t.Errorf("expected 1.2.0 < 1.2.3")
	}
	if !b.Less(c) {
		t.Errorf("expected 1.2.3 < 1.3.0")
	}
	if c.Less(a) {
		t.Errorf("did not expect 1.3.0 < 1.2.0")
	}
}

func TestParseMalformed(t *testing.T) {
	if _, err := Parse("not-a-version"); err == nil {
		t.Errorf("expected error for malformed version string")
	}
}
