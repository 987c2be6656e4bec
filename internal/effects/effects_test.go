package effects

import "testing"

func TestIsSubset(t *testing.T) {
	cases := []struct {
		name  string
		sub   Set
		super Set
		want  bool
	}{
		{"empty subset", Set{}, New("io_out"), true},
		{"exact match", New("io_out"), New("io_out"), true},
		{"missing member", New("io_out", "heap_alloc"), New("io_out"), false},
		{"pathspace family", New("pathspace_notify"), New("pathspace_notify", "io_out"), true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := IsSubset(c.sub, c.super); got != c.want {
				t.Errorf("IsSubset() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestIsKnown(t *testing.T) {
	if !IsKnown("io_out") {
		t.Errorf("io_out should be known")
	}
	if !IsKnown("pathspace_custom") {
		t.Errorf("pathspace_* family should be known")
	}
	if IsKnown("not_a_real_effect") {
		t.Errorf("unknown effect incorrectly accepted")
	}
}

func TestParseDefaultEffects(t *testing.T) {
	if got := ParseDefaultEffects([]string{"default"}); !got.Has("io_out") {
		t.Errorf("expected io_out from default token")
	}
	if got := ParseDefaultEffects([]string{"io_out", "none"}); len(got) != 0 {
		t.Errorf("none should override to empty set, got %v", got)
	}
	if got := ParseDefaultEffects([]string{"io_out", "heap_alloc"}); !got.Has("io_out") || !got.Has("heap_alloc") {
		t.Errorf("expected both literal tokens present, got %v", got)
	}
}
