// Package effects defines the fixed runtime-rights vocabulary that
// gates certain builtins (prints, pathspace access, heap allocation,
// GPU queue submission) and the capability subset rule that constrains
// them.
package effects

import "sort"

// Set is a set of effect/capability identifiers.
type Set map[string]bool

// KnownEffects is the fixed vocabulary a Set's members are drawn from.
// IsKnown also accepts any other token with the "pathspace_" prefix.
var KnownEffects = map[string]bool{
	"io_out": true, "io_err": true, "heap_alloc": true,
	"pathspace_notify": true, "pathspace_insert": true, "pathspace_take": true,
	"asset_read": true, "global_write": true,
	"gpu_queue": true, "render_graph": true, "gpu": true,
}

// IsKnown reports whether name is in the fixed effect vocabulary.
func IsKnown(name string) bool {
	if KnownEffects[name] {
		return true
	}
	return len(name) > len("pathspace_") && name[:len("pathspace_")] == "pathspace_"
}

// New builds a Set from a list of effect names.
func New(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = true
	}
	return s
}

// Union returns a new Set containing every member of a and b.
func Union(a, b Set) Set {
	out := make(Set, len(a)+len(b))
	for k := range a {
		out[k] = true
	}
	for k := range b {
		out[k] = true
	}
	return out
}

// IsSubset reports whether every member of sub is also in super.
func IsSubset(sub, super Set) bool {
	for k := range sub {
		if !super[k] {
			return false
		}
	}
	return true
}

// Has reports whether name is active in s.
func (s Set) Has(name string) bool { return s[name] }

// Sorted returns the set's members in sorted order, for deterministic
// error messages.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ParseDefaultEffects interprets the driver's --default-effects list:
// the special token "default" enables io_out, "none" disables all, and
// anything else is treated as a literal effect token.
func ParseDefaultEffects(tokens []string) Set {
	out := make(Set)
	for _, t := range tokens {
		switch t {
		case "default":
			out["io_out"] = true
		case "none":
			return Set{}
		case "":
			// ignore empty entries from trailing commas
		default:
			out[t] = true
		}
	}
	return out
}
