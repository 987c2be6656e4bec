// Package semver parses the "X.Y[.Z]" version strings used by include
// resolution's version="..." clause and by directory-name version
// selection, via a tiny participle grammar.
//
// Grounded on the participle usage in the guix parser: a struct-tagged
// grammar built once and reused, narrowed here to a three-field numeric
// grammar instead of a full language.
package semver

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Version is a parsed "major.minor[.patch]" version string.
type Version struct {
	Major int    `@Int`
	_     string `"."`
	Minor int    `@Int`
	Patch *int   `("." @Int)?`
}

var versionLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Dot", Pattern: `\.`},
})

var versionParser = participle.MustBuild[Version](
	participle.Lexer(versionLexer),
)

// Parse parses a version string of the form "X.Y" or "X.Y.Z".
func Parse(s string) (*Version, error) {
	v, err := versionParser.ParseString("", s)
	if err != nil {
		return nil, fmt.Errorf("malformed version string %q: %w", s, err)
	}
	return v, nil
}

// String renders the version back to canonical "X.Y.Z" form (patch
// defaults to 0 when absent).
func (v *Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.PatchOrZero())
}

// PatchOrZero returns Patch if present, else 0.
func (v *Version) PatchOrZero() int {
	if v.Patch != nil {
		return *v.Patch
	}
	return 0
}

// MajorMinor reports the "X.Y" prefix, used to match a requested
// version="X.Y" clause against candidate directory names.
func (v *Version) MajorMinor() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Less reports whether v sorts before other (numeric major, minor,
// patch comparison), for picking the newest matching candidate.
func (v *Version) Less(other *Version) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor < other.Minor
	}
	return v.PatchOrZero() < other.PatchOrZero()
}
