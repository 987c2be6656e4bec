// Package include expands include<...> directives in source text before
// lexing: textual, version-selective, deduplicated, recursive expansion.
//
// Grounded on the original C++ IncludeResolver (payload scanning loop,
// dedup-by-resolved-path set, multi-pass expansion until no include<
// remains), reworked into idiomatic Go with os.ReadFile and
// filepath/fs.Glob in place of std::filesystem.
package include

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/saruga/primec/internal/semver"
)

// Resolver expands include<...> directives, tracking which absolute
// paths have already been expanded so each is inlined at most once.
type Resolver struct {
	// IncludeRoot is the directory unquoted /path includes are resolved
	// against (the driver's --include-path).
	IncludeRoot string

	expanded map[string]bool
}

// New creates a Resolver rooted at includeRoot (may be empty if the
// source only uses quoted relative/absolute paths).
func New(includeRoot string) *Resolver {
	return &Resolver{IncludeRoot: includeRoot, expanded: map[string]bool{}}
}

// Expand reads inputPath and expands every include<...> directive found
// in it or its transitive includes, returning the fully expanded source.
func (r *Resolver) Expand(inputPath string) (string, error) {
	abs, err := filepath.Abs(inputPath)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %s", inputPath)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %s", abs)
	}
	baseDir := filepath.Dir(abs)
	return r.expandInternal(baseDir, string(content))
}

// ExpandSource expands a source string already in memory, resolving
// relative include paths against baseDir.
func (r *Resolver) ExpandSource(baseDir, source string) (string, error) {
	return r.expandInternal(baseDir, source)
}

func (r *Resolver) expandInternal(baseDir, source string) (string, error) {
	changed := true
	for changed {
		changed = false
		var result strings.Builder
		i := 0
		for i < len(source) {
			if strings.HasPrefix(source[i:], "include<") {
				start := i + len("include<")
				end := strings.IndexByte(source[start:], '>')
				if end < 0 {
					return "", fmt.Errorf("unterminated include<...> directive")
				}
				end += start
				payload := source[start:end]
				paths, version, err := parsePayload(payload)
				if err != nil {
					return "", err
				}
				if len(paths) == 0 {
					return "", fmt.Errorf("include<...> requires at least one quoted path")
				}
				for _, p := range paths {
					resolved, err := r.resolvePath(baseDir, p, version)
					if err != nil {
						return "", err
					}
					if r.expanded[resolved] {
						continue
					}
					includedBytes, err := os.ReadFile(resolved)
					if err != nil {
						return "", fmt.Errorf("failed to read include: %s", resolved)
					}
					r.expanded[resolved] = true
					included, err := r.expandInternal(filepath.Dir(resolved), string(includedBytes))
					if err != nil {
						return "", err
					}
					result.WriteString(included)
					if len(included) > 0 && included[len(included)-1] != '\n' {
						result.WriteByte('\n')
					}
				}
				i = end + 1
				changed = true
				continue
			}
			result.WriteByte(source[i])
			i++
		}
		source = result.String()
	}
	return source, nil
}

// parsePayload parses the comma/whitespace-separated list inside
// include<...>, returning quoted paths (trimmed), unquoted paths that
// begin with "/", and an optional version="X.Y" clause. Other unquoted
// entries are skipped.
func parsePayload(payload string) (paths []string, version string, err error) {
	pos := 0
	n := len(payload)
	for pos < n {
		for pos < n && isSpace(payload[pos]) {
			pos++
		}
		if pos >= n {
			break
		}
		if strings.HasPrefix(payload[pos:], "version=") {
			pos += len("version=")
			if pos < n && payload[pos] == '"' {
				pos++
				end := strings.IndexByte(payload[pos:], '"')
				if end < 0 {
					return nil, "", fmt.Errorf("unterminated version string")
				}
				version = payload[pos : pos+end]
				pos = pos + end + 1
				continue
			}
		}
		if payload[pos] == '"' || payload[pos] == '\'' {
			quote := payload[pos]
			pos++
			end := strings.IndexByte(payload[pos:], quote)
			if end < 0 {
				return nil, "", fmt.Errorf("unterminated include path string")
			}
			path := strings.TrimSpace(payload[pos : pos+end])
			if suffixed(payload, pos+end+1) {
				return nil, "", fmt.Errorf("include path cannot have suffix")
			}
			paths = append(paths, path)
			pos = pos + end + 1
		} else {
			end := pos
			for end < n && payload[end] != ',' && !isSpace(payload[end]) {
				end++
			}
			if payload[pos] == '/' {
				paths = append(paths, payload[pos:end])
			}
			pos = end
		}
		if pos < n && payload[pos] == ',' {
			pos++
		}
	}
	return paths, version, nil
}

// suffixed reports whether an unquoted suffix keyword (utf8/ascii/raw_utf8)
// immediately follows the closing quote at idx.
func suffixed(payload string, idx int) bool {
	rest := payload[idx:]
	for _, kw := range []string{"utf8", "ascii", "raw_utf8"} {
		if strings.HasPrefix(strings.TrimLeft(rest, " \t"), kw) {
			return true
		}
	}
	return false
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

// resolvePath turns an include path into an absolute file path. A path
// beginning with "/" is resolved under IncludeRoot with
// version-directory selection when a version clause is present;
// without one it is taken as an absolute file-system path.
func (r *Resolver) resolvePath(baseDir, path, version string) (string, error) {
	if version != "" && strings.HasPrefix(path, "/") {
		return r.resolveVersioned(path, version)
	}
	if filepath.IsAbs(path) {
		return filepath.Abs(path)
	}
	return filepath.Abs(filepath.Join(baseDir, path))
}

// resolveVersioned picks the newest "X.Y.Z" subdirectory of IncludeRoot
// whose major.minor matches the requested version prefix, then joins
// the requested sub-path inside it.
func (r *Resolver) resolveVersioned(subPath, requested string) (string, error) {
	req, err := semver.Parse(requested)
	if err != nil {
		return "", fmt.Errorf("malformed version %q in include<...>: %v", requested, err)
	}
	entries, err := os.ReadDir(r.IncludeRoot)
	if err != nil {
		return "", fmt.Errorf("failed to read include: %s", r.IncludeRoot)
	}
	var candidates []*semver.Version
	byString := map[string]string{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		v, err := semver.Parse(e.Name())
		if err != nil {
			continue
		}
		if v.MajorMinor() != req.MajorMinor() {
			continue
		}
		candidates = append(candidates, v)
		byString[v.String()] = e.Name()
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("failed to read include: %s (no version matching %s)", subPath, requested)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Less(candidates[j]) })
	newest := candidates[len(candidates)-1]
	dirName := byString[newest.String()]
	rel := strings.TrimPrefix(subPath, "/")
	joined := filepath.Join(r.IncludeRoot, dirName, rel)
	if info, err := os.Stat(joined); err == nil && info.IsDir() {
		joined = filepath.Join(joined, filepath.Base(rel)+".prime")
	} else if _, err := os.Stat(joined); err != nil {
		joined = joined + ".prime"
	}
	return filepath.Abs(joined)
}
