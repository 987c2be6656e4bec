// Package diagnostic provides the single error type every compiler
// stage reports through, plus a byte-offset to line/column lookup used
// to annotate those errors with a source position.
//
// Grounded on the teacher's internal/sourcemap/position.go LineIndex,
// trimmed to the lookup primec actually needs: nothing here emits a
// source map, so the UTF-16 column conversion and VLQ encoding that
// existed only to feed a source-map generator are dropped.
package diagnostic

import "fmt"

// Diagnostic is a single reported compiler error, optionally anchored
// to a position in some named source file.
type Diagnostic struct {
	Stage   string // "lex", "parse", "validate", "lower", "emit", ...
	File    string
	Line    int // 1-indexed; 0 if unknown
	Column  int // 1-indexed; 0 if unknown
	Message string
}

func (d *Diagnostic) Error() string {
	if d.File == "" {
		return fmt.Sprintf("%s: %s", d.Stage, d.Message)
	}
	if d.Line == 0 {
		return fmt.Sprintf("%s: %s: %s", d.Stage, d.File, d.Message)
	}
	return fmt.Sprintf("%s: %s:%d:%d: %s", d.Stage, d.File, d.Line, d.Column, d.Message)
}

// New builds a Diagnostic with no known position.
func New(stage, message string) *Diagnostic {
	return &Diagnostic{Stage: stage, Message: message}
}

// At builds a Diagnostic anchored to a byte offset within source,
// resolved to a 1-indexed line/column via a LineIndex.
func At(stage, file, source string, offset int, message string) *Diagnostic {
	idx := NewLineIndex(source)
	line, col := idx.ByteOffsetToLineColumn(offset)
	return &Diagnostic{Stage: stage, File: file, Line: line + 1, Column: col + 1, Message: message}
}

// LineIndex converts byte offsets into 0-indexed line/column pairs.
type LineIndex struct {
	source     string
	lineStarts []int
}

// NewLineIndex precomputes line start offsets for source.
func NewLineIndex(source string) *LineIndex {
	idx := &LineIndex{source: source, lineStarts: []int{0}}
	for i := 0; i < len(source); i++ {
		switch source[i] {
		case '\n':
			if i+1 < len(source) {
				idx.lineStarts = append(idx.lineStarts, i+1)
			}
		case '\r':
			if i+1 < len(source) && source[i+1] == '\n' {
				if i+2 < len(source) {
					idx.lineStarts = append(idx.lineStarts, i+2)
				}
				i++
			} else if i+1 < len(source) {
				idx.lineStarts = append(idx.lineStarts, i+1)
			}
		}
	}
	return idx
}

// LineCount returns the number of lines in the indexed source.
func (idx *LineIndex) LineCount() int {
	return len(idx.lineStarts)
}

// ByteOffsetToLineColumn converts offset to a 0-indexed line and a
// byte-indexed column.
func (idx *LineIndex) ByteOffsetToLineColumn(offset int) (line, col int) {
	if offset < 0 {
		return 0, 0
	}
	if offset >= len(idx.source) {
		if len(idx.source) == 0 {
			return 0, 0
		}
		offset = len(idx.source)
	}

	lo, hi := 0, len(idx.lineStarts)
	for lo < hi {
		mid := (lo + hi) / 2
		if idx.lineStarts[mid] > offset {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	line = lo - 1
	if line < 0 {
		line = 0
	}
	col = offset - idx.lineStarts[line]
	return line, col
}
