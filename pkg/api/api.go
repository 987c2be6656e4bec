// Package api provides the public API for the primec compiler, for
// programmatic use. For CLI usage, see cmd/primec.
package api

import (
	"github.com/saruga/primec/internal/effects"
	"github.com/saruga/primec/internal/include"
	"github.com/saruga/primec/internal/ir"
	"github.com/saruga/primec/internal/irserial"
	"github.com/saruga/primec/internal/lower"
	"github.com/saruga/primec/internal/parser"
	"github.com/saruga/primec/internal/transform"
	"github.com/saruga/primec/internal/validator"
	"github.com/saruga/primec/internal/vm"
)

// Options controls compilation behavior.
type Options struct {
	// Entry is the fully-qualified definition path to compile as the
	// single entry function. Defaults to "/main".
	Entry string

	// IncludePath is the root directory unquoted include<...> paths
	// resolve against.
	IncludePath string

	// BaseDir is the directory relative include<...> paths resolve
	// against. Defaults to the current working directory.
	BaseDir string

	// DefaultEffects are the effects active at the entry call with no
	// enclosing caller to inherit from.
	DefaultEffects []string

	// ImplicitI32 and ImplicitUTF8 select which text filters run.
	// ImplicitUTF8 is on by default unless DisableTransforms is set.
	ImplicitI32       bool
	ImplicitUTF8      bool
	DisableTransforms bool
}

// defaulted fills in zero-value fields with their CLI defaults.
func (o Options) defaulted() Options {
	if o.Entry == "" {
		o.Entry = "/main"
	}
	if !o.DisableTransforms {
		o.ImplicitUTF8 = true
	}
	return o
}

// Result holds a successfully lowered module, ready to execute or
// serialize.
type Result struct {
	Module *ir.Module
}

// Compile runs the full front end (include expansion, parse, text
// transforms, semantic validation) and the IR lowerer over source,
// returning the lowered module or the first diagnostic encountered.
func Compile(source string, opts Options) (*Result, error) {
	opts = opts.defaulted()

	baseDir := opts.BaseDir
	resolver := include.New(opts.IncludePath)
	expanded, err := resolver.ExpandSource(baseDir, source)
	if err != nil {
		return nil, err
	}

	prog, err := parser.Parse(expanded)
	if err != nil {
		return nil, err
	}

	transform.Apply(prog, transform.Options{
		ImplicitI32:  opts.ImplicitI32,
		ImplicitUTF8: opts.ImplicitUTF8,
	})

	defaultEffects := effects.ParseDefaultEffects(opts.DefaultEffects)
	if err := validator.Validate(prog, opts.Entry, defaultEffects); err != nil {
		return nil, err
	}

	module, err := lower.Lower(prog, opts.Entry)
	if err != nil {
		return nil, err
	}

	return &Result{Module: module}, nil
}

// Run compiles source and executes it immediately on the bundled
// bytecode VM, returning the entry function's raw return value.
func Run(source string, opts Options, argv []string) (uint64, error) {
	res, err := Compile(source, opts)
	if err != nil {
		return 0, err
	}
	m := vm.New(res.Module)
	return m.Execute(argv)
}

// Serialize encodes a compiled Result to the binary IR format consumed
// by cmd/primec-vm.
func (r *Result) Serialize() []byte {
	return irserial.Serialize(r.Module)
}
