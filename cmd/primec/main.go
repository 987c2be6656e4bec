// Command primec compiles primec source into bytecode, C++, ARM64
// machine code, or GLSL, or runs it directly on the bundled bytecode VM.
//
// Usage:
//
//	primec [options] <input.px>
//	cat input.px | primec [options]
//
// Options:
//
//	-o <file>              Write output to file (default: stdout, or run for --emit=vm)
//	--emit <target>        vm (default, run immediately), bytecode, cpp, native, glsl
//	--entry <path>         Entry definition path (default: /main)
//	--include-path <dir>   Root directory for unquoted include<...> paths
//	--default-effects <l>  Comma-separated default effect list, "default", or "none"
//	--text-filters <l>     Comma-separated text filters, or "default"/"none"
//	--no-transforms        Disable all text filters (same as --text-filters=none)
//	--config <file>        Use a specific project file
//	--no-config            Ignore project files
//	--dump-stage <stage>   Print parse|transform and exit (debugging aid)
//	--verbose              Trace each pipeline stage to stderr
//	--version              Print version and exit
//	--help                 Print help and exit
//
// Config file:
//
//	primec searches for primec.toml or .primecrc.toml in the current
//	and parent directories. CLI flags override the project file.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/logutils"

	"github.com/saruga/primec/internal/config"
	"github.com/saruga/primec/internal/cppemit"
	"github.com/saruga/primec/internal/effects"
	"github.com/saruga/primec/internal/glsl"
	"github.com/saruga/primec/internal/include"
	"github.com/saruga/primec/internal/irserial"
	"github.com/saruga/primec/internal/lower"
	"github.com/saruga/primec/internal/native"
	"github.com/saruga/primec/internal/parser"
	"github.com/saruga/primec/internal/printer"
	"github.com/saruga/primec/internal/transform"
	"github.com/saruga/primec/internal/validator"
	"github.com/saruga/primec/internal/vm"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		outputFile    string
		emit          string
		entry         string
		includePath   string
		defaultEffStr string
		textFiltStr   string
		noTransforms  bool
		configFile    string
		noConfig      bool
		dumpStage     string
		verbose       bool
		showVersion   bool
		showHelp      bool
	)

	flag.StringVar(&outputFile, "o", "", "Write output to `file`")
	flag.StringVar(&emit, "emit", "", "Emit target: vm, bytecode, cpp, native, glsl")
	flag.StringVar(&entry, "entry", "", "Entry definition `path` (default /main)")
	flag.StringVar(&includePath, "include-path", "", "Root directory for unquoted include<...> paths")
	flag.StringVar(&defaultEffStr, "default-effects", "", "Comma-separated default effects, \"default\", or \"none\"")
	flag.StringVar(&textFiltStr, "text-filters", "", "Comma-separated text filters, \"default\", or \"none\"")
	flag.BoolVar(&noTransforms, "no-transforms", false, "Disable all text filters")
	flag.StringVar(&configFile, "config", "", "Use a specific project `file`")
	flag.BoolVar(&noConfig, "no-config", false, "Ignore project files")
	flag.StringVar(&dumpStage, "dump-stage", "", "Print the named stage's output and exit: parse, transform")
	flag.BoolVar(&verbose, "verbose", false, "Trace each pipeline stage to stderr")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.BoolVar(&showHelp, "help", false, "Print help and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "primec - primec compiler v%s\n\n", version)
		fmt.Fprintf(os.Stderr, "Usage: primec [options] <input.px>\n")
		fmt.Fprintf(os.Stderr, "       cat input.px | primec [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		return 0
	}
	if showVersion {
		fmt.Printf("primec v%s (%s)\n", version, commit)
		return 0
	}

	logWriter := &logutils.LevelFilter{
		Levels:   []logutils.LogLevel{"DEBUG", "INFO", "ERROR"},
		MinLevel: "INFO",
		Writer:   os.Stderr,
	}
	if verbose {
		logWriter.MinLevel = "DEBUG"
	}
	trace := func(stage, msg string) {
		fmt.Fprintf(logWriter, "[DEBUG] %s: %s\n", stage, msg)
	}

	var source []byte
	var err error
	var inputPath string
	if flag.NArg() > 0 {
		inputPath = flag.Arg(0)
		source, err = os.ReadFile(inputPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: reading input: %v\n", err)
			return vm.ExitHostErr
		}
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) != 0 {
			flag.Usage()
			fmt.Fprintln(os.Stderr, "error: no input file specified")
			return vm.ExitHostErr
		}
		source, err = io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: reading stdin: %v\n", err)
			return vm.ExitHostErr
		}
	}

	var cfg *config.Config
	if !noConfig {
		if configFile != "" {
			cfg, err = config.LoadFile(configFile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: loading config file %s: %v\n", configFile, err)
				return vm.ExitHostErr
			}
		} else {
			startDir, _ := os.Getwd()
			if inputPath != "" {
				startDir = filepath.Dir(inputPath)
			}
			cfg, _, err = config.Load(startDir)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: loading config: %v\n", err)
				return vm.ExitHostErr
			}
		}
	}

	eff := cfg.Merge(config.CLIOverrides{
		Entry:          entry,
		DefaultEffects: splitNonEmpty(defaultEffStr),
		TextFilters:    splitNonEmpty(textFiltStr),
		IncludePath:    includePath,
		Emit:           emit,
		OutDir:         "",
	})

	if eff.Entry == "" {
		eff.Entry = "/main"
	}
	if eff.Emit == "" {
		eff.Emit = "vm"
	}

	trace("include", "expanding include<...> directives")
	baseDir := filepath.Dir(inputPath)
	if baseDir == "" || baseDir == "." {
		baseDir, _ = os.Getwd()
	}
	resolver := include.New(eff.IncludePath)
	expanded, err := resolver.ExpandSource(baseDir, string(source))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return vm.ExitHostErr
	}

	trace("parse", "parsing source")
	prog, err := parser.Parse(expanded)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: parse: %v\n", err)
		return vm.ExitHostErr
	}

	if dumpStage == "parse" {
		fmt.Print(printer.New().Print(prog))
		return 0
	}

	topts := transform.Default()
	if noTransforms {
		topts = transform.Options{}
	} else {
		for _, f := range eff.TextFilters {
			switch f {
			case "implicit-i32":
				topts.ImplicitI32 = true
			case "implicit-utf8":
				topts.ImplicitUTF8 = true
			case "default":
				topts = transform.Default()
			case "none":
				topts = transform.Options{}
			}
		}
	}
	trace("transform", "applying text filters")
	transform.Apply(prog, topts)

	if dumpStage == "transform" {
		fmt.Print(printer.New().Print(prog))
		return 0
	}

	defaultEffects := effects.ParseDefaultEffects(eff.DefaultEffects)

	trace("validate", "running semantic validation")
	if err := validator.Validate(prog, eff.Entry, defaultEffects); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return vm.ExitHostErr
	}

	switch eff.Emit {
	case "vm":
		trace("lower", "lowering to bytecode IR")
		module, err := lower.Lower(prog, eff.Entry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return vm.ExitHostErr
		}
		trace("vm", "executing")
		m := vm.New(module)
		_, err = m.Execute(programArgv())
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return vm.ExitCode(err)
		}
		return vm.ExitOK

	case "bytecode":
		trace("lower", "lowering to bytecode IR")
		module, err := lower.Lower(prog, eff.Entry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return vm.ExitHostErr
		}
		data := irserial.Serialize(module)
		return writeOutput(outputFile, data)

	case "cpp":
		trace("cppemit", "emitting C++ source")
		out, err := cppemit.New(cppemit.Default()).Emit(prog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return vm.ExitHostErr
		}
		return writeOutput(outputFile, []byte(out))

	case "native":
		trace("lower", "lowering to bytecode IR")
		module, err := lower.Lower(prog, eff.Entry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return vm.ExitHostErr
		}
		trace("native", "encoding ARM64 machine code")
		code, err := native.Emit(module)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return vm.ExitHostErr
		}
		return writeOutput(outputFile, code)

	case "glsl":
		trace("glsl", "emitting GLSL source")
		out, err := glsl.New(glsl.Options{}).Emit(prog, eff.Entry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return vm.ExitHostErr
		}
		return writeOutput(outputFile, []byte(out))

	default:
		fmt.Fprintf(os.Stderr, "error: unsupported --emit target: %s (vm, bytecode, cpp, native, glsl)\n", eff.Emit)
		return vm.ExitHostErr
	}
}

// programArgv returns the positional arguments after the input file
// (or all of them, when source came from stdin and no file consumed
// the first slot) for the VM's argv builtin.
func programArgv() []string {
	args := flag.Args()
	if len(args) <= 1 {
		return nil
	}
	return args[1:]
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeOutput(path string, data []byte) int {
	if path == "" {
		os.Stdout.Write(data)
		return 0
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "error: writing output: %v\n", err)
		return vm.ExitHostErr
	}
	return 0
}
