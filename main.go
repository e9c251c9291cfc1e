package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const versionString = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

// run parses flags and drives one compilation, returning the process exit
// code. Split out from main so it never calls os.Exit directly, keeping
// exit-code decisions at the single call site in main().
func run(args []string) int {
	fs := flag.NewFlagSet("tcc64", flag.ContinueOnError)

	var output, outputLong string
	var compileOnly bool
	var verbose, verboseLong bool
	var showVersion, showVersionLong bool

	fs.StringVar(&output, "o", "", "output file path")
	fs.StringVar(&outputLong, "output", "", "output file path (long form)")
	fs.BoolVar(&compileOnly, "c", false, "compile only (object output is not supported; still produces a PE image)")
	fs.BoolVar(&verbose, "v", false, "enable verbose diagnostics")
	fs.BoolVar(&verboseLong, "verbose", false, "enable verbose diagnostics (long form)")
	fs.BoolVar(&showVersion, "V", false, "print the version and exit")
	fs.BoolVar(&showVersionLong, "version", false, "print the version and exit (long form)")

	fs.Usage = func() { printUsage(fs) }

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if showVersion || showVersionLong {
		fmt.Printf("tcc64 version %s\n", versionString)
		return 0
	}

	rest := fs.Args()
	if len(rest) != 1 {
		printUsage(fs)
		return 1
	}
	input := rest[0]

	cfg := LoadConfig()
	if verbose || verboseLong {
		cfg.Verbose = true
	}

	out := output
	if out == "" {
		out = outputLong
	}
	if out == "" {
		out = deriveOutputName(input, compileOnly)
	}

	if err := CompileFile(input, out, cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if cfg.Verbose {
		fmt.Printf("wrote %s\n", out)
	}
	return 0
}

// deriveOutputName strips input's extension and appends .exe (or .obj
// under -c), matching original_source/src/tcc.c's main() default-name
// derivation (there via strrchr('.'); here via filepath/strings).
func deriveOutputName(input string, compileOnly bool) string {
	ext := filepath.Ext(input)
	base := strings.TrimSuffix(input, ext)
	if compileOnly {
		return base + ".obj"
	}
	return base + ".exe"
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintln(os.Stderr, "Tiny C Compiler (Windows x64, PE32+ output)")
	fmt.Fprintln(os.Stderr, "usage: tcc64 [-o output] [-c] [-v|--verbose] [-V|--version] input.c")
	fs.PrintDefaults()
}
