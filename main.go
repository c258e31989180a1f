package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/termux/find-undef-syms/internal/loader"
	"github.com/termux/find-undef-syms/internal/scanner"
	"github.com/termux/find-undef-syms/internal/version"
	"github.com/termux/find-undef-syms/pkg/elfinfo"
)

var failure = color.New(color.Bold, color.FgRed).SprintfFunc()

type config struct {
	debugEnabled bool
	noColor      bool
	help         bool
	showVersion  bool
	keepGoing    bool
	recursive    bool
	dynsym       bool
	readWrite    bool
}

func usage(fd io.Writer, err error) {
	if err != nil {
		fmt.Fprintf(fd, "Error: %v\n\n", err)
	}

	fmt.Fprintf(fd, `Usage: %[1]s [OPTION-OR-FILENAME]...

Processes ELF files and checks for undefined symbols that would
otherwise cause runtime errors.

Options:
  --help         display this help and exit
  --version      output version information and exit
  --debug        enable debug output
  --no-color     disable colored output
  --keep-going   scan every file even after a fatal error
  --recursive    scan files inside directory arguments
  --dynsym       also scan dynamic symbol tables (.dynsym)
  --rw           open files read/write and write the mapping back after scanning
`, filepath.Base(os.Args[0]))
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var cfg config
	fs := flag.NewFlagSet(filepath.Base(os.Args[0]), flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(&cfg.debugEnabled, "debug", false, "Enable debug output")
	fs.BoolVar(&cfg.noColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&cfg.help, "help", false, "Show help")
	fs.BoolVar(&cfg.showVersion, "version", false, "Show version")
	fs.BoolVar(&cfg.keepGoing, "keep-going", false, "Continue after fatal errors")
	fs.BoolVar(&cfg.recursive, "recursive", false, "Walk directories")
	fs.BoolVar(&cfg.dynsym, "dynsym", false, "Scan .dynsym too")
	fs.BoolVar(&cfg.readWrite, "rw", false, "Map files read/write")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			usage(stdout, nil)
			return 0
		}
		usage(stderr, err)
		return 2
	}

	if cfg.noColor {
		color.NoColor = true
	}

	if cfg.help || (fs.NArg() == 0 && !cfg.showVersion) {
		usage(stdout, nil)
		return 0
	}
	if cfg.showVersion {
		version.Print(stdout)
		return 0
	}

	debug := func(format string, a ...interface{}) {
		if cfg.debugEnabled {
			fmt.Fprintf(stderr, "[DEBUG] "+format+"\n", a...)
		}
	}

	opts := scanner.Options{
		Mode:      loader.ModeReadOnly,
		Recursive: cfg.recursive,
		KeepGoing: cfg.keepGoing,
		Elf:       elfinfo.Options{DynamicSymbols: cfg.dynsym},
	}
	if cfg.readWrite {
		opts.Mode = loader.ModeReadWrite
	}
	debug("scanning %d path(s), %s mapping", fs.NArg(), opts.Mode)

	s := scanner.New(opts, func(f elfinfo.Finding) {
		fmt.Fprintln(stdout, f)
	}, debug)
	if err := s.ScanPaths(ctx, fs.Args()); err != nil {
		errs := []error{err}
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			errs = joined.Unwrap()
		}
		for _, e := range errs {
			fmt.Fprintf(stderr, "%s %v\n", failure("Error:"), e)
		}
		return 1
	}
	return 0
}
