package scanner

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/termux/find-undef-syms/internal/loader"
	"github.com/termux/find-undef-syms/pkg/elfinfo"
)

type Options struct {
	Mode loader.Mode
	// Recursive walks directory arguments instead of rejecting them.
	Recursive bool
	// KeepGoing scans every path even after a fatal error. The errors are
	// joined and returned at the end.
	KeepGoing bool
	Elf       elfinfo.Options
}

// Scanner scans files one at a time and hands every finding to emit in
// discovery order.
type Scanner struct {
	opts      Options
	emit      func(elfinfo.Finding)
	debugFunc func(string, ...interface{})
	errs      []error
}

func New(opts Options, emit func(elfinfo.Finding), debugFunc func(string, ...interface{})) *Scanner {
	if debugFunc == nil {
		debugFunc = func(string, ...interface{}) {}
	}
	return &Scanner{opts: opts, emit: emit, debugFunc: debugFunc}
}

// ScanPaths scans each path in order. Without KeepGoing it stops at the
// first fatal error and returns it.
func (s *Scanner) ScanPaths(ctx context.Context, paths []string) error {
	s.errs = nil
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(s.errs, err)...)
		}

		var err error
		if fi, serr := os.Stat(path); serr == nil && fi.IsDir() && s.opts.Recursive {
			err = s.scanDirTree(ctx, path)
		} else {
			err = s.fail(s.ScanFile(path))
		}
		if err != nil {
			return errors.Join(append(s.errs, err)...)
		}
	}
	return errors.Join(s.errs...)
}

// scanDirTree scans every regular file below rootPath in lexical order.
func (s *Scanner) scanDirTree(ctx context.Context, rootPath string) error {
	return filepath.WalkDir(rootPath, func(path string, file fs.DirEntry, err error) error {
		if err != nil {
			return s.fail(err)
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		if file.IsDir() {
			return nil
		}
		// Skip over all non-regular files, including symlinks. This is a
		// very fast check as it does not require calling stat(2).
		if !file.Type().IsRegular() {
			s.debugFunc("skipping %s (not a regular file)", path)
			return nil
		}
		return s.fail(s.ScanFile(path))
	})
}

// ScanFile maps and scans a single file. Files that are not ELF objects are
// skipped without error.
func (s *Scanner) ScanFile(path string) error {
	var findings []elfinfo.Finding
	err := loader.With(path, s.opts.Mode, func(data []byte) error {
		report, err := elfinfo.Scan(path, data, s.opts.Elf)
		if err != nil {
			return err
		}
		if !report.IsElf {
			s.debugFunc("skipping %s (no ELF magic)", path)
			return nil
		}
		s.debugFunc("%s: %v %v %v, %d sections, %d symbol tables, %d undefined",
			path, report.Class, report.Type, report.Machine, report.Sections, report.SymbolTables, len(report.Findings))
		findings = report.Findings
		return nil
	})
	if errors.Is(err, loader.ErrTooShort) {
		s.debugFunc("skipping %s (%v)", path, err)
		return nil
	}
	if err != nil {
		return err
	}

	for _, f := range findings {
		s.emit(f)
	}
	return nil
}

// fail records err when KeepGoing is set and swallows it; otherwise it is
// returned to stop the batch.
func (s *Scanner) fail(err error) error {
	if err == nil || !s.opts.KeepGoing {
		return err
	}
	s.debugFunc("continuing after error: %v", err)
	s.errs = append(s.errs, err)
	return nil
}
