package scanner

import (
	"context"
	"debug/elf"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termux/find-undef-syms/internal/elftest"
	"github.com/termux/find-undef-syms/internal/loader"
	"github.com/termux/find-undef-syms/pkg/elfinfo"
)

func collect(opts Options) (*Scanner, *[]string) {
	var lines []string
	s := New(opts, func(f elfinfo.Finding) {
		lines = append(lines, f.String())
	}, nil)
	return s, &lines
}

func corrupt(class elf.Class) []byte {
	data := elftest.Build(class, elftest.Undefined("never"))
	binary.LittleEndian.PutUint16(data[elftest.Elf64Shnum:], 500)
	return data
}

func TestScanPathsOrder(t *testing.T) {
	dir := t.TempDir()
	a := elftest.WriteFile(t, dir, "a.o", elftest.Build(elf.ELFCLASS64, elftest.Undefined("foo"), elftest.Undefined("bar")))
	b := elftest.WriteFile(t, dir, "b.o", elftest.Build(elf.ELFCLASS32, elftest.Defined("main"), elftest.Undefined("baz")))
	script := elftest.WriteFile(t, dir, "run.sh", []byte("#!/bin/sh\nexec true\n"))
	empty := elftest.WriteFile(t, dir, "empty", nil)

	s, lines := collect(Options{})
	err := s.ScanPaths(context.Background(), []string{b, script, empty, a})
	require.NoError(t, err)
	assert.Equal(t, []string{
		b + " contains undefined symbols: baz",
		a + " contains undefined symbols: foo",
		a + " contains undefined symbols: bar",
	}, *lines)
}

func TestScanPathsHaltsOnFirstError(t *testing.T) {
	dir := t.TempDir()
	good := elftest.WriteFile(t, dir, "good.o", elftest.Build(elf.ELFCLASS64, elftest.Undefined("foo")))
	bad := elftest.WriteFile(t, dir, "bad.o", corrupt(elf.ELFCLASS64))
	later := elftest.WriteFile(t, dir, "later.o", elftest.Build(elf.ELFCLASS64, elftest.Undefined("bar")))

	s, lines := collect(Options{})
	err := s.ScanPaths(context.Background(), []string{good, bad, later})
	require.ErrorIs(t, err, elfinfo.ErrTruncatedSectionTable)
	assert.Contains(t, err.Error(), bad)
	assert.Equal(t, []string{good + " contains undefined symbols: foo"}, *lines)
}

func TestScanPathsKeepGoing(t *testing.T) {
	dir := t.TempDir()
	bad := elftest.WriteFile(t, dir, "bad.o", corrupt(elf.ELFCLASS64))
	missing := filepath.Join(dir, "missing.o")
	later := elftest.WriteFile(t, dir, "later.o", elftest.Build(elf.ELFCLASS64, elftest.Undefined("bar")))

	s, lines := collect(Options{KeepGoing: true})
	err := s.ScanPaths(context.Background(), []string{bad, missing, later})
	require.Error(t, err)
	assert.ErrorIs(t, err, elfinfo.ErrTruncatedSectionTable)
	assert.ErrorIs(t, err, loader.ErrOpen)
	assert.Equal(t, []string{later + " contains undefined symbols: bar"}, *lines)
}

func TestScanPathsDirectories(t *testing.T) {
	dir := t.TempDir()
	elftest.WriteFile(t, dir, "lib/b.o", elftest.Build(elf.ELFCLASS64, elftest.Undefined("second")))
	elftest.WriteFile(t, dir, "lib/a.o", elftest.Build(elf.ELFCLASS64, elftest.Undefined("first")))
	elftest.WriteFile(t, dir, "README", []byte("not an object file at all, just some text\n"))

	t.Run("recursive", func(t *testing.T) {
		s, lines := collect(Options{Recursive: true})
		require.NoError(t, s.ScanPaths(context.Background(), []string{dir}))
		assert.Equal(t, []string{
			filepath.Join(dir, "lib/a.o") + " contains undefined symbols: first",
			filepath.Join(dir, "lib/b.o") + " contains undefined symbols: second",
		}, *lines)
	})
	t.Run("flat", func(t *testing.T) {
		s, lines := collect(Options{})
		err := s.ScanPaths(context.Background(), []string{dir})
		assert.ErrorIs(t, err, loader.ErrMap)
		assert.Empty(t, *lines)
	})
}

func TestScanFileIsIdempotent(t *testing.T) {
	path := elftest.WriteFile(t, t.TempDir(), "a.o", elftest.Build(elf.ELFCLASS32, elftest.Undefined("foo")))

	for _, mode := range []loader.Mode{loader.ModeReadOnly, loader.ModeReadWrite} {
		s, lines := collect(Options{Mode: mode})
		require.NoError(t, s.ScanFile(path))
		require.NoError(t, s.ScanFile(path))
		assert.Equal(t, []string{
			path + " contains undefined symbols: foo",
			path + " contains undefined symbols: foo",
		}, *lines)
	}
}

func TestScanPathsCancelled(t *testing.T) {
	path := elftest.WriteFile(t, t.TempDir(), "a.o", elftest.Build(elf.ELFCLASS64, elftest.Undefined("foo")))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, lines := collect(Options{})
	err := s.ScanPaths(ctx, []string{path})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, *lines)
}
