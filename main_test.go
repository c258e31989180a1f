package main

import (
	"bytes"
	"context"
	"debug/elf"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termux/find-undef-syms/internal/elftest"
)

func runArgs(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rc := run(context.Background(), append([]string{"--no-color"}, args...), &stdout, &stderr)
	return rc, stdout.String(), stderr.String()
}

func TestRunUsage(t *testing.T) {
	for _, args := range [][]string{nil, {"--help"}, {"-h"}} {
		rc, stdout, _ := runArgs(t, args...)
		assert.Equal(t, 0, rc)
		assert.Contains(t, stdout, "Usage:")
	}

	rc, _, stderr := runArgs(t, "--bogus")
	assert.Equal(t, 2, rc)
	assert.Contains(t, stderr, "Error:")
}

func TestRunVersion(t *testing.T) {
	rc, stdout, _ := runArgs(t, "--version")
	assert.Equal(t, 0, rc)
	assert.True(t, strings.HasPrefix(stdout, "find-undef-syms "))
}

func TestRunReportsUndefinedSymbols(t *testing.T) {
	path := elftest.WriteFile(t, t.TempDir(), "libfoo.so",
		elftest.Build(elf.ELFCLASS64, elftest.Defined("bar"), elftest.Undefined("foo")))

	rc, stdout, stderr := runArgs(t, path)
	assert.Equal(t, 0, rc)
	assert.Equal(t, path+" contains undefined symbols: foo\n", stdout)
	assert.Empty(t, stderr)
}

func TestRunFatalError(t *testing.T) {
	dir := t.TempDir()
	data := elftest.Build(elf.ELFCLASS64, elftest.Undefined("foo"))
	binary.LittleEndian.PutUint16(data[elftest.Elf64Shnum:], 100)
	bad := elftest.WriteFile(t, dir, "bad.o", data)
	good := elftest.WriteFile(t, dir, "good.o", elftest.Build(elf.ELFCLASS32, elftest.Undefined("bar")))

	rc, stdout, stderr := runArgs(t, bad, good)
	require.Equal(t, 1, rc)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Error: "+bad)
	assert.Contains(t, stderr, "would end at byte 6464 but file size is only")

	rc, stdout, stderr = runArgs(t, "--keep-going", bad, good, dir+"/missing")
	require.Equal(t, 1, rc)
	assert.Equal(t, good+" contains undefined symbols: bar\n", stdout)
	assert.Equal(t, 2, strings.Count(stderr, "Error:"))
}

func TestRunDebug(t *testing.T) {
	path := elftest.WriteFile(t, t.TempDir(), "notes.txt", []byte(strings.Repeat("plain text ", 10)))

	rc, stdout, stderr := runArgs(t, "--debug", path)
	assert.Equal(t, 0, rc)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "[DEBUG] skipping "+path)
}
