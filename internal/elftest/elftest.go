// Package elftest builds small little-endian ELF objects in memory for tests.
package elftest

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Symbol is one entry of the generated .symtab. Entry 0 (the null symbol) is
// always added by Build.
type Symbol struct {
	Name    string
	Bind    elf.SymBind
	Type    elf.SymType
	Section elf.SectionIndex
}

// Undefined returns a global NOTYPE symbol with no defining section.
func Undefined(name string) Symbol {
	return Symbol{Name: name, Bind: elf.STB_GLOBAL, Type: elf.STT_NOTYPE, Section: elf.SHN_UNDEF}
}

// Defined returns a global function symbol defined in section 1.
func Defined(name string) Symbol {
	return Symbol{Name: name, Bind: elf.STB_GLOBAL, Type: elf.STT_FUNC, Section: 1}
}

// Offsets of the header fields tests commonly corrupt.
const (
	Elf32Shoff = 32
	Elf32Shnum = 48
	Elf64Shoff = 40
	Elf64Shnum = 60
)

// Build returns an object of the given class with this layout:
//
//	header | section headers (null, .symtab, .strtab) | .strtab | .symtab
//
// so the section header table always starts right after the file header.
func Build(class elf.Class, syms ...Symbol) []byte {
	strtab := []byte{0}
	names := make([]uint32, len(syms))
	for i, s := range syms {
		names[i] = uint32(len(strtab))
		strtab = append(strtab, s.Name...)
		strtab = append(strtab, 0)
	}

	var ident [elf.EI_NIDENT]byte
	copy(ident[:], elf.ELFMAG)
	ident[elf.EI_CLASS] = byte(class)
	ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	var buf bytes.Buffer
	w := func(v interface{}) {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			panic(err)
		}
	}

	switch class {
	case elf.ELFCLASS32:
		const hsize, shsize, symsize = 52, 40, 16
		shoff := uint32(hsize)
		strOff := shoff + 3*shsize
		symOff := align(strOff+uint32(len(strtab)), 4)
		symSize := uint32(len(syms)+1) * symsize

		w(elf.Header32{
			Ident: ident, Type: uint16(elf.ET_REL), Machine: uint16(elf.EM_386),
			Version: uint32(elf.EV_CURRENT), Shoff: shoff, Ehsize: hsize,
			Shentsize: shsize, Shnum: 3, Shstrndx: uint16(elf.SHN_UNDEF),
		})
		w(elf.Section32{})
		w(elf.Section32{Type: uint32(elf.SHT_SYMTAB), Off: symOff, Size: symSize, Link: 2, Info: 1, Addralign: 4, Entsize: symsize})
		w(elf.Section32{Type: uint32(elf.SHT_STRTAB), Off: strOff, Size: uint32(len(strtab)), Addralign: 1})
		buf.Write(strtab)
		pad(&buf, int(symOff))
		w(elf.Sym32{})
		for i, s := range syms {
			w(elf.Sym32{Name: names[i], Info: elf.ST_INFO(s.Bind, s.Type), Shndx: uint16(s.Section)})
		}
	case elf.ELFCLASS64:
		const hsize, shsize, symsize = 64, 64, 24
		shoff := uint64(hsize)
		strOff := shoff + 3*shsize
		symOff := uint64(align(uint32(strOff)+uint32(len(strtab)), 8))
		symSize := uint64(len(syms)+1) * symsize

		w(elf.Header64{
			Ident: ident, Type: uint16(elf.ET_REL), Machine: uint16(elf.EM_X86_64),
			Version: uint32(elf.EV_CURRENT), Shoff: shoff, Ehsize: hsize,
			Shentsize: shsize, Shnum: 3, Shstrndx: uint16(elf.SHN_UNDEF),
		})
		w(elf.Section64{})
		w(elf.Section64{Type: uint32(elf.SHT_SYMTAB), Off: symOff, Size: symSize, Link: 2, Info: 1, Addralign: 8, Entsize: symsize})
		w(elf.Section64{Type: uint32(elf.SHT_STRTAB), Off: strOff, Size: uint64(len(strtab)), Addralign: 1})
		buf.Write(strtab)
		pad(&buf, int(symOff))
		w(elf.Sym64{})
		for i, s := range syms {
			w(elf.Sym64{Name: names[i], Info: elf.ST_INFO(s.Bind, s.Type), Shndx: uint16(s.Section)})
		}
	default:
		panic("elftest: unsupported class " + class.String())
	}
	return buf.Bytes()
}

// WriteFile writes data to name inside dir and returns the full path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func align(n, a uint32) uint32 {
	return (n + a - 1) &^ (a - 1)
}

func pad(buf *bytes.Buffer, to int) {
	for buf.Len() < to {
		buf.WriteByte(0)
	}
}
