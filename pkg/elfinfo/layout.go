package elfinfo

import (
	"debug/elf"
)

// Class is the object width read from EI_CLASS.
type Class byte

const (
	ThirtyTwoBit = Class(elf.ELFCLASS32)
	SixtyFourBit = Class(elf.ELFCLASS64)
)

func (c Class) String() string {
	switch c {
	case ThirtyTwoBit:
		return "ELF32"
	case SixtyFourBit:
		return "ELF64"
	default:
		return elf.Class(c).String()
	}
}

// Record sizes. The smallest possible file header is the 32-bit one, so
// anything shorter cannot be an ELF object.
const (
	elf32HeaderSize        = 52
	elf32SectionHeaderSize = 40
	elf32SymbolSize        = 16

	elf64HeaderSize        = 64
	elf64SectionHeaderSize = 64
	elf64SymbolSize        = 24

	MinHeaderSize = elf32HeaderSize
)

// Width-independent projections of the records the scanner needs.
type header struct {
	typ       elf.Type
	machine   elf.Machine
	shoff     uint64
	shentsize uint16
	shnum     uint16
}

type sectionHeader struct {
	typ     elf.SectionType
	offset  uint64
	size    uint64
	link    uint32
	entsize uint64
}

type symbol struct {
	name  uint32
	info  uint8
	shndx elf.SectionIndex
}

// layout describes one ELF class: its record sizes and how to decode each
// record from a view. Decoders report false if the record does not fit.
type layout interface {
	class() Class
	headerSize() uint64
	sectionHeaderSize() uint64
	symbolSize() uint64
	header(v view) (header, bool)
	sectionHeader(v view, off uint64) (sectionHeader, bool)
	symbol(v view, off uint64) (symbol, bool)
}

type elf32Layout struct{}

func (elf32Layout) class() Class { return ThirtyTwoBit }
func (elf32Layout) headerSize() uint64 { return elf32HeaderSize }
func (elf32Layout) sectionHeaderSize() uint64 { return elf32SectionHeaderSize }
func (elf32Layout) symbolSize() uint64 { return elf32SymbolSize }

func (elf32Layout) header(v view) (header, bool) {
	r := newFieldReader(v, 0)
	h := header{
		typ:       elf.Type(r.u16(16)),
		machine:   elf.Machine(r.u16(18)),
		shoff:     uint64(r.u32(32)),
		shentsize: r.u16(46),
		shnum:     r.u16(48),
	}
	return h, r.ok
}

func (elf32Layout) sectionHeader(v view, off uint64) (sectionHeader, bool) {
	r := newFieldReader(v, off)
	sh := sectionHeader{
		typ:     elf.SectionType(r.u32(4)),
		offset:  uint64(r.u32(16)),
		size:    uint64(r.u32(20)),
		link:    r.u32(24),
		entsize: uint64(r.u32(36)),
	}
	return sh, r.ok
}

func (elf32Layout) symbol(v view, off uint64) (symbol, bool) {
	r := newFieldReader(v, off)
	s := symbol{
		name:  r.u32(0),
		info:  r.u8(12),
		shndx: elf.SectionIndex(r.u16(14)),
	}
	return s, r.ok
}

type elf64Layout struct{}

func (elf64Layout) class() Class { return SixtyFourBit }
func (elf64Layout) headerSize() uint64 { return elf64HeaderSize }
func (elf64Layout) sectionHeaderSize() uint64 { return elf64SectionHeaderSize }
func (elf64Layout) symbolSize() uint64 { return elf64SymbolSize }

func (elf64Layout) header(v view) (header, bool) {
	r := newFieldReader(v, 0)
	h := header{
		typ:       elf.Type(r.u16(16)),
		machine:   elf.Machine(r.u16(18)),
		shoff:     r.u64(40),
		shentsize: r.u16(58),
		shnum:     r.u16(60),
	}
	return h, r.ok
}

func (elf64Layout) sectionHeader(v view, off uint64) (sectionHeader, bool) {
	r := newFieldReader(v, off)
	sh := sectionHeader{
		typ:     elf.SectionType(r.u32(4)),
		offset:  r.u64(24),
		size:    r.u64(32),
		link:    r.u32(40),
		entsize: r.u64(56),
	}
	return sh, r.ok
}

func (elf64Layout) symbol(v view, off uint64) (symbol, bool) {
	r := newFieldReader(v, off)
	s := symbol{
		name:  r.u32(0),
		info:  r.u8(4),
		shndx: elf.SectionIndex(r.u16(6)),
	}
	return s, r.ok
}
