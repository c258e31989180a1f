package elfinfo

import (
	"bytes"
	"debug/elf"
	"fmt"
)

// Finding is one undefined symbol found in an object.
type Finding struct {
	Path   string
	Symbol string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s contains undefined symbols: %s", f.Path, f.Symbol)
}

type Options struct {
	// DynamicSymbols also scans SHT_DYNSYM sections. By default only
	// SHT_SYMTAB sections are scanned.
	DynamicSymbols bool
}

type Report struct {
	Path string
	// IsElf is false when the buffer was skipped because it is not an ELF
	// object (too short or no ELF magic). All other fields are then zero.
	IsElf        bool
	Class        Class
	Type         elf.Type
	Machine      elf.Machine
	Sections     int
	SymbolTables int
	Findings     []Finding
}

// Scan parses data as a little-endian ELF object and reports every global
// symbol that has no type and no defining section. path is only used to
// label findings and errors.
func Scan(path string, data []byte, opts Options) (*Report, error) {
	v := view{data: data}
	report := &Report{Path: path}

	if v.size() < MinHeaderSize {
		return report, nil
	}
	if !bytes.Equal(data[:len(elf.ELFMAG)], []byte(elf.ELFMAG)) {
		return report, nil
	}

	class, _ := v.u8(elf.EI_CLASS)
	encoding, _ := v.u8(elf.EI_DATA)

	var err error
	switch elf.Class(class) {
	case elf.ELFCLASS32:
		err = checkEncoding(path, encoding)
		if err == nil {
			err = scan(report, v, elf32Layout{}, opts)
		}
	case elf.ELFCLASS64:
		err = checkEncoding(path, encoding)
		if err == nil {
			err = scan(report, v, elf64Layout{}, opts)
		}
	default:
		return nil, formatError(path, -1, ErrInvalidClass, "EI_CLASS is %d, expected %d (32-bit) or %d (64-bit)",
			class, elf.ELFCLASS32, elf.ELFCLASS64)
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

func checkEncoding(path string, encoding uint8) error {
	if elf.Data(encoding) != elf.ELFDATA2LSB {
		return formatError(path, -1, ErrUnsupportedEndianness, "EI_DATA is %v, only %v is supported",
			elf.Data(encoding), elf.ELFDATA2LSB)
	}
	return nil
}

// scan runs the width-independent part of the analysis with the record
// layout of one class.
func scan[L layout](report *Report, v view, l L, opts Options) error {
	path := report.Path

	if end, ok := v.fits(0, 1, l.headerSize()); !ok {
		return rangeError(path, -1, ErrTruncatedHeader, l.class().String()+" header", 0, end, v.size())
	}
	hdr, ok := l.header(v)
	if !ok {
		return rangeError(path, -1, ErrTruncatedHeader, l.class().String()+" header", 0, l.headerSize(), v.size())
	}

	report.IsElf = true
	report.Class = l.class()
	report.Type = hdr.typ
	report.Machine = hdr.machine

	if hdr.shoff == 0 {
		// No section header table.
		return nil
	}
	stride := uint64(hdr.shentsize)
	if stride < l.sectionHeaderSize() {
		return formatError(path, -1, ErrInvalidEntrySize, "e_shentsize is %d, need at least %d",
			hdr.shentsize, l.sectionHeaderSize())
	}

	count := uint64(hdr.shnum)
	if count == 0 {
		// Extended numbering keeps the real count in section 0's sh_size.
		if end, ok := v.fits(hdr.shoff, 1, stride); !ok {
			return rangeError(path, -1, ErrTruncatedSectionTable, "section header table", hdr.shoff, end, v.size())
		}
		zero, _ := l.sectionHeader(v, hdr.shoff)
		count = zero.size
	}
	if end, ok := v.fits(hdr.shoff, count, stride); !ok {
		return rangeError(path, -1, ErrTruncatedSectionTable, "section header table", hdr.shoff, end, v.size())
	}
	report.Sections = int(count)

	// The whole table is in bounds from here on, so section header reads
	// below cannot fail.
	section := func(i uint64) sectionHeader {
		sh, _ := l.sectionHeader(v, hdr.shoff+i*stride)
		return sh
	}

	for i := uint64(1); i < count; i++ {
		sh := section(i)
		if sh.typ != elf.SHT_SYMTAB && !(opts.DynamicSymbols && sh.typ == elf.SHT_DYNSYM) {
			continue
		}
		report.SymbolTables++

		idx := int(i)
		if end, ok := v.fits(sh.offset, 1, sh.size); !ok {
			return rangeError(path, idx, ErrTruncatedSymbolTable, "symbol table", sh.offset, end, v.size())
		}
		if sh.entsize < l.symbolSize() {
			return formatError(path, idx, ErrInvalidEntrySize, "sh_entsize is %d, need at least %d",
				sh.entsize, l.symbolSize())
		}
		if sh.link == 0 || uint64(sh.link) >= count {
			return formatError(path, idx, ErrInvalidLink, "sh_link is %d but there are only %d sections",
				sh.link, count)
		}
		strsh := section(uint64(sh.link))
		strtab, ok := v.sub(strsh.offset, strsh.size)
		if !ok {
			end, _ := v.fits(strsh.offset, 1, strsh.size)
			return rangeError(path, int(sh.link), ErrTruncatedStringTable, "string table", strsh.offset, end, v.size())
		}

		n := sh.size / sh.entsize
		for j := uint64(0); j < n; j++ {
			sym, _ := l.symbol(v, sh.offset+j*sh.entsize)
			if !reportable(sym) {
				continue
			}
			name, ok := strtab.cstring(uint64(sym.name))
			if !ok {
				return formatError(path, int(sh.link), ErrTruncatedStringTable,
					"name of symbol %d in section %d at string offset %d is not terminated within %d bytes",
					j, idx, sym.name, strtab.size())
			}
			report.Findings = append(report.Findings, Finding{Path: path, Symbol: name})
		}
	}
	return nil
}

// reportable reports whether sym is a global reference with no type that no
// section of this object defines.
func reportable(sym symbol) bool {
	return elf.ST_TYPE(sym.info) == elf.STT_NOTYPE &&
		elf.ST_BIND(sym.info) == elf.STB_GLOBAL &&
		sym.shndx == elf.SHN_UNDEF
}
