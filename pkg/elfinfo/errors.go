package elfinfo

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidClass is returned when EI_CLASS is neither ELFCLASS32 nor ELFCLASS64.
	ErrInvalidClass = errors.New("invalid ELF class")
	// ErrUnsupportedEndianness is returned for any data encoding other than little-endian.
	ErrUnsupportedEndianness = errors.New("unsupported endianness")
	// ErrTruncatedHeader is returned when the file header does not fit in the file.
	ErrTruncatedHeader = errors.New("truncated ELF header")
	// ErrTruncatedSectionTable is returned when the section header table extends past the end of the file.
	ErrTruncatedSectionTable = errors.New("truncated section header table")
	// ErrTruncatedSymbolTable is returned when a symbol table's data extends past the end of the file.
	ErrTruncatedSymbolTable = errors.New("truncated symbol table")
	// ErrTruncatedStringTable is returned when a symbol name cannot be read from its string table.
	ErrTruncatedStringTable = errors.New("truncated string table")
	// ErrInvalidEntrySize is returned when a table declares a record size too small for its class.
	ErrInvalidEntrySize = errors.New("invalid entry size")
	// ErrInvalidLink is returned when a symbol table links to a section that does not exist.
	ErrInvalidLink = errors.New("invalid section link")
)

// FormatError describes a structural problem found while scanning an object.
// Err is one of the sentinel errors above.
type FormatError struct {
	Path string
	// Section is the index of the offending section, or -1 if the problem
	// is not tied to a section.
	Section int
	// Off and End delimit the byte range that was being validated. Size is
	// the length of the file. They are zero when the error is not about a range.
	Off, End, Size uint64
	Err            error
	msg            string
}

func (e *FormatError) Error() string {
	if e.Section >= 0 {
		return fmt.Sprintf("%s: section %d: %v: %s", e.Path, e.Section, e.Err, e.msg)
	}
	return fmt.Sprintf("%s: %v: %s", e.Path, e.Err, e.msg)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Overrun returns how many bytes the offending range extends past the end of
// the file, or 0 when the error is not about a range.
func (e *FormatError) Overrun() uint64 {
	if e.End <= e.Size {
		return 0
	}
	return e.End - e.Size
}

func formatError(path string, section int, err error, format string, a ...interface{}) *FormatError {
	return &FormatError{
		Path:    path,
		Section: section,
		Err:     err,
		msg:     fmt.Sprintf(format, a...),
	}
}

// rangeError reports that [off, end) does not fit in a file of the given size.
func rangeError(path string, section int, err error, what string, off, end, size uint64) *FormatError {
	e := formatError(path, section, err, "%s at byte %d would end at byte %d but file size is only %d (%d bytes past end)",
		what, off, end, size, end-size)
	if end == ^uint64(0) {
		e.msg = fmt.Sprintf("%s at byte %d overflows the file offset range (file size is %d)", what, off, size)
	}
	e.Off, e.End, e.Size = off, end, size
	return e
}
