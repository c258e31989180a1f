// Package loader maps object files into memory for scanning.
package loader

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/termux/find-undef-syms/pkg/elfinfo"
)

var (
	// ErrTooShort is returned when a file is smaller than any ELF header. It is not a failure.
	ErrTooShort = errors.New("file too short to be an ELF object")
	ErrOpen     = errors.New("open failed")
	ErrStat     = errors.New("stat failed")
	ErrMap      = errors.New("mmap failed")
	ErrSync     = errors.New("msync failed")
	ErrUnmap    = errors.New("munmap failed")
)

// PathError records an I/O failure on one file. Op is one of the sentinel
// errors above and Err is the underlying OS error.
type PathError struct {
	Op   error
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%v: %s: %v", e.Op, e.Path, e.Err)
}

func (e *PathError) Unwrap() []error {
	return []error{e.Op, e.Err}
}

type Mode int

const (
	// ModeReadOnly maps the file read-only. Nothing is ever written back.
	ModeReadOnly Mode = iota
	// ModeReadWrite opens and maps the file read/write and synchronizes the
	// mapping to storage after a successful scan.
	ModeReadWrite
)

func (m Mode) String() string {
	if m == ModeReadWrite {
		return "read-write"
	}
	return "read-only"
}

// Mapping is an object file mapped into memory. Data must not be used after
// Close.
type Mapping struct {
	Path string
	Data []byte
	mode Mode
	file *os.File
}

// Open maps the file at path. Files shorter than an ELF header are not
// mapped and ErrTooShort is returned.
func Open(path string, mode Mode) (*Mapping, error) {
	flag, prot := os.O_RDONLY, unix.PROT_READ
	if mode == ModeReadWrite {
		flag, prot = os.O_RDWR, unix.PROT_READ|unix.PROT_WRITE
	}

	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, &PathError{Op: ErrOpen, Path: path, Err: unwrapPathErr(err)}
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, &PathError{Op: ErrStat, Path: path, Err: unwrapPathErr(err)}
	}
	if !fi.Mode().IsRegular() {
		_ = f.Close()
		return nil, &PathError{Op: ErrMap, Path: path, Err: fmt.Errorf("not a regular file (%s)", fi.Mode().Type())}
	}
	if fi.Size() < elfinfo.MinHeaderSize {
		_ = f.Close()
		return nil, ErrTooShort
	}
	if int64(int(fi.Size())) != fi.Size() {
		_ = f.Close()
		return nil, &PathError{Op: ErrMap, Path: path, Err: fmt.Errorf("file size %d exceeds address space", fi.Size())}
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), prot, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, &PathError{Op: ErrMap, Path: path, Err: err}
	}
	return &Mapping{Path: path, Data: data, mode: mode, file: f}, nil
}

// Sync writes a read/write mapping back to storage. It is a no-op for
// read-only mappings.
func (m *Mapping) Sync() error {
	if m.mode != ModeReadWrite || m.Data == nil {
		return nil
	}
	if err := unix.Msync(m.Data, unix.MS_SYNC); err != nil {
		return &PathError{Op: ErrSync, Path: m.Path, Err: err}
	}
	return nil
}

// Close unmaps the data and closes the file. It is safe to call more than once.
func (m *Mapping) Close() error {
	var errs []error
	if m.Data != nil {
		if err := unix.Munmap(m.Data); err != nil {
			errs = append(errs, &PathError{Op: ErrUnmap, Path: m.Path, Err: err})
		}
		m.Data = nil
	}
	if m.file != nil {
		if err := m.file.Close(); err != nil {
			errs = append(errs, err)
		}
		m.file = nil
	}
	return errors.Join(errs...)
}

// With maps path, passes its bytes to fn and releases the mapping on every
// return path. A read/write mapping is synchronized only when fn succeeds.
// ErrTooShort is returned without calling fn.
func With(path string, mode Mode, fn func(data []byte) error) (err error) {
	m, err := Open(path, mode)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := m.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := fn(m.Data); err != nil {
		return err
	}
	return m.Sync()
}

func unwrapPathErr(err error) error {
	var pe *os.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}
