package elfinfo

import (
	"bytes"
	"encoding/binary"
	"math/bits"
)

// view is a read-only window over an object's bytes. Every accessor checks
// that the requested range lies inside the window before touching it.
type view struct {
	data []byte
}

func (v view) size() uint64 {
	return uint64(len(v.data))
}

// span returns off + count*stride, reporting false on overflow.
func span(off, count, stride uint64) (uint64, bool) {
	hi, n := bits.Mul64(count, stride)
	if hi != 0 {
		return 0, false
	}
	end, carry := bits.Add64(off, n, 0)
	if carry != 0 {
		return 0, false
	}
	return end, true
}

// fits reports whether [off, off+count*stride) lies inside the view and
// returns the end offset. On overflow the end is saturated.
func (v view) fits(off, count, stride uint64) (uint64, bool) {
	end, ok := span(off, count, stride)
	if !ok {
		return ^uint64(0), false
	}
	return end, end <= v.size()
}

func (v view) slice(off, n uint64) ([]byte, bool) {
	end, ok := v.fits(off, n, 1)
	if !ok {
		return nil, false
	}
	return v.data[off:end], true
}

func (v view) sub(off, n uint64) (view, bool) {
	b, ok := v.slice(off, n)
	return view{data: b}, ok
}

func (v view) u8(off uint64) (uint8, bool) {
	b, ok := v.slice(off, 1)
	if !ok {
		return 0, false
	}
	return b[0], true
}

func (v view) u16(off uint64) (uint16, bool) {
	b, ok := v.slice(off, 2)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint16(b), true
}

func (v view) u32(off uint64) (uint32, bool) {
	b, ok := v.slice(off, 4)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b), true
}

func (v view) u64(off uint64) (uint64, bool) {
	b, ok := v.slice(off, 8)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint64(b), true
}

// cstring returns the NUL-terminated string starting at off. The terminator
// must lie inside the view.
func (v view) cstring(off uint64) (string, bool) {
	if off >= v.size() {
		return "", false
	}
	rest := v.data[off:]
	i := bytes.IndexByte(rest, 0)
	if i < 0 {
		return "", false
	}
	return string(rest[:i]), true
}

// fieldReader reads fixed-offset fields of one record. The first failed read
// sticks and every later read returns zero.
type fieldReader struct {
	v    view
	base uint64
	ok   bool
}

func newFieldReader(v view, base uint64) *fieldReader {
	return &fieldReader{v: v, base: base, ok: true}
}

func (r *fieldReader) at(rel uint64) (uint64, bool) {
	off, carry := bits.Add64(r.base, rel, 0)
	return off, carry == 0
}

func (r *fieldReader) u8(rel uint64) uint8 {
	if !r.ok {
		return 0
	}
	off, ok := r.at(rel)
	if !ok {
		r.ok = false
		return 0
	}
	x, ok := r.v.u8(off)
	r.ok = ok
	return x
}

func (r *fieldReader) u16(rel uint64) uint16 {
	if !r.ok {
		return 0
	}
	off, ok := r.at(rel)
	if !ok {
		r.ok = false
		return 0
	}
	x, ok := r.v.u16(off)
	r.ok = ok
	return x
}

func (r *fieldReader) u32(rel uint64) uint32 {
	if !r.ok {
		return 0
	}
	off, ok := r.at(rel)
	if !ok {
		r.ok = false
		return 0
	}
	x, ok := r.v.u32(off)
	r.ok = ok
	return x
}

func (r *fieldReader) u64(rel uint64) uint64 {
	if !r.ok {
		return 0
	}
	off, ok := r.at(rel)
	if !ok {
		r.ok = false
		return 0
	}
	x, ok := r.v.u64(off)
	r.ok = ok
	return x
}
