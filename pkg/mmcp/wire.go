package mmcp

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

// writer accumulates an MMCP body. Every Put method is total: there is no
// way to fail while encoding a well-formed Go value, matching the
// encode(msg) -> bytes contract.
type writer struct {
	buf []byte
}

func newWriter() *writer { return &writer{buf: make([]byte, 0, 64)} }

func (w *writer) bytes() []byte { return w.buf }

func (w *writer) u8(v uint8) { w.buf = append(w.buf, v) }

func (w *writer) bool(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *writer) u16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) u32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) i32(v int32) { w.u32(uint32(v)) }

func (w *writer) i64(v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) f32(v float32) { w.u32(math.Float32bits(v)) }

func (w *writer) str(s string) {
	w.u32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *writer) enum32(v int32) { w.i32(v) }

// enumOrNone32 encodes an optional ordinal: -1 means absent.
func (w *writer) enumOrNone32(v int32, present bool) {
	if !present {
		w.i32(-1)
		return
	}
	w.i32(v)
}

func (w *writer) strSlice(ss []string) {
	w.u32(uint32(len(ss)))
	for _, s := range ss {
		w.str(s)
	}
}

func (w *writer) i32Slice(xs []int32) {
	w.u32(uint32(len(xs)))
	for _, x := range xs {
		w.i32(x)
	}
}

func (w *writer) enum32Slice(xs []int32) {
	w.u32(uint32(len(xs)))
	for _, x := range xs {
		w.i32(x)
	}
}

// reader consumes an MMCP body. Every Get method returns a wrapped
// sentinel error on short input; none of them panic.
type reader struct {
	buf []byte
	pos int
}

func newReader(b []byte) *reader { return &reader{buf: b} }

// remaining reports how many bytes are left to consume. Used by the
// ORIGINATOR decoder to treat trailing fields as optional.
func (r *reader) remaining() int { return len(r.buf) - r.pos }

func (r *reader) need(n int) error {
	if r.remaining() < n {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, n, r.remaining())
	}
	return nil
}

func (r *reader) u8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *reader) boolean() (bool, error) {
	v, err := r.u8()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (r *reader) u16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) i32() (int32, error) {
	v, err := r.u32()
	return int32(v), err
}

func (r *reader) i64() (int64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return int64(v), nil
}

func (r *reader) f32() (float32, error) {
	v, err := r.u32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (r *reader) str() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	if err := r.need(int(n)); err != nil {
		return "", err
	}
	b := r.buf[r.pos : r.pos+int(n)]
	r.pos += int(n)
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: string field", ErrBadUTF8)
	}
	return string(b), nil
}

func (r *reader) enum32(max int32) (int32, error) {
	v, err := r.i32()
	if err != nil {
		return 0, err
	}
	if v < 0 || v > max {
		return 0, fmt.Errorf("%w: value %d exceeds max %d", ErrEnumOutOfRange, v, max)
	}
	return v, nil
}

// enumOrNone32 decodes an optional ordinal encoded by enumOrNone32: -1
// means absent, any other value must be in [0, max].
func (r *reader) enumOrNone32(max int32) (value int32, present bool, err error) {
	v, err := r.i32()
	if err != nil {
		return 0, false, err
	}
	if v == -1 {
		return 0, false, nil
	}
	if v < 0 || v > max {
		return 0, false, fmt.Errorf("%w: value %d exceeds max %d", ErrEnumOutOfRange, v, max)
	}
	return v, true, nil
}

func (r *reader) strSlice() ([]string, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		s, err := r.str()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *reader) i32Slice() ([]int32, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make([]int32, 0, n)
	for i := uint32(0); i < n; i++ {
		v, err := r.i32()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
