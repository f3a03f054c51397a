// Package binio provides offset-addressed little-endian primitives used by
// the EMA and EAN codecs.
package binio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/x448/float16"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	// ErrOutOfRange is recorded when a read goes past the end of the data.
	ErrOutOfRange = errors.New("binio: read out of range")
	// ErrNibbleOverflow is returned when a value does not fit in 4 bits.
	ErrNibbleOverflow = errors.New("binio: nibble value out of range")
)

// DefaultEncoding is used for names when no encoding is configured.
var DefaultEncoding encoding.Encoding = unicode.UTF8

// Reader reads primitives at absolute offsets. Reads past the end return
// zero values and record the first error, see Err.
type Reader struct {
	data     []byte
	err      error
	Encoding encoding.Encoding
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data, Encoding: DefaultEncoding}
}

// Len returns the size of the underlying data.
func (r *Reader) Len() int {
	return len(r.data)
}

// Err returns the first out of range error, if any.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) slice(off, n int) []byte {
	if off < 0 || n < 0 || off+n > len(r.data) {
		if r.err == nil {
			r.err = fmt.Errorf("%w: offset 0x%x size %d (len 0x%x)", ErrOutOfRange, off, n, len(r.data))
		}
		return nil
	}
	return r.data[off : off+n]
}

// InRange reports whether n bytes can be read at off.
func (r *Reader) InRange(off, n int) bool {
	return off >= 0 && n >= 0 && off+n <= len(r.data)
}

func (r *Reader) Uint8(off int) uint8 {
	if b := r.slice(off, 1); b != nil {
		return b[0]
	}
	return 0
}

func (r *Reader) Int8(off int) int8 {
	return int8(r.Uint8(off))
}

func (r *Reader) Uint16(off int) uint16 {
	if b := r.slice(off, 2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *Reader) Int16(off int) int16 {
	return int16(r.Uint16(off))
}

func (r *Reader) Uint32(off int) uint32 {
	if b := r.slice(off, 4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *Reader) Int32(off int) int32 {
	return int32(r.Uint32(off))
}

// Int reads an int32 and widens it, for offsets and counts.
func (r *Reader) Int(off int) int {
	return int(r.Int32(off))
}

func (r *Reader) Uint64(off int) uint64 {
	if b := r.slice(off, 8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (r *Reader) Float32(off int) float32 {
	return math.Float32frombits(r.Uint32(off))
}

// Float16 reads an IEEE 754 binary16 value.
func (r *Reader) Float16(off int) float32 {
	return float16.Frombits(r.Uint16(off)).Float32()
}

// Float32s reads n consecutive float32 values.
func (r *Reader) Float32s(off, n int) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = r.Float32(off + i*4)
	}
	return v
}

// CString reads a null-terminated string at off.
func (r *Reader) CString(off int) string {
	if off < 0 || off >= len(r.data) {
		r.slice(off, 1)
		return ""
	}
	b := r.data[off:]
	if end := bytes.IndexByte(b, 0); end >= 0 {
		b = b[:end]
	}
	return decodeString(r.Encoding, b)
}

func decodeString(enc encoding.Encoding, b []byte) string {
	if enc == nil {
		return string(b)
	}
	s, _, err := transform.Bytes(enc.NewDecoder(), b)
	if err != nil {
		return string(b)
	}
	return string(s)
}

// UnpackNibbles splits a byte into its low and high 4-bit halves.
func UnpackNibbles(b byte) (lo, hi uint8) {
	return b & 0x0F, b >> 4
}

// PackNibbles merges two 4-bit values into one byte.
func PackNibbles(lo, hi uint8) (byte, error) {
	if lo > 15 || hi > 15 {
		return 0, fmt.Errorf("%w: lo=%d hi=%d", ErrNibbleOverflow, lo, hi)
	}
	return lo | hi<<4, nil
}
