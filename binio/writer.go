package binio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/x448/float16"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// ErrOffsetOverflow is returned when a patched offset does not fit its field.
var ErrOffsetOverflow = errors.New("binio: offset does not fit")

// Writer appends little-endian primitives to a buffer. Offsets are written
// as placeholders and patched once the target position is known.
type Writer struct {
	buf      []byte
	Encoding encoding.Encoding
}

func NewWriter() *Writer {
	return &Writer{Encoding: DefaultEncoding}
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns the written data.
func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *Writer) Uint8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) Int8(v int8) {
	w.Uint8(uint8(v))
}

func (w *Writer) Uint16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) Int16(v int16) {
	w.Uint16(uint16(v))
}

func (w *Writer) Uint32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) Int32(v int32) {
	w.Uint32(uint32(v))
}

func (w *Writer) Uint64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *Writer) Float32(v float32) {
	w.Uint32(math.Float32bits(v))
}

// Float16 writes v as IEEE 754 binary16, rounding to nearest even.
func (w *Writer) Float16(v float32) {
	w.Uint16(float16.Fromfloat32(v).Bits())
}

func (w *Writer) Float32s(v []float32) {
	for _, f := range v {
		w.Float32(f)
	}
}

// Zero writes n zero bytes.
func (w *Writer) Zero(n int) {
	for i := 0; i < n; i++ {
		w.buf = append(w.buf, 0)
	}
}

// Align pads with zeros until Len is a multiple of n.
func (w *Writer) Align(n int) {
	if r := len(w.buf) % n; r != 0 {
		w.Zero(n - r)
	}
}

// CString writes s followed by a null terminator.
func (w *Writer) CString(s string) {
	b := []byte(s)
	if w.Encoding != nil {
		if enc, _, err := transform.Bytes(w.Encoding.NewEncoder(), b); err == nil {
			b = enc
		}
	}
	w.buf = append(w.buf, b...)
	w.buf = append(w.buf, 0)
}

// Placeholder32 reserves 4 bytes and returns their position.
func (w *Writer) Placeholder32() int {
	pos := len(w.buf)
	w.Zero(4)
	return pos
}

// Placeholder16 reserves 2 bytes and returns their position.
func (w *Writer) Placeholder16() int {
	pos := len(w.buf)
	w.Zero(2)
	return pos
}

func (w *Writer) PatchUint32(pos int, v uint32) {
	binary.LittleEndian.PutUint32(w.buf[pos:], v)
}

func (w *Writer) PatchUint16(pos int, v uint16) {
	binary.LittleEndian.PutUint16(w.buf[pos:], v)
}

// PatchOffset32 stores the current position relative to base at pos.
func (w *Writer) PatchOffset32(pos, base int) {
	w.PatchUint32(pos, uint32(len(w.buf)-base))
}

// PatchOffset16 stores the current position relative to base at pos.
func (w *Writer) PatchOffset16(pos, base int) error {
	off := len(w.buf) - base
	if off < 0 || off > math.MaxUint16 {
		return fmt.Errorf("%w: 0x%x in 16 bits", ErrOffsetOverflow, off)
	}
	w.PatchUint16(pos, uint16(off))
	return nil
}
