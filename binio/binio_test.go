package binio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
)

func TestWriterReaderPrimitives(t *testing.T) {
	w := NewWriter()
	w.Uint8(0xAB)
	w.Int16(-2)
	w.Uint32(0xDEADBEEF)
	w.Float32(1.5)
	w.Float16(0.25)
	w.Uint64(1 << 40)
	w.CString("Bone")

	r := NewReader(w.Bytes())
	assert.Equal(t, uint8(0xAB), r.Uint8(0))
	assert.Equal(t, int16(-2), r.Int16(1))
	assert.Equal(t, uint32(0xDEADBEEF), r.Uint32(3))
	assert.Equal(t, float32(1.5), r.Float32(7))
	assert.Equal(t, float32(0.25), r.Float16(11))
	assert.Equal(t, uint64(1<<40), r.Uint64(13))
	assert.Equal(t, "Bone", r.CString(21))
	assert.NoError(t, r.Err())
}

func TestReaderOutOfRange(t *testing.T) {
	r := NewReader([]byte{1, 2})
	assert.Equal(t, uint32(0), r.Uint32(0))
	assert.Equal(t, uint16(0x0201), r.Uint16(0))
	require.Error(t, r.Err())
	assert.True(t, errors.Is(r.Err(), ErrOutOfRange))
	assert.Equal(t, "", r.CString(10))
}

func TestPatchBack(t *testing.T) {
	w := NewWriter()
	w.Uint32(0x11111111)
	p32 := w.Placeholder32()
	p16 := w.Placeholder16()
	w.Align(4)
	assert.Equal(t, 12, w.Len())
	w.PatchOffset32(p32, 4)
	require.NoError(t, w.PatchOffset16(p16, 0))

	r := NewReader(w.Bytes())
	assert.Equal(t, uint32(8), r.Uint32(p32))
	assert.Equal(t, uint16(12), r.Uint16(p16))
}

func TestPatchOffset16Overflow(t *testing.T) {
	w := NewWriter()
	pos := w.Placeholder16()
	w.Zero(0x10000)
	assert.ErrorIs(t, w.PatchOffset16(pos, 0), ErrOffsetOverflow)
}

func TestNibbles(t *testing.T) {
	b, err := PackNibbles(0x3, 0xA)
	require.NoError(t, err)
	assert.Equal(t, byte(0xA3), b)

	lo, hi := UnpackNibbles(b)
	assert.Equal(t, uint8(3), lo)
	assert.Equal(t, uint8(10), hi)

	_, err = PackNibbles(16, 0)
	assert.ErrorIs(t, err, ErrNibbleOverflow)
	_, err = PackNibbles(0, 200)
	assert.ErrorIs(t, err, ErrNibbleOverflow)
}

func TestShiftJISNames(t *testing.T) {
	w := NewWriter()
	w.Encoding = japanese.ShiftJIS
	w.CString("センター")

	r := NewReader(w.Bytes())
	r.Encoding = japanese.ShiftJIS
	assert.Equal(t, "センター", r.CString(0))
	assert.Equal(t, 9, len(w.Bytes()))
}
