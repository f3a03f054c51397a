package ik

import (
	"testing"

	"github.com/binzume/xv2anim/binio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	entries := []Entry{
		{Owner: 1, Flag: 2, Bones: []int{1, 0}, Weights: []float32{0.5, 1}},
		{Owner: 0, Flag: 0, Bones: []int{0, 1, 2}, Weights: []float32{1, 1, 0.25}},
	}
	w := binio.NewWriter()
	require.NoError(t, Write(w, entries))
	assert.Equal(t, 4+entrySize(2)+entrySize(3), w.Len())
	assert.Equal(t, entries, Parse(binio.NewReader(w.Bytes()), 0, 3))
}

func TestLenient(t *testing.T) {
	w := binio.NewWriter()
	w.Uint32(4)
	// unknown type, skipped by size
	w.Uint16(7)
	w.Uint16(12)
	w.Zero(8)
	// bone out of range
	w.Uint16(TypeChain)
	w.Uint16(16)
	w.Uint16(0)
	w.Uint8(0)
	w.Uint8(1)
	w.Uint16(9)
	w.Align(4)
	w.Float32(1)
	// valid
	w.Uint16(TypeChain)
	w.Uint16(16)
	w.Uint16(1)
	w.Uint8(2)
	w.Uint8(1)
	w.Uint16(0)
	w.Align(4)
	w.Float32(0.25)
	// truncated
	w.Uint16(TypeChain)

	entries := Parse(binio.NewReader(w.Bytes()), 0, 2)
	assert.Equal(t, []Entry{{Owner: 1, Flag: 2, Bones: []int{0}, Weights: []float32{0.25}}}, entries)

	assert.Nil(t, Parse(binio.NewReader(nil), 0, 2))
}

func TestWriteMismatch(t *testing.T) {
	err := Write(binio.NewWriter(), []Entry{{Bones: []int{0}}})
	assert.Error(t, err)
}
