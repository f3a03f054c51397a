// Package ik encodes the IK chain block shared by EMA and ESK skeletons.
package ik

import (
	"fmt"
	"log"

	"github.com/binzume/xv2anim/binio"
)

// TypeChain is the only entry type that carries a bone chain.
const TypeChain = 1

const entryHeaderSize = 8

// Entry is one chain with bones referenced by index.
type Entry struct {
	Owner   int
	Flag    uint8
	Bones   []int
	Weights []float32
}

func align4(n int) int {
	return (n + 3) &^ 3
}

func entrySize(n int) int {
	return entryHeaderSize + align4(n*2) + n*4
}

// Parse reads the block at off. Entries of other types and entries that
// refer to bones outside [0, boneCount) are logged and skipped. A
// truncated block ends parsing.
func Parse(r *binio.Reader, off, boneCount int) []Entry {
	if !r.InRange(off, 4) {
		log.Println("ik: block out of range", off)
		return nil
	}
	var entries []Entry
	count := int(r.Uint32(off))
	p := off + 4
	for i := 0; i < count; i++ {
		if !r.InRange(p, entryHeaderSize) {
			log.Println("ik: entry out of range", i)
			break
		}
		typ := r.Uint16(p)
		size := int(r.Uint16(p + 2))
		if size < entryHeaderSize || !r.InRange(p, size) {
			log.Println("ik: bad entry size", size)
			break
		}
		entry := p
		p += size
		if typ != TypeChain {
			log.Println("Unsupported IK type : ", typ)
			continue
		}
		e := Entry{Owner: int(r.Uint16(entry + 4)), Flag: r.Uint8(entry + 6)}
		n := int(r.Uint8(entry + 7))
		if entrySize(n) > size {
			log.Println("ik: entry too small", size, n)
			continue
		}
		valid := e.Owner < boneCount
		weights := entry + entryHeaderSize + align4(n*2)
		for j := 0; j < n; j++ {
			b := int(r.Uint16(entry + entryHeaderSize + j*2))
			valid = valid && b < boneCount
			e.Bones = append(e.Bones, b)
			e.Weights = append(e.Weights, r.Float32(weights+j*4))
		}
		if !valid {
			log.Println("ik: bone index out of range", e.Owner, e.Bones)
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

// Write appends the block. The writer must be 4-byte aligned.
func Write(w *binio.Writer, entries []Entry) error {
	w.Uint32(uint32(len(entries)))
	for _, e := range entries {
		n := len(e.Bones)
		if n > 0xFF || len(e.Weights) != n {
			return fmt.Errorf("ik: bad chain of %d bones, %d weights", n, len(e.Weights))
		}
		w.Uint16(TypeChain)
		w.Uint16(uint16(entrySize(n)))
		w.Uint16(uint16(e.Owner))
		w.Uint8(e.Flag)
		w.Uint8(uint8(n))
		for _, b := range e.Bones {
			w.Uint16(uint16(b))
		}
		w.Align(4)
		for _, v := range e.Weights {
			w.Float32(v)
		}
	}
	return nil
}
