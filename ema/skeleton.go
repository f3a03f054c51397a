package ema

import (
	"fmt"
	"log"

	"github.com/binzume/xv2anim/binio"
	"github.com/binzume/xv2anim/geom"
	"github.com/binzume/xv2anim/ik"
)

const (
	skeletonHeaderSize = 0x28
	boneRecordSize     = 16
	noBone             = 0xFFFF
)

type Skeleton struct {
	Reserved   uint32
	SkeletonID uint64
	Bones      []*Bone
}

type Bone struct {
	Name         string
	Index        uint16
	ParentIndex  int // -1 if none
	ChildIndex   int
	SiblingIndex int
	IKFlag       uint16
	Unknown10    uint16
	Unknown12    uint32

	RelativeMatrix geom.Matrix4
	AbsoluteMatrix *geom.Matrix4
	ExtraValues    *[4]uint16
	IKRelations    []*IKRelation
}

// IKRelation is an IK chain owned by a bone.
type IKRelation struct {
	Flag  uint8
	Bones []IKBone
}

// IKBone refers to a chain member by name. Names are resolved on write.
type IKBone struct {
	Name   string
	Weight float32
}

func NewBone(name string) *Bone {
	return &Bone{
		Name:           name,
		ParentIndex:    -1,
		ChildIndex:     -1,
		SiblingIndex:   -1,
		RelativeMatrix: *geom.NewMatrix4(),
	}
}

func (s *Skeleton) BoneIndex(name string) int {
	for i, b := range s.Bones {
		if b.Name == name {
			return i
		}
	}
	return -1
}

func (s *Skeleton) GetBone(name string) *Bone {
	if i := s.BoneIndex(name); i >= 0 {
		return s.Bones[i]
	}
	return nil
}

// Parent returns the parent bone of b or nil.
func (s *Skeleton) Parent(b *Bone) *Bone {
	if b.ParentIndex < 0 || b.ParentIndex >= len(s.Bones) {
		return nil
	}
	return s.Bones[b.ParentIndex]
}

// WorldMatrix composes relative matrices from the root down to b.
func (s *Skeleton) WorldMatrix(b *Bone) *geom.Matrix4 {
	m := b.RelativeMatrix.Clone()
	seen := map[*Bone]bool{b: true}
	for p := s.Parent(b); p != nil && !seen[p]; p = s.Parent(p) {
		seen[p] = true
		m = p.RelativeMatrix.Mul(m)
	}
	return m
}

func linkIndex(v uint16) int {
	if v == noBone {
		return -1
	}
	return int(v)
}

func linkValue(i int) uint16 {
	if i < 0 {
		return noBone
	}
	return uint16(i)
}

func readMatrix(r *binio.Reader, off int) geom.Matrix4 {
	var m geom.Matrix4
	copy(m[:], r.Float32s(off, 16))
	return m
}

func parseSkeleton(r *binio.Reader, start int) (*Skeleton, error) {
	if !r.InRange(start, skeletonHeaderSize) {
		return nil, fmt.Errorf("%w: skeleton at 0x%x", binio.ErrOutOfRange, start)
	}
	boneCount := int(r.Uint16(start))
	ikCount := int(r.Uint16(start + 2))
	s := &Skeleton{Reserved: r.Uint32(start + 4), SkeletonID: r.Uint64(start + 0x20)}
	bonesOff := r.Int(start + 0x08)
	namesOff := r.Int(start + 0x0C)
	relOff := r.Int(start + 0x10)
	absOff := r.Int(start + 0x14)
	extraOff := r.Int(start + 0x18)
	ikOff := r.Int(start + 0x1C)

	for i := 0; i < boneCount; i++ {
		p := start + bonesOff + i*boneRecordSize
		b := &Bone{
			ParentIndex:  linkIndex(r.Uint16(p)),
			ChildIndex:   linkIndex(r.Uint16(p + 2)),
			SiblingIndex: linkIndex(r.Uint16(p + 4)),
			Index:        r.Uint16(p + 6),
			IKFlag:       r.Uint16(p + 8),
			Unknown10:    r.Uint16(p + 10),
			Unknown12:    r.Uint32(p + 12),
		}
		if nameOff := r.Int(start + namesOff + i*4); nameOff != 0 {
			b.Name = r.CString(start + nameOff)
		}
		b.RelativeMatrix = readMatrix(r, start+relOff+i*64)
		if absOff != 0 {
			m := readMatrix(r, start+absOff+i*64)
			b.AbsoluteMatrix = &m
		}
		if extraOff != 0 {
			p := start + extraOff + i*8
			b.ExtraValues = &[4]uint16{r.Uint16(p), r.Uint16(p + 2), r.Uint16(p + 4), r.Uint16(p + 6)}
		}
		s.Bones = append(s.Bones, b)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("ema: skeleton: %w", err)
	}
	if ikOff != 0 {
		parseIKRelations(r, start+ikOff, s)
	}
	if ikCount != s.ikRelationCount() {
		log.Println("ema: IK count mismatch", ikCount, s.ikRelationCount())
	}
	return s, nil
}

func parseIKRelations(r *binio.Reader, off int, s *Skeleton) {
	for _, e := range ik.Parse(r, off, len(s.Bones)) {
		rel := &IKRelation{Flag: e.Flag}
		for i, b := range e.Bones {
			rel.Bones = append(rel.Bones, IKBone{Name: s.Bones[b].Name, Weight: e.Weights[i]})
		}
		s.Bones[e.Owner].IKRelations = append(s.Bones[e.Owner].IKRelations, rel)
	}
}

func (s *Skeleton) ikRelationCount() int {
	n := 0
	for _, b := range s.Bones {
		n += len(b.IKRelations)
	}
	return n
}

func writeSkeleton(w *binio.Writer, s *Skeleton) error {
	if len(s.Bones) > noBone {
		return fmt.Errorf("%w: %d bones", ErrIndexOverflow, len(s.Bones))
	}
	index := map[string]int{}
	for i, b := range s.Bones {
		if _, ok := index[b.Name]; !ok {
			index[b.Name] = i
		}
	}

	start := w.Len()
	w.Uint16(uint16(len(s.Bones)))
	w.Uint16(uint16(s.ikRelationCount()))
	w.Uint32(s.Reserved)
	bonesPos := w.Placeholder32()
	namesPos := w.Placeholder32()
	relPos := w.Placeholder32()
	absPos := w.Placeholder32()
	extraPos := w.Placeholder32()
	ikPos := w.Placeholder32()
	w.Uint64(s.SkeletonID)

	w.PatchOffset32(bonesPos, start)
	for _, b := range s.Bones {
		w.Uint16(linkValue(b.ParentIndex))
		w.Uint16(linkValue(b.ChildIndex))
		w.Uint16(linkValue(b.SiblingIndex))
		w.Uint16(b.Index)
		w.Uint16(b.IKFlag)
		w.Uint16(b.Unknown10)
		w.Uint32(b.Unknown12)
	}

	w.PatchOffset32(namesPos, start)
	namePos := make([]int, len(s.Bones))
	for i := range s.Bones {
		namePos[i] = w.Placeholder32()
	}

	w.PatchOffset32(relPos, start)
	for _, b := range s.Bones {
		w.Float32s(b.RelativeMatrix[:])
	}

	hasAbs, hasExtra := false, false
	for _, b := range s.Bones {
		hasAbs = hasAbs || b.AbsoluteMatrix != nil
		hasExtra = hasExtra || b.ExtraValues != nil
	}
	if hasAbs {
		w.PatchOffset32(absPos, start)
		for _, b := range s.Bones {
			m := b.AbsoluteMatrix
			if m == nil {
				m = geom.NewMatrix4()
			}
			w.Float32s(m[:])
		}
	}
	if hasExtra {
		w.PatchOffset32(extraPos, start)
		for _, b := range s.Bones {
			var v [4]uint16
			if b.ExtraValues != nil {
				v = *b.ExtraValues
			}
			for _, e := range v {
				w.Uint16(e)
			}
		}
	}
	if s.ikRelationCount() > 0 {
		w.PatchOffset32(ikPos, start)
		if err := writeIKRelations(w, s, index); err != nil {
			return err
		}
	}

	for i, b := range s.Bones {
		w.PatchOffset32(namePos[i], start)
		w.CString(b.Name)
	}
	w.Align(4)
	return nil
}

func writeIKRelations(w *binio.Writer, s *Skeleton, index map[string]int) error {
	var entries []ik.Entry
	for owner, b := range s.Bones {
		for _, rel := range b.IKRelations {
			e := ik.Entry{Owner: owner, Flag: rel.Flag}
			for _, ib := range rel.Bones {
				i, ok := index[ib.Name]
				if !ok {
					return fmt.Errorf("%w: IK bone %q of %q", ErrUnresolvedBone, ib.Name, b.Name)
				}
				e.Bones = append(e.Bones, i)
				e.Weights = append(e.Weights, ib.Weight)
			}
			entries = append(entries, e)
		}
	}
	return ik.Write(w, entries)
}
