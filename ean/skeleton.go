package ean

import (
	"fmt"

	"github.com/binzume/xv2anim/binio"
	"github.com/binzume/xv2anim/geom"
	"github.com/binzume/xv2anim/ik"
)

const (
	eskHeaderSize     = 0x28
	eskIndexSize      = 8
	eskTransformSize  = 48
	eskMatrixSize     = 64
	eskExtraValueSize = 8
)

// Skeleton is an ESK skeleton.
type Skeleton struct {
	Flags      uint16
	Reserved   uint32
	SkeletonID uint64
	Bones      []*Bone
}

type Bone struct {
	Name         string
	ParentIndex  int // -1 if none
	ChildIndex   int
	SiblingIndex int
	IKFlag       uint16

	Transform geom.Transform
	// AbsoluteMatrix is kept in ESK storage order (translation at 3, 7, 11).
	AbsoluteMatrix *geom.Matrix4
	ExtraValues    *[4]uint16
	IKRelations    []*IKRelation
}

type IKRelation struct {
	Flag  uint8
	Bones []IKBone
}

type IKBone struct {
	Name   string
	Weight float32
}

func NewBone(name string) *Bone {
	return &Bone{
		Name:         name,
		ParentIndex:  -1,
		ChildIndex:   -1,
		SiblingIndex: -1,
		Transform:    *geom.NewIdentityTransform(),
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

// Children returns the indices of the bones whose parent is i.
func (s *Skeleton) Children(i int) []int {
	var children []int
	for j, b := range s.Bones {
		if b.ParentIndex == i && j != i {
			children = append(children, j)
		}
	}
	return children
}

func (s *Skeleton) Clone() *Skeleton {
	if s == nil {
		return nil
	}
	c := *s
	if s.Bones == nil {
		return &c
	}
	c.Bones = make([]*Bone, len(s.Bones))
	for i, b := range s.Bones {
		nb := *b
		if b.AbsoluteMatrix != nil {
			nb.AbsoluteMatrix = b.AbsoluteMatrix.Clone()
		}
		if b.ExtraValues != nil {
			v := *b.ExtraValues
			nb.ExtraValues = &v
		}
		if b.IKRelations != nil {
			nb.IKRelations = make([]*IKRelation, len(b.IKRelations))
			for j, r := range b.IKRelations {
				nb.IKRelations[j] = &IKRelation{Flag: r.Flag, Bones: append([]IKBone(nil), r.Bones...)}
			}
		}
		c.Bones[i] = &nb
	}
	return &c
}

func readVector4(r *binio.Reader, off int) geom.Vector4 {
	return geom.Vector4{X: r.Float32(off), Y: r.Float32(off + 4), Z: r.Float32(off + 8), W: r.Float32(off + 12)}
}

func writeVector4(w *binio.Writer, v geom.Vector4) {
	w.Float32s([]float32{v.X, v.Y, v.Z, v.W})
}

func parseSkeleton(r *binio.Reader, start int) (*Skeleton, error) {
	if !r.InRange(start, eskHeaderSize) {
		return nil, fmt.Errorf("%w: skeleton at 0x%x", binio.ErrOutOfRange, start)
	}
	boneCount := int(r.Uint16(start))
	s := &Skeleton{
		Flags:      r.Uint16(start + 2),
		Reserved:   r.Uint32(start + 0x1C),
		SkeletonID: r.Uint64(start + 0x20),
	}
	indexOff := r.Int(start + 0x04)
	namesOff := r.Int(start + 0x08)
	transformOff := r.Int(start + 0x0C)
	absOff := r.Int(start + 0x10)
	ikOff := r.Int(start + 0x14)
	extraOff := r.Int(start + 0x18)

	for i := 0; i < boneCount; i++ {
		p := start + indexOff + i*eskIndexSize
		b := &Bone{
			ParentIndex:  int(r.Int16(p)),
			ChildIndex:   int(r.Int16(p + 2)),
			SiblingIndex: int(r.Int16(p + 4)),
			IKFlag:       r.Uint16(p + 6),
		}
		if nameOff := r.Int(start + namesOff + i*4); nameOff != 0 {
			b.Name = r.CString(start + nameOff)
		}
		t := start + transformOff + i*eskTransformSize
		b.Transform = geom.Transform{
			Position: readVector4(r, t),
			Rotation: readVector4(r, t+16),
			Scale:    readVector4(r, t+32),
		}
		if absOff != 0 {
			var m geom.Matrix4
			copy(m[:], r.Float32s(start+absOff+i*eskMatrixSize, 16))
			b.AbsoluteMatrix = &m
		}
		if extraOff != 0 {
			p := start + extraOff + i*eskExtraValueSize
			b.ExtraValues = &[4]uint16{r.Uint16(p), r.Uint16(p + 2), r.Uint16(p + 4), r.Uint16(p + 6)}
		}
		s.Bones = append(s.Bones, b)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("ean: skeleton: %w", err)
	}
	if ikOff != 0 {
		for _, e := range ik.Parse(r, start+ikOff, len(s.Bones)) {
			rel := &IKRelation{Flag: e.Flag}
			for i, b := range e.Bones {
				rel.Bones = append(rel.Bones, IKBone{Name: s.Bones[b].Name, Weight: e.Weights[i]})
			}
			s.Bones[e.Owner].IKRelations = append(s.Bones[e.Owner].IKRelations, rel)
		}
	}
	return s, nil
}

func writeSkeleton(w *binio.Writer, s *Skeleton) error {
	if len(s.Bones) > 0x7FFF {
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
	w.Uint16(s.Flags)
	indexPos := w.Placeholder32()
	namesPos := w.Placeholder32()
	transformPos := w.Placeholder32()
	absPos := w.Placeholder32()
	ikPos := w.Placeholder32()
	extraPos := w.Placeholder32()
	w.Uint32(s.Reserved)
	w.Uint64(s.SkeletonID)

	w.PatchOffset32(indexPos, start)
	for _, b := range s.Bones {
		w.Int16(int16(b.ParentIndex))
		w.Int16(int16(b.ChildIndex))
		w.Int16(int16(b.SiblingIndex))
		w.Uint16(b.IKFlag)
	}

	w.PatchOffset32(namesPos, start)
	namePos := make([]int, len(s.Bones))
	for i := range s.Bones {
		namePos[i] = w.Placeholder32()
	}

	w.PatchOffset32(transformPos, start)
	for _, b := range s.Bones {
		writeVector4(w, b.Transform.Position)
		writeVector4(w, b.Transform.Rotation)
		writeVector4(w, b.Transform.Scale)
	}

	hasAbs, hasExtra := false, false
	var entries []ik.Entry
	for owner, b := range s.Bones {
		hasAbs = hasAbs || b.AbsoluteMatrix != nil
		hasExtra = hasExtra || b.ExtraValues != nil
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
	if len(entries) > 0 {
		w.PatchOffset32(ikPos, start)
		if err := ik.Write(w, entries); err != nil {
			return err
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

	for i, b := range s.Bones {
		w.PatchOffset32(namePos[i], start)
		w.CString(b.Name)
	}
	w.Align(4)
	return nil
}
