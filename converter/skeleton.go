// Package converter converts between EMA, EAN and glTF animations.
package converter

import (
	"errors"

	"github.com/binzume/xv2anim/ean"
	"github.com/binzume/xv2anim/ema"
	"github.com/binzume/xv2anim/geom"
)

var ErrUnsupported = errors.New("converter: unsupported animation")

// SkeletonToESK maps an EMA skeleton to ESK. Bone Index, Unknown10,
// Unknown12 and Reserved have no ESK field and are dropped.
func SkeletonToESK(s *ema.Skeleton) *ean.Skeleton {
	if s == nil {
		return nil
	}
	out := &ean.Skeleton{SkeletonID: s.SkeletonID}
	for _, b := range s.Bones {
		eb := &ean.Bone{
			Name:         b.Name,
			ParentIndex:  b.ParentIndex,
			ChildIndex:   b.ChildIndex,
			SiblingIndex: b.SiblingIndex,
			IKFlag:       b.IKFlag,
			Transform:    *geom.ToRelativeTransform(&b.RelativeMatrix),
		}
		if b.AbsoluteMatrix != nil {
			eb.AbsoluteMatrix = b.AbsoluteMatrix.Transposed()
		}
		if b.ExtraValues != nil {
			v := *b.ExtraValues
			eb.ExtraValues = &v
		}
		for _, rel := range b.IKRelations {
			r := &ean.IKRelation{Flag: rel.Flag}
			for _, ib := range rel.Bones {
				r.Bones = append(r.Bones, ean.IKBone{Name: ib.Name, Weight: ib.Weight})
			}
			eb.IKRelations = append(eb.IKRelations, r)
		}
		out.Bones = append(out.Bones, eb)
	}
	return out
}

// SkeletonFromESK maps an ESK skeleton to EMA. Bone indices are the list
// positions.
func SkeletonFromESK(s *ean.Skeleton) *ema.Skeleton {
	if s == nil {
		return nil
	}
	out := &ema.Skeleton{SkeletonID: s.SkeletonID}
	for i, b := range s.Bones {
		mb := &ema.Bone{
			Name:           b.Name,
			Index:          uint16(i),
			ParentIndex:    b.ParentIndex,
			ChildIndex:     b.ChildIndex,
			SiblingIndex:   b.SiblingIndex,
			IKFlag:         b.IKFlag,
			RelativeMatrix: *geom.FromRelativeTransform(&b.Transform),
		}
		if b.AbsoluteMatrix != nil {
			mb.AbsoluteMatrix = b.AbsoluteMatrix.Transposed()
		}
		if b.ExtraValues != nil {
			v := *b.ExtraValues
			mb.ExtraValues = &v
		}
		for _, rel := range b.IKRelations {
			r := &ema.IKRelation{Flag: rel.Flag}
			for _, ib := range rel.Bones {
				r.Bones = append(r.Bones, ema.IKBone{Name: ib.Name, Weight: ib.Weight})
			}
			mb.IKRelations = append(mb.IKRelations, r)
		}
		out.Bones = append(out.Bones, mb)
	}
	return out
}
