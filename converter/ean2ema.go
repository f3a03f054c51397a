package converter

import (
	"fmt"
	"math"

	"github.com/binzume/xv2anim/ean"
	"github.com/binzume/xv2anim/ema"
	"github.com/binzume/xv2anim/geom"
)

type EANToEMAOption struct {
	// RotationOrder of the produced Euler rotations, "zyx" if empty.
	RotationOrder string
	// ValueType of the value pools, "float32" if empty.
	ValueType string
}

type eanToEma struct {
	*EANToEMAOption
	order     geom.RotationOrder
	valueType ema.ValueType
}

func NewEANToEMAConverter(options *EANToEMAOption) *eanToEma {
	if options == nil {
		options = &EANToEMAOption{}
	}
	if options.ValueType == "" {
		options.ValueType = ema.ValueTypeFloat32.String()
	}
	if options.RotationOrder == "" {
		options.RotationOrder = ema.EulerOrder.String()
	}
	return &eanToEma{EANToEMAOption: options}
}

var axes = []ema.Component{ema.ComponentX, ema.ComponentY, ema.ComponentZ}

// Convert produces linear per-axis commands. Rotations become Euler
// degrees, unwrapped so consecutive keyframes never jump by more than 180.
func (c *eanToEma) Convert(src *ean.File) (*ema.File, error) {
	order, err := geom.ParseRotationOrder(c.RotationOrder)
	if err != nil {
		return nil, err
	}
	c.order = order
	if c.valueType, err = ema.ParseValueType(c.ValueType); err != nil {
		return nil, err
	}

	dst := ema.NewFile(ema.FileTypeObject)
	dst.Version = src.Version
	dst.Skeleton = SkeletonFromESK(src.Skeleton)
	animType := ema.AnimationTypeObject
	if src.IsCamera {
		animType = ema.AnimationTypeCamera
	}

	for _, a := range src.Animations {
		if a.FrameCount < 0 || a.FrameCount > math.MaxUint16 {
			return nil, fmt.Errorf("%w: %d frames", ema.ErrIndexOverflow, a.FrameCount)
		}
		out := ema.NewAnimation(a.Index, a.Name, animType)
		out.EndFrame = uint16(a.FrameCount)
		out.ValueType = c.valueType
		for _, n := range a.Nodes {
			var bone *ema.Bone
			if dst.Skeleton != nil {
				bone = dst.Skeleton.GetBone(n.BoneName)
			}
			on := out.AddNode(n.BoneName, nil)
			for _, comp := range n.Components {
				if comp.Type > ean.ComponentScale {
					return nil, fmt.Errorf("%w: component type %d", ErrUnsupported, comp.Type)
				}
				cmds, err := c.convertComponent(out, bone, comp)
				if err != nil {
					return nil, err
				}
				for _, cmd := range cmds {
					on.AddCommand(cmd, nil)
				}
			}
		}
		if err := dst.AddAnimation(out); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func (c *eanToEma) convertComponent(a *ema.Animation, bone *ema.Bone, comp *ean.Component) ([]*ema.Command, error) {
	p := ema.Parameter(comp.Type)
	cmds := make([]*ema.Command, len(axes))
	for i, axis := range axes {
		cmds[i] = a.NewCommand(p, axis)
		if bone != nil {
			cmds[i].DefaultValue = bone.BindPoseValue(p, axis, cmds[i].DefaultValue)
		}
	}
	src := comp.Clone()
	src.Sort()
	var prev *geom.Vector3
	for _, kf := range src.Keyframes {
		if kf.Frame < 0 || kf.Frame > math.MaxUint16 {
			return nil, fmt.Errorf("%w: frame %d", ema.ErrIndexOverflow, kf.Frame)
		}
		v := geom.Vector3{X: kf.X, Y: kf.Y, Z: kf.Z}
		if comp.Type == ean.ComponentRotation {
			q := kf.Vector()
			v = *geom.NewEulerFromQuaternion(q.Normalize(), c.order).Degrees()
			if prev != nil {
				v = geom.Vector3{
					X: unwrapDegrees(prev.X, v.X),
					Y: unwrapDegrees(prev.Y, v.Y),
					Z: unwrapDegrees(prev.Z, v.Z),
				}
			}
			prev = &v
		}
		for i, value := range []float32{v.X, v.Y, v.Z} {
			cmds[i].Keyframes = append(cmds[i].Keyframes, &ema.Keyframe{Time: uint16(kf.Frame), Value: value})
		}
	}
	return cmds, nil
}

// unwrapDegrees returns v shifted by whole turns to be closest to prev.
func unwrapDegrees(prev, v float32) float32 {
	d := float64(v - prev)
	return v - float32(360*math.Round(d/360))
}
