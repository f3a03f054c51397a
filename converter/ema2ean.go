package converter

import (
	"fmt"
	"sort"

	"github.com/binzume/xv2anim/ean"
	"github.com/binzume/xv2anim/ema"
	"github.com/binzume/xv2anim/geom"
)

type EMAToEANOption struct {
	// RotationOrder of EMA Euler rotations, "zyx" if empty.
	RotationOrder string
	Materials     MaterialSource
}

type emaToEan struct {
	*EMAToEANOption
	order geom.RotationOrder
}

func NewEMAToEANConverter(options *EMAToEANOption) *emaToEan {
	if options == nil {
		options = &EMAToEANOption{}
	}
	if options.RotationOrder == "" {
		options.RotationOrder = ema.EulerOrder.String()
	}
	return &emaToEan{EMAToEANOption: options}
}

// rootBoneName names the bone used for skeleton-less object animations.
const rootBoneName = "root"

// Convert converts src. src is not modified: beziers are baked on a copy.
func (c *emaToEan) Convert(src *ema.File) (*ean.File, error) {
	order, err := geom.ParseRotationOrder(c.RotationOrder)
	if err != nil {
		return nil, err
	}
	c.order = order

	f := src.Clone()
	material := f.Type == ema.FileTypeMaterial
	for _, a := range f.Animations {
		switch a.Type {
		case ema.AnimationTypeLight:
			return nil, fmt.Errorf("%w: light animation %q", ErrUnsupported, a.Name)
		case ema.AnimationTypeMaterial:
			material = true
		}
	}
	if f.Type == ema.FileTypeLight {
		return nil, fmt.Errorf("%w: light file", ErrUnsupported)
	}

	dst := ean.NewFile()
	dst.Version = f.Version
	switch {
	case material:
		dst.Skeleton = MaterialSkeleton(c.Materials, f)
	case f.Skeleton != nil:
		dst.Skeleton = SkeletonToESK(f.Skeleton)
	default:
		dst.Skeleton = &ean.Skeleton{Bones: []*ean.Bone{ean.NewBone(rootBoneName)}}
	}

	for _, a := range f.Animations {
		if a.Type == ema.AnimationTypeCamera {
			dst.IsCamera = true
		}
		a.BakeBezier(nil)
		out := ean.NewAnimation(a.Index, a.Name)
		out.FrameCount = int(a.EndFrame)
		if a.ValueType == ema.ValueTypeFloat16 {
			out.FloatSize = ean.FloatSize16
		}
		for _, n := range a.Nodes {
			name := n.BoneName
			if name == "" && f.Skeleton == nil && !material {
				name = rootBoneName
			}
			var bone *ema.Bone
			if f.Skeleton != nil {
				bone = f.Skeleton.GetBone(n.BoneName)
			}
			on := out.AddNode(name)
			for _, p := range parameters(n) {
				on.Components = append(on.Components, c.convertParameter(a, n, bone, p))
			}
		}
		if err := dst.AddAnimation(out); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

// parameters returns the parameters used by n in first-use order.
func parameters(n *ema.Node) []ema.Parameter {
	var params []ema.Parameter
	seen := map[ema.Parameter]bool{}
	for _, cmd := range n.Commands {
		if !seen[cmd.Parameter] {
			seen[cmd.Parameter] = true
			params = append(params, cmd.Parameter)
		}
	}
	return params
}

// convertParameter samples the X/Y/Z/W commands of p at the union of their
// keyframe times.
func (c *emaToEan) convertParameter(a *ema.Animation, n *ema.Node, bone *ema.Bone, p ema.Parameter) *ean.Component {
	var cmds [4]*ema.Command
	frames := map[uint16]bool{}
	for _, cmd := range n.Commands {
		if cmd.Parameter != p || cmd.Component > ema.ComponentW {
			continue
		}
		cmds[cmd.Component] = cmd
		for _, kf := range cmd.Keyframes {
			frames[kf.Time] = true
		}
	}
	times := make([]int, 0, len(frames))
	for t := range frames {
		times = append(times, int(t))
	}
	sort.Ints(times)

	object := a.Type == ema.AnimationTypeObject || a.Type == ema.AnimationTypeCamera
	value := func(comp ema.Component, t int) float32 {
		if cmd := cmds[comp]; cmd != nil {
			return cmd.GetValue(t)
		}
		if !object {
			if d, ok := c.Materials.(ema.MaterialDefaults); ok {
				if v, ok := d.DefaultChannelValue(n.BoneName, p, comp); ok {
					return v
				}
			}
			return 0
		}
		if comp == ema.ComponentW {
			return 1
		}
		def := float32(0)
		if p == ema.ParameterScale {
			def = 1
		}
		if bone != nil {
			return bone.BindPoseValue(p, comp, def)
		}
		return def
	}

	out := &ean.Component{Type: ean.ComponentType(p)}
	for _, t := range times {
		kf := &ean.Keyframe{Frame: t,
			X: value(ema.ComponentX, t),
			Y: value(ema.ComponentY, t),
			Z: value(ema.ComponentZ, t),
			W: value(ema.ComponentW, t),
		}
		if object && p == ema.ParameterRotation {
			q := geom.NewEulerDegrees(kf.X, kf.Y, kf.Z, c.order).ToQuaternion()
			kf.X, kf.Y, kf.Z, kf.W = q.X, q.Y, q.Z, q.W
		}
		out.Keyframes = append(out.Keyframes, kf)
	}
	return out
}
