package ema

// Clone returns a deep copy of f.
func (f *File) Clone() *File {
	c := *f
	c.Skeleton = f.Skeleton.Clone()
	if f.Animations != nil {
		c.Animations = make([]*Animation, len(f.Animations))
		for i, a := range f.Animations {
			c.Animations[i] = a.Clone()
		}
	}
	return &c
}

func (s *Skeleton) Clone() *Skeleton {
	if s == nil {
		return nil
	}
	c := *s
	if s.Bones != nil {
		c.Bones = make([]*Bone, len(s.Bones))
		for i, b := range s.Bones {
			c.Bones[i] = b.Clone()
		}
	}
	return &c
}

func (b *Bone) Clone() *Bone {
	c := *b
	if b.AbsoluteMatrix != nil {
		c.AbsoluteMatrix = b.AbsoluteMatrix.Clone()
	}
	if b.ExtraValues != nil {
		v := *b.ExtraValues
		c.ExtraValues = &v
	}
	if b.IKRelations != nil {
		c.IKRelations = make([]*IKRelation, len(b.IKRelations))
		for i, r := range b.IKRelations {
			c.IKRelations[i] = &IKRelation{Flag: r.Flag, Bones: append([]IKBone(nil), r.Bones...)}
		}
	}
	return &c
}

func (a *Animation) Clone() *Animation {
	c := *a
	if a.Nodes != nil {
		c.Nodes = make([]*Node, len(a.Nodes))
		for i, n := range a.Nodes {
			c.Nodes[i] = n.Clone()
		}
	}
	return &c
}

func (n *Node) Clone() *Node {
	c := &Node{BoneName: n.BoneName}
	if n.Commands != nil {
		c.Commands = make([]*Command, len(n.Commands))
		for i, cmd := range n.Commands {
			c.Commands[i] = cmd.Clone()
		}
	}
	return c
}

func (cmd *Command) Clone() *Command {
	c := *cmd
	c.Keyframes = cmd.cloneKeyframes()
	return &c
}

func (kf *Keyframe) Clone() *Keyframe {
	c := *kf
	return &c
}

// Equal compares the stored fields of two keyframes. Control points
// are only compared where the interpolation uses them.
func (kf *Keyframe) Equal(o *Keyframe) bool {
	if kf.Time != o.Time || kf.Value != o.Value || kf.Interpolation != o.Interpolation {
		return false
	}
	if kf.Interpolation >= QuadraticBezier && kf.ControlPoint1 != o.ControlPoint1 {
		return false
	}
	return kf.Interpolation != CubicBezier || kf.ControlPoint2 == o.ControlPoint2
}

// Equal compares identity and keyframes. Width flags are derived on
// write and are not compared.
func (cmd *Command) Equal(o *Command) bool {
	if cmd.Parameter != o.Parameter || cmd.Component != o.Component || cmd.ExtraFlags != o.ExtraFlags {
		return false
	}
	if len(cmd.Keyframes) != len(o.Keyframes) {
		return false
	}
	for i, kf := range cmd.Keyframes {
		if !kf.Equal(o.Keyframes[i]) {
			return false
		}
	}
	return true
}

func (n *Node) Equal(o *Node) bool {
	if n.BoneName != o.BoneName || len(n.Commands) != len(o.Commands) {
		return false
	}
	for i, c := range n.Commands {
		if !c.Equal(o.Commands[i]) {
			return false
		}
	}
	return true
}

func (a *Animation) Equal(o *Animation) bool {
	if a.Index != o.Index || a.Name != o.Name || a.EndFrame != o.EndFrame || a.Type != o.Type ||
		a.LightUnknown != o.LightUnknown || a.ValueType != o.ValueType || len(a.Nodes) != len(o.Nodes) {
		return false
	}
	for i, n := range a.Nodes {
		if !n.Equal(o.Nodes[i]) {
			return false
		}
	}
	return true
}
