// Package ean reads and writes EAN animation files and their embedded
// ESK skeleton.
package ean

import (
	"errors"
	"fmt"
	"sort"

	"github.com/binzume/xv2anim/geom"
)

const (
	Signature  uint32 = 0x4E414523 // "#EAN"
	headerSize        = 0x20
)

var (
	ErrInvalidSignature    = errors.New("ean: invalid signature")
	ErrUnknownIndexSize    = errors.New("ean: unknown index size")
	ErrUnknownFloatSize    = errors.New("ean: unknown float size")
	ErrBoneIndexOutOfRange = errors.New("ean: bone index out of range")
	ErrDuplicateAnimation  = errors.New("ean: duplicate animation index")
	ErrUnresolvedBone      = errors.New("ean: bone name does not resolve")
	ErrDuplicateKeyframe   = errors.New("ean: duplicate keyframe frame")
	ErrIndexOverflow       = errors.New("ean: index does not fit")
)

// IndexSize is the width of keyframe frame numbers. It is chosen on write.
type IndexSize uint8

const (
	IndexSize8 IndexSize = iota
	IndexSize16
)

type FloatSize uint8

const (
	FloatSize16 FloatSize = 1
	FloatSize32 FloatSize = 2
)

// ComponentType is the transform channel of a component. Material
// animations store the EMA material parameter here instead.
type ComponentType uint8

const (
	ComponentPosition ComponentType = 0
	ComponentRotation ComponentType = 1
	ComponentScale    ComponentType = 2
)

type File struct {
	Version    int32
	Unknown0C  uint32
	IsCamera   bool
	Skeleton   *Skeleton
	Animations []*Animation
}

type Animation struct {
	Index      int
	Name       string
	FrameCount int
	IndexSize  IndexSize
	FloatSize  FloatSize
	Nodes      []*Node
}

type Node struct {
	BoneName   string
	Components []*Component
}

type Component struct {
	Type      ComponentType
	Flags     uint8
	Unknown02 uint16
	Keyframes []*Keyframe
}

// Keyframe holds a position / scale vector or a rotation quaternion.
type Keyframe struct {
	Frame      int
	X, Y, Z, W float32
}

func NewFile() *File {
	return &File{}
}

func NewAnimation(index int, name string) *Animation {
	return &Animation{Index: index, Name: name, FloatSize: FloatSize32}
}

func (f *File) GetAnimation(index int) *Animation {
	for _, a := range f.Animations {
		if a.Index == index {
			return a
		}
	}
	return nil
}

func (f *File) NextIndex() int {
	n := 0
	for _, a := range f.Animations {
		if a.Index >= n {
			n = a.Index + 1
		}
	}
	return n
}

func (f *File) AddAnimation(a *Animation) error {
	if f.GetAnimation(a.Index) != nil {
		return fmt.Errorf("%w: %d", ErrDuplicateAnimation, a.Index)
	}
	f.Animations = append(f.Animations, a)
	return nil
}

func (a *Animation) GetNode(boneName string) *Node {
	for _, n := range a.Nodes {
		if n.BoneName == boneName {
			return n
		}
	}
	return nil
}

// AddNode returns the node for boneName, creating it if needed.
func (a *Animation) AddNode(boneName string) *Node {
	if n := a.GetNode(boneName); n != nil {
		return n
	}
	n := &Node{BoneName: boneName}
	a.Nodes = append(a.Nodes, n)
	return n
}

func (n *Node) GetComponent(t ComponentType) *Component {
	for _, c := range n.Components {
		if c.Type == t {
			return c
		}
	}
	return nil
}

// AddComponent returns the component of type t, creating it if needed.
func (n *Node) AddComponent(t ComponentType) *Component {
	if c := n.GetComponent(t); c != nil {
		return c
	}
	c := &Component{Type: t}
	n.Components = append(n.Components, c)
	return c
}

func (c *Component) Sort() {
	sort.SliceStable(c.Keyframes, func(i, j int) bool { return c.Keyframes[i].Frame < c.Keyframes[j].Frame })
}

func (c *Component) GetKeyframe(frame int) *Keyframe {
	for _, kf := range c.Keyframes {
		if kf.Frame == frame {
			return kf
		}
	}
	return nil
}

func (kf *Keyframe) Vector() geom.Vector4 {
	return geom.Vector4{X: kf.X, Y: kf.Y, Z: kf.Z, W: kf.W}
}

// Sample returns the value at frame. Rotations are slerped, other
// components are interpolated linearly. Frames outside the keyframe range
// hold the nearest keyframe.
func (c *Component) Sample(frame float32) geom.Vector4 {
	var before, after *Keyframe
	for _, kf := range c.Keyframes {
		f := float32(kf.Frame)
		if f <= frame && (before == nil || kf.Frame > before.Frame) {
			before = kf
		}
		if f >= frame && (after == nil || kf.Frame < after.Frame) {
			after = kf
		}
	}
	switch {
	case before == nil && after == nil:
		if c.Type == ComponentScale {
			return geom.Vector4{X: 1, Y: 1, Z: 1, W: 1}
		}
		if c.Type == ComponentRotation {
			return geom.Vector4{W: 1}
		}
		return geom.Vector4{}
	case before == nil:
		return after.Vector()
	case after == nil || after == before:
		return before.Vector()
	}
	t := (frame - float32(before.Frame)) / float32(after.Frame-before.Frame)
	a, b := before.Vector(), after.Vector()
	if c.Type == ComponentRotation {
		return *geom.Slerp(&a, &b, t)
	}
	return geom.Vector4{
		X: geom.Lerp(a.X, b.X, t),
		Y: geom.Lerp(a.Y, b.Y, t),
		Z: geom.Lerp(a.Z, b.Z, t),
		W: geom.Lerp(a.W, b.W, t),
	}
}

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
	if n.Components != nil {
		c.Components = make([]*Component, len(n.Components))
		for i, comp := range n.Components {
			c.Components[i] = comp.Clone()
		}
	}
	return c
}

func (comp *Component) Clone() *Component {
	c := *comp
	if comp.Keyframes != nil {
		c.Keyframes = make([]*Keyframe, len(comp.Keyframes))
		for i, kf := range comp.Keyframes {
			k := *kf
			c.Keyframes[i] = &k
		}
	}
	return &c
}
