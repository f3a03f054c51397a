// Package ema reads and writes EMA skeletal, light and material animations.
package ema

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/binzume/xv2anim/geom"
	"github.com/binzume/xv2anim/undo"
)

const (
	Signature  uint32 = 0x414D4523 // "#EMA"
	headerSize        = 0x20
)

// EulerOrder is the rotation order of EMA rotation commands (degrees).
const EulerOrder = geom.RotationOrderZYX

var (
	ErrInvalidSignature     = errors.New("ema: invalid signature")
	ErrUnknownValueType     = errors.New("ema: unknown value type")
	ErrUnknownInterpolation = errors.New("ema: unknown interpolation")
	ErrBoneIndexOutOfRange  = errors.New("ema: bone index out of range")
	ErrDuplicateAnimation   = errors.New("ema: duplicate animation index")
	ErrUnresolvedBone       = errors.New("ema: bone name does not resolve")
	ErrDuplicateKeyframe    = errors.New("ema: duplicate keyframe time")
	ErrIndexOverflow        = errors.New("ema: index does not fit")
	ErrZeroDuration         = errors.New("ema: animation has zero duration")
)

type FileType uint16

const (
	FileTypeObject   FileType = 3
	FileTypeLight    FileType = 4
	FileTypeMaterial FileType = 8
)

type AnimationType uint8

const (
	AnimationTypeObject AnimationType = iota
	AnimationTypeCamera
	AnimationTypeLight
	AnimationTypeMaterial
)

// ValueType selects the precision of the value pool.
type ValueType uint16

const (
	ValueTypeFloat16 ValueType = iota
	ValueTypeFloat32
	ValueTypeVector4 // float32 values, pool padded to a multiple of 4
)

func (v ValueType) valid() bool {
	return v <= ValueTypeVector4
}

type Parameter uint8

// object / camera
const (
	ParameterPosition Parameter = 0
	ParameterRotation Parameter = 1
	ParameterScale    Parameter = 2
)

// light
const (
	ParameterColor Parameter = 0
	ParameterLight Parameter = 1
)

// material
const (
	ParameterMatCol0 Parameter = iota
	ParameterMatCol1
	ParameterMatCol2
	ParameterMatCol3
	ParameterTexScrl0
	ParameterTexScrl1
	ParameterTexScrl2
	ParameterTexScrl3
)

type Component uint8

const (
	ComponentX Component = 0
	ComponentY Component = 1
	ComponentZ Component = 2
	ComponentW Component = 3

	ComponentR Component = 0
	ComponentG Component = 1
	ComponentB Component = 2
	ComponentA Component = 3

	ComponentInnerRadius Component = 2
	ComponentOuterRadius Component = 3
)

type Interpolation uint8

const (
	Linear Interpolation = iota
	QuadraticBezier
	CubicBezier
)

func (i Interpolation) String() string {
	switch i {
	case Linear:
		return "Linear"
	case QuadraticBezier:
		return "QuadraticBezier"
	case CubicBezier:
		return "CubicBezier"
	}
	return fmt.Sprintf("Interpolation(%d)", int(i))
}

type File struct {
	Version    int32
	Type       FileType
	Reserved   [3]int32
	Skeleton   *Skeleton
	Animations []*Animation
}

type Animation struct {
	Index        int
	Name         string
	EndFrame     uint16
	Type         AnimationType
	LightUnknown uint8
	ValueType    ValueType
	Nodes        []*Node
}

// Node holds the commands bound to one bone. BoneName is empty for the
// single node of a skeleton-less file.
type Node struct {
	BoneName string
	Commands []*Command
}

type Command struct {
	Parameter  Parameter
	Component  Component
	ExtraFlags uint8 // upper bits of the flag nibble, preserved as-is

	// Derived on write.
	Int16ForTime       bool
	Int16ForValueIndex bool

	// DefaultValue is used when no keyframe exists before a requested time.
	DefaultValue float32
	Keyframes    []*Keyframe
}

type Keyframe struct {
	Time          uint16
	Value         float32
	ControlPoint1 float32
	ControlPoint2 float32
	Interpolation Interpolation
}

func NewFile(t FileType) *File {
	return &File{Type: t}
}

// GetAnimation returns the animation stored in slot index.
func (f *File) GetAnimation(index int) *Animation {
	for _, a := range f.Animations {
		if a.Index == index {
			return a
		}
	}
	return nil
}

// NextIndex returns the first slot after the highest used one.
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

// animationSlots returns animations placed at their index.
func (f *File) animationSlots() ([]*Animation, error) {
	slots := make([]*Animation, f.NextIndex())
	for _, a := range f.Animations {
		if a.Index < 0 {
			return nil, fmt.Errorf("ema: negative animation index %d", a.Index)
		}
		if slots[a.Index] != nil {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateAnimation, a.Index)
		}
		slots[a.Index] = a
	}
	return slots, nil
}

func NewAnimation(index int, name string, t AnimationType) *Animation {
	return &Animation{Index: index, Name: name, Type: t, ValueType: ValueTypeFloat32}
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
func (a *Animation) AddNode(boneName string, sink undo.Sink) *Node {
	if n := a.GetNode(boneName); n != nil {
		return n
	}
	n := &Node{BoneName: boneName}
	a.Nodes = append(a.Nodes, n)
	undo.Add(sink, &undo.Func{
		UndoFunc: func() { a.Nodes = removeNode(a.Nodes, n) },
		RedoFunc: func() { a.Nodes = append(a.Nodes, n) },
	})
	return n
}

func removeNode(nodes []*Node, n *Node) []*Node {
	for i, v := range nodes {
		if v == n {
			return append(nodes[:i:i], nodes[i+1:]...)
		}
	}
	return nodes
}

// NewCommand returns a command for p/c with the default value of its
// parameter in an animation of type t.
func (a *Animation) NewCommand(p Parameter, c Component) *Command {
	return &Command{Parameter: p, Component: c, DefaultValue: defaultValue(a.Type, p)}
}

func defaultValue(t AnimationType, p Parameter) float32 {
	if (t == AnimationTypeObject || t == AnimationTypeCamera) && p == ParameterScale {
		return 1
	}
	return 0
}

func (n *Node) GetCommand(p Parameter, c Component) *Command {
	for _, cmd := range n.Commands {
		if cmd.Parameter == p && cmd.Component == c {
			return cmd
		}
	}
	return nil
}

func (n *Node) AddCommand(cmd *Command, sink undo.Sink) {
	n.Commands = append(n.Commands, cmd)
	undo.Add(sink, &undo.Func{
		UndoFunc: func() { n.Commands = removeCommand(n.Commands, cmd) },
		RedoFunc: func() { n.Commands = append(n.Commands, cmd) },
	})
}

func removeCommand(cmds []*Command, c *Command) []*Command {
	for i, v := range cmds {
		if v == c {
			return append(cmds[:i:i], cmds[i+1:]...)
		}
	}
	return cmds
}

// Rescale stretches every keyframe so the animation ends at endFrame.
// Keyframes that collide after rounding keep the later source keyframe.
func (a *Animation) Rescale(endFrame uint16, sink undo.Sink) error {
	if a.EndFrame == 0 {
		return ErrZeroDuration
	}
	ratio := float64(endFrame) / float64(a.EndFrame)
	for _, n := range a.Nodes {
		for _, c := range n.Commands {
			for _, kf := range c.Keyframes {
				if t := float64(kf.Time)*ratio + 0.5; t >= math.MaxUint16+1 {
					return fmt.Errorf("%w: keyframe %d rescaled to %d", ErrIndexOverflow, kf.Time, int(t))
				}
			}
		}
	}
	g := &undo.Group{Name: "rescale"}
	for _, n := range a.Nodes {
		for _, c := range n.Commands {
			before := c.snapshot()
			c.Sort()
			var out []*Keyframe
			for _, kf := range c.Keyframes {
				kf.Time = uint16(float64(kf.Time)*ratio + 0.5)
				if len(out) > 0 && out[len(out)-1].Time == kf.Time {
					out[len(out)-1] = kf
					continue
				}
				out = append(out, kf)
			}
			c.Keyframes = out
			c.recordKeyframes(g, before)
		}
	}
	oldEnd := a.EndFrame
	a.EndFrame = endFrame
	g.Add(&undo.Func{
		UndoFunc: func() { a.EndFrame = oldEnd },
		RedoFunc: func() { a.EndFrame = endFrame },
	})
	undo.Add(sink, g)
	return nil
}

// Sort orders keyframes by time.
func (c *Command) Sort() {
	sort.SliceStable(c.Keyframes, func(i, j int) bool { return c.Keyframes[i].Time < c.Keyframes[j].Time })
}

// Times returns the sorted keyframe times.
func (c *Command) Times() []uint16 {
	times := make([]uint16, 0, len(c.Keyframes))
	for _, kf := range c.Keyframes {
		times = append(times, kf.Time)
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })
	return times
}
