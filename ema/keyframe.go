package ema

import (
	"fmt"
	"math"

	"github.com/binzume/xv2anim/geom"
	"github.com/binzume/xv2anim/undo"
)

const bakeEpsilon = 0.00001

// GetKeyframe returns the keyframe at frame or nil.
func (c *Command) GetKeyframe(frame int) *Keyframe {
	for _, kf := range c.Keyframes {
		if int(kf.Time) == frame {
			return kf
		}
	}
	return nil
}

func (c *Command) neighbors(frame int) (before, after *Keyframe, exact *Keyframe) {
	for _, kf := range c.Keyframes {
		t := int(kf.Time)
		switch {
		case t == frame:
			return nil, nil, kf
		case t < frame:
			if before == nil || t > int(before.Time) {
				before = kf
			}
		default:
			if after == nil || t < int(after.Time) {
				after = kf
			}
		}
	}
	return before, after, nil
}

// GetValue evaluates the command at an integer frame.
func (c *Command) GetValue(frame int) float32 {
	before, after, exact := c.neighbors(frame)
	if exact != nil {
		return exact.Value
	}
	if before == nil {
		before = &Keyframe{Time: 0, Value: c.DefaultValue}
	}
	if after == nil {
		return before.Value
	}
	return interpolate(before, after, frame)
}

// GetValueAt evaluates the command at a fractional time by blending the
// two surrounding integer frames.
func (c *Command) GetValueAt(time float32) float32 {
	f := math.Floor(float64(time))
	frame := int(f)
	if float64(time) == f {
		return c.GetValue(frame)
	}
	return geom.Lerp(c.GetValue(frame), c.GetValue(frame+1), time-float32(f))
}

func interpolate(before, after *Keyframe, frame int) float32 {
	span := int(after.Time) - int(before.Time)
	if span <= 0 {
		return before.Value
	}
	t := float32(frame-int(before.Time)) / float32(span)
	switch before.Interpolation {
	case QuadraticBezier:
		return geom.QuadraticBezier(t, before.Value, before.Value+before.ControlPoint1, after.Value)
	case CubicBezier:
		return geom.CubicBezier(t, before.Value, before.Value+before.ControlPoint1, after.Value-before.ControlPoint2, after.Value)
	}
	return geom.Lerp(before.Value, after.Value, t)
}

// SetValue updates the keyframe at frame, inserting a linear one if none exists.
func (c *Command) SetValue(frame uint16, value float32, sink undo.Sink) {
	if kf := c.GetKeyframe(int(frame)); kf != nil {
		old := kf.Value
		kf.Value = value
		undo.Add(sink, &undo.Func{
			UndoFunc: func() { kf.Value = old },
			RedoFunc: func() { kf.Value = value },
		})
		return
	}
	c.insert(&Keyframe{Time: frame, Value: value}, sink)
}

// AddKeyframe inserts kf keeping keyframes ordered by time.
func (c *Command) AddKeyframe(kf *Keyframe, sink undo.Sink) error {
	if c.GetKeyframe(int(kf.Time)) != nil {
		return fmt.Errorf("%w: %d", ErrDuplicateKeyframe, kf.Time)
	}
	c.insert(kf, sink)
	return nil
}

func (c *Command) insert(kf *Keyframe, sink undo.Sink) {
	add := func() {
		i := 0
		for i < len(c.Keyframes) && c.Keyframes[i].Time < kf.Time {
			i++
		}
		c.Keyframes = append(c.Keyframes, nil)
		copy(c.Keyframes[i+1:], c.Keyframes[i:])
		c.Keyframes[i] = kf
	}
	add()
	undo.Add(sink, &undo.Func{
		UndoFunc: func() { c.Keyframes = removeKeyframe(c.Keyframes, kf) },
		RedoFunc: add,
	})
}

// RemoveKeyframe deletes the keyframe at frame and reports whether one existed.
func (c *Command) RemoveKeyframe(frame uint16, sink undo.Sink) bool {
	kf := c.GetKeyframe(int(frame))
	if kf == nil {
		return false
	}
	before := c.snapshot()
	c.Keyframes = removeKeyframe(c.Keyframes, kf)
	c.recordKeyframes(sink, before)
	return true
}

func removeKeyframe(kfs []*Keyframe, kf *Keyframe) []*Keyframe {
	for i, v := range kfs {
		if v == kf {
			return append(kfs[:i:i], kfs[i+1:]...)
		}
	}
	return kfs
}

func (c *Command) cloneKeyframes() []*Keyframe {
	if c.Keyframes == nil {
		return nil
	}
	kfs := make([]*Keyframe, len(c.Keyframes))
	for i, kf := range c.Keyframes {
		kfs[i] = kf.Clone()
	}
	return kfs
}

// keyframeSnapshot keeps keyframe identity so pointer based actions
// recorded earlier stay valid after a restore.
type keyframeSnapshot struct {
	ptrs []*Keyframe
	vals []Keyframe
}

func (c *Command) snapshot() keyframeSnapshot {
	s := keyframeSnapshot{ptrs: append([]*Keyframe(nil), c.Keyframes...), vals: make([]Keyframe, len(c.Keyframes))}
	for i, kf := range c.Keyframes {
		s.vals[i] = *kf
	}
	return s
}

func (s keyframeSnapshot) restore() []*Keyframe {
	for i, kf := range s.ptrs {
		*kf = s.vals[i]
	}
	return append([]*Keyframe(nil), s.ptrs...)
}

// recordKeyframes adds an action swapping between before and the current keyframes.
func (c *Command) recordKeyframes(sink undo.Sink, before keyframeSnapshot) {
	if sink == nil {
		return
	}
	after := c.snapshot()
	sink.Add(&undo.Func{
		UndoFunc: func() { c.Keyframes = before.restore() },
		RedoFunc: func() { c.Keyframes = after.restore() },
	})
}

// BakeBezier replaces bezier segments with one linear keyframe per
// intermediate frame. Segments to an adjacent frame or with a flat curve
// get no intermediates. Every keyframe ends up Linear.
func (c *Command) BakeBezier(sink undo.Sink) {
	before := c.snapshot()
	c.Sort()
	src := c.Keyframes
	out := make([]*Keyframe, 0, len(src))
	changed := false
	for i, kf := range src {
		out = append(out, kf)
		if kf.Interpolation == Linear {
			continue
		}
		changed = true
		if i+1 < len(src) {
			next := src[i+1]
			if next.Time-kf.Time > 1 && !isFlat(kf, next) {
				for t := int(kf.Time) + 1; t < int(next.Time); t++ {
					out = append(out, &Keyframe{Time: uint16(t), Value: interpolate(kf, next, t)})
				}
			}
		}
	}
	for _, kf := range src {
		kf.Interpolation = Linear
	}
	c.Keyframes = out
	if changed {
		c.recordKeyframes(sink, before)
	}
}

func isFlat(kf, next *Keyframe) bool {
	return geom.Abs(kf.ControlPoint1) < bakeEpsilon &&
		geom.Abs(kf.ControlPoint2) < bakeEpsilon &&
		geom.Abs(kf.Value-next.Value) < bakeEpsilon
}

// BakeBezier bakes every command of the animation.
func (a *Animation) BakeBezier(sink undo.Sink) {
	for _, n := range a.Nodes {
		for _, c := range n.Commands {
			c.BakeBezier(sink)
		}
	}
}
