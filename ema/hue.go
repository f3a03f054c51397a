package ema

import (
	"math/rand"
	"sort"

	"github.com/binzume/xv2anim/geom"
	"github.com/binzume/xv2anim/undo"
)

// MaterialDefaults supplies values for color channels that have no command.
type MaterialDefaults interface {
	DefaultChannelValue(material string, p Parameter, c Component) (float32, bool)
}

func channelDefault(d MaterialDefaults, node string, p Parameter, c Component) float32 {
	if d != nil {
		if v, ok := d.DefaultChannelValue(node, p, c); ok {
			return v
		}
	}
	return 0
}

// colorParameters returns the parameters holding RGB(A) channels.
func (a *Animation) colorParameters() []Parameter {
	switch a.Type {
	case AnimationTypeLight:
		return []Parameter{ParameterColor}
	case AnimationTypeMaterial:
		return []Parameter{ParameterMatCol0, ParameterMatCol1, ParameterMatCol2, ParameterMatCol3}
	}
	return nil
}

func hasAnyChannel(n *Node, p Parameter, comps ...Component) bool {
	for _, c := range comps {
		if n.GetCommand(p, c) != nil {
			return true
		}
	}
	return false
}

// SyncColorChannels makes the four channels of every animated material
// color share one set of keyframe times. Inserted keyframes hold the
// previous value of their channel.
func (a *Animation) SyncColorChannels(defaults MaterialDefaults, sink undo.Sink) {
	if a.Type != AnimationTypeMaterial {
		return
	}
	comps := []Component{ComponentR, ComponentG, ComponentB, ComponentA}
	for _, n := range a.Nodes {
		for _, p := range a.colorParameters() {
			if !hasAnyChannel(n, p, comps...) {
				continue
			}
			times := map[uint16]bool{}
			for _, c := range comps {
				if cmd := n.GetCommand(p, c); cmd != nil {
					for _, kf := range cmd.Keyframes {
						times[kf.Time] = true
					}
				}
			}
			for _, c := range comps {
				cmd := n.GetCommand(p, c)
				if cmd == nil {
					cmd = a.NewCommand(p, c)
					cmd.DefaultValue = channelDefault(defaults, n.BoneName, p, c)
					n.AddCommand(cmd, sink)
				}
				for _, t := range sortedTimes(times) {
					if cmd.GetKeyframe(int(t)) == nil {
						cmd.insert(&Keyframe{Time: t, Value: holdValue(cmd, t)}, sink)
					}
				}
			}
		}
	}
}

func sortedTimes(set map[uint16]bool) []uint16 {
	times := make([]uint16, 0, len(set))
	for t := range set {
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })
	return times
}

// holdValue returns the value of the last keyframe before t, the first
// keyframe if none precedes it, or the default value.
func holdValue(c *Command, t uint16) float32 {
	var prev, first *Keyframe
	for _, kf := range c.Keyframes {
		if first == nil || kf.Time < first.Time {
			first = kf
		}
		if kf.Time < t && (prev == nil || kf.Time > prev.Time) {
			prev = kf
		}
	}
	switch {
	case prev != nil:
		return prev.Value
	case first != nil:
		return first.Value
	}
	return c.DefaultValue
}

// colorChannels returns the RGB commands of p on n, creating missing ones
// with keyframes at frame 0 and the end frame.
func (a *Animation) colorChannels(n *Node, p Parameter, defaults MaterialDefaults, sink undo.Sink) [3]*Command {
	var cmds [3]*Command
	for i, c := range []Component{ComponentR, ComponentG, ComponentB} {
		cmd := n.GetCommand(p, c)
		if cmd == nil {
			cmd = a.NewCommand(p, c)
			v := channelDefault(defaults, n.BoneName, p, c)
			cmd.DefaultValue = v
			cmd.Keyframes = []*Keyframe{{Time: 0, Value: v}}
			if a.EndFrame > 0 {
				cmd.Keyframes = append(cmd.Keyframes, &Keyframe{Time: a.EndFrame, Value: v})
			}
			n.AddCommand(cmd, sink)
		}
		cmds[i] = cmd
	}
	return cmds
}

func (a *Animation) recolor(fn func(geom.HSL) geom.HSL, defaults MaterialDefaults, sink undo.Sink) {
	g := &undo.Group{Name: "recolor"}
	a.SyncColorChannels(defaults, g)
	for _, n := range a.Nodes {
		for _, p := range a.colorParameters() {
			if !hasAnyChannel(n, p, ComponentR, ComponentG, ComponentB) {
				continue
			}
			ch := a.colorChannels(n, p, defaults, g)
			times := ch[0].Times()
			colors := make([]geom.RGB, len(times))
			for i, t := range times {
				rgb := geom.RGB{
					R: float64(ch[0].GetValue(int(t))),
					G: float64(ch[1].GetValue(int(t))),
					B: float64(ch[2].GetValue(int(t))),
				}
				colors[i] = fn(rgb.ToHsl()).ToRgb()
			}
			for i, t := range times {
				ch[0].SetValue(t, float32(colors[i].R), g)
				ch[1].SetValue(t, float32(colors[i].G), g)
				ch[2].SetValue(t, float32(colors[i].B), g)
			}
		}
	}
	undo.Add(sink, g)
}

// HueSet replaces the hue of every color keyframe. With a positive
// variance each keyframe gets hue plus a uniform offset in
// [-variance, variance] drawn from rnd.
func (a *Animation) HueSet(hue, variance float64, rnd *rand.Rand, defaults MaterialDefaults, sink undo.Sink) {
	if variance > 0 && rnd == nil {
		rnd = rand.New(rand.NewSource(1))
	}
	a.recolor(func(c geom.HSL) geom.HSL {
		h := hue
		if variance > 0 {
			h += (rnd.Float64()*2 - 1) * variance
		}
		return c.SetHue(h)
	}, defaults, sink)
}

// HueAdjust shifts hue, saturation and lightness of every color keyframe.
func (a *Animation) HueAdjust(dh, ds, dl float64, defaults MaterialDefaults, sink undo.Sink) {
	a.recolor(func(c geom.HSL) geom.HSL {
		return c.Adjust(dh, ds, dl)
	}, defaults, sink)
}
