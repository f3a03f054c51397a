package main

import (
	"fmt"
	"io"

	"github.com/binzume/xv2anim/ean"
	"github.com/binzume/xv2anim/ema"
	"gopkg.in/yaml.v2"
)

type boneSummary struct {
	Name   string `yaml:"name"`
	Parent string `yaml:"parent,omitempty"`
	IK     int    `yaml:"ik,omitempty"`
}

type keySummary struct {
	Time          uint16    `yaml:"time"`
	Value         float32   `yaml:"value"`
	Interpolation string    `yaml:"interpolation,omitempty"`
	ControlPoints []float32 `yaml:"cp,flow,omitempty"`
}

type commandSummary struct {
	Parameter string       `yaml:"parameter"`
	Component string       `yaml:"component"`
	Keyframes []keySummary `yaml:"keyframes"`
}

type emaNodeSummary struct {
	Bone     string           `yaml:"bone"`
	Commands []commandSummary `yaml:"commands"`
}

type emaAnimationSummary struct {
	Index     int              `yaml:"index"`
	Name      string           `yaml:"name"`
	Type      string           `yaml:"type"`
	EndFrame  uint16           `yaml:"end_frame"`
	ValueType string           `yaml:"value_type"`
	Nodes     []emaNodeSummary `yaml:"nodes"`
}

type emaSummary struct {
	Version    int32                 `yaml:"version"`
	Type       int                   `yaml:"type"`
	Bones      []boneSummary         `yaml:"bones,omitempty"`
	Animations []emaAnimationSummary `yaml:"animations"`
}

type componentSummary struct {
	Type      string      `yaml:"type"`
	Keyframes [][]float32 `yaml:"keyframes,flow"`
}

type eanNodeSummary struct {
	Bone       string             `yaml:"bone"`
	Components []componentSummary `yaml:"components"`
}

type eanAnimationSummary struct {
	Index      int              `yaml:"index"`
	Name       string           `yaml:"name"`
	FrameCount int              `yaml:"frame_count"`
	Nodes      []eanNodeSummary `yaml:"nodes"`
}

type eanSummary struct {
	Version    int32                 `yaml:"version"`
	Camera     bool                  `yaml:"camera"`
	Bones      []boneSummary         `yaml:"bones,omitempty"`
	Animations []eanAnimationSummary `yaml:"animations"`
}

func summarizeEMA(f *ema.File) *emaSummary {
	s := &emaSummary{Version: f.Version, Type: int(f.Type)}
	if f.Skeleton != nil {
		for _, b := range f.Skeleton.Bones {
			bs := boneSummary{Name: b.Name, IK: len(b.IKRelations)}
			if p := f.Skeleton.Parent(b); p != nil {
				bs.Parent = p.Name
			}
			s.Bones = append(s.Bones, bs)
		}
	}
	for _, a := range f.Animations {
		as := emaAnimationSummary{
			Index:     a.Index,
			Name:      a.Name,
			Type:      a.Type.String(),
			EndFrame:  a.EndFrame,
			ValueType: a.ValueType.String(),
		}
		for _, n := range a.Nodes {
			ns := emaNodeSummary{Bone: n.BoneName}
			for _, c := range n.Commands {
				cs := commandSummary{
					Parameter: ema.ParameterName(a.Type, c.Parameter),
					Component: ema.ComponentName(a.Type, c.Parameter, c.Component),
				}
				for _, kf := range c.Keyframes {
					ks := keySummary{Time: kf.Time, Value: kf.Value}
					switch kf.Interpolation {
					case ema.QuadraticBezier:
						ks.Interpolation = kf.Interpolation.String()
						ks.ControlPoints = []float32{kf.ControlPoint1}
					case ema.CubicBezier:
						ks.Interpolation = kf.Interpolation.String()
						ks.ControlPoints = []float32{kf.ControlPoint1, kf.ControlPoint2}
					}
					cs.Keyframes = append(cs.Keyframes, ks)
				}
				ns.Commands = append(ns.Commands, cs)
			}
			as.Nodes = append(as.Nodes, ns)
		}
		s.Animations = append(s.Animations, as)
	}
	return s
}

var componentTypeNames = []string{"Position", "Rotation", "Scale"}

func componentTypeName(t ean.ComponentType) string {
	if int(t) < len(componentTypeNames) {
		return componentTypeNames[t]
	}
	return fmt.Sprintf("Component%d", t)
}

func summarizeEAN(f *ean.File) *eanSummary {
	s := &eanSummary{Version: f.Version, Camera: f.IsCamera}
	if f.Skeleton != nil {
		for _, b := range f.Skeleton.Bones {
			bs := boneSummary{Name: b.Name, IK: len(b.IKRelations)}
			if b.ParentIndex >= 0 && b.ParentIndex < len(f.Skeleton.Bones) {
				bs.Parent = f.Skeleton.Bones[b.ParentIndex].Name
			}
			s.Bones = append(s.Bones, bs)
		}
	}
	for _, a := range f.Animations {
		as := eanAnimationSummary{Index: a.Index, Name: a.Name, FrameCount: a.FrameCount}
		for _, n := range a.Nodes {
			ns := eanNodeSummary{Bone: n.BoneName}
			for _, c := range n.Components {
				cs := componentSummary{Type: componentTypeName(c.Type)}
				for _, kf := range c.Keyframes {
					cs.Keyframes = append(cs.Keyframes, []float32{float32(kf.Frame), kf.X, kf.Y, kf.Z, kf.W})
				}
				ns.Components = append(ns.Components, cs)
			}
			as.Nodes = append(as.Nodes, ns)
		}
		s.Animations = append(s.Animations, as)
	}
	return s
}

// dump writes a YAML summary of an *ema.File or *ean.File.
func dump(w io.Writer, v interface{}) error {
	var s interface{}
	switch f := v.(type) {
	case *ema.File:
		s = summarizeEMA(f)
	case *ean.File:
		s = summarizeEAN(f)
	default:
		return fmt.Errorf("cannot dump %T", v)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
