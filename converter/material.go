package converter

import (
	"github.com/binzume/xv2anim/ean"
	"github.com/binzume/xv2anim/ema"
)

// MaterialSource lists the materials of the model an EMA material
// animation targets, in model order.
type MaterialSource interface {
	MaterialNames() []string
}

// MaterialEntry holds default RGBA values per color parameter name
// (MatCol0..MatCol3) for one material.
type MaterialEntry struct {
	Name     string               `yaml:"name"`
	Channels map[string][]float32 `yaml:"channels"`
}

// MaterialTable is loaded from the CLI config and serves both as the
// material order for synthetic skeletons and as hue defaults.
type MaterialTable []MaterialEntry

func (t MaterialTable) MaterialNames() []string {
	names := make([]string, 0, len(t))
	for _, m := range t {
		names = append(names, m.Name)
	}
	return names
}

func (t MaterialTable) DefaultChannelValue(material string, p ema.Parameter, c ema.Component) (float32, bool) {
	name := ema.ParameterName(ema.AnimationTypeMaterial, p)
	for _, m := range t {
		if m.Name != material {
			continue
		}
		if v, ok := m.Channels[name]; ok && int(c) < len(v) {
			return v[c], true
		}
	}
	return 0, false
}

// MaterialSkeleton builds a flat skeleton with one bone per material, in
// source order, followed by node names of f that no material matches.
func MaterialSkeleton(src MaterialSource, f *ema.File) *ean.Skeleton {
	s := &ean.Skeleton{}
	seen := map[string]bool{}
	add := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		s.Bones = append(s.Bones, ean.NewBone(name))
	}
	if src != nil {
		for _, name := range src.MaterialNames() {
			add(name)
		}
	}
	for _, a := range f.Animations {
		for _, n := range a.Nodes {
			add(n.BoneName)
		}
	}
	return s
}
