package converter

import (
	"fmt"
	"log"

	"github.com/binzume/xv2anim/ean"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

type EANToGLTFOption struct {
	FrameRate float32
}

type eanToGltf struct {
	*EANToGLTFOption
	*gltf.Document
}

func NewEANToGLTFConverter(options *EANToGLTFOption) *eanToGltf {
	if options == nil {
		options = &EANToGLTFOption{}
	}
	if options.FrameRate == 0 {
		options.FrameRate = 60
	}
	return &eanToGltf{
		EANToGLTFOption: options,
		Document:        gltf.NewDocument(),
	}
}

func (c *eanToGltf) addBoneNodes(s *ean.Skeleton) {
	for _, b := range s.Bones {
		t := b.Transform
		c.Nodes = append(c.Nodes, &gltf.Node{
			Name:        b.Name,
			Translation: [3]float32{t.Position.X, t.Position.Y, t.Position.Z},
			Rotation:    [4]float32{t.Rotation.X, t.Rotation.Y, t.Rotation.Z, t.Rotation.W},
			Scale:       [3]float32{t.Scale.X, t.Scale.Y, t.Scale.Z},
		})
	}
	for i, b := range s.Bones {
		if b.ParentIndex >= 0 && b.ParentIndex < len(s.Bones) && b.ParentIndex != i {
			parent := c.Nodes[b.ParentIndex]
			parent.Children = append(parent.Children, uint32(i))
		} else {
			c.Scenes[0].Nodes = append(c.Scenes[0].Nodes, uint32(i))
		}
	}
}

func (c *eanToGltf) addChannel(a *gltf.Animation, node int, keys uint32, output uint32, path gltf.TRSProperty) {
	a.Samplers = append(a.Samplers, &gltf.AnimationSampler{
		Input:         gltf.Index(keys),
		Output:        gltf.Index(output),
		Interpolation: gltf.InterpolationLinear,
	})
	a.Channels = append(a.Channels, &gltf.Channel{
		Sampler: gltf.Index(uint32(len(a.Samplers) - 1)),
		Target: gltf.ChannelTarget{
			Node: gltf.Index(uint32(node)),
			Path: path,
		},
	})
}

func (c *eanToGltf) convertAnimation(s *ean.Skeleton, src *ean.Animation) *gltf.Animation {
	a := &gltf.Animation{Name: src.Name}
	if a.Name == "" {
		a.Name = fmt.Sprintf("animation%d", src.Index)
	}
	for _, n := range src.Nodes {
		node := s.BoneIndex(n.BoneName)
		if node < 0 {
			log.Println("Unknown bone : ", n.BoneName)
			continue
		}
		for _, comp := range n.Components {
			if len(comp.Keyframes) == 0 {
				continue
			}
			kfs := comp.Clone()
			kfs.Sort()
			var keys []float32
			var vec3 [][3]float32
			var vec4 [][4]float32
			for _, kf := range kfs.Keyframes {
				keys = append(keys, float32(kf.Frame)/c.FrameRate)
				vec3 = append(vec3, [3]float32{kf.X, kf.Y, kf.Z})
				q := kf.Vector()
				q.Normalize()
				vec4 = append(vec4, [4]float32{q.X, q.Y, q.Z, q.W})
			}
			keysAcc := modeler.WriteAccessor(c.Document, gltf.TargetArrayBuffer, keys)
			switch comp.Type {
			case ean.ComponentPosition:
				c.addChannel(a, node, keysAcc, modeler.WritePosition(c.Document, vec3), gltf.TRSTranslation)
			case ean.ComponentRotation:
				c.addChannel(a, node, keysAcc, modeler.WriteTangent(c.Document, vec4), gltf.TRSRotation)
			case ean.ComponentScale:
				c.addChannel(a, node, keysAcc, modeler.WriteAccessor(c.Document, gltf.TargetArrayBuffer, vec3), gltf.TRSScale)
			default:
				log.Println("Unsupported component type : ", comp.Type)
			}
		}
	}
	return a
}

// Convert builds a node per bone and one glTF animation per EAN
// animation. Keyframe times are frames divided by FrameRate.
func (c *eanToGltf) Convert(src *ean.File) (*gltf.Document, error) {
	if src.Skeleton == nil || len(src.Skeleton.Bones) == 0 {
		return nil, fmt.Errorf("%w: no skeleton", ErrUnsupported)
	}
	c.addBoneNodes(src.Skeleton)
	for _, a := range src.Animations {
		ga := c.convertAnimation(src.Skeleton, a)
		if len(ga.Channels) > 0 {
			c.Animations = append(c.Animations, ga)
		}
	}
	return c.Document, nil
}
