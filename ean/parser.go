package ean

import (
	"fmt"
	"io"
	"os"

	"github.com/binzume/xv2anim/binio"
	"golang.org/x/text/encoding"
)

type Parser struct {
	r *binio.Reader
}

func NewParser(data []byte) *Parser {
	return &Parser{r: binio.NewReader(data)}
}

// SetEncoding sets the encoding of bone and animation names.
func (p *Parser) SetEncoding(enc encoding.Encoding) {
	p.r.Encoding = enc
}

func (p *Parser) Parse() (*File, error) {
	r := p.r
	if r.Len() < headerSize || r.Uint32(0) != Signature {
		return nil, ErrInvalidSignature
	}
	f := &File{
		Version:   r.Int32(8),
		Unknown0C: r.Uint32(0x0C),
		IsCamera:  r.Uint8(0x10) != 0,
	}
	count := int(r.Uint16(0x12))
	if skelOff := r.Int(0x14); skelOff > 0 {
		s, err := parseSkeleton(r, skelOff)
		if err != nil {
			return nil, err
		}
		f.Skeleton = s
	}
	animTable := r.Int(0x18)
	nameTable := r.Int(0x1C)
	for i := 0; i < count; i++ {
		off := r.Int(animTable + i*4)
		if off == 0 {
			continue
		}
		a, err := p.parseAnimation(off, f.Skeleton)
		if err != nil {
			return nil, fmt.Errorf("animation %d: %w", i, err)
		}
		a.Index = i
		if nameTable != 0 {
			if nameOff := r.Int(nameTable + i*4); nameOff != 0 {
				a.Name = r.CString(nameOff)
			}
		}
		f.Animations = append(f.Animations, a)
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return f, nil
}

func (p *Parser) parseAnimation(start int, s *Skeleton) (*Animation, error) {
	r := p.r
	if !r.InRange(start, 16) {
		return nil, fmt.Errorf("%w: animation at 0x%x", binio.ErrOutOfRange, start)
	}
	a := &Animation{
		IndexSize:  IndexSize(r.Uint8(start + 2)),
		FloatSize:  FloatSize(r.Uint8(start + 3)),
		FrameCount: r.Int(start + 4),
	}
	if a.IndexSize > IndexSize16 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownIndexSize, a.IndexSize)
	}
	if a.FloatSize != FloatSize16 && a.FloatSize != FloatSize32 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFloatSize, a.FloatSize)
	}
	nodeCount := r.Int(start + 8)
	nodeTable := start + r.Int(start+12)
	if !r.InRange(nodeTable, nodeCount*4) {
		return nil, fmt.Errorf("%w: %d nodes at 0x%x", binio.ErrOutOfRange, nodeCount, nodeTable)
	}
	for i := 0; i < nodeCount; i++ {
		node := start + r.Int(nodeTable+i*4)
		boneIndex := int(r.Uint16(node))
		if s == nil || boneIndex >= len(s.Bones) {
			return nil, fmt.Errorf("%w: %d", ErrBoneIndexOutOfRange, boneIndex)
		}
		n := &Node{BoneName: s.Bones[boneIndex].Name}
		compCount := int(r.Uint16(node + 2))
		compTable := node + r.Int(node+4)
		for j := 0; j < compCount; j++ {
			c, err := p.parseComponent(node+r.Int(compTable+j*4), a)
			if err != nil {
				return nil, err
			}
			n.Components = append(n.Components, c)
		}
		a.Nodes = append(a.Nodes, n)
	}
	return a, nil
}

func (p *Parser) parseComponent(start int, a *Animation) (*Component, error) {
	r := p.r
	if !r.InRange(start, 16) {
		return nil, fmt.Errorf("%w: component at 0x%x", binio.ErrOutOfRange, start)
	}
	c := &Component{
		Type:      ComponentType(r.Uint8(start)),
		Flags:     r.Uint8(start + 1),
		Unknown02: r.Uint16(start + 2),
	}
	count := r.Int(start + 4)
	indexOff := start + r.Int(start+8)
	floatOff := start + r.Int(start+12)
	stride := 16
	if a.FloatSize == FloatSize16 {
		stride = 8
	}
	if !r.InRange(floatOff, count*stride) {
		return nil, fmt.Errorf("%w: %d keyframes at 0x%x", binio.ErrOutOfRange, count, floatOff)
	}
	c.Keyframes = make([]*Keyframe, count)
	for i := range c.Keyframes {
		kf := &Keyframe{}
		if a.IndexSize == IndexSize16 {
			kf.Frame = int(r.Uint16(indexOff + i*2))
		} else {
			kf.Frame = int(r.Uint8(indexOff + i))
		}
		v := floatOff + i*stride
		if a.FloatSize == FloatSize16 {
			kf.X, kf.Y, kf.Z, kf.W = r.Float16(v), r.Float16(v+2), r.Float16(v+4), r.Float16(v+6)
		} else {
			kf.X, kf.Y, kf.Z, kf.W = r.Float32(v), r.Float32(v+4), r.Float32(v+8), r.Float32(v+12)
		}
		c.Keyframes[i] = kf
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

func Load(data []byte) (*File, error) {
	return NewParser(data).Parse()
}

func Parse(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Load(data)
}

func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(data)
}
