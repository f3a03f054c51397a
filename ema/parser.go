package ema

import (
	"fmt"
	"io"
	"os"

	"github.com/binzume/xv2anim/binio"
	"github.com/binzume/xv2anim/geom"
	"golang.org/x/text/encoding"
)

const animationHeaderSize = 20

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
		Version:  r.Int32(8),
		Type:     FileType(r.Uint16(0x12)),
		Reserved: [3]int32{r.Int32(0x14), r.Int32(0x18), r.Int32(0x1C)},
	}
	if skelOff := r.Int(0x0C); skelOff > 0 {
		s, err := parseSkeleton(r, skelOff)
		if err != nil {
			return nil, err
		}
		f.Skeleton = s
	}

	count := int(r.Uint16(0x10))
	for i := 0; i < count; i++ {
		off := r.Int(headerSize + i*4)
		if off == 0 {
			continue
		}
		a, err := p.parseAnimation(off, f.Skeleton)
		if err != nil {
			return nil, fmt.Errorf("animation %d: %w", i, err)
		}
		a.Index = i
		f.Animations = append(f.Animations, a)
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return f, nil
}

func (p *Parser) parseAnimation(start int, s *Skeleton) (*Animation, error) {
	r := p.r
	if !r.InRange(start, animationHeaderSize) {
		return nil, fmt.Errorf("%w: animation at 0x%x", binio.ErrOutOfRange, start)
	}
	a := &Animation{
		EndFrame:     r.Uint16(start),
		Type:         AnimationType(r.Uint8(start + 8)),
		LightUnknown: r.Uint8(start + 9),
		ValueType:    ValueType(r.Uint16(start + 10)),
	}
	cmdCount := int(r.Uint16(start + 2))
	valueCount := r.Int(start + 4)
	if nameOff := r.Int(start + 12); nameOff != 0 {
		a.Name = r.CString(start + nameOff)
	}
	if !a.ValueType.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownValueType, a.ValueType)
	}
	values, err := readValues(r, start+r.Int(start+16), valueCount, a.ValueType)
	if err != nil {
		return nil, err
	}

	for i := 0; i < cmdCount; i++ {
		boneIndex, cmd, err := decodeCommand(r, start+r.Int(start+animationHeaderSize+i*4), values)
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i, err)
		}
		name := ""
		var bone *Bone
		if s != nil {
			if boneIndex >= len(s.Bones) {
				return nil, fmt.Errorf("%w: %d", ErrBoneIndexOutOfRange, boneIndex)
			}
			bone = s.Bones[boneIndex]
			name = bone.Name
		} else if boneIndex != 0 {
			return nil, fmt.Errorf("%w: %d without skeleton", ErrBoneIndexOutOfRange, boneIndex)
		}
		cmd.DefaultValue = defaultValue(a.Type, cmd.Parameter)
		if bone != nil && (a.Type == AnimationTypeObject || a.Type == AnimationTypeCamera) {
			cmd.DefaultValue = bone.BindPoseValue(cmd.Parameter, cmd.Component, cmd.DefaultValue)
		}
		n := a.GetNode(name)
		if n == nil {
			n = &Node{BoneName: name}
			a.Nodes = append(a.Nodes, n)
		}
		n.Commands = append(n.Commands, cmd)
	}
	return a, nil
}

// BindPoseValue returns the rest value of a transform channel of b, or
// def for channels the relative matrix does not define.
func (b *Bone) BindPoseValue(p Parameter, c Component, def float32) float32 {
	if c > ComponentZ {
		return def
	}
	t := geom.ToRelativeTransform(&b.RelativeMatrix)
	var v geom.Vector3
	switch p {
	case ParameterPosition:
		v = geom.Vector3{X: t.Position.X, Y: t.Position.Y, Z: t.Position.Z}
	case ParameterRotation:
		v = *geom.NewEulerFromQuaternion(&t.Rotation, EulerOrder).Degrees()
	case ParameterScale:
		v = geom.Vector3{X: t.Scale.X, Y: t.Scale.Y, Z: t.Scale.Z}
	default:
		return def
	}
	return [3]float32{v.X, v.Y, v.Z}[c]
}

// Load parses EMA data.
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
