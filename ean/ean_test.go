package ean

import (
	"bytes"
	"testing"

	"github.com/binzume/xv2anim/binio"
	"github.com/binzume/xv2anim/geom"
	"github.com/binzume/xv2anim/ik"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSkeleton() *Skeleton {
	root := NewBone("b_C_Base")
	root.ChildIndex = 1
	root.Transform.Position = geom.Vector4{X: 1, Y: 2, Z: 3, W: 1}
	spine := NewBone("b_C_Spine")
	spine.ParentIndex = 0
	spine.Transform.Rotation = geom.Quaternion{Z: 0.5, W: 0.8660254}
	m := geom.NewTranslateMatrix4(1, 3, 3).Transposed()
	spine.AbsoluteMatrix = m
	root.AbsoluteMatrix = geom.NewTranslateMatrix4(1, 2, 3).Transposed()
	spine.IKRelations = []*IKRelation{{Flag: 1, Bones: []IKBone{{"b_C_Base", 0.75}}}}
	return &Skeleton{Flags: 2, SkeletonID: 99, Bones: []*Bone{root, spine}}
}

func testFile() *File {
	f := NewFile()
	f.Version = 0x25990
	f.Skeleton = testSkeleton()

	a := NewAnimation(0, "run")
	a.FrameCount = 20
	n := a.AddNode("b_C_Spine")
	n.AddComponent(ComponentPosition).Keyframes = []*Keyframe{
		{Frame: 0, X: 0, Y: 1, Z: 0, W: 1},
		{Frame: 20, X: 2, Y: 1, Z: 0, W: 1},
	}
	n.AddComponent(ComponentRotation).Keyframes = []*Keyframe{
		{Frame: 0, W: 1},
		{Frame: 10, Z: 1},
	}

	b := NewAnimation(2, "")
	b.FloatSize = FloatSize16
	b.FrameCount = 400
	b.AddNode("b_C_Base").AddComponent(ComponentScale).Keyframes = []*Keyframe{
		{Frame: 0, X: 1, Y: 1, Z: 1, W: 1},
		{Frame: 400, X: 0.5, Y: 2, Z: 1, W: 1},
	}
	f.Animations = []*Animation{a, b}
	return f
}

func TestRoundTrip(t *testing.T) {
	f := testFile()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, f))
	data := append([]byte(nil), buf.Bytes()...)

	f2, err := Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, f.Version, f2.Version)
	assert.False(t, f2.IsCamera)
	assert.Equal(t, f.Skeleton, f2.Skeleton)
	assert.Equal(t, f.Animations, f2.Animations)
	assert.Nil(t, f2.GetAnimation(1))
	assert.Equal(t, IndexSize8, f2.Animations[0].IndexSize)
	assert.Equal(t, IndexSize16, f2.Animations[1].IndexSize)

	data2, err := f2.Write()
	require.NoError(t, err)
	assert.Equal(t, data, data2)
}

func TestCamera(t *testing.T) {
	f := testFile()
	f.IsCamera = true
	data, err := f.Write()
	require.NoError(t, err)
	f2, err := Load(data)
	require.NoError(t, err)
	assert.True(t, f2.IsCamera)
}

func TestWriteErrors(t *testing.T) {
	f := testFile()
	f.Animations[0].Nodes[0].BoneName = "missing"
	_, err := f.Write()
	assert.ErrorIs(t, err, ErrUnresolvedBone)

	f = testFile()
	c := f.Animations[0].Nodes[0].Components[0]
	c.Keyframes = append(c.Keyframes, &Keyframe{Frame: 20})
	_, err = f.Write()
	assert.ErrorIs(t, err, ErrDuplicateKeyframe)

	f = testFile()
	f.Animations[0].FloatSize = 3
	_, err = f.Write()
	assert.ErrorIs(t, err, ErrUnknownFloatSize)

	f = testFile()
	assert.ErrorIs(t, f.AddAnimation(NewAnimation(2, "dup")), ErrDuplicateAnimation)
	f.Animations = append(f.Animations, NewAnimation(0, "dup"))
	_, err = f.Write()
	assert.ErrorIs(t, err, ErrDuplicateAnimation)

	f = testFile()
	f.Skeleton.Bones[1].IKRelations[0].Bones[0].Name = "missing"
	_, err = f.Write()
	assert.ErrorIs(t, err, ErrUnresolvedBone)
}

func TestParseErrors(t *testing.T) {
	_, err := Load([]byte("#EMA0000000000000000000000000000"))
	assert.ErrorIs(t, err, ErrInvalidSignature)

	data, err := testFile().Write()
	require.NoError(t, err)
	_, err = Load(data[:0x60])
	assert.Error(t, err)
}

func TestSample(t *testing.T) {
	f := testFile()
	pos := f.Animations[0].Nodes[0].GetComponent(ComponentPosition)
	v := pos.Sample(5)
	assert.InDelta(t, 0.5, v.X, 1e-6)
	assert.InDelta(t, 1, v.Y, 1e-6)
	assert.Equal(t, float32(2), pos.Sample(30).X)

	rot := f.Animations[0].Nodes[0].GetComponent(ComponentRotation)
	q := rot.Sample(5)
	assert.InDelta(t, 0.7071068, q.Z, 1e-5)
	assert.InDelta(t, 0.7071068, q.W, 1e-5)

	empty := &Component{Type: ComponentScale}
	assert.Equal(t, geom.Vector4{X: 1, Y: 1, Z: 1, W: 1}, empty.Sample(3))
}

func TestClone(t *testing.T) {
	f := testFile()
	c := f.Clone()
	assert.Equal(t, f, c)
	assert.Nil(t, c.Skeleton.Bones[0].IKRelations)
	c.Animations[0].Nodes[0].Components[0].Keyframes[0].X = 9
	c.Skeleton.Bones[0].AbsoluteMatrix[3] = 7
	c.Skeleton.Bones[1].IKRelations[0].Bones[0].Weight = 0
	assert.Equal(t, float32(0), f.Animations[0].Nodes[0].Components[0].Keyframes[0].X)
	assert.Equal(t, float32(1), f.Skeleton.Bones[0].AbsoluteMatrix[3])
	assert.Equal(t, float32(0.75), f.Skeleton.Bones[1].IKRelations[0].Bones[0].Weight)
}

func TestChildren(t *testing.T) {
	s := testSkeleton()
	assert.Equal(t, []int{1}, s.Children(0))
	assert.Equal(t, []int{0}, s.Children(-1))
	assert.Nil(t, s.Children(1))
}

func TestDuplicateBoneNamesResolveFirst(t *testing.T) {
	s := testSkeleton()
	dup := NewBone("b_C_Base")
	dup.ParentIndex = 1
	s.Bones = append(s.Bones, dup)

	w := binio.NewWriter()
	require.NoError(t, writeSkeleton(w, s))
	r := binio.NewReader(w.Bytes())
	entries := ik.Parse(r, r.Int(0x14), len(s.Bones))
	require.Len(t, entries, 1)
	assert.Equal(t, []int{0}, entries[0].Bones)
}
