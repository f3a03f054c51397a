package converter

import (
	"testing"

	"github.com/binzume/xv2anim/ean"
	"github.com/binzume/xv2anim/ema"
	"github.com/binzume/xv2anim/geom"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSkeleton() *ema.Skeleton {
	root := ema.NewBone("b_C_Base")
	root.ChildIndex = 1
	root.RelativeMatrix = *geom.NewTranslateMatrix4(0, 1, 0)
	root.AbsoluteMatrix = geom.NewTranslateMatrix4(0, 1, 0)

	arm := ema.NewBone("b_R_Arm1")
	arm.Index = 1
	arm.ParentIndex = 0
	q := geom.NewEulerDegrees(10, 20, 30, ema.EulerOrder).ToQuaternion()
	arm.RelativeMatrix = *geom.NewTRSMatrix4(geom.NewVector3(0.5, 0.2, 0), q, geom.NewVector3(1, 2, 1))
	arm.AbsoluteMatrix = root.RelativeMatrix.Mul(&arm.RelativeMatrix)
	arm.IKRelations = []*ema.IKRelation{{Flag: 3, Bones: []ema.IKBone{{Name: "b_C_Base", Weight: 0.5}}}}
	return &ema.Skeleton{SkeletonID: 7, Bones: []*ema.Bone{root, arm}}
}

func testEMA() *ema.File {
	f := ema.NewFile(ema.FileTypeObject)
	f.Skeleton = testSkeleton()
	a := ema.NewAnimation(0, "swing", ema.AnimationTypeObject)
	a.EndFrame = 10
	n := a.AddNode("b_R_Arm1", nil)
	rz := a.NewCommand(ema.ParameterRotation, ema.ComponentZ)
	rz.Keyframes = []*ema.Keyframe{
		{Time: 0, Value: 0, ControlPoint1: 5, ControlPoint2: 5, Interpolation: ema.CubicBezier},
		{Time: 4, Value: 90},
	}
	n.AddCommand(rz, nil)
	px := a.NewCommand(ema.ParameterPosition, ema.ComponentX)
	px.Keyframes = []*ema.Keyframe{{Time: 0, Value: 1}, {Time: 10, Value: 3}}
	n.AddCommand(px, nil)
	f.Animations = []*ema.Animation{a}
	return f
}

func assertMatrixNear(t *testing.T, expected, actual *geom.Matrix4, eps float64) {
	t.Helper()
	for i := range expected {
		assert.InDelta(t, expected[i], actual[i], eps, "element %d", i)
	}
}

func TestSkeletonRoundTrip(t *testing.T) {
	s := testSkeleton()
	esk := SkeletonToESK(s)
	require.Len(t, esk.Bones, 2)
	assert.Equal(t, uint64(7), esk.SkeletonID)
	assert.InDelta(t, 2, esk.Bones[1].Transform.Scale.Y, 1e-5)
	// ESK stores absolute matrices transposed
	assert.Equal(t, float32(1), esk.Bones[0].AbsoluteMatrix[7])

	back := SkeletonFromESK(esk)
	for i, b := range s.Bones {
		bb := back.Bones[i]
		assert.Equal(t, b.Name, bb.Name)
		assert.Equal(t, b.Index, bb.Index)
		assert.Equal(t, b.ParentIndex, bb.ParentIndex)
		assertMatrixNear(t, &b.RelativeMatrix, &bb.RelativeMatrix, 1e-5)
		assert.Equal(t, b.AbsoluteMatrix, bb.AbsoluteMatrix)
	}
	assert.Equal(t, s.Bones[1].IKRelations, back.Bones[1].IKRelations)
}

func TestEMAToEAN(t *testing.T) {
	src := testEMA()
	dst, err := NewEMAToEANConverter(nil).Convert(src)
	require.NoError(t, err)

	// the source keeps its bezier keyframe
	assert.Equal(t, ema.CubicBezier, src.Animations[0].Nodes[0].Commands[0].Keyframes[0].Interpolation)

	require.Len(t, dst.Animations, 1)
	a := dst.Animations[0]
	assert.Equal(t, 10, a.FrameCount)
	assert.Equal(t, "swing", a.Name)
	assert.False(t, dst.IsCamera)
	n := a.GetNode("b_R_Arm1")
	require.NotNil(t, n)
	require.Len(t, n.Components, 2)

	rot := n.GetComponent(ean.ComponentRotation)
	times := []int{}
	for _, kf := range rot.Keyframes {
		times = append(times, kf.Frame)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, times)

	// frame 4: Z = 90 with X/Y from the bind pose
	bind := geom.NewEulerFromQuaternion(&SkeletonToESK(src.Skeleton).Bones[1].Transform.Rotation, ema.EulerOrder).Degrees()
	expected := geom.NewEulerDegrees(bind.X, bind.Y, 90, ema.EulerOrder).ToQuaternion()
	kf := rot.Keyframes[4]
	assert.InDelta(t, expected.X, kf.X, 1e-4)
	assert.InDelta(t, expected.Y, kf.Y, 1e-4)
	assert.InDelta(t, expected.Z, kf.Z, 1e-4)
	assert.InDelta(t, expected.W, kf.W, 1e-4)

	pos := n.GetComponent(ean.ComponentPosition)
	require.Len(t, pos.Keyframes, 2)
	assert.Equal(t, float32(3), pos.Keyframes[1].X)
	assert.InDelta(t, 0.2, pos.Keyframes[1].Y, 1e-5)
	assert.Equal(t, float32(1), pos.Keyframes[1].W)

	_, err = dst.Write()
	assert.NoError(t, err)
}

func TestEMAToEANUnsupported(t *testing.T) {
	f := testEMA()
	f.Animations[0].Type = ema.AnimationTypeLight
	_, err := NewEMAToEANConverter(nil).Convert(f)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = NewEMAToEANConverter(&EMAToEANOption{RotationOrder: "abc"}).Convert(testEMA())
	assert.Error(t, err)
}

func TestEMAToEANCamera(t *testing.T) {
	f := testEMA()
	f.Skeleton = nil
	f.Animations[0].Type = ema.AnimationTypeCamera
	f.Animations[0].Nodes[0].BoneName = ""
	dst, err := NewEMAToEANConverter(nil).Convert(f)
	require.NoError(t, err)
	assert.True(t, dst.IsCamera)
	require.Len(t, dst.Skeleton.Bones, 1)
	assert.NotNil(t, dst.Animations[0].GetNode(dst.Skeleton.Bones[0].Name))
}

func testMaterialEMA() *ema.File {
	f := ema.NewFile(ema.FileTypeMaterial)
	a := ema.NewAnimation(0, "glow", ema.AnimationTypeMaterial)
	a.EndFrame = 10
	for _, name := range []string{"mat_body", "mat_extra"} {
		c := a.NewCommand(ema.ParameterMatCol1, ema.ComponentG)
		c.Keyframes = []*ema.Keyframe{{Time: 0, Value: 0.25}, {Time: 10, Value: 0.75}}
		a.AddNode(name, nil).AddCommand(c, nil)
	}
	f.Animations = []*ema.Animation{a}
	return f
}

func TestMaterialSkeleton(t *testing.T) {
	table := MaterialTable{
		{Name: "mat_eye"},
		{Name: "mat_body", Channels: map[string][]float32{"MatCol1": {0.1, 0.2, 0.3, 0.4}}},
	}
	s := MaterialSkeleton(table, testMaterialEMA())
	names := []string{}
	for _, b := range s.Bones {
		names = append(names, b.Name)
	}
	assert.Equal(t, []string{"mat_eye", "mat_body", "mat_extra"}, names)

	v, ok := table.DefaultChannelValue("mat_body", ema.ParameterMatCol1, ema.ComponentA)
	assert.True(t, ok)
	assert.Equal(t, float32(0.4), v)
	_, ok = table.DefaultChannelValue("mat_body", ema.ParameterMatCol0, ema.ComponentR)
	assert.False(t, ok)
	_, ok = table.DefaultChannelValue("mat_none", ema.ParameterMatCol1, ema.ComponentR)
	assert.False(t, ok)
}

func TestMaterialEMAToEAN(t *testing.T) {
	table := MaterialTable{
		{Name: "mat_body", Channels: map[string][]float32{"MatCol1": {0.1, 0.2, 0.3, 0.4}}},
	}
	dst, err := NewEMAToEANConverter(&EMAToEANOption{Materials: table}).Convert(testMaterialEMA())
	require.NoError(t, err)
	assert.Equal(t, "mat_body", dst.Skeleton.Bones[0].Name)

	comp := dst.Animations[0].GetNode("mat_body").Components[0]
	assert.Equal(t, ean.ComponentType(ema.ParameterMatCol1), comp.Type)
	kf := comp.Keyframes[1]
	assert.Equal(t, [4]float32{0.1, 0.75, 0.3, 0.4}, [4]float32{kf.X, kf.Y, kf.Z, kf.W})

	extra := dst.Animations[0].GetNode("mat_extra").Components[0].Keyframes[0]
	assert.Equal(t, float32(0), extra.X)
}

func TestEANToEMA(t *testing.T) {
	src := testEMA()
	src.Animations[0].BakeBezier(nil)
	e, err := NewEMAToEANConverter(nil).Convert(src)
	require.NoError(t, err)

	back, err := NewEANToEMAConverter(nil).Convert(e)
	require.NoError(t, err)
	require.Len(t, back.Animations, 1)
	a := back.Animations[0]
	assert.Equal(t, uint16(10), a.EndFrame)
	assert.Equal(t, ema.ValueTypeFloat32, a.ValueType)
	n := a.GetNode("b_R_Arm1")
	require.NotNil(t, n)
	rz := n.GetCommand(ema.ParameterRotation, ema.ComponentZ)
	require.NotNil(t, rz)
	orig := src.Animations[0].Nodes[0].GetCommand(ema.ParameterRotation, ema.ComponentZ)
	for f := 0; f <= 4; f++ {
		assert.InDelta(t, orig.GetValue(f), rz.GetValue(f), 1e-2, "frame %d", f)
	}
	px := n.GetCommand(ema.ParameterPosition, ema.ComponentX)
	assert.InDelta(t, 2, px.GetValue(5), 1e-5)

	data, err := back.Write()
	require.NoError(t, err)
	_, err = ema.Load(data)
	assert.NoError(t, err)
}

func TestEANToEMAUnsupported(t *testing.T) {
	f := ean.NewFile()
	a := ean.NewAnimation(0, "tex")
	a.FrameCount = 1
	a.AddNode("mat_body").AddComponent(ean.ComponentType(5)).Keyframes = []*ean.Keyframe{{Frame: 0, X: 1}}
	require.NoError(t, f.AddAnimation(a))
	_, err := NewEANToEMAConverter(nil).Convert(f)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = NewEANToEMAConverter(&EANToEMAOption{ValueType: "double"}).Convert(f)
	assert.ErrorIs(t, err, ema.ErrUnknownValueType)
}

func TestUnwrapDegrees(t *testing.T) {
	assert.InDelta(t, 190, unwrapDegrees(170, -170), 1e-4)
	assert.InDelta(t, -190, unwrapDegrees(-170, 170), 1e-4)
	assert.InDelta(t, 10, unwrapDegrees(0, 10), 1e-4)
	assert.InDelta(t, 370, unwrapDegrees(360, 10), 1e-4)
}

func TestEANToGLTF(t *testing.T) {
	e, err := NewEMAToEANConverter(nil).Convert(testEMA())
	require.NoError(t, err)
	doc, err := NewEANToGLTFConverter(&EANToGLTFOption{FrameRate: 30}).Convert(e)
	require.NoError(t, err)

	require.Len(t, doc.Nodes, 2)
	assert.Equal(t, "b_C_Base", doc.Nodes[0].Name)
	assert.Equal(t, []uint32{1}, doc.Nodes[0].Children)
	assert.Equal(t, []uint32{0}, doc.Scenes[0].Nodes)
	assert.Equal(t, [3]float32{0, 1, 0}, doc.Nodes[0].Translation)

	require.Len(t, doc.Animations, 1)
	a := doc.Animations[0]
	assert.Equal(t, "swing", a.Name)
	require.Len(t, a.Channels, 2)
	assert.Equal(t, gltf.TRSRotation, a.Channels[0].Target.Path)
	assert.Equal(t, gltf.TRSTranslation, a.Channels[1].Target.Path)
	assert.Equal(t, uint32(1), *a.Channels[0].Target.Node)

	_, err = NewEANToGLTFConverter(nil).Convert(ean.NewFile())
	assert.ErrorIs(t, err, ErrUnsupported)
}
