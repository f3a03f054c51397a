package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/binzume/xv2anim/ean"
	"github.com/binzume/xv2anim/ema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"gopkg.in/yaml.v2"
)

func testEMA() *ema.File {
	f := ema.NewFile(ema.FileTypeObject)
	f.Skeleton = &ema.Skeleton{Bones: []*ema.Bone{ema.NewBone("b_C_Base")}}
	a := ema.NewAnimation(0, "歩き", ema.AnimationTypeObject)
	a.EndFrame = 4
	c := a.NewCommand(ema.ParameterRotation, ema.ComponentY)
	c.Keyframes = []*ema.Keyframe{
		{Time: 0, Value: 0, ControlPoint1: 10, ControlPoint2: 10, Interpolation: ema.CubicBezier},
		{Time: 4, Value: 45},
	}
	a.AddNode("b_C_Base", nil).AddCommand(c, nil)
	f.Animations = []*ema.Animation{a}
	return f
}

func TestLoadConfig(t *testing.T) {
	conf, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, float32(60), conf.FrameRate)

	path := filepath.Join(t.TempDir(), "conf.yaml")
	src := `
name_encoding: shift_jis
frame_rate: 30
materials:
  - name: mat0
    channels: {MatCol0: [1, 0.5, 0.25, 1]}
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	conf, err = loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, float32(30), conf.FrameRate)
	assert.Equal(t, "zyx", conf.RotationOrder)
	assert.Equal(t, []string{"mat0"}, conf.Materials.MaterialNames())
	v, ok := conf.Materials.DefaultChannelValue("mat0", ema.ParameterMatCol0, ema.ComponentG)
	assert.True(t, ok)
	assert.Equal(t, float32(0.5), v)

	enc, err := conf.Encoding()
	require.NoError(t, err)
	assert.Equal(t, japanese.ShiftJIS, enc)

	conf.NameEncoding = "UTF-8"
	enc, err = conf.Encoding()
	require.NoError(t, err)
	assert.Equal(t, unicode.UTF8, enc)

	conf.NameEncoding = "latin1"
	_, err = conf.Encoding()
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("frame_rate: [1"), 0644))
	_, err = loadConfig(path)
	assert.Error(t, err)
}

func TestDefaultOutputFile(t *testing.T) {
	assert.Equal(t, "a/walk.ean", defaultOutputFile("a/walk.ema"))
	assert.Equal(t, "walk.glb", defaultOutputFile("walk.EAN"))
	assert.Equal(t, "walk.bin.yaml", defaultOutputFile("walk.bin"))
}

func TestParseHueDelta(t *testing.T) {
	d, err := parseHueDelta("30,0.1")
	require.NoError(t, err)
	assert.Equal(t, [3]float64{30, 0.1, 0}, d)
	_, err = parseHueDelta("1,2,3,4")
	assert.Error(t, err)
	_, err = parseHueDelta("x")
	assert.Error(t, err)
}

func TestDump(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, dump(&buf, testEMA()))

	var s emaSummary
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &s))
	require.Len(t, s.Animations, 1)
	a := s.Animations[0]
	assert.Equal(t, "Object", a.Type)
	assert.Equal(t, "float32", a.ValueType)
	cmd := a.Nodes[0].Commands[0]
	assert.Equal(t, "Rotation", cmd.Parameter)
	assert.Equal(t, "Y", cmd.Component)
	assert.Equal(t, "CubicBezier", cmd.Keyframes[0].Interpolation)
	assert.Equal(t, []float32{10, 10}, cmd.Keyframes[0].ControlPoints)
	assert.Equal(t, "", cmd.Keyframes[1].Interpolation)

	buf.Reset()
	e := ean.NewFile()
	e.Skeleton = &ean.Skeleton{Bones: []*ean.Bone{ean.NewBone("root")}}
	ea := ean.NewAnimation(0, "idle")
	ea.AddNode("root").AddComponent(ean.ComponentScale).Keyframes = []*ean.Keyframe{{Frame: 2, X: 1, Y: 1, Z: 1, W: 1}}
	e.Animations = []*ean.Animation{ea}
	require.NoError(t, dump(&buf, e))
	var es eanSummary
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &es))
	assert.Equal(t, "Scale", es.Animations[0].Nodes[0].Components[0].Type)
	assert.Equal(t, [][]float32{{2, 1, 1, 1, 1}}, es.Animations[0].Nodes[0].Components[0].Keyframes)

	assert.Error(t, dump(&buf, 1))
}

func TestConvertFiles(t *testing.T) {
	dir := t.TempDir()
	conf := defaultConfig()
	conf.NameEncoding = "shift_jis"
	enc, err := conf.Encoding()
	require.NoError(t, err)

	input := filepath.Join(dir, "walk.ema")
	require.NoError(t, saveEMA(testEMA(), input, enc))

	opts := &editOptions{bake: true, hueSet: -1}
	for _, out := range []string{"walk.ean", "walk.glb", "walk.yaml", "copy.ema"} {
		require.NoError(t, convertEMA(input, filepath.Join(dir, out), conf, enc, opts), out)
		st, err := os.Stat(filepath.Join(dir, out))
		require.NoError(t, err)
		assert.NotZero(t, st.Size())
	}

	baked, err := loadEMA(filepath.Join(dir, "copy.ema"), enc)
	require.NoError(t, err)
	assert.Equal(t, "歩き", baked.Animations[0].Name)
	assert.Len(t, baked.Animations[0].Nodes[0].Commands[0].Keyframes, 5)

	back := filepath.Join(dir, "back.ema")
	require.NoError(t, convertEAN(filepath.Join(dir, "walk.ean"), back, conf, enc, &editOptions{hueSet: -1}))
	m, err := loadEMA(back, enc)
	require.NoError(t, err)
	ry := m.Animations[0].GetNode("b_C_Base").GetCommand(ema.ParameterRotation, ema.ComponentY)
	require.NotNil(t, ry)
	assert.InDelta(t, 45, ry.GetValue(4), 1e-3)

	assert.Error(t, convertEMA(input, filepath.Join(dir, "walk.txt"), conf, enc, opts))
}

func TestSaveYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "walk.yaml")
	require.NoError(t, saveYAML(testEMA(), path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "animations:")

	assert.Error(t, saveYAML(1, filepath.Join(dir, "bad.yaml")))
	assert.Error(t, saveYAML(testEMA(), filepath.Join(dir, "missing", "walk.yaml")))
}
