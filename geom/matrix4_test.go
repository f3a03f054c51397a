package geom

import (
	"math"
	"math/rand"
	"testing"
)

func TestDecomposeMatrix(t *testing.T) {
	const eps = 0.00001

	pos := NewVector3(1, 2, 3)
	rot := NewEuler(10*math.Pi/180, 20*math.Pi/180, 30*math.Pi/180, RotationOrderZXY).ToQuaternion()
	scale := NewVector3(1.5, 1.6, 1.7)

	mat := NewTRSMatrix4(pos, rot, scale)
	pos1, rot1, scale1 := mat.Decompose()

	if pos.Sub(pos1).Len() > eps {
		t.Error("pos: ", pos, pos1)
	}
	if rot.Sub(rot1).Len() > eps {
		t.Error("rot: ", rot, rot1)
	}
	if scale.Sub(scale1).Len() > eps {
		t.Error("scale: ", scale, scale1)
	}

	mat2 := NewRotationMatrix4FromQuaternion(rot)
	pos1, rot1, scale1 = mat2.Decompose()
	if rot.Sub(rot1).Len() > eps {
		t.Error("rot: ", rot, rot1)
	}
	if pos1.Len() > eps {
		t.Error("pos: ", pos1)
	}
	if scale1.Sub(NewVector3(1, 1, 1)).Len() > eps {
		t.Error("scale: ", scale1)
	}
}

func TestRelativeTransformMatchesMul(t *testing.T) {
	const eps = 0.00001

	rot := NewEuler(0.3, -1.2, 2.0, RotationOrderXYZ).ToQuaternion()
	tr := &Transform{
		Position: Vector4{X: 4, Y: -5, Z: 6, W: 1},
		Rotation: *rot,
		Scale:    Vector4{X: 2, Y: 0.5, Z: 1.25, W: 1},
	}
	m := FromRelativeTransform(tr)
	expected := NewTranslateMatrix4(4, -5, 6).
		Mul(NewRotationMatrix4FromQuaternion(rot)).
		Mul(NewScaleMatrix4(2, 0.5, 1.25))
	for i := range m {
		if Abs(m[i]-expected[i]) > eps {
			t.Fatal("element ", i, m[i], expected[i])
		}
	}
	if m[12] != 4 || m[13] != -5 || m[14] != 6 || m[15] != 1 {
		t.Error("translation must be stored in elements 12..14: ", m)
	}

	p := m.ApplyTo(NewVector3(1, 0, 0))
	q := rot.ApplyTo(NewVector3(2, 0, 0)).Add(NewVector3(4, -5, 6))
	if p.Sub(q).Len() > eps {
		t.Error("ApplyTo: ", p, q)
	}
}

func TestRelativeTransformRoundTrip(t *testing.T) {
	const eps = 0.0001
	rnd := rand.New(rand.NewSource(1))
	uniform := func(min, max float64) float32 {
		return float32(min + rnd.Float64()*(max-min))
	}

	for i := 0; i < 1000; i++ {
		rot := NewQuaternion(
			float32(rnd.NormFloat64()), float32(rnd.NormFloat64()),
			float32(rnd.NormFloat64()), float32(rnd.NormFloat64())).Normalize()
		src := &Transform{
			Position: Vector4{X: uniform(-50, 50), Y: uniform(-50, 50), Z: uniform(-50, 50), W: 1},
			Rotation: *rot,
			Scale:    Vector4{X: uniform(0.1, 4), Y: uniform(0.1, 4), Z: uniform(0.1, 4), W: 1},
		}
		dst := ToRelativeTransform(FromRelativeTransform(src))

		// q and -q are the same rotation
		r := dst.Rotation
		if r.Dot(&src.Rotation) < 0 {
			r = *r.Scale(-1)
		}
		for _, d := range []*Vector4{
			dst.Position.Sub(&src.Position),
			r.Sub(&src.Rotation),
			dst.Scale.Sub(&src.Scale),
		} {
			if Abs(d.X) > eps || Abs(d.Y) > eps || Abs(d.Z) > eps || Abs(d.W) > eps {
				t.Fatal("round trip ", i, src, dst)
			}
		}
	}
}

func TestDecomposeReflection(t *testing.T) {
	m := NewScaleMatrix4(1, 1, -2)
	tr := ToRelativeTransform(m)
	if tr.Scale.Z != -2 || tr.Scale.X != 1 {
		t.Error("scale: ", tr.Scale)
	}
	if Abs(tr.Rotation.W-1) > 0.00001 {
		t.Error("rotation must stay proper: ", tr.Rotation)
	}
}

func TestMatrixInverse(t *testing.T) {
	m := NewTRSMatrix4(NewVector3(1, 2, 3), NewEuler(0.1, 0.2, 0.3, RotationOrderXYZ).ToQuaternion(), NewVector3(2, 2, 2))
	if !m.Mul(m.Inverse()).IsIdentity(0.00001) {
		t.Error("m * m^-1 != I")
	}
	if !NewMatrix4().Transposed().IsIdentity(0) {
		t.Error("transposed identity")
	}
}
