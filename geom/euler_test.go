package geom

import (
	"math"
	"testing"
)

func TestEuler(t *testing.T) {
	const eps = 0.00001

	for i, c := range []struct {
		order   RotationOrder
		x, y, z float32
	}{
		{RotationOrderXYZ, 10, 20, 30},
		{RotationOrderXYZ, 10, 60, 0},
		{RotationOrderYXZ, 10, 20, 30},
		{RotationOrderYXZ, 60, 10, 0},
		{RotationOrderZXY, 10, 20, 30},
		{RotationOrderZXY, 60, 0, 10},
		{RotationOrderZYX, 10, 20, 30},
		{RotationOrderZYX, 0, 60, 10},
	} {
		e1 := NewEuler(c.x*math.Pi/180, c.y*math.Pi/180, c.z*math.Pi/180, c.order)
		q := e1.ToQuaternion()
		e2 := NewEulerFromQuaternion(q, c.order)

		if e1.Vector3.Sub(&e2.Vector3).Len() > eps {
			t.Error("euler: ", i, e1, e2)
		}
		if Abs(q.Len()-1) > eps {
			t.Error("Quaternion.Len() != 1", e1)
		}
	}
}

func TestParseRotationOrder(t *testing.T) {
	o, err := ParseRotationOrder("ZyX")
	if err != nil || o != RotationOrderZYX {
		t.Error("ParseRotationOrder: ", o, err)
	}
	if _, err := ParseRotationOrder("abc"); err == nil {
		t.Error("expected error")
	}
	if RotationOrderXYZ.String() != "XYZ" {
		t.Error("String: ", RotationOrderXYZ)
	}

	e := NewEulerDegrees(30, 45, 60, RotationOrderZYX)
	d := NewEulerFromQuaternion(e.ToQuaternion(), RotationOrderZYX).Degrees()
	if d.Sub(NewVector3(30, 45, 60)).Len() > 0.001 {
		t.Error("Degrees: ", d)
	}
}
