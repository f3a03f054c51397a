package geom

import "math"

type Vector4 struct {
	X Element
	Y Element
	Z Element
	W Element
}

// Quaternion is stored as (X, Y, Z, W) with W the scalar part.
type Quaternion = Vector4

func NewVector4(x, y, z, w float32) *Vector4 {
	return &Vector4{X: x, Y: y, Z: z, W: w}
}

func NewQuaternion(x, y, z, w float32) *Quaternion {
	return &Quaternion{X: x, Y: y, Z: z, W: w}
}

func NewQuaternionFromArray(arr [4]Element) *Quaternion {
	return &Quaternion{X: arr[0], Y: arr[1], Z: arr[2], W: arr[3]}
}

func (v *Vector4) Add(v2 *Vector4) *Vector4 {
	return &Vector4{X: v.X + v2.X, Y: v.Y + v2.Y, Z: v.Z + v2.Z, W: v.W + v2.W}
}

func (v *Vector4) Sub(v2 *Vector4) *Vector4 {
	return &Vector4{X: v.X - v2.X, Y: v.Y - v2.Y, Z: v.Z - v2.Z, W: v.W - v2.W}
}

func (v *Vector4) Scale(s Element) *Vector4 {
	return &Vector4{X: v.X * s, Y: v.Y * s, Z: v.Z * s, W: v.W * s}
}

func (v *Vector4) Dot(v2 *Vector4) Element {
	return v.X*v2.X + v.Y*v2.Y + v.Z*v2.Z + v.W*v2.W
}

func (v *Vector4) Len() Element {
	return Element(math.Sqrt(float64(v.X*v.X + v.Y*v.Y + v.Z*v.Z + v.W*v.W)))
}

func (v *Vector4) LenSqr() Element {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z + v.W*v.W
}

// Normalize scales v to unit length in place. A zero vector becomes the
// identity quaternion.
func (v *Vector4) Normalize() *Vector4 {
	l := v.Len()
	if l > 0 {
		v.X /= l
		v.Y /= l
		v.Z /= l
		v.W /= l
	} else {
		v.W = 1
	}
	return v
}

// Inverse returns the conjugate, which is the inverse of a unit quaternion.
func (v *Vector4) Inverse() *Vector4 {
	return &Vector4{X: -v.X, Y: -v.Y, Z: -v.Z, W: v.W}
}

// Mul returns a*b (apply b first, then a).
func (a *Vector4) Mul(b *Vector4) *Vector4 {
	return &Vector4{
		W: a.W*b.W - a.X*b.X - a.Y*b.Y - a.Z*b.Z, // 1
		X: a.W*b.X + a.X*b.W + a.Y*b.Z - a.Z*b.Y, // i
		Y: a.W*b.Y - a.X*b.Z + a.Y*b.W + a.Z*b.X, // j
		Z: a.W*b.Z + a.X*b.Y - a.Y*b.X + a.Z*b.W, // k
	}
}

// ApplyTo rotates v by the quaternion.
func (q *Quaternion) ApplyTo(v *Vector3) *Vector3 {
	r := q.Mul(&Vector4{X: v.X, Y: v.Y, Z: v.Z}).Mul(q.Inverse())
	return &Vector3{X: r.X, Y: r.Y, Z: r.Z}
}

// Slerp interpolates between unit quaternions a and b along the shorter arc.
func Slerp(a, b *Quaternion, t float32) *Quaternion {
	d := float64(a.Dot(b))
	bb := *b
	if d < 0 {
		d = -d
		bb = *b.Scale(-1)
	}
	if d > 0.9995 {
		return a.Add(bb.Sub(a).Scale(t)).Normalize()
	}
	theta := math.Acos(d)
	s := math.Sin(theta)
	wa := float32(math.Sin((1-float64(t))*theta) / s)
	wb := float32(math.Sin(float64(t)*theta) / s)
	return a.Scale(wa).Add(bb.Scale(wb))
}
