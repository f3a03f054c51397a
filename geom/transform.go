package geom

import "math"

// Transform is a decomposed relative bone transform as stored by ESK.
// Position and Scale carry a W component that is preserved but not used
// by the matrix math.
type Transform struct {
	Position Vector4
	Rotation Quaternion
	Scale    Vector4
}

func NewIdentityTransform() *Transform {
	return &Transform{
		Position: Vector4{W: 1},
		Rotation: Quaternion{W: 1},
		Scale:    Vector4{X: 1, Y: 1, Z: 1, W: 1},
	}
}

// FromRelativeTransform composes scale, rotation and translation (in that
// order, row-vector convention) and transposes the product into the
// Matrix4 storage order.
func FromRelativeTransform(t *Transform) *Matrix4 {
	s := [3]float64{float64(t.Scale.X), float64(t.Scale.Y), float64(t.Scale.Z)}
	q := t.Rotation
	x, y, z, w := float64(q.X), float64(q.Y), float64(q.Z), float64(q.W)

	// row-vector rotation, R[r][c]
	rot := [3][3]float64{
		{1 - 2*y*y - 2*z*z, 2*x*y + 2*z*w, 2*x*z - 2*y*w},
		{2*x*y - 2*z*w, 1 - 2*x*x - 2*z*z, 2*y*z + 2*x*w},
		{2*x*z + 2*y*w, 2*y*z - 2*x*w, 1 - 2*x*x - 2*y*y},
	}

	// S*R*T in row-vector form
	var row [4][4]float64
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			row[r][c] = s[r] * rot[r][c]
		}
	}
	row[3] = [4]float64{float64(t.Position.X), float64(t.Position.Y), float64(t.Position.Z), 1}

	// transpose into the column-vector matrix and store it column-major
	out := &Matrix4{}
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[c*4+r] = Element(row[c][r])
		}
	}
	return out
}

// ToRelativeTransform decomposes m into translation, rotation and scale
// with a Gram-Schmidt QR factorization of the upper 3x3 block. Scales at
// or near zero are not special-cased and produce IEEE-754 Inf/NaN.
func ToRelativeTransform(m *Matrix4) *Transform {
	t := &Transform{}
	t.Position = Vector4{X: m[12], Y: m[13], Z: m[14], W: 1}

	// columns of the linear part (column-vector convention)
	var a [3][3]float64
	for c := 0; c < 3; c++ {
		for r := 0; r < 3; r++ {
			a[c][r] = float64(m.At(r, c))
		}
	}

	var q [3][3]float64
	var rr [3][3]float64
	for j := 0; j < 3; j++ {
		v := a[j]
		for i := 0; i < j; i++ {
			rr[i][j] = dot3(q[i], a[j])
			for k := 0; k < 3; k++ {
				v[k] -= rr[i][j] * q[i][k]
			}
		}
		rr[j][j] = math.Sqrt(dot3(v, v))
		for k := 0; k < 3; k++ {
			q[j][k] = v[k] / rr[j][j]
		}
	}

	// no reflections
	if det3(q) < 0 {
		for k := 0; k < 3; k++ {
			q[2][k] = -q[2][k]
		}
		rr[2][2] = -rr[2][2]
	}

	t.Scale = Vector4{X: Element(rr[0][0]), Y: Element(rr[1][1]), Z: Element(rr[2][2]), W: 1}
	t.Rotation = quaternionFromColumns(q)
	return t
}

func dot3(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func det3(c [3][3]float64) float64 {
	return c[0][0]*(c[1][1]*c[2][2]-c[2][1]*c[1][2]) -
		c[1][0]*(c[0][1]*c[2][2]-c[2][1]*c[0][2]) +
		c[2][0]*(c[0][1]*c[1][2]-c[1][1]*c[0][2])
}

// quaternionFromColumns converts an orthonormal matrix given as columns
// (cols[c][r]) with Shoemake's method, branching on the largest diagonal
// term.
func quaternionFromColumns(cols [3][3]float64) Quaternion {
	m := func(r, c int) float64 { return cols[c][r] }
	var x, y, z, w float64
	trace := m(0, 0) + m(1, 1) + m(2, 2)
	switch {
	case trace > 0:
		s := math.Sqrt(trace+1) * 2
		w = s / 4
		x = (m(2, 1) - m(1, 2)) / s
		y = (m(0, 2) - m(2, 0)) / s
		z = (m(1, 0) - m(0, 1)) / s
	case m(0, 0) > m(1, 1) && m(0, 0) > m(2, 2):
		s := math.Sqrt(1+m(0, 0)-m(1, 1)-m(2, 2)) * 2
		w = (m(2, 1) - m(1, 2)) / s
		x = s / 4
		y = (m(0, 1) + m(1, 0)) / s
		z = (m(0, 2) + m(2, 0)) / s
	case m(1, 1) > m(2, 2):
		s := math.Sqrt(1+m(1, 1)-m(0, 0)-m(2, 2)) * 2
		w = (m(0, 2) - m(2, 0)) / s
		x = (m(0, 1) + m(1, 0)) / s
		y = s / 4
		z = (m(1, 2) + m(2, 1)) / s
	default:
		s := math.Sqrt(1+m(2, 2)-m(0, 0)-m(1, 1)) * 2
		w = (m(1, 0) - m(0, 1)) / s
		x = (m(0, 2) + m(2, 0)) / s
		y = (m(1, 2) + m(2, 1)) / s
		z = s / 4
	}
	return Quaternion{X: Element(x), Y: Element(y), Z: Element(z), W: Element(w)}
}

// Decompose returns the position, rotation and scale of m.
func (m *Matrix4) Decompose() (*Vector3, *Quaternion, *Vector3) {
	t := ToRelativeTransform(m)
	return &Vector3{X: t.Position.X, Y: t.Position.Y, Z: t.Position.Z},
		&t.Rotation,
		&Vector3{X: t.Scale.X, Y: t.Scale.Y, Z: t.Scale.Z}
}

// NewTRSMatrix4 builds a matrix applying scale, then rotation, then translation.
func NewTRSMatrix4(pos *Vector3, rot *Quaternion, scale *Vector3) *Matrix4 {
	return FromRelativeTransform(&Transform{
		Position: Vector4{X: pos.X, Y: pos.Y, Z: pos.Z, W: 1},
		Rotation: *rot,
		Scale:    Vector4{X: scale.X, Y: scale.Y, Z: scale.Z, W: 1},
	})
}
