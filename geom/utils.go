package geom

import "math"

func Abs(v Element) Element {
	if v < 0 {
		return -v
	}
	return v
}

func Clamp(v, min, max Element) Element {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// NearlyEqual reports whether |a-b| <= eps.
func NearlyEqual(a, b, eps Element) bool {
	return Abs(a-b) <= eps
}

// Lerp linearly interpolates between a and b.
func Lerp(a, b, t Element) Element {
	return a + (b-a)*t
}

// QuadraticBezier evaluates the curve p0 -> p1 (control) -> p2 at t.
func QuadraticBezier(t, p0, p1, p2 Element) Element {
	u := 1 - t
	return u*u*p0 + 2*u*t*p1 + t*t*p2
}

// CubicBezier evaluates the curve p0 -> p1, p2 (controls) -> p3 at t.
func CubicBezier(t, p0, p1, p2, p3 Element) Element {
	u := 1 - t
	return u*u*u*p0 + 3*u*u*t*p1 + 3*u*t*t*p2 + t*t*t*p3
}

// WrapDegrees maps an angle into [0, 360).
func WrapDegrees(v float64) float64 {
	v = math.Mod(v, 360)
	if v < 0 {
		v += 360
	}
	return v
}
