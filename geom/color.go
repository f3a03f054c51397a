package geom

import "math"

// RGB is a color with channels expected in [0, 1].
type RGB struct {
	R, G, B float64
}

// HSL has H in degrees [0, 360), S and L in [0, 1].
type HSL struct {
	H, S, L float64
}

func (c RGB) ToHsl() HSL {
	max := math.Max(c.R, math.Max(c.G, c.B))
	min := math.Min(c.R, math.Min(c.G, c.B))
	l := (max + min) / 2
	if max == min {
		return HSL{H: 0, S: 0, L: l}
	}

	d := max - min
	var s float64
	if l > 0.5 {
		s = d / (2 - max - min)
	} else {
		s = d / (max + min)
	}

	var h float64
	switch max {
	case c.R:
		h = (c.G - c.B) / d
		if c.G < c.B {
			h += 6
		}
	case c.G:
		h = (c.B-c.R)/d + 2
	default:
		h = (c.R-c.G)/d + 4
	}
	return HSL{H: WrapDegrees(h * 60), S: s, L: l}
}

func (c HSL) ToRgb() RGB {
	if c.S == 0 {
		return RGB{R: c.L, G: c.L, B: c.L}
	}
	var q float64
	if c.L < 0.5 {
		q = c.L * (1 + c.S)
	} else {
		q = c.L + c.S - c.L*c.S
	}
	p := 2*c.L - q
	h := WrapDegrees(c.H) / 360
	return RGB{
		R: hueToChannel(p, q, h+1.0/3),
		G: hueToChannel(p, q, h),
		B: hueToChannel(p, q, h-1.0/3),
	}
}

func hueToChannel(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 0.5:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	}
	return p
}

// SetHue returns c with its hue replaced.
func (c HSL) SetHue(h float64) HSL {
	c.H = WrapDegrees(h)
	return c
}

// Adjust shifts hue by dh degrees and saturation / lightness by ds / dl,
// clamping them into [0, 1].
func (c HSL) Adjust(dh, ds, dl float64) HSL {
	c.H = WrapDegrees(c.H + dh)
	c.S = math.Max(0, math.Min(1, c.S+ds))
	c.L = math.Max(0, math.Min(1, c.L+dl))
	return c
}
