package ema

import (
	"fmt"
	"strings"
)

var objectParameterNames = []string{"Position", "Rotation", "Scale"}
var lightParameterNames = []string{"Color", "Light"}
var materialParameterNames = []string{
	"MatCol0", "MatCol1", "MatCol2", "MatCol3",
	"TexScrl0", "TexScrl1", "TexScrl2", "TexScrl3",
}

func parameterNames(t AnimationType) []string {
	switch t {
	case AnimationTypeLight:
		return lightParameterNames
	case AnimationTypeMaterial:
		return materialParameterNames
	}
	return objectParameterNames
}

// ParameterName returns the name of p in an animation of type t.
func ParameterName(t AnimationType, p Parameter) string {
	if names := parameterNames(t); int(p) < len(names) {
		return names[p]
	}
	return fmt.Sprintf("Parameter%d", p)
}

// ParseParameter is the inverse of ParameterName.
func ParseParameter(t AnimationType, name string) (Parameter, bool) {
	for i, n := range parameterNames(t) {
		if n == name {
			return Parameter(i), true
		}
	}
	return 0, false
}

// ComponentName returns X/Y/Z/W, or R/G/B/A for color parameters.
func ComponentName(t AnimationType, p Parameter, c Component) string {
	names := "XYZW"
	if (t == AnimationTypeLight && p == ParameterColor) || (t == AnimationTypeMaterial && p <= ParameterMatCol3) {
		names = "RGBA"
	}
	if int(c) < len(names) {
		return names[c : c+1]
	}
	return fmt.Sprintf("Component%d", c)
}

func (t AnimationType) String() string {
	switch t {
	case AnimationTypeObject:
		return "Object"
	case AnimationTypeCamera:
		return "Camera"
	case AnimationTypeLight:
		return "Light"
	case AnimationTypeMaterial:
		return "Material"
	}
	return fmt.Sprintf("AnimationType(%d)", int(t))
}

var valueTypeNames = []string{"float16", "float32", "vector4"}

func (v ValueType) String() string {
	if v.valid() {
		return valueTypeNames[v]
	}
	return fmt.Sprintf("ValueType(%d)", int(v))
}

// ParseValueType parses float16, float32 or vector4.
func ParseValueType(s string) (ValueType, error) {
	for i, n := range valueTypeNames {
		if strings.EqualFold(n, s) {
			return ValueType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownValueType, s)
}
