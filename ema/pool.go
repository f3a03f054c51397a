package ema

import (
	"fmt"
	"log"
	"math"

	"github.com/binzume/xv2anim/binio"
)

const (
	flagInt16Time       = 1
	flagInt16ValueIndex = 2
	flagExtraShift      = 2

	valueIndexMask    = 0x3FFF
	interpolationBits = 14
)

// valuePool collects the float values of one animation. Linear values
// are shared by exact bit pattern. Bezier keyframes take fresh slots so
// their control points stay contiguous.
type valuePool struct {
	values []float32
	shared map[uint32]int
}

func newValuePool() *valuePool {
	return &valuePool{shared: map[uint32]int{}}
}

func (p *valuePool) share(v float32) int {
	bits := math.Float32bits(v)
	if i, ok := p.shared[bits]; ok {
		return i
	}
	i := len(p.values)
	p.values = append(p.values, v)
	p.shared[bits] = i
	return i
}

func (p *valuePool) fresh(v ...float32) int {
	i := len(p.values)
	p.values = append(p.values, v...)
	return i
}

func readValues(r *binio.Reader, off, count int, vt ValueType) ([]float32, error) {
	switch vt {
	case ValueTypeFloat16:
		if !r.InRange(off, count*2) {
			return nil, fmt.Errorf("%w: %d half values at 0x%x", binio.ErrOutOfRange, count, off)
		}
		values := make([]float32, count)
		for i := range values {
			values[i] = r.Float16(off + i*2)
		}
		return values, nil
	case ValueTypeFloat32, ValueTypeVector4:
		if !r.InRange(off, count*4) {
			return nil, fmt.Errorf("%w: %d values at 0x%x", binio.ErrOutOfRange, count, off)
		}
		return r.Float32s(off, count), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownValueType, vt)
}

func writeValues(w *binio.Writer, values []float32, vt ValueType) {
	if vt == ValueTypeFloat16 {
		for _, v := range values {
			w.Float16(v)
		}
		w.Align(4)
		return
	}
	w.Float32s(values)
}

// poolValue returns values[i]. Indices past the pool fall back to slot 0.
func poolValue(values []float32, i int) float32 {
	if i >= len(values) {
		log.Println("ema: value index out of range : ", i, len(values))
		i = 0
	}
	if len(values) == 0 {
		return 0
	}
	return values[i]
}

// controlPoint returns values[i], clamping to the last slot.
func controlPoint(values []float32, i int) float32 {
	if len(values) == 0 {
		return 0
	}
	if i >= len(values) {
		log.Println("ema: control point index out of range : ", i, len(values))
		i = len(values) - 1
	}
	return values[i]
}

func decodeCommand(r *binio.Reader, off int, values []float32) (int, *Command, error) {
	if !r.InRange(off, 8) {
		return 0, nil, fmt.Errorf("%w: command at 0x%x", binio.ErrOutOfRange, off)
	}
	boneIndex := int(r.Uint16(off))
	comp, flags := binio.UnpackNibbles(r.Uint8(off + 3))
	cmd := &Command{
		Parameter:          Parameter(r.Uint8(off + 2)),
		Component:          Component(comp),
		Int16ForTime:       flags&flagInt16Time != 0,
		Int16ForValueIndex: flags&flagInt16ValueIndex != 0,
		ExtraFlags:         flags >> flagExtraShift,
	}
	count := int(r.Uint16(off + 4))
	indexOff := off + int(r.Uint16(off+6))

	cmd.Keyframes = make([]*Keyframe, count)
	for i := range cmd.Keyframes {
		kf := &Keyframe{}
		if cmd.Int16ForTime {
			kf.Time = r.Uint16(off + 8 + i*2)
		} else {
			kf.Time = uint16(r.Uint8(off + 8 + i))
		}
		var idx int
		if cmd.Int16ForValueIndex {
			entry := r.Uint16(indexOff + i*2)
			idx = int(entry & valueIndexMask)
			kf.Interpolation = Interpolation(entry >> interpolationBits)
		} else {
			idx = int(r.Uint8(indexOff + i))
		}
		if kf.Interpolation > CubicBezier {
			return 0, nil, fmt.Errorf("%w: %d", ErrUnknownInterpolation, kf.Interpolation)
		}
		kf.Value = poolValue(values, idx)
		if kf.Interpolation >= QuadraticBezier {
			kf.ControlPoint1 = controlPoint(values, idx+1)
		}
		if kf.Interpolation == CubicBezier {
			kf.ControlPoint2 = controlPoint(values, idx+2)
		}
		cmd.Keyframes[i] = kf
	}
	if err := r.Err(); err != nil {
		return 0, nil, err
	}
	return boneIndex, cmd, nil
}

// encodeCommand writes cmd, adding its values to pool. The keyframes are
// sorted and the width flags are recomputed.
func encodeCommand(w *binio.Writer, cmd *Command, boneIndex int, pool *valuePool) error {
	cmd.Sort()
	n := len(cmd.Keyframes)
	if n > math.MaxUint16 {
		return fmt.Errorf("%w: %d keyframes", ErrIndexOverflow, n)
	}
	indices := make([]int, n)
	wideTime, wideIndex := false, false
	for i, kf := range cmd.Keyframes {
		if i > 0 && cmd.Keyframes[i-1].Time == kf.Time {
			return fmt.Errorf("%w: %d", ErrDuplicateKeyframe, kf.Time)
		}
		switch kf.Interpolation {
		case Linear:
			indices[i] = pool.share(kf.Value)
		case QuadraticBezier:
			indices[i] = pool.fresh(kf.Value, kf.ControlPoint1)
			wideIndex = true
		case CubicBezier:
			indices[i] = pool.fresh(kf.Value, kf.ControlPoint1, kf.ControlPoint2)
			wideIndex = true
		default:
			return fmt.Errorf("%w: %d", ErrUnknownInterpolation, kf.Interpolation)
		}
		wideTime = wideTime || kf.Time > math.MaxUint8
		wideIndex = wideIndex || indices[i] > math.MaxUint8
	}
	cmd.Int16ForTime = wideTime
	cmd.Int16ForValueIndex = wideIndex

	var flags uint8
	if wideTime {
		flags |= flagInt16Time
	}
	if wideIndex {
		flags |= flagInt16ValueIndex
	}
	if cmd.ExtraFlags > 3 {
		return fmt.Errorf("%w: extra flags %d", binio.ErrNibbleOverflow, cmd.ExtraFlags)
	}
	flags |= cmd.ExtraFlags << flagExtraShift
	packed, err := binio.PackNibbles(uint8(cmd.Component), flags)
	if err != nil {
		return fmt.Errorf("ema: component %d: %w", cmd.Component, err)
	}

	start := w.Len()
	w.Uint16(uint16(boneIndex))
	w.Uint8(uint8(cmd.Parameter))
	w.Uint8(packed)
	w.Uint16(uint16(n))
	indexPos := w.Placeholder16()
	for _, kf := range cmd.Keyframes {
		if wideTime {
			w.Uint16(kf.Time)
		} else {
			w.Uint8(uint8(kf.Time))
		}
	}
	w.Align(4)
	if err := w.PatchOffset16(indexPos, start); err != nil {
		return err
	}
	for i, kf := range cmd.Keyframes {
		if !wideIndex {
			w.Uint8(uint8(indices[i]))
			continue
		}
		if indices[i] > valueIndexMask {
			return fmt.Errorf("%w: value index %d", ErrIndexOverflow, indices[i])
		}
		w.Uint16(uint16(indices[i]) | uint16(kf.Interpolation)<<interpolationBits)
	}
	w.Align(4)
	return nil
}
