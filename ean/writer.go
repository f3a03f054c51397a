package ean

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/binzume/xv2anim/binio"
	"golang.org/x/text/encoding"
)

type Writer struct {
	Encoding encoding.Encoding
}

func NewWriter() *Writer {
	return &Writer{Encoding: binio.DefaultEncoding}
}

// Write encodes f. Keyframes are sorted and IndexSize is chosen per
// animation from the largest frame number.
func (wr *Writer) Write(f *File) ([]byte, error) {
	slots := make([]*Animation, f.NextIndex())
	for _, a := range f.Animations {
		if a.Index < 0 {
			return nil, fmt.Errorf("ean: negative animation index %d", a.Index)
		}
		if slots[a.Index] != nil {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateAnimation, a.Index)
		}
		slots[a.Index] = a
	}
	if len(slots) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d animations", ErrIndexOverflow, len(slots))
	}
	bones := map[string]int{}
	if f.Skeleton != nil {
		for i, b := range f.Skeleton.Bones {
			if _, ok := bones[b.Name]; !ok {
				bones[b.Name] = i
			}
		}
	}

	w := binio.NewWriter()
	w.Encoding = wr.Encoding
	w.Uint32(Signature)
	w.Uint16(0xFFFE)
	w.Uint16(headerSize)
	w.Int32(f.Version)
	w.Uint32(f.Unknown0C)
	if f.IsCamera {
		w.Uint8(1)
	} else {
		w.Uint8(0)
	}
	w.Uint8(0)
	w.Uint16(uint16(len(slots)))
	skelPos := w.Placeholder32()
	animTablePos := w.Placeholder32()
	nameTablePos := w.Placeholder32()

	w.PatchOffset32(animTablePos, 0)
	table := make([]int, len(slots))
	for i := range slots {
		table[i] = w.Placeholder32()
	}
	for i, a := range slots {
		if a == nil {
			continue
		}
		w.PatchOffset32(table[i], 0)
		if err := writeAnimation(w, a, bones); err != nil {
			return nil, fmt.Errorf("animation %d: %w", i, err)
		}
	}

	if f.Skeleton != nil {
		w.Align(16)
		w.PatchOffset32(skelPos, 0)
		if err := writeSkeleton(w, f.Skeleton); err != nil {
			return nil, err
		}
	}

	w.PatchOffset32(nameTablePos, 0)
	names := make([]int, len(slots))
	for i := range slots {
		names[i] = w.Placeholder32()
	}
	for i, a := range slots {
		if a == nil {
			continue
		}
		w.PatchOffset32(names[i], 0)
		w.CString(a.Name)
	}
	w.Align(4)
	return w.Bytes(), nil
}

func writeAnimation(w *binio.Writer, a *Animation, bones map[string]int) error {
	if a.FloatSize != FloatSize16 && a.FloatSize != FloatSize32 {
		return fmt.Errorf("%w: %d", ErrUnknownFloatSize, a.FloatSize)
	}
	maxFrame := 0
	for _, n := range a.Nodes {
		if _, ok := bones[n.BoneName]; !ok {
			return fmt.Errorf("%w: %q", ErrUnresolvedBone, n.BoneName)
		}
		if len(n.Components) > math.MaxUint16 {
			return fmt.Errorf("%w: %d components", ErrIndexOverflow, len(n.Components))
		}
		for _, c := range n.Components {
			c.Sort()
			for i, kf := range c.Keyframes {
				if i > 0 && c.Keyframes[i-1].Frame == kf.Frame {
					return fmt.Errorf("%w: %d", ErrDuplicateKeyframe, kf.Frame)
				}
				if kf.Frame < 0 || kf.Frame > math.MaxUint16 {
					return fmt.Errorf("%w: frame %d", ErrIndexOverflow, kf.Frame)
				}
				if kf.Frame > maxFrame {
					maxFrame = kf.Frame
				}
			}
		}
	}
	a.IndexSize = IndexSize8
	if maxFrame > math.MaxUint8 {
		a.IndexSize = IndexSize16
	}

	start := w.Len()
	w.Uint8(0)
	w.Uint8(0)
	w.Uint8(uint8(a.IndexSize))
	w.Uint8(uint8(a.FloatSize))
	w.Int32(int32(a.FrameCount))
	w.Int32(int32(len(a.Nodes)))
	nodeTablePos := w.Placeholder32()

	w.PatchOffset32(nodeTablePos, start)
	nodePos := make([]int, len(a.Nodes))
	for i := range a.Nodes {
		nodePos[i] = w.Placeholder32()
	}
	for i, n := range a.Nodes {
		w.PatchOffset32(nodePos[i], start)
		node := w.Len()
		w.Uint16(uint16(bones[n.BoneName]))
		w.Uint16(uint16(len(n.Components)))
		compTablePos := w.Placeholder32()
		w.PatchOffset32(compTablePos, node)
		compPos := make([]int, len(n.Components))
		for j := range n.Components {
			compPos[j] = w.Placeholder32()
		}
		for j, c := range n.Components {
			w.PatchOffset32(compPos[j], node)
			writeComponent(w, c, a)
		}
	}
	return nil
}

func writeComponent(w *binio.Writer, c *Component, a *Animation) {
	start := w.Len()
	w.Uint8(uint8(c.Type))
	w.Uint8(c.Flags)
	w.Uint16(c.Unknown02)
	w.Int32(int32(len(c.Keyframes)))
	indexPos := w.Placeholder32()
	floatPos := w.Placeholder32()

	w.PatchOffset32(indexPos, start)
	for _, kf := range c.Keyframes {
		if a.IndexSize == IndexSize16 {
			w.Uint16(uint16(kf.Frame))
		} else {
			w.Uint8(uint8(kf.Frame))
		}
	}
	w.Align(4)

	w.PatchOffset32(floatPos, start)
	for _, kf := range c.Keyframes {
		if a.FloatSize == FloatSize16 {
			w.Float16(kf.X)
			w.Float16(kf.Y)
			w.Float16(kf.Z)
			w.Float16(kf.W)
		} else {
			w.Float32s([]float32{kf.X, kf.Y, kf.Z, kf.W})
		}
	}
}

func (f *File) Write() ([]byte, error) {
	return NewWriter().Write(f)
}

func Write(w io.Writer, f *File) error {
	data, err := f.Write()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func SaveFile(f *File, path string) error {
	data, err := f.Write()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
