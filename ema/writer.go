package ema

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

type namePatch struct {
	pos, base int
	name      string
}

// Write encodes f. Keyframes are sorted and command width flags are
// updated in place.
func (wr *Writer) Write(f *File) ([]byte, error) {
	slots, err := f.animationSlots()
	if err != nil {
		return nil, err
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
	skelPos := w.Placeholder32()
	w.Uint16(uint16(len(slots)))
	w.Uint16(uint16(f.Type))
	for _, v := range f.Reserved {
		w.Int32(v)
	}

	table := make([]int, len(slots))
	for i := range slots {
		table[i] = w.Placeholder32()
	}

	var names []namePatch
	for i, a := range slots {
		if a == nil {
			continue
		}
		w.PatchOffset32(table[i], 0)
		np, err := writeAnimation(w, a, f.Skeleton != nil, bones)
		if err != nil {
			return nil, fmt.Errorf("animation %d: %w", i, err)
		}
		if a.Name != "" {
			names = append(names, np)
		}
	}

	if f.Skeleton != nil {
		w.Align(16)
		w.PatchOffset32(skelPos, 0)
		if err := writeSkeleton(w, f.Skeleton); err != nil {
			return nil, err
		}
	}
	for _, np := range names {
		w.PatchOffset32(np.pos, np.base)
		w.CString(np.name)
	}
	return w.Bytes(), nil
}

func writeAnimation(w *binio.Writer, a *Animation, hasSkeleton bool, bones map[string]int) (namePatch, error) {
	if !a.ValueType.valid() {
		return namePatch{}, fmt.Errorf("%w: %d", ErrUnknownValueType, a.ValueType)
	}
	type boneCommand struct {
		bone int
		cmd  *Command
	}
	var cmds []boneCommand
	for _, n := range a.Nodes {
		bone := 0
		if hasSkeleton {
			i, ok := bones[n.BoneName]
			if !ok {
				return namePatch{}, fmt.Errorf("%w: %q", ErrUnresolvedBone, n.BoneName)
			}
			bone = i
		} else if n.BoneName != "" {
			return namePatch{}, fmt.Errorf("%w: %q without skeleton", ErrUnresolvedBone, n.BoneName)
		}
		for _, c := range n.Commands {
			cmds = append(cmds, boneCommand{bone, c})
		}
	}
	if len(cmds) > math.MaxUint16 {
		return namePatch{}, fmt.Errorf("%w: %d commands", ErrIndexOverflow, len(cmds))
	}

	start := w.Len()
	w.Uint16(a.EndFrame)
	w.Uint16(uint16(len(cmds)))
	countPos := w.Placeholder32()
	w.Uint8(uint8(a.Type))
	w.Uint8(a.LightUnknown)
	w.Uint16(uint16(a.ValueType))
	namePos := w.Placeholder32()
	valuePos := w.Placeholder32()
	cmdPos := make([]int, len(cmds))
	for i := range cmds {
		cmdPos[i] = w.Placeholder32()
	}

	pool := newValuePool()
	for i, bc := range cmds {
		w.PatchOffset32(cmdPos[i], start)
		if err := encodeCommand(w, bc.cmd, bc.bone, pool); err != nil {
			return namePatch{}, fmt.Errorf("command %d: %w", i, err)
		}
	}

	values := pool.values
	if a.ValueType == ValueTypeVector4 {
		for len(values)%4 != 0 {
			values = append(values, 0)
		}
	}
	w.PatchUint32(countPos, uint32(len(values)))
	w.PatchOffset32(valuePos, start)
	writeValues(w, values, a.ValueType)
	return namePatch{pos: namePos, base: start, name: a.Name}, nil
}

// Write encodes f with the default name encoding.
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
