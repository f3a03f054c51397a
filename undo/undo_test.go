package undo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistory(t *testing.T) {
	v := 1
	set := func(n int) Action {
		old := v
		v = n
		return &Func{UndoFunc: func() { v = old }, RedoFunc: func() { v = n }}
	}

	h := NewHistory()
	h.Add(set(2))
	h.Add(set(3))
	assert.Equal(t, 3, v)

	assert.True(t, h.Undo())
	assert.Equal(t, 2, v)
	assert.True(t, h.Undo())
	assert.Equal(t, 1, v)
	assert.False(t, h.Undo())

	assert.True(t, h.Redo())
	assert.Equal(t, 2, v)

	h.Add(set(5))
	assert.False(t, h.CanRedo())
	assert.True(t, h.CanUndo())
}

func TestGroup(t *testing.T) {
	var log []string
	g := &Group{Name: "edit"}
	g.Add(&Func{UndoFunc: func() { log = append(log, "u1") }, RedoFunc: func() { log = append(log, "r1") }})
	g.Add(&Func{UndoFunc: func() { log = append(log, "u2") }, RedoFunc: func() { log = append(log, "r2") }})

	g.Undo()
	g.Redo()
	assert.Equal(t, []string{"u2", "u1", "r1", "r2"}, log)

	Add(nil, g)
}
