// Package undo records reversible edits made by the animation models.
package undo

// Action is a reversible edit.
type Action interface {
	Undo()
	Redo()
}

// Sink receives edits. Mutation methods accept a nil Sink.
type Sink interface {
	Add(a Action)
}

// Func adapts a pair of closures to Action.
type Func struct {
	UndoFunc func()
	RedoFunc func()
}

func (f *Func) Undo() {
	if f.UndoFunc != nil {
		f.UndoFunc()
	}
}

func (f *Func) Redo() {
	if f.RedoFunc != nil {
		f.RedoFunc()
	}
}

// Add records a on s if s is not nil.
func Add(s Sink, a Action) {
	if s != nil {
		s.Add(a)
	}
}

// Group collects actions that undo and redo together.
type Group struct {
	Name    string
	Actions []Action
}

func (g *Group) Add(a Action) {
	g.Actions = append(g.Actions, a)
}

func (g *Group) Undo() {
	for i := len(g.Actions) - 1; i >= 0; i-- {
		g.Actions[i].Undo()
	}
}

func (g *Group) Redo() {
	for _, a := range g.Actions {
		a.Redo()
	}
}

// History is a linear undo/redo stack.
type History struct {
	done   []Action
	undone []Action
}

func NewHistory() *History {
	return &History{}
}

// Add pushes an already applied action and clears the redo stack.
func (h *History) Add(a Action) {
	h.done = append(h.done, a)
	h.undone = nil
}

func (h *History) CanUndo() bool {
	return len(h.done) > 0
}

func (h *History) CanRedo() bool {
	return len(h.undone) > 0
}

func (h *History) Undo() bool {
	if len(h.done) == 0 {
		return false
	}
	a := h.done[len(h.done)-1]
	h.done = h.done[:len(h.done)-1]
	a.Undo()
	h.undone = append(h.undone, a)
	return true
}

func (h *History) Redo() bool {
	if len(h.undone) == 0 {
		return false
	}
	a := h.undone[len(h.undone)-1]
	h.undone = h.undone[:len(h.undone)-1]
	a.Redo()
	h.done = append(h.done, a)
	return true
}
