package objectstore

import "github.com/rusladder/LadderChain/pkg/types"

// txTable is the type-erased view of Table[T,PT] the Store needs to drive
// undo sessions uniformly across every registered table, regardless of its
// element type (spec.md §4.1: "Undo sessions nest; an inner session can
// squash() ... or undo()").
type txTable interface {
	pushFrame()
	squashFrame() error
	undoFrame() error
	frameDepth() int
	dropOutermostFrame()
}

func (t *Table[T, PT]) pushFrame() {
	t.frames = append(t.frames, make(map[types.ID]*frameEntry[T, PT]))
}

func (t *Table[T, PT]) frameDepth() int { return len(t.frames) }

// squashFrame merges the top frame into the one beneath it: an id touched in
// both frames keeps the *outer* (earlier) before-snapshot, since that is the
// state the merged, larger frame must restore on an eventual undo.
func (t *Table[T, PT]) squashFrame() error {
	if len(t.frames) < 2 {
		return errNoParentFrame
	}
	top := t.frames[len(t.frames)-1]
	parent := t.frames[len(t.frames)-2]
	for id, entry := range top {
		if _, exists := parent[id]; !exists {
			parent[id] = entry
		}
	}
	t.frames = t.frames[:len(t.frames)-1]
	return nil
}

// dropOutermostFrame discards the earliest open frame's undo data without
// applying or reverting it, making its changes permanent. Used by
// Store.Commit once that frame's block has become irreversible.
func (t *Table[T, PT]) dropOutermostFrame() {
	if len(t.frames) == 0 {
		return
	}
	t.frames = t.frames[1:]
}

// undoFrame reverts every change recorded in the top frame and discards it.
func (t *Table[T, PT]) undoFrame() error {
	if len(t.frames) == 0 {
		return errNoFrame
	}
	top := t.frames[len(t.frames)-1]
	for id, entry := range top {
		if entry.existedBefore {
			before := entry.before
			t.objects[id] = &before
		} else {
			delete(t.objects, id)
		}
	}
	t.frames = t.frames[:len(t.frames)-1]
	return nil
}
