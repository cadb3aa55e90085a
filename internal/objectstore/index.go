package objectstore

import "github.com/rusladder/LadderChain/pkg/types"

type indexEntry struct {
	had bool
	id  types.ID
}

// Index is a generic, undo-aware secondary lookup (name -> id,
// author+permlink -> id, and so on). It participates in the same session
// lifecycle as Table via the same txTable interface, so a single
// Store.NewSession/Squash/Undo call keeps every table and every index
// consistent (spec.md §4.1: "secondary indexes are updated atomically").
type Index[K comparable] struct {
	name   string
	m      map[K]types.ID
	frames []map[K]indexEntry
}

// NewIndex constructs an empty index. name is used only in error messages.
func NewIndex[K comparable](name string) *Index[K] {
	return &Index[K]{name: name, m: make(map[K]types.ID)}
}

func (ix *Index[K]) touch(k K) {
	if len(ix.frames) == 0 {
		return
	}
	top := ix.frames[len(ix.frames)-1]
	if _, ok := top[k]; ok {
		return
	}
	id, had := ix.m[k]
	top[k] = indexEntry{had: had, id: id}
}

// Set maps k to id.
func (ix *Index[K]) Set(k K, id types.ID) {
	ix.touch(k)
	ix.m[k] = id
}

// Delete removes k from the index.
func (ix *Index[K]) Delete(k K) {
	ix.touch(k)
	delete(ix.m, k)
}

// Get returns the id mapped to k, if any.
func (ix *Index[K]) Get(k K) (types.ID, bool) {
	id, ok := ix.m[k]
	return id, ok
}

// Len returns the number of mapped keys.
func (ix *Index[K]) Len() int { return len(ix.m) }

func (ix *Index[K]) pushFrame() {
	ix.frames = append(ix.frames, make(map[K]indexEntry))
}

func (ix *Index[K]) frameDepth() int { return len(ix.frames) }

func (ix *Index[K]) squashFrame() error {
	if len(ix.frames) < 2 {
		return errNoParentFrame
	}
	top := ix.frames[len(ix.frames)-1]
	parent := ix.frames[len(ix.frames)-2]
	for k, e := range top {
		if _, exists := parent[k]; !exists {
			parent[k] = e
		}
	}
	ix.frames = ix.frames[:len(ix.frames)-1]
	return nil
}

func (ix *Index[K]) undoFrame() error {
	if len(ix.frames) == 0 {
		return errNoFrame
	}
	top := ix.frames[len(ix.frames)-1]
	for k, e := range top {
		if e.had {
			ix.m[k] = e.id
		} else {
			delete(ix.m, k)
		}
	}
	ix.frames = ix.frames[:len(ix.frames)-1]
	return nil
}

func (ix *Index[K]) dropOutermostFrame() {
	if len(ix.frames) == 0 {
		return
	}
	ix.frames = ix.frames[1:]
}

// RegisterIndex adds an index to the set the Store drives undo sessions
// across, alongside tables registered via Register.
func RegisterIndex[K comparable](s *Store, ix *Index[K]) *Index[K] {
	s.tables = append(s.tables, ix)
	return ix
}
