// Package objectstore implements the transactional multi-index container
// of spec.md §4.1: create/modify/remove on stable-id records, with nested
// undo sessions that can squash into their parent or unwind in full.
//
// Grounded on beacon-chain/db/kv's bucket-per-collection bbolt store
// (github.com/prysmaticlabs/prysm): here the "buckets" are in-memory
// generic Table[T] instances. The object store itself writes nothing to
// disk; Store.Commit only discards undo history.
package objectstore

import (
	"fmt"

	"github.com/rusladder/LadderChain/pkg/types"
)

// Entity is the generic constraint every table's element type must satisfy:
// T is the plain struct (e.g. types.Account) and PT is its pointer type,
// which must implement types.Entity. This is the standard Go generics
// pattern for "a pointer-receiver method set over a value type parameter".
type Entity[T any] interface {
	*T
	types.Entity
}

// frameEntry records the state of one object before the first mutation it
// received within an undo frame, so the frame can be reverted with a single
// entry per touched id regardless of how many times it was touched.
type frameEntry[T any, PT Entity[T]] struct {
	before        T
	existedBefore bool
}

// Table is a generic, undo-aware collection of entities of struct type T
// (addressed via its pointer type PT).
//
// Entities are stored by value internally; Modify's mutator receives a
// pointer into a working copy that replaces the stored value on return.
// This keeps undo snapshots cheap (a struct copy) rather than requiring a
// deep-clone method per entity type. Slice/map-valued fields are shared
// across snapshots by Go's usual reference-copy semantics: code that
// mutates such a field in place (rather than assigning a new slice/map)
// would also mutate the undone snapshot. Evaluators in this codebase always
// replace rather than mutate slice/map fields for exactly this reason.
type Table[T any, PT Entity[T]] struct {
	name    string
	objects map[types.ID]*T
	nextID  types.ID
	frames  []map[types.ID]*frameEntry[T, PT]
}

// NewTable constructs an empty table. name is used only in error messages.
func NewTable[T any, PT Entity[T]](name string) *Table[T, PT] {
	return &Table[T, PT]{
		name:    name,
		objects: make(map[types.ID]*T),
		nextID:  1,
	}
}

func (t *Table[T, PT]) touch(id types.ID) {
	if len(t.frames) == 0 {
		return
	}
	top := t.frames[len(t.frames)-1]
	if _, ok := top[id]; ok {
		return
	}
	existing, ok := t.objects[id]
	entry := &frameEntry[T, PT]{existedBefore: ok}
	if ok {
		entry.before = *existing
	}
	top[id] = entry
}

// Create inserts a new record built by init, assigns it the next id, and
// returns the id and a pointer to the stored value.
func (t *Table[T, PT]) Create(init func(obj PT)) (types.ID, PT) {
	id := t.nextID
	t.nextID++
	obj := new(T)
	pt := PT(obj)
	pt.SetID(id)
	if init != nil {
		init(pt)
	}
	t.touch(id)
	t.objects[id] = obj
	return id, pt
}

// Set writes obj at the given id directly, creating or overwriting as
// needed. Used for fixed-key records (the singleton DynamicGlobalProperties
// row, the block-summary ring buffer slots) where the caller, not the
// table, owns id assignment.
func (t *Table[T, PT]) Set(id types.ID, obj PT) {
	t.touch(id)
	v := *obj
	t.objects[id] = &v
	if id >= t.nextID {
		t.nextID = id + 1
	}
}

// Get returns a pointer to the record for id. The pointer is the table's
// live storage; callers must go through Modify to mutate it so undo frames
// stay correct.
func (t *Table[T, PT]) Get(id types.ID) (PT, bool) {
	obj, ok := t.objects[id]
	if !ok {
		return nil, false
	}
	return PT(obj), true
}

// MustGet returns the record for id, panicking if absent; used where a
// caller has already validated existence via an index lookup.
func (t *Table[T, PT]) MustGet(id types.ID) PT {
	obj, ok := t.objects[id]
	if !ok {
		panic(fmt.Sprintf("objectstore: table %s: missing id %d", t.name, id))
	}
	return PT(obj)
}

// Modify mutates the record for id in place via mutator, recording the
// pre-mutation value in the active undo frame (if any).
func (t *Table[T, PT]) Modify(id types.ID, mutator func(obj PT)) error {
	obj, ok := t.objects[id]
	if !ok {
		return fmt.Errorf("objectstore: table %s: modify of missing id %d", t.name, id)
	}
	t.touch(id)
	mutator(PT(obj))
	return nil
}

// Remove deletes the record for id, recording it in the active undo frame.
func (t *Table[T, PT]) Remove(id types.ID) error {
	if _, ok := t.objects[id]; !ok {
		return fmt.Errorf("objectstore: table %s: remove of missing id %d", t.name, id)
	}
	t.touch(id)
	delete(t.objects, id)
	return nil
}

// Len returns the number of live records.
func (t *Table[T, PT]) Len() int { return len(t.objects) }

// Each iterates all live records in unspecified order; used by index
// rebuilds and invariant audits, not by consensus-critical code that needs
// a stable order.
func (t *Table[T, PT]) Each(fn func(id types.ID, obj PT) bool) {
	for id, obj := range t.objects {
		if !fn(id, PT(obj)) {
			return
		}
	}
}
