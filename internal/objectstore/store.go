package objectstore

import (
	"errors"

	"github.com/rusladder/LadderChain/pkg/errs"
)

var (
	errNoFrame       = errors.New("objectstore: no active undo frame")
	errNoParentFrame = errors.New("objectstore: squash has no parent frame to merge into")
)

// Store coordinates undo sessions across every table registered with it.
// Tables register themselves (via Register, called once at construction of
// the owning package's store wrapper) so that a single Store.NewSession
// call opens a matching frame on all of them at once — this is what makes
// "one outer session per block, one child per transaction, one grandchild
// per evaluation" (spec.md §4.1) a single call at each level rather than
// one per table.
type Store struct {
	tables   []txTable
	revision uint64
}

// NewStore returns an empty, unregistered Store.
func NewStore() *Store { return &Store{} }

// Register adds a table to the set the Store drives undo sessions across.
// Must be called before any session is opened.
func Register[T any, PT Entity[T]](s *Store, t *Table[T, PT]) *Table[T, PT] {
	s.tables = append(s.tables, t)
	return t
}

// Revision is the store's current commit-point counter, aligned with head
// block number once genesis has run (spec.md §4.1 "Outer-most commit ties
// to a revision number aligned with head block number").
func (s *Store) Revision() uint64 { return s.revision }

// SetRevision forcibly sets the revision counter; used only by genesis and
// by reindex, which rebuild state outside the normal commit path.
func (s *Store) SetRevision(r uint64) { s.revision = r }

// Session is a single scoped undo frame opened across every registered
// table. Exactly one of Squash or Undo must be called before the session
// goes out of scope; Session.Release enforces this by undoing if neither
// ran, matching spec.md §4.1's "Scoped undo sessions ... Release must be
// guaranteed on every exit path" (§9 design note).
type Session struct {
	store *Store
	done  bool
}

// NewSession opens a new nested undo frame on every registered table.
func (s *Store) NewSession() *Session {
	for _, t := range s.tables {
		t.pushFrame()
	}
	return &Session{store: s}
}

// Squash merges this session's frame into its parent's, keeping the parent
// session able to undo everything the child did.
func (sess *Session) Squash() error {
	if sess.done {
		return errs.New(errs.KindFatal, "objectstore: session already closed")
	}
	for _, t := range sess.store.tables {
		if err := t.squashFrame(); err != nil {
			return errs.Wrap(errs.KindFatal, err, "squashing undo frame")
		}
	}
	sess.done = true
	return nil
}

// Undo discards this session's frame, reverting every change it or any of
// its un-squashed children made.
func (sess *Session) Undo() error {
	if sess.done {
		return nil
	}
	for _, t := range sess.store.tables {
		if err := t.undoFrame(); err != nil {
			return errs.Wrap(errs.KindFatal, err, "reverting undo frame")
		}
	}
	sess.done = true
	return nil
}

// Release guarantees the session is closed: if the caller already called
// Squash or Undo this is a no-op, otherwise it undoes. Callers should
// `defer sess.Release()` immediately after NewSession so that any early
// return (including a panic recovered higher up) can't leave a dangling
// frame (spec.md §4.1 failure mode: "surrounding session is not
// corrupted").
func (sess *Session) Release() {
	if !sess.done {
		_ = sess.Undo()
	}
}

// Commit discards the undo history for every table's outer-most frame,
// advancing the store's durable revision. The outer-most frame is the
// oldest open session's, so callers commit sessions oldest first and only
// once the revision that session recorded is final, matching spec.md
// §4.6's "commit undo sessions up to that revision (the store's undo data
// for those blocks is discarded)".
func (s *Store) Commit(revision uint64) {
	for _, t := range s.tables {
		t.dropOutermostFrame()
	}
	s.revision = revision
}
