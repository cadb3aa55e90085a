package objectstore

import (
	"testing"

	"github.com/rusladder/LadderChain/pkg/types"
	"github.com/stretchr/testify/require"
)

func newTestStore() (*Store, *Table[types.Account, *types.Account]) {
	s := NewStore()
	tbl := Register(s, NewTable[types.Account, *types.Account]("accounts"))
	return s, tbl
}

func TestSessionUndoRevertsChanges(t *testing.T) {
	s, tbl := newTestStore()
	id, _ := tbl.Create(func(a *types.Account) { a.Name = "alice"; a.Posts = 0 })

	sess := s.NewSession()
	require.NoError(t, tbl.Modify(id, func(a *types.Account) { a.Posts = 5 }))

	require.NoError(t, sess.Undo())

	got, ok := tbl.Get(id)
	require.True(t, ok)
	require.Equal(t, uint32(0), got.Posts)
}

func TestSessionUndoRemovesCreatedRecord(t *testing.T) {
	s, tbl := newTestStore()

	sess := s.NewSession()
	id, _ := tbl.Create(func(a *types.Account) { a.Name = "bob" })
	require.NoError(t, sess.Undo())

	_, ok := tbl.Get(id)
	require.False(t, ok)
}

func TestSessionSquashMergesIntoParent(t *testing.T) {
	s, tbl := newTestStore()
	outer := s.NewSession()

	id, _ := tbl.Create(func(a *types.Account) { a.Name = "alice"; a.Posts = 0 })

	inner := s.NewSession()
	require.NoError(t, tbl.Modify(id, func(a *types.Account) { a.Posts = 1 }))
	require.NoError(t, inner.Squash())

	// The outer session still owns the whole change and can undo it.
	require.NoError(t, outer.Undo())
	_, ok := tbl.Get(id)
	require.False(t, ok)
}

func TestSessionReleaseUndoesIfNotClosed(t *testing.T) {
	s, tbl := newTestStore()
	id, _ := tbl.Create(func(a *types.Account) { a.Name = "alice" })

	sess := s.NewSession()
	require.NoError(t, tbl.Modify(id, func(a *types.Account) { a.Posts = 9 }))
	sess.Release()

	got, _ := tbl.Get(id)
	require.Equal(t, uint32(0), got.Posts)
}

func TestSessionReleaseAfterSquashIsNoOp(t *testing.T) {
	s, tbl := newTestStore()
	id, _ := tbl.Create(func(a *types.Account) { a.Name = "alice" })

	sess := s.NewSession()
	require.NoError(t, tbl.Modify(id, func(a *types.Account) { a.Posts = 9 }))
	require.NoError(t, sess.Squash())
	sess.Release()

	got, _ := tbl.Get(id)
	require.Equal(t, uint32(9), got.Posts)
}

func TestStoreCommitDropsOutermostFrame(t *testing.T) {
	s, tbl := newTestStore()
	sess := s.NewSession()
	id, _ := tbl.Create(func(a *types.Account) { a.Name = "alice" })
	require.NoError(t, sess.Squash())

	s.Commit(1)
	require.Equal(t, uint64(1), s.Revision())

	// Undo history for the committed frame is gone; the record remains.
	got, ok := tbl.Get(id)
	require.True(t, ok)
	require.Equal(t, types.AccountName("alice"), got.Name)
}
