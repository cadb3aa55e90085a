package objectstore

import (
	"testing"

	"github.com/rusladder/LadderChain/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestIndexSetGetDelete(t *testing.T) {
	ix := NewIndex[string]("accounts-by-name")
	ix.Set("alice", types.ID(1))

	id, ok := ix.Get("alice")
	require.True(t, ok)
	require.Equal(t, types.ID(1), id)

	ix.Delete("alice")
	_, ok = ix.Get("alice")
	require.False(t, ok)
}

func TestIndexUndoRestoresPriorMapping(t *testing.T) {
	s := NewStore()
	ix := RegisterIndex(s, NewIndex[string]("accounts-by-name"))
	ix.Set("alice", types.ID(1))

	sess := s.NewSession()
	ix.Set("alice", types.ID(2))
	require.NoError(t, sess.Undo())

	id, ok := ix.Get("alice")
	require.True(t, ok)
	require.Equal(t, types.ID(1), id)
}

func TestIndexUndoRemovesNewMapping(t *testing.T) {
	s := NewStore()
	ix := RegisterIndex(s, NewIndex[string]("accounts-by-name"))

	sess := s.NewSession()
	ix.Set("bob", types.ID(1))
	require.NoError(t, sess.Undo())

	_, ok := ix.Get("bob")
	require.False(t, ok)
}

func TestIndexAndTableShareOneSession(t *testing.T) {
	s := NewStore()
	tbl := Register(s, NewTable[types.Account, *types.Account]("accounts"))
	ix := RegisterIndex(s, NewIndex[types.AccountName]("accounts-by-name"))

	sess := s.NewSession()
	id, _ := tbl.Create(func(a *types.Account) { a.Name = "carol" })
	ix.Set("carol", id)
	require.NoError(t, sess.Undo())

	_, tblOK := tbl.Get(id)
	_, ixOK := ix.Get("carol")
	require.False(t, tblOK)
	require.False(t, ixOK)
}
