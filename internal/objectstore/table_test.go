package objectstore

import (
	"testing"

	"github.com/rusladder/LadderChain/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestTableCreateGetModify(t *testing.T) {
	tbl := NewTable[types.Account, *types.Account]("accounts")

	id, acct := tbl.Create(func(a *types.Account) {
		a.Name = "alice"
		a.Posts = 1
	})
	require.Equal(t, types.AccountName("alice"), acct.Name)

	got, ok := tbl.Get(id)
	require.True(t, ok)
	require.Equal(t, types.AccountName("alice"), got.Name)

	require.NoError(t, tbl.Modify(id, func(a *types.Account) { a.Posts = 2 }))
	got, _ = tbl.Get(id)
	require.Equal(t, uint32(2), got.Posts)
}

func TestTableModifyMissingIDErrors(t *testing.T) {
	tbl := NewTable[types.Account, *types.Account]("accounts")
	err := tbl.Modify(types.ID(99), func(a *types.Account) {})
	require.Error(t, err)
}

func TestTableRemove(t *testing.T) {
	tbl := NewTable[types.Account, *types.Account]("accounts")
	id, _ := tbl.Create(func(a *types.Account) { a.Name = "bob" })
	require.NoError(t, tbl.Remove(id))
	_, ok := tbl.Get(id)
	require.False(t, ok)
	require.Error(t, tbl.Remove(id))
}

func TestTableSetOverwritesAndAdvancesNextID(t *testing.T) {
	tbl := NewTable[types.Account, *types.Account]("accounts")
	obj := &types.Account{Name: "carol"}
	tbl.Set(types.ID(5), obj)

	got, ok := tbl.Get(types.ID(5))
	require.True(t, ok)
	require.Equal(t, types.AccountName("carol"), got.Name)

	id, _ := tbl.Create(func(a *types.Account) { a.Name = "dave" })
	require.Equal(t, types.ID(6), id)
}

func TestTableEach(t *testing.T) {
	tbl := NewTable[types.Account, *types.Account]("accounts")
	tbl.Create(func(a *types.Account) { a.Name = "a1" })
	tbl.Create(func(a *types.Account) { a.Name = "a2" })

	seen := map[types.AccountName]bool{}
	tbl.Each(func(id types.ID, a *types.Account) bool {
		seen[a.Name] = true
		return true
	})
	require.Len(t, seen, 2)
}
