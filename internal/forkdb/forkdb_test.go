package forkdb

import (
	"testing"

	"github.com/rusladder/LadderChain/pkg/types"
	"github.com/stretchr/testify/require"
)

func id(b byte) types.BlockID {
	var out types.BlockID
	out[19] = b
	return out
}

func TestPushExtendsHead(t *testing.T) {
	root := Header{ID: id(0), Num: 0}
	db := NewWithRoot(root)

	h1 := Header{ID: id(1), PreviousID: id(0), Num: 1}
	head, err := db.Push(h1)
	require.NoError(t, err)
	require.Equal(t, h1, head)
	require.Equal(t, h1, db.Head())
}

func TestPushUnknownParentErrors(t *testing.T) {
	db := NewWithRoot(Header{ID: id(0), Num: 0})
	_, err := db.Push(Header{ID: id(2), PreviousID: id(99), Num: 1})
	require.Error(t, err)
}

func TestPushDuplicateIsNoOp(t *testing.T) {
	db := NewWithRoot(Header{ID: id(0), Num: 0})
	h1 := Header{ID: id(1), PreviousID: id(0), Num: 1}
	_, err := db.Push(h1)
	require.NoError(t, err)

	head, err := db.Push(h1)
	require.NoError(t, err)
	require.Equal(t, db.Head(), head)
}

func TestPushDoesNotMoveHeadForLowerBranch(t *testing.T) {
	db := NewWithRoot(Header{ID: id(0), Num: 0})
	h1 := Header{ID: id(1), PreviousID: id(0), Num: 1}
	h2 := Header{ID: id(2), PreviousID: id(1), Num: 2}
	_, err := db.Push(h1)
	require.NoError(t, err)
	_, err = db.Push(h2)
	require.NoError(t, err)

	sibling := Header{ID: id(3), PreviousID: id(0), Num: 1}
	head, err := db.Push(sibling)
	require.NoError(t, err)
	require.Equal(t, h2, head)
	require.Equal(t, h2, db.Head())
}

func TestFetchBranchFromFindsCommonAncestor(t *testing.T) {
	db := NewWithRoot(Header{ID: id(0), Num: 0})
	h1 := Header{ID: id(1), PreviousID: id(0), Num: 1}
	h2a := Header{ID: id(2), PreviousID: id(1), Num: 2}
	h2b := Header{ID: id(3), PreviousID: id(1), Num: 2}
	for _, h := range []Header{h1, h2a, h2b} {
		_, err := db.Push(h)
		require.NoError(t, err)
	}

	branchA, branchB, err := db.FetchBranchFrom(id(2), id(3))
	require.NoError(t, err)
	require.Equal(t, []Header{h2a}, branchA)
	require.Equal(t, []Header{h2b}, branchB)
}

func TestFetchBranchFromUnknownBlockErrors(t *testing.T) {
	db := NewWithRoot(Header{ID: id(0), Num: 0})
	_, _, err := db.FetchBranchFrom(id(0), id(99))
	require.Error(t, err)
}

func TestPruneDropsNonDescendants(t *testing.T) {
	db := NewWithRoot(Header{ID: id(0), Num: 0})
	h1 := Header{ID: id(1), PreviousID: id(0), Num: 1}
	h2 := Header{ID: id(2), PreviousID: id(1), Num: 2}
	sibling := Header{ID: id(3), PreviousID: id(0), Num: 1}
	for _, h := range []Header{h1, h2, sibling} {
		_, err := db.Push(h)
		require.NoError(t, err)
	}

	require.NoError(t, db.Prune(id(1)))
	require.Equal(t, id(1), db.Root().ID)

	_, ok := db.Get(id(3))
	require.False(t, ok)
	_, ok = db.Get(id(2))
	require.True(t, ok)
}

func TestSetHeadUnknownBlockErrors(t *testing.T) {
	db := NewWithRoot(Header{ID: id(0), Num: 0})
	require.Error(t, db.SetHead(id(99)))
}
