package amount

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddSub(t *testing.T) {
	a := New(STEEM, 100)
	b := New(STEEM, 40)

	sum, err := a.Add(b)
	require.NoError(t, err)
	require.Equal(t, New(STEEM, 140), sum)

	diff, err := sum.Sub(b)
	require.NoError(t, err)
	require.Equal(t, New(STEEM, 100), diff)
}

func TestSubInsufficientBalance(t *testing.T) {
	a := New(STEEM, 10)
	b := New(STEEM, 20)
	_, err := a.Sub(b)
	require.Error(t, err)
}

func TestMismatchedSymbols(t *testing.T) {
	a := New(STEEM, 10)
	b := New(SBD, 10)
	_, err := a.Add(b)
	require.Error(t, err)
	_, err = a.Sub(b)
	require.Error(t, err)
}

func TestMulDiv(t *testing.T) {
	a := New(STEEM, 100)
	got := MulDiv(a, 3, 2)
	require.Equal(t, New(STEEM, 150), got)
}

func TestIsZero(t *testing.T) {
	require.True(t, Zero(VESTS).IsZero())
	require.False(t, New(VESTS, 1).IsZero())
}

func TestMustAddPanicsOnMismatch(t *testing.T) {
	require.Panics(t, func() {
		New(STEEM, 1).MustAdd(New(SBD, 1))
	})
}
