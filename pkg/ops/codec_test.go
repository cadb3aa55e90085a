package ops

import (
	"testing"

	"github.com/rusladder/LadderChain/pkg/amount"
	"github.com/rusladder/LadderChain/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	cases := []Operation{
		Vote{Voter: "alice", Author: "bob", Permlink: "hello-world", Weight: 5000},
		Transfer{From: "alice", To: "bob", Amount: amount.New(amount.STEEM, 1000), Memo: "thanks"},
		CustomJSON{RequiredAuths: []types.AccountName{"alice"}, ID: "follow"},
	}

	for _, op := range cases {
		raw, err := Marshal(op)
		require.NoError(t, err)

		got, err := Unmarshal(raw)
		require.NoError(t, err)
		require.Equal(t, op, got)
	}
}

func TestUnmarshalUnknownType(t *testing.T) {
	_, err := Unmarshal([]byte(`{"type":"not_a_real_op","data":{}}`))
	require.Error(t, err)
	var unk *UnknownOperationError
	require.ErrorAs(t, err, &unk)
}

func TestOperationListPreservesConcreteTypes(t *testing.T) {
	list := []Operation{
		Vote{Voter: "alice", Author: "bob", Permlink: "p", Weight: 100},
		Transfer{From: "a", To: "b", Amount: amount.New(amount.STEEM, 1)},
	}

	raws := make([][]byte, len(list))
	for i, op := range list {
		raw, err := Marshal(op)
		require.NoError(t, err)
		raws[i] = raw
	}

	roundTripped := make([]Operation, len(raws))
	for i, raw := range raws {
		op, err := Unmarshal(raw)
		require.NoError(t, err)
		roundTripped[i] = op
	}

	require.IsType(t, Vote{}, roundTripped[0])
	require.IsType(t, Transfer{}, roundTripped[1])
}
