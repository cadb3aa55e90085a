package evaluator

import (
	"testing"
	"time"

	"github.com/rusladder/LadderChain/internal/state"
	"github.com/rusladder/LadderChain/pkg/amount"
	"github.com/rusladder/LadderChain/pkg/ops"
	"github.com/rusladder/LadderChain/pkg/types"
	"github.com/stretchr/testify/require"
)

func newEvalState(t *testing.T) *state.State {
	t.Helper()
	s := state.New()
	s.Global.Set(1, &types.DynamicGlobalProperties{
		ID:                    1,
		CurrentSupply:         amount.New(amount.STEEM, 1_000_000),
		VirtualSupply:         amount.New(amount.STEEM, 1_000_000),
		CurrentSBDSupply:      amount.Zero(amount.SBD),
		TotalVestingFundSteem: amount.New(amount.STEEM, 500_000),
		TotalVestingShares:    amount.New(amount.VESTS, 500_000),
		MaximumBlockSize:      131072,
	})
	return s
}

func newEvalAccount(s *state.State, name types.AccountName, steem, vests uint64) {
	id, _ := s.Accounts.Create(func(a *types.Account) {
		a.Name = name
		a.Balance = amount.New(amount.STEEM, steem)
		a.SBDBalance = amount.Zero(amount.SBD)
		a.SavingsBalance = amount.Zero(amount.STEEM)
		a.SavingsSBDBalance = amount.Zero(amount.SBD)
		a.VestingShares = amount.New(amount.VESTS, vests)
		a.VestingWithdrawRate = amount.Zero(amount.VESTS)
		a.ToWithdraw = amount.Zero(amount.VESTS)
		a.Withdrawn = amount.Zero(amount.VESTS)
		for i := range a.ProxiedVSFShares {
			a.ProxiedVSFShares[i] = amount.Zero(amount.VESTS)
		}
		a.WitnessVotes = map[types.AccountName]struct{}{}
		a.CustomBalances = map[string]amount.Amount{}
	})
	s.AccountsByName.Set(name, id)
}

func TestEvalAccountCreate(t *testing.T) {
	s := newEvalState(t)
	newEvalAccount(s, "alice", 10_000, 0)
	ctx := &Context{State: s, Now: time.Unix(0, 0)}

	err := evalAccountCreate(ctx, ops.AccountCreate{
		Creator:        "alice",
		NewAccountName: "bob",
		Fee:            amount.New(amount.STEEM, 1000),
		Owner:          types.Authority{Threshold: 1, Keys: []types.AuthorityKeyWeight{{Key: "STM-bob", Weight: 1}}},
		Active:         types.Authority{Threshold: 1, Keys: []types.AuthorityKeyWeight{{Key: "STM-bob", Weight: 1}}},
		Posting:        types.Authority{Threshold: 1, Keys: []types.AuthorityKeyWeight{{Key: "STM-bob", Weight: 1}}},
	})
	require.NoError(t, err)

	creator, _ := s.GetAccount("alice")
	require.Equal(t, uint64(9000), creator.Balance.Value.Uint64())

	bob, ok := s.GetAccount("bob")
	require.True(t, ok)
	require.False(t, bob.VestingShares.IsZero())
}

func TestEvalAccountCreateDuplicateNameErrors(t *testing.T) {
	s := newEvalState(t)
	newEvalAccount(s, "alice", 10_000, 0)
	newEvalAccount(s, "bob", 0, 0)
	ctx := &Context{State: s, Now: time.Unix(0, 0)}

	err := evalAccountCreate(ctx, ops.AccountCreate{
		Creator:        "alice",
		NewAccountName: "bob",
		Fee:            amount.New(amount.STEEM, 100),
	})
	require.Error(t, err)
}

func TestEvalAccountCreateInsufficientFeeErrors(t *testing.T) {
	s := newEvalState(t)
	newEvalAccount(s, "alice", 100, 0)
	ctx := &Context{State: s, Now: time.Unix(0, 0)}

	err := evalAccountCreate(ctx, ops.AccountCreate{
		Creator:        "alice",
		NewAccountName: "bob",
		Fee:            amount.New(amount.STEEM, 1000),
	})
	require.Error(t, err)
}

func TestEvalTransferMovesSteemBalance(t *testing.T) {
	s := newEvalState(t)
	newEvalAccount(s, "alice", 1000, 0)
	newEvalAccount(s, "bob", 0, 0)
	ctx := &Context{State: s, Now: time.Unix(0, 0)}

	err := evalTransfer(ctx, ops.Transfer{From: "alice", To: "bob", Amount: amount.New(amount.STEEM, 400)})
	require.NoError(t, err)

	alice, _ := s.GetAccount("alice")
	bob, _ := s.GetAccount("bob")
	require.Equal(t, uint64(600), alice.Balance.Value.Uint64())
	require.Equal(t, uint64(400), bob.Balance.Value.Uint64())
}

func TestEvalTransferInsufficientBalanceErrors(t *testing.T) {
	s := newEvalState(t)
	newEvalAccount(s, "alice", 100, 0)
	newEvalAccount(s, "bob", 0, 0)
	ctx := &Context{State: s, Now: time.Unix(0, 0)}

	err := evalTransfer(ctx, ops.Transfer{From: "alice", To: "bob", Amount: amount.New(amount.STEEM, 400)})
	require.Error(t, err)
}

func TestEvalTransferUnknownAccountErrors(t *testing.T) {
	s := newEvalState(t)
	newEvalAccount(s, "alice", 100, 0)
	ctx := &Context{State: s, Now: time.Unix(0, 0)}

	err := evalTransfer(ctx, ops.Transfer{From: "alice", To: "nobody", Amount: amount.New(amount.STEEM, 10)})
	require.Error(t, err)
}

func TestEvalDelegateVestingSharesTracksProxiedTotal(t *testing.T) {
	s := newEvalState(t)
	newEvalAccount(s, "alice", 0, 10_000)
	newEvalAccount(s, "bob", 0, 0)
	ctx := &Context{State: s, Now: time.Unix(0, 0)}

	err := evalDelegateVestingShares(ctx, ops.DelegateVestingShares{
		Delegator:     "alice",
		Delegatee:     "bob",
		VestingShares: amount.New(amount.VESTS, 1000),
	})
	require.NoError(t, err)

	alice, _ := s.GetAccount("alice")
	bob, _ := s.GetAccount("bob")
	require.Equal(t, uint64(9000), alice.VestingShares.Value.Uint64())
	require.Equal(t, uint64(1000), bob.ProxiedVSFShares[0].Value.Uint64())
	require.Equal(t, uint64(1000), bob.EffectiveVestingShares().Value.Uint64())
}
