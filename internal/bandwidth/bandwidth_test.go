package bandwidth

import (
	"testing"
	"time"

	"github.com/rusladder/LadderChain/internal/state"
	"github.com/rusladder/LadderChain/pkg/amount"
	"github.com/rusladder/LadderChain/pkg/types"
	"github.com/stretchr/testify/require"
)

func newAccountWithVests(s *state.State, name types.AccountName, vests uint64) {
	id, _ := s.Accounts.Create(func(a *types.Account) {
		a.Name = name
		a.VestingShares = amount.New(amount.VESTS, vests)
	})
	s.AccountsByName.Set(name, id)
}

func TestChargeCreatesAndDecaysAverage(t *testing.T) {
	s := state.New()
	newAccountWithVests(s, "alice", 1000)

	t0 := time.Unix(0, 0)
	require.NoError(t, Charge(s, "alice", types.BandwidthForum, 1000, t0))

	_, rec, found := find(s, "alice", types.BandwidthForum)
	require.True(t, found)
	require.Equal(t, uint64(1000), rec.Average)

	t1 := t0.Add(windowSeconds / 2 * time.Second)
	require.NoError(t, Charge(s, "alice", types.BandwidthForum, 0, t1))

	_, rec, _ = find(s, "alice", types.BandwidthForum)
	require.Less(t, rec.Average, uint64(1000))
}

func TestChargePastFullWindowZeroesAverage(t *testing.T) {
	s := state.New()
	newAccountWithVests(s, "alice", 1000)

	t0 := time.Unix(0, 0)
	require.NoError(t, Charge(s, "alice", types.BandwidthForum, 1000, t0))

	t1 := t0.Add((windowSeconds + 1) * time.Second)
	require.NoError(t, Charge(s, "alice", types.BandwidthForum, 0, t1))

	_, rec, _ := find(s, "alice", types.BandwidthForum)
	require.Equal(t, uint64(0), rec.Average)
}

func TestCheckQuotaRejectsWhenBandwidthExhausted(t *testing.T) {
	s := state.New()
	newAccountWithVests(s, "alice", 1)
	s.Global.Set(1, &types.DynamicGlobalProperties{
		ID:                  1,
		TotalVestingShares:  amount.New(amount.VESTS, 1_000_000),
		MaxVirtualBandwidth: 1,
	})

	t0 := time.Unix(0, 0)
	require.NoError(t, Charge(s, "alice", types.BandwidthForum, 1_000_000_000, t0))

	err := CheckQuota(s, "alice", types.BandwidthForum)
	require.Error(t, err)
}

func TestCheckQuotaAllowsUnknownUntouchedAccount(t *testing.T) {
	s := state.New()
	newAccountWithVests(s, "alice", 1000)
	require.NoError(t, CheckQuota(s, "alice", types.BandwidthForum))
}

func TestCheckQuotaUnknownAccountErrors(t *testing.T) {
	s := state.New()
	err := CheckQuota(s, "nobody", types.BandwidthForum)
	require.Error(t, err)
}
