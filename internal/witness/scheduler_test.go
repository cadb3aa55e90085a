package witness

import (
	"testing"
	"time"

	"github.com/rusladder/LadderChain/internal/state"
	"github.com/rusladder/LadderChain/pkg/amount"
	"github.com/rusladder/LadderChain/pkg/types"
	"github.com/stretchr/testify/require"
)

func newTestState(t *testing.T) *state.State {
	t.Helper()
	s := state.New()
	s.Schedule.Set(1, &types.WitnessSchedule{ID: 1, TopWitnessCount: 2})
	s.Global.Set(1, &types.DynamicGlobalProperties{ID: 1})
	return s
}

func newTestWitness(s *state.State, name types.AccountName, votes uint64) {
	id, _ := s.Witnesses.Create(func(w *types.Witness) {
		w.Owner = name
		w.Votes = amount.New(amount.VESTS, votes)
		w.VirtualPosition = types.ZeroRatio()
		w.VirtualScheduledTime = types.ZeroRatio()
		w.Props = types.ChainProperties{
			AccountCreationFee: amount.New(amount.STEEM, 1000),
			MaximumBlockSize:   131072,
		}
	})
	s.WitnessesByOwner.Set(name, id)
}

func TestGetSlotAtTime(t *testing.T) {
	head := time.Unix(1000, 0)
	require.Equal(t, uint64(0), GetSlotAtTime(head, head))
	require.Equal(t, uint64(0), GetSlotAtTime(head, head.Add(2*time.Second)))
	require.Equal(t, uint64(1), GetSlotAtTime(head, head.Add(BlockInterval)))
	require.Equal(t, uint64(2), GetSlotAtTime(head, head.Add(2*BlockInterval)))
}

func TestGetSlotTime(t *testing.T) {
	head := time.Unix(1000, 0)
	require.Equal(t, head, GetSlotTime(head, 0))
	require.Equal(t, head.Add(BlockInterval), GetSlotTime(head, 1))
}

func TestUpdateScheduleSelectsTopWitnessesByVotes(t *testing.T) {
	s := newTestState(t)
	newTestWitness(s, "alice", 300)
	newTestWitness(s, "bob", 100)
	newTestWitness(s, "carol", 200)

	require.NoError(t, UpdateSchedule(s, types.BlockID{}, time.Unix(0, 0)))

	sched := s.ActiveSchedule()
	require.Len(t, sched.CurrentShuffledWitnesses, 3)
	require.ElementsMatch(t, []types.AccountName{"alice", "bob", "carol"}, sched.CurrentShuffledWitnesses)
}

func TestUpdateScheduleNoWitnessesErrors(t *testing.T) {
	s := newTestState(t)
	err := UpdateSchedule(s, types.BlockID{}, time.Unix(0, 0))
	require.Error(t, err)
}

func TestWitnessAtSlotWrapsAroundSchedule(t *testing.T) {
	s := newTestState(t)
	newTestWitness(s, "alice", 100)
	newTestWitness(s, "bob", 100)
	require.NoError(t, UpdateSchedule(s, types.BlockID{}, time.Unix(0, 0)))

	n := len(s.ActiveSchedule().CurrentShuffledWitnesses)
	first, err := WitnessAtSlot(s, 0)
	require.NoError(t, err)
	wrapped, err := WitnessAtSlot(s, uint64(n))
	require.NoError(t, err)
	require.Equal(t, first, wrapped)
}

func TestUpdateRequiredAtRoundBoundary(t *testing.T) {
	s := newTestState(t)
	s.Schedule.Modify(1, func(sc *types.WitnessSchedule) { sc.NumScheduledWitnesses = 3 })

	s.Global.Modify(1, func(g *types.DynamicGlobalProperties) { g.CurrentASlot = 0 })
	require.True(t, UpdateRequired(s))

	s.Global.Modify(1, func(g *types.DynamicGlobalProperties) { g.CurrentASlot = 1 })
	require.False(t, UpdateRequired(s))

	s.Global.Modify(1, func(g *types.DynamicGlobalProperties) { g.CurrentASlot = 3 })
	require.True(t, UpdateRequired(s))
}

func TestDeterministicShuffleIsStableForSameSeed(t *testing.T) {
	names := []types.AccountName{"alice", "bob", "carol", "dave"}
	seed := types.BlockID{1, 2, 3, 4}

	a := deterministicShuffle(names, seed)
	b := deterministicShuffle(names, seed)
	require.Equal(t, a, b)
	require.ElementsMatch(t, names, a)
}
