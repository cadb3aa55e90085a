package genesis

import (
	"testing"
	"time"

	"github.com/rusladder/LadderChain/internal/config"
	"github.com/stretchr/testify/require"
)

func sampleGenesisConfig() *config.Genesis {
	return &config.Genesis{
		ChainID:  "test-chain",
		InitTime: time.Unix(1_700_000_000, 0),
		Witnesses: []config.InitialWitness{
			{Name: "init-witness", SigningKey: "STM-test-key"},
		},
		Accounts: []config.InitialAccount{
			{Name: "init-witness", OwnerKey: "o", ActiveKey: "a", PostingKey: "p", Balance: 1000, VestingShares: 1000},
			{Name: "alice", OwnerKey: "o2", ActiveKey: "a2", PostingKey: "p2", Balance: 500},
		},
		Constants: config.DefaultConstants(),
	}
}

func TestBuildSeedsAccountsWitnessesAndSchedule(t *testing.T) {
	g := sampleGenesisConfig()
	s, err := Build(g)
	require.NoError(t, err)

	alice, ok := s.GetAccount("alice")
	require.True(t, ok)
	require.Equal(t, uint64(500), alice.Balance.Value.Uint64())
	require.True(t, alice.ProxiedVSFShares[0].IsZero())
	require.NotPanics(t, func() { alice.EffectiveVestingShares() })

	w, ok := s.GetWitness("init-witness")
	require.True(t, ok)
	require.Equal(t, "init-witness", string(w.Owner))

	sched := s.ActiveSchedule()
	require.Contains(t, sched.CurrentShuffledWitnesses, w.Owner)

	gd := s.GD()
	require.Equal(t, s.ForkDB.Root().ID, gd.HeadBlockID)
}

func TestBuildNoWitnessesErrors(t *testing.T) {
	g := sampleGenesisConfig()
	g.Witnesses = nil
	_, err := Build(g)
	require.Error(t, err)
}

func TestBuildDuplicateAccountErrors(t *testing.T) {
	g := sampleGenesisConfig()
	g.Accounts = append(g.Accounts, config.InitialAccount{Name: "alice"})
	_, err := Build(g)
	require.Error(t, err)
}

func TestBuildWitnessUnknownAccountErrors(t *testing.T) {
	g := sampleGenesisConfig()
	g.Witnesses = append(g.Witnesses, config.InitialWitness{Name: "ghost", SigningKey: "k"})
	_, err := Build(g)
	require.Error(t, err)
}
