package chain

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rusladder/LadderChain/internal/blocklog"
	"github.com/rusladder/LadderChain/internal/config"
	"github.com/rusladder/LadderChain/internal/evaluator"
	"github.com/rusladder/LadderChain/internal/genesis"
	"github.com/rusladder/LadderChain/internal/state"
	"github.com/rusladder/LadderChain/pkg/amount"
	"github.com/rusladder/LadderChain/pkg/ops"
	"github.com/rusladder/LadderChain/pkg/types"
	"github.com/stretchr/testify/require"
)

func amountSteem(units uint64) amount.Amount { return amount.New(amount.STEEM, units) }

func newTestController(t *testing.T) *Controller {
	t.Helper()

	initTime := time.Unix(1_700_000_000, 0)
	g := &config.Genesis{
		ChainID:  "test-chain",
		InitTime: initTime,
		Witnesses: []config.InitialWitness{
			{Name: "init-witness", SigningKey: "STM-test-key"},
		},
		Accounts: []config.InitialAccount{
			{Name: "init-witness", OwnerKey: "STM-owner", ActiveKey: "STM-active", PostingKey: "STM-posting", Balance: 1000, VestingShares: 1000},
			{Name: "alice", OwnerKey: "STM-owner2", ActiveKey: "STM-active2", PostingKey: "STM-posting2", Balance: 1000, VestingShares: 0},
		},
		Constants: config.DefaultConstants(),
	}

	s, err := genesis.Build(g)
	require.NoError(t, err)

	bl, err := blocklog.Open(filepath.Join(t.TempDir(), "blocks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { bl.Close() })

	reg := evaluator.Default()
	schedule := genesis.Schedule(g, map[uint32]func(*state.State) error{})
	return NewController(s, bl, reg, schedule)
}

func pushEmptyBlock(t *testing.T, c *Controller, when time.Time) Block {
	t.Helper()
	gd := c.State.GD()
	header := BlockHeader{
		PreviousID:            gd.HeadBlockID,
		Timestamp:             when,
		Witness:               "init-witness",
		TransactionMerkleRoot: MerkleRoot(nil),
	}
	block := Block{Header: header}
	require.NoError(t, c.PushBlock(block, when, SkipFlags{SkipWitnessSignee: true, SkipAuthorityCheck: true}))
	return block
}

func TestPushBlockExtendsHead(t *testing.T) {
	c := newTestController(t)
	initTime := c.State.GD().Time

	t1 := initTime.Add(3 * time.Second)
	pushEmptyBlock(t, c, t1)

	gd := c.State.GD()
	require.Equal(t, uint32(1), gd.HeadBlockNumber)
	require.Len(t, c.reversible, 1)
}

func TestPushBlockRejectsNonAdvancingTimestamp(t *testing.T) {
	c := newTestController(t)
	initTime := c.State.GD().Time
	t1 := initTime.Add(3 * time.Second)
	pushEmptyBlock(t, c, t1)

	gd := c.State.GD()
	header := BlockHeader{
		PreviousID:            gd.HeadBlockID,
		Timestamp:             t1, // does not advance past t1
		Witness:               "init-witness",
		TransactionMerkleRoot: MerkleRoot(nil),
	}
	err := c.PushBlock(Block{Header: header}, t1, SkipFlags{SkipWitnessSignee: true, SkipAuthorityCheck: true})
	require.Error(t, err)
}

func TestPushTransactionAppliesAgainstPendingSession(t *testing.T) {
	c := newTestController(t)
	initTime := c.State.GD().Time

	trx := Transaction{
		Expiration: initTime.Add(time.Hour),
		Operations: []ops.Operation{
			ops.Transfer{From: "init-witness", To: "alice", Amount: amountSteem(100)},
		},
		SigningKeys: []types.PublicKey{"STM-owner"},
	}
	require.NoError(t, c.PushTransaction(trx, initTime, SkipFlags{SkipAuthorityCheck: false, SkipBandwidth: true}))
	require.Len(t, c.pendingTxs, 1)

	alice, _ := c.State.GetAccount("alice")
	require.Equal(t, uint64(1100), alice.Balance.Value.Uint64())
}

func TestGenerateBlockIncludesPendingTransactions(t *testing.T) {
	c := newTestController(t)
	initTime := c.State.GD().Time

	trx := Transaction{
		Expiration: initTime.Add(time.Hour),
		Operations: []ops.Operation{
			ops.Transfer{From: "init-witness", To: "alice", Amount: amountSteem(50)},
		},
		SigningKeys: []types.PublicKey{"STM-owner"},
	}
	require.NoError(t, c.PushTransaction(trx, initTime, SkipFlags{SkipBandwidth: true}))

	t1 := initTime.Add(3 * time.Second)
	block, err := c.GenerateBlock("init-witness", "STM-test-key", t1, SkipFlags{SkipWitnessSignee: true, SkipBandwidth: true})
	require.NoError(t, err)
	require.Len(t, block.Transactions, 1)

	gd := c.State.GD()
	require.Equal(t, uint32(1), gd.HeadBlockNumber)
}

func TestAdvanceIrreversibilityCommitsOldBlocks(t *testing.T) {
	c := newTestController(t)
	when := c.State.GD().Time

	for i := 0; i < 5; i++ {
		when = when.Add(3 * time.Second)
		pushEmptyBlock(t, c, when)
	}

	w, ok := c.State.GetWitness("init-witness")
	require.True(t, ok)
	require.Equal(t, uint32(5), w.LastConfirmedBlockNum)

	gd := c.State.GD()
	require.Equal(t, uint32(5), gd.LastIrreversibleBlockNum)
	// Irreversibility for block N is computed before block N itself joins
	// c.reversible, so the most recent block always lags one push behind
	// being squashed away.
	require.Len(t, c.reversible, 1)
	require.Equal(t, uint32(5), c.reversible[0].num)
}
