// Package invariant audits chain state after every applied block against
// the properties spec.md §8 requires to always hold: supply conservation,
// vesting-sum agreement, vote-total bounds, the comment rshares² rollup,
// the virtual-supply identity, and cashout-time well-formedness.
//
// Grounded on beacon-chain/core/state's sanity-check helpers
// (github.com/prysmaticlabs/prysm), which run the same kind of
// post-transition assertion pass this package runs after apply-block.
package invariant

import (
	"sort"
	"time"

	"github.com/holiman/uint256"
	"github.com/rusladder/LadderChain/internal/state"
	"github.com/rusladder/LadderChain/pkg/amount"
	"github.com/rusladder/LadderChain/pkg/errs"
	"github.com/rusladder/LadderChain/pkg/types"
)

// cashoutWindow bounds invariant 6's "within the configured window of its
// creation" check; must match internal/evaluator's comment cashout window.
const cashoutWindow = 7 * 24 * time.Hour

// Audit runs every invariant in spec.md §8 and returns the first violation
// found wrapped as errs.KindFatal, matching §7's "assertion failure of an
// invariant" classification (fatal, unwinds the block).
func Audit(s *state.State) error {
	checks := []func(*state.State) error{
		checkSupplyConservation,
		checkVestingSum,
		checkWitnessVoteBounds,
		checkChildrenRshares2Rollup,
		checkVirtualSupplyIdentity,
		checkCashoutTimes,
	}
	for _, check := range checks {
		if err := check(s); err != nil {
			return err
		}
	}
	return nil
}

// checkSupplyConservation enforces invariant 1: current_supply and
// current_sbd_supply must equal the sum of the two currencies across every
// table that can hold a live balance of them. STEEM and SBD are never
// created or destroyed by a transfer between these tables, only by the
// mint/burn paths that also update current_supply/current_sbd_supply
// directly (internal/reward, internal/housekeeping, internal/exchange).
func checkSupplyConservation(s *state.State) error {
	steem := uint256.NewInt(0)
	sbd := uint256.NewInt(0)
	addSteemOrSBD := func(a amount.Amount) {
		if a.Value == nil {
			return
		}
		switch a.Symbol {
		case amount.STEEM:
			steem = new(uint256.Int).Add(steem, a.Value)
		case amount.SBD:
			sbd = new(uint256.Int).Add(sbd, a.Value)
		}
	}

	s.Accounts.Each(func(id types.ID, a *types.Account) bool {
		addSteemOrSBD(a.Balance)
		addSteemOrSBD(a.SavingsBalance)
		addSteemOrSBD(a.SBDBalance)
		addSteemOrSBD(a.SavingsSBDBalance)
		return true
	})
	s.Escrows.Each(func(id types.ID, e *types.Escrow) bool {
		addSteemOrSBD(e.SteemBalance)
		addSteemOrSBD(e.SBDBalance)
		return true
	})
	s.ConvertRequests.Each(func(id types.ID, c *types.ConvertRequest) bool {
		addSteemOrSBD(c.Amount)
		return true
	})
	s.SavingsWithdraws.Each(func(id types.ID, w *types.SavingsWithdraw) bool {
		addSteemOrSBD(w.Amount)
		return true
	})
	s.LimitOrders.Each(func(id types.ID, o *types.LimitOrder) bool {
		addSteemOrSBD(o.ForSale)
		return true
	})
	s.RewardFunds.Each(func(id types.ID, f *types.RewardFund) bool {
		addSteemOrSBD(f.RewardBalance)
		return true
	})

	gd := s.GD()
	steem = new(uint256.Int).Add(steem, gd.TotalVestingFundSteem.Value)

	if steem.Cmp(gd.CurrentSupply.Value) != 0 {
		return errs.New(errs.KindFatal, "invariant violated: sum of live STEEM balances does not equal current_supply")
	}
	if sbd.Cmp(gd.CurrentSBDSupply.Value) != 0 {
		return errs.New(errs.KindFatal, "invariant violated: sum of live SBD balances does not equal current_sbd_supply")
	}
	return nil
}

// checkVestingSum enforces invariant 2: the sum of every account's vesting
// shares (including proxied buckets, which are carved out of some other
// account's own balance rather than newly minted) equals the dynamic global
// total.
func checkVestingSum(s *state.State) error {
	total := uint256.NewInt(0)
	s.Accounts.Each(func(id types.ID, a *types.Account) bool {
		total = new(uint256.Int).Add(total, a.VestingShares.Value)
		return true
	})
	gd := s.GD()
	if total.Cmp(gd.TotalVestingShares.Value) != 0 {
		return errs.New(errs.KindFatal, "invariant violated: sum of account vesting shares does not equal total_vesting_shares")
	}
	return nil
}

// checkWitnessVoteBounds enforces invariant 3: no witness's recorded vote
// total may exceed total vesting shares.
func checkWitnessVoteBounds(s *state.State) error {
	gd := s.GD()
	var violation error
	s.Witnesses.Each(func(id types.ID, w *types.Witness) bool {
		if w.Votes.Cmp(gd.TotalVestingShares) > 0 {
			violation = errs.New(errs.KindFatal, "invariant violated: witness "+string(w.Owner)+" vote total exceeds total_vesting_shares")
			return false
		}
		return true
	})
	return violation
}

// checkChildrenRshares2Rollup enforces invariant 4: every comment's
// children_rshares² equals the sum of its direct children's own
// (abs_rshares² + children_rshares²).
func checkChildrenRshares2Rollup(s *state.State) error {
	children := map[types.AuthorAndPermlink][]*types.Comment{}
	s.Comments.Each(func(id types.ID, c *types.Comment) bool {
		if !c.IsRoot() {
			children[c.Parent] = append(children[c.Parent], c)
		}
		return true
	})

	var violation error
	s.Comments.Each(func(id types.ID, c *types.Comment) bool {
		key := types.AuthorAndPermlink{Author: c.Author, Permlink: c.Permlink}
		expected := uint256.NewInt(0)
		for _, child := range children[key] {
			own := uint256.NewInt(0)
			if child.AbsRshares > 0 {
				own = new(uint256.Int).Mul(uint256.NewInt(uint64(child.AbsRshares)), uint256.NewInt(uint64(child.AbsRshares)))
			}
			expected = new(uint256.Int).Add(expected, own)
			if child.ChildrenRshares2 != nil {
				expected = new(uint256.Int).Add(expected, child.ChildrenRshares2)
			}
		}
		if c.ChildrenRshares2 != nil && expected.Cmp(c.ChildrenRshares2) != 0 {
			violation = errs.New(errs.KindFatal, "invariant violated: children_rshares2 rollup mismatch for "+string(c.Author)+"/"+string(c.Permlink))
			return false
		}
		return true
	})
	return violation
}

// checkVirtualSupplyIdentity enforces invariant 5: virtual_supply =
// current_supply + current_sbd_supply × median_feed, only when a feed
// price is available (an all-zero feed at genesis is not a violation).
func checkVirtualSupplyIdentity(s *state.State) error {
	gd := s.GD()
	feed := medianWitnessFeed(s)
	if feed.Base.IsZero() || feed.Quote.IsZero() {
		return nil
	}
	sbdInSteem := amount.MulDiv(gd.CurrentSBDSupply, feed.Base.Value.Uint64(), feed.Quote.Value.Uint64())
	expected := gd.CurrentSupply.MustAdd(sbdInSteem)
	if expected.Cmp(gd.VirtualSupply) != 0 {
		return errs.New(errs.KindFatal, "invariant violated: virtual_supply does not equal current_supply + current_sbd_supply at the median feed")
	}
	return nil
}

func medianWitnessFeed(s *state.State) types.Price {
	var feeds []types.Price
	s.Witnesses.Each(func(id types.ID, w *types.Witness) bool {
		if !w.SBDFeed.Base.IsZero() && !w.SBDFeed.Quote.IsZero() {
			feeds = append(feeds, w.SBDFeed)
		}
		return true
	})
	if len(feeds) == 0 {
		return types.Price{}
	}
	sort.Slice(feeds, func(i, j int) bool {
		left := amount.MulDiv(feeds[i].Base, feeds[j].Quote.Value.Uint64(), 1)
		right := amount.MulDiv(feeds[j].Base, feeds[i].Quote.Value.Uint64(), 1)
		return left.Cmp(right) < 0
	})
	return feeds[len(feeds)/2]
}

// checkCashoutTimes enforces invariant 6: every comment's cashout_time is
// either CashoutNever or within cashoutWindow of its creation.
func checkCashoutTimes(s *state.State) error {
	var violation error
	s.Comments.Each(func(id types.ID, c *types.Comment) bool {
		if c.CashoutAt.Equal(types.CashoutNever) {
			return true
		}
		if c.CashoutAt.IsZero() {
			return true
		}
		delta := c.CashoutAt.Sub(c.Created)
		if delta < 0 || delta > cashoutWindow {
			violation = errs.New(errs.KindFatal, "invariant violated: cashout_time for "+string(c.Author)+"/"+string(c.Permlink)+" is outside the configured window")
			return false
		}
		return true
	})
	return violation
}
