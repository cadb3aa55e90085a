// Package bandwidth implements the rolling-window resource accounting of
// spec.md §4.11: an exponentially-decayed per-(account, class) average,
// charged on transaction inclusion and enforced against each account's
// share of total vesting shares.
//
// Grounded on beacon-chain/core/helpers' effective-balance / committee-
// weight bookkeeping (github.com/prysmaticlabs/prysm), adapted from
// validator weight accounting to per-account transaction-size accounting.
package bandwidth

import (
	"time"

	"github.com/rusladder/LadderChain/internal/state"
	"github.com/rusladder/LadderChain/pkg/errs"
	"github.com/rusladder/LadderChain/pkg/types"
)

// windowSeconds is the decay window used for every bandwidth class (spec.md
// §4.11 "decay old average by (WINDOW − delta_t) / WINDOW").
const windowSeconds = 7 * 24 * 3600

// Charge records size bytes of bandwidth usage against account in the given
// class at time now, decaying the prior average first (spec.md §4.11).
func Charge(s *state.State, account types.AccountName, class types.BandwidthClass, size uint64, now time.Time) error {
	existingID, rec, found := find(s, account, class)
	if !found {
		id, _ := s.AccountBandwidth.Create(func(b *types.AccountBandwidth) {
			b.Account = account
			b.Class = class
			b.Average = size
			b.LastUpdate = now
		})
		s.AccountBandwidthByKey.Set(state.BandwidthKey{Account: account, Class: class}, id)
		return nil
	}
	decayed := decay(rec.Average, rec.LastUpdate, now)
	return s.AccountBandwidth.Modify(existingID, func(b *types.AccountBandwidth) {
		b.Average = decayed + size
		b.LastUpdate = now
	})
}

// decay applies "average * (WINDOW - delta_t) / WINDOW", floored at zero,
// matching spec.md §4.11 exactly (no exponential approximation: a
// transaction that arrives after the full window has elapsed zeroes the
// prior average outright).
func decay(average uint64, lastUpdate, now time.Time) uint64 {
	deltaT := int64(now.Sub(lastUpdate) / time.Second)
	if deltaT <= 0 {
		return average
	}
	if deltaT >= windowSeconds {
		return 0
	}
	return average * uint64(windowSeconds-deltaT) / uint64(windowSeconds)
}

func find(s *state.State, account types.AccountName, class types.BandwidthClass) (types.ID, *types.AccountBandwidth, bool) {
	id, ok := s.AccountBandwidthByKey.Get(state.BandwidthKey{Account: account, Class: class})
	if !ok {
		return types.ID(0), nil, false
	}
	rec, ok := s.AccountBandwidth.Get(id)
	if !ok {
		return types.ID(0), nil, false
	}
	return id, rec, true
}

// CheckQuota enforces spec.md §4.11's virtual-bandwidth inequality:
// account_vshares × max_virtual_bandwidth > average_bandwidth × total_vshares.
func CheckQuota(s *state.State, account types.AccountName, class types.BandwidthClass) error {
	acct, ok := s.GetAccount(account)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown account: "+string(account))
	}
	_, rec, found := find(s, account, class)
	if !found {
		return nil
	}
	gd := s.GD()
	acctVShares := acct.EffectiveVestingShares().Value.Uint64()
	totalVShares := gd.TotalVestingShares.Value.Uint64()
	if totalVShares == 0 {
		return nil
	}
	lhs := acctVShares * gd.MaxVirtualBandwidth
	rhs := rec.Average * totalVShares
	if lhs <= rhs {
		return errs.New(errs.KindPrecondition, "bandwidth_exceeded: account "+string(account)+" has exhausted its allotted bandwidth")
	}
	return nil
}
