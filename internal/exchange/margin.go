// Package exchange implements the per-block margin-call scan and black-swan
// detection of spec.md §4.8. The order-book entry points themselves
// (limit_order_create/cancel, matching) live in internal/evaluator/market.go
// as operation evaluators; this package covers the housekeeping-driven scan
// that runs whether or not anyone submitted an operation this block.
//
// Grounded on beacon-chain/core/epoch's per-epoch slashing scan
// (github.com/prysmaticlabs/prysm): both walk every active position once per
// period, looking for the ones now below a safety threshold.
package exchange

import (
	"sort"

	"github.com/holiman/uint256"
	"github.com/rusladder/LadderChain/internal/state"
	"github.com/rusladder/LadderChain/pkg/amount"
	"github.com/rusladder/LadderChain/pkg/types"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "exchange")

// ProcessMarginCalls scans every bitasset's call orders, triggering a
// black-swan (global settlement) if the least-collateralized position has
// fallen below 100% of its debt's value, and otherwise matching margin calls
// against the order book down to each bitasset's maintenance collateral
// ratio (spec.md §4.8 paragraphs 2-3). pushVirtual is the same synthetic-event
// hook evaluators get via evaluator.Context.PushVirtual; may be nil.
func ProcessMarginCalls(s *state.State, pushVirtual func(string, interface{})) error {
	symbols := bitassetSymbols(s)
	for _, sym := range symbols {
		if err := processOneBitasset(s, sym, pushVirtual); err != nil {
			return err
		}
	}
	return nil
}

func bitassetSymbols(s *state.State) []string {
	var out []string
	s.BitAssets.Each(func(id types.ID, b *types.AssetBitAssetData) bool {
		out = append(out, b.AssetSymbol)
		return true
	})
	sort.Strings(out)
	return out
}

func processOneBitasset(s *state.State, symbol string, pushVirtual func(string, interface{})) error {
	bitasset, ok := s.GetBitAsset(symbol)
	if !ok || bitasset.IsGloballySettled {
		return nil
	}
	feed, ok := bitasset.MedianFeed()
	if !ok {
		return nil
	}

	calls := callOrdersFor(s, symbol)
	if len(calls) == 0 {
		return nil
	}

	sort.Slice(calls, func(i, j int) bool {
		return calls[i].CollateralRatio().Cmp(calls[j].CollateralRatio()) < 0
	})

	if isBlackSwan(calls[0], feed) {
		return globalSettle(s, bitasset, calls)
	}

	mcr := uint64(bitasset.MaxMarginCallRatio)
	if mcr == 0 {
		mcr = 17500
	}
	for _, c := range calls {
		if !belowMaintenance(c, feed, mcr) {
			break // sorted ascending by ratio; nothing after this is under water
		}
		if err := matchMarginCall(s, c, feed, pushVirtual); err != nil {
			return err
		}
	}
	return nil
}

func callOrdersFor(s *state.State, symbol string) []*types.CallOrder {
	var out []*types.CallOrder
	s.CallOrders.Each(func(id types.ID, c *types.CallOrder) bool {
		if c.DebtSymbol == symbol {
			out = append(out, c)
		}
		return true
	})
	return out
}

// isBlackSwan reports whether c, the least-collateralized call order in the
// market as passed by its caller, can no longer cover its debt at the feed
// price (spec.md §4.8
// "black swan": collateral_ratio < 1.0 for the least-collateralized call).
func isBlackSwan(c *types.CallOrder, feed types.Price) bool {
	debtValue := amount.MulDiv(c.Debt, feed.Base.Value.Uint64(), feed.Quote.Value.Uint64())
	return c.Collateral.Cmp(debtValue) < 0
}

// belowMaintenance reports whether c's collateral ratio has fallen under the
// bitasset's maintenance collateral ratio (spec.md §4.8, MCR in basis
// points, e.g. 17500 = 1.75x).
func belowMaintenance(c *types.CallOrder, feed types.Price, mcrBasisPoints uint64) bool {
	debtValue := amount.MulDiv(c.Debt, feed.Base.Value.Uint64(), feed.Quote.Value.Uint64())
	if debtValue.IsZero() {
		return false
	}
	required := amount.MulDiv(debtValue, mcrBasisPoints, 10000)
	return c.Collateral.Cmp(required) < 0
}

// matchMarginCall fills a call order against the best resting limit orders
// that are willing to sell the debt asset at or below the feed price,
// reducing the position's debt and collateral pro-rata (spec.md §4.8 "margin
// calls trade against resting limit orders at the feed price or better").
func matchMarginCall(s *state.State, c *types.CallOrder, feed types.Price, pushVirtual func(string, interface{})) error {
	var sellers []*types.LimitOrder
	s.LimitOrders.Each(func(id types.ID, o *types.LimitOrder) bool {
		if o.ForSale.Symbol == c.Debt.Symbol && priceAtOrBelowFeed(o.SellPrice, feed) {
			sellers = append(sellers, o)
		}
		return true
	})
	if len(sellers) == 0 {
		return nil
	}
	sort.Slice(sellers, func(i, j int) bool {
		return sellers[i].SellPrice.Quote.Value.Cmp(sellers[j].SellPrice.Quote.Value) > 0
	})

	remainingDebt := c.Debt
	remainingCollateral := c.Collateral
	debtBurned := amount.Zero(c.Debt.Symbol)
	for _, o := range sellers {
		if remainingDebt.IsZero() {
			break
		}
		fillDebt := o.ForSale
		if fillDebt.Cmp(remainingDebt) > 0 {
			fillDebt = remainingDebt
		}
		fillCollateral := amount.MulDiv(fillDebt, o.SellPrice.Base.Value.Uint64(), o.SellPrice.Quote.Value.Uint64())
		if fillCollateral.Cmp(remainingCollateral) > 0 {
			fillCollateral = remainingCollateral
		}

		if err := creditSeller(s, o, fillCollateral); err != nil {
			return err
		}
		remainingDebt, _ = remainingDebt.Sub(fillDebt)
		remainingCollateral, _ = remainingCollateral.Sub(fillCollateral)
		debtBurned = debtBurned.MustAdd(fillDebt)

		if err := consumeOrRemove(s, o, fillDebt); err != nil {
			return err
		}

		if pushVirtual != nil {
			pushVirtual("fill_order", struct {
				Seller   types.AccountName
				Paid     amount.Amount
				Received amount.Amount
			}{o.Seller, fillDebt, fillCollateral})
		}
	}

	if !debtBurned.IsZero() {
		dyn, ok := s.GetAssetDynamic(c.Debt.Symbol)
		if ok {
			if err := s.AssetDynamic.Modify(dyn.ID, func(d *types.AssetDynamicData) {
				d.CurrentSupply, _ = d.CurrentSupply.Sub(debtBurned)
			}); err != nil {
				return err
			}
		}
	}

	return s.CallOrders.Modify(c.ID, func(cc *types.CallOrder) {
		cc.Debt = remainingDebt
		cc.Collateral = remainingCollateral
	})
}

func priceAtOrBelowFeed(p, feed types.Price) bool {
	// p and feed are both (debt-asset, backing-asset) prices; accept a
	// seller willing to give up at least as much backing asset per unit of
	// debt as the feed implies. Cross-multiply to compare the two ratios
	// without a floating-point division.
	lhs := new(uint256.Int).Mul(p.Base.Value, feed.Quote.Value)
	rhs := new(uint256.Int).Mul(feed.Base.Value, p.Quote.Value)
	return lhs.Cmp(rhs) >= 0
}

func creditSeller(s *state.State, o *types.LimitOrder, collateralFilled amount.Amount) error {
	id, ok := s.AccountsByName.Get(o.Seller)
	if !ok {
		return nil
	}
	return s.Accounts.Modify(id, func(a *types.Account) {
		switch collateralFilled.Symbol {
		case amount.STEEM:
			a.Balance = a.Balance.MustAdd(collateralFilled)
		case amount.SBD:
			a.SBDBalance = a.SBDBalance.MustAdd(collateralFilled)
		default:
			if a.CustomBalances == nil {
				a.CustomBalances = map[string]amount.Amount{}
			}
			cur := a.CustomBalances[collateralFilled.Symbol.String()]
			if cur.Value == nil {
				cur = amount.Zero(collateralFilled.Symbol)
			}
			a.CustomBalances[collateralFilled.Symbol.String()] = cur.MustAdd(collateralFilled)
		}
	})
}

func consumeOrRemove(s *state.State, o *types.LimitOrder, debtFilled amount.Amount) error {
	remaining, err := o.ForSale.Sub(debtFilled)
	if err != nil || remaining.IsZero() {
		return s.LimitOrders.Remove(o.ID)
	}
	return s.LimitOrders.Modify(o.ID, func(oo *types.LimitOrder) {
		oo.ForSale = remaining
	})
}

// globalSettle freezes a bitasset market, gathering every call order's
// collateral into the settlement fund that individual settle_order claims
// pay out of, and pricing those claims at the swan price (collateral
// gathered per unit of debt outstanding) rather than the feed that triggered
// it, and resets the asset's CurrentSupply to the frozen debt (spec.md §4.8
// "black swan ... forces a global settlement"). The manual
// asset_global_settle evaluator differs: it takes the settlement price from
// the operation and leaves CurrentSupply unchanged.
func globalSettle(s *state.State, bitasset *types.AssetBitAssetData, calls []*types.CallOrder) error {
	log.WithField("asset", bitasset.AssetSymbol).Warn("black swan event: forcing global settlement")

	var gathered, debtSum amount.Amount
	for _, c := range calls {
		if gathered.Value == nil {
			gathered = amount.Zero(c.Collateral.Symbol)
			debtSum = amount.Zero(c.Debt.Symbol)
		}
		gathered = gathered.MustAdd(c.Collateral)
		debtSum = debtSum.MustAdd(c.Debt)
	}
	settlementPrice := types.Price{Base: gathered, Quote: debtSum}

	if err := s.BitAssets.Modify(bitasset.ID, func(b *types.AssetBitAssetData) {
		b.IsGloballySettled = true
		b.SettlementPrice = settlementPrice
		b.SettlementFund = gathered
	}); err != nil {
		return err
	}

	dyn, ok := s.GetAssetDynamic(bitasset.AssetSymbol)
	if !ok {
		return nil
	}
	return s.AssetDynamic.Modify(dyn.ID, func(d *types.AssetDynamicData) {
		d.CurrentSupply = debtSum
	})
}
