package evaluator

import (
	"github.com/rusladder/LadderChain/internal/state"
	"github.com/rusladder/LadderChain/pkg/amount"
	"github.com/rusladder/LadderChain/pkg/errs"
	"github.com/rusladder/LadderChain/pkg/ops"
	"github.com/rusladder/LadderChain/pkg/types"
)

func registerAssetOps(r *Registry) {
	r.Register("asset_create", evalAssetCreate)
	r.Register("asset_issue", evalAssetIssue)
	r.Register("asset_reserve", evalAssetReserve)
	r.Register("asset_update", evalAssetUpdate)
	r.Register("asset_update_bitasset", evalAssetUpdateBitasset)
	r.Register("asset_update_feed_producers", evalAssetUpdateFeedProducers)
	r.Register("asset_fund_fee_pool", evalAssetFundFeePool)
	r.Register("asset_global_settle", evalAssetGlobalSettle)
	r.Register("asset_settle", evalAssetSettle)
	r.Register("asset_force_settle", evalAssetForceSettle)
	r.Register("asset_publish_feeds", evalAssetPublishFeeds)
	r.Register("asset_claim_fees", evalAssetClaimFees)
	r.Register("call_order_update", evalCallOrderUpdate)
}

const defaultMaxMarginCallRatio = 17500 // 1.75x, basis points

func evalAssetCreate(ctx *Context, op ops.Operation) error {
	o := op.(ops.AssetCreate)
	if _, exists := ctx.State.GetAsset(o.Symbol); exists {
		return errs.New(errs.KindPrecondition, "asset symbol already in use: "+o.Symbol)
	}
	if _, ok := ctx.State.GetAccount(o.Issuer); !ok {
		return errs.New(errs.KindPrecondition, "unknown issuer: "+string(o.Issuer))
	}

	id, _ := ctx.State.Assets.Create(func(a *types.Asset) {
		a.Symbol = o.Symbol
		a.Issuer = o.Issuer
		a.Precision = o.Precision
		a.Options = o.Options
		a.IsMarketIssued = o.IsMarketIssued
		a.FeePool = amount.Zero(amount.STEEM)
	})
	ctx.State.AssetsBySymbol.Set(o.Symbol, id)

	dynID, _ := ctx.State.AssetDynamic.Create(func(d *types.AssetDynamicData) {
		d.AssetSymbol = o.Symbol
		d.CurrentSupply = amount.Zero(amount.MarketIssued)
		d.AccumulatedFees = amount.Zero(amount.MarketIssued)
	})
	ctx.State.AssetDynamicBySymbol.Set(o.Symbol, dynID)

	if o.IsMarketIssued {
		mcr := o.BitassetMCR
		if mcr == 0 {
			mcr = defaultMaxMarginCallRatio
		}
		bitID, _ := ctx.State.BitAssets.Create(func(b *types.AssetBitAssetData) {
			b.AssetSymbol = o.Symbol
			b.FeedProducers = make(map[types.AccountName]struct{})
			b.MaxMarginCallRatio = mcr
		})
		ctx.State.BitAssetsBySymbol.Set(o.Symbol, bitID)
	}
	return nil
}

func evalAssetIssue(ctx *Context, op ops.Operation) error {
	o := op.(ops.AssetIssue)
	asset, ok := ctx.State.GetAsset(o.Symbol)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown asset: "+o.Symbol)
	}
	if asset.Issuer != o.Issuer {
		return errs.New(errs.KindAuthorityMissing, "only the asset issuer may issue new units")
	}
	to, ok := ctx.State.GetAccount(o.To)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown recipient: "+string(o.To))
	}
	dyn, ok := ctx.State.GetAssetDynamic(o.Symbol)
	if !ok {
		return errs.New(errs.KindFatal, "asset missing its dynamic data row")
	}

	if err := ctx.State.AssetDynamic.Modify(dyn.ID, func(d *types.AssetDynamicData) {
		d.CurrentSupply = d.CurrentSupply.MustAdd(o.Amount)
	}); err != nil {
		return err
	}
	return creditCustomAsset(ctx, to, o.Symbol, o.Amount)
}

func evalAssetReserve(ctx *Context, op ops.Operation) error {
	o := op.(ops.AssetReserve)
	payer, ok := ctx.State.GetAccount(o.Payer)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown account: "+string(o.Payer))
	}
	dyn, ok := ctx.State.GetAssetDynamic(o.Symbol)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown asset: "+o.Symbol)
	}
	if err := debitCustomAsset(ctx, payer, o.Symbol, o.Amount); err != nil {
		return err
	}
	return ctx.State.AssetDynamic.Modify(dyn.ID, func(d *types.AssetDynamicData) {
		d.CurrentSupply, _ = d.CurrentSupply.Sub(o.Amount)
	})
}

func evalAssetUpdate(ctx *Context, op ops.Operation) error {
	o := op.(ops.AssetUpdate)
	asset, ok := ctx.State.GetAsset(o.Symbol)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown asset: "+o.Symbol)
	}
	if asset.Issuer != o.Issuer {
		return errs.New(errs.KindAuthorityMissing, "only the asset issuer may update asset options")
	}
	return ctx.State.Assets.Modify(asset.ID, func(a *types.Asset) {
		a.Options = o.NewOptions
	})
}

func evalAssetUpdateBitasset(ctx *Context, op ops.Operation) error {
	o := op.(ops.AssetUpdateBitasset)
	asset, ok := ctx.State.GetAsset(o.Symbol)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown asset: "+o.Symbol)
	}
	if asset.Issuer != o.Issuer {
		return errs.New(errs.KindAuthorityMissing, "only the asset issuer may update bitasset parameters")
	}
	bit, ok := ctx.State.GetBitAsset(o.Symbol)
	if !ok {
		return errs.New(errs.KindPrecondition, "asset is not market-issued")
	}
	return ctx.State.BitAssets.Modify(bit.ID, func(b *types.AssetBitAssetData) {
		if o.NewMCR != 0 {
			b.MaxMarginCallRatio = o.NewMCR
		}
		if o.FeedLifetimeSecs != 0 {
			b.FeedLifetimeSecs = o.FeedLifetimeSecs
		}
	})
}

func evalAssetUpdateFeedProducers(ctx *Context, op ops.Operation) error {
	o := op.(ops.AssetUpdateFeedProducers)
	asset, ok := ctx.State.GetAsset(o.Symbol)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown asset: "+o.Symbol)
	}
	if asset.Issuer != o.Issuer {
		return errs.New(errs.KindAuthorityMissing, "only the asset issuer may set feed producers")
	}
	bit, ok := ctx.State.GetBitAsset(o.Symbol)
	if !ok {
		return errs.New(errs.KindPrecondition, "asset is not market-issued")
	}
	return ctx.State.BitAssets.Modify(bit.ID, func(b *types.AssetBitAssetData) {
		producers := make(map[types.AccountName]struct{}, len(o.NewFeedProducers))
		for _, p := range o.NewFeedProducers {
			producers[p] = struct{}{}
		}
		b.FeedProducers = producers
	})
}

func evalAssetFundFeePool(ctx *Context, op ops.Operation) error {
	o := op.(ops.AssetFundFeePool)
	from, ok := ctx.State.GetAccount(o.From)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown account: "+string(o.From))
	}
	asset, ok := ctx.State.GetAsset(o.Symbol)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown asset: "+o.Symbol)
	}
	newBal, err := from.Balance.Sub(o.Amount)
	if err != nil {
		return errs.Wrap(errs.KindPrecondition, err, "insufficient STEEM balance to fund fee pool")
	}
	if err := ctx.State.Accounts.Modify(from.ID, func(a *types.Account) { a.Balance = newBal }); err != nil {
		return err
	}
	return ctx.State.Assets.Modify(asset.ID, func(a *types.Asset) {
		a.FeePool = a.FeePool.MustAdd(o.Amount)
	})
}

// evalAssetClaimFees lets the issuer withdraw accumulated market fees
// (SPEC_FULL.md "Fee pool" supplement: asset_fund_fee_pool / asset_claim_fees
// give the issuer a STEEM-denominated pool alongside the per-trade fee
// accrual in AssetDynamicData.AccumulatedFees).
func evalAssetClaimFees(ctx *Context, op ops.Operation) error {
	o := op.(ops.AssetClaimFees)
	asset, ok := ctx.State.GetAsset(o.Symbol)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown asset: "+o.Symbol)
	}
	if asset.Issuer != o.Issuer {
		return errs.New(errs.KindAuthorityMissing, "only the asset issuer may claim accumulated fees")
	}
	dyn, ok := ctx.State.GetAssetDynamic(o.Symbol)
	if !ok {
		return errs.New(errs.KindFatal, "asset missing its dynamic data row")
	}
	if dyn.AccumulatedFees.Cmp(o.Amount) < 0 {
		return errs.New(errs.KindPrecondition, "claim exceeds accumulated fees")
	}
	issuer, _ := ctx.State.GetAccount(o.Issuer)
	if err := ctx.State.AssetDynamic.Modify(dyn.ID, func(d *types.AssetDynamicData) {
		d.AccumulatedFees, _ = d.AccumulatedFees.Sub(o.Amount)
	}); err != nil {
		return err
	}
	return creditCustomAsset(ctx, issuer, o.Symbol, o.Amount)
}

func evalAssetGlobalSettle(ctx *Context, op ops.Operation) error {
	o := op.(ops.AssetGlobalSettle)
	asset, ok := ctx.State.GetAsset(o.Symbol)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown asset: "+o.Symbol)
	}
	if asset.Issuer != o.Issuer {
		return errs.New(errs.KindAuthorityMissing, "only the asset issuer may force a global settlement")
	}
	bit, ok := ctx.State.GetBitAsset(o.Symbol)
	if !ok {
		return errs.New(errs.KindPrecondition, "asset is not market-issued")
	}
	if bit.IsGloballySettled {
		return errs.New(errs.KindPrecondition, "asset is already globally settled")
	}

	var gathered amount.Amount
	ctx.State.CallOrders.Each(func(id types.ID, c *types.CallOrder) bool {
		if c.DebtSymbol != o.Symbol {
			return true
		}
		if gathered.Value == nil {
			gathered = amount.Zero(c.Collateral.Symbol)
		}
		gathered = gathered.MustAdd(c.Collateral)
		return true
	})

	return ctx.State.BitAssets.Modify(bit.ID, func(b *types.AssetBitAssetData) {
		b.IsGloballySettled = true
		b.SettlementPrice = o.SettlementPrice
		b.SettlementFund = gathered
	})
}

func evalAssetSettle(ctx *Context, op ops.Operation) error {
	o := op.(ops.AssetSettle)
	return settleAgainstFund(ctx, o.Account, o.Symbol, o.Amount)
}

func settleAgainstFund(ctx *Context, accountName types.AccountName, symbol string, amt amount.Amount) error {
	acct, ok := ctx.State.GetAccount(accountName)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown account: "+string(accountName))
	}
	bit, ok := ctx.State.GetBitAsset(symbol)
	if !ok {
		return errs.New(errs.KindPrecondition, "asset is not market-issued")
	}
	if !bit.IsGloballySettled {
		return errs.New(errs.KindPrecondition, "asset has not been globally settled")
	}
	if err := debitCustomAsset(ctx, acct, symbol, amt); err != nil {
		return err
	}
	payout := amount.MulDiv(amt, bit.SettlementPrice.Base.Value.Uint64(), bit.SettlementPrice.Quote.Value.Uint64())
	if payout.Cmp(bit.SettlementFund) > 0 {
		payout = bit.SettlementFund
	}
	if err := ctx.State.BitAssets.Modify(bit.ID, func(b *types.AssetBitAssetData) {
		b.SettlementFund, _ = b.SettlementFund.Sub(payout)
	}); err != nil {
		return err
	}
	return ctx.State.Accounts.Modify(acct.ID, func(a *types.Account) {
		a.Balance = a.Balance.MustAdd(payout)
	})
}

func evalAssetForceSettle(ctx *Context, op ops.Operation) error {
	o := op.(ops.AssetForceSettle)
	acct, ok := ctx.State.GetAccount(o.Account)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown account: "+string(o.Account))
	}
	if _, ok := ctx.State.GetAsset(o.Symbol); !ok {
		return errs.New(errs.KindPrecondition, "unknown asset: "+o.Symbol)
	}
	if err := debitCustomAsset(ctx, acct, o.Symbol, o.Amount); err != nil {
		return err
	}
	ctx.State.ForceSettlements.Create(func(f *types.ForceSettlement) {
		f.Owner = o.Account
		f.Balance = o.Amount
		f.SettlementDate = ctx.Now.Add(conversionDelaySeconds * 1e9)
	})
	return nil
}

func evalAssetPublishFeeds(ctx *Context, op ops.Operation) error {
	o := op.(ops.AssetPublishFeeds)
	bit, ok := ctx.State.GetBitAsset(o.Symbol)
	if !ok {
		return errs.New(errs.KindPrecondition, "asset is not market-issued")
	}
	if _, ok := bit.FeedProducers[o.Publisher]; !ok {
		return errs.New(errs.KindAuthorityMissing, "account is not an approved feed producer for this asset")
	}
	return ctx.State.BitAssets.Modify(bit.ID, func(b *types.AssetBitAssetData) {
		b.CurrentFeed = o.Feed
		b.FeedHistory = append(b.FeedHistory, o.Feed)
		if len(b.FeedHistory) > 7 {
			b.FeedHistory = b.FeedHistory[len(b.FeedHistory)-7:]
		}
		b.LastFeedUpdate = ctx.Now
	})
}

func evalCallOrderUpdate(ctx *Context, op ops.Operation) error {
	o := op.(ops.CallOrderUpdate)
	borrower, ok := ctx.State.GetAccount(o.Borrower)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown account: "+string(o.Borrower))
	}
	bit, ok := ctx.State.GetBitAsset(o.DebtSymbol)
	if !ok {
		return errs.New(errs.KindPrecondition, "asset is not market-issued")
	}
	if bit.IsGloballySettled {
		return errs.New(errs.KindPrecondition, "asset has been globally settled; no new call orders")
	}

	key := state.BorrowerKey{Borrower: o.Borrower, Symbol: o.DebtSymbol}
	existingID, exists := ctx.State.CallOrdersByBorrower.Get(key)

	if !o.DeltaDebt.IsZero() {
		dyn, ok := ctx.State.GetAssetDynamic(o.DebtSymbol)
		if !ok {
			return errs.New(errs.KindFatal, "asset missing its dynamic data row")
		}
		if err := ctx.State.AssetDynamic.Modify(dyn.ID, func(d *types.AssetDynamicData) {
			d.CurrentSupply = d.CurrentSupply.MustAdd(o.DeltaDebt)
		}); err != nil {
			return err
		}
		if err := creditCustomAsset(ctx, borrower, o.DebtSymbol, o.DeltaDebt); err != nil {
			return err
		}
	}
	if !o.DeltaCollateral.IsZero() {
		newBal, err := borrower.Balance.Sub(o.DeltaCollateral)
		if err != nil {
			return errs.Wrap(errs.KindPrecondition, err, "insufficient collateral balance")
		}
		if err := ctx.State.Accounts.Modify(borrower.ID, func(a *types.Account) { a.Balance = newBal }); err != nil {
			return err
		}
	}

	if !exists {
		id, order := ctx.State.CallOrders.Create(func(c *types.CallOrder) {
			c.Borrower = o.Borrower
			c.DebtSymbol = o.DebtSymbol
			c.Debt = o.DeltaDebt
			c.Collateral = o.DeltaCollateral
		})
		ctx.State.CallOrdersByBorrower.Set(key, id)
		return checkCallOrderRatio(ctx, order, bit)
	}
	if _, ok2 := ctx.State.CallOrders.Get(existingID); !ok2 {
		return errs.New(errs.KindFatal, "call order index points at a missing row")
	}
	if modErr := ctx.State.CallOrders.Modify(existingID, func(c *types.CallOrder) {
		c.Debt = c.Debt.MustAdd(o.DeltaDebt)
		c.Collateral = c.Collateral.MustAdd(o.DeltaCollateral)
	}); modErr != nil {
		return modErr
	}
	order, _ := ctx.State.CallOrders.Get(existingID)
	return checkCallOrderRatio(ctx, order, bit)
}

// checkCallOrderRatio enforces the maintenance collateral ratio (spec.md
// §4.8 "derived call price = f(debt, collateral, MCR)"): a call order may
// never be left under-collateralized relative to its asset's MCR and
// current feed.
func checkCallOrderRatio(ctx *Context, order *types.CallOrder, bit *types.AssetBitAssetData) error {
	feed, ok := bit.MedianFeed()
	if !ok || order.Debt.IsZero() {
		return nil
	}
	requiredCollateral := amount.MulDiv(order.Debt, feed.Base.Value.Uint64()*uint64(bit.MaxMarginCallRatio), feed.Quote.Value.Uint64()*10000)
	if order.Collateral.Cmp(requiredCollateral) < 0 {
		return errs.New(errs.KindPrecondition, "call order would fall below the maintenance collateral ratio")
	}
	return nil
}

// creditCustomAsset and debitCustomAsset move a market-issued asset balance
// in or out of an account. This implementation tracks native STEEM/SBD/VESTS
// directly on Account but keeps market-issued asset balances in a side map
// (Account.CustomBalances) to avoid a per-symbol field explosion on the hot
// account record.
func creditCustomAsset(ctx *Context, acct *types.Account, symbol string, amt amount.Amount) error {
	return ctx.State.Accounts.Modify(acct.ID, func(a *types.Account) {
		if a.CustomBalances == nil {
			a.CustomBalances = make(map[string]amount.Amount)
		}
		bal, ok := a.CustomBalances[symbol]
		if !ok {
			bal = amount.Zero(amount.MarketIssued)
		}
		a.CustomBalances[symbol] = bal.MustAdd(amt)
	})
}

func debitCustomAsset(ctx *Context, acct *types.Account, symbol string, amt amount.Amount) error {
	bal := acct.CustomBalances[symbol]
	newBal, err := bal.Sub(amt)
	if err != nil {
		return errs.Wrap(errs.KindPrecondition, err, "insufficient balance of "+symbol)
	}
	return ctx.State.Accounts.Modify(acct.ID, func(a *types.Account) {
		a.CustomBalances[symbol] = newBal
	})
}
