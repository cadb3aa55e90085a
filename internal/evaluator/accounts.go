package evaluator

import (
	"github.com/rusladder/LadderChain/pkg/amount"
	"github.com/rusladder/LadderChain/pkg/errs"
	"github.com/rusladder/LadderChain/pkg/ops"
	"github.com/rusladder/LadderChain/pkg/types"
)

func registerAccountOps(r *Registry) {
	r.Register("account_create", evalAccountCreate)
	r.Register("account_create_with_delegation", evalAccountCreateWithDelegation)
	r.Register("account_update", evalAccountUpdate)
	r.Register("transfer", evalTransfer)
	r.Register("transfer_to_vesting", evalTransferToVesting)
	r.Register("withdraw_vesting", evalWithdrawVesting)
	r.Register("set_withdraw_vesting_route", evalSetWithdrawVestingRoute)
	r.Register("delegate_vesting_shares", evalDelegateVestingShares)
}

func createAccountCommon(ctx *Context, creator types.AccountName, newName types.AccountName, fee amount.Amount, owner, active, posting types.Authority, memoKey types.PublicKey, delegation amount.Amount) error {
	if _, exists := ctx.State.GetAccount(newName); exists {
		return errs.New(errs.KindPrecondition, "account already exists: "+string(newName))
	}
	creatorAcct, ok := ctx.State.GetAccount(creator)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown creator account: "+string(creator))
	}
	if owner.IsImpossible() || active.IsImpossible() || posting.IsImpossible() {
		return errs.New(errs.KindValidation, "account authority threshold is unreachable")
	}

	newBalance, err := creatorAcct.Balance.Sub(fee)
	if err != nil {
		return errs.Wrap(errs.KindPrecondition, err, "insufficient balance for account creation fee")
	}
	var newDelegatorVests amount.Amount
	if !delegation.IsZero() {
		newDelegatorVests, err = creatorAcct.VestingShares.Sub(delegation)
		if err != nil {
			return errs.Wrap(errs.KindPrecondition, err, "insufficient vesting shares to delegate")
		}
	}

	gd := ctx.State.GD()
	feeToVests := fee
	if err := ctx.State.Accounts.Modify(creatorAcct.ID, func(a *types.Account) {
		a.Balance = newBalance
		if !delegation.IsZero() {
			a.VestingShares = newDelegatorVests
		}
	}); err != nil {
		return err
	}

	id, acct := ctx.State.Accounts.Create(func(a *types.Account) {
		a.Name = newName
		a.Owner = owner
		a.Active = active
		a.Posting = posting
		a.MemoKey = memoKey
		a.Balance = amount.Zero(amount.STEEM)
		a.SBDBalance = amount.Zero(amount.SBD)
		a.SavingsBalance = amount.Zero(amount.STEEM)
		a.SavingsSBDBalance = amount.Zero(amount.SBD)
		a.VestingShares = sharesFromSteem(gd, feeToVests)
		a.VestingWithdrawRate = amount.Zero(amount.VESTS)
		a.ToWithdraw = amount.Zero(amount.VESTS)
		a.Withdrawn = amount.Zero(amount.VESTS)
		for i := range a.ProxiedVSFShares {
			a.ProxiedVSFShares[i] = amount.Zero(amount.VESTS)
		}
		a.RecoveryAccount = creator
		a.CanVote = true
		a.CreatedAt = ctx.Now
		a.LastOwnerUpdate = ctx.Now
		a.WitnessVotes = make(map[types.AccountName]struct{})
		a.CustomBalances = map[string]amount.Amount{}
	})
	ctx.State.AccountsByName.Set(newName, id)

	if err := ctx.State.Global.Modify(1, func(g *types.DynamicGlobalProperties) {
		g.TotalVestingFundSteem = g.TotalVestingFundSteem.MustAdd(feeToVests)
		g.TotalVestingShares = g.TotalVestingShares.MustAdd(acct.VestingShares)
	}); err != nil {
		return err
	}

	if !delegation.IsZero() {
		did, _ := ctx.State.VestingDelegations.Create(func(d *types.VestingDelegation) {
			d.Delegator = creator
			d.Delegatee = newName
			d.VestingShares = delegation
			d.MinDelegationTime = ctx.Now
		})
		_ = did
		if err := ctx.State.Accounts.Modify(acct.ID, func(a *types.Account) {
			a.ProxiedVSFShares[0] = a.ProxiedVSFShares[0].MustAdd(delegation)
		}); err != nil {
			return err
		}
	}
	return nil
}

// sharesFromSteem converts a STEEM amount into VESTS at the current global
// share price (total_vesting_shares / total_vesting_fund_steem), matching
// the conversion used throughout transfer_to_vesting and the account
// creation fee (spec.md §4.9 step 5 uses the inverse of this conversion).
func sharesFromSteem(gd *types.DynamicGlobalProperties, steem amount.Amount) amount.Amount {
	if gd.TotalVestingFundSteem.IsZero() {
		return amount.New(amount.VESTS, steem.Value.Uint64())
	}
	shares := amount.MulDiv(steem, gd.TotalVestingShares.Value.Uint64(), gd.TotalVestingFundSteem.Value.Uint64())
	return amount.Amount{Symbol: amount.VESTS, Value: shares.Value}
}

// steemFromShares is the inverse of sharesFromSteem, used by vesting
// withdrawal (spec.md §4.9 step 5 / scenario S6).
func steemFromShares(gd *types.DynamicGlobalProperties, shares amount.Amount) amount.Amount {
	if gd.TotalVestingShares.IsZero() {
		return amount.New(amount.STEEM, shares.Value.Uint64())
	}
	steem := amount.MulDiv(shares, gd.TotalVestingFundSteem.Value.Uint64(), gd.TotalVestingShares.Value.Uint64())
	return amount.Amount{Symbol: amount.STEEM, Value: steem.Value}
}

func evalAccountCreate(ctx *Context, op ops.Operation) error {
	o := op.(ops.AccountCreate)
	return createAccountCommon(ctx, o.Creator, o.NewAccountName, o.Fee, o.Owner, o.Active, o.Posting, o.MemoKey, amount.Zero(amount.VESTS))
}

func evalAccountCreateWithDelegation(ctx *Context, op ops.Operation) error {
	o := op.(ops.AccountCreateWithDelegation)
	return createAccountCommon(ctx, o.Creator, o.NewAccountName, o.Fee, o.Owner, o.Active, o.Posting, o.MemoKey, o.Delegation)
}

func evalAccountUpdate(ctx *Context, op ops.Operation) error {
	o := op.(ops.AccountUpdate)
	acct, ok := ctx.State.GetAccount(o.Account)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown account: "+string(o.Account))
	}
	if o.Owner != nil && o.Owner.IsImpossible() {
		return errs.New(errs.KindValidation, "owner authority threshold is unreachable")
	}
	if o.Owner != nil {
		// Keep the superseded owner authority around so recover_account can
		// still match against it within the recovery window (spec.md §4.9
		// step 9).
		ctx.State.OwnerAuthorityHistory.Create(func(h *types.OwnerAuthorityHistory) {
			h.Account = o.Account
			h.PreviousOwner = acct.Owner
			h.LastValidTime = ctx.Now
		})
	}
	return ctx.State.Accounts.Modify(acct.ID, func(a *types.Account) {
		if o.Owner != nil {
			a.Owner = *o.Owner
			a.LastOwnerUpdate = ctx.Now
		}
		if o.Active != nil {
			a.Active = *o.Active
		}
		if o.Posting != nil {
			a.Posting = *o.Posting
		}
		if o.MemoKey != "" {
			a.MemoKey = o.MemoKey
		}
	})
}

func evalTransfer(ctx *Context, op ops.Operation) error {
	o := op.(ops.Transfer)
	from, ok := ctx.State.GetAccount(o.From)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown sender: "+string(o.From))
	}
	to, ok := ctx.State.GetAccount(o.To)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown recipient: "+string(o.To))
	}

	var fromBal, toBal amount.Amount
	var err error
	switch o.Amount.Symbol {
	case amount.STEEM:
		fromBal, err = from.Balance.Sub(o.Amount)
		if err == nil {
			toBal = to.Balance.MustAdd(o.Amount)
		}
	case amount.SBD:
		fromBal, err = from.SBDBalance.Sub(o.Amount)
		if err == nil {
			toBal = to.SBDBalance.MustAdd(o.Amount)
		}
	default:
		return errs.New(errs.KindValidation, "transfer only supports STEEM or SBD")
	}
	if err != nil {
		return errs.Wrap(errs.KindPrecondition, err, "insufficient balance for transfer")
	}

	if err := ctx.State.Accounts.Modify(from.ID, func(a *types.Account) {
		if o.Amount.Symbol == amount.STEEM {
			a.Balance = fromBal
		} else {
			a.SBDBalance = fromBal
		}
	}); err != nil {
		return err
	}
	return ctx.State.Accounts.Modify(to.ID, func(a *types.Account) {
		if o.Amount.Symbol == amount.STEEM {
			a.Balance = toBal
		} else {
			a.SBDBalance = toBal
		}
	})
}

func evalTransferToVesting(ctx *Context, op ops.Operation) error {
	o := op.(ops.TransferToVesting)
	from, ok := ctx.State.GetAccount(o.From)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown sender: "+string(o.From))
	}
	to, ok := ctx.State.GetAccount(o.To)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown recipient: "+string(o.To))
	}
	fromBal, err := from.Balance.Sub(o.Amount)
	if err != nil {
		return errs.Wrap(errs.KindPrecondition, err, "insufficient balance to power up")
	}
	gd := ctx.State.GD()
	newShares := sharesFromSteem(gd, o.Amount)

	if err := ctx.State.Accounts.Modify(from.ID, func(a *types.Account) { a.Balance = fromBal }); err != nil {
		return err
	}
	if err := ctx.State.Accounts.Modify(to.ID, func(a *types.Account) {
		a.VestingShares = a.VestingShares.MustAdd(newShares)
	}); err != nil {
		return err
	}
	return ctx.State.Global.Modify(1, func(g *types.DynamicGlobalProperties) {
		g.TotalVestingFundSteem = g.TotalVestingFundSteem.MustAdd(o.Amount)
		g.TotalVestingShares = g.TotalVestingShares.MustAdd(newShares)
	})
}

func evalWithdrawVesting(ctx *Context, op ops.Operation) error {
	o := op.(ops.WithdrawVesting)
	acct, ok := ctx.State.GetAccount(o.Account)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown account: "+string(o.Account))
	}
	if acct.VestingShares.Cmp(o.VestingShares) < 0 {
		return errs.New(errs.KindPrecondition, "cannot withdraw more vesting shares than held")
	}
	const weeks = 13 // Graphene-family convention: withdraw over 13 weekly installments.
	rate := amount.MulDiv(o.VestingShares, 1, weeks)
	return ctx.State.Accounts.Modify(acct.ID, func(a *types.Account) {
		a.ToWithdraw = o.VestingShares
		a.Withdrawn = amount.Zero(amount.VESTS)
		a.VestingWithdrawRate = rate
		a.NextVestingWithdrawal = ctx.Now.AddDate(0, 0, 7)
		if o.VestingShares.IsZero() {
			a.ToWithdraw = amount.Zero(amount.VESTS)
			a.VestingWithdrawRate = amount.Zero(amount.VESTS)
		}
	})
}

func evalSetWithdrawVestingRoute(ctx *Context, op ops.Operation) error {
	o := op.(ops.SetWithdrawVestingRoute)
	from, ok := ctx.State.GetAccount(o.FromAccount)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown account: "+string(o.FromAccount))
	}
	if _, ok := ctx.State.GetAccount(o.ToAccount); !ok {
		return errs.New(errs.KindPrecondition, "unknown route destination: "+string(o.ToAccount))
	}
	return ctx.State.Accounts.Modify(from.ID, func(a *types.Account) {
		routes := make([]types.WithdrawRoute, 0, len(a.WithdrawRoutes)+1)
		var total uint16
		for _, rt := range a.WithdrawRoutes {
			if rt.ToAccount == o.ToAccount {
				continue
			}
			routes = append(routes, rt)
			total += rt.Percent
		}
		if o.Percent > 0 {
			routes = append(routes, types.WithdrawRoute{ToAccount: o.ToAccount, Percent: o.Percent, AutoVest: o.AutoVest})
			total += o.Percent
		}
		a.WithdrawRoutes = routes
		_ = total // validated by the caller (transaction-level op validation) to be <= 10000
	})
}

func evalDelegateVestingShares(ctx *Context, op ops.Operation) error {
	o := op.(ops.DelegateVestingShares)
	delegator, ok := ctx.State.GetAccount(o.Delegator)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown delegator: "+string(o.Delegator))
	}
	delegatee, ok := ctx.State.GetAccount(o.Delegatee)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown delegatee: "+string(o.Delegatee))
	}

	var existing *types.VestingDelegation
	ctx.State.VestingDelegations.Each(func(id types.ID, d *types.VestingDelegation) bool {
		if d.Delegator == o.Delegator && d.Delegatee == o.Delegatee {
			existing = d
			return false
		}
		return true
	})

	var delta amount.Amount
	var err error
	if existing == nil {
		delta = o.VestingShares
	} else if o.VestingShares.Cmp(existing.VestingShares) >= 0 {
		delta, err = o.VestingShares.Sub(existing.VestingShares)
	} else {
		// Reducing a delegation leaves the freed shares encumbered for a
		// cooldown window (expiring_vesting_delegation), preventing a
		// delegate-then-undelegate vote-weight flash loan.
		freed, subErr := existing.VestingShares.Sub(o.VestingShares)
		if subErr != nil {
			return errs.Wrap(errs.KindFatal, subErr, "computing delegation reduction")
		}
		ctx.State.ExpiringDelegations.Create(func(e *types.ExpiringVestingDelegation) {
			e.Delegator = o.Delegator
			e.VestingShares = freed
			e.ExpiresAt = ctx.Now.AddDate(0, 0, 7)
		})
	}
	if err != nil {
		return errs.Wrap(errs.KindFatal, err, "computing delegation delta")
	}

	if !delta.IsZero() {
		newDelegatorVests, subErr := delegator.VestingShares.Sub(delta)
		if subErr != nil {
			return errs.Wrap(errs.KindPrecondition, subErr, "insufficient vesting shares to delegate")
		}
		if err := ctx.State.Accounts.Modify(delegator.ID, func(a *types.Account) { a.VestingShares = newDelegatorVests }); err != nil {
			return err
		}
	}

	if existing == nil {
		ctx.State.VestingDelegations.Create(func(d *types.VestingDelegation) {
			d.Delegator = o.Delegator
			d.Delegatee = o.Delegatee
			d.VestingShares = o.VestingShares
			d.MinDelegationTime = ctx.Now
		})
	} else {
		if err := ctx.State.VestingDelegations.Modify(existing.ID, func(d *types.VestingDelegation) {
			d.VestingShares = o.VestingShares
		}); err != nil {
			return err
		}
	}

	return ctx.State.Accounts.Modify(delegatee.ID, func(a *types.Account) {
		prevTotal := a.ProxiedVSFShares[0]
		if existing != nil {
			prevTotal, _ = prevTotal.Sub(existing.VestingShares)
		}
		a.ProxiedVSFShares[0] = prevTotal.MustAdd(o.VestingShares)
	})
}
