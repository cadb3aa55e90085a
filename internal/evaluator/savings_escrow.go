package evaluator

import (
	"github.com/rusladder/LadderChain/pkg/amount"
	"github.com/rusladder/LadderChain/pkg/errs"
	"github.com/rusladder/LadderChain/pkg/ops"
	"github.com/rusladder/LadderChain/pkg/types"
)

func registerSavingsEscrowOps(r *Registry) {
	r.Register("transfer_to_savings", evalTransferToSavings)
	r.Register("transfer_from_savings", evalTransferFromSavings)
	r.Register("cancel_transfer_from_savings", evalCancelTransferFromSavings)
	r.Register("escrow_transfer", evalEscrowTransfer)
	r.Register("escrow_approve", evalEscrowApprove)
	r.Register("escrow_dispute", evalEscrowDispute)
	r.Register("escrow_release", evalEscrowRelease)
}

// savingsWithdrawDelaySeconds is the maturity delay of spec.md §4.9 step 6.
const savingsWithdrawDelaySeconds = 3 * 24 * 3600

// zeroUnless returns a if its symbol is sym, else the zero amount of sym.
// escrow_transfer's fee may be denominated in either STEEM or SBD; this lets
// the two-field (Balance, SBDBalance) credit below stay a flat, branch-free
// pair of adds.
func zeroUnless(a amount.Amount, sym amount.Symbol) amount.Amount {
	if a.Symbol == sym {
		return a
	}
	return amount.Zero(sym)
}

func evalTransferToSavings(ctx *Context, op ops.Operation) error {
	o := op.(ops.TransferToSavings)
	from, ok := ctx.State.GetAccount(o.From)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown sender: "+string(o.From))
	}
	if _, ok := ctx.State.GetAccount(o.To); !ok {
		return errs.New(errs.KindPrecondition, "unknown recipient: "+string(o.To))
	}

	var fromNew amount.Amount
	var err error
	switch o.Amount.Symbol {
	case amount.STEEM:
		fromNew, err = from.Balance.Sub(o.Amount)
	case amount.SBD:
		fromNew, err = from.SBDBalance.Sub(o.Amount)
	default:
		return errs.New(errs.KindValidation, "savings only supports STEEM or SBD")
	}
	if err != nil {
		return errs.Wrap(errs.KindPrecondition, err, "insufficient balance to move to savings")
	}
	if err := ctx.State.Accounts.Modify(from.ID, func(a *types.Account) {
		if o.Amount.Symbol == amount.STEEM {
			a.Balance = fromNew
		} else {
			a.SBDBalance = fromNew
		}
	}); err != nil {
		return err
	}

	toID, _ := ctx.State.AccountsByName.Get(o.To)
	return ctx.State.Accounts.Modify(toID, func(a *types.Account) {
		if o.Amount.Symbol == amount.STEEM {
			a.SavingsBalance = a.SavingsBalance.MustAdd(o.Amount)
		} else {
			a.SavingsSBDBalance = a.SavingsSBDBalance.MustAdd(o.Amount)
		}
	})
}

func evalTransferFromSavings(ctx *Context, op ops.Operation) error {
	o := op.(ops.TransferFromSavings)
	from, ok := ctx.State.GetAccount(o.From)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown sender: "+string(o.From))
	}
	if _, ok := ctx.State.GetAccount(o.To); !ok {
		return errs.New(errs.KindPrecondition, "unknown recipient: "+string(o.To))
	}

	var newSavings amount.Amount
	var err error
	switch o.Amount.Symbol {
	case amount.STEEM:
		newSavings, err = from.SavingsBalance.Sub(o.Amount)
	case amount.SBD:
		newSavings, err = from.SavingsSBDBalance.Sub(o.Amount)
	default:
		return errs.New(errs.KindValidation, "savings only supports STEEM or SBD")
	}
	if err != nil {
		return errs.Wrap(errs.KindPrecondition, err, "insufficient savings balance")
	}
	if err := ctx.State.Accounts.Modify(from.ID, func(a *types.Account) {
		if o.Amount.Symbol == amount.STEEM {
			a.SavingsBalance = newSavings
		} else {
			a.SavingsSBDBalance = newSavings
		}
	}); err != nil {
		return err
	}

	ctx.State.SavingsWithdraws.Create(func(s *types.SavingsWithdraw) {
		s.From = o.From
		s.To = o.To
		s.RequestID = o.RequestID
		s.Amount = o.Amount
		s.Memo = o.Memo
		s.CompleteAt = ctx.Now.Add(savingsWithdrawDelaySeconds * 1e9)
	})
	return nil
}

func evalCancelTransferFromSavings(ctx *Context, op ops.Operation) error {
	o := op.(ops.CancelTransferFromSavings)
	from, ok := ctx.State.GetAccount(o.From)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown account: "+string(o.From))
	}

	var found *types.SavingsWithdraw
	ctx.State.SavingsWithdraws.Each(func(id types.ID, s *types.SavingsWithdraw) bool {
		if s.From == o.From && s.RequestID == o.RequestID {
			found = s
			return false
		}
		return true
	})
	if found == nil {
		return errs.New(errs.KindPrecondition, "no such pending savings withdrawal")
	}

	if err := ctx.State.Accounts.Modify(from.ID, func(a *types.Account) {
		if found.Amount.Symbol == amount.STEEM {
			a.SavingsBalance = a.SavingsBalance.MustAdd(found.Amount)
		} else {
			a.SavingsSBDBalance = a.SavingsSBDBalance.MustAdd(found.Amount)
		}
	}); err != nil {
		return err
	}
	return ctx.State.SavingsWithdraws.Remove(found.ID)
}

func evalEscrowTransfer(ctx *Context, op ops.Operation) error {
	o := op.(ops.EscrowTransfer)
	from, ok := ctx.State.GetAccount(o.From)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown sender: "+string(o.From))
	}
	for _, name := range []types.AccountName{o.To, o.Agent} {
		if _, ok := ctx.State.GetAccount(name); !ok {
			return errs.New(errs.KindPrecondition, "unknown account: "+string(name))
		}
	}

	steemNew, err := from.Balance.Sub(o.SteemAmount)
	if err != nil {
		return errs.Wrap(errs.KindPrecondition, err, "insufficient STEEM balance for escrow")
	}
	sbdNew, err := from.SBDBalance.Sub(o.SBDAmount)
	if err != nil {
		return errs.Wrap(errs.KindPrecondition, err, "insufficient SBD balance for escrow")
	}
	feeSource := steemNew
	if o.Fee.Symbol == amount.SBD {
		feeSource = sbdNew
	}
	feeNew, err := feeSource.Sub(o.Fee)
	if err != nil {
		return errs.Wrap(errs.KindPrecondition, err, "insufficient balance for escrow fee")
	}
	if o.Fee.Symbol == amount.SBD {
		sbdNew = feeNew
	} else {
		steemNew = feeNew
	}

	if err := ctx.State.Accounts.Modify(from.ID, func(a *types.Account) {
		a.Balance = steemNew
		a.SBDBalance = sbdNew
	}); err != nil {
		return err
	}

	agentID, _ := ctx.State.AccountsByName.Get(o.Agent)
	if err := ctx.State.Accounts.Modify(agentID, func(a *types.Account) {
		a.Balance = a.Balance.MustAdd(zeroUnless(o.Fee, amount.STEEM))
		a.SBDBalance = a.SBDBalance.MustAdd(zeroUnless(o.Fee, amount.SBD))
	}); err != nil {
		return err
	}

	ctx.State.Escrows.Create(func(e *types.Escrow) {
		e.From = o.From
		e.To = o.To
		e.Agent = o.Agent
		e.EscrowID = o.EscrowID
		e.SBDBalance = o.SBDAmount
		e.SteemBalance = o.SteemAmount
		e.Fee = o.Fee
		e.RatificationDeadline = o.RatificationDeadline
		e.EscrowExpiration = o.Expiration
	})
	return nil
}

func findEscrow(ctx *Context, from, to, agent types.AccountName, escrowID uint32) *types.Escrow {
	var found *types.Escrow
	ctx.State.Escrows.Each(func(id types.ID, e *types.Escrow) bool {
		if e.From == from && e.To == to && e.Agent == agent && e.EscrowID == escrowID {
			found = e
			return false
		}
		return true
	})
	return found
}

func evalEscrowApprove(ctx *Context, op ops.Operation) error {
	o := op.(ops.EscrowApprove)
	escrow := findEscrow(ctx, o.From, o.To, o.Agent, o.EscrowID)
	if escrow == nil {
		return errs.New(errs.KindPrecondition, "no such escrow")
	}
	if o.Who != o.To && o.Who != o.Agent {
		return errs.New(errs.KindAuthorityMissing, "only to_account or agent may approve an escrow")
	}
	if !o.Approve {
		if err := refundEscrow(ctx, escrow); err != nil {
			return err
		}
		return ctx.State.Escrows.Remove(escrow.ID)
	}
	return ctx.State.Escrows.Modify(escrow.ID, func(e *types.Escrow) {
		if o.Who == o.To {
			e.Status.ToApproved = true
		} else {
			e.Status.AgentApproved = true
		}
	})
}

// refundEscrow returns the escrowed STEEM/SBD to the sender. The
// escrow_transfer fee was already paid to the agent when the escrow was
// created (evalEscrowTransfer), so it is not part of what's held here and is
// never refunded regardless of outcome.
func refundEscrow(ctx *Context, e *types.Escrow) error {
	fromID, ok := ctx.State.AccountsByName.Get(e.From)
	if !ok {
		return errs.New(errs.KindFatal, "escrow references unknown from account")
	}
	return ctx.State.Accounts.Modify(fromID, func(a *types.Account) {
		a.Balance = a.Balance.MustAdd(e.SteemBalance)
		a.SBDBalance = a.SBDBalance.MustAdd(e.SBDBalance)
	})
}

func evalEscrowDispute(ctx *Context, op ops.Operation) error {
	o := op.(ops.EscrowDispute)
	escrow := findEscrow(ctx, o.From, o.To, o.Agent, o.EscrowID)
	if escrow == nil {
		return errs.New(errs.KindPrecondition, "no such escrow")
	}
	if !escrow.Status.ToApproved || !escrow.Status.AgentApproved {
		return errs.New(errs.KindPrecondition, "escrow must be fully approved before it can be disputed")
	}
	if o.Who != o.From && o.Who != o.To {
		return errs.New(errs.KindAuthorityMissing, "only from_account or to_account may dispute an escrow")
	}
	return ctx.State.Escrows.Modify(escrow.ID, func(e *types.Escrow) {
		e.Status.Disputed = true
	})
}

func evalEscrowRelease(ctx *Context, op ops.Operation) error {
	o := op.(ops.EscrowRelease)
	escrow := findEscrow(ctx, o.From, o.To, o.Agent, o.EscrowID)
	if escrow == nil {
		return errs.New(errs.KindPrecondition, "no such escrow")
	}
	if escrow.Status.Disputed {
		if o.Who != o.Agent {
			return errs.New(errs.KindAuthorityMissing, "only the agent may release a disputed escrow")
		}
	} else {
		if o.Who != o.From && o.Who != o.To {
			return errs.New(errs.KindAuthorityMissing, "only from_account or to_account may release an undisputed escrow")
		}
		if o.Who == o.From && o.ReceiveAccount != o.To {
			return errs.New(errs.KindAuthorityMissing, "from_account may only release funds to to_account")
		}
	}

	steemNew, err := escrow.SteemBalance.Sub(o.SteemAmount)
	if err != nil {
		return errs.Wrap(errs.KindPrecondition, err, "release exceeds escrow STEEM balance")
	}
	sbdNew, err := escrow.SBDBalance.Sub(o.SBDAmount)
	if err != nil {
		return errs.Wrap(errs.KindPrecondition, err, "release exceeds escrow SBD balance")
	}

	receiverID, ok := ctx.State.AccountsByName.Get(o.ReceiveAccount)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown receive_account: "+string(o.ReceiveAccount))
	}
	if err := ctx.State.Accounts.Modify(receiverID, func(a *types.Account) {
		a.Balance = a.Balance.MustAdd(o.SteemAmount)
		a.SBDBalance = a.SBDBalance.MustAdd(o.SBDAmount)
	}); err != nil {
		return err
	}

	if steemNew.IsZero() && sbdNew.IsZero() {
		return ctx.State.Escrows.Remove(escrow.ID)
	}
	return ctx.State.Escrows.Modify(escrow.ID, func(e *types.Escrow) {
		e.SteemBalance = steemNew
		e.SBDBalance = sbdNew
	})
}
