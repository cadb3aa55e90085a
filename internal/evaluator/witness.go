package evaluator

import (
	"github.com/rusladder/LadderChain/pkg/amount"
	"github.com/rusladder/LadderChain/pkg/errs"
	"github.com/rusladder/LadderChain/pkg/ops"
	"github.com/rusladder/LadderChain/pkg/types"
)

func registerWitnessOps(r *Registry) {
	r.Register("witness_update", evalWitnessUpdate)
	r.Register("account_witness_vote", evalAccountWitnessVote)
	r.Register("account_witness_proxy", evalAccountWitnessProxy)
	r.Register("report_over_production", evalReportOverProduction)
}

func evalWitnessUpdate(ctx *Context, op ops.Operation) error {
	o := op.(ops.WitnessUpdate)
	owner, ok := ctx.State.GetAccount(o.Owner)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown account: "+string(o.Owner))
	}
	existing, exists := ctx.State.GetWitness(o.Owner)
	if !exists {
		id, _ := ctx.State.Witnesses.Create(func(w *types.Witness) {
			w.Owner = o.Owner
			w.SigningKey = o.BlockSigningKey
			w.Props = o.Props
			w.ScheduleClass = types.ScheduleClassNone
			w.Votes = amount.Zero(amount.VESTS)
			w.VirtualPosition = types.ZeroRatio()
			w.VirtualScheduledTime = types.ZeroRatio()
			w.CreatedAt = ctx.Now
		})
		ctx.State.WitnessesByOwner.Set(o.Owner, id)
		_ = owner
		return nil
	}
	return ctx.State.Witnesses.Modify(existing.ID, func(w *types.Witness) {
		if o.BlockSigningKey != "" {
			w.SigningKey = o.BlockSigningKey
		}
		w.Props = o.Props
	})
}

func evalAccountWitnessVote(ctx *Context, op ops.Operation) error {
	o := op.(ops.AccountWitnessVote)
	voter, ok := ctx.State.GetAccount(o.Account)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown account: "+string(o.Account))
	}
	if voter.HasProxy() {
		return errs.New(errs.KindPrecondition, "account has proxied its vote and cannot vote for witnesses directly")
	}
	witness, ok := ctx.State.GetWitness(o.Witness)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown witness: "+string(o.Witness))
	}

	_, alreadyVoted := voter.WitnessVotes[o.Witness]
	if o.Approve == alreadyVoted {
		return errs.New(errs.KindPrecondition, "witness vote state already matches request")
	}

	weight := voter.EffectiveVestingShares()
	if err := ctx.State.Witnesses.Modify(witness.ID, func(w *types.Witness) {
		if o.Approve {
			w.Votes = w.Votes.MustAdd(weight)
		} else {
			w.Votes, _ = w.Votes.Sub(weight)
		}
	}); err != nil {
		return err
	}

	return ctx.State.Accounts.Modify(voter.ID, func(a *types.Account) {
		if a.WitnessVotes == nil {
			a.WitnessVotes = make(map[types.AccountName]struct{})
		}
		if o.Approve {
			a.WitnessVotes[o.Witness] = struct{}{}
		} else {
			delete(a.WitnessVotes, o.Witness)
		}
	})
}

func evalAccountWitnessProxy(ctx *Context, op ops.Operation) error {
	o := op.(ops.AccountWitnessProxy)
	acct, ok := ctx.State.GetAccount(o.Account)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown account: "+string(o.Account))
	}
	if o.Proxy == o.Account {
		return errs.New(errs.KindValidation, "an account cannot proxy to itself")
	}
	if o.Proxy != "" {
		if _, ok := ctx.State.GetAccount(o.Proxy); !ok {
			return errs.New(errs.KindPrecondition, "unknown proxy account: "+string(o.Proxy))
		}
	}
	if acct.Proxy == o.Proxy {
		return errs.New(errs.KindPrecondition, "proxy is already set to this value")
	}

	// Withdraw the stake this account currently contributes from its old
	// chain of proxies (or its own witness votes), then deposit it under the
	// new one (spec.md §3 "proxied vote buckets per proxy depth").
	stake := acct.EffectiveVestingShares()
	if acct.HasProxy() {
		if err := adjustProxiedShares(ctx, acct.Proxy, stake, false); err != nil {
			return err
		}
	} else {
		if err := adjustDirectWitnessVotes(ctx, acct, stake, false); err != nil {
			return err
		}
	}

	if err := ctx.State.Accounts.Modify(acct.ID, func(a *types.Account) {
		a.Proxy = o.Proxy
	}); err != nil {
		return err
	}

	if o.Proxy != "" {
		return adjustProxiedShares(ctx, o.Proxy, stake, true)
	}
	return adjustDirectWitnessVotes(ctx, acct, stake, true)
}

// adjustProxiedShares walks proxyName's own proxy chain (up to
// types.MaxProxyDepth) adding/removing delta at depth 0 relative to
// proxyName and cascading the same delta one bucket deeper for every
// further proxy hop, matching the depth-bucketed rollup of spec.md §3.
func adjustProxiedShares(ctx *Context, proxyName types.AccountName, delta amount.Amount, add bool) error {
	name := proxyName
	for depth := 0; depth <= types.MaxProxyDepth; depth++ {
		acct, ok := ctx.State.GetAccount(name)
		if !ok {
			return errs.New(errs.KindFatal, "proxy chain references unknown account: "+string(name))
		}
		if err := ctx.State.Accounts.Modify(acct.ID, func(a *types.Account) {
			if add {
				a.ProxiedVSFShares[depth] = a.ProxiedVSFShares[depth].MustAdd(delta)
			} else {
				a.ProxiedVSFShares[depth], _ = a.ProxiedVSFShares[depth].Sub(delta)
			}
		}); err != nil {
			return err
		}
		if !acct.HasProxy() {
			return adjustDirectWitnessVotes(ctx, acct, delta, add)
		}
		name = acct.Proxy
	}
	return nil
}

func adjustDirectWitnessVotes(ctx *Context, acct *types.Account, delta amount.Amount, add bool) error {
	for witnessName := range acct.WitnessVotes {
		witness, ok := ctx.State.GetWitness(witnessName)
		if !ok {
			continue
		}
		if err := ctx.State.Witnesses.Modify(witness.ID, func(w *types.Witness) {
			if add {
				w.Votes = w.Votes.MustAdd(delta)
			} else {
				w.Votes, _ = w.Votes.Sub(delta)
			}
		}); err != nil {
			return err
		}
	}
	return nil
}

func evalReportOverProduction(ctx *Context, op ops.Operation) error {
	o := op.(ops.ReportOverProduction)
	if o.FirstBlock.BlockNum() != o.SecondBlock.BlockNum() {
		return errs.New(errs.KindValidation, "reported blocks are not for the same block number")
	}
	if o.FirstBlock == o.SecondBlock {
		return errs.New(errs.KindValidation, "reported blocks are identical")
	}
	// No witness identity is recovered from the two block headers and no
	// witness is penalised; the only further check is that the reporter
	// exists, so the operation is attributable in logs.
	if _, ok := ctx.State.GetAccount(o.Reporter); !ok {
		return errs.New(errs.KindPrecondition, "unknown reporter: "+string(o.Reporter))
	}
	ctx.emit("report_over_production", o)
	return nil
}
