package evaluator

import (
	"github.com/rusladder/LadderChain/pkg/errs"
	"github.com/rusladder/LadderChain/pkg/ops"
	"github.com/rusladder/LadderChain/pkg/types"
)

func registerMiscOps(r *Registry) {
	r.Register("custom", evalCustom)
	r.Register("custom_json", evalCustomJSON)
	r.Register("custom_binary", evalCustomBinary)
	r.Register("pow", evalPow)
	r.Register("pow2", evalPow2)
	r.Register("challenge_authority", evalChallengeAuthority)
	r.Register("prove_authority", evalProveAuthority)
	r.Register("request_account_recovery", evalRequestAccountRecovery)
	r.Register("recover_account", evalRecoverAccount)
	r.Register("change_recovery_account", evalChangeRecoveryAccount)
	r.Register("decline_voting_rights", evalDeclineVotingRights)
	r.Register("reset_account", evalResetAccount)
	r.Register("set_reset_account", evalSetResetAccount)
}

// accountRecoveryWindowSeconds bounds how long a request_account_recovery
// stays claimable; changeRecoveryAccountDelaySeconds is how long
// change_recovery_account is delayed (spec.md §4.9 step 9).
const accountRecoveryWindowSeconds = 24 * 3600
const changeRecoveryAccountDelaySeconds = 30 * 24 * 3600
const declineVotingRightsDelaySeconds = 30 * 24 * 3600

func evalCustom(ctx *Context, op ops.Operation) error {
	o := op.(ops.Custom)
	log.WithField("id", o.ID).WithField("size", len(o.Data)).Debug("custom operation logged")
	ctx.emit("custom", o)
	return nil
}

func evalCustomJSON(ctx *Context, op ops.Operation) error {
	o := op.(ops.CustomJSON)
	log.WithField("id", o.ID).WithField("size", len(o.JSON)).Debug("custom_json operation logged")
	ctx.emit("custom_json", o)
	return nil
}

func evalCustomBinary(ctx *Context, op ops.Operation) error {
	o := op.(ops.CustomBinary)
	log.WithField("id", o.ID).WithField("size", len(o.Data)).Debug("custom_binary operation logged")
	ctx.emit("custom_binary", o)
	return nil
}

// evalPow and evalPow2 reject unconditionally: this implementation's
// genesis chain-config always ships with zero miner-class schedule slots
// (see pkg/ops.Pow doc comment), so proof-of-work block production can
// never be validly scheduled.
func evalPow(ctx *Context, op ops.Operation) error {
	return errs.New(errs.KindConsensus, "proof-of-work mining is not enabled on this chain")
}

func evalPow2(ctx *Context, op ops.Operation) error {
	return errs.New(errs.KindConsensus, "proof-of-work mining is not enabled on this chain")
}

func evalChallengeAuthority(ctx *Context, op ops.Operation) error {
	o := op.(ops.ChallengeAuthority)
	if _, ok := ctx.State.GetAccount(o.Challenged); !ok {
		return errs.New(errs.KindPrecondition, "unknown account: "+string(o.Challenged))
	}
	if _, ok := ctx.State.GetAccount(o.Challenger); !ok {
		return errs.New(errs.KindPrecondition, "unknown account: "+string(o.Challenger))
	}
	ctx.emit("challenge_authority", o)
	return nil
}

func evalProveAuthority(ctx *Context, op ops.Operation) error {
	o := op.(ops.ProveAuthority)
	if _, ok := ctx.State.GetAccount(o.Challenged); !ok {
		return errs.New(errs.KindPrecondition, "unknown account: "+string(o.Challenged))
	}
	ctx.emit("prove_authority", o)
	return nil
}

func evalRequestAccountRecovery(ctx *Context, op ops.Operation) error {
	o := op.(ops.RequestAccountRecovery)
	acct, ok := ctx.State.GetAccount(o.AccountToRecover)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown account: "+string(o.AccountToRecover))
	}
	if acct.RecoveryAccount != o.RecoveryAccount {
		return errs.New(errs.KindAuthorityMissing, "only the designated recovery account may request recovery")
	}
	if o.NewOwnerAuthority.IsImpossible() {
		return errs.New(errs.KindValidation, "proposed owner authority is unreachable")
	}

	var existingID types.ID
	var found bool
	ctx.State.AccountRecoveryRequests.Each(func(id types.ID, r *types.AccountRecoveryRequest) bool {
		if r.AccountToRecover == o.AccountToRecover {
			existingID, found = id, true
			return false
		}
		return true
	})
	expiresAt := ctx.Now.Add(accountRecoveryWindowSeconds * 1e9)
	if found {
		return ctx.State.AccountRecoveryRequests.Modify(existingID, func(r *types.AccountRecoveryRequest) {
			r.NewOwnerAuthority = o.NewOwnerAuthority
			r.ExpiresAt = expiresAt
		})
	}
	ctx.State.AccountRecoveryRequests.Create(func(r *types.AccountRecoveryRequest) {
		r.AccountToRecover = o.AccountToRecover
		r.NewOwnerAuthority = o.NewOwnerAuthority
		r.ExpiresAt = expiresAt
	})
	return nil
}

func evalRecoverAccount(ctx *Context, op ops.Operation) error {
	o := op.(ops.RecoverAccount)
	acct, ok := ctx.State.GetAccount(o.AccountToRecover)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown account: "+string(o.AccountToRecover))
	}

	var reqID types.ID
	var req *types.AccountRecoveryRequest
	ctx.State.AccountRecoveryRequests.Each(func(id types.ID, r *types.AccountRecoveryRequest) bool {
		if r.AccountToRecover == o.AccountToRecover {
			reqID, req = id, r
			return false
		}
		return true
	})
	if req == nil {
		return errs.New(errs.KindPrecondition, "no pending recovery request for this account")
	}
	if ctx.Now.After(req.ExpiresAt) {
		return errs.New(errs.KindPrecondition, "recovery request has expired")
	}
	if !authoritiesEqual(req.NewOwnerAuthority, o.NewOwnerAuthority) {
		return errs.New(errs.KindValidation, "new_owner_authority does not match the pending request")
	}

	if !authoritiesEqual(acct.Owner, o.RecentOwnerAuthority) {
		var found bool
		ctx.State.OwnerAuthorityHistory.Each(func(id types.ID, h *types.OwnerAuthorityHistory) bool {
			if h.Account == o.AccountToRecover && authoritiesEqual(h.PreviousOwner, o.RecentOwnerAuthority) {
				found = true
				return false
			}
			return true
		})
		if !found {
			return errs.New(errs.KindAuthorityMissing, "recent_owner_authority does not match any known prior owner key")
		}
	}

	if err := ctx.State.Accounts.Modify(acct.ID, func(a *types.Account) {
		a.Owner = o.NewOwnerAuthority
		a.LastOwnerUpdate = ctx.Now
		a.LastAccountRecovery = ctx.Now
	}); err != nil {
		return err
	}
	return ctx.State.AccountRecoveryRequests.Remove(reqID)
}

func authoritiesEqual(a, b types.Authority) bool {
	if a.Threshold != b.Threshold || len(a.Keys) != len(b.Keys) || len(a.AccountAuths) != len(b.AccountAuths) {
		return false
	}
	for i := range a.Keys {
		if a.Keys[i] != b.Keys[i] {
			return false
		}
	}
	for i := range a.AccountAuths {
		if a.AccountAuths[i] != b.AccountAuths[i] {
			return false
		}
	}
	return true
}

func evalChangeRecoveryAccount(ctx *Context, op ops.Operation) error {
	o := op.(ops.ChangeRecoveryAccount)
	if _, ok := ctx.State.GetAccount(o.AccountToRecover); !ok {
		return errs.New(errs.KindPrecondition, "unknown account: "+string(o.AccountToRecover))
	}
	if _, ok := ctx.State.GetAccount(o.NewRecoveryAccount); !ok {
		return errs.New(errs.KindPrecondition, "unknown recovery account: "+string(o.NewRecoveryAccount))
	}

	var existingID types.ID
	var found bool
	ctx.State.ChangeRecoveryAccountRequests.Each(func(id types.ID, r *types.ChangeRecoveryAccountRequest) bool {
		if r.AccountToRecover == o.AccountToRecover {
			existingID, found = id, true
			return false
		}
		return true
	})
	effectiveAt := ctx.Now.Add(changeRecoveryAccountDelaySeconds * 1e9)
	if found {
		return ctx.State.ChangeRecoveryAccountRequests.Modify(existingID, func(r *types.ChangeRecoveryAccountRequest) {
			r.RecoveryAccount = o.NewRecoveryAccount
			r.EffectiveAt = effectiveAt
		})
	}
	ctx.State.ChangeRecoveryAccountRequests.Create(func(r *types.ChangeRecoveryAccountRequest) {
		r.AccountToRecover = o.AccountToRecover
		r.RecoveryAccount = o.NewRecoveryAccount
		r.EffectiveAt = effectiveAt
	})
	return nil
}

func evalDeclineVotingRights(ctx *Context, op ops.Operation) error {
	o := op.(ops.DeclineVotingRights)
	acct, ok := ctx.State.GetAccount(o.Account)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown account: "+string(o.Account))
	}
	if !o.Decline && acct.CanVote {
		return errs.New(errs.KindPrecondition, "account already has voting rights")
	}

	var existingID types.ID
	var found bool
	ctx.State.DeclineVotingRightsRequests.Each(func(id types.ID, r *types.DeclineVotingRightsRequest) bool {
		if r.Account == o.Account {
			existingID, found = id, true
			return false
		}
		return true
	})
	if !o.Decline {
		if found {
			return ctx.State.DeclineVotingRightsRequests.Remove(existingID)
		}
		return nil
	}
	if found {
		return errs.New(errs.KindPrecondition, "a decline_voting_rights request is already pending")
	}
	ctx.State.DeclineVotingRightsRequests.Create(func(r *types.DeclineVotingRightsRequest) {
		r.Account = o.Account
		r.EffectiveAt = ctx.Now.Add(declineVotingRightsDelaySeconds * 1e9)
	})
	return nil
}

func evalResetAccount(ctx *Context, op ops.Operation) error {
	o := op.(ops.ResetAccount)
	acct, ok := ctx.State.GetAccount(o.AccountToReset)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown account: "+string(o.AccountToReset))
	}
	if _, ok := ctx.State.GetAccount(o.ResetAccount); !ok {
		return errs.New(errs.KindPrecondition, "unknown reset account: "+string(o.ResetAccount))
	}
	if o.NewOwnerAuthority.IsImpossible() {
		return errs.New(errs.KindValidation, "proposed owner authority is unreachable")
	}
	return ctx.State.Accounts.Modify(acct.ID, func(a *types.Account) {
		a.Owner = o.NewOwnerAuthority
		a.LastOwnerUpdate = ctx.Now
	})
}

func evalSetResetAccount(ctx *Context, op ops.Operation) error {
	o := op.(ops.SetResetAccount)
	if _, ok := ctx.State.GetAccount(o.Account); !ok {
		return errs.New(errs.KindPrecondition, "unknown account: "+string(o.Account))
	}
	if o.ResetAccount != "" {
		if _, ok := ctx.State.GetAccount(o.ResetAccount); !ok {
			return errs.New(errs.KindPrecondition, "unknown reset account: "+string(o.ResetAccount))
		}
	}
	ctx.emit("set_reset_account", o)
	return nil
}
