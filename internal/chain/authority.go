package chain

import (
	"github.com/rusladder/LadderChain/pkg/ops"
	"github.com/rusladder/LadderChain/pkg/types"
)

// authLevel names which of an account's three authorities (spec.md §4.4
// step 4: "recursively resolve weighted-threshold authorities") a
// requirement resolves against.
type authLevel int

const (
	authActive authLevel = iota
	authOwner
	authPosting
)

// accountAuth pairs an account name with the authority level one of its
// operations requires.
type accountAuth struct {
	Account types.AccountName
	Level   authLevel
}

func active(a types.AccountName) []accountAuth  { return []accountAuth{{a, authActive}} }
func owner(a types.AccountName) []accountAuth   { return []accountAuth{{a, authOwner}} }
func posting(a types.AccountName) []accountAuth { return []accountAuth{{a, authPosting}} }

func activeMany(as []types.AccountName) []accountAuth {
	out := make([]accountAuth, len(as))
	for i, a := range as {
		out[i] = accountAuth{a, authActive}
	}
	return out
}

func postingMany(as []types.AccountName) []accountAuth {
	out := make([]accountAuth, len(as))
	for i, a := range as {
		out[i] = accountAuth{a, authPosting}
	}
	return out
}

func ownerMany(as []types.AccountName) []accountAuth {
	out := make([]accountAuth, len(as))
	for i, a := range as {
		out[i] = accountAuth{a, authOwner}
	}
	return out
}

// requiredAuthorities returns every (account, level) pair op needs
// satisfied, mirroring Graphene's per-operation get_required_*_authorities
// dispatch (spec.md §4.4 step 4, §6's operation list). Operations whose
// authority model does not reduce to "this account's stored authority"
// (recover_account validates against authorities carried in the operation
// itself; pow/pow2/report_over_production carry none) are left unmapped and
// fall back to the base "transaction carries a signing key" check.
func requiredAuthorities(op ops.Operation) []accountAuth {
	switch o := op.(type) {
	case ops.Vote:
		return posting(o.Voter)
	case ops.Comment:
		return posting(o.Author)
	case ops.CommentOptions:
		return posting(o.Author)
	case ops.DeleteComment:
		return posting(o.Author)
	case ops.Transfer:
		return active(o.From)
	case ops.TransferToVesting:
		return active(o.From)
	case ops.WithdrawVesting:
		return active(o.Account)
	case ops.SetWithdrawVestingRoute:
		return active(o.FromAccount)
	case ops.AccountCreate:
		return active(o.Creator)
	case ops.AccountCreateWithDelegation:
		return active(o.Creator)
	case ops.AccountUpdate:
		if o.Owner != nil {
			return owner(o.Account)
		}
		return active(o.Account)
	case ops.WitnessUpdate:
		return active(o.Owner)
	case ops.AccountWitnessVote:
		return active(o.Account)
	case ops.AccountWitnessProxy:
		return active(o.Account)
	case ops.Custom:
		return activeMany(o.RequiredAuths)
	case ops.CustomBinary:
		out := ownerMany(o.RequiredOwnerAuths)
		out = append(out, activeMany(o.RequiredActiveAuths)...)
		out = append(out, postingMany(o.RequiredPostingAuths)...)
		return out
	case ops.CustomJSON:
		out := activeMany(o.RequiredAuths)
		out = append(out, postingMany(o.RequiredPostingAuths)...)
		return out
	case ops.FeedPublish:
		return active(o.Publisher)
	case ops.Convert:
		return active(o.Owner)
	case ops.LimitOrderCreate:
		return active(o.Owner)
	case ops.LimitOrderCreate2:
		return active(o.Owner)
	case ops.LimitOrderCancel:
		return active(o.Owner)
	case ops.ChallengeAuthority:
		return active(o.Challenger)
	case ops.ProveAuthority:
		if o.RequireOwner {
			return owner(o.Challenged)
		}
		return active(o.Challenged)
	case ops.RequestAccountRecovery:
		return active(o.RecoveryAccount)
	case ops.ChangeRecoveryAccount:
		return owner(o.AccountToRecover)
	case ops.EscrowTransfer:
		return active(o.From)
	case ops.EscrowApprove:
		return active(o.Who)
	case ops.EscrowDispute:
		return active(o.Who)
	case ops.EscrowRelease:
		return active(o.Who)
	case ops.TransferToSavings:
		return active(o.From)
	case ops.TransferFromSavings:
		return active(o.From)
	case ops.CancelTransferFromSavings:
		return active(o.From)
	case ops.DeclineVotingRights:
		return owner(o.Account)
	case ops.SetResetAccount:
		return owner(o.Account)
	case ops.DelegateVestingShares:
		return active(o.Delegator)
	case ops.AssetCreate:
		return active(o.Issuer)
	case ops.AssetIssue:
		return active(o.Issuer)
	case ops.AssetReserve:
		return active(o.Payer)
	case ops.AssetUpdate:
		return active(o.Issuer)
	case ops.AssetUpdateBitasset:
		return active(o.Issuer)
	case ops.AssetUpdateFeedProducers:
		return active(o.Issuer)
	case ops.AssetFundFeePool:
		return active(o.From)
	case ops.AssetGlobalSettle:
		return active(o.Issuer)
	case ops.AssetSettle:
		return active(o.Account)
	case ops.AssetForceSettle:
		return active(o.Account)
	case ops.AssetPublishFeeds:
		return active(o.Publisher)
	case ops.AssetClaimFees:
		return active(o.Issuer)
	case ops.CallOrderUpdate:
		return active(o.Borrower)
	default:
		return nil
	}
}
