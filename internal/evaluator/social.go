package evaluator

import (
	"math"
	"time"

	"github.com/holiman/uint256"
	"github.com/rusladder/LadderChain/internal/state"
	"github.com/rusladder/LadderChain/pkg/amount"
	"github.com/rusladder/LadderChain/pkg/errs"
	"github.com/rusladder/LadderChain/pkg/ops"
	"github.com/rusladder/LadderChain/pkg/types"
)

// defaultMaxAcceptedPayout is the uncapped-in-practice ceiling new posts get
// unless comment_options lowers it (spec.md §3 Comment "max-accepted-payout").
var defaultMaxAcceptedPayout = amount.New(amount.SBD, 1000000*1000)

func registerSocialOps(r *Registry) {
	r.Register("vote", evalVote)
	r.Register("comment", evalComment)
	r.Register("comment_options", evalCommentOptions)
	r.Register("delete_comment", evalDeleteComment)
}

// CashoutWindow is the time a fresh post stays open for votes before the
// reward engine cashes it out (spec.md §3 Comment "created/cashout ...
// timestamps").
const CashoutWindow = 7 * 24 * time.Hour

// maxVotePower is the fixed-point full-strength voting power (100.00%,
// matching the basis-points convention used throughout this package for
// percentages).
const maxVotePower = 10000

// voteRegenSeconds is how long it takes an account's voting power to
// regenerate fully, spread linearly from account creation.
const voteRegenSeconds = 5 * 24 * 3600

func evalVote(ctx *Context, op ops.Operation) error {
	o := op.(ops.Vote)
	if o.Weight < -10000 || o.Weight > 10000 {
		return errs.New(errs.KindValidation, "vote weight out of range")
	}
	voter, ok := ctx.State.GetAccount(o.Voter)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown voter: "+string(o.Voter))
	}
	if !voter.CanVote {
		return errs.New(errs.KindAuthorityMissing, "account has declined voting rights: "+string(o.Voter))
	}
	comment, ok := ctx.State.GetComment(o.Author, o.Permlink)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown comment")
	}
	if comment.IsPaidOut() {
		return errs.New(errs.KindPrecondition, "comment has already been cashed out")
	}

	key := state.VoteKey{Voter: o.Voter, Comment: types.AuthorAndPermlink{Author: o.Author, Permlink: o.Permlink}}
	existingID, hadVote := ctx.State.CommentVotesByKey.Get(key)

	power := currentVotePower(voter, ctx.Now)
	absWeight := int64(o.Weight)
	if absWeight < 0 {
		absWeight = -absWeight
	}
	effectivePower := int64(power) * absWeight / maxVotePower

	stake := voter.EffectiveVestingShares().Value.Uint64()
	rshares := int64(uint256.NewInt(0).Div(
		uint256.NewInt(0).Mul(uint256.NewInt(uint64(effectivePower)), uint256.NewInt(stake)),
		uint256.NewInt(maxVotePower*100),
	).Uint64())
	if o.Weight < 0 {
		rshares = -rshares
	}

	var oldRshares int64
	if hadVote {
		old, _ := ctx.State.CommentVotes.Get(existingID)
		oldRshares = old.Rshares
	}

	oldVss2 := rsharesToVss2(comment.NetRshares)
	newNet := comment.NetRshares - oldRshares + rshares
	newVss2 := rsharesToVss2(newNet)
	curationWeight := vss2Delta(oldVss2, newVss2)

	if err := ctx.State.Comments.Modify(comment.ID, func(c *types.Comment) {
		c.NetRshares = newNet
		c.AbsRshares += absRsharesDelta(oldRshares, rshares)
		if rshares > 0 {
			c.VoteRshares += rshares
		}
		c.TotalVoteWeight += curationWeight
	}); err != nil {
		return err
	}

	if hadVote {
		return ctx.State.CommentVotes.Modify(existingID, func(v *types.CommentVote) {
			v.Weight = curationWeight
			v.Rshares = rshares
			v.NumChanges++
			v.VoteAt = ctx.Now
		})
	}

	id, _ := ctx.State.CommentVotes.Create(func(v *types.CommentVote) {
		v.Voter = o.Voter
		v.Comment = key.Comment
		v.Weight = curationWeight
		v.Rshares = rshares
		v.VoteAt = ctx.Now
	})
	ctx.State.CommentVotesByKey.Set(key, id)
	return nil
}

// currentVotePower reconstructs the voter's available power at t by
// regenerating linearly from the account's CreatedAt, reaching full power
// voteRegenSeconds after creation. The account keeps no last-vote time, so
// casting a vote does not lower the power that later votes see.
func currentVotePower(voter *types.Account, t time.Time) int64 {
	elapsed := t.Sub(voter.CreatedAt).Seconds()
	if elapsed <= 0 {
		return maxVotePower
	}
	regen := int64(elapsed / voteRegenSeconds * maxVotePower)
	if regen > maxVotePower {
		regen = maxVotePower
	}
	return regen
}

func absRsharesDelta(oldRshares, newRshares int64) int64 {
	abs := func(x int64) int64 {
		if x < 0 {
			return -x
		}
		return x
	}
	return abs(newRshares) - abs(oldRshares)
}

// rsharesToVss2 is the integer square root of max(netRshares, 0), used to
// compute each vote's marginal contribution to the curator weight pool
// (spec.md §4.7 step 3: "weight = pre-vote-vs-post-vote rshares
// square-root delta, captured at vote time").
func rsharesToVss2(netRshares int64) uint64 {
	if netRshares <= 0 {
		return 0
	}
	return isqrt(uint64(netRshares))
}

func vss2Delta(oldRoot, newRoot uint64) uint64 {
	if newRoot <= oldRoot {
		return 0
	}
	return newRoot - oldRoot
}

func isqrt(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	x := uint64(math.Sqrt(float64(n)))
	for x*x > n {
		x--
	}
	for (x+1)*(x+1) <= n {
		x++
	}
	return x
}

func evalComment(ctx *Context, op ops.Operation) error {
	o := op.(ops.Comment)
	author, ok := ctx.State.GetAccount(o.Author)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown author: "+string(o.Author))
	}
	_ = author

	key := types.AuthorAndPermlink{Author: o.Author, Permlink: o.Permlink}
	existingID, existed := ctx.State.CommentsByKey.Get(key)

	isRoot := o.ParentAuthor == ""
	var rootAuthor types.AccountName
	var rootPermlink types.Permlink
	var parent *types.Comment
	if !isRoot {
		var pok bool
		parent, pok = ctx.State.GetComment(o.ParentAuthor, o.ParentPermlink)
		if !pok {
			return errs.New(errs.KindPrecondition, "unknown parent comment")
		}
		if parent.IsRoot() {
			rootAuthor, rootPermlink = parent.Author, parent.Permlink
		} else {
			rootAuthor, rootPermlink = parent.RootAuthor, parent.RootPermlink
		}
	} else {
		rootAuthor, rootPermlink = o.Author, o.Permlink
	}

	if existed {
		existing, _ := ctx.State.Comments.Get(existingID)
		if existing.IsPaidOut() {
			return errs.New(errs.KindPrecondition, "cannot edit a comment that has been cashed out")
		}
		// Title/body/json_metadata are not part of consensus state (spec.md
		// §3 Comment lists no content fields); an edit only needs the
		// existence and not-yet-paid-out checks above.
		return nil
	}

	id, _ := ctx.State.Comments.Create(func(c *types.Comment) {
		c.Author = o.Author
		c.Permlink = o.Permlink
		if !isRoot {
			c.Parent = types.AuthorAndPermlink{Author: o.ParentAuthor, Permlink: o.ParentPermlink}
		}
		c.RootAuthor = rootAuthor
		c.RootPermlink = rootPermlink
		c.Created = ctx.Now
		c.CashoutAt = ctx.Now.Add(CashoutWindow)
		c.LastPayout = time.Time{}
		c.ChildrenRshares2 = types.NewChildrenRshares2()
		c.PercentSteemDollars = 10000
		c.AllowCuration = true
		c.RewardWeight = 10000
		c.MaxAcceptedPayout = defaultMaxAcceptedPayout
	})
	ctx.State.CommentsByKey.Set(key, id)

	if parent != nil {
		return ctx.State.Comments.Modify(parent.ID, func(c *types.Comment) {
			c.ChildrenCount++
		})
	}
	return nil
}

func evalCommentOptions(ctx *Context, op ops.Operation) error {
	o := op.(ops.CommentOptions)
	comment, ok := ctx.State.GetComment(o.Author, o.Permlink)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown comment")
	}
	if comment.IsPaidOut() {
		return errs.New(errs.KindPrecondition, "cannot change options on a cashed-out comment")
	}
	if o.PercentSteemDollars > 10000 {
		return errs.New(errs.KindValidation, "percent_steem_dollars out of range")
	}
	var total uint16
	for _, b := range o.Beneficiaries {
		total += b.Percent
	}
	if total > 10000 {
		return errs.New(errs.KindValidation, "beneficiary percentages exceed 100%")
	}
	return ctx.State.Comments.Modify(comment.ID, func(c *types.Comment) {
		c.MaxAcceptedPayout = o.MaxAcceptedPayout
		c.PercentSteemDollars = o.PercentSteemDollars
		c.AllowCuration = o.AllowCuration
		c.Beneficiaries = o.Beneficiaries
	})
}

func evalDeleteComment(ctx *Context, op ops.Operation) error {
	o := op.(ops.DeleteComment)
	comment, ok := ctx.State.GetComment(o.Author, o.Permlink)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown comment")
	}
	if comment.ChildrenCount > 0 {
		return errs.New(errs.KindPrecondition, "cannot delete a comment with replies")
	}
	if comment.NetRshares > 0 {
		return errs.New(errs.KindPrecondition, "cannot delete a comment that has received votes")
	}
	ctx.State.CommentsByKey.Delete(types.AuthorAndPermlink{Author: o.Author, Permlink: o.Permlink})
	return ctx.State.Comments.Remove(comment.ID)
}
