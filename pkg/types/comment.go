package types

import (
	"math"
	"time"

	"github.com/holiman/uint256"
	"github.com/rusladder/LadderChain/pkg/amount"
)

// CashoutNever marks a comment as never-again-payable (either already paid,
// or deliberately excluded), matching the "cashout_time = max" convention of
// spec.md §4.7 step 6 and §8 invariant 6.
var CashoutNever = time.Unix(0, math.MaxInt64)

// Beneficiary receives a fixed share of a comment's author payout before
// the author/curator split (spec.md §3 Comment "beneficiary list").
type Beneficiary struct {
	Account AccountName
	Percent uint16 // basis points of 10000
}

// Comment is the post/reply entity of spec.md §3.
type Comment struct {
	ID ID

	Author   AccountName
	Permlink Permlink

	// Parent is the zero value (empty author) for a top-level, root post.
	Parent AuthorAndPermlink
	// RootAuthor/RootPermlink resolve the whole thread to its top-level post
	// without walking the parent chain, used by the rshares² rollup.
	RootAuthor   AccountName
	RootPermlink Permlink

	Created    time.Time
	CashoutAt  time.Time
	LastPayout time.Time

	NetRshares   int64
	AbsRshares   int64
	VoteRshares  int64

	// ChildrenRshares2 is the rollup described by spec.md §3 invariant 7:
	// equal to the sum of descendants' rshares², bounded by 2^64 per §9's
	// open question about the source's saturation behavior.
	ChildrenRshares2 *uint256.Int
	ChildrenCount    uint32

	Beneficiaries      []Beneficiary
	PercentSteemDollars uint16 // basis points; §3 "percent-in-stablecoin"
	MaxAcceptedPayout  amount.Amount
	AllowCuration      bool
	RewardWeight       uint16 // basis points, default 10000

	TotalPayoutValue   amount.Amount
	CuratorPayoutValue amount.Amount
	TotalVoteWeight    uint64

	Category string
}

// NewChildrenRshares2 returns the zero rollup value.
func NewChildrenRshares2() *uint256.Int {
	return uint256.NewInt(0)
}

// IsRoot reports whether this comment is a top-level post.
func (c *Comment) IsRoot() bool { return c.Parent.Author == "" }

// IsPaidOut reports whether the comment has already been cashed out.
func (c *Comment) IsPaidOut() bool { return c.CashoutAt.Equal(CashoutNever) }

// CommentVote is the (voter, comment) entity of spec.md §3.
type CommentVote struct {
	ID      ID
	Voter   AccountName
	Comment AuthorAndPermlink

	Weight     uint64 // curator-pool contribution weight, captured at vote time
	Rshares    int64
	NumChanges uint32
	VoteAt     time.Time
}
