package types

import (
	"time"

	"github.com/rusladder/LadderChain/pkg/amount"
)

// MaxProxyDepth bounds the proxied-vote bucket array (spec.md §3: "proxied
// vote buckets per proxy depth (0..MAX_PROXY_DEPTH)").
const MaxProxyDepth = 4

// WithdrawRoute sends a fraction of a vesting withdrawal installment to
// another account, split between re-vested shares and liquid STEEM
// (spec.md §4.9 step 5, scenario S6).
type WithdrawRoute struct {
	ToAccount AccountName
	Percent   uint16 // basis points of 10000
	AutoVest  bool
}

// Account is the account entity of spec.md §3.
type Account struct {
	ID   ID
	Name AccountName

	Owner   Authority
	Active  Authority
	Posting Authority
	// MemoKey is carried for completeness of the account record even though
	// memo encryption itself is an external collaborator.
	MemoKey PublicKey

	Balance         amount.Amount // liquid STEEM
	SBDBalance      amount.Amount
	SavingsBalance  amount.Amount
	SavingsSBDBalance amount.Amount
	VestingShares   amount.Amount // VESTS

	VestingWithdrawRate    amount.Amount // VESTS per installment
	NextVestingWithdrawal  time.Time
	ToWithdraw             amount.Amount // total VESTS remaining to withdraw
	Withdrawn              amount.Amount // VESTS withdrawn so far this schedule
	WithdrawRoutes         []WithdrawRoute

	ProxiedVSFShares [MaxProxyDepth + 1]amount.Amount
	Proxy            AccountName // empty = no proxy (votes directly)

	WitnessVotes    map[AccountName]struct{}
	Posts           uint32

	// CustomBalances holds market-issued asset balances keyed by symbol,
	// kept off the fixed STEEM/SBD/VESTS fields above so adding an asset
	// never requires a schema change (spec.md §3 Asset).
	CustomBalances map[string]amount.Amount

	RecoveryAccount    AccountName
	LastOwnerUpdate    time.Time
	LastAccountRecovery time.Time
	CanVote            bool

	CreatedAt time.Time
}

// EffectiveVestingShares is the stake that backs this account's own votes:
// its own VESTS plus whatever has proxy-accumulated at depth 0, unless it
// proxies away its vote entirely.
func (a *Account) EffectiveVestingShares() amount.Amount {
	total := a.VestingShares
	for _, p := range a.ProxiedVSFShares {
		if p.Value == nil {
			continue
		}
		total = total.MustAdd(p)
	}
	return total
}

// HasProxy reports whether the account has assigned its vote elsewhere.
func (a *Account) HasProxy() bool { return a.Proxy != "" }
