package types

import (
	"time"

	"github.com/rusladder/LadderChain/pkg/amount"
)

// ConvertRequest is a pending SBD->STEEM (or STEEM->SBD) conversion, settled
// at the historical median feed once ConversionDate elapses (spec.md §4.9
// step 3).
type ConvertRequest struct {
	ID             ID
	Owner          AccountName
	RequestID      uint32
	Amount         amount.Amount
	ConversionDate time.Time
}

// SavingsWithdraw is a pending transfer-from-savings, released after its
// three-day (configurable) maturity (spec.md §4.9 step 6).
type SavingsWithdraw struct {
	ID         ID
	From       AccountName
	To         AccountName
	RequestID  uint32
	Amount     amount.Amount
	Memo       string
	CompleteAt time.Time
}

// EscrowStatus tracks the ratification state of an escrow_transfer.
type EscrowStatus struct {
	AgentApproved bool
	ToApproved    bool
	Disputed      bool
}

// Escrow holds funds in a three-party conditional transfer (spec.md §3
// invariant 1 references "Σ(escrow.steem)"; the full `escrow_*` evaluator
// family is named in spec.md §6).
type Escrow struct {
	ID         ID
	From       AccountName
	To         AccountName
	Agent      AccountName
	EscrowID   uint32
	SBDBalance amount.Amount
	SteemBalance amount.Amount
	Fee        amount.Amount
	RatificationDeadline time.Time
	EscrowExpiration     time.Time
	Status     EscrowStatus
}

// AccountRecoveryRequest is a pending request_account_recovery, expiring if
// not claimed via recover_account (spec.md §4.9 step 9).
type AccountRecoveryRequest struct {
	ID             ID
	AccountToRecover AccountName
	NewOwnerAuthority Authority
	ExpiresAt      time.Time
}

// ChangeRecoveryAccountRequest is a pending change_recovery_account,
// delayed before it takes effect (spec.md §4.9 step 9).
type ChangeRecoveryAccountRequest struct {
	ID              ID
	AccountToRecover AccountName
	RecoveryAccount AccountName
	EffectiveAt     time.Time
}

// OwnerAuthorityHistory records a prior owner authority for the recovery
// window, expired by housekeeping (spec.md §4.9 step 9).
type OwnerAuthorityHistory struct {
	ID           ID
	Account      AccountName
	PreviousOwner Authority
	LastValidTime time.Time
}

// DeclineVotingRightsRequest is a pending decline_voting_rights, taking
// effect after a delay so it can't be used to dodge an active vote (spec.md
// §4.9 step 9).
type DeclineVotingRightsRequest struct {
	ID        ID
	Account   AccountName
	EffectiveAt time.Time
}

// VestingDelegation is an active delegate_vesting_shares grant; returning it
// is delayed by the withdraw rules to prevent vote-weight flash loans.
type VestingDelegation struct {
	ID        ID
	Delegator AccountName
	Delegatee AccountName
	VestingShares amount.Amount
	MinDelegationTime time.Time
}

// ExpiringVestingDelegation is collateral a delegation leaves behind for a
// cooldown window after the delegator withdraws it.
type ExpiringVestingDelegation struct {
	ID          ID
	Delegator   AccountName
	VestingShares amount.Amount
	ExpiresAt   time.Time
}
