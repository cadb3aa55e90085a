// Package ops defines the tagged-union operation variants of spec.md §6.
//
// Per the design note in spec.md §9 ("represent operations as tagged
// variants; dispatch via match/switch over the tag"), each operation is its
// own Go struct implementing the small Operation interface; the evaluator
// registry (internal/evaluator) type-switches over the concrete type.
package ops

import (
	"time"

	"github.com/rusladder/LadderChain/pkg/amount"
	"github.com/rusladder/LadderChain/pkg/types"
)

// Operation is implemented by every transaction payload variant.
type Operation interface {
	// OpName is the wire/log name of the variant, e.g. "vote".
	OpName() string
}

type Vote struct {
	Voter    types.AccountName
	Author   types.AccountName
	Permlink types.Permlink
	Weight   int16 // -10000..10000
}

func (Vote) OpName() string { return "vote" }

type Comment struct {
	ParentAuthor   types.AccountName
	ParentPermlink types.Permlink
	Author         types.AccountName
	Permlink       types.Permlink
	Title          string
	Body           string
	JSONMetadata   string
}

func (Comment) OpName() string { return "comment" }

type CommentOptions struct {
	Author              types.AccountName
	Permlink            types.Permlink
	MaxAcceptedPayout   amount.Amount
	PercentSteemDollars uint16
	AllowVotes          bool
	AllowCuration        bool
	Beneficiaries        []types.Beneficiary
}

func (CommentOptions) OpName() string { return "comment_options" }

type DeleteComment struct {
	Author   types.AccountName
	Permlink types.Permlink
}

func (DeleteComment) OpName() string { return "delete_comment" }

type Transfer struct {
	From   types.AccountName
	To     types.AccountName
	Amount amount.Amount
	Memo   string
}

func (Transfer) OpName() string { return "transfer" }

type TransferToVesting struct {
	From   types.AccountName
	To     types.AccountName
	Amount amount.Amount // STEEM
}

func (TransferToVesting) OpName() string { return "transfer_to_vesting" }

type WithdrawVesting struct {
	Account       types.AccountName
	VestingShares amount.Amount
}

func (WithdrawVesting) OpName() string { return "withdraw_vesting" }

type SetWithdrawVestingRoute struct {
	FromAccount types.AccountName
	ToAccount   types.AccountName
	Percent     uint16
	AutoVest    bool
}

func (SetWithdrawVestingRoute) OpName() string { return "set_withdraw_vesting_route" }

type AccountCreate struct {
	Fee            amount.Amount
	Creator        types.AccountName
	NewAccountName types.AccountName
	Owner          types.Authority
	Active         types.Authority
	Posting        types.Authority
	MemoKey        types.PublicKey
}

func (AccountCreate) OpName() string { return "account_create" }

type AccountCreateWithDelegation struct {
	AccountCreate
	Delegation amount.Amount // VESTS
}

func (AccountCreateWithDelegation) OpName() string { return "account_create_with_delegation" }

type AccountUpdate struct {
	Account types.AccountName
	Owner   *types.Authority
	Active  *types.Authority
	Posting *types.Authority
	MemoKey types.PublicKey
}

func (AccountUpdate) OpName() string { return "account_update" }

type WitnessUpdate struct {
	Owner      types.AccountName
	URL        string
	BlockSigningKey types.PublicKey
	Props      types.ChainProperties
	Fee        amount.Amount
}

func (WitnessUpdate) OpName() string { return "witness_update" }

type AccountWitnessVote struct {
	Account types.AccountName
	Witness types.AccountName
	Approve bool
}

func (AccountWitnessVote) OpName() string { return "account_witness_vote" }

type AccountWitnessProxy struct {
	Account types.AccountName
	Proxy   types.AccountName // empty = clear proxy
}

func (AccountWitnessProxy) OpName() string { return "account_witness_proxy" }

type Custom struct {
	RequiredAuths []types.AccountName
	ID            uint16
	Data          []byte
}

func (Custom) OpName() string { return "custom" }

type CustomBinary struct {
	RequiredOwnerAuths   []types.AccountName
	RequiredActiveAuths  []types.AccountName
	RequiredPostingAuths []types.AccountName
	ID                   string
	Data                 []byte
}

func (CustomBinary) OpName() string { return "custom_binary" }

type CustomJSON struct {
	RequiredAuths        []types.AccountName
	RequiredPostingAuths []types.AccountName
	ID                   string
	JSON                 string
}

func (CustomJSON) OpName() string { return "custom_json" }

// Pow and Pow2 are accepted for API completeness (spec.md §6 lists them)
// but the evaluator always rejects them; the genesis chain-config in this
// implementation ships with MinerWitnessCount == 0, and no component models
// real proof-of-work difficulty.
type Pow struct {
	WorkerAccount types.AccountName
	Nonce         uint64
}

func (Pow) OpName() string { return "pow" }

type Pow2 struct {
	Nonce uint64
	Input []byte
}

func (Pow2) OpName() string { return "pow2" }

type ReportOverProduction struct {
	Reporter      types.AccountName
	FirstBlock    types.BlockID
	SecondBlock   types.BlockID
}

func (ReportOverProduction) OpName() string { return "report_over_production" }

type FeedPublish struct {
	Publisher types.AccountName
	ExchangeRate types.Price
}

func (FeedPublish) OpName() string { return "feed_publish" }

type Convert struct {
	Owner     types.AccountName
	RequestID uint32
	Amount    amount.Amount
}

func (Convert) OpName() string { return "convert" }

type LimitOrderCreate struct {
	Owner       types.AccountName
	OrderID     uint32
	AmountToSell amount.Amount
	MinToReceive amount.Amount
	FillOrKill  bool
	Expiration  time.Time
}

func (LimitOrderCreate) OpName() string { return "limit_order_create" }

type LimitOrderCreate2 struct {
	Owner       types.AccountName
	OrderID     uint32
	AmountToSell amount.Amount
	ExchangeRate types.Price
	FillOrKill  bool
	Expiration  time.Time
}

func (LimitOrderCreate2) OpName() string { return "limit_order_create2" }

type LimitOrderCancel struct {
	Owner   types.AccountName
	OrderID uint32
}

func (LimitOrderCancel) OpName() string { return "limit_order_cancel" }

type ChallengeAuthority struct {
	Challenger types.AccountName
	Challenged types.AccountName
	RequireOwner bool
}

func (ChallengeAuthority) OpName() string { return "challenge_authority" }

type ProveAuthority struct {
	Challenged  types.AccountName
	RequireOwner bool
}

func (ProveAuthority) OpName() string { return "prove_authority" }

type RequestAccountRecovery struct {
	RecoveryAccount  types.AccountName
	AccountToRecover types.AccountName
	NewOwnerAuthority types.Authority
}

func (RequestAccountRecovery) OpName() string { return "request_account_recovery" }

type RecoverAccount struct {
	AccountToRecover types.AccountName
	NewOwnerAuthority types.Authority
	RecentOwnerAuthority types.Authority
}

func (RecoverAccount) OpName() string { return "recover_account" }

type ChangeRecoveryAccount struct {
	AccountToRecover types.AccountName
	NewRecoveryAccount types.AccountName
}

func (ChangeRecoveryAccount) OpName() string { return "change_recovery_account" }

type EscrowTransfer struct {
	From, To, Agent types.AccountName
	EscrowID        uint32
	SBDAmount       amount.Amount
	SteemAmount     amount.Amount
	Fee             amount.Amount
	RatificationDeadline time.Time
	Expiration      time.Time
	JSONMeta        string
}

func (EscrowTransfer) OpName() string { return "escrow_transfer" }

type EscrowApprove struct {
	From, To, Agent, Who types.AccountName
	EscrowID             uint32
	Approve              bool
}

func (EscrowApprove) OpName() string { return "escrow_approve" }

type EscrowDispute struct {
	From, To, Agent, Who types.AccountName
	EscrowID             uint32
}

func (EscrowDispute) OpName() string { return "escrow_dispute" }

type EscrowRelease struct {
	From, To, Agent, Who, ReceiveAccount types.AccountName
	EscrowID     uint32
	SBDAmount    amount.Amount
	SteemAmount  amount.Amount
}

func (EscrowRelease) OpName() string { return "escrow_release" }

type TransferToSavings struct {
	From, To types.AccountName
	Amount   amount.Amount
	Memo     string
}

func (TransferToSavings) OpName() string { return "transfer_to_savings" }

type TransferFromSavings struct {
	From      types.AccountName
	RequestID uint32
	To        types.AccountName
	Amount    amount.Amount
	Memo      string
}

func (TransferFromSavings) OpName() string { return "transfer_from_savings" }

type CancelTransferFromSavings struct {
	From      types.AccountName
	RequestID uint32
}

func (CancelTransferFromSavings) OpName() string { return "cancel_transfer_from_savings" }

type DeclineVotingRights struct {
	Account types.AccountName
	Decline bool
}

func (DeclineVotingRights) OpName() string { return "decline_voting_rights" }

type ResetAccount struct {
	ResetAccount     types.AccountName
	AccountToReset   types.AccountName
	NewOwnerAuthority types.Authority
}

func (ResetAccount) OpName() string { return "reset_account" }

type SetResetAccount struct {
	Account         types.AccountName
	CurrentResetAccount types.AccountName
	ResetAccount    types.AccountName
}

func (SetResetAccount) OpName() string { return "set_reset_account" }

type DelegateVestingShares struct {
	Delegator     types.AccountName
	Delegatee     types.AccountName
	VestingShares amount.Amount
}

func (DelegateVestingShares) OpName() string { return "delegate_vesting_shares" }

type AssetCreate struct {
	Issuer        types.AccountName
	Symbol        string
	Precision     uint8
	IsMarketIssued bool
	Options       types.AssetOptions
	BitassetMCR   uint16
}

func (AssetCreate) OpName() string { return "asset_create" }

type AssetIssue struct {
	Issuer types.AccountName
	Amount amount.Amount
	Symbol string
	To     types.AccountName
	Memo   string
}

func (AssetIssue) OpName() string { return "asset_issue" }

type AssetReserve struct {
	Payer  types.AccountName
	Amount amount.Amount
	Symbol string
}

func (AssetReserve) OpName() string { return "asset_reserve" }

type AssetUpdate struct {
	Issuer  types.AccountName
	Symbol  string
	NewOptions types.AssetOptions
}

func (AssetUpdate) OpName() string { return "asset_update" }

type AssetUpdateBitasset struct {
	Issuer types.AccountName
	Symbol string
	NewMCR uint16
	FeedLifetimeSecs time.Duration
}

func (AssetUpdateBitasset) OpName() string { return "asset_update_bitasset" }

type AssetUpdateFeedProducers struct {
	Issuer        types.AccountName
	Symbol        string
	NewFeedProducers []types.AccountName
}

func (AssetUpdateFeedProducers) OpName() string { return "asset_update_feed_producers" }

type AssetFundFeePool struct {
	From   types.AccountName
	Symbol string
	Amount amount.Amount // STEEM
}

func (AssetFundFeePool) OpName() string { return "asset_fund_fee_pool" }

type AssetGlobalSettle struct {
	Issuer         types.AccountName
	Symbol         string
	SettlementPrice types.Price
}

func (AssetGlobalSettle) OpName() string { return "asset_global_settle" }

type AssetSettle struct {
	Account types.AccountName
	Amount  amount.Amount
	Symbol  string
}

func (AssetSettle) OpName() string { return "asset_settle" }

type AssetForceSettle struct {
	Account types.AccountName
	Amount  amount.Amount
	Symbol  string
}

func (AssetForceSettle) OpName() string { return "asset_force_settle" }

type AssetPublishFeeds struct {
	Publisher types.AccountName
	Symbol    string
	Feed      types.Price
}

func (AssetPublishFeeds) OpName() string { return "asset_publish_feeds" }

type AssetClaimFees struct {
	Issuer types.AccountName
	Symbol string
	Amount amount.Amount
}

func (AssetClaimFees) OpName() string { return "asset_claim_fees" }

type CallOrderUpdate struct {
	Borrower         types.AccountName
	DebtSymbol       string
	DeltaDebt        amount.Amount
	DeltaCollateral  amount.Amount
}

func (CallOrderUpdate) OpName() string { return "call_order_update" }
