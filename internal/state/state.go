// Package state holds the object-store tables and indexes spec.md §3
// names, wired together through one objectstore.Store so a single session
// spans all of them. It is deliberately its own package, imported by every
// other internal package (witness, reward, exchange, housekeeping,
// hardfork, bandwidth, invariant, evaluator, genesis, chain) so that none of
// them need import each other just to share the state shape.
//
// Grounded on beacon-chain/blockchain's service+store split
// (github.com/prysmaticlabs/prysm): State here plays the role of prysm's
// beacon state + db/kv.Store combined, since spec.md §4.1 specifies a single
// transactional object store rather than a separate state/db boundary.
package state

import (
	"github.com/rusladder/LadderChain/internal/forkdb"
	"github.com/rusladder/LadderChain/internal/objectstore"
	"github.com/rusladder/LadderChain/pkg/types"
)

// State is the full set of object-store tables and indexes spec.md §3
// names, wired together through one objectstore.Store so a single session
// spans all of them.
type State struct {
	Store *objectstore.Store

	Global    *objectstore.Table[types.DynamicGlobalProperties, *types.DynamicGlobalProperties]
	Hardforks *objectstore.Table[types.HardforkProperties, *types.HardforkProperties]
	Schedule  *objectstore.Table[types.WitnessSchedule, *types.WitnessSchedule]

	Accounts       *objectstore.Table[types.Account, *types.Account]
	AccountsByName *objectstore.Index[types.AccountName]

	Witnesses        *objectstore.Table[types.Witness, *types.Witness]
	WitnessesByOwner *objectstore.Index[types.AccountName]

	Comments      *objectstore.Table[types.Comment, *types.Comment]
	CommentsByKey *objectstore.Index[types.AuthorAndPermlink]

	CommentVotes      *objectstore.Table[types.CommentVote, *types.CommentVote]
	CommentVotesByKey *objectstore.Index[VoteKey]

	RewardFunds       *objectstore.Table[types.RewardFund, *types.RewardFund]
	RewardFundsByName *objectstore.Index[types.RewardFundName]

	BlockSummaries *objectstore.Table[types.BlockSummary, *types.BlockSummary]

	LimitOrders        *objectstore.Table[types.LimitOrder, *types.LimitOrder]
	LimitOrdersByOwner *objectstore.Index[OrderKey]

	CallOrders           *objectstore.Table[types.CallOrder, *types.CallOrder]
	CallOrdersByBorrower *objectstore.Index[BorrowerKey]

	ForceSettlements *objectstore.Table[types.ForceSettlement, *types.ForceSettlement]

	Assets               *objectstore.Table[types.Asset, *types.Asset]
	AssetsBySymbol       *objectstore.Index[string]
	AssetDynamic         *objectstore.Table[types.AssetDynamicData, *types.AssetDynamicData]
	AssetDynamicBySymbol *objectstore.Index[string]
	BitAssets            *objectstore.Table[types.AssetBitAssetData, *types.AssetBitAssetData]
	BitAssetsBySymbol    *objectstore.Index[string]

	ConvertRequests               *objectstore.Table[types.ConvertRequest, *types.ConvertRequest]
	SavingsWithdraws              *objectstore.Table[types.SavingsWithdraw, *types.SavingsWithdraw]
	Escrows                       *objectstore.Table[types.Escrow, *types.Escrow]
	AccountRecoveryRequests       *objectstore.Table[types.AccountRecoveryRequest, *types.AccountRecoveryRequest]
	ChangeRecoveryAccountRequests *objectstore.Table[types.ChangeRecoveryAccountRequest, *types.ChangeRecoveryAccountRequest]
	OwnerAuthorityHistory         *objectstore.Table[types.OwnerAuthorityHistory, *types.OwnerAuthorityHistory]
	DeclineVotingRightsRequests   *objectstore.Table[types.DeclineVotingRightsRequest, *types.DeclineVotingRightsRequest]
	VestingDelegations            *objectstore.Table[types.VestingDelegation, *types.VestingDelegation]
	ExpiringDelegations           *objectstore.Table[types.ExpiringVestingDelegation, *types.ExpiringVestingDelegation]
	AccountBandwidth              *objectstore.Table[types.AccountBandwidth, *types.AccountBandwidth]
	AccountBandwidthByKey         *objectstore.Index[BandwidthKey]

	ForkDB *forkdb.DB
}

// VoteKey is the natural key of a comment vote: one voter, one comment.
type VoteKey struct {
	Voter   types.AccountName
	Comment types.AuthorAndPermlink
}

// OrderKey is the natural key of a limit order: one owner, one local id.
type OrderKey struct {
	Owner   types.AccountName
	OrderID uint32
}

// BorrowerKey is the natural key of a call order: one borrower, one debt
// asset (an account may have at most one open call position per asset).
type BorrowerKey struct {
	Borrower types.AccountName
	Symbol   string
}

// BandwidthKey is the natural key of a per-account bandwidth meter: one
// account, one bandwidth class (forum vs. market, spec.md §4.11).
type BandwidthKey struct {
	Account types.AccountName
	Class   types.BandwidthClass
}

// New allocates and registers every table/index with a fresh Store. It does
// not seed genesis data; see internal/genesis.
func New() *State {
	s := &State{Store: objectstore.NewStore()}

	s.Global = objectstore.Register(s.Store, objectstore.NewTable[types.DynamicGlobalProperties]("global"))
	s.Hardforks = objectstore.Register(s.Store, objectstore.NewTable[types.HardforkProperties]("hardforks"))
	s.Schedule = objectstore.Register(s.Store, objectstore.NewTable[types.WitnessSchedule]("schedule"))

	s.Accounts = objectstore.Register(s.Store, objectstore.NewTable[types.Account]("accounts"))
	s.AccountsByName = objectstore.RegisterIndex[types.AccountName](s.Store, objectstore.NewIndex[types.AccountName]("accounts_by_name"))

	s.Witnesses = objectstore.Register(s.Store, objectstore.NewTable[types.Witness]("witnesses"))
	s.WitnessesByOwner = objectstore.RegisterIndex[types.AccountName](s.Store, objectstore.NewIndex[types.AccountName]("witnesses_by_owner"))

	s.Comments = objectstore.Register(s.Store, objectstore.NewTable[types.Comment]("comments"))
	s.CommentsByKey = objectstore.RegisterIndex[types.AuthorAndPermlink](s.Store, objectstore.NewIndex[types.AuthorAndPermlink]("comments_by_key"))

	s.CommentVotes = objectstore.Register(s.Store, objectstore.NewTable[types.CommentVote]("comment_votes"))
	s.CommentVotesByKey = objectstore.RegisterIndex[VoteKey](s.Store, objectstore.NewIndex[VoteKey]("comment_votes_by_key"))

	s.RewardFunds = objectstore.Register(s.Store, objectstore.NewTable[types.RewardFund]("reward_funds"))
	s.RewardFundsByName = objectstore.RegisterIndex[types.RewardFundName](s.Store, objectstore.NewIndex[types.RewardFundName]("reward_funds_by_name"))

	s.BlockSummaries = objectstore.Register(s.Store, objectstore.NewTable[types.BlockSummary]("block_summaries"))

	s.LimitOrders = objectstore.Register(s.Store, objectstore.NewTable[types.LimitOrder]("limit_orders"))
	s.LimitOrdersByOwner = objectstore.RegisterIndex[OrderKey](s.Store, objectstore.NewIndex[OrderKey]("limit_orders_by_owner"))

	s.CallOrders = objectstore.Register(s.Store, objectstore.NewTable[types.CallOrder]("call_orders"))
	s.CallOrdersByBorrower = objectstore.RegisterIndex[BorrowerKey](s.Store, objectstore.NewIndex[BorrowerKey]("call_orders_by_borrower"))

	s.ForceSettlements = objectstore.Register(s.Store, objectstore.NewTable[types.ForceSettlement]("force_settlements"))

	s.Assets = objectstore.Register(s.Store, objectstore.NewTable[types.Asset]("assets"))
	s.AssetsBySymbol = objectstore.RegisterIndex[string](s.Store, objectstore.NewIndex[string]("assets_by_symbol"))
	s.AssetDynamic = objectstore.Register(s.Store, objectstore.NewTable[types.AssetDynamicData]("asset_dynamic"))
	s.AssetDynamicBySymbol = objectstore.RegisterIndex[string](s.Store, objectstore.NewIndex[string]("asset_dynamic_by_symbol"))
	s.BitAssets = objectstore.Register(s.Store, objectstore.NewTable[types.AssetBitAssetData]("bit_assets"))
	s.BitAssetsBySymbol = objectstore.RegisterIndex[string](s.Store, objectstore.NewIndex[string]("bit_assets_by_symbol"))

	s.ConvertRequests = objectstore.Register(s.Store, objectstore.NewTable[types.ConvertRequest]("convert_requests"))
	s.SavingsWithdraws = objectstore.Register(s.Store, objectstore.NewTable[types.SavingsWithdraw]("savings_withdraws"))
	s.Escrows = objectstore.Register(s.Store, objectstore.NewTable[types.Escrow]("escrows"))
	s.AccountRecoveryRequests = objectstore.Register(s.Store, objectstore.NewTable[types.AccountRecoveryRequest]("account_recovery_requests"))
	s.ChangeRecoveryAccountRequests = objectstore.Register(s.Store, objectstore.NewTable[types.ChangeRecoveryAccountRequest]("change_recovery_account_requests"))
	s.OwnerAuthorityHistory = objectstore.Register(s.Store, objectstore.NewTable[types.OwnerAuthorityHistory]("owner_authority_history"))
	s.DeclineVotingRightsRequests = objectstore.Register(s.Store, objectstore.NewTable[types.DeclineVotingRightsRequest]("decline_voting_rights_requests"))
	s.VestingDelegations = objectstore.Register(s.Store, objectstore.NewTable[types.VestingDelegation]("vesting_delegations"))
	s.ExpiringDelegations = objectstore.Register(s.Store, objectstore.NewTable[types.ExpiringVestingDelegation]("expiring_delegations"))
	s.AccountBandwidth = objectstore.Register(s.Store, objectstore.NewTable[types.AccountBandwidth]("account_bandwidth"))
	s.AccountBandwidthByKey = objectstore.RegisterIndex[BandwidthKey](s.Store, objectstore.NewIndex[BandwidthKey]("account_bandwidth_by_key"))

	return s
}

// GD returns the singleton dynamic global properties row.
func (s *State) GD() *types.DynamicGlobalProperties {
	return s.Global.MustGet(1)
}

// HF returns the singleton hardfork properties row.
func (s *State) HF() *types.HardforkProperties {
	return s.Hardforks.MustGet(1)
}

// ActiveSchedule returns the singleton witness schedule row.
func (s *State) ActiveSchedule() *types.WitnessSchedule {
	return s.Schedule.MustGet(1)
}

// GetAccount looks up an account by name.
func (s *State) GetAccount(name types.AccountName) (*types.Account, bool) {
	id, ok := s.AccountsByName.Get(name)
	if !ok {
		return nil, false
	}
	return s.Accounts.Get(id)
}

// GetWitness looks up a witness by owner account.
func (s *State) GetWitness(owner types.AccountName) (*types.Witness, bool) {
	id, ok := s.WitnessesByOwner.Get(owner)
	if !ok {
		return nil, false
	}
	return s.Witnesses.Get(id)
}

// GetComment looks up a comment by its natural key.
func (s *State) GetComment(author types.AccountName, permlink types.Permlink) (*types.Comment, bool) {
	id, ok := s.CommentsByKey.Get(types.AuthorAndPermlink{Author: author, Permlink: permlink})
	if !ok {
		return nil, false
	}
	return s.Comments.Get(id)
}

// GetAsset looks up an asset's metadata by symbol.
func (s *State) GetAsset(symbol string) (*types.Asset, bool) {
	id, ok := s.AssetsBySymbol.Get(symbol)
	if !ok {
		return nil, false
	}
	return s.Assets.Get(id)
}

// GetAssetDynamic looks up an asset's supply-tracking record by symbol.
func (s *State) GetAssetDynamic(symbol string) (*types.AssetDynamicData, bool) {
	id, ok := s.AssetDynamicBySymbol.Get(symbol)
	if !ok {
		return nil, false
	}
	return s.AssetDynamic.Get(id)
}

// GetBitAsset looks up a market-issued asset's collateral/feed record by
// symbol.
func (s *State) GetBitAsset(symbol string) (*types.AssetBitAssetData, bool) {
	id, ok := s.BitAssetsBySymbol.Get(symbol)
	if !ok {
		return nil, false
	}
	return s.BitAssets.Get(id)
}
