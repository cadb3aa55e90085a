package types

import (
	"time"

	"github.com/rusladder/LadderChain/pkg/amount"
)

// AssetOptions carries the flags/limits spec.md §3 groups under
// "options" for a market-issued asset.
type AssetOptions struct {
	MarketFeePercent uint16 // basis points
	MaxMarketFee     amount.Amount
	WhitelistOnly    bool
	Whitelist        map[AccountName]struct{}
	ShortBackingAsset string // symbol of the collateral asset
}

// Asset is the per-symbol metadata record of spec.md §3.
type Asset struct {
	ID     ID
	Symbol string
	Issuer AccountName
	Precision uint8

	Options AssetOptions

	IsMarketIssued  bool
	IsPredictionMarket bool

	FeePool amount.Amount // see SPEC_FULL.md "Fee pool" supplement
}

// AssetDynamicData is the mutable supply-tracking half of an Asset
// (spec.md §3).
type AssetDynamicData struct {
	ID              ID
	AssetSymbol     string
	CurrentSupply   amount.Amount
	AccumulatedFees amount.Amount
}

// AssetBitAssetData is the collateralized/price-fed half of a market-issued
// asset (spec.md §3).
type AssetBitAssetData struct {
	ID          ID
	AssetSymbol string

	CurrentFeed       Price
	FeedProducers     map[AccountName]struct{}
	FeedHistory       []Price
	FeedLifetimeSecs  time.Duration

	IsGloballySettled bool
	SettlementPrice   Price
	SettlementFund    amount.Amount

	MaxMarginCallRatio uint16 // MCR in basis points, e.g. 16500 = 1.65x

	LastFeedUpdate time.Time
}

// MedianFeed returns the current median price feed, or ok=false if the
// bitasset has no valid feed (spec.md §3 "current price feed (median of
// witness-submitted feeds)").
func (d *AssetBitAssetData) MedianFeed() (Price, bool) {
	if d.CurrentFeed.Base.IsZero() || d.CurrentFeed.Quote.IsZero() {
		return Price{}, false
	}
	return d.CurrentFeed, true
}
