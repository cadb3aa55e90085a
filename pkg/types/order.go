package types

import (
	"time"

	"github.com/rusladder/LadderChain/pkg/amount"
)

// LimitOrder is a resting order-book entry of spec.md §3 / §4.8.
type LimitOrder struct {
	ID         ID
	Seller     AccountName
	OrderID    uint32 // seller-scoped id, echoed back on fill/cancel
	ForSale    amount.Amount
	SellPrice  Price
	Expiration time.Time
	DeferredFee amount.Amount
}

// AmountToReceive is ForSale converted at SellPrice, i.e. what the order
// wants in return.
func (o *LimitOrder) AmountToReceive() amount.Amount {
	return amount.MulDiv(o.ForSale, o.SellPrice.Quote.Value.Uint64(), o.SellPrice.Base.Value.Uint64())
}

// CallOrder is a collateralized debt position of spec.md §3 / §4.8.
type CallOrder struct {
	ID       ID
	Borrower AccountName
	// DebtSymbol names which market-issued asset this position owes, since
	// amount.Amount's Symbol only distinguishes STEEM/SBD/VESTS/MarketIssued
	// and cannot itself tell two bitassets apart.
	DebtSymbol string
	Debt       amount.Amount // market-issued asset owed
	Collateral amount.Amount // backing asset held
	// CallPriceBase/Quote cache the derived call price = f(debt, collateral,
	// MCR); spec.md §3 "derived call price".
	CallPrice Price
}

// CollateralRatio returns collateral/debt as a BigRatio for comparisons
// (least-collateralized-first ordering in the margin-call scan, spec.md
// §4.8).
func (c *CallOrder) CollateralRatio() *BigRatio {
	if c.Debt.IsZero() {
		return NewBigRatio(1<<62, 1)
	}
	return NewBigRatio(int64(c.Collateral.Value.Uint64()), int64(c.Debt.Value.Uint64()))
}

// ForceSettlement is a pending settle-at-feed request of spec.md §3.
type ForceSettlement struct {
	ID      ID
	Owner   AccountName
	Balance amount.Amount // market-issued asset being settled
	SettlementDate time.Time
}
