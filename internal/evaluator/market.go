package evaluator

import (
	"time"

	"github.com/rusladder/LadderChain/internal/state"
	"github.com/rusladder/LadderChain/pkg/amount"
	"github.com/rusladder/LadderChain/pkg/errs"
	"github.com/rusladder/LadderChain/pkg/ops"
	"github.com/rusladder/LadderChain/pkg/types"
)

func registerMarketOps(r *Registry) {
	r.Register("feed_publish", evalFeedPublish)
	r.Register("convert", evalConvert)
	r.Register("limit_order_create", evalLimitOrderCreate)
	r.Register("limit_order_create2", evalLimitOrderCreate2)
	r.Register("limit_order_cancel", evalLimitOrderCancel)
}

// conversionDelaySeconds is how long a convert request waits before settling at
// the median feed (spec.md §4.9 step 3).
const conversionDelaySeconds = 3*24*3600 + 12*3600

func evalFeedPublish(ctx *Context, op ops.Operation) error {
	o := op.(ops.FeedPublish)
	witness, ok := ctx.State.GetWitness(o.Publisher)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown witness: "+string(o.Publisher))
	}
	if o.ExchangeRate.Base.IsZero() || o.ExchangeRate.Quote.IsZero() {
		return errs.New(errs.KindValidation, "feed price cannot have a zero side")
	}
	return ctx.State.Witnesses.Modify(witness.ID, func(w *types.Witness) {
		w.SBDFeed = o.ExchangeRate
		w.SBDFeedLast = ctx.Now
		w.SBDExchangeHistory = append(w.SBDExchangeHistory, o.ExchangeRate)
		if len(w.SBDExchangeHistory) > 7 {
			w.SBDExchangeHistory = w.SBDExchangeHistory[len(w.SBDExchangeHistory)-7:]
		}
	})
}

func evalConvert(ctx *Context, op ops.Operation) error {
	o := op.(ops.Convert)
	owner, ok := ctx.State.GetAccount(o.Owner)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown account: "+string(o.Owner))
	}
	if o.Amount.Symbol != amount.SBD {
		return errs.New(errs.KindValidation, "convert only accepts SBD")
	}
	newBal, err := owner.SBDBalance.Sub(o.Amount)
	if err != nil {
		return errs.Wrap(errs.KindPrecondition, err, "insufficient SBD balance to convert")
	}
	if err := ctx.State.Accounts.Modify(owner.ID, func(a *types.Account) { a.SBDBalance = newBal }); err != nil {
		return err
	}
	ctx.State.ConvertRequests.Create(func(c *types.ConvertRequest) {
		c.Owner = o.Owner
		c.RequestID = o.RequestID
		c.Amount = o.Amount
		c.ConversionDate = ctx.Now.Add(conversionDelaySeconds * 1e9)
	})
	return nil
}

func evalLimitOrderCreate(ctx *Context, op ops.Operation) error {
	o := op.(ops.LimitOrderCreate)
	price := types.Price{Base: o.AmountToSell, Quote: o.MinToReceive}
	return createLimitOrder(ctx, o.Owner, o.OrderID, o.AmountToSell, price, o.FillOrKill, o.Expiration)
}

func evalLimitOrderCreate2(ctx *Context, op ops.Operation) error {
	o := op.(ops.LimitOrderCreate2)
	return createLimitOrder(ctx, o.Owner, o.OrderID, o.AmountToSell, o.ExchangeRate, o.FillOrKill, o.Expiration)
}

func createLimitOrder(ctx *Context, owner types.AccountName, orderID uint32, forSale amount.Amount, price types.Price, fillOrKill bool, expiration time.Time) error {
	acct, ok := ctx.State.GetAccount(owner)
	if !ok {
		return errs.New(errs.KindPrecondition, "unknown account: "+string(owner))
	}
	if price.Base.Symbol != forSale.Symbol {
		return errs.New(errs.KindValidation, "sell price base must match the asset for sale")
	}
	key := state.OrderKey{Owner: owner, OrderID: orderID}
	if _, exists := ctx.State.LimitOrdersByOwner.Get(key); exists {
		return errs.New(errs.KindPrecondition, "duplicate order id for this owner")
	}

	var newBal amount.Amount
	var err error
	switch forSale.Symbol {
	case amount.STEEM:
		newBal, err = acct.Balance.Sub(forSale)
	case amount.SBD:
		newBal, err = acct.SBDBalance.Sub(forSale)
	default:
		return errs.New(errs.KindValidation, "limit orders only support STEEM/SBD in this implementation")
	}
	if err != nil {
		return errs.Wrap(errs.KindPrecondition, err, "insufficient balance to create order")
	}
	if err := ctx.State.Accounts.Modify(acct.ID, func(a *types.Account) {
		if forSale.Symbol == amount.STEEM {
			a.Balance = newBal
		} else {
			a.SBDBalance = newBal
		}
	}); err != nil {
		return err
	}

	id, order := ctx.State.LimitOrders.Create(func(o *types.LimitOrder) {
		o.Seller = owner
		o.OrderID = orderID
		o.ForSale = forSale
		o.SellPrice = price
		o.Expiration = expiration
	})
	ctx.State.LimitOrdersByOwner.Set(key, id)

	filled, err := matchLimitOrder(ctx, order)
	if err != nil {
		return err
	}
	if fillOrKill && !filled {
		return cancelLimitOrder(ctx, order)
	}
	return nil
}

// matchLimitOrder walks resting opposing-side orders in price order and
// fills against them (spec.md §4.8 step 2: "Iterate opposing orders in
// descending price ... while their price matches or betters the incoming
// order's price"). It returns whether the incoming order was at least
// partially filled.
func matchLimitOrder(ctx *Context, incoming *types.LimitOrder) (bool, error) {
	filledAny := false
	for {
		current, ok := ctx.State.LimitOrders.Get(incoming.ID)
		if !ok || current.ForSale.IsZero() {
			return filledAny, nil
		}
		best := findBestOpposing(ctx, current)
		if best == nil || !pricesCross(current.SellPrice, best.SellPrice) {
			return filledAny, nil
		}
		if err := fillOrders(ctx, current, best); err != nil {
			return filledAny, err
		}
		filledAny = true
	}
}

// findBestOpposing scans resting orders whose sell asset is what order
// wants to receive, returning the one asking the least of what order sells
// per unit it receives, the best price for order's side. A production implementation keeps a price-sorted
// index; this linear scan is adequate at the order-book sizes this node
// targets and keeps the object store's generic Table/Index machinery as
// the only storage primitive (spec.md §4.1 "Queries return iterators
// ordered by a named index").
func findBestOpposing(ctx *Context, order *types.LimitOrder) *types.LimitOrder {
	wantSymbol := order.SellPrice.Quote.Symbol
	var best *types.LimitOrder
	ctx.State.LimitOrders.Each(func(id types.ID, o *types.LimitOrder) bool {
		if id == order.ID || o.ForSale.Symbol != wantSymbol || o.SellPrice.Quote.Symbol != order.SellPrice.Base.Symbol {
			return true
		}
		if best == nil || betterPrice(o.SellPrice, best.SellPrice) {
			best = o
		}
		return true
	})
	return best
}

// betterPrice reports whether a asks less quote per unit of base than b.
func betterPrice(a, b types.Price) bool {
	left := amount.MulDiv(a.Quote, b.Base.Value.Uint64(), 1)
	right := amount.MulDiv(b.Quote, a.Base.Value.Uint64(), 1)
	return left.Cmp(right) < 0
}

// pricesCross reports whether incoming's ask and resting's ask overlap:
// incoming wants at least resting's price, and resting wants no more than
// what incoming offers.
func pricesCross(incoming, resting types.Price) bool {
	incomingReceivePerSell := amount.MulDiv(incoming.Quote, resting.Quote.Value.Uint64(), 1)
	restingSellPerReceive := amount.MulDiv(resting.Base, incoming.Base.Value.Uint64(), 1)
	return incomingReceivePerSell.Cmp(restingSellPerReceive) <= 0
}

func fillOrders(ctx *Context, a, b *types.LimitOrder) error {
	aWantsFromB := a.AmountToReceive()
	bForSale := b.ForSale
	var aFill, bFill amount.Amount
	if aWantsFromB.Cmp(bForSale) <= 0 {
		bFill = aWantsFromB
		aFill = amount.MulDiv(bFill, a.SellPrice.Base.Value.Uint64(), a.SellPrice.Quote.Value.Uint64())
		if aFill.Cmp(a.ForSale) > 0 {
			aFill = a.ForSale
		}
	} else {
		aFill = a.ForSale
		bFill = a.AmountToReceive()
	}

	aRemain, err := a.ForSale.Sub(aFill)
	if err != nil {
		return err
	}
	bRemain, err := b.ForSale.Sub(bFill)
	if err != nil {
		return err
	}

	aSeller, _ := ctx.State.GetAccount(a.Seller)
	bSeller, _ := ctx.State.GetAccount(b.Seller)

	if err := creditFill(ctx, bSeller, aFill); err != nil {
		return err
	}
	if err := creditFill(ctx, aSeller, bFill); err != nil {
		return err
	}

	ctx.emit("fill_order", struct {
		Seller types.AccountName
		Paid   amount.Amount
		Received amount.Amount
	}{a.Seller, aFill, bFill})

	if err := ctx.State.LimitOrders.Modify(a.ID, func(o *types.LimitOrder) { o.ForSale = aRemain }); err != nil {
		return err
	}
	if err := ctx.State.LimitOrders.Modify(b.ID, func(o *types.LimitOrder) { o.ForSale = bRemain }); err != nil {
		return err
	}

	if aRemain.IsZero() {
		if err := removeLimitOrder(ctx, a); err != nil {
			return err
		}
	}
	if bRemain.IsZero() {
		if err := removeLimitOrder(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

func creditFill(ctx *Context, acct *types.Account, amt amount.Amount) error {
	return ctx.State.Accounts.Modify(acct.ID, func(a *types.Account) {
		if amt.Symbol == amount.STEEM {
			a.Balance = a.Balance.MustAdd(amt)
		} else {
			a.SBDBalance = a.SBDBalance.MustAdd(amt)
		}
	})
}

func removeLimitOrder(ctx *Context, o *types.LimitOrder) error {
	ctx.State.LimitOrdersByOwner.Delete(state.OrderKey{Owner: o.Seller, OrderID: o.OrderID})
	return ctx.State.LimitOrders.Remove(o.ID)
}

func cancelLimitOrder(ctx *Context, o *types.LimitOrder) error {
	acct, ok := ctx.State.GetAccount(o.Seller)
	if !ok {
		return errs.New(errs.KindFatal, "order references unknown seller")
	}
	if err := ctx.State.Accounts.Modify(acct.ID, func(a *types.Account) {
		if o.ForSale.Symbol == amount.STEEM {
			a.Balance = a.Balance.MustAdd(o.ForSale)
		} else {
			a.SBDBalance = a.SBDBalance.MustAdd(o.ForSale)
		}
	}); err != nil {
		return err
	}
	return removeLimitOrder(ctx, o)
}

func evalLimitOrderCancel(ctx *Context, op ops.Operation) error {
	o := op.(ops.LimitOrderCancel)
	id, ok := ctx.State.LimitOrdersByOwner.Get(state.OrderKey{Owner: o.Owner, OrderID: o.OrderID})
	if !ok {
		return errs.New(errs.KindPrecondition, "no such order")
	}
	order, ok := ctx.State.LimitOrders.Get(id)
	if !ok {
		return errs.New(errs.KindFatal, "order index points at a missing row")
	}
	return cancelLimitOrder(ctx, order)
}
