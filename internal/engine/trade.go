package engine

// Trade is an immutable record of one fill between a resting bid and a
// resting ask, per spec.md §3. Price is always the resting (passive)
// order's price — the ask's price when the aggressor was a Buy, the
// bid's price when the aggressor was a Sell — which is what time-price
// priority guarantees is the economically correct execution price.
type Trade struct {
	BidOrderId OrderId
	AskOrderId OrderId
	Quantity   Quantity
	Price      Price
}

// Trades is a contiguous, ordered sequence of fills produced by one
// AddOrder call (spec.md §5 ordering guarantee).
type Trades []Trade
