package engine

// Order is the value object admitted to a price level: identity, side,
// type, limit price, and initial/remaining quantity. It is mutated only
// by Fill during matching and by ToFillAndKill at Market admission time.
type Order struct {
	orderId           OrderId
	orderType         OrderType
	side              Side
	price             Price
	initialQuantity   Quantity
	remainingQuantity Quantity
}

// NewOrder constructs a live order. initialQuantity must be positive;
// callers are expected to have validated that before calling (spec.md §4.1
// precondition on AddOrder).
func NewOrder(orderType OrderType, orderId OrderId, side Side, price Price, quantity Quantity) *Order {
	return &Order{
		orderType:         orderType,
		orderId:           orderId,
		side:              side,
		price:             price,
		initialQuantity:   quantity,
		remainingQuantity: quantity,
	}
}

// NewMarketOrder constructs a Market order. Its price is InvalidPrice
// until admission rewrites it via ToFillAndKill.
func NewMarketOrder(orderId OrderId, side Side, quantity Quantity) *Order {
	return NewOrder(Market, orderId, side, InvalidPrice, quantity)
}

func (o *Order) OrderId() OrderId            { return o.orderId }
func (o *Order) Side() Side                  { return o.side }
func (o *Order) Price() Price                { return o.price }
func (o *Order) OrderType() OrderType        { return o.orderType }
func (o *Order) InitialQuantity() Quantity   { return o.initialQuantity }
func (o *Order) RemainingQuantity() Quantity { return o.remainingQuantity }
func (o *Order) FilledQuantity() Quantity    { return o.initialQuantity - o.remainingQuantity }
func (o *Order) IsFilled() bool              { return o.remainingQuantity == 0 }

// Fill reduces the remaining quantity by qty. qty must never exceed
// remainingQuantity; by construction of the matching loop (spec.md §4.5)
// this cannot happen, so a violation here is an internal bug, not a
// reachable runtime condition.
func (o *Order) Fill(qty Quantity) {
	if qty > o.remainingQuantity {
		panic(&invalidFillError{orderId: o.orderId, remaining: o.remainingQuantity, requested: qty})
	}
	o.remainingQuantity -= qty
}

// ToFillAndKill rewrites a Market order into a FillAndKill priced at the
// worst currently-resting opposite price (spec.md §4.1 step 2, §4.2).
// Only a Market order may be adjusted, and only to a finite price.
func (o *Order) ToFillAndKill(price Price) {
	if o.orderType != Market {
		panic(&invalidMarketAdjustmentError{orderId: o.orderId, reason: "only market orders can have their price adjusted"})
	}
	if price == InvalidPrice {
		panic(&invalidMarketAdjustmentError{orderId: o.orderId, reason: "order must be adjusted to a tradable price"})
	}
	o.price = price
	o.orderType = FillAndKill
}
