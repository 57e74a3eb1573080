package engine

// canMatch reports whether an aggressor on side at price crosses the
// current best opposite price (spec.md §4.3). Lock must already be held.
func (b *OrderBook) canMatch(side Side, price Price) bool {
	if side == Buy {
		bestAsk, ok := b.bestAskPrice()
		if !ok {
			return false
		}
		return price >= bestAsk
	}
	bestBid, ok := b.bestBidPrice()
	if !ok {
		return false
	}
	return price <= bestBid
}

// canFullyFill is FillOrKill's pre-trade check (spec.md §4.4): true iff
// quantity can be matched in full against current opposite-side depth at
// or better than price, without mutating anything. It walks the Level
// Aggregate Index — an unordered map — because the threshold/limit skip
// rules below make the result independent of iteration order; subtraction
// is commutative.
func (b *OrderBook) canFullyFill(side Side, price Price, quantity Quantity) bool {
	if !b.canMatch(side, price) {
		return false
	}

	var threshold Price
	if side == Buy {
		bestAsk, _ := b.bestAskPrice()
		threshold = bestAsk
	} else {
		bestBid, _ := b.bestBidPrice()
		threshold = bestBid
	}

	for levelPrice, entry := range b.aggregates.data {
		if side == Buy {
			if threshold > levelPrice {
				continue // inside the spread, not yet tradable
			}
			if levelPrice > price {
				continue // worse than the aggressor's limit
			}
		} else {
			if threshold < levelPrice {
				continue
			}
			if levelPrice < price {
				continue
			}
		}

		if quantity <= entry.aggregateQuantity {
			return true
		}
		quantity -= entry.aggregateQuantity
	}

	return false
}

// matchOrders is the core matching loop (spec.md §4.5). It consumes the
// top of both books while they cross, emitting trades at the resting
// order's price, and applies the FillAndKill residue rule once the book
// settles. aggressor is the side of the order that was just admitted and
// triggered this call; by the never-crossed invariant it names which side
// is passive (resting) for every fill this call produces, which is the
// side whose own price becomes the trade price. Lock must already be held.
func (b *OrderBook) matchOrders(aggressor Side) Trades {
	trades := make(Trades, 0)

	for {
		bestBidPrice, hasBid := b.bestBidPrice()
		bestAskPrice, hasAsk := b.bestAskPrice()
		if !hasBid || !hasAsk {
			break
		}
		if bestBidPrice < bestAskPrice {
			break
		}

		levelBids := b.bids[bestBidPrice]
		levelAsks := b.asks[bestAskPrice]

		for !levelBids.empty() && !levelAsks.empty() {
			bid := levelBids.front()
			ask := levelAsks.front()

			qty := bid.RemainingQuantity()
			if ask.RemainingQuantity() < qty {
				qty = ask.RemainingQuantity()
			}

			bid.Fill(qty)
			ask.Fill(qty)

			bidFilled := bid.IsFilled()
			askFilled := ask.IsFilled()

			if bidFilled {
				levelBids.popFront()
				delete(b.orders, bid.OrderId())
			}
			if askFilled {
				levelAsks.popFront()
				delete(b.orders, ask.OrderId())
			}

			tradePrice := ask.Price()
			if aggressor == Sell {
				tradePrice = bid.Price()
			}
			trades = append(trades, Trade{
				BidOrderId: bid.OrderId(),
				AskOrderId: ask.OrderId(),
				Quantity:   qty,
				Price:      tradePrice,
			})

			if bidFilled {
				b.aggregates.update(bestBidPrice, qty, levelRemove)
			} else {
				b.aggregates.update(bestBidPrice, qty, levelMatch)
			}
			if askFilled {
				b.aggregates.update(bestAskPrice, qty, levelRemove)
			} else {
				b.aggregates.update(bestAskPrice, qty, levelMatch)
			}
		}

		b.dropLevelIfEmpty(Buy, bestBidPrice)
		b.dropLevelIfEmpty(Sell, bestAskPrice)
	}

	b.cancelFillAndKillResidue()
	return trades
}

// cancelFillAndKillResidue implements spec.md §4.5's post-loop rule: a
// FillAndKill order that partially filled must never rest on the book, so
// if it is sitting at the front of the best bid or best ask level after
// matching settles, it is cancelled internally.
func (b *OrderBook) cancelFillAndKillResidue() {
	if bestBidPrice, ok := b.bestBidPrice(); ok {
		front := b.bids[bestBidPrice].front()
		if front.OrderType() == FillAndKill {
			b.cancelInternal(front.OrderId())
		}
	}
	if bestAskPrice, ok := b.bestAskPrice(); ok {
		front := b.asks[bestAskPrice].front()
		if front.OrderType() == FillAndKill {
			b.cancelInternal(front.OrderId())
		}
	}
}
