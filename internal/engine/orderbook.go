package engine

import (
	"container/list"
	"sort"
	"sync"
)

// orderEntry is the Identity Index's value: the order handle plus its
// position within its price level, so CancelOrder can erase it in O(1)
// amortised (spec.md §3, Identity Index).
type orderEntry struct {
	order *Order
	elem  *list.Element
}

// OrderBook holds both sides of one symbol's book, the Identity Index, and
// the Level Aggregate Index, all guarded by a single mutex (spec.md §5).
// It is the teacher's own map+sorted-price-slice shape
// (internal/engine/orderbook.go), generalized with real sorted insert and
// erase — the teacher's version declared bidPrices/askPrices but never
// implemented the logic that keeps them sorted.
type OrderBook struct {
	mu sync.Mutex

	bids map[Price]*priceLevel
	asks map[Price]*priceLevel

	bidPrices []Price // sorted descending: index 0 is best bid
	askPrices []Price // sorted ascending: index 0 is best ask

	orders     map[OrderId]*orderEntry
	aggregates *levelAggregateIndex
}

// NewOrderBook returns an empty book.
func NewOrderBook() *OrderBook {
	return &OrderBook{
		bids:       make(map[Price]*priceLevel),
		asks:       make(map[Price]*priceLevel),
		bidPrices:  make([]Price, 0),
		askPrices:  make([]Price, 0),
		orders:     make(map[OrderId]*orderEntry),
		aggregates: newLevelAggregateIndex(),
	}
}

// --- sorted price-level maintenance (lock must already be held) ---

func insertSortedDesc(prices []Price, p Price) []Price {
	i := sort.Search(len(prices), func(i int) bool { return prices[i] <= p })
	prices = append(prices, 0)
	copy(prices[i+1:], prices[i:])
	prices[i] = p
	return prices
}

func insertSortedAsc(prices []Price, p Price) []Price {
	i := sort.Search(len(prices), func(i int) bool { return prices[i] >= p })
	prices = append(prices, 0)
	copy(prices[i+1:], prices[i:])
	prices[i] = p
	return prices
}

func removeSorted(prices []Price, p Price) []Price {
	for i, v := range prices {
		if v == p {
			return append(prices[:i], prices[i+1:]...)
		}
	}
	return prices
}

// levelFor returns the live priceLevel for side/price, creating and
// registering it (sorted into bidPrices/askPrices) if absent.
func (b *OrderBook) levelFor(side Side, price Price) *priceLevel {
	if side == Buy {
		if lvl, ok := b.bids[price]; ok {
			return lvl
		}
		lvl := newPriceLevel(price)
		b.bids[price] = lvl
		b.bidPrices = insertSortedDesc(b.bidPrices, price)
		return lvl
	}
	if lvl, ok := b.asks[price]; ok {
		return lvl
	}
	lvl := newPriceLevel(price)
	b.asks[price] = lvl
	b.askPrices = insertSortedAsc(b.askPrices, price)
	return lvl
}

// dropLevelIfEmpty removes a now-empty level and its price from the
// sorted index.
func (b *OrderBook) dropLevelIfEmpty(side Side, price Price) {
	if side == Buy {
		lvl, ok := b.bids[price]
		if !ok || !lvl.empty() {
			return
		}
		delete(b.bids, price)
		b.bidPrices = removeSorted(b.bidPrices, price)
		return
	}
	lvl, ok := b.asks[price]
	if !ok || !lvl.empty() {
		return
	}
	delete(b.asks, price)
	b.askPrices = removeSorted(b.askPrices, price)
}

func (b *OrderBook) bestBidPrice() (Price, bool) {
	if len(b.bidPrices) == 0 {
		return 0, false
	}
	return b.bidPrices[0], true
}

func (b *OrderBook) bestAskPrice() (Price, bool) {
	if len(b.askPrices) == 0 {
		return 0, false
	}
	return b.askPrices[0], true
}

// worstAskPrice is the last key on the ask side — the bound a Market Buy
// is rewritten to (spec.md §4.1 step 2).
func (b *OrderBook) worstAskPrice() (Price, bool) {
	if len(b.askPrices) == 0 {
		return 0, false
	}
	return b.askPrices[len(b.askPrices)-1], true
}

// worstBidPrice is the last key on the bid side — the bound a Market Sell
// is rewritten to.
func (b *OrderBook) worstBidPrice() (Price, bool) {
	if len(b.bidPrices) == 0 {
		return 0, false
	}
	return b.bidPrices[len(b.bidPrices)-1], true
}

// insert admits order at the back of its side's price level, records it
// in the Identity Index, and increments the Level Aggregate Index
// (spec.md §4.1 step 5). Lock must already be held.
func (b *OrderBook) insert(order *Order) {
	lvl := b.levelFor(order.Side(), order.Price())
	elem := lvl.push(order)
	b.orders[order.OrderId()] = &orderEntry{order: order, elem: elem}
	b.aggregates.update(order.Price(), order.RemainingQuantity(), levelAdd)
}

// cancelInternal removes an order from its level and both indices. It does
// not take the lock — callers (CancelOrder, the matching loop, the
// Pruner's bulk-cancel path) already hold it. Per spec.md §9's corrected
// accounting, the Level Aggregate Index is decremented by the order's
// *remaining* quantity, not its initial quantity, so a partially filled
// cancel does not leave the aggregate over-counted.
func (b *OrderBook) cancelInternal(orderId OrderId) bool {
	entry, ok := b.orders[orderId]
	if !ok {
		return false
	}
	order := entry.order
	delete(b.orders, orderId)

	if order.Side() == Buy {
		lvl := b.bids[order.Price()]
		lvl.erase(entry.elem)
	} else {
		lvl := b.asks[order.Price()]
		lvl.erase(entry.elem)
	}
	b.dropLevelIfEmpty(order.Side(), order.Price())
	b.aggregates.update(order.Price(), order.RemainingQuantity(), levelRemove)
	return true
}

// --- Public Facade (spec.md §4.1) ---

// AddOrder admits order, runs any applicable admission policy, inserts it
// if accepted, and drives the matching loop. Rejections and the duplicate-
// id no-op are surfaced as an empty Trades slice, never as an error
// (spec.md §7).
func (b *OrderBook) AddOrder(order *Order) Trades {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addOrderLocked(order)
}

func (b *OrderBook) addOrderLocked(order *Order) Trades {
	if _, exists := b.orders[order.OrderId()]; exists {
		return Trades{}
	}

	if order.OrderType() == Market {
		if order.Side() == Buy {
			worst, ok := b.worstAskPrice()
			if !ok {
				return Trades{}
			}
			order.ToFillAndKill(worst)
		} else {
			worst, ok := b.worstBidPrice()
			if !ok {
				return Trades{}
			}
			order.ToFillAndKill(worst)
		}
	}

	if order.OrderType() == FillAndKill && !b.canMatch(order.Side(), order.Price()) {
		return Trades{}
	}

	if order.OrderType() == FillOrKill && !b.canFullyFill(order.Side(), order.Price(), order.RemainingQuantity()) {
		return Trades{}
	}

	b.insert(order)
	return b.matchOrders(order.Side())
}

// CancelOrder removes order from the book. Unknown ids are a silent
// no-op (spec.md §7), making repeated cancellation idempotent.
func (b *OrderBook) CancelOrder(orderId OrderId) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancelInternal(orderId)
}

// goodForDayOrderIds returns the ids of all live GoodForDay orders. Used by
// the Pruner's collect phase (spec.md §4.7 step 3); it takes the lock
// itself and releases it before returning, so the subsequent bulk-cancel
// phase can reacquire the lock once without the collection walk having to
// tolerate concurrent mutation of the map it is iterating.
func (b *OrderBook) goodForDayOrderIds() []OrderId {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]OrderId, 0)
	for id, entry := range b.orders {
		if entry.order.OrderType() == GoodForDay {
			ids = append(ids, id)
		}
	}
	return ids
}

// cancelAll cancels every id in ids under a single lock acquisition
// (spec.md §4.7 step 4). Ids no longer present (already filled or
// cancelled between the collect and cancel phases) are silently skipped,
// same as CancelOrder.
func (b *OrderBook) cancelAll(ids []OrderId) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range ids {
		b.cancelInternal(id)
	}
}

// OrderModify carries the parameters of a ModifyOrder call (spec.md §4.1).
type OrderModify struct {
	OrderId  OrderId
	Price    Price
	Quantity Quantity
}

// ModifyOrder cancels and re-admits an order at a new price/quantity,
// which puts it at the back of its new level (spec.md §4.1, testable
// property 9). The existing order's type and side are captured before the
// lock is released between the lookup and the cancel+add pair, matching
// spec.md §5's documented suspension point.
func (b *OrderBook) ModifyOrder(mod OrderModify) Trades {
	b.mu.Lock()
	entry, ok := b.orders[mod.OrderId]
	if !ok {
		b.mu.Unlock()
		return Trades{}
	}
	orderType := entry.order.OrderType()
	side := entry.order.Side()
	b.mu.Unlock()

	b.CancelOrder(mod.OrderId)
	return b.AddOrder(NewOrder(orderType, mod.OrderId, side, mod.Price, mod.Quantity))
}

// Size reports the number of live orders (spec.md §4.1).
func (b *OrderBook) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.orders)
}

// LevelInfo is one (price, aggregateRemainingQuantity) entry of a
// GetOrderInfos snapshot (spec.md §3 Trade / §4.8).
type LevelInfo struct {
	Price    Price
	Quantity Quantity
}

// OrderInfos is the consistent read GetOrderInfos returns: bids listed
// highest-first, asks lowest-first (spec.md §4.1).
type OrderInfos struct {
	Bids []LevelInfo
	Asks []LevelInfo
}

// GetOrderInfos recomputes level quantities by summation over the live
// order lists rather than reading the Level Aggregate Index, so that the
// public read model cannot be corrupted by the Remove-accounting question
// spec.md §9 raises (spec.md §4.8).
func (b *OrderBook) GetOrderInfos() OrderInfos {
	b.mu.Lock()
	defer b.mu.Unlock()

	infos := OrderInfos{
		Bids: make([]LevelInfo, 0, len(b.bidPrices)),
		Asks: make([]LevelInfo, 0, len(b.askPrices)),
	}
	for _, p := range b.bidPrices {
		infos.Bids = append(infos.Bids, LevelInfo{Price: p, Quantity: sumRemaining(b.bids[p])})
	}
	for _, p := range b.askPrices {
		infos.Asks = append(infos.Asks, LevelInfo{Price: p, Quantity: sumRemaining(b.asks[p])})
	}
	return infos
}

func sumRemaining(lvl *priceLevel) Quantity {
	var total Quantity
	for e := lvl.orders.Front(); e != nil; e = e.Next() {
		total += e.Value.(*Order).RemainingQuantity()
	}
	return total
}
