package engine

import "testing"

func TestFullFill(t *testing.T) {
	ob := NewOrderBook()
	ob.AddOrder(newTestOrder(1, Sell, 100, 1))
	trades := ob.AddOrder(newTestOrder(2, Buy, 100, 1))

	if len(trades) != 1 {
		t.Fatalf("expected one trade, got %d", len(trades))
	}
	if trades[0].Quantity != 1 || trades[0].Price != 100 {
		t.Fatalf("unexpected trade: %+v", trades[0])
	}

	if _, ok := ob.orders[1]; ok {
		t.Fatalf("order 1 still in identity index")
	}
	if _, ok := ob.orders[2]; ok {
		t.Fatalf("order 2 still in identity index")
	}
	if len(ob.askPrices) != 0 || len(ob.bidPrices) != 0 {
		t.Fatalf("expected empty book")
	}
}

func TestPartialFill(t *testing.T) {
	ob := NewOrderBook()
	ob.AddOrder(newTestOrder(1, Buy, 105, 2))
	ob.AddOrder(newTestOrder(2, Sell, 104, 1))

	ref, ok := ob.orders[1]
	if !ok {
		t.Fatalf("order 1 was removed")
	}
	if ref.order.Side() != Buy || ref.order.Price() != 105 || ref.order.RemainingQuantity() != 1 {
		t.Fatalf("order 1 was modified unexpectedly: %+v", ref.order)
	}

	if _, ok := ob.orders[2]; ok {
		t.Fatalf("order 2 was not removed after being filled")
	}
}

func TestNoMatch(t *testing.T) {
	ob := NewOrderBook()
	ob.AddOrder(newTestOrder(1, Sell, 130, 3))
	ob.AddOrder(newTestOrder(2, Buy, 110, 1))

	if _, ok := ob.orders[1]; !ok {
		t.Fatalf("order 1 was removed")
	}
	if _, ok := ob.orders[2]; !ok {
		t.Fatalf("order 2 was removed")
	}
	if len(ob.askPrices) != 1 || len(ob.bidPrices) != 1 {
		t.Fatalf("expected 1 ask and 1 bid")
	}
}

func TestMarketWalk(t *testing.T) {
	ob := NewOrderBook()

	for i := 0; i < 10; i++ {
		ob.AddOrder(newTestOrder(OrderId(i+1), Sell, Price(100+i), 1))
	}

	ob.AddOrder(newTestOrder(100, Buy, 115, 5))

	for i := 0; i < 5; i++ {
		if _, ok := ob.orders[OrderId(i+1)]; ok {
			t.Fatalf("order %d should have been filled", i+1)
		}
	}
	for i := 5; i < 10; i++ {
		if _, ok := ob.orders[OrderId(i+1)]; !ok {
			t.Fatalf("order %d should still be resting", i+1)
		}
	}
	if _, ok := ob.orders[100]; ok {
		t.Fatalf("aggressor should be fully filled and not resting")
	}
	if len(ob.askPrices) != 5 {
		t.Fatalf("expected 5 ask price levels left, got %d", len(ob.askPrices))
	}
}

// S1 (GTC match): A GTC 1 B 100 10, A GTC 2 S 100 10 -> (0,0,0); one trade (10 @ 100).
func TestScenarioGTCMatch(t *testing.T) {
	ob := NewOrderBook()
	ob.AddOrder(newTestOrder(1, Buy, 100, 10))
	trades := ob.AddOrder(newTestOrder(2, Sell, 100, 10))

	if ob.Size() != 0 {
		t.Fatalf("expected empty book, got size %d", ob.Size())
	}
	if len(trades) != 1 || trades[0].Quantity != 10 || trades[0].Price != 100 {
		t.Fatalf("unexpected trades: %+v", trades)
	}
}

// S2 (FAK residue cancelled): A GTC 1 B 100 5, A FAK 2 S 100 10 -> (0,0,0);
// one trade (5 @ 100); the FAK's 5 residue is cancelled.
func TestScenarioFAKResidueCancelled(t *testing.T) {
	ob := NewOrderBook()
	ob.AddOrder(newTestOrder(1, Buy, 100, 5))
	trades := ob.AddOrder(NewOrder(FillAndKill, 2, Sell, 100, 10))

	if ob.Size() != 0 {
		t.Fatalf("expected empty book, got size %d", ob.Size())
	}
	if len(trades) != 1 || trades[0].Quantity != 5 {
		t.Fatalf("unexpected trades: %+v", trades)
	}
}

// S3 (FOK hit): A GTC 1 S 100 10, A GTC 2 S 101 10, A FOK 3 B 101 15 ->
// (1,0,1); two trades (10 @ 100, 5 @ 101); level at 101 has 5 left.
func TestScenarioFOKHit(t *testing.T) {
	ob := NewOrderBook()
	ob.AddOrder(newTestOrder(1, Sell, 100, 10))
	ob.AddOrder(newTestOrder(2, Sell, 101, 10))
	trades := ob.AddOrder(NewOrder(FillOrKill, 3, Buy, 101, 15))

	if ob.Size() != 1 {
		t.Fatalf("expected 1 order left, got %d", ob.Size())
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	lvl := ob.asks[101]
	if lvl == nil || sumRemaining(lvl) != 5 {
		t.Fatalf("expected 5 remaining at 101")
	}
}

// S4 (FOK miss): A GTC 1 S 100 5, A FOK 2 B 100 10 -> (1,0,1); no trades.
func TestScenarioFOKMiss(t *testing.T) {
	ob := NewOrderBook()
	ob.AddOrder(newTestOrder(1, Sell, 100, 5))
	trades := ob.AddOrder(NewOrder(FillOrKill, 2, Buy, 100, 10))

	if len(trades) != 0 {
		t.Fatalf("expected no trades, got %+v", trades)
	}
	if ob.Size() != 1 {
		t.Fatalf("expected original order untouched, size=%d", ob.Size())
	}
}

// S5 (Cancel): A GTC 1 B 100 10, C 1 -> (0,0,0).
func TestScenarioCancel(t *testing.T) {
	ob := NewOrderBook()
	ob.AddOrder(newTestOrder(1, Buy, 100, 10))
	ob.CancelOrder(1)

	if ob.Size() != 0 {
		t.Fatalf("expected empty book, got %d", ob.Size())
	}
}

// S6 (Modify moves order to new level at back):
// A GTC 1 B 100 10, A GTC 2 B 100 10, M 1 101 10 -> (2,2,0); order 1 alone at 101.
func TestScenarioModifyMovesLevel(t *testing.T) {
	ob := NewOrderBook()
	ob.AddOrder(newTestOrder(1, Buy, 100, 10))
	ob.AddOrder(newTestOrder(2, Buy, 100, 10))
	ob.ModifyOrder(OrderModify{OrderId: 1, Price: 101, Quantity: 10})

	if ob.Size() != 2 {
		t.Fatalf("expected 2 orders, got %d", ob.Size())
	}
	lvl := ob.bids[101]
	if lvl == nil || lvl.orders.Len() != 1 || lvl.front().OrderId() != 1 {
		t.Fatalf("expected order 1 alone at 101")
	}
}

// S7 (Market sweeps worst-price bound): asks 100:5 and 101:5;
// A M 3 B _ 20 -> two trades totalling 10 filled at 100 and 101; residue cancelled.
func TestScenarioMarketSweep(t *testing.T) {
	ob := NewOrderBook()
	ob.AddOrder(newTestOrder(1, Sell, 100, 5))
	ob.AddOrder(newTestOrder(2, Sell, 101, 5))

	trades := ob.AddOrder(NewMarketOrder(3, Buy, 20))

	var total Quantity
	for _, tr := range trades {
		total += tr.Quantity
	}
	if total != 10 {
		t.Fatalf("expected 10 filled, got %d", total)
	}
	if _, ok := ob.orders[3]; ok {
		t.Fatalf("market order residue should have been cancelled")
	}
	if len(ob.askPrices) != 0 {
		t.Fatalf("expected both ask levels consumed")
	}
}

func TestMarketRejectedWhenOppositeSideEmpty(t *testing.T) {
	ob := NewOrderBook()
	trades := ob.AddOrder(NewMarketOrder(1, Buy, 10))

	if len(trades) != 0 {
		t.Fatalf("expected rejection, got trades: %+v", trades)
	}
	if ob.Size() != 0 {
		t.Fatalf("rejected market order must not be admitted")
	}
}

func TestCancelAccountingUsesRemainingQuantity(t *testing.T) {
	ob := NewOrderBook()
	ob.AddOrder(newTestOrder(1, Sell, 100, 10))
	ob.AddOrder(newTestOrder(3, Sell, 100, 5))
	ob.AddOrder(newTestOrder(2, Buy, 100, 4)) // partially fills order 1 down to 6 remaining

	ob.CancelOrder(1)

	// Removing the remaining 6 leaves order 3's 5; removing the initial 10
	// would leave 1.
	entry, ok := ob.aggregates.data[100]
	if !ok || entry.count != 1 || entry.aggregateQuantity != 5 {
		t.Fatalf("expected aggregate at 100 to hold only order 3 (count 1, quantity 5), got %+v", entry)
	}

	ob.CancelOrder(3)

	if _, ok := ob.aggregates.data[100]; ok {
		t.Fatalf("expected aggregate entry at 100 to be fully cleared after cancel")
	}
}
