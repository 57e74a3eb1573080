// internal/engine/loop.go
package engine

import (
	"context"
	"log"

	"github.com/hakimelghazi/exchange-core/db"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Engine wraps an OrderBook behind a serialized command queue and a trade-
// persistence hook. The book itself already serializes every mutating
// operation under its own mutex (spec.md §5); the command queue here is
// the external collaborator that turns that synchronous API into the
// single-writer channel shape the teacher's cmd/server expects. The Pruner
// (§4.7) does not go through the queue: it calls the book directly and
// relies on the book's mutex.
type Engine struct {
	book   *OrderBook
	pruner *Pruner
	cmds   chan Command
	done   chan struct{}

	pool *pgxpool.Pool
}

// NewEngine wires a fresh book, its GoodForDay pruner, and a buffered
// command channel. pool may be nil, in which case trades are matched but
// never persisted — the core engine does not require a database
// (spec.md §1 Non-goals: persistence/recovery is out of scope for the
// core itself).
func NewEngine(buffer int, pool *pgxpool.Pool) *Engine {
	book := NewOrderBook()
	return &Engine{
		book:   book,
		pruner: NewPruner(book),
		cmds:   make(chan Command, buffer),
		done:   make(chan struct{}),
		pool:   pool,
	}
}

// Run drains the command queue until ctx is cancelled, and starts the
// Pruner alongside it. It is the only goroutine that consumes the command
// queue; the Pruner goroutine it starts mutates the book on its own.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.done)

	go e.pruner.Run(ctx)

	for {
		select {
		case cmd := <-e.cmds:
			switch cmd.Type {

			case CmdPlace:
				trades := e.book.AddOrder(cmd.Order)
				e.persist(ctx, trades)
				cmd.Resp <- trades

			case CmdCancel:
				e.book.CancelOrder(cmd.Id)
				cmd.Resp <- Trades{}

			case CmdModify:
				trades := e.book.ModifyOrder(cmd.Modify)
				e.persist(ctx, trades)
				cmd.Resp <- trades
			}

		case <-ctx.Done():
			return
		}
	}
}

// Place submits an order through the command queue and waits for the
// resulting trades.
func (e *Engine) Place(ctx context.Context, order *Order) (Trades, error) {
	resp := make(chan Trades, 1)
	select {
	case e.cmds <- Command{Type: CmdPlace, Order: order, Resp: resp}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case trades := <-resp:
		return trades, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel submits a cancel through the command queue.
func (e *Engine) Cancel(ctx context.Context, id OrderId) error {
	resp := make(chan Trades, 1)
	select {
	case e.cmds <- Command{Type: CmdCancel, Id: id, Resp: resp}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-resp:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Modify submits a modify through the command queue.
func (e *Engine) Modify(ctx context.Context, mod OrderModify) (Trades, error) {
	resp := make(chan Trades, 1)
	select {
	case e.cmds <- Command{Type: CmdModify, Modify: mod, Resp: resp}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case trades := <-resp:
		return trades, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Size and GetOrderInfos read straight through to the book; both already
// take its mutex, so no serialization through the command queue is
// needed for read-only operations (spec.md §5).
func (e *Engine) Size() int                  { return e.book.Size() }
func (e *Engine) GetOrderInfos() OrderInfos  { return e.book.GetOrderInfos() }

func (e *Engine) persist(ctx context.Context, trades Trades) {
	if e.pool == nil || len(trades) == 0 {
		return
	}
	for _, tr := range trades {
		if err := db.InsertTrade(ctx, e.pool, uint64(tr.BidOrderId), uint64(tr.AskOrderId), int64(tr.Price), int64(tr.Quantity)); err != nil {
			log.Printf("persist trade failed: %v", err)
		}
	}
}
