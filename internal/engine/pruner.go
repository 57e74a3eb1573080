package engine

import (
	"context"
	"log"
	"time"
)

// marketCloseHour is the session-close hour, Eastern time (spec.md §4.7
// step 1; original_source/include/Constants.h's MARKET_CLOSE_HOUR).
const marketCloseHour = 16

// closeBuffer is added to the computed deadline so the sweep fires just
// after the close instant rather than racing it.
const closeBuffer = 100 * time.Millisecond

// Pruner is the background GoodForDay sweeper (spec.md §4.7). Unlike the
// original C++ (original_source/include/OrderBook.h's
// EASTERN_OFFSET_EDT), it resolves a real IANA time zone so the close
// fires at the correct wall-clock instant across DST transitions
// (spec.md §9's redesign note).
type Pruner struct {
	book *OrderBook
	loc  *time.Location
}

// NewPruner builds a sweeper for book, resolving America/New_York. If the
// zone database is unavailable the pruner falls back to a fixed EST
// offset rather than failing the whole engine — a sweep that fires an
// hour off in that degraded mode is preferable to none at all.
func NewPruner(book *OrderBook) *Pruner {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		log.Printf("pruner: time zone database unavailable, falling back to fixed EST offset: %v", err)
		loc = time.FixedZone("EST", -5*60*60)
	}
	return &Pruner{book: book, loc: loc}
}

// nextClose returns the next session-close instant: today at
// marketCloseHour in p.loc, or tomorrow's if today's has already passed
// (spec.md §4.7 step 1).
func (p *Pruner) nextClose(now time.Time) time.Time {
	local := now.In(p.loc)
	close := time.Date(local.Year(), local.Month(), local.Day(), marketCloseHour, 0, 0, 0, p.loc)
	if !close.After(local) {
		close = close.AddDate(0, 0, 1)
	}
	return close
}

// Run sleeps until the next close (plus a small buffer) or until ctx is
// cancelled, sweeps GoodForDay orders, and repeats (spec.md §4.7 steps
// 1-4). ctx cancellation stands in for the original's shutdown condition
// variable: it wakes the sleep and the goroutine returns.
func (p *Pruner) Run(ctx context.Context) {
	for {
		deadline := p.nextClose(time.Now())
		wait := time.Until(deadline) + closeBuffer

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
			p.sweep()
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// sweep is the two-phase collect-then-cancel pattern spec.md §4.7
// requires: the ids are gathered under one lock acquisition, released,
// then cancelled under a second acquisition, so the cancel path never
// needs to tolerate the collection walk mutating the map mid-iteration.
func (p *Pruner) sweep() {
	ids := p.book.goodForDayOrderIds()
	if len(ids) == 0 {
		return
	}
	p.book.cancelAll(ids)
}
