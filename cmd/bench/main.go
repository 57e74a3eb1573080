// cmd/bench replaces the teacher's cmd/engine smoke demo with a harness-
// file-driven runner: given a file argument, it replays the A/M/C/R
// records of spec.md §6 (original_source/tests/test.cpp's format) and
// reports whether the book's final shape matched the file's R line. With
// no argument it falls back to original_source/src/main.cpp's two-order
// smoke test.
package main

import (
	"fmt"
	"os"

	"github.com/hakimelghazi/exchange-core/internal/engine"
)

func main() {
	if len(os.Args) < 2 {
		runSmokeDemo()
		return
	}
	runHarnessFile(os.Args[1])
}

func runSmokeDemo() {
	book := engine.NewOrderBook()
	book.AddOrder(engine.NewOrder(engine.GoodTillCancel, 1, engine.Buy, 100, 10))
	trades := book.AddOrder(engine.NewOrder(engine.FillOrKill, 2, engine.Sell, 100, 15))

	fmt.Printf("after executing orders: size=%d trades=%d\n", book.Size(), len(trades))
}

func runHarnessFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", path, err)
		os.Exit(1)
	}
	defer f.Close()

	ops, want, err := engine.ParseHarness(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse %s: %v\n", path, err)
		os.Exit(1)
	}

	book := engine.NewOrderBook()
	engine.Apply(book, ops)

	infos := book.GetOrderInfos()
	got := engine.ExpectedResult{All: book.Size(), Bids: len(infos.Bids), Asks: len(infos.Asks)}

	if got != want {
		fmt.Printf("FAIL: got (all=%d bids=%d asks=%d) want (all=%d bids=%d asks=%d)\n",
			got.All, got.Bids, got.Asks, want.All, want.Bids, want.Asks)
		os.Exit(1)
	}
	fmt.Printf("PASS: (all=%d bids=%d asks=%d)\n", got.All, got.Bids, got.Asks)
}
