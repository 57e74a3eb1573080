package db

import (
	"context"
	"math/big"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// insertTradeSQL mirrors the teacher's sqlc InsertTradeParams shape
// (internal/engine/loop.go's persistTrades), written directly against
// pgx since the repository this was distilled from never committed the
// generated db/sqlc package.
const insertTradeSQL = `
INSERT INTO trades (id, bid_order_id, ask_order_id, price, quantity)
VALUES ($1, $2, $3, $4, $5)
`

// InsertTrade persists one matched trade. bidOrderId/askOrderId are the
// core engine's OrderId values; price/quantity are recorded as exact
// numerics to match the engine's integer-tick, integer-quantity semantics
// (spec.md §4.5 — exact arithmetic, no rounding).
func InsertTrade(ctx context.Context, pool *pgxpool.Pool, bidOrderId, askOrderId uint64, price, quantity int64) error {
	tradeID, err := uuid.NewRandom()
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, insertTradeSQL,
		pgtype.UUID{Bytes: tradeID, Valid: true},
		numericFromUint64(bidOrderId),
		numericFromUint64(askOrderId),
		numericFromInt64(price),
		numericFromInt64(quantity),
	)
	return err
}

func numericFromInt64(v int64) pgtype.Numeric {
	return pgtype.Numeric{Int: big.NewInt(v), Valid: true}
}

func numericFromUint64(v uint64) pgtype.Numeric {
	return pgtype.Numeric{Int: new(big.Int).SetUint64(v), Valid: true}
}
