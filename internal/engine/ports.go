package engine

import (
	"context"

	"spot-trading-engine/pkg/types"
)

// Gateway is the exchange the engine trades on.
type Gateway interface {
	Ticker(ctx context.Context, symbol string) (types.Ticker, error)
	Candles(ctx context.Context, symbol, interval string, limit int) ([]types.Kline, error)
	Balance(ctx context.Context) (types.Balance, error)
	PlaceOrder(ctx context.Context, req types.OrderRequest) (types.Order, error)
	Close() error
}

// Notifier delivers messages to the operator and reads commands back.
type Notifier interface {
	Send(ctx context.Context, text string) error
	PollCommand(ctx context.Context) (string, error)
}
