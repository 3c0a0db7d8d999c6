package binance

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"spot-trading-engine/pkg/errors"
	"spot-trading-engine/pkg/types"
)

// MarketData is the read side of a gateway.
type MarketData interface {
	Ticker(ctx context.Context, symbol string) (types.Ticker, error)
	Candles(ctx context.Context, symbol, interval string, limit int) ([]types.Kline, error)
}

// Paper is the dry-run gateway: live market data, simulated fills at the
// last price and an in-memory account. Nothing reaches the exchange.
type Paper struct {
	market MarketData
	fee    decimal.Decimal
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	balances map[string]decimal.Decimal
}

// NewPaper starts the paper account with balance units of quote.
func NewPaper(market MarketData, quote string, balance, feePct float64, logger *zap.Logger) *Paper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Paper{
		market:   market,
		fee:      decimal.NewFromFloat(feePct / 2), // per side
		logger:   logger,
		now:      time.Now,
		balances: map[string]decimal.Decimal{quote: decimal.NewFromFloat(balance)},
	}
}

func (p *Paper) Ticker(ctx context.Context, symbol string) (types.Ticker, error) {
	return p.market.Ticker(ctx, symbol)
}

func (p *Paper) Candles(ctx context.Context, symbol, interval string, limit int) ([]types.Kline, error) {
	return p.market.Candles(ctx, symbol, interval, limit)
}

func (p *Paper) Balance(_ context.Context) (types.Balance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	balance := types.Balance{Free: map[string]float64{}, Total: map[string]float64{}}
	for asset, amount := range p.balances {
		balance.Free[asset] = amount.InexactFloat64()
		balance.Total[asset] = amount.InexactFloat64()
	}
	return balance, nil
}

// PlaceOrder fills the whole request immediately, at the limit price when
// one is set and at the last traded price otherwise.
func (p *Paper) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.Order, error) {
	var fill float64
	if req.IsLimit() {
		fill = req.Price.Unwrap()
	} else {
		ticker, err := p.market.Ticker(ctx, req.Symbol.String())
		if err != nil {
			return types.Order{}, errors.Wrap(errors.ErrCodeOrderFailed, "paper fill needs a price", err)
		}
		fill = ticker.LastPrice
	}
	if fill <= 0 {
		return types.Order{}, errors.Newf(errors.ErrCodeOrderFailed, "no price to fill %s", req.Symbol)
	}
	price := decimal.NewFromFloat(fill)
	base, quote := req.Symbol.Base(), req.Symbol.Quote()

	p.mu.Lock()
	defer p.mu.Unlock()

	var qty, notional decimal.Decimal
	switch req.Side {
	case types.SideBuy:
		if req.QuoteAmount > 0 {
			notional = decimal.NewFromFloat(req.QuoteAmount)
		} else {
			notional = decimal.NewFromFloat(req.Quantity).Mul(price)
		}
		if !notional.IsPositive() {
			return types.Order{}, errors.New(errors.ErrCodeInvalidParameter, "order amount must be positive")
		}
		if p.balances[quote].LessThan(notional) {
			return types.Order{}, errors.Newf(errors.ErrCodeInsufficientFunds, "paper %s balance %s below %s",
				quote, p.balances[quote].StringFixed(2), notional.StringFixed(2))
		}
		qty = notional.Div(price).Mul(decimal.NewFromInt(1).Sub(p.fee)).Truncate(QuantityPrecision)
		p.balances[quote] = p.balances[quote].Sub(notional)
		p.balances[base] = p.balances[base].Add(qty)
	case types.SideSell:
		qty = decimal.NewFromFloat(req.Quantity).Truncate(QuantityPrecision)
		if !qty.IsPositive() {
			return types.Order{}, errors.New(errors.ErrCodeInvalidParameter, "order quantity must be positive")
		}
		if p.balances[base].LessThan(qty) {
			return types.Order{}, errors.Newf(errors.ErrCodeInsufficientFunds, "paper %s balance %s below %s",
				base, p.balances[base].String(), qty.String())
		}
		notional = qty.Mul(price)
		p.balances[base] = p.balances[base].Sub(qty)
		p.balances[quote] = p.balances[quote].Add(notional.Mul(decimal.NewFromInt(1).Sub(p.fee)))
	default:
		return types.Order{}, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported order side: %s", req.Side)
	}

	clientOrderID := req.ClientOrderID
	if clientOrderID == "" {
		clientOrderID = uuid.NewString()
	}
	order := types.Order{
		ID:            "paper-" + uuid.NewString(),
		ClientOrderID: clientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Status:        "FILLED",
		Price:         fill,
		Quantity:      qty.InexactFloat64(),
		QuoteQuantity: notional.InexactFloat64(),
		Timestamp:     p.now(),
	}

	p.logger.Info("🧪 Paper order filled",
		zap.String("symbol", req.Symbol.String()),
		zap.String("side", string(req.Side)),
		zap.Float64("price", order.Price),
		zap.Float64("quantity", order.Quantity),
		zap.String("quote_balance", p.balances[quote].StringFixed(2)),
	)
	return order, nil
}

func (p *Paper) Close() error {
	if closer, ok := p.market.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
