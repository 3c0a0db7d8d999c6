package binance

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"spot-trading-engine/pkg/errors"
	"spot-trading-engine/pkg/types"
)

// QuantityPrecision is the number of decimals quantities are truncated to
// before they go on the wire.
const QuantityPrecision = 8

// Client is the live spot gateway on top of go-binance.
type Client struct {
	api    APIClient
	logger *zap.Logger
}

func NewClient(cfg types.ExchangeConfig, logger *zap.Logger) *Client {
	if cfg.Testnet {
		binance.UseTestnet = true
	}
	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)
	return newClientWithAPI(&realAPIClient{client: client}, logger)
}

func newClientWithAPI(api APIClient, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{api: api, logger: logger}
}

// Ticker fetches the 24h rolling statistics of symbol.
func (c *Client) Ticker(ctx context.Context, symbol string) (types.Ticker, error) {
	stats, err := c.api.NewListPriceChangeStatsService().Symbol(types.Symbol(symbol).Compact()).Do(ctx)
	if err != nil {
		return types.Ticker{}, errors.Wrapf(errors.ErrCodeFetchFailed, err, "failed to fetch ticker %s", symbol)
	}
	if len(stats) == 0 || stats[0] == nil {
		return types.Ticker{}, errors.Newf(errors.ErrCodeSymbolNotFound, "no ticker for %s", symbol)
	}

	s := stats[0]
	ticker := types.Ticker{
		Symbol:    types.Symbol(symbol),
		Timestamp: time.UnixMilli(s.CloseTime),
	}
	if ticker.LastPrice, err = parseFloat(s.LastPrice); err != nil {
		return types.Ticker{}, err
	}
	if ticker.BaseVolume, err = parseFloat(s.Volume); err != nil {
		return types.Ticker{}, err
	}
	if ticker.QuoteVolume, err = parseFloat(s.QuoteVolume); err != nil {
		return types.Ticker{}, err
	}
	if ticker.PriceChangePercent, err = parseFloat(s.PriceChangePercent); err != nil {
		return types.Ticker{}, err
	}
	return ticker, nil
}

// Candles fetches the latest limit klines of symbol, oldest first.
func (c *Client) Candles(ctx context.Context, symbol, interval string, limit int) ([]types.Kline, error) {
	raw, err := c.api.NewKlinesService().
		Symbol(types.Symbol(symbol).Compact()).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeFetchFailed, err, "failed to fetch %s klines for %s", interval, symbol)
	}

	klines := make([]types.Kline, 0, len(raw))
	for _, k := range raw {
		if k == nil {
			continue
		}
		kline := types.Kline{
			OpenTime:  time.UnixMilli(k.OpenTime),
			CloseTime: time.UnixMilli(k.CloseTime),
		}
		for _, f := range []struct {
			dst *float64
			src string
		}{
			{&kline.Open, k.Open},
			{&kline.High, k.High},
			{&kline.Low, k.Low},
			{&kline.Close, k.Close},
			{&kline.Volume, k.Volume},
		} {
			if *f.dst, err = parseFloat(f.src); err != nil {
				return nil, err
			}
		}
		klines = append(klines, kline)
	}
	return klines, nil
}

// Balance fetches the spot account balances.
func (c *Client) Balance(ctx context.Context) (types.Balance, error) {
	account, err := c.api.NewGetAccountService().Do(ctx)
	if err != nil {
		return types.Balance{}, errors.Wrap(errors.ErrCodeFetchFailed, "failed to fetch account", err)
	}

	balance := types.Balance{Free: map[string]float64{}, Total: map[string]float64{}}
	for _, b := range account.Balances {
		free, err := decimal.NewFromString(orZero(b.Free))
		if err != nil {
			return types.Balance{}, errors.Wrapf(errors.ErrCodeParseFailed, err, "invalid free balance for %s", b.Asset)
		}
		locked, err := decimal.NewFromString(orZero(b.Locked))
		if err != nil {
			return types.Balance{}, errors.Wrapf(errors.ErrCodeParseFailed, err, "invalid locked balance for %s", b.Asset)
		}
		if free.IsZero() && locked.IsZero() {
			continue
		}
		balance.Free[b.Asset] = free.InexactFloat64()
		balance.Total[b.Asset] = free.Add(locked).InexactFloat64()
	}
	return balance, nil
}

// PlaceOrder sends a market order, or a GTC limit order when req carries a
// price. Market buys are sized in quote currency, everything else in base.
func (c *Client) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.Order, error) {
	var side binance.SideType
	switch req.Side {
	case types.SideBuy:
		side = binance.SideTypeBuy
	case types.SideSell:
		side = binance.SideTypeSell
	default:
		return types.Order{}, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported order side: %s", req.Side)
	}

	clientOrderID := req.ClientOrderID
	if clientOrderID == "" {
		clientOrderID = uuid.NewString()
	}

	service := c.api.NewCreateOrderService().
		Symbol(req.Symbol.Compact()).
		Side(side).
		NewClientOrderID(clientOrderID)

	if req.IsLimit() {
		price := req.Price.Unwrap()
		if price <= 0 {
			return types.Order{}, errors.Newf(errors.ErrCodeInvalidParameter, "invalid limit price %v", price)
		}
		quantity := req.Quantity
		if quantity <= 0 && req.QuoteAmount > 0 {
			quantity = req.QuoteAmount / price
		}
		qty, err := formatQuantity(quantity)
		if err != nil {
			return types.Order{}, err
		}
		service = service.
			Type(binance.OrderTypeLimit).
			Quantity(qty).
			Price(decimal.NewFromFloat(price).String()).
			TimeInForce(binance.TimeInForceTypeGTC)
	} else {
		service = service.Type(binance.OrderTypeMarket)
		if req.Side == types.SideBuy && req.QuoteAmount > 0 {
			amount, err := formatQuantity(req.QuoteAmount)
			if err != nil {
				return types.Order{}, err
			}
			service = service.QuoteOrderQty(amount)
		} else {
			qty, err := formatQuantity(req.Quantity)
			if err != nil {
				return types.Order{}, err
			}
			service = service.Quantity(qty)
		}
	}

	resp, err := service.Do(ctx)
	if err != nil {
		return types.Order{}, errors.Wrapf(errors.ErrCodeOrderFailed, err, "failed to place %s order for %s", req.Side, req.Symbol)
	}

	order, err := toOrder(req, resp)
	if err != nil {
		return types.Order{}, err
	}

	switch resp.Status {
	case binance.OrderStatusTypeRejected, binance.OrderStatusTypeExpired, binance.OrderStatusTypeCanceled:
		return order, errors.Newf(errors.ErrCodeOrderRejected, "%s order for %s %s", req.Side, req.Symbol, strings.ToLower(string(resp.Status)))
	}

	c.logger.Info("✅ Order placed",
		zap.String("symbol", req.Symbol.String()),
		zap.String("side", string(req.Side)),
		zap.String("order_id", order.ID),
		zap.String("status", order.Status),
		zap.Float64("price", order.Price),
		zap.Float64("quantity", order.Quantity),
	)
	return order, nil
}

// Close is a no-op, the REST client holds no connection.
func (c *Client) Close() error {
	return nil
}

func toOrder(req types.OrderRequest, resp *binance.CreateOrderResponse) (types.Order, error) {
	if resp == nil {
		return types.Order{}, errors.New(errors.ErrCodeOrderFailed, "empty order response")
	}

	executed, err := decimal.NewFromString(orZero(resp.ExecutedQuantity))
	if err != nil {
		return types.Order{}, errors.Wrap(errors.ErrCodeParseFailed, "invalid executed quantity", err)
	}
	quote, err := decimal.NewFromString(orZero(resp.CummulativeQuoteQuantity))
	if err != nil {
		return types.Order{}, errors.Wrap(errors.ErrCodeParseFailed, "invalid quote quantity", err)
	}

	price := decimal.Zero
	if executed.IsPositive() {
		price = quote.Div(executed)
	} else if req.IsLimit() {
		price = decimal.NewFromFloat(req.Price.Unwrap())
	}

	return types.Order{
		ID:            strconv.FormatInt(resp.OrderID, 10),
		ClientOrderID: resp.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Status:        string(resp.Status),
		Price:         price.InexactFloat64(),
		Quantity:      executed.InexactFloat64(),
		QuoteQuantity: quote.InexactFloat64(),
		Timestamp:     time.UnixMilli(resp.TransactTime),
	}, nil
}

func formatQuantity(v float64) (string, error) {
	d := decimal.NewFromFloat(v).Truncate(QuantityPrecision)
	if !d.IsPositive() {
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "quantity %v is too small", v)
	}
	return d.String(), nil
}

func parseFloat(s string) (float64, error) {
	d, err := decimal.NewFromString(orZero(s))
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeParseFailed, err, "invalid number %q", s)
	}
	return d.InexactFloat64(), nil
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
