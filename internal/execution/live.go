package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"go.uber.org/zap"

	"quantfund/internal/config"
)

const defaultMaxRetry = 3

type orderClient interface {
	CreateMarketOrder(symbol string, side string, amount float64, options ...ccxt.CreateMarketOrderOptions) (ccxt.Order, error)
}

// CCXTBroker 通过 ccxt 提交真实市价单，失败时按可重试类别退避重试。
type CCXTBroker struct {
	client   orderClient
	exchange *ccxt.Binance
	logger   *zap.Logger
	maxRetry int
}

var _ Broker = (*CCXTBroker)(nil)

// NewCCXTBroker 创建实盘经纪商。目前仅支持 binance。
func NewCCXTBroker(cfg config.ExecutionConfig, logger *zap.Logger) (*CCXTBroker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Exchange != "binance" {
		return nil, fmt.Errorf("execution: 不支持的交易所 %q", cfg.Exchange)
	}
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("execution: 实盘模式需要 API 凭证")
	}

	userConfig := map[string]interface{}{
		"apiKey":          cfg.APIKey,
		"secret":          cfg.APISecret,
		"enableRateLimit": true,
	}

	ex := ccxt.NewBinance(userConfig)
	if cfg.UseSandbox {
		ex.SetSandboxMode(true)
	}

	maxRetry := cfg.MaxRetry
	if maxRetry <= 0 {
		maxRetry = defaultMaxRetry
	}

	return &CCXTBroker{
		client:   ex,
		exchange: ex,
		logger:   logger,
		maxRetry: maxRetry,
	}, nil
}

// Connect 预加载市场元数据，验证凭证可用。
func (b *CCXTBroker) Connect(ctx context.Context) error {
	if b.exchange == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := b.exchange.LoadMarkets(); err != nil {
		return fmt.Errorf("execution: 加载市场失败: %w", err)
	}
	b.logger.Info("实盘经纪商已连接")
	return nil
}

// PlaceOrder 提交市价单，对可重试错误按线性退避重试。
func (b *CCXTBroker) PlaceOrder(ctx context.Context, order Order) error {
	if order.Shares <= 0 {
		return fmt.Errorf("execution: 委托股数无效 %d", order.Shares)
	}

	var err error
	for attempt := 1; attempt <= b.maxRetry; attempt++ {
		_, err = b.client.CreateMarketOrder(order.Symbol, string(order.Side), float64(order.Shares))
		if err == nil {
			b.logger.Info("委托已提交",
				zap.String("symbol", order.Symbol),
				zap.String("side", string(order.Side)),
				zap.Int("shares", order.Shares),
			)
			return nil
		}

		if !retryable(err) {
			return fmt.Errorf("execution: 下单失败: %w", err)
		}

		wait := time.Duration(attempt) * time.Second
		b.logger.Warn("下单失败，准备重试",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return fmt.Errorf("execution: 重试后仍下单失败: %w", err)
}

// ClosePosition 以反向市价单平仓。
func (b *CCXTBroker) ClosePosition(ctx context.Context, symbol string, shares int, price float64) error {
	return b.PlaceOrder(ctx, Order{
		Symbol: symbol,
		Side:   OrderSideSell,
		Shares: shares,
		Price:  price,
	})
}

// retryable 判断是否为可重试的交易所错误。
func retryable(err error) bool {
	if err == nil {
		return false
	}

	var ccxtErr *ccxt.Error
	if errors.As(err, &ccxtErr) {
		switch ccxtErr.Type {
		case ccxt.NetworkErrorErrType,
			ccxt.RequestTimeoutErrType,
			ccxt.ExchangeNotAvailableErrType,
			ccxt.RateLimitExceededErrType,
			ccxt.DDoSProtectionErrType,
			ccxt.BadResponseErrType,
			ccxt.NullResponseErrType:
			return true
		default:
			return false
		}
	}

	return false
}
