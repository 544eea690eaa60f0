package execution

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"quantfund/internal/config"
	"quantfund/internal/risk"
)

// Engine 消费风控批准后的交易请求并转发给经纪商。
// broker 为空时退化为纸面日志模式：只记录，不产生任何委托。
type Engine struct {
	broker Broker
	logger *zap.Logger
}

// NewEngine 创建执行引擎。
func NewEngine(broker Broker, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{broker: broker, logger: logger}
}

// NewBrokerFromConfig 在组装期按配置选择经纪商实现：
// paper 为真时使用纸面经纪商，否则构建 CCXT 实盘经纪商。
func NewBrokerFromConfig(cfg config.ExecutionConfig, logger *zap.Logger) (Broker, error) {
	if cfg.Paper {
		return NewPaperBroker(logger), nil
	}

	broker, err := NewCCXTBroker(cfg, logger)
	if err != nil {
		return nil, err
	}
	return broker, nil
}

// Connect 建立经纪商连接。纸面日志模式下为空操作。
func (e *Engine) Connect(ctx context.Context) error {
	if e.broker == nil {
		return nil
	}
	return e.broker.Connect(ctx)
}

// Execute 执行一笔已获风控批准的交易请求。
func (e *Engine) Execute(ctx context.Context, request risk.TradeRequest) error {
	if request.Shares <= 0 {
		return fmt.Errorf("execution: 无效股数 %d", request.Shares)
	}

	if e.broker == nil {
		e.logger.Info("纸面日志模式委托",
			zap.String("symbol", request.Symbol),
			zap.Int("shares", request.Shares),
			zap.Float64("entry_price", request.EntryPrice),
		)
		return nil
	}

	order := Order{
		Symbol: request.Symbol,
		Side:   OrderSideBuy,
		Shares: request.Shares,
		Price:  request.EntryPrice,
	}
	if err := e.broker.PlaceOrder(ctx, order); err != nil {
		return fmt.Errorf("execution: 提交委托失败: %w", err)
	}

	e.logger.Info("委托已提交",
		zap.String("symbol", order.Symbol),
		zap.Int("shares", order.Shares),
		zap.Float64("price", order.Price),
	)
	return nil
}

// Close 将平仓请求转发给经纪商。
func (e *Engine) Close(ctx context.Context, symbol string, shares int, price float64) error {
	if shares <= 0 {
		return fmt.Errorf("execution: 无效股数 %d", shares)
	}

	if e.broker == nil {
		e.logger.Info("纸面日志模式平仓",
			zap.String("symbol", symbol),
			zap.Int("shares", shares),
			zap.Float64("price", price),
		)
		return nil
	}
	return e.broker.ClosePosition(ctx, symbol, shares, price)
}
