package execution

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PaperBroker 为纸面经纪商：只记录委托，不与任何交易所交互。
type PaperBroker struct {
	logger *zap.Logger

	mu     sync.Mutex
	orders []Order
}

var _ Broker = (*PaperBroker)(nil)

// NewPaperBroker 创建纸面经纪商。
func NewPaperBroker(logger *zap.Logger) *PaperBroker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaperBroker{logger: logger}
}

// Connect 纸面模式无需连接。
func (b *PaperBroker) Connect(ctx context.Context) error {
	b.logger.Info("纸面经纪商已就绪")
	return nil
}

// PlaceOrder 记录委托并返回。
func (b *PaperBroker) PlaceOrder(ctx context.Context, order Order) error {
	if order.SubmittedAt.IsZero() {
		order.SubmittedAt = time.Now().UTC()
	}

	b.mu.Lock()
	b.orders = append(b.orders, order)
	b.mu.Unlock()

	b.logger.Info("纸面委托已记录",
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.Int("shares", order.Shares),
		zap.Float64("price", order.Price),
	)
	return nil
}

// ClosePosition 以卖出委托记录平仓。
func (b *PaperBroker) ClosePosition(ctx context.Context, symbol string, shares int, price float64) error {
	return b.PlaceOrder(ctx, Order{
		Symbol: symbol,
		Side:   OrderSideSell,
		Shares: shares,
		Price:  price,
	})
}

// Orders 返回已记录委托的副本。
func (b *PaperBroker) Orders() []Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Order, len(b.orders))
	copy(out, b.orders)
	return out
}
