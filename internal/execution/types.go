// Package execution 将风控批准的交易请求转化为具体委托。
// 默认使用纸面经纪商（只记录不下单），实盘实现在组装期切换。
package execution

import (
	"context"
	"time"
)

// OrderSide 表示下单方向。
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Order 描述一笔市价委托。
type Order struct {
	Symbol      string
	Side        OrderSide
	Shares      int
	Price       float64
	SubmittedAt time.Time
}

// Broker 为经纪商抽象。回测与默认运行使用 PaperBroker，
// 实盘使用 CCXTBroker，二者在组装期选定。
type Broker interface {
	Connect(ctx context.Context) error
	PlaceOrder(ctx context.Context, order Order) error
	ClosePosition(ctx context.Context, symbol string, shares int, price float64) error
}
