package risk

import "time"

// TradeRequest 为开仓请求，由模拟引擎（或实盘编排器）在进场时刻临时创建。
type TradeRequest struct {
	Symbol     string
	Shares     int
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64 // 可选，0 表示未设置
}

// TradeApproval 为一次校验的结论。AdjustedShares 非零时覆盖请求股数。
type TradeApproval struct {
	Approved       bool
	Reason         string
	AdjustedShares int
}

// Position 表示一笔在场仓位，由 Manager 的在场仓位表独占持有。
type Position struct {
	Symbol       string
	Shares       int
	EntryPrice   float64
	StopLoss     float64
	EntryDate    time.Time
	CurrentPrice float64 // 0 表示尚未更新
}
