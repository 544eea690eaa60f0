package backtest

import "time"

// 平仓原因，随 Trade 记录对外输出。
const (
	ReasonSignalExit    = "Signal exit"
	ReasonEndOfBacktest = "End of backtest"
)

// Trade 为账本中一笔已完结交易的不可变记录。
type Trade struct {
	Symbol     string
	EntryDate  time.Time
	EntryPrice float64
	ExitDate   time.Time
	ExitPrice  float64
	Shares     int
	Pnl        float64
	PnlPercent float64
	Reason     string
}

// openPosition 为模拟过程中的在场仓位，平仓时转化为不可变的 Trade。
type openPosition struct {
	symbol     string
	entryDate  time.Time
	entryPrice float64
	stopLoss   float64
	shares     int
}

func (p *openPosition) close(exitDate time.Time, exitPrice float64, reason string) Trade {
	pnl := (exitPrice - p.entryPrice) * float64(p.shares)
	pnlPercent := 0.0
	if p.entryPrice > 0 {
		pnlPercent = (exitPrice - p.entryPrice) / p.entryPrice
	}
	return Trade{
		Symbol:     p.symbol,
		EntryDate:  p.entryDate,
		EntryPrice: p.entryPrice,
		ExitDate:   exitDate,
		ExitPrice:  exitPrice,
		Shares:     p.shares,
		Pnl:        pnl,
		PnlPercent: pnlPercent,
		Reason:     reason,
	}
}

// Metrics 记录回测绩效指标。
type Metrics struct {
	StartingCapital float64
	FinalValue      float64
	TotalReturn     float64
	CAGR            float64
	SharpeRatio     float64
	MaxDrawdown     float64
	ProfitFactor    float64
	WinRate         float64

	TotalTrades       int
	WinningTrades     int
	LosingTrades      int
	AvgWin            float64
	AvgLoss           float64
	ConsecutiveWins   int
	ConsecutiveLosses int
}

// Result 汇总一次 (策略, 标的) 回测的全部输出，构造后不再修改。
type Result struct {
	StrategyName string
	Symbol       string
	StartDate    time.Time
	EndDate      time.Time

	EquityCurve []float64
	Trades      []Trade

	Metrics Metrics
}
