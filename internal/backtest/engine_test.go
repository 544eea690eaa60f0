package backtest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"quantfund/internal/config"
	"quantfund/internal/market"
	"quantfund/internal/sentiment"
	"quantfund/internal/strategy"
)

// scriptedStrategy 按预先写好的信号序列回放，用于精确控制模拟路径。
type scriptedStrategy struct {
	signals []strategy.Signal
}

func (s scriptedStrategy) Name() string { return "scripted" }

func (s scriptedStrategy) Generate(series market.Series) []strategy.Signal {
	return s.signals
}

type bearishScorer struct{}

func (bearishScorer) Score(ctx context.Context, symbol string, date time.Time) (float64, error) {
	return -0.9, nil
}

func flatSeries(n int) market.Series {
	bars := make([]market.Bar, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = market.Bar{
			Timestamp: base.AddDate(0, 0, i),
			Open:      100,
			High:      101,
			Low:       99,
			Close:     100,
			Volume:    1000,
		}
	}
	return market.NewSeries("TEST", bars)
}

func flatSignals(n int) []strategy.Signal {
	return make([]strategy.Signal, n)
}

func testRiskConfig() config.RiskConfig {
	return config.RiskConfig{
		StartingCapital:      100000,
		RiskPerTrade:         0.01,
		MaxPositionSize:      1.0,
		MaxConcurrentTrades:  5,
		DailyLossLimit:       1.0,
		MonthlyDrawdownLimit: 1.0,
		TransactionCost:      0,
		SlippageBps:          0,
	}
}

func TestRunRejectsShortHistory(t *testing.T) {
	engine := NewEngine(testRiskConfig(), 2.0, nil, nil)

	_, err := engine.Run(context.Background(), scriptedStrategy{signals: flatSignals(50)}, flatSeries(50))
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestRunSignalRoundTrip(t *testing.T) {
	n := 100
	signals := flatSignals(n)
	signals[50] = strategy.Long

	engine := NewEngine(testRiskConfig(), 2.0, nil, nil)
	result, err := engine.Run(context.Background(), scriptedStrategy{signals: signals}, flatSeries(n))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Trades) != 1 {
		t.Fatalf("expected exactly one trade, got %d", len(result.Trades))
	}
	trade := result.Trades[0]
	if trade.Reason != ReasonSignalExit {
		t.Fatalf("expected reason %q, got %q", ReasonSignalExit, trade.Reason)
	}
	// 风险预算 1000 / 止损距离 4 = 250 股。
	if trade.Shares != 250 {
		t.Fatalf("expected 250 shares, got %d", trade.Shares)
	}
	if trade.Pnl != 0 {
		t.Fatalf("flat prices without costs must yield zero pnl, got %f", trade.Pnl)
	}

	if len(result.EquityCurve) != n {
		t.Fatalf("equity curve must match series length %d, got %d", n, len(result.EquityCurve))
	}
	for i, v := range result.EquityCurve {
		if v != 100000 {
			t.Fatalf("equity[%d] = %f, expected 100000", i, v)
		}
	}
	if result.Metrics.MaxDrawdown != 0 {
		t.Fatalf("flat equity must have zero drawdown, got %f", result.Metrics.MaxDrawdown)
	}
}

func TestRunForcedCloseAtEndOfData(t *testing.T) {
	n := 100
	signals := flatSignals(n)
	for i := 50; i < n; i++ {
		signals[i] = strategy.Long
	}

	engine := NewEngine(testRiskConfig(), 2.0, nil, nil)
	series := flatSeries(n)
	result, err := engine.Run(context.Background(), scriptedStrategy{signals: signals}, series)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Trades) != 1 {
		t.Fatalf("expected exactly one trade, got %d", len(result.Trades))
	}
	trade := result.Trades[0]
	if trade.Reason != ReasonEndOfBacktest {
		t.Fatalf("expected reason %q, got %q", ReasonEndOfBacktest, trade.Reason)
	}
	if !trade.ExitDate.Equal(series.EndDate()) {
		t.Fatalf("forced close must exit on the last bar, got %v", trade.ExitDate)
	}
	// 强制平仓按原始收盘价成交，不计滑点与成本。
	if trade.ExitPrice != 100 {
		t.Fatalf("expected exit price 100, got %f", trade.ExitPrice)
	}
}

func TestRunAppliesSlippageAndCosts(t *testing.T) {
	n := 100
	signals := flatSignals(n)
	signals[50] = strategy.Long

	cfg := testRiskConfig()
	cfg.TransactionCost = 0.001
	cfg.SlippageBps = 10

	engine := NewEngine(cfg, 2.0, nil, nil)
	result, err := engine.Run(context.Background(), scriptedStrategy{signals: signals}, flatSeries(n))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Trades) != 1 {
		t.Fatalf("expected exactly one trade, got %d", len(result.Trades))
	}

	trade := result.Trades[0]
	if math.Abs(trade.EntryPrice-100.1) > 1e-9 {
		t.Fatalf("expected entry price 100.1, got %f", trade.EntryPrice)
	}
	wantExit := 100 * (1 - 0.001) * (1 - 0.001)
	if math.Abs(trade.ExitPrice-wantExit) > 1e-9 {
		t.Fatalf("expected exit price %f, got %f", wantExit, trade.ExitPrice)
	}
	if trade.Pnl >= 0 {
		t.Fatalf("slippage and costs must make the round trip lose, got %f", trade.Pnl)
	}
}

func TestRunSentimentBlocksEntries(t *testing.T) {
	n := 100
	signals := flatSignals(n)
	signals[50] = strategy.Long

	overlay := sentiment.NewOverlay(-0.2, bearishScorer{}, nil)
	engine := NewEngine(testRiskConfig(), 2.0, overlay, nil)
	result, err := engine.Run(context.Background(), scriptedStrategy{signals: signals}, flatSeries(n))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Trades) != 0 {
		t.Fatalf("bearish sentiment must block all entries, got %d trades", len(result.Trades))
	}
	if len(result.EquityCurve) != n {
		t.Fatalf("equity curve must still match series length, got %d", len(result.EquityCurve))
	}
}

func TestRunNoReentryWhileLong(t *testing.T) {
	n := 100
	signals := flatSignals(n)
	// 连续做多信号只应产生一次进场。
	for i := 40; i < 60; i++ {
		signals[i] = strategy.Long
	}

	engine := NewEngine(testRiskConfig(), 2.0, nil, nil)
	result, err := engine.Run(context.Background(), scriptedStrategy{signals: signals}, flatSeries(n))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Trades) != 1 {
		t.Fatalf("expected one round trip, got %d trades", len(result.Trades))
	}
}
