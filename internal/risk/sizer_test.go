package risk

import (
	"math"
	"testing"

	"quantfund/internal/config"
)

func sizerConfig() config.RiskConfig {
	return config.RiskConfig{
		StartingCapital: 100000,
		RiskPerTrade:    0.01,
		MaxPositionSize: 0.10,
	}
}

func TestSizerCapBinds(t *testing.T) {
	s := NewSizer(sizerConfig(), nil)

	// 风险预算 1000 / 止损距离 2 = 500 股，但 10% 仓位上限将其压到 200 股。
	shares := s.Shares(100000, 50, 48)
	if shares != 200 {
		t.Fatalf("expected cap to bind at 200 shares, got %d", shares)
	}
}

func TestSizerRiskBudgetBinds(t *testing.T) {
	cfg := sizerConfig()
	cfg.MaxPositionSize = 1.0
	s := NewSizer(cfg, nil)

	shares := s.Shares(100000, 50, 48)
	if shares != 500 {
		t.Fatalf("expected risk budget sizing of 500 shares, got %d", shares)
	}
}

func TestSizerZeroStopDistance(t *testing.T) {
	s := NewSizer(sizerConfig(), nil)

	if shares := s.Shares(100000, 50, 50); shares != 0 {
		t.Fatalf("zero stop distance must size to 0 shares, got %d", shares)
	}
}

func TestSizerNeverNegative(t *testing.T) {
	s := NewSizer(sizerConfig(), nil)

	if shares := s.Shares(-100000, 50, 48); shares != 0 {
		t.Fatalf("negative portfolio value must size to 0 shares, got %d", shares)
	}
	if shares := s.Shares(100000, 0, 2); shares != 0 {
		t.Fatalf("non-positive entry price must size to 0 shares, got %d", shares)
	}
}

func TestStopFromATR(t *testing.T) {
	if stop := StopFromATR(100, 3, 2); math.Abs(stop-94) > 1e-9 {
		t.Fatalf("expected stop 94, got %f", stop)
	}
}

func TestTakeProfit(t *testing.T) {
	// ATR 路径：止损距离 3×2=6，盈亏比 2 → 100+12。
	if tp := TakeProfit(100, 2, 3, 2); math.Abs(tp-112) > 1e-9 {
		t.Fatalf("expected take profit 112, got %f", tp)
	}

	// 无 ATR 时退化为 2% 止损距离。
	if tp := TakeProfit(100, 2, 0, 2); math.Abs(tp-104) > 1e-9 {
		t.Fatalf("expected take profit 104, got %f", tp)
	}
}
