package backtest

import (
	"math"
	"time"
)

func calculateMetrics(trades []Trade, equity []float64, start, end time.Time) Metrics {
	if len(equity) == 0 {
		return Metrics{}
	}

	initial := equity[0]
	final := equity[len(equity)-1]

	totalReturn := 0.0
	if initial > 0 {
		totalReturn = (final - initial) / initial
	}

	var wins, losses []Trade
	for _, t := range trades {
		if t.Pnl > 0 {
			wins = append(wins, t)
		} else {
			losses = append(losses, t)
		}
	}

	var totalWins, totalLosses float64
	for _, t := range wins {
		totalWins += t.Pnl
	}
	for _, t := range losses {
		totalLosses += math.Abs(t.Pnl)
	}

	profitFactor := 0.0
	if totalLosses > 0 {
		profitFactor = totalWins / totalLosses
	}

	winRate := 0.0
	if len(trades) > 0 {
		winRate = float64(len(wins)) / float64(len(trades))
	}

	avgWin := 0.0
	if len(wins) > 0 {
		avgWin = totalWins / float64(len(wins))
	}
	avgLoss := 0.0
	if len(losses) > 0 {
		var sum float64
		for _, t := range losses {
			sum += t.Pnl
		}
		avgLoss = sum / float64(len(losses))
	}

	consecutiveWins, consecutiveLosses := maxStreaks(trades)

	return Metrics{
		StartingCapital:   initial,
		FinalValue:        final,
		TotalReturn:       totalReturn,
		CAGR:              computeCAGR(initial, final, start, end),
		SharpeRatio:       computeSharpe(dailyReturns(equity)),
		MaxDrawdown:       computeDrawdown(equity),
		ProfitFactor:      profitFactor,
		WinRate:           winRate,
		TotalTrades:       len(trades),
		WinningTrades:     len(wins),
		LosingTrades:      len(losses),
		AvgWin:            avgWin,
		AvgLoss:           avgLoss,
		ConsecutiveWins:   consecutiveWins,
		ConsecutiveLosses: consecutiveLosses,
	}
}

// computeCAGR 计算复合年化收益。经过天数不为正时返回0，避免未定义的指数。
func computeCAGR(initial, final float64, start, end time.Time) float64 {
	days := end.Sub(start).Hours() / 24
	if days <= 0 || initial <= 0 || final <= 0 {
		return 0
	}
	return math.Pow(final/initial, 365.25/days) - 1
}

func dailyReturns(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] == 0 {
			continue
		}
		returns = append(returns, equity[i]/equity[i-1]-1)
	}
	return returns
}

func computeSharpe(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}
	if len(returns) > 1 {
		variance /= float64(len(returns) - 1)
	}

	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}

	// 日线数据按252个交易日年化。
	return (mean / std) * math.Sqrt(252)
}

func computeDrawdown(equity []float64) float64 {
	var peak float64
	maxDD := 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		dd := (v - peak) / peak
		if dd < maxDD {
			maxDD = dd
		}
	}
	return math.Abs(maxDD)
}

// maxStreaks 在按时间排列的完整账本上统计最长连胜与最长连亏。
// 必须在未过滤的序列上扫描，否则任何已筛选的列表都会把自身长度报告为连串。
func maxStreaks(trades []Trade) (wins, losses int) {
	var curWins, curLosses int
	for _, t := range trades {
		if t.Pnl > 0 {
			curWins++
			curLosses = 0
			if curWins > wins {
				wins = curWins
			}
		} else {
			curLosses++
			curWins = 0
			if curLosses > losses {
				losses = curLosses
			}
		}
	}
	return wins, losses
}
