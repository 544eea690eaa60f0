// Package backtest 实现逐bar驱动的回测引擎：策略产出信号，
// 风控层定仓并校验，引擎负责模拟成交并汇总绩效。
package backtest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"quantfund/internal/config"
	"quantfund/internal/indicator"
	"quantfund/internal/market"
	"quantfund/internal/risk"
	"quantfund/internal/sentiment"
	"quantfund/internal/strategy"
)

// ErrInsufficientData 表示日线数据不足以支撑一次回测。
var ErrInsufficientData = errors.New("backtest: insufficient data")

// minBars 为一次回测最少需要的日线根数，确保长周期指标有预热空间。
const minBars = 100

// Engine 对单个 (策略, 标的) 组合执行回测。同一个 Engine 可以
// 串行复用于多次 Run，每次 Run 使用全新的风控状态，互不影响。
type Engine struct {
	riskCfg       config.RiskConfig
	atrMultiplier float64
	overlay       *sentiment.Overlay
	logger        *zap.Logger
}

// NewEngine 创建回测引擎。overlay 为空时情绪过滤不生效。
func NewEngine(riskCfg config.RiskConfig, atrMultiplier float64, overlay *sentiment.Overlay, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		riskCfg:       riskCfg,
		atrMultiplier: atrMultiplier,
		overlay:       overlay,
		logger:        logger,
	}
}

// Run 在给定日线序列上回测策略，返回完整的回测结果。
//
// 模拟规则：
//   - 信号从空档翻转为做多、且无在场仓位时，以当日收盘价定仓并校验风控，
//     成交价计入开仓滑点；风控拒绝则放弃本次进场，继续扫描后续信号；
//   - 在场仓位遇到非做多信号时，按当日收盘价扣除滑点与交易成本平仓；
//   - 回撤熔断触发后不再新开仓，在场仓位仍按信号正常退出；
//   - 数据走完仍有在场仓位时，按最后收盘价强制平仓（不计滑点与成本），
//     该笔盈亏只进账本不进净值曲线。
//
// 净值曲线只记录已实现盈亏：与输入序列等长，首个点为初始资金，
// 平仓当日加入该笔盈亏，其余各bar原值顺延。
func (e *Engine) Run(ctx context.Context, strat strategy.Strategy, series market.Series) (Result, error) {
	n := series.Len()
	if n < minBars {
		return Result{}, fmt.Errorf("backtest: 标的 %s 仅有 %d 根日线，至少需要 %d 根: %w",
			series.Symbol, n, minBars, ErrInsufficientData)
	}

	signals := strat.Generate(series)
	if len(signals) != n {
		return Result{}, fmt.Errorf("backtest: 策略 %s 输出 %d 个信号，与 %d 根日线不一致",
			strat.Name(), len(signals), n)
	}

	atr := indicator.ATRProxy(series.High, series.Low)

	sizer := risk.NewSizer(e.riskCfg, e.logger)
	manager := risk.NewManager(e.riskCfg, e.logger)

	equity := make([]float64, 1, n)
	equity[0] = e.riskCfg.StartingCapital

	var trades []Trade
	var open *openPosition

	for i := 1; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("backtest: 回测被中断: %w", err)
		}

		price := series.Close[i]
		date := series.Timestamps[i]
		manager.UpdatePrices(map[string]float64{series.Symbol: price})

		// 默认顺延上一bar的已实现净值，只有平仓会改写。
		value := equity[i-1]

		switch {
		case open == nil && signals[i] == strategy.Long && signals[i-1] != strategy.Long:
			if !manager.KillSwitchOk() {
				break
			}
			if e.overlay != nil {
				approved, _ := e.overlay.Evaluate(ctx, series.Symbol, date, int(signals[i]))
				if !approved {
					break
				}
			}

			stop := risk.StopFromATR(price, atr[i], e.atrMultiplier)
			shares := sizer.Shares(equity[i-1], price, stop)
			if shares <= 0 {
				break
			}

			// 风控按信号价校验，滑点只影响成交记录。
			ok := manager.Open(risk.TradeRequest{
				Symbol:     series.Symbol,
				Shares:     shares,
				EntryPrice: price,
				StopLoss:   stop,
			}, date)
			if !ok {
				break
			}

			// 风控层可能调降了股数，以登记后的仓位为准。
			pos, _ := manager.OpenPosition(series.Symbol)
			open = &openPosition{
				symbol:     series.Symbol,
				entryDate:  date,
				entryPrice: price * (1 + e.riskCfg.SlippageBps/1e4),
				stopLoss:   stop,
				shares:     pos.Shares,
			}

		case open != nil && signals[i] != strategy.Long:
			fill := price * (1 - e.riskCfg.SlippageBps/1e4) * (1 - e.riskCfg.TransactionCost)
			manager.Close(series.Symbol, fill)

			trade := open.close(date, fill, ReasonSignalExit)
			trades = append(trades, trade)
			value += trade.Pnl
			open = nil
		}

		equity = append(equity, value)
	}

	// 数据走完仍有在场仓位：按最后收盘价强制平仓，只进账本不进净值曲线。
	if open != nil {
		lastPrice := series.Close[n-1]
		manager.Close(series.Symbol, lastPrice)
		trades = append(trades, open.close(series.EndDate(), lastPrice, ReasonEndOfBacktest))
		open = nil
	}

	result := Result{
		StrategyName: strat.Name(),
		Symbol:       series.Symbol,
		StartDate:    series.StartDate(),
		EndDate:      series.EndDate(),
		EquityCurve:  equity,
		Trades:       trades,
		Metrics:      calculateMetrics(trades, equity, series.StartDate(), series.EndDate()),
	}

	e.logger.Info("回测完成",
		zap.String("strategy", strat.Name()),
		zap.String("symbol", series.Symbol),
		zap.Int("trades", len(trades)),
		zap.Float64("total_return", result.Metrics.TotalReturn),
		zap.Float64("max_drawdown", result.Metrics.MaxDrawdown),
	)

	return result, nil
}
