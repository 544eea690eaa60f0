// Package app 聚合核心依赖并驱动回测批次：加载行情、构建策略、
// 并行执行全部 (策略, 标的) 组合、落盘结果并输出批次汇总。
package app

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"quantfund/internal/backtest"
	"quantfund/internal/config"
	"quantfund/internal/execution"
	"quantfund/internal/market"
	"quantfund/internal/risk"
	"quantfund/internal/sentiment"
	"quantfund/internal/store"
	"quantfund/internal/strategy"
)

// App 为回测批次的组装根。
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
	loader market.Loader
}

// New 创建 App 实例。loader 为空时使用配置目录下的 CSV 数据源。
func New(cfg *config.Config, logger *zap.Logger, st *store.Store, loader market.Loader) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loader == nil {
		loader = market.NewCSVLoader(cfg.Data.Dir, logger)
	}
	return &App{
		cfg:    cfg,
		logger: logger,
		store:  st,
		loader: loader,
	}
}

// Run 执行一个完整回测批次。单个 (策略, 标的) 组合失败只记录日志，
// 不影响批次中其余组合。
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("回测批次启动",
		zap.String("environment", a.cfg.App.Environment),
		zap.Strings("symbols", a.cfg.Data.Symbols),
		zap.Int("workers", a.cfg.Backtest.Workers),
	)

	strategies, err := a.buildStrategies()
	if err != nil {
		return err
	}

	overlay, err := a.buildOverlay()
	if err != nil {
		return err
	}

	results, err := a.runBatch(ctx, strategies, overlay)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		a.logger.Warn("批次没有产出任何结果")
		return nil
	}

	if err := a.persist(ctx, results); err != nil {
		return err
	}

	executor, err := a.buildExecutor()
	if err != nil {
		return err
	}
	a.routeOpenPositions(ctx, executor, results)

	a.logSummary(results)
	return nil
}

func (a *App) buildExecutor() (*execution.Engine, error) {
	broker, err := execution.NewBrokerFromConfig(a.cfg.Execution, a.logger)
	if err != nil {
		return nil, fmt.Errorf("app: 构建经纪商失败: %w", err)
	}
	return execution.NewEngine(broker, a.logger), nil
}

// routeOpenPositions 将回测结束时仍在场的仓位作为交易请求转发给执行引擎。
// 这些仓位即策略在最后一根K线上仍会持有的标的。
func (a *App) routeOpenPositions(ctx context.Context, executor *execution.Engine, results []backtest.Result) {
	if executor == nil {
		return
	}
	if err := executor.Connect(ctx); err != nil {
		a.logger.Warn("经纪商连接失败，跳过委托转发", zap.Error(err))
		return
	}

	for _, result := range results {
		for _, trade := range result.Trades {
			if trade.Reason != backtest.ReasonEndOfBacktest {
				continue
			}

			request := risk.TradeRequest{
				Symbol:     trade.Symbol,
				Shares:     trade.Shares,
				EntryPrice: trade.ExitPrice,
			}
			if err := executor.Execute(ctx, request); err != nil {
				a.logger.Warn("委托转发失败",
					zap.String("strategy", result.StrategyName),
					zap.String("symbol", trade.Symbol),
					zap.Error(err),
				)
			}
		}
	}
}

func (a *App) buildStrategies() ([]strategy.Strategy, error) {
	trend, err := strategy.NewTrendFollowing(a.cfg.Strategy, a.logger)
	if err != nil {
		return nil, fmt.Errorf("app: 构建趋势跟踪策略失败: %w", err)
	}
	reversion, err := strategy.NewMeanReversion(a.cfg.Strategy, a.logger)
	if err != nil {
		return nil, fmt.Errorf("app: 构建均值回归策略失败: %w", err)
	}
	return []strategy.Strategy{trend, reversion}, nil
}

func (a *App) buildOverlay() (*sentiment.Overlay, error) {
	if !a.cfg.Sentiment.Enabled {
		return nil, nil
	}

	scorer, err := sentiment.NewOpenAIScorer(a.cfg.Sentiment, a.logger)
	if err != nil {
		return nil, fmt.Errorf("app: 构建情绪评分源失败: %w", err)
	}
	return sentiment.NewOverlay(a.cfg.Sentiment.Threshold, scorer, a.logger), nil
}

func (a *App) runBatch(ctx context.Context, strategies []strategy.Strategy, overlay *sentiment.Overlay) ([]backtest.Result, error) {
	engine := backtest.NewEngine(a.cfg.Risk, a.cfg.Strategy.ATRMultiplier, overlay, a.logger)

	group, ctx := errgroup.WithContext(ctx)
	workers := a.cfg.Backtest.Workers
	if workers <= 0 {
		workers = 1
	}
	group.SetLimit(workers)

	var (
		mu      sync.Mutex
		results []backtest.Result
	)

	for _, symbol := range a.cfg.Data.Symbols {
		symbol := symbol
		group.Go(func() error {
			series, err := a.loader.Load(ctx, symbol)
			if err != nil {
				a.logger.Error("加载行情失败，跳过该标的",
					zap.String("symbol", symbol),
					zap.Error(err),
				)
				return nil
			}

			for _, strat := range strategies {
				result, err := engine.Run(ctx, strat, series)
				if err != nil {
					a.logger.Error("回测失败，跳过该组合",
						zap.String("strategy", strat.Name()),
						zap.String("symbol", symbol),
						zap.Error(err),
					)
					continue
				}

				mu.Lock()
				results = append(results, result)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("app: 回测批次中断: %w", err)
	}
	return results, nil
}

func (a *App) persist(ctx context.Context, results []backtest.Result) error {
	if a.store == nil {
		return nil
	}

	svc, err := store.NewService(a.store, a.logger)
	if err != nil {
		return fmt.Errorf("app: 初始化结果服务失败: %w", err)
	}

	for _, result := range results {
		if err := svc.SaveResult(ctx, result); err != nil {
			a.logger.Warn("结果落盘失败",
				zap.String("strategy", result.StrategyName),
				zap.String("symbol", result.Symbol),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (a *App) logSummary(results []backtest.Result) {
	var sumReturn, sumSharpe, sumDrawdown float64
	totalTrades := 0
	for _, r := range results {
		sumReturn += r.Metrics.TotalReturn
		sumSharpe += r.Metrics.SharpeRatio
		sumDrawdown += r.Metrics.MaxDrawdown
		totalTrades += r.Metrics.TotalTrades
	}

	n := float64(len(results))
	a.logger.Info("回测批次完成",
		zap.Int("runs", len(results)),
		zap.Int("total_trades", totalTrades),
		zap.Float64("avg_return", sumReturn/n),
		zap.Float64("avg_sharpe", sumSharpe/n),
		zap.Float64("avg_drawdown", sumDrawdown/n),
	)
}
