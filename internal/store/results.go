// Package store 负责回测结果的持久化。核心回测管线全程在内存中运行，
// 这里只作为事后报表的落盘出口。
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"quantfund/internal/backtest"
)

// ResultRecord 为一次已落盘回测的摘要行。
type ResultRecord struct {
	ID          int64
	Strategy    string
	Symbol      string
	TotalReturn float64
	SharpeRatio float64
	MaxDrawdown float64
	TotalTrades int
	CreatedAt   time.Time
}

// BatchSummary 汇总最近一批回测的平均绩效。
type BatchSummary struct {
	Runs        int
	AvgReturn   float64
	AvgSharpe   float64
	AvgDrawdown float64
	TotalTrades int
}

// Service 将回测结果写入 SQLite 并提供查询。
type Service struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewService 初始化结果服务，创建所需表结构。
func NewService(store *Store, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		db:     store.DB(),
		logger: logger,
	}

	if err := s.initSchema(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) initSchema() error {
	stmt := `
CREATE TABLE IF NOT EXISTS backtest_results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	strategy TEXT NOT NULL,
	symbol TEXT NOT NULL,
	start_date TEXT NOT NULL,
	end_date TEXT NOT NULL,
	starting_capital REAL NOT NULL,
	final_value REAL NOT NULL,
	total_return REAL NOT NULL,
	cagr REAL NOT NULL,
	sharpe_ratio REAL NOT NULL,
	max_drawdown REAL NOT NULL,
	profit_factor REAL NOT NULL,
	win_rate REAL NOT NULL,
	total_trades INTEGER NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_backtest_results_strategy ON backtest_results(strategy);
CREATE TABLE IF NOT EXISTS backtest_trades (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	result_id INTEGER NOT NULL REFERENCES backtest_results(id),
	symbol TEXT NOT NULL,
	entry_date TEXT NOT NULL,
	entry_price REAL NOT NULL,
	exit_date TEXT NOT NULL,
	exit_price REAL NOT NULL,
	shares INTEGER NOT NULL,
	pnl REAL NOT NULL,
	pnl_percent REAL NOT NULL,
	reason TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_backtest_trades_result ON backtest_trades(result_id);
`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("store: 初始化表失败: %w", err)
	}
	return nil
}

// SaveResult 在单个事务中写入回测摘要与全部成交明细。
func (s *Service) SaveResult(ctx context.Context, result backtest.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: 开启事务失败: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO backtest_results
		(strategy, symbol, start_date, end_date, starting_capital, final_value,
		 total_return, cagr, sharpe_ratio, max_drawdown, profit_factor, win_rate,
		 total_trades, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.StrategyName,
		result.Symbol,
		result.StartDate.Format(time.RFC3339),
		result.EndDate.Format(time.RFC3339),
		result.Metrics.StartingCapital,
		result.Metrics.FinalValue,
		result.Metrics.TotalReturn,
		result.Metrics.CAGR,
		result.Metrics.SharpeRatio,
		result.Metrics.MaxDrawdown,
		result.Metrics.ProfitFactor,
		result.Metrics.WinRate,
		result.Metrics.TotalTrades,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("store: 写入回测摘要失败: %w", err)
	}

	resultID, err := res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("store: 获取结果ID失败: %w", err)
	}

	for _, trade := range result.Trades {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO backtest_trades
			(result_id, symbol, entry_date, entry_price, exit_date, exit_price,
			 shares, pnl, pnl_percent, reason)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			resultID,
			trade.Symbol,
			trade.EntryDate.Format(time.RFC3339),
			trade.EntryPrice,
			trade.ExitDate.Format(time.RFC3339),
			trade.ExitPrice,
			trade.Shares,
			trade.Pnl,
			trade.PnlPercent,
			trade.Reason,
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("store: 写入成交明细失败: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: 提交事务失败: %w", err)
	}

	s.logger.Debug("回测结果已落盘",
		zap.String("strategy", result.StrategyName),
		zap.String("symbol", result.Symbol),
		zap.Int("trades", len(result.Trades)),
	)

	return nil
}

// ListResults 按时间倒序返回最近的回测摘要。
func (s *Service) ListResults(ctx context.Context, limit int) ([]ResultRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, strategy, symbol, total_return, sharpe_ratio, max_drawdown, total_trades, created_at
		 FROM backtest_results ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: 查询回测结果失败: %w", err)
	}
	defer rows.Close()

	records := make([]ResultRecord, 0, limit)
	for rows.Next() {
		var (
			rec     ResultRecord
			created string
		)
		if scanErr := rows.Scan(&rec.ID, &rec.Strategy, &rec.Symbol,
			&rec.TotalReturn, &rec.SharpeRatio, &rec.MaxDrawdown,
			&rec.TotalTrades, &created); scanErr != nil {
			return nil, fmt.Errorf("store: 解析回测结果失败: %w", scanErr)
		}

		ts, parseErr := time.Parse(time.RFC3339, created)
		if parseErr != nil {
			ts = time.Now().UTC()
		}
		rec.CreatedAt = ts

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: 遍历回测结果失败: %w", err)
	}

	return records, nil
}

// Summary 返回全库回测的平均绩效。库为空时各项为0。
func (s *Service) Summary(ctx context.Context) (BatchSummary, error) {
	var (
		runs        int
		avgReturn   sql.NullFloat64
		avgSharpe   sql.NullFloat64
		avgDrawdown sql.NullFloat64
		totalTrades sql.NullInt64
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), AVG(total_return), AVG(sharpe_ratio), AVG(max_drawdown), SUM(total_trades)
		 FROM backtest_results`,
	).Scan(&runs, &avgReturn, &avgSharpe, &avgDrawdown, &totalTrades)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("store: 统计汇总失败: %w", err)
	}

	return BatchSummary{
		Runs:        runs,
		AvgReturn:   avgReturn.Float64,
		AvgSharpe:   avgSharpe.Float64,
		AvgDrawdown: avgDrawdown.Float64,
		TotalTrades: int(totalTrades.Int64),
	}, nil
}
