package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了系统运行所需的全部配置项。
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Data      DataConfig      `mapstructure:"data"`
	Strategy  StrategyConfig  `mapstructure:"strategy"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Backtest  BacktestConfig  `mapstructure:"backtest"`
	Sentiment SentimentConfig `mapstructure:"sentiment"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// DataConfig 描述历史行情数据来源。
type DataConfig struct {
	Source    string   `mapstructure:"source"`
	Dir       string   `mapstructure:"dir"`
	Symbols   []string `mapstructure:"symbols"`
	StartDate string   `mapstructure:"start_date"`
	EndDate   string   `mapstructure:"end_date"`
}

// StrategyConfig 管理策略参数。
type StrategyConfig struct {
	// 趋势跟踪
	EMAFast       int     `mapstructure:"ema_fast"`
	EMASlow       int     `mapstructure:"ema_slow"`
	EMALong       int     `mapstructure:"ema_long"`
	ADXPeriod     int     `mapstructure:"adx_period"`
	ADXThreshold  float64 `mapstructure:"adx_threshold"`
	ATRMultiplier float64 `mapstructure:"atr_multiplier"`

	// 均值回归
	RSIPeriod int     `mapstructure:"rsi_period"`
	RSIEntry  float64 `mapstructure:"rsi_entry"`
	RSIExit   float64 `mapstructure:"rsi_exit"`
	BBPeriod  int     `mapstructure:"bb_period"`
	BBStdDev  float64 `mapstructure:"bb_std_dev"`
}

// RiskConfig 管理风控与仓位参数，进程启动后只读。
type RiskConfig struct {
	StartingCapital      float64 `mapstructure:"starting_capital"`
	RiskPerTrade         float64 `mapstructure:"risk_per_trade"`
	MaxPositionSize      float64 `mapstructure:"max_position_size"`
	MaxConcurrentTrades  int     `mapstructure:"max_concurrent_trades"`
	DailyLossLimit       float64 `mapstructure:"daily_loss_limit"`
	MonthlyDrawdownLimit float64 `mapstructure:"monthly_drawdown_limit"`
	TransactionCost      float64 `mapstructure:"transaction_cost"`
	SlippageBps          float64 `mapstructure:"slippage_bps"`
}

// BacktestConfig 控制回测批次行为。
type BacktestConfig struct {
	Workers int `mapstructure:"workers"`
}

// SentimentConfig 控制情绪过滤层。未启用时核心流程行为完全一致。
type SentimentConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Threshold float64       `mapstructure:"threshold"`
	Provider  string        `mapstructure:"provider"`
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// ExecutionConfig 控制实盘执行端。paper=true 时仅记录不下单。
type ExecutionConfig struct {
	Paper      bool   `mapstructure:"paper"`
	Exchange   string `mapstructure:"exchange"`
	APIKey     string `mapstructure:"api_key"`
	APISecret  string `mapstructure:"api_secret"`
	UseSandbox bool   `mapstructure:"use_sandbox"`
	MaxRetry   int    `mapstructure:"max_retry"`
}

// DatabaseConfig 管理结果库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.Data.Source == "" {
		err = multierr.Append(err, errors.New("data.source 不能为空"))
	}
	if len(c.Data.Symbols) == 0 {
		err = multierr.Append(err, errors.New("data.symbols 至少包含一个标的"))
	}
	if c.Strategy.EMAFast <= 0 {
		err = multierr.Append(err, errors.New("strategy.ema_fast 必须大于0"))
	}
	if c.Strategy.EMASlow <= c.Strategy.EMAFast {
		err = multierr.Append(err, errors.New("strategy.ema_slow 必须大于 ema_fast"))
	}
	if c.Strategy.EMALong <= c.Strategy.EMASlow {
		err = multierr.Append(err, errors.New("strategy.ema_long 必须大于 ema_slow"))
	}
	if c.Strategy.ADXPeriod <= 0 {
		err = multierr.Append(err, errors.New("strategy.adx_period 必须大于0"))
	}
	if c.Strategy.ADXThreshold <= 0 {
		err = multierr.Append(err, errors.New("strategy.adx_threshold 必须大于0"))
	}
	if c.Strategy.ATRMultiplier <= 0 {
		err = multierr.Append(err, errors.New("strategy.atr_multiplier 必须大于0"))
	}
	if c.Strategy.RSIPeriod <= 0 {
		err = multierr.Append(err, errors.New("strategy.rsi_period 必须大于0"))
	}
	if c.Strategy.RSIEntry >= 50 {
		err = multierr.Append(err, errors.New("strategy.rsi_entry 必须小于50"))
	}
	if c.Strategy.RSIExit <= 50 {
		err = multierr.Append(err, errors.New("strategy.rsi_exit 必须大于50"))
	}
	if c.Strategy.BBPeriod <= 0 {
		err = multierr.Append(err, errors.New("strategy.bb_period 必须大于0"))
	}
	if c.Strategy.BBStdDev <= 0 {
		err = multierr.Append(err, errors.New("strategy.bb_std_dev 必须大于0"))
	}
	if c.Risk.StartingCapital <= 0 {
		err = multierr.Append(err, errors.New("risk.starting_capital 必须大于0"))
	}
	if c.Risk.RiskPerTrade <= 0 || c.Risk.RiskPerTrade > 1 {
		err = multierr.Append(err, errors.New("risk.risk_per_trade 必须位于(0,1]"))
	}
	if c.Risk.MaxPositionSize <= 0 || c.Risk.MaxPositionSize > 1 {
		err = multierr.Append(err, errors.New("risk.max_position_size 必须位于(0,1]"))
	}
	if c.Risk.MaxConcurrentTrades <= 0 {
		err = multierr.Append(err, errors.New("risk.max_concurrent_trades 必须大于0"))
	}
	if c.Risk.DailyLossLimit <= 0 || c.Risk.DailyLossLimit > 1 {
		err = multierr.Append(err, errors.New("risk.daily_loss_limit 必须位于(0,1]"))
	}
	if c.Risk.MonthlyDrawdownLimit <= 0 || c.Risk.MonthlyDrawdownLimit > 1 {
		err = multierr.Append(err, errors.New("risk.monthly_drawdown_limit 必须位于(0,1]"))
	}
	if c.Risk.TransactionCost < 0 || c.Risk.TransactionCost > 0.1 {
		err = multierr.Append(err, errors.New("risk.transaction_cost 应位于[0,0.1]"))
	}
	if c.Risk.SlippageBps < 0 {
		err = multierr.Append(err, errors.New("risk.slippage_bps 不能为负"))
	}
	if c.Backtest.Workers <= 0 {
		err = multierr.Append(err, errors.New("backtest.workers 必须大于0"))
	}
	if c.Sentiment.Enabled {
		if c.Sentiment.Provider == "openai" && c.Sentiment.APIKey == "" {
			err = multierr.Append(err, errors.New("sentiment.provider=openai 时需要配置 api_key"))
		}
		if c.Sentiment.Timeout <= 0 {
			err = multierr.Append(err, errors.New("sentiment.timeout 必须大于0"))
		}
	}
	if !c.Execution.Paper {
		if c.Execution.Exchange == "" {
			err = multierr.Append(err, errors.New("实盘模式需要配置 execution.exchange"))
		}
		if c.Execution.APIKey == "" || c.Execution.APISecret == "" {
			err = multierr.Append(err, errors.New("实盘模式需要配置 execution.api_key 与 api_secret"))
		}
	}
	if c.Execution.MaxRetry <= 0 {
		err = multierr.Append(err, errors.New("execution.max_retry 必须大于0"))
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
