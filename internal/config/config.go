package config

import (
	"errors"
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "configs/config.yaml"
	envPrefix         = "quantfund"
)

// Load 读取配置文件并结合环境变量返回 Config。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = defaultConfigPath
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("未找到配置文件 %q: %w", path, err)
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")

	v.SetDefault("data.source", "csv")
	v.SetDefault("data.dir", "data/ohlcv")
	v.SetDefault("data.symbols", []string{"SPY"})
	v.SetDefault("data.start_date", "2004-01-01")
	v.SetDefault("data.end_date", "2025-12-31")

	v.SetDefault("strategy.ema_fast", 20)
	v.SetDefault("strategy.ema_slow", 50)
	v.SetDefault("strategy.ema_long", 200)
	v.SetDefault("strategy.adx_period", 14)
	v.SetDefault("strategy.adx_threshold", 25)
	v.SetDefault("strategy.atr_multiplier", 2.0)
	v.SetDefault("strategy.rsi_period", 14)
	v.SetDefault("strategy.rsi_entry", 30)
	v.SetDefault("strategy.rsi_exit", 55)
	v.SetDefault("strategy.bb_period", 20)
	v.SetDefault("strategy.bb_std_dev", 2.0)

	v.SetDefault("risk.starting_capital", 25000.0)
	v.SetDefault("risk.risk_per_trade", 0.01)
	v.SetDefault("risk.max_position_size", 0.10)
	v.SetDefault("risk.max_concurrent_trades", 5)
	v.SetDefault("risk.daily_loss_limit", 0.02)
	v.SetDefault("risk.monthly_drawdown_limit", 0.10)
	v.SetDefault("risk.transaction_cost", 0.001)
	v.SetDefault("risk.slippage_bps", 1.0)

	v.SetDefault("backtest.workers", 4)

	v.SetDefault("sentiment.enabled", false)
	v.SetDefault("sentiment.threshold", -0.2)
	v.SetDefault("sentiment.provider", "neutral")
	v.SetDefault("sentiment.base_url", "https://api.openai.com/v1")
	v.SetDefault("sentiment.model", "gpt-4.1")
	v.SetDefault("sentiment.timeout", "15s")

	v.SetDefault("execution.paper", true)
	v.SetDefault("execution.exchange", "")
	v.SetDefault("execution.use_sandbox", true)
	v.SetDefault("execution.max_retry", 3)

	v.SetDefault("database.path", "data/quantfund.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 4)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.in_memory", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
