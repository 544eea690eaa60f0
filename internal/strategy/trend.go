package strategy

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"quantfund/internal/config"
	"quantfund/internal/indicator"
	"quantfund/internal/market"
)

// TrendFollowing 为趋势跟踪策略：快慢EMA金叉 + 长期EMA过滤 + ADX强度确认。
// 该策略只产生 Long/Flat，从不发出做空信号。
type TrendFollowing struct {
	cfg    config.StrategyConfig
	logger *zap.Logger
}

// NewTrendFollowing 创建趋势跟踪策略，参数无效时立即失败。
func NewTrendFollowing(cfg config.StrategyConfig, logger *zap.Logger) (*TrendFollowing, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var verr error
	if cfg.EMAFast <= 0 {
		verr = multierr.Append(verr, errors.New("ema_fast 必须大于0"))
	}
	if cfg.EMASlow <= cfg.EMAFast {
		verr = multierr.Append(verr, errors.New("ema_slow 必须大于 ema_fast"))
	}
	if cfg.EMALong <= cfg.EMASlow {
		verr = multierr.Append(verr, errors.New("ema_long 必须大于 ema_slow"))
	}
	if cfg.ADXPeriod <= 0 {
		verr = multierr.Append(verr, errors.New("adx_period 必须大于0"))
	}
	if cfg.ADXThreshold <= 0 {
		verr = multierr.Append(verr, errors.New("adx_threshold 必须大于0"))
	}
	if cfg.ATRMultiplier <= 0 {
		verr = multierr.Append(verr, errors.New("atr_multiplier 必须大于0"))
	}
	if verr != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, verr)
	}

	return &TrendFollowing{cfg: cfg, logger: logger}, nil
}

// Name 返回策略名称。
func (s *TrendFollowing) Name() string {
	return "Trend Following"
}

// Generate 生成趋势跟踪信号。历史不足 ema_long 根时输出全空仓序列。
func (s *TrendFollowing) Generate(series market.Series) []Signal {
	signals := make([]Signal, series.Len())
	if series.Len() < s.cfg.EMALong {
		s.logger.Debug("历史数据不足，趋势策略输出全空仓",
			zap.String("symbol", series.Symbol),
			zap.Int("bars", series.Len()),
			zap.Int("required", s.cfg.EMALong),
		)
		return signals
	}

	emaFast := indicator.EMA(series.Close, s.cfg.EMAFast)
	emaSlow := indicator.EMA(series.Close, s.cfg.EMASlow)
	emaLong := indicator.EMA(series.Close, s.cfg.EMALong)
	adx := indicator.ADX(series.High, series.Low, series.Close, s.cfg.ADXPeriod)

	for i := range signals {
		switch {
		case emaFast[i] < emaSlow[i] || series.Close[i] < emaLong[i]:
			signals[i] = Flat
		case emaFast[i] > emaSlow[i] && series.Close[i] > emaLong[i] && adx[i] > s.cfg.ADXThreshold:
			signals[i] = Long
		}
	}

	return signals
}

var _ Strategy = (*TrendFollowing)(nil)
