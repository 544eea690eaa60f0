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

// MeanReversion 为均值回归策略：RSI超卖且跌破布林下轨做多，
// RSI回升或突破上轨离场。
type MeanReversion struct {
	cfg    config.StrategyConfig
	logger *zap.Logger
}

// NewMeanReversion 创建均值回归策略，参数无效时立即失败。
func NewMeanReversion(cfg config.StrategyConfig, logger *zap.Logger) (*MeanReversion, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var verr error
	if cfg.RSIPeriod <= 0 {
		verr = multierr.Append(verr, errors.New("rsi_period 必须大于0"))
	}
	if cfg.RSIEntry >= 50 {
		verr = multierr.Append(verr, errors.New("rsi_entry 必须小于50"))
	}
	if cfg.RSIExit <= 50 {
		verr = multierr.Append(verr, errors.New("rsi_exit 必须大于50"))
	}
	if cfg.BBPeriod <= 0 {
		verr = multierr.Append(verr, errors.New("bb_period 必须大于0"))
	}
	if cfg.BBStdDev <= 0 {
		verr = multierr.Append(verr, errors.New("bb_std_dev 必须大于0"))
	}
	if verr != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, verr)
	}

	return &MeanReversion{cfg: cfg, logger: logger}, nil
}

// Name 返回策略名称。
func (s *MeanReversion) Name() string {
	return "Mean Reversion"
}

// Generate 生成均值回归信号。历史不足 max(rsi_period, bb_period) 根时输出全空仓序列。
func (s *MeanReversion) Generate(series market.Series) []Signal {
	signals := make([]Signal, series.Len())

	required := s.cfg.RSIPeriod
	if s.cfg.BBPeriod > required {
		required = s.cfg.BBPeriod
	}
	if series.Len() < required {
		s.logger.Debug("历史数据不足，均值回归策略输出全空仓",
			zap.String("symbol", series.Symbol),
			zap.Int("bars", series.Len()),
			zap.Int("required", required),
		)
		return signals
	}

	rsi := indicator.RSI(series.Close, s.cfg.RSIPeriod)
	upper, _, lower := indicator.BollingerBands(series.Close, s.cfg.BBPeriod, s.cfg.BBStdDev)

	for i := range signals {
		// 离场条件优先于进场条件。
		switch {
		case rsi[i] > s.cfg.RSIExit || series.Close[i] > upper[i]:
			signals[i] = Flat
		case rsi[i] < s.cfg.RSIEntry && series.Close[i] < lower[i]:
			signals[i] = Long
		}
	}

	return signals
}

var _ Strategy = (*MeanReversion)(nil)
