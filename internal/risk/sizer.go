package risk

import (
	"math"

	"go.uber.org/zap"

	"quantfund/internal/config"
)

// Sizer 依据风险预算与止损距离计算下单股数。
//
//	风险金额 = 组合净值 × risk_per_trade
//	原始股数 = 风险金额 / 止损距离，再受 max_position_size 上限约束
type Sizer struct {
	cfg    config.RiskConfig
	logger *zap.Logger
}

// NewSizer 创建仓位计算器。
func NewSizer(cfg config.RiskConfig, logger *zap.Logger) *Sizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sizer{cfg: cfg, logger: logger}
}

// Shares 计算可买入的整数股数，向零取整，绝不为负。
// 止损距离为0时无法定仓，返回0并记录告警（非致命，回测继续）。
func (s *Sizer) Shares(portfolioValue, entryPrice, stopPrice float64) int {
	stopDistance := math.Abs(entryPrice - stopPrice)
	if stopDistance == 0 {
		s.logger.Warn("止损距离为0，无法计算仓位",
			zap.Float64("entry_price", entryPrice),
		)
		return 0
	}
	if portfolioValue <= 0 || entryPrice <= 0 {
		return 0
	}

	riskAmount := portfolioValue * s.cfg.RiskPerTrade
	size := riskAmount / stopDistance

	maxShares := portfolioValue * s.cfg.MaxPositionSize / entryPrice
	if size > maxShares {
		size = maxShares
	}

	if size < 0 {
		return 0
	}
	return int(size)
}

// StopFromATR 以 ATR 倍数确定止损价。
func StopFromATR(entryPrice, atr, multiplier float64) float64 {
	return entryPrice - atr*multiplier
}

// TakeProfit 以盈亏比确定止盈价。atr<=0 时退化为2%默认止损距离。
func TakeProfit(entryPrice, rewardRiskRatio, atr, multiplier float64) float64 {
	stopDistance := entryPrice * 0.02
	if atr > 0 {
		stopDistance = atr * multiplier
	}
	return entryPrice + stopDistance*rewardRiskRatio
}
