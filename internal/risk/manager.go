package risk

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"quantfund/internal/config"
)

// Manager 执行组合级风控约束：并发仓位数、单仓规模、日亏损额度、
// 单笔风险额度与回撤熔断。每个标的的仓位状态机只有 FLAT → OPEN → FLAT 两态。
//
// 一次回测（或一个实盘编排器）独占一个 Manager 实例，内部不加锁。
type Manager struct {
	cfg    config.RiskConfig
	logger *zap.Logger

	startingCapital float64
	capital         float64
	positions       map[string]*Position
	dailyLoss       float64
	monthlyLoss     float64
}

// NewManager 创建风控管理器。
func NewManager(cfg config.RiskConfig, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:             cfg,
		logger:          logger,
		startingCapital: cfg.StartingCapital,
		capital:         cfg.StartingCapital,
		positions:       make(map[string]*Position),
	}
}

// Validate 按固定优先级校验开仓请求，首个触发的规则决定结论：
//  1. 并发仓位数达到上限 → 拒绝；
//  2. 仓位市值超出 max_position_size → 调降股数后批准；
//  3. 当日累计亏损达到额度 → 拒绝；
//  4. 单笔美元风险超出 risk_per_trade 额度 → 拒绝；
//  5. 其余情况按原请求批准。
func (m *Manager) Validate(request TradeRequest) TradeApproval {
	if len(m.positions) >= m.cfg.MaxConcurrentTrades {
		return TradeApproval{
			Approved: false,
			Reason:   fmt.Sprintf("并发仓位已达上限 %d", m.cfg.MaxConcurrentTrades),
		}
	}

	positionValue := float64(request.Shares) * request.EntryPrice
	if m.capital > 0 && positionValue/m.capital > m.cfg.MaxPositionSize {
		maxShares := int(m.capital * m.cfg.MaxPositionSize / request.EntryPrice)
		// 上限内连一股都容不下时按拒绝处理，调降为0再放行会绕过仓位上限。
		if maxShares <= 0 {
			return TradeApproval{
				Approved: false,
				Reason:   fmt.Sprintf("单股价格 %.2f 超出仓位上限", request.EntryPrice),
			}
		}
		return TradeApproval{
			Approved:       true,
			Reason:         fmt.Sprintf("仓位调降: %d → %d 股", request.Shares, maxShares),
			AdjustedShares: maxShares,
		}
	}

	if m.dailyLoss >= m.capital*m.cfg.DailyLossLimit {
		return TradeApproval{
			Approved: false,
			Reason:   fmt.Sprintf("当日亏损已达额度 %.1f%%", m.cfg.DailyLossLimit*100),
		}
	}

	stopDistance := math.Abs(request.EntryPrice - request.StopLoss)
	tradeRisk := float64(request.Shares) * stopDistance
	maxRisk := m.capital * m.cfg.RiskPerTrade
	if tradeRisk > maxRisk {
		return TradeApproval{
			Approved: false,
			Reason:   fmt.Sprintf("单笔风险 %.0f 超过额度 %.0f", tradeRisk, maxRisk),
		}
	}

	return TradeApproval{Approved: true, Reason: "通过校验"}
}

// Open 重新校验并登记仓位，校验未通过时返回 false。
// 若校验给出调降股数，则按调降后的股数登记。
func (m *Manager) Open(request TradeRequest, entryDate time.Time) bool {
	approval := m.Validate(request)
	if !approval.Approved {
		m.logger.Warn("开仓请求被拒绝",
			zap.String("symbol", request.Symbol),
			zap.String("reason", approval.Reason),
		)
		return false
	}

	shares := request.Shares
	if approval.AdjustedShares > 0 {
		shares = approval.AdjustedShares
	}

	m.positions[request.Symbol] = &Position{
		Symbol:     request.Symbol,
		Shares:     shares,
		EntryPrice: request.EntryPrice,
		StopLoss:   request.StopLoss,
		EntryDate:  entryDate,
	}

	m.logger.Debug("仓位已登记",
		zap.String("symbol", request.Symbol),
		zap.Int("shares", shares),
		zap.Float64("entry_price", request.EntryPrice),
	)

	return true
}

// Close 平仓并返回已实现盈亏，同时更新资金与亏损累计。
// 标的无在场仓位时返回0并记录告警（调用方缺陷，不致命）。
func (m *Manager) Close(symbol string, exitPrice float64) float64 {
	pos, ok := m.positions[symbol]
	if !ok {
		m.logger.Warn("平仓失败：标的无在场仓位", zap.String("symbol", symbol))
		return 0
	}

	pnl := (exitPrice - pos.EntryPrice) * float64(pos.Shares)
	m.capital += pnl
	if pnl < 0 {
		m.dailyLoss += -pnl
		m.monthlyLoss += -pnl
	}

	delete(m.positions, symbol)

	m.logger.Debug("仓位已平仓",
		zap.String("symbol", symbol),
		zap.Float64("exit_price", exitPrice),
		zap.Float64("pnl", pnl),
	)

	return pnl
}

// UpdatePrices 更新在场仓位的最新价格，供浮盈计算使用。
func (m *Manager) UpdatePrices(prices map[string]float64) {
	for symbol, price := range prices {
		if pos, ok := m.positions[symbol]; ok {
			pos.CurrentPrice = price
		}
	}
}

// PortfolioValue 返回组合净值：资金加上全部在场仓位的浮动盈亏。
func (m *Manager) PortfolioValue() float64 {
	var unrealized float64
	for _, pos := range m.positions {
		if pos.CurrentPrice > 0 {
			unrealized += (pos.CurrentPrice - pos.EntryPrice) * float64(pos.Shares)
		}
	}
	return m.capital + unrealized
}

// Exposure 返回在场仓位名义市值占当前资金的比例。
func (m *Manager) Exposure() float64 {
	if m.capital == 0 {
		return 0
	}
	var notional float64
	for _, pos := range m.positions {
		notional += float64(pos.Shares) * pos.EntryPrice
	}
	return notional / m.capital
}

// KillSwitchOk 检查回撤熔断。相对初始资金的回撤超过月度限制时返回 false，
// 调用方必须停止新开仓。
func (m *Manager) KillSwitchOk() bool {
	drawdown := (m.startingCapital - m.PortfolioValue()) / m.startingCapital
	if drawdown > m.cfg.MonthlyDrawdownLimit {
		m.logger.Error("触发回撤熔断，禁止新开仓",
			zap.Float64("drawdown", drawdown),
			zap.Float64("limit", m.cfg.MonthlyDrawdownLimit),
		)
		return false
	}
	return true
}

// Capital 返回当前已实现资金。
func (m *Manager) Capital() float64 {
	return m.capital
}

// OpenPositionCount 返回在场仓位数量。
func (m *Manager) OpenPositionCount() int {
	return len(m.positions)
}

// OpenPosition 返回指定标的的在场仓位副本。
func (m *Manager) OpenPosition(symbol string) (Position, bool) {
	pos, ok := m.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}
