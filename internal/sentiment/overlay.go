// Package sentiment 提供可选的情绪过滤层，仅给出建议信号，从不直接驱动交易。
// 未接入真实评分源时使用中性实现，核心管线的行为与未启用时完全一致。
package sentiment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scorer 为情绪评分源，返回 [-1, 1] 区间的分数（-1 极度看空，+1 极度看多）。
type Scorer interface {
	Score(ctx context.Context, symbol string, date time.Time) (float64, error)
}

// Neutral 为默认评分源，恒定返回中性分数0。
type Neutral struct{}

// Score 返回中性分数。
func (Neutral) Score(ctx context.Context, symbol string, date time.Time) (float64, error) {
	return 0, nil
}

// Overlay 基于情绪分数过滤做多信号。分数按 标的+日期 缓存。
type Overlay struct {
	threshold float64
	scorer    Scorer
	logger    *zap.Logger

	mu    sync.Mutex
	cache map[string]float64
}

// NewOverlay 创建情绪过滤层。scorer 为空时使用中性实现。
func NewOverlay(threshold float64, scorer Scorer, logger *zap.Logger) *Overlay {
	if scorer == nil {
		scorer = Neutral{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Overlay{
		threshold: threshold,
		scorer:    scorer,
		logger:    logger,
		cache:     make(map[string]float64),
	}
}

// Score 返回缓存的情绪分数，评分失败时退化为中性0（建议层不阻断核心流程）。
func (o *Overlay) Score(ctx context.Context, symbol string, date time.Time) float64 {
	key := fmt.Sprintf("%s_%s", symbol, date.UTC().Format("2006-01-02"))

	o.mu.Lock()
	if score, ok := o.cache[key]; ok {
		o.mu.Unlock()
		return score
	}
	o.mu.Unlock()

	score, err := o.scorer.Score(ctx, symbol, date)
	if err != nil {
		o.logger.Warn("情绪评分失败，使用中性分数",
			zap.String("symbol", symbol),
			zap.Error(err),
		)
		score = 0
	}

	o.mu.Lock()
	o.cache[key] = score
	o.mu.Unlock()

	return score
}

// Evaluate 判断信号是否可以放行，并给出信心度调整。
// 只有做多信号会被拦截：分数低于阈值时拒绝（调整 -0.5），
// 分数认同时给予至多 +0.3 的信心提升。做空与空仓信号永不拦截。
func (o *Overlay) Evaluate(ctx context.Context, symbol string, date time.Time, signal int) (bool, float64) {
	if signal != 1 {
		return true, 0
	}

	score := o.Score(ctx, symbol, date)
	if score < o.threshold {
		o.logger.Debug("情绪过滤拒绝做多信号",
			zap.String("symbol", symbol),
			zap.Float64("score", score),
			zap.Float64("threshold", o.threshold),
		)
		return false, -0.5
	}

	adjustment := score * 0.5
	if adjustment > 0.3 {
		adjustment = 0.3
	}
	return true, adjustment
}
