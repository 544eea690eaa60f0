package strategy

import (
	"errors"

	"quantfund/internal/market"
)

// Signal 表示策略在单根日线上的方向立场。
type Signal int8

const (
	// Long 做多。
	Long Signal = 1
	// Flat 空仓。
	Flat Signal = 0
	// Short 做空。
	Short Signal = -1
)

// ErrInvalidConfig 表示策略参数在构造时未通过校验。
var ErrInvalidConfig = errors.New("strategy: invalid configuration")

// Strategy 由封闭的策略集合实现：给定日线序列输出逐bar信号。
// 输出长度恒等于输入长度，且不依赖任何外部状态。
type Strategy interface {
	Name() string
	Generate(series market.Series) []Signal
}
