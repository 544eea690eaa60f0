// Package indicator 提供回测所需的技术指标，全部为纯函数。
//
// 数值语义在此固定，保证回测结果可逐位复现：
//   - EMA 平滑系数 α = 2/(period+1)，以首个值作为种子；
//   - RSI 基于窗口均值的涨跌幅，窗口内无亏损（除零）时返回中性值 50；
//   - ADX 采用简化的 ±DM / TR 滚动均值，DI 之和为 0 时返回 0；
//   - 布林带使用样本标准差（ddof=1）；
//   - 输入短于窗口时以中性值填充，绝不返回 NaN/Inf，也不会 panic。
package indicator

import "math"

// EMA 计算指数移动平均。前 period-1 个值为递推近似值而非精确窗口值。
func EMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	if period <= 1 {
		copy(out, values)
		return out
	}

	alpha := 2.0 / float64(period+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RSI 计算相对强弱指标。窗口不足或窗口内无亏损时返回中性值 50。
func RSI(close []float64, period int) []float64 {
	out := make([]float64, len(close))
	for i := range out {
		out[i] = 50
	}
	if period <= 0 || len(close) <= period {
		return out
	}

	deltas := make([]float64, len(close))
	for i := 1; i < len(close); i++ {
		deltas[i] = close[i] - close[i-1]
	}

	for i := period; i < len(close); i++ {
		var gain, loss float64
		for j := i - period + 1; j <= i; j++ {
			if deltas[j] > 0 {
				gain += deltas[j]
			} else {
				loss -= deltas[j]
			}
		}
		gain /= float64(period)
		loss /= float64(period)

		if loss == 0 {
			out[i] = 50
			continue
		}
		rs := gain / loss
		out[i] = 100 - 100/(1+rs)
	}

	return out
}

// ADX 计算简化的平均趋向指标。预热期与退化情形（DI 之和为 0）均返回 0。
func ADX(high, low, close []float64, period int) []float64 {
	n := len(close)
	out := make([]float64, n)
	if period <= 0 || n < 2 || len(high) != n || len(low) != n {
		return out
	}

	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	tr := make([]float64, n)
	for i := 1; i < n; i++ {
		if d := high[i] - high[i-1]; d > 0 {
			plusDM[i] = d
		}
		if d := low[i-1] - low[i]; d > 0 {
			minusDM[i] = d
		}
		tr[i] = math.Max(high[i]-low[i],
			math.Max(math.Abs(high[i]-close[i-1]), math.Abs(low[i]-close[i-1])))
	}

	dx := make([]float64, n)
	for i := period; i < n; i++ {
		var pdmSum, mdmSum, trSum float64
		for j := i - period + 1; j <= i; j++ {
			pdmSum += plusDM[j]
			mdmSum += minusDM[j]
			trSum += tr[j]
		}
		if trSum == 0 {
			continue
		}
		plusDI := 100 * pdmSum / trSum
		minusDI := 100 * mdmSum / trSum

		diSum := plusDI + minusDI
		if diSum == 0 {
			continue
		}
		dx[i] = 100 * math.Abs(plusDI-minusDI) / diSum
	}

	// ADX 为 DX 的再一次滚动均值，首个有效点在 2*period-1。
	for i := 2*period - 1; i < n; i++ {
		var sum float64
		for j := i - period + 1; j <= i; j++ {
			sum += dx[j]
		}
		out[i] = sum / float64(period)
	}

	return out
}

// BollingerBands 返回上轨、中轨、下轨。预热期以当日收盘价填充（零带宽）。
func BollingerBands(close []float64, period int, stdDevMult float64) (upper, middle, lower []float64) {
	n := len(close)
	upper = make([]float64, n)
	middle = make([]float64, n)
	lower = make([]float64, n)

	for i := 0; i < n; i++ {
		if period <= 0 || i < period-1 {
			upper[i] = close[i]
			middle[i] = close[i]
			lower[i] = close[i]
			continue
		}

		var sum float64
		for j := i - period + 1; j <= i; j++ {
			sum += close[j]
		}
		mean := sum / float64(period)

		var variance float64
		for j := i - period + 1; j <= i; j++ {
			diff := close[j] - mean
			variance += diff * diff
		}
		if period > 1 {
			variance /= float64(period - 1)
		}
		std := math.Sqrt(variance)

		middle[i] = mean
		upper[i] = mean + stdDevMult*std
		lower[i] = mean - stdDevMult*std
	}

	return upper, middle, lower
}

// ATRProxy 以当日最高价减最低价近似真实波幅。
// 这是刻意的简化（非滚动真实波幅均值），仅用于模拟引擎的止损定位。
func ATRProxy(high, low []float64) []float64 {
	n := len(high)
	if len(low) < n {
		n = len(low)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = high[i] - low[i]
	}
	return out
}
