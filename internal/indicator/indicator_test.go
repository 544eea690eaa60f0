package indicator

import (
	"math"
	"testing"
)

func TestEMAConstantSeries(t *testing.T) {
	values := constantSeries(100, 100)
	out := EMA(values, 20)

	if len(out) != len(values) {
		t.Fatalf("length mismatch: got %d want %d", len(out), len(values))
	}
	for i, v := range out {
		if math.Abs(v-100) > 1e-9 {
			t.Fatalf("EMA of constant series should stay constant, index %d got %f", i, v)
		}
	}
}

func TestEMAShortInput(t *testing.T) {
	out := EMA([]float64{10, 11}, 20)
	if len(out) != 2 {
		t.Fatalf("expected output length 2, got %d", len(out))
	}
	for i, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("index %d produced non-finite value %f", i, v)
		}
	}

	if out := EMA(nil, 20); len(out) != 0 {
		t.Fatalf("expected empty output for empty input, got %d", len(out))
	}
}

func TestRSIConstantSeriesNeutral(t *testing.T) {
	out := RSI(constantSeries(60, 100), 14)
	for i, v := range out {
		if v != 50 {
			t.Fatalf("constant series should yield RSI=50 everywhere, index %d got %f", i, v)
		}
	}
}

func TestRSIAllGainsStaysNeutralOnZeroLoss(t *testing.T) {
	values := make([]float64, 40)
	for i := range values {
		values[i] = 100 + float64(i)
	}
	out := RSI(values, 14)
	for i, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("index %d produced non-finite RSI %f", i, v)
		}
		if v != 50 {
			t.Fatalf("zero-loss window must resolve to 50, index %d got %f", i, v)
		}
	}
}

func TestRSIDownMoveBelowNeutral(t *testing.T) {
	values := make([]float64, 40)
	for i := range values {
		values[i] = 200 - float64(i)
	}
	out := RSI(values, 14)
	last := out[len(out)-1]
	if last >= 50 {
		t.Fatalf("strictly falling series should yield RSI below 50, got %f", last)
	}
	if last < 0 {
		t.Fatalf("RSI must stay within [0,100], got %f", last)
	}
}

func TestADXConstantSeriesZero(t *testing.T) {
	high := constantSeries(120, 10)
	low := constantSeries(120, 10)
	close := constantSeries(120, 10)

	out := ADX(high, low, close, 14)
	for i, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("index %d produced non-finite ADX %f", i, v)
		}
		if v != 0 {
			t.Fatalf("zero-variance series must resolve ADX to 0, index %d got %f", i, v)
		}
	}
}

func TestADXTrendingSeriesPositive(t *testing.T) {
	n := 120
	high := make([]float64, n)
	low := make([]float64, n)
	close := make([]float64, n)
	for i := 0; i < n; i++ {
		base := 100 + float64(i)
		high[i] = base + 1
		low[i] = base - 1
		close[i] = base
	}

	out := ADX(high, low, close, 14)
	if last := out[n-1]; last <= 0 {
		t.Fatalf("steady uptrend should produce positive ADX, got %f", last)
	}
}

func TestBollingerBandsWindow(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	upper, middle, lower := BollingerBands(values, 5, 2)

	// 预热期以收盘价填充，零带宽。
	for i := 0; i < 4; i++ {
		if upper[i] != values[i] || middle[i] != values[i] || lower[i] != values[i] {
			t.Fatalf("warm-up index %d should equal close, got upper=%f middle=%f lower=%f", i, upper[i], middle[i], lower[i])
		}
	}

	// 窗口 [1..5] 的均值为 3，样本标准差 sqrt(2.5)。
	wantMid := 3.0
	wantStd := math.Sqrt(2.5)
	if math.Abs(middle[4]-wantMid) > 1e-9 {
		t.Fatalf("middle band mismatch: got %f want %f", middle[4], wantMid)
	}
	if math.Abs(upper[4]-(wantMid+2*wantStd)) > 1e-9 {
		t.Fatalf("upper band mismatch: got %f", upper[4])
	}
	if math.Abs(lower[4]-(wantMid-2*wantStd)) > 1e-9 {
		t.Fatalf("lower band mismatch: got %f", lower[4])
	}
}

func TestATRProxy(t *testing.T) {
	high := []float64{10, 12, 11}
	low := []float64{9, 10.5, 10}

	out := ATRProxy(high, low)
	want := []float64{1, 1.5, 1}
	for i := range want {
		if math.Abs(out[i]-want[i]) > 1e-9 {
			t.Fatalf("index %d: got %f want %f", i, out[i], want[i])
		}
	}
}

func constantSeries(n int, value float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}
