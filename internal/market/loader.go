package market

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Loader 按标的提供校验过的日线序列。
type Loader interface {
	Load(ctx context.Context, symbol string) (Series, error)
}

// CSVLoader 从本地CSV文件加载日线数据并缓存。
// 文件名约定为 <symbol>.csv，列为 date,open,high,low,close,volume。
type CSVLoader struct {
	dir    string
	logger *zap.Logger

	mu    sync.Mutex
	cache map[string]Series
}

// NewCSVLoader 创建CSV数据加载器。
func NewCSVLoader(dir string, logger *zap.Logger) *CSVLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVLoader{
		dir:    dir,
		logger: logger,
		cache:  make(map[string]Series),
	}
}

// Load 读取并校验一个标的的日线序列，重复读取命中缓存。
func (l *CSVLoader) Load(ctx context.Context, symbol string) (Series, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return Series{}, fmt.Errorf("market: symbol 不能为空")
	}

	l.mu.Lock()
	if series, ok := l.cache[symbol]; ok {
		l.mu.Unlock()
		return series, nil
	}
	l.mu.Unlock()

	select {
	case <-ctx.Done():
		return Series{}, ctx.Err()
	default:
	}

	path := filepath.Join(l.dir, symbol+".csv")
	file, err := os.Open(path)
	if err != nil {
		return Series{}, fmt.Errorf("market: 打开数据文件 %q 失败: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return Series{}, fmt.Errorf("market: 解析 %q 失败: %w", path, err)
	}
	if len(records) < 2 {
		return Series{}, fmt.Errorf("market: %q 不含有效数据行", path)
	}

	bars := make([]Bar, 0, len(records)-1)
	var prev time.Time
	for i, record := range records[1:] {
		bar, parseErr := parseBar(record)
		if parseErr != nil {
			return Series{}, fmt.Errorf("market: %q 第%d行无效: %w", path, i+2, parseErr)
		}
		if !prev.IsZero() && !bar.Timestamp.After(prev) {
			return Series{}, fmt.Errorf("market: %q 第%d行时间戳未递增", path, i+2)
		}
		prev = bar.Timestamp
		bars = append(bars, bar)
	}

	series := NewSeries(symbol, bars)

	l.mu.Lock()
	l.cache[symbol] = series
	l.mu.Unlock()

	l.logger.Info("日线数据加载完成",
		zap.String("symbol", symbol),
		zap.Int("bars", series.Len()),
		zap.Time("start", series.StartDate()),
		zap.Time("end", series.EndDate()),
	)

	return series, nil
}

func parseBar(record []string) (Bar, error) {
	if len(record) < 6 {
		return Bar{}, fmt.Errorf("列数不足，期望6列，实际%d列", len(record))
	}

	ts, err := time.Parse("2006-01-02", strings.TrimSpace(record[0]))
	if err != nil {
		return Bar{}, fmt.Errorf("日期解析失败: %w", err)
	}

	values := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, parseErr := strconv.ParseFloat(strings.TrimSpace(record[i+1]), 64)
		if parseErr != nil {
			return Bar{}, fmt.Errorf("第%d列数值解析失败: %w", i+2, parseErr)
		}
		values[i] = v
	}

	bar := Bar{
		Timestamp: ts.UTC(),
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
	}

	if bar.Open <= 0 || bar.High <= 0 || bar.Low <= 0 || bar.Close <= 0 {
		return Bar{}, fmt.Errorf("价格必须为正")
	}
	if bar.Volume < 0 {
		return Bar{}, fmt.Errorf("成交量不能为负")
	}
	if bar.High < bar.Low {
		return Bar{}, fmt.Errorf("最高价低于最低价")
	}

	return bar, nil
}
