package market

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const validCSV = `date,open,high,low,close,volume
2024-01-02,100,102,99,101,10000
2024-01-03,101,103,100,102,12000
2024-01-04,102,104,101,103,11000
`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture failed: %v", err)
	}
	return dir
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := writeFixture(t, "SPY.csv", validCSV)
	loader := NewCSVLoader(dir, nil)

	series, err := loader.Load(context.Background(), " spy ")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if series.Symbol != "SPY" {
		t.Fatalf("expected normalized symbol SPY, got %q", series.Symbol)
	}
	if series.Len() != 3 {
		t.Fatalf("expected 3 bars, got %d", series.Len())
	}
	if series.Close[1] != 102 {
		t.Fatalf("expected close[1]=102, got %f", series.Close[1])
	}
	if !series.EndDate().After(series.StartDate()) {
		t.Fatalf("end date must come after start date")
	}
}

func TestLoadCachesBySymbol(t *testing.T) {
	dir := writeFixture(t, "SPY.csv", validCSV)
	loader := NewCSVLoader(dir, nil)

	if _, err := loader.Load(context.Background(), "SPY"); err != nil {
		t.Fatalf("first load failed: %v", err)
	}

	// 删除文件后仍可命中缓存。
	if err := os.Remove(filepath.Join(dir, "SPY.csv")); err != nil {
		t.Fatalf("remove fixture failed: %v", err)
	}
	series, err := loader.Load(context.Background(), "SPY")
	if err != nil {
		t.Fatalf("cached load failed: %v", err)
	}
	if series.Len() != 3 {
		t.Fatalf("expected cached series with 3 bars, got %d", series.Len())
	}
}

func TestLoadRejectsUnsortedTimestamps(t *testing.T) {
	csv := `date,open,high,low,close,volume
2024-01-03,101,103,100,102,12000
2024-01-02,100,102,99,101,10000
`
	dir := writeFixture(t, "SPY.csv", csv)
	loader := NewCSVLoader(dir, nil)

	if _, err := loader.Load(context.Background(), "SPY"); err == nil {
		t.Fatalf("expected error for unsorted timestamps")
	}
}

func TestLoadRejectsNonPositivePrices(t *testing.T) {
	csv := `date,open,high,low,close,volume
2024-01-02,100,102,-1,101,10000
`
	dir := writeFixture(t, "SPY.csv", csv)
	loader := NewCSVLoader(dir, nil)

	if _, err := loader.Load(context.Background(), "SPY"); err == nil {
		t.Fatalf("expected error for non-positive price")
	}
}

func TestLoadMissingFile(t *testing.T) {
	loader := NewCSVLoader(t.TempDir(), nil)

	if _, err := loader.Load(context.Background(), "SPY"); err == nil {
		t.Fatalf("expected error for missing data file")
	}
}
