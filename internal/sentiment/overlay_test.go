package sentiment

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubScorer struct {
	score float64
	err   error
	calls int
}

func (s *stubScorer) Score(ctx context.Context, symbol string, date time.Time) (float64, error) {
	s.calls++
	return s.score, s.err
}

func testDate() time.Time {
	return time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
}

func TestEvaluateNeutralApprovesLong(t *testing.T) {
	o := NewOverlay(-0.2, nil, nil)

	approved, adjustment := o.Evaluate(context.Background(), "SPY", testDate(), 1)
	if !approved {
		t.Fatalf("neutral sentiment must approve long signals")
	}
	if adjustment != 0 {
		t.Fatalf("neutral sentiment should not adjust confidence, got %f", adjustment)
	}
}

func TestEvaluateRejectsBearishLong(t *testing.T) {
	scorer := &stubScorer{score: -0.8}
	o := NewOverlay(-0.2, scorer, nil)

	approved, adjustment := o.Evaluate(context.Background(), "SPY", testDate(), 1)
	if approved {
		t.Fatalf("bearish sentiment below threshold must reject long signals")
	}
	if adjustment != -0.5 {
		t.Fatalf("expected adjustment -0.5, got %f", adjustment)
	}
}

func TestEvaluateBoostIsCapped(t *testing.T) {
	scorer := &stubScorer{score: 0.9}
	o := NewOverlay(-0.2, scorer, nil)

	approved, adjustment := o.Evaluate(context.Background(), "SPY", testDate(), 1)
	if !approved {
		t.Fatalf("bullish sentiment must approve long signals")
	}
	if adjustment != 0.3 {
		t.Fatalf("confidence boost should cap at 0.3, got %f", adjustment)
	}
}

func TestEvaluateNeverBlocksShortOrFlat(t *testing.T) {
	scorer := &stubScorer{score: -1}
	o := NewOverlay(-0.2, scorer, nil)

	for _, signal := range []int{0, -1} {
		approved, _ := o.Evaluate(context.Background(), "SPY", testDate(), signal)
		if !approved {
			t.Fatalf("signal %d must never be blocked by sentiment", signal)
		}
	}
	if scorer.calls != 0 {
		t.Fatalf("short/flat signals should not trigger scoring, got %d calls", scorer.calls)
	}
}

func TestScoreCachedPerSymbolAndDate(t *testing.T) {
	scorer := &stubScorer{score: 0.1}
	o := NewOverlay(-0.2, scorer, nil)

	o.Score(context.Background(), "SPY", testDate())
	o.Score(context.Background(), "SPY", testDate())
	if scorer.calls != 1 {
		t.Fatalf("same symbol+date should hit the cache, got %d calls", scorer.calls)
	}

	o.Score(context.Background(), "SPY", testDate().AddDate(0, 0, 1))
	if scorer.calls != 2 {
		t.Fatalf("different date should miss the cache, got %d calls", scorer.calls)
	}
}

func TestScoreFailureFallsBackToNeutral(t *testing.T) {
	scorer := &stubScorer{err: errors.New("boom")}
	o := NewOverlay(-0.2, scorer, nil)

	if score := o.Score(context.Background(), "SPY", testDate()); score != 0 {
		t.Fatalf("scorer failure must fall back to neutral 0, got %f", score)
	}
}
