package features

import (
	"fmt"
	"math"
	"testing"

	"KabuFeed/internal/domain/models"
)

func fp(v float64) *float64 { return &v }

func bar(code, date string, close, volume float64) models.DailyQuote {
	return models.DailyQuote{
		Code:             code,
		Date:             date,
		Open:             fp(close),
		High:             fp(close * 1.01),
		Low:              fp(close * 0.99),
		Close:            fp(close),
		Volume:           fp(volume),
		AdjustmentFactor: 1,
	}
}

// tradingDate produces synthetic increasing ISO dates.
func tradingDate(i int) string {
	return fmt.Sprintf("2024-%02d-%02d", 1+i/28, 1+i%28)
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestApplySkipsUnusableBars(t *testing.T) {
	tr := NewTracker()

	missing := bar("7203", "2024-01-04", 100, 1000)
	missing.Close = nil
	if row := tr.Apply(&missing); row != nil {
		t.Error("nil close should be skipped")
	}

	zero := bar("7203", "2024-01-04", 0, 1000)
	if row := tr.Apply(&zero); row != nil {
		t.Error("zero close should be skipped")
	}

	if tr.Size() != 1 {
		t.Errorf("Size = %d, want 1", tr.Size())
	}

	good := bar("7203", "2024-01-04", 100, 1000)
	if row := tr.Apply(&good); row == nil {
		t.Fatal("valid bar rejected")
	}
}

func TestApplyIgnoresDuplicateAndStaleDates(t *testing.T) {
	tr := NewTracker()

	d1 := bar("7203", "2024-01-04", 100, 1000)
	d2 := bar("7203", "2024-01-05", 110, 1000)
	if tr.Apply(&d1) == nil || tr.Apply(&d2) == nil {
		t.Fatal("setup bars rejected")
	}

	dup := bar("7203", "2024-01-05", 999, 1)
	if row := tr.Apply(&dup); row != nil {
		t.Error("duplicate date should be ignored")
	}
	stale := bar("7203", "2024-01-04", 999, 1)
	if row := tr.Apply(&stale); row != nil {
		t.Error("stale date should be ignored")
	}

	row, ok := tr.LatestRow("7203")
	if !ok || row.Close != 110 {
		t.Fatalf("latest row = %+v", row)
	}
}

func TestReturnsAndWarmup(t *testing.T) {
	tr := NewTracker()

	// 1% per day compounding.
	price := 100.0
	var last *models.FeatureRow
	for i := 0; i < closesCap; i++ {
		q := bar("7203", tradingDate(i), price, 1000)
		last = tr.Apply(&q)
		if last == nil {
			t.Fatalf("bar %d rejected", i)
		}
		wantWarm := i < closesCap-1
		if last.Warmup != wantWarm {
			t.Errorf("bar %d: warmup = %v, want %v", i, last.Warmup, wantWarm)
		}
		price *= 1.01
	}

	if !almostEqual(last.Return1D, 0.01) {
		t.Errorf("Return1D = %g, want 0.01", last.Return1D)
	}
	want5 := math.Pow(1.01, 5) - 1
	if !almostEqual(last.Return5D, want5) {
		t.Errorf("Return5D = %g, want %g", last.Return5D, want5)
	}
	want30 := math.Pow(1.01, 30) - 1
	if !almostEqual(last.Return30D, want30) {
		t.Errorf("Return30D = %g, want %g", last.Return30D, want30)
	}

	// Monotonically rising closes sit at the top of the band and above
	// every moving average.
	if last.PricePosition30 != 1 {
		t.Errorf("PricePosition30 = %g, want 1", last.PricePosition30)
	}
	if last.MAGap5 <= 0 || last.MAGap30 <= last.MAGap5 {
		t.Errorf("MA gaps = %g, %g; want 0 < gap5 < gap30", last.MAGap5, last.MAGap30)
	}

	// Constant daily return has zero volatility.
	if !almostEqual(last.Volatility5, 0) {
		t.Errorf("Volatility5 = %g, want 0", last.Volatility5)
	}
}

func TestAdjustmentFactorRescalesState(t *testing.T) {
	tr := NewTracker()

	for i := 0; i < 10; i++ {
		q := bar("7203", tradingDate(i), 100, 1000)
		if tr.Apply(&q) == nil {
			t.Fatalf("bar %d rejected", i)
		}
	}

	// 1:2 split: prices halve, volume doubles.
	split := bar("7203", tradingDate(10), 50, 2000)
	split.AdjustmentFactor = 0.5
	row := tr.Apply(&split)
	if row == nil {
		t.Fatal("split bar rejected")
	}

	if !almostEqual(row.Return1D, 0) {
		t.Errorf("Return1D across split = %g, want 0", row.Return1D)
	}
	if !almostEqual(row.MAGap5, 0) {
		t.Errorf("MAGap5 across split = %g, want 0", row.MAGap5)
	}
	if !almostEqual(row.VolumeRatio5, 1) {
		t.Errorf("VolumeRatio5 across split = %g, want 1", row.VolumeRatio5)
	}
}

func TestVolumeRatio(t *testing.T) {
	tr := NewTracker()

	for i := 0; i < 4; i++ {
		q := bar("7203", tradingDate(i), 100, 1000)
		tr.Apply(&q)
	}
	spike := bar("7203", tradingDate(4), 100, 6000)
	row := tr.Apply(&spike)
	if row == nil {
		t.Fatal("bar rejected")
	}

	// window mean = (4*1000 + 6000) / 5 = 2000
	if !almostEqual(row.VolumeRatio5, 3) {
		t.Errorf("VolumeRatio5 = %g, want 3", row.VolumeRatio5)
	}
}

func TestLatestRowsSorted(t *testing.T) {
	tr := NewTracker()
	for _, code := range []string{"9984", "7203", "6758"} {
		q := bar(code, "2024-01-04", 100, 1000)
		tr.Apply(&q)
	}

	rows := tr.LatestRows()
	if len(rows) != 3 {
		t.Fatalf("len = %d, want 3", len(rows))
	}
	if rows[0].Code != "6758" || rows[1].Code != "7203" || rows[2].Code != "9984" {
		t.Errorf("order = %s, %s, %s", rows[0].Code, rows[1].Code, rows[2].Code)
	}
}

func TestApplyBatch(t *testing.T) {
	tr := NewTracker()
	quotes := []models.DailyQuote{
		bar("7203", "2024-01-04", 100, 1000),
		bar("9984", "2024-01-04", 200, 500),
		{Code: "6758", Date: "2024-01-04"}, // no close
	}
	rows := tr.ApplyBatch(quotes)
	if len(rows) != 2 {
		t.Fatalf("len = %d, want 2", len(rows))
	}
}

func TestSeriesRing(t *testing.T) {
	s := newSeries(3)
	for _, v := range []float64{1, 2, 3, 4} {
		s.push(v)
	}
	if !s.full() {
		t.Error("series should be full")
	}
	if got := s.last(); got != 4 {
		t.Errorf("last = %g, want 4", got)
	}
	if v, ok := s.ago(2); !ok || v != 2 {
		t.Errorf("ago(2) = %g,%v, want 2", v, ok)
	}
	if _, ok := s.ago(3); ok {
		t.Error("ago(3) should miss on capacity 3")
	}
	if got := s.meanLast(3); !almostEqual(got, 3) {
		t.Errorf("meanLast = %g, want 3", got)
	}
	lo, hi := s.minMaxLast(3)
	if lo != 2 || hi != 4 {
		t.Errorf("minMax = %g, %g", lo, hi)
	}
}
