package features

import (
	"sort"
	"sync"

	"KabuFeed/internal/domain/models"
)

// Rolling window lengths in trading days.
const (
	winShort  = 5
	winMid    = 10
	winLong   = 30
	winRange  = 5
	closesCap = winLong + 1 // 30-day return needs the close 30 bars back
)

// StockTracker keeps the rolling state of one security and derives a
// feature row from each new daily bar. It is not safe for concurrent use;
// Tracker serializes access.
type StockTracker struct {
	code     string
	lastDate string

	closes  *series // raw closes, rescaled on corporate actions
	volumes *series
	returns *series // daily returns
	ranges  *series // (high-low)/close

	last *models.FeatureRow
}

func newStockTracker(code string) *StockTracker {
	return &StockTracker{
		code:    code,
		closes:  newSeries(closesCap),
		volumes: newSeries(winLong),
		returns: newSeries(winLong),
		ranges:  newSeries(winRange),
	}
}

// apply folds one bar into the state and returns the derived feature row.
// Bars without a usable close, stale dates, and duplicates return nil.
func (t *StockTracker) apply(q *models.DailyQuote) *models.FeatureRow {
	if !q.HasClose() {
		return nil
	}
	if q.Date == "" || q.Date <= t.lastDate {
		return nil
	}

	// A factor != 1 means a split or reverse split took effect today:
	// remembered prices move to the new scale, volumes move inversely.
	if f := q.Factor(); f != 1 && f > 0 {
		t.closes.scale(f)
		t.volumes.scale(1 / f)
	}

	closePx := q.CloseValue()
	volume := q.VolumeValue()

	if prev := t.closes.last(); t.closes.len() > 0 && prev > 0 {
		t.returns.push(closePx/prev - 1)
	}
	t.closes.push(closePx)
	t.volumes.push(volume)

	dayRange := 0.0
	if q.High != nil && q.Low != nil {
		dayRange = (q.HighValue() - q.LowValue()) / closePx
	}
	t.ranges.push(dayRange)

	t.lastDate = q.Date

	row := &models.FeatureRow{
		Code:   t.code,
		Date:   q.Date,
		Close:  closePx,
		Volume: volume,
		Warmup: !t.closes.full(),

		Return1D:  t.trailingReturn(1),
		Return5D:  t.trailingReturn(winShort),
		Return10D: t.trailingReturn(winMid),
		Return30D: t.trailingReturn(winLong),

		MAGap5:  t.maGap(winShort),
		MAGap10: t.maGap(winMid),
		MAGap30: t.maGap(winLong),

		Volatility5:  t.returns.stdLast(winShort),
		Volatility30: t.returns.stdLast(winLong),

		VolumeRatio5:  t.volumeRatio(winShort),
		VolumeRatio30: t.volumeRatio(winLong),

		DayRange:      dayRange,
		DayRangeMean5: t.ranges.meanLast(winRange),
	}
	row.PricePosition30 = t.pricePosition(winLong)

	t.last = row
	return row
}

// trailingReturn is the simple return against the close k bars back.
func (t *StockTracker) trailingReturn(k int) float64 {
	ref, ok := t.closes.ago(k)
	if !ok || ref <= 0 {
		return 0
	}
	return t.closes.last()/ref - 1
}

// maGap measures how far the close sits above its k-day moving average.
func (t *StockTracker) maGap(k int) float64 {
	ma := t.closes.meanLast(k)
	if ma <= 0 {
		return 0
	}
	return t.closes.last()/ma - 1
}

func (t *StockTracker) volumeRatio(k int) float64 {
	mean := t.volumes.meanLast(k)
	if mean <= 0 {
		return 0
	}
	return t.volumes.last() / mean
}

// pricePosition places the close within the k-day high/low band, 0 at the
// low and 1 at the high. A flat band reads as the midpoint.
func (t *StockTracker) pricePosition(k int) float64 {
	lo, hi := t.closes.minMaxLast(k)
	if hi <= lo {
		return 0.5
	}
	return (t.closes.last() - lo) / (hi - lo)
}

// Tracker maintains per-security rolling state for the whole universe.
type Tracker struct {
	mu     sync.RWMutex
	stocks map[string]*StockTracker
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{stocks: make(map[string]*StockTracker)}
}

// Apply folds one daily bar into the state and returns the derived
// feature row, or nil when the bar was skipped.
func (tr *Tracker) Apply(q *models.DailyQuote) *models.FeatureRow {
	if q == nil || q.Code == "" {
		return nil
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()

	st, ok := tr.stocks[q.Code]
	if !ok {
		st = newStockTracker(q.Code)
		tr.stocks[q.Code] = st
	}
	return st.apply(q)
}

// ApplyBatch folds a slice of bars and returns the rows that were
// actually produced.
func (tr *Tracker) ApplyBatch(quotes []models.DailyQuote) []*models.FeatureRow {
	rows := make([]*models.FeatureRow, 0, len(quotes))
	for i := range quotes {
		if row := tr.Apply(&quotes[i]); row != nil {
			rows = append(rows, row)
		}
	}
	return rows
}

// Size reports how many securities are currently tracked.
func (tr *Tracker) Size() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.stocks)
}

// LatestRow returns the most recent feature row for code.
func (tr *Tracker) LatestRow(code string) (*models.FeatureRow, bool) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	st, ok := tr.stocks[code]
	if !ok || st.last == nil {
		return nil, false
	}
	return st.last, true
}

// LatestRows returns the most recent feature row of every tracked
// security, sorted by code.
func (tr *Tracker) LatestRows() []*models.FeatureRow {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	rows := make([]*models.FeatureRow, 0, len(tr.stocks))
	for _, st := range tr.stocks {
		if st.last != nil {
			rows = append(rows, st.last)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Code < rows[j].Code })
	return rows
}

// Reset drops all per-security state.
func (tr *Tracker) Reset() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.stocks = make(map[string]*StockTracker)
}
