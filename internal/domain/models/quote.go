package models

// DailyQuote is one end-of-day bar for a security. Field names mirror the
// upstream J-Quants payload so the rows decode directly.
type DailyQuote struct {
	Code             string   `json:"Code"`
	Date             string   `json:"Date"` // YYYY-MM-DD
	Open             *float64 `json:"Open"`
	High             *float64 `json:"High"`
	Low              *float64 `json:"Low"`
	Close            *float64 `json:"Close"`
	Volume           *float64 `json:"Volume"`
	TurnoverValue    *float64 `json:"TurnoverValue"`
	AdjustmentFactor float64  `json:"AdjustmentFactor"`
	AdjustmentOpen   *float64 `json:"AdjustmentOpen"`
	AdjustmentHigh   *float64 `json:"AdjustmentHigh"`
	AdjustmentLow    *float64 `json:"AdjustmentLow"`
	AdjustmentClose  *float64 `json:"AdjustmentClose"`
	AdjustmentVolume *float64 `json:"AdjustmentVolume"`
}

// HasClose reports whether the bar carries a usable close price.
// Halted or newly listed securities come through with null or zero closes.
func (q *DailyQuote) HasClose() bool {
	return q.Close != nil && *q.Close > 0
}

// Factor returns the adjustment factor, defaulting to 1 when absent.
func (q *DailyQuote) Factor() float64 {
	if q.AdjustmentFactor == 0 {
		return 1
	}
	return q.AdjustmentFactor
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// OpenValue returns the open price or 0 when absent.
func (q *DailyQuote) OpenValue() float64 { return deref(q.Open) }

// HighValue returns the high price or 0 when absent.
func (q *DailyQuote) HighValue() float64 { return deref(q.High) }

// LowValue returns the low price or 0 when absent.
func (q *DailyQuote) LowValue() float64 { return deref(q.Low) }

// CloseValue returns the close price or 0 when absent.
func (q *DailyQuote) CloseValue() float64 { return deref(q.Close) }

// VolumeValue returns the traded volume or 0 when absent.
func (q *DailyQuote) VolumeValue() float64 { return deref(q.Volume) }
