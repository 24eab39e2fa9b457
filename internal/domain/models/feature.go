package models

// FeatureRow is the per-security feature vector derived from one daily bar.
// It is what gets published downstream and fed to the ranking model.
type FeatureRow struct {
	Code string `json:"code"`
	Date string `json:"date"` // YYYY-MM-DD

	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`

	Return1D  float64 `json:"return_1d"`
	Return5D  float64 `json:"return_5d"`
	Return10D float64 `json:"return_10d"`
	Return30D float64 `json:"return_30d"`

	MAGap5  float64 `json:"ma_gap_5"`
	MAGap10 float64 `json:"ma_gap_10"`
	MAGap30 float64 `json:"ma_gap_30"`

	Volatility5  float64 `json:"volatility_5"`
	Volatility30 float64 `json:"volatility_30"`

	VolumeRatio5  float64 `json:"volume_ratio_5"`
	VolumeRatio30 float64 `json:"volume_ratio_30"`

	DayRange      float64 `json:"day_range"`
	DayRangeMean5 float64 `json:"day_range_mean_5"`

	// Position of the close within the rolling 30-day high/low band,
	// 0 at the low, 1 at the high.
	PricePosition30 float64 `json:"price_position_30"`

	// Warmup marks rows emitted before every window is full. Their
	// long-horizon features are zero and should not be scored.
	Warmup bool `json:"warmup"`
}

// Values returns the feature vector in the fixed order the scoring
// models expect.
func (f *FeatureRow) Values() []float64 {
	return []float64{
		f.Return1D, f.Return5D, f.Return10D, f.Return30D,
		f.MAGap5, f.MAGap10, f.MAGap30,
		f.Volatility5, f.Volatility30,
		f.VolumeRatio5, f.VolumeRatio30,
		f.DayRange, f.DayRangeMean5,
		f.PricePosition30,
	}
}

// FeatureNames lists feature vector columns in the same order as Values.
func FeatureNames() []string {
	return []string{
		"return_1d", "return_5d", "return_10d", "return_30d",
		"ma_gap_5", "ma_gap_10", "ma_gap_30",
		"volatility_5", "volatility_30",
		"volume_ratio_5", "volume_ratio_30",
		"day_range", "day_range_mean_5",
		"price_position_30",
	}
}
