package predict

import (
	"context"

	"KabuFeed/internal/domain/models"
	domsvc "KabuFeed/internal/domain/service"
)

// Baseline is a linear momentum scorer used when no external model is
// configured. Weights favor recent momentum above its moving averages and
// penalize volatility; warmup rows score zero.
type Baseline struct {
	weights []float64
}

// NewBaseline creates the built-in scorer.
func NewBaseline() *Baseline {
	return &Baseline{
		// Same order as models.FeatureNames.
		weights: []float64{
			2.0,  // return_1d
			1.5,  // return_5d
			1.0,  // return_10d
			0.5,  // return_30d
			1.0,  // ma_gap_5
			0.5,  // ma_gap_10
			0.25, // ma_gap_30
			-1.0, // volatility_5
			-0.5, // volatility_30
			0.1,  // volume_ratio_5
			0.05, // volume_ratio_30
			-0.2, // day_range
			-0.1, // day_range_mean_5
			0.3,  // price_position_30
		},
	}
}

func (b *Baseline) Name() string { return "baseline-linear" }

func (b *Baseline) Score(ctx context.Context, rows []*models.FeatureRow) ([]float64, error) {
	scores := make([]float64, len(rows))
	for i, r := range rows {
		if r.Warmup {
			continue
		}
		v := r.Values()
		var s float64
		for j, w := range b.weights {
			if j < len(v) {
				s += w * v[j]
			}
		}
		scores[i] = s
	}
	return scores, nil
}

var _ domsvc.Predictor = (*Baseline)(nil)
