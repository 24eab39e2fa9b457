package predict

import (
	"context"
	"fmt"
	"time"

	"KabuFeed/internal/domain/models"
	domsvc "KabuFeed/internal/domain/service"
	svcmetrics "KabuFeed/internal/service/metrics"
)

// HTTPPredictor scores feature rows against an external model-serving
// endpoint. The wire format is one flat feature map per row.
type HTTPPredictor struct {
	base *HTTPServiceBase
	name string
}

// NewHTTPPredictor creates a predictor bound to baseURL.
func NewHTTPPredictor(baseURL string, timeout time.Duration) *HTTPPredictor {
	svcmetrics.Register()
	return &HTTPPredictor{
		base: NewHTTPServiceBase(baseURL, timeout),
		name: "http:" + baseURL,
	}
}

func (p *HTTPPredictor) Name() string { return p.name }

type scoreReq struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
	Codes   []string    `json:"codes"`
	Date    string      `json:"date"`
}

type scoreResp struct {
	Scores []float64 `json:"scores"`
}

// Score posts all rows in one batch and returns the model scores in row order.
func (p *HTTPPredictor) Score(ctx context.Context, rows []*models.FeatureRow) ([]float64, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	req := scoreReq{
		Columns: models.FeatureNames(),
		Rows:    make([][]float64, len(rows)),
		Codes:   make([]string, len(rows)),
		Date:    rows[0].Date,
	}
	for i, r := range rows {
		req.Rows[i] = r.Values()
		req.Codes[i] = r.Code
	}

	start := time.Now()
	var resp scoreResp
	err := p.base.PostJSONWithRetry(ctx, "/score", req, &resp, 3)
	svcmetrics.PredictLatency.WithLabelValues(p.name).Observe(time.Since(start).Seconds())
	if err != nil {
		svcmetrics.PredictErrors.WithLabelValues(p.name).Inc()
		return nil, fmt.Errorf("score: %w", err)
	}
	if len(resp.Scores) != len(rows) {
		svcmetrics.PredictErrors.WithLabelValues(p.name).Inc()
		return nil, fmt.Errorf("score: got %d scores for %d rows", len(resp.Scores), len(rows))
	}
	return resp.Scores, nil
}

var _ domsvc.Predictor = (*HTTPPredictor)(nil)
