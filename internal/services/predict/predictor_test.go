package predict

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"KabuFeed/internal/domain/models"
)

func row(code string, r1 float64, warmup bool) *models.FeatureRow {
	return &models.FeatureRow{Code: code, Date: "2024-01-05", Return1D: r1, Warmup: warmup}
}

func TestBaselineOrdersByMomentum(t *testing.T) {
	b := NewBaseline()
	rows := []*models.FeatureRow{
		row("7203", 0.05, false),
		row("9984", -0.03, false),
		row("6758", 0.01, false),
	}
	scores, err := b.Score(context.Background(), rows)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(scores) != 3 {
		t.Fatalf("len = %d, want 3", len(scores))
	}
	if !(scores[0] > scores[2] && scores[2] > scores[1]) {
		t.Errorf("scores = %v, want strictly decreasing by momentum", scores)
	}
}

func TestBaselineSkipsWarmup(t *testing.T) {
	b := NewBaseline()
	scores, err := b.Score(context.Background(), []*models.FeatureRow{row("7203", 0.5, true)})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if scores[0] != 0 {
		t.Errorf("warmup score = %g, want 0", scores[0])
	}
}

func TestHTTPPredictor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/score" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req scoreReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(req.Columns) != len(models.FeatureNames()) {
			t.Errorf("columns = %d", len(req.Columns))
		}
		if len(req.Rows) != 2 || len(req.Codes) != 2 {
			t.Errorf("rows = %d codes = %d", len(req.Rows), len(req.Codes))
		}
		json.NewEncoder(w).Encode(scoreResp{Scores: []float64{0.7, 0.2}})
	}))
	defer srv.Close()

	p := NewHTTPPredictor(srv.URL, 2*time.Second)
	scores, err := p.Score(context.Background(), []*models.FeatureRow{
		row("7203", 0.01, false),
		row("9984", 0.02, false),
	})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if scores[0] != 0.7 || scores[1] != 0.2 {
		t.Errorf("scores = %v", scores)
	}
}

func TestHTTPPredictorScoreCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(scoreResp{Scores: []float64{0.7}})
	}))
	defer srv.Close()

	p := NewHTTPPredictor(srv.URL, 2*time.Second)
	_, err := p.Score(context.Background(), []*models.FeatureRow{
		row("7203", 0.01, false),
		row("9984", 0.02, false),
	})
	if err == nil {
		t.Fatal("expected error on score count mismatch")
	}
}

func TestHTTPPredictorEmptyBatch(t *testing.T) {
	p := NewHTTPPredictor("http://invalid", time.Second)
	scores, err := p.Score(context.Background(), nil)
	if err != nil || scores != nil {
		t.Fatalf("empty batch: %v, %v", scores, err)
	}
}
