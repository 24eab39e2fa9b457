package middleware

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"KabuFeed/internal/domain/models"
)

type stubProc struct {
	mu   sync.Mutex
	rows []*models.FeatureRow
	fail bool
}

func (s *stubProc) Process(ctx context.Context, row *models.FeatureRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return fmt.Errorf("downstream down")
	}
	s.rows = append(s.rows, row)
	return nil
}

func (s *stubProc) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *stubProc) setFail(v bool) {
	s.mu.Lock()
	s.fail = v
	s.mu.Unlock()
}

type nopMetrics struct{}

func (nopMetrics) RecordRowsIngested(string, int)    {}
func (nopMetrics) RecordError(string)                {}
func (nopMetrics) RecordLastClose(string, float64)   {}
func (nopMetrics) RecordLatency(string, float64)     {}
func (nopMetrics) RecordUpstreamRequest(_, _ string) {}

func validFeatureRow() *models.FeatureRow {
	return &models.FeatureRow{Code: "7203", Date: "2024-01-04", Close: 100, Volume: 1000}
}

func TestPipelineForwardsValidRows(t *testing.T) {
	proc := &stubProc{}
	p := NewFeaturePipeline(proc, nopMetrics{})

	if err := p.Process(context.Background(), validFeatureRow()); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if proc.count() != 1 {
		t.Fatalf("forwarded = %d, want 1", proc.count())
	}
}

func TestPipelineRejectsInvalidRows(t *testing.T) {
	p := NewFeaturePipeline(&stubProc{}, nopMetrics{})
	bad := []*models.FeatureRow{
		nil,
		{Date: "2024-01-04", Close: 100},
		{Code: "7203", Close: 100},
		{Code: "7203", Date: "2024-01-04", Close: 0},
	}
	for i, row := range bad {
		if err := p.Process(context.Background(), row); err == nil {
			t.Errorf("row %d: expected validation error", i)
		}
	}
}

func TestPipelineBuffersAndFlushes(t *testing.T) {
	proc := &stubProc{fail: true}
	p := NewFeaturePipeline(proc, nopMetrics{}, WithBufferSize(10))

	if err := p.Process(context.Background(), validFeatureRow()); err == nil {
		t.Fatal("expected downstream error")
	}

	proc.setFail(false)
	p.Start(context.Background())
	defer p.Stop()

	deadline := time.After(2 * time.Second)
	for proc.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("buffered row never flushed")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
