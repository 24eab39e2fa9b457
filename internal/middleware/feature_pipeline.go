package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"KabuFeed/internal/domain/models"
	drepo "KabuFeed/internal/domain/repository"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, row *models.FeatureRow) error
}

// FeaturePipeline sits between the tracker and the ingest backend. It
// validates rows and buffers them when the backend is unavailable so a
// transient Kafka or ClickHouse outage does not lose a trading day.
type FeaturePipeline struct {
	proc    Proc
	metrics drepo.Metrics
	bufSize int
	bufCh   chan *models.FeatureRow
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
}

type PipelineOption func(*FeaturePipeline)

// WithBufferSize sets the retry buffer size.
func WithBufferSize(n int) PipelineOption {
	return func(p *FeaturePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewFeaturePipeline creates a new pipeline.
func NewFeaturePipeline(proc Proc, metrics drepo.Metrics, opts ...PipelineOption) *FeaturePipeline {
	p := &FeaturePipeline{
		proc:    proc,
		metrics: metrics,
		bufSize: 5000,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.FeatureRow, p.bufSize)
	return p
}

// Start launches background flushing of buffered rows.
func (p *FeaturePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case row := <-p.bufCh:
				if row == nil {
					continue
				}
				if err := p.proc.Process(ctx, row); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- row:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *FeaturePipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates and forwards a row downstream, buffering on errors.
func (p *FeaturePipeline) Process(ctx context.Context, row *models.FeatureRow) error {
	start := time.Now()
	if err := validateRow(row); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}

	if err := p.proc.Process(ctx, row); err != nil {
		p.metrics.RecordError("pipeline_process")
		// buffer non-blocking
		select {
		case p.bufCh <- row:
			p.metrics.RecordLatency("pipeline_buffer_depth", float64(len(p.bufCh)))
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateRow(row *models.FeatureRow) error {
	if row == nil {
		return fmt.Errorf("feature row nil")
	}
	if row.Code == "" {
		return fmt.Errorf("code empty")
	}
	if row.Date == "" {
		return fmt.Errorf("date empty")
	}
	if row.Close <= 0 || row.Volume < 0 {
		return fmt.Errorf("invalid close/volume")
	}
	return nil
}
