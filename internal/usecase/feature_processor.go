package usecase

import (
	"context"
	"fmt"
	"time"

	"KabuFeed/internal/domain/models"
	drepo "KabuFeed/internal/domain/repository"
)

// FeatureProcessor routes computed feature rows to the configured backend.
type FeatureProcessor struct {
	pub     drepo.Publisher
	store   drepo.FeatureStore
	metrics drepo.Metrics
	backend string
}

// NewFeatureProcessor creates a new FeatureProcessor instance.
func NewFeatureProcessor(
	pub drepo.Publisher,
	store drepo.FeatureStore,
	metrics drepo.Metrics,
	backend string,
) *FeatureProcessor {
	return &FeatureProcessor{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
	}
}

// Process routes a single feature row to the configured backend.
func (p *FeatureProcessor) Process(ctx context.Context, row *models.FeatureRow) error {
	if row == nil {
		return fmt.Errorf("feature row is nil")
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.Publish(ctx, row)
	case "clickhouse":
		err = p.store.StoreFeatures(ctx, []*models.FeatureRow{row})
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process")
		return fmt.Errorf("process feature row: %w", err)
	}

	p.metrics.RecordRowsIngested(p.backend, 1)
	p.metrics.RecordLastClose(row.Code, row.Close)
	p.metrics.RecordLatency("process", time.Since(start).Seconds())

	return nil
}

// ProcessBatch routes multiple feature rows in a batch.
func (p *FeatureProcessor) ProcessBatch(ctx context.Context, rows []*models.FeatureRow) error {
	if len(rows) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.PublishBatch(ctx, rows)
	case "clickhouse":
		err = p.store.StoreFeatures(ctx, rows)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	p.metrics.RecordRowsIngested(p.backend, len(rows))
	for _, r := range rows {
		p.metrics.RecordLastClose(r.Code, r.Close)
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())

	return nil
}

// Close closes underlying resources if available.
func (p *FeatureProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
}
