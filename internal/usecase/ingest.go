package usecase

import (
	"context"
	"fmt"
	"time"

	"KabuFeed/internal/domain/models"
	drepo "KabuFeed/internal/domain/repository"
	"KabuFeed/internal/services/features"
	applogger "KabuFeed/pkg/logger"
)

// IngestUsecase pulls daily bars from the upstream API, folds them into
// the rolling feature tracker and routes the derived rows downstream.
type IngestUsecase struct {
	log       *applogger.Logger
	source    drepo.MarketSource
	storage   drepo.Storage
	tracker   *features.Tracker
	processor *FeatureProcessor
	metrics   drepo.Metrics

	// storeQuotes also persists the raw bars, only meaningful with the
	// clickhouse backend.
	storeQuotes bool

	pipe Pipe
}

// Pipe is the buffering fallback used when a batch write fails.
type Pipe interface {
	Process(ctx context.Context, row *models.FeatureRow) error
}

// SetPipeline installs a row-level fallback. When the backend rejects a
// whole batch, rows are re-routed one by one through the pipeline, which
// buffers them until the backend recovers.
func (u *IngestUsecase) SetPipeline(p Pipe) { u.pipe = p }

// NewIngestUsecase creates the ingest usecase.
func NewIngestUsecase(
	log *applogger.Logger,
	source drepo.MarketSource,
	storage drepo.Storage,
	tracker *features.Tracker,
	processor *FeatureProcessor,
	metrics drepo.Metrics,
	storeQuotes bool,
) *IngestUsecase {
	return &IngestUsecase{
		log:         log,
		source:      source,
		storage:     storage,
		tracker:     tracker,
		processor:   processor,
		metrics:     metrics,
		storeQuotes: storeQuotes,
	}
}

// IngestDay fetches one trading day for the whole universe and processes
// it. Weekends and holidays produce no rows and are not an error.
func (u *IngestUsecase) IngestDay(ctx context.Context, date string) (int, error) {
	start := time.Now()

	quotes, err := u.source.DailyQuotes(ctx, "", date, "", "")
	if err != nil {
		u.metrics.RecordError("ingest_fetch")
		return 0, fmt.Errorf("fetch day %s: %w", date, err)
	}
	if len(quotes) == 0 {
		u.log.Info("ingest: no rows", applogger.String("date", date))
		return 0, nil
	}

	n, err := u.process(ctx, quotes)
	if err != nil {
		return n, err
	}

	u.metrics.RecordLatency("ingest_day", time.Since(start).Seconds())
	u.log.Info("ingest: day complete",
		applogger.String("date", date),
		applogger.Int("bars", len(quotes)),
		applogger.Int("rows", n),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return n, nil
}

// Backfill replays every day in [from, to] in order, warming the tracker
// state before live operation.
func (u *IngestUsecase) Backfill(ctx context.Context, from, to string) (int, error) {
	start := time.Now()

	quotes, err := u.source.DailyQuotesRange(ctx, from, to)
	if err != nil {
		u.metrics.RecordError("backfill_fetch")
		return 0, fmt.Errorf("fetch range %s..%s: %w", from, to, err)
	}

	n, err := u.process(ctx, quotes)
	if err != nil {
		return n, err
	}

	u.metrics.RecordLatency("backfill", time.Since(start).Seconds())
	u.log.Info("ingest: backfill complete",
		applogger.String("from", from),
		applogger.String("to", to),
		applogger.Int("bars", len(quotes)),
		applogger.Int("rows", n),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return n, nil
}

// process persists the raw bars when configured, folds them into the
// tracker and routes the derived rows. Bars must arrive date-ascending.
func (u *IngestUsecase) process(ctx context.Context, quotes []models.DailyQuote) (int, error) {
	if u.storeQuotes && u.storage != nil {
		ptrs := make([]*models.DailyQuote, len(quotes))
		for i := range quotes {
			ptrs[i] = &quotes[i]
		}
		if err := u.storage.StoreBatch(ctx, ptrs); err != nil {
			u.metrics.RecordError("store_quotes")
			return 0, fmt.Errorf("store quotes: %w", err)
		}
	}

	rows := u.tracker.ApplyBatch(quotes)
	if len(rows) == 0 {
		return 0, nil
	}

	if err := u.processor.ProcessBatch(ctx, rows); err != nil {
		if u.pipe == nil {
			return 0, err
		}
		u.log.Warn("ingest: batch write failed, buffering rows", applogger.Error(err))
		for _, r := range rows {
			_ = u.pipe.Process(ctx, r)
		}
	}
	return len(rows), nil
}
