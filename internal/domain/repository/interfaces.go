package repository

import (
	"context"

	"KabuFeed/internal/domain/models"
)

// MarketSource provides daily market data for ingestion. The J-Quants
// client implements this; tests swap in fakes.
type MarketSource interface {
	DailyQuotes(ctx context.Context, code, date, from, to string) ([]models.DailyQuote, error)
	DailyQuotesRange(ctx context.Context, from, to string) ([]models.DailyQuote, error)
	ListedInfo(ctx context.Context, code string) ([]models.ListedCompany, error)
}

// Publisher delivers feature rows downstream.
type Publisher interface {
	Publish(ctx context.Context, row *models.FeatureRow) error
	PublishBatch(ctx context.Context, rows []*models.FeatureRow) error
	Close() error
}

// Storage persists daily quotes and serves range queries.
type Storage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, q *models.DailyQuote) error
	StoreBatch(ctx context.Context, quotes []*models.DailyQuote) error
	Query(ctx context.Context, code string, from, to string, limit int) ([]*models.DailyQuote, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// FeatureStore provides read access to computed feature rows.
type FeatureStore interface {
	StoreFeatures(ctx context.Context, rows []*models.FeatureRow) error
	LatestFeatures(ctx context.Context, code string, n int) ([]*models.FeatureRow, error)
	FeaturesByDate(ctx context.Context, date string) ([]*models.FeatureRow, error)
}

// Metrics abstracts the operational counters so usecases stay free of
// the Prometheus types.
type Metrics interface {
	RecordRowsIngested(backend string, n int)
	RecordError(kind string)
	RecordLastClose(code string, price float64)
	RecordLatency(op string, seconds float64)
	RecordUpstreamRequest(endpoint, status string)
}
