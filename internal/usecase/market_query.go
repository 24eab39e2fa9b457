package usecase

import (
	"context"
	"fmt"
	"time"

	"KabuFeed/internal/domain/models"
	drepo "KabuFeed/internal/domain/repository"
	icache "KabuFeed/internal/service/cache"
	pkgcache "KabuFeed/pkg/cache"
)

const listedCacheTTL = 6 * time.Hour

// MarketQuery serves read paths for the HTTP API: stored quotes, per-code
// feature history and the listed-company directory.
type MarketQuery struct {
	storage drepo.Storage
	store   drepo.FeatureStore
	source  drepo.MarketSource

	// listed master data changes rarely, a small in-process cache is enough;
	// a shared layered cache replaces it when Redis is available
	listed *icache.TTLCache
	shared pkgcache.Service
}

func NewMarketQuery(storage drepo.Storage, store drepo.FeatureStore, source drepo.MarketSource) *MarketQuery {
	return &MarketQuery{
		storage: storage,
		store:   store,
		source:  source,
		listed:  icache.NewTTLCache(),
	}
}

// Quotes returns stored daily bars matching the filter, newest first.
func (q *MarketQuery) Quotes(ctx context.Context, code, date, from, to string, limit int) ([]*models.DailyQuote, error) {
	if q.storage == nil {
		return nil, fmt.Errorf("quote history needs the clickhouse backend")
	}
	if date != "" {
		from, to = date, date
	}
	return q.storage.Query(ctx, code, from, to, limit)
}

// Features returns the n most recent feature rows for one code, oldest
// first.
func (q *MarketQuery) Features(ctx context.Context, code string, n int) ([]*models.FeatureRow, error) {
	if code == "" {
		return nil, fmt.Errorf("code is required")
	}
	if q.store == nil {
		return nil, fmt.Errorf("feature history needs the clickhouse backend")
	}
	return q.store.LatestFeatures(ctx, code, n)
}

// SetSharedCache switches listed-company caching to a process-spanning
// cache so replicas share one copy of the master data.
func (q *MarketQuery) SetSharedCache(c pkgcache.Service) { q.shared = c }

// Listed returns listed-company master data, optionally filtered by code.
func (q *MarketQuery) Listed(ctx context.Context, code string) ([]models.ListedCompany, error) {
	key := pkgcache.GenerateKey("listed", code)

	if q.shared != nil {
		var cs []models.ListedCompany
		if err := q.shared.Get(ctx, key, &cs); err == nil {
			return cs, nil
		}
	} else if v, ok := q.listed.Get(key); ok {
		if cs, ok2 := v.([]models.ListedCompany); ok2 {
			return cs, nil
		}
	}

	cs, err := q.source.ListedInfo(ctx, code)
	if err != nil {
		return nil, err
	}

	if q.shared != nil {
		_ = q.shared.Set(ctx, key, cs, listedCacheTTL)
	} else {
		q.listed.Set(key, cs, listedCacheTTL)
	}
	return cs, nil
}
