package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"KabuFeed/internal/domain/models"
	drepo "KabuFeed/internal/domain/repository"
	domsvc "KabuFeed/internal/domain/service"
	icache "KabuFeed/internal/service/cache"
	"KabuFeed/internal/services/features"
	pkgcache "KabuFeed/pkg/cache"
	applogger "KabuFeed/pkg/logger"
)

// RankingUseCase scores the latest feature rows with the configured model
// and returns the universe ordered best-first.
type RankingUseCase struct {
	log       *applogger.Logger
	tracker   *features.Tracker
	store     drepo.FeatureStore
	predictor domsvc.Predictor

	cache    icache.BytesCache
	cacheTTL time.Duration
}

func NewRankingUseCase(
	log *applogger.Logger,
	tracker *features.Tracker,
	store drepo.FeatureStore,
	predictor domsvc.Predictor,
) *RankingUseCase {
	return &RankingUseCase{
		log:       log,
		tracker:   tracker,
		store:     store,
		predictor: predictor,
	}
}

// SetCache enables response caching for repeated ranking requests.
func (u *RankingUseCase) SetCache(c icache.BytesCache, ttl time.Duration) {
	u.cache = c
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	u.cacheTTL = ttl
}

// Rank builds a ranking snapshot. An empty date ranks the live tracker
// state; a concrete date replays stored rows for that trading day. Rows
// still in warmup never rank.
func (u *RankingUseCase) Rank(ctx context.Context, date string, top int) (*models.RankingSnapshot, error) {
	if top <= 0 {
		top = 50
	}

	cacheKey := pkgcache.GenerateKeyWithParams("ranking", u.predictor.Name(), date, top)
	if u.cache != nil {
		if b, ok, err := u.cache.GetBytes(cacheKey); err != nil {
			u.log.Warn("ranking cache_get_error", applogger.Error(err))
		} else if ok {
			var snap models.RankingSnapshot
			if err := json.Unmarshal(b, &snap); err == nil {
				return &snap, nil
			}
		}
	}

	rows, err := u.candidates(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &models.RankingSnapshot{
			Date:        date,
			Model:       u.predictor.Name(),
			GeneratedAt: time.Now().UTC(),
		}, nil
	}

	scores, err := u.predictor.Score(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("score %d rows: %w", len(rows), err)
	}
	if len(scores) != len(rows) {
		return nil, fmt.Errorf("scored %d of %d rows", len(scores), len(rows))
	}

	entries := make([]models.RankedStock, len(rows))
	for i, r := range rows {
		entries[i] = models.RankedStock{
			Code:  r.Code,
			Score: scores[i],
			Close: r.Close,
		}
	}
	// Score descending, code ascending on ties for a stable ordering.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Code < entries[j].Code
	})
	if len(entries) > top {
		entries = entries[:top]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}

	snapDate := date
	if snapDate == "" {
		snapDate = rows[0].Date
		for _, r := range rows {
			if r.Date > snapDate {
				snapDate = r.Date
			}
		}
	}
	snap := &models.RankingSnapshot{
		Date:        snapDate,
		Model:       u.predictor.Name(),
		GeneratedAt: time.Now().UTC(),
		Entries:     entries,
	}

	if u.cache != nil {
		if b, err := json.Marshal(snap); err == nil {
			if err := u.cache.SetBytes(cacheKey, b, u.cacheTTL); err != nil {
				u.log.Warn("ranking cache_set_error", applogger.Error(err))
			}
		}
	}
	return snap, nil
}

func (u *RankingUseCase) candidates(ctx context.Context, date string) ([]*models.FeatureRow, error) {
	var rows []*models.FeatureRow
	if date == "" {
		rows = u.tracker.LatestRows()
	} else {
		if u.store == nil {
			return nil, fmt.Errorf("historical ranking needs the clickhouse backend")
		}
		var err error
		rows, err = u.store.FeaturesByDate(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("features for %s: %w", date, err)
		}
	}

	ready := rows[:0:0]
	for _, r := range rows {
		if r != nil && !r.Warmup {
			ready = append(ready, r)
		}
	}
	return ready, nil
}
