package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"KabuFeed/internal/domain/models"
	"KabuFeed/internal/domain/repository"
	pkgkafka "KabuFeed/pkg/kafka"
)

// SchemaStatements returns the idempotent DDL for the quote and feature
// tables. ReplacingMergeTree keyed on (code, date) deduplicates re-ingested
// days.
func SchemaStatements(database string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.daily_quotes (
			code String,
			date Date,
			open Float64,
			high Float64,
			low Float64,
			close Float64,
			volume Float64,
			turnover_value Float64,
			adjustment_factor Float64
		) ENGINE = ReplacingMergeTree()
		PARTITION BY toYYYYMM(date)
		ORDER BY (code, date)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.feature_rows (
			code String,
			date Date,
			close Float64,
			volume Float64,
			return_1d Float64,
			return_5d Float64,
			return_10d Float64,
			return_30d Float64,
			ma_gap_5 Float64,
			ma_gap_10 Float64,
			ma_gap_30 Float64,
			volatility_5 Float64,
			volatility_30 Float64,
			volume_ratio_5 Float64,
			volume_ratio_30 Float64,
			day_range Float64,
			day_range_mean_5 Float64,
			price_position_30 Float64,
			warmup UInt8
		) ENGINE = ReplacingMergeTree()
		PARTITION BY toYYYYMM(date)
		ORDER BY (code, date)`, database),
	}
}

// ClickHouseStorage implements Storage for ClickHouse.
type ClickHouseStorage struct {
	db       *sql.DB
	database string
}

// NewClickHouseStorage creates ClickHouse storage.
func NewClickHouseStorage(db *sql.DB, database string) *ClickHouseStorage {
	return &ClickHouseStorage{db: db, database: database}
}

func (s *ClickHouseStorage) quotesTable() string   { return s.database + ".daily_quotes" }
func (s *ClickHouseStorage) featuresTable() string { return s.database + ".feature_rows" }

func (s *ClickHouseStorage) Init(ctx context.Context) error {
	for _, stmt := range SchemaStatements(s.database) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseStorage) Store(ctx context.Context, q *models.DailyQuote) error {
	return s.StoreBatch(ctx, []*models.DailyQuote{q})
}

func (s *ClickHouseStorage) StoreBatch(ctx context.Context, quotes []*models.DailyQuote) error {
	if len(quotes) == 0 {
		return nil
	}
	// Multi-row VALUES inserts keep round-trips down; 2000 rows per chunk.
	const chunkSize = 2000
	for start := 0; start < len(quotes); start += chunkSize {
		end := start + chunkSize
		if end > len(quotes) {
			end = len(quotes)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*9)
		for _, q := range quotes[start:end] {
			if q == nil || q.Code == "" || q.Date == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				q.Code,
				q.Date,
				q.OpenValue(),
				q.HighValue(),
				q.LowValue(),
				q.CloseValue(),
				q.VolumeValue(),
				derefOr(q.TurnoverValue, 0),
				q.Factor(),
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (code, date, open, high, low, close, volume, turnover_value, adjustment_factor) VALUES %s",
			s.quotesTable(), strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseStorage) Query(ctx context.Context, code string, from, to string, limit int) ([]*models.DailyQuote, error) {
	conds := []string{"1 = 1"}
	args := make([]interface{}, 0, 4)
	if code != "" {
		conds = append(conds, "code = ?")
		args = append(args, code)
	}
	if from != "" {
		conds = append(conds, "date >= ?")
		args = append(args, from)
	}
	if to != "" {
		conds = append(conds, "date <= ?")
		args = append(args, to)
	}
	if limit <= 0 {
		limit = 500
	}
	args = append(args, limit)

	q := fmt.Sprintf(`SELECT code, toString(date), open, high, low, close, volume, turnover_value, adjustment_factor
		FROM %s FINAL WHERE %s ORDER BY date DESC, code ASC LIMIT ?`,
		s.quotesTable(), strings.Join(conds, " AND "))
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.DailyQuote
	for rows.Next() {
		var (
			dq                                        models.DailyQuote
			open, high, low, closePx, volume, turnover float64
		)
		if err := rows.Scan(&dq.Code, &dq.Date, &open, &high, &low, &closePx, &volume, &turnover, &dq.AdjustmentFactor); err != nil {
			return nil, err
		}
		dq.Open, dq.High, dq.Low = &open, &high, &low
		dq.Close, dq.Volume, dq.TurnoverValue = &closePx, &volume, &turnover
		out = append(out, &dq)
	}
	return out, rows.Err()
}

func (s *ClickHouseStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseStorage) Close() error {
	return nil // Managed by pkg
}

// StoreFeatures persists computed feature rows.
func (s *ClickHouseStorage) StoreFeatures(ctx context.Context, rows []*models.FeatureRow) error {
	if len(rows) == 0 {
		return nil
	}
	const chunkSize = 2000
	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*19)
		for _, r := range rows[start:end] {
			if r == nil || r.Code == "" || r.Date == "" {
				continue
			}
			warm := uint8(0)
			if r.Warmup {
				warm = 1
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				r.Code, r.Date, r.Close, r.Volume,
				r.Return1D, r.Return5D, r.Return10D, r.Return30D,
				r.MAGap5, r.MAGap10, r.MAGap30,
				r.Volatility5, r.Volatility30,
				r.VolumeRatio5, r.VolumeRatio30,
				r.DayRange, r.DayRangeMean5,
				r.PricePosition30, warm,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf(`INSERT INTO %s (code, date, close, volume,
			return_1d, return_5d, return_10d, return_30d,
			ma_gap_5, ma_gap_10, ma_gap_30,
			volatility_5, volatility_30,
			volume_ratio_5, volume_ratio_30,
			day_range, day_range_mean_5, price_position_30, warmup) VALUES %s`,
			s.featuresTable(), strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

// LatestFeatures returns the n most recent feature rows for code, oldest first.
func (s *ClickHouseStorage) LatestFeatures(ctx context.Context, code string, n int) ([]*models.FeatureRow, error) {
	if n <= 0 {
		n = 30
	}
	q := fmt.Sprintf(`%s FROM %s FINAL WHERE code = ? ORDER BY date DESC LIMIT ?`,
		featureSelect, s.featuresTable())
	rows, err := s.db.QueryContext(ctx, q, code, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out, err := scanFeatureRows(rows)
	if err != nil {
		return nil, err
	}
	// reverse to ASC
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// FeaturesByDate returns every feature row of one trading day.
func (s *ClickHouseStorage) FeaturesByDate(ctx context.Context, date string) ([]*models.FeatureRow, error) {
	q := fmt.Sprintf(`%s FROM %s FINAL WHERE date = ? ORDER BY code ASC`,
		featureSelect, s.featuresTable())
	rows, err := s.db.QueryContext(ctx, q, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFeatureRows(rows)
}

const featureSelect = `SELECT code, toString(date), close, volume,
	return_1d, return_5d, return_10d, return_30d,
	ma_gap_5, ma_gap_10, ma_gap_30,
	volatility_5, volatility_30,
	volume_ratio_5, volume_ratio_30,
	day_range, day_range_mean_5, price_position_30, warmup`

func scanFeatureRows(rows *sql.Rows) ([]*models.FeatureRow, error) {
	var out []*models.FeatureRow
	for rows.Next() {
		var (
			r    models.FeatureRow
			warm uint8
		)
		if err := rows.Scan(&r.Code, &r.Date, &r.Close, &r.Volume,
			&r.Return1D, &r.Return5D, &r.Return10D, &r.Return30D,
			&r.MAGap5, &r.MAGap10, &r.MAGap30,
			&r.Volatility5, &r.Volatility30,
			&r.VolumeRatio5, &r.VolumeRatio30,
			&r.DayRange, &r.DayRangeMean5, &r.PricePosition30, &warm); err != nil {
			return nil, err
		}
		r.Warmup = warm != 0
		out = append(out, &r)
	}
	return out, rows.Err()
}

func derefOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// KafkaPublisher implements Publisher for Kafka. Rows are keyed by
// security code so each code stays on one partition.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, row *models.FeatureRow) error {
	return p.producer.Publish(ctx, p.topic, []byte(row.Code), row)
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, rows []*models.FeatureRow) error {
	if len(rows) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(rows))
	for i, r := range rows {
		msgs[i] = pkgkafka.Message{Key: []byte(r.Code), Value: r}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var (
	_ repository.Storage      = (*ClickHouseStorage)(nil)
	_ repository.FeatureStore = (*ClickHouseStorage)(nil)
)
