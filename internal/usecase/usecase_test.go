package usecase

import (
	"context"
	"fmt"
	"testing"

	"KabuFeed/internal/domain/models"
	icache "KabuFeed/internal/service/cache"
	"KabuFeed/internal/services/features"
	applogger "KabuFeed/pkg/logger"
)

func testLogger() *applogger.Logger {
	l, _ := applogger.New(&applogger.Config{Level: "error", Output: "stderr"})
	return l
}

func fp(v float64) *float64 { return &v }

func bar(code, date string, close, volume float64) models.DailyQuote {
	high := close * 1.01
	low := close * 0.99
	return models.DailyQuote{
		Code: code, Date: date,
		Open: fp(close), High: fp(high), Low: fp(low), Close: fp(close),
		Volume: fp(volume), AdjustmentFactor: 1,
	}
}

type fakeSource struct {
	day    []models.DailyQuote
	rng    []models.DailyQuote
	dayErr error
}

func (f *fakeSource) DailyQuotes(ctx context.Context, code, date, from, to string) ([]models.DailyQuote, error) {
	return f.day, f.dayErr
}

func (f *fakeSource) DailyQuotesRange(ctx context.Context, from, to string) ([]models.DailyQuote, error) {
	return f.rng, nil
}

func (f *fakeSource) ListedInfo(ctx context.Context, code string) ([]models.ListedCompany, error) {
	return nil, nil
}

type fakePublisher struct {
	rows   []*models.FeatureRow
	closed bool
	err    error
}

func (f *fakePublisher) Publish(ctx context.Context, row *models.FeatureRow) error {
	return f.PublishBatch(ctx, []*models.FeatureRow{row})
}

func (f *fakePublisher) PublishBatch(ctx context.Context, rows []*models.FeatureRow) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, rows...)
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

type fakeFeatureStore struct {
	stored []*models.FeatureRow
	byDate map[string][]*models.FeatureRow
}

func (f *fakeFeatureStore) StoreFeatures(ctx context.Context, rows []*models.FeatureRow) error {
	f.stored = append(f.stored, rows...)
	return nil
}

func (f *fakeFeatureStore) LatestFeatures(ctx context.Context, code string, n int) ([]*models.FeatureRow, error) {
	return nil, nil
}

func (f *fakeFeatureStore) FeaturesByDate(ctx context.Context, date string) ([]*models.FeatureRow, error) {
	return f.byDate[date], nil
}

type fakeMetrics struct {
	rows   int
	errors map[string]int
}

func newFakeMetrics() *fakeMetrics { return &fakeMetrics{errors: map[string]int{}} }

func (m *fakeMetrics) RecordRowsIngested(backend string, n int)      { m.rows += n }
func (m *fakeMetrics) RecordError(kind string)                       { m.errors[kind]++ }
func (m *fakeMetrics) RecordLastClose(code string, price float64)    {}
func (m *fakeMetrics) RecordLatency(op string, seconds float64)      {}
func (m *fakeMetrics) RecordUpstreamRequest(endpoint, status string) {}

type fakePredictor struct {
	name  string
	score func(r *models.FeatureRow) float64
}

func (p *fakePredictor) Name() string { return p.name }

func (p *fakePredictor) Score(ctx context.Context, rows []*models.FeatureRow) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = p.score(r)
	}
	return out, nil
}

func TestIngestDayRoutesRowsToKafka(t *testing.T) {
	src := &fakeSource{day: []models.DailyQuote{
		bar("7203", "2024-01-04", 100, 1000),
		bar("9984", "2024-01-04", 6000, 500),
	}}
	pub := &fakePublisher{}
	metrics := newFakeMetrics()
	tracker := features.NewTracker()
	proc := NewFeatureProcessor(pub, nil, metrics, "kafka")
	u := NewIngestUsecase(testLogger(), src, nil, tracker, proc, metrics, false)

	n, err := u.IngestDay(context.Background(), "2024-01-04")
	if err != nil {
		t.Fatalf("IngestDay: %v", err)
	}
	if n != 2 || len(pub.rows) != 2 {
		t.Fatalf("rows = %d published = %d, want 2", n, len(pub.rows))
	}
	if metrics.rows != 2 {
		t.Errorf("metrics rows = %d, want 2", metrics.rows)
	}
	if !pub.rows[0].Warmup {
		t.Error("first day rows should still be in warmup")
	}
}

func TestIngestDayFetchError(t *testing.T) {
	src := &fakeSource{dayErr: fmt.Errorf("upstream down")}
	metrics := newFakeMetrics()
	proc := NewFeatureProcessor(&fakePublisher{}, nil, metrics, "kafka")
	u := NewIngestUsecase(testLogger(), src, nil, features.NewTracker(), proc, metrics, false)

	if _, err := u.IngestDay(context.Background(), "2024-01-04"); err == nil {
		t.Fatal("expected error")
	}
	if metrics.errors["ingest_fetch"] != 1 {
		t.Errorf("ingest_fetch errors = %d, want 1", metrics.errors["ingest_fetch"])
	}
}

func TestBackfillReplaysRange(t *testing.T) {
	var rng []models.DailyQuote
	for i := 0; i < 3; i++ {
		date := fmt.Sprintf("2024-01-%02d", 4+i)
		rng = append(rng, bar("7203", date, 100+float64(i), 1000))
	}
	src := &fakeSource{rng: rng}
	pub := &fakePublisher{}
	metrics := newFakeMetrics()
	tracker := features.NewTracker()
	proc := NewFeatureProcessor(pub, nil, metrics, "kafka")
	u := NewIngestUsecase(testLogger(), src, nil, tracker, proc, metrics, false)

	n, err := u.Backfill(context.Background(), "2024-01-04", "2024-01-06")
	if err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	if n != 3 {
		t.Fatalf("rows = %d, want 3", n)
	}
	if tracker.Size() != 1 {
		t.Errorf("tracker size = %d, want 1", tracker.Size())
	}
}

type recordingPipe struct {
	rows []*models.FeatureRow
}

func (p *recordingPipe) Process(ctx context.Context, row *models.FeatureRow) error {
	p.rows = append(p.rows, row)
	return nil
}

func TestIngestBuffersRowsWhenBackendFails(t *testing.T) {
	src := &fakeSource{day: []models.DailyQuote{bar("7203", "2024-01-04", 100, 1000)}}
	pub := &fakePublisher{err: fmt.Errorf("broker down")}
	metrics := newFakeMetrics()
	proc := NewFeatureProcessor(pub, nil, metrics, "kafka")
	u := NewIngestUsecase(testLogger(), src, nil, features.NewTracker(), proc, metrics, false)
	pipe := &recordingPipe{}
	u.SetPipeline(pipe)

	n, err := u.IngestDay(context.Background(), "2024-01-04")
	if err != nil {
		t.Fatalf("IngestDay: %v", err)
	}
	if n != 1 || len(pipe.rows) != 1 {
		t.Fatalf("rows = %d buffered = %d, want 1 each", n, len(pipe.rows))
	}
}

func TestFeatureProcessorClickHouseBackend(t *testing.T) {
	store := &fakeFeatureStore{}
	metrics := newFakeMetrics()
	proc := NewFeatureProcessor(nil, store, metrics, "clickhouse")

	rows := []*models.FeatureRow{{Code: "7203", Date: "2024-01-04", Close: 100}}
	if err := proc.ProcessBatch(context.Background(), rows); err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if len(store.stored) != 1 {
		t.Fatalf("stored = %d, want 1", len(store.stored))
	}
}

func TestFeatureProcessorUnknownBackend(t *testing.T) {
	metrics := newFakeMetrics()
	proc := NewFeatureProcessor(nil, nil, metrics, "postgres")
	err := proc.ProcessBatch(context.Background(), []*models.FeatureRow{{Code: "7203", Date: "2024-01-04"}})
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func rankRow(code string, r1 float64, warmup bool) *models.FeatureRow {
	return &models.FeatureRow{Code: code, Date: "2024-02-01", Close: 100, Return1D: r1, Warmup: warmup}
}

func TestRankOrdersByScore(t *testing.T) {
	tracker := features.NewTracker()
	store := &fakeFeatureStore{byDate: map[string][]*models.FeatureRow{
		"2024-02-01": {
			rankRow("7203", 0.03, false),
			rankRow("9984", 0.05, false),
			rankRow("6758", 0.01, false),
			rankRow("8306", 0.9, true), // warmup, must not rank
		},
	}}
	pred := &fakePredictor{name: "m", score: func(r *models.FeatureRow) float64 { return r.Return1D }}
	u := NewRankingUseCase(testLogger(), tracker, store, pred)

	snap, err := u.Rank(context.Background(), "2024-02-01", 10)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(snap.Entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(snap.Entries))
	}
	want := []string{"9984", "7203", "6758"}
	for i, e := range snap.Entries {
		if e.Code != want[i] {
			t.Errorf("entry %d = %s, want %s", i, e.Code, want[i])
		}
		if e.Rank != i+1 {
			t.Errorf("entry %d rank = %d, want %d", i, e.Rank, i+1)
		}
	}
	if snap.Model != "m" || snap.Date != "2024-02-01" {
		t.Errorf("snapshot meta = %+v", snap)
	}
}

func TestRankTieBreaksByCode(t *testing.T) {
	store := &fakeFeatureStore{byDate: map[string][]*models.FeatureRow{
		"2024-02-01": {
			rankRow("9984", 0.5, false),
			rankRow("7203", 0.5, false),
		},
	}}
	pred := &fakePredictor{name: "m", score: func(r *models.FeatureRow) float64 { return r.Return1D }}
	u := NewRankingUseCase(testLogger(), features.NewTracker(), store, pred)

	snap, err := u.Rank(context.Background(), "2024-02-01", 10)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if snap.Entries[0].Code != "7203" {
		t.Errorf("tie order = %s, want 7203 first", snap.Entries[0].Code)
	}
}

func TestRankTopLimit(t *testing.T) {
	store := &fakeFeatureStore{byDate: map[string][]*models.FeatureRow{"2024-02-01": {
		rankRow("7203", 0.3, false),
		rankRow("9984", 0.2, false),
		rankRow("6758", 0.1, false),
	}}}
	pred := &fakePredictor{name: "m", score: func(r *models.FeatureRow) float64 { return r.Return1D }}
	u := NewRankingUseCase(testLogger(), features.NewTracker(), store, pred)

	snap, err := u.Rank(context.Background(), "2024-02-01", 2)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(snap.Entries) != 2 {
		t.Errorf("entries = %d, want 2", len(snap.Entries))
	}
}

func TestRankLiveUsesTracker(t *testing.T) {
	tracker := features.NewTracker()
	// 32 trading days of 1% gains fills the window for one code
	closePx := 100.0
	for i := 0; i < 35; i++ {
		date := fmt.Sprintf("2024-01-%02d", 1+i%28)
		if i >= 28 {
			date = fmt.Sprintf("2024-02-%02d", i-27)
		}
		closePx *= 1.01
		q := bar("7203", date, closePx, 1000)
		tracker.Apply(&q)
	}
	pred := &fakePredictor{name: "m", score: func(r *models.FeatureRow) float64 { return r.Return1D }}
	u := NewRankingUseCase(testLogger(), tracker, nil, pred)

	snap, err := u.Rank(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(snap.Entries) != 1 || snap.Entries[0].Code != "7203" {
		t.Fatalf("entries = %+v, want single 7203", snap.Entries)
	}
}

func TestRankCachesSnapshots(t *testing.T) {
	calls := 0
	store := &fakeFeatureStore{byDate: map[string][]*models.FeatureRow{"2024-02-01": {
		rankRow("7203", 0.3, false),
	}}}
	pred := &fakePredictor{name: "m", score: func(r *models.FeatureRow) float64 {
		calls++
		return r.Return1D
	}}
	u := NewRankingUseCase(testLogger(), features.NewTracker(), store, pred)
	u.SetCache(icache.NewTTLCache(), 0)

	for i := 0; i < 3; i++ {
		if _, err := u.Rank(context.Background(), "2024-02-01", 5); err != nil {
			t.Fatalf("Rank #%d: %v", i, err)
		}
	}
	if calls != 1 {
		t.Errorf("predictor calls = %d, want 1 (cached)", calls)
	}
}

func TestKafkaFeaturesHandler(t *testing.T) {
	store := &fakeFeatureStore{}
	metrics := newFakeMetrics()
	h := NewKafkaFeaturesHandler("features", store, metrics)

	if h.Topic() != "features" {
		t.Errorf("topic = %s", h.Topic())
	}
	msg := []byte(`{"code":"7203","date":"2024-01-04","close":100}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(store.stored) != 1 || store.stored[0].Code != "7203" {
		t.Fatalf("stored = %+v", store.stored)
	}

	if err := h.Handle(context.Background(), []byte("not json")); err == nil {
		t.Error("expected unmarshal error")
	}
	if metrics.errors["consumer_unmarshal"] != 1 {
		t.Errorf("unmarshal errors = %d", metrics.errors["consumer_unmarshal"])
	}

	// rows without identity are dropped without error
	if err := h.Handle(context.Background(), []byte(`{"close":1}`)); err != nil {
		t.Errorf("Handle empty row: %v", err)
	}
}
