package di

import (
	"context"
	"fmt"
	"time"

	"KabuFeed/internal/domain/repository"
	domsvc "KabuFeed/internal/domain/service"
	"KabuFeed/internal/handler/api"
	"KabuFeed/internal/handler/ws"
	mid "KabuFeed/internal/middleware"
	internalrepo "KabuFeed/internal/repository"
	"KabuFeed/internal/scheduler"
	icache "KabuFeed/internal/service/cache"
	"KabuFeed/internal/service/jquants"
	"KabuFeed/internal/services/features"
	"KabuFeed/internal/services/predict"
	"KabuFeed/internal/usecase"
	pkgcache "KabuFeed/pkg/cache"
	pkgch "KabuFeed/pkg/clickhouse"
	"KabuFeed/pkg/config"
	pkgkafka "KabuFeed/pkg/kafka"
	applogger "KabuFeed/pkg/logger"
	"KabuFeed/pkg/metrics"
	pkgqueue "KabuFeed/pkg/queue"
	"KabuFeed/pkg/server"

	"github.com/redis/go-redis/v9"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := "info"
	format := "json"
	if cfg.Environment == "development" {
		level = "debug"
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCredentials resolves J-Quants credentials from the TOML chain
// and environment.
func ProvideCredentials(cfg *config.Config) (config.Credentials, error) {
	return config.LoadCredentials(cfg.JQuants.Credentials)
}

// ProvideMarketSource creates the J-Quants API client.
func ProvideMarketSource(log *applogger.Logger, cfg *config.Config, creds config.Credentials, m repository.Metrics) repository.MarketSource {
	return jquants.NewClient(log,
		jquants.WithBaseURL(cfg.JQuants.BaseURL),
		jquants.WithCredentials(creds),
		jquants.WithRateLimit(cfg.JQuants.RatePerSec, cfg.JQuants.RateBurst),
		jquants.WithMaxWorkers(cfg.JQuants.MaxWorkers),
		jquants.WithCacheDir(cfg.Ingest.CacheDir),
		jquants.WithMetrics(m),
	)
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when no
// host is configured (pure kafka producer mode).
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.ClickHouse.Host == "" {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.SchemaStatements(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideClickHouseStorage creates ClickHouse-backed storage, or nil
// when ClickHouse is not configured.
func ProvideClickHouseStorage(chClient *pkgch.Client, cfg *config.Config) *internalrepo.ClickHouseStorage {
	if chClient == nil {
		return nil
	}
	return internalrepo.NewClickHouseStorage(chClient.DB(), cfg.ClickHouse.Database)
}

// ProvideStorage exposes the quote storage interface.
func ProvideStorage(s *internalrepo.ClickHouseStorage) repository.Storage {
	if s == nil {
		return nil
	}
	return s
}

// ProvideFeatureStore exposes the feature store interface.
func ProvideFeatureStore(s *internalrepo.ClickHouseStorage) repository.FeatureStore {
	if s == nil {
		return nil
	}
	return s
}

// ProvideKafkaProducer creates a Kafka producer for the kafka backend.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePublisher creates the feature row publisher.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideKafkaConsumer creates the consumer that drains feature rows
// into ClickHouse, or nil when no consumer group is configured.
func ProvideKafkaConsumer(log *applogger.Logger, cfg *config.Config, store repository.FeatureStore) (*pkgkafka.Consumer, error) {
	if cfg.Backend.Type != "kafka" || cfg.Kafka.Consumer.GroupID == "" || store == nil {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(log,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaFeaturesHandler registers the handler for the feature topic.
func ProvideKafkaFeaturesHandler(store repository.FeatureStore, m repository.Metrics, cfg *config.Config) *usecase.KafkaFeaturesHandler {
	return usecase.NewKafkaFeaturesHandler(cfg.Kafka.Topic, store, m)
}

// ProvideTracker creates the rolling feature tracker.
func ProvideTracker() *features.Tracker {
	return features.NewTracker()
}

// ProvideFeatureProcessor creates the backend router for feature rows.
func ProvideFeatureProcessor(pub repository.Publisher, store repository.FeatureStore, m repository.Metrics, cfg *config.Config) *usecase.FeatureProcessor {
	return usecase.NewFeatureProcessor(pub, store, m, cfg.Backend.Type)
}

// ProvideFeaturePipeline creates the buffering fallback in front of the
// ingest backend.
func ProvideFeaturePipeline(proc *usecase.FeatureProcessor, m repository.Metrics) *mid.FeaturePipeline {
	return mid.NewFeaturePipeline(proc, m, mid.WithBufferSize(5000))
}

// ProvideIngest creates the ingest usecase.
func ProvideIngest(
	log *applogger.Logger,
	source repository.MarketSource,
	storage repository.Storage,
	tracker *features.Tracker,
	proc *usecase.FeatureProcessor,
	pipe *mid.FeaturePipeline,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.IngestUsecase {
	storeQuotes := cfg.Backend.Type == "clickhouse" && storage != nil
	u := usecase.NewIngestUsecase(log, source, storage, tracker, proc, m, storeQuotes)
	u.SetPipeline(pipe)
	return u
}

// ProvidePredictor selects the scoring model: the external HTTP service
// when configured, the built-in linear baseline otherwise.
func ProvidePredictor(cfg *config.Config) domsvc.Predictor {
	if cfg.Ranking.ModelURL != "" {
		return predict.NewHTTPPredictor(cfg.Ranking.ModelURL, cfg.Ranking.Timeout)
	}
	return predict.NewBaseline()
}

// ProvideRanking creates the ranking usecase with response caching.
func ProvideRanking(
	log *applogger.Logger,
	tracker *features.Tracker,
	store repository.FeatureStore,
	predictor domsvc.Predictor,
	cfg *config.Config,
) *usecase.RankingUseCase {
	u := usecase.NewRankingUseCase(log, tracker, store, predictor)
	var c icache.BytesCache
	if cfg.Redis.Enabled {
		c = icache.NewRedisCache(icache.RedisConfig{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	} else {
		c = icache.NewTTLCache()
	}
	u.SetCache(c, cfg.Ranking.CacheTTL)
	return u
}

// ProvideSharedCache creates the layered Redis cache, or nil when Redis
// is disabled.
func ProvideSharedCache(cfg *config.Config) (pkgcache.Service, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return pkgcache.NewLayeredCache(rc), nil
}

// ProvideMarketQuery creates the read-path usecase.
func ProvideMarketQuery(storage repository.Storage, store repository.FeatureStore, source repository.MarketSource, shared pkgcache.Service) *usecase.MarketQuery {
	q := usecase.NewMarketQuery(storage, store, source)
	if shared != nil {
		q.SetSharedCache(shared)
	}
	return q
}

// ProvideBackfillJob creates the queue job that replays date ranges.
func ProvideBackfillJob(log *applogger.Logger, ingest *usecase.IngestUsecase) *usecase.BackfillJob {
	return usecase.NewBackfillJob(log, ingest)
}

// ProvideJobQueue creates the Redis-backed job queue, or nil when Redis
// is disabled.
func ProvideJobQueue(log *applogger.Logger, cfg *config.Config, job *usecase.BackfillJob) *pkgqueue.RedisQueue {
	if !cfg.Redis.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	q := pkgqueue.NewRedisQueue(log, &pkgqueue.QueueConfig{
		Workers:    1, // backfills are heavy, run one at a time
		QueueSize:  64,
		RetryLimit: 3,
		RetryDelay: time.Minute,
	}, client, pkgqueue.ModeProducerConsumer)
	q.RegisterJob(job)
	return q
}

// ProvideHub creates the websocket fanout hub.
func ProvideHub(log *applogger.Logger) *ws.Hub {
	return ws.NewHub(log)
}

// ProvideAPIHandler creates the Echo route group.
func ProvideAPIHandler(log *applogger.Logger, query *usecase.MarketQuery, ranking *usecase.RankingUseCase, storage repository.Storage, jobQueue *pkgqueue.RedisQueue) *api.MarketEchoHandler {
	h := api.NewMarketEchoHandler(log, query, ranking, storage)
	if jobQueue != nil {
		h.SetQueue(jobQueue)
	}
	return h
}

// ProvideScheduler creates the daily ingest scheduler.
func ProvideScheduler(
	log *applogger.Logger,
	ingest *usecase.IngestUsecase,
	ranking *usecase.RankingUseCase,
	hub *ws.Hub,
	cfg *config.Config,
) *scheduler.Scheduler {
	return scheduler.NewScheduler(context.Background(), log, ingest, ranking, hub, cfg.Ranking.Top)
}

// kafkaLogPublisher feeds aggregated error logs to a Kafka topic.
type kafkaLogPublisher struct {
	p *pkgkafka.Producer
}

func (k kafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return k.p.Publish(ctx, topic, nil, payload)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	sched *scheduler.Scheduler,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaFeaturesHandler,
	chClient *pkgch.Client,
	apiHandler *api.MarketEchoHandler,
	hub *ws.Hub,
	ingest *usecase.IngestUsecase,
	proc *usecase.FeatureProcessor,
	pipe *mid.FeaturePipeline,
	jobQueue *pkgqueue.RedisQueue,
	producer *pkgkafka.Producer,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	// Aggregate repeated error logs onto a side topic when Kafka is around.
	if producer != nil && cfg.Kafka.Topic != "" {
		log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.Topic + ".logs",
			Publisher:      kafkaLogPublisher{p: producer},
		})
	}
	var kafkaHandler pkgkafka.MessageHandler
	if consumer != nil {
		kafkaHandler = kh
	}
	app := server.New(cfg, log, sched, consumer, kafkaHandler, chClient)
	app.AddHTTPHandler(apiHandler)
	app.AddHTTPHandler(hub)
	app.Ingest = ingest
	app.FeatureProc = proc
	app.Pipeline = pipe
	app.Queue = jobQueue
	return app
}
