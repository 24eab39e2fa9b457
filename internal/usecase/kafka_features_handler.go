package usecase

import (
	"context"
	"encoding/json"
	"time"

	"KabuFeed/internal/domain/models"
	drepo "KabuFeed/internal/domain/repository"
	pkgkafka "KabuFeed/pkg/kafka"
)

// KafkaFeaturesHandler consumes feature rows from Kafka and writes them
// to the feature store. It runs on the consumer side of the kafka
// backend, where the producer and the sink are separate processes.
type KafkaFeaturesHandler struct {
	topic   string
	store   drepo.FeatureStore
	metrics drepo.Metrics
}

func NewKafkaFeaturesHandler(topic string, store drepo.FeatureStore, metrics drepo.Metrics) *KafkaFeaturesHandler {
	return &KafkaFeaturesHandler{topic: topic, store: store, metrics: metrics}
}

func (h *KafkaFeaturesHandler) Topic() string { return h.topic }

func (h *KafkaFeaturesHandler) Handle(ctx context.Context, b []byte) error {
	var row models.FeatureRow
	if err := json.Unmarshal(b, &row); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if row.Code == "" || row.Date == "" {
		h.metrics.RecordError("consumer_invalid")
		return nil // malformed rows are dropped, not retried
	}

	start := time.Now()
	err := h.store.StoreFeatures(ctx, []*models.FeatureRow{&row})
	h.metrics.RecordLatency("consumer_store", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordRowsIngested("clickhouse", 1)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaFeaturesHandler)(nil)
