package service

import (
	"context"

	"KabuFeed/internal/domain/models"
)

// Predictor scores feature rows. The model itself is opaque; it may run
// in-process or behind an HTTP endpoint.
type Predictor interface {
	// Name identifies the model for logging and snapshots.
	Name() string

	// Score returns one score per input row, in the same order.
	Score(ctx context.Context, rows []*models.FeatureRow) ([]float64, error)
}
