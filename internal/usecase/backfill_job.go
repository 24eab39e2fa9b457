package usecase

import (
	"context"
	"fmt"

	"KabuFeed/internal/domain/models"
	applogger "KabuFeed/pkg/logger"
	"KabuFeed/pkg/queue"
)

// BackfillMessageType identifies backfill requests on the job queue.
const BackfillMessageType = "ingest.backfill"

// BackfillJob replays a historical date range through the tracker. Long
// backfills run on the queue so the HTTP request returns immediately.
type BackfillJob struct {
	log    *applogger.Logger
	ingest *IngestUsecase
}

func NewBackfillJob(log *applogger.Logger, ingest *IngestUsecase) *BackfillJob {
	return &BackfillJob{log: log, ingest: ingest}
}

func (j *BackfillJob) Name() string { return "backfill" }
func (j *BackfillJob) Type() string { return BackfillMessageType }

func (j *BackfillJob) Handle(ctx context.Context, payload interface{}) error {
	req, err := queue.ParsePayload[models.BackfillRequest](payload)
	if err != nil {
		return fmt.Errorf("backfill payload: %w", err)
	}
	if req.From == "" || req.To == "" {
		return fmt.Errorf("backfill needs from and to dates")
	}

	n, err := j.ingest.Backfill(ctx, req.From, req.To)
	if err != nil {
		return err
	}
	j.log.Info("backfill job done",
		applogger.String("from", req.From),
		applogger.String("to", req.To),
		applogger.Int("rows", n),
	)
	return nil
}

var _ queue.Job = (*BackfillJob)(nil)
