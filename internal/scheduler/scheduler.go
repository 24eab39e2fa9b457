package scheduler

import (
	"context"
	"fmt"
	"time"

	"KabuFeed/internal/handler/ws"
	"KabuFeed/internal/usecase"
	applogger "KabuFeed/pkg/logger"

	"github.com/robfig/cron/v3"
)

// jst is the exchange timezone; daily jobs are expressed in it.
var jst = time.FixedZone("Asia/Tokyo", 9*3600)

// Scheduler runs the daily ingest job on a cron spec and pushes a fresh
// ranking to websocket clients after each run.
type Scheduler struct {
	cron    *cron.Cron
	log     *applogger.Logger
	ingest  *usecase.IngestUsecase
	ranking *usecase.RankingUseCase
	hub     *ws.Hub
	top     int
	ctx     context.Context
}

// NewScheduler creates a new Scheduler. hub may be nil when the
// websocket endpoint is disabled.
func NewScheduler(ctx context.Context, log *applogger.Logger, ingest *usecase.IngestUsecase, ranking *usecase.RankingUseCase, hub *ws.Hub, top int) *Scheduler {
	if top <= 0 {
		top = 50
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(jst)),
		log:     log,
		ingest:  ingest,
		ranking: ranking,
		hub:     hub,
		top:     top,
		ctx:     ctx,
	}
}

// Register adds the daily ingest job. An empty spec disables scheduling.
func (s *Scheduler) Register(spec string) error {
	if spec == "" {
		s.log.Info("scheduler disabled: no cron spec")
		return nil
	}
	if _, err := s.cron.AddFunc(spec, s.dailyIngest); err != nil {
		return fmt.Errorf("register ingest job: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}

// RunNow executes the daily job immediately (manual trigger).
func (s *Scheduler) RunNow() {
	s.dailyIngest()
}

func (s *Scheduler) dailyIngest() {
	date := time.Now().In(jst).Format("2006-01-02")
	s.log.Info("scheduler: daily ingest", applogger.String("date", date))

	n, err := s.ingest.IngestDay(s.ctx, date)
	if err != nil {
		s.log.Error("scheduler: ingest failed", applogger.String("date", date), applogger.Error(err))
		return
	}
	if n == 0 {
		// holiday or weekend, nothing to rank
		return
	}

	snap, err := s.ranking.Rank(s.ctx, "", s.top)
	if err != nil {
		s.log.Error("scheduler: ranking failed", applogger.Error(err))
		return
	}
	if s.hub != nil {
		s.hub.Broadcast(snap)
		s.log.Info("scheduler: ranking broadcast",
			applogger.String("date", snap.Date),
			applogger.Int("entries", len(snap.Entries)),
			applogger.Int("clients", s.hub.Clients()),
		)
	}
}
