package api

import (
	"time"

	models "KabuFeed/internal/domain/models"
	domrepo "KabuFeed/internal/domain/repository"
	"KabuFeed/internal/usecase"
	xhttp "KabuFeed/pkg/http"
	xlogger "KabuFeed/pkg/logger"
	"KabuFeed/pkg/queue"

	"github.com/labstack/echo/v4"
)

// MarketEchoHandler implements Echo-based HTTP handlers following Clean Architecture.
type MarketEchoHandler struct {
	logger  *xlogger.Logger
	query   *usecase.MarketQuery
	ranking *usecase.RankingUseCase
	storage domrepo.Storage
	queue   queue.QueueService
}

func NewMarketEchoHandler(logger *xlogger.Logger, query *usecase.MarketQuery, ranking *usecase.RankingUseCase, storage domrepo.Storage) *MarketEchoHandler {
	return &MarketEchoHandler{logger: logger, query: query, ranking: ranking, storage: storage}
}

func (h *MarketEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/quotes", h.Quotes)
	g.GET("/features", h.Features)
	g.GET("/ranking", h.Ranking)
	g.GET("/listed", h.Listed)
	g.POST("/backfill", h.Backfill)
	e.GET("/healthz", h.Healthz)
}

// SetQueue enables async backfills via the job queue.
func (h *MarketEchoHandler) SetQueue(q queue.QueueService) { h.queue = q }

func (h *MarketEchoHandler) Quotes(c echo.Context) error {
	req := &models.QuotesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.query.Quotes(c.Request().Context(), req.Code, req.Date, req.From, req.To, req.N)
	if err != nil {
		h.logger.Error("quotes usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *MarketEchoHandler) Features(c echo.Context) error {
	req := &models.FeaturesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.query.Features(c.Request().Context(), req.Code, req.N)
	if err != nil {
		h.logger.Error("features usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *MarketEchoHandler) Ranking(c echo.Context) error {
	req := &models.RankingRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	snap, err := h.ranking.Rank(c.Request().Context(), req.Date, req.Top)
	if err != nil {
		h.logger.Error("ranking usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, snap)
}

func (h *MarketEchoHandler) Listed(c echo.Context) error {
	req := &models.ListedRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	companies, err := h.query.Listed(c.Request().Context(), req.Code)
	if err != nil {
		h.logger.Error("listed usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if req.Date != "" {
		filtered := companies[:0:0]
		for _, co := range companies {
			if co.Date == "" || co.Date == req.Date {
				filtered = append(filtered, co)
			}
		}
		companies = filtered
	}
	return xhttp.ListResponse(c, companies, int64(len(companies)))
}

func (h *MarketEchoHandler) Backfill(c echo.Context) error {
	req := &models.BackfillRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.queue == nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("backfill queue is not enabled"))
	}

	if err := h.queue.PublishMessage(c.Request().Context(), usecase.BackfillMessageType, req); err != nil {
		h.logger.Error("backfill enqueue error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]string{
		"status": "queued",
		"from":   req.From,
		"to":     req.To,
	})
}

func (h *MarketEchoHandler) Healthz(c echo.Context) error {
	res := map[string]any{"status": "ok", "time": time.Now().UTC()}
	if h.storage != nil {
		if err := h.storage.Health(c.Request().Context()); err != nil {
			res["status"] = "degraded"
			res["storage"] = err.Error()
			h.logger.Warn("healthz storage check failed", xlogger.Error(err))
		}
	}
	return xhttp.SuccessResponse(c, res)
}
