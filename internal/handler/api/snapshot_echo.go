package api

import (
	"errors"
	"net/http"

	models "FreshSnap/internal/domain/models"
	"FreshSnap/internal/engine"
	"FreshSnap/internal/usecase"
	xhttp "FreshSnap/pkg/http"
	xlogger "FreshSnap/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SnapshotEchoHandler exposes the snapshot read surface over HTTP.
type SnapshotEchoHandler struct {
	logger *xlogger.Logger
	query  *usecase.SnapshotQuery
}

func NewSnapshotEchoHandler(logger *xlogger.Logger, query *usecase.SnapshotQuery) *SnapshotEchoHandler {
	return &SnapshotEchoHandler{logger: logger, query: query}
}

func (h *SnapshotEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/prices", h.Prices)
	g.GET("/prices/:pid", h.PriceByPID)
	g.GET("/predictions/:pid", h.Predictions)
	g.GET("/predictions/:pid/:horizon", h.PredictionByHorizon)
	g.GET("/horizons", h.Horizons)
	g.GET("/stats/markets", h.StatsMarkets)
	g.GET("/stats/sectors", h.StatsSectors)
	g.GET("/snapshot/health", h.SnapshotHealth)
}

func (h *SnapshotEchoHandler) Prices(c echo.Context) error {
	req := &models.PricesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.query.ListPrices(c.Request().Context(), req)
	if err != nil {
		return h.snapshotError(c, err, "prices usecase error")
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SnapshotEchoHandler) PriceByPID(c echo.Context) error {
	pid := c.Param("pid")
	if pid == "" {
		return xhttp.BadRequestResponse(c, "pid is required")
	}

	res, err := h.query.PriceByPID(pid)
	if err != nil {
		return h.snapshotError(c, err, "price usecase error")
	}
	if res == nil {
		return xhttp.NotFoundResponse(c, "no price for instrument")
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SnapshotEchoHandler) Predictions(c echo.Context) error {
	pid := c.Param("pid")
	if pid == "" {
		return xhttp.BadRequestResponse(c, "pid is required")
	}

	res, err := h.query.PredictionsByPID(pid)
	if err != nil {
		return h.snapshotError(c, err, "predictions usecase error")
	}
	if res == nil {
		res = []*models.LatestPrediction{}
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SnapshotEchoHandler) PredictionByHorizon(c echo.Context) error {
	pid := c.Param("pid")
	hz := c.Param("horizon")
	if pid == "" || hz == "" {
		return xhttp.BadRequestResponse(c, "pid and horizon are required")
	}

	res, err := h.query.PredictionByPIDHorizon(pid, hz)
	if err != nil {
		return h.snapshotError(c, err, "prediction usecase error")
	}
	if res == nil {
		return xhttp.NotFoundResponse(c, "no prediction for instrument and horizon")
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SnapshotEchoHandler) Horizons(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.query.Horizons())
}

func (h *SnapshotEchoHandler) StatsMarkets(c echo.Context) error {
	res, err := h.query.StatsByMarket(c.Request().Context())
	if err != nil {
		h.logger.Error("market stats usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SnapshotEchoHandler) StatsSectors(c echo.Context) error {
	res, err := h.query.StatsBySector(c.Request().Context())
	if err != nil {
		h.logger.Error("sector stats usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SnapshotEchoHandler) SnapshotHealth(c echo.Context) error {
	res, err := h.query.Health()
	if err != nil {
		return h.snapshotError(c, err, "snapshot health error")
	}
	return xhttp.SuccessResponse(c, res)
}

// snapshotError maps the no-snapshot startup window to 503; everything else
// is an internal error.
func (h *SnapshotEchoHandler) snapshotError(c echo.Context, err error, msg string) error {
	if errors.Is(err, engine.ErrNoSnapshot) {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, "snapshot not yet published")
	}
	h.logger.Error(msg, xlogger.Error(err))
	return xhttp.AppErrorResponse(c, err)
}
