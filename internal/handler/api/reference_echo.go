package api

import (
	"FreshSnap/internal/refdata"
	xhttp "FreshSnap/pkg/http"
	xlogger "FreshSnap/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ReferenceEchoHandler serves the cached dimension tables.
type ReferenceEchoHandler struct {
	logger *xlogger.Logger
	ref    *refdata.Cache
}

func NewReferenceEchoHandler(logger *xlogger.Logger, ref *refdata.Cache) *ReferenceEchoHandler {
	return &ReferenceEchoHandler{logger: logger, ref: ref}
}

func (h *ReferenceEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/countries", h.Countries)
	g.GET("/markets", h.Markets)
	g.GET("/sectors", h.Sectors)
}

func (h *ReferenceEchoHandler) Countries(c echo.Context) error {
	res, err := h.ref.Countries(c.Request().Context())
	if err != nil {
		h.logger.Error("countries load failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, clip(res, limitParam(c)))
}

func (h *ReferenceEchoHandler) Markets(c echo.Context) error {
	res, err := h.ref.Markets(c.Request().Context())
	if err != nil {
		h.logger.Error("markets load failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, clip(res, limitParam(c)))
}

func (h *ReferenceEchoHandler) Sectors(c echo.Context) error {
	res, err := h.ref.Sectors(c.Request().Context())
	if err != nil {
		h.logger.Error("sectors load failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, clip(res, limitParam(c)))
}

func limitParam(c echo.Context) int {
	return xhttp.ParseIntDefault(c.QueryParam("limit"), 0)
}

func clip[T any](rows []T, limit int) []T {
	if limit > 0 && limit < len(rows) {
		return rows[:limit]
	}
	return rows
}
