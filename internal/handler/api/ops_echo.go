package api

import (
	"errors"
	"net/http"

	"FreshSnap/internal/service/ratelimit"
	"FreshSnap/internal/usecase"
	xhttp "FreshSnap/pkg/http"
	xlogger "FreshSnap/pkg/logger"

	"github.com/labstack/echo/v4"
)

// OpsEchoHandler exposes operator actions: cache warm, cache clear, and
// manual snapshot refresh. Rate-limited per remote address so a looping
// dashboard cannot hammer the stores.
type OpsEchoHandler struct {
	logger  *xlogger.Logger
	ops     *usecase.Ops
	limiter *ratelimit.Limiter
}

func NewOpsEchoHandler(logger *xlogger.Logger, ops *usecase.Ops, limiter *ratelimit.Limiter) *OpsEchoHandler {
	return &OpsEchoHandler{logger: logger, ops: ops, limiter: limiter}
}

func (h *OpsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/ops")
	g.POST("/warm", h.Warm)
	g.POST("/clear", h.Clear)
	g.POST("/refresh", h.Refresh)
}

func (h *OpsEchoHandler) allow(c echo.Context, op string) bool {
	return h.limiter.Allow(op+":"+c.RealIP(), 5, 0.2)
}

func (h *OpsEchoHandler) Warm(c echo.Context) error {
	if !h.allow(c, "warm") {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}
	counts, err := h.ops.Warm(c.Request().Context())
	if err != nil {
		if errors.Is(err, usecase.ErrWarmInFlight) {
			return xhttp.DataResponse(c, http.StatusAccepted, "warm already in progress")
		}
		h.logger.Error("cache warm failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, counts)
}

func (h *OpsEchoHandler) Clear(c echo.Context) error {
	if !h.allow(c, "clear") {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}
	if err := h.ops.Clear(c.Request().Context()); err != nil {
		h.logger.Error("cache clear failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, "cleared")
}

func (h *OpsEchoHandler) Refresh(c echo.Context) error {
	if !h.allow(c, "refresh") {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}
	if !h.ops.Refresh(c.Request().Context()) {
		// a cycle was already in flight; the caller's intent is satisfied
		return xhttp.DataResponse(c, http.StatusAccepted, "refresh already in progress")
	}
	return xhttp.SuccessResponse(c, "refreshed")
}
