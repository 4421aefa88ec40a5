package api

import (
	"net/http"

	"BartWatch/internal/domain/models"
	xhttp "BartWatch/pkg/http"
	xlogger "BartWatch/pkg/logger"

	"github.com/labstack/echo/v4"
)

// StatusSource is the read-only view of the monitor the API needs.
type StatusSource interface {
	Status() models.MonitorStatus
	Stations() []models.StationConfig
	Station(id string) (models.StationConfig, bool)
}

// MonitorEchoHandler exposes monitor status and the display WebSocket.
type MonitorEchoHandler struct {
	logger *xlogger.Logger
	src    StatusSource
	ws     http.Handler
}

// NewMonitorEchoHandler creates the handler. ws may be nil to disable /ws.
func NewMonitorEchoHandler(logger *xlogger.Logger, src StatusSource, ws http.Handler) *MonitorEchoHandler {
	return &MonitorEchoHandler{logger: logger, src: src, ws: ws}
}

func (h *MonitorEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	g := e.Group("/api")
	g.GET("/status", h.Status)
	g.GET("/stations", h.Stations)
	g.GET("/stations/:id", h.Station)
	if h.ws != nil {
		e.GET("/ws", echo.WrapHandler(h.ws))
	}
}

// Health is 200 once the start sentinel went out, 503 before that.
// A recovering monitor is still healthy: recovery is part of normal operation.
func (h *MonitorEchoHandler) Health(c echo.Context) error {
	st := h.src.Status()
	if !st.Started {
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("monitor not started"))
	}
	return xhttp.SuccessResponse(c, map[string]string{"state": st.State})
}

func (h *MonitorEchoHandler) Status(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, h.src.Status())
}

func (h *MonitorEchoHandler) Stations(c echo.Context) error {
	stations := h.src.Stations()
	rows := make([]models.StationView, 0, len(stations))
	for _, st := range stations {
		rows = append(rows, toView(st))
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *MonitorEchoHandler) Station(c echo.Context) error {
	id := c.Param("id")
	st, ok := h.src.Station(id)
	if !ok {
		h.logger.Debug("unknown station requested", xlogger.String("station", id))
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("station %q is not monitored", id).WithParam("id", id))
	}
	return xhttp.SuccessResponse(c, toView(st))
}

func toView(st models.StationConfig) models.StationView {
	return models.StationView{
		ID:                 st.ID,
		Name:               st.Name,
		Direction:          st.Direction,
		NotifyDelaySeconds: int(st.NotifyDelay.Seconds()),
	}
}
