package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	models "github.com/zhutoutoutousan/worldquant-miner/internal/domain/models"
	"github.com/zhutoutoutousan/worldquant-miner/internal/usecase"
	xhttp "github.com/zhutoutoutousan/worldquant-miner/pkg/http"
	xlogger "github.com/zhutoutoutousan/worldquant-miner/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RelayEchoHandler exposes the relay as SSE and WebSocket endpoints.
type RelayEchoHandler struct {
	logger *xlogger.Logger
	relay  *usecase.Relay
}

func NewRelayEchoHandler(logger *xlogger.Logger, relay *usecase.Relay) *RelayEchoHandler {
	return &RelayEchoHandler{logger: logger, relay: relay}
}

func (h *RelayEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/simulations/stream", h.Stream)
	g.GET("/simulations/ws", h.StreamWS)
	e.GET("/healthz", h.Health)
}

// Stream relays one simulation's progress as a server-sent event stream.
// The status URL arrives as a query parameter, the token in the body; the
// response is committed before the first poll resolves.
func (h *RelayEchoHandler) Stream(c echo.Context) error {
	req := &models.RelayRequest{StatusURL: c.QueryParam("status_url")}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	// Kick off polling before the caller sees any response metadata, so
	// the first readable byte is already part of the event stream.
	events := h.relay.Stream(ctx, req)

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	for ev := range events {
		b, err := json.Marshal(ev)
		if err != nil {
			h.logger.Error("event marshal failed", xlogger.Error(err))
			cancel()
			break
		}
		if _, err := fmt.Fprintf(res, "data: %s\n\n", b); err != nil {
			// Client disconnected; stop polling and drain the channel so
			// the relay goroutine can close it.
			h.logger.Debug("sse write failed, client gone", xlogger.Error(err))
			cancel()
			break
		}
		res.Flush()
	}
	for range events {
	}
	return nil
}

// Health reports liveness.
func (h *RelayEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}
