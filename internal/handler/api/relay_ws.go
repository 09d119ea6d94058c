package api

import (
	"context"
	"net/http"
	"time"

	models "github.com/zhutoutoutousan/worldquant-miner/internal/domain/models"
	xhttp "github.com/zhutoutoutousan/worldquant-miner/pkg/http"
	xlogger "github.com/zhutoutoutousan/worldquant-miner/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The hosting environment authenticates the client leg.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamWS relays the same ordered event stream over a WebSocket, one JSON
// event per text frame, closing the connection on the terminal event. The
// upgrade is a GET, so the token rides the Authorization header (or a
// "token" query parameter for clients that cannot set headers).
func (h *RelayEchoHandler) StreamWS(c echo.Context) error {
	req := &models.RelayRequest{
		StatusURL: c.QueryParam("status_url"),
		AuthToken: bearerToken(c),
	}
	if req.AuthToken == "" {
		req.AuthToken = c.QueryParam("token")
	}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("websocket upgrade failed").WithError(err))
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	events := h.relay.Stream(ctx, req)

	for ev := range events {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(ev); err != nil {
			h.logger.Debug("ws write failed, client gone", xlogger.Error(err))
			cancel()
			break
		}
	}
	for range events {
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(wsWriteTimeout))
	return nil
}

func bearerToken(c echo.Context) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}
