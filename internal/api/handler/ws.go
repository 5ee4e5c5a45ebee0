package handler

import (
	"net/http"

	"snackbox/backend/internal/snackhub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS for the upgrade is handled at the proxy; identity is established
	// afterwards by the authenticate event, so the upgrade itself is open.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the connection and hands it to the hub. The socket
// starts unbound; the client must send snack:authenticate before anything
// else.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := snackhub.NewWSClient(h.Hub, conn)
	h.Hub.RegisterCh <- client
	client.Run()
}
