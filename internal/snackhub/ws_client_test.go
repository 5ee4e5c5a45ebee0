package snackhub_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"snackbox/backend/internal/models"
	"snackbox/backend/internal/snackhub"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// dialTestConn stands up a throwaway websocket server and returns the
// dialer-side connection for wrapping in a WSClient.
func dialTestConn(t *testing.T) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		<-done
		c.Close()
	}))
	t.Cleanup(func() {
		close(done)
		srv.Close()
	})

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// TestSendAfterCloseDoesNotPanic pins the eviction race: the hub may close a
// slow connection while an event handler on another read pump is still
// queueing an event to it. The queue must absorb the late send instead of
// panicking on a closed channel.
func TestSendAfterCloseDoesNotPanic(t *testing.T) {
	hub, _, _ := setupHub(t)
	client := snackhub.NewWSClient(hub, dialTestConn(t))

	client.Close()
	client.Close() // stays idempotent

	ev, err := models.NewEvent(models.EventError, models.ErrorPayload{Message: "too slow"})
	require.NoError(t, err)
	require.NotPanics(t, func() {
		client.SendChannel() <- ev
	})
}
