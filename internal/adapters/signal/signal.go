// Package signal is the websocket signaling adapter: it owns the
// transport endpoints and translates wire envelopes into coordinator
// operations.
package signal

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/aakashbhandari1000/Meeting/internal/app"
	"github.com/aakashbhandari1000/Meeting/internal/core"
	"github.com/aakashbhandari1000/Meeting/internal/domain"
)

// Controller handles one websocket endpoint for all signaling traffic.
type Controller struct {
	Coord *app.Coordinator

	ReadLimit  int64
	SendBuffer int
}

func NewController(coord *app.Coordinator, readLimit int64, sendBuffer int) *Controller {
	if sendBuffer <= 0 {
		sendBuffer = 32
	}
	return &Controller{Coord: coord, ReadLimit: readLimit, SendBuffer: sendBuffer}
}

// wsConn is the adapter-owned transport endpoint behind core.SignalConn.
type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and runs the connection's pumps.
// The connection handle is the client token cookie when present, a
// fresh uuid otherwise.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	handle := domain.ConnHandle(c.GetString("client_token"))
	if handle == "" {
		handle = domain.ConnHandle(uuid.NewString())
	}
	log.Info().Str("module", "signal").Str("handle", string(handle)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, ctl.SendBuffer),
	}

	ctx, cancel := context.WithCancel(ctx)
	sess := &session{ctl: ctl, handle: handle, conn: conn, cancel: cancel}

	go sess.writePump(ctx)
	go sess.readPump(ctx)
}

// session is the per-connection state the dispatcher needs.
type session struct {
	ctl    *Controller
	handle domain.ConnHandle
	conn   *wsConn
	cancel context.CancelFunc
}
