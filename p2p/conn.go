package p2p

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/valency/foxcoin/p2p/peer"
	"github.com/valency/foxcoin/params"
	"github.com/valency/foxcoin/utils"
)

const (
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = pongWait * 9 / 10
	sendQueueSize = 256
)

// wsConn is the part of *websocket.Conn a conn works on
type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

type recvHandler = func(p *peer.Peer, data []byte)

// conn runs one websocket connection: a read loop and a write loop,
// the write loop owns every data write
type conn struct {
	p       *peer.Peer
	ws      wsConn
	sendQ   chan []byte
	handler recvHandler
	onClose func(c *conn)

	stopOnce sync.Once
	lm       *utils.LoopMode
}

func newConn(p *peer.Peer, ws wsConn, handler recvHandler, onClose func(c *conn)) *conn {
	return &conn{
		p:       p,
		ws:      ws,
		sendQ:   make(chan []byte, sendQueueSize),
		handler: handler,
		onClose: onClose,
		lm:      utils.NewLoop(),
	}
}

func (c *conn) start() {
	c.lm.StartWorking()
	c.lm.Go(c.readLoop)
	c.lm.Go(c.writeLoop)
}

// stop closes the socket, waits for the loops and reports the close once
func (c *conn) stop() {
	c.stopOnce.Do(func() {
		c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.ws.Close()
		c.lm.Stop()
		if c.onClose != nil {
			c.onClose(c)
		}
	})
}

// send queues data for the write loop; a full queue drops it
func (c *conn) send(data []byte) bool {
	select {
	case <-c.lm.D:
		return false
	default:
	}

	select {
	case c.sendQ <- data:
		return true
	default:
		logger.Warn("send queue of %v is full, drop a packet\n", c.p)
		return false
	}
}

func (c *conn) readLoop() {
	c.ws.SetReadLimit(params.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("read from %v failed: %v\n", c.p, err)
			}
			go c.stop()
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		c.handler(c.p, data)
	}
}

func (c *conn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.lm.D:
			return
		case data := <-c.sendQ:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Debug("write to %v failed: %v\n", c.p, err)
				go c.stop()
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Debug("ping %v failed: %v\n", c.p, err)
				go c.stop()
				return
			}
		}
	}
}
