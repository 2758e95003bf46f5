package realtime

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client is one websocket connection attached to the hub.
type Client struct {
	id   string
	role Role
	hub  *Hub

	// conn is nil for clients created in tests.
	conn *websocket.Conn

	// Outbound frames. Closed by the hub when the client is detached.
	send chan []byte
}

func newClient(h *Hub, conn *websocket.Conn, role Role, buf int) *Client {
	return &Client{
		id:   uuid.NewString(),
		role: role,
		hub:  h,
		conn: conn,
		send: make(chan []byte, buf),
	}
}

// ID returns the connection id used in the registry.
func (c *Client) ID() string { return c.id }

// Role returns the role the connection was admitted with.
func (c *Client) Role() Role { return c.role }

// Attach registers an upgraded connection and starts its pumps. The current
// occupancy snapshot is the first frame the client receives.
func (h *Hub) Attach(conn *websocket.Conn, role Role) *Client {
	c := newClient(h, conn, role, h.opts.SendBuffer)
	h.Register(c)
	go c.writePump()
	go c.readPump()
	h.logger.Info("websocket connected", zap.String("conn_id", c.id), zap.String("role", string(role)))
	return c
}

// readPump feeds inbound frames to the hub until the connection fails, then
// unregisters the client.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
		c.hub.logger.Info("websocket disconnected", zap.String("conn_id", c.id))
	}()
	c.conn.SetReadLimit(c.hub.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.opts.PongWait))
	})

	for {
		msgType, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read", zap.String("conn_id", c.id), zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		c.hub.HandleFrame(c, frame)
	}
}

// writePump drains the send queue, one websocket message per frame, and
// keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
