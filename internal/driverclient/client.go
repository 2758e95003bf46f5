// Package driverclient is a websocket client for the SmartPark realtime
// channel.  The mobile apps speak the same protocol; this client is used by
// operator tooling and end-to-end tests.
package driverclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/iliyamo/smartpark/internal/realtime"
)

// ErrClosed is returned once the connection is gone.
var ErrClosed = errors.New("driverclient: connection closed")

const writeWait = 10 * time.Second

// Options configure Dial.
type Options struct {
	// Role is sent as the role query parameter ("driver" or "guard").
	Role string
	// Token is a bearer access token, required for guards when the server
	// has auth enabled.
	Token  string
	Header http.Header
	// Buffer is the size of the inbound event queue. Defaults to 64.
	Buffer int
	Logger *zap.Logger
}

// Client is one realtime connection.  Inbound frames are decoded in a
// background goroutine and queued on Events.
type Client struct {
	conn   *websocket.Conn
	logger *zap.Logger
	events chan realtime.Envelope

	writeMu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the websocket endpoint at rawURL, e.g.
// "ws://localhost:8080/ws".
func Dial(ctx context.Context, rawURL string, opts Options) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("driverclient: parse url: %w", err)
	}
	q := u.Query()
	if opts.Role != "" {
		q.Set("role", opts.Role)
	}
	u.RawQuery = q.Encode()

	header := http.Header{}
	for k, v := range opts.Header {
		header[k] = v
	}
	if opts.Token != "" {
		header.Set("Authorization", "Bearer "+opts.Token)
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 64
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("driverclient: dial %s: %w (status %d)", u.Redacted(), err, resp.StatusCode)
		}
		return nil, fmt.Errorf("driverclient: dial %s: %w", u.Redacted(), err)
	}

	c := &Client{
		conn:   conn,
		logger: opts.Logger,
		events: make(chan realtime.Envelope, opts.Buffer),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.events)
	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("realtime read", zap.Error(err))
			}
			c.Close()
			return
		}
		var env realtime.Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			c.logger.Warn("dropping undecodable frame", zap.Error(err))
			continue
		}
		select {
		case c.events <- env:
		case <-c.done:
			return
		}
	}
}

// Events delivers every inbound frame in arrival order.  The channel is
// closed when the connection ends.
func (c *Client) Events() <-chan realtime.Envelope { return c.events }

// Next waits for the next frame named event, discarding others.
func (c *Client) Next(ctx context.Context, event string) (realtime.Envelope, error) {
	for {
		select {
		case env, ok := <-c.events:
			if !ok {
				return realtime.Envelope{}, ErrClosed
			}
			if env.Event == event {
				return env, nil
			}
		case <-ctx.Done():
			return realtime.Envelope{}, ctx.Err()
		}
	}
}

// Decode unmarshals the data of env into a T.
func Decode[T any](env realtime.Envelope) (T, error) {
	var v T
	err := json.Unmarshal(env.Data, &v)
	return v, err
}

// Send writes one event frame.
func (c *Client) Send(ctx context.Context, event string, data any) error {
	frame, err := realtime.Encode(event, data)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("driverclient: send %s: %w", event, err)
	}
	return nil
}

// Login binds name (and optionally plate and spot) to this connection.
func (c *Client) Login(ctx context.Context, p realtime.LoginPayload) error {
	return c.Send(ctx, realtime.EventLogin, p)
}

// SendChat sends a driver message to the guard.
func (c *Client) SendChat(ctx context.Context, name, body string) error {
	return c.Send(ctx, realtime.EventChatFromDriver, realtime.ChatPayload{Name: name, Body: body})
}

// GuardChat sends a guard message to the named driver.
func (c *Client) GuardChat(ctx context.Context, driver, body string) error {
	return c.Send(ctx, realtime.EventChatFromGuard, realtime.ChatPayload{Name: driver, Body: body})
}

// Typing reports the driver's typing indicator.
func (c *Client) Typing(ctx context.Context, name string, isTyping bool) error {
	return c.Send(ctx, realtime.EventDriverTyping, realtime.DriverTypingPayload{Name: name, IsTyping: &isTyping})
}

// GuardTyping reports the guard's typing indicator.
func (c *Client) GuardTyping(ctx context.Context, isTyping bool) error {
	return c.Send(ctx, realtime.EventGuardTyping, isTyping)
}

// NotifyReservation announces a completed booking to the guards.
func (c *Client) NotifyReservation(ctx context.Context, ev realtime.ReservationEvent) error {
	return c.Send(ctx, realtime.EventNewReservation, ev)
}

// Close sends a close frame and tears the connection down.  It is safe to
// call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}
