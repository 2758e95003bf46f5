package realtime

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Role tags a connection as a driver or a guard console.
type Role string

const (
	RoleDriver Role = "driver"
	RoleGuard  Role = "guard"
)

// ParseRole maps a query value to a Role. Empty means driver.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "driver", "usuario", "user":
		return RoleDriver, true
	case "guard", "guardia":
		return RoleGuard, true
	}
	return "", false
}

// DeliveryResult is the outcome of a unicast chat.
type DeliveryResult int

const (
	Delivered DeliveryResult = iota
	TargetNotConnected
)

func (d DeliveryResult) String() string {
	if d == Delivered {
		return "delivered"
	}
	return "target_not_connected"
}

type audience int

const (
	toAll audience = iota
	toGuards
	toDrivers
)

// Options tune the hub and its connections.
type Options struct {
	// RoleFiltering routes guard-facing events to guard connections only and
	// rejects events sent from the wrong role. When false every event is
	// broadcast to every connection.
	RoleFiltering bool
	// SendBuffer bounds the per-connection outbound queue.
	SendBuffer     int
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
}

// DefaultOptions returns the production settings.
func DefaultOptions() Options {
	return Options{
		RoleFiltering:  true,
		SendBuffer:     256,
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		MaxMessageSize: 4096,
	}
}

// Hub owns the connection registry, the occupancy board and the set of live
// clients. Every operation runs under one mutex so mutations never interleave
// and frames are queued to each connection in operation order.
type Hub struct {
	mu       sync.Mutex
	clients  map[string]*Client
	registry *Registry
	board    *Board

	opts    Options
	logger  *zap.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// NewHub builds an isolated hub. metrics may be nil.
func NewHub(logger *zap.Logger, metrics *Metrics, opts Options) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultOptions()
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = def.SendBuffer
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = def.WriteWait
	}
	if opts.PongWait <= 0 {
		opts.PongWait = def.PongWait
	}
	if opts.PingPeriod <= 0 || opts.PingPeriod >= opts.PongWait {
		opts.PingPeriod = opts.PongWait * 9 / 10
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = def.MaxMessageSize
	}
	return &Hub{
		clients:  make(map[string]*Client),
		registry: NewRegistry(),
		board:    NewBoard(),
		opts:     opts,
		logger:   logger.Named("realtime"),
		metrics:  metrics,
		tracer:   otel.Tracer("github.com/iliyamo/smartpark/internal/realtime"),
	}
}

// Register adds c to the live set and queues the current occupancy snapshot
// to it alone.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c.id] = c
	h.metrics.connected(c.role, 1)
	h.logger.Debug("client registered", zap.String("conn_id", c.id), zap.String("role", string(c.role)), zap.Int("clients", len(h.clients)))

	if frame, err := Encode(EventOccupancySnapshot, h.board.Current()); err == nil {
		if !h.enqueueLocked(c, frame) {
			h.dropLocked(c)
		}
	}
}

// Unregister removes c, releases its identity and rebroadcasts the registry.
// Unregistering twice is harmless.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.id]; !ok {
		return
	}
	h.detachLocked(c)
	h.broadcastRegistryLocked()
}

// Close detaches every client. Each writer sends a close frame and the
// readers exit on their own. Used on server shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(h.clients)
	for _, c := range h.clients {
		h.detachLocked(c)
	}
	if n > 0 {
		h.logger.Info("closed websocket connections", zap.Int("count", n))
	}
}

// Login binds name (and optionally plate and spot) to c, then broadcasts the
// registry. A previous holder of the name is told it was evicted.
func (h *Hub) Login(c *Client, name string, plate, spot *string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.id]; !ok {
		return
	}
	res := h.registry.Login(name, c.id, plate, spot)
	if res.Evicted != "" {
		if old, ok := h.clients[res.Evicted]; ok {
			h.logger.Info("identity moved to a new connection",
				zap.String("name", name), zap.String("from", old.id), zap.String("to", c.id))
			h.sendLocked(old, EventIdentityEvicted, Eviction{Name: name})
		}
	}
	h.metrics.setIdentities(h.registry.Len())
	h.broadcastRegistryLocked()
}

// Lookup returns the identity registered under name.
func (h *Hub) Lookup(name string) (Identity, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registry.Lookup(name)
}

// Presence returns the whole registry keyed by name.
func (h *Hub) Presence() map[string]Identity {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registry.Snapshot()
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// DriverToGuard relays a driver's chat to the guard role.
func (h *Hub) DriverToGuard(driverName, body string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fanoutLocked(toGuards, EventChatDelivered, ChatMessage{SenderName: driverName, Body: body})
}

// GuardToDriver unicasts a guard message to the connection bound to
// driverName.
func (h *Hub) GuardToDriver(driverName, body string) DeliveryResult {
	h.mu.Lock()
	defer h.mu.Unlock()

	id, ok := h.registry.Lookup(driverName)
	if !ok {
		h.metrics.chatUndelivered()
		return TargetNotConnected
	}
	target, ok := h.clients[id.ConnectionID]
	if !ok {
		h.metrics.chatUndelivered()
		return TargetNotConnected
	}
	msg := ChatMessage{SenderName: GuardDisplayName, Body: body, RecipientName: driverName}
	if !h.sendLocked(target, EventChatDelivered, msg) {
		h.metrics.chatUndelivered()
		return TargetNotConnected
	}
	return Delivered
}

// DriverTyping relays a driver's typing indicator to the guard role.
func (h *Hub) DriverTyping(driverName string, isTyping bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fanoutLocked(toGuards, EventTypingStateChanged, TypingState{Name: driverName, IsTyping: isTyping})
}

// GuardTyping relays the guard's typing indicator to drivers.
func (h *Hub) GuardTyping(isTyping bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fanoutLocked(toDrivers, EventTypingStateChanged, TypingState{IsTyping: isTyping})
}

// NotifyReservation pushes ev to whoever holds the guard role right now.
// Nothing is retained for later connections.
func (h *Hub) NotifyReservation(ev ReservationEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fanoutLocked(toGuards, EventReservationBroadcast, ev)
}

// UpdateSnapshot replaces the occupancy snapshot and broadcasts it.
func (h *Hub) UpdateSnapshot(next Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.board.Replace(next)
	h.metrics.snapshot(next)
	h.fanoutLocked(toAll, EventOccupancySnapshot, h.board.Current())
}

// CurrentSnapshot returns a copy of the occupancy snapshot.
func (h *Hub) CurrentSnapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.board.Current()
}

// HandleFrame decodes one inbound frame from c and applies it. Errors never
// propagate; a rejected frame earns the sender an error event.
func (h *Hub) HandleFrame(c *Client, frame []byte) {
	env, err := DecodeEnvelope(frame)
	if err != nil {
		h.reject(c, "", "malformed_payload")
		return
	}

	_, span := h.tracer.Start(context.Background(), "realtime."+env.Event,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("conn.id", c.id),
			attribute.String("conn.role", string(c.role)),
		))
	defer span.End()

	if err := h.dispatch(c, env); err != nil {
		code := "malformed_payload"
		switch {
		case errors.Is(err, errWrongRole):
			code = "forbidden"
		case errors.Is(err, ErrUnknownEvent):
			code = "unknown_event"
		}
		span.SetStatus(codes.Error, code)
		label := env.Event
		if code == "unknown_event" {
			label = "unknown"
		}
		h.metrics.event(label, code)
		h.logger.Debug("frame rejected", zap.String("conn_id", c.id), zap.String("event", env.Event), zap.Error(err))
		h.reject(c, env.Event, code)
		return
	}
	h.metrics.event(env.Event, "ok")
}

var errWrongRole = errors.New("event not allowed for connection role")

func (h *Hub) dispatch(c *Client, env Envelope) error {
	switch env.Event {
	case EventLogin:
		if err := h.requireRole(c, RoleDriver); err != nil {
			return err
		}
		p, err := decodeLogin(env.Data)
		if err != nil {
			return err
		}
		h.Login(c, p.Name, p.Plate, p.Spot)

	case EventChatFromDriver:
		if err := h.requireRole(c, RoleDriver); err != nil {
			return err
		}
		p, err := decodeChat(env.Data)
		if err != nil {
			return err
		}
		h.DriverToGuard(p.Name, p.Body)

	case EventChatFromGuard:
		if err := h.requireRole(c, RoleGuard); err != nil {
			return err
		}
		p, err := decodeChat(env.Data)
		if err != nil {
			return err
		}
		if h.GuardToDriver(p.Name, p.Body) == TargetNotConnected {
			h.send(c, EventDeliveryFailed, DeliveryFailure{RecipientName: p.Name, Reason: TargetNotConnected.String()})
		}

	case EventDriverTyping:
		if err := h.requireRole(c, RoleDriver); err != nil {
			return err
		}
		name, typing, err := decodeDriverTyping(env.Data)
		if err != nil {
			return err
		}
		h.DriverTyping(name, typing)

	case EventGuardTyping:
		if err := h.requireRole(c, RoleGuard); err != nil {
			return err
		}
		typing, err := decodeGuardTyping(env.Data)
		if err != nil {
			return err
		}
		h.GuardTyping(typing)

	case EventNewReservation:
		if err := h.requireRole(c, RoleDriver); err != nil {
			return err
		}
		ev, err := decodeReservation(env.Data)
		if err != nil {
			return err
		}
		h.NotifyReservation(ev)

	default:
		return ErrUnknownEvent
	}
	return nil
}

func (h *Hub) requireRole(c *Client, want Role) error {
	if h.opts.RoleFiltering && c.role != want {
		return errWrongRole
	}
	return nil
}

func (h *Hub) reject(c *Client, event, code string) {
	h.send(c, EventError, ProtocolError{Code: code, Event: event})
}

func (h *Hub) send(c *Client, event string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	h.sendLocked(c, event, payload)
}

// sendLocked queues one frame to c and closes c if its buffer is full.
func (h *Hub) sendLocked(c *Client, event string, payload any) bool {
	frame, err := Encode(event, payload)
	if err != nil {
		h.logger.Error("encode frame", zap.String("event", event), zap.Error(err))
		return false
	}
	if h.enqueueLocked(c, frame) {
		return true
	}
	h.dropLocked(c)
	return false
}

// broadcastRegistryLocked sends the registry to guards only while role
// filtering is on, so drivers never see each other's plates and spots.
// Without filtering it reaches every connection.
func (h *Hub) broadcastRegistryLocked() {
	h.fanoutLocked(toGuards, EventRegistrySnapshot, h.registry.Snapshot())
}

func (h *Hub) fanoutLocked(aud audience, event string, payload any) {
	frame, err := Encode(event, payload)
	if err != nil {
		h.logger.Error("encode frame", zap.String("event", event), zap.Error(err))
		return
	}
	var slow []*Client
	for _, c := range h.clients {
		if !h.reaches(c, aud) {
			continue
		}
		if !h.enqueueLocked(c, frame) {
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		h.dropLocked(c)
	}
}

func (h *Hub) reaches(c *Client, aud audience) bool {
	if !h.opts.RoleFiltering {
		return true
	}
	switch aud {
	case toGuards:
		return c.role == RoleGuard
	case toDrivers:
		return c.role == RoleDriver
	}
	return true
}

func (h *Hub) enqueueLocked(c *Client, frame []byte) bool {
	select {
	case c.send <- frame:
		h.metrics.queued()
		return true
	default:
		h.metrics.dropped()
		return false
	}
}

// dropLocked closes a client that cannot keep up. Its identity is released
// as if it had disconnected.
func (h *Hub) dropLocked(c *Client) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	h.logger.Warn("send buffer full, closing connection", zap.String("conn_id", c.id))
	h.metrics.slowEviction()
	h.detachLocked(c)
	h.broadcastRegistryLocked()
}

func (h *Hub) detachLocked(c *Client) {
	delete(h.clients, c.id)
	close(c.send)
	h.metrics.connected(c.role, -1)
	if name, ok := h.registry.Remove(c.id); ok {
		h.logger.Info("identity released", zap.String("name", name), zap.String("conn_id", c.id))
	}
	h.metrics.setIdentities(h.registry.Len())
}
