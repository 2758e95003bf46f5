// Package realtime implements the presence, chat and occupancy broadcast core
// of SmartPark. A single Hub owns the connected-user registry and the last
// occupancy snapshot and fans frames out to websocket clients.
package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// Inbound events (client -> server).
const (
	EventLogin          = "login"
	EventChatFromDriver = "chatFromDriver"
	EventChatFromGuard  = "chatFromGuard"
	EventDriverTyping   = "driverTyping"
	EventGuardTyping    = "guardTyping"
	EventNewReservation = "newReservation"
)

// Outbound events (server -> client).
const (
	EventOccupancySnapshot    = "occupancySnapshot"
	EventRegistrySnapshot     = "registrySnapshot"
	EventChatDelivered        = "chatDelivered"
	EventTypingStateChanged   = "typingStateChanged"
	EventReservationBroadcast = "reservationBroadcast"
	EventIdentityEvicted      = "identityEvicted"
	EventDeliveryFailed       = "deliveryFailed"
	EventError                = "error"
)

// GuardDisplayName is the sender name stamped on guard-originated chat.
const GuardDisplayName = "Guardia"

var (
	// ErrMalformedPayload is returned when an inbound frame is not valid JSON
	// or misses a required field.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrUnknownEvent is returned for event names outside the protocol.
	ErrUnknownEvent = errors.New("unknown event")
)

// Envelope is the framing used for every websocket message in both
// directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode wraps data in an envelope for the given event.
func Encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// DecodeEnvelope parses one inbound frame.
func DecodeEnvelope(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, ErrMalformedPayload
	}
	if strings.TrimSpace(env.Event) == "" {
		return Envelope{}, ErrMalformedPayload
	}
	return env, nil
}

// LoginPayload binds a driver name to the sending connection. A nil Plate or
// Spot means "leave unchanged".
type LoginPayload struct {
	Name  string  `json:"name"`
	Plate *string `json:"plate,omitempty"`
	Spot  *string `json:"spot,omitempty"`
}

// ChatPayload carries chat text. For chatFromDriver Name is the sender; for
// chatFromGuard Name is the recipient driver.
type ChatPayload struct {
	Name string `json:"name"`
	Body string `json:"body"`
}

// DriverTypingPayload reports a driver's typing indicator.
type DriverTypingPayload struct {
	Name     string `json:"name"`
	IsTyping *bool  `json:"isTyping"`
}

// ReservationEvent is fired once per successful booking.
type ReservationEvent struct {
	DriverName   string `json:"name"`
	PlazaName    string `json:"plaza"`
	SpotLabel    string `json:"spot"`
	VehicleModel string `json:"model,omitempty"`
}

// ChatMessage is delivered to chat recipients. RecipientName is empty for
// messages addressed to the guard role.
type ChatMessage struct {
	SenderName    string `json:"senderName"`
	Body          string `json:"body"`
	RecipientName string `json:"recipientName,omitempty"`
}

// TypingState is delivered on typingStateChanged. Name is empty when the
// guard is typing.
type TypingState struct {
	Name     string `json:"name,omitempty"`
	IsTyping bool   `json:"isTyping"`
}

// Eviction tells a connection it no longer holds the named identity.
type Eviction struct {
	Name string `json:"name"`
}

// DeliveryFailure tells a guard that a chat could not reach its recipient.
type DeliveryFailure struct {
	RecipientName string `json:"recipientName"`
	Reason        string `json:"reason"`
}

// ProtocolError is sent only to the connection whose frame was rejected.
type ProtocolError struct {
	Code  string `json:"code"`
	Event string `json:"event,omitempty"`
}

func decodeStrict(data json.RawMessage, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return ErrMalformedPayload
	}
	if err := json.Unmarshal(data, v); err != nil {
		return ErrMalformedPayload
	}
	return nil
}

func decodeLogin(data json.RawMessage) (LoginPayload, error) {
	var p LoginPayload
	if err := decodeStrict(data, &p); err != nil {
		return p, err
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return p, ErrMalformedPayload
	}
	return p, nil
}

func decodeChat(data json.RawMessage) (ChatPayload, error) {
	var p ChatPayload
	if err := decodeStrict(data, &p); err != nil {
		return p, err
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" || p.Body == "" {
		return p, ErrMalformedPayload
	}
	return p, nil
}

func decodeDriverTyping(data json.RawMessage) (string, bool, error) {
	var p DriverTypingPayload
	if err := decodeStrict(data, &p); err != nil {
		return "", false, err
	}
	name := strings.TrimSpace(p.Name)
	if name == "" || p.IsTyping == nil {
		return "", false, ErrMalformedPayload
	}
	return name, *p.IsTyping, nil
}

// decodeGuardTyping accepts either a bare boolean or {"isTyping": bool}.
func decodeGuardTyping(data json.RawMessage) (bool, error) {
	if string(bytes.TrimSpace(data)) == "null" {
		return false, ErrMalformedPayload
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		return b, nil
	}
	var p struct {
		IsTyping *bool `json:"isTyping"`
	}
	if err := decodeStrict(data, &p); err != nil {
		return false, err
	}
	if p.IsTyping == nil {
		return false, ErrMalformedPayload
	}
	return *p.IsTyping, nil
}

func decodeReservation(data json.RawMessage) (ReservationEvent, error) {
	var ev ReservationEvent
	if err := decodeStrict(data, &ev); err != nil {
		return ev, err
	}
	ev.DriverName = strings.TrimSpace(ev.DriverName)
	ev.PlazaName = strings.TrimSpace(ev.PlazaName)
	ev.SpotLabel = strings.TrimSpace(ev.SpotLabel)
	if ev.DriverName == "" || ev.PlazaName == "" || ev.SpotLabel == "" {
		return ev, ErrMalformedPayload
	}
	return ev, nil
}
