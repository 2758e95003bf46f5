package spotgrid

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/smartpark/internal/realtime"
)

var (
	// ErrNoSelection is returned when Confirm runs before a spot was picked.
	ErrNoSelection = errors.New("select a free spot to reserve")
	// ErrPayment wraps any failure reported by the Payer.
	ErrPayment = errors.New("payment failed")
)

// Driver is the person booking the spot.
type Driver struct {
	Name  string
	Email string
	Plate string
	Model string
	// CardToken is the tokenized card produced by the payment SDK.
	CardToken string
}

// Order is handed to the Payer.
type Order struct {
	Plaza  string
	Spot   string
	Driver Driver
}

// Payer charges the driver for an order.
type Payer interface {
	Pay(ctx context.Context, o Order) error
}

// Announcer publishes presence and reservations on the realtime channel.
type Announcer interface {
	Login(ctx context.Context, p realtime.LoginPayload) error
	NotifyReservation(ctx context.Context, ev realtime.ReservationEvent) error
}

// Checkout confirms the selected spot: pay first, then log in and notify
// the guard. Nothing is announced unless the payment succeeded.
type Checkout struct {
	Grid      *Grid
	Payer     Payer
	Announcer Announcer
}

// Confirm books the grid's current selection at plaza for d. On success the
// selection is cleared and the announced reservation is returned.
func (c *Checkout) Confirm(ctx context.Context, plaza string, d Driver) (realtime.ReservationEvent, error) {
	spot, ok := c.Grid.Selected()
	if !ok {
		return realtime.ReservationEvent{}, ErrNoSelection
	}
	if strings.TrimSpace(d.Name) == "" {
		return realtime.ReservationEvent{}, errors.New("driver name is required")
	}

	if err := c.Payer.Pay(ctx, Order{Plaza: plaza, Spot: spot, Driver: d}); err != nil {
		return realtime.ReservationEvent{}, fmt.Errorf("%w: %w", ErrPayment, err)
	}

	login := realtime.LoginPayload{Name: d.Name, Spot: &spot}
	if d.Plate != "" {
		plate := d.Plate
		login.Plate = &plate
	}
	if err := c.Announcer.Login(ctx, login); err != nil {
		return realtime.ReservationEvent{}, fmt.Errorf("announce login: %w", err)
	}
	ev := realtime.ReservationEvent{
		DriverName:   d.Name,
		PlazaName:    plaza,
		SpotLabel:    spot,
		VehicleModel: d.Model,
	}
	if err := c.Announcer.NotifyReservation(ctx, ev); err != nil {
		return ev, fmt.Errorf("announce reservation: %w", err)
	}
	c.Grid.Clear()
	return ev, nil
}
