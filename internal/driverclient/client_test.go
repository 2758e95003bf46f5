package driverclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/iliyamo/smartpark/internal/realtime"
	"github.com/iliyamo/smartpark/internal/spotgrid"
)

func hubServer(t *testing.T) (*realtime.Hub, string) {
	t.Helper()
	hub := realtime.NewHub(zap.NewNop(), nil, realtime.DefaultOptions())
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := realtime.ParseRole(r.URL.Query().Get("role"))
		if !ok {
			http.Error(w, "bad role", http.StatusBadRequest)
			return
		}
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Attach(conn, role)
	}))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestCheckoutAnnouncesOverWebsocket(t *testing.T) {
	hub, url := hubServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	guard, err := Dial(ctx, url, Options{Role: "guard"})
	if err != nil {
		t.Fatal(err)
	}
	defer guard.Close()
	driver, err := Dial(ctx, url, Options{Role: "driver"})
	if err != nil {
		t.Fatal(err)
	}
	defer driver.Close()

	if _, err := driver.Next(ctx, realtime.EventOccupancySnapshot); err != nil {
		t.Fatal(err)
	}

	grid := spotgrid.New(spotgrid.DefaultLayout())
	if err := grid.Select("14"); err != nil {
		t.Fatal(err)
	}
	co := spotgrid.Checkout{Grid: grid, Payer: payFunc(func(context.Context, spotgrid.Order) error { return nil }), Announcer: driver}
	if _, err := co.Confirm(ctx, "Plaza Rio", spotgrid.Driver{Name: "Ana", Plate: "ABC-123", Model: "Versa"}); err != nil {
		t.Fatal(err)
	}

	env, err := guard.Next(ctx, realtime.EventReservationBroadcast)
	if err != nil {
		t.Fatal(err)
	}
	ev, err := Decode[realtime.ReservationEvent](env)
	if err != nil {
		t.Fatal(err)
	}
	want := realtime.ReservationEvent{DriverName: "Ana", PlazaName: "Plaza Rio", SpotLabel: "14", VehicleModel: "Versa"}
	if ev != want {
		t.Fatalf("reservation = %+v", ev)
	}
	id, ok := hub.Lookup("Ana")
	if !ok || id.Spot != "14" || id.Plate != "ABC-123" {
		t.Fatalf("identity = %+v, %v", id, ok)
	}
}

func TestNextAfterClose(t *testing.T) {
	_, url := hubServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, url, Options{})
	if err != nil {
		t.Fatal(err)
	}
	c.Close()
	c.Close()
	if _, err := c.Next(ctx, realtime.EventChatDelivered); !errors.Is(err, ErrClosed) {
		t.Fatalf("Next after close = %v", err)
	}
	if err := c.Login(ctx, realtime.LoginPayload{Name: "Ana"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Login after close = %v", err)
	}
}

type payFunc func(context.Context, spotgrid.Order) error

func (f payFunc) Pay(ctx context.Context, o spotgrid.Order) error { return f(ctx, o) }

func TestAPIPay(t *testing.T) {
	var got payRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pagos" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)
		if got.PaymentMethodID == "pm_card_chargeDeclined" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusPaymentRequired)
			w.Write([]byte(`{"error":"Your card was declined."}`))
			return
		}
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	api := NewAPI(srv.URL + "/")
	order := spotgrid.Order{Plaza: "Plaza Rio", Spot: "14", Driver: spotgrid.Driver{
		Name: "Ana", Email: "ana@mail.com", Plate: "ABC-123", Model: "Versa", CardToken: "pm_card_visa",
	}}
	if err := api.Pay(context.Background(), order); err != nil {
		t.Fatal(err)
	}
	if got.Cajon != "14" || got.Plates != "ABC-123" || got.PaymentMethodID != "pm_card_visa" {
		t.Fatalf("request = %+v", got)
	}

	order.Driver.CardToken = "pm_card_chargeDeclined"
	err := api.Pay(context.Background(), order)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusPaymentRequired || apiErr.Message != "Your card was declined." {
		t.Fatalf("err = %v", err)
	}
}
