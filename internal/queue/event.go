// Package queue defines message payloads exchanged over the message broker
// and the consumer that records them.
package queue

// ReservationConfirmedEvent is published when a rental payment succeeds and
// its receipt is stored.  It carries enough for downstream consumers to
// log or notify without querying the database.
type ReservationConfirmedEvent struct {
	ReceiptID     uint64 `json:"receipt_id"`
	ReceiptNumber string `json:"receipt_number"`
	DriverName    string `json:"driver_name"`
	Email         string `json:"email"`
	Plate         string `json:"plate"`
	VehicleModel  string `json:"vehicle_model,omitempty"`
	Plaza         string `json:"plaza"`
	Spot          string `json:"spot"`
	TotalCents    int64  `json:"total_cents"`
	PaymentRef    string `json:"payment_ref,omitempty"`
	ConfirmedAt   string `json:"confirmed_at"`
	ExpiresAt     string `json:"expires_at"`
}
