package model

import "time"

// ReceiptValidity is how long a paid monthly rental lasts.
const ReceiptValidity = 30 * 24 * time.Hour

// Receipt records one paid monthly rental of a spot.  It is written after
// the card charge succeeds and is the durable record the driver can look
// up by email.
//
// Fields:
//  ID            – primary key identifier.
//  Number        – printed receipt number ("SP-" + 8 digits).
//  Name, Email   – driver that paid.
//  Plate, Model  – vehicle registered with the rental.
//  Plaza, Spot   – where the spot is.
//  *Cents        – amounts in centavos (MXN).
//  PaymentRef    – payment provider reference, if any.
//  PaidAt        – time the charge succeeded.
type Receipt struct {
	ID            uint64    `json:"id"`
	Number        string    `json:"number"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Plate         string    `json:"plates"`
	Model         string    `json:"model"`
	Plaza         string    `json:"plaza"`
	Spot          string    `json:"spot"`
	SubtotalCents int64     `json:"subtotal_cents"`
	TaxCents      int64     `json:"tax_cents"`
	TotalCents    int64     `json:"total_cents"`
	PaymentRef    *string   `json:"payment_ref,omitempty"`
	PaidAt        time.Time `json:"paid_at"`
}

// ExpiresAt returns the end of the rental period.
func (r Receipt) ExpiresAt() time.Time { return r.PaidAt.Add(ReceiptValidity) }

// Remaining returns the whole days left on the rental at now, rounding up,
// and whether it already expired.
func (r Receipt) Remaining(now time.Time) (days int, expired bool) {
	left := r.ExpiresAt().Sub(now)
	if left <= 0 {
		return 0, true
	}
	days = int(left / (24 * time.Hour))
	if left%(24*time.Hour) != 0 {
		days++
	}
	return days, false
}
