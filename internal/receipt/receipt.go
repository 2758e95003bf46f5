// Package receipt builds, renders, archives and mails rental receipts.
package receipt

import (
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/smartpark/internal/model"
)

// Pricing is the monthly rent and tax applied to every rental.
type Pricing struct {
	SubtotalCents int64
	// TaxBasisPoints is the tax rate in hundredths of a percent (1600 = 16%).
	TaxBasisPoints int64
	Currency       string
}

// DefaultPricing is $600.00 MXN plus 16% IVA.
func DefaultPricing() Pricing {
	return Pricing{SubtotalCents: 60000, TaxBasisPoints: 1600, Currency: "mxn"}
}

// TaxCents rounds half up to the nearest cent.
func (p Pricing) TaxCents() int64 {
	return (p.SubtotalCents*p.TaxBasisPoints + 5000) / 10000
}

// TotalCents is subtotal plus tax; it is also the amount charged.
func (p Pricing) TotalCents() int64 { return p.SubtotalCents + p.TaxCents() }

// Number formats a receipt number as "SP-" followed by the last eight
// digits of the Unix millisecond timestamp.
func Number(t time.Time) string {
	return fmt.Sprintf("SP-%08d", t.UnixMilli()%100_000_000)
}

// Details are the driver-supplied fields of a receipt.
type Details struct {
	Name  string
	Email string
	Plate string
	Model string
	Plaza string
	Spot  string
}

// New assembles a receipt paid at now.
func New(d Details, p Pricing, now time.Time) model.Receipt {
	return model.Receipt{
		Number:        Number(now),
		Name:          d.Name,
		Email:         strings.ToLower(strings.TrimSpace(d.Email)),
		Plate:         d.Plate,
		Model:         d.Model,
		Plaza:         d.Plaza,
		Spot:          d.Spot,
		SubtotalCents: p.SubtotalCents,
		TaxCents:      p.TaxCents(),
		TotalCents:    p.TotalCents(),
		PaidAt:        now.UTC(),
	}
}

// FormatMoney renders cents as "$696.00".
func FormatMoney(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

// SafeEmail turns an address into a file-name fragment by replacing '@'
// and '.' with '_'.
func SafeEmail(email string) string {
	return strings.NewReplacer("@", "_", ".", "_").Replace(strings.ToLower(strings.TrimSpace(email)))
}

// FileName is the archive name of a receipt document.
func FileName(r model.Receipt) string {
	return fmt.Sprintf("recibo_%s_%d.pdf", SafeEmail(r.Email), r.PaidAt.UnixMilli())
}

// EmailPrefix matches every archived receipt of email.
func EmailPrefix(email string) string {
	return "recibo_" + SafeEmail(email) + "_"
}
