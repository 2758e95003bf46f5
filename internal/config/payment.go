package config

import "github.com/iliyamo/smartpark/internal/receipt"

// PaymentConfig holds the Stripe key and the rental price.
type PaymentConfig struct {
	StripeSecretKey string
	Pricing         receipt.Pricing
}

// LoadPaymentConfig reads STRIPE_SECRET_KEY, RENT_SUBTOTAL_CENTS,
// RENT_TAX_BASIS_POINTS and RENT_CURRENCY.
func LoadPaymentConfig() PaymentConfig {
	def := receipt.DefaultPricing()
	return PaymentConfig{
		StripeSecretKey: getenv("STRIPE_SECRET_KEY", ""),
		Pricing: receipt.Pricing{
			SubtotalCents:  int64(envInt("RENT_SUBTOTAL_CENTS", int(def.SubtotalCents))),
			TaxBasisPoints: int64(envInt("RENT_TAX_BASIS_POINTS", int(def.TaxBasisPoints))),
			Currency:       getenv("RENT_CURRENCY", def.Currency),
		},
	}
}
