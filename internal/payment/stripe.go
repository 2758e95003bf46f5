package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

// StripeCharger confirms a PaymentIntent in a single call.
type StripeCharger struct {
	api    *client.API
	logger *zap.Logger
}

// NewStripeCharger builds a charger for secretKey.  An empty key yields
// Unconfigured so the server can still start in development.
func NewStripeCharger(secretKey string, logger *zap.Logger) Charger {
	if strings.TrimSpace(secretKey) == "" {
		return Unconfigured{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StripeCharger{api: client.New(secretKey, nil), logger: logger.Named("stripe")}
}

// Charge creates and confirms a PaymentIntent.  Redirect-based methods are
// disabled because the mobile client cannot complete them.
func (s *StripeCharger) Charge(ctx context.Context, c Charge) (Result, error) {
	currency := strings.ToLower(c.Currency)
	if currency == "" {
		currency = string(stripe.CurrencyMXN)
	}
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(c.AmountCents),
		Currency:      stripe.String(currency),
		PaymentMethod: stripe.String(c.Token),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	if c.Email != "" {
		params.ReceiptEmail = stripe.String(c.Email)
	}
	if c.Description != "" {
		params.Description = stripe.String(c.Description)
	}
	for k, v := range c.Metadata {
		params.AddMetadata(k, v)
	}
	if c.IdempotencyKey != "" {
		params.SetIdempotencyKey(c.IdempotencyKey)
	}
	params.Context = ctx

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		mapped := classify(err)
		s.logger.Warn("payment intent failed", zap.Error(err), zap.NamedError("class", mapped))
		return Result{}, mapped
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return Result{ID: pi.ID, Status: string(pi.Status)}, fmt.Errorf("%w: status %s", ErrNotSucceeded, pi.Status)
	}
	return Result{ID: pi.ID, Status: string(pi.Status)}, nil
}

// classify maps a stripe error onto the package sentinels, keeping the
// provider message for the caller.
func classify(err error) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}
	msg := se.Msg
	if msg == "" {
		msg = string(se.Code)
	}
	switch {
	case se.Type == stripe.ErrorTypeCard:
		return fmt.Errorf("%w: %s", ErrCardDeclined, msg)
	case se.HTTPStatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: authentication: %s", ErrProvider, msg)
	case se.Type == stripe.ErrorTypeInvalidRequest:
		return fmt.Errorf("%w: %s", ErrInvalidRequest, msg)
	default:
		return fmt.Errorf("%w: %s", ErrProvider, msg)
	}
}
