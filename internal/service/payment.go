package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/smartpark/internal/model"
	"github.com/iliyamo/smartpark/internal/payment"
	"github.com/iliyamo/smartpark/internal/queue"
	"github.com/iliyamo/smartpark/internal/receipt"
)

// CheckoutRequest is one monthly rental purchase.
type CheckoutRequest struct {
	PaymentMethodID string
	Name            string
	Email           string
	Plate           string
	Model           string
	Plaza           string
	Spot            string
}

func (r *CheckoutRequest) normalize() error {
	r.PaymentMethodID = strings.TrimSpace(r.PaymentMethodID)
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Plate = strings.ToUpper(strings.TrimSpace(r.Plate))
	r.Model = strings.TrimSpace(r.Model)
	r.Plaza = strings.TrimSpace(r.Plaza)
	r.Spot = strings.TrimSpace(r.Spot)
	if err := required(
		[2]string{"paymentMethodId", r.PaymentMethodID},
		[2]string{"name", r.Name},
		[2]string{"email", r.Email},
		[2]string{"plates", r.Plate},
		[2]string{"model", r.Model},
		[2]string{"plaza", r.Plaza},
		[2]string{"cajon", r.Spot},
	); err != nil {
		return err
	}
	return validEmail(r.Email)
}

func validEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return &ValidationError{Field: "email", Reason: "is not a valid address"}
	}
	return nil
}

// PaymentService charges a rental and records its receipt.
type PaymentService struct {
	charger   payment.Charger
	receipts  ReceiptStore
	publisher EventPublisher
	pricing   receipt.Pricing
	logger    *zap.Logger

	now func() time.Time
}

// NewPaymentService wires the checkout flow.  publisher may be nil, in
// which case no event is emitted.
func NewPaymentService(charger payment.Charger, receipts ReceiptStore, publisher EventPublisher, pricing receipt.Pricing, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		charger:   charger,
		receipts:  receipts,
		publisher: publisher,
		pricing:   pricing,
		logger:    logger.Named("payment"),
		now:       time.Now,
	}
}

// Checkout validates req, charges the receipt total and stores the
// receipt.  Charge failures are returned unchanged so callers can match the
// payment sentinel errors.  A failed publish is logged and ignored.
func (s *PaymentService) Checkout(ctx context.Context, req CheckoutRequest) (model.Receipt, error) {
	if err := req.normalize(); err != nil {
		return model.Receipt{}, err
	}

	rec := receipt.New(receipt.Details{
		Name: req.Name, Email: req.Email, Plate: req.Plate, Model: req.Model, Plaza: req.Plaza, Spot: req.Spot,
	}, s.pricing, s.now())

	res, err := s.charger.Charge(ctx, payment.Charge{
		AmountCents: rec.TotalCents,
		Currency:    s.pricing.Currency,
		Token:       req.PaymentMethodID,
		Email:       req.Email,
		Description: fmt.Sprintf("Renta mensual %s cajón %s", req.Plaza, req.Spot),
		Metadata: map[string]string{
			"name":   req.Name,
			"plates": req.Plate,
			"model":  req.Model,
			"plaza":  req.Plaza,
			"cajon":  req.Spot,
			"number": rec.Number,
		},
		IdempotencyKey: "checkout-" + rec.Number + "-" + receipt.SafeEmail(req.Email),
	})
	if err != nil {
		s.logger.Info("charge failed", zap.String("email", req.Email), zap.String("receipt", rec.Number), zap.Error(err))
		return model.Receipt{}, err
	}
	rec.PaymentRef = &res.ID

	if err := s.receipts.Create(ctx, &rec); err != nil {
		// The card is already charged.
		s.logger.Error("store receipt after charge",
			zap.String("receipt", rec.Number), zap.String("payment_ref", res.ID), zap.Error(err))
		return model.Receipt{}, fmt.Errorf("store receipt: %w", err)
	}
	s.logger.Info("rental paid",
		zap.String("receipt", rec.Number), zap.String("plaza", rec.Plaza), zap.String("spot", rec.Spot),
		zap.Int64("total_cents", rec.TotalCents))

	s.publish(ctx, rec)
	return rec, nil
}

func (s *PaymentService) publish(ctx context.Context, rec model.Receipt) {
	if s.publisher == nil {
		return
	}
	ev := queue.ReservationConfirmedEvent{
		ReceiptID:     rec.ID,
		ReceiptNumber: rec.Number,
		DriverName:    rec.Name,
		Email:         rec.Email,
		Plate:         rec.Plate,
		VehicleModel:  rec.Model,
		Plaza:         rec.Plaza,
		Spot:          rec.Spot,
		TotalCents:    rec.TotalCents,
		ConfirmedAt:   rec.PaidAt.Format(time.RFC3339),
		ExpiresAt:     rec.ExpiresAt().Format(time.RFC3339),
	}
	if rec.PaymentRef != nil {
		ev.PaymentRef = *rec.PaymentRef
	}
	if err := s.publisher.PublishReservationConfirmed(ctx, ev); err != nil {
		s.logger.Warn("reservation event not published", zap.String("receipt", rec.Number), zap.Error(err))
	}
}
