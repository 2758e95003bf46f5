package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/smartpark/internal/model"
	"github.com/iliyamo/smartpark/internal/receipt"
	"github.com/iliyamo/smartpark/internal/repository"
)

// ReceiptService renders, archives and mails receipts and answers lookups.
type ReceiptService struct {
	store   ReceiptStore
	archive receipt.Archive
	mailer  receipt.Mailer
	pricing receipt.Pricing
	logger  *zap.Logger

	now func() time.Time
}

func NewReceiptService(store ReceiptStore, archive receipt.Archive, mailer receipt.Mailer, pricing receipt.Pricing, logger *zap.Logger) *ReceiptService {
	return &ReceiptService{
		store:   store,
		archive: archive,
		mailer:  mailer,
		pricing: pricing,
		logger:  logger.Named("receipt"),
		now:     time.Now,
	}
}

// Send delivers the receipt for a rental.  The stored receipt from the
// checkout is reused when the latest one for the address covers the same
// plaza and spot and has not expired; otherwise a new receipt is recorded.
func (s *ReceiptService) Send(ctx context.Context, d receipt.Details) (model.Receipt, error) {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.Plate = strings.ToUpper(strings.TrimSpace(d.Plate))
	d.Model = strings.TrimSpace(d.Model)
	d.Plaza = strings.TrimSpace(d.Plaza)
	d.Spot = strings.TrimSpace(d.Spot)
	if err := required(
		[2]string{"name", d.Name},
		[2]string{"email", d.Email},
		[2]string{"plates", d.Plate},
		[2]string{"plaza", d.Plaza},
		[2]string{"cajon", d.Spot},
	); err != nil {
		return model.Receipt{}, err
	}
	if err := validEmail(d.Email); err != nil {
		return model.Receipt{}, err
	}

	now := s.now()
	rec, err := s.reusable(ctx, d, now)
	if err != nil {
		return model.Receipt{}, err
	}
	if rec == nil {
		fresh := receipt.New(d, s.pricing, now)
		if err := s.store.Create(ctx, &fresh); err != nil {
			return model.Receipt{}, fmt.Errorf("store receipt: %w", err)
		}
		rec = &fresh
	}

	doc, err := receipt.Render(*rec)
	if err != nil {
		return model.Receipt{}, fmt.Errorf("render receipt: %w", err)
	}
	name := receipt.FileName(*rec)
	if err := s.archive.Put(ctx, name, doc, receipt.ContentType); err != nil {
		return model.Receipt{}, fmt.Errorf("archive receipt: %w", err)
	}
	err = s.mailer.Send(ctx, receipt.Message{
		To:      rec.Email,
		Subject: "Tu recibo de SmartPark " + rec.Number,
		Text: fmt.Sprintf("Hola %s,\n\nGracias por rentar el cajón %s en %s. Adjuntamos tu recibo por %s.\n\nSmartPark",
			rec.Name, rec.Spot, rec.Plaza, receipt.FormatMoney(rec.TotalCents)),
		Attachment: &receipt.Attachment{Name: name, ContentType: receipt.ContentType, Body: doc},
	})
	if err != nil {
		return model.Receipt{}, fmt.Errorf("mail receipt: %w", err)
	}
	s.logger.Info("receipt sent", zap.String("receipt", rec.Number), zap.String("email", rec.Email))
	return *rec, nil
}

func (s *ReceiptService) reusable(ctx context.Context, d receipt.Details, now time.Time) (*model.Receipt, error) {
	rec, err := s.store.LatestByEmail(ctx, d.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if rec.Plaza != d.Plaza || rec.Spot != d.Spot {
		return nil, nil
	}
	if _, expired := rec.Remaining(now); expired {
		return nil, nil
	}
	return rec, nil
}

// Latest returns the newest receipt for email, or repository.ErrNotFound.
func (s *ReceiptService) Latest(ctx context.Context, email string) (*model.Receipt, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, &ValidationError{Field: "email"}
	}
	return s.store.LatestByEmail(ctx, email)
}

// List returns every receipt, newest first.
func (s *ReceiptService) List(ctx context.Context) ([]model.Receipt, error) {
	return s.store.List(ctx, 0)
}

// Exists reports whether any receipt document was archived for email.
func (s *ReceiptService) Exists(ctx context.Context, email string) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return false, &ValidationError{Field: "email"}
	}
	return s.archive.HasPrefix(ctx, receipt.EmailPrefix(email))
}
