package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/smartpark/internal/model"
)

// ReceiptStore is the durable record of paid rentals.
// *repository.ReceiptRepo satisfies it.
type ReceiptStore interface {
	Create(ctx context.Context, rec *model.Receipt) error
	LatestByEmail(ctx context.Context, email string) (*model.Receipt, error)
	List(ctx context.Context, limit int) ([]model.Receipt, error)
}

// ContactStore keeps contact form messages.
type ContactStore interface {
	Create(ctx context.Context, m *model.ContactMessage) error
}

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s is required", e.Field)
	}
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func required(fields ...[2]string) error {
	for _, f := range fields {
		if f[1] == "" {
			return &ValidationError{Field: f[0]}
		}
	}
	return nil
}
