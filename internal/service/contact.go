package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/iliyamo/smartpark/internal/model"
)

const maxContactMessage = 2000

// ContactService accepts messages from the public contact form.
type ContactService struct {
	store  ContactStore
	logger *zap.Logger
}

func NewContactService(store ContactStore, logger *zap.Logger) *ContactService {
	return &ContactService{store: store, logger: logger.Named("contact")}
}

// Submit validates and stores m.  Every field is required.
func (s *ContactService) Submit(ctx context.Context, m *model.ContactMessage) error {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = strings.ToLower(strings.TrimSpace(m.Email))
	m.Phone = strings.TrimSpace(m.Phone)
	m.Message = strings.TrimSpace(m.Message)
	if err := required(
		[2]string{"name", m.Name},
		[2]string{"email", m.Email},
		[2]string{"phone", m.Phone},
		[2]string{"message", m.Message},
	); err != nil {
		return err
	}
	if err := validEmail(m.Email); err != nil {
		return err
	}
	if utf8.RuneCountInString(m.Message) > maxContactMessage {
		return &ValidationError{Field: "message", Reason: "is too long"}
	}
	if err := s.store.Create(ctx, m); err != nil {
		return err
	}
	s.logger.Info("contact message stored", zap.Uint64("id", m.ID))
	return nil
}
