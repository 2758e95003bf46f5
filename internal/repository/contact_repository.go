package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/smartpark/internal/model"
)

// ContactRepo stores messages from the contact form.
type ContactRepo struct {
	db *sql.DB
}

// NewContactRepo returns a new ContactRepo bound to the given database.
func NewContactRepo(db *sql.DB) *ContactRepo { return &ContactRepo{db: db} }

// Create inserts m and fills in its ID and creation time.
func (r *ContactRepo) Create(ctx context.Context, m *model.ContactMessage) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO contact_messages (name, email, phone, message, created_at) VALUES (?, ?, ?, ?, ?)`,
		strings.TrimSpace(m.Name), strings.ToLower(strings.TrimSpace(m.Email)), strings.TrimSpace(m.Phone), m.Message, m.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}
