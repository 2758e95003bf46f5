package model

import "time"

// ContactMessage is a message left through the public contact form.
type ContactMessage struct {
	ID        uint64    `json:"id"`         // contact_messages.id
	Name      string    `json:"name"`       // contact_messages.name
	Email     string    `json:"email"`      // contact_messages.email
	Phone     string    `json:"phone"`      // contact_messages.phone
	Message   string    `json:"message"`    // contact_messages.message
	CreatedAt time.Time `json:"created_at"` // contact_messages.created_at
}
