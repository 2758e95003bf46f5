// Package repository is the MySQL record store for receipts and contact
// messages.  The sentinel errors below let handlers tell "nothing there"
// apart from real database failures.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row.  Handlers should
// translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert collides with an existing row,
// such as a receipt number that was already issued.  Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
