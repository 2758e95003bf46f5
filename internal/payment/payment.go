// Package payment captures card payments for spot rentals.
package payment

import (
	"context"
	"errors"
)

var (
	// ErrCardDeclined means the card was refused; the driver should try
	// another one.
	ErrCardDeclined = errors.New("card declined")
	// ErrInvalidRequest means the charge parameters were rejected.
	ErrInvalidRequest = errors.New("invalid payment request")
	// ErrNotSucceeded means the provider accepted the request but the
	// charge did not complete.
	ErrNotSucceeded = errors.New("payment did not succeed")
	// ErrProvider covers provider outages, connectivity and auth problems.
	ErrProvider = errors.New("payment provider error")
	// ErrNotConfigured is returned when no provider key is set.
	ErrNotConfigured = errors.New("payments are not configured")
)

// Charge describes one card charge.
type Charge struct {
	AmountCents int64
	Currency    string
	// Token is the tokenized payment method produced by the mobile SDK.
	Token       string
	Email       string
	Description string
	Metadata    map[string]string
	// IdempotencyKey makes retries of the same checkout safe.
	IdempotencyKey string
}

// Result identifies a completed charge.
type Result struct {
	ID     string
	Status string
}

// Charger is the external payment collaborator.
type Charger interface {
	Charge(ctx context.Context, c Charge) (Result, error)
}

// Unconfigured rejects every charge with ErrNotConfigured.
type Unconfigured struct{}

func (Unconfigured) Charge(context.Context, Charge) (Result, error) {
	return Result{}, ErrNotConfigured
}
