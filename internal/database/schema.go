package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied at startup. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS receipts (
		id             BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		number         VARCHAR(16)  NOT NULL,
		name           VARCHAR(120) NOT NULL,
		email          VARCHAR(255) NOT NULL,
		plate          VARCHAR(20)  NOT NULL,
		model          VARCHAR(80)  NOT NULL,
		plaza          VARCHAR(120) NOT NULL DEFAULT '',
		spot           VARCHAR(16)  NOT NULL DEFAULT '',
		subtotal_cents BIGINT       NOT NULL,
		tax_cents      BIGINT       NOT NULL,
		total_cents    BIGINT       NOT NULL,
		payment_ref    VARCHAR(255) NULL,
		paid_at        DATETIME(3)  NOT NULL,
		UNIQUE KEY uq_receipts_number (number),
		KEY idx_receipts_email_paid (email, paid_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS contact_messages (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name       VARCHAR(120) NOT NULL,
		email      VARCHAR(255) NOT NULL,
		phone      VARCHAR(40)  NOT NULL,
		message    TEXT         NOT NULL,
		created_at DATETIME(3)  NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the tables the service needs if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
