package database

import (
	"context"
	"database/sql"
)

// schema contains the CREATE TABLE statements for the booking platform.
// All DATETIME columns hold UTC instants (the DSN pins loc=UTC).  The
// unique key on slots.start_at is the store-level idempotency guard for
// slot generation: re-running maintenance can never create a second
// slot at the same start instant.  bookings.slot_id intentionally has
// no cascade so a slot can never be deleted out from under its history.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS members (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(120) NULL,
		email VARCHAR(255) NOT NULL,
		password_hash VARCHAR(100) NULL,
		credits INT NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_members_email (email)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS slots (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		start_at DATETIME NOT NULL,
		end_at DATETIME NOT NULL,
		is_booked TINYINT(1) NOT NULL DEFAULT 0,
		location VARCHAR(120) NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_slots_start (start_at)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		member_id BIGINT UNSIGNED NOT NULL,
		slot_id BIGINT UNSIGNED NOT NULL,
		notes TEXT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		cancelled_at DATETIME NULL,
		refunded TINYINT(1) NOT NULL DEFAULT 0,
		KEY idx_bookings_member (member_id),
		KEY idx_bookings_slot (slot_id),
		CONSTRAINT fk_bookings_member FOREIGN KEY (member_id) REFERENCES members(id) ON DELETE CASCADE,
		CONSTRAINT fk_bookings_slot FOREIGN KEY (slot_id) REFERENCES slots(id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS holidays (
		day CHAR(10) PRIMARY KEY,
		note VARCHAR(255) NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS invites (
		id CHAR(48) PRIMARY KEY,
		member_id BIGINT UNSIGNED NOT NULL,
		expires_at DATETIME NOT NULL,
		used TINYINT(1) NOT NULL DEFAULT 0,
		CONSTRAINT fk_invites_member FOREIGN KEY (member_id) REFERENCES members(id) ON DELETE CASCADE
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		member_id BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_refresh_hash (token_hash),
		CONSTRAINT fk_refresh_member FOREIGN KEY (member_id) REFERENCES members(id) ON DELETE CASCADE
	) ENGINE=InnoDB`,
}

// EnsureSchema creates any missing tables.  It is safe to call on every
// startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
