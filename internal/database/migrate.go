package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// Migrations returns the DDL of the booking schema in dependency order.
// Every statement is idempotent.
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS classes (
            id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
            seller_id BIGINT UNSIGNED NOT NULL,
            name VARCHAR(200) NOT NULL,
            price_points BIGINT NOT NULL,
            capacity INT NOT NULL,
            schedule TEXT NULL,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
            KEY idx_classes_seller (seller_id),
            CHECK (price_points >= 0),
            CHECK (capacity > 0)
        ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS class_slots (
            id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
            class_id BIGINT UNSIGNED NOT NULL,
            start_at DATETIME NOT NULL,
            end_at DATETIME NOT NULL,
            capacity INT NOT NULL,
            current_reservation INT NOT NULL DEFAULT 0,
            is_open TINYINT(1) NOT NULL DEFAULT 1,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            UNIQUE KEY uq_slot_start (class_id, start_at),
            CONSTRAINT fk_slot_class FOREIGN KEY (class_id) REFERENCES classes (id),
            CHECK (current_reservation >= 0)
        ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS coupon_templates (
            id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
            seller_id BIGINT UNSIGNED NOT NULL,
            name VARCHAR(200) NOT NULL,
            discount_points BIGINT NOT NULL DEFAULT 0,
            discount_percent INT NOT NULL DEFAULT 0,
            expires_at DATETIME NULL,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            KEY idx_coupon_templates_seller (seller_id)
        ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS user_coupons (
            id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
            template_id BIGINT UNSIGNED NOT NULL,
            user_id BIGINT UNSIGNED NOT NULL,
            issued_at DATETIME NOT NULL,
            used_at DATETIME NULL,
            KEY idx_user_coupons_user (user_id),
            CONSTRAINT fk_user_coupon_template FOREIGN KEY (template_id) REFERENCES coupon_templates (id)
        ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS reservations (
            id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
            user_id BIGINT UNSIGNED NOT NULL,
            class_id BIGINT UNSIGNED NOT NULL,
            slot_id BIGINT UNSIGNED NOT NULL,
            status ENUM('PENDING','BOOKED','CONFIRMED','CANCELED','COMPLETED') NOT NULL,
            price_points BIGINT NOT NULL,
            coupon_discount_points BIGINT NOT NULL DEFAULT 0,
            points_used BIGINT NOT NULL DEFAULT 0,
            paid_points BIGINT NOT NULL DEFAULT 0,
            user_coupon_id BIGINT UNSIGNED NULL,
            order_id VARCHAR(64) NOT NULL,
            payment_ref VARCHAR(128) NULL,
            created_at DATETIME NOT NULL,
            canceled_at DATETIME NULL,
            completed_at DATETIME NULL,
            active_slot_id BIGINT UNSIGNED AS (IF(status IN ('PENDING','BOOKED','CONFIRMED'), slot_id, NULL)) STORED,
            UNIQUE KEY uq_reservation_order (order_id),
            UNIQUE KEY uq_reservation_active (user_id, active_slot_id),
            KEY idx_reservations_slot (slot_id),
            CONSTRAINT fk_reservation_slot FOREIGN KEY (slot_id) REFERENCES class_slots (id),
            CHECK (paid_points >= 0)
        ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS point_balances (
            user_id BIGINT UNSIGNED PRIMARY KEY,
            balance BIGINT NOT NULL DEFAULT 0,
            CHECK (balance >= 0)
        ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS point_ledger (
            id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
            user_id BIGINT UNSIGNED NOT NULL,
            type ENUM('CHARGE','USE','REFUND','ADMIN') NOT NULL,
            amount BIGINT NOT NULL,
            balance_before BIGINT NOT NULL,
            balance_after BIGINT NOT NULL,
            reservation_id BIGINT UNSIGNED NULL,
            memo VARCHAR(255) NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL,
            KEY idx_point_ledger_user (user_id, id),
            CHECK (balance_after = balance_before + amount),
            CHECK (balance_after >= 0)
        ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	}
}

// Migrate applies Migrations in order and stops at the first failure.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range Migrations() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	log.Printf("database: applied %d migrations", len(Migrations()))
	return nil
}
