package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS contacts (
			id SERIAL PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			name VARCHAR(255) NOT NULL,
			phone VARCHAR(50),
			source VARCHAR(50) NOT NULL DEFAULT 'referral',
			lead_score INT NOT NULL DEFAULT 0,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create contacts table: %w", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS referral_codes (
			id SERIAL PRIMARY KEY,
			code VARCHAR(50) UNIQUE NOT NULL,
			referrer_name VARCHAR(255) NOT NULL,
			referrer_email VARCHAR(255) NOT NULL,
			referrer_phone VARCHAR(50),
			status VARCHAR(20) NOT NULL DEFAULT 'active'
				CHECK (status IN ('active', 'expired', 'disabled')),
			discount_type VARCHAR(20) NOT NULL DEFAULT 'fixed'
				CHECK (discount_type IN ('fixed', 'percentage')),
			discount_value NUMERIC(10,2) NOT NULL,
			total_uses INT NOT NULL DEFAULT 0,
			max_uses INT NOT NULL,
			expires_at TIMESTAMP WITH TIME ZONE,
			notes TEXT,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			CHECK (total_uses >= 0 AND total_uses <= max_uses)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create referral_codes table: %w", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS redemptions (
			id UUID PRIMARY KEY,
			referral_code_id INT NOT NULL REFERENCES referral_codes(id),
			referee_name VARCHAR(255) NOT NULL,
			referee_email VARCHAR(255) NOT NULL,
			referee_phone VARCHAR(50),
			contact_id INT REFERENCES contacts(id),
			booking_id VARCHAR(255),
			booking_completed BOOLEAN NOT NULL DEFAULT FALSE,
			referee_discount_amount NUMERIC(10,2),
			referrer_credit_amount NUMERIC(10,2),
			redeemed_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(referral_code_id, referee_email)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create redemptions table: %w", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS idx_referral_codes_referrer_email
			ON referral_codes(referrer_email)
	`)
	if err != nil {
		return fmt.Errorf("failed to create referrer email index: %w", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS idx_redemptions_referral_code_id
			ON redemptions(referral_code_id)
	`)
	if err != nil {
		return fmt.Errorf("failed to create redemptions index: %w", err)
	}

	return nil
}
