package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const referralLeadScoreBonus = 10

type ContactRepository struct {
	pool *pgxpool.Pool
}

func NewContactRepository(pool *pgxpool.Pool) *ContactRepository {
	return &ContactRepository{pool: pool}
}

// GetOrCreateByEmail resolves the CRM contact a redemption links to, creating
// a referral-sourced lead when none exists. The insert races are settled by
// the unique constraint on email.
//
// Scoring carries over the site's historical behavior: a brand-new or
// zero-scored lead gets the referral bonus, while an existing non-zero score
// is left untouched.
// TODO: confirm with the owners whether an existing lead's score should gain
// +10 on referral instead of staying as is.
func (r *ContactRepository) GetOrCreateByEmail(ctx context.Context, email, name, phone string) (int64, error) {
	var (
		id    int64
		score int
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, lead_score FROM contacts WHERE email = $1`, email,
	).Scan(&id, &score)
	if err == nil {
		if score == 0 {
			_, err = r.pool.Exec(ctx,
				`UPDATE contacts SET lead_score = $2, updated_at = NOW() WHERE id = $1`,
				id, referralLeadScoreBonus)
			if err != nil {
				return 0, fmt.Errorf("failed to update lead score: %w", err)
			}
		}
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up contact: %w", err)
	}

	var phoneArg *string
	if phone != "" {
		phoneArg = &phone
	}
	err = r.pool.QueryRow(ctx,
		`INSERT INTO contacts (email, name, phone, source, lead_score)
		 VALUES ($1, $2, $3, 'referral', $4)
		 ON CONFLICT (email) DO UPDATE SET updated_at = NOW()
		 RETURNING id`,
		email, name, phoneArg, referralLeadScoreBonus,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create contact: %w", err)
	}
	return id, nil
}
