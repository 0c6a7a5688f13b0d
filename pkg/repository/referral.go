package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/antonionng/luke-robert-hair-sub001/pkg/models"
)

var (
	ErrCodeNotFound       = errors.New("referral code not found")
	ErrCodeExists         = errors.New("referral code already exists")
	ErrAlreadyRedeemed    = errors.New("referee already redeemed this code")
	ErrMaxUsesReached     = errors.New("referral code has reached its usage cap")
	ErrRedemptionNotFound = errors.New("redemption not found")
)

const pgUniqueViolationCode = "23505"

const codeColumns = `id, code, referrer_name, referrer_email, referrer_phone, status,
	discount_type, discount_value, total_uses, max_uses, expires_at, notes, created_at, updated_at`

type ReferralRepository struct {
	pool *pgxpool.Pool
}

func NewReferralRepository(pool *pgxpool.Pool) *ReferralRepository {
	return &ReferralRepository{pool: pool}
}

func (r *ReferralRepository) Create(ctx context.Context, code *models.ReferralCode) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO referral_codes
			(code, referrer_name, referrer_email, referrer_phone, status,
			 discount_type, discount_value, total_uses, max_uses, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at, updated_at`,
		code.Code, code.ReferrerName, code.ReferrerEmail, code.ReferrerPhone, code.Status,
		code.DiscountType, code.DiscountValue, code.TotalUses, code.MaxUses, code.ExpiresAt,
	).Scan(&code.ID, &code.CreatedAt, &code.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			return ErrCodeExists
		}
		return fmt.Errorf("failed to create referral code: %w", err)
	}
	return nil
}

func (r *ReferralRepository) FindByCode(ctx context.Context, code string) (*models.ReferralCode, error) {
	record, err := r.scanCode(r.pool.QueryRow(ctx,
		`SELECT `+codeColumns+` FROM referral_codes WHERE code = $1`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("failed to get referral code: %w", err)
	}

	r.applyLazyExpiry(record)
	return record, nil
}

func (r *ReferralRepository) FindActiveByReferrerEmail(ctx context.Context, email string) (*models.ReferralCode, error) {
	record, err := r.scanCode(r.pool.QueryRow(ctx,
		`SELECT `+codeColumns+` FROM referral_codes
		 WHERE referrer_email = $1 AND status = 'active'
		   AND (expires_at IS NULL OR expires_at > NOW())
		 ORDER BY created_at DESC LIMIT 1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("failed to get referral code by referrer: %w", err)
	}
	return record, nil
}

func (r *ReferralRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM referral_codes WHERE code = $1)`, code,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check code existence: %w", err)
	}
	return exists, nil
}

func (r *ReferralRepository) ListCodes(ctx context.Context) ([]models.ReferralCode, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+codeColumns+` FROM referral_codes ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list referral codes: %w", err)
	}
	defer rows.Close()

	var codes []models.ReferralCode
	for rows.Next() {
		record, err := r.scanCode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan referral code: %w", err)
		}
		codes = append(codes, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating referral codes: %w", err)
	}
	return codes, nil
}

// IncrementUsage bumps total_uses by one as a single conditional update. The
// ceiling check lives in the WHERE clause, so concurrent redemptions can never
// push the counter past max_uses.
func (r *ReferralRepository) IncrementUsage(ctx context.Context, codeID int64) error {
	return incrementUsage(ctx, r.pool, codeID)
}

func (r *ReferralRepository) UpdateStatus(ctx context.Context, codeID int64, status models.CodeStatus, notes string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE referral_codes
		 SET status = $2, notes = COALESCE(NULLIF($3, ''), notes), updated_at = NOW()
		 WHERE id = $1`,
		codeID, status, notes,
	)
	if err != nil {
		return fmt.Errorf("failed to update code status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCodeNotFound
	}
	return nil
}

// applyLazyExpiry reconciles a stale stored status with expires_at. The
// returned view is authoritative for the caller's decision; the persisted
// transition is best-effort and runs off the request path.
func (r *ReferralRepository) applyLazyExpiry(record *models.ReferralCode) {
	now := time.Now()
	if record.EffectiveStatus(now) != models.CodeStatusExpired || record.Status != models.CodeStatusActive {
		return
	}

	record.Status = models.CodeStatusExpired

	codeID := record.ID
	code := record.Code
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, err := r.pool.Exec(ctx,
			`UPDATE referral_codes SET status = 'expired', updated_at = NOW()
			 WHERE id = $1 AND status = 'active'`, codeID)
		if err != nil {
			logrus.WithField("code", code).WithError(err).Warn("Failed to persist lazy expiry")
		}
	}()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *ReferralRepository) scanCode(row rowScanner) (*models.ReferralCode, error) {
	var record models.ReferralCode
	err := row.Scan(
		&record.ID, &record.Code, &record.ReferrerName, &record.ReferrerEmail,
		&record.ReferrerPhone, &record.Status, &record.DiscountType, &record.DiscountValue,
		&record.TotalUses, &record.MaxUses, &record.ExpiresAt, &record.Notes,
		&record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func incrementUsage(ctx context.Context, q execer, codeID int64) error {
	tag, err := q.Exec(ctx,
		`UPDATE referral_codes
		 SET total_uses = total_uses + 1, updated_at = NOW()
		 WHERE id = $1 AND total_uses < max_uses`,
		codeID,
	)
	if err != nil {
		return fmt.Errorf("failed to increment usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMaxUsesReached
	}
	return nil
}

type RedemptionRepository struct {
	pool *pgxpool.Pool
}

func NewRedemptionRepository(pool *pgxpool.Pool) *RedemptionRepository {
	return &RedemptionRepository{pool: pool}
}

func (r *RedemptionRepository) Exists(ctx context.Context, codeID int64, refereeEmail string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM redemptions WHERE referral_code_id = $1 AND referee_email = $2)`,
		codeID, refereeEmail,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check redemption existence: %w", err)
	}
	return exists, nil
}

// Record persists a redemption and increments the code's usage counter inside
// one transaction. The (referral_code_id, referee_email) unique constraint and
// the conditional increment make the store the final arbiter of the
// already-redeemed and usage-cap rules, whatever the caller checked earlier.
func (r *RedemptionRepository) Record(ctx context.Context, redemption *models.Redemption) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := incrementUsage(ctx, tx, redemption.ReferralCodeID); err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO redemptions
			(id, referral_code_id, referee_name, referee_email, referee_phone,
			 contact_id, booking_id, booking_completed, referee_discount_amount,
			 referrer_credit_amount, redeemed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		redemption.ID, redemption.ReferralCodeID, redemption.RefereeName, redemption.RefereeEmail,
		redemption.RefereePhone, redemption.ContactID, redemption.BookingID, redemption.BookingCompleted,
		redemption.RefereeDiscountAmount, redemption.ReferrerCreditAmount, redemption.RedeemedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			return ErrAlreadyRedeemed
		}
		return fmt.Errorf("failed to insert redemption: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit redemption: %w", err)
	}
	return nil
}

func (r *RedemptionRepository) ListByCode(ctx context.Context, codeID int64) ([]models.Redemption, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, referral_code_id, referee_name, referee_email, referee_phone,
			contact_id, booking_id, booking_completed, referee_discount_amount,
			referrer_credit_amount, redeemed_at
		 FROM redemptions WHERE referral_code_id = $1 ORDER BY redeemed_at DESC`,
		codeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list redemptions: %w", err)
	}
	defer rows.Close()

	var redemptions []models.Redemption
	for rows.Next() {
		var red models.Redemption
		err := rows.Scan(
			&red.ID, &red.ReferralCodeID, &red.RefereeName, &red.RefereeEmail,
			&red.RefereePhone, &red.ContactID, &red.BookingID, &red.BookingCompleted,
			&red.RefereeDiscountAmount, &red.ReferrerCreditAmount, &red.RedeemedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan redemption: %w", err)
		}
		redemptions = append(redemptions, red)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating redemptions: %w", err)
	}
	return redemptions, nil
}

func (r *RedemptionRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE redemptions SET booking_completed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark redemption completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRedemptionNotFound
	}
	return nil
}
