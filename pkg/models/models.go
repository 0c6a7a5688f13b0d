package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CodeStatus string

const (
	CodeStatusActive   CodeStatus = "active"
	CodeStatusExpired  CodeStatus = "expired"
	CodeStatusDisabled CodeStatus = "disabled"
)

// ReferralCode is the persistent record of an issued code. The code string is
// immutable once issued; status, total_uses and notes are the only mutable fields.
type ReferralCode struct {
	ID            int64           `json:"id"`
	Code          string          `json:"code"`
	ReferrerName  string          `json:"referrer_name"`
	ReferrerEmail string          `json:"referrer_email"`
	ReferrerPhone *string         `json:"referrer_phone,omitempty"`
	Status        CodeStatus      `json:"status"`
	DiscountType  DiscountType    `json:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	TotalUses     int             `json:"total_uses"`
	MaxUses       int             `json:"max_uses"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
	Notes         *string         `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// EffectiveStatus derives the status as of now. The stored status field is a
// cache of this computation; expires_at always wins over a stale "active".
func (c *ReferralCode) EffectiveStatus(now time.Time) CodeStatus {
	if c.Status == CodeStatusActive && c.ExpiresAt != nil && c.ExpiresAt.Before(now) {
		return CodeStatusExpired
	}
	return c.Status
}

func (c *ReferralCode) Discount() Discount {
	if c.DiscountType == DiscountTypePercentage {
		return PercentageDiscount{Percent: c.DiscountValue}
	}
	return FixedDiscount{Amount: c.DiscountValue}
}

func (c *ReferralCode) RemainingUses() int {
	if remaining := c.MaxUses - c.TotalUses; remaining > 0 {
		return remaining
	}
	return 0
}

// Redemption records one referee's use of one code. Immutable after creation
// except for booking_completed, which the booking-completion workflow flips.
type Redemption struct {
	ID                    uuid.UUID        `json:"id"`
	ReferralCodeID        int64            `json:"referral_code_id"`
	RefereeName           string           `json:"referee_name"`
	RefereeEmail          string           `json:"referee_email"`
	RefereePhone          *string          `json:"referee_phone,omitempty"`
	ContactID             *int64           `json:"contact_id,omitempty"`
	BookingID             *string          `json:"booking_id,omitempty"`
	BookingCompleted      bool             `json:"booking_completed"`
	RefereeDiscountAmount *decimal.Decimal `json:"referee_discount_amount,omitempty"`
	ReferrerCreditAmount  *decimal.Decimal `json:"referrer_credit_amount,omitempty"`
	RedeemedAt            time.Time        `json:"redeemed_at"`
}

// Contact is the CRM lead record a redemption is linked to.
type Contact struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone,omitempty"`
	Source    string    `json:"source"`
	LeadScore int       `json:"lead_score"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CodeStats is the per-code reporting view, recomputed on demand from the code
// row and its redemptions.
type CodeStats struct {
	Code               string          `json:"code"`
	ReferrerName       string          `json:"referrer_name"`
	TotalUses          int             `json:"total_uses"`
	MaxUses            int             `json:"max_uses"`
	RemainingUses      int             `json:"remaining_uses"`
	TotalRedemptions   int             `json:"total_redemptions"`
	CompletedBookings  int             `json:"completed_bookings"`
	PendingBookings    int             `json:"pending_bookings"`
	TotalCreditsEarned decimal.Decimal `json:"total_credits_earned"`
	ConversionRate     int             `json:"conversion_rate"`
}

type RecentRedemption struct {
	RefereeName      string    `json:"referee_name"`
	RedeemedAt       time.Time `json:"redeemed_at"`
	BookingCompleted bool      `json:"booking_completed"`
}

type Leaderboard struct {
	Entries               []CodeStats     `json:"entries"`
	TotalDiscountsGiven   decimal.Decimal `json:"total_discounts_given"`
	OverallConversionRate int             `json:"overall_conversion_rate"`
}
