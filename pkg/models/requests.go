package models

import "github.com/shopspring/decimal"

type GenerateCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
}

type ValidateCodeRequest struct {
	Code  string `json:"code" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

type ApplyCodeRequest struct {
	Code      string `json:"code" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Name      string `json:"name" binding:"required"`
	Phone     string `json:"phone"`
	BookingID string `json:"booking_id"`
}

type UpdateCodeStatusRequest struct {
	Status CodeStatus `json:"status" binding:"required,oneof=active expired disabled"`
	Notes  string     `json:"notes"`
}

type GenerateCodeResponse struct {
	Code      string `json:"code"`
	ShareURL  string `json:"share_url"`
	ShareText string `json:"share_text"`
}

type DiscountTerms struct {
	Type      DiscountType    `json:"type"`
	Value     decimal.Decimal `json:"value"`
	Formatted string          `json:"formatted"`
}

type ValidateCodeResponse struct {
	Valid        bool           `json:"valid"`
	Discount     *DiscountTerms `json:"discount,omitempty"`
	Message      string         `json:"message"`
	ReferralCode string         `json:"referral_code,omitempty"`
}

type ApplyCodeResponse struct {
	Success      bool            `json:"success"`
	RedemptionID string          `json:"redemption_id"`
	Discount     AppliedDiscount `json:"discount"`
}

type AppliedDiscount struct {
	// Amount is null for percentage discounts until a booking price resolves it.
	Amount *decimal.Decimal `json:"amount"`
	Type   DiscountType     `json:"type"`
}

type StatsResponse struct {
	Success           bool               `json:"success"`
	Stats             CodeStats          `json:"stats"`
	RecentRedemptions []RecentRedemption `json:"recent_redemptions"`
}
