package referral

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/antonionng/luke-robert-hair-sub001/pkg/models"
	"github.com/antonionng/luke-robert-hair-sub001/pkg/repository"
)

// Admission is a successful validation outcome: the resolved code and its
// discount terms.
type Admission struct {
	Code     *models.ReferralCode
	Discount models.Discount
}

func (a *Admission) Terms() models.DiscountTerms {
	return models.DiscountTerms{
		Type:      a.Discount.Type(),
		Value:     a.Discount.Value(),
		Formatted: a.Discount.Formatted(),
	}
}

// Validator decides whether a referee may redeem a code. It performs no
// writes, so it is safe for live validate-as-you-type calls.
type Validator struct {
	registry    Registry
	redemptions RedemptionStore
}

func NewValidator(registry Registry, redemptions RedemptionStore) *Validator {
	return &Validator{registry: registry, redemptions: redemptions}
}

// Validate runs the admission checks in their fixed order; the first failing
// check decides the rejection reason.
func (v *Validator) Validate(ctx context.Context, code, refereeEmail string) (*Admission, error) {
	code = NormalizeCode(code)
	refereeEmail = NormalizeEmail(refereeEmail)

	record, err := v.registry.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			return nil, Reject(ReasonInvalidCode)
		}
		return nil, fmt.Errorf("failed to look up referral code: %w", err)
	}

	// The stored status is only a cache; expires_at decides.
	switch record.EffectiveStatus(time.Now()) {
	case models.CodeStatusActive:
	case models.CodeStatusExpired:
		return nil, Reject(ReasonExpired)
	case models.CodeStatusDisabled:
		return nil, Reject(ReasonDisabled)
	default:
		return nil, Reject(ReasonInactive)
	}

	if record.TotalUses >= record.MaxUses {
		return nil, Reject(ReasonMaxUsesReached)
	}

	if NormalizeEmail(record.ReferrerEmail) == refereeEmail {
		return nil, Reject(ReasonSelfReferral)
	}

	redeemed, err := v.redemptions.Exists(ctx, record.ID, refereeEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to check prior redemptions: %w", err)
	}
	if redeemed {
		return nil, Reject(ReasonAlreadyRedeemed)
	}

	return &Admission{Code: record, Discount: record.Discount()}, nil
}
