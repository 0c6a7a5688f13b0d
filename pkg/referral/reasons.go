package referral

import "errors"

// Reason identifies a business-rule rejection of a redemption attempt. These
// are expected, frequent outcomes surfaced to the customer, never server errors.
type Reason string

const (
	ReasonInvalidCode     Reason = "invalid_code"
	ReasonInactive        Reason = "inactive"
	ReasonExpired         Reason = "expired"
	ReasonDisabled        Reason = "disabled"
	ReasonMaxUsesReached  Reason = "max_uses_reached"
	ReasonSelfReferral    Reason = "self_referral"
	ReasonAlreadyRedeemed Reason = "already_redeemed"
)

// Rejection wraps a Reason as an error so it can travel through normal error
// returns while remaining distinguishable from persistence failures.
type Rejection struct {
	Reason Reason
}

func (r *Rejection) Error() string {
	return string(r.Reason)
}

// Message is the customer-facing copy for the rejection.
func (r *Rejection) Message() string {
	switch r.Reason {
	case ReasonInvalidCode:
		return "That referral code doesn't look right. Please double-check it."
	case ReasonExpired:
		return "This referral code has expired."
	case ReasonDisabled:
		return "This referral code is no longer available."
	case ReasonMaxUsesReached:
		return "This referral code has reached its maximum number of uses."
	case ReasonSelfReferral:
		return "You can't use your own referral code."
	case ReasonAlreadyRedeemed:
		return "You've already used this referral code."
	default:
		return "This referral code is not active."
	}
}

func Reject(reason Reason) *Rejection {
	return &Rejection{Reason: reason}
}

// AsRejection reports whether err is (or wraps) a business-rule rejection.
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
